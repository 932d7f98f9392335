package packet

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/danmuck/bitpacket/internal/protocol/bitstream"
)

func TestEncodeHexReproducesTransmissions(t *testing.T) {
	for _, raw := range []string{"D2FE28", "38006F45291200", "EE00D40C823060"} {
		p, err := DecodeHex(raw)
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		got, err := EncodeHex(p)
		if err != nil {
			t.Fatalf("encode %s: %v", raw, err)
		}
		if got != raw {
			t.Fatalf("re-encode mismatch: got %s want %s", got, raw)
		}
	}
}

func TestEncodeDecodeRoundTripGenerated(t *testing.T) {
	rng := rand.New(rand.NewSource(16))
	for i := 0; i < 500; i++ {
		in := randomTree(rng, 0)
		w := bitstream.NewWriter()
		if err := Encode(w, in); err != nil {
			t.Fatalf("tree %d encode %s: %v", i, in, err)
		}
		r := w.Reader()
		out, err := NewDecoder(r, DefaultLimits()).Decode()
		if err != nil {
			t.Fatalf("tree %d decode %s: %v", i, in, err)
		}
		if !in.Equal(out) {
			t.Fatalf("tree %d mismatch:\n in=%s\nout=%s", i, in, out)
		}
		if r.Remaining() != 0 {
			t.Fatalf("tree %d: %d bits left after decode", i, r.Remaining())
		}
		if SumVersions(in) != SumVersions(out) || Evaluate(in) != Evaluate(out) {
			t.Fatalf("tree %d: results diverged", i)
		}
	}
}

func randomTree(rng *rand.Rand, depth int) *Packet {
	version := uint8(rng.Intn(8))
	if depth >= 4 || rng.Intn(3) == 0 {
		var v int64
		switch rng.Intn(3) {
		case 0:
			v = int64(rng.Intn(16))
		case 1:
			v = rng.Int63()
		default:
			v = int64(rng.Intn(1 << 20))
		}
		return NewLiteral(version, v)
	}

	ops := []Operator{OpSum, OpProduct, OpMinimum, OpMaximum, OpGreaterThan, OpLessThan, OpEqual}
	op := ops[rng.Intn(len(ops))]
	n := 1 + rng.Intn(4)
	if op.Comparison() {
		n = 2
	}
	children := make([]*Packet, n)
	for i := range children {
		children[i] = randomTree(rng, depth+1)
	}
	if rng.Intn(2) == 0 {
		return NewCounted(version, op, children...)
	}
	return NewOperator(version, op, children...)
}

func TestEncodeLiteralExtremes(t *testing.T) {
	for _, v := range []int64{0, 15, 16, math.MaxInt64} {
		raw, err := EncodeHex(NewLiteral(3, v))
		if err != nil {
			t.Fatalf("encode %d: %v", v, err)
		}
		p, err := DecodeHex(raw)
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if p.Value != v || p.Version != 3 {
			t.Fatalf("round trip %d: got %s", v, p)
		}
	}
}

func TestEncodeRejectsInvalidTrees(t *testing.T) {
	tests := []struct {
		name string
		p    *Packet
		want error
	}{
		{"negative literal", NewLiteral(0, -1), ErrNegativeLiteral},
		{"version", NewLiteral(8, 1), ErrInvalidVersion},
		{"literal tag as operator", NewOperator(0, Operator(TypeLiteral), NewLiteral(0, 1)), ErrUnknownOperator},
		{"comparison arity", NewOperator(0, OpEqual, NewLiteral(0, 1)), ErrFraming},
		{"empty operator", NewOperator(0, OpSum), ErrFraming},
		{"unknown length type", &Packet{Kind: KindOperator, Operator: OpSum, Framing: 9, Children: []*Packet{NewLiteral(0, 1)}}, ErrFraming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeHex(tt.p)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if KindOf(err) == "internal" {
				t.Fatalf("error not classified: %v", err)
			}
		})
	}
}

func TestEncodeCountOverflow(t *testing.T) {
	children := make([]*Packet, 1<<countBits)
	for i := range children {
		children[i] = NewLiteral(0, 1)
	}
	if _, err := EncodeHex(NewCounted(0, OpSum, children...)); !errors.Is(err, ErrFieldOverflow) {
		t.Fatalf("expected ErrFieldOverflow, got %v", err)
	}
}
