package packet

import (
	"fmt"
	"math/bits"

	"github.com/danmuck/bitpacket/internal/protocol/bitstream"
)

// EncodeHex renders p as a transmission, zero-padded to a whole byte.
func EncodeHex(p *Packet) (string, error) {
	w := bitstream.NewWriter()
	if err := Encode(w, p); err != nil {
		return "", err
	}
	return w.Hex(), nil
}

// Encode appends the wire form of p to w. Literals use the fewest groups that
// hold the value; operators keep the framing they were built or decoded with.
func Encode(w *bitstream.Writer, p *Packet) error {
	if p.Version >= 1<<versionBits {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, p.Version)
	}
	if err := w.WriteBits(uint64(p.Version), versionBits); err != nil {
		return err
	}

	if p.IsLiteral() {
		if p.Value < 0 {
			return fmt.Errorf("%w: %d", ErrNegativeLiteral, p.Value)
		}
		if err := w.WriteBits(uint64(TypeLiteral), typeBits); err != nil {
			return err
		}
		return encodeLiteral(w, uint64(p.Value))
	}

	if !p.Operator.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownOperator, uint8(p.Operator))
	}
	if err := checkArity(p.Operator, len(p.Children)); err != nil {
		return err
	}
	if err := w.WriteBits(uint64(p.Operator), typeBits); err != nil {
		return err
	}

	switch p.Framing {
	case FramingCount:
		if len(p.Children) >= 1<<countBits {
			return fmt.Errorf("%w: %d sub-packets in %d-bit count", ErrFieldOverflow, len(p.Children), countBits)
		}
		w.WriteBit(true)
		if err := w.WriteBits(uint64(len(p.Children)), countBits); err != nil {
			return err
		}
		for _, c := range p.Children {
			if err := Encode(w, c); err != nil {
				return err
			}
		}
		return nil
	case FramingBits:
		body := bitstream.NewWriter()
		for _, c := range p.Children {
			if err := Encode(body, c); err != nil {
				return err
			}
		}
		if body.Len() >= 1<<totalLenBits {
			return fmt.Errorf("%w: %d bits in %d-bit length", ErrFieldOverflow, body.Len(), totalLenBits)
		}
		w.WriteBit(false)
		if err := w.WriteBits(uint64(body.Len()), totalLenBits); err != nil {
			return err
		}
		w.Append(body)
		return nil
	default:
		return fmt.Errorf("%w: unknown length type %d", ErrFraming, p.Framing)
	}
}

func encodeLiteral(w *bitstream.Writer, v uint64) error {
	groups := (bits.Len64(v) + 3) / 4
	if groups == 0 {
		groups = 1
	}
	for i := groups - 1; i >= 0; i-- {
		group := v >> (4 * uint(i)) & groupNibble
		if i > 0 {
			group |= groupContinue
		}
		if err := w.WriteBits(group, groupBits); err != nil {
			return err
		}
	}
	return nil
}
