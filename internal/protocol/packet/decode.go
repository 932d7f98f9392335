package packet

import (
	"errors"
	"fmt"
	"math"

	"github.com/danmuck/bitpacket/internal/protocol/bitstream"
)

// Field widths of the packet header and framing fields.
const (
	versionBits  = 3
	typeBits     = 3
	groupBits    = 5
	totalLenBits = 15
	countBits    = 11

	groupContinue = 0x10
	groupNibble   = 0x0F
)

// Limits bounds the work a single decode may do. MaxDepth is the deepest
// packet level accepted, counting the outermost packet as 0. Zero disables a
// limit.
type Limits struct {
	MaxBits  int
	MaxDepth int
}

func DefaultLimits() Limits {
	return Limits{
		MaxBits:  1 << 20,
		MaxDepth: 1024,
	}
}

// Decoder reads one packet tree from a bit stream. A Decoder owns its reader
// for the duration of Decode and is not safe for concurrent use.
type Decoder struct {
	r      *bitstream.Reader
	limits Limits
	depth  int
}

func NewDecoder(r *bitstream.Reader, limits Limits) *Decoder {
	return &Decoder{r: r, limits: limits}
}

// DecodeHex decodes the outermost packet of a hex transmission using
// DefaultLimits. Trailing padding bits are ignored.
func DecodeHex(raw string) (*Packet, error) {
	return DecodeHexWithLimits(raw, DefaultLimits())
}

func DecodeHexWithLimits(raw string, limits Limits) (*Packet, error) {
	r, err := OpenHex(raw)
	if err != nil {
		return nil, err
	}
	return NewDecoder(r, limits).Decode()
}

// OpenHex expands a transmission into a reader, reporting invalid digits as
// a *DecodeError at the digit's bit offset.
func OpenHex(raw string) (*bitstream.Reader, error) {
	r, err := bitstream.FromHex(raw)
	if err != nil {
		offset := 0
		var hexErr *bitstream.HexError
		if errors.As(err, &hexErr) {
			offset = hexErr.Index * 4
		}
		return nil, &DecodeError{Offset: offset, Err: err}
	}
	return r, nil
}

// Decode reads the next packet and all of its sub-packets.
func (d *Decoder) Decode() (*Packet, error) {
	if d.limits.MaxBits > 0 && d.r.Len() > d.limits.MaxBits {
		return nil, &DecodeError{
			Offset: 0,
			Err:    fmt.Errorf("%w: %d bits, limit %d", ErrInputTooLarge, d.r.Len(), d.limits.MaxBits),
		}
	}
	return d.decodePacket()
}

func (d *Decoder) decodePacket() (*Packet, error) {
	start := d.r.Position()
	if d.limits.MaxDepth > 0 && d.depth > d.limits.MaxDepth {
		return nil, d.fail(start, fmt.Errorf("%w: limit %d", ErrTooDeep, d.limits.MaxDepth))
	}

	version, err := d.read(versionBits)
	if err != nil {
		return nil, err
	}
	typeID, err := d.read(typeBits)
	if err != nil {
		return nil, err
	}

	if uint8(typeID) == TypeLiteral {
		value, err := d.decodeLiteral()
		if err != nil {
			return nil, err
		}
		return NewLiteral(uint8(version), value), nil
	}

	op, err := ParseOperator(uint8(typeID))
	if err != nil {
		return nil, d.fail(start+versionBits, err)
	}

	d.depth++
	children, framing, err := d.decodeChildren()
	d.depth--
	if err != nil {
		return nil, err
	}
	if err := checkArity(op, len(children)); err != nil {
		return nil, d.fail(start, err)
	}

	return &Packet{
		Version:  uint8(version),
		Kind:     KindOperator,
		Operator: op,
		Framing:  framing,
		Children: children,
	}, nil
}

func (d *Decoder) decodeLiteral() (int64, error) {
	var v uint64
	for {
		at := d.r.Position()
		group, err := d.read(groupBits)
		if err != nil {
			return 0, err
		}
		if v > math.MaxInt64>>4 {
			return 0, d.fail(at, ErrLiteralOverflow)
		}
		v = v<<4 | group&groupNibble
		if group&groupContinue == 0 {
			return int64(v), nil
		}
	}
}

func (d *Decoder) decodeChildren() ([]*Packet, Framing, error) {
	counted, err := d.readBit()
	if err != nil {
		return nil, 0, err
	}

	if !counted {
		total, err := d.read(totalLenBits)
		if err != nil {
			return nil, FramingBits, err
		}
		at := d.r.Position()
		release, err := d.r.Bound(int(total))
		if err != nil {
			return nil, FramingBits, d.fail(at, err)
		}
		defer release()

		var children []*Packet
		for d.r.Remaining() > 0 {
			child, err := d.decodePacket()
			if err != nil {
				return nil, FramingBits, err
			}
			children = append(children, child)
		}
		return children, FramingBits, nil
	}

	count, err := d.read(countBits)
	if err != nil {
		return nil, FramingCount, err
	}
	children := make([]*Packet, 0, count)
	for i := uint64(0); i < count; i++ {
		child, err := d.decodePacket()
		if err != nil {
			return nil, FramingCount, err
		}
		children = append(children, child)
	}
	return children, FramingCount, nil
}

func checkArity(op Operator, n int) error {
	if n == 0 {
		return fmt.Errorf("%w: %s has no sub-packets", ErrFraming, op)
	}
	if op.Comparison() && n != 2 {
		return fmt.Errorf("%w: %s needs 2 sub-packets, got %d", ErrFraming, op, n)
	}
	return nil
}

func (d *Decoder) read(n int) (uint64, error) {
	at := d.r.Position()
	v, err := d.r.ReadBits(n)
	if err != nil {
		return 0, d.fail(at, err)
	}
	return v, nil
}

func (d *Decoder) readBit() (bool, error) {
	at := d.r.Position()
	b, err := d.r.ReadBit()
	if err != nil {
		return false, d.fail(at, err)
	}
	return b, nil
}

func (d *Decoder) fail(offset int, err error) error {
	if errors.Is(err, bitstream.ErrOverrun) {
		err = fmt.Errorf("%w: %w", ErrFraming, err)
	}
	return &DecodeError{Offset: offset, Err: err}
}
