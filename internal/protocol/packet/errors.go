package packet

import (
	"errors"
	"fmt"

	"github.com/danmuck/bitpacket/internal/protocol/bitstream"
)

var (
	ErrFormat          = bitstream.ErrInvalidHex
	ErrTruncated       = bitstream.ErrTruncated
	ErrUnknownOperator = errors.New("packet: unknown operator type")
	ErrFraming         = errors.New("packet: sub-packets overrun declared length")
	ErrLiteralOverflow = errors.New("packet: literal exceeds 63 bits")
	ErrInputTooLarge   = errors.New("packet: input too large")
	ErrTooDeep         = errors.New("packet: nesting too deep")
)

var (
	ErrNegativeLiteral = errors.New("packet: negative literal cannot be encoded")
	ErrFieldOverflow   = errors.New("packet: value does not fit field width")
	ErrInvalidVersion  = errors.New("packet: version out of range")
)

// DecodeError pins a decode failure to the bit offset of the offending read.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("packet: decode failed at bit %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// KindOf names the decode or encode error kind carried by err, or "" when
// err is nil.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrUnknownOperator):
		return "unknown_operator"
	case errors.Is(err, ErrFraming):
		return "framing"
	case errors.Is(err, ErrLiteralOverflow):
		return "literal_overflow"
	case errors.Is(err, ErrInputTooLarge):
		return "input_too_large"
	case errors.Is(err, ErrTooDeep):
		return "too_deep"
	case errors.Is(err, ErrNegativeLiteral):
		return "negative_literal"
	case errors.Is(err, ErrFieldOverflow):
		return "field_overflow"
	case errors.Is(err, ErrInvalidVersion):
		return "invalid_version"
	default:
		return "internal"
	}
}

// OffsetOf returns the bit offset of a decode failure.
func OffsetOf(err error) (int, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Offset, true
	}
	return 0, false
}
