package bitstream

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxReadWidth is the widest field a single ReadBits call can return.
const MaxReadWidth = 64

var (
	ErrInvalidHex   = errors.New("bitstream: invalid hex digit")
	ErrTruncated    = errors.New("bitstream: truncated input")
	ErrOverrun      = errors.New("bitstream: read crosses bounded window")
	ErrInvalidWidth = errors.New("bitstream: invalid read width")
)

// HexError reports the first non-hex character in a transmission.
type HexError struct {
	Index int
	Char  rune
}

func (e *HexError) Error() string {
	return fmt.Sprintf("bitstream: invalid hex digit %q at index %d", e.Char, e.Index)
}

func (e *HexError) Unwrap() error {
	return ErrInvalidHex
}

// Reader is a cursor over a fixed bit sequence packed MSB-first into bytes.
type Reader struct {
	data    []byte
	size    int
	pos     int
	limit   int
	windows int
}

// FromHex expands every hex digit of text into 4 bits. Whitespace, including
// line breaks, is skipped so multi-line input reads as one sequence.
func FromHex(text string) (*Reader, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	data := make([]byte, (len(digits)+1)/2)
	for i, c := range digits {
		n, ok := nibble(c)
		if !ok {
			return nil, &HexError{Index: i, Char: c}
		}
		if i%2 == 0 {
			data[i/2] = n << 4
		} else {
			data[i/2] |= n
		}
	}
	size := len(digits) * 4
	return &Reader{data: data, size: size, limit: size}, nil
}

// FromBytes wraps the first bits of b. bits is clamped to len(b)*8.
func FromBytes(b []byte, bits int) *Reader {
	if bits < 0 {
		bits = 0
	}
	if bits > len(b)*8 {
		bits = len(b) * 8
	}
	data := make([]byte, len(b))
	copy(data, b)
	return &Reader{data: data, size: bits, limit: bits}
}

func nibble(c rune) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return byte(c - '0'), true
	case c >= 'a' && c <= 'f':
		return byte(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return byte(c-'A') + 10, true
	default:
		return 0, false
	}
}

// Len is the total number of bits in the stream.
func (r *Reader) Len() int {
	return r.size
}

// Position is the cursor offset in bits from the start of the stream.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining is the number of bits left before the active window limit.
func (r *Reader) Remaining() int {
	return r.limit - r.pos
}

// ReadBits returns the next n bits as a big-endian unsigned integer and
// advances the cursor by n. On error the cursor does not move.
func (r *Reader) ReadBits(n int) (uint64, error) {
	if n < 0 || n > MaxReadWidth {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWidth, n)
	}
	if err := r.check(n); err != nil {
		return 0, err
	}

	var v uint64
	for n > 0 {
		off := r.pos & 7
		avail := 8 - off
		take := avail
		if n < take {
			take = n
		}
		chunk := uint64(r.data[r.pos>>3]>>(avail-take)) & (1<<take - 1)
		v = v<<take | chunk
		r.pos += take
		n -= take
	}
	return v, nil
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() (bool, error) {
	v, err := r.ReadBits(1)
	return v == 1, err
}

// Bound narrows the readable range to the next n bits. Reads crossing the
// window fail with ErrOverrun until release restores the previous limit.
func (r *Reader) Bound(n int) (func(), error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, n)
	}
	if err := r.check(n); err != nil {
		return nil, err
	}
	prev := r.limit
	r.limit = r.pos + n
	r.windows++
	return func() {
		r.limit = prev
		r.windows--
	}, nil
}

func (r *Reader) check(n int) error {
	if n <= r.limit-r.pos {
		return nil
	}
	if r.windows > 0 {
		return fmt.Errorf("%w: need %d bits at offset %d, window has %d", ErrOverrun, n, r.pos, r.limit-r.pos)
	}
	return fmt.Errorf("%w: need %d bits at offset %d, have %d", ErrTruncated, n, r.pos, r.size-r.pos)
}
