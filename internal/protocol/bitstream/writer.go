package bitstream

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Writer accumulates bits MSB-first.
type Writer struct {
	data []byte
	size int
}

func NewWriter() *Writer {
	return &Writer{}
}

// WriteBits appends the low n bits of v, most significant first.
func (w *Writer) WriteBits(v uint64, n int) error {
	if n < 0 || n > MaxReadWidth {
		return fmt.Errorf("%w: %d", ErrInvalidWidth, n)
	}
	for i := n - 1; i >= 0; i-- {
		w.writeBit(byte(v>>uint(i)) & 1)
	}
	return nil
}

// WriteBit appends a single bit.
func (w *Writer) WriteBit(bit bool) {
	if bit {
		w.writeBit(1)
		return
	}
	w.writeBit(0)
}

func (w *Writer) writeBit(bit byte) {
	if w.size&7 == 0 {
		w.data = append(w.data, 0)
	}
	if bit != 0 {
		w.data[w.size>>3] |= 1 << (7 - uint(w.size&7))
	}
	w.size++
}

// Append copies every bit of other onto the end of w.
func (w *Writer) Append(other *Writer) {
	for i := 0; i < other.size; i++ {
		w.writeBit(other.data[i>>3] >> (7 - uint(i&7)) & 1)
	}
}

// Len is the number of bits written so far.
func (w *Writer) Len() int {
	return w.size
}

// Bytes returns the written bits zero-padded to a whole byte.
func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.data))
	copy(out, w.data)
	return out
}

// Hex renders Bytes as upper-case hex digits.
func (w *Writer) Hex() string {
	return strings.ToUpper(hex.EncodeToString(w.data))
}

// Reader returns a reader over the bits written so far.
func (w *Writer) Reader() *Reader {
	return FromBytes(w.data, w.size)
}
