package bitstream

import (
	"errors"
	"testing"
)

func TestFromHexExpandsNibbles(t *testing.T) {
	r, err := FromHex("D2FE28")
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	if r.Len() != 24 {
		t.Fatalf("expected 24 bits, got %d", r.Len())
	}

	// 110100101111111000101000
	want := []struct {
		n int
		v uint64
	}{
		{3, 6}, {3, 4}, {5, 0b10111}, {5, 0b11110}, {5, 0b00101}, {3, 0},
	}
	for _, w := range want {
		got, err := r.ReadBits(w.n)
		if err != nil {
			t.Fatalf("read %d bits: %v", w.n, err)
		}
		if got != w.v {
			t.Fatalf("read %d bits at %d: got %b want %b", w.n, r.Position()-w.n, got, w.v)
		}
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected stream consumed, %d bits remain", r.Remaining())
	}
}

func TestFromHexConcatenatesLinesAndIgnoresCase(t *testing.T) {
	a, err := FromHex("d2\nFe\r\n28 \n")
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	b, err := FromHex("D2FE28")
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	va, _ := a.ReadBits(24)
	vb, _ := b.ReadBits(24)
	if va != vb {
		t.Fatalf("multi-line mismatch: %x != %x", va, vb)
	}
}

func TestFromHexOddDigitCount(t *testing.T) {
	r, err := FromHex("ABC")
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	if r.Len() != 12 {
		t.Fatalf("expected 12 bits, got %d", r.Len())
	}
	v, err := r.ReadBits(12)
	if err != nil || v != 0xABC {
		t.Fatalf("expected 0xABC, got %x err=%v", v, err)
	}
}

func TestFromHexRejectsInvalidDigit(t *testing.T) {
	_, err := FromHex("12\n3G4")
	if !errors.Is(err, ErrInvalidHex) {
		t.Fatalf("expected ErrInvalidHex, got %v", err)
	}
	var hexErr *HexError
	if !errors.As(err, &hexErr) {
		t.Fatalf("expected *HexError, got %T", err)
	}
	if hexErr.Index != 3 || hexErr.Char != 'G' {
		t.Fatalf("unexpected hex error: %+v", hexErr)
	}
}

func TestReadBitsWideFieldsAcrossBytes(t *testing.T) {
	r, err := FromHex("0123456789ABCDEF0F")
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	if _, err := r.ReadBits(4); err != nil {
		t.Fatalf("skip nibble: %v", err)
	}
	v, err := r.ReadBits(64)
	if err != nil {
		t.Fatalf("read 64: %v", err)
	}
	if v != 0x123456789ABCDEF0 {
		t.Fatalf("got %x", v)
	}
	if r.Remaining() != 4 {
		t.Fatalf("expected 4 bits left, got %d", r.Remaining())
	}
}

func TestReadBitsTruncatedLeavesCursor(t *testing.T) {
	r, err := FromHex("F")
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	if _, err := r.ReadBits(3); err != nil {
		t.Fatalf("read 3: %v", err)
	}
	_, err = r.ReadBits(2)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if r.Position() != 3 {
		t.Fatalf("cursor moved on failed read: %d", r.Position())
	}
	if _, err := r.ReadBits(65); !errors.Is(err, ErrInvalidWidth) {
		t.Fatalf("expected ErrInvalidWidth, got %v", err)
	}
}

func TestReadBitsZeroWidth(t *testing.T) {
	r, _ := FromHex("")
	v, err := r.ReadBits(0)
	if err != nil || v != 0 {
		t.Fatalf("zero width read: v=%d err=%v", v, err)
	}
}

func TestBoundWindowOverrunAndRelease(t *testing.T) {
	r, err := FromHex("FFFF")
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	release, err := r.Bound(5)
	if err != nil {
		t.Fatalf("bound: %v", err)
	}
	if r.Remaining() != 5 {
		t.Fatalf("expected window of 5, got %d", r.Remaining())
	}
	if _, err := r.ReadBits(3); err != nil {
		t.Fatalf("read in window: %v", err)
	}
	if _, err := r.ReadBits(3); !errors.Is(err, ErrOverrun) {
		t.Fatalf("expected ErrOverrun, got %v", err)
	}
	if _, err := r.Bound(3); !errors.Is(err, ErrOverrun) {
		t.Fatalf("expected nested ErrOverrun, got %v", err)
	}
	release()
	if r.Remaining() != 13 {
		t.Fatalf("expected 13 bits after release, got %d", r.Remaining())
	}
	if _, err := r.Bound(14); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated for oversized window, got %v", err)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	w := NewWriter()
	fields := []struct {
		v uint64
		n int
	}{
		{6, 3}, {4, 3}, {0b10111, 5}, {0b11110, 5}, {0b00101, 5},
	}
	for _, f := range fields {
		if err := w.WriteBits(f.v, f.n); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if w.Len() != 21 {
		t.Fatalf("expected 21 bits, got %d", w.Len())
	}
	if got := w.Hex(); got != "D2FE28" {
		t.Fatalf("expected D2FE28, got %s", got)
	}

	r := w.Reader()
	if r.Len() != 21 {
		t.Fatalf("reader length mismatch: %d", r.Len())
	}
	for _, f := range fields {
		v, err := r.ReadBits(f.n)
		if err != nil || v != f.v {
			t.Fatalf("read back %d bits: got %b want %b err=%v", f.n, v, f.v, err)
		}
	}
}

func TestWriterAppend(t *testing.T) {
	head := NewWriter()
	head.WriteBit(true)
	tail := NewWriter()
	_ = tail.WriteBits(0b0101010, 7)
	_ = tail.WriteBits(0b1, 1)
	head.Append(tail)
	if head.Len() != 9 {
		t.Fatalf("expected 9 bits, got %d", head.Len())
	}
	if got := head.Hex(); got != "AA80" {
		t.Fatalf("expected AA80, got %s", got)
	}
}
