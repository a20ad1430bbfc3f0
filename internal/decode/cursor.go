package decode

import (
	"encoding/binary"
	"fmt"
)

// Cursor wraps an immutable byte buffer and a mutable read offset. Every
// read validates the remaining length first, so the offset never exceeds the
// buffer length after a successful call. A cursor is used by exactly one
// decode call on one goroutine; it is not safe for concurrent use.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor creates a cursor positioned at the start of buf. The cursor
// borrows buf and never mutates it.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// ReadU8 reads one byte and advances the offset.
func (c *Cursor) ReadU8() (byte, error) {
	if c.off >= len(c.buf) {
		return 0, UnexpectedEndAt(c.off, 1, 0)
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// PeekU8 returns the next byte without advancing the offset. Used for tag
// lookahead without commitment, e.g. scanning for a break sentinel.
func (c *Cursor) PeekU8() (byte, error) {
	if c.off >= len(c.buf) {
		return 0, UnexpectedEndAt(c.off, 1, 0)
	}
	return c.buf[c.off], nil
}

// ReadBytes reads exactly n bytes and advances the offset. The returned
// slice is a view into the underlying buffer; callers that retain it past
// the decode call must copy.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, MalformedLengthAt(c.off, uint64(uint(n)), c.Remaining())
	}
	if c.Remaining() < n {
		return nil, UnexpectedEndAt(c.off, n, c.Remaining())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// ReadUint reads an unsigned integer of the given width (1, 2, 4 or 8 bytes)
// interpreted per byte order.
func (c *Cursor) ReadUint(width int, order binary.ByteOrder) (uint64, error) {
	b, err := c.ReadBytes(width)
	if err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(order.Uint16(b)), nil
	case 4:
		return uint64(order.Uint32(b)), nil
	case 8:
		return order.Uint64(b), nil
	default:
		return 0, fmt.Errorf("invalid integer width %d: must be 1, 2, 4 or 8", width)
	}
}

// Seek moves the offset to an absolute position. Offset-addressed formats
// use Seek to jump to a declared position, decode a sub-structure, and jump
// back; an offset outside the buffer fails with MalformedLength.
func (c *Cursor) Seek(off int) error {
	if off < 0 || off > len(c.buf) {
		return MalformedLengthAt(c.off, uint64(uint(off)), len(c.buf))
	}
	c.off = off
	return nil
}

// Offset returns the current read position.
func (c *Cursor) Offset() int {
	return c.off
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

// Len returns the total buffer length.
func (c *Cursor) Len() int {
	return len(c.buf)
}
