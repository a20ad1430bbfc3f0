package decode

import (
	"encoding/binary"
	"fmt"
)

// FieldKind selects how a FieldSpec is decoded.
type FieldKind int

const (
	// FixedInt is a fixed-width integer: Width bytes, Signed selects two's
	// complement interpretation, Order the endianness.
	FixedInt FieldKind = iota
	// LengthPrefixedBytes is a byte string preceded by a LengthWidth-byte
	// unsigned length.
	LengthPrefixedBytes
	// Tag is a fixed-width unsigned discriminator; identical wire layout to
	// FixedInt but named separately so grammars read as their format docs do.
	Tag
	// NestedSequence is a run of child elements ended by a one-byte
	// Terminator sentinel; decoded via Context.ReadSequence.
	NestedSequence
)

// FieldSpec describes one decodable unit of a grammar. Specs are immutable
// and constructed once per grammar as package-level tables.
type FieldSpec struct {
	Name        string
	Kind        FieldKind
	Width       int  // FixedInt, Tag: integer width in bytes
	Signed      bool // FixedInt: two's complement
	Order       binary.ByteOrder
	LengthWidth int  // LengthPrefixedBytes: width of the length prefix
	Terminator  byte // NestedSequence: sentinel ending the sequence
}

// ReadField decodes one scalar field per its spec and returns the resulting
// node. NestedSequence specs must go through ReadSequence instead.
func (c *Context) ReadField(fs FieldSpec) (*Node, error) {
	start := c.cur.Offset()

	switch fs.Kind {
	case FixedInt:
		v, err := c.cur.ReadUint(fs.Width, fs.Order)
		if err != nil {
			return nil, err
		}
		if fs.Signed {
			return c.Node(fs.Name, start, c.cur.Offset(), signExtend(v, fs.Width)), nil
		}
		return c.Node(fs.Name, start, c.cur.Offset(), v), nil

	case Tag:
		v, err := c.cur.ReadUint(fs.Width, fs.Order)
		if err != nil {
			return nil, err
		}
		return c.Node(fs.Name, start, c.cur.Offset(), v), nil

	case LengthPrefixedBytes:
		n, err := c.cur.ReadUint(fs.LengthWidth, fs.Order)
		if err != nil {
			return nil, err
		}
		// A payload shorter than declared is a read off the buffer end:
		// the cursor reports UnexpectedEnd with the shortfall.
		if n > uint64(c.cur.Remaining()) {
			return nil, UnexpectedEndAt(c.cur.Offset(), int(n), c.cur.Remaining())
		}
		b, err := c.cur.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		return c.Node(fs.Name, start, c.cur.Offset(), append([]byte(nil), b...)), nil

	default:
		return nil, fmt.Errorf("field %q: kind %d is not scalar-readable", fs.Name, fs.Kind)
	}
}

// ReadSequence decodes a NestedSequence field: item is called repeatedly
// until the terminator byte appears at the position where a new item would
// start. The terminator is consumed. Buffer exhaustion before the terminator
// fails with UnexpectedEnd rather than returning a partial sequence. start
// is the offset where the enclosing element began, so headers consumed by
// the caller stay inside the node's byte range. Depth accounting is the
// caller's concern; item decoders Enter for themselves.
func (c *Context) ReadSequence(fs FieldSpec, start int, item func(*Context) (*Node, error)) (*Node, error) {
	var children []*Node
	for {
		b, err := c.cur.PeekU8()
		if err != nil {
			return nil, err
		}
		if b == fs.Terminator {
			c.cur.ReadU8() // consume the sentinel
			break
		}
		child, err := item(c)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return c.IndefiniteNode(fs.Name, start, c.cur.Offset(), children), nil
}

// signExtend interprets the low width bytes of v as a two's complement
// signed integer.
func signExtend(v uint64, width int) int64 {
	shift := uint(64 - width*8)
	return int64(v<<shift) >> shift
}
