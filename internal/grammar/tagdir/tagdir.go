package tagdir

import (
	"encoding/binary"
	"math"

	"github.com/skypro1111/binspect/internal/decode"
)

// Layout constants.
const (
	magic      = 42
	entrySize  = 12 // tag:2 + type:2 + count:4 + value/offset:4
	inlineSize = 4  // payloads up to 4 bytes live inside the entry record
)

// Field types and their element sizes in bytes.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
)

var fieldTypes = map[uint64]struct {
	name string
	size int
}{
	typeByte:      {"byte", 1},
	typeASCII:     {"ascii", 1},
	typeShort:     {"short", 2},
	typeLong:      {"long", 4},
	typeRational:  {"rational", 8},
	typeSByte:     {"sbyte", 1},
	typeUndefined: {"undefined", 1},
	typeSShort:    {"sshort", 2},
	typeSLong:     {"slong", 4},
	typeSRational: {"srational", 8},
	typeFloat:     {"float", 4},
	typeDouble:    {"double", 8},
}

// Grammar decodes a tag directory file: header, then the directory chain.
type Grammar struct{}

// New returns the process-wide tag directory grammar.
func New() *Grammar {
	return &Grammar{}
}

// Name implements decode.Grammar.
func (g *Grammar) Name() string {
	return "tagdir"
}

// Decode implements decode.Grammar.
func (g *Grammar) Decode(ctx *decode.Context) (*decode.Node, error) {
	cur := ctx.Cursor()
	start := cur.Offset()

	if err := ctx.Enter(start); err != nil {
		return nil, err
	}
	defer ctx.Leave()

	order, err := readOrderMark(ctx)
	if err != nil {
		return nil, err
	}

	magicOffset := cur.Offset()
	m, err := cur.ReadUint(2, order)
	if err != nil {
		return nil, err
	}
	if m != magic {
		return nil, decode.UnknownDiscriminatorAt(magicOffset, byte(m))
	}

	offsetPos := cur.Offset()
	next, err := cur.ReadUint(4, order)
	if err != nil {
		return nil, err
	}

	// Walk the directory chain. A chain longer than the depth cap is treated
	// the same as runaway nesting: corrupt input, not a larger file.
	var dirs []*decode.Node
	for next != 0 {
		if len(dirs) >= ctx.MaxDepth() {
			return nil, decode.RecursionLimitAt(offsetPos, ctx.MaxDepth())
		}
		if next > uint64(cur.Len()) {
			return nil, decode.MalformedLengthAt(offsetPos, next, cur.Len())
		}
		if err := cur.Seek(int(next)); err != nil {
			return nil, err
		}

		dir, nextOffset, err := decodeDirectory(ctx, order)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
		offsetPos = dir.End - 4
		next = nextOffset
	}

	return ctx.Node("tagdir", start, cur.Offset(), dirs), nil
}

// readOrderMark reads the 2-byte endianness mark: "II" little, "MM" big.
func readOrderMark(ctx *decode.Context) (binary.ByteOrder, error) {
	cur := ctx.Cursor()
	start := cur.Offset()
	mark, err := cur.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	switch {
	case mark[0] == 'I' && mark[1] == 'I':
		return binary.LittleEndian, nil
	case mark[0] == 'M' && mark[1] == 'M':
		return binary.BigEndian, nil
	default:
		return nil, decode.UnknownDiscriminatorAt(start, mark[0])
	}
}

// decodeDirectory reads one directory at the current position: a 2-byte
// entry count, exactly count 12-byte entries, then the 4-byte offset of the
// next directory (0 ends the chain).
func decodeDirectory(ctx *decode.Context, order binary.ByteOrder) (*decode.Node, uint64, error) {
	cur := ctx.Cursor()
	start := cur.Offset()

	if err := ctx.Enter(start); err != nil {
		return nil, 0, err
	}
	defer ctx.Leave()

	count, err := cur.ReadUint(2, order)
	if err != nil {
		return nil, 0, err
	}
	if count*entrySize > uint64(cur.Remaining()) {
		return nil, 0, decode.MalformedLengthAt(start, count, cur.Remaining())
	}

	entries := make([]*decode.Node, 0, count)
	for i := uint64(0); i < count; i++ {
		entry, err := decodeEntry(ctx, order)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}

	next, err := cur.ReadUint(4, order)
	if err != nil {
		return nil, 0, err
	}

	return ctx.Node("directory", start, cur.Offset(), entries), next, nil
}

// decodeEntry reads one 12-byte entry. Payloads that fit in 4 bytes are
// inline; larger ones are reached through an absolute offset, decoded with a
// cursor jump, and the cursor restored so the outer walk is undisturbed.
func decodeEntry(ctx *decode.Context, order binary.ByteOrder) (*decode.Node, error) {
	cur := ctx.Cursor()
	start := cur.Offset()

	if err := ctx.Enter(start); err != nil {
		return nil, err
	}
	defer ctx.Leave()

	tagNode, err := ctx.ReadField(decode.FieldSpec{Name: "tag", Kind: decode.Tag, Width: 2, Order: order})
	if err != nil {
		return nil, err
	}
	typeOffset := cur.Offset()
	ftype, err := cur.ReadUint(2, order)
	if err != nil {
		return nil, err
	}
	count, err := cur.ReadUint(4, order)
	if err != nil {
		return nil, err
	}

	ft, ok := fieldTypes[ftype]
	if !ok {
		return nil, decode.UnknownDiscriminatorAt(typeOffset, byte(ftype))
	}

	size := count * uint64(ft.size)
	valueOffset := cur.Offset()

	var valueNode *decode.Node
	if size <= inlineSize {
		valueNode, err = decodeValue(ctx, order, ftype, ft.name, count, valueOffset)
		if err != nil {
			return nil, err
		}
		// The value slot is always 4 bytes; skip whatever the payload left.
		if err := cur.Seek(valueOffset + inlineSize); err != nil {
			return nil, err
		}
	} else {
		target, err := cur.ReadUint(4, order)
		if err != nil {
			return nil, err
		}
		if target+size > uint64(cur.Len()) {
			return nil, decode.MalformedLengthAt(valueOffset, target+size, cur.Len())
		}
		resume := cur.Offset()
		if err := cur.Seek(int(target)); err != nil {
			return nil, err
		}
		valueNode, err = decodeValue(ctx, order, ftype, ft.name, count, int(target))
		if err != nil {
			return nil, err
		}
		if err := cur.Seek(resume); err != nil {
			return nil, err
		}
	}

	entry := ctx.Node("entry", start, start+entrySize, []*decode.Node{valueNode})
	entry.Meta = map[string]any{
		"tag":        tagNode.Value,
		"field_type": ft.name,
		"count":      count,
	}
	return entry, nil
}

// decodeValue reads count elements of the given field type starting at the
// current cursor position.
func decodeValue(ctx *decode.Context, order binary.ByteOrder, ftype uint64, name string, count uint64, start int) (*decode.Node, error) {
	cur := ctx.Cursor()

	if err := ctx.Enter(start); err != nil {
		return nil, err
	}
	defer ctx.Leave()

	switch ftype {
	case typeASCII:
		b, err := cur.ReadBytes(int(count))
		if err != nil {
			return nil, err
		}
		// Trailing NUL terminates the string on the wire.
		s := b
		if len(s) > 0 && s[len(s)-1] == 0 {
			s = s[:len(s)-1]
		}
		return ctx.Node(name, start, cur.Offset(), string(s)), nil

	case typeByte, typeUndefined:
		b, err := cur.ReadBytes(int(count))
		if err != nil {
			return nil, err
		}
		return ctx.Node(name, start, cur.Offset(), append([]byte(nil), b...)), nil

	case typeFloat, typeDouble:
		width := 4
		if ftype == typeDouble {
			width = 8
		}
		if count == 1 {
			return decodeIEEE(ctx, order, name, width)
		}
		elems := make([]*decode.Node, 0, count)
		for i := uint64(0); i < count; i++ {
			e, err := decodeIEEE(ctx, order, name, width)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return ctx.Node(name+"s", start, cur.Offset(), elems), nil

	case typeRational, typeSRational:
		signed := ftype == typeSRational
		if count == 1 {
			return decodeRational(ctx, order, name, signed)
		}
		elems := make([]*decode.Node, 0, count)
		for i := uint64(0); i < count; i++ {
			e, err := decodeRational(ctx, order, name, signed)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return ctx.Node(name+"s", start, cur.Offset(), elems), nil

	default:
		spec := scalarSpec(ftype, name, order)
		if count == 1 {
			return ctx.ReadField(spec)
		}
		elems := make([]*decode.Node, 0, count)
		for i := uint64(0); i < count; i++ {
			e, err := ctx.ReadField(spec)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return ctx.Node(name+"s", start, cur.Offset(), elems), nil
	}
}

// decodeRational reads a numerator/denominator pair and stores the quotient,
// keeping the raw pair in the node metadata.
func decodeRational(ctx *decode.Context, order binary.ByteOrder, name string, signed bool) (*decode.Node, error) {
	cur := ctx.Cursor()
	start := cur.Offset()

	num, err := cur.ReadUint(4, order)
	if err != nil {
		return nil, err
	}
	den, err := cur.ReadUint(4, order)
	if err != nil {
		return nil, err
	}

	var value float64
	var numV, denV any
	if signed {
		n := int64(int32(num))
		d := int64(int32(den))
		numV, denV = n, d
		if d != 0 {
			value = float64(n) / float64(d)
		}
	} else {
		numV, denV = num, den
		if den != 0 {
			value = float64(num) / float64(den)
		}
	}

	node := ctx.Node(name, start, cur.Offset(), value)
	node.Meta = map[string]any{"numerator": numV, "denominator": denV}
	return node, nil
}

// decodeIEEE reads one IEEE 754 single or double precision value; singles
// widen to float64 in the node value.
func decodeIEEE(ctx *decode.Context, order binary.ByteOrder, name string, width int) (*decode.Node, error) {
	cur := ctx.Cursor()
	start := cur.Offset()
	raw, err := cur.ReadUint(width, order)
	if err != nil {
		return nil, err
	}
	var f float64
	if width == 4 {
		f = float64(math.Float32frombits(uint32(raw)))
	} else {
		f = math.Float64frombits(raw)
	}
	return ctx.Node(name, start, cur.Offset(), f), nil
}

// scalarSpec maps a numeric field type to its FieldSpec.
func scalarSpec(ftype uint64, name string, order binary.ByteOrder) decode.FieldSpec {
	switch ftype {
	case typeLong:
		return decode.FieldSpec{Name: name, Kind: decode.FixedInt, Width: 4, Order: order}
	case typeSByte:
		return decode.FieldSpec{Name: name, Kind: decode.FixedInt, Width: 1, Signed: true, Order: order}
	case typeSShort:
		return decode.FieldSpec{Name: name, Kind: decode.FixedInt, Width: 2, Signed: true, Order: order}
	case typeSLong:
		return decode.FieldSpec{Name: name, Kind: decode.FixedInt, Width: 4, Signed: true, Order: order}
	default: // typeShort
		return decode.FieldSpec{Name: name, Kind: decode.FixedInt, Width: 2, Order: order}
	}
}
