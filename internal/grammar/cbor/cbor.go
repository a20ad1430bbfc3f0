package cbor

import (
	"encoding/binary"
	"math"

	"github.com/skypro1111/binspect/internal/decode"
)

// Major types from RFC 8949 section 3.
const (
	majorUint   = 0
	majorNegInt = 1
	majorBytes  = 2
	majorText   = 3
	majorArray  = 4
	majorMap    = 5
	majorTag    = 6
	majorSimple = 7
)

// Additional-information values selecting the argument encoding.
const (
	addMax1Byte   = 23 // 0..23 encode the argument directly
	addUint8      = 24 // 1-byte argument follows
	addUint16     = 25
	addUint32     = 26
	addUint64     = 27
	addIndefinite = 31 // indefinite length, or the break sentinel on major 7
)

// breakByte terminates indefinite-length containers.
const breakByte = 0xff

// Simple values with assigned meaning (major 7, argument 20-23).
const (
	simpleFalse     = 20
	simpleTrue      = 21
	simpleNull      = 22
	simpleUndefined = 23
)

// Grammar decodes one CBOR data item from the start of the buffer.
type Grammar struct{}

// New returns the process-wide CBOR grammar.
func New() *Grammar {
	return &Grammar{}
}

// Name implements decode.Grammar.
func (g *Grammar) Name() string {
	return "cbor"
}

// Decode implements decode.Grammar.
func (g *Grammar) Decode(ctx *decode.Context) (*decode.Node, error) {
	return decodeItem(ctx)
}

// decodeItem decodes a single data item at the current cursor position.
func decodeItem(ctx *decode.Context) (*decode.Node, error) {
	cur := ctx.Cursor()
	start := cur.Offset()

	if err := ctx.Enter(start); err != nil {
		return nil, err
	}
	defer ctx.Leave()

	ib, err := cur.ReadU8()
	if err != nil {
		return nil, err
	}
	major := ib >> 5
	info := ib & 0x1f

	switch major {
	case majorUint:
		arg, indefinite, err := readArgument(ctx, ib, info, start)
		if err != nil {
			return nil, err
		}
		if indefinite {
			// Integers have no indefinite form.
			return nil, decode.UnknownDiscriminatorAt(start, ib)
		}
		return ctx.Node("uint", start, cur.Offset(), arg), nil

	case majorNegInt:
		arg, indefinite, err := readArgument(ctx, ib, info, start)
		if err != nil {
			return nil, err
		}
		if indefinite {
			return nil, decode.UnknownDiscriminatorAt(start, ib)
		}
		// Value is -1 - argument. Arguments beyond int64 range keep the raw
		// argument so no information is lost.
		var value any
		if arg <= math.MaxInt64 {
			value = -1 - int64(arg)
		} else {
			value = arg
		}
		return ctx.Node("nint", start, cur.Offset(), value), nil

	case majorBytes:
		return decodeString(ctx, ib, info, start, "bytes")

	case majorText:
		return decodeString(ctx, ib, info, start, "text")

	case majorArray:
		return decodeContainer(ctx, ib, info, start, "array", 1)

	case majorMap:
		return decodeContainer(ctx, ib, info, start, "map", 2)

	case majorTag:
		arg, indefinite, err := readArgument(ctx, ib, info, start)
		if err != nil {
			return nil, err
		}
		if indefinite {
			return nil, decode.UnknownDiscriminatorAt(start, ib)
		}
		child, err := decodeItem(ctx)
		if err != nil {
			return nil, err
		}
		n := ctx.Node("tag", start, cur.Offset(), []*decode.Node{child})
		n.Meta = map[string]any{"tag": arg}
		return n, nil

	default: // majorSimple
		return decodeSimple(ctx, ib, info, start)
	}
}

// readArgument decodes the additional-information argument: values 0-23 are
// immediate, 24-27 announce a 1/2/4/8-byte big-endian integer, 31 signals an
// indefinite length. Reserved values 28-30 have no rule.
func readArgument(ctx *decode.Context, ib, info byte, start int) (uint64, bool, error) {
	cur := ctx.Cursor()
	switch {
	case info <= addMax1Byte:
		return uint64(info), false, nil
	case info == addUint8:
		v, err := cur.ReadUint(1, binary.BigEndian)
		return v, false, err
	case info == addUint16:
		v, err := cur.ReadUint(2, binary.BigEndian)
		return v, false, err
	case info == addUint32:
		v, err := cur.ReadUint(4, binary.BigEndian)
		return v, false, err
	case info == addUint64:
		v, err := cur.ReadUint(8, binary.BigEndian)
		return v, false, err
	case info == addIndefinite:
		return 0, true, nil
	default: // 28-30 reserved
		return 0, false, decode.UnknownDiscriminatorAt(start, ib)
	}
}

// decodeString handles major types 2 and 3. Definite-length strings become
// leaf nodes; indefinite strings hold their definite-length chunks as
// children, per the RFC rule that chunks must be definite and of the same
// major type.
func decodeString(ctx *decode.Context, ib, info byte, start int, typ string) (*decode.Node, error) {
	cur := ctx.Cursor()

	arg, indefinite, err := readArgument(ctx, ib, info, start)
	if err != nil {
		return nil, err
	}

	if !indefinite {
		// A truncated payload is a read off the end of the buffer, reported
		// as UnexpectedEnd with the declared length and the shortfall.
		if arg > uint64(cur.Remaining()) {
			want := math.MaxInt
			if arg < uint64(math.MaxInt) {
				want = int(arg)
			}
			return nil, decode.UnexpectedEndAt(cur.Offset(), want, cur.Remaining())
		}
		b, err := cur.ReadBytes(int(arg))
		if err != nil {
			return nil, err
		}
		return ctx.Node(typ, start, cur.Offset(), stringValue(typ, b)), nil
	}

	var chunks []*decode.Node
	for {
		b, err := cur.PeekU8()
		if err != nil {
			return nil, err
		}
		if b == breakByte {
			cur.ReadU8()
			break
		}
		if b>>5 != ib>>5 || b&0x1f == addIndefinite {
			return nil, decode.UnknownDiscriminatorAt(cur.Offset(), b)
		}
		chunk, err := decodeItem(ctx)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return ctx.IndefiniteNode(typ, start, cur.Offset(), chunks), nil
}

// decodeContainer handles arrays and maps. stride is 1 for arrays and 2 for
// maps; map children alternate key, value. Indefinite containers scan until
// the break sentinel appears where a new item would start and fail with
// UnexpectedEnd if the buffer runs out first.
func decodeContainer(ctx *decode.Context, ib, info byte, start int, typ string, stride int) (*decode.Node, error) {
	cur := ctx.Cursor()

	arg, indefinite, err := readArgument(ctx, ib, info, start)
	if err != nil {
		return nil, err
	}

	var children []*decode.Node
	if !indefinite {
		// No pre-check against the declared count: every item consumes at
		// least one byte, so an overstated count fails with UnexpectedEnd at
		// the point of exhaustion, the same as any other truncation. Checking
		// count*stride up front would also overflow on adversarial counts.
		for i := uint64(0); i < arg; i++ {
			for j := 0; j < stride; j++ {
				child, err := decodeItem(ctx)
				if err != nil {
					return nil, err
				}
				children = append(children, child)
			}
		}
		return ctx.Node(typ, start, cur.Offset(), children), nil
	}

	if stride == 1 {
		return ctx.ReadSequence(decode.FieldSpec{
			Name:       typ,
			Kind:       decode.NestedSequence,
			Terminator: breakByte,
		}, start, decodeItem)
	}

	for {
		b, err := cur.PeekU8()
		if err != nil {
			return nil, err
		}
		if b == breakByte {
			cur.ReadU8()
			break
		}
		for i := 0; i < stride; i++ {
			child, err := decodeItem(ctx)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
	}
	return ctx.IndefiniteNode(typ, start, cur.Offset(), children), nil
}

// decodeSimple handles major type 7: booleans, null, undefined, floats and
// unassigned simple values. A break byte here means the sentinel appeared
// outside an indefinite container, which no rule covers.
func decodeSimple(ctx *decode.Context, ib, info byte, start int) (*decode.Node, error) {
	cur := ctx.Cursor()

	switch {
	case info <= addMax1Byte:
		switch info {
		case simpleFalse:
			return ctx.Node("bool", start, cur.Offset(), false), nil
		case simpleTrue:
			return ctx.Node("bool", start, cur.Offset(), true), nil
		case simpleNull:
			return ctx.Node("null", start, cur.Offset(), nil), nil
		case simpleUndefined:
			return ctx.Node("undefined", start, cur.Offset(), nil), nil
		default:
			return ctx.Node("simple", start, cur.Offset(), uint64(info)), nil
		}

	case info == addUint8:
		v, err := cur.ReadU8()
		if err != nil {
			return nil, err
		}
		return ctx.Node("simple", start, cur.Offset(), uint64(v)), nil

	case info == addUint16:
		v, err := cur.ReadUint(2, binary.BigEndian)
		if err != nil {
			return nil, err
		}
		return ctx.Node("float", start, cur.Offset(), float16ToFloat64(uint16(v))), nil

	case info == addUint32:
		v, err := cur.ReadUint(4, binary.BigEndian)
		if err != nil {
			return nil, err
		}
		return ctx.Node("float", start, cur.Offset(), float64(math.Float32frombits(uint32(v)))), nil

	case info == addUint64:
		v, err := cur.ReadUint(8, binary.BigEndian)
		if err != nil {
			return nil, err
		}
		return ctx.Node("float", start, cur.Offset(), math.Float64frombits(v)), nil

	default: // 28-30 reserved, 31 is a stray break
		return nil, decode.UnknownDiscriminatorAt(start, ib)
	}
}

// stringValue converts raw bytes to the node value: text strings become Go
// strings, byte strings are copied out of the input buffer.
func stringValue(typ string, b []byte) any {
	if typ == "text" {
		return string(b)
	}
	return append([]byte(nil), b...)
}

// float16ToFloat64 expands an IEEE 754 half-precision value. Go has no
// native float16, so the node value is the widened float64.
func float16ToFloat64(h uint16) float64 {
	sign := uint64(h>>15) & 1
	exp := int(h>>10) & 0x1f
	frac := uint64(h & 0x3ff)

	var f float64
	switch {
	case exp == 0:
		f = float64(frac) * math.Pow(2, -24)
	case exp == 31:
		if frac == 0 {
			f = math.Inf(1)
		} else {
			return math.NaN()
		}
	default:
		f = (1 + float64(frac)/1024) * math.Pow(2, float64(exp-15))
	}
	if sign == 1 {
		return -f
	}
	return f
}
