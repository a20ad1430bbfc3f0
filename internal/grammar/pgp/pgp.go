package pgp

import (
	"encoding/binary"

	"github.com/skypro1111/binspect/internal/decode"
)

// Tag byte layout.
const (
	alwaysSetBit  = 0x80 // bit 7 must be set on every packet tag byte
	newFormatBit  = 0x40 // bit 6 selects new-format framing
	oldTagMask    = 0x3c // old format: tag in bits 5-2
	oldLenMask    = 0x03 // old format: length type in bits 1-0
	newTagMask    = 0x3f // new format: tag in bits 5-0
)

// New-format length encoding boundaries (RFC 4880 section 4.2.2).
const (
	oneOctetMax    = 191
	twoOctetFirst  = 192
	twoOctetLast   = 223
	partialFirst   = 224
	partialLast    = 254
	fiveOctetFirst = 255
)

// packetNames maps assigned packet tags to their names. The tag space is
// fully assigned by the format, so unassigned values decode as a generic
// "packet" rather than failing.
var packetNames = map[uint8]string{
	1:  "public-key-encrypted-session-key",
	2:  "signature",
	3:  "symmetric-key-encrypted-session-key",
	4:  "one-pass-signature",
	5:  "secret-key",
	6:  "public-key",
	7:  "secret-subkey",
	8:  "compressed-data",
	9:  "symmetrically-encrypted-data",
	10: "marker",
	11: "literal-data",
	12: "trust",
	13: "user-id",
	14: "public-subkey",
	17: "user-attribute",
	18: "sym-encrypted-integrity-protected-data",
	19: "modification-detection-code",
}

// Grammar decodes a stream of packets until the buffer is exhausted.
type Grammar struct{}

// New returns the process-wide packet stream grammar.
func New() *Grammar {
	return &Grammar{}
}

// Name implements decode.Grammar.
func (g *Grammar) Name() string {
	return "pgp"
}

// Decode implements decode.Grammar.
func (g *Grammar) Decode(ctx *decode.Context) (*decode.Node, error) {
	cur := ctx.Cursor()
	start := cur.Offset()

	if err := ctx.Enter(start); err != nil {
		return nil, err
	}
	defer ctx.Leave()

	var packets []*decode.Node
	for cur.Remaining() > 0 {
		p, err := decodePacket(ctx)
		if err != nil {
			return nil, err
		}
		packets = append(packets, p)
	}

	return ctx.Node("pgp", start, cur.Offset(), packets), nil
}

// decodePacket reads one packet: tag byte, length per framing format, body.
func decodePacket(ctx *decode.Context) (*decode.Node, error) {
	cur := ctx.Cursor()
	start := cur.Offset()

	if err := ctx.Enter(start); err != nil {
		return nil, err
	}
	defer ctx.Leave()

	tb, err := cur.ReadU8()
	if err != nil {
		return nil, err
	}
	if tb&alwaysSetBit == 0 {
		return nil, decode.UnknownDiscriminatorAt(start, tb)
	}

	if tb&newFormatBit != 0 {
		return decodeNewFormat(ctx, start, tb&newTagMask)
	}
	return decodeOldFormat(ctx, start, tb)
}

// decodeOldFormat handles old-format framing: length type in the low two
// bits selects a 1, 2 or 4-byte length, or an indeterminate body running to
// the end of the buffer.
func decodeOldFormat(ctx *decode.Context, start int, tb byte) (*decode.Node, error) {
	cur := ctx.Cursor()
	tag := (tb & oldTagMask) >> 2

	var bodyLen uint64
	switch tb & oldLenMask {
	case 0:
		n, err := cur.ReadUint(1, binary.BigEndian)
		if err != nil {
			return nil, err
		}
		bodyLen = n
	case 1:
		n, err := cur.ReadUint(2, binary.BigEndian)
		if err != nil {
			return nil, err
		}
		bodyLen = n
	case 2:
		n, err := cur.ReadUint(4, binary.BigEndian)
		if err != nil {
			return nil, err
		}
		bodyLen = n
	default:
		// Indeterminate length: the body is everything that remains.
		body, err := cur.ReadBytes(cur.Remaining())
		if err != nil {
			return nil, err
		}
		n := ctx.IndefiniteNode(packetName(tag), start, cur.Offset(), append([]byte(nil), body...))
		n.Meta = packetMeta(tag, "old")
		return n, nil
	}

	body, err := readBody(ctx, bodyLen)
	if err != nil {
		return nil, err
	}
	n := ctx.Node(packetName(tag), start, cur.Offset(), body)
	n.Meta = packetMeta(tag, "old")
	return n, nil
}

// decodeNewFormat handles new-format framing, including partial body
// lengths: a run of power-of-two chunks terminated by a definite-length
// final chunk, decoded as children of an indefinite-length packet node.
func decodeNewFormat(ctx *decode.Context, start int, tag byte) (*decode.Node, error) {
	cur := ctx.Cursor()

	bodyLen, partial, err := readNewLength(ctx)
	if err != nil {
		return nil, err
	}

	if !partial {
		body, err := readBody(ctx, bodyLen)
		if err != nil {
			return nil, err
		}
		n := ctx.Node(packetName(tag), start, cur.Offset(), body)
		n.Meta = packetMeta(tag, "new")
		return n, nil
	}

	var chunks []*decode.Node
	headerStart := start + 1 // first length octet follows the tag byte
	for {
		if err := ctx.Enter(headerStart); err != nil {
			return nil, err
		}
		body, err := readBody(ctx, bodyLen)
		ctx.Leave()
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, ctx.Node("chunk", headerStart, cur.Offset(), body))

		if !partial {
			break
		}
		headerStart = cur.Offset()
		bodyLen, partial, err = readNewLength(ctx)
		if err != nil {
			return nil, err
		}
	}

	n := ctx.IndefiniteNode(packetName(tag), start, cur.Offset(), chunks)
	n.Meta = packetMeta(tag, "new")
	return n, nil
}

// readNewLength decodes one new-format length header and reports whether it
// announces a partial body chunk.
func readNewLength(ctx *decode.Context) (uint64, bool, error) {
	cur := ctx.Cursor()
	first, err := cur.ReadU8()
	if err != nil {
		return 0, false, err
	}

	switch {
	case first <= oneOctetMax:
		return uint64(first), false, nil
	case first <= twoOctetLast:
		second, err := cur.ReadU8()
		if err != nil {
			return 0, false, err
		}
		return (uint64(first)-twoOctetFirst)<<8 + uint64(second) + twoOctetFirst, false, nil
	case first <= partialLast:
		return 1 << (first & 0x1f), true, nil
	default: // fiveOctetFirst
		n, err := cur.ReadUint(4, binary.BigEndian)
		if err != nil {
			return 0, false, err
		}
		return n, false, nil
	}
}

// readBody reads a declared body length and returns a copy of the body. A
// body shorter than declared is a read off the buffer end, reported as
// UnexpectedEnd with the shortfall.
func readBody(ctx *decode.Context, n uint64) ([]byte, error) {
	cur := ctx.Cursor()
	if n > uint64(cur.Remaining()) {
		return nil, decode.UnexpectedEndAt(cur.Offset(), int(n), cur.Remaining())
	}
	b, err := cur.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func packetName(tag byte) string {
	if name, ok := packetNames[tag]; ok {
		return name
	}
	return "packet"
}

func packetMeta(tag byte, format string) map[string]any {
	return map[string]any{"tag": uint64(tag), "format": format}
}
