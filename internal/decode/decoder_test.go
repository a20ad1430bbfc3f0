package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

// nestGrammar decodes a toy recursive format for engine tests: byte 0x01
// opens a nested container whose children run until a 0x00 sentinel, any
// other byte is a leaf holding its own value.
type nestGrammar struct{}

func (nestGrammar) Name() string { return "nest" }

func (g nestGrammar) Decode(ctx *Context) (*Node, error) {
	return g.item(ctx)
}

func (g nestGrammar) item(ctx *Context) (*Node, error) {
	cur := ctx.Cursor()
	start := cur.Offset()

	if err := ctx.Enter(start); err != nil {
		return nil, err
	}
	defer ctx.Leave()

	b, err := cur.ReadU8()
	if err != nil {
		return nil, err
	}
	if b != 0x01 {
		return ctx.Node("leaf", start, cur.Offset(), uint64(b)), nil
	}
	return ctx.ReadSequence(FieldSpec{
		Name:       "container",
		Kind:       NestedSequence,
		Terminator: 0x00,
	}, start, g.item)
}

// nested returns a buffer opening depth containers around a single leaf.
func nested(depth int) []byte {
	var buf bytes.Buffer
	for i := 0; i < depth; i++ {
		buf.WriteByte(0x01)
	}
	buf.WriteByte(0x02)
	for i := 0; i < depth; i++ {
		buf.WriteByte(0x00)
	}
	return buf.Bytes()
}

func TestRunDepthGuard(t *testing.T) {
	tests := []struct {
		name        string
		depth       int
		opts        []Option
		expectError bool
	}{
		{
			name:  "within default cap",
			depth: 10,
		},
		{
			name:  "at the default cap",
			depth: DefaultMaxDepth - 1, // plus the leaf
		},
		{
			name:        "beyond the default cap",
			depth:       100,
			expectError: true,
		},
		{
			name:        "beyond a lowered cap",
			depth:       5,
			opts:        []Option{WithMaxDepth(3)},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stats, err := Run(nestGrammar{}, nested(tt.depth), tt.opts...)

			if tt.expectError {
				if !errors.Is(err, ErrRecursionLimit) {
					t.Errorf("Expected ErrRecursionLimit, got %v", err)
				}
			} else {
				if err != nil {
					t.Fatalf("Expected no error but got: %v", err)
				}
				if stats.MaxDepth != tt.depth+1 {
					t.Errorf("Expected max depth %d, got %d", tt.depth+1, stats.MaxDepth)
				}
			}
		})
	}
}

func TestRunStats(t *testing.T) {
	// Two containers, three leaves: 01 02 01 03 00 04 00
	buf := []byte{0x01, 0x02, 0x01, 0x03, 0x00, 0x04, 0x00}

	root, stats, err := Run(nestGrammar{}, buf)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}

	if root.Type != "container" {
		t.Errorf("Expected container root, got %q", root.Type)
	}
	if stats.TypeCounts["container"] != 2 {
		t.Errorf("Expected 2 containers, got %d", stats.TypeCounts["container"])
	}
	if stats.TypeCounts["leaf"] != 3 {
		t.Errorf("Expected 3 leaves, got %d", stats.TypeCounts["leaf"])
	}
	if stats.IndefiniteCount != 2 {
		t.Errorf("Expected 2 indefinite constructs, got %d", stats.IndefiniteCount)
	}
	if stats.MaxDepth != 3 {
		t.Errorf("Expected max depth 3, got %d", stats.MaxDepth)
	}
	if stats.BytesConsumed != len(buf) {
		t.Errorf("Expected %d bytes consumed, got %d", len(buf), stats.BytesConsumed)
	}
	if stats.TotalNodes() != 5 {
		t.Errorf("Expected 5 nodes, got %d", stats.TotalNodes())
	}
}

func TestRunDeterminism(t *testing.T) {
	buf := nested(12)

	root1, stats1, err1 := Run(nestGrammar{}, buf)
	root2, stats2, err2 := Run(nestGrammar{}, buf)

	if err1 != nil || err2 != nil {
		t.Fatalf("Expected no errors but got: %v, %v", err1, err2)
	}
	if !reflect.DeepEqual(root1, root2) {
		t.Errorf("Two decodes of the same buffer produced different trees")
	}
	if !reflect.DeepEqual(stats1, stats2) {
		t.Errorf("Two decodes of the same buffer produced different stats")
	}
}

func TestRunMissingTerminator(t *testing.T) {
	// Container opened, leaf decoded, buffer ends before the sentinel.
	_, _, err := Run(nestGrammar{}, []byte{0x01, 0x02})
	if !errors.Is(err, ErrUnexpectedEnd) {
		t.Errorf("Expected ErrUnexpectedEnd, got %v", err)
	}
}

func TestReadField(t *testing.T) {
	tests := []struct {
		name        string
		buf         []byte
		spec        FieldSpec
		expected    any
		expectError error
	}{
		{
			name:     "fixed u16 big endian",
			buf:      []byte{0x01, 0x00},
			spec:     FieldSpec{Name: "count", Kind: FixedInt, Width: 2, Order: binary.BigEndian},
			expected: uint64(256),
		},
		{
			name:     "fixed s8 negative",
			buf:      []byte{0xFF},
			spec:     FieldSpec{Name: "delta", Kind: FixedInt, Width: 1, Signed: true, Order: binary.BigEndian},
			expected: int64(-1),
		},
		{
			name:     "fixed s16 little endian",
			buf:      []byte{0x00, 0x80},
			spec:     FieldSpec{Name: "delta", Kind: FixedInt, Width: 2, Signed: true, Order: binary.LittleEndian},
			expected: int64(-32768),
		},
		{
			name:     "tag",
			buf:      []byte{0x00, 0x2A},
			spec:     FieldSpec{Name: "magic", Kind: Tag, Width: 2, Order: binary.BigEndian},
			expected: uint64(42),
		},
		{
			name:     "length prefixed bytes",
			buf:      []byte{0x03, 0xAA, 0xBB, 0xCC},
			spec:     FieldSpec{Name: "blob", Kind: LengthPrefixedBytes, LengthWidth: 1, Order: binary.BigEndian},
			expected: []byte{0xAA, 0xBB, 0xCC},
		},
		{
			name:        "length prefix exceeds buffer",
			buf:         []byte{0x05, 0xAA},
			spec:        FieldSpec{Name: "blob", Kind: LengthPrefixedBytes, LengthWidth: 1, Order: binary.BigEndian},
			expectError: ErrUnexpectedEnd,
		},
		{
			name:        "truncated integer",
			buf:         []byte{0x01},
			spec:        FieldSpec{Name: "count", Kind: FixedInt, Width: 4, Order: binary.BigEndian},
			expectError: ErrUnexpectedEnd,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &Context{cur: NewCursor(tt.buf), stats: newStats(), maxDepth: DefaultMaxDepth}
			node, err := ctx.ReadField(tt.spec)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("Expected %v, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if node.Type != tt.spec.Name {
				t.Errorf("Expected type %q, got %q", tt.spec.Name, node.Type)
			}
			if !reflect.DeepEqual(node.Value, tt.expected) {
				t.Errorf("Expected value %v, got %v", tt.expected, node.Value)
			}
			if node.Start != 0 || node.End != len(tt.buf) {
				t.Errorf("Expected range [0, %d], got [%d, %d]", len(tt.buf), node.Start, node.End)
			}
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	err := UnexpectedEndAt(17, 4, 1)

	if !errors.Is(err, ErrUnexpectedEnd) {
		t.Errorf("Expected ErrUnexpectedEnd match")
	}
	if OffsetOf(err) != 17 {
		t.Errorf("Expected offset 17, got %d", OffsetOf(err))
	}
	if KindName(err) != "unexpected_end" {
		t.Errorf("Expected kind unexpected_end, got %q", KindName(err))
	}
	if KindName(errors.New("boom")) != "internal" {
		t.Errorf("Expected unrecognized errors to map to internal")
	}
}
