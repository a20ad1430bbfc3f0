package pgp

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/skypro1111/binspect/internal/decode"
)

func decodePackets(t *testing.T, buf []byte) *decode.Node {
	t.Helper()
	root, _, err := decode.Run(New(), buf)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	packets := root.Children()
	if len(packets) == 0 {
		t.Fatal("Expected at least one packet")
	}
	return packets[0]
}

func TestDecodeOldFormat(t *testing.T) {
	tests := []struct {
		name         string
		buf          []byte
		expectedType string
		expectedTag  uint64
		expectedBody []byte
	}{
		{
			name:         "one-octet length",
			buf:          append([]byte{0xB4, 0x05}, []byte("hello")...),
			expectedType: "user-id",
			expectedTag:  13,
			expectedBody: []byte("hello"),
		},
		{
			name:         "two-octet length",
			buf:          append([]byte{0xB5, 0x01, 0x00}, bytes.Repeat([]byte{0xAA}, 256)...),
			expectedType: "user-id",
			expectedTag:  13,
			expectedBody: bytes.Repeat([]byte{0xAA}, 256),
		},
		{
			name:         "four-octet length",
			buf:          append([]byte{0xB6, 0x00, 0x00, 0x01, 0x00}, bytes.Repeat([]byte{0xBB}, 256)...),
			expectedType: "user-id",
			expectedTag:  13,
			expectedBody: bytes.Repeat([]byte{0xBB}, 256),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := decodePackets(t, tt.buf)
			if p.Type != tt.expectedType {
				t.Errorf("Expected type %q, got %q", tt.expectedType, p.Type)
			}
			if p.Meta["tag"] != tt.expectedTag {
				t.Errorf("Expected tag %d, got %v", tt.expectedTag, p.Meta["tag"])
			}
			if p.Meta["format"] != "old" {
				t.Errorf("Expected old format, got %v", p.Meta["format"])
			}
			if !reflect.DeepEqual(p.Value, tt.expectedBody) {
				t.Errorf("Body mismatch: got %d bytes", len(p.Value.([]byte)))
			}
			if p.Start != 0 || p.End != len(tt.buf) {
				t.Errorf("Expected range [0, %d], got [%d, %d]", len(tt.buf), p.Start, p.End)
			}
			if p.Indefinite {
				t.Error("Definite-length packet marked indefinite")
			}
		})
	}
}

func TestDecodeOldIndeterminate(t *testing.T) {
	// Length type 3: the body runs to the end of the buffer.
	buf := append([]byte{0xA7}, []byte("ciphertext")...) // tag 9, length type 3
	p := decodePackets(t, buf)

	if p.Type != "symmetrically-encrypted-data" {
		t.Errorf("Expected symmetrically-encrypted-data, got %q", p.Type)
	}
	if !p.Indefinite {
		t.Error("Indeterminate-length packet not marked indefinite")
	}
	if !reflect.DeepEqual(p.Value, []byte("ciphertext")) {
		t.Errorf("Body mismatch: %v", p.Value)
	}
	if p.End != len(buf) {
		t.Errorf("Expected end %d, got %d", len(buf), p.End)
	}
}

func TestDecodeNewFormat(t *testing.T) {
	tests := []struct {
		name     string
		buf      []byte
		bodyLen  int
		expected string
	}{
		{
			name:     "one-octet length",
			buf:      append([]byte{0xCB, 0x03}, []byte("abc")...),
			bodyLen:  3,
			expected: "literal-data",
		},
		{
			name:     "two-octet length lower bound",
			buf:      append([]byte{0xCB, 0xC0, 0x00}, bytes.Repeat([]byte{0x01}, 192)...),
			bodyLen:  192,
			expected: "literal-data",
		},
		{
			name:     "two-octet length upper bound",
			buf:      append([]byte{0xCB, 0xDF, 0xFF}, bytes.Repeat([]byte{0x02}, 8383)...),
			bodyLen:  8383,
			expected: "literal-data",
		},
		{
			name:     "five-octet length",
			buf:      append([]byte{0xCB, 0xFF, 0x00, 0x00, 0x01, 0x00}, bytes.Repeat([]byte{0x03}, 256)...),
			bodyLen:  256,
			expected: "literal-data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := decodePackets(t, tt.buf)
			if p.Type != tt.expected {
				t.Errorf("Expected type %q, got %q", tt.expected, p.Type)
			}
			if p.Meta["format"] != "new" {
				t.Errorf("Expected new format, got %v", p.Meta["format"])
			}
			if len(p.Value.([]byte)) != tt.bodyLen {
				t.Errorf("Expected %d body bytes, got %d", tt.bodyLen, len(p.Value.([]byte)))
			}
			if p.End != len(tt.buf) {
				t.Errorf("Expected end %d, got %d", len(tt.buf), p.End)
			}
		})
	}
}

func TestDecodePartialBodyLengths(t *testing.T) {
	// A 1-byte partial chunk (0xE0), then a definite 2-byte final chunk.
	buf := []byte{0xCB, 0xE0, 'a', 0x02, 'b', 'c'}

	root, stats, err := decode.Run(New(), buf)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}

	p := root.Children()[0]
	if !p.Indefinite {
		t.Error("Partial-length packet not marked indefinite")
	}
	chunks := p.Children()
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}

	// Each chunk's range covers its length header plus body.
	if chunks[0].Start != 1 || chunks[0].End != 3 {
		t.Errorf("Expected first chunk range [1, 3], got [%d, %d]", chunks[0].Start, chunks[0].End)
	}
	if chunks[1].Start != 3 || chunks[1].End != 6 {
		t.Errorf("Expected second chunk range [3, 6], got [%d, %d]", chunks[1].Start, chunks[1].End)
	}
	if !reflect.DeepEqual(chunks[0].Value, []byte("a")) {
		t.Errorf("First chunk body mismatch: %v", chunks[0].Value)
	}
	if !reflect.DeepEqual(chunks[1].Value, []byte("bc")) {
		t.Errorf("Second chunk body mismatch: %v", chunks[1].Value)
	}

	if stats.IndefiniteCount != 1 {
		t.Errorf("Expected 1 indefinite construct, got %d", stats.IndefiniteCount)
	}
	if stats.BytesConsumed != len(buf) {
		t.Errorf("Expected %d bytes consumed, got %d", len(buf), stats.BytesConsumed)
	}
}

func TestDecodePacketStream(t *testing.T) {
	// Two back-to-back packets decode into two children of the root.
	buf := append([]byte{0xB4, 0x03}, []byte("bob")...)
	buf = append(buf, 0xCB, 0x02, 'h', 'i')

	root, stats, err := decode.Run(New(), buf)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}

	packets := root.Children()
	if len(packets) != 2 {
		t.Fatalf("Expected 2 packets, got %d", len(packets))
	}
	if packets[0].Type != "user-id" || packets[1].Type != "literal-data" {
		t.Errorf("Unexpected packet types: %q, %q", packets[0].Type, packets[1].Type)
	}
	// Packet ranges tile the buffer with no gaps.
	if packets[0].End != packets[1].Start {
		t.Errorf("Expected adjacent packets, got end %d and start %d", packets[0].End, packets[1].Start)
	}
	if stats.BytesConsumed != len(buf) {
		t.Errorf("Expected %d bytes consumed, got %d", len(buf), stats.BytesConsumed)
	}
}

func TestDecodeUnassignedTag(t *testing.T) {
	// Tag 33 has no assigned name; it still decodes as a generic packet.
	buf := []byte{0xC0 | 33, 0x01, 0x00}
	p := decodePackets(t, buf)
	if p.Type != "packet" {
		t.Errorf("Expected generic packet type, got %q", p.Type)
	}
	if p.Meta["tag"] != uint64(33) {
		t.Errorf("Expected tag 33, got %v", p.Meta["tag"])
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		buf      []byte
		expected error
	}{
		{
			name:     "tag byte with bit 7 clear",
			buf:      []byte{0x34, 0x01, 0x00},
			expected: decode.ErrUnknownDiscriminator,
		},
		{
			name:     "old format body shorter than declared",
			buf:      []byte{0xB4, 0x05, 'h', 'i'},
			expected: decode.ErrUnexpectedEnd,
		},
		{
			name:     "new format body shorter than declared",
			buf:      []byte{0xCB, 0x10, 'h', 'i'},
			expected: decode.ErrUnexpectedEnd,
		},
		{
			name:     "truncated two-octet length",
			buf:      []byte{0xCB, 0xC0},
			expected: decode.ErrUnexpectedEnd,
		},
		{
			name:     "truncated five-octet length",
			buf:      []byte{0xCB, 0xFF, 0x00, 0x00},
			expected: decode.ErrUnexpectedEnd,
		},
		{
			name:     "partial chunk without final chunk",
			buf:      []byte{0xCB, 0xE0, 'a'},
			expected: decode.ErrUnexpectedEnd,
		},
		{
			name:     "partial chunk shorter than declared",
			buf:      []byte{0xCB, 0xE2, 'a', 'b'},
			expected: decode.ErrUnexpectedEnd,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decode.Run(New(), tt.buf)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestTruncationAlwaysFails(t *testing.T) {
	// Any strict prefix of a valid stream must fail with UnexpectedEnd.
	buf := append([]byte{0xB4, 0x05}, []byte("hello")...)
	for i := 1; i < len(buf); i++ {
		_, _, err := decode.Run(New(), buf[:i])
		if !errors.Is(err, decode.ErrUnexpectedEnd) {
			t.Errorf("Prefix of %d bytes: expected ErrUnexpectedEnd, got %v", i, err)
		}
	}
}
