package decode

import (
	"encoding/hex"
	"encoding/json"
)

// Node is one decoded element of the output tree. Start and End delimit the
// half-open byte range [Start, End) the node occupies in the source buffer.
// Value holds a scalar (unsigned or signed integer, float, bool), a text
// string, a byte string, an ordered list of child nodes, or nil. Nodes are
// created during decode and immutable afterwards; the caller owns the tree.
type Node struct {
	Type       string
	Start, End int
	Value      any
	Indefinite bool
	Meta       map[string]any
}

// Children returns the child node list, or nil for leaf nodes.
func (n *Node) Children() []*Node {
	if c, ok := n.Value.([]*Node); ok {
		return c
	}
	return nil
}

// nodeJSON is the serialized shape: {"type", "range": [start, end], "value"}.
type nodeJSON struct {
	Type       string         `json:"type"`
	Range      [2]int         `json:"range"`
	Value      any            `json:"value"`
	Indefinite bool           `json:"indefinite,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// MarshalJSON serializes the node with byte strings hex-encoded and child
// nodes as a JSON array.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		Type:       n.Type,
		Range:      [2]int{n.Start, n.End},
		Value:      n.JSONValue(),
		Indefinite: n.Indefinite,
		Meta:       n.Meta,
	})
}

// JSONValue converts the node value into its JSON representation: byte
// strings become lowercase hex, child lists marshal recursively, scalars
// pass through unchanged.
func (n *Node) JSONValue() any {
	switch v := n.Value.(type) {
	case []byte:
		return hex.EncodeToString(v)
	default:
		return v
	}
}
