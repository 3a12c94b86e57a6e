package fingerprint

import (
	"sort"

	"github.com/bellwether-dev/bellwether/canon"
)

// maxShapeDepth bounds the recursive structure traversal; nodes beyond this
// depth collapse to a generic "primitive" leaf.
const maxShapeDepth = 10

// shapeNode is the tagged-variant tree used to summarize the structure of a
// decoded response value: kind, sorted object keys, and (for arrays) the
// item kind. It is canonicalized and hashed (via canon.Hash) to produce a
// stable structureHash, the same content-addressing primitive the baseline
// hash and schema hashes use.
type shapeNode struct {
	Kind     string       `json:"kind"`
	Keys     []string     `json:"keys,omitempty"`
	Children []*shapeNode `json:"children,omitempty"`
	Item     *shapeNode   `json:"item,omitempty"`
}

func buildShape(v any, depth int) *shapeNode {
	if depth > maxShapeDepth {
		return &shapeNode{Kind: "primitive"}
	}
	switch val := v.(type) {
	case nil:
		return &shapeNode{Kind: "null"}
	case map[string]any:
		keys := make([]string, 0, len(val))
		children := make([]*shapeNode, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			children = append(children, buildShape(val[k], depth+1))
		}
		return &shapeNode{Kind: "object", Keys: keys, Children: children}
	case []any:
		if len(val) == 0 {
			return &shapeNode{Kind: "array", Item: &shapeNode{Kind: "empty"}}
		}
		return &shapeNode{Kind: "array", Item: buildShape(val[0], depth+1)}
	case bool:
		return &shapeNode{Kind: "boolean"}
	case string:
		return &shapeNode{Kind: "string"}
	case float64:
		return &shapeNode{Kind: "number"}
	case int, int64:
		return &shapeNode{Kind: "number"}
	default:
		return &shapeNode{Kind: "primitive"}
	}
}

func hashShape(n *shapeNode) string {
	h, err := canon.Hash(n)
	if err != nil {
		// A shape node is built entirely from finite, canonicalizable
		// primitives; Hash cannot fail here.
		return ""
	}
	return h
}
