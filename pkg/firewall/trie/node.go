package trie

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"reflect"
	"sort"

	"newnan/cbfirewall/pkg/firewall/validate"
)

// Node is one node of the command trie.
//
// Children are keyed by the exact (lowercase) token. A node is accepting when
// it ends a rule or carries a validator. Node is not safe for concurrent
// mutation; the owning Trie serializes access.
type Node struct {
	children  map[string]*Node
	end       bool
	validator validate.Validator
	metadata  map[string]any
	depth     int
}

// NewNode creates an empty node at the given depth.
func NewNode(depth int) *Node {
	return &Node{
		children: make(map[string]*Node),
		depth:    depth,
	}
}

// AddChild returns the child for token, creating it at depth+1 if missing.
func (n *Node) AddChild(token string) *Node {
	if child, ok := n.children[token]; ok {
		return child
	}
	child := NewNode(n.depth + 1)
	n.children[token] = child
	return child
}

// Child returns the child for token, or nil.
func (n *Node) Child(token string) *Node {
	return n.children[token]
}

// HasChild reports whether a child exists for token.
func (n *Node) HasChild(token string) bool {
	_, ok := n.children[token]
	return ok
}

// RemoveChild deletes the child for token and reports whether it existed.
func (n *Node) RemoveChild(token string) bool {
	if _, ok := n.children[token]; !ok {
		return false
	}
	delete(n.children, token)
	return true
}

// ChildTokens returns the child keys in sorted order.
func (n *Node) ChildTokens() []string {
	tokens := make([]string, 0, len(n.children))
	for tok := range n.children {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// Depth returns the distance from the root.
func (n *Node) Depth() int { return n.depth }

// IsEnd reports whether a rule ends at this node.
func (n *Node) IsEnd() bool { return n.end }

// SetEnd marks or unmarks the node as the end of a rule.
func (n *Node) SetEnd(end bool) { n.end = end }

// Validator returns the attached validator, or nil.
func (n *Node) Validator() validate.Validator { return n.validator }

// SetValidator attaches v; nil detaches.
func (n *Node) SetValidator(v validate.Validator) { n.validator = v }

// IsAccepting reports whether the node ends a rule or carries a validator.
func (n *Node) IsAccepting() bool { return n.end || n.validator != nil }

// SetMetadata stores a metadata value.
func (n *Node) SetMetadata(key string, value any) {
	if n.metadata == nil {
		n.metadata = make(map[string]any)
	}
	n.metadata[key] = value
}

// Metadata returns a metadata value.
func (n *Node) Metadata(key string) (any, bool) {
	v, ok := n.metadata[key]
	return v, ok
}

// MetadataMap returns a copy of all metadata.
func (n *Node) MetadataMap() map[string]any {
	out := make(map[string]any, len(n.metadata))
	for k, v := range n.metadata {
		out[k] = v
	}
	return out
}

// MetadataAs returns a metadata value asserted to T.
func MetadataAs[T any](n *Node, key string) (T, bool) {
	var zero T
	v, ok := n.metadata[key]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// SubtreeSize counts this node and all its descendants.
func (n *Node) SubtreeSize() int {
	size := 1
	for _, child := range n.children {
		size += child.SubtreeSize()
	}
	return size
}

// Clear removes children, the end marker, the validator and metadata.
func (n *Node) Clear() {
	n.children = make(map[string]*Node)
	n.clearTerminal()
}

func (n *Node) clearTerminal() {
	n.end = false
	n.validator = nil
	n.metadata = nil
}

// DeepCopy clones the subtree. Validators are shared, not cloned.
func (n *Node) DeepCopy() *Node {
	cp := NewNode(n.depth)
	cp.end = n.end
	cp.validator = n.validator
	if n.metadata != nil {
		cp.metadata = n.MetadataMap()
	}
	for tok, child := range n.children {
		cp.children[tok] = child.DeepCopy()
	}
	return cp
}

// Equal reports structural equality: same end flags, depths, validators and
// children. Metadata is not compared.
func (n *Node) Equal(o *Node) bool {
	if n == o {
		return true
	}
	if n == nil || o == nil {
		return false
	}
	if n.end != o.end || n.depth != o.depth || len(n.children) != len(o.children) {
		return false
	}
	if !sameValidator(n.validator, o.validator) {
		return false
	}
	for tok, child := range n.children {
		other, ok := o.children[tok]
		if !ok || !child.Equal(other) {
			return false
		}
	}
	return true
}

// Hash returns a structural hash consistent with Equal.
func (n *Node) Hash() uint64 {
	h := fnv.New64a()
	n.hashInto(h)
	return h.Sum64()
}

func (n *Node) hashInto(h io.Writer) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n.depth))
	h.Write(buf[:])
	if n.end {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	if n.validator != nil {
		h.Write([]byte(n.validator.Name()))
	}
	for _, tok := range n.ChildTokens() {
		h.Write([]byte(tok))
		h.Write([]byte{0})
		n.children[tok].hashInto(h)
	}
}

func sameValidator(a, b validate.Validator) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return a.Name() == b.Name() && a.Description() == b.Description()
}
