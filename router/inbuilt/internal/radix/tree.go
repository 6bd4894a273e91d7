package radix

import (
	"errors"
	"strings"

	"github.com/indigo-web/tandem/kv"
)

var ErrMismatchingWildcards = errors.New(
	"having two different names for wildcards sharing common prefix isn't supported",
)

type Node[T any] struct {
	isLeaf       bool
	value        string
	dyn          *dynamicNode[T]
	predecessors []*Node[T]
	payload      T
}

type dynamicNode[T any] struct {
	isLeaf   bool
	next     *Node[T]
	wildcard string
	payload  T
}

func New[T any]() *Node[T] {
	return new(Node[T])
}

// Lookup finds the value of the path, adding matched wildcards into the storage. Static
// sections take precedence over wildcards.
func (n *Node[T]) Lookup(key string, wildcards *kv.Storage) (value T, found bool) {
	if len(key) == 0 {
		return n.payload, n.isLeaf
	}

	for _, p := range n.predecessors {
		if strings.HasPrefix(key, p.value) {
			if value, found = p.Lookup(key[len(p.value):], wildcards); found {
				return value, true
			}
		}
	}

	if n.dyn == nil {
		return value, false
	}

	segment, rest, _ := strings.Cut(key, "/")
	if len(segment) == 0 {
		return value, false
	}

	if len(rest) == 0 {
		if n.dyn.isLeaf {
			addWildcard(n.dyn.wildcard, segment, wildcards)
		}

		return n.dyn.payload, n.dyn.isLeaf
	}

	if n.dyn.next == nil {
		return value, false
	}

	if value, found = n.dyn.next.Lookup(rest, wildcards); found {
		addWildcard(n.dyn.wildcard, segment, wildcards)
	}

	return value, found
}

func addWildcard(wildcard, value string, into *kv.Storage) {
	if len(wildcard) > 0 && into != nil {
		into.Add(wildcard, value)
	}
}

// Insert adds the value by the template. Inserting by the same template twice
// overrides the value.
func (n *Node[T]) Insert(template Template, value T) error {
	return n.insert(template.split(), value)
}

func (n *Node[T]) insert(segs []pathSegment, value T) error {
	if len(segs) == 0 {
		n.isLeaf = true
		n.payload = value
		return nil
	}

	seg := segs[0]

	if seg.IsWildcard {
		if n.dyn == nil {
			n.dyn = &dynamicNode[T]{wildcard: seg.Value}
		}

		if n.dyn.wildcard != seg.Value {
			return ErrMismatchingWildcards
		}

		if len(segs) == 1 {
			n.dyn.isLeaf = true
			n.dyn.payload = value

			return nil
		}

		if n.dyn.next == nil {
			n.dyn.next = New[T]()
		}

		return n.dyn.next.insert(segs[1:], value)
	}

	for i, p := range n.predecessors {
		common := union(p.value, seg.Value)
		if len(common) == 0 {
			continue
		}

		if len(common) == len(p.value) {
			if len(common) == len(seg.Value) {
				return p.insert(segs[1:], value)
			}

			seg.Value = seg.Value[len(common):]
			segs[0] = seg

			return p.insert(segs, value)
		}

		// the common prefix is shorter than the node's value, so the node is split
		stays, goes := p.value[:len(common)], p.value[len(common):]
		substitution := &Node[T]{value: stays}
		p.value = goes
		substitution.predecessors = append(substitution.predecessors, p)
		n.predecessors[i] = substitution

		if len(common) == len(seg.Value) {
			return substitution.insert(segs[1:], value)
		}

		newNode := &Node[T]{value: seg.Value[len(common):]}
		substitution.predecessors = append(substitution.predecessors, newNode)
		return newNode.insert(segs[1:], value)
	}

	newNode := &Node[T]{value: seg.Value}
	n.predecessors = append(n.predecessors, newNode)

	return newNode.insert(segs[1:], value)
}

func union(a, b string) string {
	for i := 0; i < min(len(a), len(b)); i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}

	return a[:min(len(a), len(b))]
}

type pathSegment struct {
	IsWildcard bool
	Value      string
}
