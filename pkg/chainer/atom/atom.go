// Package atom is the fact model shared by the store, the matcher and the
// chaining loop. An atom is either a node (type + name) or a link (type +
// ordered outgoing atoms). Structural identity ignores truth values.
package atom

import (
	"strconv"
	"strings"

	"github.com/cognicore/chainer/pkg/chainer/truth"
)

// Type names an atom type. Types ending in "Node" are nodes, types ending in
// "Link" are links.
type Type string

// Common atom types. Any other Type ending in Node or Link is accepted.
const (
	ConceptNode   Type = "ConceptNode"
	PredicateNode Type = "PredicateNode"
	VariableNode  Type = "VariableNode"
	NumberNode    Type = "NumberNode"

	ListLink        Type = "ListLink"
	SetLink         Type = "SetLink"
	AndLink         Type = "AndLink"
	InheritanceLink Type = "InheritanceLink"
	EvaluationLink  Type = "EvaluationLink"
	ImplicationLink Type = "ImplicationLink"
	MemberLink      Type = "MemberLink"
	SimilarityLink  Type = "SimilarityLink"
	VariableList    Type = "VariableList"
	BindLink        Type = "BindLink"
)

// IsNode reports whether t names a node type.
func (t Type) IsNode() bool { return strings.HasSuffix(string(t), "Node") }

// IsLink reports whether t names a link type.
func (t Type) IsLink() bool { return strings.HasSuffix(string(t), "Link") || t == VariableList }

// Atom is a node or a link. Atoms are treated as immutable once built,
// except for TV which a store may merge on re-insertion.
type Atom struct {
	Type Type
	Name string
	Out  []*Atom
	TV   truth.Value

	key string
}

// NewNode creates a node atom with the default truth value
func NewNode(t Type, name string) *Atom {
	a := &Atom{Type: t, Name: name, TV: truth.Default}
	a.key = computeKey(a)
	return a
}

// NewLink creates a link atom with the default truth value
func NewLink(t Type, out ...*Atom) *Atom {
	cp := make([]*Atom, len(out))
	copy(cp, out)
	a := &Atom{Type: t, Out: cp, TV: truth.Default}
	a.key = computeKey(a)
	return a
}

// Concept is shorthand for NewNode(ConceptNode, name).
func Concept(name string) *Atom { return NewNode(ConceptNode, name) }

// Variable is shorthand for NewNode(VariableNode, name).
func Variable(name string) *Atom { return NewNode(VariableNode, name) }

// List is shorthand for NewLink(ListLink, out...).
func List(out ...*Atom) *Atom { return NewLink(ListLink, out...) }

// Set is shorthand for NewLink(SetLink, out...).
func Set(out ...*Atom) *Atom { return NewLink(SetLink, out...) }

// WithTV returns a shallow copy of a carrying tv.
func (a *Atom) WithTV(tv truth.Value) *Atom {
	cp := *a
	cp.TV = tv
	return &cp
}

// IsNode reports whether a is a node.
func (a *Atom) IsNode() bool { return a.Type.IsNode() }

// IsLink reports whether a is a link.
func (a *Atom) IsLink() bool { return a.Type.IsLink() }

// IsVariable reports whether a is a variable node.
func (a *Atom) IsVariable() bool { return a.Type == VariableNode }

// Key is the structural identity of the atom. Two atoms with the same key
// are the same fact.
func (a *Atom) Key() string {
	if a == nil {
		return ""
	}
	if a.key != "" {
		return a.key
	}
	return computeKey(a)
}

// String renders the atom as an s-expression, including a non-default TV.
func (a *Atom) String() string {
	var b strings.Builder
	write(&b, a, true)
	return b.String()
}

// Equal reports structural equality.
func Equal(a, b *Atom) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a == b || a.Key() == b.Key()
}

// Children returns the outgoing set of a link, nil for nodes.
func Children(a *Atom) []*Atom {
	if a == nil || !a.IsLink() {
		return nil
	}
	return a.Out
}

// IsClosed reports whether a contains no variable nodes.
func IsClosed(a *Atom) bool {
	if a.IsVariable() {
		return false
	}
	for _, c := range a.Out {
		if !IsClosed(c) {
			return false
		}
	}
	return true
}

// Variables returns the distinct variable nodes in a, in first-occurrence order.
func Variables(a *Atom) []*Atom {
	var out []*Atom
	seen := make(map[string]struct{})
	var walk func(*Atom)
	walk = func(x *Atom) {
		if x.IsVariable() {
			if _, ok := seen[x.Key()]; !ok {
				seen[x.Key()] = struct{}{}
				out = append(out, x)
			}
			return
		}
		for _, c := range x.Out {
			walk(c)
		}
	}
	walk(a)
	return out
}

// Contains reports whether needle occurs anywhere inside a (a included).
func Contains(a, needle *Atom) bool {
	if Equal(a, needle) {
		return true
	}
	for _, c := range a.Out {
		if Contains(c, needle) {
			return true
		}
	}
	return false
}

func computeKey(a *Atom) string {
	var b strings.Builder
	write(&b, a, false)
	return b.String()
}

func write(b *strings.Builder, a *Atom, withTV bool) {
	b.WriteByte('(')
	b.WriteString(string(a.Type))
	if a.IsNode() {
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(a.Name))
	}
	if withTV && !a.TV.IsDefault() {
		b.WriteByte(' ')
		b.WriteString(a.TV.String())
	}
	for _, c := range a.Out {
		b.WriteByte(' ')
		write(b, c, withTV)
	}
	b.WriteByte(')')
}
