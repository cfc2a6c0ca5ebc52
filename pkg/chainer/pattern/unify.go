package pattern

import (
	"github.com/cognicore/chainer/pkg/chainer/atom"
)

// Bindings maps variable names to the atoms they are bound to. Values are
// fully resolved: they never mention a bound variable.
type Bindings map[string]*atom.Atom

// Clone returns an independent copy of b.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Key is a stable rendering of the bindings, used for deduplication.
func (b Bindings) Key(order atom.VarDecl) string {
	key := ""
	for _, v := range order {
		if val, ok := b[v.Name]; ok {
			key += v.Name + "=" + val.Key() + ";"
		}
	}
	return key
}

// IsVarFunc reports whether an atom is a variable that may be bound.
type IsVarFunc func(*atom.Atom) bool

// Declared returns an IsVarFunc for the variables in the given declarations.
func Declared(decls ...atom.VarDecl) IsVarFunc {
	return func(a *atom.Atom) bool {
		if !a.IsVariable() {
			return false
		}
		for _, d := range decls {
			if d.Contains(a) {
				return true
			}
		}
		return false
	}
}

// Unify performs two-sided structural unification of x and y, extending b.
// Both sides may contain bindable variables. It returns resolved bindings.
func Unify(x, y *atom.Atom, isVar IsVarFunc, b Bindings) (Bindings, bool) {
	nb := b.Clone()
	if !unify(x, y, isVar, nb) {
		return nil, false
	}
	for k, v := range nb {
		nb[k] = resolve(v, isVar, nb)
	}
	return nb, true
}

func unify(x, y *atom.Atom, isVar IsVarFunc, b Bindings) bool {
	x = walk(x, isVar, b)
	y = walk(y, isVar, b)

	if atom.Equal(x, y) {
		return true
	}
	if isVar(x) {
		if occurs(x, y, isVar, b) {
			return false
		}
		b[x.Name] = y
		return true
	}
	if isVar(y) {
		if occurs(y, x, isVar, b) {
			return false
		}
		b[y.Name] = x
		return true
	}
	if x.Type != y.Type || x.IsNode() || y.IsNode() || len(x.Out) != len(y.Out) {
		return false
	}
	for i := range x.Out {
		if !unify(x.Out[i], y.Out[i], isVar, b) {
			return false
		}
	}
	return true
}

func walk(a *atom.Atom, isVar IsVarFunc, b Bindings) *atom.Atom {
	for isVar(a) {
		v, ok := b[a.Name]
		if !ok || atom.Equal(v, a) {
			break
		}
		a = v
	}
	return a
}

func occurs(v, a *atom.Atom, isVar IsVarFunc, b Bindings) bool {
	a = walk(a, isVar, b)
	if atom.Equal(v, a) {
		return true
	}
	for _, c := range a.Out {
		if occurs(v, c, isVar, b) {
			return true
		}
	}
	return false
}

// resolve substitutes bound variables transitively. Termination relies on
// the occurs check in unify.
func resolve(a *atom.Atom, isVar IsVarFunc, b Bindings) *atom.Atom {
	a = walk(a, isVar, b)
	if !a.IsLink() || len(a.Out) == 0 {
		return a
	}
	changed := false
	out := make([]*atom.Atom, len(a.Out))
	for i, c := range a.Out {
		out[i] = resolve(c, isVar, b)
		if out[i] != c {
			changed = true
		}
	}
	if !changed {
		return a
	}
	n := atom.NewLink(a.Type, out...)
	n.TV = a.TV
	return n
}

// Match is one-sided matching: only variables in pat for which isVar is
// true may be bound; cand is treated as a constant even if it contains
// variables. A variable is never grounded by itself.
func Match(pat, cand *atom.Atom, isVar IsVarFunc, b Bindings) (Bindings, bool) {
	nb := b.Clone()
	if !match(pat, cand, isVar, nb) {
		return nil, false
	}
	return nb, true
}

func match(pat, cand *atom.Atom, isVar IsVarFunc, b Bindings) bool {
	if isVar(pat) {
		if bound, ok := b[pat.Name]; ok {
			return atom.Equal(bound, cand)
		}
		if atom.Equal(pat, cand) {
			return false
		}
		b[pat.Name] = cand
		return true
	}
	if pat.Type != cand.Type {
		return false
	}
	if pat.IsNode() {
		return pat.Name == cand.Name
	}
	if len(pat.Out) != len(cand.Out) {
		return false
	}
	for i := range pat.Out {
		if !match(pat.Out[i], cand.Out[i], isVar, b) {
			return false
		}
	}
	return true
}

// Substitute replaces every variable bound in b by its value. Values are
// inserted verbatim. The template's truth value is kept on the result.
func Substitute(a *atom.Atom, b Bindings) *atom.Atom {
	if len(b) == 0 {
		return a
	}
	if a.IsVariable() {
		if v, ok := b[a.Name]; ok {
			return v
		}
		return a
	}
	if !a.IsLink() || len(a.Out) == 0 {
		return a
	}
	changed := false
	out := make([]*atom.Atom, len(a.Out))
	for i, c := range a.Out {
		out[i] = Substitute(c, b)
		if out[i] != c {
			changed = true
		}
	}
	if !changed {
		return a
	}
	n := atom.NewLink(a.Type, out...)
	n.TV = a.TV
	return n
}

// IsGround reports whether a contains no variable accepted by isVar.
func IsGround(a *atom.Atom, isVar IsVarFunc) bool {
	if isVar(a) {
		return false
	}
	for _, c := range a.Out {
		if !IsGround(c, isVar) {
			return false
		}
	}
	return true
}
