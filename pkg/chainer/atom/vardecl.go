package atom

import "strings"

// VarDecl is an ordered set of variables that may be bound during
// unification. An empty VarDecl means the atom is treated as fully ground.
type VarDecl []*Atom

// NewVarDecl builds a declaration, dropping non-variables and duplicates.
func NewVarDecl(vars ...*Atom) VarDecl {
	var d VarDecl
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if v == nil || !v.IsVariable() {
			continue
		}
		if _, ok := seen[v.Key()]; ok {
			continue
		}
		seen[v.Key()] = struct{}{}
		d = append(d, v)
	}
	return d
}

// Contains reports whether v is declared.
func (d VarDecl) Contains(v *Atom) bool {
	if v == nil || !v.IsVariable() {
		return false
	}
	for _, x := range d {
		if x.Name == v.Name {
			return true
		}
	}
	return false
}

// Without returns d minus the variables for which drop returns true.
func (d VarDecl) Without(drop func(*Atom) bool) VarDecl {
	var out VarDecl
	for _, v := range d {
		if !drop(v) {
			out = append(out, v)
		}
	}
	return out
}

// Atom renders the declaration as a VariableList link.
func (d VarDecl) Atom() *Atom {
	return NewLink(VariableList, d...)
}

// Key is the structural identity of the declaration.
func (d VarDecl) Key() string {
	names := make([]string, len(d))
	for i, v := range d {
		names[i] = v.Name
	}
	return strings.Join(names, ",")
}
