// Package rule defines inference rules and the catalog the chaining loop
// draws them from.
package rule

import (
	"fmt"
	"strings"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/pattern"
	"github.com/cognicore/chainer/pkg/chainer/truth"
)

// Rule is a premise/conclusion template with a truth value.
// A meta rule's groundings instantiate Template into new concrete rules.
type Rule struct {
	Name        string
	TV          truth.Value
	Meta        bool
	Vars        atom.VarDecl
	Premises    []*atom.Atom
	Conclusions []*atom.Atom
	Template    *Rule
}

// Validate checks that the rule can be compiled into a matcher program.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: rule without a name", internalerr.ErrInvalidInput)
	}
	if len(r.Premises) == 0 {
		return fmt.Errorf("%w: rule %s has no premises", internalerr.ErrInvalidInput, r.Name)
	}
	if r.Meta {
		if r.Template == nil {
			return fmt.Errorf("%w: meta rule %s has no template", internalerr.ErrInvalidInput, r.Name)
		}
		if r.Template.Meta {
			return fmt.Errorf("%w: meta rule %s must produce a concrete rule", internalerr.ErrInvalidInput, r.Name)
		}
		return nil
	}
	if len(r.Conclusions) == 0 {
		return fmt.Errorf("%w: rule %s has no conclusions", internalerr.ErrInvalidInput, r.Name)
	}
	if _, err := pattern.Compile(r.Structure()); err != nil {
		return fmt.Errorf("rule %s: %w", r.Name, err)
	}
	return nil
}

// Query is the matcher view of the rule.
func (r *Rule) Query() pattern.Query {
	return pattern.Query{Vars: r.Vars, Clauses: r.Premises, Rewrite: r.Conclusions}
}

// Structure is the executable BindLink program of the rule.
func (r *Rule) Structure() *atom.Atom {
	return r.Query().Atom()
}

// Key is the structural identity of the rule. Rules with equal keys fire
// identically, whatever their names.
func (r *Rule) Key() string {
	var b strings.Builder
	if r.Meta {
		b.WriteString("meta:")
	}
	b.WriteString(r.Structure().Key())
	if r.Template != nil {
		b.WriteString("=>")
		b.WriteString(r.Template.Key())
	}
	return b.String()
}

// String is a short human readable rendering.
func (r *Rule) String() string {
	return fmt.Sprintf("%s %s", r.Name, r.TV)
}

// Substitute returns the variant of r specialised by b. Bound variables are
// dropped from the declaration; name, truth value and meta flag are kept.
func (r *Rule) Substitute(b pattern.Bindings) *Rule {
	out := &Rule{
		Name: r.Name,
		TV:   r.TV,
		Meta: r.Meta,
		Vars: r.Vars.Without(func(v *atom.Atom) bool {
			_, bound := b[v.Name]
			return bound
		}),
		Premises:    substituteAll(r.Premises, b),
		Conclusions: substituteAll(r.Conclusions, b),
	}
	if r.Template != nil {
		out.Template = r.Template.Substitute(b)
	}
	return out
}

func substituteAll(in []*atom.Atom, b pattern.Bindings) []*atom.Atom {
	out := make([]*atom.Atom, len(in))
	for i, a := range in {
		out[i] = pattern.Substitute(a, b)
	}
	return out
}

// UnifySource returns every variant of r obtained by unifying one of its
// premises with source. decl lists the variables of source that may be
// bound; they stay declared in the variants that mention them. An empty
// decl treats source as ground.
func (r *Rule) UnifySource(source *atom.Atom, decl atom.VarDecl) []*Rule {
	rr := r.renameApart(decl)
	isVar := pattern.Declared(rr.Vars, decl)

	var out []*Rule
	seen := make(map[string]struct{})
	for _, p := range rr.Premises {
		b, ok := pattern.Unify(p, source, isVar, pattern.Bindings{})
		if !ok {
			continue
		}
		// source variables are not the rule's to bind
		for _, v := range decl {
			delete(b, v.Name)
		}
		variant := rr.Substitute(b)
		variant.Vars = atom.NewVarDecl(append(variant.Vars, mentioned(variant, decl)...)...)
		if _, dup := seen[variant.Key()]; dup {
			continue
		}
		seen[variant.Key()] = struct{}{}
		out = append(out, variant)
	}
	return out
}

// mentioned returns the variables of decl that occur in r's premises.
func mentioned(r *Rule, decl atom.VarDecl) []*atom.Atom {
	var out []*atom.Atom
	for _, v := range decl {
		for _, p := range r.Premises {
			if atom.Contains(p, v) {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// renameApart renames rule variables that clash with decl.
func (r *Rule) renameApart(decl atom.VarDecl) *Rule {
	renames := pattern.Bindings{}
	for _, v := range r.Vars {
		if decl.Contains(v) {
			renames[v.Name] = atom.Variable(v.Name + "'" + r.Name)
		}
	}
	if len(renames) == 0 {
		return r
	}
	out := r.Substitute(renames)
	vars := make(atom.VarDecl, len(r.Vars))
	for i, v := range r.Vars {
		if nv, ok := renames[v.Name]; ok {
			vars[i] = nv
		} else {
			vars[i] = v
		}
	}
	out.Vars = vars
	return out
}
