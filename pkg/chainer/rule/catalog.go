package rule

import (
	"context"
	"fmt"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/pattern"
	"github.com/cognicore/chainer/pkg/chainer/store"
)

// Catalog is the rule base of an engine. It only grows; adding a rule whose
// key is already present is a no-op.
type Catalog struct {
	set Set
}

// NewCatalog validates and adds rules in order.
func NewCatalog(rules ...*Rule) (*Catalog, error) {
	c := &Catalog{}
	for _, r := range rules {
		if _, err := c.Add(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add validates r and appends it. It reports whether r was new.
func (c *Catalog) Add(r *Rule) (bool, error) {
	if r == nil {
		return false, fmt.Errorf("%w: nil rule", internalerr.ErrInvalidInput)
	}
	if err := r.Validate(); err != nil {
		return false, err
	}
	return c.set.Add(r), nil
}

// Rules returns every rule, meta or not, in insertion order.
func (c *Catalog) Rules() []*Rule { return c.set.Rules() }

// Len returns the number of rules.
func (c *Catalog) Len() int { return c.set.Len() }

// Lookup returns the first rule with the given name.
func (c *Catalog) Lookup(name string) (*Rule, bool) {
	for _, r := range c.set.rules {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// MetaRules returns the meta rules in insertion order.
func (c *Catalog) MetaRules() []*Rule {
	var out []*Rule
	for _, r := range c.set.rules {
		if r.Meta {
			out = append(out, r)
		}
	}
	return out
}

// ExpandMetaRules grounds every meta rule against st and adds the rules
// their templates instantiate to. Returns how many rules were new.
func (c *Catalog) ExpandMetaRules(ctx context.Context, st store.Store, m pattern.Matcher) (int, error) {
	added := 0
	for _, meta := range c.MetaRules() {
		instances, err := Instantiate(ctx, meta, st, m)
		if err != nil {
			return added, fmt.Errorf("expand %s: %w", meta.Name, err)
		}
		for _, r := range instances {
			ok, err := c.Add(r)
			if err != nil {
				// an instance that does not compile is skipped, not fatal
				continue
			}
			if ok {
				added++
			}
		}
	}
	return added, nil
}

// Instantiate returns the concrete rules one meta rule grounds to in st.
func Instantiate(ctx context.Context, meta *Rule, st store.Store, m pattern.Matcher) ([]*Rule, error) {
	if !meta.Meta || meta.Template == nil {
		return nil, fmt.Errorf("%w: %s is not a meta rule", internalerr.ErrInvalidInput, meta.Name)
	}

	// Only variables some premise mentions can be grounded.
	var vars atom.VarDecl
	for _, v := range meta.Vars {
		for _, p := range meta.Premises {
			if atom.Contains(p, v) {
				vars = append(vars, v)
				break
			}
		}
	}

	// Each grounding comes back as a ListLink of values in vars order.
	program := pattern.Query{
		Vars:    meta.Vars,
		Clauses: meta.Premises,
		Rewrite: []*atom.Atom{atom.List(vars...)},
	}.Atom()
	res, err := m.Execute(ctx, pattern.Request{Mode: pattern.ModeGlobal, Program: program, Scope: st})
	if err != nil {
		return nil, err
	}

	var out []*Rule
	for _, row := range res.Out {
		if row.Type != atom.ListLink || len(row.Out) != len(vars) {
			continue
		}
		b := make(pattern.Bindings, len(vars))
		for i, v := range vars {
			b[v.Name] = row.Out[i]
		}
		r := meta.Template.Substitute(b)
		r.Vars = r.Vars.Without(func(v *atom.Atom) bool { return meta.Vars.Contains(v) })
		if r.Name == "" {
			r.Name = meta.Name
		}
		out = append(out, r)
	}
	return out, nil
}
