package forward

import (
	"context"
	"errors"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/pattern"
	"github.com/cognicore/chainer/pkg/chainer/rule"
	"github.com/cognicore/chainer/pkg/chainer/truth"
)

func inh(a, b string) *atom.Atom {
	return atom.NewLink(atom.InheritanceLink, atom.Concept(a), atom.Concept(b))
}

func sim(a, b string) *atom.Atom {
	return atom.NewLink(atom.SimilarityLink, atom.Concept(a), atom.Concept(b))
}

func deductionRule() *rule.Rule {
	a, b, c := atom.Variable("$A"), atom.Variable("$B"), atom.Variable("$C")
	link := func(x, y *atom.Atom) *atom.Atom { return atom.NewLink(atom.InheritanceLink, x, y) }
	return &rule.Rule{
		Name:        "deduction",
		TV:          truth.New(0.9, 0.9),
		Vars:        atom.NewVarDecl(a, b, c),
		Premises:    []*atom.Atom{link(a, b), link(b, c)},
		Conclusions: []*atom.Atom{link(a, c)},
	}
}

func symmetryRule() *rule.Rule {
	x, y := atom.Variable("$X"), atom.Variable("$Y")
	link := func(p, q *atom.Atom) *atom.Atom { return atom.NewLink(atom.SimilarityLink, p, q) }
	return &rule.Rule{
		Name:        "symmetry",
		TV:          truth.New(1, 0.9),
		Vars:        atom.NewVarDecl(x, y),
		Premises:    []*atom.Atom{link(x, y)},
		Conclusions: []*atom.Atom{link(y, x)},
	}
}

func seeded(mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	if mutate != nil {
		mutate(&cfg)
	}
	return &cfg
}

// failingMatcher errors or panics on every call and counts them.
type failingMatcher struct {
	panics bool
	calls  int
}

func (m *failingMatcher) Execute(context.Context, pattern.Request) (*atom.Atom, error) {
	m.calls++
	if m.panics {
		panic("matcher exploded")
	}
	return nil, errors.New("matcher unavailable")
}

// countingExpander records how often the pool was found exhausted.
type countingExpander struct {
	calls int
}

func (c *countingExpander) Expand(*State) int {
	c.calls++
	return 0
}
