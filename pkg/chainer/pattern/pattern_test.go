package pattern

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/store/memstore"
)

func inh(a, b *atom.Atom) *atom.Atom {
	return atom.NewLink(atom.InheritanceLink, a, b)
}

func c(name string) *atom.Atom { return atom.Concept(name) }
func v(name string) *atom.Atom { return atom.Variable(name) }

func deduction() Query {
	return Query{
		Vars: atom.NewVarDecl(v("$A"), v("$B"), v("$C")),
		Clauses: []*atom.Atom{
			inh(v("$A"), v("$B")),
			inh(v("$B"), v("$C")),
		},
		Rewrite: []*atom.Atom{inh(v("$A"), v("$C"))},
	}
}

func TestUnify_TwoSided(t *testing.T) {
	isVar := Declared(atom.NewVarDecl(v("$X"), v("$Y")))

	b, ok := Unify(inh(v("$X"), c("animal")), inh(c("cat"), v("$Y")), isVar, Bindings{})
	require.True(t, ok)
	assert.True(t, atom.Equal(b["$X"], c("cat")))
	assert.True(t, atom.Equal(b["$Y"], c("animal")))
}

func TestUnify_ResolvesChains(t *testing.T) {
	isVar := Declared(atom.NewVarDecl(v("$X"), v("$Y")))

	b, ok := Unify(
		atom.List(v("$X"), v("$Y")),
		atom.List(v("$Y"), c("cat")),
		isVar, Bindings{},
	)
	require.True(t, ok)
	assert.True(t, atom.Equal(b["$X"], c("cat")), "got %s", b["$X"])
	assert.True(t, atom.Equal(b["$Y"], c("cat")))
}

func TestUnify_OccursCheck(t *testing.T) {
	isVar := Declared(atom.NewVarDecl(v("$X")))
	_, ok := Unify(v("$X"), atom.List(v("$X")), isVar, Bindings{})
	assert.False(t, ok)
}

func TestUnify_UndeclaredVariablesAreConstants(t *testing.T) {
	isVar := Declared(atom.NewVarDecl(v("$X")))
	_, ok := Unify(inh(v("$Z"), c("a")), inh(c("cat"), c("a")), isVar, Bindings{})
	assert.False(t, ok, "$Z is not declared so it cannot bind")
}

func TestMatch_OneSided(t *testing.T) {
	isVar := Declared(atom.NewVarDecl(v("$X")))

	b, ok := Match(inh(v("$X"), v("$X")), inh(c("a"), c("a")), isVar, Bindings{})
	require.True(t, ok)
	assert.True(t, atom.Equal(b["$X"], c("a")))

	_, ok = Match(inh(v("$X"), v("$X")), inh(c("a"), c("b")), isVar, Bindings{})
	assert.False(t, ok, "repeated variable must bind consistently")

	_, ok = Match(v("$X"), v("$X"), isVar, Bindings{})
	assert.False(t, ok, "a variable is never grounded by itself")
}

func TestSubstitute_KeepsTemplateTV(t *testing.T) {
	tmpl := inh(v("$X"), c("animal"))
	tmpl.TV.Strength, tmpl.TV.Confidence = 0.7, 0.4

	got := Substitute(tmpl, Bindings{"$X": c("cat")})
	assert.True(t, atom.Equal(got, inh(c("cat"), c("animal"))))
	assert.Equal(t, tmpl.TV, got.TV)
	assert.Same(t, tmpl, Substitute(tmpl, Bindings{}))
}

func TestCompile_Validates(t *testing.T) {
	_, err := Compile(c("nope"))
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)

	bad := Query{
		Vars:    atom.NewVarDecl(v("$A"), v("$B")),
		Clauses: []*atom.Atom{inh(v("$A"), c("x"))},
		Rewrite: []*atom.Atom{inh(v("$A"), v("$B"))},
	}
	_, err = Compile(bad.Atom())
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)

	q, err := Compile(deduction().Atom())
	require.NoError(t, err)
	assert.Len(t, q.Vars, 3)
	assert.Len(t, q.Clauses, 2)
}

func TestExecute_GlobalDeduction(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	s.Add(ctx, inh(c("cat"), c("mammal")))
	s.Add(ctx, inh(c("mammal"), c("animal")))
	s.Add(ctx, inh(c("animal"), c("thing")))

	res, err := New().Execute(ctx, Request{Mode: ModeGlobal, Program: deduction().Atom(), Scope: s})
	require.NoError(t, err)
	require.Equal(t, atom.SetLink, res.Type)

	var got []string
	for _, r := range res.Out {
		got = append(got, r.Key())
	}
	assert.ElementsMatch(t, []string{
		inh(c("cat"), c("animal")).Key(),
		inh(c("mammal"), c("thing")).Key(),
	}, got)
}

func TestExecute_FocusCollectsList(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	s.Add(ctx, inh(c("cat"), c("mammal")))
	s.Add(ctx, inh(c("mammal"), c("animal")))

	res, err := New().Execute(ctx, Request{Mode: ModeFocus, Program: deduction().Atom(), Scope: s})
	require.NoError(t, err)
	assert.Equal(t, atom.ListLink, res.Type)
	require.Len(t, res.Out, 1)
	assert.True(t, atom.Equal(res.Out[0], inh(c("cat"), c("animal"))))
}

func TestExecute_GroundClauseMustExist(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	s.Add(ctx, inh(c("cat"), c("mammal")))

	q := Query{
		Vars: atom.NewVarDecl(v("$X")),
		Clauses: []*atom.Atom{
			inh(v("$X"), c("mammal")),
			inh(c("dog"), c("mammal")),
		},
		Rewrite: []*atom.Atom{inh(v("$X"), c("pet"))},
	}
	res, err := New().Execute(ctx, Request{Program: q.Atom(), Scope: s})
	require.NoError(t, err)
	assert.Empty(t, res.Out)

	s.Add(ctx, inh(c("dog"), c("mammal")))
	res, err = New().Execute(ctx, Request{Program: q.Atom(), Scope: s})
	require.NoError(t, err)
	assert.Len(t, res.Out, 2, "cat and dog are both mammals")
}

func TestExecute_MaxGroundings(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	for _, n := range []string{"a", "b", "c", "d"} {
		s.Add(ctx, inh(c(n), c("x")))
	}
	q := Query{
		Vars:    atom.NewVarDecl(v("$X")),
		Clauses: []*atom.Atom{inh(v("$X"), c("x"))},
		Rewrite: []*atom.Atom{inh(v("$X"), c("y"))},
	}

	res, err := New(WithMaxGroundings(2)).Execute(ctx, Request{Program: q.Atom(), Scope: s})
	require.NoError(t, err)
	assert.Len(t, res.Out, 2)
}

func TestExecute_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := New().Execute(ctx, Request{Program: deduction().Atom()})
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))

	_, err = New().Execute(ctx, Request{Mode: Mode(9), Program: deduction().Atom(), Scope: memstore.New()})
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}
