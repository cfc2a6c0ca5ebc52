// Package pattern implements the structural matcher that fires rules
// against a knowledge store.
//
// A rule program is a BindLink:
//
//	(BindLink
//	  (VariableList <vars>...)
//	  (AndLink <clauses>...)
//	  (ListLink <rewrites>...))
//
// Execute finds every grounding of the variables that makes all clauses
// present in the scope store and instantiates the rewrites with it.
package pattern

import (
	"context"
	"fmt"
	"sort"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/store"
)

// DefaultMaxGroundings bounds the number of groundings one execution collects.
const DefaultMaxGroundings = 10000

// Mode selects how Execute reports results.
type Mode int

const (
	// ModeGlobal searches the scope and returns a SetLink of distinct results.
	ModeGlobal Mode = iota
	// ModeFocus searches only the explicit focus scope and returns the
	// collected results, in discovery order, as a ListLink.
	ModeFocus
)

func (m Mode) String() string {
	switch m {
	case ModeGlobal:
		return "global"
	case ModeFocus:
		return "focus"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Query is the decoded form of a rule program.
type Query struct {
	Vars    atom.VarDecl
	Clauses []*atom.Atom
	Rewrite []*atom.Atom
}

// Atom renders q as a BindLink program.
func (q Query) Atom() *atom.Atom {
	return atom.NewLink(atom.BindLink,
		q.Vars.Atom(),
		atom.NewLink(atom.AndLink, q.Clauses...),
		atom.NewLink(atom.ListLink, q.Rewrite...),
	)
}

// Compile decodes a BindLink program.
func Compile(program *atom.Atom) (Query, error) {
	if program == nil || program.Type != atom.BindLink || len(program.Out) != 3 {
		return Query{}, fmt.Errorf("%w: program must be a BindLink with 3 parts", internalerr.ErrInvalidInput)
	}
	vars, body, rewrite := program.Out[0], program.Out[1], program.Out[2]
	if vars.Type != atom.VariableList {
		return Query{}, fmt.Errorf("%w: expected VariableList, got %s", internalerr.ErrInvalidInput, vars.Type)
	}
	if body.Type != atom.AndLink || len(body.Out) == 0 {
		return Query{}, fmt.Errorf("%w: expected non-empty AndLink body", internalerr.ErrInvalidInput)
	}
	if rewrite.Type != atom.ListLink {
		return Query{}, fmt.Errorf("%w: expected ListLink rewrite, got %s", internalerr.ErrInvalidInput, rewrite.Type)
	}

	q := Query{
		Vars:    atom.NewVarDecl(vars.Out...),
		Clauses: body.Out,
		Rewrite: rewrite.Out,
	}
	if len(q.Vars) != len(vars.Out) {
		return Query{}, fmt.Errorf("%w: VariableList may only hold distinct variables", internalerr.ErrInvalidInput)
	}

	isVar := Declared(q.Vars)
	bound := make(map[string]struct{})
	for _, c := range q.Clauses {
		for _, v := range atom.Variables(c) {
			if isVar(v) {
				bound[v.Name] = struct{}{}
			}
		}
	}
	for _, r := range q.Rewrite {
		for _, v := range atom.Variables(r) {
			if _, ok := bound[v.Name]; isVar(v) && !ok {
				return Query{}, fmt.Errorf("%w: rewrite uses %s which no clause binds", internalerr.ErrInvalidInput, v.Name)
			}
		}
	}
	return q, nil
}

// Request is one matcher invocation.
type Request struct {
	Mode    Mode
	Program *atom.Atom
	Scope   store.Store
}

// Matcher fires a rule program against a scope.
type Matcher interface {
	Execute(ctx context.Context, req Request) (*atom.Atom, error)
}

// Engine is the default Matcher.
type Engine struct {
	maxGroundings int
}

// Option configures an Engine
type Option func(*Engine)

// WithMaxGroundings caps how many groundings one Execute collects.
func WithMaxGroundings(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxGroundings = n
		}
	}
}

// New creates a matcher
func New(opts ...Option) *Engine {
	e := &Engine{maxGroundings: DefaultMaxGroundings}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the program and returns the result wrapper described by Mode.
func (e *Engine) Execute(ctx context.Context, req Request) (*atom.Atom, error) {
	if req.Scope == nil {
		return nil, fmt.Errorf("%w: nil scope", internalerr.ErrInvalidInput)
	}
	q, err := Compile(req.Program)
	if err != nil {
		return nil, err
	}

	var results []*atom.Atom
	switch req.Mode {
	case ModeGlobal:
		seen := make(map[string]struct{})
		err = e.Groundings(ctx, req.Scope, q, func(b Bindings) bool {
			for _, r := range q.Rewrite {
				inst := Substitute(r, b)
				if _, ok := seen[inst.Key()]; ok {
					continue
				}
				seen[inst.Key()] = struct{}{}
				results = append(results, inst)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		return atom.NewLink(atom.SetLink, results...), nil

	case ModeFocus:
		collect := func(b Bindings) bool {
			for _, r := range q.Rewrite {
				results = append(results, Substitute(r, b))
			}
			return true
		}
		if err := e.Groundings(ctx, req.Scope, q, collect); err != nil {
			return nil, err
		}
		return atom.NewLink(atom.ListLink, results...), nil

	default:
		return nil, fmt.Errorf("%w: unknown matcher mode %s", internalerr.ErrInvalidInput, req.Mode)
	}
}

// Groundings calls emit for every distinct grounding of q's variables in
// scope, until emit returns false or the grounding cap is reached.
func (e *Engine) Groundings(ctx context.Context, scope store.Store, q Query, emit func(Bindings) bool) error {
	isVar := Declared(q.Vars)

	// Ground clauses are cheap membership checks; try them first.
	clauses := make([]*atom.Atom, len(q.Clauses))
	copy(clauses, q.Clauses)
	sort.SliceStable(clauses, func(i, j int) bool {
		return IsGround(clauses[i], isVar) && !IsGround(clauses[j], isVar)
	})

	seen := make(map[string]struct{})
	count := 0
	var search func(i int, b Bindings) (bool, error)
	search = func(i int, b Bindings) (bool, error) {
		if i == len(clauses) {
			key := b.Key(q.Vars)
			if _, dup := seen[key]; dup {
				return true, nil
			}
			seen[key] = struct{}{}
			count++
			if !emit(b) || count >= e.maxGroundings {
				return false, nil
			}
			return true, nil
		}

		c := Substitute(clauses[i], b)
		if IsGround(c, isVar) {
			ok, err := scope.Contains(ctx, c)
			if err != nil || !ok {
				return err == nil, err
			}
			return search(i+1, b)
		}

		candidates, err := candidatesFor(ctx, scope, c, isVar)
		if err != nil {
			return false, err
		}
		for _, cand := range candidates {
			nb, ok := Match(c, cand, isVar, b)
			if !ok {
				continue
			}
			cont, err := search(i+1, nb)
			if err != nil || !cont {
				return cont, err
			}
		}
		return true, nil
	}

	_, err := search(0, Bindings{})
	return err
}

func candidatesFor(ctx context.Context, scope store.Store, clause *atom.Atom, isVar IsVarFunc) ([]*atom.Atom, error) {
	if isVar(clause) {
		return scope.All(ctx)
	}
	return scope.Atoms(ctx, clause.Type)
}

var _ Matcher = (*Engine)(nil)
