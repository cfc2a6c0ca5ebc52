package forward

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/pattern"
	"github.com/cognicore/chainer/pkg/chainer/rule"
	"github.com/cognicore/chainer/pkg/chainer/store"
)

// Applicator fires rules through the matcher and stores what they produce.
type Applicator struct {
	matcher pattern.Matcher
	log     *zap.Logger
}

// NewApplicator creates an applicator.
func NewApplicator(m pattern.Matcher, log *zap.Logger) *Applicator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Applicator{matcher: m, log: log}
}

// Apply fires r against the state's scope and returns the distinct facts
// it produced, in discovery order. Products are added to the scope. A
// failing or panicking matcher yields no products.
func (a *Applicator) Apply(ctx context.Context, state *State, r *rule.Rule) []*atom.Atom {
	mode := pattern.ModeGlobal
	if state.FocusMode() {
		mode = pattern.ModeFocus
	}
	products, err := a.apply(ctx, state.Scope(), r, mode)
	if err != nil {
		err = fmt.Errorf("%w: rule %s: %v", internalerr.ErrMatcherExecution, r.Name, err)
		a.log.Debug("rule application failed", zap.Error(err))
		return nil
	}
	if ce := a.log.Check(zap.DebugLevel, "results"); ce != nil {
		ce.Write(zap.String("rule", r.Name), zap.Stringers("products", products))
	}
	return products
}

// ApplyAll fires r against the whole main store.
func (a *Applicator) ApplyAll(ctx context.Context, state *State, r *rule.Rule) []*atom.Atom {
	main := &State{Store: state.Store, Rand: state.Rand}
	return a.Apply(ctx, main, r)
}

func (a *Applicator) apply(ctx context.Context, scope store.Store, r *rule.Rule, mode pattern.Mode) (products []*atom.Atom, err error) {
	defer func() {
		if p := recover(); p != nil {
			products, err = nil, fmt.Errorf("matcher panic: %v", p)
		}
	}()

	// The program lives in a throwaway child so that partial groundings
	// of it never leak into the scope.
	workspace := scope.Child()
	defer workspace.Close()

	program, err := workspace.Add(ctx, r.Structure())
	if err != nil {
		return nil, err
	}
	res, err := a.matcher.Execute(ctx, pattern.Request{Mode: mode, Program: program, Scope: scope})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}

	seen := make(map[string]struct{})
	add := func(f *atom.Atom) error {
		h, err := scope.Add(ctx, f)
		if err != nil {
			return err
		}
		if _, ok := seen[h.Key()]; ok {
			return nil
		}
		seen[h.Key()] = struct{}{}
		products = append(products, h)
		return nil
	}
	for _, raw := range res.Out {
		if raw.Type == atom.ListLink || raw.Type == atom.SetLink {
			for _, c := range raw.Out {
				if err := add(c); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := add(raw); err != nil {
			return nil, err
		}
	}
	return products, nil
}
