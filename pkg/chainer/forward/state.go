package forward

import (
	"fmt"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/sampling"
	"github.com/cognicore/chainer/pkg/chainer/store"
)

// Phase is the lifecycle position of an engine.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseRunning
	PhaseTerminated
	PhaseBulk
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseRunning:
		return "running"
	case PhaseTerminated:
		return "terminated"
	case PhaseBulk:
		return "bulk"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the mutable chaining state shared by the selectors and the
// applicator. The engine owns it; components only read it, except for the
// source set.
type State struct {
	Iteration      int
	Sources        *SourceSet
	InitialSources []*atom.Atom
	VarDecl        atom.VarDecl

	Store store.Store
	// Focus is nil unless a focus set was given.
	Focus store.Store
	Rand  *sampling.Rand
}

// FocusMode reports whether matching is restricted to the focus store.
func (s *State) FocusMode() bool { return s.Focus != nil }

// Scope is the store rules are matched against and products land in.
func (s *State) Scope() store.Store {
	if s.Focus != nil {
		return s.Focus
	}
	return s.Store
}

// DeclFor returns the variable declaration used when unifying rules with
// source. Only initial sources carry the caller's declaration; any other
// source is treated as ground.
func (s *State) DeclFor(source *atom.Atom) atom.VarDecl {
	for _, init := range s.InitialSources {
		if atom.Equal(init, source) {
			return s.VarDecl
		}
	}
	return nil
}
