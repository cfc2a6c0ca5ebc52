package memstore

import (
	"context"
	"sync"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/store"
)

// Store is an in-memory implementation of store.Store. Children created with
// Child see the parent's atoms but keep their own writes private.
type Store struct {
	mu     sync.RWMutex
	parent *Store
	atoms  map[string]*atom.Atom
	order  []*atom.Atom
	byType map[atom.Type][]*atom.Atom
	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		atoms:  make(map[string]*atom.Atom),
		byType: make(map[atom.Type][]*atom.Atom),
	}
}

// NewChild creates a scoped sub-store of s.
func (s *Store) NewChild() *Store {
	c := New()
	c.parent = s
	return c
}

// Child implements store.Store.
func (s *Store) Child() store.Store { return s.NewChild() }

// Close implements store.Store. Closing a child discards its writes.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.atoms = make(map[string]*atom.Atom)
	s.order = nil
	s.byType = make(map[atom.Type][]*atom.Atom)
	return nil
}

// Add inserts an atom and its children, returning the canonical handle.
func (s *Store) Add(ctx context.Context, a *atom.Atom) (*atom.Atom, error) {
	if a == nil {
		return nil, internalerr.ErrInvalidInput
	}
	if s.isClosed() {
		return nil, internalerr.ErrStoreUnavailable
	}
	return s.add(a), nil
}

// add merges truth values only on atoms owned by s. An atom visible through
// a parent scope is returned as is, so a child never writes into its parent.
func (s *Store) add(a *atom.Atom) *atom.Atom {
	key := a.Key()
	if s.parent != nil {
		if existing, ok := s.parent.lookup(key); ok {
			return existing
		}
	}

	s.mu.Lock()
	if existing, ok := s.atoms[key]; ok {
		existing.TV = existing.TV.Merge(a.TV)
		s.mu.Unlock()
		return existing
	}
	s.mu.Unlock()

	var canon *atom.Atom
	if a.IsLink() {
		out := make([]*atom.Atom, len(a.Out))
		for i, c := range a.Out {
			out[i] = s.add(c)
		}
		canon = atom.NewLink(a.Type, out...)
	} else {
		canon = atom.NewNode(a.Type, a.Name)
	}
	canon.TV = a.TV

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.atoms[key]; ok {
		return existing
	}
	s.atoms[key] = canon
	s.order = append(s.order, canon)
	s.byType[canon.Type] = append(s.byType[canon.Type], canon)
	return canon
}

func (s *Store) lookup(key string) (*atom.Atom, bool) {
	if s.parent != nil {
		if a, ok := s.parent.lookup(key); ok {
			return a, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.atoms[key]
	return a, ok
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Get returns the canonical atom for a key.
func (s *Store) Get(ctx context.Context, key string) (*atom.Atom, bool, error) {
	if s.isClosed() {
		return nil, false, internalerr.ErrStoreUnavailable
	}
	a, ok := s.lookup(key)
	return a, ok, nil
}

// Contains reports whether a structurally equal atom is visible.
func (s *Store) Contains(ctx context.Context, a *atom.Atom) (bool, error) {
	if a == nil {
		return false, nil
	}
	_, ok, err := s.Get(ctx, a.Key())
	return ok, err
}

// Atoms returns visible atoms of type t, parent scopes first.
func (s *Store) Atoms(ctx context.Context, t atom.Type) ([]*atom.Atom, error) {
	if s.isClosed() {
		return nil, internalerr.ErrStoreUnavailable
	}
	var out []*atom.Atom
	if s.parent != nil {
		parentAtoms, err := s.parent.Atoms(ctx, t)
		if err != nil {
			return nil, err
		}
		out = parentAtoms
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(out, s.byType[t]...), nil
}

// All returns every visible atom, parent scopes first.
func (s *Store) All(ctx context.Context) ([]*atom.Atom, error) {
	if s.isClosed() {
		return nil, internalerr.ErrStoreUnavailable
	}
	var out []*atom.Atom
	if s.parent != nil {
		parentAtoms, err := s.parent.All(ctx)
		if err != nil {
			return nil, err
		}
		out = parentAtoms
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(out, s.order...), nil
}

// Len returns the number of visible atoms.
func (s *Store) Len() int {
	n := 0
	if s.parent != nil {
		n = s.parent.Len()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return n + len(s.order)
}

// LocalLen returns the number of atoms written to this scope only.
func (s *Store) LocalLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
