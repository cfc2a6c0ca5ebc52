package forward

import (
	"fmt"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/internalerr"
)

// orderedSet is an insertion-ordered set of atoms keyed by structure.
type orderedSet struct {
	items []*atom.Atom
	index map[string]int
}

func newOrderedSet() *orderedSet {
	return &orderedSet{index: make(map[string]int)}
}

func (s *orderedSet) add(a *atom.Atom) bool {
	k := a.Key()
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, a)
	return true
}

func (s *orderedSet) has(a *atom.Atom) bool {
	_, ok := s.index[a.Key()]
	return ok
}

func (s *orderedSet) remove(a *atom.Atom) bool {
	i, ok := s.index[a.Key()]
	if !ok {
		return false
	}
	delete(s.index, a.Key())
	s.items = append(s.items[:i], s.items[i+1:]...)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].Key()] = j
	}
	return true
}

func (s *orderedSet) list() []*atom.Atom {
	out := make([]*atom.Atom, len(s.items))
	copy(out, s.items)
	return out
}

// SourceSet tracks every fact that may serve as a source. Potential only
// grows; each potential fact is in exactly one of selected and unselected.
type SourceSet struct {
	potential  *orderedSet
	selected   *orderedSet
	unselected *orderedSet
}

// NewSourceSet creates a set seeded with facts.
func NewSourceSet(facts ...*atom.Atom) *SourceSet {
	s := &SourceSet{
		potential:  newOrderedSet(),
		selected:   newOrderedSet(),
		unselected: newOrderedSet(),
	}
	s.Update(facts...)
	return s
}

// Update inserts facts not yet known as unselected sources and returns how
// many were new.
func (s *SourceSet) Update(facts ...*atom.Atom) int {
	added := 0
	for _, f := range facts {
		if f == nil {
			continue
		}
		if s.potential.add(f) {
			s.unselected.add(f)
			added++
		}
	}
	return added
}

// MarkSelected records that f was chosen. Selecting an already selected
// source is allowed; an unknown one is not.
func (s *SourceSet) MarkSelected(f *atom.Atom) error {
	if f == nil || !s.potential.has(f) {
		return fmt.Errorf("%w: %v is not a potential source", internalerr.ErrSelectionInvariant, f)
	}
	s.unselected.remove(f)
	s.selected.add(f)
	return nil
}

// Contains reports whether f is a potential source.
func (s *SourceSet) Contains(f *atom.Atom) bool { return f != nil && s.potential.has(f) }

// IsSelected reports whether f has been selected at least once.
func (s *SourceSet) IsSelected(f *atom.Atom) bool { return f != nil && s.selected.has(f) }

// Len returns the number of potential sources.
func (s *SourceSet) Len() int { return len(s.potential.items) }

// SelectedLen returns the number of sources selected at least once.
func (s *SourceSet) SelectedLen() int { return len(s.selected.items) }

// UnselectedLen returns the number of sources not selected yet.
func (s *SourceSet) UnselectedLen() int { return len(s.unselected.items) }

// Potential returns every source in insertion order.
func (s *SourceSet) Potential() []*atom.Atom { return s.potential.list() }

// Selected returns the selected sources in selection order.
func (s *SourceSet) Selected() []*atom.Atom { return s.selected.list() }

// Unselected returns the sources not selected yet, in insertion order.
func (s *SourceSet) Unselected() []*atom.Atom { return s.unselected.list() }
