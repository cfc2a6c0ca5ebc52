package forward

import (
	"github.com/cognicore/chainer/pkg/chainer/atom"
)

// PoolExpander may grow the source pool once every source has been
// selected. It returns how many sources it added.
type PoolExpander interface {
	Expand(state *State) int
}

// ChildExpander adds, with the given probability, the closed immediate
// children of every selected link. It helps to exhaust sources several
// rules could fire on.
type ChildExpander struct {
	Probability float64
}

// Expand implements PoolExpander.
func (e ChildExpander) Expand(state *State) int {
	if !state.Rand.Bernoulli(e.Probability) {
		return 0
	}
	var children []*atom.Atom
	for _, src := range state.Sources.Selected() {
		for _, c := range atom.Children(src) {
			if atom.IsClosed(c) {
				children = append(children, c)
			}
		}
	}
	return state.Sources.Update(children...)
}

// NoExpander never grows the pool; exhausted pools are retried as is.
type NoExpander struct{}

// Expand implements PoolExpander.
func (NoExpander) Expand(*State) int { return 0 }
