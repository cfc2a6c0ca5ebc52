package forward

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/sampling"
	"github.com/cognicore/chainer/pkg/chainer/truth"
)

// SourceSelector picks the source of the next step.
type SourceSelector struct {
	cfg      *Config
	expander PoolExpander
	log      *zap.Logger
}

// NewSourceSelector creates a selector reading its mode from cfg on every
// call, so configuration changes apply to the next step.
func NewSourceSelector(cfg *Config, expander PoolExpander, log *zap.Logger) *SourceSelector {
	if expander == nil {
		expander = NoExpander{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SourceSelector{cfg: cfg, expander: expander, log: log}
}

// Select chooses a source and marks it selected. Unselected sources are
// preferred; once they run out the pool may be expanded and every
// potential source becomes selectable again.
func (s *SourceSelector) Select(state *State) (*atom.Atom, error) {
	mode := s.cfg.SelectionMode
	if mode != SelectionUniform && mode != SelectionTVFitness {
		return nil, fmt.Errorf("%w: %s", internalerr.ErrUnknownSelectionMode, mode)
	}

	sources := state.Sources
	if sources.UnselectedLen() == 0 {
		before := sources.Len()
		s.log.Debug("all sources have been selected", zap.Int("selected", sources.SelectedLen()))
		if added := s.expander.Expand(state); added > 0 {
			s.log.Debug("added children of selected sources", zap.Int("added", added), zap.Int("before", before))
		} else {
			s.log.Debug("no sources added, retrying existing sources")
		}
	}

	candidates := sources.Unselected()
	if len(candidates) == 0 {
		candidates = sources.Potential()
	}
	if ce := s.log.Check(zap.DebugLevel, "available sources"); ce != nil {
		ce.Write(zap.Int("selected", sources.SelectedLen()), zap.Int("potential", sources.Len()), zap.Stringers("sources", candidates))
	}

	idx := -1
	switch mode {
	case SelectionTVFitness:
		fitness := make([]float64, len(candidates))
		for i, c := range candidates {
			fitness[i] = truth.Fitness(c.TV)
		}
		idx = sampling.Tournament(state.Rand, fitness)
	case SelectionUniform:
		if len(candidates) > 0 {
			idx = state.Rand.IntN(len(candidates))
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: no source to select", internalerr.ErrSelectionInvariant)
	}

	chosen := candidates[idx]
	if err := sources.MarkSelected(chosen); err != nil {
		return nil, err
	}
	return chosen, nil
}
