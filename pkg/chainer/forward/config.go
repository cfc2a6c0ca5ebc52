package forward

import (
	"fmt"
	"strings"

	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/sampling"
)

// SelectionMode chooses how the next source is picked.
type SelectionMode int

const (
	// SelectionUniform picks any selectable source with equal probability.
	SelectionUniform SelectionMode = iota
	// SelectionTVFitness runs a tournament over truth value fitness.
	SelectionTVFitness
)

func (m SelectionMode) String() string {
	switch m {
	case SelectionUniform:
		return "uniform"
	case SelectionTVFitness:
		return "tv-fitness"
	default:
		return fmt.Sprintf("selection(%d)", int(m))
	}
}

// ParseSelectionMode parses "uniform" or "tv-fitness".
func ParseSelectionMode(s string) (SelectionMode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "uniform":
		return SelectionUniform, nil
	case "tv-fitness", "fitness":
		return SelectionTVFitness, nil
	default:
		return 0, fmt.Errorf("%w: %q", internalerr.ErrUnknownSelectionMode, s)
	}
}

// Defaults
const (
	DefaultMaxIterations        = 20
	DefaultExpansionProbability = 0.01
	DefaultUnifyCacheSize       = 4096
)

// Config holds the chaining parameters. It may be changed between steps.
type Config struct {
	// MaxIterations caps the number of steps. Negative means unlimited.
	MaxIterations int
	// RetrySources lets already selected sources be picked again once
	// every source has been tried.
	RetrySources bool
	// SelectionMode chooses how sources are picked.
	SelectionMode SelectionMode
	// RulePolicy turns rule truth values into selection weights.
	RulePolicy sampling.Policy
	// ExpansionProbability is the chance, on an exhausted pool, of adding
	// the closed children of selected links as new sources.
	ExpansionProbability float64
	// Seed makes runs reproducible. Zero seeds from the clock.
	Seed uint64
	// UnifyCacheSize bounds the memoised source unifications.
	UnifyCacheSize int
}

// DefaultConfig returns the default chaining parameters.
func DefaultConfig() Config {
	return Config{
		MaxIterations:        DefaultMaxIterations,
		RetrySources:         false,
		SelectionMode:        SelectionTVFitness,
		RulePolicy:           sampling.PolicyThompson,
		ExpansionProbability: DefaultExpansionProbability,
		UnifyCacheSize:       DefaultUnifyCacheSize,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.SelectionMode {
	case SelectionUniform, SelectionTVFitness:
	default:
		return fmt.Errorf("%w: %s", internalerr.ErrUnknownSelectionMode, c.SelectionMode)
	}
	if _, err := sampling.ParsePolicy(string(c.RulePolicy)); err != nil {
		return err
	}
	if c.ExpansionProbability < 0 || c.ExpansionProbability > 1 {
		return fmt.Errorf("%w: expansion probability %g outside [0,1]", internalerr.ErrInvalidConfig, c.ExpansionProbability)
	}
	if c.UnifyCacheSize < 0 {
		return fmt.Errorf("%w: negative unify cache size", internalerr.ErrInvalidConfig)
	}
	return nil
}

// reachedMax reports whether iteration has hit the cap.
func (c Config) reachedMax(iteration int) bool {
	return c.MaxIterations >= 0 && iteration >= c.MaxIterations
}
