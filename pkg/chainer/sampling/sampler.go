package sampling

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/truth"
)

// Policy names a rule utility sampler.
type Policy string

const (
	// PolicyThompson draws each rule's utility from a Beta posterior.
	PolicyThompson Policy = "thompson"
	// PolicyMean uses strength*confidence as a fixed utility.
	PolicyMean Policy = "mean"
	// PolicyUniform gives every rule the same utility.
	PolicyUniform Policy = "uniform"
)

// ParsePolicy parses a policy name; the empty string selects Thompson.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyThompson, nil
	case PolicyThompson, PolicyMean, PolicyUniform:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown rule policy %q", internalerr.ErrInvalidConfig, s)
	}
}

// Sampler turns a rule's truth value into a utility for one selection.
// Stochastic samplers return a fresh draw on every call.
type Sampler interface {
	Sample(tv truth.Value) float64
}

// NewSampler returns the sampler for a policy.
func NewSampler(p Policy, r *Rand) (Sampler, error) {
	switch p {
	case PolicyThompson, "":
		return NewThompson(r), nil
	case PolicyMean:
		return Mean{}, nil
	case PolicyUniform:
		return Uniform{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown rule policy %q", internalerr.ErrInvalidConfig, p)
	}
}

// Thompson treats each rule as a bandit arm whose success probability has a
// Beta(s*n + PriorAlpha, (1-s)*n + PriorBeta) posterior, n being the
// evidence count implied by the confidence. A zero K or non-positive prior
// falls back to the defaults; a Thompson without a random source draws from
// the one given to Bind, or from a clock-seeded source.
type Thompson struct {
	K          float64
	PriorAlpha float64
	PriorBeta  float64

	rand *Rand
}

// NewThompson returns a Thompson sampler with a uniform Beta(1, 1) prior
// drawing from r.
func NewThompson(r *Rand) *Thompson {
	return &Thompson{K: truth.DefaultK, PriorAlpha: 1, PriorBeta: 1, rand: r}
}

// RandBinder is implemented by samplers that can draw from an engine's
// random source.
type RandBinder interface {
	// Bind sets the random source if none is set yet.
	Bind(r *Rand)
}

// Bind implements RandBinder.
func (t *Thompson) Bind(r *Rand) {
	if t.rand == nil {
		t.rand = r
	}
}

// Sample draws one utility from the rule's posterior.
func (t *Thompson) Sample(tv truth.Value) float64 {
	k := t.K
	if k <= 0 {
		k = truth.DefaultK
	}
	n := truth.CountFromConfidence(tv.Confidence, k)
	if math.IsInf(n, 1) {
		// no uncertainty left
		return tv.Strength
	}
	if t.rand == nil {
		t.rand = NewTimeSeeded()
	}
	beta := distuv.Beta{
		Alpha: tv.Strength*n + prior(t.PriorAlpha),
		Beta:  (1-tv.Strength)*n + prior(t.PriorBeta),
		Src:   t.rand.Source(),
	}
	return beta.Rand()
}

func prior(p float64) float64 {
	if p > 0 {
		return p
	}
	return 1
}

// Mean is a greedy point estimate; exploration then comes only from the
// categorical draw.
type Mean struct{}

// Sample returns strength * confidence.
func (Mean) Sample(tv truth.Value) float64 { return tv.Strength * tv.Confidence }

// Uniform ignores truth values.
type Uniform struct{}

// Sample returns 1.
func (Uniform) Sample(truth.Value) float64 { return 1 }

// Weights samples every truth value once and normalises the draws into a
// probability distribution. All-zero draws yield a uniform distribution.
func Weights(s Sampler, tvs []truth.Value) []float64 {
	w := make([]float64, len(tvs))
	total := 0.0
	for i, tv := range tvs {
		x := s.Sample(tv)
		if math.IsNaN(x) || x < 0 {
			x = 0
		}
		w[i] = x
		total += x
	}
	if len(w) == 0 {
		return w
	}
	if total <= 0 || math.IsInf(total, 1) {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return w
	}
	for i := range w {
		w[i] /= total
	}
	return w
}
