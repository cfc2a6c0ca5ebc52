// Package sampling holds the stochastic pieces of the chaining loop: the
// random source, rule utility samplers and tournament selection.
package sampling

import (
	"math"
	"math/rand/v2"
	"time"
)

// Rand is the single random source of an engine. It is not safe for
// concurrent use; the chaining loop is single-threaded.
type Rand struct {
	src rand.Source
	r   *rand.Rand
}

// NewRand creates a seeded random source. Equal seeds replay equal runs.
func NewRand(seed uint64) *Rand {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Rand{src: src, r: rand.New(src)}
}

// NewTimeSeeded creates a random source seeded from the clock.
func NewTimeSeeded() *Rand {
	return NewRand(uint64(time.Now().UnixNano()))
}

// Source exposes the underlying source for distribution samplers.
func (r *Rand) Source() rand.Source { return r.src }

// Float64 returns a uniform draw in [0, 1).
func (r *Rand) Float64() float64 { return r.r.Float64() }

// IntN returns a uniform draw in [0, n). n must be positive.
func (r *Rand) IntN(n int) int { return r.r.IntN(n) }

// Bernoulli returns true with probability p.
func (r *Rand) Bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.r.Float64() < p
}

// Categorical draws an index with probability proportional to weights.
// Negative and NaN weights count as zero, +Inf weights win outright, and if
// every weight is zero the draw is uniform. Returns -1 for an empty slice.
func (r *Rand) Categorical(weights []float64) int {
	if len(weights) == 0 {
		return -1
	}

	var inf []int
	total := 0.0
	for i, w := range weights {
		switch {
		case math.IsInf(w, 1):
			inf = append(inf, i)
		case w > 0:
			total += w
		}
	}
	if len(inf) > 0 {
		return inf[r.IntN(len(inf))]
	}
	if total <= 0 {
		return r.IntN(len(weights))
	}

	u := r.r.Float64() * total
	last := -1
	for i, w := range weights {
		if !(w > 0) {
			continue
		}
		last = i
		u -= w
		if u < 0 {
			return i
		}
	}
	// rounding left u at ~0
	return last
}
