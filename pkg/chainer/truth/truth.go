package truth

import (
	"fmt"
	"math"
)

// DefaultK is the personality parameter used to convert confidence into an
// evidence count: count = K * c / (1 - c).
const DefaultK = 800.0

// fitnessParam shapes Fitness so that very certain (s near 0 or 1) facts
// are not preferred over informative ones.
const fitnessParam = 0.9

// Value is a simple truth value: a strength and a confidence, both in [0, 1]
type Value struct {
	Strength   float64
	Confidence float64
}

// Default is the truth value of a fact that carries no evidence.
var Default = Value{Strength: 1, Confidence: 0}

// New creates a truth value, clamping both components into [0, 1]
func New(strength, confidence float64) Value {
	return Value{Strength: clamp(strength), Confidence: clamp(confidence)}
}

// IsDefault reports whether v carries no evidence.
func (v Value) IsDefault() bool {
	return v == Default
}

// Count converts the confidence into an evidence count using DefaultK.
func (v Value) Count() float64 {
	return CountFromConfidence(v.Confidence, DefaultK)
}

// CountFromConfidence converts confidence c into a count for lookahead k.
// A confidence of 1 maps to +Inf.
func CountFromConfidence(c, k float64) float64 {
	if c >= 1 {
		return math.Inf(1)
	}
	if c <= 0 {
		return 0
	}
	return k * c / (1 - c)
}

// Merge returns the value backed by more evidence. Ties keep v.
func (v Value) Merge(other Value) Value {
	if other.Confidence > v.Confidence {
		return other
	}
	return v
}

// Fitness scores how interesting a fact is as a chaining source:
//
//	fitness = (1-s)^0.9 * s^1.1 * c
func Fitness(v Value) float64 {
	s, c := v.Strength, v.Confidence
	return math.Pow(1-s, fitnessParam) * math.Pow(s, 2-fitnessParam) * c
}

// String renders the value the way the atom parser reads it.
func (v Value) String() string {
	return fmt.Sprintf("(stv %g %g)", v.Strength, v.Confidence)
}

func clamp(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
