package truth

import (
	"math"
	"testing"
)

func TestNewClamps(t *testing.T) {
	v := New(1.5, -0.2)
	if v.Strength != 1 || v.Confidence != 0 {
		t.Errorf("expected clamped (1, 0), got %v", v)
	}

	v = New(math.NaN(), 0.5)
	if v.Strength != 0 {
		t.Errorf("NaN strength should clamp to 0, got %f", v.Strength)
	}
}

func TestCountFromConfidence(t *testing.T) {
	if got := CountFromConfidence(0, DefaultK); got != 0 {
		t.Errorf("zero confidence should give zero count, got %f", got)
	}
	if got := CountFromConfidence(1, DefaultK); !math.IsInf(got, 1) {
		t.Errorf("full confidence should give +Inf, got %f", got)
	}
	if got := CountFromConfidence(0.5, DefaultK); got != DefaultK {
		t.Errorf("c=0.5 should give K, got %f", got)
	}
}

func TestFitness(t *testing.T) {
	if Fitness(Default) != 0 {
		t.Error("default truth value should have zero fitness")
	}
	if Fitness(New(0.5, 0)) != 0 {
		t.Error("zero confidence should have zero fitness")
	}

	mid := Fitness(New(0.5, 0.9))
	edge := Fitness(New(0.99, 0.9))
	if mid <= edge {
		t.Errorf("informative strength should beat near-certain strength: %f <= %f", mid, edge)
	}

	low := Fitness(New(0.5, 0.1))
	if low >= mid {
		t.Errorf("higher confidence should raise fitness: %f >= %f", low, mid)
	}
}

func TestMerge(t *testing.T) {
	weak := New(0.2, 0.1)
	strong := New(0.8, 0.7)

	if weak.Merge(strong) != strong {
		t.Error("merge should keep the more confident value")
	}
	if strong.Merge(weak) != strong {
		t.Error("merge should not downgrade")
	}
}

func TestString(t *testing.T) {
	if got := New(0.9, 0.8).String(); got != "(stv 0.9 0.8)" {
		t.Errorf("unexpected rendering %q", got)
	}
}
