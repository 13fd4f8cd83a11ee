package ui

import (
	"math"
	"testing"
)

func TestStepNeedle_ConvergesToTarget(t *testing.T) {
	t.Parallel()

	for _, target := range []float64{-30, 0, 12.5, 45} {
		n := Needle{}
		steps := 0
		for ; steps < 500 && !n.Settled(target); steps++ {
			n = StepNeedle(n, target)
		}
		if !n.Settled(target) {
			t.Errorf("target %g: not settled after %d steps, at %+v", target, steps, n)
		}
		if math.Abs(n.Position-target) > settledDistance {
			t.Errorf("target %g: settled at %f", target, n.Position)
		}
	}
}

func TestStepNeedle_ClampsTarget(t *testing.T) {
	t.Parallel()

	n := Needle{}
	for range 500 {
		n = StepNeedle(n, 180)
	}
	if math.Abs(n.Position-needleRange) > settledDistance {
		t.Errorf("position for an out of range target: got %f, want %f", n.Position, needleRange)
	}
	if !n.Settled(180) {
		t.Error("clamped needle does not report settled")
	}
}

func TestStepNeedle_FirstStep(t *testing.T) {
	t.Parallel()

	n := StepNeedle(Needle{}, 20)
	// force 3, velocity 2.1
	if math.Abs(n.Velocity-2.1) > 1e-9 || math.Abs(n.Position-2.1) > 1e-9 {
		t.Errorf("first step: got %+v", n)
	}
	if n.Settled(20) {
		t.Error("moving needle reports settled")
	}
}

func TestStepNeedle_NaNTarget(t *testing.T) {
	t.Parallel()

	n := StepNeedle(Needle{Position: 10}, math.NaN())
	if math.IsNaN(n.Position) || n.Position >= 10 {
		t.Errorf("NaN target should pull towards centre: got %+v", n)
	}
}
