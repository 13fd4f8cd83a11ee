package ui

import "math"

// Spring constants of the needle animation
const (
	needleRange     = 50.0 // Cents shown either side of centre
	needleStiffness = 0.15
	needleDamping   = 0.7

	settledVelocity = 0.01
	settledDistance = 0.1
)

// Needle is the animated position of the tuning meter needle, in cents
type Needle struct {
	Position float64
	Velocity float64
}

// StepNeedle advances the needle one animation step towards targetCents. The
// target is clamped to the meter range.
func StepNeedle(n Needle, targetCents float64) Needle {
	target := clampCents(targetCents)
	force := (target - n.Position) * needleStiffness
	n.Velocity = (n.Velocity + force) * needleDamping
	n.Position += n.Velocity
	return n
}

// Settled reports whether the needle has come to rest at targetCents
func (n Needle) Settled(targetCents float64) bool {
	return math.Abs(n.Velocity) <= settledVelocity &&
		math.Abs(clampCents(targetCents)-n.Position) <= settledDistance
}

func clampCents(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return max(-needleRange, min(needleRange, c))
}
