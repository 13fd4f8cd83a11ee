package pitch

import "math"

const (
	// silenceRMS is the level below which a frame is treated as silence
	silenceRMS = 0.01

	// nsdfThreshold is the minimum normalized correlation of an accepted peak
	nsdfThreshold = 0.3

	// Search range of the lag scan (Hz)
	maxPitchHz = 2000
	minPitchHz = 50

	// Parabolic refinement limits
	minCurvature = 1e-4
	maxShift     = 1.0
)

// Detector defines the interface for pitch detection
type Detector interface {
	// Detect estimates the fundamental frequency of one frame. The boolean
	// is false when no pitch could be found.
	Detect(samples []float32, sampleRate int) (float64, bool)
}

// NSDFDetector is the default Detector. It has no state; see Detect.
type NSDFDetector struct{}

// Detect implements Detector
func (NSDFDetector) Detect(samples []float32, sampleRate int) (float64, bool) {
	return Detect(samples, sampleRate)
}

// Detect estimates the fundamental frequency of samples using the
// normalized square difference function. The first NSDF peak above the
// threshold that follows a negative excursion wins, refined by parabolic
// interpolation. Frames quieter than the silence floor yield nothing.
func Detect(samples []float32, sampleRate int) (float64, bool) {
	if Volume(samples) < silenceRMS {
		return 0, false
	}

	maxLag := len(samples) / 2
	minLag := sampleRate / maxPitchHz
	maxSearchLag := min(sampleRate/minPitchHz, maxLag-1)
	if maxSearchLag <= minLag {
		return 0, false
	}

	// Only lags up to maxSearchLag are ever read.
	nsdf := normalizedSquareDifference(samples, maxLag, maxSearchLag+1)

	bestLag := -1
	bestValue := 0.0
	wasNegative := false
	for lag := minLag; lag < maxSearchLag; lag++ {
		if nsdf[lag] < 0 {
			wasNegative = true
		}
		if !wasNegative || nsdf[lag] <= nsdfThreshold {
			continue
		}

		// Climb to the local maximum and take it.
		for lag+1 < maxSearchLag && nsdf[lag+1] > nsdf[lag] {
			lag++
		}
		bestLag, bestValue = lag, nsdf[lag]
		break
	}

	if bestLag <= 0 || bestValue < nsdfThreshold {
		return 0, false
	}

	period := float64(bestLag) + parabolicShift(nsdf[bestLag-1], nsdf[bestLag], nsdf[bestLag+1])
	return float64(sampleRate) / period, true
}

// normalizedSquareDifference computes the NSDF over a window of the given
// length for lags [0, lags).
func normalizedSquareDifference(samples []float32, window, lags int) []float64 {
	nsdf := make([]float64, lags)

	energy := 0.0
	for _, s := range samples[:window] {
		energy += float64(s) * float64(s)
	}

	for lag := range nsdf {
		acf := 0.0
		shifted := 0.0
		for i := 0; i < window; i++ {
			a := float64(samples[i])
			b := float64(samples[i+lag])
			acf += a * b
			shifted += b * b
		}
		if energy+shifted > 0 {
			nsdf[lag] = 2 * acf / (energy + shifted)
		}
	}
	return nsdf
}

// parabolicShift returns the offset of the vertex of the parabola through
// three equally spaced points, or 0 when the fit is flat or out of range.
func parabolicShift(prev, curr, next float64) float64 {
	denom := 2 * (prev - 2*curr + next)
	if math.Abs(denom) <= minCurvature {
		return 0
	}
	shift := (prev - next) / denom
	if math.Abs(shift) >= maxShift {
		return 0
	}
	return shift
}
