package pitch

import "math"

// Volume returns the RMS level of samples over the whole frame
func Volume(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	sumSquares := 0.0
	for _, sample := range samples {
		sumSquares += float64(sample) * float64(sample)
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}

// Confidence scores how far a detection can be trusted, in [0, 1]. It is
// derived from volume alone: a louder frame scores higher. Frames without a
// detection or below the silence floor score 0.
func Confidence(samples []float32, detected bool) float64 {
	if !detected {
		return 0
	}

	volume := Volume(samples)
	if volume < silenceRMS {
		return 0
	}
	return math.Min(1, volume*2+0.5)
}

// Decibels converts an RMS level to dBFS, -100 for silence
func Decibels(rms float64) float64 {
	if rms <= 0.0000001 { // Avoid log(0)
		return -100
	}
	return 20 * math.Log10(rms)
}
