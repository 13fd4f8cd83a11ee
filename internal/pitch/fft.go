package pitch

import (
	"cmp"
	"math/cmplx"
	"slices"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// FFTDetector implements pitch detection by picking the strongest spectral
// peak. It is faster than the NSDF detector on long frames but follows
// harmonics when they dominate the fundamental.
type FFTDetector struct {
	minFrequency    float64 // Lowest frequency to detect (Hz)
	maxFrequency    float64 // Highest frequency to detect (Hz)
	noiseFloor      float64 // Minimum spectral magnitude of a usable peak
	peakThreshold   float64 // Minimum peak height as fraction of highest peak
	volumeThreshold float64 // Minimum RMS volume level for detection
}

// NewFFTDetector creates a spectral pitch detector covering the same range
// as the NSDF detector
func NewFFTDetector() *FFTDetector {
	return &FFTDetector{
		minFrequency:    minPitchHz,
		maxFrequency:    maxPitchHz,
		noiseFloor:      0.01,
		peakThreshold:   0.2,
		volumeThreshold: silenceRMS,
	}
}

// Detect implements Detector
func (d *FFTDetector) Detect(samples []float32, sampleRate int) (float64, bool) {
	if len(samples) < 4 || Volume(samples) < d.volumeThreshold {
		return 0, false
	}

	windowed := make([]float64, len(samples))
	for i, sample := range samples {
		windowed[i] = float64(sample)
	}
	window.Apply(windowed, window.Hann)

	spectrum := fft.FFTReal(windowed)

	peakFreq, ok := d.findFundamentalFrequency(spectrum, sampleRate)
	if !ok || peakFreq < d.minFrequency || peakFreq > d.maxFrequency {
		return 0, false
	}
	return peakFreq, true
}

// peak is a local maximum in the magnitude spectrum
type peak struct {
	bin       int
	magnitude float64
	frequency float64
}

// findFundamentalFrequency returns the interpolated frequency of the highest
// spectral peak inside the search range
func (d *FFTDetector) findFundamentalFrequency(spectrum []complex128, sampleRate int) (float64, bool) {
	// We only need to look at the first half of the spectrum (Nyquist theorem)
	spectrumHalf := spectrum[:len(spectrum)/2]

	// Frequency resolution (Hz per bin)
	binSizeHz := float64(sampleRate) / float64(len(spectrum))

	minBin := max(1, int(d.minFrequency/binSizeHz)) // Skip the DC component
	maxBin := min(int(d.maxFrequency/binSizeHz), len(spectrumHalf)-1)
	if maxBin-minBin < 2 {
		return 0, false
	}

	magnitudes := make([]float64, len(spectrumHalf))
	for i := range spectrumHalf {
		magnitudes[i] = cmplx.Abs(spectrumHalf[i])
	}

	maxMagnitude := slices.Max(magnitudes[minBin : maxBin+1])
	if maxMagnitude < d.noiseFloor {
		return 0, false
	}

	var peaks []peak
	for i := minBin + 1; i < maxBin; i++ {
		prev, current, next := magnitudes[i-1], magnitudes[i], magnitudes[i+1]
		if current <= prev || current <= next || current <= maxMagnitude*d.peakThreshold {
			continue
		}

		// Quadratic interpolation for more accurate peak location
		// x = 0.5 * (R[k-1] - R[k+1]) / (R[k-1] - 2*R[k] + R[k+1]) + k
		position := float64(i)
		if denom := prev - 2*current + next; denom != 0 {
			position += 0.5 * (prev - next) / denom
		}

		peaks = append(peaks, peak{
			bin:       i,
			magnitude: current,
			frequency: position * binSizeHz,
		})
	}

	if len(peaks) == 0 {
		return 0, false
	}

	strongest := slices.MaxFunc(peaks, func(a, b peak) int {
		return cmp.Compare(a.magnitude, b.magnitude)
	})
	return strongest.frequency, true
}
