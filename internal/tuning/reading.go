package tuning

import "fmt"

// Status is the discrete outcome of classifying one frame
type Status string

const (
	StatusAwaiting Status = "awaiting" // Nothing usable to tune against
	StatusInTune   Status = "in_tune"
	StatusSharp    Status = "sharp"
	StatusFlat     Status = "flat"
	StatusNoisy    Status = "noisy" // Pitched but not trustworthy
)

// Reading is the result of one analysed frame. Readings are values: a new
// one is produced for every frame and none is changed afterwards.
type Reading struct {
	Frequency  *float64 // Detected frequency in Hz, nil when nothing was detected
	CentsOff   *float64 // Offset from the target, nil unless the reading is directional
	Status     Status
	Confidence float64
	Volume     float64
	Matched    *ReferenceString // String being tuned, nil unless the reading is directional
}

// Directional reports whether the reading should drive a tuning indicator
func (r Reading) Directional() bool {
	return r.CentsOff != nil
}

// String returns a one-line summary of the reading
func (r Reading) String() string {
	switch {
	case r.Frequency == nil:
		return string(r.Status)
	case r.CentsOff == nil:
		return fmt.Sprintf("%s %.2f Hz", r.Status, *r.Frequency)
	case r.Matched == nil:
		return fmt.Sprintf("%s %.2f Hz %+.1f cents", r.Status, *r.Frequency, *r.CentsOff)
	}
	return fmt.Sprintf("%s %.2f Hz %+.1f cents (%s)", r.Status, *r.Frequency, *r.CentsOff, r.Matched.Label)
}
