package tuning

import (
	"fmt"
	"math"
)

const (
	// InTuneCents is the largest offset still reported as in tune
	InTuneCents = 10

	// OutOfRangeCents is the offset beyond which a pitch is taken to belong
	// to another string or to interference
	OutOfRangeCents = 200
)

// Classify combines one frame's measurements into a reading. The first rule
// that applies wins:
//
//  1. no detected frequency: awaiting
//  2. volume below cfg.MinVolumeThreshold: awaiting
//  3. confidence below cfg.MinConfidenceThreshold: noisy
//  4. more than OutOfRangeCents from targetHz: awaiting
//  5. within InTuneCents: in tune, otherwise sharp or flat
//
// Only rule 5 reports an offset and a matched string. Rules 2 to 4 still
// echo the detected frequency. Classify panics if cfg is invalid.
func Classify(detected *float64, targetHz float64, cfg NoiseConfig, confidence, volume float64, matched *ReferenceString) Reading {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("tuning: classify with %v", err))
	}

	reading := Reading{
		Status:     StatusAwaiting,
		Confidence: confidence,
		Volume:     volume,
	}
	if detected == nil {
		return reading
	}

	hz := *detected
	reading.Frequency = &hz

	if volume < cfg.MinVolumeThreshold {
		return reading
	}
	if confidence < cfg.MinConfidenceThreshold {
		reading.Status = StatusNoisy
		return reading
	}

	cents := Cents(hz, targetHz)
	// NaN covers non-positive frequencies and targets.
	if math.IsNaN(cents) || math.Abs(cents) > OutOfRangeCents {
		return reading
	}

	switch {
	case math.Abs(cents) <= InTuneCents:
		reading.Status = StatusInTune
	case cents > 0:
		reading.Status = StatusSharp
	default:
		reading.Status = StatusFlat
	}
	reading.CentsOff = &cents
	if matched != nil {
		m := *matched
		reading.Matched = &m
	}
	return reading
}
