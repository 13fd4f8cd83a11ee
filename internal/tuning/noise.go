package tuning

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrInvalidThreshold is returned for a noise threshold outside [0, 1]
var ErrInvalidThreshold = errors.New("noise threshold must be within [0, 1]")

// NoiseConfig holds the quality gates applied before a reading may become
// directional
type NoiseConfig struct {
	MinVolumeThreshold     float64
	MinConfidenceThreshold float64
}

// DefaultNoiseConfig returns the default gates
func DefaultNoiseConfig() NoiseConfig {
	return NoiseConfig{
		MinVolumeThreshold:     0.1,
		MinConfidenceThreshold: 0.7,
	}
}

// Validate checks that both thresholds are within [0, 1]
func (c NoiseConfig) Validate() error {
	var errs []error
	if !inUnitRange(c.MinVolumeThreshold) {
		errs = append(errs, fmt.Errorf("%w: min volume %g", ErrInvalidThreshold, c.MinVolumeThreshold))
	}
	if !inUnitRange(c.MinConfidenceThreshold) {
		errs = append(errs, fmt.Errorf("%w: min confidence %g", ErrInvalidThreshold, c.MinConfidenceThreshold))
	}
	return errors.Join(errs...)
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

// LiveNoiseConfig is a NoiseConfig that can be replaced while a session is
// classifying frames. Each Load returns the value current at that moment.
type LiveNoiseConfig struct {
	v atomic.Pointer[NoiseConfig]
}

// NewLiveNoiseConfig returns a live config holding cfg. It panics if cfg is
// invalid.
func NewLiveNoiseConfig(cfg NoiseConfig) *LiveNoiseConfig {
	l := &LiveNoiseConfig{}
	if err := l.Store(cfg); err != nil {
		panic(err)
	}
	return l
}

// Load returns the current config
func (l *LiveNoiseConfig) Load() NoiseConfig {
	return *l.v.Load()
}

// Store replaces the current config. Invalid configs are rejected and the
// previous value is kept.
func (l *LiveNoiseConfig) Store(cfg NoiseConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	l.v.Store(&cfg)
	return nil
}
