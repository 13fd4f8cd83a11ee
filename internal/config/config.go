// Package config provides the configuration schema, loader and file watcher
// for the timpletune tuner.
package config

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/0xlemi/timpletune/internal/tuning"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SourceKind selects where audio frames come from.
type SourceKind string

const (
	// SourceMicrophone captures the default input device through PortAudio.
	SourceMicrophone SourceKind = "microphone"

	// SourceTone plays a synthetic sine at audio.tone_hz.
	SourceTone SourceKind = "tone"

	// SourceWAV replays audio.wav_path in real time.
	SourceWAV SourceKind = "wav"
)

// IsValid reports whether s is a recognised source kind.
func (s SourceKind) IsValid() bool {
	switch s {
	case SourceMicrophone, SourceTone, SourceWAV:
		return true
	}
	return false
}

// DetectorKind selects the pitch detection algorithm.
type DetectorKind string

const (
	DetectorNSDF DetectorKind = "nsdf"
	DetectorFFT  DetectorKind = "fft"
)

// IsValid reports whether d is a recognised detector.
func (d DetectorKind) IsValid() bool {
	return d == DetectorNSDF || d == DetectorFFT
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel LogLevel      `yaml:"log_level"`
	Audio    AudioConfig   `yaml:"audio"`
	Detector DetectorKind  `yaml:"detector"`
	Noise    NoiseConfig   `yaml:"noise"`
	Tuning   TuningConfig  `yaml:"tuning"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// AudioConfig describes the frame source.
type AudioConfig struct {
	Source SourceKind `yaml:"source"`

	// SampleRate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// FrameSize is the number of samples analysed per frame.
	FrameSize int `yaml:"frame_size"`

	// Channels captured from the microphone; they are averaged to mono.
	Channels int `yaml:"channels"`

	// InputGain multiplies microphone samples before analysis.
	InputGain float64 `yaml:"input_gain"`

	// ToneHz is the frequency of the tone source.
	ToneHz float64 `yaml:"tone_hz"`

	// WAVPath is the file replayed by the wav source.
	WAVPath string `yaml:"wav_path"`

	// Loop restarts the wav source at the end of the file.
	Loop bool `yaml:"loop"`
}

// NoiseConfig holds the quality gates. Both thresholds are within [0, 1].
type NoiseConfig struct {
	MinVolumeThreshold     float64 `yaml:"min_volume_threshold"`
	MinConfidenceThreshold float64 `yaml:"min_confidence_threshold"`
}

// Tuning converts the gates into the classifier's type.
func (n NoiseConfig) Tuning() tuning.NoiseConfig {
	return tuning.NoiseConfig{
		MinVolumeThreshold:     n.MinVolumeThreshold,
		MinConfidenceThreshold: n.MinConfidenceThreshold,
	}
}

// TuningConfig selects the reference strings.
type TuningConfig struct {
	// Instrument names a built-in preset. Ignored when Strings is set.
	Instrument string `yaml:"instrument"`

	// Strings defines a custom catalog, first string first.
	Strings []StringConfig `yaml:"strings"`

	// Target pins a string id as the tuning target. Empty matches the
	// nearest string.
	Target string `yaml:"target"`

	// AutoAdvance moves to the next string once the target is in tune.
	AutoAdvance bool `yaml:"auto_advance"`
}

// StringConfig is one custom reference string.
type StringConfig struct {
	ID          string  `yaml:"id"`
	Label       string  `yaml:"label"`
	Note        string  `yaml:"note"`
	FrequencyHz float64 `yaml:"frequency_hz"`
}

// MetricsConfig controls the metrics export.
type MetricsConfig struct {
	// Textfile is written in the Prometheus text format on exit. Empty
	// disables the export.
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration used for every field a file leaves out.
func Default() *Config {
	noise := tuning.DefaultNoiseConfig()
	return &Config{
		LogLevel: LogInfo,
		Audio: AudioConfig{
			Source:     SourceMicrophone,
			SampleRate: 44100,
			FrameSize:  2048,
			Channels:   1,
			InputGain:  1.0,
			ToneHz:     440,
		},
		Detector: DetectorNSDF,
		Noise: NoiseConfig{
			MinVolumeThreshold:     noise.MinVolumeThreshold,
			MinConfidenceThreshold: noise.MinConfidenceThreshold,
		},
		Tuning: TuningConfig{
			Instrument: "timple",
		},
	}
}

// Catalog builds the reference catalog: the custom strings when given,
// otherwise the instrument preset.
func (c *Config) Catalog() (tuning.Catalog, error) {
	if len(c.Tuning.Strings) == 0 {
		catalog, ok := tuning.Preset(c.Tuning.Instrument)
		if !ok {
			return tuning.Catalog{}, fmt.Errorf("tuning.instrument %q is invalid; valid values: %s",
				c.Tuning.Instrument, strings.Join(tuning.PresetNames(), ", "))
		}
		return catalog, nil
	}

	entries := make([]tuning.ReferenceString, len(c.Tuning.Strings))
	for i, s := range c.Tuning.Strings {
		entries[i] = tuning.ReferenceString{
			ID:          s.ID,
			Label:       cmp.Or(s.Label, s.ID),
			Note:        s.Note,
			FrequencyHz: s.FrequencyHz,
		}
	}
	catalog, err := tuning.NewCatalog(entries...)
	if err != nil {
		return tuning.Catalog{}, fmt.Errorf("tuning.strings: %w", err)
	}
	return catalog, nil
}
