package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Audio
	a := cfg.Audio
	if !a.Source.IsValid() {
		errs = append(errs, fmt.Errorf("audio.source %q is invalid; valid values: microphone, tone, wav", a.Source))
	}
	if a.Source == SourceWAV && a.WAVPath == "" {
		errs = append(errs, errors.New("audio.wav_path is required for the wav source"))
	}
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is out of range [8000, 192000]", a.SampleRate))
	}
	if a.FrameSize < 256 {
		errs = append(errs, fmt.Errorf("audio.frame_size %d must be at least 256", a.FrameSize))
	}
	if a.Channels < 1 || a.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d is out of range [1, 2]", a.Channels))
	}
	if a.InputGain < 0.1 {
		errs = append(errs, fmt.Errorf("audio.input_gain %.2f must be at least 0.1", a.InputGain))
	}
	if !(a.ToneHz > 0) {
		errs = append(errs, fmt.Errorf("audio.tone_hz %.2f must be positive", a.ToneHz))
	}

	if !cfg.Detector.IsValid() {
		errs = append(errs, fmt.Errorf("detector %q is invalid; valid values: nsdf, fft", cfg.Detector))
	}

	if err := cfg.Noise.Tuning().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("noise: %w", err))
	}

	// Tuning
	catalog, err := cfg.Catalog()
	if err != nil {
		errs = append(errs, err)
	} else if t := cfg.Tuning.Target; t != "" {
		if _, ok := catalog.Lookup(t); !ok {
			errs = append(errs, fmt.Errorf("tuning.target %q is not a string of the catalog", t))
		}
	}

	return errors.Join(errs...)
}
