package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/0xlemi/timpletune/internal/config"
	"github.com/0xlemi/timpletune/internal/tuning"
)

const validYAML = `
log_level: debug
audio:
  source: tone
  tone_hz: 220
  frame_size: 4096
detector: fft
noise:
  min_volume_threshold: 0.2
tuning:
  instrument: ukulele
  target: string-2
  auto_advance: true
metrics:
  textfile: /tmp/timpletune.prom
`

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty document: %v", err)
	}
	want := config.Default()
	if cfg.Audio != want.Audio || cfg.Noise != want.Noise || cfg.Detector != want.Detector {
		t.Errorf("empty document: got %+v, want defaults %+v", cfg, want)
	}

	catalog, err := cfg.Catalog()
	if err != nil || catalog.Len() != tuning.Timple.Len() {
		t.Errorf("default catalog: %d strings, %v", catalog.Len(), err)
	}
}

func TestLoadFromReader_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.LogLevel != config.LogDebug {
		t.Errorf("log_level: got %q", cfg.LogLevel)
	}
	if cfg.Audio.Source != config.SourceTone || cfg.Audio.ToneHz != 220 || cfg.Audio.FrameSize != 4096 {
		t.Errorf("audio: got %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("sample_rate default lost: got %d", cfg.Audio.SampleRate)
	}
	if cfg.Detector != config.DetectorFFT {
		t.Errorf("detector: got %q", cfg.Detector)
	}
	want := tuning.NoiseConfig{MinVolumeThreshold: 0.2, MinConfidenceThreshold: 0.7}
	if got := cfg.Noise.Tuning(); got != want {
		t.Errorf("noise: got %+v, want %+v", got, want)
	}
	if !cfg.Tuning.AutoAdvance || cfg.Tuning.Target != "string-2" {
		t.Errorf("tuning: got %+v", cfg.Tuning)
	}
	if cfg.Metrics.Textfile != "/tmp/timpletune.prom" {
		t.Errorf("metrics.textfile: got %q", cfg.Metrics.Textfile)
	}
}

func TestLoadFromReader_CustomStrings(t *testing.T) {
	t.Parallel()

	const yaml = `
tuning:
  instrument: ignored
  strings:
    - id: low
      note: D3
      frequency_hz: 146.83
    - id: high
      label: High D
      note: D4
      frequency_hz: 293.66
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if catalog.Len() != 2 {
		t.Fatalf("strings: got %d, want 2", catalog.Len())
	}
	if s := catalog.At(0); s.Label != "low" {
		t.Errorf("label defaults to id: got %q", s.Label)
	}
	if s := catalog.At(1); s.Label != "High D" || s.FrequencyHz != 293.66 {
		t.Errorf("second string: got %+v", s)
	}
}

func TestLoadFromReader_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown field", "audio:\n  volume: 3\n", "volume"},
		{"bad log level", "log_level: loud\n", "log_level"},
		{"bad source", "audio:\n  source: radio\n", "audio.source"},
		{"wav without path", "audio:\n  source: wav\n", "audio.wav_path"},
		{"small frame", "audio:\n  frame_size: 128\n", "audio.frame_size"},
		{"too many channels", "audio:\n  channels: 6\n", "audio.channels"},
		{"low gain", "audio:\n  input_gain: 0.01\n", "audio.input_gain"},
		{"bad detector", "detector: yin\n", "detector"},
		{"threshold above one", "noise:\n  min_confidence_threshold: 1.5\n", "noise"},
		{"unknown instrument", "tuning:\n  instrument: banjo\n", "tuning.instrument"},
		{"unknown target", "tuning:\n  target: string-9\n", "tuning.target"},
		{"duplicate strings", "tuning:\n  strings:\n    - {id: a, frequency_hz: 1}\n    - {id: a, frequency_hz: 2}\n", "tuning.strings"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(test.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error %q does not mention %q", err, test.wantErr)
			}
		})
	}
}

func TestValidate_ThresholdErrorIsTyped(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Noise.MinVolumeThreshold = -0.5
	if err := config.Validate(cfg); !errors.Is(err, tuning.ErrInvalidThreshold) {
		t.Errorf("Validate: got %v, want ErrInvalidThreshold", err)
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.LogLevel = "loud"
	cfg.Detector = "yin"
	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"log_level", "detector"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load: got %v, want os.ErrNotExist", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %q: %v", path, err)
	}
}

// rewrite replaces the file content and moves its mtime forward so the
// change is visible on filesystems with coarse timestamps.
func rewrite(t *testing.T, path, content string, age int) {
	t.Helper()
	writeFile(t, path, content)
	mtime := time.Now().Add(time.Duration(age) * time.Second)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}
