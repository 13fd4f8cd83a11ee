package config

import (
	"log/slog"
	"slices"

	"github.com/0xlemi/timpletune/internal/tuning"
)

// Changes describes what changed between two configs. A running tuner can
// pick up new noise gates and a new log level; every other section is only
// read at startup and is listed in Restart.
type Changes struct {
	NoiseChanged bool
	Noise        tuning.NoiseConfig

	LogLevelChanged bool
	LogLevel        LogLevel

	// Restart holds the YAML names of changed startup-only sections.
	Restart []string
}

// Live reports whether c carries anything a running tuner applies.
func (c Changes) Live() bool {
	return c.NoiseChanged || c.LogLevelChanged
}

// Diff compares old and new configs.
func Diff(old, new *Config) Changes {
	var c Changes

	if old.Noise != new.Noise {
		c.NoiseChanged = true
		c.Noise = new.Noise.Tuning()
	}
	if old.LogLevel != new.LogLevel {
		c.LogLevelChanged = true
		c.LogLevel = new.LogLevel
	}

	if old.Audio != new.Audio {
		c.Restart = append(c.Restart, "audio")
	}
	if old.Detector != new.Detector {
		c.Restart = append(c.Restart, "detector")
	}
	if !equalTuning(old.Tuning, new.Tuning) {
		c.Restart = append(c.Restart, "tuning")
	}
	if old.Metrics != new.Metrics {
		c.Restart = append(c.Restart, "metrics")
	}
	return c
}

func equalTuning(a, b TuningConfig) bool {
	return a.Instrument == b.Instrument &&
		a.Target == b.Target &&
		a.AutoAdvance == b.AutoAdvance &&
		slices.Equal(a.Strings, b.Strings)
}

// Slog maps l to the slog level; unknown levels map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}
