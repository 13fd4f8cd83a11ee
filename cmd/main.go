// Command timpletune is a terminal string tuner.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xlemi/timpletune/internal/audio"
	"github.com/0xlemi/timpletune/internal/config"
	"github.com/0xlemi/timpletune/internal/observe"
	"github.com/0xlemi/timpletune/internal/pitch"
	"github.com/0xlemi/timpletune/internal/tuning"
	"github.com/0xlemi/timpletune/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// options holds command line flags. They override the config file.
type options struct {
	configPath  string
	source      string
	wavPath     string
	toneHz      float64
	detector    string
	logLevel    string
	logFile     string
	metricsFile string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "timpletune",
		Short:        "Tune a timple, guitar or ukulele from the terminal",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTuner(cmd.Context(), cmd.Flags(), opts)
		},
	}
	bindFlags(cmd.PersistentFlags(), opts)
	cmd.AddCommand(newAnalyzeCommand(opts))
	return cmd
}

func bindFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	fs.StringVar(&opts.source, "source", "", "audio source: microphone, tone or wav")
	fs.StringVar(&opts.wavPath, "wav", "", "WAV file for the wav source")
	fs.Float64Var(&opts.toneHz, "tone-hz", 0, "frequency of the tone source")
	fs.StringVar(&opts.detector, "detector", "", "pitch detector: nsdf or fft")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&opts.logFile, "log-file", "", "write logs to this file")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
}

// loadConfig reads the config file, if any, and applies the flags that were
// set explicitly.
func loadConfig(fs *pflag.FlagSet, opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}

	if fs.Changed("source") {
		cfg.Audio.Source = config.SourceKind(opts.source)
	}
	if fs.Changed("wav") {
		cfg.Audio.WAVPath = opts.wavPath
		if !fs.Changed("source") {
			cfg.Audio.Source = config.SourceWAV
		}
	}
	if fs.Changed("tone-hz") {
		cfg.Audio.ToneHz = opts.toneHz
	}
	if fs.Changed("detector") {
		cfg.Detector = config.DetectorKind(opts.detector)
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = config.LogLevel(opts.logLevel)
	}
	if fs.Changed("metrics-file") {
		cfg.Metrics.Textfile = opts.metricsFile
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. Without a log file the logger writes
// to fallback.
func newLogger(level slog.Leveler, path string, fallback io.Writer) (*slog.Logger, func() error, error) {
	out, closer := fallback, func() error { return nil }
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f.Close
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), closer, nil
}

func newSource(cfg *config.Config, logger *slog.Logger) (audio.Source, error) {
	a := cfg.Audio
	switch a.Source {
	case config.SourceTone:
		return audio.NewToneSource(a.ToneHz, a.SampleRate, a.FrameSize), nil
	case config.SourceWAV:
		clip, err := readClip(a.WAVPath)
		if err != nil {
			return nil, err
		}
		return audio.NewWAVSource(clip, a.FrameSize, a.Loop), nil
	default:
		mic := audio.NewPortAudioSource(a.FrameSize, a.SampleRate, a.Channels, logger)
		mic.SetGain(float32(a.InputGain))
		return mic, nil
	}
}

func newDetector(kind config.DetectorKind) pitch.Detector {
	if kind == config.DetectorFFT {
		return pitch.NewFFTDetector()
	}
	return pitch.NSDFDetector{}
}

func readClip(path string) (*audio.Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	clip, err := audio.ReadWAV(f)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return clip, nil
}

// newPipeline builds the metrics provider and the tuning session for cfg.
func newPipeline(cfg *config.Config, source audio.Source, logger *slog.Logger) (*tuning.Session, *observe.Provider, error) {
	provider, err := observe.InitProvider()
	if err != nil {
		return nil, nil, err
	}
	metrics, err := observe.NewMetrics(provider.MeterProvider)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, nil, err
	}

	session, err := tuning.NewSession(source, catalog,
		tuning.NewLiveNoiseConfig(cfg.Noise.Tuning()),
		tuning.WithLogger(logger),
		tuning.WithDetector(newDetector(cfg.Detector)),
		tuning.WithMetrics(metrics),
	)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Tuning.Target != "" {
		if err := session.Pin(cfg.Tuning.Target); err != nil {
			return nil, nil, err
		}
	}
	return session, provider, nil
}

// finishMetrics writes the metrics textfile, if configured, and shuts the
// provider down.
func finishMetrics(provider *observe.Provider, path string, logger *slog.Logger) error {
	var err error
	if path != "" {
		if err = provider.WriteTextfile(path); err == nil {
			logger.Info("metrics written", "path", path)
		}
	}
	return errors.Join(err, provider.Shutdown(context.Background()))
}

// applyChanges hands a live config edit to the running tuner. Rejected
// noise gates leave the session and the UI unchanged.
func applyChanges(ch config.Changes, session *tuning.Session, level *slog.LevelVar, send func(tea.Msg), logger *slog.Logger) {
	if ch.LogLevelChanged {
		level.Set(ch.LogLevel.Slog())
	}
	if ch.NoiseChanged {
		if err := session.SetNoiseConfig(ch.Noise); err != nil {
			logger.Warn("ignoring reloaded noise gates", "error", err)
			return
		}
		send(ui.NoiseConfigMsg(ch.Noise))
	}
}

func runTuner(ctx context.Context, fs *pflag.FlagSet, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(fs, opts)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file or nowhere.
	var level slog.LevelVar
	level.Set(cfg.LogLevel.Slog())
	logger, closeLog, err := newLogger(&level, opts.logFile, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	source, err := newSource(cfg, logger)
	if err != nil {
		return err
	}
	session, provider, err := newPipeline(cfg, source, logger)
	if err != nil {
		return err
	}

	tones := audio.NewTonePlayer(cfg.Audio.SampleRate, logger)
	defer func() {
		if err := tones.Close(); err != nil {
			logger.Warn("closing tone output", "error", err)
		}
	}()

	if err := session.Start(ctx); err != nil {
		return err
	}
	logger.Info("tuner running",
		"source", cfg.Audio.Source,
		"detector", cfg.Detector,
		"strings", session.Catalog().Len(),
	)

	model := ui.NewModel(ctx, session, tones, cfg.Tuning.AutoAdvance)
	p := tea.NewProgram(model, tea.WithAltScreen())

	unsubscribe := session.Subscribe(func(r tuning.Reading) {
		p.Send(ui.ReadingMsg(r))
	})

	var watcher *config.Watcher
	if opts.configPath != "" {
		watcher, err = config.NewWatcher(opts.configPath, func(ch config.Changes) {
			if fs.Changed("log-level") {
				ch.LogLevelChanged = false
			}
			applyChanges(ch, session, &level, p.Send, logger)
		}, config.WithLogger(logger))
		if err != nil {
			unsubscribe()
			return errors.Join(err, session.Stop())
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		p.Quit()
		return nil
	})
	if watcher != nil {
		g.Go(func() error {
			watcher.Run(gctx)
			return nil
		})
	}
	runErr := g.Wait()

	unsubscribe()
	stopErr := session.Stop()
	return errors.Join(runErr, stopErr, finishMetrics(provider, cfg.Metrics.Textfile, logger))
}
