package tuning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/0xlemi/timpletune/internal/audio"
	"github.com/0xlemi/timpletune/internal/fanout"
	"github.com/0xlemi/timpletune/internal/observe"
	"github.com/0xlemi/timpletune/internal/pitch"
)

// ErrNoSource is returned by Start on a session built without a source
var ErrNoSource = errors.New("session has no audio source")

// State is the lifecycle state of a Session
type State int

const (
	StateIdle State = iota
	StateRunning
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithDetector replaces the NSDF pitch detector
func WithDetector(d pitch.Detector) Option {
	return func(s *Session) { s.detector = d }
}

// WithMetrics records per-frame and lifecycle metrics
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session turns the frames of an audio source into readings and publishes
// them to its observers. Frames are handled synchronously on the source's
// delivery goroutine, one at a time.
type Session struct {
	source   audio.Source
	catalog  Catalog
	noise    *LiveNoiseConfig
	detector pitch.Detector
	logger   *slog.Logger
	metrics  *observe.Metrics

	observers fanout.Registry[Reading]

	// lifecycle serialises Start and Stop, which may block on the device.
	lifecycle sync.Mutex

	mu          sync.Mutex
	state       State
	unsubscribe func()
	last        *Reading
	pinned      *ReferenceString
}

// NewSession creates an idle session reading from source and matching
// against catalog. source may be nil when frames are only fed through
// Process. A nil noise config uses DefaultNoiseConfig.
func NewSession(source audio.Source, catalog Catalog, noise *LiveNoiseConfig, opts ...Option) (*Session, error) {
	if catalog.Len() == 0 {
		return nil, ErrEmptyCatalog
	}
	if noise == nil {
		noise = NewLiveNoiseConfig(DefaultNoiseConfig())
	}

	s := &Session{
		source:   source,
		catalog:  catalog,
		noise:    noise,
		detector: pitch.NSDFDetector{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start subscribes to the source and starts it. Starting a running session
// is a no-op. If the source fails to start the error is returned and the
// session stays idle.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.State() == StateRunning {
		return nil
	}
	if s.source == nil {
		return ErrNoSource
	}

	unsubscribe := s.source.Subscribe(s.onFrame)
	if err := s.source.Start(ctx); err != nil {
		unsubscribe()
		s.logger.Warn("audio source failed to start", "error", err)
		return fmt.Errorf("start audio source: %w", err)
	}

	s.mu.Lock()
	s.state = StateRunning
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SessionStarted(ctx)
	}
	s.logger.Info("tuning session started", "strings", s.catalog.Len())
	return nil
}

// Stop unsubscribes from the source, stops it and clears the last reading.
// Stopping an idle session is a no-op. A frame already being processed may
// still publish one reading to observers.
func (s *Session) Stop() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	s.state = StateIdle
	s.last = nil
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	// The source is stopped outside mu: it waits for its delivery goroutine,
	// which may be inside onFrame.
	unsubscribe()
	err := s.source.Stop()

	if s.metrics != nil {
		s.metrics.SessionStopped(context.Background())
	}
	if err != nil {
		s.logger.Warn("audio source failed to stop cleanly", "error", err)
		return fmt.Errorf("stop audio source: %w", err)
	}
	s.logger.Info("tuning session stopped")
	return nil
}

// State returns the lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers an observer for readings. Observers run on the
// source's delivery goroutine and should return quickly.
func (s *Session) Subscribe(fn func(Reading)) (unsubscribe func()) {
	return s.observers.Subscribe(fn)
}

// Last returns the most recent reading of the running session
func (s *Session) Last() (Reading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Reading{}, false
	}
	return *s.last, true
}

// Pin makes the string with the given id the explicit target of every
// following reading.
func (s *Session) Pin(id string) error {
	str, ok := s.catalog.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownString, id)
	}

	s.mu.Lock()
	s.pinned = &str
	s.mu.Unlock()
	s.logger.Debug("target pinned", "string", id)
	return nil
}

// Unpin returns to matching the nearest string of the catalog
func (s *Session) Unpin() {
	s.mu.Lock()
	s.pinned = nil
	s.mu.Unlock()
	s.logger.Debug("target unpinned")
}

// Target returns the pinned string, if any
func (s *Session) Target() (ReferenceString, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pinned == nil {
		return ReferenceString{}, false
	}
	return *s.pinned, true
}

// Catalog returns the reference strings the session matches against
func (s *Session) Catalog() Catalog {
	return s.catalog
}

// NoiseConfig returns the noise gates currently in effect
func (s *Session) NoiseConfig() NoiseConfig {
	return s.noise.Load()
}

// SetNoiseConfig replaces the noise gates. The next classified frame uses
// the new values.
func (s *Session) SetNoiseConfig(cfg NoiseConfig) error {
	if err := s.noise.Store(cfg); err != nil {
		return err
	}
	s.logger.Info("noise gates updated",
		"min_volume", cfg.MinVolumeThreshold,
		"min_confidence", cfg.MinConfidenceThreshold,
	)
	return nil
}

// Process runs one frame through detection, quality estimation, matching
// and classification. It neither stores nor publishes the reading.
func (s *Session) Process(frame audio.Frame) Reading {
	start := time.Now()

	hz, ok := s.detector.Detect(frame.Samples, frame.SampleRate)
	volume := pitch.Volume(frame.Samples)
	confidence := pitch.Confidence(frame.Samples, ok)

	var (
		detected *float64
		matched  *ReferenceString
		targetHz float64
	)
	if ok {
		detected = &hz
		str := s.targetFor(hz)
		matched = &str
		targetHz = str.FrequencyHz
	}

	reading := Classify(detected, targetHz, s.noise.Load(), confidence, volume, matched)

	if s.metrics != nil {
		s.metrics.RecordReading(context.Background(), string(reading.Status), time.Since(start))
	}
	return reading
}

// targetFor returns the pinned string or the catalog entry nearest to hz
func (s *Session) targetFor(hz float64) ReferenceString {
	if str, ok := s.Target(); ok {
		return str
	}
	return Closest(hz, s.catalog)
}

func (s *Session) onFrame(frame audio.Frame) {
	reading := s.Process(frame)

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.last = &reading
	s.mu.Unlock()

	if reading.Frequency != nil {
		s.logger.Debug("reading", "status", reading.Status, "hz", *reading.Frequency)
	}
	s.observers.Publish(reading)
}
