package audio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/0xlemi/timpletune/internal/fanout"
)

// Errors
var (
	ErrAlreadyStarted = errors.New("audio capture already started")
	ErrNotStarted     = errors.New("audio capture not started")
)

// Frame is one block of mono samples normalized to [-1, 1]. A frame is
// never modified once it has been delivered.
type Frame struct {
	Samples    []float32
	SampleRate int
}

// Duration returns how much audio the frame covers
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// FrameHandler receives frames from a Source
type FrameHandler func(Frame)

// Source defines the interface for a frame producer
type Source interface {
	// Start acquires the input and begins delivering frames. It may block
	// while the device is being opened.
	Start(ctx context.Context) error

	// Stop releases the input
	Stop() error

	// Subscribe registers a frame handler. Handlers are called one frame at
	// a time from the source's delivery goroutine.
	Subscribe(h FrameHandler) (unsubscribe func())
}

// timedSource delivers frames produced by next at a fixed interval. It backs
// the sources that are not driven by hardware.
type timedSource struct {
	handlers fanout.Registry[Frame]
	interval time.Duration
	next     func() (Frame, bool)

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// Subscribe registers a frame handler
func (s *timedSource) Subscribe(h FrameHandler) func() {
	return s.handlers.Subscribe(h)
}

// Start begins frame delivery
func (s *timedSource) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return ErrAlreadyStarted
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
	return nil
}

// Stop ends frame delivery and waits for the delivery goroutine to exit
func (s *timedSource) Stop() error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return ErrNotStarted
	}
	close(stop)
	<-done
	return nil
}

// IsCapturing returns true while frames are being delivered
func (s *timedSource) IsCapturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

func (s *timedSource) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last Frame
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame, ok := s.next()
			if !ok {
				// A finite source ends with one frame of silence.
				if len(last.Samples) > 0 {
					s.handlers.Publish(Frame{
						Samples:    make([]float32, len(last.Samples)),
						SampleRate: last.SampleRate,
					})
				}
				return
			}
			s.handlers.Publish(frame)
			last = frame
		}
	}
}

// frameInterval is the wall-clock time one frame of audio covers
func frameInterval(frameSize, sampleRate int) time.Duration {
	return time.Duration(frameSize) * time.Second / time.Duration(sampleRate)
}
