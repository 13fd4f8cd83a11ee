// Package mock provides a test double for [audio.Source].
//
// The mock delivers frames only when the test calls Emit, so frame handling
// runs synchronously on the test goroutine.
package mock

import (
	"context"
	"sync"

	"github.com/0xlemi/timpletune/internal/audio"
	"github.com/0xlemi/timpletune/internal/fanout"
)

// Source is a mock implementation of audio.Source. It is safe for
// concurrent use and records every Start and Stop call.
type Source struct {
	// StartErr is returned by Start when non-nil; the source stays stopped.
	StartErr error

	// StopErr is returned by Stop when non-nil.
	StopErr error

	handlers fanout.Registry[audio.Frame]

	mu         sync.Mutex
	running    bool
	startCalls int
	stopCalls  int
}

// Start records the call and marks the source running.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startCalls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.StartErr != nil {
		return s.StartErr
	}
	if s.running {
		return audio.ErrAlreadyStarted
	}
	s.running = true
	return nil
}

// Stop records the call and marks the source stopped.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCalls++
	if !s.running {
		return audio.ErrNotStarted
	}
	s.running = false
	return s.StopErr
}

// Subscribe registers a frame handler.
func (s *Source) Subscribe(h audio.FrameHandler) func() {
	return s.handlers.Subscribe(h)
}

// Emit delivers frame to every subscribed handler, whether or not the source
// is running.
func (s *Source) Emit(frame audio.Frame) {
	s.handlers.Publish(frame)
}

// Subscribers returns the number of registered handlers.
func (s *Source) Subscribers() int {
	return s.handlers.Len()
}

// Running reports whether Start succeeded more recently than Stop.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Calls returns how often Start and Stop were called.
func (s *Source) Calls() (start, stop int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startCalls, s.stopCalls
}
