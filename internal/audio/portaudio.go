package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/0xlemi/timpletune/internal/fanout"
	"github.com/gordonklaus/portaudio"
)

// PortAudioSource captures microphone input using PortAudio
type PortAudioSource struct {
	handlers   fanout.Registry[Frame]
	frameSize  int
	sampleRate int
	channels   int
	logger     *slog.Logger

	mu          sync.Mutex
	isCapturing bool
	stream      *portaudio.Stream

	gainMutex sync.Mutex
	gain      float32 // Input gain applied before delivery
}

// NewPortAudioSource creates a microphone source. The device is not touched
// until Start is called.
func NewPortAudioSource(frameSize, sampleRate, channels int, logger *slog.Logger) *PortAudioSource {
	if logger == nil {
		logger = slog.Default()
	}
	if channels < 1 {
		channels = 1
	}
	return &PortAudioSource{
		frameSize:  frameSize,
		sampleRate: sampleRate,
		channels:   channels,
		logger:     logger,
		gain:       1,
	}
}

// Subscribe registers a frame handler
func (c *PortAudioSource) Subscribe(h FrameHandler) func() {
	return c.handlers.Subscribe(h)
}

// Start opens the default input device and begins capture
func (c *PortAudioSource) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isCapturing {
		return ErrAlreadyStarted
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(
		c.channels, // input channels
		0,          // output channels (we don't need output)
		float64(c.sampleRate),
		c.frameSize, // frames per buffer
		c.processAudio,
	)
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("start input stream: %w", err)
	}

	c.stream = stream
	c.isCapturing = true
	c.logger.Info("microphone capture started",
		"sample_rate", c.sampleRate,
		"frame_size", c.frameSize,
		"channels", c.channels,
	)
	return nil
}

// Stop ends capture and releases the device
func (c *PortAudioSource) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isCapturing {
		return ErrNotStarted
	}

	err := errors.Join(
		c.stream.Stop(),
		c.stream.Close(),
		portaudio.Terminate(),
	)
	c.stream = nil
	c.isCapturing = false
	c.logger.Info("microphone capture stopped")
	return err
}

// processAudio is the PortAudio callback. It builds a fresh mono frame and
// hands it to every subscriber before returning.
func (c *PortAudioSource) processAudio(in []float32) {
	c.handlers.Publish(Frame{
		Samples:    downmix(in, c.channels, c.Gain()),
		SampleRate: c.sampleRate,
	})
}

// downmix averages interleaved channels, applies gain and clips to [-1, 1]
func downmix(in []float32, channels int, gain float32) []float32 {
	mono := make([]float32, len(in)/channels)
	for i := range mono {
		sum := float32(0)
		for ch := 0; ch < channels; ch++ {
			sum += in[i*channels+ch]
		}
		mono[i] = clip(sum / float32(channels) * gain)
	}
	return mono
}

func clip(v float32) float32 {
	return max(-1, min(1, v))
}

// IsCapturing returns true if currently capturing audio
func (c *PortAudioSource) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCapturing
}

// Gain returns the current input gain
func (c *PortAudioSource) Gain() float32 {
	c.gainMutex.Lock()
	defer c.gainMutex.Unlock()
	return c.gain
}

// SetGain sets the input amplification factor
func (c *PortAudioSource) SetGain(factor float32) {
	c.gainMutex.Lock()
	defer c.gainMutex.Unlock()

	// Ensure amplification is positive
	if factor < 0.1 {
		factor = 0.1
	}

	c.gain = factor
}
