package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	// ToneDuration is how long a reference tone plays
	ToneDuration = 2 * time.Second

	toneFadeOut = 50 * time.Millisecond
)

// Oscillator is a phase-continuous sine generator
type Oscillator struct {
	Frequency  float64
	SampleRate int
	Amplitude  float32
	phase      float64
}

// NewOscillator creates a full-scale sine oscillator
func NewOscillator(frequency float64, sampleRate int) *Oscillator {
	return &Oscillator{
		Frequency:  frequency,
		SampleRate: sampleRate,
		Amplitude:  1,
	}
}

// Next returns the next sample
func (o *Oscillator) Next() float32 {
	v := o.Amplitude * float32(math.Sin(o.phase))
	o.phase += 2 * math.Pi * o.Frequency / float64(o.SampleRate)
	if o.phase >= 2*math.Pi {
		o.phase = math.Mod(o.phase, 2*math.Pi)
	}
	return v
}

// Fill writes len(buf) consecutive samples
func (o *Oscillator) Fill(buf []float32) {
	for i := range buf {
		buf[i] = o.Next()
	}
}

// Tone is a fixed-length reference tone ending in a linear fade-out
type Tone struct {
	osc       *Oscillator
	pos       int
	fadeStart int
	total     int
}

// NewTone creates a reference tone of ToneDuration at frequency
func NewTone(frequency float64, sampleRate int) *Tone {
	total := int(ToneDuration.Seconds() * float64(sampleRate))
	fade := int(toneFadeOut.Seconds() * float64(sampleRate))
	return &Tone{
		osc:       NewOscillator(frequency, sampleRate),
		fadeStart: total - fade,
		total:     total,
	}
}

// Read fills buf with the next samples of the tone, padding with silence
// after the end. It returns the number of tone samples written.
func (t *Tone) Read(buf []float32) int {
	n := 0
	for ; n < len(buf) && t.pos < t.total; n++ {
		v := t.osc.Next()
		if t.pos >= t.fadeStart {
			v *= float32(t.total-t.pos) / float32(t.total-t.fadeStart)
		}
		buf[n] = v
		t.pos++
	}
	clear(buf[n:])
	return n
}

// Done reports whether the tone has finished
func (t *Tone) Done() bool {
	return t.pos >= t.total
}

// ToneSource is a Source that emits a steady sine, one frame per frame
// period. It stands in for a microphone in demos and tests.
type ToneSource struct {
	*timedSource
	osc *Oscillator
}

// NewToneSource creates a sine source
func NewToneSource(frequency float64, sampleRate, frameSize int) *ToneSource {
	s := &ToneSource{osc: NewOscillator(frequency, sampleRate)}
	s.timedSource = &timedSource{
		interval: frameInterval(frameSize, sampleRate),
		next: func() (Frame, bool) {
			samples := make([]float32, frameSize)
			s.osc.Fill(samples)
			return Frame{Samples: samples, SampleRate: sampleRate}, true
		},
	}
	return s
}

// TonePlayer plays reference tones on the default output device. A single
// output stream is opened on first use and kept until Close.
type TonePlayer struct {
	sampleRate int
	logger     *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream

	toneMutex sync.Mutex
	tone      *Tone
	frequency float64
}

// NewTonePlayer creates a tone player
func NewTonePlayer(sampleRate int, logger *slog.Logger) *TonePlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TonePlayer{sampleRate: sampleRate, logger: logger}
}

// Play starts a reference tone at frequency, replacing any tone in progress
func (p *TonePlayer) Play(frequency float64) error {
	if err := p.open(); err != nil {
		return err
	}

	p.toneMutex.Lock()
	p.tone = NewTone(frequency, p.sampleRate)
	p.frequency = frequency
	p.toneMutex.Unlock()

	p.logger.Debug("reference tone", "hz", frequency)
	return nil
}

// Playing returns the frequency of the tone currently sounding
func (p *TonePlayer) Playing() (float64, bool) {
	p.toneMutex.Lock()
	defer p.toneMutex.Unlock()
	if p.tone == nil || p.tone.Done() {
		return 0, false
	}
	return p.frequency, true
}

func (p *TonePlayer) open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(p.sampleRate), 512, p.render)
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("start output stream: %w", err)
	}
	p.stream = stream
	return nil
}

// render is the PortAudio output callback
func (p *TonePlayer) render(out []float32) {
	p.toneMutex.Lock()
	defer p.toneMutex.Unlock()
	if p.tone == nil {
		clear(out)
		return
	}
	p.tone.Read(out)
}

// Close stops playback and releases the output device
func (p *TonePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return nil
	}

	err := errors.Join(
		p.stream.Stop(),
		p.stream.Close(),
		portaudio.Terminate(),
	)
	p.stream = nil
	return err
}
