package audio

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/go-audio/wav"
)

// Errors
var (
	ErrInvalidWAV     = errors.New("not a valid wav file")
	ErrUnsupportedWAV = errors.New("unsupported wav encoding")
)

// Clip is a decoded mono recording
type Clip struct {
	Samples    []float32
	SampleRate int
}

// ReadWAV decodes a PCM WAV stream, averaging channels to mono and scaling
// integer samples to [-1, 1].
func ReadWAV(r io.ReadSeeker) (*Clip, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buffer.Format == nil || buffer.Format.SampleRate <= 0 {
		return nil, ErrInvalidWAV
	}

	depth := buffer.SourceBitDepth
	if depth == 0 {
		depth = int(decoder.BitDepth)
	}
	if depth != 16 && depth != 24 && depth != 32 {
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedWAV, depth)
	}

	channels := max(1, buffer.Format.NumChannels)
	scale := float32(int64(1) << (depth - 1))
	samples := make([]float32, len(buffer.Data)/channels)
	for i := range samples {
		sum := float32(0)
		for ch := 0; ch < channels; ch++ {
			sum += float32(buffer.Data[i*channels+ch])
		}
		samples[i] = clip(sum / float32(channels) / scale)
	}

	return &Clip{Samples: samples, SampleRate: buffer.Format.SampleRate}, nil
}

// Frames splits the clip into consecutive frames of frameSize samples. A
// trailing partial frame is dropped.
func (c *Clip) Frames(frameSize int) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for chunk := range slices.Chunk(c.Samples, frameSize) {
			if len(chunk) < frameSize {
				return
			}
			if !yield(Frame{Samples: chunk, SampleRate: c.SampleRate}) {
				return
			}
		}
	}
}

// FrameCount returns how many full frames Frames yields
func (c *Clip) FrameCount(frameSize int) int {
	return len(c.Samples) / frameSize
}

// WAVSource replays a decoded clip in real time, one frame per frame period
type WAVSource struct {
	*timedSource
	clip *Clip
	pos  int
}

// NewWAVSource creates a source over clip. When loop is set playback wraps
// around at the end, otherwise delivery stops after the last full frame
// followed by one frame of silence.
func NewWAVSource(clip *Clip, frameSize int, loop bool) *WAVSource {
	s := &WAVSource{clip: clip}
	s.timedSource = &timedSource{
		interval: frameInterval(frameSize, clip.SampleRate),
		next: func() (Frame, bool) {
			if s.pos+frameSize > len(s.clip.Samples) {
				if !loop || len(s.clip.Samples) < frameSize {
					return Frame{}, false
				}
				s.pos = 0
			}
			samples := slices.Clone(s.clip.Samples[s.pos : s.pos+frameSize])
			s.pos += frameSize
			return Frame{Samples: samples, SampleRate: s.clip.SampleRate}, true
		},
	}
	return s
}
