// Package audio captures microphone utterances and ducks other playback
// while the assistant speaks.
package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

type RecorderConfig struct {
	SampleRate int
	FrameSize  int           // samples per read
	SilenceRMS float64       // frames at or below are silence
	Trailing   time.Duration // silence that ends an utterance
	MaxLength  time.Duration
}

func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		SampleRate: 16000,
		FrameSize:  320, // 20ms
		SilenceRMS: 0.015,
		Trailing:   600 * time.Millisecond,
		MaxLength:  10 * time.Second,
	}
}

// Recorder reads utterances from the default input device.
type Recorder struct {
	cfg RecorderConfig

	mu     sync.Mutex
	opened bool
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	def := DefaultRecorderConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = def.FrameSize
	}
	if cfg.SilenceRMS <= 0 {
		cfg.SilenceRMS = def.SilenceRMS
	}
	if cfg.Trailing <= 0 {
		cfg.Trailing = def.Trailing
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = def.MaxLength
	}
	return &Recorder{cfg: cfg}
}

// Open initialises portaudio. It is safe to call more than once.
func (r *Recorder) Open() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opened {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	r.opened = true
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.opened {
		return nil
	}
	r.opened = false
	return portaudio.Terminate()
}

// Record blocks until one utterance has been captured: speech followed by
// the trailing silence, or MaxLength. Leading silence is dropped. Record
// returns no samples if ctx ends before anyone speaks.
func (r *Recorder) Record(ctx context.Context) ([]float32, error) {
	if err := r.Open(); err != nil {
		return nil, err
	}

	buf := make([]float32, r.cfg.FrameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.cfg.SampleRate), len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	seg := newSegmenter(r.cfg)
	for !seg.done() {
		if err := ctx.Err(); err != nil {
			return seg.samples(), err
		}
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input stream: %w", err)
		}
		seg.push(buf)
	}
	return seg.samples(), nil
}

// segmenter cuts one utterance out of a frame stream by RMS level.
type segmenter struct {
	threshold   float64
	trailFrames int
	maxFrames   int
	frames      int
	silent      int
	speaking    bool
	finished    bool
	out         []float32
}

func newSegmenter(cfg RecorderConfig) *segmenter {
	frameDur := time.Duration(cfg.FrameSize) * time.Second / time.Duration(cfg.SampleRate)
	return &segmenter{
		threshold:   cfg.SilenceRMS,
		trailFrames: max(int(cfg.Trailing/frameDur), 1),
		maxFrames:   max(int(cfg.MaxLength/frameDur), 1),
		out:         make([]float32, 0, cfg.SampleRate*3),
	}
}

func (s *segmenter) push(frame []float32) {
	if s.finished {
		return
	}
	s.frames++

	if frameRMS(frame) > s.threshold {
		s.speaking = true
		s.silent = 0
		s.out = append(s.out, frame...)
	} else if s.speaking {
		s.silent++
		s.out = append(s.out, frame...)
		if s.silent >= s.trailFrames {
			s.finished = true
		}
	}

	if s.frames >= s.maxFrames {
		s.finished = true
	}
}

func (s *segmenter) done() bool { return s.finished }

func (s *segmenter) samples() []float32 { return s.out }

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var sum float64
	for _, x := range f {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum / float64(len(f)))
}
