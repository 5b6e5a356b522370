// Package stt transcribes 16 kHz mono PCM with a local whisper.cpp model.
package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

type Options struct {
	Language      string // "auto", "en", "fr"...
	Translate     bool
	Threads       int    // <=0 means NumCPU
	InitialPrompt string
	BeamSize      int    // >0 enables beam search
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Transcriber struct {
	opts Options

	mu    sync.Mutex // one inference at a time per model
	model whisper.Model
}

func NewTranscriber(modelPath string, opts Options) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if opts.Language == "" {
		opts.Language = "auto"
	}
	if opts.Threads <= 0 {
		opts.Threads = runtime.NumCPU()
	}
	return &Transcriber{model: m, opts: opts}, nil
}

func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return nil
	}
	err := t.model.Close()
	t.model = nil
	return err
}

// Transcribe returns the joined text of all segments.
func (t *Transcriber) Transcribe(ctx context.Context, pcm16k []float32) (string, error) {
	segs, err := t.Segments(ctx, pcm16k)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " "), nil
}

// Segments runs the model over pcm16k, mono float32 in [-1, 1].
func (t *Transcriber) Segments(ctx context.Context, pcm16k []float32) ([]Segment, error) {
	if len(pcm16k) == 0 {
		return nil, errors.New("no audio samples provided")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return nil, errors.New("transcriber closed")
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	if err := wctx.SetLanguage(t.opts.Language); err != nil {
		return nil, fmt.Errorf("set language %q: %w", t.opts.Language, err)
	}
	wctx.SetTranslate(t.opts.Translate)
	wctx.SetThreads(uint(t.opts.Threads))
	if t.opts.InitialPrompt != "" {
		wctx.SetInitialPrompt(t.opts.InitialPrompt)
	}
	if t.opts.BeamSize > 0 {
		wctx.SetBeamSize(t.opts.BeamSize)
	}

	if err := wctx.Process(pcm16k, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}

	var segs []Segment
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			return segs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("next segment: %w", err)
		}
		segs = append(segs, Segment{
			Text:     s.Text,
			StartSec: s.Start.Seconds(),
			EndSec:   s.End.Seconds(),
		})
	}
}
