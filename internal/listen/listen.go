// Package listen turns microphone audio or recorded clips into transcripts
// for the dispatcher.
package listen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"trafficaz/internal/speech"
)

// Capturer records one utterance.
type Capturer interface {
	Record(ctx context.Context) ([]float32, error)
}

// Transcriber turns 16 kHz mono PCM into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

type opener interface {
	Open() error
}

// Mic is a speech.Recognizer and speech.Permissions backed by a local
// capture device and transcriber. Every recorded utterance becomes one final
// result.
type Mic struct {
	capture Capturer
	tr      Transcriber
	log     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMic(capture Capturer, tr Transcriber, logger *slog.Logger) *Mic {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mic{capture: capture, tr: tr, log: logger}
}

// RequestMicrophone opens the capture device. Any failure counts as a denied
// permission.
func (m *Mic) RequestMicrophone(context.Context) error {
	o, ok := m.capture.(opener)
	if !ok {
		return nil
	}
	if err := o.Open(); err != nil {
		return fmt.Errorf("%w: %v", speech.ErrPermissionDenied, err)
	}
	return nil
}

func (m *Mic) Start(ctx context.Context, onResult func(speech.Result), onError func(error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel, m.done = cancel, done

	go func() {
		defer close(done)
		m.loop(ctx, onResult, onError)
	}()
	return nil
}

// Stop does not wait for an in-flight transcription. Nothing is delivered
// once it returns unless the loop was already inside a callback.
func (m *Mic) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	return nil
}

// Close stops listening and waits for the capture loop to exit.
func (m *Mic) Close() error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	_ = m.Stop()
	if done != nil {
		<-done
	}
	return nil
}

func (m *Mic) loop(ctx context.Context, onResult func(speech.Result), onError func(error)) {
	for {
		pcm, err := m.capture.Record(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			onError(fmt.Errorf("record: %w", err))
			return
		}
		if len(pcm) == 0 {
			continue
		}

		text, err := m.tr.Transcribe(ctx, pcm)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			onError(fmt.Errorf("transcribe: %w", err))
			return
		}

		text = strings.TrimSpace(text)
		m.log.Debug("Transcribed utterance", "samples", len(pcm), "text", text)
		if text == "" {
			continue
		}
		onResult(speech.Result{Text: text, Final: true})
	}
}

// DecodeFunc loads a clip as 16 kHz mono PCM.
type DecodeFunc func(ctx context.Context, path string) ([]float32, error)

// Replay is a speech.Recognizer that transcribes audio files in order, once
// per Start. It is used to drive the assistant from recordings.
type Replay struct {
	files  []string
	decode DecodeFunc
	tr     Transcriber
	log    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	next   int
}

func NewReplay(files []string, decode DecodeFunc, tr Transcriber, logger *slog.Logger) (*Replay, error) {
	if len(files) == 0 {
		return nil, errors.New("no files to replay")
	}
	if decode == nil || tr == nil {
		return nil, errors.New("replay needs a decoder and a transcriber")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Replay{files: files, decode: decode, tr: tr, log: logger}, nil
}

// Start resumes from the first clip not yet delivered.
func (r *Replay) Start(ctx context.Context, onResult func(speech.Result), onError func(error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go r.play(ctx, onResult, onError)
	return nil
}

func (r *Replay) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	return nil
}

func (r *Replay) play(ctx context.Context, onResult func(speech.Result), onError func(error)) {
	for {
		path, ok := r.take(ctx)
		if !ok {
			return
		}

		pcm, err := r.decode(ctx, path)
		if err == nil {
			var text string
			text, err = r.tr.Transcribe(ctx, pcm)
			if err == nil && ctx.Err() == nil {
				r.log.Info("Replayed clip", "file", path, "text", text)
				if text = strings.TrimSpace(text); text != "" {
					onResult(speech.Result{Text: text, Final: true})
				}
				continue
			}
		}
		if ctx.Err() != nil {
			return
		}
		onError(fmt.Errorf("replay %s: %w", path, err))
		return
	}
}

func (r *Replay) take(ctx context.Context) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx.Err() != nil || r.next >= len(r.files) {
		return "", false
	}
	path := r.files[r.next]
	r.next++
	return path, true
}
