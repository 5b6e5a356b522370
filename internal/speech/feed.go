package speech

import (
	"context"
	"sync"
)

// Feed is a Recognizer whose transcripts are pushed in by the caller: the
// HTTP API, the websocket feed or tests.
type Feed struct {
	mu       sync.Mutex
	onResult func(Result)
	onError  func(error)
	starts   int
}

func NewFeed() *Feed { return &Feed{} }

func (f *Feed) Start(_ context.Context, onResult func(Result), onError func(error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.onResult = onResult
	f.onError = onError
	f.starts++
	return nil
}

func (f *Feed) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.onResult = nil
	f.onError = nil
	return nil
}

// Listening reports whether the feed has been started and not stopped.
func (f *Feed) Listening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onResult != nil
}

// Starts counts how many times the feed was started.
func (f *Feed) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// Push delivers a transcript.
func (f *Feed) Push(text string, final bool) error {
	f.mu.Lock()
	fn := f.onResult
	f.mu.Unlock()

	if fn == nil {
		return ErrNotListening
	}
	fn(Result{Text: text, Final: final})
	return nil
}

// Fail delivers a recognizer error.
func (f *Feed) Fail(err error) error {
	f.mu.Lock()
	fn := f.onError
	f.mu.Unlock()

	if fn == nil {
		return ErrNotListening
	}
	fn(err)
	return nil
}
