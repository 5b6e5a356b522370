// Package speech holds the transport between the dispatcher and the
// platform speech engines: recognizers that produce transcripts and speakers
// that voice replies.
package speech

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned when the microphone can't be opened.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrNotListening is returned when a transcript is pushed to a stopped feed.
	ErrNotListening = errors.New("recognizer is not listening")
)

// Settings is the voice used for every spoken reply.
type Settings struct {
	Language string  `json:"language" yaml:"language"`
	Pitch    float64 `json:"pitch" yaml:"pitch"`
	Rate     float64 `json:"rate" yaml:"rate"`
	Voice    string  `json:"voice,omitempty" yaml:"voice"`
}

// DefaultSettings mirrors the stock voice of the mobile app.
func DefaultSettings() Settings {
	return Settings{
		Language: "en-US",
		Pitch:    1.0,
		Rate:     0.9,
	}
}

// Validate rejects settings no speech engine can use.
func (s Settings) Validate() error {
	if s.Language == "" {
		return errors.New("language is required")
	}
	if s.Rate <= 0 || s.Rate > 4 {
		return fmt.Errorf("rate %.2f out of range (0, 4]", s.Rate)
	}
	if s.Pitch < 0 || s.Pitch > 2 {
		return fmt.Errorf("pitch %.2f out of range [0, 2]", s.Pitch)
	}
	return nil
}

// Result is one recognizer output. Partial results may be followed by more
// text for the same utterance; a final result closes it.
type Result struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Recognizer turns audio into transcripts. Start must not block: results and
// errors are delivered through the callbacks until Stop is called.
type Recognizer interface {
	Start(ctx context.Context, onResult func(Result), onError func(error)) error
	Stop() error
}

// Speaker voices text.
type Speaker interface {
	Speak(ctx context.Context, text string, s Settings) error
}

// Permissions asks the platform for microphone access.
type Permissions interface {
	RequestMicrophone(ctx context.Context) error
}

// AllowAll grants every permission request.
type AllowAll struct{}

func (AllowAll) RequestMicrophone(context.Context) error { return nil }

// SpeakerFunc adapts a function to the Speaker interface.
type SpeakerFunc func(ctx context.Context, text string, s Settings) error

func (f SpeakerFunc) Speak(ctx context.Context, text string, s Settings) error {
	return f(ctx, text, s)
}
