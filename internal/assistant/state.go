package assistant

import (
	"time"

	"trafficaz/internal/intent"
)

// State is the dispatcher lifecycle state.
type State int32

const (
	StateInactive State = iota
	StateListening
	StateAwake
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateListening:
		return "listening"
	case StateAwake:
		return "awake"
	default:
		return "unknown"
	}
}

// Outcome is how a command turn ended.
type Outcome string

const (
	OutcomeHandled Outcome = "handled"
	OutcomeFailed  Outcome = "failed"
	OutcomeNoMatch Outcome = "no_match"
)

// Resolution describes one finished command turn.
type Resolution struct {
	Session    uint64
	Intent     intent.Name
	Pattern    string
	Transcript string
	Classified bool // intent chosen by the classifier, not a pattern
	Outcome    Outcome
	Err        error
	At         time.Time
	Duration   time.Duration
}
