package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficaz/internal/assistant"
	"trafficaz/internal/intent"
	tlog "trafficaz/internal/log"
	"trafficaz/internal/speech"
	"trafficaz/pkg/protocol"
)

type captureSender struct{ frames chan string }

func (c *captureSender) Send(m *protocol.Message) error {
	c.frames <- m.String()
	return nil
}

type stubController struct {
	state assistant.State
	err   error
}

func (s *stubController) Start(context.Context) error { s.state = assistant.StateListening; return s.err }
func (s *stubController) Stop(context.Context) error { s.state = assistant.StateInactive; return s.err }
func (s *stubController) Wake(context.Context) error { return s.err }
func (s *stubController) State() assistant.State { return s.state }

func TestTranslate(t *testing.T) {
	tests := []struct {
		ev   assistant.Event
		want string
	}{
		{assistant.Event{Type: assistant.EventWake, Session: 3}, "ALL:WAKE:SESSION:3:TRAFFICAZ"},
		{assistant.Event{Type: assistant.EventState, State: "awake"}, "ALL:STATE:AWAKE:TRAFFICAZ"},
		{assistant.Event{Type: assistant.EventResolved, Intent: intent.TrafficQuery, Outcome: assistant.OutcomeHandled}, "ALL:RESOLVED:TRAFFIC_QUERY:handled:TRAFFICAZ"},
		{assistant.Event{Type: assistant.EventResolved, Outcome: assistant.OutcomeNoMatch}, "ALL:RESOLVED:NONE:no_match:TRAFFICAZ"},
		{assistant.Event{Type: assistant.EventNavigate, Screen: "map"}, "ALL:NAVIGATE:MAP:TRAFFICAZ"},
	}
	for _, tt := range tests {
		m, ok := Translate(tt.ev, "TRAFFICAZ")
		require.True(t, ok, tt.want)
		require.NoError(t, m.Validate())
		assert.Equal(t, tt.want, m.String())
	}

	_, ok := Translate(assistant.Event{Type: assistant.EventTimeout}, "TRAFFICAZ")
	assert.False(t, ok)
}

func TestHandle(t *testing.T) {
	out := &captureSender{frames: make(chan string, 8)}
	ctrl := &stubController{}
	b := New(out, ctrl, "TRAFFICAZ", tlog.Discard())
	ctx := context.Background()

	b.Handle(ctx, &protocol.Message{To: "TRAFFICAZ", Verb: "START", Noun: "VOICE", From: "HUB"})
	assert.Equal(t, "HUB:OK:VOICE:listening:TRAFFICAZ", <-out.frames)

	b.Handle(ctx, &protocol.Message{To: "TRAFFICAZ", Verb: "DANCE", Noun: "VOICE", From: "HUB"})
	assert.Equal(t, "HUB:ERR:UNKNOWN_VERB:DANCE:TRAFFICAZ", <-out.frames)

	ctrl.err = assistant.ErrInactive
	b.Handle(ctx, &protocol.Message{To: "TRAFFICAZ", Verb: "WAKE", Noun: "VOICE", From: "0A"})
	assert.Equal(t, "0A:ERR:INACTIVE:TRAFFICAZ", <-out.frames)

	ctrl.err = errors.New("mic unplugged")
	b.Handle(ctx, &protocol.Message{To: "TRAFFICAZ", Verb: "START", Noun: "VOICE", From: "HUB"})
	assert.Equal(t, "HUB:ERR:FAILED:TRAFFICAZ", <-out.frames)

	// broadcasts are not commands
	b.Handle(ctx, &protocol.Message{To: protocol.Broadcast, Verb: "STOP", Noun: "VOICE", From: "HUB"})
	assert.Len(t, out.frames, 0)
}

func TestForwardDispatcherEvents(t *testing.T) {
	table, err := intent.NewTable([]intent.Entry{{
		Intent:   intent.WeatherQuery,
		Patterns: []string{"weather"},
		Handler:  func(context.Context, intent.Request) error { return nil },
	}})
	require.NoError(t, err)

	feed := speech.NewFeed()
	d, err := assistant.New(assistant.DefaultConfig(), assistant.Deps{
		Table:      table,
		Recognizer: feed,
		Speaker:    speech.SpeakerFunc(func(context.Context, string, speech.Settings) error { return nil }),
		Logger:     tlog.Discard(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	out := &captureSender{frames: make(chan string, 16)}
	events, unsubscribe := d.Subscribe()
	defer unsubscribe()
	go func() { _ = New(out, d, "TRAFFICAZ", tlog.Discard()).Forward(ctx, events) }()

	require.NoError(t, d.Start(ctx))
	require.NoError(t, feed.Push("hey trafficaz weather", true))

	want := []string{
		"ALL:STATE:LISTENING:TRAFFICAZ",
		"ALL:STATE:AWAKE:TRAFFICAZ",
		"ALL:WAKE:SESSION:1:TRAFFICAZ",
		"ALL:RESOLVED:WEATHER_QUERY:handled:TRAFFICAZ",
	}
	for _, w := range want {
		select {
		case got := <-out.frames:
			assert.Equal(t, w, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("missing frame %s", w)
		}
	}
}
