// Package bridge connects the dispatcher to the hub: dispatcher events are
// broadcast as protocol frames and hub commands drive the dispatcher.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"trafficaz/internal/assistant"
	"trafficaz/pkg/protocol"
)

// Sender writes a frame to the hub.
type Sender interface {
	Send(m *protocol.Message) error
}

// Controller is the part of the dispatcher the hub may drive.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Wake(ctx context.Context) error
	State() assistant.State
}

type Bridge struct {
	out   Sender
	ctrl  Controller
	shard string
	log   *slog.Logger
}

func New(out Sender, ctrl Controller, shard string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{out: out, ctrl: ctrl, shard: shard, log: logger}
}

// Forward broadcasts events until ctx is done or events is closed.
func (b *Bridge) Forward(ctx context.Context, events <-chan assistant.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m, ok := Translate(ev, b.shard)
			if !ok {
				continue
			}
			if err := b.out.Send(m); err != nil {
				b.log.Warn("Hub broadcast failed", "event", ev.Type, "err", err)
			}
		}
	}
}

// Translate maps a dispatcher event to a broadcast frame. Events the hub
// has no use for report false.
func Translate(ev assistant.Event, shard string) (*protocol.Message, bool) {
	m := &protocol.Message{To: protocol.Broadcast, From: shard}

	switch ev.Type {
	case assistant.EventWake:
		m.Verb, m.Noun, m.Args = "WAKE", "SESSION", []string{strconv.FormatUint(ev.Session, 10)}
	case assistant.EventState:
		m.Verb, m.Noun = "STATE", protocol.Token(ev.State)
	case assistant.EventResolved:
		m.Verb, m.Noun, m.Args = "RESOLVED", protocol.Token(string(ev.Intent)), []string{string(ev.Outcome)}
	case assistant.EventNavigate:
		m.Verb, m.Noun = "NAVIGATE", protocol.Token(ev.Screen)
	default:
		return nil, false
	}
	return m, true
}

// Handle answers a hub command addressed to this shard.
func (b *Bridge) Handle(ctx context.Context, in *protocol.Message) {
	if in.To != b.shard {
		return
	}

	var err error
	switch in.Verb {
	case "START":
		err = b.ctrl.Start(ctx)
	case "STOP":
		err = b.ctrl.Stop(ctx)
	case "WAKE":
		err = b.ctrl.Wake(ctx)
	case "STATUS":
	default:
		b.reply(in.Error(b.shard, "UNKNOWN_VERB", protocol.Token(in.Verb)))
		return
	}

	if err != nil {
		b.log.Warn("Hub command failed", "verb", in.Verb, "from", in.From, "err", err)
		b.reply(in.Error(b.shard, reason(err)))
		return
	}
	b.reply(in.Ok(b.shard, "VOICE", strings.ToLower(b.ctrl.State().String())))
}

func (b *Bridge) reply(m *protocol.Message) {
	if err := b.out.Send(m); err != nil {
		b.log.Warn("Hub reply failed", "err", err)
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, assistant.ErrInactive):
		return "INACTIVE"
	case errors.Is(err, assistant.ErrNotRunning):
		return "NOT_RUNNING"
	default:
		return "FAILED"
	}
}
