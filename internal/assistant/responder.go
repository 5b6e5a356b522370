package assistant

import "context"

// responder is the intent.Responder handed to a handler. It is bound to the
// session the handler started in.
type responder struct {
	d       *Dispatcher
	session uint64
}

func (r *responder) Say(ctx context.Context, text string) error {
	return r.d.say(ctx, r.session, text)
}

func (r *responder) Navigate(_ context.Context, screen string) {
	if !r.d.current(r.session) {
		return
	}
	r.d.publish(Event{Type: EventNavigate, Session: r.session, Screen: screen})
}
