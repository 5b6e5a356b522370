package ipc

import (
	"context"
	"fmt"

	"trafficaz/internal/assistant"
	"trafficaz/internal/speech"
)

// Controller is the slice of the dispatcher the control socket drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Wake(ctx context.Context) error
	Hear(text string, final bool)
	State() assistant.State
	Session() uint64
	Settings() speech.Settings
}

// Commands returns the handler for start, stop, wake, say, hear and status.
func Commands(ctrl Controller, speaker speech.Speaker) Handler {
	return func(ctx context.Context, req Request) Reply {
		var err error
		switch req.Cmd {
		case "start":
			err = ctrl.Start(ctx)
		case "stop":
			err = ctrl.Stop(ctx)
		case "wake":
			err = ctrl.Wake(ctx)
		case "status":
		case "hear":
			if req.Text == "" {
				err = fmt.Errorf("hear needs text")
				break
			}
			ctrl.Hear(req.Text, true)
		case "say":
			if req.Text == "" {
				err = fmt.Errorf("say needs text")
				break
			}
			err = speaker.Speak(ctx, req.Text, ctrl.Settings())
		default:
			err = fmt.Errorf("unknown command %q", req.Cmd)
		}

		reply := Reply{OK: err == nil, State: ctrl.State().String(), Session: ctrl.Session()}
		if err != nil {
			reply.Error = err.Error()
		}
		return reply
	}
}
