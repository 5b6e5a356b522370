package assistant

import (
	"context"

	"trafficaz/internal/speech"
)

// event is anything the Run loop consumes.
type event interface{ isEvent() }

type command int

const (
	cmdStart command = iota
	cmdStop
	cmdWake
)

type request struct {
	cmd   command
	ctx   context.Context
	reply chan error
}

type heard struct{ result speech.Result }

type recognizerFailed struct{ err error }

type restartDue struct{ gen uint64 }

type resetDue struct{ session uint64 }

type awakeExpired struct{ session uint64 }

type turnExpired struct{ turn uint64 }

type resolved struct {
	res  Resolution
	turn uint64
}

func (request) isEvent()          {}
func (heard) isEvent()            {}
func (recognizerFailed) isEvent() {}
func (restartDue) isEvent()       {}
func (resetDue) isEvent()         {}
func (awakeExpired) isEvent()     {}
func (turnExpired) isEvent()      {}
func (resolved) isEvent()         {}
