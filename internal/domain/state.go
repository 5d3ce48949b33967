package domain

import (
	"fmt"
	"time"
)

// State is the closed set of session states. Each variant carries only the
// timestamps that are legal in that state.
type State interface {
	Status() SessionStatus
	sealed()
}

type Running struct{}

type Paused struct {
	Since time.Time
}

type Completed struct {
	EndedAt time.Time
}

type Cancelled struct {
	EndedAt time.Time
}

func (Running) Status() SessionStatus   { return StatusRunning }
func (Paused) Status() SessionStatus    { return StatusPaused }
func (Completed) Status() SessionStatus { return StatusCompleted }
func (Cancelled) Status() SessionStatus { return StatusCancelled }

func (Running) sealed()   {}
func (Paused) sealed()    {}
func (Completed) sealed() {}
func (Cancelled) sealed() {}

// StateFromColumns rebuilds a State from its flattened storage form,
// rejecting combinations that violate the pause/end invariants.
func StateFromColumns(status SessionStatus, pauseStartedAt, endTime *time.Time) (State, error) {
	switch status {
	case StatusRunning:
		if pauseStartedAt != nil || endTime != nil {
			return nil, fmt.Errorf("running session must not carry pause or end timestamps")
		}
		return Running{}, nil
	case StatusPaused:
		if pauseStartedAt == nil || endTime != nil {
			return nil, fmt.Errorf("paused session requires a pause timestamp and no end time")
		}
		return Paused{Since: *pauseStartedAt}, nil
	case StatusCompleted, StatusCancelled:
		if pauseStartedAt != nil || endTime == nil {
			return nil, fmt.Errorf("%s session requires an end time and no pause timestamp", status)
		}
		if status == StatusCompleted {
			return Completed{EndedAt: *endTime}, nil
		}
		return Cancelled{EndedAt: *endTime}, nil
	default:
		return nil, fmt.Errorf("unknown session status %q", status)
	}
}
