package domain

import (
	"fmt"
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
)

// Apply runs action against s and returns the resulting snapshot. s itself
// is never modified. Illegal pairs fail with an INVALID_TRANSITION error
// naming the current status and the requested action.
func Apply(s *TimeSession, action Action, now time.Time) (*TimeSession, error) {
	now = Truncate(now)
	next := s.Clone()

	switch st := s.State.(type) {
	case Running:
		switch action {
		case ActionPause:
			next.State = Paused{Since: now}
		case ActionStop:
			next.State = Completed{EndedAt: now}
		case ActionCancel:
			next.State = Cancelled{EndedAt: now}
		default:
			return nil, invalidTransition(s, action)
		}
	case Paused:
		switch action {
		case ActionResume:
			next.PausedDuration += nonNegative(now.Sub(st.Since))
			next.State = Running{}
		case ActionStop:
			next.PausedDuration += nonNegative(now.Sub(st.Since))
			next.State = Completed{EndedAt: now}
		case ActionCancel:
			next.PausedDuration += nonNegative(now.Sub(st.Since))
			next.State = Cancelled{EndedAt: now}
		default:
			return nil, invalidTransition(s, action)
		}
	default:
		return nil, invalidTransition(s, action)
	}

	next.UpdatedAt = now
	return next, nil
}

// CanApply reports whether action is legal from s's current state.
func CanApply(s *TimeSession, action Action) bool {
	_, err := Apply(s, action, s.UpdatedAt)
	return err == nil
}

func invalidTransition(s *TimeSession, action Action) error {
	return apperr.WithMetadata(apperr.CodeInvalidTransition,
		fmt.Sprintf("cannot %s a %s session", action, s.Status()),
		map[string]string{
			"session_id": s.ID,
			"status":     string(s.Status()),
			"action":     string(action),
		})
}
