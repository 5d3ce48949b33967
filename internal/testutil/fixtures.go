package testutil

import (
	"time"

	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/google/uuid"
)

// FixedNow is the reference clock used by fixtures.
var FixedNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// Session options
type SessionOption func(*domain.TimeSession)

func WithStartTime(t time.Time) SessionOption {
	return func(s *domain.TimeSession) {
		s.StartTime = domain.Truncate(t)
		s.CreatedAt = s.StartTime
		s.UpdatedAt = s.StartTime
	}
}

func WithDescription(d string) SessionOption {
	return func(s *domain.TimeSession) {
		s.Description = d
	}
}

func WithClassification(c domain.Classification) SessionOption {
	return func(s *domain.TimeSession) {
		s.Classification = c
	}
}

// WithPausedSince puts the session in PAUSED with the given pause start.
func WithPausedSince(t time.Time) SessionOption {
	return func(s *domain.TimeSession) {
		s.State = domain.Paused{Since: domain.Truncate(t)}
	}
}

func WithCompletedAt(t time.Time) SessionOption {
	return func(s *domain.TimeSession) {
		s.State = domain.Completed{EndedAt: domain.Truncate(t)}
	}
}

func WithCancelledAt(t time.Time) SessionOption {
	return func(s *domain.TimeSession) {
		s.State = domain.Cancelled{EndedAt: domain.Truncate(t)}
	}
}

func WithPausedDuration(d time.Duration) SessionOption {
	return func(s *domain.TimeSession) {
		s.PausedDuration = d
	}
}

// NewTestSession returns a RUNNING session started at FixedNow unless
// options say otherwise.
func NewTestSession(userID, projectID string, opts ...SessionOption) *domain.TimeSession {
	s := &domain.TimeSession{
		ID:          uuid.New().String(),
		UserID:      userID,
		ProjectID:   projectID,
		Description: "test session",
		StartTime:   FixedNow,
		State:       domain.Running{},
		CreatedAt:   FixedNow,
		UpdatedAt:   FixedNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTestWorkLog converts a COMPLETED fixture session. It panics on
// misuse since fixtures are built by tests, not input.
func NewTestWorkLog(s *domain.TimeSession) *domain.WorkLog {
	w, err := domain.NewWorkLog(uuid.New().String(), s, s.UserID, FixedNow)
	if err != nil {
		panic(err)
	}
	return w
}
