package domain

import (
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
)

// WorkLog is the immutable record derived from a completed session.
type WorkLog struct {
	ID             string
	SessionID      string
	UserID         string
	ProjectID      string
	Description    string
	Classification Classification
	StartTime      time.Time
	EndTime        time.Time
	DurationMs     int64
	PausedMs       int64
	CreatedBy      string
	CreatedAt      time.Time
}

// NewWorkLog materializes s into a work log. Durations come from the
// session's frozen end time, so converting later never changes the result.
func NewWorkLog(id string, s *TimeSession, createdBy string, now time.Time) (*WorkLog, error) {
	completed, ok := s.State.(Completed)
	if !ok {
		return nil, apperr.WithMetadata(apperr.CodeInvalidState,
			"only COMPLETED sessions can be converted; session "+s.ID+" is "+string(s.Status()),
			map[string]string{"session_id": s.ID, "status": string(s.Status())})
	}
	if s.IsConverted() {
		return nil, apperr.WithMetadata(apperr.CodeAlreadyConverted,
			"session "+s.ID+" was already converted to work log "+*s.WorkLogID,
			map[string]string{"session_id": s.ID, "work_log_id": *s.WorkLogID})
	}

	d := Measure(s, completed.EndedAt)
	return &WorkLog{
		ID:             id,
		SessionID:      s.ID,
		UserID:         s.UserID,
		ProjectID:      s.ProjectID,
		Description:    s.Description,
		Classification: s.Classification,
		StartTime:      s.StartTime,
		EndTime:        completed.EndedAt,
		DurationMs:     d.ActiveMs(),
		PausedMs:       d.PausedMs(),
		CreatedBy:      createdBy,
		CreatedAt:      Truncate(now),
	}, nil
}
