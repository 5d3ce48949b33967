package domain

import (
	"strings"
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
)

// TimeSession is a single timed stretch of work owned by one user.
type TimeSession struct {
	ID             string
	UserID         string
	ProjectID      string
	Description    string
	Classification Classification

	StartTime      time.Time
	State          State
	PausedDuration time.Duration

	// WorkLogID is set once the session has been converted.
	WorkLogID *string

	// Version is the optimistic-concurrency token; storage bumps it on
	// every successful write.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession creates a RUNNING session started at now.
func NewSession(id, userID, projectID, description string, c Classification, now time.Time) (*TimeSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("user_id", "user id is required")
	}
	if strings.TrimSpace(projectID) == "" {
		return nil, invalid("project_id", "project id is required")
	}
	description = strings.TrimSpace(description)
	if err := ValidateDescription(description); err != nil {
		return nil, err
	}
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	now = Truncate(now)
	return &TimeSession{
		ID:             id,
		UserID:         userID,
		ProjectID:      projectID,
		Description:    description,
		Classification: c,
		StartTime:      now,
		State:          Running{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (s *TimeSession) Status() SessionStatus {
	return s.State.Status()
}

func (s *TimeSession) IsTerminal() bool {
	return s.Status().IsTerminal()
}

func (s *TimeSession) IsConverted() bool {
	return s.WorkLogID != nil
}

// PauseStartedAt returns when the current pause began, or nil unless PAUSED.
func (s *TimeSession) PauseStartedAt() *time.Time {
	if p, ok := s.State.(Paused); ok {
		return timePtr(p.Since)
	}
	return nil
}

// EndTime returns the end timestamp, or nil unless the session is terminal.
func (s *TimeSession) EndTime() *time.Time {
	switch st := s.State.(type) {
	case Completed:
		return timePtr(st.EndedAt)
	case Cancelled:
		return timePtr(st.EndedAt)
	default:
		return nil
	}
}

func (s *TimeSession) PausedDurationMs() int64 {
	return s.PausedDuration.Milliseconds()
}

// Clone returns a deep copy so tentative transitions never alias stored state.
func (s *TimeSession) Clone() *TimeSession {
	c := *s
	if s.WorkLogID != nil {
		id := *s.WorkLogID
		c.WorkLogID = &id
	}
	return &c
}

// UpdateDetails edits the mutable metadata. Terminal sessions are frozen.
func (s *TimeSession) UpdateDetails(description, projectID *string, now time.Time) error {
	if s.IsTerminal() {
		return apperr.WithMetadata(apperr.CodeImmutableSession,
			"session "+s.ID+" is "+string(s.Status())+" and can no longer be edited",
			map[string]string{"session_id": s.ID, "status": string(s.Status())})
	}
	if description != nil {
		d := strings.TrimSpace(*description)
		if err := ValidateDescription(d); err != nil {
			return err
		}
		s.Description = d
	}
	if projectID != nil {
		p := strings.TrimSpace(*projectID)
		if p == "" {
			return invalid("project_id", "project id must not be empty")
		}
		s.ProjectID = p
	}
	s.UpdatedAt = Truncate(now)
	return nil
}
