package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/timekeeper/internal/domain"
)

// SessionFilter narrows a session listing. Empty fields do not filter.
type SessionFilter struct {
	UserID    string
	ProjectID string
	Statuses  []domain.SessionStatus
	// Search matches description substrings, case-insensitively.
	Search string
	// Expr is an optional AIP-160 expression, e.g.
	// `severity = "high" AND start_time > timestamp("2025-01-01T00:00:00Z")`.
	Expr string
}

type SessionPage struct {
	Data       []*domain.TimeSession
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

type WorkLogFilter struct {
	UserID    string
	ProjectID string
	Expr      string
}

type WorkLogPage struct {
	Data       []*domain.WorkLog
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

type SessionRepo interface {
	// Create inserts s and sets s.Version to 1.
	Create(ctx context.Context, s *domain.TimeSession) error
	GetByID(ctx context.Context, id string) (*domain.TimeSession, error)
	// Update writes s only if the stored version equals expectedVersion.
	// On success s.Version is advanced. A stale version yields a Conflict.
	Update(ctx context.Context, s *domain.TimeSession, expectedVersion int) error
	Delete(ctx context.Context, id string, expectedVersion int) error
	// FindRunningByUser returns the user's RUNNING session or nil.
	FindRunningByUser(ctx context.Context, userID string) (*domain.TimeSession, error)
	// MarkConverted sets the work-log back-reference if not already set.
	MarkConverted(ctx context.Context, id, workLogID string, expectedVersion int, now time.Time) error
	List(ctx context.Context, f SessionFilter, p Page) (*SessionPage, error)
}

type WorkLogRepo interface {
	Create(ctx context.Context, w *domain.WorkLog) error
	GetByID(ctx context.Context, id string) (*domain.WorkLog, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.WorkLog, error)
	List(ctx context.Context, f WorkLogFilter, p Page) (*WorkLogPage, error)
}
