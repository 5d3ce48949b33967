package service

import (
	"context"

	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/alexanderramin/timekeeper/internal/repository"
)

type StartRequest struct {
	UserID         string
	ProjectID      string
	Description    string
	Classification domain.Classification
	// Force stops the user's running session instead of rejecting the start.
	Force bool
}

type StartResult struct {
	Session *domain.TimeSession
	// Stopped is the previously running session, when Start stopped one.
	Stopped *domain.TimeSession
}

// UpdateRequest carries the editable fields. Nil leaves a field unchanged.
type UpdateRequest struct {
	Description *string
	ProjectID   *string
}

type TimerService interface {
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
	Pause(ctx context.Context, sessionID, requesterID string) (*domain.TimeSession, error)
	Resume(ctx context.Context, sessionID, requesterID string) (*domain.TimeSession, error)
	Stop(ctx context.Context, sessionID, requesterID string) (*domain.TimeSession, error)
	Cancel(ctx context.Context, sessionID, requesterID string) (*domain.TimeSession, error)
	Update(ctx context.Context, sessionID, requesterID string, req UpdateRequest) (*domain.TimeSession, error)
	Delete(ctx context.Context, sessionID, requesterID string) error

	Get(ctx context.Context, sessionID, requesterID string) (*domain.TimeSession, error)
	// Active returns the requester's RUNNING or most recent PAUSED session,
	// or nil when neither exists.
	Active(ctx context.Context, requesterID string) (*domain.TimeSession, error)
	// List returns sessions matching f. Listing anyone other than the
	// requester, including all users (empty UserID), needs read permission.
	List(ctx context.Context, requesterID string, f repository.SessionFilter, p repository.Page) (*repository.SessionPage, error)
}

type ConverterService interface {
	Convert(ctx context.Context, sessionID, requesterID string) (*domain.WorkLog, error)
	Get(ctx context.Context, workLogID, requesterID string) (*domain.WorkLog, error)
	List(ctx context.Context, requesterID string, f repository.WorkLogFilter, p repository.Page) (*repository.WorkLogPage, error)
}
