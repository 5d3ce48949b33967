package service

import (
	"context"
	"fmt"

	"github.com/alexanderramin/timekeeper/internal/access"
	"github.com/alexanderramin/timekeeper/internal/db"
	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/alexanderramin/timekeeper/internal/repository"
	"github.com/google/uuid"
)

type converterService struct {
	workLogs repository.WorkLogRepo
	uow      db.UnitOfWork
	authz    access.Authorizer
	opts     Options
	observer UseCaseObserver
}

func NewConverterService(
	workLogs repository.WorkLogRepo,
	uow db.UnitOfWork,
	authz access.Authorizer,
	opts Options,
	observers ...UseCaseObserver,
) ConverterService {
	return &converterService{
		workLogs: workLogs,
		uow:      uow,
		authz:    authz,
		opts:     opts.withDefaults(),
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *converterService) run(ctx context.Context, name string, fields map[string]any, fn func(ctx context.Context, uc *useCase) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ActionTimeout)
	defer cancel()
	ctx, uc := startUseCase(ctx, s.observer, name, fields)
	err := classify(ctx, fn(ctx, uc))
	uc.end(ctx, err)
	return err
}

// Convert derives the work log for a COMPLETED session. The insert and the
// back-reference write share one transaction, and the unique session_id
// index rejects a second log even if two converts race.
func (s *converterService) Convert(ctx context.Context, sessionID, requesterID string) (*domain.WorkLog, error) {
	var out *domain.WorkLog
	fields := map[string]any{"session_id": sessionID, "requester_id": requesterID}
	err := s.run(ctx, "convert", fields, func(ctx context.Context, uc *useCase) error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			sessions := repository.NewSQLiteSessionRepo(tx)
			workLogs := repository.NewSQLiteWorkLogRepo(tx)

			sess, err := sessions.GetByID(ctx, sessionID)
			if err != nil {
				return err
			}
			if err := authorize(ctx, s.authz, sess.UserID, requesterID, access.PermUpdate,
				map[string]string{"session_id": sess.ID}); err != nil {
				return err
			}

			w, err := domain.NewWorkLog(uuid.New().String(), sess, requesterID, s.opts.Now())
			if err != nil {
				return err
			}
			if err := workLogs.Create(ctx, w); err != nil {
				return err
			}
			if err := sessions.MarkConverted(ctx, sess.ID, w.ID, sess.Version, w.CreatedAt); err != nil {
				return fmt.Errorf("linking work log to session: %w", err)
			}
			uc.set("work_log_id", w.ID)
			uc.set("duration_ms", w.DurationMs)
			out = w
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *converterService) Get(ctx context.Context, workLogID, requesterID string) (*domain.WorkLog, error) {
	var out *domain.WorkLog
	fields := map[string]any{"work_log_id": workLogID, "requester_id": requesterID}
	err := s.run(ctx, "get-work-log", fields, func(ctx context.Context, _ *useCase) error {
		w, err := s.workLogs.GetByID(ctx, workLogID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, s.authz, w.UserID, requesterID, access.PermRead,
			map[string]string{"work_log_id": w.ID}); err != nil {
			return err
		}
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *converterService) List(ctx context.Context, requesterID string, f repository.WorkLogFilter, p repository.Page) (*repository.WorkLogPage, error) {
	var out *repository.WorkLogPage
	fields := map[string]any{"requester_id": requesterID, "user_id": f.UserID}
	err := s.run(ctx, "list-work-logs", fields, func(ctx context.Context, uc *useCase) error {
		if err := authorize(ctx, s.authz, f.UserID, requesterID, access.PermRead, nil); err != nil {
			return err
		}
		page, err := s.workLogs.List(ctx, f, p)
		if err != nil {
			return err
		}
		uc.set("total", page.Total)
		out = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

