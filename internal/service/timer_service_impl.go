package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/timekeeper/internal/access"
	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/alexanderramin/timekeeper/internal/config"
	"github.com/alexanderramin/timekeeper/internal/db"
	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/alexanderramin/timekeeper/internal/repository"
	"github.com/google/uuid"
)

type timerService struct {
	sessions repository.SessionRepo
	uow      db.UnitOfWork
	authz    access.Authorizer
	projects access.ProjectRegistry
	opts     Options
	observer UseCaseObserver
}

func NewTimerService(
	sessions repository.SessionRepo,
	uow db.UnitOfWork,
	authz access.Authorizer,
	projects access.ProjectRegistry,
	opts Options,
	observers ...UseCaseObserver,
) TimerService {
	return &timerService{
		sessions: sessions,
		uow:      uow,
		authz:    authz,
		projects: projects,
		opts:     opts.withDefaults(),
		observer: useCaseObserverOrNoop(observers),
	}
}

// run bounds fn by the action timeout and reports it as one use case.
func (s *timerService) run(ctx context.Context, name string, fields map[string]any, fn func(ctx context.Context, uc *useCase) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ActionTimeout)
	defer cancel()
	ctx, uc := startUseCase(ctx, s.observer, name, fields)
	err := classify(ctx, fn(ctx, uc))
	uc.end(ctx, err)
	return err
}

func (s *timerService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	var res *StartResult
	fields := map[string]any{"user_id": req.UserID, "project_id": req.ProjectID, "force": req.Force}
	err := s.run(ctx, "start", fields, func(ctx context.Context, uc *useCase) error {
		sess, err := domain.NewSession(uuid.New().String(), req.UserID, req.ProjectID,
			req.Description, req.Classification, s.opts.Now())
		if err != nil {
			return err
		}
		if _, err := access.RequireActiveProject(ctx, s.projects, sess.ProjectID); err != nil {
			return err
		}
		stopPrior := req.Force || s.opts.StartPolicy == config.PolicyAutoStop

		return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			sessions := repository.NewSQLiteSessionRepo(tx)
			running, err := sessions.FindRunningByUser(ctx, sess.UserID)
			if err != nil {
				return err
			}
			out := &StartResult{Session: sess}
			if running != nil {
				if !stopPrior {
					return alreadyRunning(running)
				}
				stopped, err := domain.Apply(running, domain.ActionStop, sess.StartTime)
				if err != nil {
					return err
				}
				if err := sessions.Update(ctx, stopped, running.Version); err != nil {
					return fmt.Errorf("stopping prior session: %w", err)
				}
				out.Stopped = stopped
				uc.set("stopped_session_id", stopped.ID)
			}
			if err := sessions.Create(ctx, sess); err != nil {
				return err
			}
			uc.set("session_id", sess.ID)
			res = out
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *timerService) Pause(ctx context.Context, sessionID, requesterID string) (*domain.TimeSession, error) {
	return s.transition(ctx, domain.ActionPause, sessionID, requesterID)
}

func (s *timerService) Resume(ctx context.Context, sessionID, requesterID string) (*domain.TimeSession, error) {
	return s.transition(ctx, domain.ActionResume, sessionID, requesterID)
}

func (s *timerService) Stop(ctx context.Context, sessionID, requesterID string) (*domain.TimeSession, error) {
	return s.transition(ctx, domain.ActionStop, sessionID, requesterID)
}

func (s *timerService) Cancel(ctx context.Context, sessionID, requesterID string) (*domain.TimeSession, error) {
	return s.transition(ctx, domain.ActionCancel, sessionID, requesterID)
}

func (s *timerService) transition(ctx context.Context, action domain.Action, sessionID, requesterID string) (*domain.TimeSession, error) {
	var out *domain.TimeSession
	fields := map[string]any{"session_id": sessionID, "requester_id": requesterID}
	err := s.run(ctx, string(action), fields, func(ctx context.Context, uc *useCase) error {
		// Resume reads the user's other sessions, so it runs under the
		// write lock to keep the single-running check and the write atomic.
		inTx := action == domain.ActionResume
		var err error
		out, err = s.mutate(ctx, sessionID, requesterID, inTx,
			func(ctx context.Context, sessions repository.SessionRepo, cur *domain.TimeSession, now time.Time) (*domain.TimeSession, error) {
				next, err := domain.Apply(cur, action, now)
				if err != nil {
					return nil, err
				}
				if action == domain.ActionResume {
					if err := checkNoOtherRunning(ctx, sessions, cur); err != nil {
						return nil, err
					}
				}
				return next, nil
			})
		if out != nil {
			uc.set("status", string(out.Status()))
			uc.set("version", out.Version)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *timerService) Update(ctx context.Context, sessionID, requesterID string, req UpdateRequest) (*domain.TimeSession, error) {
	var out *domain.TimeSession
	fields := map[string]any{"session_id": sessionID, "requester_id": requesterID}
	err := s.run(ctx, "update", fields, func(ctx context.Context, uc *useCase) error {
		if req.Description == nil && req.ProjectID == nil {
			return apperr.New(apperr.CodeValidation, "nothing to update: set a description or a project")
		}
		var err error
		out, err = s.mutate(ctx, sessionID, requesterID, false,
			func(ctx context.Context, _ repository.SessionRepo, cur *domain.TimeSession, now time.Time) (*domain.TimeSession, error) {
				next := cur.Clone()
				if err := next.UpdateDetails(req.Description, req.ProjectID, now); err != nil {
					return nil, err
				}
				if next.ProjectID != cur.ProjectID {
					if _, err := access.RequireActiveProject(ctx, s.projects, next.ProjectID); err != nil {
						return nil, err
					}
				}
				return next, nil
			})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *timerService) Delete(ctx context.Context, sessionID, requesterID string) error {
	fields := map[string]any{"session_id": sessionID, "requester_id": requesterID}
	return s.run(ctx, "delete", fields, func(ctx context.Context, uc *useCase) error {
		err := s.deleteOnce(ctx, sessionID, requesterID)
		if errors.Is(err, apperr.ErrConflict) {
			uc.set("retried", true)
			err = s.deleteOnce(ctx, sessionID, requesterID)
		}
		return err
	})
}

func (s *timerService) deleteOnce(ctx context.Context, sessionID, requesterID string) error {
	cur, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := authorize(ctx, s.authz, cur.UserID, requesterID, access.PermDelete,
		map[string]string{"session_id": cur.ID}); err != nil {
		return err
	}
	if cur.IsConverted() {
		return apperr.WithMetadata(apperr.CodeConversionExists,
			"session "+cur.ID+" was converted to work log "+*cur.WorkLogID+" and cannot be deleted",
			map[string]string{"session_id": cur.ID, "work_log_id": *cur.WorkLogID})
	}
	return s.sessions.Delete(ctx, cur.ID, cur.Version)
}

func (s *timerService) Get(ctx context.Context, sessionID, requesterID string) (*domain.TimeSession, error) {
	var out *domain.TimeSession
	fields := map[string]any{"session_id": sessionID, "requester_id": requesterID}
	err := s.run(ctx, "get", fields, func(ctx context.Context, _ *useCase) error {
		sess, err := s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, s.authz, sess.UserID, requesterID, access.PermRead,
			map[string]string{"session_id": sess.ID}); err != nil {
			return err
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *timerService) Active(ctx context.Context, requesterID string) (*domain.TimeSession, error) {
	var out *domain.TimeSession
	err := s.run(ctx, "active", map[string]any{"requester_id": requesterID}, func(ctx context.Context, _ *useCase) error {
		running, err := s.sessions.FindRunningByUser(ctx, requesterID)
		if err != nil {
			return err
		}
		if running != nil {
			out = running
			return nil
		}
		page, err := s.sessions.List(ctx, repository.SessionFilter{
			UserID:   requesterID,
			Statuses: []domain.SessionStatus{domain.StatusPaused},
		}, repository.Page{Page: 1, Limit: 1})
		if err != nil {
			return err
		}
		if len(page.Data) > 0 {
			out = page.Data[0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *timerService) List(ctx context.Context, requesterID string, f repository.SessionFilter, p repository.Page) (*repository.SessionPage, error) {
	var out *repository.SessionPage
	fields := map[string]any{"requester_id": requesterID, "user_id": f.UserID}
	err := s.run(ctx, "list", fields, func(ctx context.Context, uc *useCase) error {
		if err := authorize(ctx, s.authz, f.UserID, requesterID, access.PermRead, nil); err != nil {
			return err
		}
		page, err := s.sessions.List(ctx, f, p)
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

type mutation func(ctx context.Context, sessions repository.SessionRepo, cur *domain.TimeSession, now time.Time) (*domain.TimeSession, error)

// mutate is the load, authorize, decide, conditioned-write cycle shared by
// every session mutation. A version conflict reloads and re-decides once;
// a second conflict is returned to the caller.
func (s *timerService) mutate(ctx context.Context, sessionID, requesterID string, inTx bool, fn mutation) (*domain.TimeSession, error) {
	attempt := func(ctx context.Context, sessions repository.SessionRepo) (*domain.TimeSession, error) {
		cur, err := sessions.GetByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if err := authorize(ctx, s.authz, cur.UserID, requesterID, access.PermUpdate,
			map[string]string{"session_id": cur.ID}); err != nil {
			return nil, err
		}
		next, err := fn(ctx, sessions, cur, s.opts.Now())
		if err != nil {
			return nil, err
		}
		if err := sessions.Update(ctx, next, cur.Version); err != nil {
			return nil, err
		}
		return next, nil
	}

	once := func() (*domain.TimeSession, error) {
		if !inTx {
			return attempt(ctx, s.sessions)
		}
		var out *domain.TimeSession
		err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			var err error
			out, err = attempt(ctx, repository.NewSQLiteSessionRepo(tx))
			return err
		})
		return out, err
	}

	out, err := once()
	if errors.Is(err, apperr.ErrConflict) {
		out, err = once()
	}
	return out, err
}

func checkNoOtherRunning(ctx context.Context, sessions repository.SessionRepo, cur *domain.TimeSession) error {
	running, err := sessions.FindRunningByUser(ctx, cur.UserID)
	if err != nil {
		return err
	}
	if running != nil && running.ID != cur.ID {
		return alreadyRunning(running)
	}
	return nil
}

func alreadyRunning(running *domain.TimeSession) error {
	return apperr.WithMetadata(apperr.CodeAlreadyRunning,
		fmt.Sprintf("user %s already has a running session (%s)", running.UserID, running.ID),
		map[string]string{"user_id": running.UserID, "running_session_id": running.ID})
}
