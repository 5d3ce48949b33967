package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/alexanderramin/timekeeper/internal/db"
	"github.com/alexanderramin/timekeeper/internal/domain"
)

const sessionColumns = `id, user_id, project_id, description,
	module, task_category, work_category, severity, source, ticket_ref,
	status, start_time, end_time, pause_started_at, paused_duration_ms,
	work_log_id, version, created_at, updated_at`

// SQLiteSessionRepo implements SessionRepo on top of a DBTX, so the same
// code serves plain connections and transactions.
type SQLiteSessionRepo struct {
	db db.DBTX
}

// NewSQLiteSessionRepo creates a new SQLiteSessionRepo.
func NewSQLiteSessionRepo(conn db.DBTX) *SQLiteSessionRepo {
	return &SQLiteSessionRepo{db: conn}
}

func (r *SQLiteSessionRepo) Create(ctx context.Context, s *domain.TimeSession) error {
	query := `INSERT INTO time_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.UserID,
		s.ProjectID,
		s.Description,
		s.Classification.Module,
		s.Classification.TaskCategory,
		s.Classification.WorkCategory,
		string(s.Classification.Severity),
		string(s.Classification.Source),
		s.Classification.TicketRef,
		string(s.Status()),
		formatTime(s.StartTime),
		nullableTimeToString(s.EndTime()),
		nullableTimeToString(s.PauseStartedAt()),
		s.PausedDurationMs(),
		nullableString(s.WorkLogID),
		1,
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting time session: %w", err)
	}
	s.Version = 1
	return nil
}

func (r *SQLiteSessionRepo) GetByID(ctx context.Context, id string) (*domain.TimeSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM time_sessions WHERE id = ?`
	return scanSession(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *SQLiteSessionRepo) Update(ctx context.Context, s *domain.TimeSession, expectedVersion int) error {
	query := `UPDATE time_sessions SET
		project_id = ?, description = ?, status = ?,
		end_time = ?, pause_started_at = ?, paused_duration_ms = ?,
		version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, query,
		s.ProjectID,
		s.Description,
		string(s.Status()),
		nullableTimeToString(s.EndTime()),
		nullableTimeToString(s.PauseStartedAt()),
		s.PausedDurationMs(),
		formatTime(s.UpdatedAt),
		s.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("updating time session: %w", err)
	}
	if err := r.checkVersioned(ctx, res, s.ID, expectedVersion); err != nil {
		return err
	}
	s.Version = expectedVersion + 1
	return nil
}

func (r *SQLiteSessionRepo) Delete(ctx context.Context, id string, expectedVersion int) error {
	query := `DELETE FROM time_sessions WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, query, id, expectedVersion)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return apperr.WithMetadata(apperr.CodeConversionExists,
				"session "+id+" has a work log and cannot be deleted",
				map[string]string{"session_id": id})
		}
		return fmt.Errorf("deleting time session: %w", err)
	}
	return r.checkVersioned(ctx, res, id, expectedVersion)
}

func (r *SQLiteSessionRepo) FindRunningByUser(ctx context.Context, userID string) (*domain.TimeSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM time_sessions
		WHERE user_id = ? AND status = 'RUNNING'
		ORDER BY start_time DESC LIMIT 1`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, userID), "")
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

func (r *SQLiteSessionRepo) MarkConverted(ctx context.Context, id, workLogID string, expectedVersion int, now time.Time) error {
	query := `UPDATE time_sessions SET
		work_log_id = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND work_log_id IS NULL AND status = 'COMPLETED'`
	res, err := r.db.ExecContext(ctx, query, workLogID, formatTime(now), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("marking time session converted: %w", err)
	}
	return r.checkVersioned(ctx, res, id, expectedVersion)
}

func (r *SQLiteSessionRepo) List(ctx context.Context, f SessionFilter, p Page) (*SessionPage, error) {
	p, err := p.Normalize()
	if err != nil {
		return nil, err
	}

	where, params, err := sessionWhere(f)
	if err != nil {
		return nil, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM time_sessions` + where
	if err := r.db.QueryRowContext(ctx, countQuery, params...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting time sessions: %w", err)
	}

	query := `SELECT ` + sessionColumns + ` FROM time_sessions` + where +
		` ORDER BY start_time DESC, id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(params, p.Limit, p.offset())...)
	if err != nil {
		return nil, fmt.Errorf("listing time sessions: %w", err)
	}
	defer rows.Close()

	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	return &SessionPage{
		Data:       sessions,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: totalPages(total, p.Limit),
	}, nil
}

func sessionWhere(f SessionFilter) (string, []any, error) {
	var clauses []string
	var params []any

	if f.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		params = append(params, f.UserID)
	}
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id = ?")
		params = append(params, f.ProjectID)
	}
	if len(f.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			params = append(params, string(st))
		}
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		clauses = append(clauses, `description LIKE ? ESCAPE '\'`)
		params = append(params, "%"+escapeLike(search)+"%")
	}
	cond, err := sessionFilterSchema.parse(f.Expr)
	if err != nil {
		return "", nil, err
	}
	if cond.Clause != "" {
		clauses = append(clauses, cond.Clause)
		params = append(params, cond.Params...)
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), params, nil
}

// checkVersioned turns a zero-row conditioned write into NotFound or
// Conflict depending on whether the row still exists.
func (r *SQLiteSessionRepo) checkVersioned(ctx context.Context, res sql.Result, id string, expectedVersion int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var current int
	err = r.db.QueryRowContext(ctx, `SELECT version FROM time_sessions WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return sessionNotFound(id)
	}
	if err != nil {
		return fmt.Errorf("reading time session version: %w", err)
	}
	return apperr.WithMetadata(apperr.CodeConflict,
		fmt.Sprintf("session %s was modified concurrently", id),
		map[string]string{
			"session_id":       id,
			"expected_version": fmt.Sprint(expectedVersion),
			"current_version":  fmt.Sprint(current),
		})
}

func sessionNotFound(id string) error {
	return apperr.WithMetadata(apperr.CodeNotFound, "time session "+id+" not found",
		map[string]string{"session_id": id})
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSession scans a single session from a *sql.Row.
func scanSession(row *sql.Row, id string) (*domain.TimeSession, error) {
	s, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sessionNotFound(id)
		}
		return nil, err
	}
	return s, nil
}

// scanSessions scans multiple sessions from *sql.Rows.
func scanSessions(rows *sql.Rows) ([]*domain.TimeSession, error) {
	sessions := []*domain.TimeSession{}
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating time sessions: %w", err)
	}
	return sessions, nil
}

func scanSessionRow(row rowScanner) (*domain.TimeSession, error) {
	var s domain.TimeSession
	var severity, source, status string
	var startStr, createdStr, updatedStr string
	var endStr, pauseStr, workLogID sql.NullString
	var pausedMs int64

	err := row.Scan(
		&s.ID, &s.UserID, &s.ProjectID, &s.Description,
		&s.Classification.Module, &s.Classification.TaskCategory, &s.Classification.WorkCategory,
		&severity, &source, &s.Classification.TicketRef,
		&status, &startStr, &endStr, &pauseStr, &pausedMs,
		&workLogID, &s.Version, &createdStr, &updatedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning time session: %w", err)
	}

	return populateSession(&s, severity, source, status, startStr, createdStr, updatedStr, endStr, pauseStr, workLogID, pausedMs)
}

// populateSession fills in parsed fields after scanning raw column values.
func populateSession(s *domain.TimeSession, severity, source, status, startStr, createdStr, updatedStr string,
	endStr, pauseStr, workLogID sql.NullString, pausedMs int64) (*domain.TimeSession, error) {
	var err error
	s.Classification.Severity = domain.Severity(severity)
	s.Classification.Source = domain.WorkSource(source)
	s.PausedDuration = time.Duration(pausedMs) * time.Millisecond
	if workLogID.Valid {
		id := workLogID.String
		s.WorkLogID = &id
	}

	if s.StartTime, err = parseTime(startStr, "start_time"); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdStr, "created_at"); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedStr, "updated_at"); err != nil {
		return nil, err
	}
	endTime, err := parseNullableTime(endStr, "end_time")
	if err != nil {
		return nil, err
	}
	pauseStartedAt, err := parseNullableTime(pauseStr, "pause_started_at")
	if err != nil {
		return nil, err
	}

	s.State, err = domain.StateFromColumns(domain.SessionStatus(status), pauseStartedAt, endTime)
	if err != nil {
		return nil, fmt.Errorf("time session %s: %w", s.ID, err)
	}
	return s, nil
}
