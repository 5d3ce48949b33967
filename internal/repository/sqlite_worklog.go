package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/alexanderramin/timekeeper/internal/db"
	"github.com/alexanderramin/timekeeper/internal/domain"
)

const workLogColumns = `id, session_id, user_id, project_id, description,
	module, task_category, work_category, severity, source, ticket_ref,
	start_time, end_time, duration_ms, paused_duration_ms, created_by, created_at`

// SQLiteWorkLogRepo implements WorkLogRepo. Work logs are append-only.
type SQLiteWorkLogRepo struct {
	db db.DBTX
}

func NewSQLiteWorkLogRepo(conn db.DBTX) *SQLiteWorkLogRepo {
	return &SQLiteWorkLogRepo{db: conn}
}

func (r *SQLiteWorkLogRepo) Create(ctx context.Context, w *domain.WorkLog) error {
	query := `INSERT INTO work_logs (` + workLogColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		w.ID,
		w.SessionID,
		w.UserID,
		w.ProjectID,
		w.Description,
		w.Classification.Module,
		w.Classification.TaskCategory,
		w.Classification.WorkCategory,
		string(w.Classification.Severity),
		string(w.Classification.Source),
		w.Classification.TicketRef,
		formatTime(w.StartTime),
		formatTime(w.EndTime),
		w.DurationMs,
		w.PausedMs,
		w.CreatedBy,
		formatTime(w.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) && strings.Contains(err.Error(), "session_id") {
			return &apperr.Error{
				Code:     apperr.CodeAlreadyConverted,
				Message:  "session " + w.SessionID + " has already been converted",
				Metadata: map[string]string{"session_id": w.SessionID},
				Cause:    err,
			}
		}
		return fmt.Errorf("inserting work log: %w", err)
	}
	return nil
}

func (r *SQLiteWorkLogRepo) GetByID(ctx context.Context, id string) (*domain.WorkLog, error) {
	query := `SELECT ` + workLogColumns + ` FROM work_logs WHERE id = ?`
	w, err := scanWorkLogRow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.WithMetadata(apperr.CodeNotFound, "work log "+id+" not found",
			map[string]string{"work_log_id": id})
	}
	return w, err
}

func (r *SQLiteWorkLogRepo) GetBySessionID(ctx context.Context, sessionID string) (*domain.WorkLog, error) {
	query := `SELECT ` + workLogColumns + ` FROM work_logs WHERE session_id = ?`
	w, err := scanWorkLogRow(r.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.WithMetadata(apperr.CodeNotFound, "no work log for session "+sessionID,
			map[string]string{"session_id": sessionID})
	}
	return w, err
}

func (r *SQLiteWorkLogRepo) List(ctx context.Context, f WorkLogFilter, p Page) (*WorkLogPage, error) {
	p, err := p.Normalize()
	if err != nil {
		return nil, err
	}

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
	cond, err := workLogFilterSchema.parse(f.Expr)
	if err != nil {
		return nil, err
	}
	if cond.Clause != "" {
		clauses = append(clauses, cond.Clause)
		params = append(params, cond.Params...)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_logs`+where, params...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting work logs: %w", err)
	}

	query := `SELECT ` + workLogColumns + ` FROM work_logs` + where +
		` ORDER BY start_time DESC, id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(params, p.Limit, p.offset())...)
	if err != nil {
		return nil, fmt.Errorf("listing work logs: %w", err)
	}
	defer rows.Close()

	logs := []*domain.WorkLog{}
	for rows.Next() {
		w, err := scanWorkLogRow(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating work logs: %w", err)
	}

	return &WorkLogPage{
		Data:       logs,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: totalPages(total, p.Limit),
	}, nil
}

func scanWorkLogRow(row rowScanner) (*domain.WorkLog, error) {
	var w domain.WorkLog
	var severity, source, startStr, endStr, createdStr string

	err := row.Scan(
		&w.ID, &w.SessionID, &w.UserID, &w.ProjectID, &w.Description,
		&w.Classification.Module, &w.Classification.TaskCategory, &w.Classification.WorkCategory,
		&severity, &source, &w.Classification.TicketRef,
		&startStr, &endStr, &w.DurationMs, &w.PausedMs, &w.CreatedBy, &createdStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning work log: %w", err)
	}

	w.Classification.Severity = domain.Severity(severity)
	w.Classification.Source = domain.WorkSource(source)
	if w.StartTime, err = parseTime(startStr, "start_time"); err != nil {
		return nil, err
	}
	if w.EndTime, err = parseTime(endStr, "end_time"); err != nil {
		return nil, err
	}
	if w.CreatedAt, err = parseTime(createdStr, "created_at"); err != nil {
		return nil, err
	}
	return &w, nil
}
