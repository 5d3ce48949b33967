package formatter

import (
	"fmt"
	"time"

	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/alexanderramin/timekeeper/internal/repository"
)

// FormatSession renders one session with its durations measured at now.
func FormatSession(s *domain.TimeSession, now time.Time) string {
	d := domain.Measure(s, now)
	fields := [][2]string{
		{"ID", s.ID},
		{"Status", StatusPill(s.Status())},
		{"User", s.UserID},
		{"Project", s.ProjectID},
		{"Description", OrDash(s.Description)},
		{"Started", Timestamp(s.StartTime)},
	}
	if p := s.PauseStartedAt(); p != nil {
		fields = append(fields, [2]string{"Paused since", Timestamp(*p)})
	}
	if e := s.EndTime(); e != nil {
		fields = append(fields, [2]string{"Ended", Timestamp(*e)})
	}
	fields = append(fields,
		[2]string{"Active", Bold(FormatDuration(d.Active))},
		[2]string{"Paused", FormatDuration(d.Paused)},
		[2]string{"Total", FormatDuration(d.Total)},
	)
	fields = append(fields, classificationFields(s.Classification)...)
	if s.WorkLogID != nil {
		fields = append(fields, [2]string{"Work log", *s.WorkLogID})
	}
	return RenderBox("Session", RenderFields(fields))
}

// FormatTransition is the one-line confirmation printed after an action.
func FormatTransition(verb string, s *domain.TimeSession, now time.Time) string {
	d := domain.Measure(s, now)
	return fmt.Sprintf("%s session %s  %s  active %s\n",
		verb, TruncID(s.ID), StatusPill(s.Status()), FormatDuration(d.Active))
}

// FormatSessionTable renders a page of sessions.
func FormatSessionTable(page *repository.SessionPage, now time.Time) string {
	if len(page.Data) == 0 {
		return "No sessions found.\n"
	}
	headers := []string{"ID", "STATUS", "USER", "PROJECT", "STARTED", "ACTIVE", "DESCRIPTION"}
	rows := make([][]string, 0, len(page.Data))
	for _, s := range page.Data {
		d := domain.Measure(s, now)
		rows = append(rows, []string{
			TruncID(s.ID),
			StatusPill(s.Status()),
			s.UserID,
			s.ProjectID,
			Timestamp(s.StartTime),
			FormatDuration(d.Active),
			Dim(Truncate(s.Description, 40)),
		})
	}
	return RenderTable(headers, rows) + pageFooter(page.Page, page.TotalPages, page.Total)
}

// FormatWorkLog renders one work log.
func FormatWorkLog(w *domain.WorkLog) string {
	fields := [][2]string{
		{"ID", w.ID},
		{"Session", w.SessionID},
		{"User", w.UserID},
		{"Project", w.ProjectID},
		{"Description", OrDash(w.Description)},
		{"Started", Timestamp(w.StartTime)},
		{"Ended", Timestamp(w.EndTime)},
		{"Duration", Bold(FormatMillis(w.DurationMs))},
		{"Paused", FormatMillis(w.PausedMs)},
	}
	fields = append(fields, classificationFields(w.Classification)...)
	fields = append(fields,
		[2]string{"Created by", w.CreatedBy},
		[2]string{"Created", Timestamp(w.CreatedAt)},
	)
	return RenderBox("Work log", RenderFields(fields))
}

// FormatWorkLogTable renders a page of work logs.
func FormatWorkLogTable(page *repository.WorkLogPage) string {
	if len(page.Data) == 0 {
		return "No work logs found.\n"
	}
	headers := []string{"ID", "SESSION", "USER", "PROJECT", "ENDED", "DURATION", "TICKET"}
	rows := make([][]string, 0, len(page.Data))
	for _, w := range page.Data {
		rows = append(rows, []string{
			TruncID(w.ID),
			TruncID(w.SessionID),
			w.UserID,
			w.ProjectID,
			Timestamp(w.EndTime),
			FormatMillis(w.DurationMs),
			OrDash(w.Classification.TicketRef),
		})
	}
	return RenderTable(headers, rows) + pageFooter(page.Page, page.TotalPages, page.Total)
}

func classificationFields(c domain.Classification) [][2]string {
	var out [][2]string
	add := func(label, v string) {
		if v != "" {
			out = append(out, [2]string{label, v})
		}
	}
	add("Module", c.Module)
	add("Task", c.TaskCategory)
	add("Work", c.WorkCategory)
	if c.Severity != domain.SeverityNone {
		out = append(out, [2]string{"Severity", SeverityBadge(c.Severity)})
	}
	add("Source", string(c.Source))
	add("Ticket", c.TicketRef)
	return out
}

func pageFooter(page, totalPages, total int) string {
	noun := "results"
	if total == 1 {
		noun = "result"
	}
	return Dim(fmt.Sprintf("page %d of %d · %d %s", page, max(totalPages, 1), total, noun)) + "\n"
}
