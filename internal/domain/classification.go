package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alexanderramin/timekeeper/internal/apperr"
)

var ticketRefPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*-\d+$`)

const (
	maxLabelLen       = 64
	maxDescriptionLen = 2000
)

// Classification describes what kind of work a session records. It is
// fixed when the session starts and copied verbatim onto the work log.
type Classification struct {
	Module       string
	TaskCategory string
	WorkCategory string
	Severity     Severity
	Source       WorkSource
	TicketRef    string
}

// Normalize trims labels and upper-cases the ticket reference.
func (c Classification) Normalize() Classification {
	c.Module = strings.TrimSpace(c.Module)
	c.TaskCategory = strings.TrimSpace(c.TaskCategory)
	c.WorkCategory = strings.TrimSpace(c.WorkCategory)
	c.Severity = Severity(strings.ToLower(strings.TrimSpace(string(c.Severity))))
	c.Source = WorkSource(strings.ToLower(strings.TrimSpace(string(c.Source))))
	c.TicketRef = strings.ToUpper(strings.TrimSpace(c.TicketRef))
	return c
}

// Validate checks enum membership, label lengths and the ticket format
// (e.g. OPS-142).
func (c Classification) Validate() error {
	if !ValidSeverities[c.Severity] {
		return invalid("severity", "unknown severity %q", string(c.Severity))
	}
	if !ValidSources[c.Source] {
		return invalid("source", "unknown source %q", string(c.Source))
	}
	labels := []struct{ field, value string }{
		{"module", c.Module},
		{"task_category", c.TaskCategory},
		{"work_category", c.WorkCategory},
	}
	for _, l := range labels {
		if len(l.value) > maxLabelLen {
			return invalid(l.field, "%s exceeds %d characters", l.field, maxLabelLen)
		}
	}
	if c.TicketRef != "" && !ticketRefPattern.MatchString(c.TicketRef) {
		return invalid("ticket_ref", "ticket reference %q must look like ABC-123", c.TicketRef)
	}
	return nil
}

// ValidateDescription enforces the description length limit.
func ValidateDescription(d string) error {
	if len(d) > maxDescriptionLen {
		return invalid("description", "description exceeds %d characters", maxDescriptionLen)
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return apperr.WithMetadata(apperr.CodeValidation, fmt.Sprintf(format, args...),
		map[string]string{"field": field})
}
