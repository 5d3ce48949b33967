package domain

import (
	"fmt"
	"strings"
)

type SessionStatus string

const (
	StatusRunning   SessionStatus = "RUNNING"
	StatusPaused    SessionStatus = "PAUSED"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusCancelled SessionStatus = "CANCELLED"
)

// ValidStatuses is the canonical set of accepted session statuses.
var ValidStatuses = map[SessionStatus]bool{
	StatusRunning: true, StatusPaused: true,
	StatusCompleted: true, StatusCancelled: true,
}

// IsTerminal reports whether no further transitions are allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus accepts a status name in any case.
func ParseStatus(v string) (SessionStatus, error) {
	s := SessionStatus(strings.ToUpper(strings.TrimSpace(v)))
	if !ValidStatuses[s] {
		return "", fmt.Errorf("unknown session status %q", v)
	}
	return s, nil
}

type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
	ActionCancel Action = "cancel"
)

type Severity string

const (
	SeverityNone     Severity = ""
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidSeverities is the canonical set of accepted severity strings.
var ValidSeverities = map[Severity]bool{
	SeverityNone: true, SeverityLow: true, SeverityMedium: true,
	SeverityHigh: true, SeverityCritical: true,
}

type WorkSource string

const (
	SourceNone    WorkSource = ""
	SourceManual  WorkSource = "manual"
	SourceTicket  WorkSource = "ticket"
	SourceMeeting WorkSource = "meeting"
	SourceSupport WorkSource = "support"
)

// ValidSources is the canonical set of accepted work source strings.
var ValidSources = map[WorkSource]bool{
	SourceNone: true, SourceManual: true, SourceTicket: true,
	SourceMeeting: true, SourceSupport: true,
}
