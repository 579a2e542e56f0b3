// Package models defines the incident report entity, its severity and status
// enumerations, and the status state machine.
package models

import (
	"time"

	"vigil/internal/geo"
	id "vigil/pkg/domain"
)

// Severity is the closed set of report severities.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity validates a severity read from the wire or storage.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return Severity(s), true
	default:
		return "", false
	}
}

// Status is the closed set of report lifecycle states.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

// ParseStatus validates a status read from the wire or storage.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusNew, StatusInProgress, StatusResolved, StatusRejected:
		return Status(s), true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether the edge s → next is legal. Legal edges:
// new → in_progress, new → rejected (duplicate/invalid report),
// in_progress → resolved, in_progress → rejected. Re-applying the current
// status is not legal; resolved and rejected are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusNew:
		return next == StatusInProgress || next == StatusRejected
	case StatusInProgress:
		return next == StatusResolved || next == StatusRejected
	case StatusResolved, StatusRejected:
		return false
	default:
		return false
	}
}

// Report is a persisted incident report. AssignedResponderID is set at
// creation and immutable: a report without a responder is never persisted.
type Report struct {
	ID                  id.ReportID  `json:"id"`
	ReporterID          id.AccountID `json:"reporter_id"`
	Description         string       `json:"description"`
	EvidenceRef         string       `json:"evidence_ref"`
	Location            geo.Point    `json:"location"`
	Severity            Severity     `json:"severity"`
	AssignedResponderID id.AccountID `json:"assigned_responder_id"`
	Status              Status       `json:"status"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Stats are the aggregate counts served to responders and admins.
type Stats struct {
	ActiveCount           int `json:"active_count"`
	ResolvedTodayCount    int `json:"resolved_today_count"`
	HighSeverityOpenCount int `json:"high_severity_open_count"`
}

// StartOfDay returns the local midnight boundary for now. Stats treat a
// report as "resolved today" when its last update is at or after this
// boundary. Pure so the boundary is testable in isolation.
func StartOfDay(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
}
