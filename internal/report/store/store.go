// Package store persists incident reports.
package store

import (
	"context"
	"time"

	"vigil/internal/report/models"
	id "vigil/pkg/domain"
)

// Scope restricts a listing or aggregate to one responder, or spans all
// reports (admin view) when Responder is nil.
type Scope struct {
	Responder *id.AccountID
	Status    *models.Status
}

// Store is the report persistence contract. Listings are ordered
// newest-first. Create is all-or-nothing: implementations never expose a
// half-written report.
type Store interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, reportID id.ReportID) (*models.Report, error)
	Update(ctx context.Context, report *models.Report) error
	ListByReporter(ctx context.Context, reporterID id.AccountID) ([]*models.Report, error)
	List(ctx context.Context, scope Scope) ([]*models.Report, error)
	// Stats aggregates over current persisted state. resolvedSince is the
	// caller's local-midnight boundary for the resolved-today count.
	Stats(ctx context.Context, scope Scope, resolvedSince time.Time) (models.Stats, error)
}
