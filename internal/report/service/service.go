// Package service implements the report lifecycle (creation with dispatch,
// status transitions) and the read-side case queries.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	accountmodels "vigil/internal/account/models"
	accountstore "vigil/internal/account/store"
	"vigil/internal/dispatch"
	"vigil/internal/geo"
	"vigil/internal/notify"
	"vigil/internal/platform/metrics"
	"vigil/internal/report/models"
	"vigil/internal/report/store"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
	"vigil/pkg/requestcontext"
)

var tracer = otel.Tracer("vigil/report")

// Service owns report entities and their status state machine.
type Service struct {
	reports  store.Store
	accounts accountstore.Store
	resolver *dispatch.Resolver
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(
	reports store.Store,
	accounts accountstore.Store,
	resolver *dispatch.Resolver,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		reports:  reports,
		accounts: accounts,
		resolver: resolver,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// CreateInput carries the report creation fields.
type CreateInput struct {
	Description string
	EvidenceRef string
	Location    geo.Point
	Severity    models.Severity
}

// Create validates the input, resolves the responsible responder, and
// persists the report. Resolution and persistence form one logical
// operation: a no_coverage failure persists nothing.
func (s *Service) Create(ctx context.Context, reporter *accountmodels.Account, in CreateInput) (*models.Report, error) {
	ctx, span := tracer.Start(ctx, "report.Create")
	defer span.End()

	if in.Description == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "description is required")
	}
	if in.EvidenceRef == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "evidence reference is required")
	}
	if err := in.Location.Validate(); err != nil {
		return nil, err
	}
	if _, ok := models.ParseSeverity(string(in.Severity)); !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "severity must be low, medium, or high")
	}

	responderID, err := s.resolver.Resolve(ctx, in.Location)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	report := &models.Report{
		ID:                  id.NewReportID(),
		ReporterID:          reporter.ID,
		Description:         in.Description,
		EvidenceRef:         in.EvidenceRef,
		Location:            in.Location,
		Severity:            in.Severity,
		AssignedResponderID: responderID,
		Status:              models.StatusNew,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}
	s.metrics.ReportsCreated.Inc()

	s.notifyResponder(ctx, report)
	return report, nil
}

// notifyResponder tells the assigned responder about the new case.
// Best-effort: lookup or delivery problems are logged only.
func (s *Service) notifyResponder(ctx context.Context, report *models.Report) {
	responder, err := s.accounts.FindByID(ctx, report.AssignedResponderID)
	if err != nil {
		s.logger.ErrorContext(ctx, "could not load responder for notification",
			"responder_id", report.AssignedResponderID.String(),
			"error", err,
		)
		return
	}
	s.notifier.Send(ctx, notify.Message{
		Target:  responder.Email,
		Subject: "New incident assigned to your station",
		Body: fmt.Sprintf("A %s-severity report (%s) was assigned to you.",
			report.Severity, report.ID),
	})
}

// Transition moves a report along its state machine. Only the assigned
// responder or an admin may act; re-applying the current status is rejected
// as invalid_transition.
func (s *Service) Transition(ctx context.Context, reportID id.ReportID, acting *accountmodels.Account, next models.Status) (*models.Report, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find report: %w", err)
	}

	switch acting.Role {
	case accountmodels.RoleAdmin:
		// Admins may act on any report.
	case accountmodels.RoleResponder:
		if acting.ID != report.AssignedResponderID {
			return nil, dErrors.New(dErrors.CodeForbidden, "report is assigned to another responder")
		}
	default:
		return nil, dErrors.New(dErrors.CodeForbidden, "this role is not permitted to perform the operation")
	}

	if !report.Status.CanTransitionTo(next) {
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot transition report from %s to %s", report.Status, next))
	}

	report.Status = next
	report.UpdatedAt = requestcontext.Now(ctx)
	if err := s.reports.Update(ctx, report); err != nil {
		return nil, fmt.Errorf("update report: %w", err)
	}
	return report, nil
}

// ListForReporter returns the citizen's own reports, newest first.
func (s *Service) ListForReporter(ctx context.Context, reporter *accountmodels.Account) ([]*models.Report, error) {
	return s.reports.ListByReporter(ctx, reporter.ID)
}

// ListForResponder returns the cases assigned to the acting responder
// (optionally filtered by status); admins see all reports.
func (s *Service) ListForResponder(ctx context.Context, acting *accountmodels.Account, statusFilter *models.Status) ([]*models.Report, error) {
	scope := store.Scope{Status: statusFilter}
	if acting.Role == accountmodels.RoleResponder {
		scope.Responder = &acting.ID
	}
	return s.reports.List(ctx, scope)
}

// Stats returns aggregate counts scoped to the acting responder, or across
// all reports for admins. "Today" starts at the caller's local midnight.
func (s *Service) Stats(ctx context.Context, acting *accountmodels.Account) (models.Stats, error) {
	scope := store.Scope{}
	if acting.Role == accountmodels.RoleResponder {
		scope.Responder = &acting.ID
	}
	since := models.StartOfDay(requestcontext.Now(ctx))
	return s.reports.Stats(ctx, scope, since)
}
