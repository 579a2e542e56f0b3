package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

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
	"vigil/pkg/requestcontext"
)

type ReportServiceSuite struct {
	suite.Suite
	accounts *accountstore.InMemoryStore
	reports  *store.InMemoryStore
	svc      *Service

	citizen   *accountmodels.Account
	responder *accountmodels.Account
	admin     *accountmodels.Account
}

func (s *ReportServiceSuite) SetupTest() {
	s.accounts = accountstore.NewInMemory()
	s.reports = store.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := dispatch.NewResolver(geo.NewMemoryIndex(s.accounts), dispatch.DefaultRadiusMeters)
	s.svc = NewService(s.reports, s.accounts, resolver, notify.NewSlogNotifier(logger), metrics.NewNop(), logger)

	s.citizen = s.seed("asha@example.com", accountmodels.RoleCitizen, nil)
	s.responder = s.seed("bandra@example.com", accountmodels.RoleResponder, &accountmodels.ResponderDetails{
		Address:    "Hill Road",
		City:       "Mumbai",
		PostalCode: "400050",
		Location:   geo.Point{Longitude: 72.88, Latitude: 19.08},
	})
	s.admin = s.seed("admin@example.com", accountmodels.RoleAdmin, nil)
}

func TestReportServiceSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceSuite))
}

func (s *ReportServiceSuite) seed(email string, role accountmodels.Role, details *accountmodels.ResponderDetails) *accountmodels.Account {
	now := time.Now()
	account := &accountmodels.Account{
		ID:        id.NewAccountID(),
		Name:      "Account " + email,
		Email:     email,
		Role:      role,
		Status:    accountmodels.StatusApproved,
		Responder: details,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.accounts.Create(context.Background(), account))
	return account
}

func validInput() CreateInput {
	return CreateInput{
		Description: "garbage fire near the market",
		EvidenceRef: "3e8a...c1",
		Location:    geo.Point{Longitude: 72.877, Latitude: 19.076},
		Severity:    models.SeverityHigh,
	}
}

func (s *ReportServiceSuite) TestCreateAssignsNearestResponder() {
	at := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)

	report, err := s.svc.Create(ctx, s.citizen, validInput())
	s.Require().NoError(err)
	s.Equal(s.responder.ID, report.AssignedResponderID)
	s.Equal(models.StatusNew, report.Status)
	s.Equal(s.citizen.ID, report.ReporterID)
	s.Equal(at, report.CreatedAt)
	s.Equal(at, report.UpdatedAt)

	stored, err := s.reports.FindByID(ctx, report.ID)
	s.Require().NoError(err)
	s.Equal(report.AssignedResponderID, stored.AssignedResponderID)
}

func (s *ReportServiceSuite) TestNoCoveragePersistsNothing() {
	ctx := context.Background()
	in := validInput()
	in.Location = geo.Point{Longitude: 77.5946, Latitude: 12.9716} // Bengaluru, far outside

	_, err := s.svc.Create(ctx, s.citizen, in)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNoCoverage))

	all, err := s.reports.List(ctx, store.Scope{})
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *ReportServiceSuite) TestCreateValidation() {
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
		code   dErrors.Code
	}{
		{"empty description", func(in *CreateInput) { in.Description = "" }, dErrors.CodeInvalidInput},
		{"missing evidence", func(in *CreateInput) { in.EvidenceRef = "" }, dErrors.CodeInvalidInput},
		{"latitude out of range", func(in *CreateInput) { in.Location.Latitude = 91 }, dErrors.CodeInvalidLocation},
		{"unknown severity", func(in *CreateInput) { in.Severity = "critical" }, dErrors.CodeInvalidInput},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			in := validInput()
			tc.mutate(&in)
			_, err := s.svc.Create(ctx, s.citizen, in)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tc.code))
		})
	}

	all, err := s.reports.List(ctx, store.Scope{})
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *ReportServiceSuite) create() *models.Report {
	report, err := s.svc.Create(context.Background(), s.citizen, validInput())
	s.Require().NoError(err)
	return report
}

func (s *ReportServiceSuite) TestTransitionLifecycle() {
	ctx := context.Background()
	report := s.create()

	updated, err := s.svc.Transition(ctx, report.ID, s.responder, models.StatusInProgress)
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, updated.Status)

	updated, err = s.svc.Transition(ctx, report.ID, s.responder, models.StatusResolved)
	s.Require().NoError(err)
	s.Equal(models.StatusResolved, updated.Status)

	// Terminal: nothing moves out of resolved.
	_, err = s.svc.Transition(ctx, report.ID, s.responder, models.StatusInProgress)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ReportServiceSuite) TestTransitionIllegalEdges() {
	ctx := context.Background()
	report := s.create()

	s.Run("new cannot jump to resolved", func() {
		_, err := s.svc.Transition(ctx, report.ID, s.responder, models.StatusResolved)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("re-applying the current status conflicts", func() {
		_, err := s.svc.Transition(ctx, report.ID, s.responder, models.StatusNew)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *ReportServiceSuite) TestTransitionPermissions() {
	ctx := context.Background()
	report := s.create()

	other := s.seed("colaba@example.com", accountmodels.RoleResponder, &accountmodels.ResponderDetails{
		Address:    "Shahid Bhagat Singh Rd",
		City:       "Mumbai",
		PostalCode: "400001",
		Location:   geo.Point{Longitude: 72.8322, Latitude: 18.9067},
	})

	_, err := s.svc.Transition(ctx, report.ID, other, models.StatusInProgress)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.Transition(ctx, report.ID, s.citizen, models.StatusInProgress)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	// Admins may act on any report.
	updated, err := s.svc.Transition(ctx, report.ID, s.admin, models.StatusInProgress)
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, updated.Status)
}

func (s *ReportServiceSuite) TestTransitionUnknownReport() {
	_, err := s.svc.Transition(context.Background(), id.NewReportID(), s.admin, models.StatusInProgress)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ReportServiceSuite) TestListScoping() {
	ctx := context.Background()
	report := s.create()

	mine, err := s.svc.ListForReporter(ctx, s.citizen)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(report.ID, mine[0].ID)

	cases, err := s.svc.ListForResponder(ctx, s.responder, nil)
	s.Require().NoError(err)
	s.Require().Len(cases, 1)

	// Another responder has no cases yet still gets an empty list, not an error.
	other := s.seed("colaba@example.com", accountmodels.RoleResponder, &accountmodels.ResponderDetails{
		Address:    "Shahid Bhagat Singh Rd",
		City:       "Mumbai",
		PostalCode: "400001",
		Location:   geo.Point{Longitude: 72.8322, Latitude: 18.9067},
	})
	cases, err = s.svc.ListForResponder(ctx, other, nil)
	s.Require().NoError(err)
	s.Empty(cases)

	// Admin sees everything; the status filter applies on top.
	resolved := models.StatusResolved
	cases, err = s.svc.ListForResponder(ctx, s.admin, &resolved)
	s.Require().NoError(err)
	s.Empty(cases)
	all, err := s.svc.ListForResponder(ctx, s.admin, nil)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *ReportServiceSuite) TestStatsUsesRequestDay() {
	base := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), base)

	report, err := s.svc.Create(ctx, s.citizen, validInput())
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), base.Add(time.Hour))
	_, err = s.svc.Transition(later, report.ID, s.responder, models.StatusInProgress)
	s.Require().NoError(err)
	_, err = s.svc.Transition(later, report.ID, s.responder, models.StatusResolved)
	s.Require().NoError(err)

	sameDay := requestcontext.WithTime(context.Background(), base.Add(2*time.Hour))
	stats, err := s.svc.Stats(sameDay, s.responder)
	s.Require().NoError(err)
	s.Equal(0, stats.ActiveCount)
	s.Equal(1, stats.ResolvedTodayCount)

	// The next day the same report no longer counts as resolved today.
	nextDay := requestcontext.WithTime(context.Background(), base.Add(24*time.Hour))
	stats, err = s.svc.Stats(nextDay, s.responder)
	s.Require().NoError(err)
	s.Equal(0, stats.ResolvedTodayCount)
}
