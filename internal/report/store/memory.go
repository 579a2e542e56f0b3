package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"vigil/internal/report/models"
	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

// InMemoryStore keeps reports in process. The single mutex makes Create
// trivially all-or-nothing.
type InMemoryStore struct {
	mu      sync.RWMutex
	reports map[id.ReportID]*models.Report
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{reports: make(map[id.ReportID]*models.Report)}
}

func (s *InMemoryStore) Create(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.ID]; exists {
		return sentinel.ErrConflict
	}
	s.reports[report.ID] = cloneReport(report)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, reportID id.ReportID) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if report, ok := s.reports[reportID]; ok {
		return cloneReport(report), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[report.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.reports[report.ID] = cloneReport(report)
	return nil
}

func (s *InMemoryStore) ListByReporter(_ context.Context, reporterID id.AccountID) ([]*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Report
	for _, report := range s.reports {
		if report.ReporterID == reporterID {
			out = append(out, cloneReport(report))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) List(_ context.Context, scope Scope) ([]*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Report
	for _, report := range s.reports {
		if !matches(report, scope) {
			continue
		}
		out = append(out, cloneReport(report))
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) Stats(_ context.Context, scope Scope, resolvedSince time.Time) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats models.Stats
	for _, report := range s.reports {
		if scope.Responder != nil && report.AssignedResponderID != *scope.Responder {
			continue
		}
		open := report.Status == models.StatusNew || report.Status == models.StatusInProgress
		if open {
			stats.ActiveCount++
			if report.Severity == models.SeverityHigh {
				stats.HighSeverityOpenCount++
			}
		}
		if report.Status == models.StatusResolved && !report.UpdatedAt.Before(resolvedSince) {
			stats.ResolvedTodayCount++
		}
	}
	return stats, nil
}

func matches(report *models.Report, scope Scope) bool {
	if scope.Responder != nil && report.AssignedResponderID != *scope.Responder {
		return false
	}
	if scope.Status != nil && report.Status != *scope.Status {
		return false
	}
	return true
}

func sortNewestFirst(reports []*models.Report) {
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].ID.String() > reports[j].ID.String()
		}
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}

func cloneReport(r *models.Report) *models.Report {
	cp := *r
	return &cp
}
