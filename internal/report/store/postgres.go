package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vigil/internal/report/models"
	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

// PostgresStore persists reports in PostgreSQL. Creation is a single INSERT
// executed after dispatch resolution, so a failed resolution never leaves a
// partial row.
//
//	CREATE TABLE reports (
//	    id           UUID PRIMARY KEY,
//	    reporter_id  UUID NOT NULL,
//	    description  TEXT NOT NULL,
//	    evidence_ref TEXT NOT NULL,
//	    longitude    DOUBLE PRECISION NOT NULL,
//	    latitude     DOUBLE PRECISION NOT NULL,
//	    severity     TEXT NOT NULL,
//	    responder_id UUID NOT NULL,
//	    status       TEXT NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX reports_reporter_idx ON reports (reporter_id, created_at DESC);
//	CREATE INDEX reports_responder_idx ON reports (responder_id, created_at DESC);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, report *models.Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports
			(id, reporter_id, description, evidence_ref, longitude, latitude,
			 severity, responder_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		uuid.UUID(report.ID), uuid.UUID(report.ReporterID), report.Description,
		report.EvidenceRef, report.Location.Longitude, report.Location.Latitude,
		string(report.Severity), uuid.UUID(report.AssignedResponderID),
		string(report.Status), report.CreatedAt, report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, reportID id.ReportID) (*models.Report, error) {
	row := s.db.QueryRowContext(ctx, selectReport+` WHERE id = $1`, uuid.UUID(reportID))
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return report, err
}

func (s *PostgresStore) Update(ctx context.Context, report *models.Report) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports SET status = $2, updated_at = $3 WHERE id = $1
	`, uuid.UUID(report.ID), string(report.Status), report.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByReporter(ctx context.Context, reporterID id.AccountID) ([]*models.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		selectReport+` WHERE reporter_id = $1 ORDER BY created_at DESC, id DESC`,
		uuid.UUID(reporterID),
	)
	if err != nil {
		return nil, fmt.Errorf("list reports by reporter: %w", err)
	}
	return collect(rows)
}

func (s *PostgresStore) List(ctx context.Context, scope Scope) ([]*models.Report, error) {
	query := selectReport + ` WHERE ($1::uuid IS NULL OR responder_id = $1)
		AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query, scopeResponder(scope), scopeStatus(scope))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return collect(rows)
}

func (s *PostgresStore) Stats(ctx context.Context, scope Scope, resolvedSince time.Time) (models.Stats, error) {
	const query = `
		SELECT
			count(*) FILTER (WHERE status IN ('new', 'in_progress')),
			count(*) FILTER (WHERE status = 'resolved' AND updated_at >= $2),
			count(*) FILTER (WHERE status IN ('new', 'in_progress') AND severity = 'high')
		FROM reports
		WHERE ($1::uuid IS NULL OR responder_id = $1)
	`
	var stats models.Stats
	err := s.db.QueryRowContext(ctx, query, scopeResponder(scope), resolvedSince).
		Scan(&stats.ActiveCount, &stats.ResolvedTodayCount, &stats.HighSeverityOpenCount)
	if err != nil {
		return models.Stats{}, fmt.Errorf("report stats: %w", err)
	}
	return stats, nil
}

const selectReport = `
	SELECT id, reporter_id, description, evidence_ref, longitude, latitude,
	       severity, responder_id, status, created_at, updated_at
	FROM reports`

func scopeResponder(scope Scope) any {
	if scope.Responder == nil {
		return nil
	}
	return uuid.UUID(*scope.Responder)
}

func scopeStatus(scope Scope) any {
	if scope.Status == nil {
		return nil
	}
	return string(*scope.Status)
}

func collect(rows *sql.Rows) ([]*models.Report, error) {
	defer rows.Close()
	var out []*models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanReport(row scannable) (*models.Report, error) {
	var (
		report      models.Report
		reportID    uuid.UUID
		reporterID  uuid.UUID
		responderID uuid.UUID
		severity    string
		status      string
	)
	err := row.Scan(
		&reportID, &reporterID, &report.Description, &report.EvidenceRef,
		&report.Location.Longitude, &report.Location.Latitude,
		&severity, &responderID, &status, &report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	report.ID = id.ReportID(reportID)
	report.ReporterID = id.AccountID(reporterID)
	report.AssignedResponderID = id.AccountID(responderID)

	parsedSeverity, ok := models.ParseSeverity(severity)
	if !ok {
		return nil, fmt.Errorf("report %s: unknown severity %q", reportID, severity)
	}
	report.Severity = parsedSeverity

	parsedStatus, ok := models.ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("report %s: unknown status %q", reportID, status)
	}
	report.Status = parsedStatus
	return &report, nil
}
