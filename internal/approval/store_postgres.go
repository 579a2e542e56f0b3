package approval

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "vigil/pkg/domain"
)

// PostgresStore persists the decision log in PostgreSQL.
//
//	CREATE TABLE approval_decisions (
//	    ts         TIMESTAMPTZ NOT NULL,
//	    account_id UUID NOT NULL,
//	    admin_id   UUID NOT NULL,
//	    decision   TEXT NOT NULL,
//	    reason     TEXT NOT NULL DEFAULT ''
//	);
//	CREATE INDEX approval_decisions_account_idx ON approval_decisions (account_id, ts);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approval_decisions (ts, account_id, admin_id, decision, reason)
		VALUES ($1, $2, $3, $4, $5)
	`,
		event.Timestamp, uuid.UUID(event.AccountID), uuid.UUID(event.AdminID),
		string(event.Decision), event.Reason,
	)
	if err != nil {
		return fmt.Errorf("append approval decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, account_id, admin_id, decision, reason
		FROM approval_decisions
		WHERE account_id = $1
		ORDER BY ts
	`, uuid.UUID(accountID))
	if err != nil {
		return nil, fmt.Errorf("list approval decisions: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			event    Event
			account  uuid.UUID
			admin    uuid.UUID
			decision string
		)
		if err := rows.Scan(&event.Timestamp, &account, &admin, &decision, &event.Reason); err != nil {
			return nil, fmt.Errorf("scan approval decision: %w", err)
		}
		event.AccountID = id.AccountID(account)
		event.AdminID = id.AccountID(admin)
		event.Decision = Decision(decision)
		out = append(out, event)
	}
	return out, rows.Err()
}
