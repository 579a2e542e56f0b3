package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"vigil/internal/account/models"
	"vigil/internal/geo"
	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

// PostgresStore persists accounts in PostgreSQL. Email uniqueness is enforced
// by a unique index on lower(email); the 23505 violation maps to
// sentinel.ErrConflict so the service layer never inspects driver errors.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed account store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema for reference; applied by migrations, not by this package.
//
//	CREATE TABLE accounts (
//	    id            UUID PRIMARY KEY,
//	    name          TEXT NOT NULL,
//	    email         TEXT NOT NULL,
//	    password_hash TEXT NOT NULL,
//	    contact       TEXT NOT NULL DEFAULT '',
//	    role          TEXT NOT NULL,
//	    status        TEXT NOT NULL,
//	    address       TEXT,
//	    city          TEXT,
//	    postal_code   TEXT,
//	    longitude     DOUBLE PRECISION,
//	    latitude      DOUBLE PRECISION,
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX accounts_email_lower_idx ON accounts (lower(email));
//	CREATE INDEX accounts_role_status_idx ON accounts (role, status);

func (s *PostgresStore) Create(ctx context.Context, account *models.Account) error {
	row := flatten(account)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts
			(id, name, email, password_hash, contact, role, status,
			 address, city, postal_code, longitude, latitude, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		uuid.UUID(account.ID), account.Name, models.NormalizeEmail(account.Email),
		account.PasswordHash, account.Contact, string(account.Role), string(account.Status),
		row.address, row.city, row.postalCode, row.longitude, row.latitude,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(accountID))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, `WHERE lower(email) = $1`, models.NormalizeEmail(email))
}

func (s *PostgresStore) Update(ctx context.Context, account *models.Account) error {
	row := flatten(account)
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET
			name = $2, email = $3, password_hash = $4, contact = $5,
			status = $6, address = $7, city = $8, postal_code = $9,
			longitude = $10, latitude = $11, updated_at = $12
		WHERE id = $1
	`,
		uuid.UUID(account.ID), account.Name, models.NormalizeEmail(account.Email),
		account.PasswordHash, account.Contact, string(account.Status),
		row.address, row.city, row.postalCode, row.longitude, row.latitude,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByRoleStatus(ctx context.Context, role models.Role, status models.Status) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE role = $1 AND status = $2 ORDER BY created_at`,
		string(role), string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

const selectColumns = `
	SELECT id, name, email, password_hash, contact, role, status,
	       address, city, postal_code, longitude, latitude, created_at, updated_at
	FROM accounts`

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" "+where, arg)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return account, err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAccount(row scannable) (*models.Account, error) {
	var (
		account    models.Account
		accountID  uuid.UUID
		role       string
		status     string
		address    sql.NullString
		city       sql.NullString
		postalCode sql.NullString
		longitude  sql.NullFloat64
		latitude   sql.NullFloat64
	)
	err := row.Scan(
		&accountID, &account.Name, &account.Email, &account.PasswordHash,
		&account.Contact, &role, &status,
		&address, &city, &postalCode, &longitude, &latitude,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.ID = id.AccountID(accountID)

	parsedRole, ok := models.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("account %s: unknown role %q", accountID, role)
	}
	account.Role = parsedRole

	parsedStatus, ok := models.ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("account %s: unknown status %q", accountID, status)
	}
	account.Status = parsedStatus

	if account.Role == models.RoleResponder {
		account.Responder = &models.ResponderDetails{
			Address:    address.String,
			City:       city.String,
			PostalCode: postalCode.String,
			Location: geo.Point{
				Longitude: longitude.Float64,
				Latitude:  latitude.Float64,
			},
		}
	}
	return &account, nil
}

type flatRow struct {
	address    sql.NullString
	city       sql.NullString
	postalCode sql.NullString
	longitude  sql.NullFloat64
	latitude   sql.NullFloat64
}

func flatten(account *models.Account) flatRow {
	var row flatRow
	if account.Responder != nil {
		row.address = sql.NullString{String: account.Responder.Address, Valid: true}
		row.city = sql.NullString{String: account.Responder.City, Valid: true}
		row.postalCode = sql.NullString{String: account.Responder.PostalCode, Valid: true}
		row.longitude = sql.NullFloat64{Float64: account.Responder.Location.Longitude, Valid: true}
		row.latitude = sql.NullFloat64{Float64: account.Responder.Location.Latitude, Valid: true}
	}
	return row
}
