// Package domain holds domain primitives shared across services: typed
// identifiers and closed enumerations. Typed UUIDs make it a compile error to
// pass a report id where an account id is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "vigil/pkg/domain-errors"
)

// AccountID identifies an account (citizen, responder, or admin).
type AccountID uuid.UUID

// ReportID identifies an incident report.
type ReportID uuid.UUID

// NewAccountID returns a fresh random account id.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewReportID returns a fresh random report id.
func NewReportID() ReportID { return ReportID(uuid.New()) }

func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id ReportID) String() string  { return uuid.UUID(id).String() }

func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReportID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps the ids as canonical UUID strings on the wire.

func (id AccountID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ReportID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *AccountID) UnmarshalText(b []byte) error {
	parsed, err := ParseAccountID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ReportID) UnmarshalText(b []byte) error {
	parsed, err := ParseReportID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseAccountID validates and returns an AccountID. IDs must be valid,
// non-nil UUIDs; anything else is rejected at the trust boundary.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

// ParseReportID validates and returns a ReportID.
func ParseReportID(s string) (ReportID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ReportID{}, err
	}
	return ReportID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
