// Package models defines the account entity and its closed role and status
// enumerations.
package models

import (
	"strings"
	"time"

	geo "vigil/internal/geo/point"
	id "vigil/pkg/domain"
)

// Role is the closed set of account roles. Immutable after creation.
type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleResponder Role = "responder"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a role read from storage or the wire.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCitizen, RoleResponder, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Status is the closed set of account lifecycle states. It drives login
// eligibility: only approved accounts may authenticate.
type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusPendingApproval     Status = "pending_approval"
	StatusApproved            Status = "approved"
	StatusRejected            Status = "rejected"
)

// ParseStatus validates a status read from storage.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPendingVerification, StatusPendingApproval, StatusApproved, StatusRejected:
		return Status(s), true
	default:
		return "", false
	}
}

// ResponderDetails is the role-specific payload present exactly when
// Role == RoleResponder. Modeling it as a tagged variant avoids the
// "required if role=X" runtime checks on a flat record.
type ResponderDetails struct {
	Address    string    `json:"address"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Location   geo.Point `json:"location"`
}

// Account is the common core shared by all roles.
type Account struct {
	ID           id.AccountID `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"` // stored lowercased; uniqueness is case-insensitive
	PasswordHash string       `json:"-"`
	Contact      string       `json:"contact"`
	Role         Role         `json:"role"`
	Status       Status       `json:"status"`

	// Responder is non-nil exactly when Role == RoleResponder.
	Responder *ResponderDetails `json:"responder,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email for case-insensitive matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Location returns the responder location when present.
func (a *Account) Location() (geo.Point, bool) {
	if a.Role == RoleResponder && a.Responder != nil {
		return a.Responder.Location, true
	}
	return geo.Point{}, false
}
