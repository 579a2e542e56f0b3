// Package approval keeps an append-only log of administrative approve/reject
// decisions on responder accounts. The account status transition itself lives
// in the registry; this log exists so decisions stay auditable.
package approval

import (
	"context"
	"time"

	id "vigil/pkg/domain"
)

// Decision values recorded in the log.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Event is one recorded decision. Keep it transport-agnostic so stores and
// sinks can fan out.
type Event struct {
	Timestamp time.Time    `json:"timestamp"`
	AccountID id.AccountID `json:"account_id"`
	AdminID   id.AccountID `json:"admin_id"`
	Decision  Decision     `json:"decision"`
	Reason    string       `json:"reason,omitempty"`
}

// Store persists decision events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]Event, error)
}

// Publisher captures structured decision events through the storage layer so
// tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, accountID id.AccountID) ([]Event, error) {
	return p.store.ListByAccount(ctx, accountID)
}
