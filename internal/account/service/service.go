// Package service implements the account registry: registration, challenge
// verification, and the administrative approval step for responders.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vigil/internal/account/models"
	"vigil/internal/account/store"
	"vigil/internal/approval"
	"vigil/internal/challenge"
	"vigil/internal/credentials"
	"vigil/internal/geo"
	"vigil/internal/notify"
	"vigil/internal/platform/metrics"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
	"vigil/pkg/requestcontext"
)

// Registry owns account entities and their lifecycle state machine.
type Registry struct {
	accounts  store.Store
	issuer    *challenge.Issuer
	notifier  notify.Notifier
	decisions *approval.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewRegistry(
	accounts store.Store,
	issuer *challenge.Issuer,
	notifier notify.Notifier,
	decisions *approval.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Registry {
	return &Registry{
		accounts:  accounts,
		issuer:    issuer,
		notifier:  notifier,
		decisions: decisions,
		metrics:   m,
		logger:    logger,
	}
}

// RegisterCitizenInput carries the citizen registration fields.
type RegisterCitizenInput struct {
	Name     string
	Email    string
	Password string
	Contact  string
}

// RegisterResponderInput extends citizen registration with the responder
// payload: a service address and a dispatchable location.
type RegisterResponderInput struct {
	RegisterCitizenInput
	Address    string
	City       string
	PostalCode string
	Location   geo.Point
}

// RegisterCitizen creates a pending_verification citizen account and sends a
// verification code to the given email.
func (r *Registry) RegisterCitizen(ctx context.Context, in RegisterCitizenInput) (id.AccountID, error) {
	account, err := r.newAccount(ctx, in, models.RoleCitizen)
	if err != nil {
		return id.AccountID{}, err
	}
	return r.createAndChallenge(ctx, account)
}

// RegisterResponder creates a pending_verification responder account. The
// location must be present and well-formed; responders without a dispatchable
// location would be invisible to the geo index.
func (r *Registry) RegisterResponder(ctx context.Context, in RegisterResponderInput) (id.AccountID, error) {
	if err := in.Location.Validate(); err != nil {
		return id.AccountID{}, err
	}
	if in.Address == "" || in.City == "" || in.PostalCode == "" {
		return id.AccountID{}, dErrors.New(dErrors.CodeInvalidInput, "address, city, and postal code are required")
	}
	account, err := r.newAccount(ctx, in.RegisterCitizenInput, models.RoleResponder)
	if err != nil {
		return id.AccountID{}, err
	}
	account.Responder = &models.ResponderDetails{
		Address:    in.Address,
		City:       in.City,
		PostalCode: in.PostalCode,
		Location:   in.Location,
	}
	return r.createAndChallenge(ctx, account)
}

func (r *Registry) newAccount(ctx context.Context, in RegisterCitizenInput, role models.Role) (*models.Account, error) {
	if in.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	email := models.NormalizeEmail(in.Email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	hash, err := credentials.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	return &models.Account{
		ID:           id.NewAccountID(),
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		Contact:      in.Contact,
		Role:         role,
		Status:       models.StatusPendingVerification,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (r *Registry) createAndChallenge(ctx context.Context, account *models.Account) (id.AccountID, error) {
	if err := r.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return id.AccountID{}, dErrors.New(dErrors.CodeDuplicateEmail, "an account with this email already exists")
		}
		return id.AccountID{}, fmt.Errorf("create account: %w", err)
	}
	r.metrics.AccountsCreated.Inc()

	if err := r.sendChallenge(ctx, account); err != nil {
		return id.AccountID{}, err
	}
	return account.ID, nil
}

// ResendCode re-issues the verification challenge for an account still
// pending verification. The previous code stops working (overwrite).
func (r *Registry) ResendCode(ctx context.Context, email string) error {
	account, err := r.accounts.FindByEmail(ctx, email)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if account.Status != models.StatusPendingVerification {
		return dErrors.New(dErrors.CodeInvalidTransition, "account is not pending verification")
	}
	return r.sendChallenge(ctx, account)
}

func (r *Registry) sendChallenge(ctx context.Context, account *models.Account) error {
	code, err := r.issuer.Issue(ctx, account.Email)
	if err != nil {
		return fmt.Errorf("issue challenge: %w", err)
	}

	// Delivery is best-effort; the notifier logs its own failures.
	r.notifier.Send(ctx, notify.Message{
		Target:  account.Email,
		Subject: "Your verification code",
		Body:    fmt.Sprintf("Hello %s, your verification code is %s. It expires in 10 minutes.", account.Name, code),
	})
	return nil
}

// ConfirmVerification checks the submitted code and advances the account:
// citizens become approved, responders move to pending_approval awaiting an
// admin decision. Returns the resulting status.
func (r *Registry) ConfirmVerification(ctx context.Context, email, code string) (models.Status, error) {
	account, err := r.accounts.FindByEmail(ctx, email)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeNotFound, "no pending verification for this account")
	}
	if err != nil {
		return "", fmt.Errorf("find account: %w", err)
	}

	if err := r.issuer.Verify(ctx, account.Email, code); err != nil {
		return "", err
	}

	switch account.Role {
	case models.RoleCitizen:
		account.Status = models.StatusApproved
	case models.RoleResponder:
		account.Status = models.StatusPendingApproval
	case models.RoleAdmin:
		// Admins are seeded approved and never hold a challenge.
		return "", dErrors.New(dErrors.CodeInvariantViolation, "admin accounts are not verified by code")
	default:
		return "", dErrors.New(dErrors.CodeInvariantViolation, "unknown account role")
	}
	account.UpdatedAt = requestcontext.Now(ctx)

	if err := r.accounts.Update(ctx, account); err != nil {
		return "", fmt.Errorf("update account: %w", err)
	}
	return account.Status, nil
}

// Approve moves a pending_approval account to approved. Only admins reach
// this code path; the transition is recorded in the decision log.
func (r *Registry) Approve(ctx context.Context, accountID id.AccountID, admin *models.Account, reason string) error {
	return r.decide(ctx, accountID, admin, approval.DecisionApproved, models.StatusApproved, reason)
}

// Reject moves a pending_approval account to rejected. Rejected accounts are
// retained for audit, never deleted.
func (r *Registry) Reject(ctx context.Context, accountID id.AccountID, admin *models.Account, reason string) error {
	return r.decide(ctx, accountID, admin, approval.DecisionRejected, models.StatusRejected, reason)
}

func (r *Registry) decide(
	ctx context.Context,
	accountID id.AccountID,
	admin *models.Account,
	decision approval.Decision,
	target models.Status,
	reason string,
) error {
	account, err := r.accounts.FindByID(ctx, accountID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}

	if account.Status != models.StatusPendingApproval {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("account is %s, not pending approval", account.Status))
	}

	account.Status = target
	account.UpdatedAt = requestcontext.Now(ctx)
	if err := r.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	if err := r.decisions.Emit(ctx, approval.Event{
		Timestamp: account.UpdatedAt,
		AccountID: account.ID,
		AdminID:   admin.ID,
		Decision:  decision,
		Reason:    reason,
	}); err != nil {
		// The transition already happened; losing the log entry is logged,
		// not rolled back.
		r.logger.ErrorContext(ctx, "failed to record approval decision",
			"account_id", account.ID.String(),
			"error", err,
		)
	}

	r.notifier.Send(ctx, notify.Message{
		Target:  account.Email,
		Subject: fmt.Sprintf("Your responder registration was %s", decision),
		Body:    fmt.Sprintf("Hello %s, your registration has been %s.", account.Name, decision),
	})
	return nil
}

// ListPendingResponders returns responders awaiting an admin decision.
func (r *Registry) ListPendingResponders(ctx context.Context) ([]*models.Account, error) {
	return r.accounts.ListByRoleStatus(ctx, models.RoleResponder, models.StatusPendingApproval)
}

// Decisions lists the recorded approval decisions for an account.
func (r *Registry) Decisions(ctx context.Context, accountID id.AccountID) ([]approval.Event, error) {
	return r.decisions.List(ctx, accountID)
}
