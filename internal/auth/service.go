// Package auth implements the gateway in front of every protected operation:
// credential authentication at login and token/role authorization per call.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vigil/internal/account/models"
	"vigil/internal/account/store"
	"vigil/internal/credentials"
	"vigil/internal/token"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
	"vigil/pkg/requestcontext"
)

// Gateway authenticates credentials and authorizes bearer tokens against the
// current account record.
type Gateway struct {
	accounts store.Store
	tokens   *token.Service
	logger   *slog.Logger
}

func NewGateway(accounts store.Store, tokens *token.Service, logger *slog.Logger) *Gateway {
	return &Gateway{accounts: accounts, tokens: tokens, logger: logger}
}

// Authenticate verifies email and password and issues a signed bearer token.
// Whether the email exists is never revealed: unknown emails burn the same
// bcrypt work and return the same invalid_credentials error as a wrong
// password. Accounts that are not approved fail with account_not_approved
// carrying the current status, after the password checked out.
func (g *Gateway) Authenticate(ctx context.Context, email, password string) (string, *models.Account, error) {
	account, err := g.accounts.FindByEmail(ctx, email)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", nil, credentials.VerifyDummy(password)
	}
	if err != nil {
		return "", nil, fmt.Errorf("find account: %w", err)
	}

	if err := credentials.Verify(password, account.PasswordHash); err != nil {
		return "", nil, err
	}

	if account.Status != models.StatusApproved {
		return "", nil, dErrors.New(dErrors.CodeAccountNotApproved,
			fmt.Sprintf("account is not approved (status: %s)", account.Status))
	}

	signed, err := g.tokens.Generate(account, requestcontext.Now(ctx))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, account, nil
}

// Authorize verifies the bearer token, reloads the current account, and
// checks its role against the allowed set. The resolved account is returned
// so callers thread it explicitly into the next operation; there is no
// ambient request user.
func (g *Gateway) Authorize(ctx context.Context, bearer string, allowed ...models.Role) (*models.Account, error) {
	claims, err := g.tokens.Validate(bearer)
	if err != nil {
		return nil, err
	}

	accountID, err := claims.ParsedAccountID()
	if err != nil {
		return nil, err
	}

	// Reload rather than trust claims: an account rejected or removed after
	// token issuance must stop authorizing immediately.
	account, err := g.accounts.FindByID(ctx, accountID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if account.Status != models.StatusApproved {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	for _, role := range allowed {
		if account.Role == role {
			return account, nil
		}
	}
	g.logger.WarnContext(ctx, "role not permitted for operation",
		"account_id", account.ID.String(),
		"role", string(account.Role),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil, dErrors.New(dErrors.CodeForbidden, "this role is not permitted to perform the operation")
}
