package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/internal/account/models"
	"vigil/internal/account/store"
	"vigil/internal/credentials"
	"vigil/internal/token"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

type GatewaySuite struct {
	suite.Suite
	accounts *store.InMemoryStore
	gateway  *Gateway
}

func (s *GatewaySuite) SetupTest() {
	s.accounts = store.NewInMemory()
	s.gateway = NewGateway(
		s.accounts,
		token.NewService("test-signing-key", "vigil", token.DefaultTTL),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) seed(email, password string, role models.Role, status models.Status) *models.Account {
	hash, err := credentials.Hash(password)
	s.Require().NoError(err)
	now := time.Now()
	account := &models.Account{
		ID:           id.NewAccountID(),
		Name:         "Asha Rao",
		Email:        models.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.accounts.Create(context.Background(), account))
	return account
}

func (s *GatewaySuite) TestAuthenticateAndAuthorize() {
	ctx := context.Background()
	seeded := s.seed("asha@example.com", "correct horse", models.RoleCitizen, models.StatusApproved)

	bearer, account, err := s.gateway.Authenticate(ctx, "asha@example.com", "correct horse")
	s.Require().NoError(err)
	s.Equal(seeded.ID, account.ID)
	s.NotEmpty(bearer)

	resolved, err := s.gateway.Authorize(ctx, bearer, models.RoleCitizen)
	s.Require().NoError(err)
	s.Equal(seeded.ID, resolved.ID)
}

func (s *GatewaySuite) TestWrongPassword() {
	s.seed("asha@example.com", "correct horse", models.RoleCitizen, models.StatusApproved)

	_, _, err := s.gateway.Authenticate(context.Background(), "asha@example.com", "battery staple")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
}

func (s *GatewaySuite) TestUnknownEmailIsIndistinguishable() {
	_, _, err := s.gateway.Authenticate(context.Background(), "nobody@example.com", "anything")
	s.Require().Error(err)
	// Same code as a wrong password: the response never reveals whether the
	// email exists.
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
}

func (s *GatewaySuite) TestUnapprovedAccountCannotLogin() {
	s.seed("station@example.com", "correct horse", models.RoleResponder, models.StatusPendingApproval)

	s.Run("correct password reveals the status", func() {
		_, _, err := s.gateway.Authenticate(context.Background(), "station@example.com", "correct horse")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAccountNotApproved))
	})

	s.Run("wrong password stays invalid_credentials", func() {
		_, _, err := s.gateway.Authenticate(context.Background(), "station@example.com", "battery staple")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
	})
}

func (s *GatewaySuite) TestAuthorizeRoleMismatch() {
	ctx := context.Background()
	s.seed("asha@example.com", "correct horse", models.RoleCitizen, models.StatusApproved)

	bearer, _, err := s.gateway.Authenticate(ctx, "asha@example.com", "correct horse")
	s.Require().NoError(err)

	_, err = s.gateway.Authorize(ctx, bearer, models.RoleAdmin)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *GatewaySuite) TestTokenStopsWorkingAfterRejection() {
	ctx := context.Background()
	account := s.seed("station@example.com", "correct horse", models.RoleResponder, models.StatusApproved)

	bearer, _, err := s.gateway.Authenticate(ctx, "station@example.com", "correct horse")
	s.Require().NoError(err)

	account.Status = models.StatusRejected
	s.Require().NoError(s.accounts.Update(ctx, account))

	_, err = s.gateway.Authorize(ctx, bearer, models.RoleResponder)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *GatewaySuite) TestGarbageToken() {
	_, err := s.gateway.Authorize(context.Background(), "not-a-jwt", models.RoleCitizen)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *GatewaySuite) TestMissingToken() {
	_, err := s.gateway.Authorize(context.Background(), "", models.RoleCitizen)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
