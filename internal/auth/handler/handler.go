// Package handler exposes the login endpoint.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vigil/internal/account/models"
	"vigil/internal/platform/middleware"
	"vigil/internal/transport/http/shared"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

// Service defines the authentication operation the handler depends on.
type Service interface {
	Authenticate(ctx context.Context, email, password string) (string, *models.Account, error)
}

// Handler handles the login endpoint.
type Handler struct {
	auth     Service
	tokenTTL time.Duration
	logger   *slog.Logger
}

// New creates a new auth Handler.
func New(auth Service, tokenTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, tokenTTL: tokenTTL, logger: logger}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	AccountID   id.AccountID `json:"account_id"`
	Role        models.Role  `json:"role"`
	Name        string       `json:"name"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid login request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "email and password are required"))
		return
	}

	signed, account, err := h.auth.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
		AccountID:   account.ID,
		Role:        account.Role,
		Name:        account.Name,
	})
}
