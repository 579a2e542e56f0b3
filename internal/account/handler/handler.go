// Package handler exposes account lifecycle endpoints: registration,
// verification, and the admin approval queue.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vigil/internal/account/models"
	"vigil/internal/account/service"
	"vigil/internal/approval"
	"vigil/internal/geo"
	"vigil/internal/platform/middleware"
	"vigil/internal/transport/http/shared"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

// Service defines the account operations the handler depends on.
type Service interface {
	RegisterCitizen(ctx context.Context, in service.RegisterCitizenInput) (id.AccountID, error)
	RegisterResponder(ctx context.Context, in service.RegisterResponderInput) (id.AccountID, error)
	ConfirmVerification(ctx context.Context, email, code string) (models.Status, error)
	ResendCode(ctx context.Context, email string) error
	Approve(ctx context.Context, accountID id.AccountID, admin *models.Account, reason string) error
	Reject(ctx context.Context, accountID id.AccountID, admin *models.Account, reason string) error
	ListPendingResponders(ctx context.Context) ([]*models.Account, error)
	Decisions(ctx context.Context, accountID id.AccountID) ([]approval.Event, error)
}

// Authorizer resolves a bearer token into the acting account, enforcing roles.
type Authorizer interface {
	Authorize(ctx context.Context, bearer string, allowed ...models.Role) (*models.Account, error)
}

// Handler handles account lifecycle endpoints.
type Handler struct {
	accounts Service
	auth     Authorizer
	logger   *slog.Logger
}

// New creates a new account Handler.
func New(accounts Service, auth Authorizer, logger *slog.Logger) *Handler {
	return &Handler{accounts: accounts, auth: auth, logger: logger}
}

// Register registers the account routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register/citizen", h.handleRegisterCitizen)
	r.Post("/register/responder", h.handleRegisterResponder)
	r.Post("/verify-otp", h.handleVerifyOTP)
	r.Post("/verify-otp/resend", h.handleResendOTP)

	r.Get("/accounts/pending", h.handleListPending)
	r.Post("/accounts/{id}/approve", h.handleApprove)
	r.Post("/accounts/{id}/reject", h.handleReject)
	r.Get("/accounts/{id}/decisions", h.handleDecisions)
}

type registerRequest struct {
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Password   string     `json:"password"`
	Contact    string     `json:"contact"`
	Address    string     `json:"address"`
	City       string     `json:"city"`
	PostalCode string     `json:"postal_code"`
	Location   *geo.Point `json:"location"`
}

type registerResponse struct {
	AccountID id.AccountID `json:"account_id"`
	Status    string       `json:"status"`
}

func (h *Handler) handleRegisterCitizen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warnBadBody(ctx, "register citizen", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	accountID, err := h.accounts.RegisterCitizen(ctx, service.RegisterCitizenInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Contact:  req.Contact,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, registerResponse{
		AccountID: accountID,
		Status:    string(models.StatusPendingVerification),
	})
}

func (h *Handler) handleRegisterResponder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warnBadBody(ctx, "register responder", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Location == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidLocation, "location is required"))
		return
	}

	accountID, err := h.accounts.RegisterResponder(ctx, service.RegisterResponderInput{
		RegisterCitizenInput: service.RegisterCitizenInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Contact:  req.Contact,
		},
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Location:   *req.Location,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, registerResponse{
		AccountID: accountID,
		Status:    string(models.StatusPendingVerification),
	})
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warnBadBody(ctx, "verify otp", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	status, err := h.accounts.ConfirmVerification(ctx, req.Email, req.Code)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (h *Handler) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warnBadBody(ctx, "resend otp", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.accounts.ResendCode(ctx, req.Email); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.auth.Authorize(ctx, shared.BearerToken(r), models.RoleAdmin); err != nil {
		shared.WriteError(w, err)
		return
	}

	pending, err := h.accounts.ListPendingResponders(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"accounts": pending})
}

type decisionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.accounts.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.accounts.Reject)
}

func (h *Handler) handleDecision(
	w http.ResponseWriter,
	r *http.Request,
	decide func(ctx context.Context, accountID id.AccountID, admin *models.Account, reason string) error,
) {
	ctx := r.Context()
	admin, err := h.auth.Authorize(ctx, shared.BearerToken(r), models.RoleAdmin)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	accountID, err := id.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	// Reason is optional; an empty body is fine.
	var req decisionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := decide(ctx, accountID, admin, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.auth.Authorize(ctx, shared.BearerToken(r), models.RoleAdmin); err != nil {
		shared.WriteError(w, err)
		return
	}

	accountID, err := id.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	events, err := h.accounts.Decisions(ctx, accountID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"decisions": events})
}

func (h *Handler) warnBadBody(ctx context.Context, op string, err error) {
	h.logger.WarnContext(ctx, "invalid request body",
		"request_id", middleware.GetRequestID(ctx),
		"operation", op,
		"error", err.Error(),
	)
}
