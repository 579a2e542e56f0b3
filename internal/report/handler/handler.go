// Package handler exposes the report endpoints: submission for citizens and
// the case list, status updates, and stats for responders and admins.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	accountmodels "vigil/internal/account/models"
	"vigil/internal/geo"
	"vigil/internal/platform/middleware"
	"vigil/internal/report/models"
	"vigil/internal/report/service"
	"vigil/internal/transport/http/shared"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

// Service defines the report operations the handler depends on.
type Service interface {
	Create(ctx context.Context, reporter *accountmodels.Account, in service.CreateInput) (*models.Report, error)
	Transition(ctx context.Context, reportID id.ReportID, acting *accountmodels.Account, next models.Status) (*models.Report, error)
	ListForReporter(ctx context.Context, reporter *accountmodels.Account) ([]*models.Report, error)
	ListForResponder(ctx context.Context, acting *accountmodels.Account, statusFilter *models.Status) ([]*models.Report, error)
	Stats(ctx context.Context, acting *accountmodels.Account) (models.Stats, error)
}

// Authorizer resolves a bearer token into the acting account, enforcing roles.
type Authorizer interface {
	Authorize(ctx context.Context, bearer string, allowed ...accountmodels.Role) (*accountmodels.Account, error)
}

// Handler handles report endpoints.
type Handler struct {
	reports Service
	auth    Authorizer
	logger  *slog.Logger
}

// New creates a new report Handler.
func New(reports Service, auth Authorizer, logger *slog.Logger) *Handler {
	return &Handler{reports: reports, auth: auth, logger: logger}
}

// Register registers the report routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/reports", h.handleCreate)
	r.Get("/reports/mine", h.handleListMine)
	r.Patch("/reports/{id}/status", h.handleTransition)

	r.Get("/responder/cases", h.handleListCases)
	r.Get("/responder/stats", h.handleStats)
}

type createRequest struct {
	Description string     `json:"description"`
	EvidenceRef string     `json:"evidence_ref"`
	Location    *geo.Point `json:"location"`
	Severity    string     `json:"severity"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reporter, err := h.auth.Authorize(ctx, shared.BearerToken(r), accountmodels.RoleCitizen)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create report request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Location == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidLocation, "location is required"))
		return
	}

	report, err := h.reports.Create(ctx, reporter, service.CreateInput{
		Description: req.Description,
		EvidenceRef: req.EvidenceRef,
		Location:    *req.Location,
		Severity:    models.Severity(req.Severity),
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, report)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reporter, err := h.auth.Authorize(ctx, shared.BearerToken(r), accountmodels.RoleCitizen)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reports, err := h.reports.ListForReporter(ctx, reporter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acting, err := h.auth.Authorize(ctx, shared.BearerToken(r),
		accountmodels.RoleResponder, accountmodels.RoleAdmin)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reportID, err := id.ParseReportID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	next, ok := models.ParseStatus(req.Status)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown report status"))
		return
	}

	report, err := h.reports.Transition(ctx, reportID, acting, next)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleListCases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acting, err := h.auth.Authorize(ctx, shared.BearerToken(r),
		accountmodels.RoleResponder, accountmodels.RoleAdmin)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var statusFilter *models.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown report status"))
			return
		}
		statusFilter = &status
	}

	reports, err := h.reports.ListForResponder(ctx, acting, statusFilter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acting, err := h.auth.Authorize(ctx, shared.BearerToken(r),
		accountmodels.RoleResponder, accountmodels.RoleAdmin)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	stats, err := h.reports.Stats(ctx, acting)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}
