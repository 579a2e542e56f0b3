// Package handler exposes evidence upload and retrieval.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	accountmodels "vigil/internal/account/models"
	"vigil/internal/evidence"
	"vigil/internal/transport/http/shared"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
)

// MaxUploadBytes caps a single evidence upload.
const MaxUploadBytes = 10 << 20 // 10 MiB

// Authorizer resolves a bearer token into the acting account, enforcing roles.
type Authorizer interface {
	Authorize(ctx context.Context, bearer string, allowed ...accountmodels.Role) (*accountmodels.Account, error)
}

// Handler handles evidence endpoints.
type Handler struct {
	store  evidence.Store
	auth   Authorizer
	logger *slog.Logger
}

// New creates a new evidence Handler.
func New(store evidence.Store, auth Authorizer, logger *slog.Logger) *Handler {
	return &Handler{store: store, auth: auth, logger: logger}
}

// Register registers the evidence routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/evidence", h.handleUpload)
	r.Get("/evidence/{ref}", h.handleDownload)
}

// handleUpload accepts raw bytes and returns the reference that report
// creation requires.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.auth.Authorize(ctx, shared.BearerToken(r), accountmodels.RoleCitizen); err != nil {
		shared.WriteError(w, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, MaxUploadBytes+1))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not read upload"))
		return
	}
	if len(data) == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "evidence body is empty"))
		return
	}
	if len(data) > MaxUploadBytes {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "evidence exceeds the upload limit"))
		return
	}

	ref, err := h.store.Put(ctx, data)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"evidence_ref": ref})
}

// handleDownload serves stored evidence to responders and admins reviewing a
// case.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.auth.Authorize(ctx, shared.BearerToken(r),
		accountmodels.RoleResponder, accountmodels.RoleAdmin); err != nil {
		shared.WriteError(w, err)
		return
	}

	data, err := h.store.Get(ctx, chi.URLParam(r, "ref"))
	if errors.Is(err, sentinel.ErrNotFound) {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "evidence not found"))
		return
	}
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
