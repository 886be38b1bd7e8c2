// Package handler exposes the autosaved form draft endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ipregistry/internal/draft"
	"ipregistry/internal/identity"
	"ipregistry/internal/platform/middleware"
	dErrors "ipregistry/pkg/domain-errors"
	"ipregistry/pkg/platform/httputil"
)

// Service defines the draft operations the HTTP layer delegates to.
type Service interface {
	Save(ctx context.Context, formID, principal string, data json.RawMessage) (draft.Draft, error)
	Load(ctx context.Context, formID, principal string) (draft.Draft, error)
	Clear(ctx context.Context, formID, principal string) error
}

type Handler struct {
	logger   *slog.Logger
	drafts   Service
	resolver identity.Resolver
}

func New(drafts Service, resolver identity.Resolver, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, drafts: drafts, resolver: resolver}
}

// Register mounts the draft routes with their middleware chain.
func (h *Handler) Register(r chi.Router) {
	draftRouter := chi.NewRouter()
	draftRouter.Use(middleware.ContentTypeJSON)
	draftRouter.Use(middleware.Timeout(10 * time.Second))
	draftRouter.Use(middleware.RequireAuth(h.resolver, h.logger))
	draftRouter.Get("/{formID}", h.handleLoad)
	draftRouter.Put("/{formID}", h.handleSave)
	draftRouter.Delete("/{formID}", h.handleClear)

	r.Mount("/drafts", draftRouter)
}

type saveRequest struct {
	Data json.RawMessage `json:"data"`
}

// handleSave accepts an autosave tick. The write is debounced, so the
// response is 202: accepted, persistence pending.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.GetPrincipal(ctx)
	formID := chi.URLParam(r, "formID")

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	d, err := h.drafts.Save(ctx, formID, principal.ID, req.Data)
	if err != nil {
		h.logError(ctx, "save draft", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, d)
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.GetPrincipal(ctx)
	formID := chi.URLParam(r, "formID")

	d, err := h.drafts.Load(ctx, formID, principal.ID)
	if err != nil {
		h.logError(ctx, "load draft", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.GetPrincipal(ctx)
	formID := chi.URLParam(r, "formID")

	if err := h.drafts.Clear(ctx, formID, principal.ID); err != nil {
		h.logError(ctx, "clear draft", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logError(ctx context.Context, op string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal || code == dErrors.CodeUnavailable || code == dErrors.CodeTimeout {
		h.logger.ErrorContext(ctx, op+" failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
	}
}
