package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ipregistry/internal/application/models"
	"ipregistry/internal/identity"
	"ipregistry/internal/platform/middleware"
	id "ipregistry/pkg/domain"
	dErrors "ipregistry/pkg/domain-errors"
	"ipregistry/pkg/platform/httputil"
)

// Service defines the engine operations the HTTP layer delegates to.
type Service interface {
	Submit(ctx context.Context, principal identity.Principal, kind models.Kind, payload json.RawMessage) (*models.Application, error)
	RequestTransition(ctx context.Context, appID id.ApplicationID, newStatus models.Status, actor identity.Principal, notes string) (*models.Application, error)
	Get(ctx context.Context, appID id.ApplicationID, principal identity.Principal) (*models.Application, error)
	List(ctx context.Context, principal identity.Principal, filter models.ListFilter) ([]*models.Application, error)
	Trail(ctx context.Context, appID id.ApplicationID, principal identity.Principal) ([]*models.AuditEntry, error)
}

// Handler exposes the application lifecycle endpoints.
type Handler struct {
	logger   *slog.Logger
	engine   Service
	resolver identity.Resolver
}

func New(engine Service, resolver identity.Resolver, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, engine: engine, resolver: resolver}
}

// Register mounts the application routes with their middleware chain.
func (h *Handler) Register(r chi.Router) {
	appRouter := chi.NewRouter()
	appRouter.Use(middleware.ContentTypeJSON)
	appRouter.Use(middleware.Timeout(30 * time.Second))
	appRouter.Use(middleware.RequireAuth(h.resolver, h.logger))
	appRouter.Post("/", h.handleSubmit)
	appRouter.Get("/", h.handleList)
	appRouter.Get("/{id}", h.handleGet)
	appRouter.Get("/{id}/trail", h.handleTrail)
	appRouter.Post("/{id}/transition", h.handleTransition)

	r.Mount("/applications", appRouter)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.GetPrincipal(ctx)

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	kind, err := req.Validate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	app, err := h.engine.Submit(ctx, principal, kind, req.Payload)
	if err != nil {
		h.logError(ctx, "submit application", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.GetPrincipal(ctx)

	q := r.URL.Query()
	filter, err := parseListQuery(q.Get("scope"), q.Get("status"), q.Get("kind"), principal.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	apps, err := h.engine.List(ctx, principal, filter)
	if err != nil {
		h.logError(ctx, "list applications", err)
		httputil.WriteError(w, err)
		return
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.GetPrincipal(ctx)

	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	app, err := h.engine.Get(ctx, appID, principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.GetPrincipal(ctx)

	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.engine.Trail(ctx, appID, principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.AuditEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.GetPrincipal(ctx)

	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	status, err := req.Validate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	app, err := h.engine.RequestTransition(ctx, appID, status, principal, req.Notes)
	if err != nil {
		h.logError(ctx, "request transition", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// logError keeps 5xx-class failures visible in logs without duplicating the
// noise of expected policy rejections.
func (h *Handler) logError(ctx context.Context, op string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal || code == dErrors.CodeUnavailable || code == dErrors.CodeTimeout {
		h.logger.ErrorContext(ctx, op+" failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
	}
}
