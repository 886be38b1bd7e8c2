// Package handler streams transition events to browsers over Server-Sent
// Events. SSE fits the portal's one-way dashboards; closing the connection is
// the client's only cancellation mechanism, matching the broker contract.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ipregistry/internal/identity"
	"ipregistry/internal/notifier"
	"ipregistry/internal/platform/middleware"
	dErrors "ipregistry/pkg/domain-errors"
	"ipregistry/pkg/platform/httputil"
)

// heartbeatInterval keeps idle connections alive through proxies.
const heartbeatInterval = 15 * time.Second

// Handler exposes the live event stream endpoints.
type Handler struct {
	logger   *slog.Logger
	broker   notifier.Broker
	resolver identity.Resolver
}

func New(broker notifier.Broker, resolver identity.Resolver, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, broker: broker, resolver: resolver}
}

// Register mounts the stream routes.
func (h *Handler) Register(r chi.Router) {
	eventsRouter := chi.NewRouter()
	eventsRouter.Use(middleware.RequireAuth(h.resolver, h.logger))
	eventsRouter.Get("/events", h.handleOwnerStream)

	adminRouter := chi.NewRouter()
	adminRouter.Use(middleware.RequireAuth(h.resolver, h.logger))
	adminRouter.Use(middleware.RequireAdmin(h.logger))
	adminRouter.Get("/events", h.handleAdminStream)

	r.Mount("/", eventsRouter)
	r.Mount("/admin", adminRouter)
}

// handleOwnerStream streams transitions for applications the caller owns.
func (h *Handler) handleOwnerStream(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	h.stream(w, r, notifier.TopicOwner(principal.ID))
}

// handleAdminStream streams every transition (admin activity feed).
func (h *Handler) handleAdminStream(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, notifier.TopicAll)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, topic notifier.Topic) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	events, cancel := h.broker.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, open := <-events:
			if !open {
				// Dropped by the broker (stalled or shutdown); the client
				// reconnects and resumes from current state.
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.ErrorContext(ctx, "marshal transition event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: transition\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
