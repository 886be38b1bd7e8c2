// Package handler exposes document upload and retrieval.
package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ipregistry/internal/blob"
	"ipregistry/internal/identity"
	"ipregistry/internal/platform/middleware"
	dErrors "ipregistry/pkg/domain-errors"
	"ipregistry/pkg/platform/httputil"
	"ipregistry/pkg/platform/sentinel"
)

// Uploads above this size are rejected outright.
const maxUploadBytes = 10 << 20

type Handler struct {
	logger   *slog.Logger
	store    blob.Store
	resolver identity.Resolver
}

func New(store blob.Store, resolver identity.Resolver, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, store: store, resolver: resolver}
}

// Register mounts the document routes. Uploads are multipart rather than
// JSON, so the JSON content-type middleware stays off this router.
func (h *Handler) Register(r chi.Router) {
	docRouter := chi.NewRouter()
	docRouter.Use(middleware.Timeout(30 * time.Second))
	docRouter.With(middleware.RequireAuth(h.resolver, h.logger)).Post("/", h.handleUpload)
	docRouter.Get("/{id}", h.handleFetch)

	r.Mount("/documents", docRouter)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "multipart field 'file' is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read upload"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := h.store.Upload(ctx, header.Filename, contentType, content)
	if err != nil {
		h.logger.ErrorContext(ctx, "upload document failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "upload document"))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Fetch(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "document not found"))
		return
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "fetch document"))
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}
