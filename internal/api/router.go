// Package api implements the ansuz REST API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *docservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Normalization.
	r.Post("/normalize", h.NormalizeTree)
	r.Get("/documents/*", h.PreviewDocument)
	r.Post("/documents/*", h.NormalizeDocument)

	// Structure check and classification.
	r.Get("/check", h.Check)
	r.Get("/classify", h.Classify)

	// Run history.
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{id}", h.GetRun)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
