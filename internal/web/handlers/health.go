package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service health.
type HealthHandler struct {
	embedder Pinger
}

// NewHealthHandler creates a health handler. embedder may be nil.
func NewHealthHandler(embedder Pinger) *HealthHandler {
	return &HealthHandler{embedder: embedder}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Embedding string `json:"embedding"`
}

// Check handles the health check endpoint. The service is healthy even when the
// embedding service is down, since check-ins by raw embedding still work.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Embedding: "disabled"}
	if h.embedder != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.embedder.Ping(ctx); err != nil {
			resp.Embedding = "unavailable"
		} else {
			resp.Embedding = "ok"
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
