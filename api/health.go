package api

import (
	"net/http"

	"github.com/shoplens/shoplens/internal/log"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	assistant Assistant
	logger    log.Logger
}

// NewHealthHandler creates a health check handler.
func NewHealthHandler(assistant Assistant, logger log.Logger) *HealthHandler {
	return &HealthHandler{assistant: assistant, logger: logger}
}

// RegisterRoutes registers the health check endpoints on the mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /ready", h.handleReady)
}

// handleHealth reports process liveness.
func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports whether the assistant is wired and able to serve
// chat requests.
func (h *HealthHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if h.assistant == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
