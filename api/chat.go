package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shoplens/shoplens/internal/agent"
	"github.com/shoplens/shoplens/internal/log"
	"github.com/shoplens/shoplens/internal/shopify"
)

// maxRequestBody caps chat request bodies at 100 KB.
const maxRequestBody = 100 << 10

// ChatHandler serves the chat endpoint.
type ChatHandler struct {
	assistant Assistant
	logger    log.Logger
}

// NewChatHandler creates a chat handler backed by the given assistant.
func NewChatHandler(assistant Assistant, logger log.Logger) *ChatHandler {
	return &ChatHandler{assistant: assistant, logger: logger}
}

// RegisterRoutes registers the chat endpoint on the mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("POST /api/chat/{$}", h.handleChat)
}

// chatRequest holds raw fields so validation can distinguish a missing
// field from a field of the wrong type.
type chatRequest struct {
	StoreURL json.RawMessage `json:"store_url"`
	Query    json.RawMessage `json:"query"`
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusBadRequest,
				errorResponse("Request body too large. Maximum size is 100 KB."))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("Invalid JSON format."))
		return
	}

	storeURL, storeDetails := stringField(req.StoreURL, "store_url")
	query, queryDetails := stringField(req.Query, "query")
	if details := append(storeDetails, queryDetails...); len(details) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse("Validation failed", details...))
		return
	}

	res, err := h.assistant.Run(r.Context(), storeURL, query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resultResponse(res))
}

// stringField validates that raw is a present, non-empty JSON string and
// returns its value, or human-readable problems for the details list.
func stringField(raw json.RawMessage, name string) (string, []string) {
	if len(raw) == 0 {
		return "", []string{name + " is required"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", []string{name + " must be a string"}
	}
	if s == "" {
		return "", []string{name + " must not be empty"}
	}
	return s, nil
}

// writeError maps assistant failures to HTTP status codes and
// user-facing messages.
func (h *ChatHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *shopify.HTTPError

	switch {
	case errors.Is(err, context.Canceled):
		// The client went away; there is nobody to respond to.
		h.logger.Debug("chat request cancelled by client", "error", err)
		return
	case errors.Is(err, agent.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("chat request timed out", "error", err)
		writeJSON(w, http.StatusGatewayTimeout,
			errorResponse("Request timed out. Please try a simpler query."))
	case errors.Is(err, agent.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse("Validation failed", err.Error()))
	case errors.Is(err, shopify.ErrRateLimited):
		h.logger.Warn("shopify rate limit exhausted", "error", err)
		writeJSON(w, http.StatusTooManyRequests,
			errorResponse("Shopify API rate limit exceeded. Please try again later."))
	case errors.As(err, &httpErr),
		errors.Is(err, shopify.ErrNetwork),
		errors.Is(err, shopify.ErrConfig),
		errors.Is(err, shopify.ErrInvalidResource):
		h.logger.Error("shopify request failed", "error", err)
		writeJSON(w, http.StatusBadGateway,
			errorResponse("Unable to communicate with Shopify. Please try again."))
	default:
		h.logger.Error("chat request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError,
			errorResponse("An error occurred while processing your request. Please try again."))
	}
}
