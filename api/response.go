package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shoplens/shoplens/internal/agent"
)

// chatResponse is the envelope for every /api/chat reply. Success and
// failure both carry text, tables, and chart_data so the UI never has
// to branch on envelope shape.
type chatResponse struct {
	Text      string              `json:"text"`
	Tables    []agent.Table       `json:"tables"`
	ChartData []agent.ChartSeries `json:"chart_data"`
	Error     string              `json:"error,omitempty"`
	Details   []string            `json:"details,omitempty"`
}

// resultResponse converts an agent result into the response envelope.
func resultResponse(res *agent.Result) chatResponse {
	return chatResponse{
		Text:      res.Text,
		Tables:    nonNilTables(res.Tables),
		ChartData: nonNilSeries(res.ChartData),
	}
}

// errorResponse builds a failure envelope with the given user-facing message.
func errorResponse(message string, details ...string) chatResponse {
	return chatResponse{
		Text:      message,
		Tables:    []agent.Table{},
		ChartData: []agent.ChartSeries{},
		Error:     message,
		Details:   details,
	}
}

func nonNilTables(t []agent.Table) []agent.Table {
	if t == nil {
		return []agent.Table{}
	}
	return t
}

func nonNilSeries(s []agent.ChartSeries) []agent.ChartSeries {
	if s == nil {
		return []agent.ChartSeries{}
	}
	return s
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
