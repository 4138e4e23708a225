package api

import (
	"net/http"

	"github.com/fableforge/fable-api/internal/api/shared"
	"github.com/fableforge/fable-api/internal/domain"
)

// SummaryProvider supplies per-kind performance averages.
type SummaryProvider interface {
	SummaryAll() map[domain.TaskKind]domain.PerformanceSummary
}

// PerformanceHandler handles performance-related HTTP requests
type PerformanceHandler struct {
	summaries SummaryProvider
}

// NewPerformanceHandler creates a new PerformanceHandler
func NewPerformanceHandler(summaries SummaryProvider) *PerformanceHandler {
	return &PerformanceHandler{summaries: summaries}
}

// PerformanceAveragesResponse is the body of GET /api/performance/averages.
type PerformanceAveragesResponse struct {
	Averages map[string]PerformanceSummaryResponse `json:"averages"`
}

// GetAverages handles GET /api/performance/averages requests
func (h *PerformanceHandler) GetAverages(w http.ResponseWriter, r *http.Request) {
	summaries := h.summaries.SummaryAll()

	averages := make(map[string]PerformanceSummaryResponse, len(summaries))
	for kind, summary := range summaries {
		averages[string(kind)] = summaryToResponse(summary)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PerformanceAveragesResponse{Averages: averages})
}
