package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/railops/dispatch/models"
	"github.com/railops/dispatch/services"
)

// OptimizationService defines the suggestion operations the handlers need
type OptimizationService interface {
	Analyze(ctx context.Context, trainID string) (*services.Analysis, error)
	List(ctx context.Context, filter models.SuggestionFilter) ([]models.OptimizationSuggestion, error)
	Implement(ctx context.Context, suggestionID, userID string) (*services.ImplementationResult, error)
	Decide(ctx context.Context, suggestionID string, decision services.Decision, userID string) (*models.OptimizationSuggestion, error)
}

// OptimizationHandler handles HTTP requests for optimization suggestions
type OptimizationHandler struct {
	svc     OptimizationService
	timeout time.Duration
}

// NewOptimizationHandler creates a new handler with the given service
func NewOptimizationHandler(svc OptimizationService, timeout time.Duration) *OptimizationHandler {
	return &OptimizationHandler{svc: svc, timeout: timeout}
}

// AnalyzeRequest is the body of POST /api/optimization/analyze
type AnalyzeRequest struct {
	TrainID string `json:"trainId,omitempty"`
}

// AnalyzeResponse is the JSON response for POST /api/optimization/analyze
type AnalyzeResponse struct {
	Data         models.OptimizationResult `json:"data"`
	AnalysisTime time.Time                 `json:"analysisTime"`
	Context      services.AnalysisContext  `json:"context"`
}

// ImplementRequest is the body of POST /api/optimization/implement
type ImplementRequest struct {
	SuggestionID string `json:"suggestionId"`
	UserID       string `json:"userId"`
}

// ImplementResponse is the JSON response for POST /api/optimization/implement.
// Error is set when the simulated implementation failed.
type ImplementResponse struct {
	Data    *services.ImplementationResult `json:"data"`
	Message string                         `json:"message,omitempty"`
	Error   string                         `json:"error,omitempty"`
}

// ActionRequest is the body of POST /api/optimization
type ActionRequest struct {
	Action       string `json:"action"`
	SuggestionID string `json:"suggestionId,omitempty"`
	TrainID      string `json:"trainId,omitempty"`
	UserID       string `json:"userId,omitempty"`
}

// Analyze handles POST /api/optimization/analyze
// Analyzes the whole network, or one train when trainId is given
func (h *OptimizationHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// The body is optional; an empty one analyzes the whole network
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}

	analysis, err := h.svc.Analyze(ctx, req.TrainID)
	if err != nil {
		writeServiceError(w, err, "Failed to analyze optimization")
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Data:         analysis.Result,
		AnalysisTime: analysis.AnalyzedAt.UTC(),
		Context:      analysis.Context,
	})
}

// Implement handles POST /api/optimization/implement
// Returns 200 when the suggestion was carried out, 422 when it failed
func (h *OptimizationHandler) Implement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ImplementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SuggestionID == "" {
		writeError(w, http.StatusBadRequest, "suggestionId is required", nil)
		return
	}

	result, err := h.svc.Implement(ctx, req.SuggestionID, req.UserID)
	if err != nil {
		writeServiceError(w, err, "Failed to implement optimization")
		return
	}

	if !result.Implementation.Success {
		writeJSON(w, http.StatusUnprocessableEntity, ImplementResponse{
			Data:  result,
			Error: result.Implementation.ActualImprovement,
		})
		return
	}

	writeJSON(w, http.StatusOK, ImplementResponse{
		Data:    result,
		Message: "Optimization implemented successfully",
	})
}

// List handles GET /api/optimization
// Supports status and trainId query filters
func (h *OptimizationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	filter := models.SuggestionFilter{
		Status:  models.SuggestionStatus(r.URL.Query().Get("status")),
		TrainID: r.URL.Query().Get("trainId"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status filter", map[string]interface{}{
			"status": filter.Status,
		})
		return
	}

	suggestions, err := h.svc.List(ctx, filter)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch suggestions")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Data: suggestions, Total: len(suggestions)})
}

// Act handles POST /api/optimization
// Actions: accept, reject (by suggestionId) and generate (by trainId)
func (h *OptimizationHandler) Act(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ActionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	switch req.Action {
	case "generate":
		if req.TrainID == "" {
			writeError(w, http.StatusBadRequest, "trainId is required", nil)
			return
		}
		analysis, err := h.svc.Analyze(ctx, req.TrainID)
		if err != nil {
			writeServiceError(w, err, "Failed to process optimization")
			return
		}
		writeJSON(w, http.StatusOK, DataResponse{
			Data:    analysis.Result.Suggestions,
			Message: "Optimization generate completed successfully",
		})

	case string(services.DecisionAccept), string(services.DecisionReject):
		if req.SuggestionID == "" {
			writeError(w, http.StatusBadRequest, "suggestionId is required", nil)
			return
		}
		sg, err := h.svc.Decide(ctx, req.SuggestionID, services.Decision(req.Action), req.UserID)
		if err != nil {
			writeServiceError(w, err, "Failed to process optimization")
			return
		}
		writeJSON(w, http.StatusOK, DataResponse{
			Data:    sg,
			Message: "Optimization " + req.Action + " completed successfully",
		})

	default:
		writeError(w, http.StatusBadRequest, "Invalid action", map[string]interface{}{
			"action": req.Action,
		})
	}
}
