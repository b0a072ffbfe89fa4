package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/railops/dispatch/models"
)

// SimulationService defines the scenario operations the handlers need
type SimulationService interface {
	Run(ctx context.Context, scenario models.SimulationScenario) (*models.SimulationScenario, error)
	Compare(ctx context.Context, scenarios []models.SimulationScenario) (*models.ScenarioComparison, error)
	List(ctx context.Context) ([]models.SimulationScenario, error)
	Get(ctx context.Context, id string) (*models.SimulationScenario, error)
}

// SimulationHandler handles HTTP requests for what-if scenarios
type SimulationHandler struct {
	svc     SimulationService
	timeout time.Duration
}

// NewSimulationHandler creates a new handler with the given service
func NewSimulationHandler(svc SimulationService, timeout time.Duration) *SimulationHandler {
	return &SimulationHandler{svc: svc, timeout: timeout}
}

// CompareRequest is the body of POST /api/simulation/compare
type CompareRequest struct {
	Scenarios []models.SimulationScenario `json:"scenarios"`
}

// Run handles POST /api/simulation
// Returns the scenario merged with its results
func (h *SimulationHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var scenario models.SimulationScenario
	if !decodeBody(w, r, &scenario) {
		return
	}

	result, err := h.svc.Run(ctx, scenario)
	if err != nil {
		writeServiceError(w, err, "Failed to run simulation")
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Data: result})
}

// Compare handles POST /api/simulation/compare
func (h *SimulationHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CompareRequest
	if !decodeBody(w, r, &req) {
		return
	}

	comparison, err := h.svc.Compare(ctx, req.Scenarios)
	if err != nil {
		writeServiceError(w, err, "Failed to compare scenarios")
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Data: comparison})
}

// List handles GET /api/simulation
func (h *SimulationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	scenarios, err := h.svc.List(ctx)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch scenarios")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Data: scenarios, Total: len(scenarios)})
}

// Get handles GET /api/simulation/{id}
func (h *SimulationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	scenario, err := h.svc.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to fetch scenario")
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Data: scenario})
}
