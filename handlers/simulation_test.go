package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railops/dispatch/models"
)

type fakeSimulation struct {
	scenarios map[string]models.SimulationScenario
}

func (f *fakeSimulation) Run(_ context.Context, sc models.SimulationScenario) (*models.SimulationScenario, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	sc.Results = &models.SimulationResults{TotalDelay: 10, PassengerImpact: 17, EstimatedCost: 1925, Recommendations: []string{}}
	f.scenarios[sc.ID] = sc
	return &sc, nil
}

func (f *fakeSimulation) Compare(_ context.Context, scenarios []models.SimulationScenario) (*models.ScenarioComparison, error) {
	if len(scenarios) < 2 {
		return nil, models.ErrTooFewScenarios
	}
	return &models.ScenarioComparison{Best: scenarios[0], Worst: scenarios[1]}, nil
}

func (f *fakeSimulation) List(context.Context) ([]models.SimulationScenario, error) {
	out := make([]models.SimulationScenario, 0, len(f.scenarios))
	for _, sc := range f.scenarios {
		out = append(out, sc)
	}
	return out, nil
}

func (f *fakeSimulation) Get(_ context.Context, id string) (*models.SimulationScenario, error) {
	sc, ok := f.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("scenario %s: %w", id, models.ErrNotFound)
	}
	return &sc, nil
}

func newSimulationRouter() chi.Router {
	h := NewSimulationHandler(&fakeSimulation{scenarios: map[string]models.SimulationScenario{}}, time.Second)
	r := chi.NewRouter()
	r.Post("/api/simulation", h.Run)
	r.Get("/api/simulation", h.List)
	r.Get("/api/simulation/{id}", h.Get)
	r.Post("/api/simulation/compare", h.Compare)
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSimulationRoutes(t *testing.T) {
	r := newSimulationRouter()

	rec := do(r, http.MethodPost, "/api/simulation", `{
		"id": "sc1",
		"name": "Morning delay",
		"parameters": {"trainDelays": [{"trainId": "t1", "additionalDelay": 10}]}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.SimulationScenario `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Morning delay", resp.Data.Name)
	require.NotNil(t, resp.Data.Results)
	assert.Equal(t, int64(1925), resp.Data.Results.EstimatedCost)

	rec = do(r, http.MethodGet, "/api/simulation/sc1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodGet, "/api/simulation/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodGet, "/api/simulation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = do(r, http.MethodPost, "/api/simulation", `{"id":"bad","parameters":{"weatherConditions":"hail"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulationCompareRoute(t *testing.T) {
	r := newSimulationRouter()

	rec := do(r, http.MethodPost, "/api/simulation/compare", `{"scenarios":[{"id":"a"}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 2 scenarios")

	rec = do(r, http.MethodPost, "/api/simulation/compare", `{"scenarios":[{"id":"a"},{"id":"b"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"best"`)

	rec = do(r, http.MethodPost, "/api/simulation/compare", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
