package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/railops/dispatch/models"
	"github.com/railops/dispatch/services"
)

// FleetService defines the dashboard operations the handlers need
type FleetService interface {
	Trains(ctx context.Context, filter services.TrainFilter) ([]models.Train, error)
	Train(ctx context.Context, id string) (*services.TrainDetails, error)
	UpdateTrain(ctx context.Context, id string, upd services.TrainUpdate) (*models.Train, error)
	Stations(ctx context.Context, section string) ([]models.Station, error)
	Alerts(ctx context.Context, filter services.AlertFilter) ([]models.Alert, error)
	CreateAlert(ctx context.Context, a models.Alert) (*models.Alert, error)
	ResolveAlert(ctx context.Context, id, resolvedBy string) (*models.Alert, error)
	KPIs(ctx context.Context) (*models.KPISnapshot, error)
}

// ResolveAlertRequest is the optional body of POST /api/alerts/{id}/resolve
type ResolveAlertRequest struct {
	ResolvedBy string `json:"resolvedBy"`
}

// FleetHandler handles HTTP requests for trains, stations, alerts and KPIs
type FleetHandler struct {
	svc     FleetService
	timeout time.Duration
}

// NewFleetHandler creates a new handler with the given service
func NewFleetHandler(svc FleetService, timeout time.Duration) *FleetHandler {
	return &FleetHandler{svc: svc, timeout: timeout}
}

// GetTrains handles GET /api/trains
// Supports status, type and section query filters
func (h *FleetHandler) GetTrains(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	trains, err := h.svc.Trains(ctx, services.TrainFilter{
		Status:  models.TrainStatus(q.Get("status")),
		Type:    models.TrainType(q.Get("type")),
		Section: q.Get("section"),
	})
	if err != nil {
		writeServiceError(w, err, "Failed to fetch trains")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, ListResponse{Data: trains, Total: len(trains)})
}

// GetTrain handles GET /api/trains/{id}
func (h *FleetHandler) GetTrain(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	train, err := h.svc.Train(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to fetch train details")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, DataResponse{Data: train})
}

// UpdateTrain handles PUT /api/trains/{id}
// Only the fields present in the body are changed
func (h *FleetHandler) UpdateTrain(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var upd services.TrainUpdate
	if !decodeBody(w, r, &upd) {
		return
	}

	train, err := h.svc.UpdateTrain(ctx, chi.URLParam(r, "id"), upd)
	if err != nil {
		writeServiceError(w, err, "Failed to update train")
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Data: train, Message: "Train updated successfully"})
}

// GetStations handles GET /api/stations
func (h *FleetHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stations, err := h.svc.Stations(ctx, r.URL.Query().Get("section"))
	if err != nil {
		writeServiceError(w, err, "Failed to fetch stations")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Data: stations, Total: len(stations)})
}

// GetAlerts handles GET /api/alerts
// Supports severity, type and active=true query filters
func (h *FleetHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	alerts, err := h.svc.Alerts(ctx, services.AlertFilter{
		Severity:   models.AlertSeverity(q.Get("severity")),
		Type:       models.AlertType(q.Get("type")),
		ActiveOnly: q.Get("active") == "true",
	})
	if err != nil {
		writeServiceError(w, err, "Failed to fetch alerts")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Data: alerts, Total: len(alerts)})
}

// CreateAlert handles POST /api/alerts
func (h *FleetHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var a models.Alert
	if !decodeBody(w, r, &a) {
		return
	}

	created, err := h.svc.CreateAlert(ctx, a)
	if err != nil {
		writeServiceError(w, err, "Failed to create alert")
		return
	}

	writeJSON(w, http.StatusCreated, DataResponse{Data: created, Message: "Alert created successfully"})
}

// ResolveAlert handles POST /api/alerts/{id}/resolve
// The body is optional
func (h *FleetHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ResolveAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}

	a, err := h.svc.ResolveAlert(ctx, chi.URLParam(r, "id"), req.ResolvedBy)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve alert")
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Data: a, Message: "Alert resolved successfully"})
}

// GetKPIs handles GET /api/kpis
func (h *FleetHandler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	kpi, err := h.svc.KPIs(ctx)
	if err != nil {
		writeServiceError(w, err, "Failed to calculate KPIs")
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Data: kpi})
}
