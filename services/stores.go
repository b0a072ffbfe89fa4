// Package services sits between the HTTP handlers and the store: it builds
// engine inputs from persisted state, persists engine outputs and drives the
// suggestion lifecycle.
package services

import (
	"context"
	"time"

	"github.com/railops/dispatch/models"
)

// FleetStore reads and updates trains, stations and alerts
type FleetStore interface {
	ListTrains(ctx context.Context) ([]models.Train, error)
	GetTrain(ctx context.Context, id string) (*models.Train, error)
	UpdateTrain(ctx context.Context, t *models.Train) error
	ListStations(ctx context.Context) ([]models.Station, error)
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	CreateAlert(ctx context.Context, a *models.Alert) error
	ResolveAlert(ctx context.Context, id string, at time.Time) (*models.Alert, error)
}

// SuggestionStore persists optimization suggestions.
// UpdateSuggestionStatus must be compare-and-set on the current status.
// ApplySuggestion does the same and writes train in the same transaction.
type SuggestionStore interface {
	SaveSuggestions(ctx context.Context, suggestions []models.OptimizationSuggestion) error
	GetSuggestion(ctx context.Context, id string) (*models.OptimizationSuggestion, error)
	ListSuggestions(ctx context.Context, filter models.SuggestionFilter) ([]models.OptimizationSuggestion, error)
	UpdateSuggestionStatus(ctx context.Context, id string, from, to models.SuggestionStatus, actedBy string, at time.Time) error
	ApplySuggestion(ctx context.Context, id string, from, to models.SuggestionStatus, actedBy string, at time.Time, train *models.Train) error
}

// ScenarioStore persists simulation scenarios with their results
type ScenarioStore interface {
	SaveScenario(ctx context.Context, sc *models.SimulationScenario) error
	GetScenario(ctx context.Context, id string) (*models.SimulationScenario, error)
	ListScenarios(ctx context.Context) ([]models.SimulationScenario, error)
}

// EventPublisher fans events out to live subscribers. Publish must not block.
type EventPublisher interface {
	Publish(event models.Event)
}

type discardPublisher struct{}

func (discardPublisher) Publish(models.Event) {}

func publisherOrDiscard(p EventPublisher) EventPublisher {
	if p == nil {
		return discardPublisher{}
	}
	return p
}

// loadContext assembles the engine's view of the network at now.
// Resolved alerts are dropped here so the engine only sees live ones.
func loadContext(ctx context.Context, fleet FleetStore, now time.Time) (models.OptimizationContext, error) {
	trains, err := fleet.ListTrains(ctx)
	if err != nil {
		return models.OptimizationContext{}, err
	}
	stations, err := fleet.ListStations(ctx)
	if err != nil {
		return models.OptimizationContext{}, err
	}
	alerts, err := fleet.ListAlerts(ctx)
	if err != nil {
		return models.OptimizationContext{}, err
	}

	return models.OptimizationContext{
		Trains:      trains,
		Stations:    stations,
		Alerts:      models.ActiveAlerts(alerts),
		CurrentTime: now,
	}, nil
}
