package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/railops/dispatch/internal/simulation"
	"github.com/railops/dispatch/models"
)

// SimulationService runs what-if scenarios against the stored network
type SimulationService struct {
	fleet     FleetStore
	scenarios ScenarioStore
	engine    *simulation.Engine
	events    EventPublisher
	now       func() time.Time
}

// NewSimulationService creates the service
func NewSimulationService(fleet FleetStore, scenarios ScenarioStore, engine *simulation.Engine, events EventPublisher) *SimulationService {
	return &SimulationService{
		fleet:     fleet,
		scenarios: scenarios,
		engine:    engine,
		events:    publisherOrDiscard(events),
		now:       time.Now,
	}
}

// Run simulates scenario, stores it with its results and returns the stored
// copy. A missing ID or creation time is filled in.
func (s *SimulationService) Run(ctx context.Context, scenario models.SimulationScenario) (*models.SimulationScenario, error) {
	if scenario.ID == "" {
		scenario.ID = newScenarioID()
	}
	if scenario.CreatedAt.IsZero() {
		scenario.CreatedAt = s.now().UTC()
	}

	fleet, err := s.loadFleet(ctx)
	if err != nil {
		return nil, err
	}

	results, err := s.engine.Run(fleet, scenario)
	if err != nil {
		return nil, err
	}
	scenario.Results = &results

	if err := s.scenarios.SaveScenario(ctx, &scenario); err != nil {
		return nil, fmt.Errorf("failed to save scenario: %w", err)
	}

	s.events.Publish(models.Event{Type: models.EventSimulationResult, Data: scenario, Timestamp: s.now()})
	return &scenario, nil
}

// Compare ranks two or more scenarios against the stored network. Scenarios
// without an ID get one, as in Run. Nothing is persisted.
func (s *SimulationService) Compare(ctx context.Context, scenarios []models.SimulationScenario) (*models.ScenarioComparison, error) {
	if len(scenarios) < 2 {
		return nil, models.ErrTooFewScenarios
	}

	named := make([]models.SimulationScenario, len(scenarios))
	copy(named, scenarios)
	for i := range named {
		if named[i].ID == "" {
			named[i].ID = newScenarioID()
		}
	}

	fleet, err := s.loadFleet(ctx)
	if err != nil {
		return nil, err
	}

	comparison, err := s.engine.Compare(fleet, named)
	if err != nil {
		return nil, err
	}
	return &comparison, nil
}

// List returns every stored scenario
func (s *SimulationService) List(ctx context.Context) ([]models.SimulationScenario, error) {
	return s.scenarios.ListScenarios(ctx)
}

// Get returns one stored scenario
func (s *SimulationService) Get(ctx context.Context, id string) (*models.SimulationScenario, error) {
	return s.scenarios.GetScenario(ctx, id)
}

func (s *SimulationService) loadFleet(ctx context.Context) (models.Fleet, error) {
	trains, err := s.fleet.ListTrains(ctx)
	if err != nil {
		return models.Fleet{}, err
	}
	stations, err := s.fleet.ListStations(ctx)
	if err != nil {
		return models.Fleet{}, err
	}
	return models.Fleet{Trains: trains, Stations: stations}, nil
}

func newScenarioID() string {
	return "sim_" + uuid.NewString()
}
