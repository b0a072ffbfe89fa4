package models

import (
	"fmt"
	"time"
)

// Weather is the weather condition a scenario is played under
type Weather string

const (
	WeatherNormal Weather = "normal"
	WeatherRain   Weather = "rain"
	WeatherSnow   Weather = "snow"
	WeatherFog    Weather = "fog"
)

// TrainDelay injects extra delay into one train
type TrainDelay struct {
	TrainID         string `json:"trainId"`
	AdditionalDelay int    `json:"additionalDelay"` // minutes
}

// MaintenanceWindow takes part of a station out of service for a while
type MaintenanceWindow struct {
	StationID string `json:"stationId"`
	Duration  int    `json:"duration"` // minutes
}

// ScenarioParameters are the hypothetical disruptions a scenario injects
type ScenarioParameters struct {
	TrainDelays        []TrainDelay        `json:"trainDelays,omitempty"`
	StationClosures    []string            `json:"stationClosures,omitempty"`
	WeatherConditions  Weather             `json:"weatherConditions,omitempty"`
	MaintenanceWindows []MaintenanceWindow `json:"maintenanceWindows,omitempty"`
}

// SimulationResults is the projected impact of a scenario
type SimulationResults struct {
	TotalDelay        int      `json:"totalDelay"`      // minutes
	AffectedTrains    int      `json:"affectedTrains"`
	PassengerImpact   int      `json:"passengerImpact"` // passenger-hours
	AlternativeRoutes int      `json:"alternativeRoutes"`
	EstimatedCost     int64    `json:"estimatedCost"` // currency units
	Recommendations   []string `json:"recommendations"`
}

// SimulationScenario is a named what-if scenario and, once run, its results
type SimulationScenario struct {
	ID          string             `db:"id" json:"id"`
	Name        string             `db:"name" json:"name"`
	Description string             `db:"description" json:"description"`
	Parameters  ScenarioParameters `db:"parameters" json:"parameters"`
	Results     *SimulationResults `db:"results" json:"results,omitempty"`
	CreatedAt   time.Time          `db:"created_at" json:"createdAt"`
	CreatedBy   string             `db:"created_by" json:"createdBy"`
}

// Validate checks the scenario is well formed before it is simulated
func (s *SimulationScenario) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("scenario id is required: %w", ErrValidation)
	}

	switch s.Parameters.WeatherConditions {
	case "", WeatherNormal, WeatherRain, WeatherSnow, WeatherFog:
	default:
		return fmt.Errorf("scenario %s: unknown weather %q: %w", s.ID, s.Parameters.WeatherConditions, ErrValidation)
	}

	for _, d := range s.Parameters.TrainDelays {
		if d.AdditionalDelay < 0 {
			return fmt.Errorf("scenario %s: negative delay for train %s: %w", s.ID, d.TrainID, ErrValidation)
		}
	}

	for _, m := range s.Parameters.MaintenanceWindows {
		if m.Duration < 0 {
			return fmt.Errorf("scenario %s: negative maintenance duration at %s: %w", s.ID, m.StationID, ErrValidation)
		}
	}

	return nil
}

// Clone returns a copy of the scenario that shares no slices or pointers with s
func (s SimulationScenario) Clone() SimulationScenario {
	out := s
	out.Parameters.TrainDelays = append([]TrainDelay(nil), s.Parameters.TrainDelays...)
	out.Parameters.StationClosures = append([]string(nil), s.Parameters.StationClosures...)
	out.Parameters.MaintenanceWindows = append([]MaintenanceWindow(nil), s.Parameters.MaintenanceWindows...)
	if s.Results != nil {
		r := *s.Results
		r.Recommendations = append([]string(nil), s.Results.Recommendations...)
		out.Results = &r
	}
	return out
}

// ScoredScenario pairs a scenario with its comparison score (lower is better)
type ScoredScenario struct {
	Scenario SimulationScenario `json:"scenario"`
	Score    float64            `json:"score"`
}

// ScenarioComparison ranks scenarios from best to worst
type ScenarioComparison struct {
	Best       SimulationScenario `json:"best"`
	Worst      SimulationScenario `json:"worst"`
	Comparison []ScoredScenario   `json:"comparison"`
}

// ErrTooFewScenarios is returned when a comparison gets fewer than two scenarios
var ErrTooFewScenarios = fmt.Errorf("at least 2 scenarios required for comparison: %w", ErrValidation)
