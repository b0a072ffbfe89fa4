// Package simulation projects the cost of hypothetical network disruptions.
//
// A scenario is played in four passes that accumulate into one running total:
//
//  1. Train delays - injected minutes per train, plus passenger-hours lost.
//  2. Station closures - every train calling at or bound for the station
//     picks up a fixed delay and needs an alternative route.
//  3. Weather - scales the delay accumulated by passes 1 and 2 in place.
//  4. Maintenance windows - a share of each window's duration, unscaled.
//
// The engine keeps no state: trains and stations are supplied per call.
package simulation

import (
	"fmt"
	"math"

	"github.com/railops/dispatch/models"
)

const (
	closureDelayPerTrain = 20  // minutes each train loses to a station closure
	maintenanceShare     = 0.3 // share of a maintenance window that disrupts service
	trainsPerAltRoute    = 2
)

// weatherMultipliers scale accumulated delay for each non-normal condition.
var weatherMultipliers = map[models.Weather]float64{
	models.WeatherRain: 1.2,
	models.WeatherSnow: 1.5,
	models.WeatherFog:  1.3,
}

// Engine runs what-if scenarios against a fleet snapshot.
type Engine struct{}

// New constructs an Engine.
func New() *Engine {
	return &Engine{}
}

// accumulator carries the unrounded running totals of one scenario run.
type accumulator struct {
	totalDelay        float64
	affectedTrains    int
	passengerImpact   float64
	alternativeRoutes int
	recommendations   []string
}

// Run simulates scenario against fleet and returns its projected impact.
// Entries naming trains or stations absent from fleet contribute nothing.
func (e *Engine) Run(fleet models.Fleet, scenario models.SimulationScenario) (models.SimulationResults, error) {
	if err := scenario.Validate(); err != nil {
		return models.SimulationResults{}, err
	}

	acc := &accumulator{recommendations: []string{}}
	params := scenario.Parameters

	applyTrainDelays(acc, fleet, params.TrainDelays)
	applyStationClosures(acc, fleet, params.StationClosures)
	applyWeather(acc, params.WeatherConditions)
	applyMaintenance(acc, fleet, params.MaintenanceWindows)

	totalDelay := int(math.Round(acc.totalDelay))
	passengerImpact := int(math.Round(acc.passengerImpact))

	return models.SimulationResults{
		TotalDelay:        totalDelay,
		AffectedTrains:    acc.affectedTrains,
		PassengerImpact:   passengerImpact,
		AlternativeRoutes: acc.alternativeRoutes,
		EstimatedCost:     estimateCost(totalDelay, passengerImpact),
		Recommendations:   acc.recommendations,
	}, nil
}

func applyTrainDelays(acc *accumulator, fleet models.Fleet, delays []models.TrainDelay) {
	for _, d := range delays {
		train := fleet.FindTrain(d.TrainID)
		if train == nil {
			continue
		}
		acc.totalDelay += float64(d.AdditionalDelay)
		acc.affectedTrains++
		if train.Type == models.TrainPassenger {
			acc.passengerImpact += float64(train.Occupancy) * float64(d.AdditionalDelay) / 60
		}
	}
}

func applyStationClosures(acc *accumulator, fleet models.Fleet, closures []string) {
	for _, id := range closures {
		station := fleet.FindStation(id)
		if station == nil {
			continue
		}

		affected := 0
		for i := range fleet.Trains {
			t := &fleet.Trains[i]
			if t.CurrentLocation == station.Name || t.Destination == station.Name {
				affected++
			}
		}

		acc.affectedTrains += affected
		acc.totalDelay += float64(affected * closureDelayPerTrain)
		acc.alternativeRoutes += (affected + trainsPerAltRoute - 1) / trainsPerAltRoute
		acc.recommendations = append(acc.recommendations,
			fmt.Sprintf("Reroute trains via alternative stations due to %s closure", station.Name))
	}
}

func applyWeather(acc *accumulator, weather models.Weather) {
	multiplier, ok := weatherMultipliers[weather]
	if !ok {
		return
	}
	acc.totalDelay *= multiplier
	acc.recommendations = append(acc.recommendations,
		fmt.Sprintf("Implement weather-specific speed restrictions for %s conditions", weather))
}

func applyMaintenance(acc *accumulator, fleet models.Fleet, windows []models.MaintenanceWindow) {
	for _, m := range windows {
		station := fleet.FindStation(m.StationID)
		if station == nil {
			continue
		}
		acc.totalDelay += float64(m.Duration) * maintenanceShare
		acc.recommendations = append(acc.recommendations,
			fmt.Sprintf("Schedule maintenance during low-traffic periods at %s", station.Name))
	}
}
