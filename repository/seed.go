package repository

import (
	"time"

	"github.com/railops/dispatch/models"
)

// SeedData is the demo network loaded into an empty store
type SeedData struct {
	Stations    []models.Station
	Trains      []models.Train
	Alerts      []models.Alert
	Suggestions []models.OptimizationSuggestion
}

// DemoNetwork returns a small four-station network with three trains in
// flight, timed relative to now
func DemoNetwork(now time.Time) SeedData {
	now = now.UTC()
	at := func(minutes int) time.Time { return now.Add(time.Duration(minutes) * time.Minute) }
	ptr := func(t time.Time) *time.Time { return &t }

	return SeedData{
		Stations: []models.Station{
			{ID: "st1", Name: "Central Station", Code: "CS", Platforms: 12, Capacity: 500, CurrentOccupancy: 320, Section: "Central", Latitude: 40.7128, Longitude: -74.006},
			{ID: "st2", Name: "North Terminal", Code: "NT", Platforms: 8, Capacity: 300, CurrentOccupancy: 180, Section: "North", Latitude: 40.7589, Longitude: -73.9851},
			{ID: "st3", Name: "South Junction", Code: "SJ", Platforms: 6, Capacity: 200, CurrentOccupancy: 95, Section: "South", Latitude: 40.6892, Longitude: -74.0445},
			{ID: "st4", Name: "East Hub", Code: "EH", Platforms: 10, Capacity: 400, CurrentOccupancy: 250, Section: "East", Latitude: 40.7282, Longitude: -73.7949},
		},
		Trains: []models.Train{
			{
				ID: "tr1", Number: "EX101", Type: models.TrainExpress, Status: models.TrainRunning,
				CurrentLocation: "Central Station", Origin: "South Junction", Destination: "North Terminal",
				Latitude: 40.735, Longitude: -73.99,
				ScheduledDeparture: at(-30), ActualDeparture: ptr(at(-25)),
				ScheduledArrival: at(15), EstimatedArrival: ptr(at(20)),
				Delay: 5, Priority: 8, Capacity: 400, Occupancy: 320, Speed: 85, MaxSpeed: 120,
			},
			{
				ID: "tr2", Number: "FR205", Type: models.TrainFreight, Status: models.TrainDelayed,
				CurrentLocation: "East Hub", Origin: "North Terminal", Destination: "South Junction",
				Latitude: 40.72, Longitude: -73.8,
				ScheduledDeparture: at(-45), ActualDeparture: ptr(at(-30)),
				ScheduledArrival: at(30), EstimatedArrival: ptr(at(45)),
				Delay: 15, Priority: 3, Speed: 45, MaxSpeed: 80,
			},
			{
				ID: "tr3", Number: "PS303", Type: models.TrainPassenger, Status: models.TrainScheduled,
				CurrentLocation: "North Terminal", Origin: "North Terminal", Destination: "Central Station",
				Latitude: 40.7589, Longitude: -73.9851,
				ScheduledDeparture: at(10), ScheduledArrival: at(40),
				Priority: 6, Capacity: 250, Occupancy: 180, MaxSpeed: 100,
			},
		},
		Alerts: []models.Alert{
			{
				ID: "al1", Type: models.AlertDelay, Severity: models.SeverityMedium,
				Title:            "Train FR205 Delayed",
				Description:      "Freight train FR205 is experiencing a 15-minute delay due to signal issues.",
				AffectedTrains:   []string{"tr2"},
				AffectedStations: []string{"st3", "st4"},
				CreatedAt:        at(-20),
				CreatedBy:        "2",
			},
			{
				ID: "al2", Type: models.AlertMaintenance, Severity: models.SeverityLow,
				Title:            "Platform 3 Maintenance",
				Description:      "Scheduled maintenance on Platform 3 at Central Station from 2:00 AM to 4:00 AM.",
				AffectedTrains:   []string{},
				AffectedStations: []string{"st1"},
				CreatedAt:        at(-60),
				CreatedBy:        "1",
			},
		},
		Suggestions: []models.OptimizationSuggestion{
			{
				ID: "opt1", Type: models.SuggestionReroute, TrainID: "tr2",
				Description:           "Reroute FR205 via alternate track to reduce delay by 8 minutes",
				EstimatedImprovement:  "Cut delay by 8min, from 15min down to 7min",
				DelayReductionMinutes: 8,
				Confidence:            0.85,
				Status:                models.StatusPending,
				CreatedAt:             at(-10),
				UpdatedAt:             at(-10),
			},
			{
				ID: "opt2", Type: models.SuggestionPriorityChange, TrainID: "tr1",
				Description:           "Increase priority of EX101 to minimize passenger impact",
				EstimatedImprovement:  "Reduce passenger delay by 3min",
				DelayReductionMinutes: 3,
				Confidence:            0.72,
				Status:                models.StatusPending,
				CreatedAt:             at(-5),
				UpdatedAt:             at(-5),
			},
		},
	}
}
