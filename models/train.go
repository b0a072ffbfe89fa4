package models

import (
	"errors"
	"fmt"
	"time"
)

// TrainType is the service category of a train
type TrainType string

const (
	TrainPassenger TrainType = "passenger"
	TrainFreight   TrainType = "freight"
	TrainExpress   TrainType = "express"
)

// TrainStatus is the operational status of a train
type TrainStatus string

const (
	TrainScheduled TrainStatus = "scheduled"
	TrainRunning   TrainStatus = "running"
	TrainDelayed   TrainStatus = "delayed"
	TrainCancelled TrainStatus = "cancelled"
	TrainCompleted TrainStatus = "completed"
)

// Valid reports whether s is one of the known statuses
func (s TrainStatus) Valid() bool {
	switch s {
	case TrainScheduled, TrainRunning, TrainDelayed, TrainCancelled, TrainCompleted:
		return true
	}
	return false
}

const (
	MinPriority = 1
	MaxPriority = 10
)

// Train represents a single train's current state as reported by the fleet store
type Train struct {
	// Identity
	ID     string    `db:"id" json:"id"`
	Number string    `db:"number" json:"number"`
	Type   TrainType `db:"type" json:"type"`

	// Status and position
	Status          TrainStatus `db:"status" json:"status"`
	CurrentLocation string      `db:"current_location" json:"currentLocation"`
	Origin          string      `db:"origin" json:"origin"`
	Destination     string      `db:"destination" json:"destination"`
	Latitude        float64     `db:"latitude" json:"latitude"`
	Longitude       float64     `db:"longitude" json:"longitude"`

	// Timetable (actual/estimated are nullable)
	ScheduledDeparture time.Time  `db:"scheduled_departure" json:"scheduledDeparture"`
	ActualDeparture    *time.Time `db:"actual_departure" json:"actualDeparture,omitempty"`
	ScheduledArrival   time.Time  `db:"scheduled_arrival" json:"scheduledArrival"`
	EstimatedArrival   *time.Time `db:"estimated_arrival" json:"estimatedArrival,omitempty"`

	Delay    int `db:"delay" json:"delay"`       // minutes
	Priority int `db:"priority" json:"priority"` // 1-10, higher is more important

	// Freight trains report zero capacity
	Capacity  int `db:"capacity" json:"capacity"`
	Occupancy int `db:"occupancy" json:"occupancy"`

	Speed    float64 `db:"speed" json:"speed"`        // km/h
	MaxSpeed float64 `db:"max_speed" json:"maxSpeed"` // km/h
}

// Validate checks if the Train model has valid data
// Returns error if any validation fails
func (t *Train) Validate() error {
	if t.ID == "" {
		return errors.New("train id is required")
	}

	switch t.Type {
	case TrainPassenger, TrainFreight, TrainExpress:
	default:
		return fmt.Errorf("train %s: unknown type %q", t.ID, t.Type)
	}

	if t.Delay < 0 {
		return fmt.Errorf("train %s: delay must not be negative", t.ID)
	}

	if t.Priority < MinPriority || t.Priority > MaxPriority {
		return fmt.Errorf("train %s: priority %d out of range [%d, %d]", t.ID, t.Priority, MinPriority, MaxPriority)
	}

	return nil
}

// IsDelayed reports whether the train is running behind schedule at all
func (t *Train) IsDelayed() bool {
	return t.Delay > 0
}

// Fleet is the set of trains and stations a simulation runs against
type Fleet struct {
	Trains   []Train   `json:"trains"`
	Stations []Station `json:"stations"`
}

// FindTrain returns the train with the given ID, or nil
func (f Fleet) FindTrain(id string) *Train {
	for i := range f.Trains {
		if f.Trains[i].ID == id {
			return &f.Trains[i]
		}
	}
	return nil
}

// FindStation returns the station with the given ID, or nil
func (f Fleet) FindStation(id string) *Station {
	for i := range f.Stations {
		if f.Stations[i].ID == id {
			return &f.Stations[i]
		}
	}
	return nil
}
