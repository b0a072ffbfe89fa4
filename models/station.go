package models

import (
	"errors"
	"fmt"
)

// Station represents a station on the network and its live platform occupancy
type Station struct {
	ID               string  `db:"id" json:"id"`
	Name             string  `db:"name" json:"name"`
	Code             string  `db:"code" json:"code"`
	Platforms        int     `db:"platforms" json:"platforms"`
	Capacity         int     `db:"capacity" json:"capacity"`
	CurrentOccupancy int     `db:"current_occupancy" json:"currentOccupancy"`
	Section          string  `db:"section" json:"section"`
	Latitude         float64 `db:"latitude" json:"latitude"`
	Longitude        float64 `db:"longitude" json:"longitude"`
}

// OccupancyRate returns current occupancy as a fraction of capacity.
// Stations without a positive capacity report 0.
func (s *Station) OccupancyRate() float64 {
	if s.Capacity <= 0 {
		return 0
	}
	return float64(s.CurrentOccupancy) / float64(s.Capacity)
}

// Validate checks if the Station model has valid data
func (s *Station) Validate() error {
	if s.ID == "" {
		return errors.New("station id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("station %s: name is required", s.ID)
	}
	if s.Capacity <= 0 {
		return fmt.Errorf("station %s: capacity must be positive", s.ID)
	}
	return nil
}
