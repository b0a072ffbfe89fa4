package models

import "time"

// KPISnapshot is the live dispatcher KPI panel
type KPISnapshot struct {
	OnTimePerformance          float64   `json:"onTimePerformance"` // percentage
	AverageDelay               float64   `json:"averageDelay"`      // minutes, over delayed trains
	DelayStdDev                float64   `json:"delayStdDev"`       // minutes, over delayed trains
	TotalTrains                int       `json:"totalTrains"`
	ActiveTrains               int       `json:"activeTrains"`
	DelayedTrains              int       `json:"delayedTrains"`
	CancelledTrains            int       `json:"cancelledTrains"`
	StationCapacityUtilization float64   `json:"stationCapacityUtilization"` // percentage
	SystemEfficiency           float64   `json:"systemEfficiency"`           // percentage
	PendingSuggestions         int       `json:"pendingSuggestions"`
	CalculatedAt               time.Time `json:"calculatedAt"`
}

// Event is a message pushed to live dashboard subscribers
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	EventSuggestionCreated = "optimization_suggestion"
	EventSuggestionStatus  = "suggestion_status"
	EventSimulationResult  = "simulation_result"
	EventTrainUpdated      = "train_updated"
	EventAlertCreated      = "alert_created"
	EventAlertResolved     = "alert_resolved"
)
