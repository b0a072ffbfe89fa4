package models

import (
	"fmt"
	"slices"
	"time"
)

// AlertType classifies what an alert is about
type AlertType string

const (
	AlertDelay        AlertType = "delay"
	AlertCancellation AlertType = "cancellation"
	AlertEmergency    AlertType = "emergency"
	AlertMaintenance  AlertType = "maintenance"
	AlertWeather      AlertType = "weather"
)

// AlertSeverity is the operator-facing urgency of an alert
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Alert represents an operational alert raised against trains and/or stations
type Alert struct {
	ID               string        `db:"id" json:"id"`
	Type             AlertType     `db:"type" json:"type"`
	Severity         AlertSeverity `db:"severity" json:"severity"`
	Title            string        `db:"title" json:"title"`
	Description      string        `db:"description" json:"description"`
	AffectedTrains   []string      `db:"affected_trains" json:"affectedTrains"`
	AffectedStations []string      `db:"affected_stations" json:"affectedStations"`
	CreatedAt        time.Time     `db:"created_at" json:"createdAt"`
	ResolvedAt       *time.Time    `db:"resolved_at" json:"resolvedAt,omitempty"`
	CreatedBy        string        `db:"created_by" json:"createdBy"`
}

// Validate checks the fields an operator must supply when raising an alert
func (a *Alert) Validate() error {
	if a.Title == "" {
		return fmt.Errorf("alert title is required: %w", ErrValidation)
	}

	switch a.Type {
	case AlertDelay, AlertCancellation, AlertEmergency, AlertMaintenance, AlertWeather:
	default:
		return fmt.Errorf("unknown alert type %q: %w", a.Type, ErrValidation)
	}

	switch a.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
	default:
		return fmt.Errorf("unknown alert severity %q: %w", a.Severity, ErrValidation)
	}

	return nil
}

// IsActive reports whether the alert is still unresolved
func (a *Alert) IsActive() bool {
	return a.ResolvedAt == nil
}

// AffectsTrain reports whether the alert names the train in its affected list
func (a *Alert) AffectsTrain(trainID string) bool {
	return slices.Contains(a.AffectedTrains, trainID)
}

// IsSevere reports whether the alert is high or critical severity
func (a *Alert) IsSevere() bool {
	return a.Severity == SeverityHigh || a.Severity == SeverityCritical
}

// ActiveAlerts filters alerts down to the unresolved ones
func ActiveAlerts(alerts []Alert) []Alert {
	active := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.IsActive() {
			active = append(active, a)
		}
	}
	return active
}
