package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/railops/dispatch/internal/stats"
	"github.com/railops/dispatch/models"
)

const (
	efficiencyBaseline     = 100.0
	efficiencyFloor        = 85.0
	efficiencyPerDelayed   = 2.0 // points lost per delayed train
	efficiencyPerCancelled = 5.0 // points lost per cancelled train
)

// TrainFilter narrows a train listing. Section matches the section of the
// station named by the train's current location.
type TrainFilter struct {
	Status  models.TrainStatus
	Type    models.TrainType
	Section string
}

// AlertFilter narrows an alert listing
type AlertFilter struct {
	Severity   models.AlertSeverity
	Type       models.AlertType
	ActiveOnly bool
}

// TrainUpdate carries the operator-editable fields of a train.
// Nil fields are left unchanged.
type TrainUpdate struct {
	Status          *models.TrainStatus `json:"status,omitempty"`
	CurrentLocation *string             `json:"currentLocation,omitempty"`
	Latitude        *float64            `json:"latitude,omitempty"`
	Longitude       *float64            `json:"longitude,omitempty"`
	Delay           *int                `json:"delay,omitempty"`
	Priority        *int                `json:"priority,omitempty"`
	Occupancy       *int                `json:"occupancy,omitempty"`
	Speed           *float64            `json:"speed,omitempty"`
}

// TrainDetails is a train together with the stations it references.
// A station is nil when no station carries that name.
type TrainDetails struct {
	models.Train
	CurrentStation     *models.Station `json:"currentStation,omitempty"`
	OriginStation      *models.Station `json:"originStation,omitempty"`
	DestinationStation *models.Station `json:"destinationStation,omitempty"`
}

// FleetService serves the dispatcher dashboard: fleet reads, KPIs, manual
// train updates and alert handling
type FleetService struct {
	fleet       FleetStore
	suggestions SuggestionStore
	events      EventPublisher
	now         func() time.Time
}

// NewFleetService creates the service
func NewFleetService(fleet FleetStore, suggestions SuggestionStore, events EventPublisher) *FleetService {
	return &FleetService{
		fleet:       fleet,
		suggestions: suggestions,
		events:      publisherOrDiscard(events),
		now:         time.Now,
	}
}

// Trains returns trains matching filter
func (s *FleetService) Trains(ctx context.Context, filter TrainFilter) ([]models.Train, error) {
	trains, err := s.fleet.ListTrains(ctx)
	if err != nil {
		return nil, err
	}

	var sections map[string]string
	if filter.Section != "" {
		stations, err := s.fleet.ListStations(ctx)
		if err != nil {
			return nil, err
		}
		sections = make(map[string]string, len(stations))
		for _, st := range stations {
			sections[st.Name] = st.Section
		}
	}

	out := make([]models.Train, 0, len(trains))
	for _, t := range trains {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.Section != "" && sections[t.CurrentLocation] != filter.Section {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Train returns one train with its current, origin and destination stations
func (s *FleetService) Train(ctx context.Context, id string) (*TrainDetails, error) {
	train, err := s.fleet.GetTrain(ctx, id)
	if err != nil {
		return nil, err
	}
	stations, err := s.fleet.ListStations(ctx)
	if err != nil {
		return nil, err
	}

	byName := func(name string) *models.Station {
		for i := range stations {
			if stations[i].Name == name {
				return &stations[i]
			}
		}
		return nil
	}

	return &TrainDetails{
		Train:              *train,
		CurrentStation:     byName(train.CurrentLocation),
		OriginStation:      byName(train.Origin),
		DestinationStation: byName(train.Destination),
	}, nil
}

// UpdateTrain applies a manual update to a train and returns the stored result
func (s *FleetService) UpdateTrain(ctx context.Context, id string, upd TrainUpdate) (*models.Train, error) {
	train, err := s.fleet.GetTrain(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, fmt.Errorf("train %s: unknown status %q: %w", id, *upd.Status, models.ErrValidation)
		}
		train.Status = *upd.Status
	}
	if upd.CurrentLocation != nil {
		train.CurrentLocation = *upd.CurrentLocation
	}
	if upd.Latitude != nil {
		train.Latitude = *upd.Latitude
	}
	if upd.Longitude != nil {
		train.Longitude = *upd.Longitude
	}
	if upd.Delay != nil {
		train.Delay = *upd.Delay
	}
	if upd.Priority != nil {
		train.Priority = *upd.Priority
	}
	if upd.Occupancy != nil {
		if *upd.Occupancy < 0 {
			return nil, fmt.Errorf("train %s: occupancy must not be negative: %w", id, models.ErrValidation)
		}
		train.Occupancy = *upd.Occupancy
	}
	if upd.Speed != nil {
		train.Speed = *upd.Speed
	}

	if err := train.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", err, models.ErrValidation)
	}
	if err := s.fleet.UpdateTrain(ctx, train); err != nil {
		return nil, err
	}

	s.events.Publish(models.Event{Type: models.EventTrainUpdated, Data: *train, Timestamp: s.now()})
	return train, nil
}

// CreateAlert raises a new alert. ID and creation time are assigned here.
func (s *FleetService) CreateAlert(ctx context.Context, a models.Alert) (*models.Alert, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	a.ID = "al_" + uuid.NewString()
	a.CreatedAt = s.now().UTC()
	a.ResolvedAt = nil
	if a.AffectedTrains == nil {
		a.AffectedTrains = []string{}
	}
	if a.AffectedStations == nil {
		a.AffectedStations = []string{}
	}

	if err := s.fleet.CreateAlert(ctx, &a); err != nil {
		return nil, err
	}

	s.events.Publish(models.Event{Type: models.EventAlertCreated, Data: a, Timestamp: s.now()})
	return &a, nil
}

// ResolveAlert marks an alert resolved. Resolved alerts no longer feed the
// suggestion engine.
func (s *FleetService) ResolveAlert(ctx context.Context, id, resolvedBy string) (*models.Alert, error) {
	a, err := s.fleet.ResolveAlert(ctx, id, s.now().UTC())
	if err != nil {
		return nil, err
	}
	log.Printf("Alert %s resolved by %q", a.ID, resolvedBy)

	s.events.Publish(models.Event{Type: models.EventAlertResolved, Data: *a, Timestamp: s.now()})
	return a, nil
}

// Stations returns stations, restricted to one section when section is set
func (s *FleetService) Stations(ctx context.Context, section string) ([]models.Station, error) {
	stations, err := s.fleet.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	if section == "" {
		return stations, nil
	}

	out := make([]models.Station, 0, len(stations))
	for _, st := range stations {
		if st.Section == section {
			out = append(out, st)
		}
	}
	return out, nil
}

// Alerts returns alerts matching filter
func (s *FleetService) Alerts(ctx context.Context, filter AlertFilter) ([]models.Alert, error) {
	alerts, err := s.fleet.ListAlerts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.ActiveOnly && !a.IsActive() {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// KPIs computes the live KPI panel from current fleet state.
// Average delay and its spread are taken over delayed trains only.
func (s *FleetService) KPIs(ctx context.Context) (*models.KPISnapshot, error) {
	trains, err := s.fleet.ListTrains(ctx)
	if err != nil {
		return nil, err
	}
	stations, err := s.fleet.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.suggestions.ListSuggestions(ctx, models.SuggestionFilter{Status: models.StatusPending})
	if err != nil {
		return nil, err
	}

	kpi := &models.KPISnapshot{
		TotalTrains:        len(trains),
		PendingSuggestions: len(pending),
		CalculatedAt:       s.now().UTC(),
	}

	var delays stats.Welford
	onTime := 0
	for i := range trains {
		t := &trains[i]
		switch t.Status {
		case models.TrainRunning, models.TrainDelayed:
			kpi.ActiveTrains++
		case models.TrainCancelled:
			kpi.CancelledTrains++
		}
		if t.IsDelayed() {
			delays.Add(float64(t.Delay))
		} else {
			onTime++
		}
	}
	kpi.DelayedTrains = delays.Count()
	kpi.AverageDelay = delays.Mean()
	kpi.DelayStdDev = delays.StdDev()
	if len(trains) > 0 {
		kpi.OnTimePerformance = float64(onTime) / float64(len(trains)) * 100
	}

	var capacity, occupancy int
	for _, st := range stations {
		capacity += st.Capacity
		occupancy += st.CurrentOccupancy
	}
	if capacity > 0 {
		kpi.StationCapacityUtilization = float64(occupancy) / float64(capacity) * 100
	}

	kpi.SystemEfficiency = max(efficiencyFloor,
		efficiencyBaseline-efficiencyPerDelayed*float64(kpi.DelayedTrains)-efficiencyPerCancelled*float64(kpi.CancelledTrains))

	return kpi, nil
}
