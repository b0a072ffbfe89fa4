package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/railops/dispatch/models"
)

const trainColumns = `
	id, number, type, status, current_location, origin, destination,
	latitude, longitude, scheduled_departure, actual_departure,
	scheduled_arrival, estimated_arrival, delay, priority, capacity,
	occupancy, speed, max_speed`

// ListTrains returns every train ordered by ID
func (s *SQLiteStore) ListTrains(ctx context.Context) ([]models.Train, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+trainColumns+` FROM trains ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trains: %w", err)
	}
	defer rows.Close()

	trains := make([]models.Train, 0)
	for rows.Next() {
		t, err := scanSQLiteTrain(rows)
		if err != nil {
			return nil, err
		}
		trains = append(trains, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trains: %w", err)
	}
	return trains, nil
}

// GetTrain returns a single train, or models.ErrNotFound
func (s *SQLiteStore) GetTrain(ctx context.Context, id string) (*models.Train, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trainColumns+` FROM trains WHERE id = ?`, id)
	t, err := scanSQLiteTrain(row)
	if err != nil {
		return nil, notFound(err, "train", id)
	}
	return t, nil
}

// UpdateTrain writes back the mutable operating state of a train
func (s *SQLiteStore) UpdateTrain(ctx context.Context, t *models.Train) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return updateTrain(ctx, s.db, t)
}

// ListStations returns every station ordered by ID
func (s *SQLiteStore) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, code, platforms, capacity, current_occupancy, section, latitude, longitude
		FROM stations
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	stations := make([]models.Station, 0)
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(
			&st.ID, &st.Name, &st.Code, &st.Platforms, &st.Capacity,
			&st.CurrentOccupancy, &st.Section, &st.Latitude, &st.Longitude,
		); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stations: %w", err)
	}
	return stations, nil
}

const alertColumns = `
	id, type, severity, title, description, affected_trains, affected_stations,
	created_at, resolved_at, created_by`

// ListAlerts returns every alert, newest first, resolved ones included
func (s *SQLiteStore) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+alertColumns+` FROM alerts ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]models.Alert, 0)
	for rows.Next() {
		a, err := scanSQLiteAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

// GetAlert returns a single alert, or models.ErrNotFound
func (s *SQLiteStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	a, err := scanSQLiteAlert(s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "alert", id)
	}
	return a, nil
}

// CreateAlert inserts a new alert
func (s *SQLiteStore) CreateAlert(ctx context.Context, a *models.Alert) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return insertAlert(ctx, s.db, a)
}

// ResolveAlert marks an alert resolved at `at` and returns it. An alert that
// is already resolved keeps its first resolution time.
func (s *SQLiteStore) ResolveAlert(ctx context.Context, id string, at time.Time) (*models.Alert, error) {
	s.writeMu.Lock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET resolved_at = COALESCE(resolved_at, ?) WHERE id = ?`,
		formatTime(at), id,
	)
	s.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alert %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("alert %s: %w", id, models.ErrNotFound)
	}
	return s.GetAlert(ctx, id)
}

func scanSQLiteAlert(row rowScanner) (*models.Alert, error) {
	var (
		a                    models.Alert
		trainsJSON, stations string
		createdAt            string
		resolvedAt           *string
	)
	if err := row.Scan(
		&a.ID, &a.Type, &a.Severity, &a.Title, &a.Description,
		&trainsJSON, &stations, &createdAt, &resolvedAt, &a.CreatedBy,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(trainsJSON), &a.AffectedTrains); err != nil {
		return nil, fmt.Errorf("alert %s: invalid affected_trains: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(stations), &a.AffectedStations); err != nil {
		return nil, fmt.Errorf("alert %s: invalid affected_stations: %w", a.ID, err)
	}

	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	a.ResolvedAt = parseTimeString(resolvedAt)
	return &a, nil
}

func scanSQLiteTrain(row rowScanner) (*models.Train, error) {
	var (
		t                    models.Train
		schedDep, schedArr   string
		actualDep, estimated *string
	)
	if err := row.Scan(
		&t.ID, &t.Number, &t.Type, &t.Status, &t.CurrentLocation, &t.Origin, &t.Destination,
		&t.Latitude, &t.Longitude, &schedDep, &actualDep,
		&schedArr, &estimated, &t.Delay, &t.Priority, &t.Capacity,
		&t.Occupancy, &t.Speed, &t.MaxSpeed,
	); err != nil {
		return nil, err
	}

	var err error
	if t.ScheduledDeparture, err = parseTime(schedDep); err != nil {
		return nil, err
	}
	if t.ScheduledArrival, err = parseTime(schedArr); err != nil {
		return nil, err
	}
	t.ActualDeparture = parseTimeString(actualDep)
	t.EstimatedArrival = parseTimeString(estimated)
	return &t, nil
}

func updateTrain(ctx context.Context, db execer, t *models.Train) error {
	res, err := db.ExecContext(ctx, `
		UPDATE trains SET
			status = ?, current_location = ?, latitude = ?, longitude = ?,
			actual_departure = ?, estimated_arrival = ?,
			delay = ?, priority = ?, occupancy = ?, speed = ?
		WHERE id = ?`,
		t.Status, t.CurrentLocation, t.Latitude, t.Longitude,
		formatTimePtr(t.ActualDeparture), formatTimePtr(t.EstimatedArrival),
		t.Delay, t.Priority, t.Occupancy, t.Speed,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update train %s: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("train %s: %w", t.ID, models.ErrNotFound)
	}
	return nil
}

func insertStation(ctx context.Context, db execer, st *models.Station) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO stations (id, name, code, platforms, capacity, current_occupancy, section, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.Name, st.Code, st.Platforms, st.Capacity, st.CurrentOccupancy, st.Section, st.Latitude, st.Longitude,
	)
	if err != nil {
		return fmt.Errorf("failed to insert station %s: %w", st.ID, err)
	}
	return nil
}

func insertTrain(ctx context.Context, db execer, t *models.Train) error {
	_, err := db.ExecContext(ctx, `INSERT INTO trains (`+trainColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Number, t.Type, t.Status, t.CurrentLocation, t.Origin, t.Destination,
		t.Latitude, t.Longitude, formatTime(t.ScheduledDeparture), formatTimePtr(t.ActualDeparture),
		formatTime(t.ScheduledArrival), formatTimePtr(t.EstimatedArrival), t.Delay, t.Priority, t.Capacity,
		t.Occupancy, t.Speed, t.MaxSpeed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert train %s: %w", t.ID, err)
	}
	return nil
}

func insertAlert(ctx context.Context, db execer, a *models.Alert) error {
	trains, err := json.Marshal(nonNil(a.AffectedTrains))
	if err != nil {
		return fmt.Errorf("alert %s: %w", a.ID, err)
	}
	stations, err := json.Marshal(nonNil(a.AffectedStations))
	if err != nil {
		return fmt.Errorf("alert %s: %w", a.ID, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO alerts (id, type, severity, title, description, affected_trains, affected_stations,
		                    created_at, resolved_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Type, a.Severity, a.Title, a.Description, string(trains), string(stations),
		formatTime(a.CreatedAt), formatTimePtr(a.ResolvedAt), a.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", a.ID, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
