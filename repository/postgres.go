package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/railops/dispatch/models"
)

//go:embed schema_postgres.sql
var postgresSchema string

// PostgresStore is the PostgreSQL-backed store, selected with DATABASE_DRIVER=postgres
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and verifies the connection
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates tables if they don't exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Seed loads data into the store when it holds no trains yet.
// Returns false if the store was already populated.
func (s *PostgresStore) Seed(ctx context.Context, data SeedData) (bool, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trains`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count trains: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, st := range data.Stations {
		_, err := tx.Exec(ctx, `
			INSERT INTO stations (id, name, code, platforms, capacity, current_occupancy, section, latitude, longitude)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			st.ID, st.Name, st.Code, st.Platforms, st.Capacity, st.CurrentOccupancy, st.Section, st.Latitude, st.Longitude,
		)
		if err != nil {
			return false, fmt.Errorf("failed to insert station %s: %w", st.ID, err)
		}
	}
	for _, t := range data.Trains {
		_, err := tx.Exec(ctx, `INSERT INTO trains (`+trainColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
			t.ID, t.Number, string(t.Type), string(t.Status), t.CurrentLocation, t.Origin, t.Destination,
			t.Latitude, t.Longitude, t.ScheduledDeparture, t.ActualDeparture,
			t.ScheduledArrival, t.EstimatedArrival, t.Delay, t.Priority, t.Capacity,
			t.Occupancy, t.Speed, t.MaxSpeed,
		)
		if err != nil {
			return false, fmt.Errorf("failed to insert train %s: %w", t.ID, err)
		}
	}
	for i := range data.Alerts {
		if err := pgInsertAlert(ctx, tx, &data.Alerts[i]); err != nil {
			return false, err
		}
	}
	for i := range data.Suggestions {
		if err := pgUpsertSuggestion(ctx, tx, &data.Suggestions[i]); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit seed: %w", err)
	}
	return true, nil
}

// ListTrains returns every train ordered by ID
func (s *PostgresStore) ListTrains(ctx context.Context) ([]models.Train, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+trainColumns+` FROM trains ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trains: %w", err)
	}
	defer rows.Close()

	trains := make([]models.Train, 0)
	for rows.Next() {
		t, err := scanPgTrain(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan train: %w", err)
		}
		trains = append(trains, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trains: %w", err)
	}
	return trains, nil
}

// GetTrain returns a single train, or models.ErrNotFound
func (s *PostgresStore) GetTrain(ctx context.Context, id string) (*models.Train, error) {
	t, err := scanPgTrain(s.pool.QueryRow(ctx, `SELECT `+trainColumns+` FROM trains WHERE id = $1`, id))
	if err != nil {
		return nil, pgNotFound(err, "train", id)
	}
	return t, nil
}

// UpdateTrain writes back the mutable operating state of a train
func (s *PostgresStore) UpdateTrain(ctx context.Context, t *models.Train) error {
	return pgUpdateTrain(ctx, s.pool, t)
}

// ListStations returns every station ordered by ID
func (s *PostgresStore) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := s.pool.Query(ctx, `
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

// ListAlerts returns every alert, newest first, resolved ones included
func (s *PostgresStore) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+alertColumns+` FROM alerts ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]models.Alert, 0)
	for rows.Next() {
		a, err := scanPgAlert(rows)
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
func (s *PostgresStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	a, err := scanPgAlert(s.pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if err != nil {
		return nil, pgNotFound(err, "alert", id)
	}
	return a, nil
}

// CreateAlert inserts a new alert
func (s *PostgresStore) CreateAlert(ctx context.Context, a *models.Alert) error {
	return pgInsertAlert(ctx, s.pool, a)
}

// ResolveAlert marks an alert resolved at `at` and returns it. An alert that
// is already resolved keeps its first resolution time.
func (s *PostgresStore) ResolveAlert(ctx context.Context, id string, at time.Time) (*models.Alert, error) {
	a, err := scanPgAlert(s.pool.QueryRow(ctx, `
		UPDATE alerts SET resolved_at = COALESCE(resolved_at, $1)
		WHERE id = $2
		RETURNING `+alertColumns, at, id))
	if err != nil {
		return nil, pgNotFound(err, "alert", id)
	}
	return a, nil
}

// SaveSuggestions inserts or replaces the given suggestions in one transaction
func (s *PostgresStore) SaveSuggestions(ctx context.Context, suggestions []models.OptimizationSuggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range suggestions {
		if err := pgUpsertSuggestion(ctx, tx, &suggestions[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetSuggestion returns a single suggestion, or models.ErrNotFound
func (s *PostgresStore) GetSuggestion(ctx context.Context, id string) (*models.OptimizationSuggestion, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1`, id)
	sg, err := scanPgSuggestion(row)
	if err != nil {
		return nil, pgNotFound(err, "suggestion", id)
	}
	return sg, nil
}

// ListSuggestions returns suggestions matching filter, newest first
func (s *PostgresStore) ListSuggestions(ctx context.Context, filter models.SuggestionFilter) ([]models.OptimizationSuggestion, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.TrainID != "" {
		args = append(args, filter.TrainID)
		where = append(where, fmt.Sprintf("train_id = $%d", len(args)))
	}

	query := `SELECT ` + suggestionColumns + ` FROM suggestions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	suggestions := make([]models.OptimizationSuggestion, 0)
	for rows.Next() {
		sg, err := scanPgSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		suggestions = append(suggestions, *sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}
	return suggestions, nil
}

// UpdateSuggestionStatus is the compare-and-set status update; see
// SQLiteStore.UpdateSuggestionStatus for the error contract
func (s *PostgresStore) UpdateSuggestionStatus(ctx context.Context, id string, from, to models.SuggestionStatus, actedBy string, at time.Time) error {
	if err := models.CheckTransition(from, to); err != nil {
		return err
	}

	return pgSetSuggestionStatus(ctx, s.pool, id, from, to, actedBy, at)
}

// ApplySuggestion moves a suggestion from one status to another and writes
// back the train it acted on in one transaction. When either write fails
// neither is kept. A nil train only moves the status.
func (s *PostgresStore) ApplySuggestion(ctx context.Context, id string, from, to models.SuggestionStatus, actedBy string, at time.Time, train *models.Train) error {
	if err := models.CheckTransition(from, to); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := pgSetSuggestionStatus(ctx, tx, id, from, to, actedBy, at); err != nil {
		return err
	}
	if train != nil {
		if err := pgUpdateTrain(ctx, tx, train); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit suggestion %s: %w", id, err)
	}
	return nil
}

// SaveScenario inserts or replaces a scenario together with its results
func (s *PostgresStore) SaveScenario(ctx context.Context, sc *models.SimulationScenario) error {
	params, err := json.Marshal(sc.Parameters)
	if err != nil {
		return fmt.Errorf("scenario %s: failed to encode parameters: %w", sc.ID, err)
	}
	var results []byte
	if sc.Results != nil {
		if results, err = json.Marshal(sc.Results); err != nil {
			return fmt.Errorf("scenario %s: failed to encode results: %w", sc.ID, err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO scenarios (id, name, description, parameters, results, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			parameters = EXCLUDED.parameters,
			results = EXCLUDED.results,
			created_by = EXCLUDED.created_by`,
		sc.ID, sc.Name, sc.Description, string(params), nullableJSON(results), sc.CreatedAt, sc.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save scenario %s: %w", sc.ID, err)
	}
	return nil
}

// GetScenario returns a stored scenario, or models.ErrNotFound
func (s *PostgresStore) GetScenario(ctx context.Context, id string) (*models.SimulationScenario, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, description, parameters, results, created_at, created_by
		FROM scenarios WHERE id = $1`, id)
	sc, err := scanPgScenario(row)
	if err != nil {
		return nil, pgNotFound(err, "scenario", id)
	}
	return sc, nil
}

// ListScenarios returns every stored scenario, newest first
func (s *PostgresStore) ListScenarios(ctx context.Context) ([]models.SimulationScenario, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, parameters, results, created_at, created_by
		FROM scenarios
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	scenarios := make([]models.SimulationScenario, 0)
	for rows.Next() {
		sc, err := scanPgScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		scenarios = append(scenarios, *sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scenarios: %w", err)
	}
	return scenarios, nil
}

func pgUpsertSuggestion(ctx context.Context, tx pgx.Tx, sg *models.OptimizationSuggestion) error {
	_, err := tx.Exec(ctx, `INSERT INTO suggestions (`+suggestionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			estimated_improvement = EXCLUDED.estimated_improvement,
			delay_reduction_minutes = EXCLUDED.delay_reduction_minutes,
			confidence = EXCLUDED.confidence,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			acted_by = EXCLUDED.acted_by`,
		sg.ID, string(sg.Type), sg.TrainID, sg.Description, sg.EstimatedImprovement,
		sg.DelayReductionMinutes, sg.Confidence, string(sg.Status),
		sg.CreatedAt, sg.UpdatedAt, sg.ActedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save suggestion %s: %w", sg.ID, err)
	}
	return nil
}

func scanPgTrain(row pgx.Row) (*models.Train, error) {
	var t models.Train
	var trainType, status string
	if err := row.Scan(
		&t.ID, &t.Number, &trainType, &status, &t.CurrentLocation, &t.Origin, &t.Destination,
		&t.Latitude, &t.Longitude, &t.ScheduledDeparture, &t.ActualDeparture,
		&t.ScheduledArrival, &t.EstimatedArrival, &t.Delay, &t.Priority, &t.Capacity,
		&t.Occupancy, &t.Speed, &t.MaxSpeed,
	); err != nil {
		return nil, err
	}
	t.Type = models.TrainType(trainType)
	t.Status = models.TrainStatus(status)
	return &t, nil
}

func scanPgSuggestion(row pgx.Row) (*models.OptimizationSuggestion, error) {
	var sg models.OptimizationSuggestion
	var kind, status string
	if err := row.Scan(
		&sg.ID, &kind, &sg.TrainID, &sg.Description, &sg.EstimatedImprovement,
		&sg.DelayReductionMinutes, &sg.Confidence, &status, &sg.CreatedAt, &sg.UpdatedAt, &sg.ActedBy,
	); err != nil {
		return nil, err
	}
	sg.Type = models.SuggestionType(kind)
	sg.Status = models.SuggestionStatus(status)
	return &sg, nil
}

func scanPgScenario(row pgx.Row) (*models.SimulationScenario, error) {
	var sc models.SimulationScenario
	var params, results []byte
	if err := row.Scan(&sc.ID, &sc.Name, &sc.Description, &params, &results, &sc.CreatedAt, &sc.CreatedBy); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(params, &sc.Parameters); err != nil {
		return nil, fmt.Errorf("scenario %s: invalid parameters: %w", sc.ID, err)
	}
	if results != nil {
		sc.Results = &models.SimulationResults{}
		if err := json.Unmarshal(results, sc.Results); err != nil {
			return nil, fmt.Errorf("scenario %s: invalid results: %w", sc.ID, err)
		}
	}
	return &sc, nil
}

func nullableJSON(b []byte) *string {
	if b == nil {
		return nil
	}
	s := string(b)
	return &s
}

// pgQuerier is satisfied by *pgxpool.Pool and pgx.Tx
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgUpdateTrain(ctx context.Context, db pgQuerier, t *models.Train) error {
	tag, err := db.Exec(ctx, `
		UPDATE trains SET
			status = $1, current_location = $2, latitude = $3, longitude = $4,
			actual_departure = $5, estimated_arrival = $6,
			delay = $7, priority = $8, occupancy = $9, speed = $10
		WHERE id = $11`,
		string(t.Status), t.CurrentLocation, t.Latitude, t.Longitude,
		t.ActualDeparture, t.EstimatedArrival,
		t.Delay, t.Priority, t.Occupancy, t.Speed,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update train %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("train %s: %w", t.ID, models.ErrNotFound)
	}
	return nil
}

func pgInsertAlert(ctx context.Context, db pgQuerier, a *models.Alert) error {
	_, err := db.Exec(ctx, `INSERT INTO alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, string(a.Type), string(a.Severity), a.Title, a.Description,
		nonNil(a.AffectedTrains), nonNil(a.AffectedStations), a.CreatedAt, a.ResolvedAt, a.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", a.ID, err)
	}
	return nil
}

func pgSetSuggestionStatus(ctx context.Context, db pgQuerier, id string, from, to models.SuggestionStatus, actedBy string, at time.Time) error {
	tag, err := db.Exec(ctx, `
		UPDATE suggestions
		SET status = $1, acted_by = $2, updated_at = $3
		WHERE id = $4 AND status = $5`,
		string(to), actedBy, at, id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update suggestion %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = db.QueryRow(ctx, `SELECT status FROM suggestions WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("suggestion %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read suggestion %s: %w", id, err)
	}
	return fmt.Errorf("suggestion %s is %s, not %s: %w", id, current, from, models.ErrInvalidState)
}

func scanPgAlert(row pgx.Row) (*models.Alert, error) {
	var (
		a                   models.Alert
		alertType, severity string
	)
	if err := row.Scan(
		&a.ID, &alertType, &severity, &a.Title, &a.Description,
		&a.AffectedTrains, &a.AffectedStations, &a.CreatedAt, &a.ResolvedAt, &a.CreatedBy,
	); err != nil {
		return nil, err
	}
	a.Type = models.AlertType(alertType)
	a.Severity = models.AlertSeverity(severity)
	return &a, nil
}

func pgNotFound(err error, what, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %s: %w", what, id, err)
}
