package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/railops/dispatch/models"
)

const suggestionColumns = `
	id, type, train_id, description, estimated_improvement,
	delay_reduction_minutes, confidence, status, created_at, updated_at, acted_by`

// SaveSuggestions inserts or replaces the given suggestions in one transaction
func (s *SQLiteStore) SaveSuggestions(ctx context.Context, suggestions []models.OptimizationSuggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range suggestions {
		if err := upsertSuggestion(ctx, tx, &suggestions[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSuggestion returns a single suggestion, or models.ErrNotFound
func (s *SQLiteStore) GetSuggestion(ctx context.Context, id string) (*models.OptimizationSuggestion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+suggestionColumns+` FROM suggestions WHERE id = ?`, id)
	sg, err := scanSQLiteSuggestion(row)
	if err != nil {
		return nil, notFound(err, "suggestion", id)
	}
	return sg, nil
}

// ListSuggestions returns suggestions matching filter, newest first
func (s *SQLiteStore) ListSuggestions(ctx context.Context, filter models.SuggestionFilter) ([]models.OptimizationSuggestion, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.TrainID != "" {
		where = append(where, "train_id = ?")
		args = append(args, filter.TrainID)
	}

	query := `SELECT ` + suggestionColumns + ` FROM suggestions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	suggestions := make([]models.OptimizationSuggestion, 0)
	for rows.Next() {
		sg, err := scanSQLiteSuggestion(rows)
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

// UpdateSuggestionStatus moves a suggestion from one status to another.
// The update only applies while the stored status still equals from, so two
// concurrent callers cannot both win the same transition. Returns
// models.ErrNotFound for an unknown ID and models.ErrInvalidState when the
// stored status is no longer from.
func (s *SQLiteStore) UpdateSuggestionStatus(ctx context.Context, id string, from, to models.SuggestionStatus, actedBy string, at time.Time) error {
	if err := models.CheckTransition(from, to); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return setSuggestionStatus(ctx, s.db, id, from, to, actedBy, at)
}

// ApplySuggestion moves a suggestion from one status to another and writes
// back the train it acted on in one transaction. When either write fails
// neither is kept. A nil train only moves the status.
func (s *SQLiteStore) ApplySuggestion(ctx context.Context, id string, from, to models.SuggestionStatus, actedBy string, at time.Time, train *models.Train) error {
	if err := models.CheckTransition(from, to); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setSuggestionStatus(ctx, tx, id, from, to, actedBy, at); err != nil {
		return err
	}
	if train != nil {
		if err := updateTrain(ctx, tx, train); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit suggestion %s: %w", id, err)
	}
	return nil
}

func setSuggestionStatus(ctx context.Context, db querier, id string, from, to models.SuggestionStatus, actedBy string, at time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE suggestions
		SET status = ?, acted_by = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, actedBy, formatTime(at), id, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update suggestion %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var current models.SuggestionStatus
	err = db.QueryRowContext(ctx, `SELECT status FROM suggestions WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("suggestion %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read suggestion %s: %w", id, err)
	}
	return fmt.Errorf("suggestion %s is %s, not %s: %w", id, current, from, models.ErrInvalidState)
}

// SaveScenario inserts or replaces a scenario together with its results
func (s *SQLiteStore) SaveScenario(ctx context.Context, sc *models.SimulationScenario) error {
	params, err := json.Marshal(sc.Parameters)
	if err != nil {
		return fmt.Errorf("scenario %s: failed to encode parameters: %w", sc.ID, err)
	}
	var results *string
	if sc.Results != nil {
		b, err := json.Marshal(sc.Results)
		if err != nil {
			return fmt.Errorf("scenario %s: failed to encode results: %w", sc.ID, err)
		}
		str := string(b)
		results = &str
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scenarios (id, name, description, parameters, results, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			parameters = excluded.parameters,
			results = excluded.results,
			created_by = excluded.created_by`,
		sc.ID, sc.Name, sc.Description, string(params), results, formatTime(sc.CreatedAt), sc.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save scenario %s: %w", sc.ID, err)
	}
	return nil
}

// GetScenario returns a stored scenario, or models.ErrNotFound
func (s *SQLiteStore) GetScenario(ctx context.Context, id string) (*models.SimulationScenario, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, parameters, results, created_at, created_by
		FROM scenarios WHERE id = ?`, id)
	sc, err := scanSQLiteScenario(row)
	if err != nil {
		return nil, notFound(err, "scenario", id)
	}
	return sc, nil
}

// ListScenarios returns every stored scenario, newest first
func (s *SQLiteStore) ListScenarios(ctx context.Context) ([]models.SimulationScenario, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, parameters, results, created_at, created_by
		FROM scenarios
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	scenarios := make([]models.SimulationScenario, 0)
	for rows.Next() {
		sc, err := scanSQLiteScenario(rows)
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

func upsertSuggestion(ctx context.Context, db execer, sg *models.OptimizationSuggestion) error {
	_, err := db.ExecContext(ctx, `INSERT INTO suggestions (`+suggestionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			estimated_improvement = excluded.estimated_improvement,
			delay_reduction_minutes = excluded.delay_reduction_minutes,
			confidence = excluded.confidence,
			status = excluded.status,
			updated_at = excluded.updated_at,
			acted_by = excluded.acted_by`,
		sg.ID, sg.Type, sg.TrainID, sg.Description, sg.EstimatedImprovement,
		sg.DelayReductionMinutes, sg.Confidence, sg.Status,
		formatTime(sg.CreatedAt), formatTime(sg.UpdatedAt), sg.ActedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save suggestion %s: %w", sg.ID, err)
	}
	return nil
}

func scanSQLiteSuggestion(row rowScanner) (*models.OptimizationSuggestion, error) {
	var (
		sg                   models.OptimizationSuggestion
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&sg.ID, &sg.Type, &sg.TrainID, &sg.Description, &sg.EstimatedImprovement,
		&sg.DelayReductionMinutes, &sg.Confidence, &sg.Status, &createdAt, &updatedAt, &sg.ActedBy,
	); err != nil {
		return nil, err
	}

	var err error
	if sg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sg.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &sg, nil
}

func scanSQLiteScenario(row rowScanner) (*models.SimulationScenario, error) {
	var (
		sc        models.SimulationScenario
		params    string
		results   *string
		createdAt string
	)
	if err := row.Scan(&sc.ID, &sc.Name, &sc.Description, &params, &results, &createdAt, &sc.CreatedBy); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &sc.Parameters); err != nil {
		return nil, fmt.Errorf("scenario %s: invalid parameters: %w", sc.ID, err)
	}
	if results != nil {
		sc.Results = &models.SimulationResults{}
		if err := json.Unmarshal([]byte(*results), sc.Results); err != nil {
			return nil, fmt.Errorf("scenario %s: invalid results: %w", sc.ID, err)
		}
	}

	var err error
	if sc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &sc, nil
}
