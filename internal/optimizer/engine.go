// Package optimizer implements the rule-based suggestion engine.
//
// Optimize runs four independent analyzers over an OptimizationContext:
//
//  1. Delay analyzer - reroute, priority and reschedule proposals for late trains.
//  2. Capacity analyzer - platform changes for trains bound to crowded stations.
//  3. Priority analyzer - priority bumps for late express trains.
//  4. Route analyzer - reroutes around unresolved alerts naming a running train.
//
// Their outputs are ranked by confidence, capped at MaxSuggestions, and
// summarised into OptimizationMetrics. The engine holds no state between calls.
package optimizer

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/railops/dispatch/models"
)

// MaxSuggestions caps how many suggestions a single Optimize call returns.
const MaxSuggestions = 5

// RandomSource returns a uniform value in [0, 1).
type RandomSource func() float64

// Engine generates and evaluates optimization suggestions.
type Engine struct {
	random RandomSource
	newID  func(kind, trainID string) string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRandom sets the source used for implementation success and side-effect rolls.
func WithRandom(r RandomSource) Option {
	return func(e *Engine) {
		e.random = r
	}
}

// WithIDGenerator overrides how suggestion IDs are minted.
func WithIDGenerator(fn func(kind, trainID string) string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// New constructs an Engine. Without options it draws from math/rand and
// mints "opt_<kind>_<train>_<uuid>" IDs.
func New(opts ...Option) *Engine {
	e := &Engine{
		random: rand.Float64,
		newID:  defaultID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Optimize analyzes octx and returns the top suggestions with aggregate metrics.
// Malformed train and station records are skipped and counted, not fatal.
func (e *Engine) Optimize(octx models.OptimizationContext) (models.OptimizationResult, error) {
	if octx.CurrentTime.IsZero() {
		return models.OptimizationResult{}, fmt.Errorf("optimization context has no current time: %w", models.ErrValidation)
	}

	snap := newSnapshot(octx)

	var suggestions []models.OptimizationSuggestion
	suggestions = append(suggestions, e.analyzeDelays(snap)...)
	suggestions = append(suggestions, e.analyzeCapacity(snap)...)
	suggestions = append(suggestions, e.analyzePriority(snap)...)
	suggestions = append(suggestions, e.analyzeRoutes(snap)...)

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	if suggestions == nil {
		suggestions = []models.OptimizationSuggestion{}
	}

	return models.OptimizationResult{
		Suggestions:    suggestions,
		Metrics:        calculateMetrics(suggestions),
		SkippedRecords: snap.skipped,
	}, nil
}

// snapshot is the validated view of a context shared by all analyzers.
type snapshot struct {
	ctx      models.OptimizationContext
	trains   []models.Train
	stations []models.Station
	alerts   []models.Alert // unresolved only
	skipped  int
}

func newSnapshot(octx models.OptimizationContext) *snapshot {
	s := &snapshot{ctx: octx}

	s.trains = make([]models.Train, 0, len(octx.Trains))
	for _, t := range octx.Trains {
		if err := t.Validate(); err != nil {
			s.skipped++
			continue
		}
		s.trains = append(s.trains, t)
	}

	s.stations = make([]models.Station, 0, len(octx.Stations))
	for _, st := range octx.Stations {
		if err := st.Validate(); err != nil {
			s.skipped++
			continue
		}
		s.stations = append(s.stations, st)
	}

	s.alerts = models.ActiveAlerts(octx.Alerts)
	return s
}

// delayedShare is the fraction of valid trains running with any delay.
func (s *snapshot) delayedShare() float64 {
	if len(s.trains) == 0 {
		return 0
	}
	delayed := 0
	for i := range s.trains {
		if s.trains[i].IsDelayed() {
			delayed++
		}
	}
	return float64(delayed) / float64(len(s.trains))
}
