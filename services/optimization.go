package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/railops/dispatch/internal/optimizer"
	"github.com/railops/dispatch/models"
)

// timerWriteTimeout bounds the store write made when a deferred
// accepted -> implemented transition fires
const timerWriteTimeout = 5 * time.Second

// Decision is a manual controller action on a pending suggestion
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// AnalysisContext echoes the size of the network an analysis ran against
type AnalysisContext struct {
	TotalTrains   int `json:"totalTrains"`
	ActiveAlerts  int `json:"activeAlerts"`
	DelayedTrains int `json:"delayedTrains"`
}

// Analysis is the outcome of one Analyze call
type Analysis struct {
	Result     models.OptimizationResult
	Context    AnalysisContext
	AnalyzedAt time.Time
}

// ImplementationResult is the outcome of one Implement call.
// UpdatedTrain is set only when the implementation succeeded.
type ImplementationResult struct {
	Suggestion     models.OptimizationSuggestion `json:"suggestion"`
	Implementation models.ImplementationOutcome  `json:"implementation"`
	UpdatedTrain   *models.Train                 `json:"updatedTrain,omitempty"`
}

// OptimizationService runs the suggestion engine against the store and owns
// the suggestion lifecycle
type OptimizationService struct {
	fleet       FleetStore
	suggestions SuggestionStore
	engine      *optimizer.Engine
	events      EventPublisher

	implementationDelay time.Duration
	now                 func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
	closed bool
}

// NewOptimizationService creates the service. Accepted suggestions move to
// implemented after implementationDelay.
func NewOptimizationService(fleet FleetStore, suggestions SuggestionStore, engine *optimizer.Engine, events EventPublisher, implementationDelay time.Duration) *OptimizationService {
	return &OptimizationService{
		fleet:               fleet,
		suggestions:         suggestions,
		engine:              engine,
		events:              publisherOrDiscard(events),
		implementationDelay: implementationDelay,
		now:                 time.Now,
		timers:              make(map[string]*time.Timer),
	}
}

// Analyze runs the engine over the whole network, or over a single train when
// trainID is set, and persists the suggestions it produces as pending
func (s *OptimizationService) Analyze(ctx context.Context, trainID string) (*Analysis, error) {
	now := s.now()
	octx, err := loadContext(ctx, s.fleet, now)
	if err != nil {
		return nil, err
	}

	echo := AnalysisContext{
		TotalTrains:  len(octx.Trains),
		ActiveAlerts: len(octx.Alerts),
	}
	for i := range octx.Trains {
		if octx.Trains[i].IsDelayed() {
			echo.DelayedTrains++
		}
	}

	if trainID != "" {
		train := octx.FindTrain(trainID)
		if train == nil {
			return nil, fmt.Errorf("train %s: %w", trainID, models.ErrNotFound)
		}
		octx.Trains = []models.Train{*train}
	}

	result, err := s.engine.Optimize(octx)
	if err != nil {
		return nil, err
	}
	if result.SkippedRecords > 0 {
		log.Printf("Optimization skipped %d malformed records", result.SkippedRecords)
	}

	if err := s.suggestions.SaveSuggestions(ctx, result.Suggestions); err != nil {
		return nil, fmt.Errorf("failed to save suggestions: %w", err)
	}
	for _, sg := range result.Suggestions {
		s.publish(models.EventSuggestionCreated, sg)
	}

	return &Analysis{Result: result, Context: echo, AnalyzedAt: now}, nil
}

// List returns stored suggestions matching filter
func (s *OptimizationService) List(ctx context.Context, filter models.SuggestionFilter) ([]models.OptimizationSuggestion, error) {
	return s.suggestions.ListSuggestions(ctx, filter)
}

// Implement plays out a pending suggestion. A successful outcome accepts the
// suggestion, applies its effect to the train and schedules the move to
// implemented. A failed outcome rejects the suggestion; that is reported in
// the result, not as an error.
func (s *OptimizationService) Implement(ctx context.Context, suggestionID, userID string) (*ImplementationResult, error) {
	sg, err := s.suggestions.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	if sg.Status != models.StatusPending {
		return nil, fmt.Errorf("suggestion %s is %s, not pending: %w", sg.ID, sg.Status, models.ErrInvalidState)
	}

	now := s.now()
	octx, err := loadContext(ctx, s.fleet, now)
	if err != nil {
		return nil, err
	}

	outcome := s.engine.SimulateImplementation(*sg, octx)
	result := &ImplementationResult{Implementation: outcome}

	if !outcome.Success {
		if err := s.transition(ctx, sg, models.StatusRejected, userID, now); err != nil {
			return nil, err
		}
		log.Printf("Suggestion %s rejected: %s", sg.ID, outcome.ActualImprovement)
		result.Suggestion = *sg
		return result, nil
	}

	// The train write and the move to accepted commit together
	train := octx.FindTrain(sg.TrainID)
	if train != nil {
		optimizer.ApplyOutcome(train, sg.Type)
	}
	if err := s.suggestions.ApplySuggestion(ctx, sg.ID, sg.Status, models.StatusAccepted, userID, now, train); err != nil {
		return nil, err
	}
	s.applied(sg, models.StatusAccepted, userID, now)
	result.UpdatedTrain = train

	s.scheduleImplemented(*sg, userID)
	result.Suggestion = *sg
	return result, nil
}

// Decide applies a manual accept or reject to a pending suggestion. Accepted
// suggestions move to implemented after the configured delay.
func (s *OptimizationService) Decide(ctx context.Context, suggestionID string, decision Decision, userID string) (*models.OptimizationSuggestion, error) {
	var to models.SuggestionStatus
	switch decision {
	case DecisionAccept:
		to = models.StatusAccepted
	case DecisionReject:
		to = models.StatusRejected
	default:
		return nil, fmt.Errorf("unknown action %q: %w", decision, models.ErrValidation)
	}

	sg, err := s.suggestions.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, sg, to, userID, s.now()); err != nil {
		return nil, err
	}
	if to == models.StatusAccepted {
		s.scheduleImplemented(*sg, userID)
	}
	return sg, nil
}

// Close cancels pending implemented transitions and waits for any that are
// already running
func (s *OptimizationService) Close() {
	s.mu.Lock()
	s.closed = true
	for id, t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// transition moves sg from its current status to `to` in the store and
// mirrors the change onto sg
func (s *OptimizationService) transition(ctx context.Context, sg *models.OptimizationSuggestion, to models.SuggestionStatus, userID string, at time.Time) error {
	if err := s.suggestions.UpdateSuggestionStatus(ctx, sg.ID, sg.Status, to, userID, at); err != nil {
		return err
	}
	s.applied(sg, to, userID, at)
	return nil
}

// applied mirrors a stored status change onto sg and announces it
func (s *OptimizationService) applied(sg *models.OptimizationSuggestion, to models.SuggestionStatus, userID string, at time.Time) {
	sg.Status = to
	sg.ActedBy = userID
	sg.UpdatedAt = at
	s.publish(models.EventSuggestionStatus, *sg)
}

func (s *OptimizationService) scheduleImplemented(sg models.OptimizationSuggestion, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.wg.Add(1)
	s.timers[sg.ID] = time.AfterFunc(s.implementationDelay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		delete(s.timers, sg.ID)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), timerWriteTimeout)
		defer cancel()

		if err := s.transition(ctx, &sg, models.StatusImplemented, userID, s.now()); err != nil {
			log.Printf("Failed to mark suggestion %s implemented: %v", sg.ID, err)
			return
		}
		log.Printf("Suggestion %s implemented", sg.ID)
	})
}

func (s *OptimizationService) publish(eventType string, data interface{}) {
	s.events.Publish(models.Event{Type: eventType, Data: data, Timestamp: s.now()})
}
