package models

import (
	"fmt"
	"time"
)

// SuggestionType is the corrective action a suggestion proposes
type SuggestionType string

const (
	SuggestionReroute        SuggestionType = "reroute"
	SuggestionReschedule     SuggestionType = "reschedule"
	SuggestionPriorityChange SuggestionType = "priority_change"
	SuggestionPlatformChange SuggestionType = "platform_change"
)

// Valid reports whether t is one of the known suggestion types
func (t SuggestionType) Valid() bool {
	switch t {
	case SuggestionReroute, SuggestionReschedule, SuggestionPriorityChange, SuggestionPlatformChange:
		return true
	}
	return false
}

// SuggestionStatus tracks a suggestion through its lifecycle:
//
//	pending -> accepted -> implemented
//	pending -> rejected
//
// rejected and implemented are terminal.
type SuggestionStatus string

const (
	StatusPending     SuggestionStatus = "pending"
	StatusAccepted    SuggestionStatus = "accepted"
	StatusRejected    SuggestionStatus = "rejected"
	StatusImplemented SuggestionStatus = "implemented"
)

// Valid reports whether s is one of the known statuses
func (s SuggestionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusImplemented:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s
func (s SuggestionStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusImplemented
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step
func (s SuggestionStatus) CanTransitionTo(next SuggestionStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusAccepted || next == StatusRejected
	case StatusAccepted:
		return next == StatusImplemented
	default:
		return false
	}
}

// CheckTransition returns an ErrInvalidState error when from -> to is not allowed
func CheckTransition(from, to SuggestionStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("suggestion cannot move from %s to %s: %w", from, to, ErrInvalidState)
	}
	return nil
}

// OptimizationSuggestion is a proposed corrective action for a single train
type OptimizationSuggestion struct {
	ID          string         `db:"id" json:"id"`
	Type        SuggestionType `db:"type" json:"type"`
	TrainID     string         `db:"train_id" json:"trainId"`
	Description string         `db:"description" json:"description"`

	// EstimatedImprovement is the operator-facing text. When the suggestion
	// promises a delay figure, the first "<N>min" in the text is that figure
	// and equals DelayReductionMinutes.
	EstimatedImprovement  string  `db:"estimated_improvement" json:"estimatedImprovement"`
	DelayReductionMinutes int     `db:"delay_reduction_minutes" json:"delayReductionMinutes"`
	Confidence            float64 `db:"confidence" json:"confidence"` // 0-1

	Status    SuggestionStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time        `db:"updated_at" json:"updatedAt"`
	ActedBy   string           `db:"acted_by" json:"actedBy,omitempty"`
}

// OptimizationContext is the snapshot one optimize call runs against
type OptimizationContext struct {
	Trains      []Train   `json:"trains"`
	Stations    []Station `json:"stations"`
	Alerts      []Alert   `json:"alerts"` // unresolved alerts only
	CurrentTime time.Time `json:"currentTime"`
}

// FindTrain returns the train with the given ID, or nil
func (c *OptimizationContext) FindTrain(id string) *Train {
	for i := range c.Trains {
		if c.Trains[i].ID == id {
			return &c.Trains[i]
		}
	}
	return nil
}

// Complexity grades how disruptive a set of suggestions is to carry out
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// OptimizationMetrics aggregates the suggestions kept by an optimize call
type OptimizationMetrics struct {
	TotalDelayReduction      int        `json:"totalDelayReduction"` // minutes
	AffectedTrains           int        `json:"affectedTrains"`
	ConfidenceScore          float64    `json:"confidenceScore"`
	ImplementationComplexity Complexity `json:"implementationComplexity"`
}

// OptimizationResult is the ranked, capped suggestion list plus its metrics
type OptimizationResult struct {
	Suggestions    []OptimizationSuggestion `json:"suggestions"`
	Metrics        OptimizationMetrics      `json:"metrics"`
	SkippedRecords int                      `json:"skippedRecords,omitempty"`
}

// ImplementationOutcome is the result of simulating one suggestion's rollout.
// A failed outcome is an expected business result, not an error.
type ImplementationOutcome struct {
	Success               bool     `json:"success"`
	ActualImprovement     string   `json:"actualImprovement"`
	DelayReductionMinutes int      `json:"delayReductionMinutes"`
	SideEffects           []string `json:"sideEffects"`
}

// SuggestionFilter narrows a suggestion listing. Empty fields match everything.
type SuggestionFilter struct {
	Status  SuggestionStatus
	TrainID string
}

// Matches reports whether s passes the filter
func (f SuggestionFilter) Matches(s *OptimizationSuggestion) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.TrainID != "" && s.TrainID != f.TrainID {
		return false
	}
	return true
}
