package optimizer

import (
	"fmt"

	"github.com/railops/dispatch/models"
)

const (
	// a draw must exceed these to succeed or to cause a side effect
	rerouteSuccessAbove     = 0.1
	rerouteSideEffectAbove  = 0.7
	prioritySideEffectAbove = 0.8
	platformSideEffectAbove = 0.9

	rerouteRecoveryShare  = 0.6
	priorityRecoveryShare = 0.4
	priorityBump          = 2

	rerouteFailureMessage = "Reroute failed due to track availability"
	trainNotFoundMessage  = "Train not found"
)

// roll reports whether a draw from the engine's random source is strictly
// above threshold
func (e *Engine) roll(threshold float64) bool {
	return e.random() > threshold
}

// SimulateImplementation plays out what carrying out s would achieve against
// the trains in octx. It never mutates octx; the caller applies the effect with
// ApplyOutcome when the outcome succeeds.
func (e *Engine) SimulateImplementation(s models.OptimizationSuggestion, octx models.OptimizationContext) models.ImplementationOutcome {
	train := octx.FindTrain(s.TrainID)
	if train == nil {
		return models.ImplementationOutcome{
			Success:           false,
			ActualImprovement: trainNotFoundMessage,
			SideEffects:       []string{},
		}
	}

	outcome := models.ImplementationOutcome{
		Success:           true,
		ActualImprovement: s.EstimatedImprovement,
		SideEffects:       []string{},
	}

	switch s.Type {
	case models.SuggestionReroute:
		if !e.roll(rerouteSuccessAbove) {
			return models.ImplementationOutcome{
				Success:           false,
				ActualImprovement: rerouteFailureMessage,
				SideEffects:       []string{},
			}
		}
		saved := int(float64(train.Delay) * rerouteRecoveryShare)
		outcome.ActualImprovement = fmt.Sprintf("Reduced delay by %dmin", saved)
		outcome.DelayReductionMinutes = saved
		if e.roll(rerouteSideEffectAbove) {
			outcome.SideEffects = append(outcome.SideEffects, "Minor delay to 1 other train due to track switching")
		}

	case models.SuggestionPriorityChange:
		saved := int(float64(train.Delay) * priorityRecoveryShare)
		outcome.ActualImprovement = fmt.Sprintf("Priority increased, estimated %dmin improvement", saved)
		outcome.DelayReductionMinutes = saved
		if e.roll(prioritySideEffectAbove) {
			outcome.SideEffects = append(outcome.SideEffects, "Lower priority trains may experience slight delays")
		}

	case models.SuggestionReschedule:
		outcome.ActualImprovement = "Train rescheduled to off-peak hours"
		outcome.DelayReductionMinutes = train.Delay
		outcome.SideEffects = append(outcome.SideEffects, "Passenger notifications sent", "Alternative transport arranged")

	case models.SuggestionPlatformChange:
		outcome.ActualImprovement = "Platform changed, boarding efficiency improved by 15%"
		if e.roll(platformSideEffectAbove) {
			outcome.SideEffects = append(outcome.SideEffects, "Brief passenger confusion during transition")
		}
	}

	return outcome
}

// ApplyOutcome mutates the caller's train record after a successful
// implementation of a suggestion of type t.
func ApplyOutcome(train *models.Train, t models.SuggestionType) {
	switch t {
	case models.SuggestionReroute:
		train.Delay = max(0, train.Delay-int(float64(train.Delay)*rerouteRecoveryShare))
	case models.SuggestionPriorityChange:
		train.Priority = min(models.MaxPriority, train.Priority+priorityBump)
		train.Delay = max(0, train.Delay-int(float64(train.Delay)*priorityRecoveryShare))
	case models.SuggestionReschedule:
		train.Status = models.TrainScheduled
		train.Delay = 0
	case models.SuggestionPlatformChange:
		// platform moves improve boarding, not the delay figure
	}
}
