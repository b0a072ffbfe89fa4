package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railops/dispatch/models"
)

func suggestionOf(typ models.SuggestionType, trainID string) models.OptimizationSuggestion {
	return models.OptimizationSuggestion{
		ID:                   "opt_test",
		Type:                 typ,
		TrainID:              trainID,
		EstimatedImprovement: "estimate",
		Status:               models.StatusPending,
	}
}

func TestSimulateImplementation_TrainNotFound(t *testing.T) {
	outcome := newTestEngine(0.99).SimulateImplementation(suggestionOf(models.SuggestionReroute, "missing"), contextOf())

	assert.False(t, outcome.Success)
	assert.Equal(t, trainNotFoundMessage, outcome.ActualImprovement)
	assert.Empty(t, outcome.SideEffects)
}

func TestSimulateImplementation_Reroute(t *testing.T) {
	octx := contextOf(train("t1", models.TrainFreight, 20, 5))

	t.Run("forced failure", func(t *testing.T) {
		outcome := newTestEngine(0.0).SimulateImplementation(suggestionOf(models.SuggestionReroute, "t1"), octx)

		assert.False(t, outcome.Success)
		assert.Equal(t, rerouteFailureMessage, outcome.ActualImprovement)
		assert.Empty(t, outcome.SideEffects)
		assert.Zero(t, outcome.DelayReductionMinutes)
	})

	t.Run("success without side effect", func(t *testing.T) {
		outcome := newTestEngine(0.5, 0.5).SimulateImplementation(suggestionOf(models.SuggestionReroute, "t1"), octx)

		require.True(t, outcome.Success)
		assert.Equal(t, "Reduced delay by 12min", outcome.ActualImprovement)
		assert.Equal(t, 12, outcome.DelayReductionMinutes)
		assert.Empty(t, outcome.SideEffects)
	})

	t.Run("success with side effect", func(t *testing.T) {
		outcome := newTestEngine(0.5, 0.95).SimulateImplementation(suggestionOf(models.SuggestionReroute, "t1"), octx)

		require.True(t, outcome.Success)
		assert.Len(t, outcome.SideEffects, 1)
	})

	t.Run("draw on the success threshold fails", func(t *testing.T) {
		outcome := newTestEngine(0.1).SimulateImplementation(suggestionOf(models.SuggestionReroute, "t1"), octx)
		assert.False(t, outcome.Success)
	})

	t.Run("draw on the side effect threshold is quiet", func(t *testing.T) {
		outcome := newTestEngine(0.5, 0.7).SimulateImplementation(suggestionOf(models.SuggestionReroute, "t1"), octx)
		require.True(t, outcome.Success)
		assert.Empty(t, outcome.SideEffects)
	})

	t.Run("context is not mutated", func(t *testing.T) {
		newTestEngine(0.5).SimulateImplementation(suggestionOf(models.SuggestionReroute, "t1"), octx)
		assert.Equal(t, 20, octx.Trains[0].Delay)
	})
}

func TestSimulateImplementation_OtherTypes(t *testing.T) {
	octx := contextOf(train("t1", models.TrainPassenger, 10, 5))

	tests := []struct {
		name        string
		typ         models.SuggestionType
		draws       []float64
		improvement string
		reduction   int
		sideEffects int
	}{
		{"priority quiet", models.SuggestionPriorityChange, []float64{0.5}, "Priority increased, estimated 4min improvement", 4, 0},
		{"priority noisy", models.SuggestionPriorityChange, []float64{0.85}, "Priority increased, estimated 4min improvement", 4, 1},
		{"priority on threshold", models.SuggestionPriorityChange, []float64{0.8}, "Priority increased, estimated 4min improvement", 4, 0},
		{"reschedule", models.SuggestionReschedule, []float64{0.0}, "Train rescheduled to off-peak hours", 10, 2},
		{"platform quiet", models.SuggestionPlatformChange, []float64{0.5}, "Platform changed, boarding efficiency improved by 15%", 0, 0},
		{"platform noisy", models.SuggestionPlatformChange, []float64{0.95}, "Platform changed, boarding efficiency improved by 15%", 0, 1},
		{"platform on threshold", models.SuggestionPlatformChange, []float64{0.9}, "Platform changed, boarding efficiency improved by 15%", 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			outcome := newTestEngine(tc.draws...).SimulateImplementation(suggestionOf(tc.typ, "t1"), octx)

			assert.True(t, outcome.Success)
			assert.Equal(t, tc.improvement, outcome.ActualImprovement)
			assert.Equal(t, tc.reduction, outcome.DelayReductionMinutes)
			assert.Len(t, outcome.SideEffects, tc.sideEffects)
		})
	}
}

func TestApplyOutcome(t *testing.T) {
	tests := []struct {
		name     string
		typ      models.SuggestionType
		start    models.Train
		delay    int
		priority int
		status   models.TrainStatus
	}{
		{"reroute", models.SuggestionReroute, train("t1", models.TrainFreight, 20, 5), 8, 5, models.TrainRunning},
		{"priority", models.SuggestionPriorityChange, train("t1", models.TrainPassenger, 10, 5), 6, 7, models.TrainRunning},
		{"priority capped", models.SuggestionPriorityChange, train("t1", models.TrainPassenger, 10, 9), 6, 10, models.TrainRunning},
		{"reschedule", models.SuggestionReschedule, train("t1", models.TrainFreight, 30, 2), 0, 2, models.TrainScheduled},
		{"platform", models.SuggestionPlatformChange, train("t1", models.TrainPassenger, 3, 4), 3, 4, models.TrainRunning},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := tc.start
			ApplyOutcome(&tr, tc.typ)

			assert.Equal(t, tc.delay, tr.Delay)
			assert.Equal(t, tc.priority, tr.Priority)
			assert.Equal(t, tc.status, tr.Status)
		})
	}
}
