package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railops/dispatch/internal/simulation"
	"github.com/railops/dispatch/models"
)

func newSimulationService(t *testing.T) (*SimulationService, *recorder) {
	t.Helper()
	store := newTestStore(t)
	events := &recorder{}
	svc := NewSimulationService(store, store, simulation.New(), events)
	svc.now = func() time.Time { return testNow }
	return svc, events
}

func TestSimulationRun(t *testing.T) {
	svc, events := newSimulationService(t)
	ctx := context.Background()

	sc, err := svc.Run(ctx, models.SimulationScenario{
		Name: "PS303 held at North Terminal",
		Parameters: models.ScenarioParameters{
			TrainDelays: []models.TrainDelay{{TrainID: "tr3", AdditionalDelay: 20}},
		},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sc.ID, "sim_"))
	assert.Equal(t, testNow, sc.CreatedAt)
	require.NotNil(t, sc.Results)
	assert.Equal(t, 20, sc.Results.TotalDelay)
	assert.Equal(t, 60, sc.Results.PassengerImpact)
	assert.Equal(t, int64(4500), sc.Results.EstimatedCost)

	stored, err := svc.Get(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.Results, stored.Results)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Len(t, events.ofType(models.EventSimulationResult), 1)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSimulationRun_Invalid(t *testing.T) {
	svc, _ := newSimulationService(t)

	_, err := svc.Run(context.Background(), models.SimulationScenario{
		Parameters: models.ScenarioParameters{WeatherConditions: "hail"},
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "invalid scenarios are not stored")
}

func TestSimulationCompare(t *testing.T) {
	svc, _ := newSimulationService(t)
	ctx := context.Background()

	_, err := svc.Compare(ctx, []models.SimulationScenario{{ID: "only"}})
	assert.ErrorIs(t, err, models.ErrTooFewScenarios)

	cmp, err := svc.Compare(ctx, []models.SimulationScenario{
		{ID: "closure", Parameters: models.ScenarioParameters{StationClosures: []string{"st1"}}},
		{ID: "calm"},
	})
	require.NoError(t, err)
	assert.Equal(t, "calm", cmp.Best.ID)
	assert.Equal(t, "closure", cmp.Worst.ID)
	require.Len(t, cmp.Comparison, 2)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "comparisons are not persisted")
}

func TestSimulationCompare_AssignsMissingIDs(t *testing.T) {
	svc, _ := newSimulationService(t)

	input := []models.SimulationScenario{
		{Name: "a", Parameters: models.ScenarioParameters{TrainDelays: []models.TrainDelay{{TrainID: "tr3", AdditionalDelay: 10}}}},
		{Name: "b", Parameters: models.ScenarioParameters{WeatherConditions: models.WeatherSnow}},
	}
	cmp, err := svc.Compare(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, cmp.Comparison, 2)

	ids := map[string]string{}
	for _, entry := range cmp.Comparison {
		assert.True(t, strings.HasPrefix(entry.Scenario.ID, "sim_"), entry.Scenario.ID)
		ids[entry.Scenario.Name] = entry.Scenario.ID
	}
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids["a"], ids["b"])

	assert.Empty(t, input[0].ID, "caller's scenarios are left as given")
	assert.Empty(t, input[1].ID)
}
