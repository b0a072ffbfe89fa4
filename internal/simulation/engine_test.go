package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railops/dispatch/models"
)

func testFleet() models.Fleet {
	return models.Fleet{
		Trains: []models.Train{
			{ID: "t1", Number: "PS303", Type: models.TrainPassenger, Occupancy: 100, CurrentLocation: "North Terminal", Destination: "Central Station"},
			{ID: "t2", Number: "FR205", Type: models.TrainFreight, CurrentLocation: "East Hub", Destination: "South Junction"},
			{ID: "t3", Number: "EX101", Type: models.TrainExpress, Occupancy: 320, CurrentLocation: "Central Station", Destination: "North Terminal"},
		},
		Stations: []models.Station{
			{ID: "st1", Name: "Central Station", Capacity: 500},
			{ID: "st2", Name: "North Terminal", Capacity: 300},
			{ID: "st3", Name: "South Junction", Capacity: 200},
		},
	}
}

func scenario(id string, params models.ScenarioParameters) models.SimulationScenario {
	return models.SimulationScenario{ID: id, Name: id, Parameters: params}
}

func TestRun_TrainDelayAdditivity(t *testing.T) {
	results, err := New().Run(testFleet(), scenario("s1", models.ScenarioParameters{
		TrainDelays: []models.TrainDelay{{TrainID: "t1", AdditionalDelay: 10}},
	}))
	require.NoError(t, err)

	assert.Equal(t, 10, results.TotalDelay)
	assert.Equal(t, 1, results.AffectedTrains)
	assert.Equal(t, 17, results.PassengerImpact)
	assert.Equal(t, int64(1925), results.EstimatedCost)
	assert.Equal(t, 0, results.AlternativeRoutes)
	assert.Empty(t, results.Recommendations)
}

func TestRun_WeatherScaling(t *testing.T) {
	tests := []struct {
		weather models.Weather
		delay   int
		cost    int64
		recs    int
	}{
		{models.WeatherNormal, 10, 1925, 0},
		{models.WeatherRain, 12, 2225, 1},
		{models.WeatherSnow, 15, 2675, 1},
		{models.WeatherFog, 13, 2375, 1},
	}

	for _, tc := range tests {
		t.Run(string(tc.weather), func(t *testing.T) {
			results, err := New().Run(testFleet(), scenario("s1", models.ScenarioParameters{
				TrainDelays:       []models.TrainDelay{{TrainID: "t1", AdditionalDelay: 10}},
				WeatherConditions: tc.weather,
			}))
			require.NoError(t, err)

			assert.Equal(t, tc.delay, results.TotalDelay)
			assert.Equal(t, 17, results.PassengerImpact, "weather must not scale passenger impact")
			assert.Equal(t, tc.cost, results.EstimatedCost)
			assert.Len(t, results.Recommendations, tc.recs)
		})
	}
}

func TestRun_StationClosure(t *testing.T) {
	results, err := New().Run(testFleet(), scenario("s1", models.ScenarioParameters{
		StationClosures: []string{"st1", "unknown"},
	}))
	require.NoError(t, err)

	// t1 is bound for Central Station and t3 is currently there
	assert.Equal(t, 2, results.AffectedTrains)
	assert.Equal(t, 40, results.TotalDelay)
	assert.Equal(t, 1, results.AlternativeRoutes)
	assert.Equal(t, 0, results.PassengerImpact)
	assert.Equal(t, int64(6000), results.EstimatedCost)
	require.Len(t, results.Recommendations, 1)
	assert.Contains(t, results.Recommendations[0], "Central Station")
}

func TestRun_ClosureRoundsAlternativeRoutesUp(t *testing.T) {
	results, err := New().Run(testFleet(), scenario("s1", models.ScenarioParameters{
		StationClosures: []string{"st3"},
	}))
	require.NoError(t, err)

	assert.Equal(t, 1, results.AffectedTrains)
	assert.Equal(t, 1, results.AlternativeRoutes)
}

func TestRun_MaintenanceIsNotWeatherScaled(t *testing.T) {
	results, err := New().Run(testFleet(), scenario("s1", models.ScenarioParameters{
		StationClosures:    []string{"st3"},
		WeatherConditions:  models.WeatherSnow,
		MaintenanceWindows: []models.MaintenanceWindow{{StationID: "st2", Duration: 60}, {StationID: "ghost", Duration: 600}},
	}))
	require.NoError(t, err)

	// closure 20 * snow 1.5 = 30, then maintenance 60 * 0.3 = 18
	assert.Equal(t, 48, results.TotalDelay)
	assert.Equal(t, []string{
		"Reroute trains via alternative stations due to South Junction closure",
		"Implement weather-specific speed restrictions for snow conditions",
		"Schedule maintenance during low-traffic periods at North Terminal",
	}, results.Recommendations)
}

func TestRun_IgnoresUnknownAndNonPassengerTrains(t *testing.T) {
	results, err := New().Run(testFleet(), scenario("s1", models.ScenarioParameters{
		TrainDelays: []models.TrainDelay{
			{TrainID: "ghost", AdditionalDelay: 100},
			{TrainID: "t2", AdditionalDelay: 30},
			{TrainID: "t3", AdditionalDelay: 30},
		},
	}))
	require.NoError(t, err)

	assert.Equal(t, 60, results.TotalDelay)
	assert.Equal(t, 2, results.AffectedTrains)
	assert.Equal(t, 0, results.PassengerImpact, "only passenger trains count toward passenger-hours")
}

func TestRun_EmptyScenario(t *testing.T) {
	results, err := New().Run(testFleet(), scenario("s1", models.ScenarioParameters{}))
	require.NoError(t, err)

	assert.Equal(t, models.SimulationResults{Recommendations: []string{}}, results)
}

func TestRun_RejectsInvalidScenarios(t *testing.T) {
	tests := []struct {
		name     string
		scenario models.SimulationScenario
	}{
		{"missing id", models.SimulationScenario{}},
		{"unknown weather", scenario("s1", models.ScenarioParameters{WeatherConditions: "hail"})},
		{"negative delay", scenario("s1", models.ScenarioParameters{TrainDelays: []models.TrainDelay{{TrainID: "t1", AdditionalDelay: -5}}})},
		{"negative maintenance", scenario("s1", models.ScenarioParameters{MaintenanceWindows: []models.MaintenanceWindow{{StationID: "st1", Duration: -1}}})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New().Run(testFleet(), tc.scenario)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}
