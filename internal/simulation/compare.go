package simulation

import (
	"sort"

	"github.com/railops/dispatch/models"
)

// Compare ranks scenarios from best (lowest score) to worst. Scenarios without
// results are simulated first. The returned scenarios are copies carrying their
// results; the input slice is left untouched.
func (e *Engine) Compare(fleet models.Fleet, scenarios []models.SimulationScenario) (models.ScenarioComparison, error) {
	if len(scenarios) < 2 {
		return models.ScenarioComparison{}, models.ErrTooFewScenarios
	}

	scored := make([]models.ScoredScenario, 0, len(scenarios))
	for _, s := range scenarios {
		enriched := s.Clone()
		if enriched.Results == nil {
			results, err := e.Run(fleet, enriched)
			if err != nil {
				return models.ScenarioComparison{}, err
			}
			enriched.Results = &results
		}

		r := enriched.Results
		scored = append(scored, models.ScoredScenario{
			Scenario: enriched,
			Score:    scenarioScore(r.TotalDelay, r.PassengerImpact, r.EstimatedCost),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})

	return models.ScenarioComparison{
		Best:       scored[0].Scenario,
		Worst:      scored[len(scored)-1].Scenario,
		Comparison: scored,
	}, nil
}
