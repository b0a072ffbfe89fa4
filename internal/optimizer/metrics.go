package optimizer

import (
	"regexp"
	"strconv"

	"github.com/railops/dispatch/models"
)

var minutesPattern = regexp.MustCompile(`(\d+)min`)

// ParseImprovementMinutes returns the first "<N>min" figure in an
// estimated-improvement text, or 0 when the text carries none.
func ParseImprovementMinutes(text string) int {
	m := minutesPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func calculateMetrics(suggestions []models.OptimizationSuggestion) models.OptimizationMetrics {
	metrics := models.OptimizationMetrics{
		ImplementationComplexity: models.ComplexityLow,
	}
	if len(suggestions) == 0 {
		return metrics
	}

	trains := make(map[string]struct{}, len(suggestions))
	hasComplex := false
	var confidenceSum float64

	for i := range suggestions {
		s := &suggestions[i]
		metrics.TotalDelayReduction += ParseImprovementMinutes(s.EstimatedImprovement)
		trains[s.TrainID] = struct{}{}
		confidenceSum += s.Confidence
		if s.Type == models.SuggestionReroute || s.Type == models.SuggestionReschedule {
			hasComplex = true
		}
	}

	metrics.AffectedTrains = len(trains)
	metrics.ConfidenceScore = confidenceSum / float64(len(suggestions))

	switch {
	case hasComplex:
		metrics.ImplementationComplexity = models.ComplexityHigh
	case len(suggestions) > 3:
		metrics.ImplementationComplexity = models.ComplexityMedium
	}

	return metrics
}
