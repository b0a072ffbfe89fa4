package simulation

import "github.com/shopspring/decimal"

var (
	costPerDelayMinute   = decimal.NewFromInt(150)
	costPerPassengerHour = decimal.NewFromInt(25)
)

// estimateCost prices a scenario's rounded delay minutes and passenger-hours.
func estimateCost(totalDelay, passengerImpact int) int64 {
	cost := decimal.NewFromInt(int64(totalDelay)).Mul(costPerDelayMinute).
		Add(decimal.NewFromInt(int64(passengerImpact)).Mul(costPerPassengerHour))
	return cost.Round(0).IntPart()
}

// scenarioScore ranks a scenario's results; lower is better.
func scenarioScore(totalDelay, passengerImpact int, estimatedCost int64) float64 {
	score := decimal.NewFromInt(int64(totalDelay)).
		Add(decimal.NewFromInt(estimatedCost).Div(decimal.NewFromInt(100))).
		Add(decimal.NewFromInt(int64(passengerImpact)).Mul(decimal.NewFromInt(2)))
	f, _ := score.Float64()
	return f
}
