package optimizer

import "github.com/railops/dispatch/models"

// expressPriorityConfidence is the fixed score of the express priority analyzer.
const expressPriorityConfidence = 0.85

// confidenceRange bounds the score of one suggestion kind.
type confidenceRange struct {
	min, max float64
}

func (r confidenceRange) clamp(v float64) float64 {
	if v < r.min {
		return r.min
	}
	if v > r.max {
		return r.max
	}
	return v
}

var (
	rerouteRange        = confidenceRange{0.3, 0.95}
	priorityRange       = confidenceRange{0.4, 0.9}
	rescheduleRange     = confidenceRange{0.3, 0.85}
	platformChangeRange = confidenceRange{0.4, 0.8}
	routeAvoidanceRange = confidenceRange{0.4, 0.9}
)

func rerouteConfidence(train *models.Train, snap *snapshot) float64 {
	c := 0.6
	if train.Delay > 20 {
		c += 0.2
	}
	if train.Delay > 30 {
		c += 0.1
	}
	if train.Priority >= 7 {
		c += 0.1
	}
	if len(snap.alerts) > 3 {
		c -= 0.1
	}
	return rerouteRange.clamp(c)
}

func priorityConfidence(train *models.Train, snap *snapshot) float64 {
	c := 0.7
	switch train.Type {
	case models.TrainPassenger:
		c += 0.1
	case models.TrainExpress:
		c += 0.15
	}
	if snap.delayedShare() > 0.3 {
		c += 0.1
	}
	return priorityRange.clamp(c)
}

func rescheduleConfidence(train *models.Train, snap *snapshot) float64 {
	c := 0.5
	if train.Type == models.TrainFreight {
		c += 0.2
	}
	if isPeakHour(snap.ctx.CurrentTime.Hour()) {
		c += 0.15
	}
	return rescheduleRange.clamp(c)
}

func platformChangeConfidence(station *models.Station) float64 {
	c := 0.6
	if station.OccupancyRate() > 0.9 {
		c += 0.2
	}
	if station.Platforms > 4 {
		c += 0.1
	}
	return platformChangeRange.clamp(c)
}

func routeAvoidanceConfidence(train *models.Train, alerts []models.Alert) float64 {
	c := 0.65
	for i := range alerts {
		if alerts[i].IsSevere() {
			c += 0.1
		}
	}
	if train.Priority >= 7 {
		c += 0.1
	}
	return routeAvoidanceRange.clamp(c)
}

// isPeakHour covers the 7-9 and 17-19 rush windows, inclusive.
func isPeakHour(hour int) bool {
	return (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19)
}
