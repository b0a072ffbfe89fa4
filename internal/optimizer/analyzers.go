package optimizer

import (
	"fmt"

	"github.com/railops/dispatch/models"
)

const (
	delayThreshold     = 5   // minutes before a train is considered for delay fixes
	rerouteThreshold   = 15  // minutes before a reroute is worth proposing
	capacityThreshold  = 0.8 // occupancy rate above which a station is crowded
	routeDelayMinimum  = 10  // minutes before a running train is rerouted around alerts
	rerouteFloor       = 2   // minutes of delay a reroute cannot get below
	rerouteGain        = 12  // minutes a reroute is expected to recover
	expressPriorityCap = 7
)

func (e *Engine) suggestion(snap *snapshot, kind string, t models.SuggestionType, train *models.Train) models.OptimizationSuggestion {
	return models.OptimizationSuggestion{
		ID:        e.newID(kind, train.ID),
		Type:      t,
		TrainID:   train.ID,
		Status:    models.StatusPending,
		CreatedAt: snap.ctx.CurrentTime,
		UpdatedAt: snap.ctx.CurrentTime,
	}
}

// analyzeDelays proposes fixes for trains more than delayThreshold minutes late.
func (e *Engine) analyzeDelays(snap *snapshot) []models.OptimizationSuggestion {
	var out []models.OptimizationSuggestion

	for i := range snap.trains {
		train := &snap.trains[i]
		if train.Delay <= delayThreshold {
			continue
		}

		if train.Delay > rerouteThreshold {
			target := max(rerouteFloor, train.Delay-rerouteGain)
			saved := train.Delay - target
			s := e.suggestion(snap, "delay", models.SuggestionReroute, train)
			s.Description = fmt.Sprintf("Reroute %s via alternate track to bypass congestion", train.Number)
			s.EstimatedImprovement = fmt.Sprintf("Cut delay by %dmin, from %dmin down to %dmin", saved, train.Delay, target)
			s.DelayReductionMinutes = saved
			s.Confidence = rerouteConfidence(train, snap)
			out = append(out, s)
		}

		if train.Type == models.TrainPassenger && train.Delay > 8 && train.Priority < 8 {
			saved := int(float64(train.Delay) * 0.4)
			s := e.suggestion(snap, "priority", models.SuggestionPriorityChange, train)
			s.Description = fmt.Sprintf("Increase priority of passenger train %s to minimize passenger impact", train.Number)
			s.EstimatedImprovement = fmt.Sprintf("Reduce passenger delay by %dmin", saved)
			s.DelayReductionMinutes = saved
			s.Confidence = priorityConfidence(train, snap)
			out = append(out, s)
		}

		if train.Type == models.TrainFreight && train.Delay > 20 && train.Priority < 5 {
			s := e.suggestion(snap, "reschedule", models.SuggestionReschedule, train)
			s.Description = fmt.Sprintf("Reschedule freight train %s to off-peak hours", train.Number)
			s.EstimatedImprovement = "Clear congestion, reduce system-wide delays by 15%"
			s.Confidence = rescheduleConfidence(train, snap)
			out = append(out, s)
		}
	}

	return out
}

// analyzeCapacity proposes platform changes for trains heading into crowded stations.
func (e *Engine) analyzeCapacity(snap *snapshot) []models.OptimizationSuggestion {
	var out []models.OptimizationSuggestion

	for i := range snap.stations {
		station := &snap.stations[i]
		if station.OccupancyRate() <= capacityThreshold {
			continue
		}

		for j := range snap.trains {
			train := &snap.trains[j]
			if train.Destination != station.Name {
				continue
			}
			s := e.suggestion(snap, "platform", models.SuggestionPlatformChange, train)
			s.Description = fmt.Sprintf("Redirect %s to alternate platform at %s to reduce congestion", train.Number, station.Name)
			s.EstimatedImprovement = "Reduce station congestion by 20%, improve boarding efficiency"
			s.Confidence = platformChangeConfidence(station)
			out = append(out, s)
		}
	}

	return out
}

// analyzePriority proposes priority bumps for late express trains below the express floor.
func (e *Engine) analyzePriority(snap *snapshot) []models.OptimizationSuggestion {
	var out []models.OptimizationSuggestion

	for i := range snap.trains {
		train := &snap.trains[i]
		if train.Type != models.TrainExpress || train.Priority >= expressPriorityCap || train.Delay <= 0 {
			continue
		}
		saved := int(float64(train.Delay) * 0.6)
		s := e.suggestion(snap, "express_priority", models.SuggestionPriorityChange, train)
		s.Description = fmt.Sprintf("Increase priority of express train %s to maintain schedule integrity", train.Number)
		s.EstimatedImprovement = fmt.Sprintf("Reduce delay by %dmin, improve passenger satisfaction", saved)
		s.DelayReductionMinutes = saved
		s.Confidence = expressPriorityConfidence
		out = append(out, s)
	}

	return out
}

// analyzeRoutes proposes reroutes for running trains named by unresolved alerts.
func (e *Engine) analyzeRoutes(snap *snapshot) []models.OptimizationSuggestion {
	var out []models.OptimizationSuggestion

	for i := range snap.trains {
		train := &snap.trains[i]
		if train.Status != models.TrainRunning || train.Delay <= routeDelayMinimum {
			continue
		}

		var matching []models.Alert
		for _, a := range snap.alerts {
			if a.AffectsTrain(train.ID) {
				matching = append(matching, a)
			}
		}
		if len(matching) == 0 {
			continue
		}

		saved := int(float64(train.Delay) * 0.7)
		s := e.suggestion(snap, "route", models.SuggestionReroute, train)
		s.Description = fmt.Sprintf("Reroute %s to avoid %s affecting current path", train.Number, matching[0].Type)
		s.EstimatedImprovement = fmt.Sprintf("Avoid %s, reduce delay by %dmin", matching[0].Type, saved)
		s.DelayReductionMinutes = saved
		s.Confidence = routeAvoidanceConfidence(train, matching)
		out = append(out, s)
	}

	return out
}
