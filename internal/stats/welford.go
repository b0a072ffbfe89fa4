// Package stats holds small streaming statistics used by the KPI panel.
package stats

import "math"

// Welford holds running statistics using Welford's online algorithm.
// Mean and standard deviation are updated in O(1) per observation without
// keeping the observations around.
type Welford struct {
	count int
	mean  float64
	m2    float64 // sum of squared differences from the mean
}

// Add records one observation.
func (w *Welford) Add(v float64) {
	w.count++
	delta := v - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (v - w.mean)
}

// Count returns the number of observations.
func (w *Welford) Count() int {
	return w.count
}

// Mean returns the running mean, 0 with no observations.
func (w *Welford) Mean() float64 {
	return w.mean
}

// StdDev returns the population standard deviation.
// Returns 0 if fewer than 2 observations.
func (w *Welford) StdDev() float64 {
	if w.count < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.count))
}
