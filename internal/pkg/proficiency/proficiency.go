// Package proficiency estimates per-skill mastery from graded activity.
// A single-step exponential moving average gives recency-weighted tracking
// without storing attempt history.
package proficiency

// LearningRate controls how strongly one observation moves the estimate.
const LearningRate = 0.3

// DefaultBaseline is the starting estimate for a skill never practiced before.
const DefaultBaseline = 0.5

// Update returns the next proficiency estimate given the current estimate,
// the observed score and the item difficulty. The result is always clamped
// to [0,1]; inputs outside that range are tolerated.
func Update(current, score, difficulty float64) float64 {
	return clamp(current+LearningRate*(score-difficulty), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
