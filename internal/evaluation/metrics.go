package evaluation

import (
	"math"
	"strings"
)

// BrandMatches compares brand names ignoring case and surrounding space.
func BrandMatches(expected, got string) bool {
	return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(got))
}

// Ratio returns part/total, or 0.0 when total is zero.
func Ratio(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total)
}

// CalibrationGap is the absolute difference between mean confidence and
// observed accuracy. A well calibrated pipeline scores close to 0.
// Returns 0.0 for an empty set.
func CalibrationGap(confidences []float64, correct []bool) float64 {
	if len(confidences) == 0 || len(confidences) != len(correct) {
		return 0.0
	}

	var sum float64
	hits := 0
	for i, c := range confidences {
		sum += c
		if correct[i] {
			hits++
		}
	}

	mean := sum / float64(len(confidences))
	return math.Abs(mean - Ratio(hits, len(correct)))
}
