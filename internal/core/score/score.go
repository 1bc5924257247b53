// Package score converts edit distances into normalized 0-100 similarity
// percentages.
package score

import (
	"math"

	"github.com/baditaflorin/go_code_similarity/internal/core/editdist"
)

// NoThreshold disables threshold-aware scoring.
const NoThreshold = 0

// Score computes the exact similarity percentage between two texts.
func Score(a, b string) float64 {
	return Runes([]rune(a), []rune(b), NoThreshold)
}

// ScoreWithin computes the similarity percentage between two texts,
// reporting 0 for any pair that cannot reach minSimilarity. A zero result
// under a positive threshold means "below threshold", not an exact score;
// callers needing the exact value must use Score.
func ScoreWithin(a, b string, minSimilarity float64) float64 {
	return Runes([]rune(a), []rune(b), minSimilarity)
}

// Runes is the rune-slice form used on the engine's hot path, where the
// caller converts each fragment to runes exactly once.
func Runes(a, b []rune, minSimilarity float64) float64 {
	if runesEqual(a, b) {
		// Covers two empty inputs as well.
		return 100
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	var dist int
	if minSimilarity > 0 {
		ceiling := MaxDistance(maxLen, minSimilarity)
		dist = editdist.DistanceWithin(a, b, ceiling)
		if dist > ceiling {
			return 0
		}
	} else {
		dist = editdist.Distance(a, b)
	}

	return Percent(dist, maxLen)
}

// Percent converts a distance and denominator into a percentage rounded
// to two decimal places.
func Percent(dist, maxLen int) float64 {
	return math.Round(float64(maxLen-dist)/float64(maxLen)*10000) / 100
}

// MaxDistance returns the largest edit distance at which two texts with
// the given longer length can still reach minSimilarity. The division
// happens last so that thresholds like 90 floor to their exact ceiling
// instead of one below it.
func MaxDistance(maxLen int, minSimilarity float64) int {
	return int(math.Floor(float64(maxLen) * (100 - minSimilarity) / 100))
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
