// Package prune implements cheap necessary-condition filters that reject a
// candidate pair before any O(n*m) distance work. Every filter is
// conservative: a pair that could still reach the threshold is never
// rejected, while pairs that slip through are discarded by the scorer.
package prune

import (
	"math"
)

// CanReach reports whether texts a and b could possibly score at or above
// minSimilarity. Filters run cheapest first and short-circuit on the first
// failure:
//
//  1. length-ratio bound: the best possible score of two sequences is
//     capped by shorter/longer.
//  2. absolute length-difference bound against the distance ceiling.
//  3. rune-frequency lower bound: reconciling the two frequency multisets
//     costs at least half the total count mismatch in edits.
//
// With no threshold there is nothing to prune against and every pair
// passes.
func CanReach(a, b []rune, minSimilarity float64) bool {
	if minSimilarity <= 0 {
		return true
	}

	minLen, maxLen := len(a), len(b)
	if minLen > maxLen {
		minLen, maxLen = maxLen, minLen
	}
	if maxLen == 0 {
		// Two empty texts score 100.
		return true
	}

	if float64(minLen)/float64(maxLen)*100 < minSimilarity {
		return false
	}

	maxDiff := maxAllowedDiff(maxLen, minSimilarity)
	if maxLen-minLen > maxDiff {
		return false
	}

	return minEdits(a, b) <= maxDiff
}

// maxAllowedDiff is the largest edit distance still compatible with the
// threshold for a pair whose longer text has maxLen elements. The division
// happens last; see score.MaxDistance for the rounding rationale.
func maxAllowedDiff(maxLen int, minSimilarity float64) int {
	return int(math.Floor(float64(maxLen) * (100 - minSimilarity) / 100))
}

// minEdits returns a lower bound on the edit distance between a and b: any
// edit script must account for every rune-frequency mismatch, and a single
// substitution can fix at most two of them.
func minEdits(a, b []rune) int {
	freq := make(map[rune]int, len(a))
	for _, r := range a {
		freq[r]++
	}
	for _, r := range b {
		freq[r]--
	}

	total := 0
	for _, n := range freq {
		if n < 0 {
			n = -n
		}
		total += n
	}
	return total / 2
}
