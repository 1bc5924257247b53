// Package editdist implements Levenshtein edit distance over rune slices
// with an optional distance ceiling for early abort.
package editdist

import (
	"github.com/baditaflorin/go_code_similarity/internal/pool"
)

// rows holds reusable DP cost rows. Pairwise corpus comparison calls the
// distance functions millions of times, so row allocation must stay flat.
var rows = pool.NewRowPool(512)

// Distance computes the Levenshtein distance between two rune sequences:
// the minimum number of single-element insertions, deletions, or
// substitutions required to transform one into the other.
//
// Time complexity: O(len(a) * len(b))
// Space complexity: O(min(len(a), len(b))).
func Distance(a, b []rune) int {
	return distance(a, b, -1)
}

// DistanceWithin computes the Levenshtein distance between a and b as long
// as it does not exceed max. It returns the true distance when that
// distance is <= max, and exactly max+1 otherwise.
//
// Two cheap aborts apply before and during the DP: the absolute length
// difference is a lower bound on the distance, and once every cell of a DP
// row exceeds max no later row can come back under it.
func DistanceWithin(a, b []rune, max int) int {
	if max < 0 {
		max = 0
	}
	diff := len(a) - len(b)
	if diff < 0 {
		diff = -diff
	}
	if diff > max {
		return max + 1
	}
	return distance(a, b, max)
}

// distance runs the two-row DP. A max of -1 means unbounded.
func distance(a, b []rune, max int) int {
	if equal(a, b) {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Keep the shorter operand in the columns so the rows stay small.
	if len(a) > len(b) {
		a, b = b, a
	}

	buf := rows.Get(2 * (len(a) + 1))
	defer rows.Put(buf)
	prev := (*buf)[: len(a)+1 : len(a)+1]
	curr := (*buf)[len(a)+1:]

	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(b); j++ {
		curr[0] = j
		rowMin := j

		for i := 1; i <= len(a); i++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}

			d := min3(
				prev[i]+1,      // deletion
				curr[i-1]+1,    // insertion
				prev[i-1]+cost, // substitution
			)
			curr[i] = d
			if d < rowMin {
				rowMin = d
			}
		}

		// Each later row can only grow the minimum, so once the whole row
		// is past the ceiling the final distance is too.
		if max >= 0 && rowMin > max {
			return max + 1
		}

		prev, curr = curr, prev
	}

	// The per-row abort only sees the row minimum; the final cell can
	// still land above the ceiling.
	d := prev[len(a)]
	if max >= 0 && d > max {
		return max + 1
	}
	return d
}

func equal(a, b []rune) bool {
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

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
