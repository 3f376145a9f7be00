// Package scoring holds the pure aggregation rules that turn a set of
// independent peer scores into one final grade. Everything here is
// deterministic and side-effect free so the workflow layer can re-run it
// safely.
package scoring

import "sort"

// AggregatePeerScores computes the final score from the point totals awarded
// by each peer. The rule is a median with deterministic tie handling: for an
// odd count the exact middle element is returned, for an even count the two
// middle elements are averaged and rounded up to the nearest whole point.
// Rounding up is the documented policy tie-break favoring the student, since
// rubric points are integer-valued. An empty input aggregates to zero.
func AggregatePeerScores(points []int) int {
	n := len(points)
	if n == 0 {
		return 0
	}

	sorted := make([]int, n)
	copy(sorted, points)
	sort.Ints(sorted)

	if n%2 == 1 {
		return sorted[(n-1)/2]
	}

	lower := sorted[n/2-1]
	upper := sorted[n/2]
	sum := lower + upper
	// Integer ceil of sum/2.
	return (sum + 1) / 2
}
