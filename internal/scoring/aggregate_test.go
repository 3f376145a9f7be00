package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregatePeerScores(t *testing.T) {
	cases := []struct {
		name     string
		points   []int
		expected int
	}{
		{name: "empty", points: nil, expected: 0},
		{name: "single", points: []int{5}, expected: 5},
		{name: "even pair rounds up", points: []int{5, 6}, expected: 6},
		{name: "even set averages middle pair", points: []int{5, 6, 12, 16, 22, 53}, expected: 14},
		{name: "odd set takes exact middle", points: []int{5, 6, 12, 16, 22, 53, 102}, expected: 16},
		{name: "unsorted input", points: []int{53, 5, 22, 12, 6, 16}, expected: 14},
		{name: "identical scores", points: []int{6, 6, 6}, expected: 6},
		{name: "zero scores", points: []int{0, 0}, expected: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, AggregatePeerScores(tc.points))
		})
	}
}

func TestAggregatePeerScoresDoesNotMutateInput(t *testing.T) {
	points := []int{9, 1, 4}
	_ = AggregatePeerScores(points)
	require.Equal(t, []int{9, 1, 4}, points)
}
