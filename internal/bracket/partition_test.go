package bracket

import (
	"errors"
	"testing"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionGroups(t *testing.T) {
	testCases := []struct {
		name      string
		pool      int
		numGroups int
		sizes     []int
		matches   int
	}{
		{name: "10 into 3", pool: 10, numGroups: 3, sizes: []int{4, 4, 2}, matches: 13},
		{name: "8 into 2", pool: 8, numGroups: 2, sizes: []int{4, 4}, matches: 12},
		{name: "5 into 1", pool: 5, numGroups: 1, sizes: []int{5}, matches: 10},
		{name: "10 into 6 collapses to 5", pool: 10, numGroups: 6, sizes: []int{2, 2, 2, 2, 2}, matches: 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pool := seededPool(tc.pool)
			groups, err := PartitionGroups(pool, tc.numGroups)
			require.NoError(t, err)

			var sizes []int
			matches, total := 0, 0
			for _, g := range groups {
				sizes = append(sizes, len(g))
				matches += len(RoundRobinPairs(len(g)))
				total += len(g)
			}
			assert.Equal(t, tc.sizes, sizes)
			assert.Equal(t, tc.matches, matches)
			assert.Equal(t, tc.pool, total)
			assert.Equal(t, pool[0], groups[0][0])
		})
	}
}

func TestPartitionGroups_Errors(t *testing.T) {
	_, err := PartitionGroups(nil, 2)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))

	_, err = PartitionGroups(seededPool(4), 0)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))

	_, err = PartitionGroups(seededPool(27), 27)
	assert.True(t, errors.Is(err, apperr.ErrCapacityExceeded))
}

func TestGroupLetter(t *testing.T) {
	assert.Equal(t, "A", GroupLetter(0))
	assert.Equal(t, "C", GroupLetter(2))
	assert.Equal(t, "Z", GroupLetter(25))
}

func TestRoundRobinPairs(t *testing.T) {
	assert.Empty(t, RoundRobinPairs(1))
	assert.Equal(t, [][2]int{{0, 1}}, RoundRobinPairs(2))
	assert.Equal(t, [][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}, RoundRobinPairs(4))
}
