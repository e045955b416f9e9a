package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	groups := map[int][]string{
		1: {"a"},
		2: {"b"},
		3: {"c", "d"},
		4: {"e", "f", "g"},
		5: {"h", "i", "j"},
	}

	s, err := Compute(groups)
	require.NoError(t, err)

	assert.Equal(t, 5, s.NumGroups)
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 2, 4: 3, 5: 3}, s.GroupSizes)
	assert.Equal(t, map[int]int{1: 2, 2: 1, 3: 2}, s.SizeHistogram)
	assert.Equal(t, []Bin{{1, 2}, {2, 1}, {3, 2}}, s.Bins())

	assert.Equal(t, 2.0, s.Summary.Mean)
	assert.Equal(t, 1, s.Summary.Min)
	assert.Equal(t, 3, s.Summary.Max)
	assert.Equal(t, 0.89, s.Summary.Std)
}

func TestComputeCountsDistinctMembers(t *testing.T) {
	s, err := Compute(map[int][]string{1: {"a", "a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, s.GroupSizes[1])
	assert.Equal(t, map[int]int{2: 1}, s.SizeHistogram)
}

func TestComputeHistogramSumsToGroups(t *testing.T) {
	groups := map[int][]string{}
	for i := 0; i < 20; i++ {
		members := make([]string, i%4+1)
		for j := range members {
			members[j] = string(rune('a' + j))
		}
		groups[i] = members
	}

	s, err := Compute(groups)
	require.NoError(t, err)

	total := 0
	for _, count := range s.SizeHistogram {
		total += count
	}
	assert.Equal(t, s.NumGroups, total)
}

func TestComputeEmpty(t *testing.T) {
	_, err := Compute(nil)
	assert.ErrorIs(t, err, ErrEmptyGrouping)

	_, err = Compute(map[int][]string{})
	assert.ErrorIs(t, err, ErrEmptyGrouping)
}
