package stats

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestCpRange(t *testing.T) {
	require := require.New(t)

	c := NewCpRange()
	for _, n := range []int{30, 10, 50, 20, 40} {
		require.NoError(c.Add(3, n))
	}
	require.NoError(c.Add(5, 7))
	require.True(errors.Is(c.Add(0, 1), ErrBadCriticalPath))

	tab := c.Finalize()
	require.Equal([2]float64{10, 40}, tab.Ranges[3])
	require.Equal([2]float64{7, 7}, tab.Ranges[5])
	require.Equal([]int{3, 5}, tab.CPs())

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		n, ok := tab.SampleNodeCount(3, rng)
		require.True(ok)
		require.GreaterOrEqual(n, 10)
		require.LessOrEqual(n, 40)

		n, ok = tab.SampleNodeCount(5, rng)
		require.True(ok)
		require.Equal(7, n)
	}
	_, ok := tab.SampleNodeCount(4, rng)
	require.False(ok)

	path := filepath.Join(t.TempDir(), "cp_ranges.json")
	require.NoError(tab.Save(path))
	loaded, err := LoadCpRangeTable(path)
	require.NoError(err)
	require.Equal(tab.Ranges, loaded.Ranges)
}

func TestLevelHistogram(t *testing.T) {
	require := require.New(t)

	d := NewLevelDistribution()
	require.NoError(d.Add(3, 1, []int{0, 1, 1, 2}))
	require.NoError(d.Add(3, 1, []int{1}))
	require.NoError(d.Add(3, 4, []int{0, 2}))
	require.True(errors.Is(d.Add(3, 1, []int{3}), ErrLevelOutOfRange))

	h := d.Finalize()
	require.Equal([]int{1, 4, 5}, h.Cumulative[3][1])
	require.Equal([]int{1, 1, 2}, h.Cumulative[3][4])

	rng := rand.New(rand.NewSource(9))
	var counts [3]int
	for i := 0; i < 10000; i++ {
		l, err := h.SampleLevel(Stratum{CP: 3, Part: 1}, rng)
		require.NoError(err)
		counts[l]++
	}
	// weights 1:3:1
	require.InDelta(2000, counts[0], 300)
	require.InDelta(6000, counts[1], 300)
	require.InDelta(2000, counts[2], 300)

	for i := 0; i < 1000; i++ {
		l, err := h.SampleLevel(Stratum{CP: 3, Part: 4}, rng)
		require.NoError(err)
		require.NotEqual(1, l)
	}

	_, err := h.SampleLevel(Stratum{CP: 3, Part: 2}, rng)
	require.True(errors.Is(err, ErrNoStatistic))

	path := filepath.Join(t.TempDir(), "level_distribute.json")
	require.NoError(h.Save(path))
	loaded, err := LoadLevelHistogram(path)
	require.NoError(err)
	require.Equal(h.Cumulative, loaded.Cumulative)
}

func TestNearestKnownPart(t *testing.T) {
	h := &LevelHistogram{Cumulative: map[int]map[int][]int{
		3: {2: {1, 2, 3}, 5: {1, 2, 3}},
	}}
	tests := []struct {
		part int
		want int
	}{
		{0, 2},
		{2, 2},
		{3, 5},
		{5, 5},
		{9, 5},
	}
	for _, tt := range tests {
		got, err := h.NearestKnownPart(3, tt.part)
		if err != nil {
			t.Fatalf("NearestKnownPart(3, %d): %v", tt.part, err)
		}
		if got != tt.want {
			t.Fatalf(`NearestKnownPart(3, %d) = %d, want %d`, tt.part, got, tt.want)
		}
	}

	_, err := h.NearestKnownPart(4, 1)
	require.True(t, errors.Is(err, ErrUnknownCP))
}
