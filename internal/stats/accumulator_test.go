package stats

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

func TestInterpolate(t *testing.T) {
	bp := Breakpoints{0, 1, 2, 4, 5}
	tests := []struct {
		r    float64
		want float64
	}{
		{0, 1},
		{1, 1.5},
		{2, 2},
		{3, 3},
		{4, 4},
		{5, 4},
		{9.99, 4},
	}
	for _, tt := range tests {
		if got := interpolate(bp, tt.r); got != tt.want {
			t.Fatalf(`interpolate(%v) = %v, want %v`, tt.r, got, tt.want)
		}
	}
}

func TestBreakpoints(t *testing.T) {
	require.Equal(t, Breakpoints{1, 1, 2, 4, 5}, breakpoints([]float64{5, 3, 1, 2, 4}))
	require.Equal(t, Breakpoints{}, breakpoints(nil))
	require.Equal(t, Breakpoints{7, 7, 7, 7, 7}, breakpoints([]float64{7}))
}

func TestFinalize(t *testing.T) {
	require := require.New(t)

	a := NewAccumulator()
	st := Stratum{CP: 3, Part: 2}
	require.NoError(a.Observe(st, "x", [][]float64{{5, 3, 1}, nil, {7}}))
	require.NoError(a.Observe(st, "x", [][]float64{{2, 4}}))

	err := a.Observe(st, "x", make([][]float64, 4))
	require.True(errors.Is(err, ErrLevelOutOfRange))

	tab, err := a.Finalize()
	require.NoError(err)
	require.Equal([]Breakpoints{{1, 1, 2, 4, 5}, {}, {7, 7, 7, 7, 7}}, tab.Stats["x"][3][2])

	_, err = a.Finalize()
	require.True(errors.Is(err, ErrFinalized))
	require.True(errors.Is(a.Observe(st, "x", nil), ErrFinalized))

	_, err = tab.Lookup(Stratum{CP: 3, Part: 1}, 0, "x")
	require.True(errors.Is(err, ErrNoStatistic))
	_, err = tab.Lookup(st, 3, "x")
	require.True(errors.Is(err, ErrNoStatistic))
	_, err = tab.Sample(st, 0, "y", rand.New(rand.NewSource(1)))
	require.True(errors.Is(err, ErrNoStatistic))

	// an empty level carries no information and samples as zero
	v, err := tab.Sample(st, 1, "x", rand.New(rand.NewSource(1)))
	require.NoError(err)
	require.Zero(v)
}

func TestSampleRange(t *testing.T) {
	a := NewAccumulator()
	st := Stratum{CP: 1, Part: 4}
	vals := make([]float64, 0, 100)
	for i := 0; i < 100; i++ {
		vals = append(vals, float64(i))
	}
	require.NoError(t, a.Observe(st, "x", [][]float64{vals}))
	tab, err := a.Finalize()
	require.NoError(t, err)

	bp, err := tab.Lookup(st, 0, "x")
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		v, err := tab.Sample(st, 0, "x", rng)
		require.NoError(t, err)
		if v < bp[1] || v > bp[3] {
			t.Fatalf("sample %v outside [%v, %v]", v, bp[1], bp[3])
		}
	}
}

func TestTableRoundTrip(t *testing.T) {
	require := require.New(t)

	a := NewAccumulator()
	rng := rand.New(rand.NewSource(11))
	for cp := 1; cp <= 4; cp++ {
		for part := 1; part <= 3; part++ {
			perLevel := make([][]float64, cp)
			for l := range perLevel {
				for i := 0; i < 7; i++ {
					perLevel[l] = append(perLevel[l], rng.Float64()*100)
				}
			}
			require.NoError(a.Observe(Stratum{CP: cp, Part: part}, "childs_distribution", perLevel))
		}
	}
	tab, err := a.Finalize()
	require.NoError(err)

	path := filepath.Join(t.TempDir(), "stats", "level_generator.json")
	require.NoError(tab.Save(path))
	loaded, err := LoadTable(path)
	require.NoError(err)
	require.Equal(tab.Stats, loaded.Stats)

	r1 := rand.New(rand.NewSource(5))
	r2 := rand.New(rand.NewSource(5))
	for i := 0; i < 200; i++ {
		st := Stratum{CP: 4, Part: 1 + i%3}
		v1, err := tab.Sample(st, i%4, "childs_distribution", r1)
		require.NoError(err)
		v2, err := loaded.Sample(st, i%4, "childs_distribution", r2)
		require.NoError(err)
		require.Equal(v1, v2)
	}
}

func TestConcurrentObserve(t *testing.T) {
	a := NewAccumulator()
	st := Stratum{CP: 2, Part: 1}

	var g errgroup.Group
	for n := 0; n < 8; n++ {
		name := fmt.Sprintf("stat%d", n)
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				if err := a.Observe(st, name, [][]float64{{float64(i)}}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	tab, err := a.Finalize()
	require.NoError(t, err)
	require.Len(t, tab.Names(), 8)
	for _, name := range tab.Names() {
		bp, err := tab.Lookup(st, 0, name)
		require.NoError(t, err)
		require.Equal(t, 0.0, bp[0])
		require.Equal(t, 49.0, bp[4])
	}
}

func TestExtract(t *testing.T) {
	require := require.New(t)

	g := dag.New()
	a := g.AddNode(dag.Task{Name: "task1", InstanceCnt: 2, StartTime: 0, EndTime: 10})
	b := g.AddNode(dag.Task{Name: "task2", InstanceCnt: 4, StartTime: 10, EndTime: 30,
		Instances: []dag.Instance{{Time: 5, CpuAvg: 51.7, CpuDiffMax: 2}, {Time: 7, CpuAvg: 40, CpuDiffMax: 3.5}}})
	c := g.AddNode(dag.Task{Name: "task3", InstanceCnt: 40, StartTime: 10, EndTime: 30})
	g.AddDependency(b, a)
	g.AddDependency(c, a)
	levels := []int{0, 1, 1}

	require.Equal([][]float64{{2}, {0, 0}}, ChildCount.Extract(g, levels, 2))
	require.Equal([][]float64{{0}, {1, 1}}, ParentCount.Extract(g, levels, 2))
	require.Equal([][]float64{{2}, nil}, InstanceInit.Extract(g, levels, 2))
	require.Equal([][]float64{nil, {20000, 100000}}, InstanceRatio.Extract(g, levels, 2))
	require.Equal([][]float64{{3}, {6, 20}}, Heavy.Extract(g, levels, 2))
	require.Equal([][]float64{nil, {5, 7}}, InstanceTime.Extract(g, levels, 2))
	require.Equal([][]float64{nil, {51, 40}}, InstanceCpuAvg.Extract(g, levels, 2))
	require.Equal([][]float64{nil, {2, 3}}, InstanceCpuDiff.Extract(g, levels, 2))

	acc := NewAccumulator()
	st := NewStratum(2, g.Len())
	require.Equal(Stratum{CP: 2, Part: 1}, st)
	for _, k := range Kinds {
		require.NoError(acc.ObserveKind(st, k, g, levels))
	}
	tab, err := acc.Finalize()
	require.NoError(err)
	require.Len(tab.Names(), len(Kinds))
}
