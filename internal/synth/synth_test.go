package synth

import (
	"fmt"
	"testing"

	"github.com/Vincent-lau/dagen/internal/analyzer"
	config "github.com/Vincent-lau/dagen/internal/configs"
	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/Vincent-lau/dagen/internal/stats"
	"github.com/google/go-cmp/cmp"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// broom is a chain of four tasks with extra tasks hanging off the first three.
func broom(extra int) *dag.TaskGraph {
	g := dag.New()
	g.Dense = true
	n := 4 + extra
	for i := 0; i < n; i++ {
		inst := uint64(1 + i%4)
		instances := make([]dag.Instance, inst)
		for j := range instances {
			instances[j] = dag.Instance{Time: uint64(10 + i), CpuAvg: 50, CpuDiffMax: 1}
		}
		g.AddNode(dag.Task{
			Name:        fmt.Sprintf("task%d", i+1),
			InstanceCnt: inst,
			EndTime:     uint64(10 + i),
			Dependences: make([]int, 0),
			Instances:   instances,
		})
	}
	for i := 1; i < 4; i++ {
		g.AddDependency(i, i-1)
	}
	for i := 4; i < n; i++ {
		g.AddDependency(i, i%3)
	}
	return g
}

func learn(t *testing.T) *Model {
	t.Helper()
	require := require.New(t)

	cps := stats.NewCpRange()
	dist := stats.NewLevelDistribution()
	acc := stats.NewAccumulator()
	for k := 0; k < 12; k++ {
		g := broom(4 + k%5)
		a, err := analyzer.Analyze(g)
		require.NoError(err)
		require.Equal(4, a.CriticalPath)

		st := stats.NewStratum(a.CriticalPath, g.Len())
		require.NoError(cps.Add(st.CP, g.Len()))
		require.NoError(dist.Add(st.CP, st.Part, a.Levels))
		for _, kind := range stats.Kinds {
			require.NoError(acc.ObserveKind(st, kind, g, a.Levels))
		}
	}
	tab, err := acc.Finalize()
	require.NoError(err)
	return &Model{Levels: tab, CpRanges: cps.Finalize(), Histogram: dist.Finalize()}
}

func encode(t *testing.T, g *dag.TaskGraph) string {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(g)
	require.NoError(t, err)
	return string(b)
}

func TestDeterministic(t *testing.T) {
	m := learn(t)
	for _, mode := range []Mode{Increasing, Decreasing, Other} {
		s1 := New(m, 77)
		s2 := New(m, 77)
		for i := 0; i < 5; i++ {
			g1, err := s1.GenerateInRange(3, 5, mode)
			require.NoError(t, err)
			g2, err := s2.GenerateInRange(3, 5, mode)
			require.NoError(t, err)
			if diff := cmp.Diff(encode(t, g1), encode(t, g2)); diff != "" {
				t.Fatalf("%v run %d differs (-first +second):\n%s", mode, i, diff)
			}
		}
	}
}

func TestGenerateShape(t *testing.T) {
	m := learn(t)
	s := New(m, 3)

	for _, mode := range []Mode{Increasing, Decreasing, Other} {
		for _, n := range []int{4, 9, 14} {
			g, err := s.Generate(4, n, mode)
			require.NoError(t, err, "%v n=%d", mode, n)
			require.Equal(t, n, g.Len())

			a, err := analyzer.Analyze(g)
			require.NoError(t, err)
			require.Equal(t, 4, a.CriticalPath, "%v n=%d", mode, n)

			for i := 0; i < g.Len(); i++ {
				task := g.Node(i)
				require.Equal(t, fmt.Sprintf("task_%d", i), task.Name)
				require.GreaterOrEqual(t, task.InstanceCnt, uint64(1))
				require.LessOrEqual(t, task.InstanceCnt, uint64(dag.MaxInstanceCount))
				if n > 1 && len(g.Parents(i)) == 0 && len(g.Children(i)) == 0 {
					t.Fatalf("%v: task %d is isolated", mode, i)
				}
			}
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	m := learn(t)
	s := New(m, 1)

	_, err := s.Generate(1, 5, Other)
	require.True(t, errors.Is(err, ErrBadCriticalPath))
	_, err = s.Generate(4, 3, Other)
	require.True(t, errors.Is(err, ErrBadNodeCount))
	_, err = s.Generate(9, 20, Other)
	require.True(t, errors.Is(err, stats.ErrUnknownCP))
	_, err = s.GenerateInRange(8, 9, Increasing)
	require.True(t, errors.Is(err, ErrNoNodeCount))
}

func TestModelRoundTrip(t *testing.T) {
	m := learn(t)
	dir := t.TempDir()
	require.NoError(t, m.Save(dir))
	loaded, err := LoadModel(dir)
	require.NoError(t, err)

	g1, err := New(m, 9).Generate(4, 11, Other)
	require.NoError(t, err)
	g2, err := New(loaded, 9).Generate(4, 11, Other)
	require.NoError(t, err)
	require.Equal(t, encode(t, g1), encode(t, g2))
}

func TestModeFor(t *testing.T) {
	require.Equal(t, Increasing, ModeFor(config.TreeIncr))
	require.Equal(t, Decreasing, ModeFor(config.TreeDecr))
	require.Equal(t, Other, ModeFor(config.Other))
}
