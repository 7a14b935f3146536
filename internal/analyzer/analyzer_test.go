package analyzer

import (
	"fmt"
	"testing"

	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func load(t *testing.T, name string) *dag.TaskGraph {
	t.Helper()
	g, err := dag.ReadAdjacencyMatrix("testdata/" + name)
	require.NoError(t, err)
	return g
}

func TestDepthAndLevels(t *testing.T) {
	require := require.New(t)

	g := load(t, "diamond.txt")
	depth, cyclic := DetectCycleAndDepth(g)
	require.False(cyclic)
	require.Equal([]int{4, 3, 3, 2, 1, 1}, depth)

	levels, err := ComputeLevels(g)
	require.NoError(err)
	require.Equal([]int{0, 1, 1, 2, 3, 1}, levels)

	a, err := Analyze(g)
	require.NoError(err)
	require.Equal(4, a.CriticalPath)
	require.Equal(1, a.Part)
	require.Equal(Other, a.Shape)
}

func TestPullDown(t *testing.T) {
	require := require.New(t)

	g := load(t, "pulldown.txt")
	levels, err := ComputeLevels(g)
	require.NoError(err)
	// source 4 has a single child at level 3 and is pulled down next to it
	require.Equal([]int{0, 1, 2, 3, 2}, levels)

	a, err := Analyze(g)
	require.NoError(err)
	require.Equal([]int{4, 3, 2, 1, 2}, a.Depth)
	require.Equal(ReverseTree, a.Shape)
}

func TestCycle(t *testing.T) {
	require := require.New(t)

	g := load(t, "cycle.txt")
	_, cyclic := DetectCycleAndDepth(g)
	require.True(cyclic)

	_, err := ComputeLevels(g)
	require.True(errors.Is(err, ErrLevelsIncomplete))

	_, err = Analyze(g)
	require.True(errors.Is(err, ErrCycle))
}

func TestLevelsIncomplete(t *testing.T) {
	g := dag.New()
	g.AddNode(dag.Task{Name: "task1"})
	// dependence recorded without a matching edge
	g.AddNode(dag.Task{Name: "task2", Dependences: []int{0}})

	_, err := ComputeLevels(g)
	require.True(t, errors.Is(err, ErrLevelsIncomplete))
}

func TestEmpty(t *testing.T) {
	_, err := Analyze(dag.New())
	require.True(t, errors.Is(err, ErrEmptyGraph))
}

func TestClassifyShape(t *testing.T) {
	build := func(n int, edges ...[2]int) *dag.TaskGraph {
		g := dag.New()
		for i := 0; i < n; i++ {
			g.AddNode(dag.Task{Name: fmt.Sprintf("task%d", i+1)})
		}
		for _, e := range edges {
			g.AddDependency(e[1], e[0])
		}
		return g
	}

	tests := []struct {
		name string
		g    *dag.TaskGraph
		want Shape
	}{
		{"single", build(1), Chain},
		{"path", build(4, [2]int{0, 1}, [2]int{1, 2}, [2]int{2, 3}), Chain},
		{"tree", build(4, [2]int{0, 1}, [2]int{0, 2}, [2]int{1, 3}), Tree},
		{"reverse tree", build(4, [2]int{0, 2}, [2]int{1, 2}, [2]int{2, 3}), ReverseTree},
		{"diamond", build(4, [2]int{0, 1}, [2]int{0, 2}, [2]int{1, 3}, [2]int{2, 3}), Other},
	}
	for _, tt := range tests {
		if got := ClassifyShape(tt.g); got != tt.want {
			t.Fatalf(`%s: ClassifyShape() = %v, want %v`, tt.name, got, tt.want)
		}
	}

	if Tree.String() != "tree_incr" || ReverseTree.String() != "tree_decr" || Other.String() != "other" {
		t.Fatalf("unexpected shape names")
	}
}

// randomDAG draws a graph whose edges all point from a lower to a higher index.
func randomDAG(t *rapid.T) *dag.TaskGraph {
	n := rapid.IntRange(1, 25).Draw(t, "n")
	g := dag.New()
	for i := 0; i < n; i++ {
		g.AddNode(dag.Task{Name: fmt.Sprintf("task%d", i+1), Dependences: make([]int, 0)})
	}
	cells := rapid.SliceOfN(rapid.IntRange(0, n*n-1), 0, 3*n).Draw(t, "edges")
	seen := make(map[int]bool)
	for _, c := range cells {
		from, to := c/n, c%n
		if from < to && !seen[c] {
			seen[c] = true
			g.AddDependency(to, from)
		}
	}
	return g
}

func TestLevelsRespectEdges(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := randomDAG(t)
		levels, err := ComputeLevels(g)
		if err != nil {
			t.Fatalf("ComputeLevels: %v", err)
		}
		for _, e := range g.Edges {
			if levels[e.From] >= levels[e.To] {
				t.Fatalf("level[%d] = %d, level[%d] = %d", e.From, levels[e.From], e.To, levels[e.To])
			}
		}

		a, err := Analyze(g)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		for _, l := range a.Levels {
			if l < 0 || l >= a.CriticalPath {
				t.Fatalf("level %d outside [0, %d)", l, a.CriticalPath)
			}
		}
	})
}

func TestDepthRecurrence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := randomDAG(t)
		depth, cyclic := DetectCycleAndDepth(g)
		if cyclic {
			t.Fatalf("acyclic graph reported cyclic")
		}
		for u := 0; u < g.Len(); u++ {
			want := 1
			for _, v := range g.Children(u) {
				want = max(want, depth[v]+1)
			}
			if depth[u] != want {
				t.Fatalf("depth[%d] = %d, want %d", u, depth[u], want)
			}
		}
	})
}

func TestBackEdgeDetected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := randomDAG(t)
		if g.EdgeCount() == 0 {
			return
		}
		e := g.Edges[rapid.IntRange(0, g.EdgeCount()-1).Draw(t, "edge")]
		g.AddEdge(e.To, e.From, 1)

		if _, cyclic := DetectCycleAndDepth(g); !cyclic {
			t.Fatalf("back edge %d -> %d not detected", e.To, e.From)
		}
	})
}
