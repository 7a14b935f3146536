// Package analyzer computes the structural properties of a task graph that the
// statistics are stratified by: per-node depth and level, the critical path
// length and the overall shape.
package analyzer

import (
	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/gammazero/deque"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	ErrCycle            = errors.New("graph contains a cycle")
	ErrLevelsIncomplete = errors.New("levels were not calculated for all nodes")
	ErrEmptyGraph       = errors.New("graph has no nodes")
)

var AnLogger = log.WithFields(log.Fields{"prefix": "analyzer"})

type colour uint8

const (
	unvisited colour = iota
	onStack
	finished
)

// frame is one pending call of a depth-first walk: the node and the position of
// the next child to visit.
type frame struct {
	u    int
	next int
}

// DetectCycleAndDepth walks g depth-first from every source in index order, and
// then from every node still unvisited, so components without a source are
// covered too. depth[i] is the number of nodes on the longest path from i to a
// sink; sinks have depth 1. Reaching a node that is still on the stack marks the
// graph cyclic; the walk carries on so every node gets a depth.
func DetectCycleAndDepth(g *dag.TaskGraph) (depth []int, cyclic bool) {
	n := g.Len()
	depth = make([]int, n)
	state := make([]colour, n)

	var stack deque.Deque[*frame]
	walk := func(root int) {
		if state[root] != unvisited {
			return
		}
		state[root] = onStack
		stack.PushBack(&frame{u: root})

		for stack.Len() > 0 {
			f := stack.Back()
			children := g.Children(f.u)
			if f.next < len(children) {
				v := children[f.next]
				f.next++
				switch state[v] {
				case onStack:
					cyclic = true
				case unvisited:
					state[v] = onStack
					stack.PushBack(&frame{u: v})
				}
				continue
			}

			stack.PopBack()
			d := 1
			for _, v := range children {
				d = max(d, depth[v]+1)
			}
			depth[f.u] = d
			state[f.u] = finished
		}
	}

	for _, s := range g.Sources() {
		walk(s)
	}
	for i := 0; i < n; i++ {
		walk(i)
	}

	if cyclic {
		AnLogger.WithFields(log.Fields{
			"nodes": n,
			"edges": g.EdgeCount(),
		}).Debug("cycle found")
	}
	return depth, cyclic
}

// CriticalPath is the number of nodes on the longest path of the graph.
func CriticalPath(depth []int) int {
	cp := 0
	for _, d := range depth {
		cp = max(cp, d)
	}
	return cp
}

// ComputeLevels assigns every node of an acyclic graph its level.
//
// The first pass starts at every source and pushes level[v] = max(level[v],
// level[u]+1) along edges, descending into a child only once all of its recorded
// dependences have contributed. If any countdown is left non-zero the graph has
// nodes unreachable from sources or a cycle and ErrLevelsIncomplete is returned.
//
// The second pass walks from the sources again and, in post order, pulls a node
// with fewer dependences than children down to one below its lowest child.
func ComputeLevels(g *dag.TaskGraph) ([]int, error) {
	n := g.Len()
	levels := make([]int, n)
	countdown := make([]int, n)
	for i := 0; i < n; i++ {
		countdown[i] = len(g.Node(i).Dependences)
	}

	sources := g.Sources()
	var stack deque.Deque[*frame]
	for _, s := range sources {
		stack.PushBack(&frame{u: s})
		for stack.Len() > 0 {
			f := stack.Back()
			children := g.Children(f.u)
			if f.next == len(children) {
				stack.PopBack()
				continue
			}
			v := children[f.next]
			f.next++

			countdown[v]--
			levels[v] = max(levels[v], levels[f.u]+1)
			if countdown[v] == 0 {
				stack.PushBack(&frame{u: v})
			}
		}
	}
	for i, c := range countdown {
		if c != 0 {
			return nil, errors.Wrapf(ErrLevelsIncomplete, "node %d (%s) has %d unresolved dependences", i, g.Node(i).Name, c)
		}
	}

	used := make([]bool, n)
	for _, s := range sources {
		if used[s] {
			continue
		}
		used[s] = true
		stack.PushBack(&frame{u: s})
		for stack.Len() > 0 {
			f := stack.Back()
			children := g.Children(f.u)
			if f.next < len(children) {
				v := children[f.next]
				f.next++
				if !used[v] {
					used[v] = true
					stack.PushBack(&frame{u: v})
				}
				continue
			}

			stack.PopBack()
			if len(children) > 0 && len(g.Node(f.u).Dependences) < len(children) {
				lowest := levels[children[0]]
				for _, v := range children[1:] {
					lowest = min(lowest, levels[v])
				}
				levels[f.u] = lowest - 1
			}
		}
	}
	return levels, nil
}

// Analysis holds the per-graph results the statistics are keyed on.
type Analysis struct {
	Depth  []int
	Levels []int
	// CriticalPath is the number of nodes on the longest path.
	CriticalPath int
	// Part is the size bucket, node count / critical path.
	Part  int
	Shape Shape
}

// Analyze runs the full structural analysis of a reindexed graph.
func Analyze(g *dag.TaskGraph) (*Analysis, error) {
	if g.Len() == 0 {
		return nil, ErrEmptyGraph
	}
	depth, cyclic := DetectCycleAndDepth(g)
	if cyclic {
		return nil, ErrCycle
	}
	levels, err := ComputeLevels(g)
	if err != nil {
		return nil, err
	}
	cp := CriticalPath(depth)
	return &Analysis{
		Depth:        depth,
		Levels:       levels,
		CriticalPath: cp,
		Part:         g.Len() / cp,
		Shape:        ClassifyShape(g),
	}, nil
}
