package analyzer

import (
	"github.com/Vincent-lau/dagen/internal/dag"
)

type Shape int

const (
	// Other is any general DAG.
	Other Shape = iota
	// Tree graphs only fan out: every node has at most one parent.
	Tree
	// ReverseTree graphs only fan in: every node has at most one child.
	ReverseTree
	// Chain graphs are both. They carry no structural information and are
	// dropped before learning.
	Chain
)

func (s Shape) String() string {
	switch s {
	case Other:
		return "other"
	case Tree:
		return "tree_incr"
	case ReverseTree:
		return "tree_decr"
	case Chain:
		return "chain"
	default:
		panic("unknown shape")
	}
}

// ClassifyShape reports whether g is a chain, a tree, a reverse tree or none of
// them. A tree must also be acyclic, so that a walk from its sources reaches
// every node exactly once.
func ClassifyShape(g *dag.TaskGraph) Shape {
	fanIn, fanOut := false, false
	for i := 0; i < g.Len(); i++ {
		if len(g.Parents(i)) > 1 || len(g.Node(i).Dependences) > 1 {
			fanIn = true
		}
		if len(g.Children(i)) > 1 {
			fanOut = true
		}
	}

	switch {
	case !fanIn && !fanOut:
		return Chain
	case !fanIn:
		if _, cyclic := DetectCycleAndDepth(g); !cyclic {
			return Tree
		}
		return Other
	case !fanOut:
		return ReverseTree
	default:
		return Other
	}
}
