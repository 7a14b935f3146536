// Package features measures structural properties of task graphs and instance
// graphs, used to compare learned graphs against synthesized ones.
package features

import (
	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrUnknownMeasure = errors.New("unknown measure")

// Measure is a per-graph feature. Scalar measures yield one value per graph,
// the others one value per node or per edge.
type Measure int

const (
	Sparsity Measure = iota
	ChainRatio
	InDegree
	OutDegree
	InstanceRatio
	FlopsRatio
)

var Measures = []Measure{Sparsity, ChainRatio, InDegree, OutDegree, InstanceRatio, FlopsRatio}

func (m Measure) String() string {
	switch m {
	case Sparsity:
		return "sparsity"
	case ChainRatio:
		return "chain_ratio"
	case InDegree:
		return "in_deg"
	case OutDegree:
		return "out_deg"
	case InstanceRatio:
		return "ins_ratio"
	case FlopsRatio:
		return "time_ratio"
	default:
		panic("unknown measure")
	}
}

func ParseMeasure(s string) (Measure, error) {
	for _, m := range Measures {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownMeasure, "%q", s)
}

// Of returns the values of m for g.
func (m Measure) Of(g *dag.TaskGraph) []float64 {
	switch m {
	case Sparsity:
		return []float64{GraphSparsity(g)}
	case ChainRatio:
		return []float64{GraphChainRatio(g)}
	case InDegree:
		return InDegrees(g)
	case OutDegree:
		return OutDegrees(g)
	case InstanceRatio:
		return PairwiseInstanceRatios(g)
	case FlopsRatio:
		return PairwiseFlopsRatios(g)
	default:
		panic("unknown measure")
	}
}

// GraphSparsity is the share of possible undirected node pairs joined by an
// edge. Graphs with fewer than two nodes have sparsity 0.
func GraphSparsity(g *dag.TaskGraph) float64 {
	n := float64(g.Len())
	if n < 2 {
		return 0
	}
	return 2 * float64(g.EdgeCount()) / n / (n - 1)
}

func InDegrees(g *dag.TaskGraph) []float64 {
	deg := make([]float64, g.Len())
	for i := range deg {
		deg[i] = float64(len(g.Node(i).Dependences))
	}
	return deg
}

func OutDegrees(g *dag.TaskGraph) []float64 {
	deg := make([]float64, g.Len())
	for i := range deg {
		deg[i] = float64(len(g.Children(i)))
	}
	return deg
}

// GraphChainRatio is the share of nodes with exactly one parent and one child.
func GraphChainRatio(g *dag.TaskGraph) float64 {
	if g.Len() == 0 {
		return 0
	}
	links := 0
	for i := 0; i < g.Len(); i++ {
		if len(g.Children(i)) == 1 && len(g.Node(i).Dependences) == 1 {
			links++
		}
	}
	return float64(links) / float64(g.Len())
}

// PairwiseInstanceRatios lists parent / child instance counts over every
// edge, skipping children without instances.
func PairwiseInstanceRatios(g *dag.TaskGraph) []float64 {
	return pairwise(g, func(t *dag.Task) float64 { return float64(t.InstanceCnt) })
}

// PairwiseFlopsRatios lists parent / child flops over every edge, skipping
// children without work.
func PairwiseFlopsRatios(g *dag.TaskGraph) []float64 {
	return pairwise(g, func(t *dag.Task) float64 { return t.Flops })
}

func pairwise(g *dag.TaskGraph, value func(*dag.Task) float64) []float64 {
	r := make([]float64, 0, g.EdgeCount())
	for i := 0; i < g.Len(); i++ {
		this := value(g.Node(i))
		for _, c := range g.Children(i) {
			child := value(g.Node(c))
			if child == 0 {
				continue
			}
			r = append(r, this/child)
		}
	}
	return r
}

// Summary condenses the values of a measure over many graphs.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

func Summarize(x []float64) Summary {
	switch len(x) {
	case 0:
		return Summary{}
	case 1:
		return Summary{Count: 1, Mean: x[0], Min: x[0], Max: x[0]}
	}
	mean, std := stat.MeanStdDev(x, nil)
	return Summary{
		Count: len(x),
		Mean:  mean,
		Std:   std,
		Min:   floats.Min(x),
		Max:   floats.Max(x),
	}
}
