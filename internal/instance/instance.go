// Package instance expands task graphs into instance graphs, the form consumed
// by scheduling simulators.
package instance

import (
	"fmt"
	"io"

	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/Vincent-lau/dagen/internal/render"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxPerTask caps the number of instances a single task expands into.
const MaxPerTask = 40

var ErrBadCCR = errors.New("ccr must be positive")

var InstLogger = log.WithFields(log.Fields{"prefix": "instance"})

// Node is one task instance. Dependencies lists the parent instances in the
// order their edges were added.
type Node struct {
	Name         string
	Flops        float64
	Dependencies []int
}

type Edge struct {
	From   int
	To     int
	Weight float64
}

type Graph struct {
	Nodes []Node
	Edges []Edge

	// out holds indices into Edges
	out [][]int
}

func (g *Graph) Len() int {
	return len(g.Nodes)
}

func (g *Graph) addNode(n Node) int {
	g.Nodes = append(g.Nodes, n)
	g.out = append(g.out, nil)
	return len(g.Nodes) - 1
}

func (g *Graph) addEdge(from, to int, weight float64) {
	g.out[from] = append(g.out[from], len(g.Edges))
	g.Edges = append(g.Edges, Edge{From: from, To: to, Weight: weight})
	g.Nodes[to].Dependencies = append(g.Nodes[to].Dependencies, from)
}

// Out returns the outgoing edges of instance i in insertion order.
func (g *Graph) Out(i int) []Edge {
	edges := make([]Edge, len(g.out[i]))
	for k, e := range g.out[i] {
		edges[k] = g.Edges[e]
	}
	return edges
}

// weight returns the weight of the last edge from -> to.
func (g *Graph) weight(from, to int) float64 {
	w := 0.0
	for _, e := range g.out[from] {
		if g.Edges[e].To == to {
			w = g.Edges[e].Weight
		}
	}
	return w
}

func capped(t *dag.Task) int {
	return int(min(t.InstanceCnt, MaxPerTask))
}

// Expand turns every task of g into its instances and wires them by how the
// instance counts of a task and its parents relate:
//
//   - union: the parents' counts add up to the child's, so each parent feeds
//     its own consecutive slice of the child's instances;
//   - map: a parent with as many instances as the child feeds them one to one;
//   - group by: any other parent feeds every child instance from every one of
//     its instances.
//
// Edges leaving a task weigh flops / ccr scaled by a uniform draw in
// [0.9, 1.1), one draw per task in index order.
func Expand(g *dag.TaskGraph, ccr float64, rng *rand.Rand) (*Graph, error) {
	if ccr <= 0 {
		return nil, errors.Wrapf(ErrBadCCR, "ccr %v", ccr)
	}

	ig := &Graph{
		Nodes: make([]Node, 0),
		Edges: make([]Edge, 0),
	}
	jitter := distuv.Uniform{Min: 0.9, Max: 1.1, Src: rng}
	start := make([]int, g.Len())
	weight := make([]float64, g.Len())

	for i := 0; i < g.Len(); i++ {
		t := g.Node(i)
		start[i] = ig.Len()
		for k := 0; k < capped(t); k++ {
			ig.addNode(Node{
				Name:         fmt.Sprintf("%s_%d", t.Name, k),
				Flops:        t.Flops,
				Dependencies: make([]int, 0),
			})
		}
		weight[i] = t.Flops / ccr * jitter.Rand()
	}

	for i := 0; i < g.Len(); i++ {
		t := g.Node(i)
		cnt := capped(t)
		sum := 0
		for _, p := range t.Dependences {
			sum += capped(g.Node(p))
		}

		if len(t.Dependences) > 0 && sum == cnt {
			child := start[i]
			for _, p := range t.Dependences {
				for k := 0; k < capped(g.Node(p)); k++ {
					ig.addEdge(start[p]+k, child, weight[p])
					child++
				}
			}
			continue
		}

		for _, p := range t.Dependences {
			pc := capped(g.Node(p))
			if pc == cnt {
				for k := 0; k < cnt; k++ {
					ig.addEdge(start[p]+k, start[i]+k, weight[p])
				}
				continue
			}
			for a := 0; a < pc; a++ {
				for b := 0; b < cnt; b++ {
					ig.addEdge(start[p]+a, start[i]+b, weight[p])
				}
			}
		}
	}

	InstLogger.WithFields(log.Fields{
		"tasks":     g.Len(),
		"instances": ig.Len(),
		"edges":     len(ig.Edges),
		"ccr":       ccr,
	}).Debug("task graph expanded")
	return ig, nil
}

// WriteDOT renders g with instance flops as node size and edge weights as
// edge size.
func (g *Graph) WriteDOT(w io.Writer) error {
	return render.DOT(w, dotView{g})
}

type dotView struct {
	g *Graph
}

func (v dotView) NodeCount() int { return v.g.Len() }
func (v dotView) NodeName(i int) string { return v.g.Nodes[i].Name }
func (v dotView) NodeSize(i int) float64 { return v.g.Nodes[i].Flops }
func (v dotView) NodeColor(int) string { return "" }

func (v dotView) Arcs(i int) []render.Arc {
	arcs := make([]render.Arc, 0, len(v.g.out[i]))
	for _, e := range v.g.Out(i) {
		arcs = append(arcs, render.Arc{To: e.To, Size: e.Weight})
	}
	return arcs
}
