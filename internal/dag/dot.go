package dag

import (
	"bytes"
	"io"
	"math"

	"github.com/Vincent-lau/dagen/internal/render"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// HeavyScore is the harmonic mean of a task's instance count and work.
func HeavyScore(instances, work float64) float64 {
	if instances+work == 0 {
		return 0
	}
	return 2 * instances * work / (instances + work)
}

// HeavyColor maps a heavy score onto a blue (light) to red (heavy) scale,
// saturating at a log2 score of 10.
func HeavyColor(score float64) string {
	red := 0.0
	if score > 1 {
		red = math.Min(math.Log2(score)/10, 1)
	}
	return colorful.Color{R: red, G: 0, B: 1 - red}.Hex()
}

// WriteDOT renders the task view of g: node size is its flops, colour its heavy
// score and edge size the edge weight.
func (g *TaskGraph) WriteDOT(w io.Writer) error {
	return render.DOT(w, dotView{g})
}

// SaveDOT writes the DOT rendering of g to path, creating its directory.
func (g *TaskGraph) SaveDOT(path string) error {
	var buf bytes.Buffer
	if err := g.WriteDOT(&buf); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}

type dotView struct {
	g *TaskGraph
}

func (v dotView) NodeCount() int { return v.g.Len() }
func (v dotView) NodeName(i int) string { return v.g.Nodes[i].Name }
func (v dotView) NodeSize(i int) float64 { return v.g.Nodes[i].Flops }
func (v dotView) NodeColor(i int) string {
	t := &v.g.Nodes[i]
	return HeavyColor(HeavyScore(float64(t.InstanceCnt), t.Flops))
}

func (v dotView) Arcs(i int) []render.Arc {
	arcs := make([]render.Arc, 0, len(v.g.out[i]))
	for _, e := range v.g.Edges {
		if e.From == i {
			arcs = append(arcs, render.Arc{To: e.To, Size: float64(e.Weight)})
		}
	}
	return arcs
}
