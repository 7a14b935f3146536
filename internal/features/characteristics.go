package features

import (
	"fmt"
	"io"
	"math"

	"github.com/Vincent-lau/dagen/internal/instance"
	"github.com/gammazero/deque"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

var ErrCyclicInstances = errors.New("instance graph has a cycle")

// Characteristics describe an instance graph as a scheduling workload.
type Characteristics struct {
	Tasks int
	// Depth is the number of instances on the longest path.
	Depth int
	// Width is the largest number of instances sharing a level, a level
	// being the longest distance from a source.
	Width int
	// Parallelism is the total work divided by the work on the heaviest path.
	Parallelism float64
	MaxWork     float64
	MaxData     float64
}

// Characterize walks g in topological order. An empty graph has zero
// characteristics.
func Characterize(g *instance.Graph) (Characteristics, error) {
	n := g.Len()
	if n == 0 {
		return Characteristics{}, nil
	}

	indeg := make([]int, n)
	for _, e := range g.Edges {
		indeg[e.To]++
	}
	var q deque.Deque[int]
	for i, d := range indeg {
		if d == 0 {
			q.PushBack(i)
		}
	}

	level := make([]int, n)
	// heaviest path work ending at each instance
	path := make([]float64, n)
	work := make([]float64, n)
	seen := 0
	c := Characteristics{Tasks: n}

	for q.Len() > 0 {
		u := q.PopFront()
		seen++
		w := g.Nodes[u].Flops
		work[u] = w
		path[u] += w
		c.MaxWork = max(c.MaxWork, w)
		c.Depth = max(c.Depth, level[u]+1)

		for _, e := range g.Out(u) {
			level[e.To] = max(level[e.To], level[u]+1)
			path[e.To] = max(path[e.To], path[u])
			c.MaxData = max(c.MaxData, e.Weight)
			if indeg[e.To]--; indeg[e.To] == 0 {
				q.PushBack(e.To)
			}
		}
	}
	if seen != n {
		return Characteristics{}, errors.Wrapf(ErrCyclicInstances, "%d of %d instances ordered", seen, n)
	}

	perLevel := make([]int, c.Depth)
	for i := 0; i < n; i++ {
		perLevel[level[i]]++
	}
	for _, cnt := range perLevel {
		c.Width = max(c.Width, cnt)
	}
	if heaviest := floats.Max(path); heaviest > 0 {
		c.Parallelism = floats.Sum(work) / heaviest
	}
	return c, nil
}

// DepthRange is an inclusive band of instance graph depths.
type DepthRange struct {
	Lo, Hi int
}

var DepthRanges = []DepthRange{{2, 4}, {5, 7}, {8, 10}, {11, 14}, {15, 18}, {19, 24}}

// RangeSummary bounds the characteristics of the graphs whose depth falls in
// a range.
type RangeSummary struct {
	Range    DepthRange
	Count    int
	Min, Max Characteristics
}

// Summarizer folds characteristics into per depth range minima and maxima.
type Summarizer struct {
	rows []RangeSummary
}

func NewSummarizer() *Summarizer {
	s := &Summarizer{rows: make([]RangeSummary, len(DepthRanges))}
	for i, r := range DepthRanges {
		s.rows[i] = RangeSummary{
			Range: r,
			Min: Characteristics{
				Tasks:       math.MaxInt,
				Depth:       r.Lo,
				Width:       math.MaxInt,
				Parallelism: math.Inf(1),
				MaxWork:     math.Inf(1),
				MaxData:     math.Inf(1),
			},
			Max: Characteristics{Depth: r.Hi},
		}
	}
	return s
}

// Add records c in the range containing its depth. Depths outside every range
// are dropped and reported as false.
func (s *Summarizer) Add(c Characteristics) bool {
	for i := range s.rows {
		row := &s.rows[i]
		if c.Depth < row.Range.Lo || c.Depth > row.Range.Hi {
			continue
		}
		row.Count++
		row.Min.Tasks = min(row.Min.Tasks, c.Tasks)
		row.Min.Width = min(row.Min.Width, c.Width)
		row.Min.Parallelism = min(row.Min.Parallelism, c.Parallelism)
		row.Min.MaxWork = min(row.Min.MaxWork, c.MaxWork)
		row.Min.MaxData = min(row.Min.MaxData, c.MaxData)

		row.Max.Tasks = max(row.Max.Tasks, c.Tasks)
		row.Max.Width = max(row.Max.Width, c.Width)
		row.Max.Parallelism = max(row.Max.Parallelism, c.Parallelism)
		row.Max.MaxWork = max(row.Max.MaxWork, c.MaxWork)
		row.Max.MaxData = max(row.Max.MaxData, c.MaxData)
		return true
	}
	return false
}

// Rows returns the ranges that received at least one graph.
func (s *Summarizer) Rows() []RangeSummary {
	rows := make([]RangeSummary, 0, len(s.rows))
	for _, r := range s.rows {
		if r.Count > 0 {
			rows = append(rows, r)
		}
	}
	return rows
}

// Write prints one line per populated range:
//
//	label,tasks,depth,width,parallelism,max_work,max_data
//
// where every column is a min-max pair.
func (s *Summarizer) Write(w io.Writer, label string) error {
	for _, r := range s.Rows() {
		_, err := fmt.Fprintf(w, "%s,%d-%d,%d-%d,%d-%d,%g-%g,%g-%g,%g-%g\n",
			label,
			r.Min.Tasks, r.Max.Tasks,
			r.Min.Depth, r.Max.Depth,
			r.Min.Width, r.Max.Width,
			r.Min.Parallelism, r.Max.Parallelism,
			r.Min.MaxWork, r.Max.MaxWork,
			r.Min.MaxData, r.Max.MaxData,
		)
		if err != nil {
			return errors.Wrap(err, "write characteristics")
		}
	}
	return nil
}
