package dag

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// MaxInstanceCount caps the instance count of a task in the task view of a graph.
const MaxInstanceCount = 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Instance is one observed execution of a task.
type Instance struct {
	Time       uint64  `json:"time"`
	CpuAvg     float64 `json:"cpu_avg"`
	CpuDiffMax float64 `json:"cpu_diff_max"`
}

// Task is a node of a TaskGraph. Dependences holds the indices of its parents.
type Task struct {
	Name        string     `json:"name"`
	InstanceCnt uint64     `json:"instance_cnt"`
	StartTime   uint64     `json:"start_time"`
	EndTime     uint64     `json:"end_time"`
	Dependences []int      `json:"dependences"`
	Instances   []Instance `json:"instances,omitempty"`
	Flops       float64    `json:"flops,omitempty"`
}

func (t *Task) Duration() uint64 {
	if t.EndTime < t.StartTime {
		return 0
	}
	return t.EndTime - t.StartTime
}

type Edge struct {
	From   int
	To     int
	Weight uint64
}

func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]uint64{uint64(e.From), uint64(e.To), e.Weight})
}

func (e *Edge) UnmarshalJSON(b []byte) error {
	var raw [3]uint64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.From, e.To, e.Weight = int(raw[0]), int(raw[1]), raw[2]
	return nil
}

// TaskGraph is a directed dependency graph of tasks. Node indices are stable for
// the lifetime of the graph; adjacency lists keep edge insertion order.
type TaskGraph struct {
	Nodes []Task `json:"nodes"`
	Edges []Edge `json:"edges"`
	// Dense is set once node indices are the 0-based task numbers.
	Dense bool `json:"reindexed,omitempty"`

	out [][]int
	in  [][]int
}

func New() *TaskGraph {
	return &TaskGraph{
		Nodes: make([]Task, 0),
		Edges: make([]Edge, 0),
	}
}

func (g *TaskGraph) AddNode(t Task) int {
	g.Nodes = append(g.Nodes, t)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return len(g.Nodes) - 1
}

// AddEdge adds a weighted edge from -> to without touching Dependences.
func (g *TaskGraph) AddEdge(from, to int, weight uint64) {
	if from < 0 || from >= len(g.Nodes) || to < 0 || to >= len(g.Nodes) {
		panic(fmt.Sprintf("edge %d -> %d out of range for %d nodes", from, to, len(g.Nodes)))
	}
	g.Edges = append(g.Edges, Edge{From: from, To: to, Weight: weight})
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
}

// AddDependency makes parent a predecessor of child with a unit edge and records
// it in the child's Dependences.
func (g *TaskGraph) AddDependency(child, parent int) {
	g.AddEdge(parent, child, 1)
	g.Nodes[child].Dependences = append(g.Nodes[child].Dependences, parent)
}

func (g *TaskGraph) Len() int {
	return len(g.Nodes)
}

func (g *TaskGraph) EdgeCount() int {
	return len(g.Edges)
}

func (g *TaskGraph) Node(i int) *Task {
	return &g.Nodes[i]
}

func (g *TaskGraph) Children(i int) []int {
	return g.out[i]
}

// Parents returns the predecessors of i as given by the edge list.
func (g *TaskGraph) Parents(i int) []int {
	return g.in[i]
}

// Sources returns, in index order, the nodes without recorded dependences.
func (g *TaskGraph) Sources() []int {
	s := make([]int, 0)
	for i := range g.Nodes {
		if len(g.Nodes[i].Dependences) == 0 {
			s = append(s, i)
		}
	}
	return s
}

// Clone returns a deep copy of g.
func (g *TaskGraph) Clone() *TaskGraph {
	c := New()
	for _, t := range g.Nodes {
		t.Dependences = append([]int(nil), t.Dependences...)
		t.Instances = append([]Instance(nil), t.Instances...)
		c.AddNode(t)
	}
	for _, e := range g.Edges {
		c.AddEdge(e.From, e.To, e.Weight)
	}
	c.Dense = g.Dense
	return c
}

// Condense returns the task view of g: instance counts capped at
// MaxInstanceCount and flops set to the task duration. Per-instance samples are
// dropped.
func (g *TaskGraph) Condense() *TaskGraph {
	c := New()
	for i := range g.Nodes {
		t := &g.Nodes[i]
		c.AddNode(Task{
			Name:        t.Name,
			InstanceCnt: min(t.InstanceCnt, MaxInstanceCount),
			StartTime:   t.StartTime,
			EndTime:     t.EndTime,
			Dependences: append([]int(nil), t.Dependences...),
			Flops:       float64(t.Duration()),
		})
	}
	for _, e := range g.Edges {
		c.AddEdge(e.From, e.To, e.Weight)
	}
	c.Dense = g.Dense
	return c
}

func (g *TaskGraph) UnmarshalJSON(b []byte) error {
	type plain TaskGraph
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.Nodes == nil {
		p.Nodes = make([]Task, 0)
	}
	if p.Edges == nil {
		p.Edges = make([]Edge, 0)
	}
	*g = TaskGraph(p)
	return g.buildAdjacency()
}

func (g *TaskGraph) buildAdjacency() error {
	g.out = make([][]int, len(g.Nodes))
	g.in = make([][]int, len(g.Nodes))
	for _, e := range g.Edges {
		if e.From < 0 || e.From >= len(g.Nodes) || e.To < 0 || e.To >= len(g.Nodes) {
			return errors.Wrapf(ErrDanglingEdge, "edge %d -> %d with %d nodes", e.From, e.To, len(g.Nodes))
		}
		g.out[e.From] = append(g.out[e.From], e.To)
		g.in[e.To] = append(g.in[e.To], e.From)
	}
	return nil
}
