package dag

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

var (
	ErrBadTaskName        = errors.New("task name carries no task number")
	ErrDuplicateTask      = errors.New("task number used twice")
	ErrDanglingDependence = errors.New("dependence refers to a missing task")
	ErrDanglingEdge       = errors.New("edge endpoint out of range")
	ErrAlreadyReindexed   = errors.New("graph already reindexed")
)

// TaskNumber extracts the 1-based task number that follows the alphabetic
// prefix of a task name, e.g. "task12" -> 12.
func TaskNumber(name string) (int, error) {
	digits := strings.TrimLeftFunc(name, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, errors.Wrapf(ErrBadTaskName, "%q", name)
	}
	return n, nil
}

// Reindex renumbers nodes so that the node index of a task is its task number
// minus one, and rewrites Dependences from 1-based task numbers to node indices.
// It must run once, before any traversal of an ingested graph.
func (g *TaskGraph) Reindex() error {
	if g.Dense {
		return ErrAlreadyReindexed
	}

	n := len(g.Nodes)
	order := make([]int, n) // new index -> old index
	newIdx := make([]int, n)
	for i := range order {
		order[i] = -1
	}

	for i := range g.Nodes {
		num, err := TaskNumber(g.Nodes[i].Name)
		if err != nil {
			return err
		}
		if num > n {
			return errors.Wrapf(ErrBadTaskName, "%q: task number %d exceeds %d tasks", g.Nodes[i].Name, num, n)
		}
		if order[num-1] != -1 {
			return errors.Wrapf(ErrDuplicateTask, "%q", g.Nodes[i].Name)
		}
		order[num-1] = i
		newIdx[i] = num - 1
	}

	r := New()
	r.Dense = true
	for _, old := range order {
		t := g.Nodes[old]
		deps := make([]int, 0, len(t.Dependences))
		for _, d := range t.Dependences {
			if d < 1 || d > n {
				return errors.Wrapf(ErrDanglingDependence, "%q depends on task %d", t.Name, d)
			}
			deps = append(deps, d-1)
		}
		t.Dependences = deps
		r.AddNode(t)
	}
	for _, e := range g.Edges {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return errors.Wrapf(ErrDanglingEdge, "edge %d -> %d", e.From, e.To)
		}
		r.AddEdge(newIdx[e.From], newIdx[e.To], e.Weight)
	}

	*g = *r
	return nil
}
