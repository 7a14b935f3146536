package instance

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	initInput    = "init"
	resultOutput = "result"
)

// File is a named piece of data exchanged between workflow tasks.
type File struct {
	Name string  `yaml:"name"`
	Size float64 `yaml:"size"`
}

type WorkflowTask struct {
	Name    string   `yaml:"name"`
	Flops   uint64   `yaml:"flops"`
	Memory  uint64   `yaml:"memory"`
	Inputs  []string `yaml:"inputs"`
	Outputs []File   `yaml:"outputs"`
}

// Workflow is the simulator description of an instance graph.
type Workflow struct {
	Inputs []File         `yaml:"inputs"`
	Tasks  []WorkflowTask `yaml:"tasks"`
}

func fileName(from, to string) string {
	return fmt.Sprintf("%s_%s", from, to)
}

func workflowTask(n *Node) WorkflowTask {
	return WorkflowTask{
		Name:    n.Name,
		Flops:   uint64(max(math.Ceil(n.Flops), 1)),
		Memory:  1,
		Inputs:  make([]string, 0),
		Outputs: make([]File, 0),
	}
}

// Workflow lists every instance with the data it reads and writes. Data on an
// edge a -> b is named a_b; sources read the workflow input init and sinks
// write result. The reversed workflow runs the graph backwards: instances are
// listed last first and every edge points the other way.
func (g *Graph) Workflow(reverse bool) *Workflow {
	wf := &Workflow{
		Inputs: []File{{Name: initInput, Size: 0}},
		Tasks:  make([]WorkflowTask, 0, g.Len()),
	}

	for k := 0; k < g.Len(); k++ {
		i := k
		if reverse {
			i = g.Len() - 1 - k
		}
		n := &g.Nodes[i]
		wt := workflowTask(n)

		if !reverse {
			for _, p := range n.Dependencies {
				wt.Inputs = append(wt.Inputs, fileName(g.Nodes[p].Name, n.Name))
			}
			for _, e := range g.Out(i) {
				wt.Outputs = append(wt.Outputs, File{
					Name: fileName(n.Name, g.Nodes[e.To].Name),
					Size: max(e.Weight, 1),
				})
			}
		} else {
			for _, e := range g.Out(i) {
				wt.Inputs = append(wt.Inputs, fileName(g.Nodes[e.To].Name, n.Name))
			}
			for _, p := range n.Dependencies {
				wt.Outputs = append(wt.Outputs, File{
					Name: fileName(n.Name, g.Nodes[p].Name),
					Size: max(g.weight(p, i), 1),
				})
			}
		}

		if len(wt.Inputs) == 0 {
			wt.Inputs = append(wt.Inputs, initInput)
		}
		if len(wt.Outputs) == 0 {
			wt.Outputs = append(wt.Outputs, File{Name: resultOutput, Size: 1})
		}
		wf.Tasks = append(wf.Tasks, wt)
	}
	return wf
}

func (wf *Workflow) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(wf); err != nil {
		return errors.Wrap(err, "encode workflow")
	}
	return enc.Close()
}

// SaveWorkflow writes the workflow of g to path, creating its directory.
func (g *Graph) SaveWorkflow(path string, reverse bool) error {
	return create(path, func(w io.Writer) error {
		return g.Workflow(reverse).Write(w)
	})
}

// SaveDOT writes the DOT rendering of g to path, creating its directory.
func (g *Graph) SaveDOT(path string) error {
	return create(path, g.WriteDOT)
}

func create(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}
