package dag

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Collection maps job names to their task graphs.
type Collection map[string]*TaskGraph

// Jobs returns the job names in sorted order.
func (c Collection) Jobs() []string {
	jobs := maps.Keys(c)
	slices.Sort(jobs)
	return jobs
}

// ReindexAll reindexes every graph that is not dense yet. The first failure is
// returned with the job name attached.
func (c Collection) ReindexAll() error {
	for _, job := range c.Jobs() {
		g := c[job]
		if g.Dense {
			continue
		}
		if err := g.Reindex(); err != nil {
			return errors.Wrapf(err, "job %s", job)
		}
	}
	return nil
}

func LoadCollection(path string) (Collection, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read collection")
	}
	c := make(Collection)
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrapf(err, "decode collection %s", path)
	}
	return c, nil
}

func (c Collection) Save(path string) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return writeFile(path, b)
}

func LoadTaskGraph(path string) (*TaskGraph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read task graph")
	}
	g := New()
	if err := json.Unmarshal(b, g); err != nil {
		return nil, errors.Wrapf(err, "decode task graph %s", path)
	}
	return g, nil
}

func SaveTaskGraph(path string, g *TaskGraph) error {
	b, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return writeFile(path, b)
}

func writeFile(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
