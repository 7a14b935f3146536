// Package pipeline runs the batch steps of dagen over the directories named by
// a config.Config:
//
//	classify  input collection -> by-type collections
//	learn     by-type collections -> statistics and example task graphs
//	generate  statistics -> synthesized task graphs
//	expand    task graphs -> instance graphs and simulator workflows
//	report    feature measures of learned or synthesized graphs
//
// Every step fails on the first I/O error; graphs that cannot be analysed are
// skipped with a warning.
package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	config "github.com/Vincent-lau/dagen/internal/configs"
	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/Vincent-lau/dagen/internal/metrics"
	"github.com/Vincent-lau/dagen/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

var PipelineLogger = log.WithFields(log.Fields{"prefix": "pipeline"})

// timed records the latency and host CPU load of step when the returned func
// runs. CPU load is left out on hosts without procfs.
func timed(step string) func() {
	start := time.Now()
	before, cpuErr := util.ReadCPU()
	return func() {
		elapsed := time.Since(start)
		metrics.StepLatency.WithLabelValues(step).Observe(float64(elapsed.Milliseconds()))
		fields := log.Fields{
			"step":    step,
			"elapsed": elapsed,
		}
		if cpuErr == nil {
			if after, err := util.ReadCPU(); err == nil {
				busy := after.BusySince(before)
				metrics.StepHostCPU.WithLabelValues(step).Set(busy)
				fields["host_cpu"] = busy
			}
		}
		PipelineLogger.WithFields(fields).Info("step finished")
	}
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewSource(seed))
}

// typeFiles lists the by-type collections of the configured graph type in
// name order.
func typeFiles(cfg *config.Config) ([]string, error) {
	entries, err := os.ReadDir(cfg.ByTypeDir)
	if err != nil {
		return nil, errors.Wrap(err, "read by-type directory")
	}
	files := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), cfg.GraphType.String()) {
			continue
		}
		files = append(files, filepath.Join(cfg.ByTypeDir, e.Name()))
	}
	return files, nil
}

// loadReindexed reads a collection and reindexes the graphs that still carry
// trace indices.
func loadReindexed(path string) (dag.Collection, error) {
	c, err := dag.LoadCollection(path)
	if err != nil {
		return nil, err
	}
	if err := c.ReindexAll(); err != nil {
		return nil, errors.Wrapf(err, "reindex %s", path)
	}
	return c, nil
}

// saveTask writes g as base.json and base.dot.
func saveTask(base string, g *dag.TaskGraph) error {
	if err := dag.SaveTaskGraph(base+".json", g); err != nil {
		return err
	}
	return g.SaveDOT(base + ".dot")
}

// taskFiles lists the task graph JSON files of the configured tasks directory.
func taskFiles(cfg *config.Config) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(cfg.TasksDir(), "*.json"))
	if err != nil {
		return nil, errors.Wrap(err, "list task graphs")
	}
	return paths, nil
}
