package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Vincent-lau/dagen/internal/analyzer"
	config "github.com/Vincent-lau/dagen/internal/configs"
	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/Vincent-lau/dagen/internal/metrics"
	"github.com/Vincent-lau/dagen/internal/stats"
	"github.com/Vincent-lau/dagen/internal/synth"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// CpRange is an inclusive band of critical path lengths.
type CpRange struct {
	Lo, Hi int
}

func (r CpRange) Contains(cp int) bool {
	return r.Lo <= cp && cp <= r.Hi
}

// SampleRanges are the critical path bands example graphs are kept for.
var SampleRanges = []CpRange{{2, 4}, {5, 7}, {8, 10}, {11, 14}, {19, 24}}

func skipReason(err error) string {
	switch {
	case errors.Is(err, analyzer.ErrCycle):
		return metrics.ReasonCycle
	case errors.Is(err, analyzer.ErrLevelsIncomplete):
		return metrics.ReasonLevels
	case errors.Is(err, analyzer.ErrEmptyGraph):
		return metrics.ReasonEmpty
	default:
		return metrics.ReasonStatistics
	}
}

// learner feeds analysed graphs into the three statistic models.
type learner struct {
	cps  *stats.CpRange
	dist *stats.LevelDistribution
	acc  *stats.Accumulator
}

func newLearner() *learner {
	return &learner{
		cps:  stats.NewCpRange(),
		dist: stats.NewLevelDistribution(),
		acc:  stats.NewAccumulator(),
	}
}

func (l *learner) add(g *dag.TaskGraph, a *analyzer.Analysis) error {
	st := stats.Stratum{CP: a.CriticalPath, Part: a.Part}
	if err := l.cps.Add(st.CP, g.Len()); err != nil {
		return err
	}
	if err := l.dist.Add(st.CP, st.Part, a.Levels); err != nil {
		return err
	}

	var eg errgroup.Group
	for _, k := range stats.Kinds {
		k := k
		eg.Go(func() error {
			return l.acc.ObserveKind(st, k, g, a.Levels)
		})
	}
	return eg.Wait()
}

func (l *learner) model() (*synth.Model, error) {
	table, err := l.acc.Finalize()
	if err != nil {
		return nil, err
	}
	return &synth.Model{
		Levels:    table,
		CpRanges:  l.cps.Finalize(),
		Histogram: l.dist.Finalize(),
	}, nil
}

// Learn builds the statistics of the configured graph type from every
// matching by-type collection and writes them to the stats directory. Up to
// SampleCount graphs per critical path band and collection are kept in the
// tasks directory as <lo>_<hi>_<job>.json and .dot.
func Learn(cfg *config.Config) error {
	defer timed("learn")()

	files, err := typeFiles(cfg)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(cfg.TasksDir()); err != nil {
		return errors.Wrap(err, "clear tasks directory")
	}

	rng := newRand(cfg.Seed)
	l := newLearner()
	for _, path := range files {
		c, err := loadReindexed(path)
		if err != nil {
			return err
		}

		examples := make([][]string, len(SampleRanges))
		for _, job := range c.Jobs() {
			g := c[job]
			a, err := analyzer.Analyze(g)
			if err != nil {
				PipelineLogger.WithFields(log.Fields{
					"job":   job,
					"error": err,
				}).Warn("graph skipped")
				metrics.GraphsSkipped.WithLabelValues(skipReason(err)).Inc()
				continue
			}
			if err := l.add(g, a); err != nil {
				return errors.Wrapf(err, "job %s", job)
			}
			metrics.GraphsAnalysed.Inc()
			metrics.NodeCount.WithLabelValues("learned").Observe(float64(g.Len()))

			for i, r := range SampleRanges {
				if r.Contains(a.CriticalPath) {
					examples[i] = append(examples[i], job)
				}
			}
		}

		for i, r := range SampleRanges {
			jobs := examples[i]
			rng.Shuffle(len(jobs), func(a, b int) {
				jobs[a], jobs[b] = jobs[b], jobs[a]
			})
			for _, job := range jobs[:min(cfg.SampleCount, len(jobs))] {
				base := filepath.Join(cfg.TasksDir(), fmt.Sprintf("%d_%d_%s", r.Lo, r.Hi, job))
				if err := saveTask(base, c[job].Condense()); err != nil {
					return err
				}
			}
		}
		PipelineLogger.WithFields(log.Fields{
			"file":   path,
			"graphs": len(c),
		}).Info("collection learned")
	}

	m, err := l.model()
	if err != nil {
		return err
	}
	return m.Save(cfg.StatsDir())
}
