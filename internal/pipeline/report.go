package pipeline

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strconv"

	config "github.com/Vincent-lau/dagen/internal/configs"
	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/Vincent-lau/dagen/internal/features"
	"github.com/Vincent-lau/dagen/internal/instance"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ReportDir is the directory, inside WorkDir, reports are written to.
const ReportDir = "st"

// reportGraphs returns the task views the report runs over and their label:
// learned graphs of the by-type collections, or the task graphs of the tasks
// directory when ReportGenerated is set.
func reportGraphs(cfg *config.Config) ([]*dag.TaskGraph, string, error) {
	graphs := make([]*dag.TaskGraph, 0)
	if cfg.ReportGenerated {
		paths, err := taskFiles(cfg)
		if err != nil {
			return nil, "", err
		}
		for _, path := range paths {
			g, err := dag.LoadTaskGraph(path)
			if err != nil {
				return nil, "", err
			}
			graphs = append(graphs, g)
		}
		return graphs, cfg.GraphType.String() + "_gen", nil
	}

	files, err := typeFiles(cfg)
	if err != nil {
		return nil, "", err
	}
	for _, path := range files {
		c, err := loadReindexed(path)
		if err != nil {
			return nil, "", err
		}
		for _, job := range c.Jobs() {
			graphs = append(graphs, c[job].Condense())
		}
	}
	return graphs, cfg.GraphType.String() + "_real", nil
}

// Report writes, for every feature measure, the values over all graphs as a
// space separated list to st/<label>_<measure>, and the per depth range
// characteristics of their instance graphs to st/<label>_chars.csv.
func Report(cfg *config.Config) error {
	defer timed("report")()

	graphs, label, err := reportGraphs(cfg)
	if err != nil {
		return err
	}
	dir := filepath.Join(cfg.WorkDir, ReportDir)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "create report directory")
	}

	for _, m := range features.Measures {
		values := make([]float64, 0)
		for _, g := range graphs {
			values = append(values, m.Of(g)...)
		}
		if err := writeValues(filepath.Join(dir, label+"_"+m.String()), values); err != nil {
			return err
		}
		s := features.Summarize(values)
		PipelineLogger.WithFields(log.Fields{
			"measure": m,
			"count":   s.Count,
			"mean":    s.Mean,
			"std":     s.Std,
			"min":     s.Min,
			"max":     s.Max,
		}).Info("measure summary")
	}

	rng := newRand(cfg.Seed)
	sum := features.NewSummarizer()
	for i, g := range graphs {
		ig, err := instance.Expand(g, cfg.CCR, rng)
		if err != nil {
			return err
		}
		c, err := features.Characterize(ig)
		if errors.Is(err, features.ErrCyclicInstances) {
			PipelineLogger.WithFields(log.Fields{
				"graph": i,
				"error": err,
			}).Warn("graph skipped")
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "graph %d", i)
		}
		sum.Add(c)
	}

	var buf bytes.Buffer
	if err := sum.Write(&buf, label); err != nil {
		return err
	}
	path := filepath.Join(dir, label+"_chars.csv")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	PipelineLogger.WithFields(log.Fields{
		"label":  label,
		"graphs": len(graphs),
	}).Info("report written")
	return nil
}

func writeValues(path string, values []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	w := bufio.NewWriter(f)
	for _, v := range values {
		w.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		w.WriteByte(' ')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}
