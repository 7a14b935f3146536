package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/Vincent-lau/dagen/internal/analyzer"
	config "github.com/Vincent-lau/dagen/internal/configs"
	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/Vincent-lau/dagen/internal/metrics"
	log "github.com/sirupsen/logrus"
)

var classified = []analyzer.Shape{analyzer.Tree, analyzer.ReverseTree, analyzer.Other}

// Classify splits the input collection by shape into
// ByTypeDir/<shape><KPart>.json. Chains are dropped.
func Classify(cfg *config.Config) error {
	defer timed("classify")()

	c, err := loadReindexed(cfg.InputFile)
	if err != nil {
		return err
	}

	byShape := make(map[analyzer.Shape]dag.Collection)
	for _, s := range classified {
		byShape[s] = make(dag.Collection)
	}
	for _, job := range c.Jobs() {
		g := c[job]
		shape := analyzer.ClassifyShape(g)
		if shape == analyzer.Chain {
			metrics.GraphsSkipped.WithLabelValues(metrics.ReasonChain).Inc()
			continue
		}
		byShape[shape][job] = g
		metrics.GraphsClassified.WithLabelValues(shape.String()).Inc()
	}

	for _, s := range classified {
		path := filepath.Join(cfg.ByTypeDir, fmt.Sprintf("%s%d.json", s, cfg.KPart))
		if err := byShape[s].Save(path); err != nil {
			return err
		}
		PipelineLogger.WithFields(log.Fields{
			"k_part": cfg.KPart,
			"shape":  s,
			"graphs": len(byShape[s]),
		}).Info("by-type collection written")
	}
	return nil
}
