package pipeline

import (
	"fmt"
	"path/filepath"

	config "github.com/Vincent-lau/dagen/internal/configs"
	"github.com/Vincent-lau/dagen/internal/metrics"
	"github.com/Vincent-lau/dagen/internal/synth"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Generate synthesizes GenerateCount graphs with a critical path in
// [MinCP, MaxCP] from the learned statistics and writes them to the tasks
// directory as <min>_<max>_<i>.json and .dot.
func Generate(cfg *config.Config) error {
	defer timed("generate")()

	m, err := synth.LoadModel(cfg.StatsDir())
	if err != nil {
		return err
	}
	s := synth.New(m, cfg.Seed)
	mode := synth.ModeFor(cfg.GraphType)

	for i := 0; i < cfg.GenerateCount; i++ {
		g, err := s.GenerateInRange(cfg.MinCP, cfg.MaxCP, mode)
		if err != nil {
			return errors.Wrapf(err, "graph %d", i)
		}
		metrics.GraphsSynthesized.WithLabelValues(mode.String()).Inc()
		metrics.NodeCount.WithLabelValues("synthesized").Observe(float64(g.Len()))

		base := filepath.Join(cfg.TasksDir(), fmt.Sprintf("%d_%d_%d", cfg.MinCP, cfg.MaxCP, i))
		if err := saveTask(base, g); err != nil {
			return err
		}
	}
	PipelineLogger.WithFields(log.Fields{
		"graphs": cfg.GenerateCount,
		"mode":   mode,
	}).Info("task graphs synthesized")
	return nil
}
