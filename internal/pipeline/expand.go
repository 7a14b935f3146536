package pipeline

import (
	"path/filepath"
	"strconv"
	"strings"

	config "github.com/Vincent-lau/dagen/internal/configs"
	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/Vincent-lau/dagen/internal/instance"
	"github.com/Vincent-lau/dagen/internal/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ccrTag renders ccr in instance file names, e.g. 0.5 as 5.
func ccrTag(ccr float64) string {
	return strconv.FormatFloat(ccr*10, 'f', -1, 64)
}

// Expand turns every task graph of the tasks directory into an instance graph
// and writes <name>_<ccr*10>.dot, .yaml and .rev.yaml to the instances
// directory.
func Expand(cfg *config.Config) error {
	defer timed("expand")()

	paths, err := taskFiles(cfg)
	if err != nil {
		return err
	}
	rng := newRand(cfg.Seed)
	tag := ccrTag(cfg.CCR)

	for _, path := range paths {
		g, err := dag.LoadTaskGraph(path)
		if err != nil {
			return err
		}
		ig, err := instance.Expand(g, cfg.CCR, rng)
		if err != nil {
			return errors.Wrapf(err, "expand %s", path)
		}
		metrics.InstanceCount.Observe(float64(ig.Len()))

		name := strings.TrimSuffix(filepath.Base(path), ".json")
		base := filepath.Join(cfg.InstancesDir(), name+"_"+tag)
		if err := ig.SaveDOT(base + ".dot"); err != nil {
			return err
		}
		if err := ig.SaveWorkflow(base+".yaml", false); err != nil {
			return err
		}
		if err := ig.SaveWorkflow(base+".rev.yaml", true); err != nil {
			return err
		}
	}
	PipelineLogger.WithFields(log.Fields{
		"graphs": len(paths),
		"ccr":    cfg.CCR,
	}).Info("instance graphs written")
	return nil
}
