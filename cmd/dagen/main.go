package main

import (
	config "github.com/Vincent-lau/dagen/internal/configs"
	"github.com/Vincent-lau/dagen/internal/metrics"
	"github.com/Vincent-lau/dagen/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfg     *config.Config
	profile *util.Profile
)

func setupLogging(mode string) {
	if mode == config.DEV {
		log.SetLevel(log.DebugLevel)
		log.SetFormatter(&log.TextFormatter{
			ForceColors: true,
		})
	} else if mode == config.PROD {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		panic("unknown environment")
	}
}

// resolve builds the run configuration: defaults, then the config file, then
// DAGEN_* variables, then flags given on the command line.
func resolve(cmd *cobra.Command) error {
	c := config.Default()
	if configFile != "" {
		if err := c.LoadFile(configFile); err != nil {
			return err
		}
	}
	if err := c.LoadEnv(envFile); err != nil {
		return err
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply(c)
		}
	})
	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	cfg = c
	return nil
}

func before(cmd *cobra.Command, args []string) error {
	if err := resolve(cmd); err != nil {
		return err
	}
	setupLogging(cfg.Mode)

	metrics.Register()
	if cores, err := util.Cores(); err == nil {
		metrics.HostCores.Set(float64(cores))
	}
	if cfg.MetricsAddr != "" {
		go metrics.Serve(cfg.MetricsAddr)
	}

	p, err := util.StartProfile(cfg.Trace, cfg.CpuProfile)
	if err != nil {
		return err
	}
	profile = p

	log.WithFields(log.Fields{
		"command":    cmd.Name(),
		"graph_type": cfg.GraphType,
		"work_dir":   cfg.WorkDir,
	}).Debug("configuration resolved")
	return nil
}

func after(cmd *cobra.Command, args []string) error {
	if profile != nil {
		profile.Stop()
	}
	if cfg.MetricsFile != "" {
		return metrics.WriteTextfile(cfg.MetricsFile)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if profile != nil {
			profile.Stop()
		}
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("dagen failed")
	}
}
