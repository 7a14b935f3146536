package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DEV  = "DEV"
	PROD = "PROD"
)

// File names inside a graph type's stats directory.
const (
	CpRangesFile       = "cp_ranges.json"
	LevelDistribFile   = "level_distribute.json"
	LevelGeneratorFile = "level_generator.json"
)

// Config enumerates every path and parameter of a batch run. It is resolved
// once in main and passed down explicitly.
type Config struct {
	Mode string `yaml:"mode"`

	// InputFile is the decoded job collection produced by trace ingestion.
	InputFile string `yaml:"input_file"`
	// ByTypeDir receives the collections split by graph shape.
	ByTypeDir string `yaml:"by_type_dir"`
	// WorkDir holds one sub directory per graph type with tasks, stats and
	// instance graphs.
	WorkDir   string    `yaml:"work_dir"`
	GraphType GraphType `yaml:"graph_type"`
	// KPart tags the by-type files written by one classification run.
	KPart int `yaml:"k_part"`

	SampleCount   int     `yaml:"sample_count"`
	GenerateCount int     `yaml:"generate_count"`
	MinCP         int     `yaml:"min_cp"`
	MaxCP         int     `yaml:"max_cp"`
	CCR           float64 `yaml:"ccr"`
	// Seed 0 picks a time based seed.
	Seed uint64 `yaml:"seed"`

	// ReportGenerated reports on synthesized graphs instead of learned ones.
	ReportGenerated bool `yaml:"report_generated"`

	MetricsFile string `yaml:"metrics_file"`
	MetricsAddr string `yaml:"metrics_addr"`
	CpuProfile  string `yaml:"cpu_profile"`
	Trace       string `yaml:"trace"`
}

func Default() *Config {
	return &Config{
		Mode:          DEV,
		InputFile:     "data/jobs.json",
		ByTypeDir:     "by_graph_type",
		WorkDir:       ".",
		GraphType:     Other,
		SampleCount:   40,
		GenerateCount: 100,
		MinCP:         5,
		MaxCP:         7,
		CCR:           10.0,
	}
}

// LoadFile overlays the YAML file at path onto c.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return errors.Wrapf(err, "decode config %s", path)
	}
	return nil
}

// LoadEnv loads envFile into the environment when it exists and then overlays
// the DAGEN_* variables onto c.
func (c *Config) LoadEnv(envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return errors.Wrapf(err, "load %s", envFile)
			}
		}
	}

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		if v, ok := os.LookupEnv(key); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(err, "%s", key)
			}
			*dst = i
		}
		return nil
	}

	str("DAGEN_MODE", &c.Mode)
	str("DAGEN_INPUT_FILE", &c.InputFile)
	str("DAGEN_BY_TYPE_DIR", &c.ByTypeDir)
	str("DAGEN_WORK_DIR", &c.WorkDir)
	str("DAGEN_METRICS_FILE", &c.MetricsFile)
	str("DAGEN_METRICS_ADDR", &c.MetricsAddr)

	if v, ok := os.LookupEnv("DAGEN_GRAPH_TYPE"); ok {
		if err := c.GraphType.Set(v); err != nil {
			return errors.Wrap(err, "DAGEN_GRAPH_TYPE")
		}
	}
	for key, dst := range map[string]*int{
		"DAGEN_SAMPLE_COUNT":   &c.SampleCount,
		"DAGEN_GENERATE_COUNT": &c.GenerateCount,
		"DAGEN_MIN_CP":         &c.MinCP,
		"DAGEN_MAX_CP":         &c.MaxCP,
	} {
		if err := integer(key, dst); err != nil {
			return err
		}
	}
	if v, ok := os.LookupEnv("DAGEN_CCR"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "DAGEN_CCR")
		}
		c.CCR = f
	}
	if v, ok := os.LookupEnv("DAGEN_SEED"); ok {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.Wrap(err, "DAGEN_SEED")
		}
		c.Seed = s
	}
	return nil
}

func (c *Config) Validate() error {
	switch {
	case c.Mode != DEV && c.Mode != PROD:
		return errors.Errorf("unknown mode %q", c.Mode)
	case c.MinCP < 2:
		return errors.Errorf("min cp %d below 2", c.MinCP)
	case c.MaxCP < c.MinCP:
		return errors.Errorf("max cp %d below min cp %d", c.MaxCP, c.MinCP)
	case c.CCR <= 0:
		return errors.Errorf("ccr %v must be positive", c.CCR)
	case c.SampleCount < 0 || c.GenerateCount < 0:
		return errors.New("negative sample or generate count")
	}
	return nil
}

// TypeDir is the working directory of the configured graph type.
func (c *Config) TypeDir() string {
	return filepath.Join(c.WorkDir, c.GraphType.String())
}

func (c *Config) TasksDir() string {
	return filepath.Join(c.TypeDir(), "tasks")
}

func (c *Config) StatsDir() string {
	return filepath.Join(c.TypeDir(), "stats")
}

func (c *Config) InstancesDir() string {
	return filepath.Join(c.TypeDir(), "inss_rev")
}
