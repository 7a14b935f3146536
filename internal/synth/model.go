package synth

import (
	"path/filepath"

	config "github.com/Vincent-lau/dagen/internal/configs"
	"github.com/Vincent-lau/dagen/internal/stats"
)

// Model is the frozen set of statistics learned for one graph type.
type Model struct {
	Levels    *stats.Table
	CpRanges  *stats.CpRangeTable
	Histogram *stats.LevelHistogram
}

// LoadModel reads the three statistic files of a stats directory.
func LoadModel(dir string) (*Model, error) {
	cp, err := stats.LoadCpRangeTable(filepath.Join(dir, config.CpRangesFile))
	if err != nil {
		return nil, err
	}
	hist, err := stats.LoadLevelHistogram(filepath.Join(dir, config.LevelDistribFile))
	if err != nil {
		return nil, err
	}
	levels, err := stats.LoadTable(filepath.Join(dir, config.LevelGeneratorFile))
	if err != nil {
		return nil, err
	}
	return &Model{Levels: levels, CpRanges: cp, Histogram: hist}, nil
}

// Save writes the model in the layout LoadModel reads.
func (m *Model) Save(dir string) error {
	if err := m.CpRanges.Save(filepath.Join(dir, config.CpRangesFile)); err != nil {
		return err
	}
	if err := m.Histogram.Save(filepath.Join(dir, config.LevelDistribFile)); err != nil {
		return err
	}
	return m.Levels.Save(filepath.Join(dir, config.LevelGeneratorFile))
}

// Mode is the edge construction strategy of a synthesis run.
type Mode int

const (
	// Increasing grows children breadth first from the start of the seed chain.
	Increasing Mode = iota
	// Decreasing grows parents breadth first from the end of the seed chain.
	Decreasing
	// Other places nodes on sampled levels and links consecutive levels.
	Other
)

func (m Mode) String() string {
	switch m {
	case Increasing:
		return "increasing"
	case Decreasing:
		return "decreasing"
	case Other:
		return "other"
	default:
		panic("unknown growth mode")
	}
}

// ModeFor returns the growth mode that reproduces graphs of type t.
func ModeFor(t config.GraphType) Mode {
	switch t {
	case config.TreeIncr:
		return Increasing
	case config.TreeDecr:
		return Decreasing
	case config.Other:
		return Other
	default:
		panic("unknown graph type")
	}
}
