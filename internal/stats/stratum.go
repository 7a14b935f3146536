// Package stats learns empirical distributions from analysed task graphs and
// samples from them when new graphs are synthesized.
//
// Every model has two phases. While accumulating, observations are added from
// many graphs; Finalize then freezes them into an immutable table that can be
// persisted and sampled. A model never samples while it still accumulates.
package stats

import (
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	ErrFinalized       = errors.New("statistic already finalized")
	ErrNoStatistic     = errors.New("no statistic for stratum")
	ErrUnknownCP       = errors.New("critical path was never observed")
	ErrLevelOutOfRange = errors.New("level outside critical path")
	ErrBadCriticalPath = errors.New("critical path must be positive")
)

var StatsLogger = log.WithFields(log.Fields{"prefix": "stats"})

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Stratum groups graphs of similar shape: same critical path length and same
// size bucket.
type Stratum struct {
	CP   int
	Part int
}

// NewStratum buckets a graph of nodeCount nodes by nodeCount / cp.
func NewStratum(cp, nodeCount int) Stratum {
	if cp <= 0 {
		panic("non-positive critical path")
	}
	return Stratum{CP: cp, Part: nodeCount / cp}
}

func saveJSON(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.Wrap(err, "create stats directory")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func loadJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}
