package stats

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CpRange collects the node counts seen for every critical path length.
type CpRange struct {
	counts map[int][]float64
}

func NewCpRange() *CpRange {
	return &CpRange{counts: make(map[int][]float64)}
}

func (c *CpRange) Add(cp, nodeCount int) error {
	if cp <= 0 {
		return ErrBadCriticalPath
	}
	c.counts[cp] = append(c.counts[cp], float64(nodeCount))
	return nil
}

// Finalize returns the 20th and 80th percentile of the node counts per cp.
func (c *CpRange) Finalize() *CpRangeTable {
	t := &CpRangeTable{Ranges: make(map[int][2]float64, len(c.counts))}
	for cp, counts := range c.counts {
		sorted := slices.Clone(counts)
		slices.Sort(sorted)
		t.Ranges[cp] = [2]float64{
			stat.Quantile(0.2, stat.LinInterp, sorted, nil),
			stat.Quantile(0.8, stat.LinInterp, sorted, nil),
		}
	}
	return t
}

// CpRangeTable maps a critical path length to the [p20, p80] node count range.
type CpRangeTable struct {
	Ranges map[int][2]float64
}

func (t *CpRangeTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Ranges)
}

func (t *CpRangeTable) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &t.Ranges)
}

// SampleNodeCount draws a node count uniformly from the range of cp, rounded up.
// It reports false if cp was never observed.
func (t *CpRangeTable) SampleNodeCount(cp int, rng *rand.Rand) (int, bool) {
	r, ok := t.Ranges[cp]
	if !ok {
		return 0, false
	}
	u := distuv.Uniform{Min: r[0], Max: r[1], Src: rng}
	return int(math.Ceil(u.Rand())), true
}

// CPs returns the observed critical path lengths, sorted.
func (t *CpRangeTable) CPs() []int {
	cps := maps.Keys(t.Ranges)
	slices.Sort(cps)
	return cps
}

func (t *CpRangeTable) Save(path string) error {
	return saveJSON(path, t)
}

func LoadCpRangeTable(path string) (*CpRangeTable, error) {
	t := &CpRangeTable{}
	if err := loadJSON(path, t); err != nil {
		return nil, err
	}
	return t, nil
}

// LevelDistribution counts how many nodes sit at each level, per stratum.
type LevelDistribution struct {
	counts map[int]map[int][]int
}

func NewLevelDistribution() *LevelDistribution {
	return &LevelDistribution{counts: make(map[int]map[int][]int)}
}

func (d *LevelDistribution) Add(cp, part int, levels []int) error {
	if cp <= 0 {
		return ErrBadCriticalPath
	}
	for _, l := range levels {
		if l < 0 || l >= cp {
			return errors.Wrapf(ErrLevelOutOfRange, "level %d for critical path %d", l, cp)
		}
	}
	if d.counts[cp] == nil {
		d.counts[cp] = make(map[int][]int)
	}
	hist, ok := d.counts[cp][part]
	if !ok {
		hist = make([]int, cp)
		d.counts[cp][part] = hist
	}
	for _, l := range levels {
		hist[l]++
	}
	return nil
}

// Finalize turns every per-level count into a running sum.
func (d *LevelDistribution) Finalize() *LevelHistogram {
	h := &LevelHistogram{Cumulative: make(map[int]map[int][]int, len(d.counts))}
	for cp, parts := range d.counts {
		h.Cumulative[cp] = make(map[int][]int, len(parts))
		for part, hist := range parts {
			cum := make([]int, len(hist))
			sum := 0
			for l, c := range hist {
				sum += c
				cum[l] = sum
			}
			h.Cumulative[cp][part] = cum
		}
	}
	return h
}

// LevelHistogram maps cp -> part -> cumulative node count per level.
type LevelHistogram struct {
	Cumulative map[int]map[int][]int
}

func (h *LevelHistogram) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Cumulative)
}

func (h *LevelHistogram) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &h.Cumulative)
}

// SampleLevel draws a level with probability proportional to the number of
// nodes observed at it.
func (h *LevelHistogram) SampleLevel(stratum Stratum, rng *rand.Rand) (int, error) {
	cum, ok := h.Cumulative[stratum.CP][stratum.Part]
	if !ok || len(cum) == 0 || cum[len(cum)-1] == 0 {
		return 0, errors.Wrapf(ErrNoStatistic, "level histogram at cp %d part %d", stratum.CP, stratum.Part)
	}
	x := rng.Intn(cum[len(cum)-1])
	// first level whose running sum exceeds x
	level, _ := slices.BinarySearchFunc(cum, x, func(c, target int) int {
		if c <= target {
			return -1
		}
		return 1
	})
	return level, nil
}

// NearestKnownPart returns part if it was observed for cp, else the smallest
// observed part above it, else the largest observed part.
func (h *LevelHistogram) NearestKnownPart(cp, part int) (int, error) {
	parts, ok := h.Cumulative[cp]
	if !ok || len(parts) == 0 {
		return 0, errors.Wrapf(ErrUnknownCP, "cp %d", cp)
	}
	keys := maps.Keys(parts)
	slices.Sort(keys)
	i, found := slices.BinarySearch(keys, part)
	switch {
	case found:
		return part, nil
	case i == len(keys):
		return keys[len(keys)-1], nil
	default:
		return keys[i], nil
	}
}

func (h *LevelHistogram) Save(path string) error {
	return saveJSON(path, h)
}

func LoadLevelHistogram(path string) (*LevelHistogram, error) {
	h := &LevelHistogram{}
	if err := loadJSON(path, h); err != nil {
		return nil, err
	}
	return h, nil
}
