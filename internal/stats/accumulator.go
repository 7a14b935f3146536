package stats

import (
	"sync"

	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Percentiles are the breakpoints stored for every (name, stratum, level).
var Percentiles = [5]float64{0, 0.2, 0.4, 0.8, 1}

// Breakpoints holds the values at Percentiles. All zero means no observation.
type Breakpoints [5]float64

type series struct {
	mu     sync.Mutex
	values map[Stratum][][]float64
}

// Accumulator collects per-level samples keyed by statistic name and stratum.
// Observations under distinct names go to independent series and may be made
// concurrently.
type Accumulator struct {
	// lifecycle is held shared by observers and exclusively by Finalize.
	lifecycle sync.RWMutex
	frozen    bool

	namesMu sync.Mutex
	series  map[string]*series
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		series: make(map[string]*series),
	}
}

func (a *Accumulator) seriesFor(name string) *series {
	a.namesMu.Lock()
	defer a.namesMu.Unlock()

	s, ok := a.series[name]
	if !ok {
		s = &series{values: make(map[Stratum][][]float64)}
		a.series[name] = s
	}
	return s
}

// Observe appends perLevel[l] to the samples of (name, stratum, l).
func (a *Accumulator) Observe(stratum Stratum, name string, perLevel [][]float64) error {
	if len(perLevel) > stratum.CP {
		return errors.Wrapf(ErrLevelOutOfRange, "%s: %d levels for critical path %d", name, len(perLevel), stratum.CP)
	}

	a.lifecycle.RLock()
	defer a.lifecycle.RUnlock()
	if a.frozen {
		return ErrFinalized
	}

	s := a.seriesFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	levels, ok := s.values[stratum]
	if !ok {
		levels = make([][]float64, stratum.CP)
		s.values[stratum] = levels
	}
	for l, vals := range perLevel {
		levels[l] = append(levels[l], vals...)
	}
	return nil
}

// ObserveKind extracts kind k from an analysed graph and observes it.
func (a *Accumulator) ObserveKind(stratum Stratum, k Kind, g *dag.TaskGraph, levels []int) error {
	return a.Observe(stratum, k.String(), k.Extract(g, levels, stratum.CP))
}

// Finalize freezes the accumulator and computes the breakpoints of every
// observed (name, stratum, level). It may be called once.
func (a *Accumulator) Finalize() (*Table, error) {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	if a.frozen {
		return nil, ErrFinalized
	}
	a.frozen = true

	t := &Table{Stats: make(map[string]map[int]map[int][]Breakpoints)}
	for name, s := range a.series {
		byCP := make(map[int]map[int][]Breakpoints)
		for st, levels := range s.values {
			if byCP[st.CP] == nil {
				byCP[st.CP] = make(map[int][]Breakpoints)
			}
			bps := make([]Breakpoints, len(levels))
			for l, vals := range levels {
				bps[l] = breakpoints(vals)
			}
			byCP[st.CP][st.Part] = bps
		}
		t.Stats[name] = byCP
	}

	StatsLogger.WithFields(log.Fields{
		"statistics": len(t.Stats),
	}).Debug("accumulator finalized")
	return t, nil
}

func breakpoints(vals []float64) Breakpoints {
	var b Breakpoints
	if len(vals) == 0 {
		return b
	}
	sorted := slices.Clone(vals)
	slices.Sort(sorted)
	for i, p := range Percentiles {
		b[i] = stat.Quantile(p, stat.LinInterp, sorted, nil)
	}
	return b
}

// Table is the frozen form of an Accumulator:
// name -> critical path -> part -> level -> breakpoints.
type Table struct {
	Stats map[string]map[int]map[int][]Breakpoints
}

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Stats)
}

func (t *Table) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &t.Stats)
}

// Names returns the statistic names in the table, sorted.
func (t *Table) Names() []string {
	names := maps.Keys(t.Stats)
	slices.Sort(names)
	return names
}

// Lookup returns the breakpoints of (name, stratum, level).
func (t *Table) Lookup(stratum Stratum, level int, name string) (Breakpoints, error) {
	levels, ok := t.Stats[name][stratum.CP][stratum.Part]
	if !ok {
		return Breakpoints{}, errors.Wrapf(ErrNoStatistic, "%s at cp %d part %d", name, stratum.CP, stratum.Part)
	}
	if level < 0 || level >= len(levels) {
		return Breakpoints{}, errors.Wrapf(ErrNoStatistic, "%s at cp %d part %d level %d", name, stratum.CP, stratum.Part, level)
	}
	return levels[level], nil
}

// Sample draws a typical value of (name, stratum, level). A uniform draw r in
// [0, 10) is placed on the breakpoint scale 0, 2, 4, 8, 10. Only the 20th, 40th
// and 80th percentiles act as anchors: r in [0, 2] interpolates from the 20th to
// the 40th, r in (2, 4) from the 40th to the 80th, and any larger r yields the
// 80th. The 0th and 100th percentiles are stored but never returned.
func (t *Table) Sample(stratum Stratum, level int, name string, rng *rand.Rand) (float64, error) {
	bp, err := t.Lookup(stratum, level, name)
	if err != nil {
		return 0, err
	}
	u := distuv.Uniform{Min: 0, Max: 10, Src: rng}
	return interpolate(bp, u.Rand()), nil
}

func interpolate(bp Breakpoints, r float64) float64 {
	var ps [5]float64
	for i, p := range Percentiles {
		ps[i] = p * 10
	}
	anchors := bp[1:4]

	switch {
	case r < ps[0]:
		return anchors[0]
	case r <= ps[1]:
		return anchors[0] + (anchors[1]-anchors[0])/(ps[1]-ps[0])*(r-ps[0])
	case r < ps[2]:
		return anchors[1] + (anchors[2]-anchors[1])/(ps[2]-ps[1])*(r-ps[1])
	default:
		return anchors[2]
	}
}

func (t *Table) Save(path string) error {
	return saveJSON(path, t)
}

func LoadTable(path string) (*Table, error) {
	t := &Table{}
	if err := loadJSON(path, t); err != nil {
		return nil, err
	}
	return t, nil
}
