// Package synth grows new task graphs from a learned statistics model.
package synth

import (
	"fmt"
	"math"
	"time"

	"github.com/Vincent-lau/dagen/internal/dag"
	"github.com/Vincent-lau/dagen/internal/stats"
	"github.com/Workiva/go-datastructures/queue"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
)

var (
	ErrBadCriticalPath = errors.New("critical path must be at least 2")
	ErrBadNodeCount    = errors.New("node count below critical path")
	ErrNoNodeCount     = errors.New("no node count range for any critical path in range")
)

// maxRangeAttempts bounds the critical path draws of GenerateInRange.
const maxRangeAttempts = 1000

var SynthLogger = log.WithFields(log.Fields{"prefix": "synth"})

// Synthesizer draws every random decision from a single generator, so two
// synthesizers built from the same model and seed produce identical graphs.
type Synthesizer struct {
	model *Model
	rng   *rand.Rand
}

// New returns a synthesizer over model. A zero seed is replaced by the clock.
func New(model *Model, seed uint64) *Synthesizer {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Synthesizer{
		model: model,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// GenerateInRange picks a critical path uniformly in [minCP, maxCP] until one
// with a learned node count range comes up, then generates a graph for it.
func (s *Synthesizer) GenerateInRange(minCP, maxCP int, mode Mode) (*dag.TaskGraph, error) {
	if minCP < 2 || maxCP < minCP {
		return nil, errors.Wrapf(ErrBadCriticalPath, "range [%d, %d]", minCP, maxCP)
	}
	for i := 0; i < maxRangeAttempts; i++ {
		cp := minCP + s.rng.Intn(maxCP-minCP+1)
		n, ok := s.model.CpRanges.SampleNodeCount(cp, s.rng)
		if ok {
			return s.Generate(cp, max(n, cp), mode)
		}
	}
	return nil, errors.Wrapf(ErrNoNodeCount, "[%d, %d]", minCP, maxCP)
}

// Generate builds a graph of n nodes whose longest path has cp nodes.
func (s *Synthesizer) Generate(cp, n int, mode Mode) (*dag.TaskGraph, error) {
	if cp < 2 {
		return nil, errors.Wrapf(ErrBadCriticalPath, "cp %d", cp)
	}
	if n < cp {
		return nil, errors.Wrapf(ErrBadNodeCount, "%d nodes for cp %d", n, cp)
	}
	part, err := s.model.Histogram.NearestKnownPart(cp, n/cp)
	if err != nil {
		return nil, err
	}

	b := &builder{
		Synthesizer: s,
		g:           dag.New(),
		stratum:     stats.Stratum{CP: cp, Part: part},
		level:       make([]int, n),
		n:           n,
	}
	b.g.Dense = true
	for i := 0; i < n; i++ {
		b.g.AddNode(dag.Task{
			Name:        fmt.Sprintf("task_%d", i),
			Dependences: make([]int, 0),
		})
	}
	// seed chain
	for i := 0; i < cp; i++ {
		b.level[i] = i
		if i > 0 {
			b.g.AddDependency(i, i-1)
		}
	}

	switch mode {
	case Increasing:
		err = b.growIncreasing()
	case Decreasing:
		err = b.growDecreasing()
	case Other:
		err = b.growOther()
	default:
		panic("unknown growth mode")
	}
	if err != nil {
		return nil, err
	}
	if err := b.assignWork(); err != nil {
		return nil, err
	}

	SynthLogger.WithFields(log.Fields{
		"cp":    cp,
		"part":  part,
		"nodes": n,
		"edges": b.g.EdgeCount(),
		"mode":  mode,
	}).Debug("graph synthesized")
	return b.g, nil
}

type builder struct {
	*Synthesizer
	g       *dag.TaskGraph
	stratum stats.Stratum
	level   []int
	n       int
}

func (b *builder) sample(k stats.Kind, level int) (float64, error) {
	return b.model.Levels.Sample(b.stratum, level, k.String(), b.rng)
}

func (b *builder) sampleCount(k stats.Kind, level int) (int, error) {
	v, err := b.sample(k, level)
	if err != nil {
		return 0, err
	}
	return int(math.Ceil(v)), nil
}

func (b *builder) sampleLevel() (int, error) {
	return b.model.Histogram.SampleLevel(b.stratum, b.rng)
}

func (b *builder) seedLevels() [][]int {
	byLevel := make([][]int, b.stratum.CP)
	for i := range byLevel {
		byLevel[i] = []int{i}
	}
	return byLevel
}

func pop(q *queue.Queue) int {
	items, err := q.Get(1)
	if err != nil {
		panic(err)
	}
	return items[0].(int)
}

// growIncreasing walks the chain breadth first from its start. Every dequeued
// node gets a sampled number of fresh children on the next level; chain nodes
// count their chain successor as one of them. The next chain node is queued
// whenever the walk moves past a level or runs dry. Nodes left over once the
// walk ends hang off a random node one level above a sampled level.
func (b *builder) growIncreasing() error {
	cp := b.stratum.CP
	byLevel := b.seedLevels()
	free := b.n - cp
	next := cp

	q := queue.New(int64(b.n))
	defer q.Dispose()
	q.Put(0)
	lastLevel := 0

	for free > 0 && !q.Empty() {
		cur := pop(q)
		lv := b.level[cur]
		if (lv != lastLevel || q.Empty()) && lastLevel+1 < cp {
			lastLevel++
			q.Put(lastLevel)
		}
		if lv+1 >= cp {
			continue
		}

		cnt, err := b.sampleCount(stats.ChildCount, lv)
		if err != nil {
			return err
		}
		if cur < cp && cnt > 0 {
			cnt--
		}
		for ; cnt > 0 && free > 0; cnt-- {
			child := next
			next++
			free--
			b.g.AddDependency(child, cur)
			b.level[child] = lv + 1
			byLevel[lv+1] = append(byLevel[lv+1], child)
			q.Put(child)
		}
	}

	for ; free > 0; free-- {
		lvl, err := b.sampleLevel()
		if err != nil {
			return err
		}
		lvl = max(lvl, 1)
		b.level[next] = lvl
		parents := byLevel[lvl-1]
		b.g.AddDependency(next, parents[b.rng.Intn(len(parents))])
		next++
	}
	return nil
}

// growDecreasing mirrors growIncreasing from the end of the chain, adding
// parents on the level below.
func (b *builder) growDecreasing() error {
	cp := b.stratum.CP
	byLevel := b.seedLevels()
	free := b.n - cp
	next := cp

	q := queue.New(int64(b.n))
	defer q.Dispose()
	q.Put(cp - 1)
	lastLevel := cp - 1

	for free > 0 && !q.Empty() {
		cur := pop(q)
		lv := b.level[cur]
		if (lv != lastLevel || q.Empty()) && lastLevel > 0 {
			lastLevel--
			q.Put(lastLevel)
		}
		if lv == 0 {
			continue
		}

		cnt, err := b.sampleCount(stats.ParentCount, lv)
		if err != nil {
			return err
		}
		if cur < cp && cnt > 0 {
			cnt--
		}
		for ; cnt > 0 && free > 0; cnt-- {
			parent := next
			next++
			free--
			b.g.AddDependency(cur, parent)
			b.level[parent] = lv - 1
			byLevel[lv-1] = append(byLevel[lv-1], parent)
			q.Put(parent)
		}
	}

	for ; free > 0; free-- {
		lvl, err := b.sampleLevel()
		if err != nil {
			return err
		}
		lvl = min(lvl, cp-2)
		b.level[next] = lvl
		children := byLevel[lvl+1]
		b.g.AddDependency(children[b.rng.Intn(len(children))], next)
		next++
	}
	return nil
}

// growOther first places every non-chain node on a sampled level, then links
// each node to a shuffled selection of the next level, at least one. Nodes on
// the last level left without a parent get one from the level before.
func (b *builder) growOther() error {
	cp := b.stratum.CP
	byLevel := make([][]int, cp)
	for i := 0; i < b.n; i++ {
		lvl := i
		if i >= cp {
			var err error
			if lvl, err = b.sampleLevel(); err != nil {
				return err
			}
		}
		b.level[i] = lvl
		byLevel[lvl] = append(byLevel[lvl], i)
	}

	for lvl := 0; lvl < cp-1; lvl++ {
		for _, u := range byLevel[lvl] {
			cnt, err := b.sampleCount(stats.ChildCount, lvl)
			if err != nil {
				return err
			}
			cnt = max(cnt, 1)

			candidates := slices.Clone(byLevel[lvl+1])
			b.rng.Shuffle(len(candidates), func(i, j int) {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			})
			for _, v := range candidates[:min(cnt, len(candidates))] {
				if u < cp && v < cp {
					// chain edge already present
					continue
				}
				b.g.AddDependency(v, u)
			}
		}
	}

	prev := byLevel[cp-2]
	for _, v := range byLevel[cp-1] {
		if len(b.g.Node(v).Dependences) == 0 {
			b.g.AddDependency(v, prev[b.rng.Intn(len(prev))])
		}
	}
	return nil
}

// assignWork samples instance counts and flops level by level, so every parent
// is assigned before its children. Tasks with parents scale the average parent
// instance count by a sampled ratio; sources sample their count directly.
func (b *builder) assignWork() error {
	byLevel := make([][]int, b.stratum.CP)
	for i, lvl := range b.level {
		byLevel[lvl] = append(byLevel[lvl], i)
	}
	order := make([]int, 0, b.n)
	for _, nodes := range byLevel {
		order = append(order, nodes...)
	}

	for _, i := range order {
		t := b.g.Node(i)
		lv := b.level[i]

		var cnt float64
		if len(t.Dependences) > 0 {
			ratio, err := b.sample(stats.InstanceRatio, lv)
			if err != nil {
				return err
			}
			avg := 0.0
			for _, p := range t.Dependences {
				avg += float64(b.g.Node(p).InstanceCnt)
			}
			avg /= float64(len(t.Dependences))
			cnt = avg * ratio / stats.RatioScale
		} else {
			v, err := b.sample(stats.InstanceInit, lv)
			if err != nil {
				return err
			}
			cnt = v
		}

		flops, err := b.sample(stats.InstanceTime, lv)
		if err != nil {
			return err
		}

		t.InstanceCnt = uint64(min(max(math.Ceil(cnt), 1), dag.MaxInstanceCount))
		t.Flops = flops
	}
	return nil
}
