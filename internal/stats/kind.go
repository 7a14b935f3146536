package stats

import (
	"math"

	"github.com/Vincent-lau/dagen/internal/dag"
)

// Kind enumerates the per-level statistics learned from task graphs.
type Kind int

const (
	ChildCount Kind = iota
	ParentCount
	// InstanceInit is the instance count of source tasks.
	InstanceInit
	// InstanceRatio is the instance count of a task relative to the average of
	// its parents, scaled by 10000.
	InstanceRatio
	Heavy
	// InstanceTime is the duration of every single instance.
	InstanceTime
	InstanceCpuAvg
	InstanceCpuDiff
)

var Kinds = []Kind{
	ChildCount,
	ParentCount,
	InstanceInit,
	InstanceRatio,
	Heavy,
	InstanceTime,
	InstanceCpuAvg,
	InstanceCpuDiff,
}

func (k Kind) String() string {
	switch k {
	case ChildCount:
		return "childs_distribution"
	case ParentCount:
		return "dependances_distribution"
	case InstanceInit:
		return "instance_distr_init"
	case InstanceRatio:
		return "instance_distr_perc"
	case Heavy:
		return "heavy_distr"
	case InstanceTime:
		return "time_distrib"
	case InstanceCpuAvg:
		return "cpu_avg_distrib"
	case InstanceCpuDiff:
		return "cpu_diff_distrib"
	default:
		panic("unknown statistic kind")
	}
}

// RatioScale is the fixed point scale of InstanceRatio samples.
const RatioScale = 10000

func cappedInstances(t *dag.Task) uint64 {
	return min(t.InstanceCnt, dag.MaxInstanceCount)
}

// Extract computes the samples of kind k for every level of g. Samples are
// truncated to whole numbers.
func (k Kind) Extract(g *dag.TaskGraph, levels []int, cp int) [][]float64 {
	result := make([][]float64, cp)
	put := func(i int, v float64) {
		result[levels[i]] = append(result[levels[i]], math.Trunc(v))
	}

	for i := 0; i < g.Len(); i++ {
		t := g.Node(i)
		switch k {
		case ChildCount:
			put(i, float64(len(g.Children(i))))

		case ParentCount:
			put(i, float64(len(t.Dependences)))

		case InstanceInit:
			if len(t.Dependences) == 0 {
				put(i, float64(cappedInstances(t)))
			}

		case InstanceRatio:
			if len(t.Dependences) == 0 {
				continue
			}
			var avg uint64
			for _, p := range t.Dependences {
				avg += cappedInstances(g.Node(p))
			}
			avg /= uint64(len(t.Dependences))
			if avg == 0 {
				continue
			}
			put(i, float64(cappedInstances(t)*RatioScale/avg))

		case Heavy:
			put(i, dag.HeavyScore(float64(cappedInstances(t)), float64(t.Duration())))

		case InstanceTime:
			for _, in := range t.Instances {
				put(i, float64(in.Time))
			}

		case InstanceCpuAvg:
			for _, in := range t.Instances {
				put(i, in.CpuAvg)
			}

		case InstanceCpuDiff:
			for _, in := range t.Instances {
				put(i, in.CpuDiffMax)
			}

		default:
			panic("unknown statistic kind")
		}
	}
	return result
}
