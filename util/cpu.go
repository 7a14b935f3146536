package util

import (
	linuxproc "github.com/c9s/goprocinfo/linux"
	"github.com/pkg/errors"
)

// CPUSample is a reading of the host wide CPU counters.
type CPUSample struct {
	stat linuxproc.CPUStat
}

// ReadCPU samples /proc/stat. It fails on hosts without procfs.
func ReadCPU() (CPUSample, error) {
	stat, err := linuxproc.ReadStat("/proc/stat")
	if err != nil {
		return CPUSample{}, errors.Wrap(err, "read /proc/stat")
	}
	return CPUSample{stat: stat.CPUStatAll}, nil
}

// Cores returns the number of logical processors of the host.
func Cores() (int, error) {
	info, err := linuxproc.ReadCPUInfo("/proc/cpuinfo")
	if err != nil {
		return 0, errors.Wrap(err, "read /proc/cpuinfo")
	}
	return len(info.Processors), nil
}

// BusySince returns the share of CPU time the host spent busy between prev
// and s, in [0, 1].
func (s CPUSample) BusySince(prev CPUSample) float64 {
	return cpuPct(s.stat, prev.stat)
}

func cpuPct(curr, prev linuxproc.CPUStat) float64 {
	prevIdle := prev.Idle + prev.IOWait
	idle := curr.Idle + curr.IOWait

	prevNonIdle := prev.User + prev.Nice + prev.System + prev.IRQ + prev.SoftIRQ + prev.Steal
	nonIdle := curr.User + curr.Nice + curr.System + curr.IRQ + curr.SoftIRQ + curr.Steal

	totald := (idle + nonIdle) - (prevIdle + prevNonIdle)
	idled := idle - prevIdle
	if totald == 0 {
		return 0
	}
	return (float64(totald) - float64(idled)) / float64(totald)
}
