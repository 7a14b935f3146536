package util

import (
	"os"
	"path/filepath"
	"runtime/pprof"
	"runtime/trace"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Profile holds the execution trace and CPU profile of one command, either of
// which may be disabled by an empty path.
type Profile struct {
	files []*os.File
	trace bool
	cpu   bool
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("error creating profile directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	return f, nil
}

// StartProfile starts an execution trace to tracePath and a CPU profile to
// cpuPath. Call Stop on the result when the command returns.
func StartProfile(tracePath, cpuPath string) (*Profile, error) {
	p := &Profile{}
	if tracePath != "" {
		f, err := create(tracePath)
		if err != nil {
			return nil, err
		}
		p.files = append(p.files, f)
		if err := trace.Start(f); err != nil {
			p.Stop()
			return nil, errors.Wrap(err, "start trace")
		}
		p.trace = true
	}
	if cpuPath != "" {
		f, err := create(cpuPath)
		if err != nil {
			p.Stop()
			return nil, err
		}
		p.files = append(p.files, f)
		if err := pprof.StartCPUProfile(f); err != nil {
			p.Stop()
			return nil, errors.Wrap(err, "start cpu profile")
		}
		p.cpu = true
	}
	return p, nil
}

func (p *Profile) Stop() {
	if p.trace {
		trace.Stop()
		p.trace = false
	}
	if p.cpu {
		pprof.StopCPUProfile()
		p.cpu = false
	}
	for _, f := range p.files {
		if err := f.Close(); err != nil {
			log.WithFields(log.Fields{
				"error": err,
				"file":  f.Name(),
			}).Error("failed to close profile file")
		}
	}
	p.files = nil
}
