// Package arch is the architecture registry: every microarchitecture
// description this module ships, named the way the front-ends and test
// harness select them (spec.md §4.6, component H).
package arch

import (
	"fmt"

	"github.com/y86sim/archlab/arch/extra/pipefoura"
	"github.com/y86sim/archlab/arch/extra/pipethreea"
	"github.com/y86sim/archlab/arch/extra/pipethreec"
	"github.com/y86sim/archlab/arch/extra/pipetwo"
	"github.com/y86sim/archlab/arch/pipestd"
	"github.com/y86sim/archlab/arch/seqplusstd"
	"github.com/y86sim/archlab/arch/seqstd"
	"github.com/y86sim/archlab/framework"
	"github.com/y86sim/archlab/mem"
)

// UnknownArchError reports that Create was asked for a name no
// registered architecture uses.
type UnknownArchError struct {
	Name string
}

func (e UnknownArchError) Error() string {
	return fmt.Sprintf("arch: unknown architecture %q", e.Name)
}

// Names lists every registered architecture, in a stable order: the
// three built-ins the oracle-equivalence suite covers, then the extra,
// pedagogic ones.
func Names() []string {
	return []string{
		seqstd.Name, seqplusstd.Name, pipestd.Name,
		pipetwo.Name, pipethreea.Name, pipethreec.Name, pipefoura.Name,
	}
}

// Create builds a fresh CPU for the named architecture over img. Every
// call gets its own CPU instance and its own propagation schedule; two
// instances never share mutable state.
func Create(name string, img *mem.Image) (framework.CPU, error) {
	switch name {
	case seqstd.Name:
		return seqstd.New(img)
	case seqplusstd.Name:
		return seqplusstd.New(img)
	case pipestd.Name:
		return pipestd.New(img)
	case pipetwo.Name:
		return pipetwo.New(img)
	case pipethreea.Name:
		return pipethreea.New(img)
	case pipethreec.Name:
		return pipethreec.New(img)
	case pipefoura.Name:
		return pipefoura.New(img)
	default:
		return nil, UnknownArchError{Name: name}
	}
}

// Info is the static description of a registered architecture: its
// name, its pipeline/stage register names in build order, and the
// build-time critical-path length of its propagation schedule.
// Grounded on PropOrder's Display implementation and StageInfo in the
// original_source's framework module (spec.md §6's `-I` surface).
type Info struct {
	Name         string
	Stages       []string
	CriticalPath uint64
}

// Describe reports the named architecture's static shape without
// requiring a program to run: it builds one CPU over an empty image
// purely to read off its stage names and critical path, then discards
// it.
func Describe(name string) (Info, error) {
	cpu, err := Create(name, mem.New())
	if err != nil {
		return Info{}, err
	}
	stages := make([]string, 0, len(cpu.StageInfo()))
	for _, s := range cpu.StageInfo() {
		stages = append(stages, s.Name)
	}
	return Info{Name: cpu.Arch(), Stages: stages, CriticalPath: cpu.CriticalPath()}, nil
}
