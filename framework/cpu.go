// Package framework defines the interface every architecture
// description exposes to front-ends and the test harness, independent
// of how many pipeline stages it has or which hazards it resolves
// (spec.md §4.6, component H's common surface).
package framework

import "github.com/y86sim/archlab/isa"

// CPU is satisfied by every built-in and pedagogic architecture. A
// cycle is one call to Step: evaluate the propagation graph, resolve
// stage-register next values, latch, advance the cycle counter, and
// check termination.
type CPU interface {
	// Step runs exactly one simulated cycle.
	Step()

	// Terminated reports whether the architecture's termination signal
	// was asserted by the most recently completed cycle.
	Terminated() bool

	// ProgramCounter returns the value of the description's declared
	// program-counter signal, for debugger display.
	ProgramCounter() uint64

	// CycleCount returns the number of cycles run so far.
	CycleCount() uint64

	// CriticalPath returns the architecture's critical-path length, as
	// computed at build time by the propagation-order builder.
	CriticalPath() uint64

	// Registers returns the current architectural register file.
	Registers() isa.RegFile

	// StageInfo returns the current contents of every named stage
	// register, for debugger/tracer display.
	StageInfo() []StageInfo

	// Arch names the architecture, e.g. "seq_std", "pipe_std".
	Arch() string
}

// StageInfo is one stage register's contents, formatted for display.
type StageInfo struct {
	Name    string
	Fields  []StageField
}

// StageField is one named, formatted field within a stage register.
type StageField struct {
	Name  string
	Value string
}
