// Package simtest is the oracle-equivalence test harness (spec.md
// component I, §8): it assembles a Y86-64 program once, runs the ISA
// reference interpreter over it to get the expected result, then runs
// every built-in hardware description over an independent copy of the
// same image and diffs the outcome. Grounded on the teacher's
// cpu_test.go style: table-driven subtests, `go-test/deep` for the
// value diff, `go-spew` for the failure dump.
package simtest

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"

	"github.com/y86sim/archlab/arch"
	"github.com/y86sim/archlab/framework"
	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/mem"
	"github.com/y86sim/archlab/yasm"
)

// MaxCycles bounds how long any architecture may run before the harness
// gives up and fails the test; it stands in for the "cancellation is
// external" step budget spec.md §5 assigns to the caller.
const MaxCycles = 100000

// BuiltinArches are the three architectures the universal
// oracle-equivalence invariant binds (spec.md §4.6, SPEC_FULL.md §7).
// The arch/extra/* pedagogic family is deliberately excluded even when,
// as with pipe_two, it happens to be oracle-equivalent too: spec.md
// §4.6 only names these three "Built-in," matching the original
// project's own builtin::tests::test_builtin, which never loops the
// extra family. Each arch/extra/* architecture is checked by its own
// scenario instead (see pipetwo_test.go for pipe_two's).
var BuiltinArches = []string{"seq_std", "seq_plus_std", "pipe_std"}

// Assemble is a thin wrapper over yasm.Assemble that fails the test
// immediately on a syntax error, so scenario bodies can stay focused on
// the program and the expectation.
func Assemble(t *testing.T, src string) *mem.Image {
	t.Helper()
	img, _, err := yasm.Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return img
}

// clone returns an independent copy of img's current contents, so each
// architecture (and the oracle) mutates its own image.
func clone(img *mem.Image) *mem.Image {
	snap := img.Snapshot()
	return mem.FromBytes(snap[:])
}

// Oracle runs the ISA reference interpreter to termination over a clone
// of img and returns the expected architectural state.
func Oracle(t *testing.T, img *mem.Image) isa.StandardResult {
	t.Helper()
	result, err := isa.Simulate(clone(img), MaxCycles)
	if err != nil {
		t.Fatalf("oracle simulation: %v", err)
	}
	return result
}

// Run steps cpu until it terminates or MaxCycles elapses, and fails the
// test if it never terminates.
func Run(t *testing.T, cpu framework.CPU) {
	t.Helper()
	for i := uint64(0); i < MaxCycles; i++ {
		if cpu.Terminated() {
			return
		}
		cpu.Step()
	}
	t.Fatalf("%s: did not terminate within %d cycles", cpu.Arch(), MaxCycles)
}

// FieldValue looks up one named field of one named stage in a
// StageInfo snapshot, for tests that need to observe a transient bubble
// or stall rather than just the final architectural state.
func FieldValue(infos []framework.StageInfo, stage, field string) (string, bool) {
	for _, s := range infos {
		if s.Name != stage {
			continue
		}
		for _, f := range s.Fields {
			if f.Name == field {
				return f.Value, true
			}
		}
	}
	return "", false
}

// AssertEquivalent runs every architecture in BuiltinArches over its own
// clone of img and checks its final register file and memory against
// want, the oracle's result. Any mismatch is reported with a full state
// dump of both sides.
func AssertEquivalent(t *testing.T, img *mem.Image, want isa.StandardResult) {
	t.Helper()
	for _, name := range BuiltinArches {
		name := name
		t.Run(name, func(t *testing.T) {
			archImg := clone(img)
			cpu, err := arch.Create(name, archImg)
			if err != nil {
				t.Fatalf("arch.Create(%s): %v", name, err)
			}
			Run(t, cpu)

			gotRegs := cpu.Registers()
			if diff := deep.Equal(want.Regs, gotRegs); diff != nil {
				t.Errorf("%s: register file mismatch: %v\nwant: %s\ngot:  %s",
					name, diff, spew.Sdump(want.Regs), spew.Sdump(gotRegs))
			}

			gotMem := archImg.Snapshot()
			if diff := deep.Equal(want.Bin[:], gotMem[:]); diff != nil {
				t.Errorf("%s: memory mismatch: %v", name, diff)
			}
		})
	}
}

// AssertOracleEquivalent is the common entry point for a scenario: it
// assembles src, computes the oracle result, and checks every built-in
// architecture against it.
func AssertOracleEquivalent(t *testing.T, src string) {
	t.Helper()
	img := Assemble(t, src)
	want := Oracle(t, img)
	AssertEquivalent(t, img, want)
}
