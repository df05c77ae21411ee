package simtest_test

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"

	"github.com/y86sim/archlab/arch"
	"github.com/y86sim/archlab/simtest"
)

// TestPipeTwoRegisterAfterLoad runs pipe_two directly rather than through
// AssertEquivalent/BuiltinArches, since pipe_two is a pedagogic waypoint
// excluded from that sweep by naming scope (see DESIGN.md), not because it
// diverges from the oracle. A store immediately followed by a dependent
// load exercises the one case where overlapping fetch with a single
// decode-execute-memory-writeback stage could in principle go wrong: the
// register file's write must already be visible to the instruction that
// reads it next. pipe_two's D stage commits a write in the same cycle it
// decodes the instruction that produces it, so the following instruction's
// decode, a full cycle later, always observes it.
func TestPipeTwoRegisterAfterLoad(t *testing.T) {
	src := `
		irmovq $7, %r8
		rmmovq %r8, 0x100(%rcx)
		mrmovq 0x100(%rcx), %rax
		addq %rax, %rax
		halt
	`
	img := simtest.Assemble(t, src)
	want := simtest.Oracle(t, img)

	cpu, err := arch.Create("pipe_two", img)
	if err != nil {
		t.Fatalf("arch.Create(pipe_two): %v", err)
	}
	simtest.Run(t, cpu)

	gotRegs := cpu.Registers()
	if diff := deep.Equal(want.Regs, gotRegs); diff != nil {
		t.Errorf("pipe_two: register file mismatch: %v\nwant: %s\ngot:  %s",
			diff, spew.Sdump(want.Regs), spew.Sdump(gotRegs))
	}
}
