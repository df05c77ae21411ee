package simtest_test

import (
	"testing"

	"github.com/y86sim/archlab/arch"
	"github.com/y86sim/archlab/hw"
	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/mem"
	"github.com/y86sim/archlab/simtest"
)

// TestImemBoundary checks the fetch unit's edge address directly
// (spec.md §8, boundary behavior): the last address that leaves room
// for a full 10-byte fetch succeeds, one byte further raises error.
func TestImemBoundary(t *testing.T) {
	imem := hw.InstructionMemory{Binary: mem.New()}

	if out := imem.Eval(hw.InstructionMemoryIn{PC: mem.Size - 10}); out.Error {
		t.Error("imem: pc == MEM_SIZE-10 raised error, want success")
	}
	if out := imem.Eval(hw.InstructionMemoryIn{PC: mem.Size - 9}); !out.Error {
		t.Error("imem: pc == MEM_SIZE-9 did not raise error")
	}
}

// TestDmemBoundary mirrors TestImemBoundary for the data-memory unit's
// 8-byte access window.
func TestDmemBoundary(t *testing.T) {
	dmem := hw.DataMemory{Binary: mem.New()}

	if out := dmem.Eval(hw.DataMemoryIn{Addr: mem.Size - 8, Read: true}); out.Error {
		t.Error("dmem: addr == MEM_SIZE-8 raised error, want success")
	}
	if out := dmem.Eval(hw.DataMemoryIn{Addr: mem.Size - 7, Read: true}); !out.Error {
		t.Error("dmem: addr == MEM_SIZE-7 did not raise error")
	}
}

// TestUndefinedALUFunction checks that an ALU function code outside the
// four defined ones yields zero and never touches the condition codes
// unless SetCC is explicitly asserted.
func TestUndefinedALUFunction(t *testing.T) {
	alu := hw.ALU{}
	const undefined = 0x0F
	out := alu.Eval(hw.ALUIn{A: 3, B: 5, Fun: undefined})
	if out.E != 0 {
		t.Errorf("alu: undefined function returned %d, want 0", out.E)
	}

	var cc hw.RegisterCC
	before := cc.Eval(hw.RegisterCCIn{SetCC: false, A: 3, B: 5, E: 0, OpFun: undefined})
	if before.CC != (isa.ConditionCode{}) {
		t.Errorf("reg_cc: flags changed without SetCC: %+v", before.CC)
	}
}

// TestHaltTerminatesPromptly checks that HALT asserts termination within
// a bounded number of cycles for every built-in architecture: the
// pipeline depth plus a small constant, never MaxCycles.
func TestHaltTerminatesPromptly(t *testing.T) {
	const bound = 16
	for _, name := range simtest.BuiltinArches {
		name := name
		t.Run(name, func(t *testing.T) {
			img := simtest.Assemble(t, "halt")
			cpu, err := arch.Create(name, img)
			if err != nil {
				t.Fatalf("arch.Create(%s): %v", name, err)
			}
			for i := 0; i < bound; i++ {
				if cpu.Terminated() {
					return
				}
				cpu.Step()
			}
			t.Errorf("%s: HALT did not terminate within %d cycles", name, bound)
		})
	}
}

// TestNoControlConflict runs every built-in architecture over a program
// that exercises every hazard path (load-use, branch misprediction,
// RET-in-flight) and asserts Step never panics with a ControlConflictError:
// at most one of bubble/stall is ever asserted on any stage register in
// any cycle (spec.md §8's universal invariant).
func TestNoControlConflict(t *testing.T) {
	src := `
		irmovq $0x300, %rsp
		irmovq $1, %rbx
		mrmovq 0(%rsp), %rax
		addq %rax, %rbx
		call fn
		je skip
		irmovq $7, %rcx
		skip:
		halt
		fn:
		ret
	`
	for _, name := range simtest.BuiltinArches {
		name := name
		t.Run(name, func(t *testing.T) {
			img := simtest.Assemble(t, src)
			cpu, err := arch.Create(name, img)
			if err != nil {
				t.Fatalf("arch.Create(%s): %v", name, err)
			}
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("%s: Step panicked: %v", name, r)
				}
			}()
			simtest.Run(t, cpu)
		})
	}
}
