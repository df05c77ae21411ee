package simtest_test

import (
	"testing"

	"github.com/y86sim/archlab/arch"
	"github.com/y86sim/archlab/simtest"
)

// TestLoadUseHazard is scenario 5: pipe_std only. A load immediately
// followed by a dependent add must stall fetch/decode for one cycle and
// bubble execute once, and still produce the correct sum.
func TestLoadUseHazard(t *testing.T) {
	src := `
		irmovq $0x300, %rsp
		irmovq $5, %r8
		rmmovq %r8, 0(%rsp)
		irmovq $1, %rbx
		mrmovq 0(%rsp), %rax
		addq %rax, %rbx
		halt
	`
	img := simtest.Assemble(t, src)
	want := simtest.Oracle(t, img)
	simtest.AssertEquivalent(t, img, want)

	cpu, err := arch.Create("pipe_std", img)
	if err != nil {
		t.Fatalf("arch.Create: %v", err)
	}
	bubbled := false
	prevE := ""
	for i := 0; i < simtest.MaxCycles && !cpu.Terminated(); i++ {
		info := cpu.StageInfo()
		if v, ok := simtest.FieldValue(info, "E", "stat"); ok && v == "BUB" && prevE == "mrmovq" {
			bubbled = true
		}
		prevE, _ = simtest.FieldValue(info, "E", "icode")
		cpu.Step()
	}
	if !bubbled {
		t.Error("pipe_std: execute stage never bubbled for the load-use hazard")
	}
}

// TestBranchMispredictRecovery is scenario 6: pipe_std only. A branch
// predicted taken that the reference interpreter does not take must
// still reach HALT cleanly with the fall-through irmovq executed; the
// wrongly fetched halt at L must be squashed out of decode.
func TestBranchMispredictRecovery(t *testing.T) {
	src := `
		xorq %rdx, %rdx
		jne L
		irmovq $7, %rax
		L:
		halt
	`
	img := simtest.Assemble(t, src)
	want := simtest.Oracle(t, img)
	simtest.AssertEquivalent(t, img, want)

	cpu, err := arch.Create("pipe_std", img)
	if err != nil {
		t.Fatalf("arch.Create: %v", err)
	}
	squashed := false
	prevE := ""
	for i := 0; i < simtest.MaxCycles && !cpu.Terminated(); i++ {
		info := cpu.StageInfo()
		if v, ok := simtest.FieldValue(info, "D", "stat"); ok && v == "BUB" && prevE == "jX" {
			squashed = true
		}
		prevE, _ = simtest.FieldValue(info, "E", "icode")
		cpu.Step()
	}
	if !squashed {
		t.Error("pipe_std: decode stage never bubbled to recover from the branch misprediction")
	}
}
