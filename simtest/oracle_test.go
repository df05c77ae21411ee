package simtest_test

import (
	"fmt"
	"testing"

	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/simtest"
)

// TestOPQFanOut is scenario 1: every ALU op against every pair of data
// registers must leave the destination holding the oracle's result and
// every untouched register at zero.
func TestOPQFanOut(t *testing.T) {
	ops := []string{"addq", "subq", "andq", "xorq"}
	regs := []string{"%rdx", "%rbx", "%rsp"}
	for _, op := range ops {
		for _, ra := range regs {
			for _, rb := range regs {
				name := fmt.Sprintf("%s_%s_%s", op, ra, rb)
				t.Run(name, func(t *testing.T) {
					src := fmt.Sprintf(`
						irmovq $0x100, %s
						irmovq $0x020, %s
						nop
						nop
						%s %s, %s
						nop
						nop
						halt
					`, ra, rb, op, ra, rb)
					simtest.AssertOracleEquivalent(t, src)
				})
			}
		}
	}
}

// TestConditionalMove is scenario 2: every CMOVX variant (rrmovq stands
// in for the always-true case) against every comparison outcome.
func TestConditionalMove(t *testing.T) {
	insts := []string{"rrmovq", "cmovle", "cmovl", "cmove", "cmovne", "cmovge", "cmovg"}
	valbs := []string{"0x100", "0x020", "0x004"}
	for _, inst := range insts {
		for _, valb := range valbs {
			name := fmt.Sprintf("%s_%s", inst, valb)
			t.Run(name, func(t *testing.T) {
				src := fmt.Sprintf(`
					irmovq $0x020, %%rdi
					irmovq $%s, %%rsi
					xorq %%rdx, %%rdx
					subq %%rdi, %%rsi
					%s %%rdi, %%rdx
					halt
				`, valb, inst)
				simtest.AssertOracleEquivalent(t, src)
			})
		}
	}
}

// TestJumpFamily is scenario 3: every conditional (and unconditional)
// jump against every comparison outcome.
func TestJumpFamily(t *testing.T) {
	insts := []string{"jmp", "jle", "jl", "je", "jne", "jge", "jg"}
	valbs := []string{"0x100", "0x020", "0x004"}
	for _, inst := range insts {
		for _, valb := range valbs {
			name := fmt.Sprintf("%s_%s", inst, valb)
			t.Run(name, func(t *testing.T) {
				src := fmt.Sprintf(`
					irmovq $0x020, %%rdi
					irmovq $%s, %%rsi
					xorq %%rdx, %%rdx
					subq %%rdi, %%rsi
					%s L1
					rrmovq %%rdi, %%rdx
					L1:
					halt
				`, valb, inst)
				simtest.AssertOracleEquivalent(t, src)
			})
		}
	}
}

// sumListSrc is scenario 4: a recursive sum over a singly linked list,
// grounded on original_source's RSUM_YS sample. List values
// {0x00a, 0x0b0, 0xc00}, null-terminated, sum to 0xcba.
const sumListSrc = `
	.pos 0
	irmovq stack, %rsp
	irmovq ele1, %rdi
	call sum_list
	halt

	sum_list:
	andq %rdi, %rdi
	je base
	mrmovq 0(%rdi), %rax
	mrmovq 8(%rdi), %rbx
	pushq %rax
	rrmovq %rbx, %rdi
	call sum_list
	popq %rbx
	addq %rbx, %rax
	ret
	base:
	irmovq $0, %rax
	ret

	.align 8
	ele1:
	.quad 0x00a
	.quad ele2
	ele2:
	.quad 0x0b0
	.quad ele3
	ele3:
	.quad 0xc00
	.quad 0

	.pos 0x200
	stack:
`

func TestSumList(t *testing.T) {
	img := simtest.Assemble(t, sumListSrc)
	want := simtest.Oracle(t, img)
	if want.Regs[isa.RAX] != 0xcba {
		t.Fatalf("oracle itself disagrees with the scenario: rax = 0x%x, want 0xcba", want.Regs[isa.RAX])
	}
	simtest.AssertEquivalent(t, img, want)
}

// TestIOPQ exercises the supplemented immediate-operand ALU opcode
// (SPEC_FULL.md §5) across every built-in architecture.
func TestIOPQ(t *testing.T) {
	ops := []string{"iaddq", "isubq", "iandq", "ixorq"}
	for _, op := range ops {
		t.Run(op, func(t *testing.T) {
			src := fmt.Sprintf(`
				irmovq $0x0f0, %%rbx
				%s $0x00f, %%rbx
				halt
			`, op)
			simtest.AssertOracleEquivalent(t, src)
		})
	}
}
