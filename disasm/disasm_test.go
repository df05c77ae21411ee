package disasm_test

import (
	"strings"
	"testing"

	"github.com/y86sim/archlab/disasm"
	"github.com/y86sim/archlab/yasm"
)

func TestStep(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"halt", "halt", "0x000: halt"},
		{"irmovq", "irmovq $0x64, %rax", "0x000: irmovq $0x64, %rax"},
		{"addq", "addq %rax, %rbx", "0x000: addq %rax, %rbx"},
		{"iaddq", "iaddq $0x7, %rdx", "0x000: iaddq $0x7, %rdx"},
		{"rmmovq", "rmmovq %rax, 0x8(%rbx)", "0x000: rmmovq %rax, 0x8(%rbx)"},
		{"mrmovq", "mrmovq 0x8(%rbx), %rax", "0x000: mrmovq 0x8(%rbx), %rax"},
		{"cmovg", "cmovg %rax, %rbx", "0x000: cmovg %rax, %rbx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, _, err := yasm.Assemble(tt.src)
			if err != nil {
				t.Fatalf("assemble: %v", err)
			}
			got, _ := disasm.Step(0, img)
			if got != tt.want {
				t.Errorf("Step() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStepUnrecognizedByte(t *testing.T) {
	img, _, err := yasm.Assemble(".quad 0xDEADBEEF")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	got, n := disasm.Step(0, img)
	if n != 1 {
		t.Errorf("n = %d, want 1", n)
	}
	if !strings.HasPrefix(got, "0x000: .byte 0x") {
		t.Errorf("Step() = %q, want .byte form", got)
	}
}
