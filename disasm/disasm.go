// Package disasm implements a disassembler for the Y86-64 opcode table
// (spec.md §6): given a program counter and a memory image, Step
// decodes exactly one instruction and reports its text and byte
// length, the same Step(pc, mem) -> (string, count) shape
// disassemble.Step uses for the 6502, adapted to Y86-64's
// header-byte-plus-regids-plus-valC instruction shapes instead of an
// addressing-mode table.
package disasm

import (
	"fmt"

	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/mem"
)

var cmovNames = []string{"rrmovq", "cmovle", "cmovl", "cmove", "cmovne", "cmovge", "cmovg"}
var jumpNames = []string{"jmp", "jle", "jl", "je", "jne", "jge", "jg"}
var aluNames = []string{"addq", "subq", "andq", "xorq"}
var ialuNames = []string{"iaddq", "isubq", "iandq", "ixorq"}

// Step decodes the instruction at pc and returns its disassembled text
// (prefixed with its address, the way disassemble.Step prefixes each
// line with the PC) and the number of bytes it occupies. A header byte
// that isn't a valid icode disassembles as a raw .byte directive and
// advances one byte rather than stopping, mirroring disassemble.Step's
// "UNIMPLEMENTED" fallthrough.
func Step(pc uint64, img *mem.Image) (string, int) {
	header := img.ReadByte(pc)
	icode, ifun := header>>4, header&0xF
	if !isa.ValidIcode(icode) {
		return fmt.Sprintf("0x%03x: .byte 0x%02x", pc, header), 1
	}

	rA, rB := isa.RNONE, isa.RNONE
	var valC uint64
	next := pc + 1
	if isa.NeedRegids(icode) {
		regids := img.ReadByte(next)
		rA, rB = regids>>4, regids&0xF
		next++
	}
	if isa.NeedValC(icode) {
		valC = mem.GetU64(img.ReadRange(next, 8))
	}

	return fmt.Sprintf("0x%03x: %s", pc, formatInstr(icode, ifun, rA, rB, valC)), isa.InstLen(icode)
}

func formatInstr(icode, ifun, rA, rB uint8, valC uint64) string {
	switch icode {
	case isa.HALT:
		return "halt"
	case isa.NOP:
		return "nop"
	case isa.RET:
		return "ret"
	case isa.CMOVX:
		return fmt.Sprintf("%s %s, %s", mnemonic(cmovNames, ifun), isa.RegName(rA), isa.RegName(rB))
	case isa.IRMOVQ:
		return fmt.Sprintf("irmovq $0x%x, %s", valC, isa.RegName(rB))
	case isa.RMMOVQ:
		return fmt.Sprintf("rmmovq %s, 0x%x(%s)", isa.RegName(rA), valC, isa.RegName(rB))
	case isa.MRMOVQ:
		return fmt.Sprintf("mrmovq 0x%x(%s), %s", valC, isa.RegName(rB), isa.RegName(rA))
	case isa.OPQ:
		return fmt.Sprintf("%s %s, %s", mnemonic(aluNames, ifun), isa.RegName(rA), isa.RegName(rB))
	case isa.IOPQ:
		return fmt.Sprintf("%s $0x%x, %s", mnemonic(ialuNames, ifun), valC, isa.RegName(rB))
	case isa.JX:
		return fmt.Sprintf("%s 0x%x", mnemonic(jumpNames, ifun), valC)
	case isa.CALL:
		return fmt.Sprintf("call 0x%x", valC)
	case isa.PUSHQ:
		return fmt.Sprintf("pushq %s", isa.RegName(rA))
	case isa.POPQ:
		return fmt.Sprintf("popq %s", isa.RegName(rA))
	default:
		return isa.IcodeName(icode)
	}
}

func mnemonic(names []string, ifun uint8) string {
	if int(ifun) < len(names) {
		return names[ifun]
	}
	return fmt.Sprintf("?ifun(%d)", ifun)
}
