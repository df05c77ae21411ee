package isa

import (
	"fmt"

	"github.com/y86sim/archlab/mem"
)

// StandardResult is the (register file, memory) pair produced by
// deterministically interpreting a program to termination. Every
// built-in architecture must reproduce it exactly for any valid
// program (spec.md §8's universal invariant).
type StandardResult struct {
	Regs RegFile
	Bin  [mem.Size]byte
	Stat Stat
}

// AddressError reports that the instruction or data memory reference
// at PC fell outside the valid range.
type AddressError struct {
	PC uint64
}

func (e AddressError) Error() string {
	return fmt.Sprintf("isa: invalid memory reference near pc=0x%x", e.PC)
}

// InstructionError reports an undecodable icode.
type InstructionError struct {
	PC    uint64
	Icode uint8
}

func (e InstructionError) Error() string {
	return fmt.Sprintf("isa: invalid instruction code 0x%x at pc=0x%x", e.Icode, e.PC)
}

// ExceededStepsError reports that the reference interpreter ran past
// its step budget without halting, mirroring the test harness's own
// maximum-cycle guard (spec.md §5, "cancellation/timeouts are
// external").
type ExceededStepsError struct {
	Steps uint64
}

func (e ExceededStepsError) Error() string {
	return fmt.Sprintf("isa: exceeded maximum step count (%d)", e.Steps)
}

// decoded holds one fetched-and-aligned instruction.
type decoded struct {
	icode, ifun uint8
	rA, rB      uint8
	valC        uint64
	valP        uint64 // address of the following instruction
}

func fetch(img *mem.Image, pc uint64) (decoded, bool) {
	if pc > mem.Size-10 {
		return decoded{}, false
	}
	header := img.ReadByte(pc)
	d := decoded{
		icode: header >> 4,
		ifun:  header & 0xF,
		rA:    RNONE,
		rB:    RNONE,
	}
	next := pc + 1
	if NeedRegids(d.icode) {
		regByte := img.ReadByte(next)
		d.rA = regByte >> 4
		d.rB = regByte & 0xF
		next++
	}
	if NeedValC(d.icode) {
		d.valC = img.ReadU64(next)
		next += 8
	}
	d.valP = next
	return d, true
}

// Simulate interprets the Y86-64 program stored in img from address 0
// until it halts, faults, or exceeds maxSteps instructions, and returns
// the resulting architectural state. This is the correctness oracle
// every hardware description is checked against.
func Simulate(img *mem.Image, maxSteps uint64) (StandardResult, error) {
	var regs RegFile
	var cc ConditionCode
	pc := uint64(0)

	for steps := uint64(0); ; steps++ {
		if steps > maxSteps {
			return snapshot(regs, img, Aok), ExceededStepsError{Steps: maxSteps}
		}

		d, ok := fetch(img, pc)
		if !ok {
			return snapshot(regs, img, Adr), AddressError{PC: pc}
		}
		if !ValidIcode(d.icode) {
			return snapshot(regs, img, Ins), InstructionError{PC: pc, Icode: d.icode}
		}

		nextPC := d.valP

		switch d.icode {
		case HALT:
			return snapshot(regs, img, Hlt), nil

		case NOP:
			// nothing to do

		case CMOVX:
			if cc.Test(d.ifun) {
				regs.Set(d.rB, regs.Get(d.rA))
			}

		case IRMOVQ:
			regs.Set(d.rB, d.valC)

		case RMMOVQ:
			addr := regs.Get(d.rB) + d.valC
			if addr >= mem.Size-8 {
				return snapshot(regs, img, Adr), AddressError{PC: pc}
			}
			img.WriteU64(addr, regs.Get(d.rA))

		case MRMOVQ:
			addr := regs.Get(d.rB) + d.valC
			if addr >= mem.Size-8 {
				return snapshot(regs, img, Adr), AddressError{PC: pc}
			}
			regs.Set(d.rA, img.ReadU64(addr))

		case OPQ:
			a, b := regs.Get(d.rA), regs.Get(d.rB)
			e := Arithmetic(a, b, d.ifun)
			cc.Set(a, b, e, d.ifun)
			regs.Set(d.rB, e)

		case IOPQ:
			a, b := d.valC, regs.Get(d.rB)
			e := Arithmetic(a, b, d.ifun)
			cc.Set(a, b, e, d.ifun)
			regs.Set(d.rB, e)

		case JX:
			if cc.Test(d.ifun) {
				nextPC = d.valC
			}

		case CALL:
			sp := regs.Get(RSP) + Neg8
			if sp >= mem.Size-8 {
				return snapshot(regs, img, Adr), AddressError{PC: pc}
			}
			img.WriteU64(sp, d.valP)
			regs.Set(RSP, sp)
			nextPC = d.valC

		case RET:
			sp := regs.Get(RSP)
			if sp >= mem.Size-8 {
				return snapshot(regs, img, Adr), AddressError{PC: pc}
			}
			retAddr := img.ReadU64(sp)
			regs.Set(RSP, sp+8)
			nextPC = retAddr

		case PUSHQ:
			sp := regs.Get(RSP) + Neg8
			if sp >= mem.Size-8 {
				return snapshot(regs, img, Adr), AddressError{PC: pc}
			}
			img.WriteU64(sp, regs.Get(d.rA))
			regs.Set(RSP, sp)

		case POPQ:
			sp := regs.Get(RSP)
			if sp >= mem.Size-8 {
				return snapshot(regs, img, Adr), AddressError{PC: pc}
			}
			val := img.ReadU64(sp)
			regs.Set(RSP, sp+8)
			regs.Set(d.rA, val)

		default:
			return snapshot(regs, img, Ins), InstructionError{PC: pc, Icode: d.icode}
		}

		pc = nextPC
	}
}

func snapshot(regs RegFile, img *mem.Image, stat Stat) StandardResult {
	return StandardResult{Regs: regs, Bin: img.Snapshot(), Stat: stat}
}
