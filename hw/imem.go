// Package hw is the hardware-unit library: the fixed set of
// combinational/stateful blocks every microarchitecture description is
// built from (spec.md §4.1). Each unit exposes typed input and output
// ports and a pure Eval method from (inputs, state) to outputs; state
// is either a shared handle (the memory image, the register file) or
// unit-local (the condition-code latch).
package hw

import (
	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/mem"
)

// InstructionMemoryIn is the input port set for the instruction-memory
// unit.
type InstructionMemoryIn struct {
	PC uint64
}

// InstructionMemoryOut is the output port set for the instruction-memory
// unit.
type InstructionMemoryOut struct {
	Error bool
	Icode uint8
	Ifun  uint8
	Align [9]byte
}

// InstructionMemory is the `imem` unit: reads one header byte plus the
// 9 bytes following it, unconditionally, regardless of how many of
// those bytes the fetched instruction actually uses.
type InstructionMemory struct {
	Binary *mem.Image
}

// Eval implements the imem unit contract (spec.md §4.1).
func (u InstructionMemory) Eval(in InstructionMemoryIn) InstructionMemoryOut {
	var out InstructionMemoryOut
	if in.PC > mem.Size-10 {
		out.Error = true
		return out
	}
	header := u.Binary.ReadByte(in.PC)
	out.Icode = header >> 4
	out.Ifun = header & 0xF
	copy(out.Align[:], u.Binary.ReadRange(in.PC+1, 9))
	return out
}

// AlignIn is the input port set for the alignment-extractor unit.
type AlignIn struct {
	NeedRegids bool
	Align      [9]byte
}

// AlignOut is the output port set for the alignment-extractor unit.
type AlignOut struct {
	RA   uint8
	RB   uint8
	ValC uint64
}

// Align is the `ialign` unit: splits the post-header bytes into
// register ids and/or a little-endian constant, depending on whether
// the fetched instruction needs register ids.
type Align struct{}

// Eval implements the ialign unit contract.
func (Align) Eval(in AlignIn) AlignOut {
	var out AlignOut
	if in.NeedRegids {
		out.RA = in.Align[0] >> 4
		out.RB = in.Align[0] & 0xF
		out.ValC = mem.GetU64(in.Align[1:9])
	} else {
		out.RA = isa.RNONE
		out.RB = isa.RNONE
		out.ValC = mem.GetU64(in.Align[0:8])
	}
	return out
}

// PCIncrementIn is the input port set for the PC-incrementer unit.
type PCIncrementIn struct {
	NeedValC   bool
	NeedRegids bool
	OldPC      uint64
}

// PCIncrementOut is the output port set for the PC-incrementer unit.
type PCIncrementOut struct {
	NewPC uint64
}

// PCIncrement is the `pc_inc` unit.
type PCIncrement struct{}

// Eval implements the pc_inc unit contract.
func (PCIncrement) Eval(in PCIncrementIn) PCIncrementOut {
	next := in.OldPC + 1
	if in.NeedRegids {
		next++
	}
	if in.NeedValC {
		next += 8
	}
	return PCIncrementOut{NewPC: next}
}
