package hw

import "github.com/y86sim/archlab/isa"

// RegisterFileIn is the input port set for the merged register-file
// unit: two read ports and two write ports, evaluated write-then-read
// within the same cycle so a same-cycle writeback is visible to a
// decode that reads the same register (spec.md §4.1, "reg_file").
type RegisterFileIn struct {
	SrcA, SrcB uint8
	DstE, DstM uint8
	ValE, ValM uint64
}

// RegisterFileOut is the output port set for the merged register-file
// unit.
type RegisterFileOut struct {
	ValA, ValB uint64
}

// RegisterFile is the `reg_file` unit used by architectures with a
// single combined register-file stage (pipe_std): writes from the W
// stage land before reads for the newly-fetched instruction are taken,
// modeling the write-before-read behavior of a real register file
// clocked once per cycle.
type RegisterFile struct {
	regs isa.RegFile
}

// Eval implements the reg_file unit contract.
func (u *RegisterFile) Eval(in RegisterFileIn) RegisterFileOut {
	u.regs.Set(in.DstE, in.ValE)
	u.regs.Set(in.DstM, in.ValM)
	return RegisterFileOut{
		ValA: u.regs.Get(in.SrcA),
		ValB: u.regs.Get(in.SrcB),
	}
}

// Snapshot returns the current architectural register contents.
func (u *RegisterFile) Snapshot() isa.RegFile {
	return u.regs
}

// RegisterReadIn is the input port set for the split register-file's
// read-only half, used by architectures with no same-cycle writeback
// forwarding (seq_std, seq_plus_std).
type RegisterReadIn struct {
	SrcA, SrcB uint8
}

// RegisterReadOut is the output port set for the register-read unit.
type RegisterReadOut struct {
	ValA, ValB uint64
}

// RegisterRead is the `reg_read` unit: a pure read over state owned by
// a paired RegisterWrite unit.
type RegisterRead struct {
	Regs *isa.RegFile
}

// Eval implements the reg_read unit contract.
func (u RegisterRead) Eval(in RegisterReadIn) RegisterReadOut {
	return RegisterReadOut{
		ValA: u.Regs.Get(in.SrcA),
		ValB: u.Regs.Get(in.SrcB),
	}
}

// RegisterWriteIn is the input port set for the register-write unit.
type RegisterWriteIn struct {
	DstE, DstM uint8
	ValE, ValM uint64
}

// RegisterWrite is the `reg_write` unit: writes committed architectural
// state that the paired RegisterRead unit reads on the following cycle.
type RegisterWrite struct {
	Regs *isa.RegFile
}

// Eval implements the reg_write unit contract. It has no outputs; it
// exists purely for its side effect on the shared register file.
func (u RegisterWrite) Eval(in RegisterWriteIn) {
	u.Regs.Set(in.DstE, in.ValE)
	u.Regs.Set(in.DstM, in.ValM)
}
