package hw

import "github.com/y86sim/archlab/isa"

// ALUIn is the input port set for the ALU unit.
type ALUIn struct {
	A, B uint64
	Fun  uint8
}

// ALUOut is the output port set for the ALU unit.
type ALUOut struct {
	E uint64
}

// ALU is the `alu` unit.
type ALU struct{}

// Eval implements the alu unit contract.
func (ALU) Eval(in ALUIn) ALUOut {
	return ALUOut{E: isa.Arithmetic(in.A, in.B, in.Fun)}
}

// RegisterCCIn is the input port set for the condition-code unit.
type RegisterCCIn struct {
	SetCC bool
	A, B  uint64
	E     uint64
	OpFun uint8
}

// RegisterCCOut is the output port set for the condition-code unit.
type RegisterCCOut struct {
	CC isa.ConditionCode
}

// RegisterCC is the `reg_cc` unit: holds the live condition-code latch
// and updates it only when commanded, so speculative ALU activity never
// clobbers it (spec.md §7's speculative-write-suppression invariant).
type RegisterCC struct {
	cc isa.ConditionCode
}

// Eval implements the reg_cc unit contract.
func (u *RegisterCC) Eval(in RegisterCCIn) RegisterCCOut {
	if in.SetCC {
		u.cc.Set(in.A, in.B, in.E, in.OpFun)
	}
	return RegisterCCOut{CC: u.cc}
}

// ConditionIn is the input port set for the condition-tester unit.
type ConditionIn struct {
	CC      isa.ConditionCode
	CondFun uint8
}

// ConditionOut is the output port set for the condition-tester unit.
type ConditionOut struct {
	Cnd bool
}

// Condition is the `cond` unit.
type Condition struct{}

// Eval implements the cond unit contract.
func (Condition) Eval(in ConditionIn) ConditionOut {
	return ConditionOut{Cnd: in.CC.Test(in.CondFun)}
}
