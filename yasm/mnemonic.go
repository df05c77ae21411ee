package yasm

import "github.com/y86sim/archlab/isa"

type operandKind int

const (
	operandNone    operandKind = iota // halt, nop, ret
	operandRegReg                     // rrmovq/cmovX/opq: rA,rB
	operandImmReg                     // irmovq/iopq: V,rB
	operandRegMem                     // rmmovq: rA,D(rB)
	operandMemReg                     // mrmovq: D(rB),rA
	operandDest                       // jX/call: Dest
	operandReg                        // pushq/popq: rA
)

type mnemonicInfo struct {
	icode, ifun uint8
	operands    operandKind
}

// mnemonics is the assembler's entire instruction vocabulary: the
// standard Y86-64 mnemonics plus the iNNNq family for IOPQ, the
// supplemented immediate-operand opcode (SPEC_FULL.md §5).
var mnemonics = map[string]mnemonicInfo{
	"halt": {isa.HALT, 0, operandNone},
	"nop":  {isa.NOP, 0, operandNone},
	"ret":  {isa.RET, 0, operandNone},

	"rrmovq": {isa.CMOVX, isa.CondYes, operandRegReg},
	"cmovle": {isa.CMOVX, isa.CondLE, operandRegReg},
	"cmovl":  {isa.CMOVX, isa.CondL, operandRegReg},
	"cmove":  {isa.CMOVX, isa.CondE, operandRegReg},
	"cmovne": {isa.CMOVX, isa.CondNE, operandRegReg},
	"cmovge": {isa.CMOVX, isa.CondGE, operandRegReg},
	"cmovg":  {isa.CMOVX, isa.CondG, operandRegReg},

	"irmovq": {isa.IRMOVQ, 0, operandImmReg},
	"rmmovq": {isa.RMMOVQ, 0, operandRegMem},
	"mrmovq": {isa.MRMOVQ, 0, operandMemReg},

	"addq": {isa.OPQ, isa.ALUAdd, operandRegReg},
	"subq": {isa.OPQ, isa.ALUSub, operandRegReg},
	"andq": {isa.OPQ, isa.ALUAnd, operandRegReg},
	"xorq": {isa.OPQ, isa.ALUXor, operandRegReg},

	"iaddq": {isa.IOPQ, isa.ALUAdd, operandImmReg},
	"isubq": {isa.IOPQ, isa.ALUSub, operandImmReg},
	"iandq": {isa.IOPQ, isa.ALUAnd, operandImmReg},
	"ixorq": {isa.IOPQ, isa.ALUXor, operandImmReg},

	"jmp": {isa.JX, isa.CondYes, operandDest},
	"jle": {isa.JX, isa.CondLE, operandDest},
	"jl":  {isa.JX, isa.CondL, operandDest},
	"je":  {isa.JX, isa.CondE, operandDest},
	"jne": {isa.JX, isa.CondNE, operandDest},
	"jge": {isa.JX, isa.CondGE, operandDest},
	"jg":  {isa.JX, isa.CondG, operandDest},

	"call":  {isa.CALL, 0, operandDest},
	"pushq": {isa.PUSHQ, 0, operandReg},
	"popq":  {isa.POPQ, 0, operandReg},
}
