package isa

// Arithmetic computes the Y86-64 ALU function `fun` over operands a
// (the "near" operand, e.g. a register source or a constant) and b
// (the "far" operand, conventionally the destination register's
// current value). SUB follows the Y86-64 convention of computing
// b - a, not a - b, so that "subq rA, rB" yields rB - rA when the
// caller wires a=valA(rA), b=valB(rB). Undefined function codes yield
// 0, as if the hardware had no defined behavior.
func Arithmetic(a, b uint64, fun uint8) uint64 {
	switch fun {
	case ALUAdd:
		return a + b
	case ALUSub:
		return b - a
	case ALUAnd:
		return a & b
	case ALUXor:
		return a ^ b
	default:
		return 0
	}
}
