package isa

// Instruction codes (the high nibble of an instruction's header byte).
// IOPQ is the optional immediate-operand extension used by student work
// (spec.md §6, "used by student work").
const (
	HALT uint8 = iota
	NOP
	CMOVX
	IRMOVQ
	RMMOVQ
	MRMOVQ
	OPQ
	JX
	CALL
	RET
	PUSHQ
	POPQ
	IOPQ
)

// InstLen returns the total length in bytes (header byte included) of
// an instruction given its icode, per the encoding table in spec.md §6.
// Returns 0 for an icode outside the valid set.
func InstLen(icode uint8) int {
	switch icode {
	case HALT, NOP, RET:
		return 1
	case CMOVX, OPQ, PUSHQ, POPQ:
		return 2
	case JX, CALL:
		return 9
	case IRMOVQ, RMMOVQ, MRMOVQ, IOPQ:
		return 10
	default:
		return 0
	}
}

// ValidIcode reports whether icode is one of the instructions the
// fetch stage recognizes.
func ValidIcode(icode uint8) bool {
	switch icode {
	case HALT, NOP, CMOVX, IRMOVQ, RMMOVQ, MRMOVQ, OPQ, JX, CALL, RET, PUSHQ, POPQ, IOPQ:
		return true
	default:
		return false
	}
}

// NeedRegids reports whether the fetched instruction's second byte is a
// register-id byte (rA|rB nibbles).
func NeedRegids(icode uint8) bool {
	switch icode {
	case CMOVX, OPQ, PUSHQ, POPQ, IRMOVQ, RMMOVQ, MRMOVQ, IOPQ:
		return true
	default:
		return false
	}
}

// NeedValC reports whether the fetched instruction carries an 8-byte
// constant (valC).
func NeedValC(icode uint8) bool {
	switch icode {
	case IRMOVQ, RMMOVQ, MRMOVQ, JX, CALL, IOPQ:
		return true
	default:
		return false
	}
}

var icodeNames = [...]string{
	"halt", "nop", "cmovX", "irmovq", "rmmovq", "mrmovq",
	"OPq", "jX", "call", "ret", "pushq", "popq", "iopq",
}

// IcodeName returns the mnemonic stem for icode, for debugger/tracer
// display. Returns "?" for an icode outside the valid set.
func IcodeName(icode uint8) string {
	if int(icode) < len(icodeNames) {
		return icodeNames[icode]
	}
	return "?"
}

// ALU function codes, used both as the OPQ/IOPQ ifun and as the `fun`
// port on the ALU unit.
const (
	ALUAdd uint8 = iota
	ALUSub
	ALUAnd
	ALUXor
)

// Condition function codes, used as the CMOVX/JX ifun and as the `cond`
// port on the condition-tester unit.
const (
	CondYes uint8 = iota
	CondLE
	CondL
	CondE
	CondNE
	CondGE
	CondG
)
