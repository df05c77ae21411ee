package yasm

import (
	"fmt"

	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/mem"
)

// encode produces the bytes statement st contributes to the image. Labels
// referenced by st are resolved against the fully-built symtab, so
// forward references (a branch to a label defined later in the file)
// work regardless of source order.
func encode(st statement, symtab map[string]uint64) ([]byte, error) {
	switch st.kind {
	case stmtEmpty, stmtPos, stmtAlign:
		return nil, nil

	case stmtQuad:
		if len(st.operands) != 1 {
			return nil, SyntaxError{Line: st.lineNo, Text: st.source, Msg: ".quad takes exactly one value"}
		}
		v, err := parseValue(st.operands[0], symtab, st.lineNo)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 8)
		mem.PutU64(b, v)
		return b, nil

	case stmtInstr:
		return encodeInstr(st, symtab)
	}
	return nil, nil
}

func encodeInstr(st statement, symtab map[string]uint64) ([]byte, error) {
	info := mnemonics[st.mnemonic]
	header := info.icode<<4 | info.ifun

	switch info.operands {
	case operandNone:
		if len(st.operands) != 0 {
			return nil, wrongArity(st, 0)
		}
		return []byte{header}, nil

	case operandReg:
		if len(st.operands) != 1 {
			return nil, wrongArity(st, 1)
		}
		rA, err := parseRegister(st.operands[0])
		if err != nil {
			return nil, syntaxErr(st, err)
		}
		return []byte{header, rA<<4 | isa.RNONE}, nil

	case operandRegReg:
		if len(st.operands) != 2 {
			return nil, wrongArity(st, 2)
		}
		rA, err := parseRegister(st.operands[0])
		if err != nil {
			return nil, syntaxErr(st, err)
		}
		rB, err := parseRegister(st.operands[1])
		if err != nil {
			return nil, syntaxErr(st, err)
		}
		return []byte{header, rA<<4 | rB}, nil

	case operandImmReg:
		if len(st.operands) != 2 {
			return nil, wrongArity(st, 2)
		}
		v, err := parseValue(st.operands[0], symtab, st.lineNo)
		if err != nil {
			return nil, err
		}
		rB, err := parseRegister(st.operands[1])
		if err != nil {
			return nil, syntaxErr(st, err)
		}
		out := make([]byte, 2, 10)
		out[0] = header
		out[1] = isa.RNONE<<4 | rB
		out = append(out, encodeU64(v)...)
		return out, nil

	case operandRegMem:
		if len(st.operands) != 2 {
			return nil, wrongArity(st, 2)
		}
		rA, err := parseRegister(st.operands[0])
		if err != nil {
			return nil, syntaxErr(st, err)
		}
		disp, rB, err := parseMemRef(st.operands[1], symtab, st.lineNo)
		if err != nil {
			return nil, syntaxErr(st, err)
		}
		out := make([]byte, 2, 10)
		out[0] = header
		out[1] = rA<<4 | rB
		out = append(out, encodeU64(disp)...)
		return out, nil

	case operandMemReg:
		if len(st.operands) != 2 {
			return nil, wrongArity(st, 2)
		}
		disp, rB, err := parseMemRef(st.operands[0], symtab, st.lineNo)
		if err != nil {
			return nil, syntaxErr(st, err)
		}
		rA, err := parseRegister(st.operands[1])
		if err != nil {
			return nil, syntaxErr(st, err)
		}
		out := make([]byte, 2, 10)
		out[0] = header
		out[1] = rA<<4 | rB
		out = append(out, encodeU64(disp)...)
		return out, nil

	case operandDest:
		if len(st.operands) != 1 {
			return nil, wrongArity(st, 1)
		}
		v, err := parseValue(st.operands[0], symtab, st.lineNo)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 1, 9)
		out[0] = header
		out = append(out, encodeU64(v)...)
		return out, nil
	}
	return nil, fmt.Errorf("yasm: unreachable operand kind for %q", st.mnemonic)
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	mem.PutU64(b, v)
	return b
}

func wrongArity(st statement, want int) error {
	return SyntaxError{Line: st.lineNo, Text: st.source, Msg: fmt.Sprintf("%s takes %d operand(s)", st.mnemonic, want)}
}

func syntaxErr(st statement, err error) error {
	return SyntaxError{Line: st.lineNo, Text: st.source, Msg: err.Error()}
}
