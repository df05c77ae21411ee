package yasm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/y86sim/archlab/isa"
)

var regByName = map[string]uint8{
	"%rax": isa.RAX, "%rcx": isa.RCX, "%rdx": isa.RDX, "%rbx": isa.RBX,
	"%rsp": isa.RSP, "%rbp": isa.RBP, "%rsi": isa.RSI, "%rdi": isa.RDI,
	"%r8": isa.R8, "%r9": isa.R9, "%r10": isa.R10, "%r11": isa.R11,
	"%r12": isa.R12, "%r13": isa.R13, "%r14": isa.R14,
}

func parseRegister(tok string) (uint8, error) {
	if r, ok := regByName[strings.ToLower(tok)]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("not a register: %q", tok)
}

// parseNumber accepts decimal or 0x-prefixed hex, with an optional
// leading sign. Used for .pos/.align moduli and bare immediates.
func parseNumber(tok string) (int64, error) {
	tok = strings.TrimSpace(tok)
	neg := false
	if strings.HasPrefix(tok, "-") {
		neg = true
		tok = tok[1:]
	} else if strings.HasPrefix(tok, "+") {
		tok = tok[1:]
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(tok), "0x"), hexOrDecBase(tok), 64)
	if err != nil {
		return 0, err
	}
	if neg {
		return -int64(v), nil
	}
	return int64(v), nil
}

func hexOrDecBase(tok string) int {
	if strings.HasPrefix(strings.ToLower(tok), "0x") {
		return 16
	}
	return 10
}

// parseValue resolves an immediate or destination operand: a `$`-prefixed
// or bare numeric literal, or a label name looked up in symtab. Labels
// are resolved here (not at parse time) so forward references work.
func parseValue(tok string, symtab map[string]uint64, lineNo int) (uint64, error) {
	bare := strings.TrimPrefix(tok, "$")
	if v, err := parseNumber(bare); err == nil {
		return uint64(v), nil
	}
	if addr, ok := symtab[bare]; ok {
		return addr, nil
	}
	return 0, UndefinedLabelError{Label: bare, Line: lineNo}
}

// parseMemRef parses a `D(rB)` memory operand, e.g. "0(%rsp)" or
// "-8(%rbp)". D may be a bare number or a label.
func parseMemRef(tok string, symtab map[string]uint64, lineNo int) (disp uint64, reg uint8, err error) {
	open := strings.IndexByte(tok, '(')
	if open < 0 || !strings.HasSuffix(tok, ")") {
		return 0, 0, fmt.Errorf("not a memory operand: %q", tok)
	}
	dispTok := strings.TrimSpace(tok[:open])
	regTok := tok[open+1 : len(tok)-1]

	reg, err = parseRegister(regTok)
	if err != nil {
		return 0, 0, err
	}
	if dispTok == "" {
		return 0, reg, nil
	}
	disp, err = parseValue(dispTok, symtab, lineNo)
	return disp, reg, err
}
