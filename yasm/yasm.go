// Package yasm is the minimal internal Y86-64 assembler used to build
// memory images for the test harness. It is not the general-purpose
// assembler spec.md documents as an external collaborator (§6); it
// implements exactly the mnemonic/label/directive surface the harness's
// own test programs need: register-register, register-immediate, and
// register-memory operand forms, `.pos`/`.align`/`.quad` directives,
// labels, and `#` comments.
package yasm

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/mem"
)

// SyntaxError reports a line this assembler could not parse.
type SyntaxError struct {
	Line int
	Text string
	Msg  string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("yasm: line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// UndefinedLabelError reports a reference to a label no `.pos`-reachable
// line ever defines.
type UndefinedLabelError struct {
	Label string
	Line  int
}

func (e UndefinedLabelError) Error() string {
	return fmt.Sprintf("yasm: line %d: undefined label %q", e.Line, e.Label)
}

// LineInfo is one source line's contribution to the assembled image: the
// address it starts at, the bytes it encoded (nil for a label-only or
// blank line), and the original source text, for FormatObject.
type LineInfo struct {
	Addr   uint64
	Bytes  []byte
	Source string
}

type stmtKind int

const (
	stmtEmpty stmtKind = iota
	stmtPos
	stmtAlign
	stmtQuad
	stmtInstr
)

type statement struct {
	lineNo   int
	source   string
	label    string
	kind     stmtKind
	mnemonic string
	operands []string
	addr     uint64
	length   int
}

// Assemble parses src as a Y86-64 program and returns the resulting
// 64 KiB memory image together with the per-line encoding trace
// FormatObject renders. Assembly proceeds in two passes so that forward
// references to labels (a call to a function defined later, a backward
// or forward branch target) resolve correctly.
func Assemble(src string) (*mem.Image, []LineInfo, error) {
	stmts, err := parseLines(src)
	if err != nil {
		return nil, nil, err
	}

	symtab, err := resolveAddresses(stmts)
	if err != nil {
		return nil, nil, err
	}

	img := mem.New()
	lines := make([]LineInfo, len(stmts))
	for i, st := range stmts {
		data, err := encode(st, symtab)
		if err != nil {
			return nil, nil, err
		}
		if len(data) > 0 {
			copy(img.ReadRange(st.addr, len(data)), data)
		}
		lines[i] = LineInfo{Addr: st.addr, Bytes: data, Source: st.source}
	}
	return img, lines, nil
}

// FormatObject renders lines the way the external assembler's object
// format does (spec.md §6): one `addr: bytes | source` row per input
// line, hex bytes left-aligned in a fixed-width column so the source
// column stays aligned across an object file.
func FormatObject(lines []LineInfo) string {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "0x%03x: %-20s | %s\n", l.Addr, hex.EncodeToString(l.Bytes), l.Source)
	}
	return b.String()
}

func parseLines(src string) ([]statement, error) {
	var stmts []statement
	for i, raw := range strings.Split(src, "\n") {
		lineNo := i + 1
		line := raw
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)

		label := ""
		if idx := strings.IndexByte(line, ':'); idx >= 0 {
			label = strings.TrimSpace(line[:idx])
			line = strings.TrimSpace(line[idx+1:])
		}

		st := statement{lineNo: lineNo, source: strings.TrimRight(raw, " \t\r"), label: label}
		if line == "" {
			st.kind = stmtEmpty
			stmts = append(stmts, st)
			continue
		}

		fields := strings.Fields(line)
		mnemonic := strings.ToLower(fields[0])
		rest := strings.TrimSpace(line[len(fields[0]):])
		operands := splitOperands(rest)

		switch mnemonic {
		case ".pos":
			st.kind = stmtPos
			st.operands = operands
		case ".align":
			st.kind = stmtAlign
			st.operands = operands
		case ".quad":
			st.kind = stmtQuad
			st.operands = operands
		default:
			if _, ok := mnemonics[mnemonic]; !ok {
				return nil, SyntaxError{Line: lineNo, Text: raw, Msg: "unknown mnemonic or directive"}
			}
			st.kind = stmtInstr
			st.mnemonic = mnemonic
			st.operands = operands
		}
		stmts = append(stmts, st)
	}
	return stmts, nil
}

func splitOperands(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveAddresses walks every statement in source order, assigning
// each one its starting address and recording label definitions, and
// returns the completed symbol table. It does not resolve operand
// values: that happens in encode, once every label is known.
func resolveAddresses(stmts []statement) (map[string]uint64, error) {
	symtab := map[string]uint64{}
	pc := uint64(0)

	for i := range stmts {
		st := &stmts[i]
		if st.label != "" {
			if _, dup := symtab[st.label]; dup {
				return nil, SyntaxError{Line: st.lineNo, Text: st.source, Msg: "duplicate label " + st.label}
			}
			symtab[st.label] = pc
		}

		st.addr = pc
		switch st.kind {
		case stmtEmpty:
			st.length = 0
		case stmtPos:
			if len(st.operands) != 1 {
				return nil, SyntaxError{Line: st.lineNo, Text: st.source, Msg: ".pos takes exactly one address"}
			}
			v, err := parseNumber(st.operands[0])
			if err != nil {
				return nil, SyntaxError{Line: st.lineNo, Text: st.source, Msg: err.Error()}
			}
			pc = uint64(v)
			st.addr = pc
			st.length = 0
			continue
		case stmtAlign:
			if len(st.operands) != 1 {
				return nil, SyntaxError{Line: st.lineNo, Text: st.source, Msg: ".align takes exactly one modulus"}
			}
			n, err := parseNumber(st.operands[0])
			if err != nil || n <= 0 {
				return nil, SyntaxError{Line: st.lineNo, Text: st.source, Msg: ".align modulus must be a positive integer"}
			}
			if rem := pc % uint64(n); rem != 0 {
				pc += uint64(n) - rem
			}
			st.addr = pc
			st.length = 0
			continue
		case stmtQuad:
			st.length = 8
		case stmtInstr:
			st.length = isa.InstLen(mnemonics[st.mnemonic].icode)
		}
		pc += uint64(st.length)
	}
	return symtab, nil
}
