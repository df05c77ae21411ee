// Package seqstd implements the unpipelined "SEQ" architecture: one
// stage register holding only the program counter, with every
// instruction fetched, decoded, executed, and written back within a
// single simulated cycle (spec.md §4.6). The next program counter is
// computed from this cycle's own outcome, unlike seqplusstd, which
// defers that computation to the following cycle.
package seqstd

import (
	"github.com/y86sim/archlab/framework"
	"github.com/y86sim/archlab/graph"
	"github.com/y86sim/archlab/hw"
	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/mem"
	"github.com/y86sim/archlab/stage"
)

// Name identifies this architecture in the registry.
const Name = "seq_std"

// sReg is the single stage register this architecture carries across
// cycles: the address of the next instruction to fetch.
type sReg struct {
	PC uint64
}

// wires holds every intermediate and unit-port value computed during
// one evaluation of the propagation graph. It plays the role the
// reference compiler gives to its generated UnitIn/UnitOut/Inter
// records: a single, reused scratch area the scheduled closures read
// from and write into.
type wires struct {
	imemErr              bool
	imemIcode, imemIfun  uint8
	align                [9]byte

	icode, ifun          uint8
	instrValid           bool
	needRegids, needValC bool

	alignRA, alignRB uint8
	alignValC        uint64
	valP             uint64

	srcA, srcB uint8
	valA, valB uint64

	aluA, aluB uint64
	aluFun     uint8
	valE       uint64
	setCC      bool
	cc         isa.ConditionCode
	cnd        bool

	dstE, dstM uint8

	memRead, memWrite bool
	memAddr, memData  uint64
	valM              uint64
	dmemErr           bool

	stat     isa.Stat
	progTerm bool
	newPC    uint64
}

// CPU is one running instance of the SEQ architecture.
type CPU struct {
	order *graph.Order
	s     *stage.Register[sReg]

	imem  hw.InstructionMemory
	align hw.Align
	pcInc hw.PCIncrement
	rr    hw.RegisterRead
	rw    hw.RegisterWrite
	alu   hw.ALU
	regcc hw.RegisterCC
	cond  hw.Condition
	dmem  hw.DataMemory

	regs isa.RegFile
	w    wires

	cycles     uint64
	terminated bool
}

// New builds a SEQ CPU over the given memory image.
func New(img *mem.Image) (*CPU, error) {
	c := &CPU{s: stage.NewRegister("S", sReg{})}
	c.imem = hw.InstructionMemory{Binary: img}
	c.dmem = hw.DataMemory{Binary: img}
	c.rr = hw.RegisterRead{Regs: &c.regs}
	c.rw = hw.RegisterWrite{Regs: &c.regs}

	b := graph.NewBuilder()
	b.External("S.PC")

	b.Unit("imem", []string{"S.PC"}, []string{"icode", "ifun", "align", "error"}, c.evalImem)

	b.Signal("icode", []string{"imem.error", "imem.icode"}, c.evalIcode)
	b.Signal("ifun", []string{"imem.error", "imem.ifun"}, c.evalIfun)
	b.Signal("instr_valid", []string{"icode"}, c.evalInstrValid)
	b.Signal("need_regids", []string{"icode"}, c.evalNeedRegids)
	b.Signal("need_valC", []string{"icode"}, c.evalNeedValC)

	b.Unit("pc_inc", []string{"need_valC", "need_regids", "S.PC"}, []string{"new_pc"}, c.evalPCInc)
	b.Unit("ialign", []string{"imem.align", "need_regids"}, []string{"rA", "rB", "valC"}, c.evalAlign)

	b.Signal("srcA", []string{"icode", "ialign.rA"}, c.evalSrcA)
	b.Signal("srcB", []string{"icode", "ialign.rB"}, c.evalSrcB)

	b.Unit("reg_read", []string{"srcA", "srcB"}, []string{"valA", "valB"}, c.evalRegRead)

	b.Signal("aluA", []string{"icode", "reg_read.valA", "ialign.valC"}, c.evalAluA)
	b.Signal("aluB", []string{"icode", "reg_read.valB"}, c.evalAluB)
	b.Signal("alufun", []string{"icode", "ifun"}, c.evalAluFun)

	b.Unit("alu", []string{"aluA", "aluB", "alufun"}, []string{"e"}, c.evalALU)

	b.Signal("set_cc", []string{"icode"}, c.evalSetCC)

	b.Unit("reg_cc", []string{"set_cc", "aluA", "aluB", "alu.e", "alufun"}, []string{"cc"}, c.evalRegCC)
	b.Unit("cond", []string{"reg_cc.cc", "ifun"}, []string{"cnd"}, c.evalCond)

	b.Signal("dstE", []string{"icode", "cond.cnd", "ialign.rB"}, c.evalDstE)
	b.Signal("dstM", []string{"icode", "ialign.rA"}, c.evalDstM)

	b.Signal("mem_read", []string{"icode"}, c.evalMemRead)
	b.Signal("mem_write", []string{"icode"}, c.evalMemWrite)
	b.Signal("mem_addr", []string{"icode", "alu.e", "reg_read.valA"}, c.evalMemAddr)
	b.Signal("mem_data", []string{"icode", "reg_read.valA", "pc_inc.new_pc"}, c.evalMemData)

	b.Unit("dmem", []string{"mem_addr", "mem_data", "mem_read", "mem_write"}, []string{"dataout", "error"}, c.evalDMem)

	b.Unit("reg_write", []string{"dstE", "dstM", "alu.e", "dmem.dataout"}, nil, c.evalRegWrite)

	b.Signal("stat", []string{"imem.error", "dmem.error", "instr_valid", "icode"}, c.evalStat)
	b.Signal("prog_term", []string{"stat"}, c.evalProgTerm)
	b.Signal("next_pc", []string{"icode", "ialign.valC", "cond.cnd", "dmem.dataout", "pc_inc.new_pc"}, c.evalNextPC)

	order, err := b.Build()
	if err != nil {
		return nil, err
	}
	c.order = order
	return c, nil
}

func (c *CPU) evalImem() {
	out := c.imem.Eval(hw.InstructionMemoryIn{PC: c.s.Current().PC})
	c.w.align = out.Align
	c.w.imemErr = out.Error
	c.w.imemIcode = out.Icode
	c.w.imemIfun = out.Ifun
}

func (c *CPU) evalIcode() {
	if c.w.imemErr {
		c.w.icode = isa.NOP
		return
	}
	c.w.icode = c.w.imemIcode
}

func (c *CPU) evalIfun() {
	if c.w.imemErr {
		c.w.ifun = 0
		return
	}
	c.w.ifun = c.w.imemIfun
}

func (c *CPU) evalInstrValid() {
	c.w.instrValid = isa.ValidIcode(c.w.icode)
}

func (c *CPU) evalNeedRegids() {
	c.w.needRegids = isa.NeedRegids(c.w.icode)
}

func (c *CPU) evalNeedValC() {
	c.w.needValC = isa.NeedValC(c.w.icode)
}

func (c *CPU) evalPCInc() {
	out := hw.PCIncrement{}.Eval(hw.PCIncrementIn{
		NeedValC:   c.w.needValC,
		NeedRegids: c.w.needRegids,
		OldPC:      c.s.Current().PC,
	})
	c.w.valP = out.NewPC
}

func (c *CPU) evalAlign() {
	out := c.align.Eval(hw.AlignIn{NeedRegids: c.w.needRegids, Align: c.w.align})
	c.w.alignRA = out.RA
	c.w.alignRB = out.RB
	c.w.alignValC = out.ValC
}

func (c *CPU) evalSrcA() {
	switch {
	case isa.OneOf(c.w.icode, isa.CMOVX, isa.RMMOVQ, isa.OPQ, isa.PUSHQ):
		c.w.srcA = c.w.alignRA
	case isa.OneOf(c.w.icode, isa.POPQ, isa.RET):
		c.w.srcA = isa.RSP
	default:
		c.w.srcA = isa.RNONE
	}
}

func (c *CPU) evalSrcB() {
	switch {
	case isa.OneOf(c.w.icode, isa.OPQ, isa.IOPQ, isa.RMMOVQ, isa.MRMOVQ):
		c.w.srcB = c.w.alignRB
	case isa.OneOf(c.w.icode, isa.PUSHQ, isa.POPQ, isa.CALL, isa.RET):
		c.w.srcB = isa.RSP
	default:
		c.w.srcB = isa.RNONE
	}
}

func (c *CPU) evalRegRead() {
	out := c.rr.Eval(hw.RegisterReadIn{SrcA: c.w.srcA, SrcB: c.w.srcB})
	c.w.valA = out.ValA
	c.w.valB = out.ValB
}

func (c *CPU) evalAluA() {
	switch {
	case isa.OneOf(c.w.icode, isa.CMOVX, isa.OPQ):
		c.w.aluA = c.w.valA
	case isa.OneOf(c.w.icode, isa.IRMOVQ, isa.IOPQ, isa.RMMOVQ, isa.MRMOVQ):
		c.w.aluA = c.w.alignValC
	case isa.OneOf(c.w.icode, isa.CALL, isa.PUSHQ):
		c.w.aluA = isa.Neg8
	case isa.OneOf(c.w.icode, isa.RET, isa.POPQ):
		c.w.aluA = 8
	default:
		c.w.aluA = 0
	}
}

func (c *CPU) evalAluB() {
	switch {
	case isa.OneOf(c.w.icode, isa.RMMOVQ, isa.MRMOVQ, isa.OPQ, isa.IOPQ, isa.CALL, isa.PUSHQ, isa.RET, isa.POPQ):
		c.w.aluB = c.w.valB
	case isa.OneOf(c.w.icode, isa.CMOVX, isa.IRMOVQ):
		c.w.aluB = 0
	default:
		c.w.aluB = 0
	}
}

func (c *CPU) evalAluFun() {
	if isa.OneOf(c.w.icode, isa.OPQ, isa.IOPQ) {
		c.w.aluFun = c.w.ifun
	} else {
		c.w.aluFun = isa.ALUAdd
	}
}

func (c *CPU) evalALU() {
	out := c.alu.Eval(hw.ALUIn{A: c.w.aluA, B: c.w.aluB, Fun: c.w.aluFun})
	c.w.valE = out.E
}

func (c *CPU) evalSetCC() {
	c.w.setCC = isa.OneOf(c.w.icode, isa.OPQ, isa.IOPQ)
}

func (c *CPU) evalRegCC() {
	out := c.regcc.Eval(hw.RegisterCCIn{
		SetCC: c.w.setCC,
		A:     c.w.aluA,
		B:     c.w.aluB,
		E:     c.w.valE,
		OpFun: c.w.aluFun,
	})
	c.w.cc = out.CC
}

func (c *CPU) evalCond() {
	out := hw.Condition{}.Eval(hw.ConditionIn{CC: c.w.cc, CondFun: c.w.ifun})
	c.w.cnd = out.Cnd
}

func (c *CPU) evalDstE() {
	switch {
	case c.w.icode == isa.CMOVX && c.w.cnd:
		c.w.dstE = c.w.alignRB
	case isa.OneOf(c.w.icode, isa.IRMOVQ, isa.OPQ, isa.IOPQ):
		c.w.dstE = c.w.alignRB
	case isa.OneOf(c.w.icode, isa.PUSHQ, isa.POPQ, isa.CALL, isa.RET):
		c.w.dstE = isa.RSP
	default:
		c.w.dstE = isa.RNONE
	}
}

func (c *CPU) evalDstM() {
	if isa.OneOf(c.w.icode, isa.MRMOVQ, isa.POPQ) {
		c.w.dstM = c.w.alignRA
	} else {
		c.w.dstM = isa.RNONE
	}
}

func (c *CPU) evalMemRead() {
	c.w.memRead = isa.OneOf(c.w.icode, isa.MRMOVQ, isa.POPQ, isa.RET)
}

func (c *CPU) evalMemWrite() {
	c.w.memWrite = isa.OneOf(c.w.icode, isa.RMMOVQ, isa.PUSHQ, isa.CALL)
}

func (c *CPU) evalMemAddr() {
	switch {
	case isa.OneOf(c.w.icode, isa.RMMOVQ, isa.PUSHQ, isa.CALL, isa.MRMOVQ):
		c.w.memAddr = c.w.valE
	case isa.OneOf(c.w.icode, isa.POPQ, isa.RET):
		c.w.memAddr = c.w.valA
	default:
		c.w.memAddr = 0
	}
}

func (c *CPU) evalMemData() {
	switch {
	case isa.OneOf(c.w.icode, isa.RMMOVQ, isa.PUSHQ):
		c.w.memData = c.w.valA
	case c.w.icode == isa.CALL:
		c.w.memData = c.w.valP
	default:
		c.w.memData = 0
	}
}

func (c *CPU) evalDMem() {
	out := c.dmem.Eval(hw.DataMemoryIn{
		Addr:   c.w.memAddr,
		DataIn: c.w.memData,
		Read:   c.w.memRead,
		Write:  c.w.memWrite,
	})
	c.w.valM = out.DataOut
	c.w.dmemErr = out.Error
}

func (c *CPU) evalRegWrite() {
	c.rw.Eval(hw.RegisterWriteIn{DstE: c.w.dstE, DstM: c.w.dstM, ValE: c.w.valE, ValM: c.w.valM})
}

func (c *CPU) evalStat() {
	switch {
	case c.w.imemErr || c.w.dmemErr:
		c.w.stat = isa.Adr
	case !c.w.instrValid:
		c.w.stat = isa.Ins
	case c.w.icode == isa.HALT:
		c.w.stat = isa.Hlt
	default:
		c.w.stat = isa.Aok
	}
}

func (c *CPU) evalProgTerm() {
	c.w.progTerm = c.w.stat.Terminal()
}

func (c *CPU) evalNextPC() {
	switch {
	case c.w.icode == isa.CALL:
		c.w.newPC = c.w.alignValC
	case c.w.icode == isa.JX && c.w.cnd:
		c.w.newPC = c.w.alignValC
	case c.w.icode == isa.RET:
		c.w.newPC = c.w.valM
	default:
		c.w.newPC = c.w.valP
	}
}

// Step runs one simulated cycle.
func (c *CPU) Step() {
	c.order.Run()
	c.s.SetNext(sReg{PC: c.w.newPC})
	if err := c.s.Latch(); err != nil {
		panic(err)
	}
	c.cycles++
	c.terminated = c.w.progTerm
}

// Terminated reports whether the architecture's termination signal was
// asserted by the most recently completed cycle.
func (c *CPU) Terminated() bool { return c.terminated }

// ProgramCounter returns the address of the instruction about to be
// fetched.
func (c *CPU) ProgramCounter() uint64 { return c.s.Current().PC }

// CycleCount returns the number of cycles run so far.
func (c *CPU) CycleCount() uint64 { return c.cycles }

// CriticalPath returns the build-time critical-path length.
func (c *CPU) CriticalPath() uint64 { return uint64(c.order.CriticalPath) }

// Registers returns the current architectural register file.
func (c *CPU) Registers() isa.RegFile { return c.regs }

// Arch names this architecture.
func (c *CPU) Arch() string { return Name }

// StageInfo reports the single PC stage register for debugger display.
func (c *CPU) StageInfo() []framework.StageInfo {
	return []framework.StageInfo{{
		Name: "S",
		Fields: []framework.StageField{
			{Name: "pc", Value: isa.FormatHex(c.s.Current().PC)},
		},
	}}
}
