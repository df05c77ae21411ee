// Package pipetwo implements a minimal two-stage pipeline: Fetch runs
// one cycle ahead of a single "D" stage that fully decodes, executes,
// accesses memory, and writes back one instruction per cycle (spec.md
// §4.6 extra architectures; grounded on pipe_s2.rs). Because D commits
// an instruction's register write in the same cycle it decodes that
// instruction's operands — the same read-then-write-every-cycle
// discipline seq_std and seq_plus_std already use — overlapping Fetch
// with the rest of the pipe introduces no data or control hazard: the
// write an instruction makes is always visible to the next instruction's
// decode, one cycle later, by construction. What pipe_two buys over
// seq_plus_std is a shorter critical path (D's register read, ALU,
// condition and memory units no longer wait on this cycle's
// instruction-memory access and alignment, though fetch's PC selection
// still waits on D's cnd and valM), not fewer cycles and not a correctness trade-off. It stays out of
// `simtest.BuiltinArches` as a pedagogic waypoint rather than because
// it produces wrong answers — see pipetwo_test.go, which runs it
// directly against the oracle on a register-after-load program.
package pipetwo

import (
	"github.com/y86sim/archlab/framework"
	"github.com/y86sim/archlab/graph"
	"github.com/y86sim/archlab/hw"
	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/mem"
	"github.com/y86sim/archlab/stage"
)

// Name identifies this architecture in the registry.
const Name = "pipe_two"

type fReg struct {
	ValP uint64
}

type dReg struct {
	Stat  isa.Stat
	Icode uint8
	Ifun  uint8
	RA    uint8
	RB    uint8
	ValC  uint64
	ValP  uint64
}

func dDefaults() dReg {
	return dReg{Stat: isa.Aok, Icode: isa.NOP, RA: isa.RNONE, RB: isa.RNONE}
}

type wires struct {
	fPC uint64

	imemErr             bool
	imemIcode, imemIfun uint8
	align               [9]byte

	fIcode, fIfun        uint8
	instrValid           bool
	needRegids, needValC bool

	alignRA, alignRB uint8
	alignValC        uint64
	fValP            uint64
	fStat            isa.Stat

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
}

// CPU is one running instance of the two-stage pipeline.
type CPU struct {
	order *graph.Order
	f     *stage.Register[fReg]
	d     *stage.Register[dReg]

	imem  hw.InstructionMemory
	align hw.Align
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

// New builds a two-stage-pipeline CPU over the given memory image.
func New(img *mem.Image) (*CPU, error) {
	c := &CPU{
		f: stage.NewRegister("F", fReg{}),
		d: stage.NewRegister("D", dDefaults()),
	}
	c.imem = hw.InstructionMemory{Binary: img}
	c.dmem = hw.DataMemory{Binary: img}
	c.rr = hw.RegisterRead{Regs: &c.regs}
	c.rw = hw.RegisterWrite{Regs: &c.regs}

	b := graph.NewBuilder()
	b.External("F", "D")

	b.Signal("f_pc", []string{"D", "dmem.dataout", "cond.cnd"}, c.evalFPC)
	b.Unit("imem", []string{"f_pc"}, []string{"icode", "ifun", "align", "error"}, c.evalImem)
	b.Signal("f_icode", []string{"imem.error", "imem.icode"}, c.evalFIcode)
	b.Signal("f_ifun", []string{"imem.error", "imem.ifun"}, c.evalFIfun)
	b.Signal("instr_valid", []string{"f_icode"}, c.evalInstrValid)
	b.Signal("need_regids", []string{"f_icode"}, c.evalNeedRegids)
	b.Signal("need_valC", []string{"f_icode"}, c.evalNeedValC)

	b.Unit("pc_inc", []string{"need_valC", "need_regids", "f_pc"}, []string{"new_pc"}, c.evalPCInc)
	b.Unit("ialign", []string{"imem.align", "need_regids"}, []string{"rA", "rB", "valC"}, c.evalIAlign)
	b.Signal("f_stat", []string{"imem.error", "instr_valid"}, c.evalFStat)
	b.Signal("stage_f", []string{"pc_inc.new_pc"}, c.evalStageF)
	b.Signal("stage_d", []string{"ialign.valC", "pc_inc.new_pc", "ialign.rA", "ialign.rB", "f_icode", "f_ifun", "f_stat"}, c.evalStageD)

	b.Signal("srcA", nil, c.evalSrcA)
	b.Signal("srcB", nil, c.evalSrcB)
	b.Unit("reg_read", []string{"srcA", "srcB"}, []string{"valA", "valB"}, c.evalRegRead)

	b.Signal("aluA", []string{"reg_read.valA"}, c.evalAluA)
	b.Signal("aluB", []string{"reg_read.valB"}, c.evalAluB)
	b.Signal("alufun", nil, c.evalAluFun)
	b.Unit("alu", []string{"aluA", "aluB", "alufun"}, []string{"e"}, c.evalALU)

	b.Signal("set_cc", nil, c.evalSetCC)
	b.Unit("reg_cc", []string{"set_cc", "aluA", "aluB", "alu.e", "alufun"}, []string{"cc"}, c.evalRegCC)
	b.Unit("cond", []string{"reg_cc.cc"}, []string{"cnd"}, c.evalCond)

	b.Signal("dstE", []string{"cond.cnd"}, c.evalDstE)
	b.Signal("dstM", nil, c.evalDstM)

	b.Signal("mem_read", nil, c.evalMemRead)
	b.Signal("mem_write", nil, c.evalMemWrite)
	b.Signal("mem_addr", []string{"alu.e", "reg_read.valA"}, c.evalMemAddr)
	b.Signal("mem_data", []string{"reg_read.valA"}, c.evalMemData)
	b.Unit("dmem", []string{"mem_addr", "mem_data", "mem_read", "mem_write"}, []string{"dataout", "error"}, c.evalDMem)

	b.Unit("reg_write", []string{"dstE", "dstM", "alu.e", "dmem.dataout"}, nil, c.evalRegWrite)

	b.Signal("stat", []string{"dmem.error"}, c.evalStat)
	b.Signal("prog_term", []string{"stat"}, c.evalProgTerm)

	order, err := b.Build()
	if err != nil {
		return nil, err
	}
	c.order = order
	return c, nil
}

// evalFPC mirrors pipe_s2.rs's f_pc: D still holds the instruction this
// same cycle's D-stage is about to fully resolve, so a CALL/taken-JX/RET
// decision here uses that instruction's own valC/cnd/valM, which f_pc's
// declared reads (cond.cnd, dmem.dataout) schedule earlier in this same
// evaluation.
func (c *CPU) evalFPC() {
	D := c.d.Current()
	switch {
	case D.Icode == isa.CALL:
		c.w.fPC = D.ValC
	case D.Icode == isa.JX && c.w.cnd:
		c.w.fPC = D.ValC
	case D.Icode == isa.RET:
		c.w.fPC = c.w.valM
	default:
		c.w.fPC = c.f.Current().ValP
	}
}

func (c *CPU) evalImem() {
	out := c.imem.Eval(hw.InstructionMemoryIn{PC: c.w.fPC})
	c.w.align = out.Align
	c.w.imemErr = out.Error
	c.w.imemIcode = out.Icode
	c.w.imemIfun = out.Ifun
}

func (c *CPU) evalFIcode() {
	if c.w.imemErr {
		c.w.fIcode = isa.NOP
		return
	}
	c.w.fIcode = c.w.imemIcode
}

func (c *CPU) evalFIfun() {
	if c.w.imemErr {
		c.w.fIfun = 0
		return
	}
	c.w.fIfun = c.w.imemIfun
}

func (c *CPU) evalInstrValid() { c.w.instrValid = isa.ValidIcode(c.w.fIcode) }
func (c *CPU) evalNeedRegids() { c.w.needRegids = isa.NeedRegids(c.w.fIcode) }
func (c *CPU) evalNeedValC()   { c.w.needValC = isa.NeedValC(c.w.fIcode) }

func (c *CPU) evalPCInc() {
	out := hw.PCIncrement{}.Eval(hw.PCIncrementIn{
		NeedValC:   c.w.needValC,
		NeedRegids: c.w.needRegids,
		OldPC:      c.w.fPC,
	})
	c.w.fValP = out.NewPC
}

func (c *CPU) evalIAlign() {
	out := c.align.Eval(hw.AlignIn{NeedRegids: c.w.needRegids, Align: c.w.align})
	c.w.alignRA, c.w.alignRB, c.w.alignValC = out.RA, out.RB, out.ValC
}

func (c *CPU) evalFStat() {
	switch {
	case c.w.imemErr:
		c.w.fStat = isa.Adr
	case !c.w.instrValid:
		c.w.fStat = isa.Ins
	default:
		c.w.fStat = isa.Aok
	}
}

func (c *CPU) evalStageF() {
	c.f.SetNext(fReg{ValP: c.w.fValP})
}

func (c *CPU) evalStageD() {
	c.d.SetNext(dReg{
		ValC: c.w.alignValC, ValP: c.w.fValP, RA: c.w.alignRA, RB: c.w.alignRB,
		Icode: c.w.fIcode, Ifun: c.w.fIfun, Stat: c.w.fStat,
	})
}

func (c *CPU) evalSrcA() {
	D := c.d.Current()
	switch {
	case isa.OneOf(D.Icode, isa.CMOVX, isa.RMMOVQ, isa.OPQ, isa.PUSHQ):
		c.w.srcA = D.RA
	case isa.OneOf(D.Icode, isa.POPQ, isa.RET):
		c.w.srcA = isa.RSP
	default:
		c.w.srcA = isa.RNONE
	}
}

func (c *CPU) evalSrcB() {
	D := c.d.Current()
	switch {
	case isa.OneOf(D.Icode, isa.OPQ, isa.RMMOVQ, isa.MRMOVQ):
		c.w.srcB = D.RB
	case isa.OneOf(D.Icode, isa.PUSHQ, isa.POPQ, isa.CALL, isa.RET):
		c.w.srcB = isa.RSP
	default:
		c.w.srcB = isa.RNONE
	}
}

func (c *CPU) evalRegRead() {
	out := c.rr.Eval(hw.RegisterReadIn{SrcA: c.w.srcA, SrcB: c.w.srcB})
	c.w.valA, c.w.valB = out.ValA, out.ValB
}

func (c *CPU) evalAluA() {
	D := c.d.Current()
	switch {
	case isa.OneOf(D.Icode, isa.CMOVX, isa.OPQ):
		c.w.aluA = c.w.valA
	case isa.OneOf(D.Icode, isa.IRMOVQ, isa.RMMOVQ, isa.MRMOVQ):
		c.w.aluA = D.ValC
	case isa.OneOf(D.Icode, isa.CALL, isa.PUSHQ):
		c.w.aluA = isa.Neg8
	case isa.OneOf(D.Icode, isa.RET, isa.POPQ):
		c.w.aluA = 8
	default:
		c.w.aluA = 0
	}
}

func (c *CPU) evalAluB() {
	D := c.d.Current()
	if isa.OneOf(D.Icode, isa.RMMOVQ, isa.MRMOVQ, isa.OPQ, isa.CALL, isa.PUSHQ, isa.RET, isa.POPQ) {
		c.w.aluB = c.w.valB
	} else {
		c.w.aluB = 0
	}
}

func (c *CPU) evalAluFun() {
	D := c.d.Current()
	if D.Icode == isa.OPQ {
		c.w.aluFun = D.Ifun
	} else {
		c.w.aluFun = isa.ALUAdd
	}
}

func (c *CPU) evalALU() {
	c.w.valE = c.alu.Eval(hw.ALUIn{A: c.w.aluA, B: c.w.aluB, Fun: c.w.aluFun}).E
}

func (c *CPU) evalSetCC() { c.w.setCC = c.d.Current().Icode == isa.OPQ }

func (c *CPU) evalRegCC() {
	c.w.cc = c.regcc.Eval(hw.RegisterCCIn{
		SetCC: c.w.setCC, A: c.w.aluA, B: c.w.aluB, E: c.w.valE, OpFun: c.w.aluFun,
	}).CC
}

func (c *CPU) evalCond() {
	c.w.cnd = hw.Condition{}.Eval(hw.ConditionIn{CC: c.w.cc, CondFun: c.d.Current().Ifun}).Cnd
}

func (c *CPU) evalDstE() {
	D := c.d.Current()
	switch {
	case D.Icode == isa.CMOVX && c.w.cnd:
		c.w.dstE = D.RB
	case isa.OneOf(D.Icode, isa.IRMOVQ, isa.OPQ):
		c.w.dstE = D.RB
	case isa.OneOf(D.Icode, isa.PUSHQ, isa.POPQ, isa.CALL, isa.RET):
		c.w.dstE = isa.RSP
	default:
		c.w.dstE = isa.RNONE
	}
}

func (c *CPU) evalDstM() {
	D := c.d.Current()
	if isa.OneOf(D.Icode, isa.MRMOVQ, isa.POPQ) {
		c.w.dstM = D.RA
	} else {
		c.w.dstM = isa.RNONE
	}
}

func (c *CPU) evalMemRead() {
	c.w.memRead = isa.OneOf(c.d.Current().Icode, isa.MRMOVQ, isa.POPQ, isa.RET)
}

func (c *CPU) evalMemWrite() {
	c.w.memWrite = isa.OneOf(c.d.Current().Icode, isa.RMMOVQ, isa.PUSHQ, isa.CALL)
}

func (c *CPU) evalMemAddr() {
	D := c.d.Current()
	switch {
	case isa.OneOf(D.Icode, isa.RMMOVQ, isa.PUSHQ, isa.CALL, isa.MRMOVQ):
		c.w.memAddr = c.w.valE
	case isa.OneOf(D.Icode, isa.POPQ, isa.RET):
		c.w.memAddr = c.w.valA
	default:
		c.w.memAddr = 0
	}
}

func (c *CPU) evalMemData() {
	D := c.d.Current()
	switch {
	case isa.OneOf(D.Icode, isa.RMMOVQ, isa.PUSHQ):
		c.w.memData = c.w.valA
	case D.Icode == isa.CALL:
		c.w.memData = D.ValP
	default:
		c.w.memData = 0
	}
}

func (c *CPU) evalDMem() {
	out := c.dmem.Eval(hw.DataMemoryIn{
		Addr: c.w.memAddr, DataIn: c.w.memData, Read: c.w.memRead, Write: c.w.memWrite,
	})
	c.w.valM = out.DataOut
	c.w.dmemErr = out.Error
}

func (c *CPU) evalRegWrite() {
	c.rw.Eval(hw.RegisterWriteIn{DstE: c.w.dstE, DstM: c.w.dstM, ValE: c.w.valE, ValM: c.w.valM})
}

func (c *CPU) evalStat() {
	D := c.d.Current()
	switch {
	case c.w.dmemErr:
		c.w.stat = isa.Adr
	case D.Icode == isa.HALT:
		c.w.stat = isa.Hlt
	default:
		c.w.stat = D.Stat
	}
}

func (c *CPU) evalProgTerm() { c.w.progTerm = c.w.stat.Terminal() }

// Step runs one simulated cycle.
func (c *CPU) Step() {
	c.order.Run()
	if err := c.f.Latch(); err != nil {
		panic(err)
	}
	if err := c.d.Latch(); err != nil {
		panic(err)
	}
	c.cycles++
	c.terminated = c.w.progTerm
}

// Terminated reports whether the architecture's termination signal was
// asserted by the most recently completed cycle.
func (c *CPU) Terminated() bool { return c.terminated }

// ProgramCounter returns the address fetched this cycle.
func (c *CPU) ProgramCounter() uint64 { return c.w.fPC }

// CycleCount returns the number of cycles run so far.
func (c *CPU) CycleCount() uint64 { return c.cycles }

// CriticalPath returns the build-time critical-path length.
func (c *CPU) CriticalPath() uint64 { return uint64(c.order.CriticalPath) }

// Registers returns the current architectural register file.
func (c *CPU) Registers() isa.RegFile { return c.regs }

// Arch names this architecture.
func (c *CPU) Arch() string { return Name }

// StageInfo reports both pipeline registers for debugger display.
func (c *CPU) StageInfo() []framework.StageInfo {
	F, D := c.f.Current(), c.d.Current()
	return []framework.StageInfo{
		{Name: "F", Fields: []framework.StageField{{Name: "valP", Value: isa.FormatHex(F.ValP)}}},
		{Name: "D", Fields: []framework.StageField{
			{Name: "stat", Value: D.Stat.String()},
			{Name: "icode", Value: isa.IcodeName(D.Icode)},
			{Name: "valC", Value: isa.FormatHex(D.ValC)},
		}},
	}
}
