// Package pipethreea implements a three-stage pipeline that splits
// Decode away from a combined Execute+Memory+Writeback stage (spec.md
// §4.6 extra architectures; grounded on pipe_s3a.rs). Separating
// Decode shortens pipe_two's critical path, but reusing the register
// file across two stages reintroduces data hazards pipe_two never had
// to resolve: pipe_s3a resolves every one of them by stalling the
// front of the pipe and bubbling Execute until the hazard clears,
// rather than forwarding. It never produces a wrong answer, only a
// slower one, so it is carried as a pedagogic waypoint rather than a
// second oracle-equivalent architecture alongside pipe_std.
package pipethreea

import (
	"github.com/y86sim/archlab/framework"
	"github.com/y86sim/archlab/graph"
	"github.com/y86sim/archlab/hw"
	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/mem"
	"github.com/y86sim/archlab/stage"
)

// Name identifies this architecture in the registry.
const Name = "pipe_three_a"

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

// eReg is named ExecuteStage in pipe_s3a.rs but carries every
// instruction from Execute through Memory and Writeback in a single
// combinational pass.
type eReg struct {
	Stat  isa.Stat
	Icode uint8
	Ifun  uint8
	ValP  uint64
	ValC  uint64
	ValA  uint64
	ValB  uint64
	DstE  uint8
	DstM  uint8
}

func eDefaults() eReg {
	return eReg{Stat: isa.Aok, Icode: isa.NOP, DstE: isa.RNONE, DstM: isa.RNONE}
}

type wires struct {
	fPC                  uint64
	imemErr              bool
	imemIcode, imemIfun  uint8
	align                [9]byte
	fIcode, fIfun        uint8
	instrValid           bool
	needRegids, needValC bool
	alignRA, alignRB     uint8
	alignValC            uint64
	fValP                uint64
	fStat                isa.Stat

	dSrcA, dSrcB uint8
	dValA, dValB uint64
	dDstE, dDstM uint8

	aluA, aluB uint64
	aluFun     uint8
	valE       uint64
	setCC      bool
	cc         isa.ConditionCode
	cnd        bool

	eDstE, eDstM uint8

	memRead, memWrite bool
	memAddr, memData  uint64
	valM              uint64
	dmemErr           bool

	stat     isa.Stat
	progTerm bool

	dataHazard bool
}

// CPU is one running instance of the three-stage pipeline.
type CPU struct {
	order *graph.Order
	f     *stage.Register[fReg]
	d     *stage.Register[dReg]
	e     *stage.Register[eReg]

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

// New builds a three-stage-pipeline CPU over the given memory image.
func New(img *mem.Image) (*CPU, error) {
	c := &CPU{
		f: stage.NewRegister("F", fReg{}),
		d: stage.NewRegister("D", dDefaults()),
		e: stage.NewRegister("E", eDefaults()),
	}
	c.imem = hw.InstructionMemory{Binary: img}
	c.dmem = hw.DataMemory{Binary: img}
	c.rr = hw.RegisterRead{Regs: &c.regs}
	c.rw = hw.RegisterWrite{Regs: &c.regs}

	b := graph.NewBuilder()
	b.External("F", "D", "E")

	b.Signal("f_pc", []string{"D", "E", "dmem.dataout", "cond.cnd"}, c.evalFPC)
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

	b.Signal("d_srcA", nil, c.evalDSrcA)
	b.Signal("d_srcB", nil, c.evalDSrcB)
	b.Unit("reg_read", []string{"d_srcA", "d_srcB"}, []string{"valA", "valB"}, c.evalRegRead)
	b.Signal("d_dstE", nil, c.evalDDstE)
	b.Signal("d_dstM", nil, c.evalDDstM)
	b.Signal("stage_e", []string{"reg_read.valA", "reg_read.valB", "d_dstE", "d_dstM"}, c.evalStageE)

	b.Signal("aluA", nil, c.evalAluA)
	b.Signal("aluB", nil, c.evalAluB)
	b.Signal("alufun", nil, c.evalAluFun)
	b.Unit("alu", []string{"aluA", "aluB", "alufun"}, []string{"e"}, c.evalALU)
	b.Signal("set_cc", nil, c.evalSetCC)
	b.Unit("reg_cc", []string{"set_cc", "aluA", "aluB", "alu.e", "alufun"}, []string{"cc"}, c.evalRegCC)
	b.Unit("cond", []string{"reg_cc.cc"}, []string{"cnd"}, c.evalCond)
	b.Signal("e_dstE", []string{"cond.cnd"}, c.evalEDstE)
	b.Signal("e_dstM", nil, c.evalEDstM)

	b.Signal("mem_read", nil, c.evalMemRead)
	b.Signal("mem_write", nil, c.evalMemWrite)
	b.Signal("mem_addr", []string{"alu.e"}, c.evalMemAddr)
	b.Signal("mem_data", nil, c.evalMemData)
	b.Unit("dmem", []string{"mem_addr", "mem_data", "mem_read", "mem_write"}, []string{"dataout", "error"}, c.evalDMem)
	b.Unit("reg_write", []string{"e_dstE", "e_dstM", "alu.e", "dmem.dataout"}, nil, c.evalRegWrite)

	b.Signal("stat", []string{"dmem.error"}, c.evalStat)
	b.Signal("prog_term", []string{"stat"}, c.evalProgTerm)

	b.Signal("data_hazard", []string{"d_srcA", "d_srcB", "e_dstE", "e_dstM"}, c.evalDataHazard)
	b.Signal("stage_f_ctrl", []string{"data_hazard"}, c.evalStageFCtrl)
	b.Signal("stage_d_ctrl", []string{"data_hazard"}, c.evalStageDCtrl)
	b.Signal("stage_e_ctrl", []string{"data_hazard"}, c.evalStageECtrl)

	order, err := b.Build()
	if err != nil {
		return nil, err
	}
	c.order = order
	return c, nil
}

func (c *CPU) evalFPC() {
	D, E := c.d.Current(), c.e.Current()
	switch {
	case D.Icode == isa.CALL:
		c.w.fPC = D.ValC
	case E.Icode == isa.JX && c.w.cnd:
		c.w.fPC = E.ValC
	case E.Icode == isa.RET:
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
		NeedValC: c.w.needValC, NeedRegids: c.w.needRegids, OldPC: c.w.fPC,
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

func (c *CPU) evalStageF() { c.f.SetNext(fReg{ValP: c.w.fValP}) }

func (c *CPU) evalStageD() {
	c.d.SetNext(dReg{
		ValC: c.w.alignValC, ValP: c.w.fValP, RA: c.w.alignRA, RB: c.w.alignRB,
		Icode: c.w.fIcode, Ifun: c.w.fIfun, Stat: c.w.fStat,
	})
}

func (c *CPU) evalDSrcA() {
	D := c.d.Current()
	switch {
	case isa.OneOf(D.Icode, isa.CMOVX, isa.RMMOVQ, isa.OPQ, isa.PUSHQ):
		c.w.dSrcA = D.RA
	case isa.OneOf(D.Icode, isa.POPQ, isa.RET):
		c.w.dSrcA = isa.RSP
	default:
		c.w.dSrcA = isa.RNONE
	}
}

func (c *CPU) evalDSrcB() {
	D := c.d.Current()
	switch {
	case isa.OneOf(D.Icode, isa.OPQ, isa.RMMOVQ, isa.MRMOVQ):
		c.w.dSrcB = D.RB
	case isa.OneOf(D.Icode, isa.PUSHQ, isa.POPQ, isa.CALL, isa.RET):
		c.w.dSrcB = isa.RSP
	default:
		c.w.dSrcB = isa.RNONE
	}
}

func (c *CPU) evalRegRead() {
	out := c.rr.Eval(hw.RegisterReadIn{SrcA: c.w.dSrcA, SrcB: c.w.dSrcB})
	c.w.dValA, c.w.dValB = out.ValA, out.ValB
}

func (c *CPU) evalDDstE() {
	D := c.d.Current()
	switch {
	case isa.OneOf(D.Icode, isa.CMOVX, isa.IRMOVQ, isa.OPQ):
		c.w.dDstE = D.RB
	case isa.OneOf(D.Icode, isa.PUSHQ, isa.POPQ, isa.CALL, isa.RET):
		c.w.dDstE = isa.RSP
	default:
		c.w.dDstE = isa.RNONE
	}
}

func (c *CPU) evalDDstM() {
	D := c.d.Current()
	if isa.OneOf(D.Icode, isa.MRMOVQ, isa.POPQ) {
		c.w.dDstM = D.RA
	} else {
		c.w.dDstM = isa.RNONE
	}
}

func (c *CPU) evalStageE() {
	D := c.d.Current()
	c.e.SetNext(eReg{
		ValP: D.ValP, ValC: D.ValC, ValA: c.w.dValA, ValB: c.w.dValB,
		DstE: c.w.dDstE, DstM: c.w.dDstM, Icode: D.Icode, Ifun: D.Ifun, Stat: D.Stat,
	})
}

func (c *CPU) evalAluA() {
	E := c.e.Current()
	switch {
	case isa.OneOf(E.Icode, isa.CMOVX, isa.OPQ):
		c.w.aluA = E.ValA
	case isa.OneOf(E.Icode, isa.IRMOVQ, isa.RMMOVQ, isa.MRMOVQ):
		c.w.aluA = E.ValC
	case isa.OneOf(E.Icode, isa.CALL, isa.PUSHQ):
		c.w.aluA = isa.Neg8
	case isa.OneOf(E.Icode, isa.RET, isa.POPQ):
		c.w.aluA = 8
	default:
		c.w.aluA = 0
	}
}

func (c *CPU) evalAluB() {
	E := c.e.Current()
	if isa.OneOf(E.Icode, isa.RMMOVQ, isa.MRMOVQ, isa.OPQ, isa.CALL, isa.PUSHQ, isa.RET, isa.POPQ) {
		c.w.aluB = E.ValB
	} else {
		c.w.aluB = 0
	}
}

func (c *CPU) evalAluFun() {
	E := c.e.Current()
	if E.Icode == isa.OPQ {
		c.w.aluFun = E.Ifun
	} else {
		c.w.aluFun = isa.ALUAdd
	}
}

func (c *CPU) evalALU() {
	c.w.valE = c.alu.Eval(hw.ALUIn{A: c.w.aluA, B: c.w.aluB, Fun: c.w.aluFun}).E
}

func (c *CPU) evalSetCC() { c.w.setCC = c.e.Current().Icode == isa.OPQ }

func (c *CPU) evalRegCC() {
	c.w.cc = c.regcc.Eval(hw.RegisterCCIn{
		SetCC: c.w.setCC, A: c.w.aluA, B: c.w.aluB, E: c.w.valE, OpFun: c.w.aluFun,
	}).CC
}

func (c *CPU) evalCond() {
	c.w.cnd = hw.Condition{}.Eval(hw.ConditionIn{CC: c.w.cc, CondFun: c.e.Current().Ifun}).Cnd
}

func (c *CPU) evalEDstE() {
	E := c.e.Current()
	if E.Icode == isa.CMOVX && !c.w.cnd {
		c.w.eDstE = isa.RNONE
	} else {
		c.w.eDstE = E.DstE
	}
}

func (c *CPU) evalEDstM() { c.w.eDstM = c.e.Current().DstM }

func (c *CPU) evalMemRead() {
	c.w.memRead = isa.OneOf(c.e.Current().Icode, isa.MRMOVQ, isa.POPQ, isa.RET)
}

func (c *CPU) evalMemWrite() {
	c.w.memWrite = isa.OneOf(c.e.Current().Icode, isa.RMMOVQ, isa.PUSHQ, isa.CALL)
}

func (c *CPU) evalMemAddr() {
	E := c.e.Current()
	switch {
	case isa.OneOf(E.Icode, isa.RMMOVQ, isa.PUSHQ, isa.CALL, isa.MRMOVQ):
		c.w.memAddr = c.w.valE
	case isa.OneOf(E.Icode, isa.POPQ, isa.RET):
		c.w.memAddr = E.ValA
	default:
		c.w.memAddr = 0
	}
}

func (c *CPU) evalMemData() {
	E := c.e.Current()
	switch {
	case isa.OneOf(E.Icode, isa.RMMOVQ, isa.PUSHQ):
		c.w.memData = E.ValA
	case E.Icode == isa.CALL:
		c.w.memData = E.ValP
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
	c.rw.Eval(hw.RegisterWriteIn{DstE: c.w.eDstE, DstM: c.w.eDstM, ValE: c.w.valE, ValM: c.w.valM})
}

func (c *CPU) evalStat() {
	E := c.e.Current()
	switch {
	case c.w.dmemErr:
		c.w.stat = isa.Adr
	case E.Icode == isa.HALT:
		c.w.stat = isa.Hlt
	default:
		c.w.stat = E.Stat
	}
}

func (c *CPU) evalProgTerm() { c.w.progTerm = c.w.stat.Terminal() }

// evalDataHazard mirrors pipe_s3a.rs's data_harzard: the instruction in
// Decode needs a register the instruction still completing Execute
// hasn't written yet.
func (c *CPU) evalDataHazard() {
	c.w.dataHazard = (c.w.dSrcA != isa.RNONE && isa.OneOf(c.w.dSrcA, c.w.eDstE, c.w.eDstM)) ||
		(c.w.dSrcB != isa.RNONE && isa.OneOf(c.w.dSrcB, c.w.eDstE, c.w.eDstM))
}

func (c *CPU) evalStageFCtrl() {
	D := c.d.Current()
	c.f.Bubble(false)
	c.f.Stall(isa.OneOf(D.Icode, isa.JX, isa.RET) || c.w.dataHazard)
}

func (c *CPU) evalStageDCtrl() {
	D := c.d.Current()
	dStall := c.w.dataHazard
	c.d.Stall(dStall)
	c.d.Bubble(isa.OneOf(D.Icode, isa.JX, isa.RET) && !dStall)
}

func (c *CPU) evalStageECtrl() {
	c.e.Stall(false)
	c.e.Bubble(c.w.dataHazard)
}

// Step runs one simulated cycle.
func (c *CPU) Step() {
	c.order.Run()
	if err := c.f.Latch(); err != nil {
		panic(err)
	}
	if err := c.d.Latch(); err != nil {
		panic(err)
	}
	if err := c.e.Latch(); err != nil {
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

// StageInfo reports all three pipeline registers for debugger display.
func (c *CPU) StageInfo() []framework.StageInfo {
	F, D, E := c.f.Current(), c.d.Current(), c.e.Current()
	return []framework.StageInfo{
		{Name: "F", Fields: []framework.StageField{{Name: "valP", Value: isa.FormatHex(F.ValP)}}},
		{Name: "D", Fields: []framework.StageField{
			{Name: "stat", Value: D.Stat.String()}, {Name: "icode", Value: isa.IcodeName(D.Icode)},
		}},
		{Name: "E", Fields: []framework.StageField{
			{Name: "stat", Value: E.Stat.String()}, {Name: "icode", Value: isa.IcodeName(E.Icode)},
		}},
	}
}
