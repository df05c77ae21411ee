// Package pipestd implements the five-stage pipelined "PIPE" Y86-64
// architecture: Fetch, Decode, Execute, Memory, Writeback, grounded on
// pipe_std.rs (spec.md §4.6). It predicts branches taken, forwards
// valA/valB into decode from every later stage that might hold a
// fresher copy, and resolves load-use hazards, branch mispredictions,
// and the RET hazard with the stall/bubble combinations pipe_std.rs
// specifies.
package pipestd

import (
	"github.com/y86sim/archlab/framework"
	"github.com/y86sim/archlab/graph"
	"github.com/y86sim/archlab/hw"
	"github.com/y86sim/archlab/isa"
	"github.com/y86sim/archlab/mem"
	"github.com/y86sim/archlab/stage"
)

// Name identifies this architecture in the registry.
const Name = "pipe_std"

type fReg struct {
	PredPC uint64
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

func dDefaults() dReg { return dReg{Stat: isa.Bub, Icode: isa.NOP, RA: isa.RNONE, RB: isa.RNONE} }

type eReg struct {
	Stat  isa.Stat
	Icode uint8
	Ifun  uint8
	ValC  uint64
	ValA  uint64
	ValB  uint64
	DstE  uint8
	DstM  uint8
	SrcA  uint8
	SrcB  uint8
}

func eDefaults() eReg {
	return eReg{Stat: isa.Bub, Icode: isa.NOP, DstE: isa.RNONE, DstM: isa.RNONE, SrcA: isa.RNONE, SrcB: isa.RNONE}
}

type mReg struct {
	Stat  isa.Stat
	Icode uint8
	Cnd   bool
	ValE  uint64
	ValA  uint64
	DstE  uint8
	DstM  uint8
}

func mDefaults() mReg { return mReg{Stat: isa.Bub, Icode: isa.NOP, DstE: isa.RNONE, DstM: isa.RNONE} }

type wReg struct {
	Stat  isa.Stat
	Icode uint8
	ValE  uint64
	ValM  uint64
	DstE  uint8
	DstM  uint8
}

func wDefaults() wReg { return wReg{Stat: isa.Bub, Icode: isa.NOP, DstE: isa.RNONE, DstM: isa.RNONE} }

// wires holds every intermediate value computed during one evaluation
// of the propagation graph.
type wires struct {
	fPC      uint64
	fIcode   uint8
	fIfun    uint8
	fAlign   [9]byte
	instrValid bool
	fStat    isa.Stat
	needRegids, needValC bool
	fPredPC  uint64

	dSrcA, dSrcB uint8
	dDstE, dDstM uint8
	dRvalA, dRvalB uint64
	dValA, dValB   uint64

	aluA, aluB uint64
	aluFun     uint8
	setCC      bool
	eCnd       bool
	eDstE      uint8

	memAddr           uint64
	memRead, memWrite bool
	memData           uint64
	mStat             isa.Stat
	mValM             uint64

	loadUse      bool
	retInPipe    bool
	branchMispred bool

	progTerm bool
}

// CPU is one running instance of the PIPE architecture.
type CPU struct {
	order *graph.Order

	f *stage.Register[fReg]
	d *stage.Register[dReg]
	e *stage.Register[eReg]
	m *stage.Register[mReg]
	w *stage.Register[wReg]

	imem    hw.InstructionMemory
	align   hw.Align
	regfile hw.RegisterFile
	alu     hw.ALU
	regcc   hw.RegisterCC
	cond    hw.Condition
	dmem    hw.DataMemory

	wires wires

	// scratch unit outputs, held across the closures of a single
	// cycle's evaluation alongside wires.
	imemErrorOut bool
	pcIncNewPC   uint64
	ialignRA     uint8
	ialignRB     uint8
	ialignValC   uint64
	aluE         uint64
	cc           isa.ConditionCode
	dmemDataOut  uint64
	dmemErrorOut bool

	cycles     uint64
	terminated bool
}

// New builds a PIPE CPU over the given memory image.
func New(img *mem.Image) (*CPU, error) {
	c := &CPU{
		f: stage.NewRegister("F", fReg{}),
		d: stage.NewRegister("D", dDefaults()),
		e: stage.NewRegister("E", eDefaults()),
		m: stage.NewRegister("M", mDefaults()),
		w: stage.NewRegister("W", wDefaults()),
	}
	c.imem = hw.InstructionMemory{Binary: img}
	c.dmem = hw.DataMemory{Binary: img}

	b := graph.NewBuilder()
	b.External("F", "D", "E", "M", "W")

	b.Signal("f_pc", []string{"M", "W", "F"}, c.evalFPC)
	b.Unit("imem", []string{"f_pc"}, []string{"icode", "ifun", "align", "error"}, c.evalImem)
	b.Signal("f_icode", []string{"imem.error", "imem.icode"}, c.evalFIcode)
	b.Signal("f_ifun", []string{"imem.error", "imem.ifun"}, c.evalFIfun)
	b.Signal("instr_valid", []string{"f_icode"}, c.evalInstrValid)
	b.Signal("f_stat", []string{"imem.error", "instr_valid", "f_icode"}, c.evalFStat)
	b.Signal("need_regids", []string{"f_icode"}, c.evalNeedRegids)
	b.Signal("need_valC", []string{"f_icode"}, c.evalNeedValC)
	b.Unit("pc_inc", []string{"need_valC", "need_regids", "f_pc"}, []string{"new_pc"}, c.evalPCInc)
	b.Unit("ialign", []string{"imem.align", "need_regids"}, []string{"rA", "rB", "valC"}, c.evalIAlign)
	b.Signal("f_pred_pc", []string{"f_icode", "ialign.valC", "pc_inc.new_pc"}, c.evalFPredPC)

	b.Signal("d_srcA", nil, c.evalDSrcA)
	b.Signal("d_srcB", nil, c.evalDSrcB)
	b.Signal("d_dstE", nil, c.evalDDstE)
	b.Signal("d_dstM", nil, c.evalDDstM)
	b.Unit("reg_file", []string{"d_srcA", "d_srcB"}, []string{"valA", "valB"}, c.evalRegFile)

	b.Signal("aluA", nil, c.evalAluA)
	b.Signal("aluB", nil, c.evalAluB)
	b.Signal("alufun", nil, c.evalAluFun)
	b.Unit("alu", []string{"aluA", "aluB", "alufun"}, []string{"e"}, c.evalALU)
	b.Signal("mem_addr", nil, c.evalMemAddr)
	b.Signal("mem_read", nil, c.evalMemRead)
	b.Signal("mem_write", nil, c.evalMemWrite)
	b.Signal("mem_data", nil, c.evalMemData)
	b.Unit("dmem", []string{"mem_addr", "mem_data", "mem_read", "mem_write"}, []string{"dataout", "error"}, c.evalDMem)
	b.Signal("m_stat", []string{"dmem.error"}, c.evalMStat)
	b.Signal("m_valM", []string{"dmem.dataout"}, c.evalMValM)
	b.Signal("set_cc", []string{"m_stat"}, c.evalSetCC)
	b.Unit("reg_cc", []string{"set_cc", "aluA", "aluB", "alu.e", "alufun"}, []string{"cc"}, c.evalRegCC)
	b.Unit("cond", []string{"reg_cc.cc"}, []string{"cnd"}, c.evalCond)
	b.Signal("e_dstE", []string{"cond.cnd"}, c.evalEDstE)

	b.Signal("d_valA", []string{"d_srcA", "reg_file.valA", "e_dstE", "alu.e", "m_valM"}, c.evalDValA)
	b.Signal("d_valB", []string{"d_srcB", "reg_file.valB", "e_dstE", "alu.e", "m_valM"}, c.evalDValB)

	b.Signal("load_use_hazard", []string{"d_srcA", "d_srcB"}, c.evalLoadUse)
	b.Signal("ret_in_pipe", nil, c.evalRetInPipe)
	b.Signal("branch_mispred", []string{"cond.cnd"}, c.evalBranchMispred)

	b.Signal("prog_term", []string{"m_stat"}, c.evalProgTerm)

	b.Signal("stage_f", []string{"f_pred_pc", "load_use_hazard", "ret_in_pipe"}, c.evalStageF)
	b.Signal("stage_d", []string{"f_icode", "f_ifun", "f_stat", "ialign.valC", "pc_inc.new_pc", "ialign.rA", "ialign.rB",
		"load_use_hazard", "branch_mispred", "ret_in_pipe"}, c.evalStageD)
	b.Signal("stage_e", []string{"d_srcA", "d_srcB", "d_valA", "d_valB", "d_dstE", "d_dstM",
		"branch_mispred", "load_use_hazard"}, c.evalStageE)
	b.Signal("stage_m", []string{"e_dstE", "cond.cnd", "alu.e", "m_stat"}, c.evalStageM)
	b.Signal("stage_w", []string{"m_stat", "m_valM"}, c.evalStageW)

	order, err := b.Build()
	if err != nil {
		return nil, err
	}
	c.order = order
	return c, nil
}

func (c *CPU) evalFPC() {
	M, W, F := c.m.Current(), c.w.Current(), c.f.Current()
	switch {
	case M.Icode == isa.JX && !M.Cnd:
		c.wires.fPC = M.ValA
	case W.Icode == isa.RET:
		c.wires.fPC = W.ValM
	default:
		c.wires.fPC = F.PredPC
	}
}

func (c *CPU) evalImem() {
	out := c.imem.Eval(hw.InstructionMemoryIn{PC: c.wires.fPC})
	c.wires.fAlign = out.Align
	c.wires.fIcode = out.Icode
	c.wires.fIfun = out.Ifun
	c.imemErrorOut = out.Error
}

func (c *CPU) evalFIcode() {
	if c.imemErrorOut {
		c.wires.fIcode = isa.NOP
	}
}

func (c *CPU) evalFIfun() {
	if c.imemErrorOut {
		c.wires.fIfun = 0xF
	}
}

func (c *CPU) evalInstrValid() {
	c.wires.instrValid = isa.ValidIcode(c.wires.fIcode)
}

func (c *CPU) evalFStat() {
	switch {
	case c.imemErrorOut:
		c.wires.fStat = isa.Adr
	case !c.wires.instrValid:
		c.wires.fStat = isa.Ins
	case c.wires.fIcode == isa.HALT:
		c.wires.fStat = isa.Hlt
	default:
		c.wires.fStat = isa.Aok
	}
}

func (c *CPU) evalNeedRegids() { c.wires.needRegids = isa.NeedRegids(c.wires.fIcode) }
func (c *CPU) evalNeedValC()   { c.wires.needValC = isa.NeedValC(c.wires.fIcode) }

func (c *CPU) evalPCInc() {
	out := hw.PCIncrement{}.Eval(hw.PCIncrementIn{
		NeedValC:   c.wires.needValC,
		NeedRegids: c.wires.needRegids,
		OldPC:      c.wires.fPC,
	})
	c.pcIncNewPC = out.NewPC
}

func (c *CPU) evalIAlign() {
	out := c.align.Eval(hw.AlignIn{NeedRegids: c.wires.needRegids, Align: c.wires.fAlign})
	c.ialignRA, c.ialignRB, c.ialignValC = out.RA, out.RB, out.ValC
}

func (c *CPU) evalFPredPC() {
	if isa.OneOf(c.wires.fIcode, isa.JX, isa.CALL) {
		c.wires.fPredPC = c.ialignValC
	} else {
		c.wires.fPredPC = c.pcIncNewPC
	}
}

func (c *CPU) evalDSrcA() {
	D := c.d.Current()
	switch {
	case isa.OneOf(D.Icode, isa.CMOVX, isa.RMMOVQ, isa.OPQ, isa.PUSHQ):
		c.wires.dSrcA = D.RA
	case isa.OneOf(D.Icode, isa.POPQ, isa.RET):
		c.wires.dSrcA = isa.RSP
	default:
		c.wires.dSrcA = isa.RNONE
	}
}

func (c *CPU) evalDSrcB() {
	D := c.d.Current()
	switch {
	case isa.OneOf(D.Icode, isa.OPQ, isa.IOPQ, isa.RMMOVQ, isa.MRMOVQ):
		c.wires.dSrcB = D.RB
	case isa.OneOf(D.Icode, isa.PUSHQ, isa.POPQ, isa.CALL, isa.RET):
		c.wires.dSrcB = isa.RSP
	default:
		c.wires.dSrcB = isa.RNONE
	}
}

func (c *CPU) evalDDstE() {
	D := c.d.Current()
	switch {
	case isa.OneOf(D.Icode, isa.CMOVX, isa.IRMOVQ, isa.OPQ, isa.IOPQ):
		c.wires.dDstE = D.RB
	case isa.OneOf(D.Icode, isa.PUSHQ, isa.POPQ, isa.CALL, isa.RET):
		c.wires.dDstE = isa.RSP
	default:
		c.wires.dDstE = isa.RNONE
	}
}

func (c *CPU) evalDDstM() {
	D := c.d.Current()
	if isa.OneOf(D.Icode, isa.MRMOVQ, isa.POPQ) {
		c.wires.dDstM = D.RA
	} else {
		c.wires.dDstM = isa.RNONE
	}
}

func (c *CPU) evalRegFile() {
	W := c.w.Current()
	out := c.regfile.Eval(hw.RegisterFileIn{
		SrcA: c.wires.dSrcA, SrcB: c.wires.dSrcB,
		DstE: W.DstE, DstM: W.DstM,
		ValE: W.ValE, ValM: W.ValM,
	})
	c.wires.dRvalA, c.wires.dRvalB = out.ValA, out.ValB
}

func (c *CPU) evalAluA() {
	E := c.e.Current()
	switch {
	case isa.OneOf(E.Icode, isa.CMOVX, isa.OPQ):
		c.wires.aluA = E.ValA
	case isa.OneOf(E.Icode, isa.IRMOVQ, isa.IOPQ, isa.RMMOVQ, isa.MRMOVQ):
		c.wires.aluA = E.ValC
	case isa.OneOf(E.Icode, isa.CALL, isa.PUSHQ):
		c.wires.aluA = isa.Neg8
	case isa.OneOf(E.Icode, isa.RET, isa.POPQ):
		c.wires.aluA = 8
	default:
		c.wires.aluA = 0
	}
}

func (c *CPU) evalAluB() {
	E := c.e.Current()
	if isa.OneOf(E.Icode, isa.RMMOVQ, isa.MRMOVQ, isa.OPQ, isa.IOPQ, isa.CALL, isa.PUSHQ, isa.RET, isa.POPQ) {
		c.wires.aluB = E.ValB
	} else {
		c.wires.aluB = 0
	}
}

func (c *CPU) evalAluFun() {
	E := c.e.Current()
	if isa.OneOf(E.Icode, isa.OPQ, isa.IOPQ) {
		c.wires.aluFun = E.Ifun
	} else {
		c.wires.aluFun = isa.ALUAdd
	}
}

func (c *CPU) evalALU() {
	c.aluE = c.alu.Eval(hw.ALUIn{A: c.wires.aluA, B: c.wires.aluB, Fun: c.wires.aluFun}).E
}

func (c *CPU) evalMemAddr() {
	M := c.m.Current()
	switch {
	case isa.OneOf(M.Icode, isa.RMMOVQ, isa.PUSHQ, isa.CALL, isa.MRMOVQ):
		c.wires.memAddr = M.ValE
	case isa.OneOf(M.Icode, isa.POPQ, isa.RET):
		c.wires.memAddr = M.ValA
	default:
		c.wires.memAddr = 0
	}
}

func (c *CPU) evalMemRead() {
	c.wires.memRead = isa.OneOf(c.m.Current().Icode, isa.MRMOVQ, isa.POPQ, isa.RET)
}

func (c *CPU) evalMemWrite() {
	c.wires.memWrite = isa.OneOf(c.m.Current().Icode, isa.RMMOVQ, isa.PUSHQ, isa.CALL)
}

func (c *CPU) evalMemData() {
	c.wires.memData = c.m.Current().ValA
}

func (c *CPU) evalDMem() {
	out := c.dmem.Eval(hw.DataMemoryIn{
		Addr: c.wires.memAddr, DataIn: c.wires.memData,
		Read: c.wires.memRead, Write: c.wires.memWrite,
	})
	c.dmemDataOut, c.dmemErrorOut = out.DataOut, out.Error
}

func (c *CPU) evalMStat() {
	if c.dmemErrorOut {
		c.wires.mStat = isa.Adr
	} else {
		c.wires.mStat = c.m.Current().Stat
	}
}

func (c *CPU) evalMValM() {
	c.wires.mValM = c.dmemDataOut
}

func (c *CPU) evalSetCC() {
	E := c.e.Current()
	W := c.w.Current()
	c.wires.setCC = isa.OneOf(E.Icode, isa.OPQ, isa.IOPQ) && !c.wires.mStat.Terminal() && !W.Stat.Terminal()
}

func (c *CPU) evalRegCC() {
	c.cc = c.regcc.Eval(hw.RegisterCCIn{
		SetCC: c.wires.setCC, A: c.wires.aluA, B: c.wires.aluB, E: c.aluE, OpFun: c.wires.aluFun,
	}).CC
}

func (c *CPU) evalCond() {
	c.wires.eCnd = hw.Condition{}.Eval(hw.ConditionIn{CC: c.cc, CondFun: c.e.Current().Ifun}).Cnd
}

func (c *CPU) evalEDstE() {
	E := c.e.Current()
	if E.Icode == isa.CMOVX && !c.wires.eCnd {
		c.wires.eDstE = isa.RNONE
	} else {
		c.wires.eDstE = E.DstE
	}
}

func (c *CPU) evalDValA() {
	D := c.d.Current()
	M := c.m.Current()
	W := c.w.Current()
	switch {
	case isa.OneOf(D.Icode, isa.CALL, isa.JX):
		c.wires.dValA = D.ValP
	case c.wires.dSrcA == c.wires.eDstE && c.wires.dSrcA != isa.RNONE:
		c.wires.dValA = c.aluE
	case c.wires.dSrcA == M.DstM && c.wires.dSrcA != isa.RNONE:
		c.wires.dValA = c.wires.mValM
	case c.wires.dSrcA == M.DstE && c.wires.dSrcA != isa.RNONE:
		c.wires.dValA = M.ValE
	case c.wires.dSrcA == W.DstM && c.wires.dSrcA != isa.RNONE:
		c.wires.dValA = W.ValM
	case c.wires.dSrcA == W.DstE && c.wires.dSrcA != isa.RNONE:
		c.wires.dValA = W.ValE
	default:
		c.wires.dValA = c.wires.dRvalA
	}
}

func (c *CPU) evalDValB() {
	M := c.m.Current()
	W := c.w.Current()
	switch {
	case c.wires.dSrcB == c.wires.eDstE && c.wires.dSrcB != isa.RNONE:
		c.wires.dValB = c.aluE
	case c.wires.dSrcB == M.DstM && c.wires.dSrcB != isa.RNONE:
		c.wires.dValB = c.wires.mValM
	case c.wires.dSrcB == M.DstE && c.wires.dSrcB != isa.RNONE:
		c.wires.dValB = M.ValE
	case c.wires.dSrcB == W.DstM && c.wires.dSrcB != isa.RNONE:
		c.wires.dValB = W.ValM
	case c.wires.dSrcB == W.DstE && c.wires.dSrcB != isa.RNONE:
		c.wires.dValB = W.ValE
	default:
		c.wires.dValB = c.wires.dRvalB
	}
}

func (c *CPU) evalLoadUse() {
	E := c.e.Current()
	c.wires.loadUse = isa.OneOf(E.Icode, isa.MRMOVQ, isa.POPQ) &&
		(E.DstM == c.wires.dSrcA || E.DstM == c.wires.dSrcB) && E.DstM != isa.RNONE
}

func (c *CPU) evalRetInPipe() {
	D, E, M := c.d.Current(), c.e.Current(), c.m.Current()
	c.wires.retInPipe = D.Icode == isa.RET || E.Icode == isa.RET || M.Icode == isa.RET
}

func (c *CPU) evalBranchMispred() {
	E := c.e.Current()
	c.wires.branchMispred = E.Icode == isa.JX && !c.wires.eCnd
}

func (c *CPU) evalProgTerm() {
	W := c.w.Current()
	progStat := W.Stat
	if progStat == isa.Bub {
		progStat = isa.Aok
	}
	c.wires.progTerm = progStat.Terminal()
}

func (c *CPU) evalStageF() {
	fBubble := false
	fStall := c.wires.loadUse || c.wires.retInPipe
	c.f.Bubble(fBubble)
	c.f.Stall(fStall)
	c.f.SetNext(fReg{PredPC: c.wires.fPredPC})
}

func (c *CPU) evalStageD() {
	dStall := c.wires.loadUse
	dBubble := c.wires.branchMispred || (!c.wires.loadUse && c.wires.retInPipe)
	c.d.Bubble(dBubble)
	c.d.Stall(dStall)
	c.d.SetNext(dReg{
		Icode: c.wires.fIcode, Ifun: c.wires.fIfun, Stat: c.wires.fStat,
		ValC: c.ialignValC, ValP: c.pcIncNewPC, RA: c.ialignRA, RB: c.ialignRB,
	})
}

func (c *CPU) evalStageE() {
	D := c.d.Current()
	eBubble := c.wires.branchMispred || c.wires.loadUse
	c.e.Bubble(eBubble)
	c.e.Stall(false)
	c.e.SetNext(eReg{
		Icode: D.Icode, Ifun: D.Ifun, Stat: D.Stat, ValC: D.ValC,
		SrcA: c.wires.dSrcA, SrcB: c.wires.dSrcB,
		ValA: c.wires.dValA, ValB: c.wires.dValB,
		DstE: c.wires.dDstE, DstM: c.wires.dDstM,
	})
}

func (c *CPU) evalStageM() {
	E := c.e.Current()
	mBubble := c.wires.mStat.Terminal() || c.w.Current().Stat.Terminal()
	c.m.Bubble(mBubble)
	c.m.Stall(false)
	c.m.SetNext(mReg{
		Stat: E.Stat, Icode: E.Icode, DstE: c.wires.eDstE, DstM: E.DstM,
		Cnd: c.wires.eCnd, ValE: c.aluE, ValA: E.ValA,
	})
}

func (c *CPU) evalStageW() {
	M := c.m.Current()
	wStall := c.w.Current().Stat.Terminal()
	c.w.Bubble(false)
	c.w.Stall(wStall)
	c.w.SetNext(wReg{
		Stat: c.wires.mStat, Icode: M.Icode, ValE: M.ValE, ValM: c.wires.mValM,
		DstE: M.DstE, DstM: M.DstM,
	})
}

// Step runs one simulated cycle.
func (c *CPU) Step() {
	c.order.Run()
	for _, err := range []error{c.f.Latch(), c.d.Latch(), c.e.Latch(), c.m.Latch(), c.w.Latch()} {
		if err != nil {
			panic(err)
		}
	}
	c.cycles++
	c.terminated = c.wires.progTerm
}

// Terminated reports whether the architecture's termination signal was
// asserted by the most recently completed cycle.
func (c *CPU) Terminated() bool { return c.terminated }

// ProgramCounter returns the address fetched this cycle.
func (c *CPU) ProgramCounter() uint64 { return c.wires.fPC }

// CycleCount returns the number of cycles run so far.
func (c *CPU) CycleCount() uint64 { return c.cycles }

// CriticalPath returns the build-time critical-path length.
func (c *CPU) CriticalPath() uint64 { return uint64(c.order.CriticalPath) }

// Registers returns the current architectural register file.
func (c *CPU) Registers() isa.RegFile { return c.regfile.Snapshot() }

// Arch names this architecture.
func (c *CPU) Arch() string { return Name }

// StageInfo reports all five pipeline registers for debugger display.
func (c *CPU) StageInfo() []framework.StageInfo {
	F, D, E, M, W := c.f.Current(), c.d.Current(), c.e.Current(), c.m.Current(), c.w.Current()
	return []framework.StageInfo{
		{Name: "F", Fields: []framework.StageField{{Name: "pred_pc", Value: isa.FormatHex(F.PredPC)}}},
		{Name: "D", Fields: []framework.StageField{
			{Name: "stat", Value: D.Stat.String()}, {Name: "icode", Value: isa.IcodeName(D.Icode)},
		}},
		{Name: "E", Fields: []framework.StageField{
			{Name: "stat", Value: E.Stat.String()}, {Name: "icode", Value: isa.IcodeName(E.Icode)},
		}},
		{Name: "M", Fields: []framework.StageField{
			{Name: "stat", Value: M.Stat.String()}, {Name: "icode", Value: isa.IcodeName(M.Icode)},
		}},
		{Name: "W", Fields: []framework.StageField{
			{Name: "stat", Value: W.Stat.String()}, {Name: "icode", Value: isa.IcodeName(W.Icode)},
		}},
	}
}
