// Package cpu implements the ember fetch/decode/execute loop: a 65,536-word
// memory, three registers, a small flag set, and the ALU semantics the
// instruction set table in package isa only describes structurally.
package cpu

import (
	"io"
	"math/rand"

	"github.com/pkg/errors"

	"ember/isa"
)

// Memory region boundaries, word-addressed. Everything before Program is
// video RAM; everything from HeapData on is scratch heap space.
const (
	MemorySize    = 0x10000
	VRAMStart     = 0x0000
	ProgramStart  = 0x4000
	StackStart    = 0x6000
	BuiltinStart  = 0x7000
	HeapMetaStart = 0x7800
	HeapDataStart = 0x8000
)

// Error code constants a running program may latch via SetError.
const (
	ErrSuccess       = 0x0000
	ErrStackOverflow = 0x0010
	ErrHeapAlloc     = 0x0011
	ErrDivZero       = 0x0020
)

// CPU holds all emulator state. It is not safe for concurrent use: the
// driver owns it exclusively and must serialize every Cycle/Exec call.
type CPU struct {
	A, B, C uint16
	IC      uint16 // instruction counter
	SC      uint16 // stack counter
	IR      uint16 // instruction register, the word currently fetched

	Running   bool
	Jumped    bool
	LoadConst bool
	Zero      bool
	Negative  bool
	Overflow  bool
	ErrCode   uint8

	Cycles uint64

	Memory [MemorySize]uint16

	In   io.Reader
	Out  io.Writer
	Rand func() uint16
}

// New builds a CPU with code loaded at ProgramStart and builtin loaded at
// BuiltinStart. It is an error for either to overflow its region.
func New(code, builtin []uint16) (*CPU, error) {
	if len(code) > StackStart-ProgramStart {
		return nil, errors.Errorf("program size %d exceeds maximum size of %d", len(code), StackStart-ProgramStart)
	}
	if len(builtin) > HeapMetaStart-BuiltinStart {
		return nil, errors.Errorf("built-in program size %d exceeds maximum size of %d", len(builtin), HeapMetaStart-BuiltinStart)
	}

	c := &CPU{
		Running: true,
		IC:      ProgramStart,
		SC:      StackStart,
		Rand:    func() uint16 { return uint16(rand.Uint32()) },
	}
	copy(c.Memory[ProgramStart:], code)
	copy(c.Memory[BuiltinStart:], builtin)
	// The bump allocator in package builtin treats this word as its free
	// pointer; it must start at HeapDataStart or the first allocation hands
	// out address 0.
	c.Memory[HeapMetaStart] = HeapDataStart
	c.IR = c.Memory[c.IC]
	return c, nil
}

// Cycle runs one fetch/decode/execute pass. It does not check Running; the
// caller decides whether a halted or paused CPU is stepped.
func (c *CPU) Cycle() error {
	c.Jumped = false

	if c.LoadConst {
		c.A = c.IR
		c.LoadConst = false
	} else {
		instr, ok := isa.Decode(c.IR)
		if !ok {
			return errors.Errorf("failed to parse instruction %d", c.IR)
		}
		if err := c.exec(instr); err != nil {
			return err
		}
	}

	if !c.Jumped {
		c.IC++
	}
	c.Cycles++
	c.IR = c.Memory[c.IC]
	return nil
}

// Exec runs a single decoded instruction against the live CPU without
// touching the fetch/IC-advance machinery.
func (c *CPU) Exec(instr isa.Instr) error {
	return c.exec(instr)
}

func (c *CPU) exec(instr isa.Instr) error {
	switch instr.Kind {
	case isa.KindWait:
		// deliberately does nothing
	case isa.KindHalt:
		c.Running = false
		c.IC = ProgramStart
		c.Jumped = true // keep IC on ProgramStart instead of advancing past it
		c.Zero, c.Negative, c.Overflow = false, false, false
		c.ErrCode = 0
	case isa.KindPause:
		c.Running = false
	case isa.KindResume:
		c.Running = true
	case isa.KindSetError:
		c.ErrCode = uint8(c.A)
	case isa.KindMove:
		return c.execMove(instr.MoveFrom, instr.MoveTo)
	case isa.KindLoadConst:
		c.LoadConst = true
	case isa.KindCpuConst:
		c.A = instr.CpuConst
	case isa.KindInstrCounter:
		c.A = c.IC
	case isa.KindStackCounter:
		c.A = c.SC
	case isa.KindMoveToStackCounter:
		c.SC = c.A
	case isa.KindInput:
		c.execInput()
	case isa.KindOutput:
		c.execOutput()
	case isa.KindMemRead:
		c.A = c.Memory[c.B]
	case isa.KindMemWrite:
		c.Memory[c.A] = c.B
	case isa.KindJump:
		c.execJump(instr.Cond)
	case isa.KindAlu:
		c.execAlu(instr)
	default:
		return errors.Errorf("unhandled instruction kind %v", instr.Kind)
	}
	return nil
}

func (c *CPU) execMove(from, to isa.Reg) error {
	if from == to {
		return errors.New("can't move a register to itself")
	}
	v := c.reg(from)
	c.setReg(to, v)
	return nil
}

func (c *CPU) reg(r isa.Reg) uint16 {
	switch r {
	case isa.A:
		return c.A
	case isa.B:
		return c.B
	default:
		return c.C
	}
}

func (c *CPU) setReg(r isa.Reg, v uint16) {
	switch r {
	case isa.A:
		c.A = v
	case isa.B:
		c.B = v
	default:
		c.C = v
	}
}

func (c *CPU) execInput() {
	if c.A != 0 || c.In == nil {
		return
	}
	var buf [1]byte
	if _, err := c.In.Read(buf[:]); err == nil {
		c.B = uint16(buf[0])
	}
}

func (c *CPU) execOutput() {
	if c.A != 0 || c.Out == nil {
		return
	}
	c.Out.Write([]byte{byte(c.B)})
}

func (c *CPU) execJump(cond isa.JumpCond) {
	take := false
	switch cond {
	case isa.JumpAlways:
		take = true
	case isa.JumpIfZero:
		take = c.Zero
	case isa.JumpIfNeg:
		take = c.Negative
	case isa.JumpIfNegOrZero:
		take = c.Negative || c.Zero
	case isa.JumpIfOverflow:
		take = c.Overflow
	}
	if take {
		c.IC = c.A
		c.Jumped = true
	}
}

func clampWord(v int32) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

func (c *CPU) execAlu(instr isa.Instr) {
	a, b := int32(c.A), int32(c.B)
	var result int32

	switch instr.Alu {
	case isa.AluNoOp:
		result = a
	case isa.AluInc:
		result = a + 1
	case isa.AluDec:
		result = a - 1
	case isa.AluNot:
		result = int32(^uint16(a))
	case isa.AluOr:
		result = int32(uint16(a) | uint16(b))
	case isa.AluAnd:
		result = int32(uint16(a) & uint16(b))
	case isa.AluXor:
		result = int32(uint16(a) ^ uint16(b))
	case isa.AluAdd:
		result = a + b
	case isa.AluSub:
		result = a - b
	case isa.AluMul:
		result = a * b
	case isa.AluRandom:
		result = int32(c.Rand())
	case isa.AluShlVar:
		result = a << (uint16(b) & 0x000F)
	case isa.AluShrVar:
		result = a >> (uint16(b) & 0x000F)
	case isa.AluShl:
		result = a << instr.ShiftAmount
	case isa.AluShr:
		result = a >> instr.ShiftAmount
	}

	c.Negative = result < 0
	c.Zero = result == 0
	c.Overflow = result > 0xFFFF

	if !instr.Pass && instr.Alu != isa.AluNoOp {
		c.A = clampWord(result)
	}
}
