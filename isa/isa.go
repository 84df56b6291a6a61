// Package isa defines the instruction set of the ember CPU: the bit-exact
// mapping between 16-bit opcodes, their structured decoding, and the
// mnemonic tokens the assembler and disassembler exchange with source text.
//
// This is the single source of truth both the encoder and the CPU decoder
// consume; encode and decode must never disagree, or compiled programs
// silently misbehave on the emulator.
package isa

import (
	"fmt"

	"github.com/pkg/errors"
)

// Word is the native 16-bit unit of memory, registers and opcodes.
type Word = uint16

// Reg identifies one of the three general-purpose registers.
type Reg uint8

const (
	A Reg = iota
	B
	C
)

func (r Reg) String() string {
	switch r {
	case A:
		return "a"
	case B:
		return "b"
	case C:
		return "c"
	default:
		return "?"
	}
}

// Kind tags the disjoint cases of the instruction sum type.
type Kind uint8

const (
	KindHalt Kind = iota
	KindWait
	KindPause
	KindResume
	KindSetError
	KindLoadConst
	KindInstrCounter
	KindStackCounter
	KindMoveToStackCounter
	KindInput
	KindOutput
	KindMemRead
	KindMemWrite
	KindMove
	KindCpuConst
	KindJump
	KindAlu
)

// JumpCond selects which flag combination a Jump instruction tests.
// JumpAlways is the unconditional form.
type JumpCond uint8

const (
	JumpAlways JumpCond = iota
	JumpIfZero
	JumpIfNeg
	JumpIfNegOrZero
	JumpIfOverflow
)

// AluOp identifies the ALU's logical operation, independent of the pass bit.
type AluOp uint8

const (
	AluNoOp AluOp = iota
	AluInc
	AluDec
	AluNot
	AluOr
	AluAnd
	AluXor
	AluAdd
	AluSub
	AluMul
	AluRandom
	AluShlVar
	AluShrVar
	AluShl
	AluShr
)

// Instr is the decoded form of a fetched opcode: a tagged union with inner
// tagged unions (register pair, jump condition, ALU op/pass/shift amount).
// Only the fields relevant to Kind are meaningful.
type Instr struct {
	Kind Kind

	MoveFrom, MoveTo Reg
	CpuConst         Word
	Cond             JumpCond

	Alu         AluOp
	Pass        bool
	ShiftAmount uint8 // 1..15, valid only when Alu is AluShl or AluShr
}

// LoadConstOpcode is the opcode for the load-constant latch instruction.
// The CPU's fetch stage must route through the latch, not this table, to
// decide whether a following word is a Const payload.
const LoadConstOpcode Word = 0x0005

const (
	opHalt               Word = 0x0000
	opWait               Word = 0x0001
	opPause              Word = 0x0002
	opResume             Word = 0x0003
	opSetError           Word = 0x0004
	opInstrCounter       Word = 0x0006
	opStackCounter       Word = 0x0007
	opMoveToStackCounter Word = 0x0008
	opInput              Word = 0x0009
	opOutput             Word = 0x000A
	opMemRead            Word = 0x000B
	opMemWrite           Word = 0x000C

	moveBase     Word = 0x0010
	cpuConstBase Word = 0x0020
	jumpBase     Word = 0x0030
	aluBase      Word = 0x0040
	shlBase      Word = 0x0060
	shrBase      Word = 0x0080
)

// moveOrder lists the six distinct-endpoint register moves in opcode order,
// starting at moveBase.
var moveOrder = [6][2]Reg{
	{A, B}, {B, A}, {A, C}, {C, A}, {B, C}, {C, B},
}

// cpuConstOrder lists the five well-known constants in opcode order,
// starting at cpuConstBase.
var cpuConstOrder = [5]Word{0x0000, 0x0001, 0x000E, 0x000F, 0x0010}

// jumpOrder lists the five jump conditions in opcode order, starting at
// jumpBase.
var jumpOrder = [5]JumpCond{JumpAlways, JumpIfZero, JumpIfNeg, JumpIfNegOrZero, JumpIfOverflow}

// aluOrder lists the 13 ALU ops in opcode-pair order, starting at aluBase.
var aluOrder = [13]AluOp{
	AluNoOp, AluInc, AluDec, AluNot, AluOr, AluAnd, AluXor,
	AluAdd, AluSub, AluMul, AluRandom, AluShlVar, AluShrVar,
}

// Decode maps a 16-bit opcode to its structured instruction. It reports
// false when the opcode has no defined meaning; the caller (the CPU, only
// when load_const is clear) must treat that as a fatal decode error.
func Decode(op Word) (Instr, bool) {
	switch {
	case op == opHalt:
		return Instr{Kind: KindHalt}, true
	case op == opWait:
		return Instr{Kind: KindWait}, true
	case op == opPause:
		return Instr{Kind: KindPause}, true
	case op == opResume:
		return Instr{Kind: KindResume}, true
	case op == opSetError:
		return Instr{Kind: KindSetError}, true
	case op == LoadConstOpcode:
		return Instr{Kind: KindLoadConst}, true
	case op == opInstrCounter:
		return Instr{Kind: KindInstrCounter}, true
	case op == opStackCounter:
		return Instr{Kind: KindStackCounter}, true
	case op == opMoveToStackCounter:
		return Instr{Kind: KindMoveToStackCounter}, true
	case op == opInput:
		return Instr{Kind: KindInput}, true
	case op == opOutput:
		return Instr{Kind: KindOutput}, true
	case op == opMemRead:
		return Instr{Kind: KindMemRead}, true
	case op == opMemWrite:
		return Instr{Kind: KindMemWrite}, true
	case op >= moveBase && int(op-moveBase) < len(moveOrder):
		pair := moveOrder[op-moveBase]
		return Instr{Kind: KindMove, MoveFrom: pair[0], MoveTo: pair[1]}, true
	case op >= cpuConstBase && int(op-cpuConstBase) < len(cpuConstOrder):
		return Instr{Kind: KindCpuConst, CpuConst: cpuConstOrder[op-cpuConstBase]}, true
	case op >= jumpBase && int(op-jumpBase) < len(jumpOrder):
		return Instr{Kind: KindJump, Cond: jumpOrder[op-jumpBase]}, true
	case op >= aluBase && int(op-aluBase) < len(aluOrder)*2:
		idx := (op - aluBase) / 2
		opv := aluOrder[idx]
		switch opv {
		case AluNoOp:
			// 0x0040 and 0x0041 both decode to the same no-op; the parity
			// bit is meaningless for it.
			return Instr{Kind: KindAlu, Alu: AluNoOp, Pass: true}, true
		case AluRandom:
			// 0x0054 and 0x0055 both decode to pass:false; the draw doesn't
			// consult the pass flag either way.
			return Instr{Kind: KindAlu, Alu: AluRandom, Pass: false}, true
		default:
			pass := (op-aluBase)%2 == 0
			return Instr{Kind: KindAlu, Alu: opv, Pass: pass}, true
		}
	case op >= shlBase+2 && op <= shlBase+31:
		n, pass := shiftDecode(op - shlBase)
		return Instr{Kind: KindAlu, Alu: AluShl, Pass: pass, ShiftAmount: n}, true
	case op >= shrBase+2 && op <= shrBase+31:
		n, pass := shiftDecode(op - shrBase)
		return Instr{Kind: KindAlu, Alu: AluShr, Pass: pass, ShiftAmount: n}, true
	default:
		return Instr{}, false
	}
}

// shiftDecode turns an offset relative to shlBase/shrBase into (amount, pass),
// inverting offset = 2*amount + (0 if pass else 1) for amount in 1..15.
func shiftDecode(offset Word) (amount uint8, pass bool) {
	return uint8(offset / 2), offset%2 == 0
}

// Encode is the inverse of Decode: it reports the canonical opcode for a
// structured instruction, or false if the instruction is not representable
// (e.g. an out-of-range shift amount or an unmapped CpuConst value).
func Encode(instr Instr) (Word, bool) {
	switch instr.Kind {
	case KindHalt:
		return opHalt, true
	case KindWait:
		return opWait, true
	case KindPause:
		return opPause, true
	case KindResume:
		return opResume, true
	case KindSetError:
		return opSetError, true
	case KindLoadConst:
		return LoadConstOpcode, true
	case KindInstrCounter:
		return opInstrCounter, true
	case KindStackCounter:
		return opStackCounter, true
	case KindMoveToStackCounter:
		return opMoveToStackCounter, true
	case KindInput:
		return opInput, true
	case KindOutput:
		return opOutput, true
	case KindMemRead:
		return opMemRead, true
	case KindMemWrite:
		return opMemWrite, true
	case KindMove:
		for i, pair := range moveOrder {
			if pair[0] == instr.MoveFrom && pair[1] == instr.MoveTo {
				return moveBase + Word(i), true
			}
		}
		return 0, false
	case KindCpuConst:
		for i, v := range cpuConstOrder {
			if v == instr.CpuConst {
				return cpuConstBase + Word(i), true
			}
		}
		return 0, false
	case KindJump:
		for i, c := range jumpOrder {
			if c == instr.Cond {
				return jumpBase + Word(i), true
			}
		}
		return 0, false
	case KindAlu:
		if instr.Alu == AluShl || instr.Alu == AluShr {
			if instr.ShiftAmount < 1 || instr.ShiftAmount > 15 {
				return 0, false
			}
			base := shlBase
			if instr.Alu == AluShr {
				base = shrBase
			}
			offset := Word(instr.ShiftAmount) * 2
			if !instr.Pass {
				offset++
			}
			return base + offset, true
		}
		if instr.Alu == AluNoOp {
			// The encoder ignores the pass bit for no-op: only 0x0040 is
			// ever produced.
			return aluBase, true
		}
		for i, op := range aluOrder {
			if op == instr.Alu {
				offset := Word(i) * 2
				if !instr.Pass {
					offset++
				}
				return aluBase + offset, true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// mnemonicToInstr and instrToMnemonic are built once at init time from the
// same register calls so the two directions can never drift apart.
var (
	mnemonicToInstr = map[string]Instr{}
	instrToMnemonic = map[Instr]string{}
)

func register(mnemonic string, instr Instr) {
	if _, exists := mnemonicToInstr[mnemonic]; exists {
		panic("isa: duplicate mnemonic " + mnemonic)
	}
	mnemonicToInstr[mnemonic] = instr
	if _, exists := instrToMnemonic[instr]; !exists {
		instrToMnemonic[instr] = mnemonic
	}
}

var shiftDigits = "123456789abcdef"

func init() {
	register("halt", Instr{Kind: KindHalt})
	register("wait", Instr{Kind: KindWait})
	register("pause", Instr{Kind: KindPause})
	register("resume", Instr{Kind: KindResume})
	register("seterr", Instr{Kind: KindSetError})
	register("const", Instr{Kind: KindLoadConst})
	register("ictr", Instr{Kind: KindInstrCounter})
	register("sctr", Instr{Kind: KindStackCounter})
	register("msctr", Instr{Kind: KindMoveToStackCounter})
	register("inp", Instr{Kind: KindInput})
	register("outp", Instr{Kind: KindOutput})
	register("memr", Instr{Kind: KindMemRead})
	register("memw", Instr{Kind: KindMemWrite})

	moveNames := [6]string{"movab", "movba", "movac", "movca", "movbc", "movcb"}
	for i, pair := range moveOrder {
		register(moveNames[i], Instr{Kind: KindMove, MoveFrom: pair[0], MoveTo: pair[1]})
	}

	for _, v := range cpuConstOrder {
		register(fmt.Sprintf("set0x%04x", v), Instr{Kind: KindCpuConst, CpuConst: v})
	}

	jumpNames := map[JumpCond]string{
		JumpAlways: "jmp", JumpIfZero: "jmpz", JumpIfNeg: "jmpn",
		JumpIfNegOrZero: "jmpnz", JumpIfOverflow: "jmpo",
	}
	for _, cond := range jumpOrder {
		register(jumpNames[cond], Instr{Kind: KindJump, Cond: cond})
	}

	aluNames := map[AluOp]string{
		AluInc: "inc", AluDec: "dec", AluNot: "not",
		AluOr: "or", AluAnd: "and", AluXor: "xor", AluAdd: "add",
		AluSub: "sub", AluMul: "mult",
		AluShlVar: "shl", AluShrVar: "shr",
	}
	for _, op := range aluOrder {
		if op == AluNoOp || op == AluRandom {
			continue
		}
		base := aluNames[op]
		register(base, Instr{Kind: KindAlu, Alu: op, Pass: false})
		register(base+"p", Instr{Kind: KindAlu, Alu: op, Pass: true})
	}
	// NoOp and Random each have exactly one mnemonic: the original source
	// never defines a "noopp" or "randp" token, and both opcodes ignore the
	// pass bit at execution time.
	register("noop", Instr{Kind: KindAlu, Alu: AluNoOp, Pass: true})
	register("rand", Instr{Kind: KindAlu, Alu: AluRandom, Pass: false})

	for n := 1; n <= 15; n++ {
		digit := string(shiftDigits[n-1])
		register("shl"+digit, Instr{Kind: KindAlu, Alu: AluShl, ShiftAmount: uint8(n), Pass: false})
		register("shl"+digit+"p", Instr{Kind: KindAlu, Alu: AluShl, ShiftAmount: uint8(n), Pass: true})
		register("shr"+digit, Instr{Kind: KindAlu, Alu: AluShr, ShiftAmount: uint8(n), Pass: false})
		register("shr"+digit+"p", Instr{Kind: KindAlu, Alu: AluShr, ShiftAmount: uint8(n), Pass: true})
	}
}

// Mnemonic returns the canonical mnemonic for a structured instruction,
// or false if it has none (e.g. an invalid shift amount).
func Mnemonic(instr Instr) (string, bool) {
	m, ok := instrToMnemonic[instr]
	return m, ok
}

// ParseMnemonic resolves a lowercase token to its structured instruction.
func ParseMnemonic(token string) (Instr, bool) {
	instr, ok := mnemonicToInstr[token]
	return instr, ok
}

// NamedConstants maps the region and error-code names accepted inside a
// parenthesized constant literal, e.g. "(stack)", to their numeric value.
var NamedConstants = map[string]Word{
	"vram":             0x0000,
	"program":          0x4000,
	"stack":            0x6000,
	"builtin":          0x7000,
	"heap_meta":        0x7800,
	"heap_data":        0x8000,
	"success_error":    0x0000,
	"stack_error":      0x0010,
	"heap_alloc_error": 0x0011,
	"div_0_error":      0x0020,
	"std/alloc":        0x7000,
}

// ErrUnknownMnemonic is wrapped with the offending token by callers that
// need to report "line N: invalid instruction '<t>'" style messages.
var ErrUnknownMnemonic = errors.New("unknown mnemonic")
