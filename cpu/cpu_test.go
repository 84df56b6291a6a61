package cpu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ember/asm"
	"ember/isa"
)

func compileAndRun(t *testing.T, source string) *CPU {
	t.Helper()
	words, err := asm.Compile(ProgramStart, source, "prog.instr")
	require.NoError(t, err)
	c, err := New(words, nil)
	require.NoError(t, err)
	for c.Running {
		require.NoError(t, c.Cycle())
	}
	return c
}

func TestHelloByte(t *testing.T) {
	var out bytes.Buffer
	words, err := asm.Compile(ProgramStart, "const; (0x0041); movab; const; (0x0000); outp; halt", "prog.instr")
	require.NoError(t, err)
	c, err := New(words, nil)
	require.NoError(t, err)
	c.Out = &out
	for c.Running {
		require.NoError(t, c.Cycle())
	}
	assert.Equal(t, "A", out.String())
	assert.False(t, c.Running)
	assert.Equal(t, uint16(ProgramStart), c.IC)
}

func TestAddWithFlags(t *testing.T) {
	c := compileAndRun(t, "const; (0x0003); movab; const; (0x0004); add; halt")
	assert.Equal(t, uint16(7), c.A)
	assert.False(t, c.Zero)
	assert.False(t, c.Negative)
	assert.False(t, c.Overflow)
}

func TestOverflowClamp(t *testing.T) {
	c := compileAndRun(t, "const; (0xFFFF); movab; const; (0x0002); add; halt")
	assert.Equal(t, uint16(0xFFFF), c.A)
	assert.True(t, c.Overflow)
	assert.False(t, c.Zero)
}

func TestJumpIfZero(t *testing.T) {
	// A = B, subtract, jmpz skips the "wrong path" const load, landing A=0x2222.
	source := `
		const; (0x0005); movab; movac;
		const; (0x0005); movab;
		movca; sub;
		%z done
		const; (0x1111); movab;
		:done
		const; (0x2222); movab;
		halt`
	c := compileAndRun(t, source)
	assert.Equal(t, uint16(0x2222), c.A)
}

func TestStackPushPopRoundTrip(t *testing.T) {
	c := compileAndRun(t, ".push 0x0042; .pop; halt")
	assert.Equal(t, uint16(0x0042), c.A)
	assert.Equal(t, uint16(StackStart), c.SC)
}

func TestSelfMoveIsFatal(t *testing.T) {
	c := &CPU{Running: true}
	err := c.Exec(isa.Instr{Kind: isa.KindMove, MoveFrom: isa.A, MoveTo: isa.A})
	assert.Error(t, err)
}

func TestLoadConstLatchConsumesNextWordAsLiteral(t *testing.T) {
	// Two consecutive LoadConst words: the second LoadConst opcode (0x0005)
	// itself gets consumed as the literal once the first sets the latch.
	words := []uint16{0x0005, 0x0005, 0x0000}
	c, err := New(words, nil)
	require.NoError(t, err)
	require.NoError(t, c.Cycle()) // LoadConst: sets latch
	require.NoError(t, c.Cycle()) // latch set: A <- 0x0005 (the raw word)
	assert.Equal(t, uint16(0x0005), c.A)
	assert.False(t, c.LoadConst)
}

func TestMemoryLayoutAfterInit(t *testing.T) {
	code := []uint16{0x0000, 0x0001}
	builtin := []uint16{0x0002}
	c, err := New(code, builtin)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0000), c.Memory[ProgramStart])
	assert.Equal(t, uint16(0x0001), c.Memory[ProgramStart+1])
	assert.Equal(t, uint16(0x0002), c.Memory[BuiltinStart])
	assert.Equal(t, uint16(0), c.Memory[VRAMStart])
	assert.Equal(t, uint16(0), c.Memory[HeapDataStart])
}

func TestProgramOverflowIsFatal(t *testing.T) {
	_, err := New(make([]uint16, StackStart-ProgramStart+1), nil)
	assert.Error(t, err)
}
