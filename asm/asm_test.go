package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandLinesDropsCommentsAndSplitsStatements(t *testing.T) {
	lines, err := ExpandLines("halt ; wait # trailing\n# full line comment\n\nnoop", "prog.instr")
	require.NoError(t, err)
	assert.Equal(t, []string{"halt", "wait", "noop"}, lines)
}

func TestExpandConstMacro(t *testing.T) {
	lines, err := ExpandLines(".const 0x0003", "prog.instr")
	require.NoError(t, err)
	assert.Equal(t, []string{"const", "(0x0003)"}, lines)
}

func TestExpandUnknownMacroFails(t *testing.T) {
	_, err := ExpandLines(".bogus", "prog.instr")
	assert.Error(t, err)
}

func TestExpandPushPop(t *testing.T) {
	lines, err := ExpandLines(".push 0x0042\n.pop", "prog.instr")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"const", "(0x0042)", "movab", "sctr", "memw", "inc", "msctr",
		"sctr", "dec", "msctr", "movab", "memr",
	}, lines)
}

func TestResolveJumpsLinksLabelForward(t *testing.T) {
	lines := []string{"halt", "%start", "wait", ":start", "noop"}
	resolved, err := ResolveJumps(0x4000, lines)
	require.NoError(t, err)
	// :start sits at input index 3; the jump before it emits two extra
	// words, so the label resolves to emitted index 5 (0x4000+5), the noop.
	assert.Equal(t, []string{"halt", "const", "(16389)", "jmp", "wait", "noop"}, resolved)
}

func TestResolveJumpsFallsBackToNamedConstant(t *testing.T) {
	resolved, err := ResolveJumps(0x4000, []string{"%std/alloc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"const", "(28672)", "jmp"}, resolved)
}

func TestResolveJumpsMissingLabelFails(t *testing.T) {
	_, err := ResolveJumps(0x4000, []string{"%nowhere"})
	assert.Error(t, err)
}

func TestResolveJumpsConditionVariants(t *testing.T) {
	for cond, mnemonic := range jumpMnemonics {
		line := "%" + cond + " l"
		if cond == "" {
			line = "%l"
		}
		resolved, err := ResolveJumps(0, []string{line, ":l"})
		require.NoError(t, err)
		assert.Equal(t, mnemonic, resolved[2])
	}
}

func TestEncodeHelloByte(t *testing.T) {
	words, err := Compile(0x4000, "const; (0x0041); movab; const; (0x0000); outp; halt", "prog.instr")
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x0005, 0x0041, 0x0010, 0x0005, 0x0000, 0x000A, 0x0000}, words)
}

func TestEncodeUnknownMnemonicReportsLine(t *testing.T) {
	_, err := Compile(0x4000, "halt\nbogus", "prog.instr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestEncodeNamedConstant(t *testing.T) {
	words, err := Compile(0x4000, ".const stack", "prog.instr")
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x0005, 0x6000}, words)
}
