package asm

import (
	"strings"

	"github.com/pkg/errors"

	"ember/isa"
	"ember/numparse"
)

// Normalize runs only macro expansion (§4.3), the output the `norm` CLI
// command writes back out as source text.
func Normalize(code, path string) ([]string, error) {
	return ExpandLines(code, path)
}

// Compile runs the full assemble pipeline: macro expansion, jump/label
// resolution anchored at addressStart, then encoding into 16-bit words.
func Compile(addressStart uint16, code, path string) ([]uint16, error) {
	lines, err := ExpandLines(code, path)
	if err != nil {
		return nil, err
	}
	lines, err = ResolveJumps(addressStart, lines)
	if err != nil {
		return nil, err
	}
	return Encode(lines)
}

// Encode turns a fully resolved mnemonic sequence (no labels, no jumps)
// into 16-bit words, one per line. Errors carry a 1-based line number.
func Encode(lines []string) ([]uint16, error) {
	words := make([]uint16, len(lines))
	for i, line := range lines {
		v, err := encodeLine(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", i+1)
		}
		words[i] = v
	}
	return words, nil
}

func encodeLine(line string) (uint16, error) {
	if strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")") {
		return encodeConstLiteral(line[1 : len(line)-1])
	}
	instr, ok := isa.ParseMnemonic(line)
	if !ok {
		return 0, errors.Wrapf(isa.ErrUnknownMnemonic, "invalid instruction '%s'", line)
	}
	word, ok := isa.Encode(instr)
	if !ok {
		return 0, errors.Errorf("invalid instruction '%s'", line)
	}
	return word, nil
}

func encodeConstLiteral(literal string) (uint16, error) {
	if v, ok := isa.NamedConstants[literal]; ok {
		return v, nil
	}
	v, err := numparse.Uint16(literal)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid constant: %s", literal)
	}
	return v, nil
}
