package asm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"ember/isa"
)

var jumpMnemonics = map[string]string{
	"":   "jmp",
	"n":  "jmpn",
	"z":  "jmpz",
	"nz": "jmpnz",
	"o":  "jmpo",
}

// ResolveJumps turns a macro-expanded line sequence containing `:label` and
// `%cond label` placeholders into a strictly linear mnemonic sequence with
// no labels or jump placeholders, anchored at addressStart (the region the
// program will ultimately be loaded into).
func ResolveJumps(addressStart uint16, lines []string) ([]string, error) {
	labels := map[string]uint16{}
	offset := int64(0)
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, jumpPrefix):
			offset += 2
		case strings.HasPrefix(line, labelPrefix):
			name := strings.ReplaceAll(line[1:], " ", "")
			if name == "" {
				return nil, errors.Errorf("invalid label '%s'", line)
			}
			labels[name] = uint16(int64(i) + offset)
			offset--
		}
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, jumpPrefix):
			body := line[1:]
			cond, label := "", body
			if space := strings.IndexByte(body, ' '); space >= 0 {
				cond, label = body[:space], body[space+1:]
			}
			instr, ok := jumpMnemonics[cond]
			if !ok {
				return nil, errors.Errorf("invalid jump instruction: '%s'", cond)
			}
			label = strings.ReplaceAll(label, " ", "")
			address, ok := resolveTarget(label, addressStart, labels)
			if !ok {
				return nil, errors.Errorf("label '%s' doesn't exist", label)
			}
			out = append(out, "const", formatParenWord(address), instr)
		case strings.HasPrefix(line, labelPrefix):
			// dropped
		default:
			out = append(out, line)
		}
	}
	return out, nil
}

func formatParenWord(v uint16) string {
	return fmt.Sprintf("(%d)", v)
}

// resolveTarget looks a jump target up among labels defined in this
// compilation unit first. A name with no local label falls back to the
// fixed-address table in isa.NamedConstants, which is how `.call std/alloc`
// reaches a routine baked into the built-in region at a well-known address
// without that routine's source ever being compiled alongside the caller.
func resolveTarget(label string, addressStart uint16, labels map[string]uint16) (uint16, bool) {
	if rel, ok := labels[label]; ok {
		return addressStart + rel, true
	}
	if abs, ok := isa.NamedConstants[label]; ok {
		return abs, true
	}
	return 0, false
}
