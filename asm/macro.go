// Package asm turns ember source text into the flat 16-bit word sequence the
// CPU executes: macro expansion, label/jump resolution, then encoding
// against the isa table.
package asm

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// SourceExtension is the canonical extension for ember assembly source.
const SourceExtension = ".instr"

const (
	commentPrefix   = "#"
	macroPrefix     = "."
	jumpPrefix      = "%"
	labelPrefix     = ":"
	namespaceSep    = "/"
	builtinAllocRef = "std/alloc"
)

func trimComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// ExpandLines lowercases code, splits it into statements, and expands every
// macro line, returning a flat ordered sequence of normalized mnemonic
// lines that may still contain `:label` and `%jump` placeholders. path is
// the logical location of code, used to resolve `.extern` relative to its
// directory.
func ExpandLines(code, path string) ([]string, error) {
	lower := strings.ToLower(code)
	rawLines := strings.Split(lower, "\n")
	fragments := lo.Map(
		lo.FlatMap(rawLines, func(l string, _ int) []string { return strings.Split(l, ";") }),
		func(f string, _ int) string { return strings.TrimSpace(f) },
	)

	out := make([]string, 0, len(fragments))
	for i, frag := range fragments {
		switch {
		case strings.HasPrefix(frag, macroPrefix):
			if err := expandMacro(trimComment(frag), &out, path); err != nil {
				return nil, errors.Wrapf(err, "line %d", i+1)
			}
		case strings.HasPrefix(frag, commentPrefix), frag == "":
			// dropped
		default:
			out = append(out, trimComment(frag))
		}
	}
	return out, nil
}

func addNamespaceLabels(lines []string, namespace string) {
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, labelPrefix):
			lines[i] = labelPrefix + namespace + namespaceSep + line[1:]
		case strings.HasPrefix(line, jumpPrefix):
			body := trimComment(line)
			if space := strings.IndexByte(body, ' '); space >= 0 {
				lines[i] = body[:space] + " " + namespace + namespaceSep + body[space+1:]
			} else {
				lines[i] = jumpPrefix + namespace + namespaceSep + line[1:]
			}
		}
	}
}

func macroArgs(line string) []string {
	space := strings.IndexByte(line, ' ')
	if space < 0 {
		return nil
	}
	return strings.Split(line[space+1:], " ")
}

func macroName(line string) string {
	if space := strings.IndexByte(line, ' '); space >= 0 {
		return line[1:space]
	}
	return line[1:]
}

func expandMacro(line string, out *[]string, path string) error {
	args := macroArgs(line)
	name := macroName(line)

	push := func(mnemonics ...string) {
		*out = append(*out, mnemonics...)
	}
	constOf := func(v string) error {
		return expandMacro(".const "+v, out, path)
	}

	switch name {
	case "extern":
		if len(args) != 1 {
			return errors.Errorf("invalid number of arguments: %s", line)
		}
		return expandExtern(args[0], out, path)

	case "const":
		if len(args) != 1 {
			return errors.Errorf("invalid number of arguments: %s", line)
		}
		push("const", "("+args[0]+")")

	case "read":
		if len(args) != 1 {
			return errors.Errorf("invalid number of arguments: %s", line)
		}
		if err := constOf(args[0]); err != nil {
			return err
		}
		push("movab", "memr")

	case "write":
		if len(args) != 1 {
			return errors.Errorf("invalid number of arguments: %s", line)
		}
		push("movab")
		if err := constOf(args[0]); err != nil {
			return err
		}
		push("memw")

	case "err":
		if len(args) > 1 {
			return errors.Errorf("invalid number of arguments: %s", line)
		}
		code := "0xffff"
		if len(args) == 1 {
			code = args[0]
		}
		if err := constOf(code); err != nil {
			return err
		}
		push("seterr", "pause")

	case "push":
		if len(args) > 1 {
			return errors.Errorf("invalid number of arguments: %s", line)
		}
		if len(args) == 1 {
			if err := constOf(args[0]); err != nil {
				return err
			}
		}
		push("movab", "sctr", "memw", "inc", "msctr")

	case "pop":
		switch len(args) {
		case 0:
			push("sctr", "dec", "msctr", "movab", "memr")
		case 1:
			if err := constOf(args[0]); err != nil {
				return err
			}
			push("movab", "sctr", "sub", "msctr")
		default:
			return errors.Errorf("invalid number of arguments: %s", line)
		}

	case "popn":
		if len(args) != 0 {
			return errors.Errorf("invalid number of arguments: %s", line)
		}
		push("sctr", "dec", "msctr")

	case "peek":
		switch len(args) {
		case 0:
			push("sctr", "dec", "movab", "memr")
		case 1:
			if err := constOf(args[0]); err != nil {
				return err
			}
			push("movab", "sctr", "dec", "sub", "movab", "memr")
		default:
			return errors.Errorf("invalid number of arguments: %s", line)
		}

	case "rep":
		switch len(args) {
		case 0:
			push("sctr", "dec", "memw")
		case 1:
			if err := constOf(args[0]); err != nil {
				return err
			}
			push("movab", "sctr", "sub", "dec", "movcb", "memw")
		default:
			return errors.Errorf("invalid number of arguments: %s", line)
		}

	case "stackstat":
		push("sctr", "movab")
		if err := expandMacro(".const builtin", out, path); err != nil {
			return err
		}
		push("sub")

	case "call":
		if len(args) != 1 {
			return errors.Errorf("invalid number of arguments: %s", line)
		}
		push("ictr", "movab")
		if err := constOf("13"); err != nil {
			return err
		}
		push("add")
		if err := expandMacro(".push", out, path); err != nil {
			return err
		}
		push("%" + args[0])

	case "return":
		switch len(args) {
		case 0:
			if err := expandMacro(".peek", out, path); err != nil {
				return err
			}
		case 1:
			if err := expandMacro(".peek "+args[0], out, path); err != nil {
				return err
			}
		default:
			return errors.Errorf("invalid number of arguments: %s", line)
		}
		push("jmp")

	case "str":
		return expandStr(strings.Join(args, " "), out, path)

	case "print":
		return expandPrint(strings.Join(args, " "), out, path)

	default:
		return errors.Errorf("invalid macro '%s'", name)
	}
	return nil
}

func expandExtern(arg string, out *[]string, path string) error {
	relative := arg
	if !strings.HasSuffix(relative, SourceExtension) {
		relative += SourceExtension
	}
	newPath := filepath.Join(filepath.Dir(path), relative)

	contents, err := os.ReadFile(newPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read file %s", newPath)
	}

	lines, err := ExpandLines(string(contents), newPath)
	if err != nil {
		return err
	}
	stem := strings.TrimSuffix(filepath.Base(relative), SourceExtension)
	addNamespaceLabels(lines, stem)
	*out = append(*out, lines...)
	return nil
}

func expandStr(s string, out *[]string, path string) error {
	push := func(mnemonics ...string) { *out = append(*out, mnemonics...) }

	if err := expandMacro(".const "+strconv.Itoa(len(s)), out, path); err != nil {
		return err
	}
	push("inc")
	if err := expandMacro(".push", out, path); err != nil {
		return err
	}
	if err := expandMacro(".call "+builtinAllocRef, out, path); err != nil {
		return err
	}
	if err := expandMacro(".pop", out, path); err != nil {
		return err
	}
	push("movac")
	if err := expandMacro(".popn", out, path); err != nil {
		return err
	}
	if err := expandMacro(".pop", out, path); err != nil {
		return err
	}
	push("dec", "movab", "movca", "memw")
	for _, c := range []byte(s) {
		push("inc", "movac")
		if err := expandMacro(".const "+strconv.Itoa(int(c)), out, path); err != nil {
			return err
		}
		push("movab", "movca", "memw")
	}
	if len(s) > 0 {
		push("movca")
	}
	return nil
}

func expandPrint(s string, out *[]string, path string) error {
	push := func(mnemonics ...string) { *out = append(*out, mnemonics...) }
	s = strings.ReplaceAll(s, `\n`, "\n")
	for _, c := range []byte(s) {
		if c > 127 {
			continue
		}
		if err := expandMacro(".const "+strconv.Itoa(int(c)), out, path); err != nil {
			return err
		}
		push("movab")
		if err := expandMacro(".const 0x0000", out, path); err != nil {
			return err
		}
		push("outp")
	}
	return nil
}

