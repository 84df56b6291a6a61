// Package builtin compiles the hand-written routines that every emulator
// instance loads into the built-in memory region, once per process.
package builtin

import (
	_ "embed"
	"sync"

	"github.com/pkg/errors"

	"ember/asm"
	"ember/cpu"
)

//go:embed alloc.instr
var allocSource string

var (
	once  sync.Once
	words []uint16
	err   error
)

// Words returns the compiled built-in region contents, computing it the
// first time it's needed. Every CPU instance shares the same routines, so
// there's nothing caller-specific to recompile.
func Words() ([]uint16, error) {
	once.Do(func() {
		words, err = asm.Compile(cpu.BuiltinStart, allocSource, "alloc.instr")
		if err != nil {
			err = errors.Wrap(err, "compiling built-in region")
		}
	})
	return words, err
}
