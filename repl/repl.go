// Package repl implements the interactive stepper: a read-eval-print loop
// that drives a live cpu.CPU one command at a time, mirroring the original
// tool's run_emulator input loop.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"ember/asm"
	"ember/cpu"
	"ember/numparse"
)

const helpText = `commands:
  q                 quit
  help              this text
  s                 step one cycle (same as an empty line)
  i                 print registers and flags
  ti                toggle auto-info after state-changing commands
  dir               print the path this stepper was invoked against
  prog              dump the program region
  stack             dump the stack region
  mem               dump all of memory
  sec <addr>        dump memory starting at addr
  get <a|b|c|addr>  read a register or a memory word
  set <tgt> <val>   write a register or a memory word
  do <text>         assemble and execute instruction text immediately
  run [delay_ms]    free-run until halted or further input arrives`

// Stepper drives a CPU from an interactive command stream.
type Stepper struct {
	CPU        *cpu.CPU
	Cfg        Config
	SourcePath string

	in     *bufio.Reader
	out    io.Writer
	log    *logrus.Logger
	toggle bool // auto-info, seeded from Cfg but can be flipped with "ti"
}

// New builds a Stepper reading commands from in and writing output to out.
func New(c *cpu.CPU, sourcePath string, cfg Config, in io.Reader, out io.Writer, log *logrus.Logger) *Stepper {
	return &Stepper{
		CPU:        c,
		Cfg:        cfg,
		SourcePath: sourcePath,
		in:         bufio.NewReader(in),
		out:        out,
		log:        log,
		toggle:     cfg.AutoInfo,
	}
}

// Run executes the command loop until the user types "q" or the input
// stream closes. It recovers from a panicking instruction execution the
// same way the original debug runner did: report it as a fault and return
// instead of crashing the process.
func (s *Stepper) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("instruction execution faulted")
			err = errors.Errorf("execution fault: %v", r)
		}
	}()

	fmt.Fprintln(s.out, helpText)
	s.printInfo()

	for {
		fmt.Fprint(s.out, "\n-> ")
		line, readErr := s.in.ReadString('\n')
		line = strings.ToLower(strings.TrimSpace(line))
		if readErr != nil && line == "" {
			return nil
		}

		stop, changed, cmdErr := s.dispatch(line)
		if cmdErr != nil {
			fmt.Fprintln(s.out, "error:", cmdErr)
		}
		if changed && s.toggle {
			s.printInfo()
		}
		if stop {
			return nil
		}
	}
}

func (s *Stepper) dispatch(line string) (stop, changed bool, err error) {
	fields := strings.Fields(line)
	name := ""
	if len(fields) > 0 {
		name = fields[0]
	}
	args := fields[1:]

	switch name {
	case "q":
		return true, false, nil
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "", "s":
		if !s.CPU.Running {
			return false, false, errors.New("cpu is halted")
		}
		err = s.CPU.Cycle()
		return false, true, err
	case "i":
		s.printInfo()
	case "ti":
		s.toggle = !s.toggle
		fmt.Fprintln(s.out, "auto-info:", s.toggle)
	case "dir":
		fmt.Fprintln(s.out, s.SourcePath)
	case "prog":
		s.dumpRegion(cpu.ProgramStart, cpu.StackStart)
	case "stack":
		s.dumpRegion(cpu.StackStart, cpu.BuiltinStart)
	case "mem":
		s.dumpRegion(0, cpu.MemorySize)
	case "sec":
		if len(args) != 1 {
			return false, false, errors.New("usage: sec <addr>")
		}
		addr, perr := numparse.Uint16(args[0])
		if perr != nil {
			return false, false, perr
		}
		s.dumpRegion(int(addr), cpu.MemorySize)
	case "get":
		return false, false, s.cmdGet(args)
	case "set":
		err = s.cmdSet(args)
		return false, true, err
	case "do":
		err = s.cmdDo(strings.TrimSpace(strings.TrimPrefix(line, "do")))
		return false, true, err
	case "run":
		err = s.cmdRun(args)
		return false, true, err
	default:
		return false, false, errors.Errorf("unknown command %q, try 'help'", name)
	}
	return false, false, nil
}

func (s *Stepper) printInfo() {
	c := s.CPU
	fmt.Fprintf(s.out, "ic=%#04x sc=%#04x a=%#04x b=%#04x c=%#04x\n", c.IC, c.SC, c.A, c.B, c.C)
	fmt.Fprintf(s.out, "running=%v jumped=%v load_const=%v zero=%v negative=%v overflow=%v err=%d cycles=%d\n",
		c.Running, c.Jumped, c.LoadConst, c.Zero, c.Negative, c.Overflow, c.ErrCode, c.Cycles)
}

func (s *Stepper) dumpRegion(start, end int) {
	width := s.Cfg.DumpChunkLen
	if width <= 0 {
		width = 16
	}
	for base := start; base < end; base += width {
		upper := base + width
		if upper > end {
			upper = end
		}
		fmt.Fprintf(s.out, "%#06x:", base)
		for _, v := range s.CPU.Memory[base:upper] {
			fmt.Fprintf(s.out, " %04x", v)
		}
		fmt.Fprintln(s.out)
	}
}

func (s *Stepper) cmdGet(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: get <a|b|c|addr>")
	}
	switch args[0] {
	case "a":
		fmt.Fprintln(s.out, s.CPU.A)
	case "b":
		fmt.Fprintln(s.out, s.CPU.B)
	case "c":
		fmt.Fprintln(s.out, s.CPU.C)
	default:
		addr, err := numparse.Uint16(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, s.CPU.Memory[addr])
	}
	return nil
}

func (s *Stepper) cmdSet(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: set <a|b|c|addr> <value>")
	}
	v, err := numparse.Uint16(args[1])
	if err != nil {
		return err
	}
	switch args[0] {
	case "a":
		s.CPU.A = v
	case "b":
		s.CPU.B = v
	case "c":
		s.CPU.C = v
	default:
		addr, err := numparse.Uint16(args[0])
		if err != nil {
			return err
		}
		s.CPU.Memory[addr] = v
	}
	return nil
}

func (s *Stepper) cmdDo(text string) error {
	if text == "" {
		return errors.New("usage: do <instruction text>")
	}
	words, err := asm.Compile(s.CPU.IC, text, "<do>")
	if err != nil {
		return err
	}
	ic := s.CPU.IC
	for i, w := range words {
		s.CPU.Memory[ic+uint16(i)] = w
	}
	s.CPU.IR = s.CPU.Memory[s.CPU.IC]
	for range words {
		if err := s.CPU.Cycle(); err != nil {
			return err
		}
		if !s.CPU.Running {
			break
		}
	}
	return nil
}

func (s *Stepper) cmdRun(args []string) error {
	delay := time.Duration(s.Cfg.RunDelayMS) * time.Millisecond
	if len(args) == 1 {
		ms, err := numparse.Uint64(args[0])
		if err != nil {
			return err
		}
		delay = time.Duration(ms) * time.Millisecond
	}

	// A blocking stdin read can't be cancelled from outside, so a watcher
	// that loses the race against natural halt stays parked and steals the
	// next real prompt's line. Accepted: matches the original's own
	// single-reader assumption, and the user just has to hit enter twice.
	interrupt := make(chan struct{}, 1)
	go func() {
		s.in.ReadString('\n')
		interrupt <- struct{}{}
	}()

	for s.CPU.Running {
		select {
		case <-interrupt:
			return nil
		default:
		}
		if err := s.CPU.Cycle(); err != nil {
			return err
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return nil
}
