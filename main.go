// Command ember assembles and runs programs for the ember 16-bit machine.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ember/asm"
	"ember/cpu"
	"ember/internal/builtin"
	"ember/repl"
)

var (
	configPath string
	log        = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:   "ember",
		Short: "assembler and emulator for the ember 16-bit machine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a .ember.toml config file")

	root.AddCommand(normCmd(), compCmd(), runCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func normCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "norm <in> [out]",
		Short: "macro-expand a source file without assembling it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			out := defaultOutPath(args, in, " (normalized)"+asm.SourceExtension)

			src, err := os.ReadFile(in)
			if err != nil {
				return errors.Wrapf(err, "reading %s", in)
			}
			lines, err := asm.Normalize(string(src), in)
			if err != nil {
				log.WithField("file", in).WithError(err).Error("normalization failed")
				return err
			}
			return os.WriteFile(out, []byte(strings.Join(lines, "\n")), 0o644)
		},
	}
}

func compCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comp <in> [out]",
		Short: "assemble a source file to a .ember binary",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			out := defaultOutPath(args, in, cpu.EmberExtension)

			src, err := os.ReadFile(in)
			if err != nil {
				return errors.Wrapf(err, "reading %s", in)
			}
			words, err := asm.Compile(cpu.ProgramStart, string(src), in)
			if err != nil {
				log.WithField("file", in).WithError(err).Error("assembly failed")
				return err
			}
			return os.WriteFile(out, cpu.EncodeEmber(words), 0o644)
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <path>",
		Short: "assemble (if needed), load, and interactively run a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(args[0])
		},
	}
}

func runPath(path string) error {
	var words []uint16

	switch {
	case strings.HasSuffix(path, asm.SourceExtension):
		src, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		words, err = asm.Compile(cpu.ProgramStart, string(src), path)
		if err != nil {
			log.WithField("file", path).WithError(err).Error("assembly failed")
			return err
		}
	case strings.HasSuffix(path, cpu.EmberExtension):
		raw, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		words, err = cpu.DecodeEmber(raw)
		if err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown input file type: %s", path)
	}

	builtinWords, err := builtin.Words()
	if err != nil {
		return err
	}

	c, err := cpu.New(words, builtinWords)
	if err != nil {
		return err
	}
	c.In, c.Out = os.Stdin, os.Stdout

	cfg, err := repl.LoadConfig(resolveConfigPath())
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	stepper := repl.New(c, path, cfg, os.Stdin, os.Stdout, log)
	return stepper.Run()
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return ".ember.toml"
}

func defaultOutPath(args []string, in, suffix string) string {
	if len(args) == 2 {
		return args[1]
	}
	ext := filepath.Ext(in)
	stem := strings.TrimSuffix(in, ext)
	return stem + suffix
}
