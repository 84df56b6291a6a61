// Package numparse decodes the textual integer literals the assembler and
// the interactive stepper both accept: hex (0x…), binary (0b…), and plain
// decimal, with no sign.
package numparse

import (
	"strconv"

	"github.com/pkg/errors"
)

// Uint16 parses s into a 16-bit unsigned value. Empty, negative, or
// out-of-range input is rejected with a human-readable error.
func Uint16(s string) (uint16, error) {
	v, err := parseUint(s, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// Uint64 parses s into a 64-bit unsigned value, used by the stepper's
// "run [delay_ms]" command and anywhere a wider range is needed.
func Uint64(s string) (uint64, error) {
	return parseUint(s, 64)
}

func parseUint(s string, bits int) (uint64, error) {
	if s == "" {
		return 0, errors.New("empty numeric literal")
	}

	base := 10
	digits := s
	switch {
	case len(s) > 2 && s[:2] == "0x":
		base = 16
		digits = s[2:]
	case len(s) > 2 && s[:2] == "0b":
		base = 2
		digits = s[2:]
	}

	v, err := strconv.ParseUint(digits, base, bits)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid numeric literal %q", s)
	}
	return v, nil
}
