package repl

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the stepper's tunable defaults. Every field has a hardcoded
// fallback matching the original tool's behavior when no config file is
// present.
type Config struct {
	AutoInfo     bool `toml:"auto_info"`
	RunDelayMS   int  `toml:"run_delay_ms"`
	DumpChunkLen int  `toml:"dump_chunk_len"`
}

// DefaultConfig matches the stepper's behavior with no config file at all.
func DefaultConfig() Config {
	return Config{
		AutoInfo:     false,
		RunDelayMS:   0,
		DumpChunkLen: 16,
	}
}

// LoadConfig reads path as TOML, overlaying it onto DefaultConfig. A missing
// file is not an error; the defaults stand.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
