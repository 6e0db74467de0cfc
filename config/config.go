// Package config loads and saves the simulator's persisted settings
// (execution limits, debugger behavior, display formatting) as TOML,
// the way the teacher's config package does for the ARM emulator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds every setting main and the debugger read at startup.
type Config struct {
	Execution struct {
		MaxCycles uint64 `toml:"max_cycles"`
		StackSize uint32 `toml:"stack_size"`
		HeapSize  uint32 `toml:"heap_size"`
		Entry     string `toml:"entry"`
	} `toml:"execution"`

	Debugger struct {
		HistorySize         int  `toml:"history_size"`
		UndoDepth           int  `toml:"undo_depth"`
		AutoSaveBreakpoints bool `toml:"auto_save_breakpoints"`
	} `toml:"debugger"`

	Display struct {
		NumberFormat string `toml:"number_format"` // hex, dec
		BytesPerLine int    `toml:"bytes_per_line"`
	} `toml:"display"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Execution.MaxCycles = 1_000_000
	cfg.Execution.StackSize = 64 * 1024
	cfg.Execution.HeapSize = 256 * 1024
	cfg.Execution.Entry = "main"

	cfg.Debugger.HistorySize = 1000
	cfg.Debugger.UndoDepth = 1000
	cfg.Debugger.AutoSaveBreakpoints = true

	cfg.Display.NumberFormat = "hex"
	cfg.Display.BytesPerLine = 16

	return cfg
}

// DefaultConfigPath returns the platform-specific config file location,
// creating its parent directory if necessary.
func DefaultConfigPath() string {
	var dir string

	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		dir = filepath.Join(dir, "riscv-edu")

	case "darwin", "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		dir = filepath.Join(home, ".config", "riscv-edu")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "config.toml")
}

// LoadConfig reads path, returning DefaultConfig unchanged if it does
// not exist.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes c to path as TOML, creating its parent directory if
// necessary.
func SaveConfig(c *Config, path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- caller-supplied config path
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
