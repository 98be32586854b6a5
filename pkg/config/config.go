// Package config loads the optional minos.yaml project file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the file Discover looks for.
const FileName = "minos.yaml"

// Config is the complete project configuration.
type Config struct {
	Toolchain   ToolchainConfig   `yaml:"toolchain"`
	Build       BuildConfig       `yaml:"build"`
	Check       CheckConfig       `yaml:"check"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	REPL        REPLConfig        `yaml:"repl"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `yaml:"-"`
}

// ToolchainConfig names the external assembler and linker.
type ToolchainConfig struct {
	Assembler           string   `yaml:"assembler"`
	AssemblerArgs       []string `yaml:"assembler_args"`
	Linker              string   `yaml:"linker"`
	LinkerArgs          []string `yaml:"linker_args"`
	MinAssemblerVersion string   `yaml:"min_assembler_version"`
}

// BuildConfig controls where native builds write their files.
type BuildConfig struct {
	OutputDir string `yaml:"output_dir"`
	// KeepIntermediates keeps the .asm and .o files. Defaults to true.
	KeepIntermediates *bool `yaml:"keep_intermediates"`
}

// Keep reports the effective keep_intermediates setting.
func (b BuildConfig) Keep() bool {
	return b.KeepIntermediates == nil || *b.KeepIntermediates
}

// CheckConfig selects the build-time stack check: flow, linear or off.
type CheckConfig struct {
	Stack string `yaml:"stack"`
}

// DiagnosticsConfig controls how diagnostics are printed.
type DiagnosticsConfig struct {
	Color string `yaml:"color"` // auto, always or never
}

// REPLConfig configures the interactive session.
type REPLConfig struct {
	HistoryFile string `yaml:"history_file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Toolchain.Assembler == "" {
		c.Toolchain.Assembler = "nasm"
	}
	if c.Toolchain.AssemblerArgs == nil {
		c.Toolchain.AssemblerArgs = []string{"-felf64"}
	}
	if c.Toolchain.Linker == "" {
		c.Toolchain.Linker = "ld"
	}
	if c.Toolchain.MinAssemblerVersion == "" {
		c.Toolchain.MinAssemblerVersion = "2.10"
	}
	if c.Check.Stack == "" {
		c.Check.Stack = "flow"
	}
	if c.Diagnostics.Color == "" {
		c.Diagnostics.Color = "auto"
	}
	if c.REPL.HistoryFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.REPL.HistoryFile = filepath.Join(home, ".minos_history")
		}
	}
}

// Validate rejects values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch c.Check.Stack {
	case "flow", "linear", "off":
	default:
		return fmt.Errorf("check.stack: unknown mode %q (want flow, linear or off)", c.Check.Stack)
	}
	switch c.Diagnostics.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("diagnostics.color: unknown mode %q (want auto, always or never)", c.Diagnostics.Color)
	}
	return nil
}

// Load reads the configuration at path and fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	c.Path = path
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// Discover loads explicit when it is set. Otherwise it looks for minos.yaml
// in dir and falls back to the defaults when there is none.
func Discover(explicit, dir string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path := filepath.Join(dir, FileName)
	c, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return c, err
}
