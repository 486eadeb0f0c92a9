// Package config holds the memory layout constants of the simulated
// machine. A Config is built once at startup and passed explicitly to the
// symbol table, the assembler and the processor; it is never mutated
// afterwards.
package config

import (
	"fmt"
	"iter"
	"maps"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"
)

const (
	NumRegisters = 32 // General purpose registers in the register file.

	DefaultTextBase  = uint32(0x0040_0000)
	DefaultDataBase  = uint32(0x1001_0000)
	DefaultStackBase = uint32(0x7FFF_FFFF)
	DefaultStackSize = uint32(1024 * 1024)
)

// Config is the memory layout of the simulated machine.
type Config struct {
	TextBase  uint32 `toml:"text_base"`  // Base address of the text section.
	DataBase  uint32 `toml:"data_base"`  // Base address of the data section.
	StackBase uint32 `toml:"stack_base"` // Top of the stack region.
	StackSize uint32 `toml:"stack_size"` // Size of the stack region in bytes.
}

// Default returns the standard memory layout.
func Default() Config {
	return Config{
		TextBase:  DefaultTextBase,
		DataBase:  DefaultDataBase,
		StackBase: DefaultStackBase,
		StackSize: DefaultStackSize,
	}
}

// Load reads a machine layout from a TOML file. Keys absent from the file
// keep their default values.
func Load(path string) (cfg Config, err error) {
	cfg = Default()
	_, err = toml.DecodeFile(path, &cfg)
	return
}

// FromEnv applies RVSIM_* environment overrides on top of cfg.
func FromEnv(cfg Config) Config {
	cfg.TextBase = uint32(env.Int("RVSIM_TEXT_BASE", int(cfg.TextBase)))
	cfg.DataBase = uint32(env.Int("RVSIM_DATA_BASE", int(cfg.DataBase)))
	cfg.StackBase = uint32(env.Int("RVSIM_STACK_BASE", int(cfg.StackBase)))
	cfg.StackSize = uint32(env.Int("RVSIM_STACK_SIZE", int(cfg.StackSize)))
	return cfg
}

// Defines returns the layout constants as assembler predefines.
func (cfg Config) Defines() iter.Seq2[string, string] {
	defines := map[string]string{
		"TEXT_BASE":  fmt.Sprintf("%#x", cfg.TextBase),
		"DATA_BASE":  fmt.Sprintf("%#x", cfg.DataBase),
		"STACK_BASE": fmt.Sprintf("%#x", cfg.StackBase),
		"STACK_SIZE": fmt.Sprintf("%#x", cfg.StackSize),
	}
	return maps.All(defines)
}
