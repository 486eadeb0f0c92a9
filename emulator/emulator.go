// Package emulator wires the assembler front end to the processor: one
// Compile call takes assembly source to a loaded, Ready machine, and the
// step/run entry points keep execution faults tied back to source lines.
package emulator

import (
	"fmt"
	"io"
	"iter"
	"log"
	"maps"

	"github.com/ezrv/rvsim/asm"
	"github.com/ezrv/rvsim/config"
	"github.com/ezrv/rvsim/cpu"
	"github.com/ezrv/rvsim/internal"
)

var _emulator_defines = map[string]string{
	"NUM_REGISTERS": fmt.Sprintf("%v", config.NumRegisters),
	"WORD_SIZE":     "4",
}

// Emulator owns the machine configuration, the assembled program
// listing, and the processor.
type Emulator struct {
	Verbose bool // If set, enables verbose logging.

	Config config.Config

	*cpu.Processor

	listing []asm.ListEntry
	text    []byte
	data    []byte
}

// New creates an emulator with an empty program.
func New(cfg config.Config) (emu *Emulator) {
	emu = &Emulator{
		Config:    cfg,
		Processor: cpu.NewProcessor(cfg),
	}
	return
}

// Defines returns the predefines fed into the assembler: the machine
// layout constants plus the emulator's own.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.ConcatSeq2(maps.All(_emulator_defines),
		emu.Config.Defines(),
	)
}

// Compile assembles source and, when it is error free, loads the
// processor with the result. The error list is complete: symbol-table
// errors first, then assembly errors, all in source order.
func (emu *Emulator) Compile(input io.Reader) (errs []error) {
	parser := asm.NewParser()
	for name, value := range emu.Defines() {
		if err := parser.Predefine(name, value); err != nil {
			errs = append(errs, err)
			return
		}
	}

	statements, errs := parser.Parse(input)
	if len(errs) != 0 {
		return
	}

	symtab := asm.NewSymbolTable(emu.Config)
	errs = append(errs, symtab.Build(statements)...)

	assembler := asm.NewAssembler(emu.Config)
	errs = append(errs, assembler.Assemble(statements, symtab)...)
	if len(errs) != 0 {
		return
	}

	emu.listing = assembler.Listing()
	emu.text = assembler.Text()
	emu.data = assembler.Data()

	if emu.Verbose {
		log.Printf("emulator: %d instructions, %d data bytes",
			len(emu.listing), len(emu.data))
	}

	emu.Reset()
	return
}

// Reset reloads the current program and returns the processor to Ready.
func (emu *Emulator) Reset() {
	emu.Processor.Verbose = emu.Verbose
	emu.Processor.Load(emu.text, emu.data)
}

// Text returns the assembled text image, little endian.
func (emu *Emulator) Text() []byte {
	return emu.text
}

// Listing returns the per-instruction source listing.
func (emu *Emulator) Listing() []asm.ListEntry {
	return emu.listing
}

// Entry finds the listing entry for an address.
func (emu *Emulator) Entry(address uint32) (entry asm.ListEntry, ok bool) {
	for _, entry := range emu.listing {
		if entry.Address == address {
			return entry, true
		}
	}
	return
}

// LineFor returns the source line executing at an address, or 0.
func (emu *Emulator) LineFor(address uint32) int {
	entry, ok := emu.Entry(address)
	if !ok {
		return 0
	}
	return entry.LineNo
}

// Step single-steps the processor, attaching the source line to any
// fault.
func (emu *Emulator) Step() (err error) {
	lineno := emu.LineFor(emu.PC)
	err = emu.Processor.Step()
	if err != nil {
		err = &ErrRuntime{LineNo: lineno, Err: err}
	}
	return
}

// Run executes until a terminal state or the step budget runs out.
func (emu *Emulator) Run(maxSteps int) (state cpu.State, steps int, err error) {
	for steps < maxSteps && (emu.State() == cpu.StateReady || emu.State() == cpu.StateRunning) {
		err = emu.Step()
		if err != nil || emu.State() == cpu.StateHalted {
			break
		}
		steps++
	}
	return emu.State(), steps, err
}
