// Package monitor is the interactive terminal front end: a raw-mode
// keyboard loop driving single-step and run-to-completion execution,
// with disassembly, register and memory views. It is only ever started
// from the command line, never from tests.
package monitor

import (
	"fmt"
	"os"
	"strings"

	tm "github.com/buger/goterm"
	"golang.org/x/term"

	"github.com/ezrv/rvsim/emulator"
	"github.com/ezrv/rvsim/isa"
)

// NumFormat selects how register values are rendered.
type NumFormat int

const (
	FormatHex NumFormat = iota
	FormatDecimal
	FormatBinary
)

const (
	disasmRows = 12
	memoryRows = 8
	logRows    = 4

	runBudget = 1_000_000 // step ceiling for the 'r' key
)

// Monitor drives an emulator from the terminal.
type Monitor struct {
	emu     *emulator.Emulator
	format  NumFormat
	memBase uint32
	logs    []string
}

// New creates a monitor over a compiled emulator.
func New(emu *emulator.Emulator) *Monitor {
	return &Monitor{
		emu:     emu,
		memBase: emu.Config.DataBase,
	}
}

// Run enters the interactive loop, restoring the terminal on exit.
func (m *Monitor) Run() error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		tm.Clear()
		tm.MoveCursor(1, 1)
		tm.Flush()
	}()

	m.log("s: step  r: run  g: reset  f: format  t/d: view text/data  j/k: scroll  q: quit")

	buf := make([]byte, 1)
	for {
		m.draw()

		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return err
		}

		switch buf[0] {
		case 'q', 0x03: // q or Ctrl-C
			return nil
		case 's':
			m.step()
		case 'r':
			m.runAll()
		case 'g':
			m.emu.Reset()
			m.log("reset")
		case 'f':
			m.format = (m.format + 1) % 3
		case 't':
			m.memBase = m.emu.Config.TextBase
		case 'd':
			m.memBase = m.emu.Config.DataBase
		case 'j':
			m.memBase += 16
		case 'k':
			m.memBase -= 16
		}
	}
}

func (m *Monitor) step() {
	err := m.emu.Step()
	if err != nil {
		m.log(err.Error())
	}
}

func (m *Monitor) runAll() {
	state, steps, err := m.emu.Run(runBudget)
	m.log(fmt.Sprintf("run: %v after %d steps", state, steps))
	if err != nil {
		m.log(err.Error())
	}
}

func (m *Monitor) log(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > logRows {
		m.logs = m.logs[len(m.logs)-logRows:]
	}
}

// value renders a register value in the active number format.
func (m *Monitor) value(v uint32) string {
	switch m.format {
	case FormatDecimal:
		return fmt.Sprintf("%11d", int32(v))
	case FormatBinary:
		return fmt.Sprintf("%032b", v)
	default:
		return fmt.Sprintf("%08X", v)
	}
}

// draw repaints the whole screen. Raw mode needs explicit \r\n line
// endings.
func (m *Monitor) draw() {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("rvsim  pc=%08X  state=%v\r\n\r\n",
		m.emu.PC, m.emu.State()))

	m.drawDisasm(&sb)
	m.drawRegisters(&sb)
	m.drawMemory(&sb)

	for _, line := range m.logs {
		sb.WriteString("  " + line + "\r\n")
	}

	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Print(sb.String())
	tm.Flush()
}

func (m *Monitor) drawDisasm(sb *strings.Builder) {
	listing := m.emu.Listing()

	// Center the window on the current instruction when possible.
	current := 0
	for n, entry := range listing {
		if entry.Address == m.emu.PC {
			current = n
			break
		}
	}
	first := max(0, current-disasmRows/2)

	for n := first; n < len(listing) && n < first+disasmRows; n++ {
		entry := listing[n]
		marker := "  "
		if entry.Address == m.emu.PC {
			marker = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%08X  %08X  %s\r\n",
			marker, entry.Address, entry.Word, entry.Source))
	}
	sb.WriteString("\r\n")
}

func (m *Monitor) drawRegisters(sb *strings.Builder) {
	columns := 4
	if m.format == FormatBinary {
		columns = 2
	}
	rows := (len(m.emu.Reg) + columns - 1) / columns
	for row := range rows {
		for col := range columns {
			n := col*rows + row
			if n >= len(m.emu.Reg) {
				continue
			}
			sb.WriteString(fmt.Sprintf("%4s %s   ",
				isa.RegisterNames[n], m.value(m.emu.Reg[n])))
		}
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
}

func (m *Monitor) drawMemory(sb *strings.Builder) {
	row := make([]byte, 16)
	for n := range memoryRows {
		base := m.memBase + uint32(n*16)
		m.emu.ReadMemory(base, row)
		sb.WriteString(fmt.Sprintf("%08X ", base))
		for _, b := range row {
			sb.WriteString(fmt.Sprintf(" %02X", b))
		}
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
}
