package emulator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrv/rvsim/config"
	"github.com/ezrv/rvsim/cpu"
)

func compile(t *testing.T, program []string) *Emulator {
	t.Helper()

	emu := New(config.Default())
	errs := emu.Compile(strings.NewReader(strings.Join(program, "\n")))
	assert.Empty(t, errs)
	return emu
}

func TestEmulatorDefines(t *testing.T) {
	assert := assert.New(t)

	emu := New(config.Default())

	defines := map[string]string{}
	for name, value := range emu.Defines() {
		defines[name] = value
	}
	assert.Equal("32", defines["NUM_REGISTERS"])
	assert.Equal("4", defines["WORD_SIZE"])
	assert.Equal("0x400000", defines["TEXT_BASE"])
	assert.Equal("0x10010000", defines["DATA_BASE"])
}

func TestEmulatorCompile(t *testing.T) {
	assert := assert.New(t)

	emu := compile(t, []string{
		"main: addi x1, x0, 1",
		"add x2, x1, x1",
	})

	assert.Equal(cpu.StateReady, emu.State())
	assert.Equal(config.DefaultTextBase, emu.PC)
	assert.Len(emu.Listing(), 2)
	assert.Len(emu.Text(), 8)
}

func TestEmulatorCompileErrors(t *testing.T) {
	assert := assert.New(t)

	emu := New(config.Default())
	errs := emu.Compile(strings.NewReader(strings.Join([]string{
		"dup: addi x1, x0, 1",
		"dup: addi x2, x0, 2",
		"beq x0, x0, missing",
	}, "\n")))
	assert.Len(errs, 2)
}

func TestEmulatorPredefinesVisible(t *testing.T) {
	assert := assert.New(t)

	// The machine layout constants feed $(...) expressions directly.
	emu := compile(t, []string{
		"lui x1, $(DATA_BASE >> 12)",
	})

	state, _, err := emu.Run(10)
	assert.NoError(err)
	assert.Equal(cpu.StateHalted, state)
	assert.Equal(config.DefaultDataBase, emu.Reg[1])
}

func TestEmulatorSumLoop(t *testing.T) {
	assert := assert.New(t)

	// a0 = 1 + 2 + ... + 5
	emu := compile(t, []string{
		"addi t0, x0, 5",
		"addi a0, x0, 0",
		"loop: add a0, a0, t0",
		"addi t0, t0, -1",
		"bne t0, x0, loop",
	})

	state, steps, err := emu.Run(100)
	assert.NoError(err)
	assert.Equal(cpu.StateHalted, state)
	assert.Equal(17, steps)
	assert.Equal(uint32(15), emu.Reg[10])
}

func TestEmulatorDataAccess(t *testing.T) {
	assert := assert.New(t)

	emu := compile(t, []string{
		"lui t0, $(DATA_BASE >> 12)",
		"lw a0, 0(t0)",
		"lw a1, 4(t0)",
		"add a0, a0, a1",
		"sw a0, 8(t0)",
		".data",
		".word 40",
		".word 2",
		".word 0",
	})

	state, _, err := emu.Run(100)
	assert.NoError(err)
	assert.Equal(cpu.StateHalted, state)
	assert.Equal(uint32(42), emu.Reg[10])

	buf := make([]byte, 4)
	emu.ReadMemory(config.DefaultDataBase+8, buf)
	assert.Equal([]byte{42, 0, 0, 0}, buf)
}

func TestEmulatorFaultLine(t *testing.T) {
	assert := assert.New(t)

	emu := compile(t, []string{
		"addi x1, x0, 0",
		"lw x2, 0(x1)",
	})

	assert.NoError(emu.Step())
	err := emu.Step()
	assert.ErrorIs(err, cpu.ErrMemoryAccess)

	var rt *ErrRuntime
	assert.ErrorAs(err, &rt)
	assert.Equal(2, rt.LineNo)
	assert.Equal(cpu.StateFaulted, emu.State())
}

func TestEmulatorReset(t *testing.T) {
	assert := assert.New(t)

	emu := compile(t, []string{
		"addi x1, x0, 7",
	})

	state, _, err := emu.Run(10)
	assert.NoError(err)
	assert.Equal(cpu.StateHalted, state)
	assert.Equal(uint32(7), emu.Reg[1])

	emu.Reset()
	assert.Equal(cpu.StateReady, emu.State())
	assert.Equal(config.DefaultTextBase, emu.PC)
	assert.Equal(uint32(0), emu.Reg[1])
}

func TestEmulatorEntry(t *testing.T) {
	assert := assert.New(t)

	emu := compile(t, []string{
		"addi x1, x0, 1",
		"addi x2, x0, 2",
	})

	entry, ok := emu.Entry(config.DefaultTextBase + 4)
	assert.True(ok)
	assert.Equal(2, entry.LineNo)
	assert.Equal("addi x2, x0, 2", entry.Source)

	_, ok = emu.Entry(config.DefaultTextBase + 100)
	assert.False(ok)
	assert.Equal(0, emu.LineFor(config.DefaultTextBase+100))
}
