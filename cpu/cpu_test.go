package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrv/rvsim/asm"
	"github.com/ezrv/rvsim/config"
	"github.com/ezrv/rvsim/isa"
)

// loadProgram assembles program and returns a Ready processor.
func loadProgram(t *testing.T, program []string) *Processor {
	t.Helper()
	assert := assert.New(t)

	parser := asm.NewParser()
	statements, errs := parser.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.Empty(errs)

	cfg := config.Default()
	symtab := asm.NewSymbolTable(cfg)
	assert.Empty(symtab.Build(statements))

	assembler := asm.NewAssembler(cfg)
	assert.Empty(assembler.Assemble(statements, symtab))

	p := NewProcessor(cfg)
	p.Load(assembler.Text(), assembler.Data())
	return p
}

func TestProcessorLoad(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{"addi x1, x0, 1"})
	assert.Equal(StateReady, p.State())
	assert.Equal(config.DefaultTextBase, p.PC)
	for n := range p.Reg {
		assert.Equal(uint32(0), p.Reg[n])
	}
}

func TestAddWraps(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{"add x3, x1, x2"})
	p.Reg[1] = 0x7FFFFFFF
	p.Reg[2] = 1

	assert.NoError(p.Step())
	assert.Equal(uint32(0x80000000), p.Reg[3])
}

func TestAddEndToEnd(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{"add x20, x19, x18"})
	p.Reg[19] = 5
	p.Reg[18] = 7

	assert.NoError(p.Step())
	assert.Equal(uint32(12), p.Reg[20])
	assert.Equal(config.DefaultTextBase+4, p.PC)
}

func TestSubBorrows(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{"sub x3, x1, x2"})
	p.Reg[1] = 0
	p.Reg[2] = 1

	assert.NoError(p.Step())
	assert.Equal(uint32(0xFFFFFFFF), p.Reg[3])
}

func TestZeroRegisterImmutable(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{"addi x0, x0, 5"})
	assert.NoError(p.Step())
	assert.Equal(uint32(0), p.Reg[0])
}

func TestSignedUnsignedCompare(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{
		"slt x3, x1, x2",
		"sltu x4, x1, x2",
	})
	p.Reg[1] = 0xFFFFFFFF // -1 signed, huge unsigned
	p.Reg[2] = 1

	assert.NoError(p.Step())
	assert.NoError(p.Step())
	assert.Equal(uint32(1), p.Reg[3])
	assert.Equal(uint32(0), p.Reg[4])
}

func TestShifts(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{
		"slli x2, x1, 4",
		"srli x3, x1, 28",
		"srai x4, x1, 28",
	})
	p.Reg[1] = 0x80000001

	assert.NoError(p.Step())
	assert.NoError(p.Step())
	assert.NoError(p.Step())
	assert.Equal(uint32(0x00000010), p.Reg[2])
	assert.Equal(uint32(0x00000008), p.Reg[3])
	assert.Equal(uint32(0xFFFFFFF8), p.Reg[4])
}

func TestLoadExtension(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{
		"lb x3, 0(x1)",
		"lbu x4, 0(x1)",
		"lh x5, 0(x1)",
		"lhu x6, 0(x1)",
		"lw x7, 0(x1)",
		".data",
		".word 0x8081",
	})
	p.Reg[1] = config.DefaultDataBase

	for range 5 {
		assert.NoError(p.Step())
	}
	assert.Equal(uint32(0xFFFFFF81), p.Reg[3])
	assert.Equal(uint32(0x00000081), p.Reg[4])
	assert.Equal(uint32(0xFFFF8081), p.Reg[5])
	assert.Equal(uint32(0x00008081), p.Reg[6])
	assert.Equal(uint32(0x00008081), p.Reg[7])
}

func TestStoreLoadStack(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{
		"sw x1, 0(x2)",
		"lw x3, 0(x2)",
		"sb x1, 4(x2)",
		"lbu x4, 4(x2)",
	})
	p.Reg[1] = 0xDEADBEEF
	p.Reg[2] = config.DefaultStackBase - 7

	for range 4 {
		assert.NoError(p.Step())
	}
	assert.Equal(uint32(0xDEADBEEF), p.Reg[3])
	assert.Equal(uint32(0xEF), p.Reg[4])
}

func TestMemoryFault(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{"lw x1, 0(x0)"})

	err := p.Step()
	assert.ErrorIs(err, ErrMemoryAccess)
	assert.Equal(StateFaulted, p.State())

	var fault *ErrFault
	assert.ErrorAs(err, &fault)
	assert.Equal(config.DefaultTextBase, fault.PC)

	// faulted is terminal
	assert.ErrorIs(p.Step(), ErrNotRunnable)
}

func TestBranches(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{
		"beq x1, x2, skip",
		"addi x3, x0, 1",
		"skip: addi x4, x0, 2",
	})
	p.Reg[1] = 7
	p.Reg[2] = 7

	state, steps, err := p.Run(10)
	assert.NoError(err)
	assert.Equal(StateHalted, state)
	assert.Equal(2, steps)
	assert.Equal(uint32(0), p.Reg[3]) // skipped
	assert.Equal(uint32(2), p.Reg[4])
}

func TestBranchNotTaken(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{
		"bne x0, x0, away",
		"addi x3, x0, 1",
		"away: addi x4, x0, 2",
	})

	state, steps, err := p.Run(10)
	assert.NoError(err)
	assert.Equal(StateHalted, state)
	assert.Equal(3, steps)
	assert.Equal(uint32(1), p.Reg[3])
}

func TestJalJalr(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{
		"jal x1, fn",          // 0x00400000
		"addi x3, x0, 9",      // 0x00400004, runs after return
		"beq x0, x0, done",    // 0x00400008
		"fn: addi x4, x0, 5",  // 0x0040000C
		"jalr x0, x1, 0",      // 0x00400010
		"done: addi x5, x0, 1", // 0x00400014
	})

	state, _, err := p.Run(10)
	assert.NoError(err)
	assert.Equal(StateHalted, state)
	assert.Equal(config.DefaultTextBase+4, p.Reg[1])
	assert.Equal(uint32(9), p.Reg[3])
	assert.Equal(uint32(5), p.Reg[4])
	assert.Equal(uint32(1), p.Reg[5])
}

func TestLuiAuipc(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{
		"lui x1, 0x12345",
		"auipc x2, 0x1",
	})

	assert.NoError(p.Step())
	assert.NoError(p.Step())
	assert.Equal(uint32(0x12345000), p.Reg[1])
	assert.Equal(config.DefaultTextBase+4+0x1000, p.Reg[2])
}

func TestHaltOffEnd(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{
		"addi x1, x0, 1",
		"addi x2, x0, 2",
	})

	state, steps, err := p.Run(10)
	assert.NoError(err)
	assert.Equal(StateHalted, state)
	assert.Equal(2, steps)

	// halted is terminal
	assert.ErrorIs(p.Step(), ErrNotRunnable)
}

func TestFaultOnUnimplementedWord(t *testing.T) {
	assert := assert.New(t)

	p := NewProcessor(config.Default())
	// ecall encodes to 0x00000073; it is not in the implemented subset.
	p.Load([]byte{0x73, 0x00, 0x00, 0x00}, nil)

	err := p.Step()
	assert.ErrorIs(err, isa.ErrIllegalInstruction)
	assert.Equal(StateFaulted, p.State())
	assert.ErrorIs(p.Fault(), isa.ErrIllegalInstruction)
}

func TestFaultMisalignedFetch(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{"jalr x0, x1, 0"})
	p.Reg[1] = config.DefaultTextBase + 6

	assert.NoError(p.Step())
	err := p.Step()
	assert.ErrorIs(err, ErrMisaligned)
	assert.Equal(StateFaulted, p.State())
}

func TestRunBudget(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{"spin: beq x0, x0, spin"})

	state, steps, err := p.Run(5)
	assert.NoError(err)
	assert.Equal(StateRunning, state)
	assert.Equal(5, steps)
}

func TestReadMemoryWindow(t *testing.T) {
	assert := assert.New(t)

	p := loadProgram(t, []string{
		".data",
		".byte 1, 2, 3",
	})

	buf := make([]byte, 6)
	p.ReadMemory(config.DefaultDataBase, buf)
	assert.Equal([]byte{1, 2, 3, 0, 0, 0}, buf)
}
