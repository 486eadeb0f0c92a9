package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrv/rvsim/config"
)

// assemble runs the full parse, symbol and encode pipeline over program.
func assemble(t *testing.T, program []string) (*Assembler, []error) {
	t.Helper()

	statements, errs := parse(t, program)
	assert.Empty(t, errs)

	cfg := config.Default()
	symtab := NewSymbolTable(cfg)
	errs = symtab.Build(statements)

	a := NewAssembler(cfg)
	errs = append(errs, a.Assemble(statements, symtab)...)
	return a, errs
}

func TestAssembleRType(t *testing.T) {
	assert := assert.New(t)

	a, errs := assemble(t, []string{"add x20, x19, x18"})
	assert.Empty(errs)

	words := a.TextWords()
	assert.Len(words, 1)
	// funct7=0 rs2=18 rs1=19 funct3=0 rd=20 opcode=0110011
	assert.Equal(uint32(0x01298A33), words[0])
}

func TestAssembleImmediates(t *testing.T) {
	assert := assert.New(t)

	a, errs := assemble(t, []string{
		"addi x1, x0, -2048",
		"andi x2, x1, 0xFF",
		"slli x3, x2, 4",
		"srai x4, x3, 31",
	})
	assert.Empty(errs)
	assert.Len(a.TextWords(), 4)
	assert.Equal(uint32(0x80000093), a.TextWords()[0])
}

func TestAssembleLoadStore(t *testing.T) {
	assert := assert.New(t)

	a, errs := assemble(t, []string{
		"lw x1, 8(x2)",
		"sw x1, -4(x2)",
	})
	assert.Empty(errs)

	words := a.TextWords()
	assert.Equal(uint32(0x00812083), words[0])
	assert.Equal(uint32(0xFE112E23), words[1])
}

func TestAssembleBranchTarget(t *testing.T) {
	assert := assert.New(t)

	a, errs := assemble(t, []string{
		"loop: addi x1, x1, -1",
		"bne x1, x0, loop",
	})
	assert.Empty(errs)

	words := a.TextWords()
	// branch at 0x00400004 back to 0x00400000: offset -4
	assert.Equal(uint32(0xFE009EE3), words[1])
}

func TestAssembleJal(t *testing.T) {
	assert := assert.New(t)

	a, errs := assemble(t, []string{
		"jal x1, fwd",
		"addi x0, x0, 0",
		"fwd: addi x0, x0, 0",
	})
	assert.Empty(errs)

	// jump from 0x00400000 to 0x00400008: offset +8
	assert.Equal(uint32(0x008000EF), a.TextWords()[0])
}

func TestAssembleJalrForms(t *testing.T) {
	assert := assert.New(t)

	a, errs := assemble(t, []string{
		"jalr x1, x2, 12",
		"jalr x1, 12(x2)",
	})
	assert.Empty(errs)

	words := a.TextWords()
	assert.Equal(words[0], words[1])
}

func TestAssembleListing(t *testing.T) {
	assert := assert.New(t)

	a, errs := assemble(t, []string{
		"main: addi x1, x0, 1",
		"add x2, x1, x1",
	})
	assert.Empty(errs)

	listing := a.Listing()
	assert.Len(listing, 2)
	assert.Equal(1, listing[0].LineNo)
	assert.Equal(uint32(0x00400000), listing[0].Address)
	assert.Equal("main: addi x1, x0, 1", listing[0].Source)
	assert.Equal(uint32(0x00400004), listing[1].Address)
}

func TestAssembleData(t *testing.T) {
	assert := assert.New(t)

	a, errs := assemble(t, []string{
		".data",
		`.asciz "ab"`,
		".align 4",
		".word 0x11223344",
		".half 0x5566",
		".byte -1",
	})
	assert.Empty(errs)

	assert.Equal([]byte{
		'a', 'b', 0, 0, // one pad byte to the 4-byte boundary
		0x44, 0x33, 0x22, 0x11,
		0x66, 0x55,
		0xFF,
	}, a.Data())
}

func TestAssembleWordLabel(t *testing.T) {
	assert := assert.New(t)

	a, errs := assemble(t, []string{
		"entry: addi x0, x0, 0",
		".data",
		".word entry",
	})
	assert.Empty(errs)
	assert.Equal([]byte{0x00, 0x00, 0x40, 0x00}, a.Data())
}

func TestAssembleErrorsCollected(t *testing.T) {
	assert := assert.New(t)

	// Two duplicate labels plus three undefined symbols: every error is
	// reported in one pass.
	_, errs := assemble(t, []string{
		"dup: addi x1, x0, 1",
		"dup: addi x2, x0, 2",
		"dup: addi x3, x0, 3",
		"beq x0, x0, missing1",
		"jal x1, missing2",
		".data",
		".word missing3",
	})
	assert.Len(errs, 5)

	assert.ErrorIs(errs[0], ErrDuplicateLabel("dup"))
	assert.ErrorIs(errs[1], ErrDuplicateLabel("dup"))
	assert.ErrorIs(errs[2], ErrUndefinedSymbol("missing1"))
	assert.ErrorIs(errs[3], ErrUndefinedSymbol("missing2"))
	assert.ErrorIs(errs[4], ErrUndefinedSymbol("missing3"))
}

func TestAssembleRangeErrors(t *testing.T) {
	assert := assert.New(t)

	cases := map[string]error{
		"addi x1, x0, 2048":  ErrImmediateRange,
		"addi x1, x0, -2049": ErrImmediateRange,
		"slli x1, x1, 32":    ErrImmediateRange,
		"add x32, x1, x2":    ErrRegisterRange,
		"lw x1, 4096(x2)":    ErrImmediateRange,
		"add x1, x2":         ErrOperandCount,
	}
	for program, want := range cases {
		_, errs := assemble(t, []string{program})
		assert.Len(errs, 1, program)
		assert.ErrorIs(errs[0], want, program)
	}
}

func TestAssembleBranchAlignment(t *testing.T) {
	assert := assert.New(t)

	_, errs := assemble(t, []string{"beq x0, x0, 3"})
	assert.Len(errs, 1)
	assert.ErrorIs(errs[0], ErrAlignment)

	_, errs = assemble(t, []string{"jal x0, 4097"})
	assert.Len(errs, 1)
	assert.ErrorIs(errs[0], ErrAlignment)
}

func TestAssembleInstructionInData(t *testing.T) {
	assert := assert.New(t)

	_, errs := assemble(t, []string{
		".data",
		"add x1, x2, x3",
	})
	assert.Len(errs, 1)
	assert.ErrorIs(errs[0], ErrInstructionInData)
}

func TestAssembleUnknownDirective(t *testing.T) {
	assert := assert.New(t)

	_, errs := assemble(t, []string{".frobnicate 1"})
	assert.Len(errs, 1)
	assert.ErrorIs(errs[0], ErrUnknownDirective(".frobnicate"))
}

func TestAssembleAlignErrors(t *testing.T) {
	assert := assert.New(t)

	_, errs := assemble(t, []string{".data", ".align 3"})
	assert.Len(errs, 1)
	assert.ErrorIs(errs[0], ErrImmediateRange)
}
