// Package isa defines the RV32I base integer instruction set: the six
// encoding formats, the opcode table shared by the assembler and the
// processor, and the bit-level encode/decode helpers.
package isa

// Format is one of the six standard RV32I instruction layouts.
type Format int

const (
	FormatR Format = iota // register-register
	FormatI               // register-immediate, loads, jalr
	FormatS               // stores
	FormatB               // conditional branches
	FormatU               // lui, auipc
	FormatJ               // jal
)

func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatS:
		return "S"
	case FormatB:
		return "B"
	case FormatU:
		return "U"
	case FormatJ:
		return "J"
	}
	return "?"
}

// Op identifies a single RV32I instruction.
type Op int

const (
	OpInvalid Op = iota

	// R-type
	OpAdd
	OpSub
	OpSll
	OpSlt
	OpSltu
	OpXor
	OpSrl
	OpSra
	OpOr
	OpAnd

	// I-type arithmetic
	OpAddi
	OpSlti
	OpSltiu
	OpXori
	OpOri
	OpAndi
	OpSlli
	OpSrli
	OpSrai

	// I-type loads
	OpLb
	OpLh
	OpLw
	OpLbu
	OpLhu

	// S-type
	OpSb
	OpSh
	OpSw

	// B-type
	OpBeq
	OpBne
	OpBlt
	OpBge
	OpBltu
	OpBgeu

	// U-type
	OpLui
	OpAuipc

	// J-type and indirect jump
	OpJal
	OpJalr

	opCount
)

// Major opcodes of the RV32I base set.
const (
	opcodeOpReg  = 0b0110011 // register-register ALU
	opcodeOpImm  = 0b0010011 // register-immediate ALU
	opcodeLoad   = 0b0000011
	opcodeStore  = 0b0100011
	opcodeBranch = 0b1100011
	opcodeLui    = 0b0110111
	opcodeAuipc  = 0b0010111
	opcodeJal    = 0b1101111
	opcodeJalr   = 0b1100111
)

// Spec is the fixed encoding description of one instruction.
type Spec struct {
	Name   string
	Format Format
	Opcode uint32
	Funct3 uint32
	Funct7 uint32 // R-type and immediate shifts only
	Shift  bool   // immediate is a 5-bit shift amount
}

var specs = [opCount]Spec{
	OpAdd:  {"add", FormatR, opcodeOpReg, 0x0, 0x00, false},
	OpSub:  {"sub", FormatR, opcodeOpReg, 0x0, 0x20, false},
	OpSll:  {"sll", FormatR, opcodeOpReg, 0x1, 0x00, false},
	OpSlt:  {"slt", FormatR, opcodeOpReg, 0x2, 0x00, false},
	OpSltu: {"sltu", FormatR, opcodeOpReg, 0x3, 0x00, false},
	OpXor:  {"xor", FormatR, opcodeOpReg, 0x4, 0x00, false},
	OpSrl:  {"srl", FormatR, opcodeOpReg, 0x5, 0x00, false},
	OpSra:  {"sra", FormatR, opcodeOpReg, 0x5, 0x20, false},
	OpOr:   {"or", FormatR, opcodeOpReg, 0x6, 0x00, false},
	OpAnd:  {"and", FormatR, opcodeOpReg, 0x7, 0x00, false},

	OpAddi:  {"addi", FormatI, opcodeOpImm, 0x0, 0x00, false},
	OpSlti:  {"slti", FormatI, opcodeOpImm, 0x2, 0x00, false},
	OpSltiu: {"sltiu", FormatI, opcodeOpImm, 0x3, 0x00, false},
	OpXori:  {"xori", FormatI, opcodeOpImm, 0x4, 0x00, false},
	OpOri:   {"ori", FormatI, opcodeOpImm, 0x6, 0x00, false},
	OpAndi:  {"andi", FormatI, opcodeOpImm, 0x7, 0x00, false},
	OpSlli:  {"slli", FormatI, opcodeOpImm, 0x1, 0x00, true},
	OpSrli:  {"srli", FormatI, opcodeOpImm, 0x5, 0x00, true},
	OpSrai:  {"srai", FormatI, opcodeOpImm, 0x5, 0x20, true},

	OpLb:  {"lb", FormatI, opcodeLoad, 0x0, 0x00, false},
	OpLh:  {"lh", FormatI, opcodeLoad, 0x1, 0x00, false},
	OpLw:  {"lw", FormatI, opcodeLoad, 0x2, 0x00, false},
	OpLbu: {"lbu", FormatI, opcodeLoad, 0x4, 0x00, false},
	OpLhu: {"lhu", FormatI, opcodeLoad, 0x5, 0x00, false},

	OpSb: {"sb", FormatS, opcodeStore, 0x0, 0x00, false},
	OpSh: {"sh", FormatS, opcodeStore, 0x1, 0x00, false},
	OpSw: {"sw", FormatS, opcodeStore, 0x2, 0x00, false},

	OpBeq:  {"beq", FormatB, opcodeBranch, 0x0, 0x00, false},
	OpBne:  {"bne", FormatB, opcodeBranch, 0x1, 0x00, false},
	OpBlt:  {"blt", FormatB, opcodeBranch, 0x4, 0x00, false},
	OpBge:  {"bge", FormatB, opcodeBranch, 0x5, 0x00, false},
	OpBltu: {"bltu", FormatB, opcodeBranch, 0x6, 0x00, false},
	OpBgeu: {"bgeu", FormatB, opcodeBranch, 0x7, 0x00, false},

	OpLui:   {"lui", FormatU, opcodeLui, 0x0, 0x00, false},
	OpAuipc: {"auipc", FormatU, opcodeAuipc, 0x0, 0x00, false},

	OpJal:  {"jal", FormatJ, opcodeJal, 0x0, 0x00, false},
	OpJalr: {"jalr", FormatI, opcodeJalr, 0x0, 0x00, false},
}

// byName maps mnemonic text to its Op.
var byName = func() map[string]Op {
	m := make(map[string]Op, int(opCount))
	for op := OpInvalid + 1; op < opCount; op++ {
		m[specs[op].Name] = op
	}
	return m
}()

func (op Op) String() string {
	if op > OpInvalid && op < opCount {
		return specs[op].Name
	}
	return "invalid"
}

// Spec returns the encoding description for op.
func (op Op) Spec() Spec {
	if op > OpInvalid && op < opCount {
		return specs[op]
	}
	return Spec{}
}

// ByName looks up a mnemonic. ok is false for anything outside the
// implemented RV32I subset.
func ByName(mnemonic string) (op Op, ok bool) {
	op, ok = byName[mnemonic]
	return
}

// IsLoad reports whether op reads memory.
func (op Op) IsLoad() bool {
	return op >= OpLb && op <= OpLhu
}

// IsStore reports whether op writes memory.
func (op Op) IsStore() bool {
	return op >= OpSb && op <= OpSw
}

// abiNames maps the RISC-V ABI register mnemonics to register indexes.
var abiNames = map[string]int{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13,
	"a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23,
	"s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

// RegisterNames are the canonical ABI names of x0..x31, indexed by
// register.
var RegisterNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegisterByName resolves "x0".."x31" and the ABI names to a register
// index.
func RegisterByName(name string) (reg int, ok bool) {
	if len(name) > 1 && name[0] == 'x' {
		reg = 0
		for _, c := range name[1:] {
			if c < '0' || c > '9' {
				reg = -1
				break
			}
			reg = reg*10 + int(c-'0')
		}
		if reg >= 0 && reg <= 31 {
			return reg, true
		}
	}

	reg, ok = abiNames[name]
	return
}
