package asm

// OperandKind classifies an instruction or directive operand.
type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandImmediate
	OperandSymbol
	OperandString
)

// Operand is a single parsed operand. Memory operands of the form
// imm(rs) are flattened by the parser into an immediate operand followed
// by a register operand.
type Operand struct {
	Kind OperandKind
	Reg  int
	Imm  int32
	Sym  string
	Str  string
}

// Register returns a register operand.
func Register(reg int) Operand {
	return Operand{Kind: OperandRegister, Reg: reg}
}

// Immediate returns an immediate operand.
func Immediate(imm int32) Operand {
	return Operand{Kind: OperandImmediate, Imm: imm}
}

// Symbol returns a label-reference operand.
func Symbol(name string) Operand {
	return Operand{Kind: OperandSymbol, Sym: name}
}

// String returns a string-literal operand.
func String(str string) Operand {
	return Operand{Kind: OperandString, Str: str}
}

// Statement is one parsed line element: an instruction, a directive, or
// a label definition. Statements are immutable once handed to the symbol
// table and assembler.
type Statement interface {
	Line() int
}

// Instruction is a mnemonic with its ordered operand list.
type Instruction struct {
	LineNo   int
	Mnemonic string
	Operands []Operand
	Source   string // trimmed source text, kept for listings
}

func (st *Instruction) Line() int { return st.LineNo }

// Directive is an assembler directive with its ordered argument list.
type Directive struct {
	LineNo int
	Name   string
	Args   []Operand
}

func (st *Directive) Line() int { return st.LineNo }

// Label is a label definition.
type Label struct {
	LineNo int
	Name   string
}

func (st *Label) Line() int { return st.LineNo }
