package asm

import (
	"encoding/binary"

	"github.com/ezrv/rvsim/config"
	"github.com/ezrv/rvsim/isa"
)

// ListEntry associates one encoded instruction with its source line, for
// listings and the monitor's disassembly view.
type ListEntry struct {
	LineNo  int
	Address uint32
	Word    uint32
	Source  string
}

// Assembler encodes a statement sequence against a resolved symbol
// table, populating the text and data output buffers. Every encoding
// failure is recorded and processing continues with the next statement,
// so one pass reports all problems in the source.
type Assembler struct {
	cfg config.Config

	text    []byte
	data    []byte
	listing []ListEntry
}

// NewAssembler returns an assembler for the given memory layout.
func NewAssembler(cfg config.Config) *Assembler {
	return &Assembler{cfg: cfg}
}

// Text returns the text segment as raw little-endian bytes.
func (a *Assembler) Text() []byte { return a.text }

// Data returns the data segment bytes.
func (a *Assembler) Data() []byte { return a.data }

// TextWords returns the text segment as 32-bit instruction words.
func (a *Assembler) TextWords() []uint32 {
	words := make([]uint32, 0, len(a.text)/4)
	for off := 0; off+4 <= len(a.text); off += 4 {
		words = append(words, binary.LittleEndian.Uint32(a.text[off:]))
	}
	return words
}

// Listing returns the per-instruction source listing.
func (a *Assembler) Listing() []ListEntry { return a.listing }

// sectionBuf returns the active output buffer.
func (a *Assembler) sectionBuf(sect section) *[]byte {
	if sect == sectionText {
		return &a.text
	}
	return &a.data
}

// cursor is the absolute address of the next byte emitted into sect.
func (a *Assembler) cursor(sect section) uint32 {
	if sect == sectionText {
		return a.cfg.TextBase + uint32(len(a.text))
	}
	return a.cfg.DataBase + uint32(len(a.data))
}

// Assemble processes statements in order. The returned error list is
// complete and in source order; the output buffers contain every
// statement that did encode.
func (a *Assembler) Assemble(statements []Statement, symtab *SymbolTable) (errs []error) {
	a.text = a.text[:0]
	a.data = a.data[:0]
	a.listing = a.listing[:0]

	sect := sectionText

	for _, stmt := range statements {
		switch stmt := stmt.(type) {
		case *Label:
			// resolved during the symbol pass

		case *Instruction:
			if sect != sectionText {
				errs = append(errs, atLine(stmt.LineNo, ErrInstructionInData))
				continue
			}
			pc := a.cursor(sectionText)
			word, err := a.encode(stmt, symtab, pc)
			if err != nil {
				errs = append(errs, atLine(stmt.LineNo, err))
				continue
			}
			a.text = binary.LittleEndian.AppendUint32(a.text, word)
			a.listing = append(a.listing, ListEntry{
				LineNo:  stmt.LineNo,
				Address: pc,
				Word:    word,
				Source:  stmt.Source,
			})

		case *Directive:
			if err := a.directive(stmt, symtab, &sect); err != nil {
				errs = append(errs, atLine(stmt.LineNo, err))
			}
		}
	}

	return
}

// reg validates a register operand.
func reg(op Operand) (int, error) {
	if op.Kind != OperandRegister {
		return 0, ErrRegisterExpected
	}
	if op.Reg < 0 || op.Reg > 31 {
		return 0, ErrRegisterRange
	}
	return op.Reg, nil
}

// imm validates a literal immediate operand.
func imm(op Operand) (int32, error) {
	if op.Kind != OperandImmediate {
		return 0, ErrImmediateExpected
	}
	return op.Imm, nil
}

// target resolves a branch or jump target operand to a PC-relative
// offset. A literal immediate is already an offset; a symbol resolves
// through the symbol table.
func target(op Operand, symtab *SymbolTable, pc uint32) (int32, error) {
	switch op.Kind {
	case OperandImmediate:
		return op.Imm, nil
	case OperandSymbol:
		address, ok := symtab.Resolve(op.Sym)
		if !ok {
			return 0, ErrUndefinedSymbol(op.Sym)
		}
		return int32(address - pc), nil
	}
	return 0, ErrImmediateExpected
}

// encode packs one instruction statement into its 32-bit word.
func (a *Assembler) encode(stmt *Instruction, symtab *SymbolTable, pc uint32) (word uint32, err error) {
	op, ok := isa.ByName(stmt.Mnemonic)
	if !ok {
		err = ErrUnknownMnemonic(stmt.Mnemonic)
		return
	}
	spec := op.Spec()
	ops := stmt.Operands

	switch {
	case spec.Format == isa.FormatR:
		if len(ops) != 3 {
			err = ErrOperandCount
			return
		}
		var rd, rs1, rs2 int
		if rd, err = reg(ops[0]); err != nil {
			return
		}
		if rs1, err = reg(ops[1]); err != nil {
			return
		}
		if rs2, err = reg(ops[2]); err != nil {
			return
		}
		word = isa.EncodeR(spec, rd, rs1, rs2)

	case op.IsLoad():
		// rd, imm(rs1)
		if len(ops) != 3 {
			err = ErrOperandCount
			return
		}
		var rd, rs1 int
		var offset int32
		if rd, err = reg(ops[0]); err != nil {
			return
		}
		if offset, err = imm(ops[1]); err != nil {
			return
		}
		if rs1, err = reg(ops[2]); err != nil {
			return
		}
		if !isa.ImmFits(offset, isa.ImmBitsI) {
			err = ErrImmediateRange
			return
		}
		word = isa.EncodeI(spec, rd, rs1, offset)

	case op == isa.OpJalr:
		word, err = a.encodeJalr(spec, ops)

	case spec.Format == isa.FormatI:
		// rd, rs1, imm
		if len(ops) != 3 {
			err = ErrOperandCount
			return
		}
		var rd, rs1 int
		var value int32
		if rd, err = reg(ops[0]); err != nil {
			return
		}
		if rs1, err = reg(ops[1]); err != nil {
			return
		}
		if value, err = imm(ops[2]); err != nil {
			return
		}
		if spec.Shift {
			if value < 0 || value > 31 {
				err = ErrImmediateRange
				return
			}
		} else if !isa.ImmFits(value, isa.ImmBitsI) {
			err = ErrImmediateRange
			return
		}
		word = isa.EncodeI(spec, rd, rs1, value)

	case spec.Format == isa.FormatS:
		// rs2, imm(rs1)
		if len(ops) != 3 {
			err = ErrOperandCount
			return
		}
		var rs1, rs2 int
		var offset int32
		if rs2, err = reg(ops[0]); err != nil {
			return
		}
		if offset, err = imm(ops[1]); err != nil {
			return
		}
		if rs1, err = reg(ops[2]); err != nil {
			return
		}
		if !isa.ImmFits(offset, isa.ImmBitsI) {
			err = ErrImmediateRange
			return
		}
		word = isa.EncodeS(spec, rs1, rs2, offset)

	case spec.Format == isa.FormatB:
		// rs1, rs2, target
		if len(ops) != 3 {
			err = ErrOperandCount
			return
		}
		var rs1, rs2 int
		var offset int32
		if rs1, err = reg(ops[0]); err != nil {
			return
		}
		if rs2, err = reg(ops[1]); err != nil {
			return
		}
		if offset, err = target(ops[2], symtab, pc); err != nil {
			return
		}
		if offset&1 != 0 {
			err = ErrAlignment
			return
		}
		if !isa.ImmFits(offset, isa.ImmBitsB) {
			err = ErrImmediateRange
			return
		}
		word = isa.EncodeB(spec, rs1, rs2, offset)

	case spec.Format == isa.FormatU:
		// rd, imm20
		if len(ops) != 2 {
			err = ErrOperandCount
			return
		}
		var rd int
		var value int32
		if rd, err = reg(ops[0]); err != nil {
			return
		}
		if value, err = imm(ops[1]); err != nil {
			return
		}
		if value < -(1<<(isa.ImmBitsU-1)) || value > (1<<isa.ImmBitsU)-1 {
			err = ErrImmediateRange
			return
		}
		word = isa.EncodeU(spec, rd, value&0xFFFFF)

	case spec.Format == isa.FormatJ:
		// rd, target
		if len(ops) != 2 {
			err = ErrOperandCount
			return
		}
		var rd int
		var offset int32
		if rd, err = reg(ops[0]); err != nil {
			return
		}
		if offset, err = target(ops[1], symtab, pc); err != nil {
			return
		}
		if offset&1 != 0 {
			err = ErrAlignment
			return
		}
		if !isa.ImmFits(offset, isa.ImmBitsJ) {
			err = ErrImmediateRange
			return
		}
		word = isa.EncodeJ(spec, rd, offset)
	}

	return
}

// encodeJalr accepts both "jalr rd, rs1, imm" and "jalr rd, imm(rs1)".
func (a *Assembler) encodeJalr(spec isa.Spec, ops []Operand) (word uint32, err error) {
	if len(ops) != 3 {
		err = ErrOperandCount
		return
	}

	rd, err := reg(ops[0])
	if err != nil {
		return
	}

	var rs1 int
	var offset int32
	if ops[1].Kind == OperandImmediate {
		// rd, imm(rs1)
		if offset, err = imm(ops[1]); err != nil {
			return
		}
		if rs1, err = reg(ops[2]); err != nil {
			return
		}
	} else {
		// rd, rs1, imm
		if rs1, err = reg(ops[1]); err != nil {
			return
		}
		if offset, err = imm(ops[2]); err != nil {
			return
		}
	}

	if !isa.ImmFits(offset, isa.ImmBitsI) {
		err = ErrImmediateRange
		return
	}
	word = isa.EncodeI(spec, rd, rs1, offset)
	return
}

// directive emits a data directive into the active section buffer, or
// switches sections.
func (a *Assembler) directive(dir *Directive, symtab *SymbolTable, sect *section) error {
	buf := a.sectionBuf(*sect)

	switch dir.Name {
	case ".text":
		*sect = sectionText
	case ".data":
		*sect = sectionData

	case ".globl", ".global", ".extern":
		// symbol visibility has no meaning without an object format

	case ".word":
		for _, arg := range dir.Args {
			value, err := wordValue(arg, symtab)
			if err != nil {
				return err
			}
			*buf = binary.LittleEndian.AppendUint32(*buf, value)
		}

	case ".half":
		for _, arg := range dir.Args {
			value, err := imm(arg)
			if err != nil {
				return err
			}
			if value < -0x8000 || value > 0xFFFF {
				return ErrImmediateRange
			}
			*buf = binary.LittleEndian.AppendUint16(*buf, uint16(value))
		}

	case ".byte":
		for _, arg := range dir.Args {
			value, err := imm(arg)
			if err != nil {
				return err
			}
			if value < -0x80 || value > 0xFF {
				return ErrImmediateRange
			}
			*buf = append(*buf, byte(value))
		}

	case ".ascii", ".asciz", ".string":
		for _, arg := range dir.Args {
			if arg.Kind != OperandString {
				return ErrStringExpected
			}
			*buf = append(*buf, arg.Str...)
			if dir.Name != ".ascii" {
				*buf = append(*buf, 0)
			}
		}

	case ".align":
		if len(dir.Args) != 1 || dir.Args[0].Kind != OperandImmediate {
			return ErrImmediateExpected
		}
		// The argument is the byte alignment itself and must be a
		// power of two.
		alignment := uint32(dir.Args[0].Imm)
		if alignment == 0 || alignment&(alignment-1) != 0 {
			return ErrImmediateRange
		}
		for a.cursor(*sect)&(alignment-1) != 0 {
			*buf = append(*buf, 0)
		}

	case ".space":
		if len(dir.Args) != 1 || dir.Args[0].Kind != OperandImmediate {
			return ErrImmediateExpected
		}
		count := dir.Args[0].Imm
		if count < 0 {
			return ErrImmediateRange
		}
		*buf = append(*buf, make([]byte, count)...)

	default:
		return ErrUnknownDirective(dir.Name)
	}

	return nil
}

// wordValue resolves a .word argument: a literal or a label address.
func wordValue(arg Operand, symtab *SymbolTable) (uint32, error) {
	switch arg.Kind {
	case OperandImmediate:
		return uint32(arg.Imm), nil
	case OperandSymbol:
		address, ok := symtab.Resolve(arg.Sym)
		if !ok {
			return 0, ErrUndefinedSymbol(arg.Sym)
		}
		return address, nil
	}
	return 0, ErrImmediateExpected
}
