package asm

import (
	"github.com/ezrv/rvsim/config"
)

// section selects which cursor and output buffer a statement targets.
type section int

const (
	sectionText section = iota
	sectionData
)

// SymbolTable binds every label to its resolved address. Build performs
// one linear pass over the statement sequence, tracking the current
// section and its cursor; it collects every duplicate-label error rather
// than stopping at the first. Symbol usage is not validated here; a
// branch naming an undefined label is the assembler's error, because it
// is local to instruction encoding, not to address layout.
type SymbolTable struct {
	cfg     config.Config
	symbols map[string]uint32
}

// NewSymbolTable returns an empty symbol table for the given memory
// layout.
func NewSymbolTable(cfg config.Config) *SymbolTable {
	return &SymbolTable{
		cfg:     cfg,
		symbols: map[string]uint32{},
	}
}

// Build resolves all label definitions. The returned errors are in
// source order; the first binding of a duplicated label wins.
func (st *SymbolTable) Build(statements []Statement) (errs []error) {
	sect := sectionText
	textOff := uint32(0)
	dataOff := uint32(0)

	cursor := func() uint32 {
		if sect == sectionText {
			return st.cfg.TextBase + textOff
		}
		return st.cfg.DataBase + dataOff
	}

	for _, stmt := range statements {
		switch stmt := stmt.(type) {
		case *Label:
			if _, ok := st.symbols[stmt.Name]; ok {
				errs = append(errs, atLine(stmt.LineNo, ErrDuplicateLabel(stmt.Name)))
				continue
			}
			st.symbols[stmt.Name] = cursor()

		case *Instruction:
			// Instructions in .data are reported by the assembler;
			// they occupy no data bytes.
			if sect == sectionText {
				textOff += 4
			}

		case *Directive:
			switch stmt.Name {
			case ".text":
				sect = sectionText
			case ".data":
				sect = sectionData
			default:
				size := directiveSize(stmt, cursor())
				if sect == sectionText {
					textOff += size
				} else {
					dataOff += size
				}
			}
		}
	}

	return
}

// Resolve looks up a label's address.
func (st *SymbolTable) Resolve(name string) (address uint32, ok bool) {
	address, ok = st.symbols[name]
	return
}

// directiveSize is the number of bytes the directive will occupy at the
// given absolute address. Size errors (bad argument kinds) surface later
// during assembly; here malformed arguments count as zero so the layout
// pass never halts.
func directiveSize(dir *Directive, address uint32) uint32 {
	switch dir.Name {
	case ".word":
		return uint32(len(dir.Args)) * 4
	case ".half":
		return uint32(len(dir.Args)) * 2
	case ".byte":
		return uint32(len(dir.Args))

	case ".ascii", ".asciz", ".string":
		nul := uint32(0)
		if dir.Name != ".ascii" {
			nul = 1
		}
		total := uint32(0)
		for _, arg := range dir.Args {
			if arg.Kind == OperandString {
				total += uint32(len(arg.Str)) + nul
			}
		}
		return total

	case ".align":
		if len(dir.Args) != 1 || dir.Args[0].Kind != OperandImmediate {
			return 0
		}
		alignment := uint32(dir.Args[0].Imm)
		if alignment == 0 || alignment&(alignment-1) != 0 {
			return 0
		}
		aligned := (address + alignment - 1) &^ (alignment - 1)
		return aligned - address

	case ".space":
		if len(dir.Args) != 1 || dir.Args[0].Kind != OperandImmediate {
			return 0
		}
		return uint32(dir.Args[0].Imm)
	}

	return 0
}
