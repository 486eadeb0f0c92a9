package asm

import (
	"io"
	"strconv"
	"strings"
)

// Parser turns a token stream into an ordered statement sequence. Errors
// are collected per line; a bad line is skipped and parsing continues so
// a single pass reports every problem in the source.
type Parser struct {
	tokens  []Token
	pos     int
	equates map[string]int32
	errs    []error
}

// NewParser returns a Parser with no predefines.
func NewParser() *Parser {
	return &Parser{equates: map[string]int32{}}
}

// Predefine adds an equate visible to .equ and $(...) expressions. The
// value accepts any integer syntax strconv understands.
func (p *Parser) Predefine(name string, value string) error {
	v64, err := strconv.ParseInt(value, 0, 33)
	if err != nil {
		return ErrParseNumber(value)
	}
	p.equates[name] = int32(uint32(v64 & 0xffffffff))
	return nil
}

// Parse lexes and parses assembly source. All lexer and parser errors
// are returned together, in source order.
func (p *Parser) Parse(input io.Reader) (statements []Statement, errs []error) {
	src, err := io.ReadAll(input)
	if err != nil {
		return nil, []error{err}
	}

	lines := strings.Split(string(src), "\n")

	tokens, lexErrs := Lex(string(src))
	p.tokens = tokens
	p.pos = 0
	p.errs = append(p.errs, lexErrs...)

	for {
		tok := p.peek()
		if tok.Kind == TokenEOF {
			break
		}
		if tok.Kind == TokenNewline {
			p.next()
			continue
		}

		source := ""
		if tok.Line-1 < len(lines) {
			source = strings.TrimSpace(strings.SplitN(lines[tok.Line-1], "#", 2)[0])
		}

		stmts, err := p.parseLine(source)
		if err != nil {
			p.errs = append(p.errs, atLine(tok.Line, err))
			p.skipLine()
			continue
		}
		statements = append(statements, stmts...)
	}

	errs = p.errs
	p.errs = nil
	return
}

func (p *Parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *Parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}
	return tok
}

// skipLine advances past the next newline, resynchronizing after an
// error.
func (p *Parser) skipLine() {
	for {
		tok := p.next()
		if tok.Kind == TokenNewline || tok.Kind == TokenEOF {
			return
		}
	}
}

// atEndOfLine reports whether the next token terminates the line.
func (p *Parser) atEndOfLine() bool {
	kind := p.peek().Kind
	return kind == TokenNewline || kind == TokenEOF
}

// parseLine parses a single source line: zero or more labels, then an
// optional instruction or directive.
func (p *Parser) parseLine(source string) (stmts []Statement, err error) {
	// Leading labels: IDENT ':' (several may share a line).
	for p.peek().Kind == TokenIdent || p.peek().Kind == TokenMnemonic {
		if p.tokens[p.pos+1].Kind != TokenColon {
			break
		}
		tok := p.next()
		p.next() // colon
		stmts = append(stmts, &Label{LineNo: tok.Line, Name: tok.Text})
	}

	if p.atEndOfLine() {
		p.next()
		return
	}

	tok := p.next()
	switch tok.Kind {
	case TokenDirective:
		var stmt Statement
		stmt, err = p.parseDirective(tok)
		if err != nil {
			return
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}

	case TokenMnemonic:
		var operands []Operand
		operands, err = p.parseOperands()
		if err != nil {
			return
		}
		stmts = append(stmts, &Instruction{
			LineNo:   tok.Line,
			Mnemonic: tok.Text,
			Operands: operands,
			Source:   source,
		})

	case TokenIdent:
		err = ErrUnknownMnemonic(tok.Text)
		return

	default:
		err = ErrExpectedOperand
		return
	}

	if !p.atEndOfLine() {
		err = ErrTrailingTokens
		return
	}
	p.next()

	return
}

// parseDirective handles .equ at parse time and collects the argument
// list for every other directive.
func (p *Parser) parseDirective(tok Token) (stmt Statement, err error) {
	if tok.Text == ".equ" {
		err = p.parseEquate()
		return
	}

	dir := &Directive{LineNo: tok.Line, Name: tok.Text}
	for !p.atEndOfLine() {
		var arg Operand
		arg, err = p.parseOperand()
		if err != nil {
			return
		}
		dir.Args = append(dir.Args, arg)

		if p.peek().Kind == TokenComma {
			p.next()
		}
	}

	stmt = dir
	return
}

// parseEquate records ".equ NAME value" where value is an immediate, a
// $() expression, or a previously defined equate.
func (p *Parser) parseEquate() (err error) {
	name := p.next()
	if name.Kind != TokenIdent {
		return ErrEquateSyntax
	}
	if _, ok := p.equates[name.Text]; ok {
		return ErrEquateDuplicate
	}

	value := p.next()
	var imm int32
	switch value.Kind {
	case TokenImmediate:
		imm = value.Value
	case TokenExpr:
		imm, err = p.evalExpr(value.Text)
		if err != nil {
			return
		}
	case TokenIdent:
		var ok bool
		imm, ok = p.equates[value.Text]
		if !ok {
			return ErrEquateSyntax
		}
	default:
		return ErrEquateSyntax
	}

	if !p.atEndOfLine() {
		return ErrEquateSyntax
	}

	p.equates[name.Text] = imm
	return
}

// parseOperands parses a comma-separated operand list.
func (p *Parser) parseOperands() (operands []Operand, err error) {
	for {
		var ops []Operand
		ops, err = p.parseMemOrPlain()
		if err != nil {
			return
		}
		operands = append(operands, ops...)

		if p.peek().Kind != TokenComma {
			return
		}
		p.next()
	}
}

// parseMemOrPlain parses one operand, flattening the imm(rs) memory form
// into an immediate followed by a register.
func (p *Parser) parseMemOrPlain() (ops []Operand, err error) {
	op, err := p.parseOperand()
	if err != nil {
		return
	}
	ops = []Operand{op}

	if op.Kind != OperandImmediate || p.peek().Kind != TokenLParen {
		return
	}
	p.next()

	reg := p.next()
	if reg.Kind != TokenRegister {
		err = ErrRegisterExpected
		return
	}
	if p.next().Kind != TokenRParen {
		err = ErrExpectedParen
		return
	}

	ops = append(ops, Register(reg.Reg))
	return
}

// parseOperand parses a single operand token.
func (p *Parser) parseOperand() (op Operand, err error) {
	tok := p.next()
	switch tok.Kind {
	case TokenRegister:
		op = Register(tok.Reg)
	case TokenImmediate:
		op = Immediate(tok.Value)
	case TokenString:
		op = String(tok.Text)
	case TokenExpr:
		var imm int32
		imm, err = p.evalExpr(tok.Text)
		if err != nil {
			return
		}
		op = Immediate(imm)
	case TokenIdent:
		// Equates substitute for immediates; registers past x31 are
		// kept as register operands so the assembler can report the
		// range error.
		if imm, ok := p.equates[tok.Text]; ok {
			op = Immediate(imm)
			return
		}
		if reg, bad := outOfRangeRegister(tok.Text); bad {
			op = Register(reg)
			return
		}
		op = Symbol(tok.Text)
	default:
		err = ErrExpectedOperand
	}
	return
}

// outOfRangeRegister recognizes xN names with N > 31.
func outOfRangeRegister(name string) (reg int, ok bool) {
	if len(name) < 2 || name[0] != 'x' {
		return
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil || n <= 31 {
		return
	}
	return n, true
}
