package asm

import (
	"strconv"
	"strings"

	"github.com/ezrv/rvsim/isa"
)

// TokenKind classifies a lexer token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenNewline
	TokenMnemonic  // an implemented RV32I mnemonic
	TokenRegister  // x0..x31 or an ABI name
	TokenImmediate // decimal or 0x hex literal, possibly negative
	TokenString    // quoted string literal, escapes resolved
	TokenIdent     // label reference or definition
	TokenDirective // .text, .word, ...
	TokenExpr      // $( ... ) compile-time expression
	TokenColon
	TokenComma
	TokenLParen
	TokenRParen
)

// Token is a lexed token with its source position.
type Token struct {
	Kind   TokenKind
	Text   string
	Value  int32 // TokenImmediate
	Reg    int   // TokenRegister
	Line   int
	Column int
}

// lexer walks the source rune by rune, in the manner of a hand-rolled
// scanner. Errors are collected, not fatal: the offending character is
// skipped and lexing continues.
type lexer struct {
	src    string
	pos    int
	line   int
	column int

	tokens []Token
	errs   []error
}

// Lex tokenizes assembly source. The token stream always ends with
// TokenEOF, even when errors were found.
func Lex(src string) (tokens []Token, errs []error) {
	lx := &lexer{src: src, line: 1, column: 1}
	lx.run()
	return lx.tokens, lx.errs
}

func (lx *lexer) emit(kind TokenKind, text string, col int) *Token {
	lx.tokens = append(lx.tokens, Token{Kind: kind, Text: text, Line: lx.line, Column: col})
	return &lx.tokens[len(lx.tokens)-1]
}

func (lx *lexer) fail(err error) {
	lx.errs = append(lx.errs, atLine(lx.line, err))
}

func (lx *lexer) peek() (byte, bool) {
	if lx.pos >= len(lx.src) {
		return 0, false
	}
	return lx.src[lx.pos], true
}

func (lx *lexer) next() (byte, bool) {
	c, ok := lx.peek()
	if ok {
		lx.pos++
		lx.column++
	}
	return c, ok
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// ident consumes the remainder of an identifier starting at the already
// consumed byte c.
func (lx *lexer) ident(c byte) string {
	var sb strings.Builder
	sb.WriteByte(c)
	for {
		n, ok := lx.peek()
		if !ok || !isIdentByte(n) {
			break
		}
		lx.next()
		sb.WriteByte(n)
	}
	return sb.String()
}

func (lx *lexer) run() {
	for {
		col := lx.column
		c, ok := lx.next()
		if !ok {
			break
		}

		switch {
		case c == ' ' || c == '\t' || c == '\r':
			// skip

		case c == '\n':
			lx.emit(TokenNewline, "\n", col)
			lx.line++
			lx.column = 1

		case c == '#':
			for {
				n, ok := lx.peek()
				if !ok || n == '\n' {
					break
				}
				lx.next()
			}

		case c == ':':
			lx.emit(TokenColon, ":", col)
		case c == ',':
			lx.emit(TokenComma, ",", col)
		case c == '(':
			lx.emit(TokenLParen, "(", col)
		case c == ')':
			lx.emit(TokenRParen, ")", col)

		case c == '$':
			lx.expr(col)

		case c == '.':
			lx.emit(TokenDirective, lx.ident('.'), col)

		case c == '"':
			lx.stringLiteral(col)

		case isDigit(c) || c == '-':
			lx.number(c, col)

		case isIdentByte(c):
			word := lx.ident(c)
			tok := lx.emit(TokenIdent, word, col)
			if reg, ok := isa.RegisterByName(word); ok {
				tok.Kind = TokenRegister
				tok.Reg = reg
			} else if _, ok := isa.ByName(word); ok {
				tok.Kind = TokenMnemonic
			}

		default:
			lx.fail(ErrUnexpectedChar(c))
		}
	}

	lx.emit(TokenEOF, "", lx.column)
}

// expr captures the body of a $( ... ) compile-time expression. Nested
// parentheses are balanced so calls like $(min(A, B)) lex as one token.
func (lx *lexer) expr(col int) {
	if n, ok := lx.peek(); !ok || n != '(' {
		lx.fail(ErrUnexpectedChar('$'))
		return
	}
	lx.next()

	depth := 1
	var sb strings.Builder
	for depth > 0 {
		c, ok := lx.next()
		if !ok || c == '\n' {
			lx.fail(ErrParseExpression(sb.String()))
			return
		}
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				continue
			}
		}
		sb.WriteByte(c)
	}

	lx.emit(TokenExpr, sb.String(), col)
}

func (lx *lexer) stringLiteral(col int) {
	var sb strings.Builder
	for {
		c, ok := lx.next()
		if !ok || c == '\n' {
			lx.fail(ErrUnterminatedString)
			return
		}
		if c == '"' {
			break
		}
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}

		e, ok := lx.next()
		if !ok {
			lx.fail(ErrUnterminatedString)
			return
		}
		switch e {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case '0':
			sb.WriteByte(0)
		case '\\':
			sb.WriteByte('\\')
		case '"':
			sb.WriteByte('"')
		default:
			lx.fail(ErrBadEscape)
		}
	}

	lx.emit(TokenString, sb.String(), col)
}

func (lx *lexer) number(c byte, col int) {
	var sb strings.Builder
	sb.WriteByte(c)

	if c == '-' {
		if n, ok := lx.peek(); ok && isDigit(n) {
			lx.next()
			sb.WriteByte(n)
			c = n
		}
	}

	hex := false
	if c == '0' {
		if n, ok := lx.peek(); ok && (n == 'x' || n == 'X') {
			lx.next()
			sb.WriteByte(n)
			hex = true
		}
	}

	for {
		n, ok := lx.peek()
		if !ok {
			break
		}
		if isDigit(n) || (hex && isIdentByte(n)) {
			lx.next()
			sb.WriteByte(n)
			continue
		}
		break
	}

	text := sb.String()
	// 33 bits so unsigned values up to 0xffffffff parse alongside
	// negative immediates.
	v64, err := strconv.ParseInt(text, 0, 33)
	if err != nil {
		lx.fail(ErrParseNumber(text))
		return
	}

	tok := lx.emit(TokenImmediate, text, col)
	tok.Value = int32(uint32(v64 & 0xffffffff))
}
