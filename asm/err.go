package asm

import (
	"errors"

	"github.com/ezrv/rvsim/translate"
)

var f = translate.From

var (
	// Lexer/parser errors
	ErrUnterminatedString = errors.New(f("unterminated string literal"))
	ErrBadEscape          = errors.New(f("unknown escape sequence"))
	ErrExpectedOperand    = errors.New(f("operand expected"))
	ErrExpectedParen      = errors.New(f("')' expected"))
	ErrTrailingTokens     = errors.New(f("trailing tokens on line"))
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))

	// Assembler errors
	ErrOperandCount      = errors.New(f("operand count mismatch"))
	ErrRegisterRange     = errors.New(f("register out of range"))
	ErrImmediateRange    = errors.New(f("immediate out of range"))
	ErrAlignment         = errors.New(f("control-flow target misaligned"))
	ErrInstructionInData = errors.New(f("instruction in .data section"))
	ErrStringExpected    = errors.New(f("string literal expected"))
	ErrImmediateExpected = errors.New(f("immediate expected"))
	ErrRegisterExpected  = errors.New(f("register expected"))
)

type ErrUnknownMnemonic string

func (err ErrUnknownMnemonic) Error() string {
	return f("unknown mnemonic '%v'", string(err))
}

type ErrUnknownDirective string

func (err ErrUnknownDirective) Error() string {
	return f("unknown directive '%v'", string(err))
}

type ErrDuplicateLabel string

func (err ErrDuplicateLabel) Error() string {
	return f("label '%v' duplicated", string(err))
}

type ErrUndefinedSymbol string

func (err ErrUndefinedSymbol) Error() string {
	return f("symbol '%v' undefined", string(err))
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrUnexpectedChar rune

func (err ErrUnexpectedChar) Error() string {
	return f("unexpected character %q", rune(err))
}

// ErrLine locates an error in the assembly source.
type ErrLine struct {
	LineNo int
	Err    error
}

func (err *ErrLine) Error() string {
	return f("line %d: %v", err.LineNo, err.Err)
}

func (err *ErrLine) Unwrap() error {
	return err.Err
}

// atLine wraps err with its source line number.
func atLine(lineno int, err error) error {
	return &ErrLine{LineNo: lineno, Err: err}
}
