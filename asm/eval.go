package asm

import (
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// evalExpr does a compile-time $(...) evaluation. Equates and predefined
// layout constants are visible as integer variables.
func (p *Parser) evalExpr(expr string) (value int32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}

	pred := starlark.StringDict{}
	for key, val := range p.equates {
		pred[key] = starlark.MakeInt64(int64(val))
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}

	rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	rcInt, ok := rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	rc64, ok := rcInt.Int64()
	if !ok || rc64 > 0xffffffff || rc64 < -int64(0x80000000) {
		err = ErrParseExpression(expr)
		return
	}

	value = int32(uint32(rc64 & 0xffffffff))
	return
}
