package emulator

import (
	"github.com/ezrv/rvsim/translate"
)

var f = translate.From

// ErrRuntime indicates the source location of an execution fault.
type ErrRuntime struct {
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("line %d: %v", err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
