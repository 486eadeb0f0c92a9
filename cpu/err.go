package cpu

import (
	"errors"

	"github.com/ezrv/rvsim/translate"
)

var f = translate.From

var (
	ErrNotRunnable  = errors.New(f("processor is not runnable"))
	ErrMemoryAccess = errors.New(f("memory access outside mapped regions"))
	ErrMisaligned   = errors.New(f("misaligned fetch address"))
)

// ErrFault locates a processor fault at the PC that raised it.
type ErrFault struct {
	PC  uint32
	Err error
}

func (err *ErrFault) Error() string {
	return f("fault at pc %#08x: %v", err.PC, err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}
