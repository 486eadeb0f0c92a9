// Package cpu simulates an RV32I processor: a byte-addressable memory
// image holding the loaded text, data and stack regions, a 32-entry
// register file with x0 hardwired to zero, and a synchronous
// fetch-decode-execute step function.
package cpu

import (
	"encoding/binary"
	"fmt"
	"log"

	"github.com/ezrv/rvsim/config"
	"github.com/ezrv/rvsim/isa"
)

// State is the processor lifecycle state.
type State int

const (
	StateReady   State = iota // loaded, PC at the first instruction
	StateRunning              // mid fetch-decode-execute loop
	StateHalted               // ran off the end of the text region
	StateFaulted              // terminal, illegal condition
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateFaulted:
		return "faulted"
	}
	return "unknown"
}

// Processor owns the register file, program counter and memory image.
// All mutation happens through Load and Step; nothing here is safe for
// concurrent use and nothing needs to be.
type Processor struct {
	Verbose bool // Set to enable verbose execution logging.

	cfg config.Config

	PC  uint32
	Reg [config.NumRegisters]uint32

	text  []byte
	data  []byte
	stack []byte

	state State
	fault error
}

// NewProcessor creates a processor with an empty memory image.
func NewProcessor(cfg config.Config) *Processor {
	return &Processor{
		cfg:   cfg,
		stack: make([]byte, cfg.StackSize),
	}
}

// Load copies the text and data segments into the memory image, zeroes
// the stack region and registers, and resets PC to the text base. The
// processor becomes Ready.
func (p *Processor) Load(text []byte, data []byte) {
	p.text = append(p.text[:0], text...)
	p.data = append(p.data[:0], data...)
	clear(p.stack)
	clear(p.Reg[:])
	p.PC = p.cfg.TextBase
	p.state = StateReady
	p.fault = nil

	if p.Verbose {
		log.Printf("cpu: loaded %d text bytes, %d data bytes", len(text), len(data))
	}
}

// State returns the current lifecycle state.
func (p *Processor) State() State { return p.state }

// Fault returns the fault that moved the processor to StateFaulted.
func (p *Processor) Fault() error { return p.fault }

// stackLow is the lowest mapped stack address.
func (p *Processor) stackLow() uint32 {
	return p.cfg.StackBase - p.cfg.StackSize + 1
}

// segment maps an absolute address to the backing slice offset of the
// region containing it.
func (p *Processor) segment(address uint32) (mem []byte, offset uint32, ok bool) {
	switch {
	case address >= p.cfg.TextBase && address-p.cfg.TextBase < uint32(len(p.text)):
		return p.text, address - p.cfg.TextBase, true
	case address >= p.cfg.DataBase && address-p.cfg.DataBase < uint32(len(p.data)):
		return p.data, address - p.cfg.DataBase, true
	case address >= p.stackLow() && address <= p.cfg.StackBase:
		return p.stack, address - p.stackLow(), true
	}
	return nil, 0, false
}

// readMem reads size bytes at address. The access must lie entirely
// within one mapped region.
func (p *Processor) readMem(address uint32, size uint32) (value uint32, err error) {
	mem, offset, ok := p.segment(address)
	if !ok || offset+size > uint32(len(mem)) {
		return 0, ErrMemoryAccess
	}
	for n := uint32(0); n < size; n++ {
		value |= uint32(mem[offset+n]) << (8 * n)
	}
	return
}

// writeMem writes the low size bytes of value at address.
func (p *Processor) writeMem(address uint32, size uint32, value uint32) error {
	mem, offset, ok := p.segment(address)
	if !ok || offset+size > uint32(len(mem)) {
		return ErrMemoryAccess
	}
	for n := uint32(0); n < size; n++ {
		mem[offset+n] = byte(value >> (8 * n))
	}
	return nil
}

// ReadMemory copies a window of the memory image for display. Bytes
// outside any mapped region read as zero.
func (p *Processor) ReadMemory(address uint32, buf []byte) {
	for n := range buf {
		mem, offset, ok := p.segment(address + uint32(n))
		if ok {
			buf[n] = mem[offset]
		} else {
			buf[n] = 0
		}
	}
}

// setReg writes a register, preserving the x0 == 0 invariant.
func (p *Processor) setReg(rd int, value uint32) {
	if rd != 0 {
		p.Reg[rd] = value
	}
}

// failFast records err as a fault and moves to the terminal state.
func (p *Processor) failFast(err error) error {
	p.fault = &ErrFault{PC: p.PC, Err: err}
	p.state = StateFaulted
	return p.fault
}

// Step executes one fetch-decode-execute cycle. Valid only from Ready or
// Running. A fetch past the last text word is the clean end of the
// program and moves to Halted; any other out-of-text or misaligned
// fetch, and any undecodable word, faults.
func (p *Processor) Step() error {
	switch p.state {
	case StateReady, StateRunning:
		// runnable
	default:
		return ErrNotRunnable
	}
	p.state = StateRunning

	// Fetch
	if p.PC == p.cfg.TextBase+uint32(len(p.text)) {
		p.state = StateHalted
		if p.Verbose {
			log.Printf("cpu: halted at pc %#08x", p.PC)
		}
		return nil
	}
	if p.PC%4 != 0 {
		return p.failFast(ErrMisaligned)
	}
	offset := p.PC - p.cfg.TextBase
	if p.PC < p.cfg.TextBase || offset+4 > uint32(len(p.text)) {
		return p.failFast(isa.ErrIllegalInstruction)
	}
	word := binary.LittleEndian.Uint32(p.text[offset:])

	// Decode
	inst, err := isa.Decode(word)
	if err != nil {
		return p.failFast(err)
	}

	if p.Verbose {
		log.Printf("%08x: %v", p.PC, inst)
	}

	// Execute
	return p.execute(inst)
}

// execute applies one decoded instruction. Arithmetic wraps at 32 bits;
// there are no overflow traps.
func (p *Processor) execute(inst isa.Inst) error {
	rs1 := p.Reg[inst.Rs1]
	rs2 := p.Reg[inst.Rs2]
	imm := uint32(inst.Imm)
	nextPC := p.PC + 4

	switch inst.Op {
	case isa.OpAdd:
		p.setReg(inst.Rd, rs1+rs2)
	case isa.OpSub:
		p.setReg(inst.Rd, rs1-rs2)
	case isa.OpSll:
		p.setReg(inst.Rd, rs1<<(rs2&0x1F))
	case isa.OpSlt:
		p.setReg(inst.Rd, boolTo32(int32(rs1) < int32(rs2)))
	case isa.OpSltu:
		p.setReg(inst.Rd, boolTo32(rs1 < rs2))
	case isa.OpXor:
		p.setReg(inst.Rd, rs1^rs2)
	case isa.OpSrl:
		p.setReg(inst.Rd, rs1>>(rs2&0x1F))
	case isa.OpSra:
		p.setReg(inst.Rd, uint32(int32(rs1)>>(rs2&0x1F)))
	case isa.OpOr:
		p.setReg(inst.Rd, rs1|rs2)
	case isa.OpAnd:
		p.setReg(inst.Rd, rs1&rs2)

	case isa.OpAddi:
		p.setReg(inst.Rd, rs1+imm)
	case isa.OpSlti:
		p.setReg(inst.Rd, boolTo32(int32(rs1) < inst.Imm))
	case isa.OpSltiu:
		p.setReg(inst.Rd, boolTo32(rs1 < imm))
	case isa.OpXori:
		p.setReg(inst.Rd, rs1^imm)
	case isa.OpOri:
		p.setReg(inst.Rd, rs1|imm)
	case isa.OpAndi:
		p.setReg(inst.Rd, rs1&imm)
	case isa.OpSlli:
		p.setReg(inst.Rd, rs1<<(imm&0x1F))
	case isa.OpSrli:
		p.setReg(inst.Rd, rs1>>(imm&0x1F))
	case isa.OpSrai:
		p.setReg(inst.Rd, uint32(int32(rs1)>>(imm&0x1F)))

	case isa.OpLb, isa.OpLh, isa.OpLw, isa.OpLbu, isa.OpLhu:
		value, err := p.load(inst.Op, rs1+imm)
		if err != nil {
			return p.failFast(err)
		}
		p.setReg(inst.Rd, value)

	case isa.OpSb:
		if err := p.writeMem(rs1+imm, 1, rs2); err != nil {
			return p.failFast(err)
		}
	case isa.OpSh:
		if err := p.writeMem(rs1+imm, 2, rs2); err != nil {
			return p.failFast(err)
		}
	case isa.OpSw:
		if err := p.writeMem(rs1+imm, 4, rs2); err != nil {
			return p.failFast(err)
		}

	case isa.OpBeq:
		nextPC = p.branch(rs1 == rs2, imm)
	case isa.OpBne:
		nextPC = p.branch(rs1 != rs2, imm)
	case isa.OpBlt:
		nextPC = p.branch(int32(rs1) < int32(rs2), imm)
	case isa.OpBge:
		nextPC = p.branch(int32(rs1) >= int32(rs2), imm)
	case isa.OpBltu:
		nextPC = p.branch(rs1 < rs2, imm)
	case isa.OpBgeu:
		nextPC = p.branch(rs1 >= rs2, imm)

	case isa.OpLui:
		p.setReg(inst.Rd, imm<<12)
	case isa.OpAuipc:
		p.setReg(inst.Rd, p.PC+(imm<<12))

	case isa.OpJal:
		p.setReg(inst.Rd, p.PC+4)
		nextPC = p.PC + imm
	case isa.OpJalr:
		ret := p.PC + 4
		nextPC = (rs1 + imm) &^ 1
		p.setReg(inst.Rd, ret)

	default:
		return p.failFast(isa.ErrIllegalInstruction)
	}

	p.PC = nextPC
	return nil
}

// load performs a sign- or zero-extending memory read.
func (p *Processor) load(op isa.Op, address uint32) (value uint32, err error) {
	switch op {
	case isa.OpLb:
		value, err = p.readMem(address, 1)
		value = uint32(int32(int8(value)))
	case isa.OpLbu:
		value, err = p.readMem(address, 1)
	case isa.OpLh:
		value, err = p.readMem(address, 2)
		value = uint32(int32(int16(value)))
	case isa.OpLhu:
		value, err = p.readMem(address, 2)
	case isa.OpLw:
		value, err = p.readMem(address, 4)
	}
	if err != nil {
		value = 0
	}
	return
}

// branch resolves the next PC for a conditional branch.
func (p *Processor) branch(taken bool, imm uint32) uint32 {
	if taken {
		return p.PC + imm
	}
	return p.PC + 4
}

func boolTo32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Run calls Step until a terminal state is reached or maxSteps is
// exhausted. There is no halt instruction in the implemented subset, so
// the step budget is the guard against non-terminating programs. The
// returned error is the fault, if any.
func (p *Processor) Run(maxSteps int) (state State, steps int, err error) {
	for steps < maxSteps && (p.state == StateReady || p.state == StateRunning) {
		err = p.Step()
		if err != nil || p.state == StateHalted {
			break
		}
		steps++
	}
	return p.state, steps, err
}

// String returns the register file and PC as a display string, one
// register per row with its ABI name.
func (p *Processor) String() (text string) {
	text = fmt.Sprintf("   pc: %08X  state: %v\n", p.PC, p.state)
	for n, name := range isa.RegisterNames {
		text += fmt.Sprintf("% 4s/%-4s: %08X\n", fmt.Sprintf("x%d", n), name, p.Reg[n])
	}
	return
}
