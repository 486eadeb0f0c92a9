package isa

import (
	"errors"
	"fmt"

	"github.com/ezrv/rvsim/translate"
)

var f = translate.From

// ErrIllegalInstruction is returned for any word that does not decode to
// an implemented RV32I instruction (including ecall/ebreak).
var ErrIllegalInstruction = errors.New(f("illegal instruction"))

// Inst is a decoded instruction.
type Inst struct {
	Op  Op
	Rd  int
	Rs1 int
	Rs2 int
	Imm int32
}

// lookup finds the Op matching decoded fixed fields.
type lookupKey struct {
	opcode uint32
	funct3 uint32
	funct7 uint32
}

var byFields = func() map[lookupKey]Op {
	m := make(map[lookupKey]Op, int(opCount))
	for op := OpInvalid + 1; op < opCount; op++ {
		spec := specs[op]
		key := lookupKey{opcode: spec.Opcode, funct3: spec.Funct3}
		if spec.Format == FormatR || spec.Shift {
			key.funct7 = spec.Funct7
		}
		m[key] = op
	}
	return m
}()

// signExtend interprets the low bits of raw as a two's-complement value
// of the given width.
func signExtend(raw uint32, bits int) int32 {
	shift := 32 - bits
	return int32(raw<<shift) >> shift
}

// Decode splits a 32-bit instruction word into its fields, reassembling
// the scattered immediate of each format as a sign-extended value.
func Decode(word uint32) (inst Inst, err error) {
	opcode := word & 0x7F
	funct3 := (word >> 12) & 0x7
	inst.Rd = int((word >> 7) & 0x1F)
	inst.Rs1 = int((word >> 15) & 0x1F)
	inst.Rs2 = int((word >> 20) & 0x1F)

	key := lookupKey{opcode: opcode}

	switch opcode {
	case opcodeOpReg:
		key.funct3 = funct3
		key.funct7 = (word >> 25) & 0x7F

	case opcodeOpImm:
		key.funct3 = funct3
		raw := word >> 20
		if funct3 == 0x1 || funct3 == 0x5 {
			// Immediate shift: imm[11:5] selects srli vs srai.
			key.funct7 = (raw >> 5) & 0x7F
			inst.Imm = int32(raw & 0x1F)
		} else {
			inst.Imm = signExtend(raw, ImmBitsI)
		}

	case opcodeLoad, opcodeJalr:
		key.funct3 = funct3
		inst.Imm = signExtend(word>>20, ImmBitsI)

	case opcodeStore:
		key.funct3 = funct3
		raw := ((word >> 7) & 0x1F) | (((word >> 25) & 0x7F) << 5)
		inst.Imm = signExtend(raw, ImmBitsI)

	case opcodeBranch:
		key.funct3 = funct3
		raw := (((word >> 31) & 0x1) << 12) | (((word >> 7) & 0x1) << 11) |
			(((word >> 25) & 0x3F) << 5) | (((word >> 8) & 0xF) << 1)
		inst.Imm = signExtend(raw, ImmBitsB)

	case opcodeLui, opcodeAuipc:
		inst.Imm = int32(word >> 12)

	case opcodeJal:
		raw := (((word >> 31) & 0x1) << 20) | (((word >> 12) & 0xFF) << 12) |
			(((word >> 20) & 0x1) << 11) | (((word >> 21) & 0x3FF) << 1)
		inst.Imm = signExtend(raw, ImmBitsJ)

	default:
		err = ErrIllegalInstruction
		return
	}

	op, ok := byFields[key]
	if !ok {
		err = ErrIllegalInstruction
		return
	}
	inst.Op = op

	return
}

// Encode packs inst back into its 32-bit instruction word.
func (inst Inst) Encode() uint32 {
	spec := inst.Op.Spec()
	switch spec.Format {
	case FormatR:
		return EncodeR(spec, inst.Rd, inst.Rs1, inst.Rs2)
	case FormatI:
		return EncodeI(spec, inst.Rd, inst.Rs1, inst.Imm)
	case FormatS:
		return EncodeS(spec, inst.Rs1, inst.Rs2, inst.Imm)
	case FormatB:
		return EncodeB(spec, inst.Rs1, inst.Rs2, inst.Imm)
	case FormatU:
		return EncodeU(spec, inst.Rd, inst.Imm)
	case FormatJ:
		return EncodeJ(spec, inst.Rd, inst.Imm)
	}
	return 0
}

// String renders inst as assembly text, used by the disassembly view.
func (inst Inst) String() string {
	spec := inst.Op.Spec()
	switch {
	case inst.Op == OpInvalid:
		return "invalid"
	case spec.Format == FormatR:
		return fmt.Sprintf("%s x%d, x%d, x%d", spec.Name, inst.Rd, inst.Rs1, inst.Rs2)
	case inst.Op.IsLoad():
		return fmt.Sprintf("%s x%d, %d(x%d)", spec.Name, inst.Rd, inst.Imm, inst.Rs1)
	case inst.Op.IsStore():
		return fmt.Sprintf("%s x%d, %d(x%d)", spec.Name, inst.Rs2, inst.Imm, inst.Rs1)
	case spec.Format == FormatB:
		return fmt.Sprintf("%s x%d, x%d, %d", spec.Name, inst.Rs1, inst.Rs2, inst.Imm)
	case spec.Format == FormatU:
		return fmt.Sprintf("%s x%d, %#x", spec.Name, inst.Rd, uint32(inst.Imm))
	case spec.Format == FormatJ:
		return fmt.Sprintf("%s x%d, %d", spec.Name, inst.Rd, inst.Imm)
	default:
		return fmt.Sprintf("%s x%d, x%d, %d", spec.Name, inst.Rd, inst.Rs1, inst.Imm)
	}
}
