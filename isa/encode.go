package isa

// Field widths of the signed immediates, used for range checks before
// encoding. Branch and jump offsets include the implicit zero LSB.
const (
	ImmBitsI = 12 // I-type and S-type immediates
	ImmBitsB = 13 // branch offset
	ImmBitsU = 20 // upper-immediate payload
	ImmBitsJ = 21 // jal offset
)

// ImmFits reports whether imm is representable as a two's-complement
// value of the given bit width.
func ImmFits(imm int32, bits int) bool {
	min := int32(-1) << (bits - 1)
	max := (int32(1) << (bits - 1)) - 1
	return imm >= min && imm <= max
}

// EncodeR packs an R-type instruction word.
func EncodeR(spec Spec, rd, rs1, rs2 int) uint32 {
	return (spec.Funct7 << 25) | (uint32(rs2) << 20) | (uint32(rs1) << 15) |
		(spec.Funct3 << 12) | (uint32(rd) << 7) | spec.Opcode
}

// EncodeI packs an I-type instruction word. For immediate shifts the
// funct7 bits occupy imm[11:5].
func EncodeI(spec Spec, rd, rs1 int, imm int32) uint32 {
	immU := uint32(imm) & 0xFFF
	if spec.Shift {
		immU = (spec.Funct7 << 5) | (uint32(imm) & 0x1F)
	}
	return (immU << 20) | (uint32(rs1) << 15) | (spec.Funct3 << 12) |
		(uint32(rd) << 7) | spec.Opcode
}

// EncodeS packs an S-type instruction word: imm[11:5] and imm[4:0]
// straddle the register fields.
func EncodeS(spec Spec, rs1, rs2 int, imm int32) uint32 {
	immU := uint32(imm) & 0xFFF
	return ((immU >> 5) << 25) | (uint32(rs2) << 20) | (uint32(rs1) << 15) |
		(spec.Funct3 << 12) | ((immU & 0x1F) << 7) | spec.Opcode
}

// EncodeB packs a B-type instruction word. The 13-bit offset is stored as
// imm[12|10:5] and imm[4:1|11]; bit 0 is implicitly zero.
func EncodeB(spec Spec, rs1, rs2 int, imm int32) uint32 {
	immU := uint32(imm)
	return (((immU >> 12) & 0x1) << 31) | (((immU >> 5) & 0x3F) << 25) |
		(uint32(rs2) << 20) | (uint32(rs1) << 15) | (spec.Funct3 << 12) |
		(((immU >> 1) & 0xF) << 8) | (((immU >> 11) & 0x1) << 7) | spec.Opcode
}

// EncodeU packs a U-type instruction word; imm is the 20-bit payload
// that lands in bits 31:12.
func EncodeU(spec Spec, rd int, imm int32) uint32 {
	return (uint32(imm) << 12) | (uint32(rd) << 7) | spec.Opcode
}

// EncodeJ packs a J-type instruction word. The 21-bit offset is stored as
// imm[20|10:1|11|19:12]; bit 0 is implicitly zero.
func EncodeJ(spec Spec, rd int, imm int32) uint32 {
	immU := uint32(imm)
	return (((immU >> 20) & 0x1) << 31) | (((immU >> 1) & 0x3FF) << 21) |
		(((immU >> 11) & 0x1) << 20) | (((immU >> 12) & 0xFF) << 12) |
		(uint32(rd) << 7) | spec.Opcode
}
