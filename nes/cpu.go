package nes

import "fmt"

// CPU emulates NES CPU - is custom 6502 made by RICOH.
// References:
//   https://en.wikipedia.org/wiki/MOS_Technology_6502
//   http://www.6502.org/tutorials/6502opcodes.html
//   https://www.nesdev.org/wiki/CPU_unofficial_opcodes
//   http://hp.vector.co.jp/authors/VA042397/nes/6502.html (In Japanese)

const CPUFrequency = 1789773

const (
	nmiVector   uint16 = 0xFFFA
	resetVector uint16 = 0xFFFC
	irqVector   uint16 = 0xFFFE
)

const interruptCycles = 7

type addressingMode int

const (
	implied addressingMode = iota
	accumulator
	immediate
	zeropage
	zeropageX
	zeropageY
	relative
	absolute
	absoluteX
	absoluteY
	indirect
	indirectX
	indirectY
)

// instructionSizes is indexed by addressingMode.
var instructionSizes = [...]uint16{
	implied:     1,
	accumulator: 1,
	immediate:   2,
	zeropage:    2,
	zeropageX:   2,
	zeropageY:   2,
	relative:    2,
	absolute:    3,
	absoluteX:   3,
	absoluteY:   3,
	indirect:    3,
	indirectX:   2,
	indirectY:   2,
}

type status struct {
	c bool // carry
	z bool // zero
	i bool // IRQ
	d bool // decimal - unused on NES
	b bool // break
	r bool // reserved - unused
	v bool // overflow
	n bool // negative
}

// encode encodes the status to a byte.
func (s *status) encode() byte {
	var res byte
	if s.c {
		res |= (1 << 0)
	}
	if s.z {
		res |= (1 << 1)
	}
	if s.i {
		res |= (1 << 2)
	}
	if s.d {
		res |= (1 << 3)
	}
	if s.b {
		res |= (1 << 4)
	}
	if s.r {
		res |= (1 << 5)
	}
	if s.v {
		res |= (1 << 6)
	}
	if s.n {
		res |= (1 << 7)
	}
	return res
}

// decodeFrom decodes a byte to the status.
func (s *status) decodeFrom(data byte) {
	s.c = (data>>0)&1 == 1
	s.z = (data>>1)&1 == 1
	s.i = (data>>2)&1 == 1
	s.d = (data>>3)&1 == 1
	s.b = (data>>4)&1 == 1
	s.r = (data>>5)&1 == 1
	s.v = (data>>6)&1 == 1
	s.n = (data>>7)&1 == 1
}

// pull restores the status from the stack, B does not exist in the register
// and the reserved bit always reads 1.
func (s *status) pull(data byte) {
	s.decodeFrom(data)
	s.b = false
	s.r = true
}

type CPU struct {
	p   *status // Processor status flag bits
	a   byte    // Accumulator register
	x   byte    // Index register
	y   byte    // Index register
	pc  uint16  // Program counter
	s   byte    // Stack pointer
	bus *CPUBus

	instructions []instruction
	cycles       uint64 // Total executed cycles
	stall        int    // Stall cycles
	extraCycles  int    // Cycles added by the current instruction, e.g. taken branches
	irqPending   bool

	// For debug.
	lastPC     uint16
	lastOpcode byte
}

type instruction struct {
	mnemonic string
	mode     addressingMode
	execute  func(addressingMode, uint16)
	cycles   int
	// pageCycle is whether crossing a page while indexing costs a cycle.
	pageCycle bool
}

func (c *CPU) createInstructions() []instruction {
	// Undefined opcodes (KIL/JAM) halt the real chip, here they are NOPs.
	jam := instruction{"JAM", implied, c.nop, 2, false}
	return []instruction{
		{"BRK", implied, c.brk, 7, false},     // 0x00
		{"ORA", indirectX, c.ora, 6, false},   // 0x01
		jam,                                   // 0x02
		{"SLO", indirectX, c.slo, 8, false},   // 0x03
		{"NOP", zeropage, c.nop, 3, false},    // 0x04
		{"ORA", zeropage, c.ora, 3, false},    // 0x05
		{"ASL", zeropage, c.asl, 5, false},    // 0x06
		{"SLO", zeropage, c.slo, 5, false},    // 0x07
		{"PHP", implied, c.php, 3, false},     // 0x08
		{"ORA", immediate, c.ora, 2, false},   // 0x09
		{"ASL", accumulator, c.asl, 2, false}, // 0x0A
		{"ANC", immediate, c.anc, 2, false},   // 0x0B
		{"NOP", absolute, c.nop, 4, false},    // 0x0C
		{"ORA", absolute, c.ora, 4, false},    // 0x0D
		{"ASL", absolute, c.asl, 6, false},    // 0x0E
		{"SLO", absolute, c.slo, 6, false},    // 0x0F
		{"BPL", relative, c.bpl, 2, false},    // 0x10
		{"ORA", indirectY, c.ora, 5, true},    // 0x11
		jam,                                   // 0x12
		{"SLO", indirectY, c.slo, 8, false},   // 0x13
		{"NOP", zeropageX, c.nop, 4, false},   // 0x14
		{"ORA", zeropageX, c.ora, 4, false},   // 0x15
		{"ASL", zeropageX, c.asl, 6, false},   // 0x16
		{"SLO", zeropageX, c.slo, 6, false},   // 0x17
		{"CLC", implied, c.clc, 2, false},     // 0x18
		{"ORA", absoluteY, c.ora, 4, true},    // 0x19
		{"NOP", implied, c.nop, 2, false},     // 0x1A
		{"SLO", absoluteY, c.slo, 7, false},   // 0x1B
		{"NOP", absoluteX, c.nop, 4, true},    // 0x1C
		{"ORA", absoluteX, c.ora, 4, true},    // 0x1D
		{"ASL", absoluteX, c.asl, 7, false},   // 0x1E
		{"SLO", absoluteX, c.slo, 7, false},   // 0x1F
		{"JSR", absolute, c.jsr, 6, false},    // 0x20
		{"AND", indirectX, c.and, 6, false},   // 0x21
		jam,                                   // 0x22
		{"RLA", indirectX, c.rla, 8, false},   // 0x23
		{"BIT", zeropage, c.bit, 3, false},    // 0x24
		{"AND", zeropage, c.and, 3, false},    // 0x25
		{"ROL", zeropage, c.rol, 5, false},    // 0x26
		{"RLA", zeropage, c.rla, 5, false},    // 0x27
		{"PLP", implied, c.plp, 4, false},     // 0x28
		{"AND", immediate, c.and, 2, false},   // 0x29
		{"ROL", accumulator, c.rol, 2, false}, // 0x2A
		{"ANC", immediate, c.anc, 2, false},   // 0x2B
		{"BIT", absolute, c.bit, 4, false},    // 0x2C
		{"AND", absolute, c.and, 4, false},    // 0x2D
		{"ROL", absolute, c.rol, 6, false},    // 0x2E
		{"RLA", absolute, c.rla, 6, false},    // 0x2F
		{"BMI", relative, c.bmi, 2, false},    // 0x30
		{"AND", indirectY, c.and, 5, true},    // 0x31
		jam,                                   // 0x32
		{"RLA", indirectY, c.rla, 8, false},   // 0x33
		{"NOP", zeropageX, c.nop, 4, false},   // 0x34
		{"AND", zeropageX, c.and, 4, false},   // 0x35
		{"ROL", zeropageX, c.rol, 6, false},   // 0x36
		{"RLA", zeropageX, c.rla, 6, false},   // 0x37
		{"SEC", implied, c.sec, 2, false},     // 0x38
		{"AND", absoluteY, c.and, 4, true},    // 0x39
		{"NOP", implied, c.nop, 2, false},     // 0x3A
		{"RLA", absoluteY, c.rla, 7, false},   // 0x3B
		{"NOP", absoluteX, c.nop, 4, true},    // 0x3C
		{"AND", absoluteX, c.and, 4, true},    // 0x3D
		{"ROL", absoluteX, c.rol, 7, false},   // 0x3E
		{"RLA", absoluteX, c.rla, 7, false},   // 0x3F
		{"RTI", implied, c.rti, 6, false},     // 0x40
		{"EOR", indirectX, c.eor, 6, false},   // 0x41
		jam,                                   // 0x42
		{"SRE", indirectX, c.sre, 8, false},   // 0x43
		{"NOP", zeropage, c.nop, 3, false},    // 0x44
		{"EOR", zeropage, c.eor, 3, false},    // 0x45
		{"LSR", zeropage, c.lsr, 5, false},    // 0x46
		{"SRE", zeropage, c.sre, 5, false},    // 0x47
		{"PHA", implied, c.pha, 3, false},     // 0x48
		{"EOR", immediate, c.eor, 2, false},   // 0x49
		{"LSR", accumulator, c.lsr, 2, false}, // 0x4A
		{"ALR", immediate, c.alr, 2, false},   // 0x4B
		{"JMP", absolute, c.jmp, 3, false},    // 0x4C
		{"EOR", absolute, c.eor, 4, false},    // 0x4D
		{"LSR", absolute, c.lsr, 6, false},    // 0x4E
		{"SRE", absolute, c.sre, 6, false},    // 0x4F
		{"BVC", relative, c.bvc, 2, false},    // 0x50
		{"EOR", indirectY, c.eor, 5, true},    // 0x51
		jam,                                   // 0x52
		{"SRE", indirectY, c.sre, 8, false},   // 0x53
		{"NOP", zeropageX, c.nop, 4, false},   // 0x54
		{"EOR", zeropageX, c.eor, 4, false},   // 0x55
		{"LSR", zeropageX, c.lsr, 6, false},   // 0x56
		{"SRE", zeropageX, c.sre, 6, false},   // 0x57
		{"CLI", implied, c.cli, 2, false},     // 0x58
		{"EOR", absoluteY, c.eor, 4, true},    // 0x59
		{"NOP", implied, c.nop, 2, false},     // 0x5A
		{"SRE", absoluteY, c.sre, 7, false},   // 0x5B
		{"NOP", absoluteX, c.nop, 4, true},    // 0x5C
		{"EOR", absoluteX, c.eor, 4, true},    // 0x5D
		{"LSR", absoluteX, c.lsr, 7, false},   // 0x5E
		{"SRE", absoluteX, c.sre, 7, false},   // 0x5F
		{"RTS", implied, c.rts, 6, false},     // 0x60
		{"ADC", indirectX, c.adc, 6, false},   // 0x61
		jam,                                   // 0x62
		{"RRA", indirectX, c.rra, 8, false},   // 0x63
		{"NOP", zeropage, c.nop, 3, false},    // 0x64
		{"ADC", zeropage, c.adc, 3, false},    // 0x65
		{"ROR", zeropage, c.ror, 5, false},    // 0x66
		{"RRA", zeropage, c.rra, 5, false},    // 0x67
		{"PLA", implied, c.pla, 4, false},     // 0x68
		{"ADC", immediate, c.adc, 2, false},   // 0x69
		{"ROR", accumulator, c.ror, 2, false}, // 0x6A
		{"ARR", immediate, c.arr, 2, false},   // 0x6B
		{"JMP", indirect, c.jmp, 5, false},    // 0x6C
		{"ADC", absolute, c.adc, 4, false},    // 0x6D
		{"ROR", absolute, c.ror, 6, false},    // 0x6E
		{"RRA", absolute, c.rra, 6, false},    // 0x6F
		{"BVS", relative, c.bvs, 2, false},    // 0x70
		{"ADC", indirectY, c.adc, 5, true},    // 0x71
		jam,                                   // 0x72
		{"RRA", indirectY, c.rra, 8, false},   // 0x73
		{"NOP", zeropageX, c.nop, 4, false},   // 0x74
		{"ADC", zeropageX, c.adc, 4, false},   // 0x75
		{"ROR", zeropageX, c.ror, 6, false},   // 0x76
		{"RRA", zeropageX, c.rra, 6, false},   // 0x77
		{"SEI", implied, c.sei, 2, false},     // 0x78
		{"ADC", absoluteY, c.adc, 4, true},    // 0x79
		{"NOP", implied, c.nop, 2, false},     // 0x7A
		{"RRA", absoluteY, c.rra, 7, false},   // 0x7B
		{"NOP", absoluteX, c.nop, 4, true},    // 0x7C
		{"ADC", absoluteX, c.adc, 4, true},    // 0x7D
		{"ROR", absoluteX, c.ror, 7, false},   // 0x7E
		{"RRA", absoluteX, c.rra, 7, false},   // 0x7F
		{"NOP", immediate, c.nop, 2, false},   // 0x80
		{"STA", indirectX, c.sta, 6, false},   // 0x81
		{"NOP", immediate, c.nop, 2, false},   // 0x82
		{"SAX", indirectX, c.sax, 6, false},   // 0x83
		{"STY", zeropage, c.sty, 3, false},    // 0x84
		{"STA", zeropage, c.sta, 3, false},    // 0x85
		{"STX", zeropage, c.stx, 3, false},    // 0x86
		{"SAX", zeropage, c.sax, 3, false},    // 0x87
		{"DEY", implied, c.dey, 2, false},     // 0x88
		{"NOP", immediate, c.nop, 2, false},   // 0x89
		{"TXA", implied, c.txa, 2, false},     // 0x8A
		{"XAA", immediate, c.xaa, 2, false},   // 0x8B
		{"STY", absolute, c.sty, 4, false},    // 0x8C
		{"STA", absolute, c.sta, 4, false},    // 0x8D
		{"STX", absolute, c.stx, 4, false},    // 0x8E
		{"SAX", absolute, c.sax, 4, false},    // 0x8F
		{"BCC", relative, c.bcc, 2, false},    // 0x90
		{"STA", indirectY, c.sta, 6, false},   // 0x91
		jam,                                   // 0x92
		{"AHX", indirectY, c.ahx, 6, false},   // 0x93
		{"STY", zeropageX, c.sty, 4, false},   // 0x94
		{"STA", zeropageX, c.sta, 4, false},   // 0x95
		{"STX", zeropageY, c.stx, 4, false},   // 0x96
		{"SAX", zeropageY, c.sax, 4, false},   // 0x97
		{"TYA", implied, c.tya, 2, false},     // 0x98
		{"STA", absoluteY, c.sta, 5, false},   // 0x99
		{"TXS", implied, c.txs, 2, false},     // 0x9A
		{"TAS", absoluteY, c.tas, 5, false},   // 0x9B
		{"SHY", absoluteX, c.shy, 5, false},   // 0x9C
		{"STA", absoluteX, c.sta, 5, false},   // 0x9D
		{"SHX", absoluteY, c.shx, 5, false},   // 0x9E
		{"AHX", absoluteY, c.ahx, 5, false},   // 0x9F
		{"LDY", immediate, c.ldy, 2, false},   // 0xA0
		{"LDA", indirectX, c.lda, 6, false},   // 0xA1
		{"LDX", immediate, c.ldx, 2, false},   // 0xA2
		{"LAX", indirectX, c.lax, 6, false},   // 0xA3
		{"LDY", zeropage, c.ldy, 3, false},    // 0xA4
		{"LDA", zeropage, c.lda, 3, false},    // 0xA5
		{"LDX", zeropage, c.ldx, 3, false},    // 0xA6
		{"LAX", zeropage, c.lax, 3, false},    // 0xA7
		{"TAY", implied, c.tay, 2, false},     // 0xA8
		{"LDA", immediate, c.lda, 2, false},   // 0xA9
		{"TAX", implied, c.tax, 2, false},     // 0xAA
		{"LXA", immediate, c.lax, 2, false},   // 0xAB
		{"LDY", absolute, c.ldy, 4, false},    // 0xAC
		{"LDA", absolute, c.lda, 4, false},    // 0xAD
		{"LDX", absolute, c.ldx, 4, false},    // 0xAE
		{"LAX", absolute, c.lax, 4, false},    // 0xAF
		{"BCS", relative, c.bcs, 2, false},    // 0xB0
		{"LDA", indirectY, c.lda, 5, true},    // 0xB1
		jam,                                   // 0xB2
		{"LAX", indirectY, c.lax, 5, true},    // 0xB3
		{"LDY", zeropageX, c.ldy, 4, false},   // 0xB4
		{"LDA", zeropageX, c.lda, 4, false},   // 0xB5
		{"LDX", zeropageY, c.ldx, 4, false},   // 0xB6
		{"LAX", zeropageY, c.lax, 4, false},   // 0xB7
		{"CLV", implied, c.clv, 2, false},     // 0xB8
		{"LDA", absoluteY, c.lda, 4, true},    // 0xB9
		{"TSX", implied, c.tsx, 2, false},     // 0xBA
		{"LAS", absoluteY, c.las, 4, true},    // 0xBB
		{"LDY", absoluteX, c.ldy, 4, true},    // 0xBC
		{"LDA", absoluteX, c.lda, 4, true},    // 0xBD
		{"LDX", absoluteY, c.ldx, 4, true},    // 0xBE
		{"LAX", absoluteY, c.lax, 4, true},    // 0xBF
		{"CPY", immediate, c.cpy, 2, false},   // 0xC0
		{"CMP", indirectX, c.cmp, 6, false},   // 0xC1
		{"NOP", immediate, c.nop, 2, false},   // 0xC2
		{"DCP", indirectX, c.dcp, 8, false},   // 0xC3
		{"CPY", zeropage, c.cpy, 3, false},    // 0xC4
		{"CMP", zeropage, c.cmp, 3, false},    // 0xC5
		{"DEC", zeropage, c.dec, 5, false},    // 0xC6
		{"DCP", zeropage, c.dcp, 5, false},    // 0xC7
		{"INY", implied, c.iny, 2, false},     // 0xC8
		{"CMP", immediate, c.cmp, 2, false},   // 0xC9
		{"DEX", implied, c.dex, 2, false},     // 0xCA
		{"AXS", immediate, c.axs, 2, false},   // 0xCB
		{"CPY", absolute, c.cpy, 4, false},    // 0xCC
		{"CMP", absolute, c.cmp, 4, false},    // 0xCD
		{"DEC", absolute, c.dec, 6, false},    // 0xCE
		{"DCP", absolute, c.dcp, 6, false},    // 0xCF
		{"BNE", relative, c.bne, 2, false},    // 0xD0
		{"CMP", indirectY, c.cmp, 5, true},    // 0xD1
		jam,                                   // 0xD2
		{"DCP", indirectY, c.dcp, 8, false},   // 0xD3
		{"NOP", zeropageX, c.nop, 4, false},   // 0xD4
		{"CMP", zeropageX, c.cmp, 4, false},   // 0xD5
		{"DEC", zeropageX, c.dec, 6, false},   // 0xD6
		{"DCP", zeropageX, c.dcp, 6, false},   // 0xD7
		{"CLD", implied, c.cld, 2, false},     // 0xD8
		{"CMP", absoluteY, c.cmp, 4, true},    // 0xD9
		{"NOP", implied, c.nop, 2, false},     // 0xDA
		{"DCP", absoluteY, c.dcp, 7, false},   // 0xDB
		{"NOP", absoluteX, c.nop, 4, true},    // 0xDC
		{"CMP", absoluteX, c.cmp, 4, true},    // 0xDD
		{"DEC", absoluteX, c.dec, 7, false},   // 0xDE
		{"DCP", absoluteX, c.dcp, 7, false},   // 0xDF
		{"CPX", immediate, c.cpx, 2, false},   // 0xE0
		{"SBC", indirectX, c.sbc, 6, false},   // 0xE1
		{"NOP", immediate, c.nop, 2, false},   // 0xE2
		{"ISB", indirectX, c.isb, 8, false},   // 0xE3
		{"CPX", zeropage, c.cpx, 3, false},    // 0xE4
		{"SBC", zeropage, c.sbc, 3, false},    // 0xE5
		{"INC", zeropage, c.inc, 5, false},    // 0xE6
		{"ISB", zeropage, c.isb, 5, false},    // 0xE7
		{"INX", implied, c.inx, 2, false},     // 0xE8
		{"SBC", immediate, c.sbc, 2, false},   // 0xE9
		{"NOP", implied, c.nop, 2, false},     // 0xEA
		{"SBC", immediate, c.sbc, 2, false},   // 0xEB
		{"CPX", absolute, c.cpx, 4, false},    // 0xEC
		{"SBC", absolute, c.sbc, 4, false},    // 0xED
		{"INC", absolute, c.inc, 6, false},    // 0xEE
		{"ISB", absolute, c.isb, 6, false},    // 0xEF
		{"BEQ", relative, c.beq, 2, false},    // 0xF0
		{"SBC", indirectY, c.sbc, 5, true},    // 0xF1
		jam,                                   // 0xF2
		{"ISB", indirectY, c.isb, 8, false},   // 0xF3
		{"NOP", zeropageX, c.nop, 4, false},   // 0xF4
		{"SBC", zeropageX, c.sbc, 4, false},   // 0xF5
		{"INC", zeropageX, c.inc, 6, false},   // 0xF6
		{"ISB", zeropageX, c.isb, 6, false},   // 0xF7
		{"SED", implied, c.sed, 2, false},     // 0xF8
		{"SBC", absoluteY, c.sbc, 4, true},    // 0xF9
		{"NOP", implied, c.nop, 2, false},     // 0xFA
		{"ISB", absoluteY, c.isb, 7, false},   // 0xFB
		{"NOP", absoluteX, c.nop, 4, true},    // 0xFC
		{"SBC", absoluteX, c.sbc, 4, true},    // 0xFD
		{"INC", absoluteX, c.inc, 7, false},   // 0xFE
		{"ISB", absoluteX, c.isb, 7, false},   // 0xFF
	}
}

// NewCPU creates a new NES CPU.
func NewCPU(bus *CPUBus) *CPU {
	c := &CPU{
		p:   &status{},
		bus: bus,
	}
	c.instructions = c.createInstructions()
	c.Reset()
	return c
}

// Reset does Reset.
// https://www.nesdev.org/wiki/CPU_power_up_state
func (c *CPU) Reset() {
	c.pc = c.bus.read16(resetVector)
	c.s = 0xFD
	c.p.decodeFrom(0x24)
	c.stall = 0
	c.irqPending = false
	c.cycles = interruptCycles
}

// Cycles returns the number of executed cycles since reset, the reset
// sequence itself takes 7.
func (c *CPU) Cycles() uint64 {
	return c.cycles
}

// PC returns the program counter.
func (c *CPU) PC() uint16 {
	return c.pc
}

// TriggerIRQ asserts the IRQ line until it is serviced.
func (c *CPU) TriggerIRQ() {
	c.irqPending = true
}

func (c *CPU) read(address uint16) byte {
	return c.bus.read(address)
}

func (c *CPU) write(address uint16, data byte) {
	c.bus.write(address, data)
}

// setN sets whether the x is negative or positive.
func (c *CPU) setN(x byte) {
	c.p.n = x&0x80 != 0
}

// setZ sets whether the x is 0 or not.
func (c *CPU) setZ(x byte) {
	c.p.z = x == 0
}

func (c *CPU) setZN(x byte) {
	c.setZ(x)
	c.setN(x)
}

// push pushes data to stack.
// "With the 6502, the stack is always on page one ($100-$1FF) and works top down."
func (c *CPU) push(x byte) {
	c.write(0x100|uint16(c.s), x)
	c.s--
}

// pop pops data from stack.
// "With the 6502, the stack is always on page one ($100-$1FF) and works top down."
func (c *CPU) pop() byte {
	c.s++
	return c.read(0x100 | uint16(c.s))
}

func (c *CPU) push16(x uint16) {
	c.push(byte(x >> 8))
	c.push(byte(x))
}

func (c *CPU) pop16() uint16 {
	l := c.pop()
	h := c.pop()
	return uint16(h)<<8 | uint16(l)
}

func pagesDiffer(a, b uint16) bool {
	return a&0xFF00 != b&0xFF00
}

// interrupt pushes PC and P then jumps through the vector. The B bit only
// exists on the stack copy of P.
func (c *CPU) interrupt(vector uint16, brk bool) {
	c.push16(c.pc)
	p := c.p.encode() | 0x20
	if brk {
		p |= 0x10
	} else {
		p &^= 0x10
	}
	c.push(p)
	c.p.i = true
	c.pc = c.bus.read16(vector)
}

// branch jumps when cond holds, a taken branch costs a cycle and one more
// when the target is on another page.
func (c *CPU) branch(cond bool, operand uint16) {
	if !cond {
		return
	}
	c.extraCycles++
	if pagesDiffer(c.pc, operand) {
		c.extraCycles++
	}
	c.pc = operand
}

func (c *CPU) compare(x, data byte) {
	c.p.c = x >= data
	c.setZN(x - data)
}

// addWithCarry is the ALU of ADC and SBC. Decimal mode is not wired on the 2A03.
func (c *CPU) addWithCarry(data byte) {
	var carry uint16
	if c.p.c {
		carry = 1
	}
	sum := uint16(c.a) + uint16(data) + carry
	res := byte(sum)
	c.p.c = sum > 0xFF
	// overflow when both operands have the same sign and the result has the other.
	c.p.v = (c.a^data)&0x80 == 0 && (c.a^res)&0x80 != 0
	c.a = res
	c.setZN(c.a)
}

// modify applies f to the memory or the accumulator.
func (c *CPU) modify(mode addressingMode, operand uint16, f func(byte) byte) byte {
	if mode == accumulator {
		c.a = f(c.a)
		c.setZN(c.a)
		return c.a
	}
	x := f(c.read(operand))
	c.write(operand, x)
	c.setZN(x)
	return x
}

func (c *CPU) shiftLeft(x byte) byte {
	c.p.c = x&0x80 != 0
	return x << 1
}

func (c *CPU) shiftRight(x byte) byte {
	c.p.c = x&1 == 1
	return x >> 1
}

func (c *CPU) rotateLeft(x byte) byte {
	var carry byte
	if c.p.c {
		carry = 1
	}
	c.p.c = x&0x80 != 0
	return x<<1 | carry
}

func (c *CPU) rotateRight(x byte) byte {
	var carry byte
	if c.p.c {
		carry = 0x80
	}
	c.p.c = x&1 == 1
	return x>>1 | carry
}

// ADC - Add with Carry.
func (c *CPU) adc(mode addressingMode, operand uint16) {
	c.addWithCarry(c.read(operand))
}

// AND - And.
func (c *CPU) and(mode addressingMode, operand uint16) {
	c.a &= c.read(operand)
	c.setZN(c.a)
}

// ASL - Arithmetic Shift Left.
func (c *CPU) asl(mode addressingMode, operand uint16) {
	c.modify(mode, operand, c.shiftLeft)
}

// BCC - Branch on Carry Clear.
func (c *CPU) bcc(mode addressingMode, operand uint16) {
	c.branch(!c.p.c, operand)
}

// BCS - Branch on Carry Set.
func (c *CPU) bcs(mode addressingMode, operand uint16) {
	c.branch(c.p.c, operand)
}

// BEQ - Branch on Equal.
func (c *CPU) beq(mode addressingMode, operand uint16) {
	c.branch(c.p.z, operand)
}

// BIT - test BITS.
func (c *CPU) bit(mode addressingMode, operand uint16) {
	x := c.read(operand)
	c.setN(x)
	c.setZ(c.a & x)
	c.p.v = (x>>6)&1 == 1
}

// BMI - Branch on Minus.
func (c *CPU) bmi(mode addressingMode, operand uint16) {
	c.branch(c.p.n, operand)
}

// BNE - Branch on Not Equal.
func (c *CPU) bne(mode addressingMode, operand uint16) {
	c.branch(!c.p.z, operand)
}

// BPL - Branch on Plus.
func (c *CPU) bpl(mode addressingMode, operand uint16) {
	c.branch(!c.p.n, operand)
}

// BRK - Break Interrupt.
// BRK is a 2 byte instruction, the byte after the opcode is skipped on return.
func (c *CPU) brk(mode addressingMode, operand uint16) {
	c.pc++
	c.interrupt(irqVector, true)
}

// BVC - Branch on Overflow Clear.
func (c *CPU) bvc(mode addressingMode, operand uint16) {
	c.branch(!c.p.v, operand)
}

// BVS - Branch on Overflow Set.
func (c *CPU) bvs(mode addressingMode, operand uint16) {
	c.branch(c.p.v, operand)
}

// CLC - Clear Carry.
func (c *CPU) clc(mode addressingMode, operand uint16) {
	c.p.c = false
}

// CLD - Clear Decimal.
func (c *CPU) cld(mode addressingMode, operand uint16) {
	c.p.d = false
}

// CLI - Clear Interrupt.
func (c *CPU) cli(mode addressingMode, operand uint16) {
	c.p.i = false
}

// CLV - Clear Overflow.
func (c *CPU) clv(mode addressingMode, operand uint16) {
	c.p.v = false
}

// CMP - Compare Accumulator.
func (c *CPU) cmp(mode addressingMode, operand uint16) {
	c.compare(c.a, c.read(operand))
}

// CPX - Compare X register.
func (c *CPU) cpx(mode addressingMode, operand uint16) {
	c.compare(c.x, c.read(operand))
}

// CPY - Compare Y register.
func (c *CPU) cpy(mode addressingMode, operand uint16) {
	c.compare(c.y, c.read(operand))
}

// DEC - Decrement Memory.
func (c *CPU) dec(mode addressingMode, operand uint16) {
	c.modify(mode, operand, func(x byte) byte { return x - 1 })
}

// DEX - Decrement X Register.
func (c *CPU) dex(mode addressingMode, operand uint16) {
	c.x--
	c.setZN(c.x)
}

// DEY - Decrement Y Register.
func (c *CPU) dey(mode addressingMode, operand uint16) {
	c.y--
	c.setZN(c.y)
}

// EOR - Bitwise Exclusive OR.
func (c *CPU) eor(mode addressingMode, operand uint16) {
	c.a ^= c.read(operand)
	c.setZN(c.a)
}

// INC - Increment Memory.
func (c *CPU) inc(mode addressingMode, operand uint16) {
	c.modify(mode, operand, func(x byte) byte { return x + 1 })
}

// INX - Increment X Register.
func (c *CPU) inx(mode addressingMode, operand uint16) {
	c.x++
	c.setZN(c.x)
}

// INY - Increment Y Register.
func (c *CPU) iny(mode addressingMode, operand uint16) {
	c.y++
	c.setZN(c.y)
}

// JMP - Jump.
func (c *CPU) jmp(mode addressingMode, operand uint16) {
	c.pc = operand
}

// JSR - Jump to Subroutine.
func (c *CPU) jsr(mode addressingMode, operand uint16) {
	c.push16(c.pc - 1)
	c.pc = operand
}

// LDA - Load Accumulator.
func (c *CPU) lda(mode addressingMode, operand uint16) {
	c.a = c.read(operand)
	c.setZN(c.a)
}

// LDX - Load X Register.
func (c *CPU) ldx(mode addressingMode, operand uint16) {
	c.x = c.read(operand)
	c.setZN(c.x)
}

// LDY - Load Y Register.
func (c *CPU) ldy(mode addressingMode, operand uint16) {
	c.y = c.read(operand)
	c.setZN(c.y)
}

// LSR - Logical Shift Right.
func (c *CPU) lsr(mode addressingMode, operand uint16) {
	c.modify(mode, operand, c.shiftRight)
}

// NOP - No Operation. Unofficial NOPs with an operand still read it.
func (c *CPU) nop(mode addressingMode, operand uint16) {
	switch mode {
	case implied, accumulator, immediate:
	default:
		c.read(operand)
	}
}

// ORA - Bitwise OR with Accumulator.
func (c *CPU) ora(mode addressingMode, operand uint16) {
	c.a |= c.read(operand)
	c.setZN(c.a)
}

// PHA - Push Accumulator.
func (c *CPU) pha(mode addressingMode, operand uint16) {
	c.push(c.a)
}

// PHP - Push Processor Status, with B and the reserved bit set.
func (c *CPU) php(mode addressingMode, operand uint16) {
	c.push(c.p.encode() | 0x30)
}

// PLA - Pull Accumulator.
func (c *CPU) pla(mode addressingMode, operand uint16) {
	c.a = c.pop()
	c.setZN(c.a)
}

// PLP - Pull Processor Status.
func (c *CPU) plp(mode addressingMode, operand uint16) {
	c.p.pull(c.pop())
}

// ROL - Rotate Left.
func (c *CPU) rol(mode addressingMode, operand uint16) {
	c.modify(mode, operand, c.rotateLeft)
}

// ROR - Rotate Right.
func (c *CPU) ror(mode addressingMode, operand uint16) {
	c.modify(mode, operand, c.rotateRight)
}

// RTS - Return from Subroutine.
func (c *CPU) rts(mode addressingMode, operand uint16) {
	c.pc = c.pop16() + 1
}

// RTI - Return from Interrupt.
func (c *CPU) rti(mode addressingMode, operand uint16) {
	c.p.pull(c.pop())
	c.pc = c.pop16()
}

// SBC - Subtract with carry.
func (c *CPU) sbc(mode addressingMode, operand uint16) {
	c.addWithCarry(^c.read(operand))
}

// SEC - Set Carry.
func (c *CPU) sec(mode addressingMode, operand uint16) {
	c.p.c = true
}

// SED - Set Decimal. The flag is kept but has no effect on arithmetic.
func (c *CPU) sed(mode addressingMode, operand uint16) {
	c.p.d = true
}

// SEI - Set Interrupt.
func (c *CPU) sei(mode addressingMode, operand uint16) {
	c.p.i = true
}

// STA - Store A Register.
func (c *CPU) sta(mode addressingMode, operand uint16) {
	c.write(operand, c.a)
}

// STX - Store X Register.
func (c *CPU) stx(mode addressingMode, operand uint16) {
	c.write(operand, c.x)
}

// STY - Store Y Register.
func (c *CPU) sty(mode addressingMode, operand uint16) {
	c.write(operand, c.y)
}

// TAX - Transfer A to X.
func (c *CPU) tax(mode addressingMode, operand uint16) {
	c.x = c.a
	c.setZN(c.x)
}

// TAY - Transfer A to Y.
func (c *CPU) tay(mode addressingMode, operand uint16) {
	c.y = c.a
	c.setZN(c.y)
}

// TSX - Transfer S to X.
func (c *CPU) tsx(mode addressingMode, operand uint16) {
	c.x = c.s
	c.setZN(c.x)
}

// TXA - Transfer X to A.
func (c *CPU) txa(mode addressingMode, operand uint16) {
	c.a = c.x
	c.setZN(c.a)
}

// TXS - Transfer X to S.
func (c *CPU) txs(mode addressingMode, operand uint16) {
	c.s = c.x
}

// TYA - Transfer Y to A.
func (c *CPU) tya(mode addressingMode, operand uint16) {
	c.a = c.y
	c.setZN(c.a)
}

// Unofficial opcodes.
// https://www.nesdev.org/wiki/Programming_with_unofficial_opcodes

// SLO - ASL then ORA.
func (c *CPU) slo(mode addressingMode, operand uint16) {
	c.a |= c.modify(mode, operand, c.shiftLeft)
	c.setZN(c.a)
}

// RLA - ROL then AND.
func (c *CPU) rla(mode addressingMode, operand uint16) {
	c.a &= c.modify(mode, operand, c.rotateLeft)
	c.setZN(c.a)
}

// SRE - LSR then EOR.
func (c *CPU) sre(mode addressingMode, operand uint16) {
	c.a ^= c.modify(mode, operand, c.shiftRight)
	c.setZN(c.a)
}

// RRA - ROR then ADC.
func (c *CPU) rra(mode addressingMode, operand uint16) {
	c.addWithCarry(c.modify(mode, operand, c.rotateRight))
}

// DCP - DEC then CMP.
func (c *CPU) dcp(mode addressingMode, operand uint16) {
	c.compare(c.a, c.modify(mode, operand, func(x byte) byte { return x - 1 }))
}

// ISB - INC then SBC.
func (c *CPU) isb(mode addressingMode, operand uint16) {
	c.addWithCarry(^c.modify(mode, operand, func(x byte) byte { return x + 1 }))
}

// LAX - LDA then TAX. The immediate form (LXA) is unstable, this is the
// behavior with the magic constant $FF.
func (c *CPU) lax(mode addressingMode, operand uint16) {
	c.a = c.read(operand)
	c.x = c.a
	c.setZN(c.a)
}

// SAX - Store A AND X.
func (c *CPU) sax(mode addressingMode, operand uint16) {
	c.write(operand, c.a&c.x)
}

// ANC - AND then copy N to C.
func (c *CPU) anc(mode addressingMode, operand uint16) {
	c.and(mode, operand)
	c.p.c = c.p.n
}

// ALR - AND then LSR A.
func (c *CPU) alr(mode addressingMode, operand uint16) {
	c.a = c.shiftRight(c.a & c.read(operand))
	c.setZN(c.a)
}

// ARR - AND then ROR A, C is bit 6 and V is bit 6 XOR bit 5 of the result.
func (c *CPU) arr(mode addressingMode, operand uint16) {
	var carry byte
	if c.p.c {
		carry = 0x80
	}
	c.a = (c.a&c.read(operand))>>1 | carry
	c.setZN(c.a)
	c.p.c = c.a&0x40 != 0
	c.p.v = (c.a>>6)&1 != (c.a>>5)&1
}

// AXS - X = (A AND X) - operand, without borrow.
func (c *CPU) axs(mode addressingMode, operand uint16) {
	ax := c.a & c.x
	data := c.read(operand)
	c.p.c = ax >= data
	c.x = ax - data
	c.setZN(c.x)
}

// XAA - unstable, this is the behavior with the magic constant $FF.
func (c *CPU) xaa(mode addressingMode, operand uint16) {
	c.a = c.x & c.read(operand)
	c.setZN(c.a)
}

// LAS - A, X and S = memory AND S.
func (c *CPU) las(mode addressingMode, operand uint16) {
	c.s &= c.read(operand)
	c.a = c.s
	c.x = c.s
	c.setZN(c.a)
}

// storeHigh stores data AND (high byte of the base address + 1), the
// behavior shared by SHX, SHY, AHX and TAS.
func (c *CPU) storeHigh(operand uint16, index byte, data byte) {
	base := operand - uint16(index)
	c.write(operand, data&(byte(base>>8)+1))
}

// SHY - Store Y AND (H+1).
func (c *CPU) shy(mode addressingMode, operand uint16) {
	c.storeHigh(operand, c.x, c.y)
}

// SHX - Store X AND (H+1).
func (c *CPU) shx(mode addressingMode, operand uint16) {
	c.storeHigh(operand, c.y, c.x)
}

// AHX - Store A AND X AND (H+1).
func (c *CPU) ahx(mode addressingMode, operand uint16) {
	c.storeHigh(operand, c.y, c.a&c.x)
}

// TAS - S = A AND X, then store S AND (H+1).
func (c *CPU) tas(mode addressingMode, operand uint16) {
	c.s = c.a & c.x
	c.storeHigh(operand, c.y, c.s)
}

// NMI is non-maskable interrupt, this will be trigered by PPU.
func (c *CPU) nmi() {
	c.interrupt(nmiVector, false)
}

// irq is the maskable interrupt, serviced only when I is clear.
func (c *CPU) irq() {
	c.irqPending = false
	c.interrupt(irqVector, false)
}

// resolve computes the effective address and whether indexing crossed a page.
func (c *CPU) resolve(mode addressingMode) (uint16, bool) {
	switch mode {
	case immediate:
		return c.pc + 1, false
	case zeropage:
		return uint16(c.read(c.pc + 1)), false
	case zeropageX:
		// If the address exceeds 0xFF (page crossed), back to 0x00
		return uint16(c.read(c.pc+1) + c.x), false
	case zeropageY:
		return uint16(c.read(c.pc+1) + c.y), false
	case relative:
		// Relative will look up a signed value
		// 2 is offset for operand
		offset := c.read(c.pc + 1)
		return c.pc + 2 + uint16(int8(offset)), false
	case absolute:
		return c.bus.read16(c.pc + 1), false
	case absoluteX:
		base := c.bus.read16(c.pc + 1)
		address := base + uint16(c.x)
		return address, pagesDiffer(base, address)
	case absoluteY:
		base := c.bus.read16(c.pc + 1)
		address := base + uint16(c.y)
		return address, pagesDiffer(base, address)
	case indirect:
		// JMP ($xxFF) reads the high byte from $xx00.
		return c.bus.read16Wrap(c.bus.read16(c.pc + 1)), false
	case indirectX:
		return c.bus.read16Wrap(uint16(c.read(c.pc+1) + c.x)), false
	case indirectY:
		base := c.bus.read16Wrap(uint16(c.read(c.pc + 1)))
		address := base + uint16(c.y)
		return address, pagesDiffer(base, address)
	}
	return 0, false
}

// Step executes one instruction or services one interrupt and returns the
// number of cycles it took. Pending OAM DMA stalls are returned as a whole by
// the next call.
func (c *CPU) Step() int {
	// Running stall cycles.
	if c.stall > 0 {
		cycles := c.stall
		c.stall = 0
		c.cycles += uint64(cycles)
		return cycles
	}
	// Interrupts are checked between instructions, NMI first.
	if c.bus.pollNMI() {
		c.nmi()
		c.cycles += interruptCycles
		return interruptCycles
	}
	if c.irqPending && !c.p.i {
		c.irq()
		c.cycles += interruptCycles
		return interruptCycles
	}
	opcode := c.read(c.pc)
	in := &c.instructions[opcode]
	operand, pageCrossed := c.resolve(in.mode)
	c.lastPC = c.pc
	c.lastOpcode = opcode
	c.pc += instructionSizes[in.mode]
	c.extraCycles = 0
	in.execute(in.mode, operand)
	cycles := in.cycles + c.extraCycles
	if pageCrossed && in.pageCycle {
		cycles++
	}
	c.cycles += uint64(cycles)
	// OAM DMA takes 513 cycles, plus one to align when it starts on an odd cycle.
	if c.bus.takeDMA() {
		c.stall = 513
		if c.cycles%2 == 1 {
			c.stall++
		}
	}
	return cycles
}

// Trace returns the registers in the format of the nestest log.
func (c *CPU) Trace() string {
	return fmt.Sprintf("%04X  A:%02X X:%02X Y:%02X P:%02X SP:%02X CYC:%d",
		c.pc, c.a, c.x, c.y, c.p.encode(), c.s, c.cycles)
}

// lastExecution describes the last executed instruction, for debug.
func (c *CPU) lastExecution() string {
	return fmt.Sprintf("PC=0x%04x, opcode=0x%02x, mnemonic=%s",
		c.lastPC, c.lastOpcode, c.instructions[c.lastOpcode].mnemonic)
}
