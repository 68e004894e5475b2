package nes

import (
	"fmt"

	"github.com/golang/glog"
)

const chrBankSize = 0x1000 // 4KB

// Mapper1: https://www.nesdev.org/wiki/MMC1
//
// CPU $6000-$7FFF: 8 KB PRG RAM bank
// CPU $8000-$BFFF: 16 KB PRG ROM bank, either switchable or fixed to the first bank
// CPU $C000-$FFFF: 16 KB PRG ROM bank, either fixed to the last bank or switchable
// PPU $0000-$0FFF: 4 KB switchable CHR bank
// PPU $1000-$1FFF: 4 KB switchable CHR bank
//
// Registers are written serially through a 5 bit shift register, one bit per
// write to $8000-$FFFF. Bits 13 and 14 of the fifth write select the target.
type mapper1 struct {
	prgROM      []byte
	chr         []byte
	chrWritable bool
	prgRAM      [prgRAMSize]byte

	shift byte // accumulated bits, LSB first
	count byte // number of accumulated bits

	// Control ($8000-$9FFF)
	// 4bit0
	// -----
	// CPPMM
	// |||||
	// |||++- Mirroring (0: one-screen, lower bank; 1: one-screen, upper bank;
	// |||               2: vertical; 3: horizontal)
	// |++--- PRG ROM bank mode (0, 1: switch 32 KB at $8000, ignoring low bit of bank number;
	// |                         2: fix first bank at $8000 and switch 16 KB bank at $C000;
	// |                         3: fix last bank at $C000 and switch 16 KB bank at $8000)
	// +----- CHR ROM bank mode (0: switch 8 KB at a time; 1: switch two separate 4 KB banks)
	control  byte
	chrBank0 byte // $A000-$BFFF
	chrBank1 byte // $C000-$DFFF
	prgBank  byte // $E000-$FFFF
}

func newMapper1(c *Cartridge) *mapper1 {
	chr, writable := newCHR(c)
	return &mapper1{
		prgROM:      c.prgROM,
		chr:         chr,
		chrWritable: writable,
		control:     0x0C, // power-on state fixes the last bank at $C000
	}
}

func (m *mapper1) prgBanks() int {
	return len(m.prgROM) / prgROMSizeUnit
}

func (m *mapper1) chrBanks() int {
	return len(m.chr) / chrBankSize
}

// prgOffset resolves a CPU address in $8000-$FFFF to an index of PRG ROM.
func (m *mapper1) prgOffset(address uint16) int {
	offset := int(address-0x8000) % prgROMSizeUnit
	high := address >= 0xC000
	var bank int
	switch (m.control >> 2) & 3 {
	case 0, 1:
		bank = int(m.prgBank & 0x0E)
		if high {
			bank |= 1
		}
	case 2:
		if high {
			bank = int(m.prgBank & 0x0F)
		}
	case 3:
		if high {
			bank = m.prgBanks() - 1
		} else {
			bank = int(m.prgBank & 0x0F)
		}
	}
	return (bank%m.prgBanks())*prgROMSizeUnit + offset
}

// chrOffset resolves a PPU address in $0000-$1FFF to an index of CHR memory.
func (m *mapper1) chrOffset(address uint16) int {
	offset := int(address) % chrBankSize
	high := address >= chrBankSize
	var bank int
	if (m.control>>4)&1 == 0 {
		bank = int(m.chrBank0 &^ 1)
		if high {
			bank |= 1
		}
	} else if high {
		bank = int(m.chrBank1)
	} else {
		bank = int(m.chrBank0)
	}
	return (bank%m.chrBanks())*chrBankSize + offset
}

func (m *mapper1) ReadPRG(address uint16) byte {
	switch {
	case 0x8000 <= address:
		return m.prgROM[m.prgOffset(address)]
	case 0x6000 <= address:
		return m.prgRAM[address-0x6000]
	}
	return 0
}

func (m *mapper1) WritePRG(address uint16, data byte) {
	switch {
	case 0x8000 <= address:
		m.load(address, data)
	case 0x6000 <= address:
		m.prgRAM[address-0x6000] = data
	default:
		ignoredWrite("MMC1", address, data)
	}
}

// load feeds the serial port.
// https://www.nesdev.org/wiki/MMC1#Load_register_($8000-$FFFF)
func (m *mapper1) load(address uint16, data byte) {
	if data&0x80 != 0 {
		m.shift = 0
		m.count = 0
		m.control |= 0x0C
		return
	}
	m.shift |= (data & 1) << m.count
	m.count++
	if m.count < 5 {
		return
	}
	value := m.shift
	m.shift = 0
	m.count = 0
	switch (address >> 13) & 3 {
	case 0:
		m.control = value
	case 1:
		m.chrBank0 = value
	case 2:
		m.chrBank1 = value
	case 3:
		m.prgBank = value
	}
	if glog.V(2) {
		glog.Infof("MMC1: register %d = 0x%02x (control=0x%02x, chr=0x%02x/0x%02x, prg=0x%02x)",
			(address>>13)&3, value, m.control, m.chrBank0, m.chrBank1, m.prgBank)
	}
}

func (m *mapper1) ReadCHR(address uint16) byte {
	return m.chr[m.chrOffset(address)]
}

func (m *mapper1) WriteCHR(address uint16, data byte) {
	if !m.chrWritable {
		ignoredWrite("MMC1 CHR", address, data)
		return
	}
	m.chr[m.chrOffset(address)] = data
}

func (m *mapper1) Mirroring() MirrorMode {
	switch m.control & 3 {
	case 0:
		return MirrorSingleLower
	case 1:
		return MirrorSingleUpper
	case 2:
		return MirrorVertical
	}
	return MirrorHorizontal
}

func (m *mapper1) saveState() mapperState {
	s := mapperState{
		ID:        1,
		Registers: []byte{m.shift, m.count, m.control, m.chrBank0, m.chrBank1, m.prgBank},
		PRGRAM:    append([]byte(nil), m.prgRAM[:]...),
	}
	if m.chrWritable {
		s.CHRRAM = append([]byte(nil), m.chr...)
	}
	return s
}

func (m *mapper1) loadState(s mapperState) error {
	if s.ID != 1 || len(s.Registers) != 6 {
		return fmt.Errorf("state is for mapper %d, not MMC1", s.ID)
	}
	m.shift, m.count, m.control = s.Registers[0], s.Registers[1], s.Registers[2]
	m.chrBank0, m.chrBank1, m.prgBank = s.Registers[3], s.Registers[4], s.Registers[5]
	copy(m.prgRAM[:], s.PRGRAM)
	if m.chrWritable {
		copy(m.chr, s.CHRRAM)
	}
	return nil
}
