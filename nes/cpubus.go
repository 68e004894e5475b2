package nes

import "github.com/golang/glog"

type CPUBus struct {
	wram        *RAM
	ppu         *PPU
	mapper      Mapper
	controllers [2]*Controller
	// dmaPending is set by a write to $4014 and consumed by the CPU, which
	// stalls for the transfer.
	dmaPending bool
}

// NewCPUBus creates a new Bus for CPU.
// CPU memory map
// 0x0000 - 0x07FF	WRAM
// 0x0800 - 0x1FFF	WRAM Mirror
// 0x2000 - 0x2007	PPU Registers
// 0x2008 - 0x3FFF	PPU Registers Mirror
// 0x4000 - 0x401F	I/O Port (APU, OAMDMA, controllers)
// 0x4020 - 0x5FFF	Extended RAM
// 0x6000 - 0x7FFF	Battery Backup RAM
// 0x8000 - 0xBFFF	ProgramROM Low
// 0xC000 - 0xFFFF	ProgramROM High
// Everything from 0x4020 belongs to the cartridge.
func NewCPUBus(wram *RAM, ppu *PPU, mapper Mapper, controllers [2]*Controller) *CPUBus {
	return &CPUBus{wram: wram, ppu: ppu, mapper: mapper, controllers: controllers}
}

// writeOAMDMA copies a page of CPU memory to the PPU OAM.
func (b *CPUBus) writeOAMDMA(page byte) {
	var data [256]byte
	offset := uint16(page) << 8
	for i := range data {
		data[i] = b.read(offset + uint16(i))
	}
	b.ppu.writeOAMDMA(data)
	b.dmaPending = true
}

// takeDMA returns whether an OAM DMA was started since the last call.
func (b *CPUBus) takeDMA() bool {
	pending := b.dmaPending
	b.dmaPending = false
	return pending
}

// pollNMI forwards the NMI line of the PPU.
func (b *CPUBus) pollNMI() bool {
	return b.ppu.pollNMI()
}

// read reads a byte.
func (b *CPUBus) read(address uint16) byte {
	switch {
	case address < 0x2000:
		return b.wram.read(address % 0x0800)
	case address < 0x4000:
		return b.ppu.readRegister(0x2000 + address%8)
	case address == 0x4016: // 1P
		return b.controllers[0].read()
	case address == 0x4017: // 2P
		return b.controllers[1].read()
	case address < 0x4020:
		// APU is not implemented.
		if glog.V(3) {
			glog.Infof("Unimplemented CPU bus read: address=0x%04x", address)
		}
		return 0
	default:
		return b.mapper.ReadPRG(address)
	}
}

// read16 reads 2 bytes.
func (b *CPUBus) read16(address uint16) uint16 {
	l := b.read(address)
	h := b.read(address + 1)
	return uint16(h)<<8 | uint16(l)
}

// read16Wrap reads 2 bytes without carrying into the high byte of the
// address, so $xxFF reads $xxFF and $xx00.
func (b *CPUBus) read16Wrap(address uint16) uint16 {
	l := b.read(address)
	h := b.read(address&0xFF00 | uint16(byte(address)+1))
	return uint16(h)<<8 | uint16(l)
}

// write writes a byte.
func (b *CPUBus) write(address uint16, data byte) {
	switch {
	case address < 0x2000:
		b.wram.write(address%0x0800, data)
	case address < 0x4000:
		b.ppu.writeRegister(0x2000+address%8, data)
	case address == 0x4014:
		b.writeOAMDMA(data)
	case address == 0x4016: // strobe for both controllers
		b.controllers[0].write(data)
		b.controllers[1].write(data)
	case address < 0x4020:
		// APU is not implemented.
		if glog.V(3) {
			glog.Infof("Unimplemented CPU bus write: address=0x%04x, data=0x%02x", address, data)
		}
	default:
		b.mapper.WritePRG(address, data)
	}
}
