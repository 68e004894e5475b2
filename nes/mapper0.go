package nes

import "fmt"

// Mapper0: https://www.nesdev.org/wiki/NROM
type mapper0 struct {
	prgROM      []byte
	chr         []byte
	chrWritable bool
	prgRAM      [prgRAMSize]byte
	mirror      MirrorMode
}

func newMapper0(c *Cartridge) *mapper0 {
	chr, writable := newCHR(c)
	return &mapper0{prgROM: c.prgROM, chr: chr, chrWritable: writable, mirror: c.mirror}
}

func (m *mapper0) ReadPRG(address uint16) byte {
	switch {
	case 0x8000 <= address:
		// CPU $C000-$FFFF: Last 16 KB of ROM (NROM-256) or mirror of $8000-$BFFF (NROM-128).
		return m.prgROM[int(address-0x8000)%len(m.prgROM)]
	case 0x6000 <= address:
		return m.prgRAM[address-0x6000]
	}
	return 0
}

func (m *mapper0) WritePRG(address uint16, data byte) {
	if 0x6000 <= address && address < 0x8000 {
		m.prgRAM[address-0x6000] = data
		return
	}
	ignoredWrite("NROM", address, data)
}

func (m *mapper0) ReadCHR(address uint16) byte {
	return m.chr[int(address)%len(m.chr)]
}

func (m *mapper0) WriteCHR(address uint16, data byte) {
	if !m.chrWritable {
		ignoredWrite("NROM CHR", address, data)
		return
	}
	m.chr[int(address)%len(m.chr)] = data
}

func (m *mapper0) Mirroring() MirrorMode {
	return m.mirror
}

func (m *mapper0) saveState() mapperState {
	s := mapperState{ID: 0, PRGRAM: append([]byte(nil), m.prgRAM[:]...)}
	if m.chrWritable {
		s.CHRRAM = append([]byte(nil), m.chr...)
	}
	return s
}

func (m *mapper0) loadState(s mapperState) error {
	if s.ID != 0 {
		return fmt.Errorf("state is for mapper %d, not NROM", s.ID)
	}
	copy(m.prgRAM[:], s.PRGRAM)
	if m.chrWritable {
		copy(m.chr, s.CHRRAM)
	}
	return nil
}
