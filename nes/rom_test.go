package nes

import "testing"

const (
	testResetAddress = 0x8000
	testNMIAddress   = 0x9000
	testIRQAddress   = 0x9800
)

// buildROM assembles an INES image. chr may be empty for CHR RAM boards.
func buildROM(prg, chr []byte, mapper, flags6 byte) []byte {
	header := []byte{
		'N', 'E', 'S', msDOSEOF,
		byte(len(prg) / prgROMSizeUnit),
		byte(len(chr) / chrROMSizeUnit),
		flags6&0x0F | mapper<<4,
		mapper & 0xF0,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	rom := append(header, prg...)
	return append(rom, chr...)
}

// newTestPRG returns 16KB of NOPs with program at $8000, RTI at the NMI and
// IRQ handlers and the vectors pointing at them.
func newTestPRG(program []byte) []byte {
	prg := make([]byte, prgROMSizeUnit)
	for i := range prg {
		prg[i] = 0xEA
	}
	copy(prg, program)
	prg[testNMIAddress-0x8000] = 0x40
	prg[testIRQAddress-0x8000] = 0x40
	put16 := func(vector, address uint16) {
		i := int(vector-0x8000) % prgROMSizeUnit
		prg[i] = byte(address)
		prg[i+1] = byte(address >> 8)
	}
	put16(nmiVector, testNMIAddress)
	put16(resetVector, testResetAddress)
	put16(irqVector, testIRQAddress)
	return prg
}

// newTestConsole creates a NROM console with CHR RAM running program.
func newTestConsole(t *testing.T, program []byte) *Console {
	t.Helper()
	c, err := NewConsole(buildROM(newTestPRG(program), nil, 0, 0))
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}
	return c
}
