package nes

import (
	"errors"
	"testing"
)

func TestNewCartridgeErrors(t *testing.T) {
	valid := buildROM(make([]byte, prgROMSizeUnit), make([]byte, chrROMSizeUnit), 0, 0)
	noPRG := append([]byte(nil), valid...)
	noPRG[4] = 0
	badMagic := append([]byte(nil), valid...)
	badMagic[3] = 0
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", valid[:10]},
		{"bad magic", badMagic},
		{"no PRG", noPRG},
		{"truncated CHR", valid[:len(valid)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCartridge(tt.data); !errors.Is(err, ErrMalformedHeader) {
				t.Fatalf("NewCartridge: got=%v, want ErrMalformedHeader", err)
			}
		})
	}
}

func TestNewCartridge(t *testing.T) {
	prg := make([]byte, 2*prgROMSizeUnit)
	prg[0] = 0x11
	chr := make([]byte, chrROMSizeUnit)
	chr[0] = 0x22
	rom := buildROM(prg, chr, 0x21, 0x01)
	c, err := NewCartridge(rom)
	if err != nil {
		t.Fatalf("NewCartridge: %v", err)
	}
	if c.MapperID() != 0x21 {
		t.Errorf("MapperID(): got=%d, want=33", c.MapperID())
	}
	if c.Mirroring() != MirrorVertical {
		t.Errorf("Mirroring(): got=%s, want=vertical", c.Mirroring())
	}
	if len(c.prgROM) != 2*prgROMSizeUnit || c.prgROM[0] != 0x11 {
		t.Errorf("prgROM: len=%d, [0]=0x%02x", len(c.prgROM), c.prgROM[0])
	}
	if len(c.chrROM) != chrROMSizeUnit || c.chrROM[0] != 0x22 {
		t.Errorf("chrROM: len=%d, [0]=0x%02x", len(c.chrROM), c.chrROM[0])
	}
}

func TestNewCartridgeTrainer(t *testing.T) {
	prg := make([]byte, prgROMSizeUnit)
	prg[0] = 0x33
	rom := buildROM(nil, nil, 0, 0x04)
	rom[4] = 1
	rom = append(rom, make([]byte, trainerSizeBytes)...)
	rom = append(rom, prg...)
	c, err := NewCartridge(rom)
	if err != nil {
		t.Fatalf("NewCartridge: %v", err)
	}
	if c.prgROM[0] != 0x33 {
		t.Errorf("prgROM[0]: got=0x%02x, want=0x33", c.prgROM[0])
	}
	if len(c.chrROM) != 0 {
		t.Errorf("chrROM: got %d bytes, want CHR RAM", len(c.chrROM))
	}
	if c.Mirroring() != MirrorHorizontal {
		t.Errorf("Mirroring(): got=%s, want=horizontal", c.Mirroring())
	}
}

func TestNewCartridgeCopiesData(t *testing.T) {
	prg := make([]byte, prgROMSizeUnit)
	prg[0] = 0x11
	chr := make([]byte, chrROMSizeUnit)
	chr[0] = 0x22
	rom := buildROM(prg, chr, 0, 0)
	c, err := NewCartridge(rom)
	if err != nil {
		t.Fatalf("NewCartridge: %v", err)
	}
	for i := range rom {
		rom[i] = 0xFF
	}
	if got := c.prgROM[0]; got != 0x11 {
		t.Errorf("prgROM[0]: got=0x%02x, want=0x11", got)
	}
	if got := c.chrROM[0]; got != 0x22 {
		t.Errorf("chrROM[0]: got=0x%02x, want=0x22", got)
	}
}
