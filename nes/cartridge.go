package nes

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
)

const (
	chrROMSizeUnit      int  = 0x2000 // 8KB
	prgROMSizeUnit      int  = 0x4000 // 16KB
	inesHeaderSizeBytes int  = 16     // The valid INES header has 16 bytes
	trainerSizeBytes    int  = 512
	msDOSEOF            byte = 0x1A
)

var (
	// ErrMalformedHeader is returned when the image is not an INES image or
	// its bank counts do not match its length.
	ErrMalformedHeader = errors.New("malformed INES header")
	// ErrUnsupportedMapper is returned for mapper numbers without an implementation.
	ErrUnsupportedMapper = errors.New("unsupported mapper")
)

// MirrorMode is the nametable arrangement of the 2KB VRAM.
// https://www.nesdev.org/wiki/Mirroring#Nametable_Mirroring
type MirrorMode int

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorSingleLower
	MirrorSingleUpper
)

func (m MirrorMode) String() string {
	switch m {
	case MirrorHorizontal:
		return "horizontal"
	case MirrorVertical:
		return "vertical"
	case MirrorSingleLower:
		return "single-lower"
	case MirrorSingleUpper:
		return "single-upper"
	}
	return fmt.Sprintf("MirrorMode(%d)", int(m))
}

// Cartridge is the read only content of an INES image.
// https://www.nesdev.org/wiki/INES
type Cartridge struct {
	prgROM  []byte
	chrROM  []byte // empty when the board has CHR RAM instead
	mapper  byte
	mirror  MirrorMode
	battery bool
	flags6  byte // https://www.nesdev.org/wiki/INES#Flags_6
	flags7  byte // https://www.nesdev.org/wiki/INES#Flags_7
}

// isValid checks whether the buffer starts with the INES magic.
func isValid(data []byte) bool {
	return len(data) >= inesHeaderSizeBytes &&
		data[0] == byte('N') &&
		data[1] == byte('E') &&
		data[2] == byte('S') &&
		data[3] == msDOSEOF
}

// NewCartridge parses an INES image.
// Layout: header (16) | trainer (512, optional) | PRG ROM | CHR ROM
func NewCartridge(data []byte) (*Cartridge, error) {
	if !isValid(data) {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformedHeader)
	}
	prgBanks := int(data[4])
	chrBanks := int(data[5])
	if prgBanks == 0 {
		return nil, fmt.Errorf("%w: no PRG ROM banks", ErrMalformedHeader)
	}
	c := &Cartridge{
		flags6: data[6],
		flags7: data[7],
	}
	c.mapper = c.flags7&0xF0 | c.flags6>>4
	c.battery = c.flags6&0x02 != 0
	if c.flags6&1 == 1 {
		c.mirror = MirrorVertical
	} else {
		c.mirror = MirrorHorizontal
	}
	if c.flags6&0x08 != 0 {
		glog.Warningln("Four-screen VRAM is not supported, using the declared mirroring")
	}
	offset := inesHeaderSizeBytes
	if c.flags6&0x04 != 0 {
		offset += trainerSizeBytes
	}
	want := offset + prgBanks*prgROMSizeUnit + chrBanks*chrROMSizeUnit
	if len(data) < want {
		return nil, fmt.Errorf("%w: %d PRG and %d CHR banks need %d bytes, got %d",
			ErrMalformedHeader, prgBanks, chrBanks, want, len(data))
	}
	// The cartridge owns copies, the caller may reuse data.
	c.prgROM = append([]byte(nil), data[offset:offset+prgBanks*prgROMSizeUnit]...)
	offset += prgBanks * prgROMSizeUnit
	c.chrROM = append([]byte(nil), data[offset:offset+chrBanks*chrROMSizeUnit]...)
	glog.Infof("Loaded cartridge: mapper=%d, PRG=%dKB, CHR=%dKB, mirroring=%s, battery=%t",
		c.mapper, len(c.prgROM)/1024, len(c.chrROM)/1024, c.mirror, c.battery)
	return c, nil
}

// MapperID returns the INES mapper number.
func (c *Cartridge) MapperID() byte {
	return c.mapper
}

// Mirroring returns the mirroring declared by the header.
func (c *Cartridge) Mirroring() MirrorMode {
	return c.mirror
}
