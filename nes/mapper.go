package nes

import (
	"fmt"

	"github.com/golang/glog"
)

const prgRAMSize = 0x2000

// Mapper is the bank controller of a cartridge.
// CPU side addresses are $4020-$FFFF and PPU side addresses are $0000-$1FFF.
type Mapper interface {
	ReadPRG(address uint16) byte
	WritePRG(address uint16, data byte)
	ReadCHR(address uint16) byte
	WriteCHR(address uint16, data byte)
	Mirroring() MirrorMode
}

// NewMapper selects a mapper implementation by the INES mapper number.
func NewMapper(c *Cartridge) (Mapper, error) {
	switch c.mapper {
	case 0:
		return newMapper0(c), nil
	case 1:
		return newMapper1(c), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedMapper, c.mapper)
}

// mapperState is the serializable part of a mapper.
type mapperState struct {
	ID        byte
	Registers []byte
	PRGRAM    []byte
	CHRRAM    []byte
}

// stateful is implemented by every mapper in this package, used by save states.
type stateful interface {
	saveState() mapperState
	loadState(mapperState) error
}

// newCHR returns the pattern table memory of the cartridge. Boards without
// CHR ROM have 8KB of CHR RAM which is owned by the mapper.
func newCHR(c *Cartridge) ([]byte, bool) {
	if len(c.chrROM) == 0 {
		return make([]byte, chrROMSizeUnit), true
	}
	return c.chrROM, false
}

func ignoredWrite(name string, address uint16, data byte) {
	if glog.V(3) {
		glog.Infof("%s: ignored write: address=0x%04x, data=0x%02x", name, address, data)
	}
}
