package nes

type PPUBus struct {
	vram   *RAM
	mapper Mapper
	// PPU has an internal RAM for palette data.
	palette [32]byte
}

// NewPPUBus creates a new Bus for PPU
func NewPPUBus(vram *RAM, mapper Mapper) *PPUBus {
	return &PPUBus{vram: vram, mapper: mapper}
}

// Which of the two physical 1KB tables backs each of the four logical nametables.
var mirrorLookup = [...][4]uint16{
	MirrorHorizontal:  {0, 0, 1, 1},
	MirrorVertical:    {0, 1, 0, 1},
	MirrorSingleLower: {0, 0, 0, 0},
	MirrorSingleUpper: {1, 1, 1, 1},
}

// mirrorAddress maps $2000-$3EFF to an index of the 2KB VRAM.
func (b *PPUBus) mirrorAddress(address uint16) uint16 {
	address = (address - 0x2000) % 0x1000
	table := address / 0x0400
	return mirrorLookup[b.mapper.Mirroring()][table]*0x0400 + address%0x0400
}

// paletteIndex folds $3F00-$3FFF to 32 entries, $3F10/$3F14/$3F18/$3F1C are
// mirrors of $3F00/$3F04/$3F08/$3F0C.
func paletteIndex(address uint16) uint16 {
	i := address % 32
	if i >= 16 && i%4 == 0 {
		i -= 16
	}
	return i
}

func (b *PPUBus) readPalette(address uint16) byte {
	return b.palette[paletteIndex(address)]
}

func (b *PPUBus) writePalette(address uint16, data byte) {
	b.palette[paletteIndex(address)] = data
}

// read reads data.
// Address        Size	  Description
// -------------------------------------
// $0000-$0FFF	  $1000	  Pattern table 0
// $1000-$1FFF	  $1000	  Pattern table 1
// $2000-$23FF	  $0400	  Nametable 0
// $2400-$27FF	  $0400	  Nametable 1
// $2800-$2BFF	  $0400	  Nametable 2
// $2C00-$2FFF	  $0400	  Nametable 3
// $3000-$3EFF	  $0F00	  Mirrors of $2000-$2EFF
// $3F00-$3F1F	  $0020	  Palette RAM indexes
// $3F20-$3FFF	  $00E0	  Mirrors of $3F00-$3F1F
// Reference: https://www.nesdev.org/wiki/PPU_memory_map
func (b *PPUBus) read(address uint16) byte {
	address %= 0x4000
	switch {
	case address < 0x2000:
		return b.mapper.ReadCHR(address)
	case address < 0x3F00:
		return b.vram.read(b.mirrorAddress(address))
	default:
		return b.readPalette(address)
	}
}

// write writes data.
// Reference: https://www.nesdev.org/wiki/PPU_memory_map
func (b *PPUBus) write(address uint16, data byte) {
	address %= 0x4000
	switch {
	case address < 0x2000:
		b.mapper.WriteCHR(address, data)
	case address < 0x3F00:
		b.vram.write(b.mirrorAddress(address), data)
	default:
		b.writePalette(address, data)
	}
}
