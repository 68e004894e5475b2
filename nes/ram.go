package nes

const ramSize = 2048

// RAM is 2KB of memory, the console has two of them: WRAM for CPU and VRAM
// for the PPU nametables.
type RAM struct {
	data [ramSize]byte
}

// NewRAM creates a RAM for both PPU and CPU.
func NewRAM() *RAM {
	return &RAM{}
}

// read reads data, the address is mirrored every 2KB.
func (r *RAM) read(address uint16) byte {
	return r.data[address%ramSize]
}

// write writes data, the address is mirrored every 2KB.
func (r *RAM) write(address uint16, x byte) {
	r.data[address%ramSize] = x
}
