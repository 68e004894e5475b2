package nes

import "github.com/golang/glog"

// Console wires the CPU, the PPU, the cartridge and two controllers together.
// The PPU runs 3 dots per CPU cycle.
type Console struct {
	cpu         *CPU
	ppu         *PPU
	bus         *CPUBus
	wram        *RAM
	vram        *RAM
	mapper      Mapper
	cartridge   *Cartridge
	controllers [2]*Controller
	frames      uint64
}

// NewConsole creates a console from an iNES image and resets it.
func NewConsole(buf []byte) (*Console, error) {
	cartridge, err := NewCartridge(buf)
	if err != nil {
		return nil, err
	}
	mapper, err := NewMapper(cartridge)
	if err != nil {
		return nil, err
	}
	c := &Console{
		wram:        NewRAM(),
		vram:        NewRAM(),
		mapper:      mapper,
		cartridge:   cartridge,
		controllers: [2]*Controller{NewController(), NewController()},
	}
	c.ppu = NewPPU(NewPPUBus(c.vram, mapper))
	c.bus = NewCPUBus(c.wram, c.ppu, mapper, c.controllers)
	c.cpu = NewCPU(c.bus)
	c.Reset()
	return c, nil
}

// Reset does Reset, the PPU catches up with the 7 cycles of the reset sequence.
func (c *Console) Reset() {
	c.cpu.Reset()
	c.ppu.Reset()
	c.frames = 0
	for i := 0; i < interruptCycles*3; i++ {
		c.ppu.Step()
	}
	glog.V(1).Infof("Reset: PC=0x%04x", c.cpu.pc)
}

// Step executes one CPU instruction (or interrupt, or DMA stall) and runs the
// PPU for the same time, returns the CPU cycles.
func (c *Console) Step() int {
	cycles := c.cpu.Step()
	for i := 0; i < cycles*3; i++ {
		c.ppu.Step()
	}
	if c.ppu.takeFrame() {
		c.frames++
	}
	return cycles
}

// StepFrame runs until the PPU completes the next frame.
func (c *Console) StepFrame() {
	frames := c.frames
	for frames == c.frames {
		c.Step()
	}
}

// Frame returns the last completed frame. It is the PPU's live front buffer:
// it becomes the back buffer at the next vblank and is drawn over, so copy it
// before stepping again if it has to outlive the current frame.
func (c *Console) Frame() *Frame {
	return c.ppu.Frame()
}

// FrameCount returns the number of completed frames since reset.
func (c *Console) FrameCount() uint64 {
	return c.frames
}

// SetButtons sets the pressed buttons of player 0 or 1, in the order
// A, B, Select, Start, Up, Down, Left, Right.
func (c *Console) SetButtons(player int, buttons [8]bool) {
	if player < 0 || player >= len(c.controllers) {
		glog.Warningf("SetButtons: no controller for player %d", player)
		return
	}
	c.controllers[player].Set(buttons)
}

// CPU returns the CPU, for tracing.
func (c *Console) CPU() *CPU {
	return c.cpu
}

// PPU returns the PPU, for tracing.
func (c *Console) PPU() *PPU {
	return c.ppu
}
