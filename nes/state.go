package nes

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/golang/glog"
)

// ErrStateMismatch is returned when a state was saved by a console with a
// different cartridge board.
var ErrStateMismatch = errors.New("state does not match the cartridge")

type cpuState struct {
	A, X, Y, S, P byte
	PC            uint16
	Cycles        uint64
	Stall         int
	IRQPending    bool
}

type ppuState struct {
	Ctrl, Mask           byte
	SpriteOverflow       bool
	SpriteZeroHit        bool
	VBlank               bool
	NMIRequested         bool
	OAMAddress           byte
	OAM                  [256]byte
	V, T                 uint16
	X                    byte
	W                    bool
	Buffer, Latch        byte
	NameTable, Attribute byte
	LowTile, HighTile    byte
	PatternLow           uint16
	PatternHigh          uint16
	AttributeLow         uint16
	AttributeHigh        uint16
	Sprites              [8][5]byte
	SpriteCount          int
	Cycle, Scanline      int
	OddFrame             bool
	Frames               uint64
	Palette              [32]byte
	VRAM                 [ramSize]byte
	Front, Back          Frame
}

type consoleState struct {
	CPU         cpuState
	WRAM        [ramSize]byte
	PPU         ppuState
	Mapper      mapperState
	Controllers [2]controllerState
	Frames      uint64
}

type controllerState struct {
	Buttons, Latched [8]bool
	Index, Strobe    byte
}

func (c *CPU) saveState() cpuState {
	return cpuState{
		A: c.a, X: c.x, Y: c.y, S: c.s, P: c.p.encode(),
		PC:         c.pc,
		Cycles:     c.cycles,
		Stall:      c.stall,
		IRQPending: c.irqPending,
	}
}

func (c *CPU) loadState(s cpuState) {
	c.a, c.x, c.y, c.s = s.A, s.X, s.Y, s.S
	c.p.decodeFrom(s.P)
	c.pc = s.PC
	c.cycles = s.Cycles
	c.stall = s.Stall
	c.irqPending = s.IRQPending
}

// ctrl re-encodes PPUCTRL, the nametable bits live in t.
func (p *PPU) ctrl() byte {
	var d byte
	if p.increment32 {
		d |= 0x04
	}
	if p.spriteTable != 0 {
		d |= 0x08
	}
	if p.backgroundTable != 0 {
		d |= 0x10
	}
	if p.tallSprites {
		d |= 0x20
	}
	if p.nmiEnabled {
		d |= 0x80
	}
	return d
}

func (p *PPU) mask() byte {
	var d byte
	for i, b := range []bool{p.grayscale, p.showLeftBackground, p.showLeftSprites, p.showBackground, p.showSprites} {
		if b {
			d |= 1 << i
		}
	}
	return d
}

func (p *PPU) saveState() ppuState {
	s := ppuState{
		Ctrl:           p.ctrl(),
		Mask:           p.mask(),
		SpriteOverflow: p.spriteOverflow,
		SpriteZeroHit:  p.spriteZeroHit,
		VBlank:         p.vblank,
		NMIRequested:   p.nmiRequested,
		OAMAddress:     p.oamAddress,
		OAM:            p.oam,
		V:              p.v,
		T:              p.t,
		X:              p.x,
		W:              p.w,
		Buffer:         p.buffer,
		Latch:          p.latch,
		NameTable:      p.nameTableByte,
		Attribute:      p.attributeTableByte,
		LowTile:        p.lowTileByte,
		HighTile:       p.highTileByte,
		PatternLow:     p.patternShiftLow,
		PatternHigh:    p.patternShiftHigh,
		AttributeLow:   p.attributeShiftLow,
		AttributeHigh:  p.attributeShiftHigh,
		SpriteCount:    p.spriteCount,
		Cycle:          p.cycle,
		Scanline:       p.scanline,
		OddFrame:       p.oddFrame,
		Frames:         p.frames,
		Palette:        p.bus.palette,
		VRAM:           p.bus.vram.data,
		Front:          *p.front,
		Back:           *p.back,
	}
	for i, sp := range p.sprites {
		s.Sprites[i] = [5]byte{sp.index, sp.x, sp.attribute, sp.low, sp.high}
	}
	return s
}

func (p *PPU) loadState(s ppuState) {
	// writePPUCTRL also touches t and may raise an NMI, both are restored below.
	p.writePPUCTRL(s.Ctrl)
	p.writePPUMASK(s.Mask)
	p.spriteOverflow = s.SpriteOverflow
	p.spriteZeroHit = s.SpriteZeroHit
	p.vblank = s.VBlank
	p.nmiRequested = s.NMIRequested
	p.oamAddress = s.OAMAddress
	p.oam = s.OAM
	p.v, p.t, p.x, p.w = s.V, s.T, s.X, s.W
	p.buffer, p.latch = s.Buffer, s.Latch
	p.nameTableByte, p.attributeTableByte = s.NameTable, s.Attribute
	p.lowTileByte, p.highTileByte = s.LowTile, s.HighTile
	p.patternShiftLow, p.patternShiftHigh = s.PatternLow, s.PatternHigh
	p.attributeShiftLow, p.attributeShiftHigh = s.AttributeLow, s.AttributeHigh
	for i, sp := range s.Sprites {
		p.sprites[i] = sprite{index: sp[0], x: sp[1], attribute: sp[2], low: sp[3], high: sp[4]}
	}
	p.spriteCount = s.SpriteCount
	p.cycle, p.scanline, p.oddFrame = s.Cycle, s.Scanline, s.OddFrame
	p.frames = s.Frames
	p.frameReady = false
	p.bus.palette = s.Palette
	p.bus.vram.data = s.VRAM
	*p.front = s.Front
	*p.back = s.Back
}

// SaveState writes the whole machine state except ROM data.
func (c *Console) SaveState(w io.Writer) error {
	m, ok := c.mapper.(stateful)
	if !ok {
		return fmt.Errorf("mapper %d does not support save states", c.cartridge.MapperID())
	}
	s := consoleState{
		CPU:    c.cpu.saveState(),
		WRAM:   c.wram.data,
		PPU:    c.ppu.saveState(),
		Mapper: m.saveState(),
		Frames: c.frames,
	}
	for i, ctrl := range c.controllers {
		s.Controllers[i] = controllerState{ctrl.buttons, ctrl.latched, ctrl.index, ctrl.strobe}
	}
	if err := gob.NewEncoder(w).Encode(&s); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	glog.V(1).Infof("Saved state at frame %d", c.frames)
	return nil
}

// LoadState restores a state written by SaveState. The console must be built
// from the same cartridge.
func (c *Console) LoadState(r io.Reader) error {
	var s consoleState
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}
	m, ok := c.mapper.(stateful)
	if !ok {
		return fmt.Errorf("mapper %d does not support save states", c.cartridge.MapperID())
	}
	if s.Mapper.ID != c.cartridge.MapperID() {
		return fmt.Errorf("%w: saved mapper %d, cartridge mapper %d", ErrStateMismatch, s.Mapper.ID, c.cartridge.MapperID())
	}
	if err := m.loadState(s.Mapper); err != nil {
		return fmt.Errorf("%w: %v", ErrStateMismatch, err)
	}
	c.cpu.loadState(s.CPU)
	c.wram.data = s.WRAM
	c.ppu.loadState(s.PPU)
	for i, ctrl := range c.controllers {
		ctrl.buttons = s.Controllers[i].Buttons
		ctrl.latched = s.Controllers[i].Latched
		ctrl.index = s.Controllers[i].Index
		ctrl.strobe = s.Controllers[i].Strobe
	}
	c.frames = s.Frames
	glog.V(1).Infof("Loaded state at frame %d", c.frames)
	return nil
}
