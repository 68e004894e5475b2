package nes

import "math/bits"

const (
	dotsPerScanline   = 341
	scanlinesPerFrame = 262
	vblankScanline    = 241
	preRenderScanline = 261
)

// sprite is an entry of the secondary OAM, the pattern bytes are already
// fetched and flipped for the scanline.
type sprite struct {
	index     byte // index in the primary OAM, 0 is the "sprite zero"
	x         byte
	attribute byte
	low       byte
	high      byte
}

// PPU stands for Picture Processing Unit, renders 256px x 240px image for a screen.
// PPU is 3x faster than CPU and rendering 1 frame requires 341x262=89342 cycles (Each cycles writes a dot).
//
// This PPU implementation includes PPU regsters as well.
// References:
//   https://www.nesdev.org/wiki/PPU
//   https://www.nesdev.org/wiki/PPU_rendering
//   https://pgate1.at-ninja.jp/NES_on_FPGA/nes_ppu.htm (In Japanese)
type PPU struct {
	bus *PPUBus

	// back is being drawn, front is the last completed frame.
	front *Frame
	back  *Frame
	// frameReady is raised once per frame at the start of vblank.
	frameReady bool
	frames     uint64

	// PPUCTRL $2000
	increment32     bool
	spriteTable     uint16
	backgroundTable uint16
	tallSprites     bool
	nmiEnabled      bool

	// PPUMASK $2001
	grayscale          bool
	showLeftBackground bool
	showLeftSprites    bool
	showBackground     bool
	showSprites        bool

	// PPUSTATUS $2002
	spriteOverflow bool
	spriteZeroHit  bool
	vblank         bool

	// nmiRequested is the NMI output line, CPU polls and clears it.
	nmiRequested bool

	// OAMADDR $2003 and the primary OAM.
	oamAddress byte
	oam        [256]byte

	// Registers for scrolling.
	// Reference:
	//   https://www.nesdev.org/wiki/PPU_registers
	//   https://www.nesdev.org/wiki/PPU_scrolling
	// Current VRAM address (15bit)
	v uint16
	// Temporary VRAM address (15bit), the top left onscreen tile.
	t uint16
	// Fine X scroll (3bit)
	x byte
	// w indicates whether the next write to $2005/$2006 is the second one.
	w bool
	// buffer for PPUDATA $2007
	buffer byte
	// latch holds the last value written to any register, reads of write
	// only registers return it.
	latch byte

	// Background pipeline, latched by the 8 dot fetch cycle and shifted
	// once per dot.
	nameTableByte      byte
	attributeTableByte byte
	lowTileByte        byte
	highTileByte       byte
	patternShiftLow    uint16
	patternShiftHigh   uint16
	attributeShiftLow  uint16
	attributeShiftHigh uint16

	// Sprites for the next scanline.
	sprites     [8]sprite
	spriteCount int

	// cycle, scanline indicates which pixel is processing.
	cycle    int
	scanline int
	oddFrame bool
}

// NewPPU creates a PPU.
func NewPPU(bus *PPUBus) *PPU {
	p := &PPU{
		bus:   bus,
		front: &Frame{},
		back:  &Frame{},
	}
	p.Reset()
	return p
}

// Reset puts the PPU in the power-up state, memories are kept.
func (p *PPU) Reset() {
	p.writePPUCTRL(0)
	p.writePPUMASK(0)
	p.latch = 0
	p.oamAddress = 0
	p.t = 0
	p.x = 0
	p.w = false
	p.buffer = 0
	p.vblank = false
	p.spriteZeroHit = false
	p.spriteOverflow = false
	p.nmiRequested = false
	p.spriteCount = 0
	p.cycle = 0
	p.scanline = 0
	p.oddFrame = false
}

// Scanline returns the current scanline, 0-261.
func (p *PPU) Scanline() int {
	return p.scanline
}

// Cycle returns the current dot of the scanline, 0-340.
func (p *PPU) Cycle() int {
	return p.cycle
}

// Frames returns the number of completed frames.
func (p *PPU) Frames() uint64 {
	return p.frames
}

func (p *PPU) renderingEnabled() bool {
	return p.showBackground || p.showSprites
}

// pollNMI returns whether an NMI was requested and clears the request.
func (p *PPU) pollNMI() bool {
	nmi := p.nmiRequested
	p.nmiRequested = false
	return nmi
}

// takeFrame returns whether a frame was completed since the last call.
func (p *PPU) takeFrame() bool {
	ready := p.frameReady
	p.frameReady = false
	return ready
}

// readRegister reads $2000-$2007.
func (p *PPU) readRegister(address uint16) byte {
	switch address {
	case 0x2002:
		return p.readPPUSTATUS()
	case 0x2004:
		return p.readOAMDATA()
	case 0x2007:
		return p.readPPUDATA()
	}
	return p.latch
}

// writeRegister writes $2000-$2007.
func (p *PPU) writeRegister(address uint16, data byte) {
	p.latch = data
	switch address {
	case 0x2000:
		p.writePPUCTRL(data)
	case 0x2001:
		p.writePPUMASK(data)
	case 0x2003:
		p.writeOAMADDR(data)
	case 0x2004:
		p.writeOAMDATA(data)
	case 0x2005:
		p.writePPUSCROLL(data)
	case 0x2006:
		p.writePPUADDR(data)
	case 0x2007:
		p.writePPUDATA(data)
	}
}

// writePPUCTRL writes PPUCTRL ($2000).
// 7  bit  0
// ---- ----
// VPHB SINN
// |||| ||||
// |||| ||++- Base nametable address
// |||| |+--- VRAM address increment per CPU read/write of PPUDATA (0: add 1; 1: add 32)
// |||| +---- Sprite pattern table address for 8x8 sprites
// |||+------ Background pattern table address
// ||+------- Sprite size (0: 8x8 pixels; 1: 8x16 pixels)
// |+-------- PPU master/slave select
// +--------- Generate an NMI at the start of the vertical blanking interval
func (p *PPU) writePPUCTRL(data byte) {
	p.increment32 = data&0x04 != 0
	p.spriteTable = uint16(data>>3&1) * 0x1000
	p.backgroundTable = uint16(data>>4&1) * 0x1000
	p.tallSprites = data&0x20 != 0
	enabled := data&0x80 != 0
	// Enabling NMI during vblank raises it immediately.
	if enabled && !p.nmiEnabled && p.vblank {
		p.nmiRequested = true
	}
	p.nmiEnabled = enabled
	// t: ...GH.. ........ <- d: ......GH
	p.t = (p.t & 0xF3FF) | uint16(data&0x03)<<10
}

// writePPUMASK writes PPUMASK ($2001).
func (p *PPU) writePPUMASK(data byte) {
	p.grayscale = data&0x01 != 0
	p.showLeftBackground = data&0x02 != 0
	p.showLeftSprites = data&0x04 != 0
	p.showBackground = data&0x08 != 0
	p.showSprites = data&0x10 != 0
}

// readPPUSTATUS reads PPUSTATUS ($2002), clears vblank and the write toggle.
func (p *PPU) readPPUSTATUS() byte {
	data := p.latch & 0x1F
	if p.spriteOverflow {
		data |= 0x20
	}
	if p.spriteZeroHit {
		data |= 0x40
	}
	if p.vblank {
		data |= 0x80
	}
	p.vblank = false
	p.w = false
	return data
}

// writeOAMADDR writes OAMADDR ($2003).
func (p *PPU) writeOAMADDR(data byte) {
	p.oamAddress = data
}

// readOAMDATA reads OAMDATA ($2004), reads do not increment the address.
func (p *PPU) readOAMDATA() byte {
	return p.oam[p.oamAddress]
}

// writeOAMDATA writes OAMDATA ($2004).
func (p *PPU) writeOAMDATA(data byte) {
	p.oam[p.oamAddress] = data
	p.oamAddress++
}

// writeOAMDMA copies a page written through $4014, starting at OAMADDR.
func (p *PPU) writeOAMDMA(data [256]byte) {
	for _, d := range data {
		p.oam[p.oamAddress] = d
		p.oamAddress++
	}
}

// writePPUSCROLL writes PPUSCROLL ($2005).
func (p *PPU) writePPUSCROLL(data byte) {
	if p.w { // Y
		// t: FGH..AB CDE..... <- d: ABCDEFGH
		p.t = (p.t & 0x8C1F) | uint16(data&0x07)<<12 | uint16(data&0xF8)<<2
		p.w = false
	} else { // X
		// t: ....... ...ABCDE <- d: ABCDE...
		// x:              FGH <- d: .....FGH
		p.t = (p.t & 0xFFE0) | uint16(data)>>3
		p.x = data & 0x07
		p.w = true
	}
}

// writePPUADDR writes PPUADDR ($2006).
func (p *PPU) writePPUADDR(data byte) {
	if p.w { // low
		// t: ....... ABCDEFGH <- d: ABCDEFGH
		// v: <...all bits...> <- t: <...all bits...>
		p.t = (p.t & 0xFF00) | uint16(data)
		p.v = p.t
		p.w = false
	} else { // high
		// t: .CDEFGH ........ <- d: ..CDEFGH
		// t: Z...... ........ <- 0
		p.t = (p.t & 0x00FF) | uint16(data&0x3F)<<8
		p.w = true
	}
}

func (p *PPU) incrementAddress() {
	if p.increment32 {
		p.v += 32
	} else {
		p.v++
	}
	p.v &= 0x7FFF
}

// readPPUDATA reads PPUDATA ($2007).
func (p *PPU) readPPUDATA() byte {
	address := p.v & 0x3FFF
	data := p.bus.read(address)
	// Here buffers if the address is not paletteRAM.
	if address < 0x3F00 {
		data, p.buffer = p.buffer, data
	} else {
		// The buffer gets the nametable byte "underneath" the palette.
		p.buffer = p.bus.read(address - 0x1000)
	}
	p.incrementAddress()
	return data
}

// writePPUDATA writes PPUDATA ($2007).
func (p *PPU) writePPUDATA(data byte) {
	p.bus.write(p.v&0x3FFF, data)
	p.incrementAddress()
}

// incrementX increments coarse X, wrapping into the horizontal nametable.
// https://www.nesdev.org/wiki/PPU_scrolling#Coarse_X_increment
func (p *PPU) incrementX() {
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

// incrementY increments fine Y, overflowing into coarse Y and the vertical nametable.
// https://www.nesdev.org/wiki/PPU_scrolling#Y_increment
func (p *PPU) incrementY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	y := (p.v & 0x03E0) >> 5
	switch y {
	case 29:
		y = 0
		p.v ^= 0x0800
	case 31:
		y = 0
	default:
		y++
	}
	p.v = (p.v &^ 0x03E0) | y<<5
}

// copyX copies the horizontal bits of t to v.
// v: ....A.. ...BCDEF <- t: ....A.. ...BCDEF
func (p *PPU) copyX() {
	p.v = (p.v & 0xFBE0) | (p.t & 0x041F)
}

// copyY copies the vertical bits of t to v.
// v: GHIA.BC DEF..... <- t: GHIA.BC DEF.....
func (p *PPU) copyY() {
	p.v = (p.v & 0x841F) | (p.t & 0x7BE0)
}

func (p *PPU) fetchNameTableByte() {
	p.nameTableByte = p.bus.read(0x2000 | p.v&0x0FFF)
}

// fetchAttributeTableByte fetches the 2bit palette number of the current tile.
func (p *PPU) fetchAttributeTableByte() {
	address := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
	data := p.bus.read(address)
	if p.v&0x0040 != 0 { // coarse Y bit 1
		data >>= 4
	}
	if p.v&0x0002 != 0 { // coarse X bit 1
		data >>= 2
	}
	p.attributeTableByte = data & 0x03
}

func (p *PPU) fetchTileByte(plane uint16) byte {
	fineY := (p.v >> 12) & 0x07
	return p.bus.read(p.backgroundTable + uint16(p.nameTableByte)*16 + fineY + plane)
}

// loadShifters moves the latched tile into the low byte of the shift registers.
func (p *PPU) loadShifters() {
	p.patternShiftLow = (p.patternShiftLow & 0xFF00) | uint16(p.lowTileByte)
	p.patternShiftHigh = (p.patternShiftHigh & 0xFF00) | uint16(p.highTileByte)
	p.attributeShiftLow &= 0xFF00
	p.attributeShiftHigh &= 0xFF00
	if p.attributeTableByte&0x01 != 0 {
		p.attributeShiftLow |= 0x00FF
	}
	if p.attributeTableByte&0x02 != 0 {
		p.attributeShiftHigh |= 0x00FF
	}
}

func (p *PPU) shift() {
	p.patternShiftLow <<= 1
	p.patternShiftHigh <<= 1
	p.attributeShiftLow <<= 1
	p.attributeShiftHigh <<= 1
}

// fetch runs the background pipeline for the current dot of a visible or
// the pre-render scanline. Each 8 dots fetch a tile:
//   dot 1: nametable byte, 3: attribute byte, 5: low pattern byte, 7: high pattern byte.
func (p *PPU) fetch() {
	dot := p.cycle
	if (2 <= dot && dot <= 257) || (321 <= dot && dot <= 337) {
		p.shift()
	}
	if (1 <= dot && dot <= 256) || (321 <= dot && dot <= 336) {
		switch (dot - 1) % 8 {
		case 0:
			p.loadShifters()
			p.fetchNameTableByte()
		case 2:
			p.fetchAttributeTableByte()
		case 4:
			p.lowTileByte = p.fetchTileByte(0)
		case 6:
			p.highTileByte = p.fetchTileByte(8)
		case 7:
			p.incrementX()
		}
	}
	switch {
	case dot == 256:
		p.incrementY()
	case dot == 257:
		p.loadShifters()
		p.copyX()
	case dot == 337:
		p.loadShifters()
	case dot == 338 || dot == 340:
		p.fetchNameTableByte()
	}
	if p.scanline == preRenderScanline && 280 <= dot && dot <= 304 {
		p.copyY()
	}
}

// evaluateSprites selects up to 8 sprites on the current scanline, they are
// drawn on the next one since OAM Y is the top of the sprite minus one.
// https://www.nesdev.org/wiki/PPU_sprite_evaluation
func (p *PPU) evaluateSprites() {
	height := 8
	if p.tallSprites {
		height = 16
	}
	count := 0
	for i := 0; i < 64; i++ {
		row := p.scanline - int(p.oam[i*4])
		if row < 0 || row >= height {
			continue
		}
		if count == len(p.sprites) {
			p.spriteOverflow = true
			break
		}
		attribute := p.oam[i*4+2]
		low, high := p.fetchSpritePattern(p.oam[i*4+1], attribute, row, height)
		p.sprites[count] = sprite{
			index:     byte(i),
			x:         p.oam[i*4+3],
			attribute: attribute,
			low:       low,
			high:      high,
		}
		count++
	}
	p.spriteCount = count
}

// fetchSpritePattern returns the pattern bytes of a sprite row, flipped
// according to the attribute.
// 76543210
// ||||||||
// ||||||++- Palette (4 to 7) of sprite
// |||+++--- Unimplemented (read 0)
// ||+------ Priority (0: in front of background; 1: behind background)
// |+------- Flip sprite horizontally
// +-------- Flip sprite vertically
func (p *PPU) fetchSpritePattern(tile, attribute byte, row, height int) (byte, byte) {
	if attribute&0x80 != 0 {
		row = height - 1 - row
	}
	var address uint16
	if height == 8 {
		address = p.spriteTable + uint16(tile)*16 + uint16(row)
	} else {
		// 8x16 sprites take the pattern table from bit 0 of the tile number.
		table := uint16(tile&1) * 0x1000
		tile &^= 1
		if row > 7 {
			tile++
			row -= 8
		}
		address = table + uint16(tile)*16 + uint16(row)
	}
	low := p.bus.read(address)
	high := p.bus.read(address + 8)
	if attribute&0x40 != 0 {
		low = bits.Reverse8(low)
		high = bits.Reverse8(high)
	}
	return low, high
}

// backgroundPixel returns palette<<2 | pixel of the background at the current dot.
func (p *PPU) backgroundPixel(x int) byte {
	if !p.showBackground || (x < 8 && !p.showLeftBackground) {
		return 0
	}
	mux := uint16(0x8000) >> p.x
	var pixel byte
	if p.patternShiftLow&mux != 0 {
		pixel |= 1
	}
	if p.patternShiftHigh&mux != 0 {
		pixel |= 2
	}
	if pixel == 0 {
		return 0
	}
	var palette byte
	if p.attributeShiftLow&mux != 0 {
		palette |= 1
	}
	if p.attributeShiftHigh&mux != 0 {
		palette |= 2
	}
	return palette<<2 | pixel
}

// spritePixel returns the secondary OAM slot and palette<<2 | pixel of the
// first opaque sprite at x.
func (p *PPU) spritePixel(x int) (int, byte) {
	if !p.showSprites || (x < 8 && !p.showLeftSprites) {
		return 0, 0
	}
	for i := 0; i < p.spriteCount; i++ {
		s := &p.sprites[i]
		offset := x - int(s.x)
		if offset < 0 || offset > 7 {
			continue
		}
		shift := 7 - offset
		pixel := (s.low>>shift)&1 | ((s.high>>shift)&1)<<1
		if pixel == 0 {
			continue
		}
		return i, (s.attribute&0x03)<<2 | pixel
	}
	return 0, 0
}

// renderPixel composites background and sprites for the current dot.
// https://www.nesdev.org/wiki/PPU_rendering#Preconditions
func (p *PPU) renderPixel() {
	x := p.cycle - 1
	y := p.scanline
	bg := p.backgroundPixel(x)
	i, sp := p.spritePixel(x)
	var index byte
	switch {
	case bg == 0 && sp == 0:
		index = 0
	case bg == 0:
		index = 0x10 | sp
	case sp == 0:
		index = bg
	default:
		if p.sprites[i].index == 0 && x != 255 {
			p.spriteZeroHit = true
		}
		if p.sprites[i].attribute&0x20 == 0 {
			index = 0x10 | sp
		} else {
			index = bg
		}
	}
	c := p.bus.readPalette(uint16(index)) & 0x3F
	if p.grayscale {
		c &= 0x30
	}
	p.back.set(x, y, c)
}

// tick advances the dot counter. The pre-render scanline is one dot shorter
// on odd frames while rendering.
func (p *PPU) tick() {
	p.cycle++
	if p.scanline == preRenderScanline && p.cycle == dotsPerScanline-1 && p.oddFrame && p.renderingEnabled() {
		p.cycle = dotsPerScanline
	}
	if p.cycle == dotsPerScanline {
		p.cycle = 0
		p.scanline++
		if p.scanline == scanlinesPerFrame {
			p.scanline = 0
			p.oddFrame = !p.oddFrame
		}
	}
}

// Step emulates a cycle of PPU and each cycles renders a pixel for NTSC,
// so PPU renders a pixel (left to right, top to bottom) respectively.
// PPU renders 256x240 pixels but it actually processes 341x262 area.
// Reference:
//   https://www.nesdev.org/wiki/PPU_rendering
//   https://www.nesdev.org/wiki/File:Ntsc_timing.png
func (p *PPU) Step() {
	visibleLine := p.scanline < Height
	preLine := p.scanline == preRenderScanline
	if visibleLine || preLine {
		if preLine && p.cycle == 1 {
			p.vblank = false
			p.spriteZeroHit = false
			p.spriteOverflow = false
		}
		if p.renderingEnabled() {
			p.fetch()
		}
		if visibleLine && 1 <= p.cycle && p.cycle <= Width {
			p.renderPixel()
		}
		if p.renderingEnabled() && p.cycle == 257 {
			if visibleLine {
				p.evaluateSprites()
			} else {
				p.spriteCount = 0
			}
		}
	}
	if p.scanline == vblankScanline && p.cycle == 1 {
		p.vblank = true
		p.front, p.back = p.back, p.front
		p.frameReady = true
		p.frames++
		if p.nmiEnabled {
			p.nmiRequested = true
		}
	}
	p.tick()
}

// Frame returns the front buffer. The buffers swap at the start of vblank, so
// the returned frame is rendered over during the next frame.
func (p *PPU) Frame() *Frame {
	return p.front
}
