package nes

import "testing"

func newTestPPU(t *testing.T, flags6 byte) *PPU {
	t.Helper()
	c, err := NewConsole(buildROM(newTestPRG(nil), nil, 0, flags6))
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}
	p := c.ppu
	p.Reset()
	return p
}

// runUntil steps the PPU until the next dot to process is (scanline, cycle).
func runUntil(p *PPU, scanline, cycle int) {
	for p.scanline != scanline || p.cycle != cycle {
		p.Step()
	}
}

func TestVBlank(t *testing.T) {
	p := newTestPPU(t, 0)
	p.writeRegister(0x2000, 0x80)
	runUntil(p, vblankScanline, 1)
	if p.vblank || p.pollNMI() {
		t.Fatalf("vblank before (241, 1)")
	}
	p.Step()
	if !p.vblank {
		t.Fatalf("vblank: got=false at (241, 1)")
	}
	if !p.pollNMI() {
		t.Fatalf("NMI was not requested at (241, 1)")
	}
	if p.pollNMI() {
		t.Fatalf("NMI request was not cleared by polling")
	}
	if !p.takeFrame() || p.Frames() != 1 {
		t.Fatalf("frame: got frames=%d, want=1 and ready", p.Frames())
	}
	if got := p.readRegister(0x2002); got&0x80 == 0 {
		t.Errorf("PPUSTATUS: got=0x%02x, want vblank", got)
	}
	if got := p.readRegister(0x2002); got&0x80 != 0 {
		t.Errorf("PPUSTATUS second read: got=0x%02x, want vblank cleared", got)
	}
}

func TestVBlankClearedOnPreRender(t *testing.T) {
	p := newTestPPU(t, 0)
	runUntil(p, vblankScanline, 2)
	p.spriteZeroHit = true
	p.spriteOverflow = true
	runUntil(p, preRenderScanline, 2)
	if p.vblank || p.spriteZeroHit || p.spriteOverflow {
		t.Fatalf("flags at pre-render: vblank=%t, sprite0=%t, overflow=%t", p.vblank, p.spriteZeroHit, p.spriteOverflow)
	}
}

func TestNMIOnEnableDuringVBlank(t *testing.T) {
	p := newTestPPU(t, 0)
	runUntil(p, vblankScanline, 10)
	if p.pollNMI() {
		t.Fatalf("NMI raised while disabled")
	}
	p.writeRegister(0x2000, 0x80)
	if !p.pollNMI() {
		t.Fatalf("NMI was not raised by enabling it during vblank")
	}
	// Writing again without a 0 to 1 transition does not raise it.
	p.writeRegister(0x2000, 0x80)
	if p.pollNMI() {
		t.Fatalf("NMI raised twice")
	}
}

func TestFrameLength(t *testing.T) {
	tests := []struct {
		name      string
		mask      byte
		wantTotal int // dots of two consecutive frames
	}{
		{"rendering disabled", 0x00, 2 * dotsPerScanline * scanlinesPerFrame},
		{"odd frame is one dot shorter", 0x08, 2*dotsPerScanline*scanlinesPerFrame - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPPU(t, 0)
			p.writeRegister(0x2001, tt.mask)
			runUntil(p, vblankScanline, 2)
			p.takeFrame()
			dots := 0
			for frames := 0; frames < 2; {
				p.Step()
				dots++
				if p.takeFrame() {
					frames++
				}
			}
			if dots != tt.wantTotal {
				t.Fatalf("dots: got=%d, want=%d", dots, tt.wantTotal)
			}
		})
	}
}

func TestPPUADDR(t *testing.T) {
	p := newTestPPU(t, 0)
	p.writeRegister(0x2006, 0x21)
	if !p.w {
		t.Fatalf("w: got=false after the first write")
	}
	p.writeRegister(0x2006, 0x08)
	if p.v != 0x2108 || p.w {
		t.Fatalf("v=0x%04x w=%t, want v=0x2108 w=false", p.v, p.w)
	}
	// Reading PPUSTATUS resets the toggle.
	p.writeRegister(0x2006, 0x3F)
	p.readRegister(0x2002)
	p.writeRegister(0x2006, 0x23)
	p.writeRegister(0x2006, 0x00)
	if p.v != 0x2300 {
		t.Fatalf("v: got=0x%04x, want=0x2300", p.v)
	}
}

func TestPPUSCROLL(t *testing.T) {
	p := newTestPPU(t, 0)
	p.writeRegister(0x2000, 0x01)
	p.writeRegister(0x2005, 0x7D) // coarse X 15, fine X 5
	p.writeRegister(0x2005, 0x5E) // coarse Y 11, fine Y 6
	if p.t != 0x656F {
		t.Errorf("t: got=0x%04x, want=0x656f", p.t)
	}
	if p.x != 5 {
		t.Errorf("x: got=%d, want=5", p.x)
	}
}

func TestPPUDATA(t *testing.T) {
	p := newTestPPU(t, 0)
	p.writeRegister(0x2006, 0x20)
	p.writeRegister(0x2006, 0x00)
	p.writeRegister(0x2007, 0xAB)
	p.writeRegister(0x2007, 0xCD)
	p.writeRegister(0x2006, 0x20)
	p.writeRegister(0x2006, 0x00)
	want := []byte{0x00, 0xAB, 0xCD}
	for i, w := range want {
		if got := p.readRegister(0x2007); got != w {
			t.Errorf("read %d: got=0x%02x, want=0x%02x", i, got, w)
		}
	}
	// Increment by 32.
	p.writeRegister(0x2000, 0x04)
	p.writeRegister(0x2006, 0x20)
	p.writeRegister(0x2006, 0x00)
	p.readRegister(0x2007)
	if p.v != 0x2020 {
		t.Errorf("v: got=0x%04x, want=0x2020", p.v)
	}
}

func TestPalette(t *testing.T) {
	p := newTestPPU(t, 0)
	p.writeRegister(0x2006, 0x3F)
	p.writeRegister(0x2006, 0x10)
	p.writeRegister(0x2007, 0x21)
	p.writeRegister(0x2006, 0x3F)
	p.writeRegister(0x2006, 0x00)
	// Palette reads are not buffered.
	if got := p.readRegister(0x2007); got != 0x21 {
		t.Errorf("$3F00: got=0x%02x, want=0x21", got)
	}
	if got := p.bus.read(0x3F20); got != 0x21 {
		t.Errorf("$3F20: got=0x%02x, want=0x21", got)
	}
	p.bus.write(0x3F05, 0x15)
	if got := p.bus.read(0x3F15); got == 0x15 {
		t.Errorf("$3F15 mirrors $3F05, want a separate entry")
	}
}

func TestNameTableMirroring(t *testing.T) {
	tests := []struct {
		name   string
		flags6 byte
		same   uint16
		differ uint16
	}{
		{"horizontal", 0, 0x2400, 0x2800},
		{"vertical", 1, 0x2800, 0x2400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPPU(t, tt.flags6)
			p.bus.write(0x2001, 0x5A)
			if got := p.bus.read(tt.same + 1); got != 0x5A {
				t.Errorf("read(0x%04x): got=0x%02x, want=0x5a", tt.same+1, got)
			}
			if got := p.bus.read(tt.differ + 1); got != 0 {
				t.Errorf("read(0x%04x): got=0x%02x, want=0", tt.differ+1, got)
			}
			if got := p.bus.read(0x3001); got != 0x5A {
				t.Errorf("read(0x3001): got=0x%02x, want=0x5a", got)
			}
		})
	}
}

func TestSpriteOverflow(t *testing.T) {
	tests := []struct {
		sprites int
		want    bool
	}{
		{8, false},
		{9, true},
	}
	for _, tt := range tests {
		p := newTestPPU(t, 0)
		for i := 0; i < 64; i++ {
			p.oam[i*4] = 0xFF
		}
		for i := 0; i < tt.sprites; i++ {
			p.oam[i*4] = 10
			p.oam[i*4+3] = byte(i * 8)
		}
		p.scanline = 12
		p.evaluateSprites()
		if p.spriteOverflow != tt.want {
			t.Errorf("%d sprites: overflow got=%t, want=%t", tt.sprites, p.spriteOverflow, tt.want)
		}
		if p.spriteCount != 8 {
			t.Errorf("%d sprites: count got=%d, want=8", tt.sprites, p.spriteCount)
		}
	}
}

// setupScene makes tile 1 a solid color 1, fills the first nametable
// with tile.
func setupScene(p *PPU, tile byte) {
	for i := uint16(0); i < 8; i++ {
		p.bus.write(0x10+i, 0xFF)
	}
	for i := uint16(0); i < 960; i++ {
		p.bus.write(0x2000+i, tile)
	}
	p.bus.write(0x3F00, 0x0F)
	p.bus.write(0x3F01, 0x30)
	p.bus.write(0x3F11, 0x16)
	for i := 0; i < 64; i++ {
		p.oam[i*4] = 0xFF
	}
	// sprite 0 at (50, 31)
	p.oam[0], p.oam[1], p.oam[2], p.oam[3] = 30, 1, 0, 50
	p.writeRegister(0x2001, 0x1E)
}

func TestSpriteZeroHit(t *testing.T) {
	tests := []struct {
		name  string
		tile  byte
		setup func(p *PPU)
		want  bool
	}{
		{"opaque background", 1, nil, true},
		{"transparent background", 0, nil, false},
		{"x=255", 1, func(p *PPU) { p.oam[3] = 255 }, false},
		{"left 8 pixels clipped", 1, func(p *PPU) {
			p.oam[3] = 0
			p.writeRegister(0x2001, 0x18)
		}, false},
		{"left 8 pixels shown", 1, func(p *PPU) { p.oam[3] = 0 }, true},
		{"sprites disabled", 1, func(p *PPU) { p.writeRegister(0x2001, 0x0A) }, false},
		{"other sprite", 1, func(p *PPU) {
			p.oam[0] = 0xFF
			p.oam[4], p.oam[5], p.oam[6], p.oam[7] = 30, 1, 0, 50
		}, false},
		{"behind background", 1, func(p *PPU) { p.oam[2] = 0x20 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPPU(t, 0)
			setupScene(p, tt.tile)
			if tt.setup != nil {
				tt.setup(p)
			}
			runUntil(p, 31, 0)
			if p.spriteZeroHit {
				t.Fatalf("sprite zero hit before the sprite line")
			}
			runUntil(p, 40, 0)
			if p.spriteZeroHit != tt.want {
				t.Fatalf("spriteZeroHit: got=%t, want=%t", p.spriteZeroHit, tt.want)
			}
			if got := p.readRegister(0x2002)&0x40 != 0; got != tt.want {
				t.Fatalf("PPUSTATUS bit 6: got=%t, want=%t", got, tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	p := newTestPPU(t, 0)
	setupScene(p, 1)
	for p.Frames() < 2 {
		p.Step()
	}
	f := p.Frame()
	if got := f.At(100, 100); got != 0x30 {
		t.Errorf("background pixel: got=0x%02x, want=0x30", got)
	}
	if got := f.At(50, 31); got != 0x16 {
		t.Errorf("sprite pixel: got=0x%02x, want=0x16", got)
	}
	if got := f.At(50, 30); got != 0x30 {
		t.Errorf("pixel above the sprite: got=0x%02x, want=0x30", got)
	}
	// Grayscale keeps only the column of the palette.
	p.writeRegister(0x2001, 0x1F)
	for p.Frames() < 3 {
		p.Step()
	}
	if got := p.Frame().At(50, 31); got != 0x10 {
		t.Errorf("grayscale sprite pixel: got=0x%02x, want=0x10", got)
	}
}
