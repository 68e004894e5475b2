package nes

import (
	"bytes"
	"errors"
	"testing"
)

// counterProgram increments $10 forever and turns rendering on.
var counterProgram = []byte{
	// LDA #$1E
	0xA9, 0x1E,
	// STA $2001
	0x8D, 0x01, 0x20,
	// INC $10
	0xE6, 0x10,
	// JMP $8005
	0x4C, 0x05, 0x80,
}

func TestSaveLoadState(t *testing.T) {
	c := newTestConsole(t, counterProgram)
	c.SetButtons(0, [8]bool{true})
	for i := 0; i < 10000; i++ {
		c.Step()
	}
	var b bytes.Buffer
	if err := c.SaveState(&b); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	saved := b.Bytes()
	for i := 0; i < 40000; i++ {
		c.Step()
	}
	wantTrace := c.cpu.Trace()
	wantFrame := *c.Frame()
	wantRAM := c.wram.data
	wantFrames := c.FrameCount()

	if err := c.LoadState(bytes.NewReader(saved)); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	for i := 0; i < 40000; i++ {
		c.Step()
	}
	if got := c.cpu.Trace(); got != wantTrace {
		t.Errorf("Trace(): got=%q, want=%q", got, wantTrace)
	}
	if c.wram.data != wantRAM {
		t.Errorf("WRAM differs after replay")
	}
	if *c.Frame() != wantFrame {
		t.Errorf("frame differs after replay")
	}
	if c.FrameCount() != wantFrames {
		t.Errorf("FrameCount(): got=%d, want=%d", c.FrameCount(), wantFrames)
	}
}

func TestLoadStateMismatch(t *testing.T) {
	nrom := newTestConsole(t, counterProgram)
	var b bytes.Buffer
	if err := nrom.SaveState(&b); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	prg := append(newTestPRG(counterProgram), newTestPRG(counterProgram)...)
	mmc1, err := NewConsole(buildROM(prg, nil, 1, 0))
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}
	if err := mmc1.LoadState(&b); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("LoadState: got=%v, want ErrStateMismatch", err)
	}
	if err := mmc1.LoadState(bytes.NewReader([]byte("garbage"))); err == nil {
		t.Fatalf("LoadState(garbage): got=nil, want an error")
	}
}

func TestMapper1State(t *testing.T) {
	prg := banked(8, prgROMSizeUnit)
	c, err := NewCartridge(buildROM(prg, nil, 1, 0))
	if err != nil {
		t.Fatalf("NewCartridge: %v", err)
	}
	m := newMapper1(c)
	writeMMC1(m, 0xE000, 3)
	m.WritePRG(0x6000, 0x12)
	m.WriteCHR(0x0010, 0x34)
	s := m.saveState()

	restored := newMapper1(c)
	if err := restored.loadState(s); err != nil {
		t.Fatalf("loadState: %v", err)
	}
	if got := restored.ReadPRG(0x8000); got != 3 {
		t.Errorf("ReadPRG(0x8000): got=%d, want=3", got)
	}
	if got := restored.ReadPRG(0x6000); got != 0x12 {
		t.Errorf("PRG RAM: got=0x%02x, want=0x12", got)
	}
	if got := restored.ReadCHR(0x0010); got != 0x34 {
		t.Errorf("CHR RAM: got=0x%02x, want=0x34", got)
	}
	if err := restored.loadState(mapperState{ID: 0}); err == nil {
		t.Errorf("loadState(NROM state): got=nil, want an error")
	}
}
