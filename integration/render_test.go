package integration

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jyane/nescore/nes"
)

// program draws tile 1 at the top left corner of the first nametable, counts
// NMIs in $10 and leaves the A button of 1P in the accumulator.
var program = []byte{
	// $8000 SEI
	0x78,
	// $8001 LDX #$FF
	0xA2, 0xFF,
	// $8003 TXS
	0x9A,
	// $8004 BIT $2002
	0x2C, 0x02, 0x20,
	// $8007 BPL $8004
	0x10, 0xFB,
	// $8009 BIT $2002
	0x2C, 0x02, 0x20,
	// $800C BPL $8009
	0x10, 0xFB,
	// $800E LDA #$3F
	0xA9, 0x3F,
	// $8010 STA $2006
	0x8D, 0x06, 0x20,
	// $8013 LDA #$00
	0xA9, 0x00,
	// $8015 STA $2006
	0x8D, 0x06, 0x20,
	// $8018 LDA #$0F
	0xA9, 0x0F,
	// $801A STA $2007
	0x8D, 0x07, 0x20,
	// $801D LDA #$30
	0xA9, 0x30,
	// $801F STA $2007
	0x8D, 0x07, 0x20,
	// $8022 LDA #$20
	0xA9, 0x20,
	// $8024 STA $2006
	0x8D, 0x06, 0x20,
	// $8027 LDA #$00
	0xA9, 0x00,
	// $8029 STA $2006
	0x8D, 0x06, 0x20,
	// $802C LDA #$01
	0xA9, 0x01,
	// $802E STA $2007
	0x8D, 0x07, 0x20,
	// $8031 LDA #$00
	0xA9, 0x00,
	// $8033 STA $2005
	0x8D, 0x05, 0x20,
	// $8036 STA $2005
	0x8D, 0x05, 0x20,
	// $8039 LDA #$80
	0xA9, 0x80,
	// $803B STA $2000
	0x8D, 0x00, 0x20,
	// $803E LDA #$0A
	0xA9, 0x0A,
	// $8040 STA $2001
	0x8D, 0x01, 0x20,
	// $8043 JMP $8043
	0x4C, 0x43, 0x80,
	// $8046 INC $10 (NMI)
	0xE6, 0x10,
	// $8048 LDA #$01
	0xA9, 0x01,
	// $804A STA $4016
	0x8D, 0x16, 0x40,
	// $804D LDA #$00
	0xA9, 0x00,
	// $804F STA $4016
	0x8D, 0x16, 0x40,
	// $8052 LDA $4016
	0xAD, 0x16, 0x40,
	// $8055 RTI
	0x40,
}

func buildROM() []byte {
	prg := make([]byte, 0x4000)
	copy(prg, program)
	// NMI, reset, IRQ
	copy(prg[0x3FFA:], []byte{0x46, 0x80, 0x00, 0x80, 0x46, 0x80})
	chr := make([]byte, 0x2000)
	for i := 0x10; i < 0x18; i++ {
		chr[i] = 0xFF
	}
	rom := []byte{'N', 'E', 'S', 0x1A, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	rom = append(rom, prg...)
	return append(rom, chr...)
}

func run(t *testing.T, frames int) (*nes.Console, []byte) {
	t.Helper()
	console, err := nes.NewConsole(buildROM())
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}
	for i := 0; i < frames; i++ {
		console.StepFrame()
	}
	f := console.Frame()
	return console, append([]byte(nil), f.Pix[:]...)
}

func TestRender(t *testing.T) {
	console, _ := run(t, 6)
	f := console.Frame()
	tests := []struct {
		x, y int
		want byte
	}{
		{0, 0, 0x30},
		{7, 7, 0x30},
		{8, 0, 0x0F},
		{0, 8, 0x0F},
		{128, 120, 0x0F},
	}
	for _, tt := range tests {
		if got := f.At(tt.x, tt.y); got != tt.want {
			t.Errorf("At(%d, %d): got=0x%02x, want=0x%02x", tt.x, tt.y, got, tt.want)
		}
	}
	if got := f.Image().RGBAAt(0, 0); got != nes.Color(0x30) {
		t.Errorf("Image().At(0, 0): got=%v, want=%v", got, nes.Color(0x30))
	}

	// The program idles in a loop, frames keep coming.
	before := console.FrameCount()
	console.StepFrame()
	if console.FrameCount() != before+1 {
		t.Errorf("FrameCount(): got=%d, want=%d", console.FrameCount(), before+1)
	}
}

// inputs holds the buttons of 1P for each frame.
var inputs = [][8]bool{
	{},
	{nes.ButtonA: true},
	{nes.ButtonA: true, nes.ButtonRight: true},
	{},
	{nes.ButtonStart: true},
	{nes.ButtonA: true},
	{},
	{nes.ButtonA: true},
}

// record runs the inputs and returns the frame and the registers after each.
func record(t *testing.T) ([]nes.Frame, []string) {
	t.Helper()
	console, err := nes.NewConsole(buildROM())
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}
	var frames []nes.Frame
	var traces []string
	for _, buttons := range inputs {
		console.SetButtons(0, buttons)
		console.StepFrame()
		frames = append(frames, *console.Frame())
		traces = append(traces, console.CPU().Trace())
	}
	return frames, traces
}

func TestDeterministic(t *testing.T) {
	framesA, tracesA := record(t)
	framesB, tracesB := record(t)
	for i := range inputs {
		if framesA[i] != framesB[i] {
			t.Errorf("frame %d: two runs rendered different frames", i)
		}
		if tracesA[i] != tracesB[i] {
			t.Errorf("frame %d: got=%q, want=%q", i, tracesB[i], tracesA[i])
		}
	}
	// The NMI handler of the last frame read the A button.
	last := tracesA[len(tracesA)-1]
	if !strings.Contains(last, "A:01 ") {
		t.Errorf("Trace() after pressing A: got=%q, want A:01", last)
	}
}

func TestSaveState(t *testing.T) {
	console, _ := run(t, 3)
	var state bytes.Buffer
	if err := console.SaveState(&state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	saved := state.Bytes()
	for i := 0; i < 2; i++ {
		console.StepFrame()
	}
	want := console.CPU().Trace()

	restored, err := nes.NewConsole(buildROM())
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}
	if err := restored.LoadState(bytes.NewReader(saved)); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	for i := 0; i < 2; i++ {
		restored.StepFrame()
	}
	if got := restored.CPU().Trace(); got != want {
		t.Fatalf("Trace(): got=%q, want=%q", got, want)
	}
	if *restored.Frame() != *console.Frame() {
		t.Fatalf("frames differ after restoring the state")
	}
}
