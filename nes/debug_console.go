package nes

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrQuit is returned by DebugConsole.Run when the user quits.
var ErrQuit = errors.New("quit")

var stepArgRe = regexp.MustCompile("^([0-9]+)")

// DebugConsole a NES console for debugging, you can execute some commands through stdio.
// commands:
//   s [n|nd|ns]:
//     execute step(s). "nd" prints the state after each step, "ns" runs n
//     seconds worth of CPU cycles.
//   p [cpu|ppu|stack]:
//     print.
//   br 0x....:
//     set a break point.
//   q:
//     quit.
//   r:
//     reset.
type DebugConsole struct {
	*Console
	in          *bufio.Reader
	out         io.Writer
	cycles      uint64
	breakpoints []uint16
}

// NewDebugConsole wraps a console, commands are read from in.
func NewDebugConsole(c *Console, in io.Reader, out io.Writer) *DebugConsole {
	return &DebugConsole{Console: c, in: bufio.NewReader(in), out: out}
}

func (c *DebugConsole) step() int {
	cycles := c.Console.Step()
	c.cycles += uint64(cycles)
	return cycles
}

func (c *DebugConsole) printStack() {
	for i := 0; i < 256; i++ {
		idx := uint16(0x100 | i)
		fmt.Fprintf(c.out, "0x%04x: 0x%02x, ", idx, c.wram.read(idx))
		if i%16 == 15 {
			fmt.Fprintln(c.out)
		}
	}
}

func (c *DebugConsole) basePrint() {
	fmt.Fprintln(c.out, "--------------------------------------------------")
	fmt.Fprintf(c.out, "Executed cycles: %d\n", c.cycles)
	fmt.Fprintf(c.out, "Rendered frame: %d\n", c.frames)
	fmt.Fprintln(c.out, "Last: "+c.cpu.lastExecution())
	fmt.Fprintln(c.out, "CPU: "+c.cpu.Trace())
	fmt.Fprintf(c.out, "PPU: cycle=%d, scanline=%d, p.v=0x%04x\n",
		c.ppu.cycle, c.ppu.scanline, c.ppu.v)
}

func (c *DebugConsole) printCommand(args []string) {
	if len(args) < 2 {
		c.basePrint()
		return
	}
	switch args[1] {
	case "c", "cpu":
		fmt.Fprintf(c.out, "%s, stall=%d, irq=%t\n", c.cpu.Trace(), c.cpu.stall, c.cpu.irqPending)
	case "p", "ppu":
		fmt.Fprintf(c.out, "cycle=%d, scanline=%d, v=0x%04x, t=0x%04x, x=%d, w=%t, vblank=%t, sprite0=%t, overflow=%t\n",
			c.ppu.cycle, c.ppu.scanline, c.ppu.v, c.ppu.t, c.ppu.x, c.ppu.w,
			c.ppu.vblank, c.ppu.spriteZeroHit, c.ppu.spriteOverflow)
	case "s", "stack":
		c.printStack()
	case "ca", "cartridge":
		fmt.Fprintf(c.out, "mapper=%d, mirroring=%s\n", c.cartridge.MapperID(), c.mapper.Mirroring())
	}
}

func (c *DebugConsole) checkBreak() bool {
	for _, b := range c.breakpoints {
		if b == c.cpu.pc {
			fmt.Fprintf(c.out, "Break at: 0x%04x\n", b)
			return true
		}
	}
	return false
}

func (c *DebugConsole) stepCommand(args []string) int {
	if len(args) < 2 {
		return c.step()
	}
	if !stepArgRe.MatchString(args[1]) {
		return 0
	}
	num, _ := strconv.Atoi(stepArgRe.FindString(args[1]))
	unit := args[1][len(args[1])-1]
	cycles := 0
	switch unit {
	case 's':
		// s means seconds but this doesn't execute 1 sec, this executes CPUFrequency * num
		// This will be 60 * num frames execution.
		steps := CPUFrequency * num
		for cycles < steps {
			cycles += c.step()
			if c.checkBreak() {
				return cycles
			}
		}
	case 'd':
		// debug -> steps with debug messages.
		for i := 0; i < num; i++ {
			cycles += c.step()
			c.basePrint()
			if c.checkBreak() {
				return cycles
			}
		}
	default: // no unit -> step
		for i := 0; i < num; i++ {
			cycles += c.step()
			if c.checkBreak() {
				return cycles
			}
		}
	}
	return cycles
}

func (c *DebugConsole) breakPointCommand(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: br 0x....")
	}
	var i uint16
	if _, err := fmt.Sscanf(args[1], "0x%x", &i); err != nil {
		return fmt.Errorf("invalid breakpoint %q: %w", args[1], err)
	}
	c.breakpoints = append(c.breakpoints, i)
	return nil
}

// Command executes a line of command and returns the executed CPU cycles.
func (c *DebugConsole) Command(line string) (int, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return 0, nil
	}
	switch args[0] {
	case "p", "print":
		c.printCommand(args)
	case "s", "step":
		cycles := c.stepCommand(args)
		c.basePrint()
		fmt.Fprintf(c.out, "Executed %d CPU cycles, %d PPU cycles.\n", cycles, 3*cycles)
		return cycles, nil
	case "br", "breakpoint":
		if err := c.breakPointCommand(args); err != nil {
			return 0, err
		}
	case "r", "reset":
		c.Reset()
		c.cycles = 0
	case "q", "quit":
		fmt.Fprintln(c.out, "Quitting.")
		return 0, ErrQuit
	default:
		return 0, fmt.Errorf("unknown command %q", line)
	}
	// step command was not executed.
	return 0, nil
}

// Run reads commands until quit or the end of input.
func (c *DebugConsole) Run() error {
	for {
		fmt.Fprintf(c.out, "Debugger mode, 'q' to quit \n>> ")
		line, err := c.in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if _, err := c.Command(line); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			fmt.Fprintln(c.out, err)
		}
	}
}
