package nes

// Reference:
//   http://hp.vector.co.jp/authors/VA042397/nes/joypad.html (In Japanese)
//   https://www.nesdev.org/wiki/Controller_reading
//   https://www.nesdev.org/wiki/Standard_controller

// Button is an index of the buttons array given to Console.SetButtons.
type Button int

// Buttons in the order they are reported by reads.
const (
	ButtonA Button = iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

type Controller struct {
	buttons [8]bool
	latched [8]bool // shift register loaded by the strobe
	index   byte
	strobe  byte
}

func NewController() *Controller {
	return &Controller{}
}

// Set sets the live button state, it is seen by reads after the next strobe.
func (c *Controller) Set(buttons [8]bool) {
	c.buttons = buttons
}

// read shifts out one latched button. While strobe is high the shift register
// keeps reloading, so every read reports the live state of A.
// After 8 reads an official controller reports 1.
func (c *Controller) read() byte {
	if c.strobe&1 == 1 {
		c.latched = c.buttons
		c.index = 0
		if c.buttons[ButtonA] {
			return 1
		}
		return 0
	}
	if c.index >= 8 {
		return 1
	}
	ret := byte(0)
	if c.latched[c.index] {
		ret = 1
	}
	c.index++
	return ret
}

// write writes strobe.
// https://bugzmanov.github.io/nes_ebook/chapter_7.html
// - strobe bit on - controller reports only status of the button A on every read
// - strobe bit off - controller cycles through all buttons
// The buttons are latched while strobe is high and kept when it falls.
func (c *Controller) write(data byte) {
	if c.strobe&1 == 1 || data&1 == 1 {
		c.latched = c.buttons
		c.index = 0
	}
	c.strobe = data
}
