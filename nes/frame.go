package nes

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// NES PPU generates 256x240 pixels.
const (
	Width  = 256
	Height = 240
)

// Frame is a rendered picture, each pixel is an index into the 64 color
// system palette.
type Frame struct {
	Pix [Width * Height]byte
}

// At returns the palette index at (x, y).
func (f *Frame) At(x, y int) byte {
	return f.Pix[y*Width+x]
}

func (f *Frame) set(x, y int, v byte) {
	f.Pix[y*Width+x] = v
}

// Image converts the frame to RGBA through the system palette.
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			img.SetRGBA(x, y, colors[f.At(x, y)&0x3F])
		}
	}
	return img
}

// Scaled returns the frame upscaled by an integer factor.
func (f *Frame) Scaled(factor int) *image.RGBA {
	src := f.Image()
	if factor <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, Width*factor, Height*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Color returns the RGB value of a palette index.
func Color(index byte) color.RGBA {
	return colors[index&0x3F]
}
