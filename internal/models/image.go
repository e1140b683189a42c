package models

import (
	"fmt"
	"image"
)

// Image is a single-channel 8-bit intensity grid stored in row-major order.
// The buffer is sized once at construction and every access goes through a
// row slice, so an out-of-range column can never spill into the next row.
type Image struct {
	// Pix holds Width*Height samples, row after row
	Pix []uint8

	// Width and Height are the grid dimensions in pixels
	Width  int
	Height int
}

// NewImage allocates a zeroed image of the given dimensions.
// Negative dimensions are treated as zero.
func NewImage(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image{
		Pix:    make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// ImageFromGray copies an *image.Gray into a new Image, honouring the
// source stride and bounds origin.
func ImageFromGray(src *image.Gray) *Image {
	b := src.Bounds()
	img := NewImage(b.Dx(), b.Dy())
	for y := 0; y < img.Height; y++ {
		start := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(img.Row(y), src.Pix[start:start+img.Width])
	}
	return img
}

// Row returns the samples of row y. The returned slice aliases the image.
func (m *Image) Row(y int) []uint8 {
	return m.Pix[y*m.Width : (y+1)*m.Width : (y+1)*m.Width]
}

// At returns the sample at (x, y)
func (m *Image) At(x, y int) uint8 {
	return m.Row(y)[x]
}

// Set writes the sample at (x, y)
func (m *Image) Set(x, y int, v uint8) {
	m.Row(y)[x] = v
}

// SameSize reports whether both images share width and height
func (m *Image) SameSize(o *Image) bool {
	return m.Width == o.Width && m.Height == o.Height
}

// Clone returns a deep copy of the image
func (m *Image) Clone() *Image {
	out := NewImage(m.Width, m.Height)
	copy(out.Pix, m.Pix)
	return out
}

// ToGray converts the image into a standard library *image.Gray so it can be
// handed to encoders.
func (m *Image) ToGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		copy(g.Pix[y*g.Stride:y*g.Stride+m.Width], m.Row(y))
	}
	return g
}

// String describes the image dimensions
func (m *Image) String() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}
