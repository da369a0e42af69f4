// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rgb565 implements a 16-bit 5-6-5 truecolor image, the native
// pixel format of most MIPI DBI controllers.
//
// Pixels are stored as host order 16-bit words, red in the top 5 bits. This
// is the layout a SPI port running at 16 bits per word sends most
// significant byte first.
package rgb565

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
)

// Color is a 5-6-5 packed color.
type Color uint16

// New returns the Color closest to the 8-bit per channel value.
func New(r, g, b uint8) Color {
	return Color(uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3)
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r5 := uint32(c>>11) & 0x1F
	g6 := uint32(c>>5) & 0x3F
	b5 := uint32(c) & 0x1F
	r = (r5<<3 | r5>>2) * 0x101
	g = (g6<<2 | g6>>4) * 0x101
	b = (b5<<3 | b5>>2) * 0x101
	return r, g, b, 0xFFFF
}

func convert(c color.Color) color.Color {
	if v, ok := c.(Color); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return New(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Model converts any color to Color.
var Model = color.ModelFunc(convert)

// FromXRGB8888 converts a 32-bit X8R8G8B8 word to 5-6-5.
func FromXRGB8888(v uint32) Color {
	return Color((v&0x00F80000)>>8 | (v&0x0000FC00)>>5 | (v&0x000000F8)>>3)
}

// Image is an in-memory image of Color pixels.
type Image struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

// NewImage returns an Image covering r.
func NewImage(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w < 0 || h < 0 {
		return &Image{Rect: r}
	}
	return &Image{Pix: make([]byte, 2*w*h), Stride: 2 * w, Rect: r}
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return Model
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return i.Rect
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	return i.RGB565At(x, y)
}

// RGB565At returns the pixel at (x, y) without an interface conversion.
func (i *Image) RGB565At(x, y int) Color {
	if !(image.Point{X: x, Y: y}.In(i.Rect)) {
		return 0
	}
	return Color(binary.NativeEndian.Uint16(i.Pix[i.PixOffset(x, y):]))
}

// Set implements draw.Image.
func (i *Image) Set(x, y int, c color.Color) {
	i.SetRGB565(x, y, Model.Convert(c).(Color))
}

// SetRGB565 sets the pixel at (x, y).
func (i *Image) SetRGB565(x, y int, c Color) {
	if !(image.Point{X: x, Y: y}.In(i.Rect)) {
		return
	}
	binary.NativeEndian.PutUint16(i.Pix[i.PixOffset(x, y):], uint16(c))
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (i *Image) PixOffset(x, y int) int {
	return (y-i.Rect.Min.Y)*i.Stride + (x-i.Rect.Min.X)*2
}

// Fill sets every pixel to c.
func (i *Image) Fill(c Color) {
	w := i.Rect.Dx()
	for y := 0; y < i.Rect.Dy(); y++ {
		row := i.Pix[y*i.Stride:]
		for x := 0; x < w; x++ {
			binary.NativeEndian.PutUint16(row[2*x:], uint16(c))
		}
	}
}

var _ draw.Image = &Image{}
