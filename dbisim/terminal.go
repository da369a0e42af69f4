// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dbisim

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// TermOpts represents the options of a Terminal.
type TermOpts struct {
	// Scale is the number of panel pixels per character cell, in both
	// directions. Defaults to 1.
	Scale   int
	Palette *ansi256.Palette
}

// Terminal shows the pixel memory of a Panel on the console using ANSI color
// codes.
type Terminal struct {
	p       *Panel
	w       io.Writer
	scale   int
	palette ansi256.Palette
	buf     bytes.Buffer
}

// NewTerminal returns a Terminal that draws p to the console.
func NewTerminal(p *Panel, opts *TermOpts) *Terminal {
	pal := opts.Palette
	if pal == nil {
		pal = ansi256.Default
	}
	scale := opts.Scale
	if scale < 1 {
		scale = 1
	}
	return &Terminal{
		p:       p,
		w:       colorable.NewColorableStdout(),
		scale:   scale,
		palette: *pal,
	}
}

func (t *Terminal) String() string {
	return fmt.Sprintf("Terminal{%s}", t.p)
}

// Halt resets the console colors.
func (t *Terminal) Halt() error {
	_, err := io.WriteString(t.w, "\n\033[0m")
	return err
}

// Refresh redraws the whole pixel memory from the top left corner of the
// console. Each cell shows the top left pixel of its area.
func (t *Terminal) Refresh() error {
	img := t.p.Image()
	r := img.Bounds()
	t.buf.Reset()
	_, _ = t.buf.WriteString("\033[H\033[0m")
	for y := r.Min.Y; y < r.Max.Y; y += t.scale {
		for x := r.Min.X; x < r.Max.X; x += t.scale {
			r16, g16, b16, _ := img.RGB565At(x, y).RGBA()
			c := color.NRGBA{byte(r16 >> 8), byte(g16 >> 8), byte(b16 >> 8), 255}
			_, _ = t.buf.WriteString(t.palette.Block(c))
		}
		_, _ = t.buf.WriteString("\033[0m\n")
	}
	_, err := t.buf.WriteTo(t.w)
	return err
}
