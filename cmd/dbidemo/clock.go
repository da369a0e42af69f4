// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"image"
	"image/color"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

var captionColor = color.RGBA{0xFF, 0xD7, 0x00, 0xFF}

// clock draws an analog clock face with the time in digits below the center.
type clock struct {
	w, h int
	face font.Face
}

func newClock(size image.Point) (*clock, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	pt := float64(min(size.X, size.Y)) / 8
	return &clock{
		w:    size.X,
		h:    size.Y,
		face: truetype.NewFace(f, &truetype.Options{Size: pt}),
	}, nil
}

// render draws the clock at t with caption in the bottom left corner.
func (c *clock) render(t time.Time, caption string) *image.RGBA {
	dc := gg.NewContext(c.w, c.h)
	dc.SetRGB(0, 0, 0.2)
	dc.Clear()

	cx, cy := float64(c.w)/2, float64(c.h)/2
	r := float64(min(c.w, c.h)) * 0.45

	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(2)
	dc.DrawCircle(cx, cy, r)
	dc.Stroke()
	for i := 0; i < 12; i++ {
		a := gg.Radians(float64(i * 30))
		dc.DrawLine(cx+0.85*r*math.Cos(a), cy+0.85*r*math.Sin(a), cx+r*math.Cos(a), cy+r*math.Sin(a))
	}
	dc.Stroke()

	h, m, s := t.Clock()
	hand(dc, cx, cy, 0.5*r, 4, float64(h%12)/12+float64(m)/720)
	hand(dc, cx, cy, 0.8*r, 3, float64(m)/60+float64(s)/3600)
	dc.SetRGB(1, 0.2, 0.2)
	hand(dc, cx, cy, 0.9*r, 1, float64(s)/60)

	dc.SetRGB(0.6, 0.8, 1)
	dc.SetFontFace(c.face)
	dc.DrawStringAnchored(t.Format("15:04"), cx, cy+r/2, 0.5, 0.5)

	img := dc.Image().(*image.RGBA)
	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{captionColor},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(2, c.h-1-basicfont.Face7x13.Descent),
	}
	d.DrawString(caption)
	return img
}

// hand draws a hand at frac of a full turn, clockwise from 12 o'clock.
func hand(dc *gg.Context, cx, cy, length, width, frac float64) {
	a := frac*2*math.Pi - math.Pi/2
	dc.SetLineWidth(width)
	dc.DrawLine(cx, cy, cx+length*math.Cos(a), cy+length*math.Sin(a))
	dc.Stroke()
}
