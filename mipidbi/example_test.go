// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mipidbi_test

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"

	"github.com/GermanBionicSystems/dbi/dbisim"
	"github.com/GermanBionicSystems/dbi/dcs"
	"github.com/GermanBionicSystems/dbi/mipidbi"
	"github.com/GermanBionicSystems/dbi/rgb565"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	// Use spireg SPI port registry to find the first available SPI bus.
	p, err := spireg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()
	dc := gpioreg.ByName("GPIO25")
	if dc == nil {
		log.Fatal("no D/C pin")
	}
	opts := mipidbi.DefaultOpts
	opts.Reset = gpioreg.ByName("GPIO24")
	opts.Backlight = mipidbi.NewGPIOBacklight(gpioreg.ByName("GPIO18"))
	dev, err := mipidbi.NewSPI(p, dc, &opts)
	if err != nil {
		log.Fatalf("failed to initialize display: %v", err)
	}
	if err := dev.Prepare(); err != nil {
		log.Fatal(err)
	}
	// A real panel needs its vendor initialization sequence, see ili9341.
	for _, cmd := range []byte{dcs.ExitSleepMode, dcs.SetDisplayOn} {
		if err := dev.Command(cmd); err != nil {
			log.Fatal(err)
		}
	}
	if err := dev.Command(dcs.SetPixelFormat, dcs.PixelFormatRGB); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("device=%s\n", dev)

	img := rgb565.NewImage(dev.Bounds())
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{0, 0, 255, 255}}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(10, 10, 50, 50), &image.Uniform{color.White}, image.Point{}, draw.Src)
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		log.Fatal(err)
	}
	_ = dev.Halt()
}

func ExampleDev_Flush() {
	panel := dbisim.New(&dbisim.Opts{W: 4, H: 2, MaxTxSize: 64})
	opts := mipidbi.DefaultOpts
	opts.W, opts.H = 4, 2
	dev, err := mipidbi.NewSPI(panel, &panel.DC, &opts)
	if err != nil {
		log.Fatal(err)
	}

	img := rgb565.NewImage(dev.Bounds())
	img.Fill(rgb565.New(255, 0, 0))
	fb := &mipidbi.Framebuffer{Pix: img.Pix, Stride: img.Stride, Rect: img.Rect, Format: mipidbi.RGB565}
	if err := dev.Flush(fb); err != nil {
		log.Fatal(err)
	}
	img.SetRGB565(3, 1, rgb565.New(0, 255, 0))
	if err := dev.Flush(fb, image.Rect(3, 1, 4, 2)); err != nil {
		log.Fatal(err)
	}
	for _, op := range panel.Ops() {
		fmt.Printf("%02Xh %d bytes\n", op.Cmd, op.N)
	}
	fmt.Printf("%#04x %#04x\n", panel.Pixel(0, 0), panel.Pixel(3, 1))
	// Output:
	// 2Ah 4 bytes
	// 2Bh 4 bytes
	// 2Ch 16 bytes
	// 2Ah 4 bytes
	// 2Bh 4 bytes
	// 2Ch 2 bytes
	// 0xf800 0x07e0
}
