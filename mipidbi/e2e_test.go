// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mipidbi_test

import (
	"encoding/binary"
	"image"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/dbi/dbisim"
	"github.com/GermanBionicSystems/dbi/dcs"
	"github.com/GermanBionicSystems/dbi/mipidbi"
	"github.com/GermanBionicSystems/dbi/rgb565"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

type wiring struct {
	name  string
	sim   dbisim.Opts
	opts  mipidbi.Opts
	fourW bool
	mode  mipidbi.Mode
}

func wirings(w, h int) []wiring {
	sim := dbisim.DefaultOpts
	sim.W, sim.H = w, h
	opts := mipidbi.DefaultOpts
	opts.W, opts.H = w, h

	four16 := sim
	four16.Bits16 = true
	opts16 := opts
	opts16.Bits16 = true
	three := sim
	three.Wiring = dbisim.ThreeWire
	three9 := three
	three9.Bits9 = true
	opts9 := opts
	opts9.Bits9 = true
	// An odd transfer size exercises the partial 9-bit groups.
	threeSmall := three
	threeSmall.MaxTxSize = 52
	optsSmall := opts
	optsSmall.MaxTxSize = 52
	return []wiring{
		{"4-wire", sim, opts, true, mipidbi.DCLine},
		{"4-wire 16 bits", four16, opts16, true, mipidbi.DCLine},
		{"3-wire native", three9, opts9, false, mipidbi.Native9Bit},
		{"3-wire emulated", three, opts, false, mipidbi.Emulated9Bit},
		{"3-wire emulated small", threeSmall, optsSmall, false, mipidbi.Emulated9Bit},
	}
}

func (wr *wiring) open(t *testing.T) (*mipidbi.Dev, *dbisim.Panel) {
	t.Helper()
	p := dbisim.New(&wr.sim)
	var dc gpio.PinOut
	if wr.fourW {
		dc = &p.DC
	}
	d, err := mipidbi.NewSPI(p, dc, &wr.opts)
	if err != nil {
		t.Fatal(err)
	}
	if d.Mode() != wr.mode {
		t.Fatalf("Mode() = %s, want %s", d.Mode(), wr.mode)
	}
	return d, p
}

// pattern returns a frame where every pixel is different.
func pattern(w, h int, seed uint16) *mipidbi.Framebuffer {
	fb := &mipidbi.Framebuffer{Pix: make([]byte, 2*w*h), Stride: 2 * w, Rect: image.Rect(0, 0, w, h), Format: mipidbi.RGB565}
	for i := 0; i < w*h; i++ {
		binary.NativeEndian.PutUint16(fb.Pix[2*i:], uint16(i)*0x9E37+seed)
	}
	return fb
}

func checkPixels(t *testing.T, p *dbisim.Panel, fb *mipidbi.Framebuffer, r image.Rectangle) {
	t.Helper()
	bad := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			want := rgb565.Color(binary.NativeEndian.Uint16(fb.Pix[y*fb.Stride+2*x:]))
			if got := p.Pixel(x, y); got != want {
				if bad++; bad < 5 {
					t.Errorf("Pixel(%d, %d) = %#04x, want %#04x", x, y, got, want)
				}
			}
		}
	}
}

func TestFlushEndToEnd(t *testing.T) {
	const w, h = 37, 11
	for _, wr := range wirings(w, h) {
		t.Run(wr.name, func(t *testing.T) {
			d, p := wr.open(t)
			defer d.Close()
			fb := pattern(w, h, 0)
			if err := d.Flush(fb); err != nil {
				t.Fatal(err)
			}
			checkPixels(t, p, fb, d.Bounds())

			ops := p.Ops()
			var cmds []byte
			for _, op := range ops {
				cmds = append(cmds, op.Cmd)
			}
			if diff := cmp.Diff(cmds, []byte{dcs.SetColumnAddress, dcs.SetPageAddress, dcs.WriteMemoryStart}); diff != "" {
				t.Errorf("commands difference (-got +want):\n%s", diff)
			}
			if n := ops[len(ops)-1].N; n != 2*w*h {
				t.Errorf("wrote %d bytes, want %d", n, 2*w*h)
			}

			// Only the union of the clips is updated.
			fb2 := pattern(w, h, 0x1234)
			clip := image.Rect(3, 2, 30, 9)
			if err := d.Flush(fb2, image.Rect(3, 2, 10, 5), image.Rect(20, 6, 30, 9)); err != nil {
				t.Fatal(err)
			}
			if got := p.Window(); got != clip {
				t.Errorf("Window() = %v, want %v", got, clip)
			}
			checkPixels(t, p, fb2, clip)
			checkPixels(t, p, fb, image.Rect(0, 0, w, 2))
			checkPixels(t, p, fb, image.Rect(30, 0, w, h))
		})
	}
}

func TestXRGB8888EndToEnd(t *testing.T) {
	const w, h = 5, 3
	for _, wr := range wirings(w, h) {
		t.Run(wr.name, func(t *testing.T) {
			d, p := wr.open(t)
			fb := &mipidbi.Framebuffer{Pix: make([]byte, 4*w*h), Stride: 4 * w, Rect: image.Rect(0, 0, w, h), Format: mipidbi.XRGB8888}
			for i := 0; i < w*h; i++ {
				binary.NativeEndian.PutUint32(fb.Pix[4*i:], uint32(i)*0x10307)
			}
			if err := d.Flush(fb); err != nil {
				t.Fatal(err)
			}
			for i := 0; i < w*h; i++ {
				want := rgb565.FromXRGB8888(uint32(i) * 0x10307)
				if got := p.Pixel(i%w, i/w); got != want {
					t.Errorf("Pixel(%d, %d) = %#04x, want %#04x", i%w, i/w, got, want)
				}
			}
		})
	}
}

func TestDrawEndToEnd(t *testing.T) {
	wr := wirings(8, 8)[0]
	d, p := wr.open(t)
	img := rgb565.NewImage(image.Rect(0, 0, 8, 8))
	img.Fill(rgb565.New(0, 0, 255))
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	img.Fill(rgb565.New(255, 255, 0))
	if err := d.Draw(image.Rect(6, 6, 12, 12), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if got := p.Pixel(7, 7); got != 0xFFE0 {
		t.Errorf("Pixel(7, 7) = %#04x", got)
	}
	if got := p.Pixel(5, 7); got != 0x001F {
		t.Errorf("Pixel(5, 7) = %#04x", got)
	}
}

func TestReadEndToEnd(t *testing.T) {
	wr := wirings(16, 16)[0]
	d, p := wr.open(t)
	if d.DisplayIsOn() {
		t.Error("display on after reset")
	}
	for _, cmd := range []byte{dcs.ExitSleepMode, dcs.SetDisplayOn} {
		if err := d.Command(cmd); err != nil {
			t.Fatal(err)
		}
	}
	if !d.DisplayIsOn() {
		t.Error("DisplayIsOn() = false")
	}
	var id [3]byte
	if err := d.CommandBuf(dcs.GetDisplayID, id[:]); err != nil {
		t.Fatal(err)
	}
	if id != wr.sim.ID {
		t.Errorf("display ID = %x", id)
	}
	if p.ReadSpeed() != 2*physic.MegaHertz || p.Speed() != 16*physic.MegaHertz {
		t.Errorf("ReadSpeed() = %s, Speed() = %s", p.ReadSpeed(), p.Speed())
	}

	var b strings.Builder
	if err := d.Dump(&b); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"\nDisplay ID (04h=009341):\n",
		"    D17=1: Sleep: Out\n",
		"    D10=1: Display: On\n",
		"\nPower mode (0Ah=9c):\n",
		"    D7=1: Register Loading Detection: OK\n",
	} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("Dump() is missing %q:\n%s", want, b.String())
		}
	}
}

func TestReadThreeWireEndToEnd(t *testing.T) {
	wr := wirings(16, 16)[3]
	d, _ := wr.open(t)
	var b strings.Builder
	if err := d.Dump(&b); err != nil {
		t.Fatal(err)
	}
	if b.String() != "Controller is write-only\n" {
		t.Errorf("Dump() = %q", b.String())
	}
	if d.DisplayIsOn() {
		t.Error("DisplayIsOn() on a 3-wire bus")
	}
}

func TestResetEndToEnd(t *testing.T) {
	wr := wirings(16, 16)[0]
	p := dbisim.New(&wr.sim)
	wr.opts.Reset = p.ResetPin()
	d, err := mipidbi.NewSPI(p, &p.DC, &wr.opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Command(dcs.ExitSleepMode); err != nil {
		t.Fatal(err)
	}
	if err := d.HWReset(); err != nil {
		t.Fatal(err)
	}
	if p.Resets() != 1 || !p.Sleeping() {
		t.Errorf("Resets() = %d, Sleeping() = %t", p.Resets(), p.Sleeping())
	}
}
