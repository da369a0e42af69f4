// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mipidbi

import (
	"fmt"
	"image"

	"github.com/GermanBionicSystems/dbi/dcs"
	"github.com/GermanBionicSystems/dbi/rgb565"
)

// Format is the pixel format of a Framebuffer.
type Format int

// Supported formats.
const (
	// RGB565 is host order 16 bits words, red in the top 5 bits.
	RGB565 Format = iota + 1
	// XRGB8888 is host order 32 bits words, red in bits 23-16.
	XRGB8888
)

func (f Format) String() string {
	switch f {
	case RGB565:
		return "RGB565"
	case XRGB8888:
		return "XRGB8888"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

func (f Format) bytesPerPixel() int {
	switch f {
	case RGB565:
		return 2
	case XRGB8888:
		return 4
	default:
		return 0
	}
}

// Framebuffer is a frame in host memory.
type Framebuffer struct {
	Pix    []byte
	Stride int
	// Rect must start at {0, 0} and match the device size.
	Rect   image.Rectangle
	Format Format
}

// MergeClips returns the bounding rectangle of clips and whether it covers
// the whole w x h area.
//
// No clips, or clips out of range, make the full area.
func MergeClips(clips []image.Rectangle, w, h int) (image.Rectangle, bool) {
	all := image.Rect(0, 0, w, h)
	if len(clips) == 0 {
		return all, true
	}
	r := clips[0]
	for _, c := range clips[1:] {
		r.Min.X = min(r.Min.X, c.Min.X)
		r.Min.Y = min(r.Min.Y, c.Min.Y)
		r.Max.X = max(r.Max.X, c.Max.X)
		r.Max.Y = max(r.Max.Y, c.Max.Y)
	}
	if r.Min.X < 0 || r.Min.Y < 0 || r.Max.X > w || r.Max.Y > h || r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y {
		return all, true
	}
	return r, r == all
}

// Flush sends the bounding rectangle of clips from fb to the controller
// memory.
//
// Without clips, nothing is sent once the display is enabled. The first
// Flush always sends the full frame, then turns on the backlight.
//
// A failure is logged once until the next successful Flush, and returned.
func (d *Dev) Flush(fb *Framebuffer, clips ...image.Rectangle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.enabled && len(clips) == 0 {
		return nil
	}
	return d.reportLocked(d.flushLocked(fb, clips))
}

func (d *Dev) flushLocked(fb *Framebuffer, clips []image.Rectangle) error {
	w, h := d.rect.Dx(), d.rect.Dy()
	bpp := fb.Format.bytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("mipidbi: %s: %w", fb.Format, ErrUnsupportedFormat)
	}
	if fb.Rect != d.rect {
		return fmt.Errorf("mipidbi: framebuffer %v doesn't match display %v: %w", fb.Rect, d.rect, ErrInvalidArgument)
	}
	if fb.Stride < w*bpp || len(fb.Pix) < (h-1)*fb.Stride+w*bpp {
		return fmt.Errorf("mipidbi: framebuffer too small: %w", ErrInvalidArgument)
	}

	clip, full := MergeClips(clips, w, h)
	if !d.enabled {
		// The controller memory content is unknown.
		clip, full = d.rect, true
	}
	if d.debug {
		logf("mipidbi: flushing x1=%d, x2=%d, y1=%d, y2=%d", clip.Min.X, clip.Max.X, clip.Min.Y, clip.Max.Y)
	}

	var tr []byte
	if !full || d.swap || fb.Format != RGB565 || fb.Stride != w*2 {
		var n int
		switch {
		case fb.Format == XRGB8888:
			n = rgb565.ConvertXRGB8888(d.txBuf, fb.Pix, fb.Stride, clip, d.swap)
		case d.swap:
			n = rgb565.SwapRect(d.txBuf, fb.Pix, fb.Stride, clip)
		default:
			n = rgb565.CopyRect(d.txBuf, fb.Pix, fb.Stride, clip)
		}
		tr = d.txBuf[:n]
	} else {
		tr = fb.Pix[:w*h*2]
	}

	if err := d.setWindowLocked(clip); err != nil {
		return err
	}
	if err := d.commandLocked(dcs.WriteMemoryStart, tr); err != nil {
		return err
	}
	return d.enableLocked()
}

// setWindowLocked sets the controller's column and page address window to r.
//
// The end address is sent as the high byte of the exclusive bound followed
// by the low byte of the inclusive one, the framing DBI controllers expect.
func (d *Dev) setWindowLocked(r image.Rectangle) error {
	if err := d.commandLocked(dcs.SetColumnAddress, windowParams(r.Min.X, r.Max.X)); err != nil {
		return err
	}
	return d.commandLocked(dcs.SetPageAddress, windowParams(r.Min.Y, r.Max.Y))
}

// windowParams returns the CASET or PASET parameters for [start, end).
func windowParams(start, end int) []byte {
	return []byte{byte(start >> 8), byte(start), byte(end >> 8), byte(end - 1)}
}

// enableLocked turns on the backlight the first time a frame was sent.
func (d *Dev) enableLocked() error {
	if d.enabled {
		return nil
	}
	if d.delay != 0 {
		sleep(d.delay)
	}
	if d.backlight != nil {
		if err := d.backlight.Backlight(fullIntensity); err != nil {
			return fmt.Errorf("mipidbi: enabling backlight: %w: %w", ErrPowerSequence, err)
		}
	}
	d.enabled = true
	return nil
}

// Disable turns off the display.
//
// The backlight is turned off; without backlight nor regulator the pixel
// memory is cleared instead. The regulator, if any, is then turned off. The
// next Flush sends a full frame and enables the display again.
func (d *Dev) Disable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.disableLocked()
}

func (d *Dev) disableLocked() error {
	var err error
	if d.enabled {
		if d.backlight != nil {
			if err = d.backlight.Backlight(0); err != nil {
				err = fmt.Errorf("mipidbi: disabling backlight: %w: %w", ErrPowerSequence, err)
			}
		} else if d.regulator == nil {
			err = d.blankLocked()
		}
	}
	d.enabled = false
	if d.prepared && d.regulator != nil {
		if err2 := d.regulator.Disable(); err2 != nil && err == nil {
			err = fmt.Errorf("mipidbi: disabling regulator: %w: %w", ErrPowerSequence, err2)
		}
		d.prepared = false
	}
	return err
}

// blankLocked writes black to the whole pixel memory.
func (d *Dev) blankLocked() error {
	clear(d.txBuf)
	if err := d.setWindowLocked(d.rect); err != nil {
		return err
	}
	return d.commandLocked(dcs.WriteMemoryStart, d.txBuf)
}
