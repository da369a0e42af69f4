// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dbisim

import (
	"image"

	"github.com/GermanBionicSystems/dbi/dcs"
	"github.com/GermanBionicSystems/dbi/rgb565"
)

// controller is the DCS state machine.
type controller struct {
	w, h int
	id   [3]byte
	mem  *rgb565.Image
	ops  []Op
	// dirty is set when the memory changed since the last stream refresh.
	dirty bool

	// Registers.
	sleeping  bool
	displayOn bool
	partial   bool
	inverted  bool
	idle      bool
	tearOn    bool
	tearMode  byte
	madctl    byte
	colmod    byte
	gamma     byte
	diag      byte

	// Address window and memory pointer.
	col0, col1   int
	page0, page1 int
	x, y         int
	// hi is the first byte of a pixel, valid when half is set.
	hi   byte
	half bool
}

func (c *controller) init(w, h int, id [3]byte) {
	c.w, c.h, c.id = w, h, id
	c.mem = rgb565.NewImage(image.Rect(0, 0, w, h))
	c.reset()
}

// reset restores the registers to their power on value. The memory content
// is kept.
func (c *controller) reset() {
	c.sleeping = true
	c.displayOn = false
	c.partial = false
	c.inverted = false
	c.idle = false
	c.tearOn = false
	c.tearMode = 0
	c.madctl = 0
	c.colmod = dcs.PixelFormat18<<4 | dcs.PixelFormat18
	c.gamma = 1
	c.diag = 0
	c.col0, c.col1 = 0, c.w-1
	c.page0, c.page1 = 0, c.h-1
	c.x, c.y = 0, 0
	c.half = false
}

// write handles one bus word.
func (c *controller) write(b byte, data bool) {
	if data {
		c.param(b)
	} else if b != dcs.Nop {
		c.command(b)
	}
}

func (c *controller) command(b byte) {
	c.ops = append(c.ops, Op{Cmd: b})
	c.half = false
	switch b {
	case dcs.SoftReset:
		c.reset()
	case dcs.EnterSleepMode:
		c.sleeping = true
	case dcs.ExitSleepMode:
		c.sleeping = false
		// Register loading and functionality detection passed.
		c.diag = 0xC0
	case dcs.EnterPartialMode:
		c.partial = true
	case dcs.EnterNormalMode:
		c.partial = false
	case dcs.ExitInvertMode:
		c.inverted = false
	case dcs.EnterInvertMode:
		c.inverted = true
	case dcs.SetDisplayOff:
		c.displayOn = false
	case dcs.SetDisplayOn:
		c.displayOn = true
	case dcs.SetTearOff:
		c.tearOn = false
	case dcs.SetTearOn:
		c.tearOn = true
	case dcs.ExitIdleMode:
		c.idle = false
	case dcs.EnterIdleMode:
		c.idle = true
	case dcs.WriteMemoryStart:
		c.x, c.y = c.col0, c.page0
	}
}

func (c *controller) param(b byte) {
	if len(c.ops) == 0 {
		// Parameters without a command are dropped.
		return
	}
	op := &c.ops[len(c.ops)-1]
	op.N++
	if op.Cmd == dcs.WriteMemoryStart || op.Cmd == dcs.WriteMemoryContinue {
		c.pixel(b)
		return
	}
	op.Params = append(op.Params, b)
	p := op.Params
	switch op.Cmd {
	// End addresses past the memory are clamped to its last column or row.
	case dcs.SetColumnAddress:
		if len(p) == 4 {
			c.col0, c.col1 = address(p[0], p[1]), min(address(p[2], p[3]), c.w-1)
		}
	case dcs.SetPageAddress:
		if len(p) == 4 {
			c.page0, c.page1 = address(p[0], p[1]), min(address(p[2], p[3]), c.h-1)
		}
	case dcs.SetAddressMode:
		if len(p) == 1 {
			c.madctl = b
		}
	case dcs.SetPixelFormat:
		if len(p) == 1 {
			c.colmod = b
		}
	case dcs.SetGammaCurve:
		if len(p) == 1 {
			c.gamma = b
		}
	case dcs.SetTearOn:
		if len(p) == 1 {
			c.tearMode = b & 1
		}
	}
}

// pixel assembles big endian 16 bits pixels and stores them at the memory
// pointer, which wraps inside the address window.
func (c *controller) pixel(b byte) {
	if !c.half {
		c.hi, c.half = b, true
		return
	}
	c.half = false
	if c.x >= 0 && c.x < c.w && c.y >= 0 && c.y < c.h {
		c.mem.SetRGB565(c.x, c.y, rgb565.Color(uint16(c.hi)<<8|uint16(b)))
		c.dirty = true
	}
	if c.x++; c.x > c.col1 {
		c.x = c.col0
		if c.y++; c.y > c.page1 {
			c.y = c.page0
		}
	}
}

// reply fills r with the answer to the last command.
func (c *controller) reply(r []byte) {
	clear(r)
	if len(c.ops) == 0 {
		return
	}
	cmd := c.ops[len(c.ops)-1].Cmd
	v := c.register(cmd)
	if !dcs.HasDummyClock(cmd) {
		copy(r, v)
		return
	}
	// The reply is delayed by one clock.
	for i := range r {
		var cur, prev byte
		if i < len(v) {
			cur = v[i]
		}
		if i > 0 && i-1 < len(v) {
			prev = v[i-1]
		}
		r[i] = prev<<7 | cur>>1
	}
}

func (c *controller) register(cmd byte) []byte {
	switch cmd {
	case dcs.GetDisplayID:
		return c.id[:]
	case dcs.GetDisplayStatus:
		s := c.status()
		return []byte{byte(s >> 24), byte(s >> 16), byte(s >> 8), byte(s)}
	case dcs.GetPowerMode:
		return []byte{c.powerMode()}
	case dcs.GetAddressMode:
		return []byte{c.madctl}
	case dcs.GetPixelFormat:
		return []byte{c.colmod}
	case dcs.GetDisplayMode:
		return []byte{flag(c.inverted, 5) | c.gammaIndex()}
	case dcs.GetSignalMode:
		return []byte{flag(c.tearOn, 7) | c.tearMode<<6}
	case dcs.GetDiagnosticResult:
		return []byte{c.diag}
	default:
		return nil
	}
}

func (c *controller) powerMode() byte {
	return flag(!c.sleeping, 7) |
		flag(c.idle, 6) |
		flag(c.partial, 5) |
		flag(!c.sleeping, 4) |
		flag(!c.partial, 3) |
		flag(c.displayOn, 2)
}

// status is the 32 bits display status register.
func (c *controller) status() uint32 {
	s := uint32(flag(!c.sleeping, 7)) << 24
	// MY, MX, MV, ML, BGR and MH map to bits 30 to 25.
	s |= uint32(c.madctl>>2&0x3F) << 25
	s |= uint32(c.colmod&7) << 20
	s |= uint32(flag(c.idle, 3)|flag(c.partial, 2)|flag(!c.sleeping, 1)|flag(!c.partial, 0)) << 16
	s |= uint32(flag(c.inverted, 5)|flag(c.displayOn, 2)|flag(c.tearOn, 1)) << 8
	s |= uint32(c.gammaIndex()) << 6
	s |= uint32(c.tearMode) << 5
	return s
}

// gammaIndex converts the one-hot gamma curve register to its index.
func (c *controller) gammaIndex() byte {
	switch c.gamma {
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		return 0
	}
}

// address decodes a big endian 16 bits address.
func address(hi, lo byte) int {
	return int(hi)<<8 | int(lo)
}

func flag(b bool, n uint) byte {
	if b {
		return 1 << n
	}
	return 0
}
