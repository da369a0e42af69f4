// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ili9341 controls an ILI9341 based 320x240 TFT panel over a MIPI
// DBI SPI bus.
//
// The initialization sequence is the one of the Multi-Inno MI0283QT module.
//
// # Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/ILI9341.pdf
package ili9341

import (
	"fmt"
	"time"

	"github.com/GermanBionicSystems/dbi/dcs"
	"github.com/GermanBionicSystems/dbi/mipidbi"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// Size of the panel at Rotate0.
const (
	Width  = 320
	Height = 240
)

// Vendor commands.
const (
	FrameRateControl1      = 0xB1
	DisplayFunctionControl = 0xB6
	PowerControl1          = 0xC0
	PowerControl2          = 0xC1
	VCOMControl1           = 0xC5
	VCOMControl2           = 0xC7
	PowerControlA          = 0xCB
	PowerControlB          = 0xCF
	PositiveGamma          = 0xE0
	NegativeGamma          = 0xE1
	DriverTimingA          = 0xE8
	DriverTimingB          = 0xEA
	PowerOnSequence        = 0xED
	Enable3Gamma           = 0xF2
	PumpRatio              = 0xF7
)

// Memory access control bits, sent with dcs.SetAddressMode.
const (
	MY  = 0x80 // Row address order, bottom to top
	MX  = 0x40 // Column address order, right to left
	MV  = 0x20 // Row/column exchange
	ML  = 0x10 // Vertical refresh order, bottom to top
	BGR = 0x08 // Blue-green-red pixel order
	MH  = 0x04 // Horizontal refresh order, right to left
)

// Command is one step of an initialization sequence.
type Command struct {
	Command byte
	Data    []byte
	// Delay is slept after the command.
	Delay time.Duration
}

// MI0283QT is the initialization sequence of the MI0283QT module.
var MI0283QT = []Command{
	{Command: dcs.SoftReset, Delay: 20 * time.Millisecond},
	{Command: dcs.SetDisplayOff},
	{Command: PowerControlB, Data: []byte{0x00, 0x83, 0x30}},
	{Command: PowerOnSequence, Data: []byte{0x64, 0x03, 0x12, 0x81}},
	{Command: DriverTimingA, Data: []byte{0x85, 0x01, 0x79}},
	{Command: PowerControlA, Data: []byte{0x39, 0x2C, 0x00, 0x34, 0x02}},
	{Command: PumpRatio, Data: []byte{0x20}},
	{Command: DriverTimingB, Data: []byte{0x00, 0x00}},
	// Power control, VRH[5:0] and SAP[2:0] BT[3:0].
	{Command: PowerControl1, Data: []byte{0x26}},
	{Command: PowerControl2, Data: []byte{0x11}},
	// VCOM.
	{Command: VCOMControl1, Data: []byte{0x35, 0x3E}},
	{Command: VCOMControl2, Data: []byte{0xBE}},
	// Memory access control is sent once the panel is enabled.
	{Command: dcs.SetPixelFormat, Data: []byte{dcs.PixelFormatRGB}},
	{Command: FrameRateControl1, Data: []byte{0x00, 0x1B}},
	// Gamma.
	{Command: Enable3Gamma, Data: []byte{0x08}},
	{Command: dcs.SetGammaCurve, Data: []byte{0x01}},
	{Command: PositiveGamma, Data: []byte{
		0x1F, 0x1A, 0x18, 0x0A, 0x0F, 0x06, 0x45, 0x87,
		0x32, 0x0A, 0x07, 0x02, 0x07, 0x05, 0x00}},
	{Command: NegativeGamma, Data: []byte{
		0x00, 0x25, 0x27, 0x05, 0x10, 0x09, 0x3A, 0x78,
		0x4D, 0x05, 0x18, 0x0D, 0x38, 0x3A, 0x1F}},
	// DDRAM.
	{Command: DisplayFunctionControl, Data: []byte{0x0A, 0x82, 0x27, 0x00}},
	{Command: dcs.ExitSleepMode, Delay: 100 * time.Millisecond},
	{Command: dcs.SetDisplayOn, Delay: 100 * time.Millisecond},
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{Opts: mipidbi.DefaultOpts, Init: MI0283QT}

// Opts defines the options for the device.
type Opts struct {
	// W and H are ignored, they are set from the rotation.
	mipidbi.Opts
	// Init is the initialization sequence. Defaults to MI0283QT.
	Init []Command
}

// Dev is an open handle to an ILI9341 panel.
type Dev struct {
	*mipidbi.Dev
	init []Command
}

// NewSPI opens an ILI9341 panel and turns it on.
//
// Pass nil for dc to use 3-wire mode, see mipidbi.NewSPI.
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	o := opts.Opts
	o.W, o.H = Width, Height
	if o.Rotation == mipidbi.Rotate90 || o.Rotation == mipidbi.Rotate270 {
		o.W, o.H = Height, Width
	}
	d, err := mipidbi.NewSPI(p, dc, &o)
	if err != nil {
		return nil, err
	}
	dev := &Dev{Dev: d, init: opts.Init}
	if dev.init == nil {
		dev.init = MI0283QT
	}
	if err := dev.PowerOn(); err != nil {
		return nil, err
	}
	return dev, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ili9341.Dev{%s}", d.Dev)
}

// PowerOn powers the controller and sends the initialization sequence,
// unless the display was left on. It then programs the rotation.
//
// The backlight is turned on by the first Flush.
func (d *Dev) PowerOn() error {
	on, err := d.PrepareConditional()
	if err != nil {
		return err
	}
	if !on {
		for _, c := range d.init {
			if err := d.Command(c.Command, c.Data...); err != nil {
				return fmt.Errorf("ili9341: command %02Xh: %w", c.Command, err)
			}
			if c.Delay != 0 {
				sleep(c.Delay)
			}
		}
	}
	return d.Command(dcs.SetAddressMode, AddressMode(d.Rotation()))
}

// AddressMode returns the memory access control value for a rotation.
func AddressMode(r mipidbi.Rotation) byte {
	var v byte
	switch r {
	case mipidbi.Rotate90:
		v = MY
	case mipidbi.Rotate180:
		v = MV | MY | MX
	case mipidbi.Rotate270:
		v = MX
	default:
		v = MV
	}
	return v | BGR
}

var sleep = time.Sleep
