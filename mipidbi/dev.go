// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mipidbi

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"sync"
	"time"

	"github.com/GermanBionicSystems/dbi/dcs"
	"github.com/GermanBionicSystems/dbi/rgb565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Mode is the bus wiring, selected once in NewSPI.
type Mode int

// Supported wirings.
const (
	// DCLine is 4-wire SPI with 8 bits per word and a D/C GPIO. It is also
	// known as Type C Option 3.
	DCLine Mode = iota
	// Native9Bit is 3-wire SPI with 9 bits per word, Type C Option 1.
	Native9Bit
	// Emulated9Bit is 3-wire SPI on a port without 9 bits per word support.
	Emulated9Bit
)

func (m Mode) String() string {
	switch m {
	case DCLine:
		return "DCLine"
	case Native9Bit:
		return "Native9Bit"
	case Emulated9Bit:
		return "Emulated9Bit"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Rotation is the panel rotation, counter clockwise.
type Rotation int

// Possible rotations.
const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

func (r Rotation) String() string {
	switch r {
	case Rotate0:
		return "0°"
	case Rotate90:
		return "90°"
	case Rotate180:
		return "180°"
	case Rotate270:
		return "270°"
	default:
		return fmt.Sprintf("Rotation(%d)", int(r))
	}
}

const (
	// defaultMaxTxSize caps a single transfer when neither the options nor the
	// connection set a lower limit.
	defaultMaxTxSize = 4096
	// maxReadSpeed is the highest clock used to read registers.
	maxReadSpeed = 2 * physic.MegaHertz
	// fullIntensity is the backlight intensity used when enabling.
	fullIntensity display.Intensity = 0xff
)

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	W:         320,
	H:         240,
	MaxSpeed:  16 * physic.MegaHertz,
	MaxTxSize: defaultMaxTxSize,
}

// Opts defines the options for the device.
type Opts struct {
	// W and H are the size of the pixel memory as addressed after rotation.
	W int
	H int
	// MaxSpeed is the bus clock for writes. Reads run at most at half this
	// speed, and never above 2MHz. The port is set back to it after each read,
	// so lower it with Dev.LimitSpeed rather than on the port directly.
	MaxSpeed physic.Frequency
	// Bits9 is set when the SPI port supports 9 bits per word. It is only
	// used in 3-wire mode.
	Bits9 bool
	// Bits16 is set when the SPI port supports 16 bits per word. Pixel data
	// is then streamed without byte swapping on little endian hosts.
	Bits16 bool
	// MaxTxSize limits the size of a single transfer in bytes. 0 means the
	// connection limit, or 4096.
	MaxTxSize int
	// WriteOnly is set when the MISO line is not connected.
	WriteOnly bool
	// ReadCommands lists the commands that return data. Defaults to
	// dcs.ReadCommands. It must not contain dcs.Nop.
	ReadCommands []byte
	// Reset is the optional active low reset line.
	Reset gpio.PinOut
	// Backlight is optional. It is turned on after the first Flush.
	Backlight display.DisplayBacklight
	// Regulator is the optional panel power supply.
	Regulator Regulator
	// EnableDelay is slept between the first Flush and turning on the
	// backlight.
	EnableDelay time.Duration
	// Rotation is recorded for panel drivers, see Dev.Rotation.
	Rotation Rotation
	// Debug logs every command sent.
	Debug bool
}

// NewSPI returns a Dev object that communicates over SPI to a MIPI DBI
// display controller.
//
// # Wiring
//
// Connect SDA to SPI_MOSI, SCL to SPI_CLK, CSX to SPI_CS, SDO to SPI_MISO if
// present.
//
// In 3-wire SPI mode, pass nil for 'dc'. In 4-wire SPI mode, pass a GPIO pin
// to use.
//
// The device must be powered and initialized before use, see Prepare.
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if dc == gpio.INVALID {
		return nil, fmt.Errorf("mipidbi: use nil for dc to use 3-wire mode, do not use gpio.INVALID: %w", ErrInvalidArgument)
	}
	if opts.W <= 0 || opts.H <= 0 || opts.W > 0x10000 || opts.H > 0x10000 {
		return nil, fmt.Errorf("mipidbi: invalid size %dx%d: %w", opts.W, opts.H, ErrInvalidArgument)
	}
	readCmds := opts.ReadCommands
	if readCmds == nil {
		readCmds = dcs.ReadCommands
	}
	for _, c := range readCmds {
		if c == dcs.Nop {
			return nil, fmt.Errorf("mipidbi: NOP can't be a read command: %w", ErrInvalidArgument)
		}
	}
	speed := opts.MaxSpeed
	if speed == 0 {
		speed = DefaultOpts.MaxSpeed
	}

	mode, bits := DCLine, 8
	if dc == nil {
		if opts.Bits9 {
			mode, bits = Native9Bit, 9
		} else {
			mode = Emulated9Bit
		}
	} else if err := dc.Out(gpio.Low); err != nil {
		return nil, err
	}
	c, err := p.Connect(speed, spi.Mode0, bits)
	if err != nil {
		return nil, err
	}

	maxTx := defaultMaxTxSize
	if opts.MaxTxSize > 0 && opts.MaxTxSize < maxTx {
		maxTx = opts.MaxTxSize
	}
	if l, ok := c.(conn.Limits); ok {
		if s := l.MaxTxSize(); s > 0 && s < maxTx {
			maxTx = s
		}
	}
	maxTx &^= 3
	if maxTx < 4 {
		maxTx = 4
	}

	w, h := opts.W, opts.H
	d := &Dev{
		p:         p,
		c:         c,
		dc:        dc,
		rst:       opts.Reset,
		backlight: opts.Backlight,
		regulator: opts.Regulator,
		mode:      mode,
		bits16:    opts.Bits16 && mode == DCLine,
		writeOnly: opts.WriteOnly,
		readCmds:  readCmds,
		maxSpeed:  speed,
		maxTx:     maxTx,
		rect:      image.Rect(0, 0, w, h),
		rotation:  opts.Rotation,
		delay:     opts.EnableDelay,
		debug:     opts.Debug,
		txBuf:     make([]byte, w*h*2),
		wire:      make([]byte, max(maxTx, 9)),
	}
	// Pixel words are host order. Swap them when they can't be sent as 16-bit
	// words, since the controller expects the most significant byte first.
	d.swap = hostLittleEndian && !d.bits16
	return d, nil
}

// Dev is an open handle to the display controller.
type Dev struct {
	// Communication
	p   spi.Port
	c   spi.Conn
	dc  gpio.PinOut
	rst gpio.PinOut

	backlight display.DisplayBacklight
	regulator Regulator

	// Immutable after NewSPI.
	mode      Mode
	bits16    bool
	swap      bool
	writeOnly bool
	readCmds  []byte
	maxTx     int
	rect      image.Rectangle
	rotation  Rotation
	delay     time.Duration
	debug     bool

	mu sync.Mutex
	// txBuf holds a converted frame, W*H*2 bytes.
	txBuf []byte
	// wire is the scratch buffer for one bus transfer.
	wire []byte
	// next is lazy initialized on first Draw().
	next *rgb565.Image
	// maxSpeed is the write clock restored after reads.
	maxSpeed physic.Frequency
	// cmd holds the command byte being sent.
	cmd      [1]byte
	enabled  bool
	prepared bool
	failing  bool
	closed   bool
}

func (d *Dev) String() string {
	if d.dc == nil {
		return fmt.Sprintf("mipidbi.Dev{%s, %s, %s}", d.c, d.mode, d.rect.Max)
	}
	return fmt.Sprintf("mipidbi.Dev{%s, %s, %s, %s}", d.c, d.dc, d.mode, d.rect.Max)
}

// Mode returns the wiring selected at construction.
func (d *Dev) Mode() Mode {
	return d.mode
}

// Rotation returns the rotation the panel driver must program.
func (d *Dev) Rotation() Rotation {
	return d.rotation
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw implements display.Drawer.
//
// Only the rectangle r is sent to the controller. It draws synchronously, once
// this function returns, the display is updated.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	r = r.Intersect(d.rect)
	if r.Empty() {
		return nil
	}
	if d.next == nil {
		d.next = rgb565.NewImage(d.rect)
	}
	draw.Src.Draw(d.next, r, src, sp)
	fb := Framebuffer{Pix: d.next.Pix, Stride: d.next.Stride, Rect: d.rect, Format: RGB565}
	return d.reportLocked(d.flushLocked(&fb, []image.Rectangle{r}))
}

// Write writes a full frame of host order RGB565 pixels, row by row.
//
// This function accepts the content of rgb565.Image.Pix.
func (d *Dev) Write(pixels []byte) (int, error) {
	if want := 2 * d.rect.Dx() * d.rect.Dy(); len(pixels) != want {
		return 0, fmt.Errorf("mipidbi: invalid pixel stream length; expected %d bytes, got %d bytes: %w", want, len(pixels), ErrInvalidArgument)
	}
	fb := Framebuffer{Pix: pixels, Stride: 2 * d.rect.Dx(), Rect: d.rect, Format: RGB565}
	if err := d.Flush(&fb, d.rect); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// Halt implements conn.Resource.
//
// It turns off the backlight, or blanks the display.
func (d *Dev) Halt() error {
	return d.Disable()
}

// Close disables the display if needed and releases the buffers. The Dev can't
// be used afterward.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	var err error
	if d.enabled || d.prepared {
		err = d.disableLocked()
	}
	d.closed = true
	d.txBuf = nil
	d.wire = nil
	d.next = nil
	return err
}

// Prepare powers the controller and resets it.
//
// It turns on the regulator, then pulses the reset line. The panel driver is
// expected to send its initialization sequence afterward. It is a no-op if
// the device is already prepared.
func (d *Dev) Prepare() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.prepared {
		return nil
	}
	_, err := d.prepareLocked(false)
	return err
}

// PrepareConditional is Prepare without the reset when the display is
// already on, for example left on by a boot loader. It reports whether the
// display was on, in which case the panel driver can skip its initialization
// sequence.
func (d *Dev) PrepareConditional() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false, ErrClosed
	}
	if d.prepared {
		return d.displayIsOnLocked(), nil
	}
	return d.prepareLocked(true)
}

func (d *Dev) prepareLocked(conditional bool) (bool, error) {
	if d.regulator != nil {
		if err := d.regulator.Enable(); err != nil {
			return false, fmt.Errorf("mipidbi: enabling regulator: %w: %w", ErrPowerSequence, err)
		}
	}
	if conditional && d.displayIsOnLocked() {
		d.prepared = true
		return true, nil
	}
	if err := d.hwResetLocked(); err != nil {
		return false, err
	}
	d.prepared = true
	return false, nil
}

// HWReset pulses the reset line if one was provided: low for 20ms, then high
// and a 120ms wait for the controller to come out of reset.
func (d *Dev) HWReset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.hwResetLocked()
}

// LimitSpeed lowers the bus clock used for writes. Reads derive their clock
// from it. A frequency above the current one is ignored.
func (d *Dev) LimitSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("mipidbi: invalid speed %s: %w", f, ErrInvalidArgument)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if f >= d.maxSpeed {
		return nil
	}
	if err := d.p.LimitSpeed(f); err != nil {
		return err
	}
	d.maxSpeed = f
	return nil
}

func (d *Dev) hwResetLocked() error {
	if d.rst == nil {
		return nil
	}
	if err := d.rst.Out(gpio.Low); err != nil {
		return err
	}
	sleep(20 * time.Millisecond)
	if err := d.rst.Out(gpio.High); err != nil {
		return err
	}
	sleep(120 * time.Millisecond)
	return nil
}

// reportLocked logs the first error of a series of failed updates.
func (d *Dev) reportLocked(err error) error {
	if err == nil {
		d.failing = false
		return nil
	}
	if !d.failing {
		logf("mipidbi: failed to update display: %v", err)
		d.failing = true
	}
	return err
}

var (
	logf  = log.Printf
	sleep = time.Sleep
)

var hostLittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

var _ conn.Resource = &Dev{}
var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
