// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dbisim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/GermanBionicSystems/dbi/ninebit"
	"github.com/GermanBionicSystems/dbi/rgb565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Wiring is how the controller is connected to the bus.
type Wiring int

// Supported wirings.
const (
	// FourWire selects commands and parameters with the D/C line, see
	// Panel.DC.
	FourWire Wiring = iota
	// ThreeWire carries the D/C bit in front of every byte.
	ThreeWire
)

func (w Wiring) String() string {
	switch w {
	case FourWire:
		return "FourWire"
	case ThreeWire:
		return "ThreeWire"
	default:
		return fmt.Sprintf("Wiring(%d)", int(w))
	}
}

var (
	// ErrTooLarge is returned for a packet above Opts.MaxTxSize.
	ErrTooLarge = errors.New("dbisim: transfer too large")
	// ErrWordSize is returned for a word size the port or wiring doesn't
	// support.
	ErrWordSize = errors.New("dbisim: unsupported bits per word")
	// ErrNoMISO is returned for a read on a bus without MISO.
	ErrNoMISO = errors.New("dbisim: read without MISO")
	// ErrReadDC is returned for a read while the D/C line is low.
	ErrReadDC = errors.New("dbisim: read with D/C low")
)

// Opts defines the simulated hardware.
type Opts struct {
	// W and H are the size of the pixel memory.
	W, H   int
	Wiring Wiring
	// Bits9 and Bits16 advertise support for 9 and 16 bits per word.
	Bits9  bool
	Bits16 bool
	// MaxTxSize is the largest packet accepted, in bytes.
	MaxTxSize int
	// WriteOnly is set when MISO is not connected.
	WriteOnly bool
	// ID is returned by the display ID register.
	ID [3]byte
	// Format is the default image format of the HTTP stream.
	Format ImageFormat
}

// DefaultOpts is a 320x240 ILI9341 on a 4-wire bus.
var DefaultOpts = Opts{
	W:         320,
	H:         240,
	MaxTxSize: 4096,
	ID:        [3]byte{0x00, 0x93, 0x41},
}

// Op is a command as received by the controller.
type Op struct {
	Cmd byte
	// Params is nil for memory writes.
	Params []byte
	// N is the number of parameter bytes received.
	N int
}

// Panel is a simulated display controller on a SPI bus.
type Panel struct {
	// DC is the D/C line in FourWire wiring. Pass it to the driver.
	DC gpiotest.Pin

	opts Opts
	rst  resetPin

	mu        sync.Mutex
	ctrl      controller
	bits      int
	speed     physic.Frequency
	readSpeed physic.Frequency
	err       error
	resets    int
	words     []ninebit.Word

	// HTTP stream.
	clients  map[*client]struct{}
	snapshot map[imageConfig][]byte
}

// New returns a Panel in its reset state.
func New(opts *Opts) *Panel {
	p := &Panel{
		DC:       gpiotest.Pin{N: "DC"},
		opts:     *opts,
		bits:     8,
		clients:  map[*client]struct{}{},
		snapshot: map[imageConfig][]byte{},
	}
	p.rst = resetPin{Pin: gpiotest.Pin{N: "RESET", L: gpio.High}, p: p}
	p.ctrl.init(opts.W, opts.H, opts.ID)
	return p
}

func (p *Panel) String() string {
	return fmt.Sprintf("dbisim{%s, %dx%d}", p.opts.Wiring, p.opts.W, p.opts.H)
}

// Connect implements spi.Port.
func (p *Panel) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if !p.wordSize(bits) {
		return nil, fmt.Errorf("%w: %d", ErrWordSize, bits)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bits = bits
	p.speed = f
	return p, nil
}

// LimitSpeed implements spi.Port.
func (p *Panel) LimitSpeed(f physic.Frequency) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speed = f
	return nil
}

// Duplex implements conn.Conn.
func (p *Panel) Duplex() conn.Duplex {
	return conn.Half
}

// MaxTxSize implements conn.Limits.
func (p *Panel) MaxTxSize() int {
	return p.opts.MaxTxSize
}

// Tx implements conn.Conn.
func (p *Panel) Tx(w, r []byte) error {
	return p.TxPackets([]spi.Packet{{W: w, R: r}})
}

// TxPackets implements spi.Conn.
func (p *Panel) TxPackets(pkts []spi.Packet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.changedLocked()
	for _, pk := range pkts {
		if p.err != nil {
			return p.err
		}
		if m := p.opts.MaxTxSize; m > 0 && (len(pk.W) > m || len(pk.R) > m) {
			return fmt.Errorf("%w: %d bytes", ErrTooLarge, max(len(pk.W), len(pk.R)))
		}
		bits := int(pk.BitsPerWord)
		if bits == 0 {
			bits = p.bits
		}
		if len(pk.W) != 0 {
			if err := p.writeLocked(pk.W, bits); err != nil {
				return err
			}
		}
		if len(pk.R) != 0 {
			if err := p.readLocked(pk.R); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Panel) wordSize(bits int) bool {
	switch bits {
	case 8:
		return true
	case 9:
		return p.opts.Bits9 && p.opts.Wiring == ThreeWire
	case 16:
		return p.opts.Bits16 && p.opts.Wiring == FourWire
	default:
		return false
	}
}

func (p *Panel) writeLocked(w []byte, bits int) error {
	if !p.wordSize(bits) {
		return fmt.Errorf("%w: %d", ErrWordSize, bits)
	}
	if p.opts.Wiring == FourWire {
		data := p.DC.Read() == gpio.High
		if bits == 16 {
			if len(w)%2 != 0 {
				return fmt.Errorf("dbisim: odd length %d with 16 bits words", len(w))
			}
			for i := 0; i < len(w); i += 2 {
				v := binary.NativeEndian.Uint16(w[i:])
				p.ctrl.write(byte(v>>8), data)
				p.ctrl.write(byte(v), data)
			}
			return nil
		}
		for _, b := range w {
			p.ctrl.write(b, data)
		}
		return nil
	}

	var n int
	if bits == 9 {
		if len(w)%2 != 0 {
			return fmt.Errorf("dbisim: odd length %d with 9 bits words", len(w))
		}
		p.growWords(len(w) / 2)
		n = ninebit.Words(p.words, w)
	} else {
		p.growWords(len(w) / ninebit.GroupBytes * ninebit.GroupWords)
		var err error
		if n, err = ninebit.Unpack(p.words, w); err != nil {
			return fmt.Errorf("dbisim: %w", err)
		}
	}
	for _, wd := range p.words[:n] {
		p.ctrl.write(wd.Data(), wd.DC())
	}
	return nil
}

func (p *Panel) growWords(n int) {
	if cap(p.words) < n {
		p.words = make([]ninebit.Word, n)
	}
	p.words = p.words[:n]
}

func (p *Panel) readLocked(r []byte) error {
	if p.opts.Wiring == ThreeWire || p.opts.WriteOnly {
		return ErrNoMISO
	}
	if p.DC.Read() == gpio.Low {
		return ErrReadDC
	}
	p.readSpeed = p.speed
	p.ctrl.reply(r)
	return nil
}

// Ops returns the commands received since the last ResetOps.
func (p *Panel) Ops() []Op {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Op, len(p.ctrl.ops))
	for i, op := range p.ctrl.ops {
		out[i] = Op{Cmd: op.Cmd, Params: append([]byte(nil), op.Params...), N: op.N}
	}
	return out
}

// ResetOps clears the command log.
func (p *Panel) ResetOps() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctrl.ops = nil
}

// Bounds returns the size of the pixel memory.
func (p *Panel) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.opts.W, p.opts.H)
}

// Pixel returns the pixel memory at x, y.
func (p *Panel) Pixel(x, y int) rgb565.Color {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl.mem.RGB565At(x, y)
}

// Image returns a copy of the pixel memory.
func (p *Panel) Image() *rgb565.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	img := rgb565.NewImage(p.ctrl.mem.Rect)
	copy(img.Pix, p.ctrl.mem.Pix)
	return img
}

// DisplayOn reports whether the display is on and out of sleep.
func (p *Panel) DisplayOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl.displayOn && !p.ctrl.sleeping
}

// Sleeping reports whether the controller is in sleep mode.
func (p *Panel) Sleeping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl.sleeping
}

// AddressMode returns the address mode register.
func (p *Panel) AddressMode() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl.madctl
}

// PixelFormat returns the pixel format register.
func (p *Panel) PixelFormat() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl.colmod
}

// Window returns the column and page address window.
func (p *Panel) Window() image.Rectangle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return image.Rect(p.ctrl.col0, p.ctrl.page0, p.ctrl.col1+1, p.ctrl.page1+1)
}

// Speed returns the current bus clock.
func (p *Panel) Speed() physic.Frequency {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// ReadSpeed returns the bus clock of the last register read.
func (p *Panel) ReadSpeed() physic.Frequency {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readSpeed
}

// Fail makes every following transfer fail with err. Use nil to recover.
func (p *Panel) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// ResetPin returns the active low reset line. Driving it low resets the
// controller.
func (p *Panel) ResetPin() gpio.PinOut {
	return &p.rst
}

// Resets returns how many times the reset line was pulled low.
func (p *Panel) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

// resetPin resets the controller when driven low.
type resetPin struct {
	gpiotest.Pin
	p *Panel
}

func (r *resetPin) Out(l gpio.Level) error {
	if err := r.Pin.Out(l); err != nil {
		return err
	}
	if l == gpio.Low {
		r.p.mu.Lock()
		r.p.ctrl.reset()
		r.p.resets++
		r.p.mu.Unlock()
	}
	return nil
}

var _ spi.Port = &Panel{}
var _ spi.Conn = &Panel{}
var _ conn.Limits = &Panel{}
var _ gpio.PinOut = &resetPin{}
