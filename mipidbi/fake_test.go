// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mipidbi

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

var errBus = errors.New("bus error")

// record is one SPI packet as seen on the wire.
type record struct {
	DC     gpio.Level
	W      []byte
	R      int
	Bits   uint8
	KeepCS bool
}

// fakePort is a spi.Port and spi.Conn recording every packet with the D/C
// level at the time it is sent.
type fakePort struct {
	dc     *gpiotest.Pin
	bits   int
	speed  physic.Frequency
	limits []physic.Frequency
	maxTx  int
	reply  []byte
	// failAt makes the nth packet fail, counting from 1.
	failAt int
	n      int
	ops    []record
	busy   bool
}

func (f *fakePort) String() string {
	return "fake"
}

func (f *fakePort) Connect(freq physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	f.speed = freq
	f.bits = bits
	return f, nil
}

func (f *fakePort) LimitSpeed(freq physic.Frequency) error {
	f.limits = append(f.limits, freq)
	return nil
}

func (f *fakePort) Duplex() conn.Duplex {
	return conn.Half
}

func (f *fakePort) MaxTxSize() int {
	return f.maxTx
}

func (f *fakePort) Tx(w, r []byte) error {
	return f.TxPackets([]spi.Packet{{W: w, R: r}})
}

func (f *fakePort) TxPackets(p []spi.Packet) error {
	if f.busy {
		return errors.New("overlapping transfer")
	}
	f.busy = true
	defer func() { f.busy = false }()
	for _, pk := range p {
		f.n++
		if f.n == f.failAt {
			return errBus
		}
		rec := record{W: append([]byte(nil), pk.W...), R: len(pk.R), Bits: pk.BitsPerWord, KeepCS: pk.KeepCS}
		if rec.Bits == 0 {
			rec.Bits = uint8(f.bits)
		}
		if f.dc != nil {
			rec.DC = f.dc.Read()
		}
		copy(pk.R, f.reply)
		f.ops = append(f.ops, rec)
	}
	return nil
}

// cmdOps returns the DCLine packets of a command sent with 8 bits words.
func cmdOps(cmd byte, par ...byte) []record {
	r := []record{{DC: gpio.Low, W: []byte{cmd}, Bits: 8}}
	if len(par) != 0 {
		r = append(r, record{DC: gpio.High, W: par, Bits: 8})
	}
	return r
}

type fakeBacklight struct {
	levels []display.Intensity
	err    error
}

func (f *fakeBacklight) Backlight(i display.Intensity) error {
	f.levels = append(f.levels, i)
	return f.err
}

type fakeRegulator struct {
	calls []string
	err   error
}

func (f *fakeRegulator) Enable() error {
	f.calls = append(f.calls, "enable")
	return f.err
}

func (f *fakeRegulator) Disable() error {
	f.calls = append(f.calls, "disable")
	return f.err
}

// recordPin remembers every level it was set to.
type recordPin struct {
	gpiotest.Pin
	levels []gpio.Level
}

func (p *recordPin) Out(l gpio.Level) error {
	p.levels = append(p.levels, l)
	return p.Pin.Out(l)
}

// newDCLine returns a 4-wire Dev on a fake port.
func newDCLine(t *testing.T, opts Opts) (*Dev, *fakePort) {
	t.Helper()
	f := &fakePort{dc: &gpiotest.Pin{N: "DC"}, maxTx: opts.MaxTxSize}
	d, err := NewSPI(f, f.dc, &opts)
	if err != nil {
		t.Fatalf("NewSPI() failed: %v", err)
	}
	return d, f
}

// new3Wire returns a 3-wire Dev on a fake port.
func new3Wire(t *testing.T, opts Opts) (*Dev, *fakePort) {
	t.Helper()
	f := &fakePort{maxTx: opts.MaxTxSize}
	d, err := NewSPI(f, nil, &opts)
	if err != nil {
		t.Fatalf("NewSPI() failed: %v", err)
	}
	return d, f
}

// setLittleEndian forces the host byte order seen by the package.
func setLittleEndian(t *testing.T, le bool) {
	old := hostLittleEndian
	hostLittleEndian = le
	t.Cleanup(func() { hostLittleEndian = old })
}

// captureLog redirects the package logger.
func captureLog(t *testing.T) *[]string {
	var logs []string
	old := logf
	logf = func(format string, v ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, v...))
	}
	t.Cleanup(func() { logf = old })
	return &logs
}

// captureSleep records sleeps instead of waiting.
func captureSleep(t *testing.T) *[]time.Duration {
	var sleeps []time.Duration
	old := sleep
	sleep = func(d time.Duration) {
		sleeps = append(sleeps, d)
	}
	t.Cleanup(func() { sleep = old })
	return &sleeps
}
