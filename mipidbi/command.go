// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mipidbi

import (
	"fmt"
	"strings"

	"github.com/GermanBionicSystems/dbi/dcs"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// IsReadCommand reports whether cmd returns data from the controller.
func (d *Dev) IsReadCommand(cmd byte) bool {
	for _, c := range d.readCmds {
		if c == cmd {
			return true
		}
	}
	return false
}

// Command sends cmd followed by its parameters.
//
// For a read command, params is the buffer the reply is read into.
func (d *Dev) Command(cmd byte, params ...byte) error {
	return d.CommandBuf(cmd, params)
}

// CommandBuf sends cmd followed by buf, or reads the reply into buf if cmd is
// a read command.
//
// Reads are only possible in DCLine mode; ErrUnsupported is returned
// otherwise. Display ID and display status replies must be 3 or 4 bytes.
func (d *Dev) CommandBuf(cmd byte, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.commandLocked(cmd, buf)
}

func (d *Dev) commandLocked(cmd byte, buf []byte) error {
	if d.IsReadCommand(cmd) {
		if d.mode != DCLine {
			return fmt.Errorf("mipidbi: command %02Xh: %w", cmd, ErrUnsupported)
		}
		return d.readLocked(cmd, buf)
	}
	if d.debug {
		d.logCommand(cmd, buf)
	}
	d.cmd[0] = cmd
	if err := d.transfer(false, d.cmd[:], 8); err != nil || len(buf) == 0 {
		return err
	}
	bpw := 8
	if cmd == dcs.WriteMemoryStart && !d.swap {
		bpw = 16
	}
	return d.transfer(true, buf, bpw)
}

// readLocked sends cmd then reads len(buf) bytes at a reduced clock.
func (d *Dev) readLocked(cmd byte, buf []byte) error {
	if d.writeOnly {
		return ErrAccessDenied
	}
	if len(buf) == 0 {
		return fmt.Errorf("mipidbi: command %02Xh: empty read: %w", cmd, ErrInvalidArgument)
	}
	n := len(buf)
	dummy := dcs.HasDummyClock(cmd)
	if dummy {
		// The 24 and 32 bits Nokia style replies start with a dummy clock.
		if n != 3 && n != 4 {
			return fmt.Errorf("mipidbi: command %02Xh: read must be 3 or 4 bytes, got %d: %w", cmd, n, ErrInvalidArgument)
		}
		n++
	}
	raw := buf
	if dummy {
		raw = d.wire[:n]
	}

	if err := d.p.LimitSpeed(readSpeed(d.maxSpeed)); err != nil {
		return err
	}
	err := d.rx(cmd, raw)
	if err2 := d.p.LimitSpeed(d.maxSpeed); err == nil {
		err = err2
	}
	if err != nil {
		return err
	}

	if dummy {
		for i := range buf {
			buf[i] = raw[i]<<1 | raw[i+1]>>7
		}
	}
	if d.debug {
		d.logCommand(cmd, buf)
	}
	return nil
}

// rx sends the command byte with the D/C line low, keeping CS asserted, then
// reads the reply with the D/C line high.
func (d *Dev) rx(cmd byte, raw []byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	d.cmd[0] = cmd
	if err := d.c.TxPackets([]spi.Packet{{W: d.cmd[:], BitsPerWord: 8, KeepCS: true}}); err != nil {
		return err
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	return d.c.TxPackets([]spi.Packet{{R: raw, BitsPerWord: 8}})
}

// readSpeed returns the clock used for reads.
func readSpeed(write physic.Frequency) physic.Frequency {
	if s := write / 2; s < maxReadSpeed {
		return s
	}
	return maxReadSpeed
}

// logCommand logs cmd and its parameters, or their count if there are many.
func (d *Dev) logCommand(cmd byte, par []byte) {
	switch {
	case len(par) == 0:
		logf("mipidbi: cmd=%02x", cmd)
	case len(par) <= 32:
		var b strings.Builder
		for i, p := range par {
			if i != 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%02x", p)
		}
		logf("mipidbi: cmd=%02x, par=%s", cmd, b.String())
	default:
		logf("mipidbi: cmd=%02x, len=%d", cmd, len(par))
	}
}
