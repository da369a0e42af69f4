// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mipidbi

import (
	"fmt"

	"github.com/GermanBionicSystems/dbi/ninebit"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// transfer sends buf as commands (data false) or parameters (data true).
//
// bpw is 8 or 16. 16 requests pixel words to be sent as 16-bit words; it is
// only honored in DCLine mode on a port with 16 bits support. Otherwise buf
// goes out as bytes, so it must already be most significant byte first.
//
// The buffer is split at maxTx. The first failed transfer aborts the rest.
func (d *Dev) transfer(data bool, buf []byte, bpw int) error {
	switch d.mode {
	case Native9Bit:
		return d.transfer9(data, buf)
	case Emulated9Bit:
		return d.transfer9e(data, buf)
	default:
		return d.transferDC(data, buf, bpw)
	}
}

// transfer9 sends each byte as a 9 bits word in a 16 bits container.
func (d *Dev) transfer9(data bool, buf []byte) error {
	words := d.maxTx / 2
	for len(buf) != 0 {
		chunk := min(len(buf), words)
		ninebit.PutWords(d.wire, buf[:chunk], data)
		if err := d.c.TxPackets([]spi.Packet{{W: d.wire[:2*chunk], BitsPerWord: 9}}); err != nil {
			return err
		}
		buf = buf[chunk:]
	}
	return nil
}

// transfer9e packs groups of 8 words in 9 bytes.
//
// A command is a single word padded at the front with NOPs. Parameters are
// sent in whole groups; the trailing partial group, if any, is sent on its own
// and padded at the end with NOPs.
func (d *Dev) transfer9e(data bool, buf []byte) error {
	if !data {
		if len(buf) != 1 {
			return fmt.Errorf("mipidbi: 3-wire command must be a single byte, got %d: %w", len(buf), ErrInvalidArgument)
		}
		ninebit.PackCommand(d.wire, buf[0])
		return d.c.Tx(d.wire[:ninebit.GroupBytes], nil)
	}
	maxChunk, err := ninebit.SourceChunk(len(buf), d.maxTx)
	if err != nil {
		return fmt.Errorf("mipidbi: %w: %w", ErrInvalidArgument, err)
	}
	for len(buf) != 0 {
		chunk := min(len(buf), maxChunk)
		if chunk >= ninebit.GroupWords {
			chunk &^= ninebit.GroupWords - 1
		}
		n := ninebit.Pack(d.wire, buf[:chunk], true)
		if err := d.c.Tx(d.wire[:n], nil); err != nil {
			return err
		}
		buf = buf[chunk:]
	}
	return nil
}

// transferDC drives the D/C line then sends buf.
func (d *Dev) transferDC(data bool, buf []byte, bpw int) error {
	if err := d.dc.Out(gpio.Level(data)); err != nil {
		return err
	}
	for len(buf) != 0 {
		chunk := min(len(buf), d.maxTx)
		var err error
		switch {
		case bpw == 16 && d.bits16:
			err = d.c.TxPackets([]spi.Packet{{W: buf[:chunk], BitsPerWord: 16}})
		default:
			err = d.c.Tx(buf[:chunk], nil)
		}
		if err != nil {
			return err
		}
		buf = buf[chunk:]
	}
	return nil
}
