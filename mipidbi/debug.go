// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mipidbi

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/GermanBionicSystems/dbi/dcs"
)

// DisplayIsOn reads the power mode register and reports whether the display
// is on, in normal mode and out of sleep.
//
// It returns false if the register can't be read. Panel drivers use it to
// skip the initialization sequence when a boot loader already turned the
// display on, which avoids flicker.
func (d *Dev) DisplayIsOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	return d.displayIsOnLocked()
}

func (d *Dev) displayIsOnLocked() bool {
	var v [1]byte
	if err := d.commandLocked(dcs.GetPowerMode, v[:]); err != nil {
		return false
	}
	return v[0]&^dcs.PowerModeReserved == dcs.PowerModeDisplayAll
}

// Dump writes a human readable report of the controller status registers.
//
// Registers that can't be read are reported as failed. A controller that
// can't be read at all is reported as write-only.
func (d *Dev) Dump(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	var b strings.Builder
	d.dumpLocked(&b)
	_, err := io.WriteString(w, b.String())
	return err
}

func (d *Dev) dumpLocked(b *strings.Builder) {
	var buf [4]byte
	if err := d.commandLocked(dcs.GetPowerMode, buf[:1]); errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrUnsupported) {
		b.WriteString("Controller is write-only\n")
		return
	}

	// Read Display ID (04h) and Read Display Status (09h) are non-standard
	// commands most vendors implemented for Nokia.
	if d.readReg(b, dcs.GetDisplayID, "Display ID", buf[:3]) {
		fmt.Fprintf(b, "    ID1 = 0x%02x\n", buf[0])
		fmt.Fprintf(b, "    ID2 = 0x%02x\n", buf[1])
		fmt.Fprintf(b, "    ID3 = 0x%02x\n", buf[2])
	}

	if d.readReg(b, dcs.GetDisplayStatus, "Display status", buf[:4]) {
		stat := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
		bitOnOff(b, "Booster voltage status:", stat, 31)
		bitVal(b, "Row address order", stat, 30)
		bitVal(b, "Column address order", stat, 29)
		bitVal(b, "Row/column exchange", stat, 28)
		bitText(b, "Vertical refresh:", stat, 27, "Bottom to Top", "Top to Bottom")
		bitText(b, "RGB/BGR order:", stat, 26, "BGR", "RGB")
		bitText(b, "Horizontal refresh order:", stat, 25, "Right to Left", "Left to Right")
		bitReserved(b, stat, 24, 23)
		bitArray(b, "Interface color pixel format:", stat, 22, 20)
		bitOnOff(b, "Idle mode:", stat, 19)
		bitOnOff(b, "Partial mode:", stat, 18)
		bitText(b, "Sleep:", stat, 17, "Out", "In")
		bitOnOff(b, "Display normal mode:", stat, 16)
		bitOnOff(b, "Vertical scrolling status:", stat, 15)
		bitReserved(b, stat, 14, 14)
		bitVal(b, "Inversion status", stat, 13)
		bitVal(b, "All pixel ON", stat, 12)
		bitVal(b, "All pixel OFF", stat, 11)
		bitOnOff(b, "Display:", stat, 10)
		bitOnOff(b, "Tearing effect line:", stat, 9)
		bitArray(b, "Gamma curve selection:", stat, 8, 6)
		bitText(b, "Tearing effect line mode:", stat, 5, "Mode 2, both H-Blanking and V-Blanking", "Mode 1, V-Blanking only")
		bitReserved(b, stat, 4, 0)
	}

	if d.readReg(b, dcs.GetPowerMode, "Power mode", buf[:1]) {
		v := uint32(buf[0])
		bitText(b, "Booster", v, 7, "On", "Off or faulty")
		bitOnOff(b, "Idle Mode", v, 6)
		bitOnOff(b, "Partial Mode", v, 5)
		bitText(b, "Sleep", v, 4, "Out Mode", "In Mode")
		bitOnOff(b, "Display Normal Mode", v, 3)
		bitOnOff(b, "Display is", v, 2)
		bitReserved(b, v, 1, 0)
	}

	if d.readReg(b, dcs.GetAddressMode, "Address mode", buf[:1]) {
		v := uint32(buf[0])
		bitText(b, "Page Address Order:", v, 7, "Bottom to Top", "Top to Bottom")
		bitText(b, "Column Address Order:", v, 6, "Right to Left", "Left to Right")
		bitText(b, "Page/Column Order:", v, 5, "Reverse Mode", "Normal Mode")
		bitText(b, "Line Address Order: LCD Refresh", v, 4, "Bottom to Top", "Top to Bottom")
		bitText(b, "RGB/BGR Order:", v, 3, "BGR", "RGB")
		bitText(b, "Display Data Latch Data Order: LCD Refresh", v, 2, "Right to Left", "Left to Right")
		bitReserved(b, v, 1, 0)
	}

	if d.readReg(b, dcs.GetPixelFormat, "Pixel format", buf[:1]) {
		v := uint32(buf[0])
		dpi, dbi := buf[0]>>4&7, buf[0]&7
		bitReserved(b, v, 7, 7)
		fmt.Fprintf(b, "    D[6:4]=%d: DPI: %s\n", dpi, dcs.PixelFormatString(dpi))
		bitReserved(b, v, 3, 3)
		fmt.Fprintf(b, "    D[2:0]=%d: DBI: %s\n", dbi, dcs.PixelFormatString(dbi))
	}

	if d.readReg(b, dcs.GetDisplayMode, "Image Mode", buf[:1]) {
		v := uint32(buf[0])
		gc := v & 7
		bitOnOff(b, "Vertical Scrolling Status:", v, 7)
		bitReserved(b, v, 6, 6)
		bitOnOff(b, "Inversion:", v, 5)
		bitReserved(b, v, 4, 3)
		if gc < 4 {
			fmt.Fprintf(b, "    D[2:0]=%d: Gamma Curve Selection: GC%d\n", gc, gc)
		} else {
			fmt.Fprintf(b, "    D[2:0]=%d: Gamma Curve Selection: Reserved\n", gc)
		}
	}

	if d.readReg(b, dcs.GetSignalMode, "Signal Mode", buf[:1]) {
		v := uint32(buf[0])
		bitOnOff(b, "Tearing Effect Line:", v, 7)
		bitText(b, "Tearing Effect Line Output Mode: Mode", v, 6, "2", "1")
		bitReserved(b, v, 5, 0)
	}

	if d.readReg(b, dcs.GetDiagnosticResult, "Diagnostic result", buf[:1]) {
		v := uint32(buf[0])
		bitText(b, "Register Loading Detection:", v, 7, "OK", "Fault or reset")
		bitText(b, "Functionality Detection:", v, 6, "OK", "Fault or reset")
		bitText(b, "Chip Attachment Detection:", v, 5, "Fault", "OK or unimplemented")
		bitText(b, "Display Glass Break Detection:", v, 4, "Fault", "OK or unimplemented")
		bitReserved(b, v, 3, 0)
	}
}

// readReg reads a register and writes its header line.
func (d *Dev) readReg(b *strings.Builder, cmd byte, desc string, buf []byte) bool {
	if err := d.commandLocked(cmd, buf); err != nil {
		fmt.Fprintf(b, "\n%s: command %02Xh failed: %v\n", desc, cmd, err)
		return false
	}
	fmt.Fprintf(b, "\n%s (%02Xh=%x):\n", desc, cmd, buf)
	return true
}

func bit(v uint32, n uint) uint32 {
	return v >> n & 1
}

func bitVal(b *strings.Builder, desc string, v uint32, n uint) {
	fmt.Fprintf(b, "    D%d=%d: %s\n", n, bit(v, n), desc)
}

func bitReserved(b *strings.Builder, v uint32, end, start uint) {
	for i := int(end); i >= int(start); i-- {
		bitVal(b, "Reserved", v, uint(i))
	}
}

func bitArray(b *strings.Builder, desc string, v uint32, end, start uint) {
	mask := uint32(1)<<(end-start+1) - 1
	fmt.Fprintf(b, "    D[%d:%d]=%d: %s ", end, start, v>>start&mask, desc)
	for i := int(end); i >= int(start); i-- {
		fmt.Fprintf(b, "%d ", bit(v, uint(i)))
	}
	b.WriteByte('\n')
}

func bitText(b *strings.Builder, desc string, v uint32, n uint, on, off string) {
	s := off
	if bit(v, n) != 0 {
		s = on
	}
	fmt.Fprintf(b, "    D%d=%d: %s %s\n", n, bit(v, n), desc, s)
}

func bitOnOff(b *strings.Builder, desc string, v uint32, n uint) {
	bitText(b, desc, v, n, "On", "Off")
}
