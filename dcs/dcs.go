// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dcs lists the MIPI Display Command Set commands used by DBI
// controllers.
//
// # Datasheets
//
// MIPI Alliance Specification for Display Command Set, version 1.02.00 and
// 1.3.
package dcs

// Commands.
const (
	Nop                  = 0x00
	SoftReset            = 0x01
	GetDisplayID         = 0x04
	GetRedChannel        = 0x06
	GetGreenChannel      = 0x07
	GetBlueChannel       = 0x08
	GetDisplayStatus     = 0x09
	GetPowerMode         = 0x0A
	GetAddressMode       = 0x0B
	GetPixelFormat       = 0x0C
	GetDisplayMode       = 0x0D
	GetSignalMode        = 0x0E
	GetDiagnosticResult  = 0x0F
	EnterSleepMode       = 0x10
	ExitSleepMode        = 0x11
	EnterPartialMode     = 0x12
	EnterNormalMode      = 0x13
	ExitInvertMode       = 0x20
	EnterInvertMode      = 0x21
	SetGammaCurve        = 0x26
	SetDisplayOff        = 0x28
	SetDisplayOn         = 0x29
	SetColumnAddress     = 0x2A
	SetPageAddress       = 0x2B
	WriteMemoryStart     = 0x2C
	WriteLUT             = 0x2D
	ReadMemoryStart      = 0x2E
	SetPartialArea       = 0x30
	SetScrollArea        = 0x33
	SetTearOff           = 0x34
	SetTearOn            = 0x35
	SetAddressMode       = 0x36
	SetScrollStart       = 0x37
	ExitIdleMode         = 0x38
	EnterIdleMode        = 0x39
	SetPixelFormat       = 0x3A
	WriteMemoryContinue  = 0x3C
	ReadMemoryContinue   = 0x3E
	SetTearScanline      = 0x44
	GetScanline          = 0x45
	SetDisplayBrightness = 0x51
	GetDisplayBrightness = 0x52
	WriteControlDisplay  = 0x53
	GetControlDisplay    = 0x54
	WritePowerSave       = 0x55
	GetPowerSave         = 0x56
	SetCABCMinBrightness = 0x5E
	GetCABCMinBrightness = 0x5F
	ReadDDBStart         = 0xA1
	ReadDDBContinue      = 0xA8
)

// ReadCommands is the default set of commands that return data.
//
// Commands not in this table are sent as writes.
var ReadCommands = []byte{
	GetDisplayID,
	GetRedChannel,
	GetGreenChannel,
	GetBlueChannel,
	GetDisplayStatus,
	GetPowerMode,
	GetAddressMode,
	GetPixelFormat,
	GetDisplayMode,
	GetSignalMode,
	GetDiagnosticResult,
	ReadMemoryStart,
	ReadMemoryContinue,
	GetScanline,
	GetDisplayBrightness, // DCS 1.3
	GetControlDisplay,    // DCS 1.3
	GetPowerSave,         // DCS 1.3
	GetCABCMinBrightness, // DCS 1.3
	ReadDDBStart,
	ReadDDBContinue,
}

// Power mode bits, as returned by GetPowerMode.
const (
	PowerModeBooster    = 1 << 7
	PowerModeIdle       = 1 << 6
	PowerModePartial    = 1 << 5
	PowerModeSleepOut   = 1 << 4
	PowerModeNormal     = 1 << 3
	PowerModeDisplayOn  = 1 << 2
	PowerModeReserved   = 1<<0 | 1<<1 | 1<<7
	PowerModeDisplayAll = PowerModeDisplayOn | PowerModeNormal | PowerModeSleepOut
)

// Pixel formats for SetPixelFormat. The DPI format is in bits 6-4 and the
// DBI format in bits 2-0.
const (
	PixelFormat3   = 1
	PixelFormat8   = 2
	PixelFormat12  = 3
	PixelFormat16  = 5
	PixelFormat18  = 6
	PixelFormat24  = 7
	PixelFormatRGB = PixelFormat16<<4 | PixelFormat16
)

// PixelFormatString describes a 3-bit DPI or DBI pixel format field.
func PixelFormatString(v byte) string {
	switch v {
	case 0, 4:
		return "Reserved"
	case PixelFormat3:
		return "3 bits/pixel"
	case PixelFormat8:
		return "8 bits/pixel"
	case PixelFormat12:
		return "12 bits/pixel"
	case PixelFormat16:
		return "16 bits/pixel"
	case PixelFormat18:
		return "18 bits/pixel"
	case PixelFormat24:
		return "24 bits/pixel"
	default:
		return "Illegal format"
	}
}

// HasDummyClock reports whether cmd is one of the legacy Nokia read
// commands whose reply starts with a dummy clock cycle on a 4-wire bus.
func HasDummyClock(cmd byte) bool {
	return cmd == GetDisplayID || cmd == GetDisplayStatus
}
