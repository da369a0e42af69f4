// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mipidbi drives MIPI Display Bus Interface (DBI) Type C LCD
// controllers over SPI.
//
// A DBI controller receives 9-bit words: a D/C control bit, 0 for a command
// and 1 for a parameter, followed by 8 payload bits. Three wirings exist:
//
//   - Native9Bit: 3-wire SPI on a port that supports 9 bits per word.
//   - Emulated9Bit: 3-wire SPI on a plain 8-bit port. Groups of 8 words are
//     packed into 9 bytes.
//   - DCLine: 4-wire SPI, the control bit is carried by a dedicated GPIO.
//     This is the only wiring that supports reading registers back.
//
// The controller pixel memory is updated from a Framebuffer with Flush, which
// sends only the bounding rectangle of the dirty regions.
//
// Panel specific initialization sequences are left to the panel driver, see
// package ili9341 for an example.
//
// # Datasheets
//
// MIPI Alliance Specification for Display Bus Interface (DBI-2), version
// 2.00.
//
// MIPI Alliance Specification for Display Command Set (DCS), version 1.02.00.
package mipidbi
