// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dbi is a container for the MIPI DBI Type C display controller
// packages.
//
// mipidbi drives any DCS compatible controller over a 3-wire or 4-wire SPI
// bus. ili9341 is a panel driver built on it. dbisim simulates a panel for
// tests and development without hardware.
package dbi
