// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dbisim simulates a MIPI DBI Type C display controller behind a SPI
// port.
//
// A Panel is both a spi.Port and the spi.Conn it returns. It decodes the bus
// words the way a controller does, runs the DCS command state machine, keeps
// the pixel memory and answers register reads. It is meant to exercise panel
// drivers without hardware, in tests or on a development host.
//
// The pixel memory can be shown on a terminal with Terminal, or streamed to a
// web browser since Panel implements http.Handler. The stream protocol is
// "MJPEG" (https://en.wikipedia.org/wiki/Motion_JPEG) as used by IP cameras;
// PNG is sent by default and JPEG can be selected with the "format" URL
// parameter.
//
// The memory is addressed as written. The address mode register is recorded
// and reported but doesn't change the layout of the memory.
package dbisim
