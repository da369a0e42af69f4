// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mipidbi

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for malformed requests: an empty or
	// wrongly sized read, a transfer size too small for the wiring, a
	// framebuffer that doesn't match the display.
	ErrInvalidArgument = errors.New("mipidbi: invalid argument")
	// ErrUnsupportedFormat is returned when a Framebuffer has a pixel format
	// other than RGB565 or XRGB8888. It matches ErrInvalidArgument.
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported pixel format", ErrInvalidArgument)
	// ErrUnsupported is returned when reading a register on a 3-wire bus.
	ErrUnsupported = errors.New("mipidbi: read not supported by this wiring")
	// ErrAccessDenied is returned when reading from a write-only controller.
	ErrAccessDenied = errors.New("mipidbi: controller is write-only")
	// ErrPowerSequence is returned when the backlight or the regulator failed
	// to change state.
	ErrPowerSequence = errors.New("mipidbi: power sequence failed")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("mipidbi: device is closed")
)
