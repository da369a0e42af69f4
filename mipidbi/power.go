// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mipidbi

import (
	"fmt"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

// Regulator is a power supply the driver turns on in Prepare and off in
// Disable.
type Regulator interface {
	Enable() error
	Disable() error
}

// GPIOBacklight is a backlight switched by a single GPIO pin.
//
// Any non zero intensity turns it on.
type GPIOBacklight struct {
	pin gpio.PinOut
}

// NewGPIOBacklight returns a backlight driven by pin, active high.
func NewGPIOBacklight(pin gpio.PinOut) *GPIOBacklight {
	return &GPIOBacklight{pin: pin}
}

// Backlight implements display.DisplayBacklight.
func (b *GPIOBacklight) Backlight(intensity display.Intensity) error {
	if intensity == 0 {
		return b.pin.Out(gpio.Low)
	}
	return b.pin.Out(gpio.High)
}

func (b *GPIOBacklight) String() string {
	return fmt.Sprintf("GPIOBacklight{%s}", b.pin)
}

// GPIORegulator is a load switch enabled by a single GPIO pin.
type GPIORegulator struct {
	pin       gpio.PinOut
	activeLow bool
}

// NewGPIORegulator returns a regulator driven by pin. Set activeLow when the
// enable input of the switch is inverted.
func NewGPIORegulator(pin gpio.PinOut, activeLow bool) *GPIORegulator {
	return &GPIORegulator{pin: pin, activeLow: activeLow}
}

// Enable implements Regulator.
func (r *GPIORegulator) Enable() error {
	return r.pin.Out(gpio.Level(!r.activeLow))
}

// Disable implements Regulator.
func (r *GPIORegulator) Disable() error {
	return r.pin.Out(gpio.Level(r.activeLow))
}

func (r *GPIORegulator) String() string {
	return fmt.Sprintf("GPIORegulator{%s}", r.pin)
}

var _ display.DisplayBacklight = &GPIOBacklight{}
var _ Regulator = &GPIORegulator{}
