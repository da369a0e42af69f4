// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"image"
	"time"

	"github.com/GermanBionicSystems/dbi/dbisim"
	"github.com/GermanBionicSystems/dbi/dcs"
	"github.com/GermanBionicSystems/dbi/ili9341"
	"github.com/GermanBionicSystems/dbi/internal/config"
	"github.com/GermanBionicSystems/dbi/mipidbi"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// screen is an opened display, real or simulated.
type screen struct {
	dev *mipidbi.Dev
	// sim is set when the display is simulated.
	sim  *dbisim.Panel
	term *dbisim.Terminal
	port spi.PortCloser
}

func (s *screen) Close() error {
	err := s.dev.Close()
	if s.term != nil {
		if err2 := s.term.Halt(); err == nil {
			err = err2
		}
	}
	if s.sim != nil {
		if err2 := s.sim.Halt(); err == nil {
			err = err2
		}
	}
	if s.port != nil {
		if err2 := s.port.Close(); err == nil {
			err = err2
		}
	}
	return err
}

// panelSize is the size of the frame buffer the driver uses.
func panelSize(cfg *config.Config) image.Point {
	if cfg.Panel == config.PanelGeneric {
		return image.Pt(cfg.W, cfg.H)
	}
	if cfg.Rotation == 90 || cfg.Rotation == 270 {
		return image.Pt(ili9341.Height, ili9341.Width)
	}
	return image.Pt(ili9341.Width, ili9341.Height)
}

// driverOpts converts the configuration to driver options. Pins are resolved
// by the caller.
func driverOpts(cfg *config.Config) (*mipidbi.Opts, error) {
	speed, err := cfg.Speed()
	if err != nil {
		return nil, err
	}
	rot, err := cfg.RotationValue()
	if err != nil {
		return nil, err
	}
	opts := mipidbi.DefaultOpts
	size := panelSize(cfg)
	opts.W, opts.H = size.X, size.Y
	opts.MaxSpeed = speed
	opts.Bits9 = cfg.Bus.Bits9
	opts.Bits16 = cfg.Bus.Bits16
	if cfg.Bus.MaxTxSize > 0 {
		opts.MaxTxSize = cfg.Bus.MaxTxSize
	}
	opts.WriteOnly = cfg.Bus.WriteOnly
	opts.Rotation = rot
	opts.Debug = cfg.Debug
	return &opts, nil
}

// start runs the panel driver over p.
func start(cfg *config.Config, p spi.Port, dc gpio.PinOut, opts *mipidbi.Opts) (*mipidbi.Dev, error) {
	if cfg.Panel == config.PanelILI9341 {
		d, err := ili9341.NewSPI(p, dc, &ili9341.Opts{Opts: *opts})
		if err != nil {
			return nil, err
		}
		return d.Dev, nil
	}
	d, err := mipidbi.NewSPI(p, dc, opts)
	if err != nil {
		return nil, err
	}
	if err := genericInit(d); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// genericInit is the minimal DCS power on sequence, for controllers without
// a dedicated driver.
func genericInit(d *mipidbi.Dev) error {
	if err := d.Prepare(); err != nil {
		return err
	}
	for _, c := range []struct {
		cmd   byte
		par   []byte
		delay time.Duration
	}{
		{dcs.SoftReset, nil, 150 * time.Millisecond},
		{dcs.ExitSleepMode, nil, 120 * time.Millisecond},
		{dcs.SetPixelFormat, []byte{dcs.PixelFormatRGB}, 0},
		{dcs.SetAddressMode, []byte{0}, 0},
		{dcs.EnterNormalMode, nil, 0},
		{dcs.SetDisplayOn, nil, 0},
	} {
		if err := d.Command(c.cmd, c.par...); err != nil {
			return fmt.Errorf("command %02Xh: %w", c.cmd, err)
		}
		sleep(c.delay)
	}
	return nil
}

// openHardware opens the SPI port and pins named in the configuration.
func openHardware(cfg *config.Config) (*screen, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	opts, err := driverOpts(cfg)
	if err != nil {
		return nil, err
	}
	var dc gpio.PinOut
	if cfg.Bus.DC != "" {
		if dc, err = pin(cfg.Bus.DC); err != nil {
			return nil, err
		}
	}
	if cfg.Bus.Reset != "" {
		if opts.Reset, err = pin(cfg.Bus.Reset); err != nil {
			return nil, err
		}
	}
	if cfg.Bus.Backlight != "" {
		bl, err := pin(cfg.Bus.Backlight)
		if err != nil {
			return nil, err
		}
		opts.Backlight = mipidbi.NewGPIOBacklight(bl)
	}
	p, err := spireg.Open(cfg.Bus.Port)
	if err != nil {
		return nil, err
	}
	d, err := start(cfg, p, dc, opts)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return &screen{dev: d, port: p}, nil
}

func pin(name string) (gpio.PinOut, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no pin named %q", name)
	}
	return p, nil
}

// openSim opens a simulated panel wired as the configuration says.
func openSim(cfg *config.Config) (*screen, error) {
	opts, err := driverOpts(cfg)
	if err != nil {
		return nil, err
	}
	format, err := dbisim.ImageFormatFromString(cfg.Sim.Format)
	if err != nil {
		return nil, err
	}
	simOpts := dbisim.DefaultOpts
	simOpts.W, simOpts.H = opts.W, opts.H
	simOpts.Format = format
	simOpts.Bits9 = opts.Bits9
	simOpts.Bits16 = opts.Bits16
	simOpts.WriteOnly = opts.WriteOnly
	if cfg.Bus.MaxTxSize > 0 {
		simOpts.MaxTxSize = cfg.Bus.MaxTxSize
	}
	if cfg.Sim.Wiring == config.WiringThreeWire {
		simOpts.Wiring = dbisim.ThreeWire
	}
	p := dbisim.New(&simOpts)
	opts.Reset = p.ResetPin()

	var dc gpio.PinOut
	if simOpts.Wiring == dbisim.FourWire {
		dc = &p.DC
	}
	d, err := start(cfg, p, dc, opts)
	if err != nil {
		return nil, err
	}
	s := &screen{dev: d, sim: p}
	if cfg.Sim.Terminal {
		s.term = dbisim.NewTerminal(p, &dbisim.TermOpts{Scale: cfg.Sim.TermScale})
	}
	return s, nil
}

// refresh updates the terminal view, if any.
func (s *screen) refresh() error {
	if s.term == nil {
		return nil
	}
	return s.term.Refresh()
}

var sleep = time.Sleep
