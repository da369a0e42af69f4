// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config holds the YAML configuration of dbidemo: the panel wiring,
// the simulator settings and the redraw schedule.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/GermanBionicSystems/dbi/mipidbi"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// Panel drivers.
const (
	PanelILI9341 = "ili9341"
	// PanelGeneric only sends the DCS commands common to all controllers.
	PanelGeneric = "generic"
)

// Simulated wirings.
const (
	WiringFourWire  = "4-wire"
	WiringThreeWire = "3-wire"
)

// BusConfig describes how the controller is connected.
type BusConfig struct {
	// Port is the SPI port name as known by spireg. Empty selects the first
	// one.
	Port string `yaml:"port"`
	// Speed is the write clock, e.g. "16MHz".
	Speed string `yaml:"speed"`
	// DC is the D/C pin name. Empty selects 3-wire mode.
	DC string `yaml:"dc"`
	// Reset and Backlight are optional pin names.
	Reset     string `yaml:"reset,omitempty"`
	Backlight string `yaml:"backlight,omitempty"`
	// Bits9 and Bits16 declare the word sizes the port supports.
	Bits9  bool `yaml:"bits9,omitempty"`
	Bits16 bool `yaml:"bits16,omitempty"`
	// MaxTxSize caps a single transfer, 0 means the port limit.
	MaxTxSize int  `yaml:"max_tx_size,omitempty"`
	WriteOnly bool `yaml:"write_only,omitempty"`
}

// SimConfig configures the simulated panel used with -sim. Its size is the
// one of the panel.
type SimConfig struct {
	Wiring string `yaml:"wiring"`
	// Format is the HTTP stream image format, "png" or "jpeg".
	Format string `yaml:"format"`
	// Terminal renders the panel memory in the terminal, one character per
	// TermScale pixels.
	Terminal  bool `yaml:"terminal"`
	TermScale int  `yaml:"term_scale"`
}

// Config is the top-level dbidemo configuration.
type Config struct {
	// Panel selects the panel driver.
	Panel string `yaml:"panel"`
	// Rotation in degrees: 0, 90, 180 or 270.
	Rotation int `yaml:"rotation"`
	// W and H are the panel size for the generic driver. The ili9341 size
	// is fixed.
	W int `yaml:"width"`
	H int `yaml:"height"`

	Bus BusConfig `yaml:"bus"`
	Sim SimConfig `yaml:"sim"`

	// Refresh is a cron schedule for redrawing the clock.
	Refresh string `yaml:"refresh"`
	// Listen, when set, is the address the simulator stream is served on.
	Listen string `yaml:"listen,omitempty"`
	// Debug logs every command sent to the controller.
	Debug bool `yaml:"debug,omitempty"`
}

// DefaultConfig returns the configuration of an ILI9341 breakout on a
// Raspberry Pi.
func DefaultConfig() *Config {
	return &Config{
		Panel:    PanelILI9341,
		Rotation: 0,
		W:        320,
		H:        240,
		Bus: BusConfig{
			Speed:     "16MHz",
			DC:        "GPIO25",
			Reset:     "GPIO24",
			Backlight: "GPIO18",
		},
		Sim: SimConfig{
			Wiring:    WiringFourWire,
			Format:    "png",
			TermScale: 4,
		},
		Refresh: "* * * * *",
	}
}

// Normalize fills in missing values with the defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	switch c.Panel {
	case PanelILI9341, PanelGeneric:
	default:
		c.Panel = d.Panel
	}
	if c.W <= 0 || c.H <= 0 {
		c.W, c.H = d.W, d.H
	}
	if c.Bus.Speed == "" {
		c.Bus.Speed = d.Bus.Speed
	}
	if c.Sim.TermScale <= 0 {
		c.Sim.TermScale = d.Sim.TermScale
	}
	switch c.Sim.Wiring {
	case WiringFourWire, WiringThreeWire:
	default:
		c.Sim.Wiring = d.Sim.Wiring
	}
	if c.Sim.Format == "" {
		c.Sim.Format = d.Sim.Format
	}
	if c.Refresh == "" {
		c.Refresh = d.Refresh
	}
}

// Speed parses the bus clock.
func (c *Config) Speed() (physic.Frequency, error) {
	var f physic.Frequency
	if err := f.Set(c.Bus.Speed); err != nil {
		return 0, fmt.Errorf("config: bus speed %q: %w", c.Bus.Speed, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("config: bus speed %q must be positive", c.Bus.Speed)
	}
	return f, nil
}

// RotationValue converts Rotation to a mipidbi.Rotation.
func (c *Config) RotationValue() (mipidbi.Rotation, error) {
	switch c.Rotation {
	case 0:
		return mipidbi.Rotate0, nil
	case 90:
		return mipidbi.Rotate90, nil
	case 180:
		return mipidbi.Rotate180, nil
	case 270:
		return mipidbi.Rotate270, nil
	default:
		return 0, fmt.Errorf("config: invalid rotation %d", c.Rotation)
	}
}

// Load loads the configuration from the given YAML path.
//
// If the file does not exist, the default configuration is written to it and
// returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			return cfg, Save(path, cfg)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically, with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Write to a temp file in the same directory then rename.
	tmp, err := os.CreateTemp(dir, ".dbidemo-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
