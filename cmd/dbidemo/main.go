// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// dbidemo draws a clock on a MIPI DBI SPI display and redraws it on a cron
// schedule.
//
// With -sim, the display is simulated. The simulated panel memory can be
// watched in the terminal with -term, or in a browser with -http.
//
// # Wiring
//
// Connect the controller to a Raspberry Pi:
//
//	Display    Raspberry Pi
//	GND        GND
//	VCC        3.3V
//	SCL        GPIO11 (SPI0 CLK)
//	SDA        GPIO10 (SPI0 MOSI)
//	SDO        GPIO9 (SPI0 MISO), optional
//	CSX        GPIO8 (SPI0 CE0)
//	D/C        GPIO25
//	RESET      GPIO24
//	LED        GPIO18
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/dbi/internal/config"
	"github.com/robfig/cron/v3"
)

func mainImpl() error {
	cfgPath := flag.String("config", "dbidemo.yaml", "path to the YAML configuration, created if missing")
	sim := flag.Bool("sim", false, "use a simulated panel")
	term := flag.Bool("term", false, "show the simulated panel in the terminal")
	listen := flag.String("http", "", "serve the simulated panel memory as an MJPEG stream on this address")
	dump := flag.Bool("dump", false, "print the controller registers and exit")
	once := flag.Bool("once", false, "draw once and exit")
	verbose := flag.Bool("v", false, "log every command")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *term {
		cfg.Sim.Terminal = true
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *verbose {
		cfg.Debug = true
	}

	var s *screen
	if *sim {
		s, err = openSim(cfg)
	} else {
		s, err = openHardware(cfg)
	}
	if err != nil {
		return err
	}
	defer s.Close()
	log.Printf("dbidemo: using %s", s.dev)

	if *dump {
		return s.dev.Dump(os.Stdout)
	}

	clk, err := newClock(s.dev.Bounds().Size())
	if err != nil {
		return err
	}
	caption := fmt.Sprintf("%s %s", s.dev.Mode(), s.dev.Rotation())
	redraw := func() error {
		img := clk.render(time.Now(), caption)
		if err := s.dev.Draw(s.dev.Bounds(), img, image.Point{}); err != nil {
			return err
		}
		return s.refresh()
	}
	if err := redraw(); err != nil {
		return err
	}
	if *once {
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Listen != "" {
		if s.sim == nil {
			return errors.New("-http requires -sim")
		}
		srv := &http.Server{Addr: cfg.Listen, Handler: s.sim}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("dbidemo: %v", err)
				cancel()
			}
		}()
		defer srv.Close()
		log.Printf("dbidemo: serving on http://%s/", cfg.Listen)
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Refresh, func() {
		if err := redraw(); err != nil {
			log.Printf("dbidemo: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", cfg.Refresh, err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "dbidemo: %s.\n", err)
		os.Exit(1)
	}
}
