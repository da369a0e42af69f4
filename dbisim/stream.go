// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dbisim

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"log"
	"mime"
	"net/http"
	"net/textproto"
	"net/url"
	"sync"
)

// bufferPool stores reusable []byte instances.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return []byte(nil)
	},
}

type imageConfig struct {
	format ImageFormat
}

func (p *Panel) configFromQuery(values url.Values) (imageConfig, error) {
	cfg := imageConfig{format: p.opts.Format}
	if value := values.Get("format"); value != "" {
		format, err := ImageFormatFromString(value)
		if err != nil {
			return imageConfig{}, err
		}
		cfg.format = format
	}
	return cfg, nil
}

type client struct {
	refresh   chan struct{}
	terminate chan struct{}
}

// changedLocked drops the encoded snapshots and wakes up the clients if the
// pixel memory changed.
func (p *Panel) changedLocked() {
	if !p.ctrl.dirty {
		return
	}
	p.ctrl.dirty = false
	for cfg, buffer := range p.snapshot {
		if buffer != nil {
			//lint:ignore SA6002 buffer is []byte and thus pointer-like
			bufferPool.Put(buffer)
		}
		delete(p.snapshot, cfg)
	}
	for c := range p.clients {
		select {
		case c.refresh <- struct{}{}:
		default:
		}
	}
}

// Halt implements conn.Resource and terminates all running client requests
// asynchronously.
func (p *Panel) Halt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for c := range p.clients {
		select {
		case c.terminate <- struct{}{}:
		default:
		}
	}
	return nil
}

func (p *Panel) encodeLocked(format ImageFormat) ([]byte, error) {
	buf := bytes.NewBuffer(bufferPool.Get().([]byte)[:0])
	switch format {
	case PNG:
		if err := pngEncoder.Encode(buf, p.ctrl.mem); err != nil {
			return nil, err
		}
	case JPEG:
		if err := jpeg.Encode(buf, p.ctrl.mem, &jpegOptions); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("dbisim: unhandled image format %s", format)
	}
	return buf.Bytes(), nil
}

func (p *Panel) grabSnapshot(cfg imageConfig) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	encoded, ok := p.snapshot[cfg]
	if !ok {
		var err error
		if encoded, err = p.encodeLocked(cfg.format); err != nil {
			return nil, err
		}
		p.snapshot[cfg] = encoded
	}
	return append(bufferPool.Get().([]byte)[:0], encoded...), nil
}

// ServeHTTP handles HTTP GET requests and sends a stream of images of the
// pixel memory, a new one on every change. The panel options control the
// default format and clients can explicitly request PNG or JPEG images using
// the "format" parameter ("?format=png", "?format=jpeg").
func (p *Panel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.Body.Close(); err != nil {
		log.Printf("dbisim: closing request body failed: %v", err)
	}
	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	cfg, err := p.configFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pw := makePartWriter(w)
	w.Header().Set("Content-Type",
		mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{
			"boundary": pw.boundary,
		}))

	c := &client{
		refresh:   make(chan struct{}, 1),
		terminate: make(chan struct{}, 1),
	}
	p.mu.Lock()
	p.clients[c] = struct{}{}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.clients, c)
		p.mu.Unlock()
	}()

	partHeaders := make(textproto.MIMEHeader)
	partHeaders.Set("Content-Type", mime.FormatMediaType(cfg.format.mimeType(), nil))
	partHeaders.Set("Content-Transfer-Encoding", "binary")

	for {
		payload, err := p.grabSnapshot(cfg)
		if err != nil {
			log.Printf("dbisim: encoding image failed: %v", err)
			return
		}
		err = pw.writeFrame(partHeaders, payload)
		//lint:ignore SA6002 buffer is []byte and thus pointer-like
		bufferPool.Put(payload)
		if err != nil {
			// There's no way to deliver an error message within an image
			// stream, the request is silently terminated.
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		select {
		case <-c.refresh:
		case <-c.terminate:
			return
		case <-r.Context().Done():
			return
		}
	}
}

var _ http.Handler = &Panel{}
