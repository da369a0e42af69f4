// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dbisim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/GermanBionicSystems/dbi/dcs"
	"periph.io/x/conn/v3/gpio"
)

type streamCase struct {
	name          string
	opts          Opts
	target        string
	wantMediaType string

	onImage func(*testing.T, image.Image)
}

func (tc *streamCase) validatePart(t *testing.T, part *multipart.Part) {
	t.Helper()
	contentLength, err := strconv.ParseInt(part.Header.Get("Content-Length"), 10, 32)
	if err != nil {
		t.Errorf("Parsing Content-Length header failed: %v", err)
	}
	decodeFunc := func(io.Reader) (image.Image, error) {
		return nil, errors.New("unknown image format")
	}
	if mediaType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type")); err != nil {
		t.Errorf("ParseMediaType() failed: %v", err)
	} else if mediaType != tc.wantMediaType {
		t.Errorf("Got content-type %q, want %q", mediaType, tc.wantMediaType)
	} else {
		switch mediaType {
		case "image/png":
			decodeFunc = png.Decode
		case "image/jpeg":
			decodeFunc = jpeg.Decode
		}
	}

	if content, err := io.ReadAll(part); err != nil {
		t.Errorf("ReadAll() failed: %v", err)
	} else if got, want := len(content), int(contentLength); got != want {
		t.Errorf("Read %d bytes, Content-Length header is %d", got, want)
	} else if img, err := decodeFunc(bytes.NewReader(content)); err != nil {
		t.Errorf("Decoding image failed: %v", err)
	} else if got, want := img.Bounds().Size(), (image.Point{tc.opts.W, tc.opts.H}); got != want {
		t.Errorf("Got image size %v, want %v", got, want)
	} else if tc.onImage != nil {
		tc.onImage(t, img)
	}
	if err := part.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
}

func (tc *streamCase) validateResponse(t *testing.T, resp *http.Response) {
	t.Helper()
	if got, want := resp.StatusCode, http.StatusOK; got != want {
		t.Errorf("ServeHTTP() status %d, want %d", got, want)
	}
	mediaType, mediaParams, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		t.Errorf("ParseMediaType() failed: %v", err)
		return
	}
	if got, want := mediaType, "multipart/x-mixed-replace"; got != want {
		t.Errorf("Content-Type is %q, want %q", got, want)
		return
	}
	boundary, ok := mediaParams["boundary"]
	if !(ok && len(boundary) > 50) {
		t.Errorf("Insufficient boundary: %s", boundary)
		return
	}
	mr := multipart.NewReader(resp.Body, boundary)
	for {
		if part, err := mr.NextPart(); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			t.Errorf("NextPart() failed: %v", err)
			break
		} else {
			tc.validatePart(t, part)
		}
	}
}

// paint fills the memory of p with a new color.
func paint(t *testing.T, p *Panel, c byte) {
	t.Helper()
	if err := p.DC.Out(gpio.Low); err != nil {
		t.Error(err)
		return
	}
	if err := p.Tx([]byte{dcs.WriteMemoryStart}, nil); err != nil {
		t.Error(err)
		return
	}
	if err := p.DC.Out(gpio.High); err != nil {
		t.Error(err)
		return
	}
	px := bytes.Repeat([]byte{c}, 2*p.opts.W*p.opts.H)
	for len(px) != 0 {
		n := min(len(px), p.opts.MaxTxSize)
		if err := p.Tx(px[:n], nil); err != nil {
			t.Error(err)
			return
		}
		px = px[n:]
	}
}

func TestMultipartResponse(t *testing.T) {
	for _, tc := range []streamCase{
		{
			name:          "defaults",
			opts:          Opts{W: 120, H: 200, MaxTxSize: 4096},
			target:        "/",
			wantMediaType: "image/png",
		},
		{
			name:          "default JPEG",
			opts:          Opts{W: 200, H: 100, MaxTxSize: 4096, Format: JPEG},
			target:        "/",
			wantMediaType: "image/jpeg",
		},
		{
			name:          "format param PNG",
			opts:          Opts{W: 64, H: 32, MaxTxSize: 4096, Format: JPEG},
			target:        "/?format=png",
			wantMediaType: "image/png",
		},
		{
			name:          "format param JPEG",
			opts:          Opts{W: 16, H: 48, MaxTxSize: 4096},
			target:        "/?format=jpeg",
			wantMediaType: "image/jpeg",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			t.Cleanup(cancel)

			p := New(&tc.opts)
			srv := httptest.NewServer(p)
			t.Cleanup(srv.Close)
			t.Cleanup(srv.CloseClientConnections)

			quit := make(chan struct{})
			remaining := 5
			tc.onImage = func(*testing.T, image.Image) {
				if remaining == 0 {
					tc.onImage = nil
					defer close(quit)
					if err := p.Halt(); err != nil {
						t.Errorf("Halt() failed: %v", err)
					}
				} else {
					remaining--
				}
			}

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; ; i++ {
					paint(t, p, byte(i))
					select {
					case <-quit:
						return
					case <-ctx.Done():
						return
					default:
					}
					time.Sleep(10 * time.Millisecond)
				}
			}()

			if resp, err := srv.Client().Get(srv.URL + tc.target); err != nil {
				t.Errorf("Get() failed: %v", err)
			} else {
				tc.validateResponse(t, resp)
			}
			if t.Failed() {
				cancel()
			}
			wg.Wait()
		})
	}
}

func TestSnapshotPixels(t *testing.T) {
	p := New(&Opts{W: 2, H: 1, MaxTxSize: 16})
	send(t, p, dcs.WriteMemoryStart, 0xF8, 0x00, 0x00, 0x1F)
	cfg := imageConfig{format: PNG}
	b, err := p.grabSnapshot(cfg)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if r, g, bl, _ := img.At(0, 0).RGBA(); r != 0xFFFF || g != 0 || bl != 0 {
		t.Errorf("pixel 0 = %x %x %x", r, g, bl)
	}
	if r, g, bl, _ := img.At(1, 0).RGBA(); r != 0 || g != 0 || bl != 0xFFFF {
		t.Errorf("pixel 1 = %x %x %x", r, g, bl)
	}
	if _, ok := p.snapshot[cfg]; !ok {
		t.Error("snapshot not cached")
	}
	send(t, p, dcs.SetDisplayOn)
	if _, ok := p.snapshot[cfg]; !ok {
		t.Error("a command without memory write dropped the snapshot")
	}
	send(t, p, dcs.WriteMemoryStart, 0, 0)
	if _, ok := p.snapshot[cfg]; ok {
		t.Error("snapshot not dropped after a memory write")
	}
}

func TestRequestStatus(t *testing.T) {
	for _, tc := range []struct {
		method     string
		target     string
		wantStatus int
	}{
		{
			target:     "/?format=",
			wantStatus: http.StatusOK,
		},
		{
			target:     "/?format=bmp",
			wantStatus: http.StatusBadRequest,
		},
		{
			method:     http.MethodPost,
			target:     "/",
			wantStatus: http.StatusMethodNotAllowed,
		},
	} {
		t.Run(fmt.Sprint(tc), func(t *testing.T) {
			p := New(&Opts{W: 16, H: 16})
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			t.Cleanup(cancel)

			srv := httptest.NewServer(p)
			t.Cleanup(srv.Close)
			t.Cleanup(srv.CloseClientConnections)

			req, err := http.NewRequestWithContext(ctx, tc.method, srv.URL+tc.target, nil)
			if err != nil {
				t.Fatalf("NewRequest() failed: %v", err)
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatalf("Do() failed: %v", err)
			}
			defer resp.Body.Close()
			if got, want := resp.StatusCode, tc.wantStatus; got != want {
				t.Errorf("Request for %s %s returned status %d (%s), want %d",
					req.Method, req.URL.String(), got, resp.Status, want)
			}
		})
	}
}

var boundaryRe = regexp.MustCompile(`^[a-f0-9]{60,70}$`)

func TestRandomBoundary(t *testing.T) {
	for i := 0; i < 100; i++ {
		if got := randomBoundary(); !boundaryRe.MatchString(got) {
			t.Errorf("Boundary must match the expression %q: %s", boundaryRe.String(), got)
		}
	}
}

func TestWriteFrame(t *testing.T) {
	var b bytes.Buffer
	pw := makePartWriter(&b)
	h := map[string][]string{"Content-Type": {"image/png"}}
	if err := pw.writeFrame(h, []byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := pw.writeFrame(h, []byte("de")); err != nil {
		t.Fatal(err)
	}
	mr := multipart.NewReader(&b, pw.boundary)
	for _, want := range []string{"abc", "de"} {
		part, err := mr.NextPart()
		if err != nil {
			t.Fatal(err)
		}
		got, err := io.ReadAll(part)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("part = %q, want %q", got, want)
		}
		if l := part.Header.Get("Content-Length"); l != strconv.Itoa(len(want)) {
			t.Errorf("Content-Length = %q", l)
		}
	}
}

func TestImageFormat(t *testing.T) {
	for _, tc := range []struct {
		format       ImageFormat
		wantString   string
		wantMimeType string
	}{
		{
			format:       ImageFormat(-1),
			wantString:   "-1",
			wantMimeType: "application/octet-stream",
		},
		{
			format:       DefaultFormat,
			wantString:   "PNG",
			wantMimeType: "image/png",
		},
		{
			format:       JPEG,
			wantString:   "JPEG",
			wantMimeType: "image/jpeg",
		},
	} {
		t.Run(fmt.Sprint(tc), func(t *testing.T) {
			if got := tc.format.String(); got != tc.wantString {
				t.Errorf("String() returned %q, want %q", got, tc.wantString)
			}
			if got := tc.format.mimeType(); got != tc.wantMimeType {
				t.Errorf("mimeType() returned %q, want %q", got, tc.wantMimeType)
			}
		})
	}
}

func TestImageFormatFromString(t *testing.T) {
	for in, want := range map[string]ImageFormat{"png": PNG, "jpg": JPEG, "jpeg": JPEG} {
		if got, err := ImageFormatFromString(in); err != nil || got != want {
			t.Errorf("ImageFormatFromString(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ImageFormatFromString("gif"); err == nil {
		t.Error("gif accepted")
	}
}
