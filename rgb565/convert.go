// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rgb565

import (
	"encoding/binary"
	"image"
)

// CopyRect copies the rectangle r of a 16 bits per pixel buffer src with
// row stride into dst, rows packed back to back. It returns the number of
// bytes written.
func CopyRect(dst, src []byte, stride int, r image.Rectangle) int {
	lineLen := 2 * r.Dx()
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := y*stride + 2*r.Min.X
		n += copy(dst[n:n+lineLen], src[off:off+lineLen])
	}
	return n
}

// SwapRect is CopyRect with the two bytes of every pixel exchanged.
func SwapRect(dst, src []byte, stride int, r image.Rectangle) int {
	lineLen := 2 * r.Dx()
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := y*stride + 2*r.Min.X
		Swap(dst[n:n+lineLen], src[off:off+lineLen])
		n += lineLen
	}
	return n
}

// ConvertXRGB8888 converts the rectangle r of a host order X8R8G8B8 buffer
// src with row stride into host order 5-6-5 pixels in dst. When swap is
// set the two bytes of every output pixel are exchanged. It returns the
// number of bytes written.
func ConvertXRGB8888(dst, src []byte, stride int, r image.Rectangle, swap bool) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		line := src[y*stride+4*r.Min.X : y*stride+4*r.Max.X]
		for x := 0; x < len(line); x += 4 {
			v := uint16(FromXRGB8888(binary.NativeEndian.Uint32(line[x:])))
			if swap {
				v = v<<8 | v>>8
			}
			binary.NativeEndian.PutUint16(dst[n:], v)
			n += 2
		}
	}
	return n
}

// Swap exchanges the bytes of each 16-bit word of src into dst. An odd
// trailing byte is copied as is.
func Swap(dst, src []byte) {
	i := 0
	for ; i+1 < len(src); i += 2 {
		dst[i], dst[i+1] = src[i+1], src[i]
	}
	if i < len(src) {
		dst[i] = src[i]
	}
}
