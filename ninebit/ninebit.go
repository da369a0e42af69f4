// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ninebit packs 9-bit MIPI DBI words for transports that only move
// 8-bit or 16-bit words.
//
// A 9-bit word is one D/C control bit followed by 8 payload bits. The
// control bit is 0 for a command and 1 for a parameter or pixel byte.
//
// On a port that supports 9 bits per word, each word is sent in a 16-bit
// container, see PutWords. On a plain 8-bit port, groups of 8 words are
// packed big-endian into 9 bytes, see Pack.
//
// Partial groups are padded with zero words. A zero word is the DCS NOP
// command, which the controller ignores.
package ninebit

import (
	"encoding/binary"
	"errors"
)

const (
	// GroupWords is the number of source bytes (words) in a packed group.
	GroupWords = 8
	// GroupBytes is the number of wire bytes a packed group occupies.
	GroupBytes = 9
)

var (
	// ErrChunkTooSmall is returned when a transfer cannot hold one group.
	ErrChunkTooSmall = errors.New("ninebit: max transfer size smaller than one group")
	// ErrShortGroup is returned when unpacking a buffer that is not made of
	// whole groups.
	ErrShortGroup = errors.New("ninebit: buffer is not a multiple of 9 bytes")
)

// Word is a 9-bit bus word. Bit 8 is the D/C control bit.
type Word uint16

// Encode returns the word carrying b with the given control bit.
func Encode(b byte, dc bool) Word {
	if dc {
		return Word(b) | 0x100
	}
	return Word(b)
}

// DC returns the control bit, true for data.
func (w Word) DC() bool {
	return w&0x100 != 0
}

// Data returns the payload byte.
func (w Word) Data() byte {
	return byte(w)
}

// PackedLen returns the number of wire bytes Pack emits for n source bytes.
func PackedLen(n int) int {
	return (n + GroupWords - 1) / GroupWords * GroupBytes
}

// Pack packs src into dst as 9-bit words sharing the control bit dc and
// returns the number of bytes written.
//
// Every group of 8 source bytes becomes 9 wire bytes. The last partial
// group is zero padded to a full 9 bytes. dst must hold PackedLen(len(src))
// bytes.
func Pack(dst, src []byte, dc bool) int {
	n := 0
	for len(src) >= GroupWords {
		packGroup(dst[n:n+GroupBytes], src[:GroupWords], dc)
		src = src[GroupWords:]
		n += GroupBytes
	}
	if len(src) != 0 {
		packPartial(dst[n:n+GroupBytes], src, dc)
		n += GroupBytes
	}
	return n
}

// PackCommand writes a lone command word into a 9-byte group.
//
// The command occupies the last slot, preceded by 7 NOP words, so that the
// last word the controller sees is the command itself.
func PackCommand(dst []byte, cmd byte) {
	for i := 0; i < GroupBytes-1; i++ {
		dst[i] = 0
	}
	dst[GroupBytes-1] = cmd
}

func packGroup(dst, src []byte, dc bool) {
	var tmp uint64
	for i := 0; i < GroupWords-1; i++ {
		tmp |= slot(src[i], i, dc)
	}
	// The 8th word's control bit is the lowest bit of the scratch word, its
	// payload is the 9th byte.
	if dc {
		tmp |= 1
	}
	binary.BigEndian.PutUint64(dst, tmp)
	dst[GroupBytes-1] = src[GroupWords-1]
}

func packPartial(dst, src []byte, dc bool) {
	var tmp uint64
	for i, b := range src {
		tmp |= slot(b, i, dc)
	}
	binary.BigEndian.PutUint64(dst, tmp)
	dst[GroupBytes-1] = 0
}

// slot places the 9-bit word for b at position pos (0 is the most
// significant) of a 64-bit scratch word.
func slot(b byte, pos int, dc bool) uint64 {
	v := uint64(b) << (63 - 8 - pos*9)
	if dc {
		v |= 1 << (63 - pos*9)
	}
	return v
}

// Unpack decodes whole 9-byte groups from src into dst and returns the
// number of words written. dst must hold len(src)/9*8 words.
func Unpack(dst []Word, src []byte) (int, error) {
	if len(src)%GroupBytes != 0 {
		return 0, ErrShortGroup
	}
	n := 0
	for ; len(src) != 0; src = src[GroupBytes:] {
		tmp := binary.BigEndian.Uint64(src)
		for i := 0; i < GroupWords-1; i++ {
			dst[n] = Word(tmp>>(63-8-i*9)) & 0x1FF
			n++
		}
		dst[n] = Word(tmp&1)<<8 | Word(src[GroupBytes-1])
		n++
	}
	return n, nil
}

// SourceChunk returns how many source bytes fit in one packed transfer of
// at most maxTx wire bytes when n bytes remain to be sent.
//
// The result is a multiple of GroupWords so that a group is never split
// across two transfers, and is never smaller than one group.
func SourceChunk(n, maxTx int) (int, error) {
	if maxTx < GroupBytes {
		return 0, ErrChunkTooSmall
	}
	c := maxTx / GroupBytes * GroupWords
	if n < c {
		c = n
	}
	c &^= GroupWords - 1
	if c < GroupWords {
		c = GroupWords
	}
	return c, nil
}

// PutWords encodes src as 9-bit words in host order 16-bit containers, the
// layout a port running at 9 bits per word expects. dst must hold
// 2*len(src) bytes.
func PutWords(dst, src []byte, dc bool) {
	for i, b := range src {
		binary.NativeEndian.PutUint16(dst[2*i:], uint16(Encode(b, dc)))
	}
}

// Words decodes host order 16-bit containers back into words. dst must
// hold len(src)/2 words.
func Words(dst []Word, src []byte) int {
	n := len(src) / 2
	for i := 0; i < n; i++ {
		dst[i] = Word(binary.NativeEndian.Uint16(src[2*i:])) & 0x1FF
	}
	return n
}
