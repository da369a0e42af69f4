// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dcs

import "testing"

func TestReadCommandsHaveNoNop(t *testing.T) {
	seen := map[byte]bool{}
	for _, c := range ReadCommands {
		if c == Nop {
			t.Errorf("ReadCommands contains NOP")
		}
		if seen[c] {
			t.Errorf("ReadCommands contains %#02x twice", c)
		}
		seen[c] = true
	}
}

func TestPixelFormatString(t *testing.T) {
	for v, want := range map[byte]string{
		0: "Reserved",
		1: "3 bits/pixel",
		4: "Reserved",
		5: "16 bits/pixel",
		7: "24 bits/pixel",
		8: "Illegal format",
	} {
		if got := PixelFormatString(v); got != want {
			t.Errorf("PixelFormatString(%d) = %q, want %q", v, got, want)
		}
	}
}

func TestHasDummyClock(t *testing.T) {
	for c := 0; c < 256; c++ {
		want := c == GetDisplayID || c == GetDisplayStatus
		if got := HasDummyClock(byte(c)); got != want {
			t.Errorf("HasDummyClock(%#02x) = %t, want %t", c, got, want)
		}
	}
}
