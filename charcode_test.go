// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag_test

import (
	"encoding/binary"
	"testing"

	"github.com/bep/geotag"

	qt "github.com/frankban/quicktest"
)

func TestCharacterCode(t *testing.T) {
	c := qt.New(t)

	c.Run("ASCII", func(c *qt.C) {
		b := geotag.EncodeCharacterCode("GPS", binary.BigEndian)
		c.Assert(b, qt.DeepEquals, []byte("ASCII\x00\x00\x00GPS"))
		s, err := geotag.DecodeCharacterCode(b, binary.BigEndian)
		c.Assert(err, qt.IsNil)
		c.Assert(s, qt.Equals, "GPS")
	})

	c.Run("Unicode", func(c *qt.C) {
		for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
			b := geotag.EncodeCharacterCode("Benalmádena", order)
			c.Assert(string(b[:8]), qt.Equals, "UNICODE\x00")
			c.Assert(b, qt.HasLen, 8+2*11)
			s, err := geotag.DecodeCharacterCode(b, order)
			c.Assert(err, qt.IsNil)
			c.Assert(s, qt.Equals, "Benalmádena")
		}

		b := geotag.EncodeCharacterCode("é", binary.BigEndian)
		c.Assert(b[8:], qt.DeepEquals, []byte{0x00, 0xe9})
	})

	c.Run("Unicode native endian", func(c *qt.C) {
		want := make([]byte, 2)
		binary.NativeEndian.PutUint16(want, 0xe9)
		b := geotag.EncodeCharacterCode("é", binary.NativeEndian)
		c.Assert(b[8:], qt.DeepEquals, want)
		s, err := geotag.DecodeCharacterCode(b, binary.NativeEndian)
		c.Assert(err, qt.IsNil)
		c.Assert(s, qt.Equals, "é")
	})

	c.Run("Unicode BOM", func(c *qt.C) {
		b := append([]byte("UNICODE\x00"), 0xff, 0xfe, 'O', 0, 'K', 0)
		s, err := geotag.DecodeCharacterCode(b, binary.BigEndian)
		c.Assert(err, qt.IsNil)
		c.Assert(s, qt.Equals, "OK")
	})

	c.Run("JIS", func(c *qt.C) {
		// "東京" in Shift JIS.
		b := append([]byte("JIS\x00\x00\x00\x00\x00"), 0x93, 0x8c, 0x8b, 0x9e)
		s, err := geotag.DecodeCharacterCode(b, binary.BigEndian)
		c.Assert(err, qt.IsNil)
		c.Assert(s, qt.Equals, "東京")
	})

	c.Run("Undefined", func(c *qt.C) {
		b := append(make([]byte, 8), 'M', 0xe1, 'l', 'a', 'g', 'a', 0)
		s, err := geotag.DecodeCharacterCode(b, binary.BigEndian)
		c.Assert(err, qt.IsNil)
		c.Assert(s, qt.Equals, "Málaga")
	})

	c.Run("No prefix", func(c *qt.C) {
		s, err := geotag.DecodeCharacterCode([]byte("GPS"), binary.BigEndian)
		c.Assert(err, qt.IsNil)
		c.Assert(s, qt.Equals, "GPS")

		s, err = geotag.DecodeCharacterCode([]byte("NETWORK-FIX"), binary.BigEndian)
		c.Assert(err, qt.IsNil)
		c.Assert(s, qt.Equals, "NETWORK-FIX")
	})
}
