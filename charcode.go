// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// Character code prefixes of the processing_method and area_information
// fields. Each is 8 bytes.
var (
	charCodeASCII     = []byte("ASCII\x00\x00\x00")
	charCodeJIS       = []byte("JIS\x00\x00\x00\x00\x00")
	charCodeUnicode   = []byte("UNICODE\x00")
	charCodeUndefined = make([]byte, 8)
)

const charCodeLen = 8

// EncodeCharacterCode returns s with a character code prefix, ready to be
// stored in processing_method or area_information. 7-bit text is stored as
// ASCII, anything else as UTF-16 in the given byte order.
func EncodeCharacterCode(s string, byteOrder binary.ByteOrder) []byte {
	if isASCII(s) {
		return append(bytes.Clone(charCodeASCII), s...)
	}
	// Invalid UTF-8 is replaced by U+FFFD.
	b, _ := utf16Encoding(byteOrder, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	return append(bytes.Clone(charCodeUnicode), b...)
}

// DecodeCharacterCode decodes a value with a character code prefix.
// A missing or unknown prefix is read as ISO-8859-1.
func DecodeCharacterCode(b []byte, byteOrder binary.ByteOrder) (string, error) {
	if len(b) < charCodeLen {
		return decodeWith(charmap.ISO8859_1.NewDecoder(), b)
	}
	code, text := b[:charCodeLen], b[charCodeLen:]
	switch {
	case bytes.Equal(code, charCodeASCII):
		return string(trimTrailingNulls(text)), nil
	case bytes.Equal(code, charCodeUnicode):
		s, err := utf16Encoding(byteOrder, unicode.UseBOM).NewDecoder().Bytes(text)
		if err != nil {
			return "", err
		}
		return string(trimTrailingNulls(s)), nil
	case bytes.Equal(code, charCodeJIS):
		return decodeWith(japanese.ShiftJIS.NewDecoder(), text)
	case bytes.Equal(code, charCodeUndefined):
		return decodeWith(charmap.ISO8859_1.NewDecoder(), text)
	default:
		return decodeWith(charmap.ISO8859_1.NewDecoder(), b)
	}
}

func decodeWith(dec *encoding.Decoder, b []byte) (string, error) {
	s, err := dec.Bytes(trimTrailingNulls(b))
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// utf16Encoding returns UTF-16 in byteOrder. With UseBOM a leading BOM
// overrides it when decoding.
func utf16Encoding(byteOrder binary.ByteOrder, bom unicode.BOMPolicy) encoding.Encoding {
	if normalizeByteOrder(byteOrder) == binary.LittleEndian {
		return unicode.UTF16(unicode.LittleEndian, bom)
	}
	return unicode.UTF16(unicode.BigEndian, bom)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
