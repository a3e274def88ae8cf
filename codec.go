// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// decodeEntry converts a raw entry to its Go value.
// Entries that disagree with the schema are rejected with a
// *FormatMismatchError; nothing is read from them.
func decodeEntry(s *tagSchema, e *Entry, byteOrder binary.ByteOrder) (any, error) {
	mismatch := func(format string, args ...any) error {
		return &FormatMismatchError{
			Field:  s.field,
			Format: e.Format,
			Count:  e.Count,
			Size:   len(e.Data),
			Reason: fmt.Sprintf(format, args...),
		}
	}

	if e.Format != s.format {
		return nil, mismatch("expected format %s", s.format)
	}
	if !s.variable() && e.Count != s.count {
		return nil, mismatch("expected %d components", s.count)
	}
	if !e.sizeOK() {
		return nil, mismatch("expected %d bytes", uint64(e.Count)*uint64(e.Format.Size()))
	}

	b := e.Data

	switch s.kind {
	case kindVersion:
		return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3]), nil
	case kindRef:
		return string(trimTrailingNulls(b[:1])), nil
	case kindByte:
		return b[0], nil
	case kindShort:
		return byteOrder.Uint16(b), nil
	case kindRational:
		r, ok := readRat(b, byteOrder)
		if !ok {
			return nil, mismatch("zero denominator")
		}
		return r, nil
	case kindTriple:
		rats := make([]Rat, 3)
		for i := range rats {
			r, ok := readRat(b[i*8:], byteOrder)
			if !ok {
				return nil, mismatch("zero denominator in component %d", i)
			}
			rats[i] = r
		}
		return rats, nil
	case kindString, kindDate:
		return string(trimTrailingNulls(b)), nil
	case kindBytes:
		return bytes.Clone(b), nil
	default:
		return nil, mismatch("unsupported tag")
	}
}

// encodeEntry replaces the value of e with v.
//
// A *ShapeError means v has the wrong number of parts; e is left untouched.
// A *TypeError means v cannot be stored in this field at all.
func (u *updater) encodeEntry(s *tagSchema, e *Entry, v any) error {
	var (
		data  []byte
		count uint32
	)

	switch s.kind {
	case kindVersion:
		str, err := toString(s.field, v, "version string")
		if err != nil {
			return err
		}
		parts := strings.Split(str, ".")
		if len(parts) != 4 {
			return &ShapeError{Field: s.field, Want: "4 dot separated parts", Got: str}
		}
		data = make([]byte, 4)
		for i, p := range parts {
			n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
			if err != nil {
				return &TypeError{Field: s.field, Value: v, Want: "version parts in 0..255"}
			}
			data[i] = byte(n)
		}
		count = 4
	case kindRef:
		str, err := toString(s.field, v, "string")
		if err != nil {
			return err
		}
		if str == "" {
			return &ShapeError{Field: s.field, Want: "one character", Got: `""`}
		}
		data = []byte{str[0], 0}
		count = 2
	case kindByte:
		n, err := toUint(s.field, v, math.MaxUint8)
		if err != nil {
			return err
		}
		data = []byte{byte(n)}
		count = 1
	case kindShort:
		n, err := toUint(s.field, v, math.MaxUint16)
		if err != nil {
			return err
		}
		data = make([]byte, 2)
		u.byteOrder.PutUint16(data, uint16(n))
		count = 1
	case kindRational:
		r, err := u.toRat(s.field, v)
		if err != nil {
			return err
		}
		data = make([]byte, 8)
		if err := putRat(data, r, u.byteOrder); err != nil {
			return &TypeError{Field: s.field, Value: v, Want: err.Error()}
		}
		count = 1
	case kindTriple:
		rats, err := u.toTriple(s.field, v)
		if err != nil {
			return err
		}
		data = make([]byte, 24)
		for i, r := range rats {
			if err := putRat(data[i*8:], r, u.byteOrder); err != nil {
				return &TypeError{Field: s.field, Value: v, Want: err.Error()}
			}
		}
		count = 3
	case kindString:
		str, err := toString(s.field, v, "string")
		if err != nil {
			return err
		}
		data = make([]byte, len(str)+1)
		copy(data, str)
		count = uint32(len(data))
	case kindBytes:
		switch vv := v.(type) {
		case []byte:
			data = bytes.Clone(vv)
		case string:
			// Plain text gets a character code in the byte order of the IFD.
			data = EncodeCharacterCode(vv, u.byteOrder)
		default:
			return &TypeError{Field: s.field, Value: v, Want: "bytes or string"}
		}
		if data == nil {
			data = []byte{}
		}
		count = uint32(len(data))
	case kindDate:
		str, err := toString(s.field, v, "date string")
		if err != nil {
			return err
		}
		if len(str) != 10 {
			return &ShapeError{Field: s.field, Want: `10 characters "YYYY:MM:DD"`, Got: strconv.Quote(str)}
		}
		data = make([]byte, 11)
		copy(data, str)
		count = 11
	default:
		return fmt.Errorf("geotag: no encoder for field %s", s.field)
	}

	// The old buffer is dropped, never reused or appended to.
	e.Format = s.format
	e.Count = count
	e.Data = data

	return nil
}

// readRat reads an unsigned rational. A stored 0/0 reads as 0/1;
// any other zero denominator is rejected.
func readRat(b []byte, byteOrder binary.ByteOrder) (Rat, bool) {
	n, d := byteOrder.Uint32(b[:4]), byteOrder.Uint32(b[4:8])
	if d == 0 {
		if n == 0 {
			return Rat{num: 0, den: 1}, true
		}
		return Rat{}, false
	}
	return Rat{num: int64(n), den: int64(d)}, true
}

func putRat(b []byte, r Rat, byteOrder binary.ByteOrder) error {
	r = r.norm()
	if r.den < 0 {
		r.num, r.den = -r.num, -r.den
	}
	switch {
	case r.den == 0:
		return fmt.Errorf("non-zero denominator")
	case r.num < 0:
		return fmt.Errorf("non-negative rational")
	case r.num > math.MaxUint32 || r.den > math.MaxUint32:
		return fmt.Errorf("rational with 32-bit numerator and denominator")
	}
	byteOrder.PutUint32(b[:4], uint32(r.num))
	byteOrder.PutUint32(b[4:8], uint32(r.den))
	return nil
}

func (u *updater) toRat(f Field, v any) (Rat, error) {
	switch vv := v.(type) {
	case Rat:
		return vv, nil
	case *Rat:
		if vv == nil {
			break
		}
		return *vv, nil
	case float64:
		if math.IsNaN(vv) || math.IsInf(vv, 0) {
			break
		}
		return Rationalize(vv, u.maxDenominator), nil
	case float32:
		return u.toRat(f, float64(vv))
	default:
		if n, ok := toInt64(v); ok {
			return IntRat(n), nil
		}
	}
	return Rat{}, &TypeError{Field: f, Value: v, Want: "rational or number"}
}

func (u *updater) toTriple(f Field, v any) ([]Rat, error) {
	var items []any
	switch vv := v.(type) {
	case []Rat:
		items = toAnySlice(vv)
	case [3]Rat:
		items = toAnySlice(vv[:])
	case []float64:
		items = toAnySlice(vv)
	case [3]float64:
		items = toAnySlice(vv[:])
	case []int:
		items = toAnySlice(vv)
	case []int64:
		items = toAnySlice(vv)
	case []any:
		items = vv
	default:
		return nil, &TypeError{Field: f, Value: v, Want: "sequence of 3 rationals"}
	}
	if len(items) != 3 {
		return nil, &ShapeError{Field: f, Want: "3 elements", Got: len(items)}
	}
	rats := make([]Rat, 3)
	for i, item := range items {
		r, err := u.toRat(f, item)
		if err != nil {
			return nil, err
		}
		rats[i] = r
	}
	return rats, nil
}

func toString(f Field, v any, want string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Field: f, Value: v, Want: want}
	}
	return s, nil
}

func toUint(f Field, v any, limit uint64) (uint64, error) {
	n, ok := toInt64(v)
	if !ok {
		if fv, isFloat := v.(float64); isFloat && fv == math.Trunc(fv) && math.Abs(fv) <= math.MaxUint32 {
			n, ok = int64(fv), true
		}
	}
	if !ok || n < 0 || uint64(n) > limit {
		return 0, &TypeError{Field: f, Value: v, Want: fmt.Sprintf("integer in 0..%d", limit)}
	}
	return uint64(n), nil
}

func toInt64(v any) (int64, bool) {
	switch vv := v.(type) {
	case int:
		return int64(vv), true
	case int8:
		return int64(vv), true
	case int16:
		return int64(vv), true
	case int32:
		return int64(vv), true
	case int64:
		return vv, true
	case uint:
		return int64(vv), uint64(vv) <= math.MaxInt64
	case uint8:
		return int64(vv), true
	case uint16:
		return int64(vv), true
	case uint32:
		return int64(vv), true
	case uint64:
		return int64(vv), vv <= math.MaxInt64
	default:
		return 0, false
	}
}

func toAnySlice[T any](s []T) []any {
	items := make([]any, len(s))
	for i, v := range s {
		items[i] = v
	}
	return items
}

func trimTrailingNulls(b []byte) []byte {
	return bytes.TrimRight(b, "\x00")
}
