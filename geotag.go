// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package geotag reads and writes the GPS tags of JPEG images.
//
// A Record holds the raw GPS fields (latitude as degrees, minutes and
// seconds, the reference letters, date and time stamps, and so on) and the
// derived fields decimal_latitude, decimal_longitude, decimal_altitude and
// timestamp, which are converted to and from the raw fields.
package geotag

import (
	"encoding/binary"
	"errors"
)

// Options contains the options for Update, Decode, Write and Read.
type Options struct {
	// Store loads and saves the EXIF data of a file.
	// Default is JPEGStore.
	Store Store

	// MaxDenominator limits the denominator when decimal values are
	// converted to rationals.
	// Default is DefaultMaxDenominator.
	MaxDenominator int64

	// If set, Write adds EXIF data to files that have none instead of
	// failing with ErrNoExif.
	CreateExif bool

	// ByteOrder is used for EXIF data created by Write.
	// Default is big endian.
	ByteOrder binary.ByteOrder

	// Warnf will be called for each warning, e.g. a stored tag that does not
	// match its expected format, or a value of the wrong length.
	// The first argument after the format is the error.
	Warnf func(string, ...any)
}

func (o Options) withDefaults() Options {
	if o.Warnf == nil {
		o.Warnf = func(string, ...any) {}
	}
	if o.Store == nil {
		o.Store = JPEGStore{Warnf: o.Warnf}
	}
	if o.MaxDenominator <= 0 {
		o.MaxDenominator = DefaultMaxDenominator
	}
	o.ByteOrder = normalizeByteOrder(o.ByteOrder)
	return o
}

// Update applies rec to the GPS IFD of x and returns the values the
// updated tags had before, including the derived fields computable from
// them. Tags that did not exist are absent from the returned Record.
//
// Only errors caused by rec itself are returned (see TypeError); x is not
// modified in that case. Stored values that cannot be read and values of
// the wrong length are reported through Options.Warnf and skipped.
func Update(x *Exif, rec Record, opts Options) (Record, error) {
	opts = opts.withDefaults()
	u := newUpdater(x.ByteOrder, opts)
	return u.update(x, rec)
}

// Decode returns the GPS values stored in x, including the derived fields.
func Decode(x *Exif, opts Options) Record {
	opts = opts.withDefaults()
	u := newUpdater(x.ByteOrder, opts)
	return u.decode(x)
}

// Write applies rec to the GPS tags of filename and returns the previous
// values, as described in Update.
//
// The file is only saved if rec is non-empty. A file whose EXIF data would
// exceed SizeLimit bytes is left untouched and a *SizeLimitError returned.
func Write(filename string, rec Record, opts Options) (Record, error) {
	opts = opts.withDefaults()

	x, err := opts.Store.Load(filename)
	if err != nil {
		if !(opts.CreateExif && errors.Is(err, ErrNoExif)) {
			return nil, &IOError{Op: "load", Filename: filename, Err: err}
		}
		x = NewExif(opts.ByteOrder)
	}

	prev, err := Update(x, rec, opts)
	if err != nil {
		return nil, err
	}

	if len(rec) == 0 {
		return prev, nil
	}

	payload, err := x.MarshalAPP1()
	if err != nil {
		return nil, err
	}
	if err := checkSize(len(payload)); err != nil {
		return nil, err
	}

	if err := opts.Store.Save(filename, x); err != nil {
		return nil, &IOError{Op: "save", Filename: filename, Err: err}
	}

	return prev, nil
}

// Read returns the GPS values stored in filename, including the derived fields.
func Read(filename string, opts Options) (Record, error) {
	opts = opts.withDefaults()
	x, err := opts.Store.Load(filename)
	if err != nil {
		return nil, &IOError{Op: "load", Filename: filename, Err: err}
	}
	return Decode(x, opts), nil
}

type updater struct {
	byteOrder      binary.ByteOrder
	maxDenominator int64
	warnf          func(string, ...any)
}

func newUpdater(byteOrder binary.ByteOrder, opts Options) *updater {
	return &updater{
		byteOrder:      normalizeByteOrder(byteOrder),
		maxDenominator: opts.MaxDenominator,
		warnf:          opts.Warnf,
	}
}

func (u *updater) warn(err error) {
	u.warnf("geotag: %v", err)
}

// pendingEntry is an encoded value waiting to be applied.
// old is nil if the tag did not exist.
type pendingEntry struct {
	old     *Entry
	updated *Entry
}

func (u *updater) update(x *Exif, in Record) (Record, error) {
	for f, v := range in {
		if _, ok := fieldNames[f]; !ok {
			return nil, &TypeError{Field: f, Value: v, Want: "a known field"}
		}
	}

	rec, err := u.parseVirtual(in)
	if err != nil {
		return nil, err
	}

	var gps *Directory
	if x.HasGPS() {
		gps = x.GPS()
	}

	prev := Record{}
	var pending []pendingEntry

	for i := range gpsSchema {
		s := &gpsSchema[i]
		v, ok := rec[s.field]
		if !ok {
			continue
		}

		var old *Entry
		if gps != nil {
			old = gps.Get(s.tag)
		}

		var e *Entry
		if old != nil {
			// The previous value is captured whether or not it changes.
			if pv, err := decodeEntry(s, old, u.byteOrder); err != nil {
				u.warn(err)
			} else {
				prev[s.field] = pv
			}
			e = &Entry{Tag: old.Tag, Format: old.Format, Count: old.Count, Data: old.Data}
		} else {
			e = defaultEntry(s)
		}

		if err := u.encodeEntry(s, e, v); err != nil {
			var shapeErr *ShapeError
			if errors.As(err, &shapeErr) {
				u.warn(err)
				continue
			}
			return nil, err
		}

		pending = append(pending, pendingEntry{old: old, updated: e})
	}

	if len(pending) > 0 && gps == nil {
		gps = x.GPS()
	}
	for _, p := range pending {
		if p.old != nil {
			*p.old = *p.updated
		} else {
			gps.Set(p.updated)
		}
	}

	u.deriveVirtual(prev)

	return prev, nil
}

func (u *updater) decode(x *Exif) Record {
	rec := Record{}
	if !x.HasGPS() {
		return rec
	}
	gps := x.GPS()
	for i := range gpsSchema {
		s := &gpsSchema[i]
		e := gps.Get(s.tag)
		if e == nil {
			continue
		}
		v, err := decodeEntry(s, e, u.byteOrder)
		if err != nil {
			u.warn(err)
			continue
		}
		rec[s.field] = v
	}
	u.deriveVirtual(rec)
	return rec
}
