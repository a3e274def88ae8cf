// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import (
	"encoding/binary"
	"sort"
)

// Entry is the raw representation of one tag.
// Data holds Count components of Format, in the byte order of the EXIF
// data the entry belongs to.
type Entry struct {
	Tag    TagID
	Format Format
	Count  uint32
	Data   []byte
}

// sizeOK reports whether the buffer length agrees with format and count.
func (e *Entry) sizeOK() bool {
	return uint64(len(e.Data)) == uint64(e.Count)*uint64(e.Format.Size())
}

// Directory is one IFD: a set of entries keyed by tag, plus the IFDs
// hanging off it.
type Directory struct {
	entries map[TagID]*Entry

	// Sub-IFDs keyed by their pointer tag (Exif, GPS, Interoperability).
	subs map[TagID]*Directory

	// The next IFD in the chain (IFD1 for IFD0).
	next *Directory

	// JPEG thumbnail referenced by the ThumbnailOffset/Length tags in IFD1.
	thumbnail []byte
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		entries: make(map[TagID]*Entry),
		subs:    make(map[TagID]*Directory),
	}
}

// Get returns the entry for tag, or nil.
func (d *Directory) Get(tag TagID) *Entry {
	return d.entries[tag]
}

// Set adds e, replacing any entry with the same tag.
func (d *Directory) Set(e *Entry) {
	d.entries[e.Tag] = e
}

// Remove deletes the entry for tag.
func (d *Directory) Remove(tag TagID) {
	delete(d.entries, tag)
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	return len(d.entries)
}

// Entries returns the entries sorted by tag.
func (d *Directory) Entries() []*Entry {
	entries := make([]*Entry, 0, len(d.entries))
	for _, e := range d.entries {
		entries = append(entries, e)
	}
	sortEntries(entries)
	return entries
}

func sortEntries(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Tag < entries[j].Tag })
}

// Sub returns the sub-IFD referenced by the given pointer tag, or nil.
func (d *Directory) Sub(pointer TagID) *Directory {
	return d.subs[pointer]
}

func (d *Directory) subPointers() []TagID {
	tags := make([]TagID, 0, len(d.subs))
	for tag := range d.subs {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Exif is the TIFF structure stored in a JPEG APP1 segment.
type Exif struct {
	ByteOrder binary.ByteOrder
	IFD0      *Directory
}

// NewExif creates an empty Exif structure.
func NewExif(byteOrder binary.ByteOrder) *Exif {
	return &Exif{
		ByteOrder: normalizeByteOrder(byteOrder),
		IFD0:      NewDirectory(),
	}
}

// GPS returns the GPS IFD, creating it if needed.
func (x *Exif) GPS() *Directory {
	gps := x.IFD0.subs[tagGPSIFDPointer]
	if gps == nil {
		gps = NewDirectory()
		x.IFD0.subs[tagGPSIFDPointer] = gps
	}
	return gps
}

// HasGPS reports whether x has a GPS IFD.
func (x *Exif) HasGPS() bool {
	return x.IFD0.subs[tagGPSIFDPointer] != nil
}

// normalizeByteOrder returns binary.BigEndian or binary.LittleEndian,
// whichever order lays out bytes like byteOrder. Nil means big endian.
func normalizeByteOrder(byteOrder binary.ByteOrder) binary.ByteOrder {
	if byteOrder == nil {
		return binary.BigEndian
	}
	var b [2]byte
	byteOrder.PutUint16(b[:], 1)
	if b[0] == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}
