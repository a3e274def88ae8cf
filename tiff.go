// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	byteOrderBigEndian    = 0x4d4d
	byteOrderLittleEndian = 0x4949
	tiffMagic             = 42

	// Entries with more components than this are considered corrupt.
	maxEntryCount = 0x10000

	// Max nesting of sub-IFDs (IFD0 -> Exif -> Interoperability).
	maxIFDDepth = 4

	// The IFD type from the TIFF extensions, used by some writers for the
	// sub-IFD pointers. It is read as a Long.
	formatIFD Format = 13
)

var exifHeader = []byte("Exif\x00\x00")

// ifdPointers are the tags whose value is the offset of a sub-IFD.
var ifdPointers = map[TagID]bool{
	tagExifIFDPointer:    true,
	tagGPSIFDPointer:     true,
	tagInteropIFDPointer: true,
}

type tiffReader struct {
	*streamReader
	size    int64
	visited map[uint32]bool
	warnf   func(string, ...any)
}

// decodeTIFF parses a TIFF structure (the EXIF payload without the
// "Exif\0\0" header).
func decodeTIFF(b []byte, warnf func(string, ...any)) (x *Exif, err error) {
	if warnf == nil {
		warnf = func(string, ...any) {}
	}
	r := &tiffReader{
		streamReader: newBytesStreamReader(b, binary.BigEndian),
		size:         int64(len(b)),
		visited:      make(map[uint32]bool),
		warnf:        warnf,
	}

	defer func() {
		if rec := recover(); rec != nil {
			x = nil
			err = r.recoverStop(rec)
		}
	}()

	return r.decode(), nil
}

func (r *tiffReader) decode() *Exif {
	switch r.read2() {
	case byteOrderBigEndian:
		r.byteOrder = binary.BigEndian
	case byteOrderLittleEndian:
		r.byteOrder = binary.LittleEndian
	default:
		r.stop(newInvalidFormatErrorf("invalid TIFF byte order"))
	}
	if r.read2() != tiffMagic {
		r.stop(newInvalidFormatErrorf("invalid TIFF header"))
	}

	x := &Exif{ByteOrder: r.byteOrder}
	var next uint32
	x.IFD0, next = r.decodeIFDAt(r.read4(), 0)

	if next != 0 {
		ifd1, _ := r.decodeIFDAt(next, 0)
		if ifd1.Get(tagStripOffsets) != nil {
			r.warnf("geotag: dropping thumbnail IFD stored as strips")
		} else {
			r.readThumbnail(ifd1)
			x.IFD0.next = ifd1
		}
	}

	return x
}

// decodeIFDAt reads the IFD at offset and its sub-IFDs. It returns the
// offset of the next IFD in the chain.
func (r *tiffReader) decodeIFDAt(offset uint32, depth int) (*Directory, uint32) {
	if depth > maxIFDDepth {
		r.stop(newInvalidFormatErrorf("IFDs nested too deep"))
	}
	if offset < 8 || int64(offset) >= r.size {
		r.stop(newInvalidFormatErrorf("IFD offset %d out of range", offset))
	}
	if r.visited[offset] {
		r.stop(newInvalidFormatErrorf("IFD loop at offset %d", offset))
	}
	r.visited[offset] = true

	r.seek(int64(offset))

	d := NewDirectory()
	pointers := make(map[TagID]uint32)

	numTags := r.read2()
	for i := 0; i < int(numTags); i++ {
		e := r.decodeEntry()
		if ifdPointers[e.Tag] {
			if e.Count != 1 || e.Format != FormatLong {
				r.stop(newInvalidFormatErrorf("invalid IFD pointer 0x%04x", e.Tag))
			}
			pointers[e.Tag] = r.byteOrder.Uint32(e.Data)
			continue
		}
		d.Set(e)
	}
	next := r.read4()

	for tag, off := range pointers {
		sub, _ := r.decodeIFDAt(off, depth+1)
		d.subs[tag] = sub
	}

	return d, next
}

// A tag is represented in 12 bytes:
//   - 2 bytes for the tag ID
//   - 2 bytes for the data type
//   - 4 bytes for the number of data values of the specified type
//   - 4 bytes for the value itself, if it fits, otherwise for a pointer to
//     another location where the data may be found.
func (r *tiffReader) decodeEntry() *Entry {
	tag := TagID(r.read2())
	format := Format(r.read2())
	count := r.read4()

	if format == formatIFD {
		format = FormatLong
	}
	size := format.Size()
	if size == 0 {
		r.stop(newInvalidFormatErrorf("unknown field type %d in tag 0x%04x", format, tag))
	}
	if count > maxEntryCount {
		r.stop(newInvalidFormatErrorf("count %d too large in tag 0x%04x", count, tag))
	}

	valLen := int64(size) * int64(count)
	e := &Entry{Tag: tag, Format: format, Count: count}

	if valLen <= 4 {
		e.Data = r.readBytes(4)[:valLen:valLen]
		return e
	}

	offset := int64(r.read4())
	if offset+valLen > r.size {
		r.stop(newInvalidFormatErrorf("value of tag 0x%04x out of range", tag))
	}
	r.preservePos(func() error {
		r.seek(offset)
		e.Data = r.readBytes(int(valLen))
		return nil
	})

	return e
}

// readThumbnail moves the JPEG thumbnail referenced by d into d.thumbnail.
// The offset and length tags are recreated on write.
func (r *tiffReader) readThumbnail(d *Directory) {
	offEntry, lenEntry := d.Get(tagThumbnailOffset), d.Get(tagThumbnailLength)
	d.Remove(tagThumbnailOffset)
	d.Remove(tagThumbnailLength)
	if offEntry == nil || lenEntry == nil {
		return
	}
	off, ok1 := entryUint(offEntry, r.byteOrder)
	n, ok2 := entryUint(lenEntry, r.byteOrder)
	if !ok1 || !ok2 || int64(off)+int64(n) > r.size {
		r.warnf("geotag: dropping thumbnail with invalid offset or length")
		return
	}
	r.seek(int64(off))
	d.thumbnail = r.readBytes(int(n))
}

// entryUint returns the value of a single Short or Long entry.
func entryUint(e *Entry, byteOrder binary.ByteOrder) (uint32, bool) {
	if e.Count != 1 || !e.sizeOK() {
		return 0, false
	}
	switch e.Format {
	case FormatShort:
		return uint32(byteOrder.Uint16(e.Data)), true
	case FormatLong:
		return byteOrder.Uint32(e.Data), true
	}
	return 0, false
}

// MarshalBinary serializes x as a TIFF structure.
func (x *Exif) MarshalBinary() ([]byte, error) {
	w := &tiffWriter{byteOrder: normalizeByteOrder(x.ByteOrder)}

	w.buf = make([]byte, 8, 1024)
	if w.byteOrder == binary.LittleEndian {
		binary.BigEndian.PutUint16(w.buf, byteOrderLittleEndian)
	} else {
		binary.BigEndian.PutUint16(w.buf, byteOrderBigEndian)
	}
	w.byteOrder.PutUint16(w.buf[2:], tiffMagic)

	ifd0 := x.IFD0
	if ifd0 == nil {
		ifd0 = NewDirectory()
	}
	off, err := w.writeIFD(ifd0, ifd0.next)
	if err != nil {
		return nil, err
	}
	w.byteOrder.PutUint32(w.buf[4:], off)

	return w.buf, nil
}

// MarshalAPP1 returns the payload of a JPEG APP1 segment: the "Exif\0\0"
// header followed by the TIFF structure.
func (x *Exif) MarshalAPP1() ([]byte, error) {
	b, err := x.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(append(make([]byte, 0, len(exifHeader)+len(b)), exifHeader...), b...), nil
}

type tiffWriter struct {
	byteOrder binary.ByteOrder
	buf       []byte
}

// align pads the buffer to a word boundary.
func (w *tiffWriter) align() {
	if len(w.buf)%2 != 0 {
		w.buf = append(w.buf, 0)
	}
}

func (w *tiffWriter) offset() (uint32, error) {
	if uint64(len(w.buf)) > math.MaxUint32 {
		return 0, fmt.Errorf("geotag: TIFF data too large")
	}
	return uint32(len(w.buf)), nil
}

// writeIFD appends d, its values, its sub-IFDs and then next (if any),
// and returns the offset of d.
func (w *tiffWriter) writeIFD(d *Directory, next *Directory) (uint32, error) {
	entries := make([]*Entry, 0, d.Len()+len(d.subs)+2)
	for _, e := range d.Entries() {
		if ifdPointers[e.Tag] || e.Tag == tagThumbnailOffset || e.Tag == tagThumbnailLength {
			// Recreated below.
			continue
		}
		if !e.Format.Valid() || !e.sizeOK() {
			return 0, fmt.Errorf("geotag: entry 0x%04x: %d bytes do not match %d x %s", e.Tag, len(e.Data), e.Count, e.Format)
		}
		entries = append(entries, e)
	}
	pointers := d.subPointers()
	for _, tag := range pointers {
		entries = append(entries, &Entry{Tag: tag, Format: FormatLong, Count: 1, Data: make([]byte, 4)})
	}
	if d.thumbnail != nil {
		n := make([]byte, 4)
		w.byteOrder.PutUint32(n, uint32(len(d.thumbnail)))
		entries = append(entries,
			&Entry{Tag: tagThumbnailOffset, Format: FormatLong, Count: 1, Data: make([]byte, 4)},
			&Entry{Tag: tagThumbnailLength, Format: FormatLong, Count: 1, Data: n},
		)
	}
	sortEntries(entries)
	if len(entries) > 0xffff {
		return 0, fmt.Errorf("geotag: too many entries in IFD: %d", len(entries))
	}

	w.align()
	start, err := w.offset()
	if err != nil {
		return 0, err
	}

	w.buf = append(w.buf, make([]byte, 2+12*len(entries)+4)...)
	w.byteOrder.PutUint16(w.buf[start:], uint16(len(entries)))

	// Positions of the value fields to patch once the offsets are known.
	valuePos := make(map[TagID]uint32)

	for i, e := range entries {
		p := start + 2 + uint32(12*i)
		w.byteOrder.PutUint16(w.buf[p:], uint16(e.Tag))
		w.byteOrder.PutUint16(w.buf[p+2:], uint16(e.Format))
		w.byteOrder.PutUint32(w.buf[p+4:], e.Count)
		valuePos[e.Tag] = p + 8

		if len(e.Data) <= 4 {
			copy(w.buf[p+8:p+12], e.Data)
			continue
		}

		w.align()
		off, err := w.offset()
		if err != nil {
			return 0, err
		}
		w.buf = append(w.buf, e.Data...)
		w.byteOrder.PutUint32(w.buf[p+8:], off)
	}

	nextPos := start + 2 + uint32(12*len(entries))

	for _, tag := range pointers {
		off, err := w.writeIFD(d.subs[tag], nil)
		if err != nil {
			return 0, err
		}
		w.byteOrder.PutUint32(w.buf[valuePos[tag]:], off)
	}

	if d.thumbnail != nil {
		off, err := w.offset()
		if err != nil {
			return 0, err
		}
		w.buf = append(w.buf, d.thumbnail...)
		w.byteOrder.PutUint32(w.buf[valuePos[tagThumbnailOffset]:], off)
	}

	if next != nil {
		off, err := w.writeIFD(next, nil)
		if err != nil {
			return 0, err
		}
		w.byteOrder.PutUint32(w.buf[nextPos:], off)
	}

	return start, nil
}
