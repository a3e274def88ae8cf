// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

const (
	markerSOI  = 0xffd8
	markerEOI  = 0xffd9
	markerSOS  = 0xffda
	markerAPP0 = 0xffe0
	markerAPP1 = 0xffe1
	markerTEM  = 0xff01
	markerRST0 = 0xffd0
	markerRST7 = 0xffd7

	// The segment length field counts itself.
	maxSegmentPayload = 0xffff - 2
)

// JPEGStore reads and writes the EXIF APP1 segment of JPEG files.
type JPEGStore struct {
	// Warnf is called for parts of the EXIF data that are dropped on load.
	Warnf func(string, ...any)
}

// segment is a marker segment in a JPEG file.
// start is the offset of the marker, end the offset after the payload.
type segment struct {
	marker     uint16
	start, end int64
}

func (s segment) payload(b []byte) []byte {
	return b[s.start+4 : s.end]
}

func (s segment) isExif(b []byte) bool {
	return s.marker == markerAPP1 && bytes.HasPrefix(s.payload(b), exifHeader)
}

// scanJPEG returns the marker segments before the first scan.
func scanJPEG(b []byte) (segments []segment, err error) {
	r := newBytesStreamReader(b, binary.BigEndian)

	defer func() {
		if rec := recover(); rec != nil {
			segments = nil
			err = r.recoverStop(rec)
		}
	}()

	if r.read2() != markerSOI {
		return nil, newInvalidFormatErrorf("missing JPEG SOI marker")
	}

	for {
		start := r.pos()
		if r.read1() != 0xff {
			return nil, newInvalidFormatErrorf("expected JPEG marker at offset %d", start)
		}
		m := r.read1()
		for m == 0xff {
			// Fill bytes.
			m = r.read1()
		}
		marker := 0xff00 | uint16(m)

		if marker == markerSOS || marker == markerEOI {
			return segments, nil
		}
		if marker == markerTEM || (marker >= markerRST0 && marker <= markerRST7) {
			// No length.
			continue
		}

		// Read the 16-bit length of the segment. The value includes the 2 bytes for the
		// length itself.
		length := r.read2()
		if length < 2 {
			return nil, newInvalidFormatErrorf("invalid length %d of JPEG segment 0x%04x", length, marker)
		}
		// Fill bytes are not kept as part of the segment.
		start = r.pos() - 4
		r.skip(int64(length) - 2)
		end := r.pos()
		if end > int64(len(b)) {
			return nil, newInvalidFormatErrorf("JPEG segment 0x%04x out of range", marker)
		}
		segments = append(segments, segment{marker: marker, start: start, end: end})
	}
}

// Load implements Store.
func (s JPEGStore) Load(filename string) (*Exif, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return s.decode(b)
}

func (s JPEGStore) decode(b []byte) (*Exif, error) {
	segments, err := scanJPEG(b)
	if err != nil {
		return nil, err
	}
	for _, seg := range segments {
		if seg.isExif(b) {
			return decodeTIFF(seg.payload(b)[len(exifHeader):], s.Warnf)
		}
	}
	return nil, ErrNoExif
}

// Save implements Store.
// The file is replaced through a temporary file in the same directory.
func (s JPEGStore) Save(filename string, x *Exif) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	fi, err := os.Stat(filename)
	if err != nil {
		return err
	}

	payload, err := x.MarshalAPP1()
	if err != nil {
		return err
	}

	out, err := replaceExif(b, payload)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(out); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, fi.Mode().Perm()); err != nil {
		return err
	}

	return os.Rename(tmp, filename)
}

// replaceExif returns b with its EXIF APP1 payload replaced by payload.
// A JPEG without one gets a new APP1 segment after SOI and any APP0 segment.
func replaceExif(b, payload []byte) ([]byte, error) {
	if len(payload) > maxSegmentPayload {
		return nil, fmt.Errorf("geotag: EXIF data too large for a JPEG segment: %d bytes", len(payload))
	}

	segments, err := scanJPEG(b)
	if err != nil {
		return nil, err
	}

	start, end := int64(2), int64(2)
	found := false
	for _, seg := range segments {
		if seg.isExif(b) {
			start, end = seg.start, seg.end
			found = true
			break
		}
	}
	if !found {
		for _, seg := range segments {
			if seg.marker != markerAPP0 {
				break
			}
			start, end = seg.end, seg.end
		}
	}

	var head [4]byte
	binary.BigEndian.PutUint16(head[:], markerAPP1)
	binary.BigEndian.PutUint16(head[2:], uint16(len(payload)+2))

	out := make([]byte, 0, int64(len(b))-(end-start)+int64(len(payload))+4)
	out = append(out, b[:start]...)
	out = append(out, head[:]...)
	out = append(out, payload...)
	out = append(out, b[end:]...)

	return out, nil
}
