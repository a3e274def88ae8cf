// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import "fmt"

// Format is a TIFF field type.
type Format uint16

const (
	FormatByte      Format = 1
	FormatASCII     Format = 2
	FormatShort     Format = 3
	FormatLong      Format = 4
	FormatRational  Format = 5
	FormatSByte     Format = 6
	FormatUndefined Format = 7
	FormatSShort    Format = 8
	FormatSLong     Format = 9
	FormatSRational Format = 10
	FormatFloat     Format = 11
	FormatDouble    Format = 12
)

// Size in bytes of each format.
var formatSize = map[Format]uint32{
	FormatByte:      1,
	FormatASCII:     1,
	FormatShort:     2,
	FormatLong:      4,
	FormatRational:  8,
	FormatSByte:     1,
	FormatUndefined: 1,
	FormatSShort:    2,
	FormatSLong:     4,
	FormatSRational: 8,
	FormatFloat:     4,
	FormatDouble:    8,
}

var formatNames = map[Format]string{
	FormatByte:      "Byte",
	FormatASCII:     "ASCII",
	FormatShort:     "Short",
	FormatLong:      "Long",
	FormatRational:  "Rational",
	FormatSByte:     "SByte",
	FormatUndefined: "Undefined",
	FormatSShort:    "SShort",
	FormatSLong:     "SLong",
	FormatSRational: "SRational",
	FormatFloat:     "Float",
	FormatDouble:    "Double",
}

// Size returns the size in bytes of one component, 0 for unknown formats.
func (f Format) Size() uint32 {
	return formatSize[f]
}

// Valid reports whether f is one of the twelve TIFF 6.0 field types.
func (f Format) Valid() bool {
	_, ok := formatSize[f]
	return ok
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", uint16(f))
}

// TagID identifies a TIFF tag within its IFD.
type TagID uint16

const (
	tagExifIFDPointer    TagID = 0x8769
	tagGPSIFDPointer     TagID = 0x8825
	tagInteropIFDPointer TagID = 0xa005

	tagThumbnailOffset TagID = 0x0201
	tagThumbnailLength TagID = 0x0202
	tagStripOffsets    TagID = 0x0111
)

// The GPS IFD tags.
const (
	TagGPSVersionID        TagID = 0x00
	TagGPSLatitudeRef      TagID = 0x01
	TagGPSLatitude         TagID = 0x02
	TagGPSLongitudeRef     TagID = 0x03
	TagGPSLongitude        TagID = 0x04
	TagGPSAltitudeRef      TagID = 0x05
	TagGPSAltitude         TagID = 0x06
	TagGPSTimeStamp        TagID = 0x07
	TagGPSSatellites       TagID = 0x08
	TagGPSStatus           TagID = 0x09
	TagGPSMeasureMode      TagID = 0x0a
	TagGPSDOP              TagID = 0x0b
	TagGPSSpeedRef         TagID = 0x0c
	TagGPSSpeed            TagID = 0x0d
	TagGPSTrackRef         TagID = 0x0e
	TagGPSTrack            TagID = 0x0f
	TagGPSImgDirectionRef  TagID = 0x10
	TagGPSImgDirection     TagID = 0x11
	TagGPSMapDatum         TagID = 0x12
	TagGPSDestLatitudeRef  TagID = 0x13
	TagGPSDestLatitude     TagID = 0x14
	TagGPSDestLongitudeRef TagID = 0x15
	TagGPSDestLongitude    TagID = 0x16
	TagGPSDestBearingRef   TagID = 0x17
	TagGPSDestBearing      TagID = 0x18
	TagGPSDestDistanceRef  TagID = 0x19
	TagGPSDestDistance     TagID = 0x1a
	TagGPSProcessingMethod TagID = 0x1b
	TagGPSAreaInformation  TagID = 0x1c
	TagGPSDateStamp        TagID = 0x1d
	TagGPSDifferential     TagID = 0x1e
)

// valueKind selects the conversion between entry bytes and a Go value.
type valueKind int

const (
	kindVersion  valueKind = iota + 1 // 4 bytes <-> "2.2.0.0"
	kindRef                           // letter + NUL <-> 1 char string
	kindByte                          // uint8
	kindRational                      // one Rat
	kindTriple                        // three Rat
	kindString                        // NUL terminated ASCII of any length
	kindBytes                         // raw bytes, no terminator
	kindDate                          // "YYYY:MM:DD" + NUL
	kindShort                         // uint16
)

// tagSchema describes one GPS tag.
// A zero count means the component count is variable.
type tagSchema struct {
	tag    TagID
	field  Field
	format Format
	count  uint32
	kind   valueKind
	def    []byte
}

func (s tagSchema) variable() bool {
	return s.count == 0
}

// gpsSchema is ordered by tag ID, which is also the update order.
var gpsSchema = [...]tagSchema{
	{TagGPSVersionID, FieldVersionID, FormatByte, 4, kindVersion, []byte{2, 2, 0, 0}},
	{TagGPSLatitudeRef, FieldLatitudeRef, FormatASCII, 2, kindRef, nil},
	{TagGPSLatitude, FieldLatitude, FormatRational, 3, kindTriple, nil},
	{TagGPSLongitudeRef, FieldLongitudeRef, FormatASCII, 2, kindRef, nil},
	{TagGPSLongitude, FieldLongitude, FormatRational, 3, kindTriple, nil},
	{TagGPSAltitudeRef, FieldAltitudeRef, FormatByte, 1, kindByte, []byte{0}},
	{TagGPSAltitude, FieldAltitude, FormatRational, 1, kindRational, nil},
	{TagGPSTimeStamp, FieldTimeStamp, FormatRational, 3, kindTriple, nil},
	{TagGPSSatellites, FieldSatellites, FormatASCII, 0, kindString, nil},
	{TagGPSStatus, FieldStatus, FormatASCII, 2, kindRef, nil},
	{TagGPSMeasureMode, FieldMeasureMode, FormatASCII, 2, kindRef, nil},
	{TagGPSDOP, FieldDOP, FormatRational, 1, kindRational, nil},
	{TagGPSSpeedRef, FieldSpeedRef, FormatASCII, 2, kindRef, []byte{'K', 0}},
	{TagGPSSpeed, FieldSpeed, FormatRational, 1, kindRational, nil},
	{TagGPSTrackRef, FieldTrackRef, FormatASCII, 2, kindRef, []byte{'T', 0}},
	{TagGPSTrack, FieldTrack, FormatRational, 1, kindRational, nil},
	{TagGPSImgDirectionRef, FieldImgDirectionRef, FormatASCII, 2, kindRef, []byte{'T', 0}},
	{TagGPSImgDirection, FieldImgDirection, FormatRational, 1, kindRational, nil},
	{TagGPSMapDatum, FieldMapDatum, FormatASCII, 0, kindString, nil},
	{TagGPSDestLatitudeRef, FieldDestLatitudeRef, FormatASCII, 2, kindRef, nil},
	{TagGPSDestLatitude, FieldDestLatitude, FormatRational, 3, kindTriple, nil},
	{TagGPSDestLongitudeRef, FieldDestLongitudeRef, FormatASCII, 2, kindRef, nil},
	{TagGPSDestLongitude, FieldDestLongitude, FormatRational, 3, kindTriple, nil},
	{TagGPSDestBearingRef, FieldDestBearingRef, FormatASCII, 2, kindRef, []byte{'T', 0}},
	{TagGPSDestBearing, FieldDestBearing, FormatRational, 1, kindRational, nil},
	{TagGPSDestDistanceRef, FieldDestDistanceRef, FormatASCII, 2, kindRef, []byte{'K', 0}},
	{TagGPSDestDistance, FieldDestDistance, FormatRational, 1, kindRational, nil},
	{TagGPSProcessingMethod, FieldProcessingMethod, FormatUndefined, 0, kindBytes, nil},
	{TagGPSAreaInformation, FieldAreaInformation, FormatUndefined, 0, kindBytes, nil},
	{TagGPSDateStamp, FieldDateStamp, FormatASCII, 11, kindDate, nil},
	{TagGPSDifferential, FieldDifferential, FormatShort, 1, kindShort, []byte{0, 0}},
}

var (
	schemaByField = map[Field]*tagSchema{}
	schemaByTag   = map[TagID]*tagSchema{}
)

func init() {
	for i := range gpsSchema {
		s := &gpsSchema[i]
		schemaByField[s.field] = s
		schemaByTag[s.tag] = s
	}
}

// lookupSchema returns the schema for a raw field.
// It panics for derived fields, which have no tag.
func lookupSchema(f Field) *tagSchema {
	s, ok := schemaByField[f]
	if !ok {
		panic(fmt.Sprintf("geotag: no tag schema for field %s", f))
	}
	return s
}

// defaultEntry creates the entry written when a tag is first set.
// The default payload, if any, is copied so entries never share buffers.
func defaultEntry(s *tagSchema) *Entry {
	e := &Entry{
		Tag:    s.tag,
		Format: s.format,
		Count:  s.count,
	}
	switch {
	case s.def != nil:
		e.Data = append([]byte(nil), s.def...)
	case s.variable():
		e.Data = []byte{}
	default:
		e.Data = make([]byte, s.count*s.format.Size())
	}
	return e
}
