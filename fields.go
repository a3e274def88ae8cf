// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Field is a key in a Record.
type Field int

// Raw fields, one per GPS tag.
const (
	FieldVersionID Field = iota + 1
	FieldLatitudeRef
	FieldLatitude
	FieldLongitudeRef
	FieldLongitude
	FieldAltitudeRef
	FieldAltitude
	FieldTimeStamp
	FieldSatellites
	FieldStatus
	FieldMeasureMode
	FieldDOP
	FieldSpeedRef
	FieldSpeed
	FieldTrackRef
	FieldTrack
	FieldImgDirectionRef
	FieldImgDirection
	FieldMapDatum
	FieldDestLatitudeRef
	FieldDestLatitude
	FieldDestLongitudeRef
	FieldDestLongitude
	FieldDestBearingRef
	FieldDestBearing
	FieldDestDistanceRef
	FieldDestDistance
	FieldProcessingMethod
	FieldAreaInformation
	FieldDateStamp
	FieldDifferential

	// Derived fields, computed from several raw fields.
	FieldDecimalLatitude
	FieldDecimalLongitude
	FieldDecimalAltitude
	FieldTimestamp
)

var fieldNames = map[Field]string{
	FieldVersionID:        "version_id",
	FieldLatitudeRef:      "latitude_ref",
	FieldLatitude:         "latitude",
	FieldLongitudeRef:     "longitude_ref",
	FieldLongitude:        "longitude",
	FieldAltitudeRef:      "altitude_ref",
	FieldAltitude:         "altitude",
	FieldTimeStamp:        "time_stamp",
	FieldSatellites:       "satellites",
	FieldStatus:           "status",
	FieldMeasureMode:      "measure_mode",
	FieldDOP:              "dop",
	FieldSpeedRef:         "speed_ref",
	FieldSpeed:            "speed",
	FieldTrackRef:         "track_ref",
	FieldTrack:            "track",
	FieldImgDirectionRef:  "img_direction_ref",
	FieldImgDirection:     "img_direction",
	FieldMapDatum:         "map_datum",
	FieldDestLatitudeRef:  "dest_latitude_ref",
	FieldDestLatitude:     "dest_latitude",
	FieldDestLongitudeRef: "dest_longitude_ref",
	FieldDestLongitude:    "dest_longitude",
	FieldDestBearingRef:   "dest_bearing_ref",
	FieldDestBearing:      "dest_bearing",
	FieldDestDistanceRef:  "dest_distance_ref",
	FieldDestDistance:     "dest_distance",
	FieldProcessingMethod: "processing_method",
	FieldAreaInformation:  "area_information",
	FieldDateStamp:        "date_stamp",
	FieldDifferential:     "differential",
	FieldDecimalLatitude:  "decimal_latitude",
	FieldDecimalLongitude: "decimal_longitude",
	FieldDecimalAltitude:  "decimal_altitude",
	FieldTimestamp:        "timestamp",
}

var fieldsByName = map[string]Field{}

func init() {
	for f, name := range fieldNames {
		fieldsByName[name] = f
	}
}

// String returns the snake case key of the field, e.g. "latitude_ref".
func (f Field) String() string {
	if s, ok := fieldNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// IsDerived reports whether f is a virtual field with no tag of its own.
func (f Field) IsDerived() bool {
	return f >= FieldDecimalLatitude && f <= FieldTimestamp
}

// Tag returns the GPS tag of a raw field.
func (f Field) Tag() (TagID, bool) {
	s, ok := schemaByField[f]
	if !ok {
		return 0, false
	}
	return s.tag, true
}

// ParseField returns the field with the given key.
func ParseField(name string) (Field, error) {
	f, ok := fieldsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown field %q", name)
	}
	return f, nil
}

// Record maps fields to values.
//
// On the write path an absent key means "leave unchanged"; on the read path
// it means the tag was not present.
type Record map[Field]any

// Fields returns the keys of r in field order.
func (r Record) Fields() []Field {
	fields := make([]Field, 0, len(r))
	for f := range r {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Map returns r keyed by field name.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for f, v := range r {
		m[f.String()] = v
	}
	return m
}

// RecordFromMap builds a Record from a loosely typed map, e.g. decoded from
// YAML or JSON.
//
// Keys must be field names. Strings are converted where the target field
// needs another type: "n/d" or decimal strings for rational fields, and
// RFC 3339 strings for timestamp. Anything else is passed through and
// checked when the record is applied.
func RecordFromMap(m map[string]any) (Record, error) {
	rec := make(Record, len(m))
	for k, v := range m {
		f, err := ParseField(k)
		if err != nil {
			return nil, err
		}
		v, err = coerceLoose(f, v)
		if err != nil {
			return nil, err
		}
		rec[f] = v
	}
	return rec, nil
}

func coerceLoose(f Field, v any) (any, error) {
	var kind valueKind
	if s, ok := schemaByField[f]; ok {
		kind = s.kind
	}

	parseRat := func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		var r Rat
		if err := r.UnmarshalText([]byte(s)); err != nil {
			return nil, &TypeError{Field: f, Value: v, Want: "rational"}
		}
		return r, nil
	}

	switch {
	case f == FieldTimestamp:
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, &TypeError{Field: f, Value: v, Want: "timestamp"}
		}
		return t, nil
	case kind == kindRational:
		return parseRat(v)
	case kind == kindString || kind == kindRef:
		// YAML reads unquoted 5 or 3 as numbers.
		switch v.(type) {
		case int, int64, uint64, float64:
			return fmt.Sprint(v), nil
		}
		return v, nil
	case kind == kindTriple:
		vv, ok := v.([]any)
		if !ok {
			return v, nil
		}
		out := make([]any, len(vv))
		for i, x := range vv {
			r, err := parseRat(x)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return v, nil
}
