// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import (
	"maps"
	"math"
	"strconv"
	"strings"
	"time"
)

const dateStampLayout = "2006:01:02"

// coordinate links a decimal coordinate to its DMS and reference fields.
type coordinate struct {
	decimal  Field
	dms      Field
	ref      Field
	pos, neg string
	limit    float64
}

var coordinates = []coordinate{
	{FieldDecimalLatitude, FieldLatitude, FieldLatitudeRef, "N", "S", 90},
	{FieldDecimalLongitude, FieldLongitude, FieldLongitudeRef, "E", "W", 180},
}

// parseVirtual returns a copy of rec where the derived fields are replaced
// by the raw fields they map to. Derived fields win over raw fields set in
// the same record.
func (u *updater) parseVirtual(in Record) (Record, error) {
	rec := maps.Clone(in)
	if rec == nil {
		rec = Record{}
	}

	if v, ok := rec[FieldDecimalAltitude]; ok {
		alt, err := toDecimal(FieldDecimalAltitude, v)
		if err != nil {
			return nil, err
		}
		var ref uint8
		if alt < 0 {
			ref = 1
		}
		rec[FieldAltitudeRef] = ref
		rec[FieldAltitude] = Rationalize(math.Abs(alt), u.maxDenominator)
		delete(rec, FieldDecimalAltitude)
	}

	if v, ok := rec[FieldTimestamp]; ok {
		t, ok := v.(time.Time)
		if !ok {
			return nil, &TypeError{Field: FieldTimestamp, Value: v, Want: "time.Time"}
		}
		t = t.UTC()
		if t.Year() < 0 || t.Year() > 9999 {
			return nil, &TypeError{Field: FieldTimestamp, Value: v, Want: "time.Time with a year in 0..9999"}
		}
		rec[FieldDateStamp] = t.Format(dateStampLayout)
		sec := IntRat(int64(t.Second()))
		if ms := t.Nanosecond() / int(time.Millisecond); ms > 0 {
			sec = Rat{num: int64(t.Second()*1000 + ms), den: 1000}
		}
		rec[FieldTimeStamp] = []Rat{IntRat(int64(t.Hour())), IntRat(int64(t.Minute())), sec}
		delete(rec, FieldTimestamp)
	}

	for _, c := range coordinates {
		v, ok := rec[c.decimal]
		if !ok {
			continue
		}
		d, err := toDecimal(c.decimal, v)
		if err != nil {
			return nil, err
		}
		if math.Abs(d) > c.limit {
			return nil, &TypeError{Field: c.decimal, Value: v, Want: "decimal degrees within ±" + strconv.Itoa(int(c.limit))}
		}
		rec[c.dms] = decimalToDMS(d)
		if d < 0 {
			rec[c.ref] = c.neg
		} else {
			rec[c.ref] = c.pos
		}
		delete(rec, c.decimal)
	}

	return rec, nil
}

// deriveVirtual adds the derived fields computable from the raw values in rec.
// Malformed raw values are reported and the derived field is left out.
func (u *updater) deriveVirtual(rec Record) {
	if v, ok := rec[FieldAltitude]; ok {
		if r, ok := v.(Rat); ok {
			rec[FieldDecimalAltitude] = r.Float64()
		}
	}

	for _, c := range coordinates {
		v, ok := rec[c.dms]
		if !ok {
			continue
		}
		d, err := dmsToDecimal(c.dms, v)
		if err != nil {
			u.warn(err)
			continue
		}
		rec[c.decimal] = d
	}

	tv, hasTime := rec[FieldTimeStamp]
	dv, hasDate := rec[FieldDateStamp]
	if hasTime && hasDate {
		t, err := composeTimestamp(tv, dv)
		if err != nil {
			u.warn(err)
		} else {
			rec[FieldTimestamp] = t
		}
	}
}

// dmsScale is the number of nano arc seconds in a degree.
const dmsScale = 3600 * 1000000000

// decimalToDMS splits |d| into degrees, minutes and seconds, the seconds
// rounded to 3 decimal places. |d| must not exceed 180.
func decimalToDMS(d float64) []Rat {
	a := Rat{num: int64(math.Round(math.Abs(d) * dmsScale)), den: dmsScale}.Reduce()
	sixty := IntRat(60)

	deg := a.Trunc()
	m := a.Sub(deg).Mul(sixty)
	minutes := m.Trunc()
	sec := m.Sub(minutes).Mul(sixty).Round(3)

	if sec.Cmp(sixty) >= 0 {
		sec = sec.Sub(sixty).Round(3)
		minutes = minutes.Add(IntRat(1))
	}
	if minutes.Cmp(sixty) >= 0 {
		minutes = minutes.Sub(sixty)
		deg = deg.Add(IntRat(1))
	}
	return []Rat{deg, minutes, sec}
}

func dmsToDecimal(f Field, v any) (float64, error) {
	dms, ok := v.([]Rat)
	if !ok || len(dms) != 3 {
		return 0, &ShapeError{Field: f, Want: "3 rationals (degrees, minutes, seconds)", Got: v}
	}
	return dms[0].Float64() + dms[1].Float64()/60 + dms[2].Float64()/3600, nil
}

func composeTimestamp(tv, dv any) (time.Time, error) {
	hms, ok := tv.([]Rat)
	if !ok || len(hms) != 3 {
		return time.Time{}, &ShapeError{Field: FieldTimeStamp, Want: "3 rationals (hour, minute, second)", Got: tv}
	}
	ds, _ := dv.(string)
	parts := strings.Split(ds, ":")
	if len(parts) != 3 {
		return time.Time{}, &ShapeError{Field: FieldDateStamp, Want: `"YYYY:MM:DD"`, Got: dv}
	}
	var ymd [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, &ShapeError{Field: FieldDateStamp, Want: `"YYYY:MM:DD"`, Got: dv}
		}
		ymd[i] = n
	}

	secs := hms[0].Float64()*3600 + hms[1].Float64()*60 + hms[2].Float64()
	day := time.Date(ymd[0], time.Month(ymd[1]), ymd[2], 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(math.Round(secs * float64(time.Second)))), nil
}

func toDecimal(f Field, v any) (float64, error) {
	switch vv := v.(type) {
	case float64:
		if !math.IsNaN(vv) && !math.IsInf(vv, 0) {
			return vv, nil
		}
	case float32:
		return toDecimal(f, float64(vv))
	case Rat:
		if vv.Reduce().den != 0 {
			return vv.Float64(), nil
		}
	default:
		if n, ok := toInt64(v); ok {
			return float64(n), nil
		}
	}
	return 0, &TypeError{Field: f, Value: v, Want: "decimal number"}
}
