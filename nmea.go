// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// RecordFromNMEA builds a Record from NMEA 0183 sentences, e.g. the lines
// of a GPS logger track. Values from later sentences replace earlier ones,
// so the result describes the last fix in lines.
//
// RMC gives the timestamp, position, status, speed and track; GGA the
// position, altitude and number of satellites; GSA the measure mode and
// DOP. Other sentence types and empty lines are ignored.
func RecordFromNMEA(lines []string) (Record, error) {
	rec := Record{}
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sentence, err := nmea.Parse(line)
		if err != nil {
			var notSupported *nmea.NotSupportedError
			if errors.As(err, &notSupported) {
				continue
			}
			return nil, fmt.Errorf("nmea: line %d: %w", i+1, err)
		}

		switch s := sentence.(type) {
		case nmea.RMC:
			applyRMC(rec, s)
		case nmea.GGA:
			applyGGA(rec, s)
		case nmea.GSA:
			applyGSA(rec, s)
		}
	}
	return rec, nil
}

func applyRMC(rec Record, s nmea.RMC) {
	rec[FieldStatus] = s.Validity
	if s.Validity != nmea.ValidRMC {
		return
	}
	rec[FieldDecimalLatitude] = s.Latitude
	rec[FieldDecimalLongitude] = s.Longitude
	rec[FieldSpeed] = s.Speed
	rec[FieldSpeedRef] = "N"
	rec[FieldTrack] = s.Course
	rec[FieldTrackRef] = "T"
	if s.Date.Valid && s.Time.Valid {
		rec[FieldTimestamp] = time.Date(
			2000+s.Date.YY, time.Month(s.Date.MM), s.Date.DD,
			s.Time.Hour, s.Time.Minute, s.Time.Second, s.Time.Millisecond*int(time.Millisecond),
			time.UTC,
		)
	}
}

func applyGGA(rec Record, s nmea.GGA) {
	if s.FixQuality == nmea.Invalid {
		return
	}
	rec[FieldDecimalLatitude] = s.Latitude
	rec[FieldDecimalLongitude] = s.Longitude
	rec[FieldDecimalAltitude] = s.Altitude
	rec[FieldSatellites] = strconv.FormatInt(s.NumSatellites, 10)
}

func applyGSA(rec Record, s nmea.GSA) {
	switch s.FixType {
	case nmea.Fix2D, nmea.Fix3D:
		rec[FieldMeasureMode] = s.FixType
		rec[FieldDOP] = s.PDOP
	}
}
