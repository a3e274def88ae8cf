// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/bep/geotag"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
)

func TestRunWriteAndRead(t *testing.T) {
	c := qt.New(t)
	filename := writeTestJPEG(c, c.TempDir())
	logger := zerolog.Nop()

	// Without -create-exif the file is rejected.
	var out bytes.Buffer
	err := run([]string{"-lat", "45.523", filename}, &out, logger)
	c.Assert(errors.Is(err, geotag.ErrNoExif), qt.IsTrue)

	out.Reset()
	err = run([]string{
		"-create-exif",
		"-lat", "45.523", "-lon", "-73.588", "-alt", "12.5",
		"-time", "2023-07-04T09:15:30Z",
		"-method", "GPS",
		"-set", "map_datum=WGS-84",
		"-set", "dop=1/2",
		filename,
	}, &out, logger)
	c.Assert(err, qt.IsNil)
	c.Assert(readOutput(c, &out, filename), qt.HasLen, 0)

	out.Reset()
	c.Assert(run([]string{filename}, &out, logger), qt.IsNil)
	rec := readOutput(c, &out, filename)

	c.Assert(rec["latitude_ref"], qt.Equals, "N")
	c.Assert(rec["longitude_ref"], qt.Equals, "W")
	c.Assert(rec["decimal_latitude"], eqFloat, 45.523)
	c.Assert(rec["decimal_longitude"], eqFloat, 73.588)
	c.Assert(rec["altitude"], qt.Equals, "25/2")
	c.Assert(rec["altitude_ref"], qt.Equals, 0)
	c.Assert(rec["map_datum"], qt.Equals, "WGS-84")
	c.Assert(rec["dop"], qt.Equals, "1/2")
	c.Assert(rec["processing_method"], qt.Equals, "GPS")
	c.Assert(rec["date_stamp"], qt.Equals, "2023:07:04")
	c.Assert(rec["timestamp"], qt.Equals, "2023-07-04T09:15:30Z")

	// A second write prints the previous values.
	out.Reset()
	c.Assert(run([]string{"-alt", "-3", filename}, &out, logger), qt.IsNil)
	prev := readOutput(c, &out, filename)
	c.Assert(prev["altitude"], qt.Equals, "25/2")
	c.Assert(prev["altitude_ref"], qt.Equals, 0)
	_, found := prev["latitude"]
	c.Assert(found, qt.IsFalse)
}

func TestRunCharacterCodeByteOrder(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	filename := writeTestJPEG(c, dir)
	logger := zerolog.Nop()

	// The EXIF data is little endian, the tool's default for new data is not.
	_, err := geotag.Write(filename, geotag.Record{geotag.FieldMapDatum: "WGS-84"},
		geotag.Options{CreateExif: true, ByteOrder: binary.LittleEndian})
	c.Assert(err, qt.IsNil)

	var out bytes.Buffer
	c.Assert(run([]string{"-area", "Málaga", "-method", "GPS", filename}, &out, logger), qt.IsNil)

	x, err := geotag.JPEGStore{}.Load(filename)
	c.Assert(err, qt.IsNil)
	c.Assert(x.ByteOrder, qt.Equals, binary.ByteOrder(binary.LittleEndian))
	got := geotag.Decode(x, geotag.Options{})
	area, err := geotag.DecodeCharacterCode(got[geotag.FieldAreaInformation].([]byte), x.ByteOrder)
	c.Assert(err, qt.IsNil)
	c.Assert(area, qt.Equals, "Málaga")

	out.Reset()
	c.Assert(run([]string{filename}, &out, logger), qt.IsNil)
	rec := readOutput(c, &out, filename)
	c.Assert(rec["area_information"], qt.Equals, "Málaga")
	c.Assert(rec["processing_method"], qt.Equals, "GPS")
}

func TestRunErrors(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	filename := writeTestJPEG(c, dir)
	logger := zerolog.Nop()
	var out bytes.Buffer

	c.Assert(run(nil, &out, logger), qt.ErrorMatches, "no files given")
	c.Assert(run([]string{"-set", "map_datum", filename}, &out, logger), qt.IsNotNil)
	c.Assert(run([]string{"-set", "colour=red", filename}, &out, logger), qt.ErrorMatches, `unknown field "colour"`)
	c.Assert(run([]string{"-time", "yesterday", filename}, &out, logger), qt.IsNotNil)
	c.Assert(run([]string{"-create-exif", "-lat", "95", filename}, &out, logger), qt.IsNotNil)
	c.Assert(run([]string{filepath.Join(dir, "missing.jpg")}, &out, logger), qt.IsNotNil)
}

func TestRunRecordSources(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	filename := writeTestJPEG(c, dir)
	logger := zerolog.Nop()

	config := writeFile(c, dir, "config.yaml", `
byte_order: little
create_exif: true
log_level: warn
record:
  map_datum: TOKYO
  satellites: "5"
`)
	record := writeFile(c, dir, "record.yaml", `
map_datum: WGS-84
altitude: 100
`)
	nmea := writeFile(c, dir, "track.nmea", "$GPGGA,123520,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*4D\n")

	var out bytes.Buffer
	c.Assert(run([]string{
		"-config", config,
		"-record", record,
		"-nmea", nmea,
		"-set", "satellites=7",
		filename,
	}, &out, logger), qt.IsNil)

	got, err := geotag.Read(filename, geotag.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(got[geotag.FieldMapDatum], qt.Equals, "WGS-84")
	c.Assert(got[geotag.FieldSatellites], qt.Equals, "7")
	// The NMEA altitude wins over the record file.
	c.Assert(got[geotag.FieldDecimalAltitude], eqFloat, 545.4)
	c.Assert(got[geotag.FieldDecimalLatitude], eqFloat, 48.1173)

	x, err := geotag.JPEGStore{}.Load(filename)
	c.Assert(err, qt.IsNil)
	c.Assert(x.ByteOrder, qt.Equals, binary.ByteOrder(binary.LittleEndian))
}

func TestLoadConfig(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	config, err := LoadConfig(writeFile(c, dir, "config.yaml", `
max_denominator: 1000
byte_order: II
log_level: debug
record:
  dop: 1.5
`))
	c.Assert(err, qt.IsNil)
	c.Assert(config.MaxDenominator, qt.Equals, int64(1000))
	c.Assert(config.Record["dop"], qt.Equals, 1.5)

	order, err := config.byteOrder()
	c.Assert(err, qt.IsNil)
	c.Assert(order, qt.Equals, binary.ByteOrder(binary.LittleEndian))

	level, err := config.logLevel()
	c.Assert(err, qt.IsNil)
	c.Assert(level, qt.Equals, zerolog.DebugLevel)

	opts, err := config.options(zerolog.Nop())
	c.Assert(err, qt.IsNil)
	c.Assert(opts.MaxDenominator, qt.Equals, int64(1000))
	c.Assert(opts.Warnf, qt.IsNotNil)

	c.Run("Errors", func(c *qt.C) {
		_, err := LoadConfig(writeFile(c, dir, "unknown.yaml", "colour: red\n"))
		c.Assert(err, qt.IsNotNil)

		_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
		c.Assert(errors.Is(err, os.ErrNotExist), qt.IsTrue)

		_, err = (&Config{ByteOrder: "middle"}).byteOrder()
		c.Assert(err, qt.ErrorMatches, `invalid byte_order "middle"`)

		_, err = (&Config{LogLevel: "loud"}).logLevel()
		c.Assert(err, qt.IsNotNil)
	})
}

func TestDisplayValue(t *testing.T) {
	c := qt.New(t)
	order := binary.ByteOrder(binary.BigEndian)

	c.Assert(displayValue(geotag.FieldAltitude, geotag.MustNewRat(25, 2), order), qt.Equals, "25/2")
	c.Assert(displayValue(geotag.FieldLatitude, []geotag.Rat{geotag.IntRat(45), geotag.IntRat(31), geotag.MustNewRat(114, 5)}, order),
		qt.DeepEquals, []string{"45", "31", "114/5"})
	c.Assert(displayValue(geotag.FieldVersionID, []byte{1, 2}, order), qt.Equals, "01 02")
	c.Assert(displayValue(geotag.FieldDOP, math.Pi, order), qt.Equals, math.Pi)

	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		b := geotag.EncodeCharacterCode("Málaga", order)
		c.Assert(displayValue(geotag.FieldAreaInformation, b, order), qt.Equals, "Málaga")
	}
}

func writeTestJPEG(c *qt.C, dir string) string {
	c.Helper()
	var buf bytes.Buffer
	c.Assert(jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil), qt.IsNil)
	filename := filepath.Join(dir, "photo.jpg")
	c.Assert(os.WriteFile(filename, buf.Bytes(), 0o644), qt.IsNil)
	return filename
}

func writeFile(c *qt.C, dir, name, content string) string {
	c.Helper()
	filename := filepath.Join(dir, name)
	c.Assert(os.WriteFile(filename, []byte(content), 0o644), qt.IsNil)
	return filename
}

func readOutput(c *qt.C, out *bytes.Buffer, filename string) map[string]any {
	c.Helper()
	var m map[string]map[string]any
	c.Assert(yaml.Unmarshal(out.Bytes(), &m), qt.IsNil)
	rec, ok := m[filename]
	c.Assert(ok, qt.IsTrue, qt.Commentf("no output for %s in %q", filename, out.String()))
	return rec
}

var eqFloat = qt.CmpEquals(
	cmp.Comparer(func(x, y float64) bool {
		return math.Abs(x-y) < 1e-6
	}),
)
