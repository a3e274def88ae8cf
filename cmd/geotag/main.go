// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Command geotag reads and writes the GPS tags of JPEG files.
//
// Without any values to write, the current GPS tags of each file are
// printed as YAML. Otherwise the values are written and the previous values
// of the changed tags are printed.
//
//	geotag -lat 45.523 -lon -73.588 -alt 12.5 photo.jpg
//	geotag -set map_datum=WGS-84 -set dop=1/2 photo.jpg
//	geotag -nmea track.nmea -create-exif photo.jpg
package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/bep/geotag"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error().Err(err).Msg("geotag failed")
		os.Exit(1)
	}
}

// setFlags collects repeated -set key=value flags.
type setFlags []string

func (s *setFlags) String() string {
	return strings.Join(*s, ",")
}

func (s *setFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	*s = append(*s, v)
	return nil
}

type cliFlags struct {
	configFile string
	recordFile string
	nmeaFile   string
	sets       setFlags

	lat, lon, alt float64
	timestamp     string
	method        string
	area          string

	createExif bool
	verbose    bool
}

func run(args []string, stdout io.Writer, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("geotag", flag.ContinueOnError)
	var cf cliFlags
	fs.StringVar(&cf.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&cf.recordFile, "record", "", "YAML file with field values to write")
	fs.StringVar(&cf.nmeaFile, "nmea", "", "NMEA log; the last fix is written")
	fs.Var(&cf.sets, "set", "field value to write as key=value (repeatable)")
	fs.Float64Var(&cf.lat, "lat", math.NaN(), "decimal latitude")
	fs.Float64Var(&cf.lon, "lon", math.NaN(), "decimal longitude")
	fs.Float64Var(&cf.alt, "alt", math.NaN(), "decimal altitude in meters")
	fs.StringVar(&cf.timestamp, "time", "", "GPS timestamp (RFC 3339)")
	fs.StringVar(&cf.method, "method", "", "processing method, e.g. GPS or NETWORK")
	fs.StringVar(&cf.area, "area", "", "area information")
	fs.BoolVar(&cf.createExif, "create-exif", false, "add EXIF data to files without it")
	fs.BoolVar(&cf.verbose, "v", false, "verbose logging")
	fs.SetOutput(stdout)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no files given")
	}

	config := &Config{}
	if cf.configFile != "" {
		var err error
		if config, err = LoadConfig(cf.configFile); err != nil {
			return err
		}
	}
	if cf.createExif {
		config.CreateExif = true
	}

	level, err := config.logLevel()
	if err != nil {
		return err
	}
	if cf.verbose {
		level = zerolog.DebugLevel
	}
	logger = logger.Level(level)

	opts, err := config.options(logger)
	if err != nil {
		return err
	}

	rec, err := buildRecord(config, cf)
	if err != nil {
		return err
	}

	for _, filename := range fs.Args() {
		log := logger.With().Str("file", filename).Logger()

		var (
			out geotag.Record
			err error
		)
		if len(rec) == 0 {
			out, err = geotag.Read(filename, opts)
		} else {
			log.Debug().Int("fields", len(rec)).Msg("writing GPS tags")
			out, err = geotag.Write(filename, rec, opts)
		}
		if err != nil {
			return err
		}

		if err := printRecord(stdout, filename, out, fileByteOrder(filename, opts)); err != nil {
			return err
		}
		log.Debug().Msg("done")
	}

	return nil
}

// buildRecord merges, in increasing priority, the config record, the record
// file, the NMEA log, -set flags and the dedicated flags.
func buildRecord(config *Config, cf cliFlags) (geotag.Record, error) {
	rec := geotag.Record{}
	merge := func(r geotag.Record) {
		for k, v := range r {
			rec[k] = v
		}
	}

	if len(config.Record) > 0 {
		r, err := geotag.RecordFromMap(config.Record)
		if err != nil {
			return nil, err
		}
		merge(r)
	}

	if cf.recordFile != "" {
		b, err := os.ReadFile(cf.recordFile)
		if err != nil {
			return nil, err
		}
		var m map[string]any
		if err := yaml.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("record %s: %w", cf.recordFile, err)
		}
		r, err := geotag.RecordFromMap(m)
		if err != nil {
			return nil, err
		}
		merge(r)
	}

	if cf.nmeaFile != "" {
		lines, err := readLines(cf.nmeaFile)
		if err != nil {
			return nil, err
		}
		r, err := geotag.RecordFromNMEA(lines)
		if err != nil {
			return nil, err
		}
		merge(r)
	}

	if len(cf.sets) > 0 {
		m := make(map[string]any, len(cf.sets))
		for _, kv := range cf.sets {
			k, v, _ := strings.Cut(kv, "=")
			// Values are YAML scalars or flow sequences, e.g. 12.5 or [45, 31, 22.8].
			var val any
			if err := yaml.Unmarshal([]byte(v), &val); err != nil {
				return nil, fmt.Errorf("-set %s: %w", kv, err)
			}
			if val == nil {
				val = v
			}
			m[k] = val
		}
		r, err := geotag.RecordFromMap(m)
		if err != nil {
			return nil, err
		}
		merge(r)
	}

	if !math.IsNaN(cf.lat) {
		rec[geotag.FieldDecimalLatitude] = cf.lat
	}
	if !math.IsNaN(cf.lon) {
		rec[geotag.FieldDecimalLongitude] = cf.lon
	}
	if !math.IsNaN(cf.alt) {
		rec[geotag.FieldDecimalAltitude] = cf.alt
	}
	if cf.timestamp != "" {
		t, err := time.Parse(time.RFC3339Nano, cf.timestamp)
		if err != nil {
			return nil, fmt.Errorf("-time: %w", err)
		}
		rec[geotag.FieldTimestamp] = t
	}
	if cf.method != "" {
		rec[geotag.FieldProcessingMethod] = cf.method
	}
	if cf.area != "" {
		rec[geotag.FieldAreaInformation] = cf.area
	}

	return rec, nil
}

func readLines(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// fileByteOrder returns the byte order of the EXIF data in filename,
// which character codes are stored in.
func fileByteOrder(filename string, opts geotag.Options) binary.ByteOrder {
	store := opts.Store
	if store == nil {
		store = geotag.JPEGStore{}
	}
	if x, err := store.Load(filename); err == nil {
		return x.ByteOrder
	}
	return opts.ByteOrder
}

// printRecord writes rec as a YAML document keyed by filename.
func printRecord(w io.Writer, filename string, rec geotag.Record, byteOrder binary.ByteOrder) error {
	m := make(map[string]any, len(rec))
	for _, f := range rec.Fields() {
		m[f.String()] = displayValue(f, rec[f], byteOrder)
	}
	b, err := yaml.Marshal(map[string]any{filename: m})
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func displayValue(f geotag.Field, v any, byteOrder binary.ByteOrder) any {
	switch vv := v.(type) {
	case geotag.Rat:
		return vv.String()
	case []geotag.Rat:
		s := make([]string, len(vv))
		for i, r := range vv {
			s[i] = r.String()
		}
		return s
	case []byte:
		if f == geotag.FieldProcessingMethod || f == geotag.FieldAreaInformation {
			if s, err := geotag.DecodeCharacterCode(vv, byteOrder); err == nil {
				return s
			}
		}
		return fmt.Sprintf("% x", vv)
	case time.Time:
		return vv.Format(time.RFC3339Nano)
	}
	return v
}
