// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/bep/geotag"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config represents the structure of the configuration file.
type Config struct {
	MaxDenominator int64          `yaml:"max_denominator"` // Max denominator for decimal to rational conversion
	ByteOrder      string         `yaml:"byte_order"`      // "big" or "little", for newly created EXIF data
	CreateExif     bool           `yaml:"create_exif"`     // Add EXIF data to files without it
	LogLevel       string         `yaml:"log_level"`       // zerolog level name
	Record         map[string]any `yaml:"record"`          // Field values to write
}

// LoadConfig reads the YAML configuration in filename.
func LoadConfig(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var config Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("config %s: %w", filename, err)
	}
	return &config, nil
}

func (c *Config) byteOrder() (binary.ByteOrder, error) {
	switch strings.ToLower(c.ByteOrder) {
	case "", "big", "mm":
		return binary.BigEndian, nil
	case "little", "ii":
		return binary.LittleEndian, nil
	}
	return nil, fmt.Errorf("invalid byte_order %q", c.ByteOrder)
}

func (c *Config) logLevel() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(c.LogLevel)
}

// options returns the geotag options for c, with warnings sent to logger.
func (c *Config) options(logger zerolog.Logger) (geotag.Options, error) {
	order, err := c.byteOrder()
	if err != nil {
		return geotag.Options{}, err
	}
	return geotag.Options{
		MaxDenominator: c.MaxDenominator,
		CreateExif:     c.CreateExif,
		ByteOrder:      order,
		Warnf: func(format string, args ...any) {
			logger.Warn().Msgf(format, args...)
		},
	}, nil
}
