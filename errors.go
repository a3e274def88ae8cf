// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import (
	"errors"
	"fmt"
)

// SizeLimit is the maximum size in bytes of a serialized EXIF payload.
const SizeLimit = 65535

var (
	// ErrNoExif is returned when a file has no EXIF data to update.
	ErrNoExif = errors.New("file not readable or no EXIF data")

	errInvalidFormat = errors.New("geotag: invalid format")

	// Internal error to signal that we should stop any further processing.
	errStop = errors.New("stop")
)

// IsInvalidFormat reports whether err signals corrupt JPEG or TIFF structure.
func IsInvalidFormat(err error) bool {
	return errors.Is(err, errInvalidFormat)
}

func newInvalidFormatErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidFormat, fmt.Sprintf(format, args...))
}

// FormatMismatchError is reported when a stored entry does not match the
// schema of its tag. The entry is skipped.
type FormatMismatchError struct {
	Field  Field
	Format Format
	Count  uint32
	Size   int
	Reason string
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("%s: format mismatch (%s, count %d, %d bytes): %s", e.Field, e.Format, e.Count, e.Size, e.Reason)
}

// ShapeError is reported when a value does not have the required number
// of parts, e.g. a DMS triple with two elements. The field is skipped.
type ShapeError struct {
	Field Field
	Want  string
	Got   any
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %v", e.Field, e.Want, e.Got)
}

// TypeError is returned when a caller supplied value has the wrong type or
// is out of range for its field. It aborts the whole operation.
type TypeError struct {
	Field Field
	Value any
	Want  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %T (%v)", e.Field, e.Want, e.Value, e.Value)
}

// SizeLimitError is returned when the serialized EXIF data exceeds SizeLimit.
// Nothing is written.
type SizeLimitError struct {
	Size int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("EXIF data too large: %d bytes, max %d", e.Size, SizeLimit)
}

// IOError is returned when a file cannot be loaded or saved.
type IOError struct {
	Op       string
	Filename string
	Err      error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Filename, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// checkSize applies the EXIF size limit to a payload of n bytes.
func checkSize(n int) error {
	if n > SizeLimit {
		return &SizeLimitError{Size: n}
	}
	return nil
}
