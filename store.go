// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

// Store loads and saves the EXIF data of a file.
type Store interface {
	// Load returns the EXIF data of filename, or an error wrapping
	// ErrNoExif if it has none.
	Load(filename string) (*Exif, error)

	// Save replaces the EXIF data of filename with x.
	Save(filename string, x *Exif) error
}
