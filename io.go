// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

var errShortRead = errors.New("short read")

// 10 MB should be plenty for image metadata.
const maxBufSize = 10 * 1024 * 1024

func newStreamReader(r io.ReadSeeker, byteOrder binary.ByteOrder) *streamReader {
	return &streamReader{
		r:         r,
		byteOrder: byteOrder,
	}
}

func newBytesStreamReader(b []byte, byteOrder binary.ByteOrder) *streamReader {
	return newStreamReader(bytes.NewReader(b), byteOrder)
}

// streamReader is a wrapper around a Reader that provides methods to read binary data.
// Read errors panic with errStop, see recoverStop.
// Note that this is not thread safe.
type streamReader struct {
	r         io.ReadSeeker
	byteOrder binary.ByteOrder

	buf []byte

	readErr error
}

func (e *streamReader) allocateBuf(length int) {
	if length > cap(e.buf) {
		e.buf = make([]byte, length)
	}
}

func (e *streamReader) pos() int64 {
	n, _ := e.r.Seek(0, io.SeekCurrent)
	return n
}

func (e *streamReader) read1() uint8 {
	const n = 1
	e.readNIntoBuf(n)
	return e.buf[0]
}

func (e *streamReader) read2() uint16 {
	const n = 2
	e.readNIntoBuf(n)
	return e.byteOrder.Uint16(e.buf[:n])
}

func (e *streamReader) read4() uint32 {
	const n = 4
	e.readNIntoBuf(n)
	return e.byteOrder.Uint32(e.buf[:n])
}

// readBytes reads n bytes into a new slice owned by the caller.
func (e *streamReader) readBytes(n int) []byte {
	if n < 0 || n > maxBufSize {
		e.stop(newInvalidFormatErrorf("length %d out of range", n))
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(e.r, b); err != nil {
		e.stop(err)
	}
	return b
}

func (e *streamReader) readNIntoBuf(n int) {
	e.allocateBuf(n)
	n2, err := io.ReadFull(e.r, e.buf[:n])
	if err != nil {
		e.stop(err)
	}
	if n != n2 {
		e.stop(errShortRead)
	}
}

// preservePos runs f and seeks back to where it started.
func (e *streamReader) preservePos(f func() error) error {
	pos := e.pos()
	err := f()
	e.seek(pos)
	return err
}

func (e *streamReader) seek(pos int64) {
	if _, err := e.r.Seek(pos, io.SeekStart); err != nil {
		e.stop(err)
	}
}

func (e *streamReader) skip(n int64) {
	if _, err := e.r.Seek(n, io.SeekCurrent); err != nil {
		e.stop(err)
	}
}

func (e *streamReader) stop(err error) {
	if err != nil {
		e.readErr = err
	}
	panic(errStop)
}

// recoverStop turns a panic raised by stop into an error.
// Read errors on a structure that claims to be complete mean it is corrupt.
func (e *streamReader) recoverStop(r any) error {
	if r == nil {
		return nil
	}
	if r != errStop {
		if err, ok := r.(error); ok {
			return newInvalidFormatErrorf("%v", err)
		}
		panic(r)
	}
	err := e.readErr
	if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF || err == errShortRead {
		return newInvalidFormatErrorf("unexpected end of data")
	}
	if IsInvalidFormat(err) {
		return err
	}
	return newInvalidFormatErrorf("%v", err)
}
