// Package mmap provides read-only memory-mapped file access.
package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

// ErrClosed is returned when accessing a mapping after Close.
var ErrClosed = errors.New("mmap: closed")

// File is a read-only memory-mapped file.
type File struct {
	data   []byte
	closed atomic.Bool
}

// Open maps the file at path into memory as read-only.
// The file descriptor is not kept open; the mapping outlives it.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &File{}, nil
	}
	if size < 0 {
		return nil, errors.New("mmap: negative file size")
	}

	data, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}

	return &File{data: data}, nil
}

// Bytes returns the mapped bytes. The slice is valid until Close.
func (m *File) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *File) Size() int64 {
	return int64(len(m.data))
}

// ReadAt implements io.ReaderAt.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the memory. It is idempotent.
func (m *File) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return osUnmap(data)
}
