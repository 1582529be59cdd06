//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

// Map represents a memory-mapped file region.
type Map struct {
	region   []byte // whole page-aligned mapping
	data     []byte // region[:size]
	fd       int
	size     int
	writable bool
}

// PageSize returns the system page size.
func PageSize() int {
	return unix.Getpagesize()
}

// New maps the first size bytes of f. The file must already be at least
// size bytes long. A writable mapping is shared, so stores reach the file.
func New(f *os.File, size int, writable bool) (*Map, error) {
	m := &Map{fd: int(f.Fd()), writable: writable}
	if err := m.mmap(size); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Map) mmap(size int) error {
	if size <= 0 {
		return ErrInvalidSize
	}
	prot := unix.PROT_READ
	if m.writable {
		prot |= unix.PROT_WRITE
	}
	region, err := unix.Mmap(m.fd, 0, RoundUp(size), prot, unix.MAP_SHARED)
	if err != nil {
		return &Error{Op: "map", Err: err}
	}
	m.region = region
	m.data = region[:size:size]
	m.size = size
	return nil
}

// Remap replaces the mapping with one of size bytes. Callers resize the
// file first. The previous Data slice must not be used afterwards.
func (m *Map) Remap(size int) error {
	if err := m.unmap(); err != nil {
		return err
	}
	return m.mmap(size)
}

// Data returns the mapped bytes. Reads and writes should run under Guard.
func (m *Map) Data() []byte {
	return m.data
}

// Size returns the current mapped size.
func (m *Map) Size() int {
	return m.size
}

// Capacity returns the page-aligned length of the mapping.
func (m *Map) Capacity() int {
	return len(m.region)
}

// Writable returns true if the mapping is writable.
func (m *Map) Writable() bool {
	return m.writable
}

// Sync flushes the mapping to storage and waits for completion.
func (m *Map) Sync() error {
	if m.region == nil {
		return ErrNotMapped
	}
	if err := unix.Msync(m.region, unix.MS_SYNC); err != nil {
		return &Error{Op: "sync", Err: err}
	}
	return nil
}

// Close unmaps the region. Closing an unmapped Map is a no-op.
func (m *Map) Close() error {
	return m.unmap()
}

func (m *Map) unmap() error {
	if m.region == nil {
		return nil
	}
	region := m.region
	m.region, m.data, m.size = nil, nil, 0
	if err := unix.Munmap(region); err != nil {
		return &Error{Op: "unmap", Err: err}
	}
	return nil
}
