// Package mmap maps regular files into memory and guards access to the
// mapped bytes.
//
// Mappings are always page aligned: a mapping of n bytes reserves n rounded
// up to the page size, while Data exposes exactly n bytes. Touching a page
// whose backing storage has disappeared (the file was truncated by another
// process, or the device failed) raises a fault; Guard turns that fault into
// an error instead of a crash.
package mmap

import (
	terrors "github.com/dshills/txt/internal/errors"
)

// Error represents an mmap error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "mmap: " + e.Op + ": " + e.Err.Error()
	}
	return "mmap: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrInvalidSize = &Error{Op: "invalid size"}
	ErrNotMapped   = &Error{Op: "not mapped"}
	ErrFault       = &Error{Op: "access", Err: terrors.ErrMappedAccessFault}
)

// RoundUp returns n rounded up to a multiple of the page size.
func RoundUp(n int) int {
	ps := PageSize()
	if n <= 0 {
		return 0
	}
	return (n + ps - 1) / ps * ps
}
