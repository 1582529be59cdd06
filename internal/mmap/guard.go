package mmap

import (
	"runtime"
	"runtime/debug"
)

// Guard runs fn and converts a memory fault raised inside it into ErrFault.
// Any other panic is propagated unchanged.
//
// Only faults raised on the calling goroutine are caught.
func Guard(fn func()) (err error) {
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		r := recover()
		if r == nil {
			return
		}
		if re, ok := r.(runtime.Error); ok {
			if _, ok := re.(interface{ Addr() uintptr }); ok {
				err = ErrFault
				return
			}
		}
		panic(r)
	}()
	fn()
	return nil
}
