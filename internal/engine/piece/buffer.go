package piece

import (
	terrors "github.com/dshills/txt/internal/errors"
)

// Buffer is an owned byte region. Size is the number of logically valid
// bytes and Capacity the number of bytes allocated or mapped.
//
// A Buffer either wraps a mapped region (read-only, fixed size) or grows by
// appending. Appends never move existing bytes as seen through offsets, so a
// descriptor's (offset, size) stays valid for the life of the buffer.
type Buffer struct {
	data    []byte
	size    int
	limit   int
	mapped  bool
	release func() error
}

// NewBuffer creates an empty growable buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{data: make([]byte, capacity)}
}

// NewMappedBuffer wraps a mapped region. All of data is valid content.
// release, if non-nil, is called by Close.
func NewMappedBuffer(data []byte, release func() error) *Buffer {
	return &Buffer{
		data:    data,
		size:    len(data),
		mapped:  true,
		release: release,
	}
}

// SetLimit caps the buffer's size in bytes. Zero means unbounded.
func (b *Buffer) SetLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	b.limit = limit
}

// Size returns the number of valid bytes.
func (b *Buffer) Size() int { return b.size }

// Capacity returns the number of allocated or mapped bytes.
func (b *Buffer) Capacity() int { return len(b.data) }

// Mapped reports whether the buffer wraps a memory mapping.
func (b *Buffer) Mapped() bool { return b.mapped }

// Append copies p to the end of the buffer and returns the offset it was
// stored at. It fails with ErrBufferExhausted if the buffer is mapped or the
// configured limit would be exceeded.
func (b *Buffer) Append(p []byte) (int, error) {
	if b.mapped {
		return 0, terrors.ErrBufferExhausted
	}
	need := b.size + len(p)
	if b.limit > 0 && need > b.limit {
		return 0, terrors.ErrBufferExhausted
	}
	if need > len(b.data) {
		b.grow(need)
	}
	off := b.size
	copy(b.data[off:], p)
	b.size = need
	return off, nil
}

// grow reallocates so that at least need bytes fit.
func (b *Buffer) grow(need int) {
	newCap := len(b.data) * 2
	if newCap < 256 {
		newCap = 256
	}
	for newCap < need {
		newCap *= 2
	}
	if b.limit > 0 && newCap > b.limit {
		newCap = b.limit
	}
	data := make([]byte, newCap)
	copy(data, b.data[:b.size])
	b.data = data
}

// Slice returns the bytes [off, off+n). The result aliases the buffer.
func (b *Buffer) Slice(off, n int) []byte {
	return b.data[off : off+n : off+n]
}

// Close releases the underlying region. The buffer must not be used afterwards.
func (b *Buffer) Close() error {
	var err error
	if b.release != nil {
		err = b.release()
		b.release = nil
	}
	b.data = nil
	b.size = 0
	return err
}
