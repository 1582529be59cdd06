package piece

import (
	"io"

	terrors "github.com/dshills/txt/internal/errors"
)

// ReadAt implements io.ReaderAt over the document bytes.
func (t *Table) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, terrors.ErrOutOfRange
	}
	if off >= int64(t.length) {
		return 0, io.EOF
	}
	cur, _, err := t.locate(int(off))
	if err != nil {
		return 0, err
	}
	n := 0
	for id, skip := cur.Node, cur.Offset; id != Tail && n < len(p); id, skip = t.nodes[id].next, 0 {
		n += copy(p[n:], t.Bytes(id)[skip:])
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Block returns the contiguous bytes starting at pos inside a single
// descriptor, at most max of them. The result aliases a source buffer.
// At pos == Len it returns io.EOF.
func (t *Table) Block(pos, max int) ([]byte, error) {
	if pos == t.length {
		return nil, io.EOF
	}
	cur, _, err := t.locate(pos)
	if err != nil {
		return nil, err
	}
	b := t.Bytes(cur.Node)[cur.Offset:]
	if max >= 0 && len(b) > max {
		b = b[:max]
	}
	return b, nil
}

// WriteTo streams the document to w descriptor by descriptor.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for id := t.First(); id != Tail; id = t.nodes[id].next {
		n, err := w.Write(t.Bytes(id))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// CopyTo copies the document into dst and returns the number of bytes copied.
func (t *Table) CopyTo(dst []byte) int {
	n := 0
	for id := t.First(); id != Tail && n < len(dst); id = t.nodes[id].next {
		n += copy(dst[n:], t.Bytes(id))
	}
	return n
}

// ByteBefore returns the byte immediately left of c, crossing into the
// previous descriptor if needed. ok is false at the document start.
func (t *Table) ByteBefore(c Cursor) (b byte, ok bool) {
	if c.Offset > 0 {
		return t.Bytes(c.Node)[c.Offset-1], true
	}
	prev := t.nodes[c.Node].prev
	if prev == Head || prev == None {
		return 0, false
	}
	bs := t.Bytes(prev)
	return bs[len(bs)-1], true
}

// ByteAfter returns the byte immediately right of c. ok is false at the
// document end.
func (t *Table) ByteAfter(c Cursor) (b byte, ok bool) {
	if c.Offset+1 < t.nodes[c.Node].Size {
		return t.Bytes(c.Node)[c.Offset+1], true
	}
	next := t.nodes[c.Node].next
	if next == Tail || next == None {
		return 0, false
	}
	return t.Bytes(next)[0], true
}

// Scan calls fn with each contiguous chunk of the inclusive span [from, to]
// in document order. Scan stops early if fn returns false.
func (t *Table) Scan(from, to Cursor, fn func([]byte) bool) {
	for id := from.Node; id != Tail && id != None; id = t.nodes[id].next {
		b := t.Bytes(id)
		lo, hi := 0, len(b)
		if id == from.Node {
			lo = from.Offset
		}
		if id == to.Node {
			hi = to.Offset + 1
		}
		if !fn(b[lo:hi]) || id == to.Node {
			return
		}
	}
}

// End returns the cursor of the last byte of a run of n bytes starting at c.
// n must be positive and the run must lie inside the document.
func (t *Table) End(c Cursor, n int) Cursor {
	id, off := c.Node, c.Offset
	for {
		avail := t.nodes[id].Size - off
		if n <= avail {
			return Cursor{Node: id, Offset: off + n - 1}
		}
		n -= avail
		id = t.nodes[id].next
		off = 0
	}
}
