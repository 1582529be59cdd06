package piece

import (
	terrors "github.com/dshills/txt/internal/errors"
)

// Change describes one splice of the list: the run Old that sat between
// Prev and Next was replaced by the run New. Either run may be empty.
//
// A Change holds a reference to every node it names until Discard.
type Change struct {
	Prev NodeID
	Next NodeID
	Old  []NodeID
	New  []NodeID
}

// IsEmpty reports whether the change neither removes nor adds anything.
func (c Change) IsEmpty() bool {
	return len(c.Old) == 0 && len(c.New) == 0
}

// First returns the first node of the replaced run, or None.
func (c Change) First() NodeID {
	if len(c.Old) == 0 {
		return None
	}
	return c.Old[0]
}

// Last returns the last node of the replaced run, or None.
func (c Change) Last() NodeID {
	if len(c.Old) == 0 {
		return None
	}
	return c.Old[len(c.Old)-1]
}

// Insert links a descriptor for src[off:off+size] so that its first byte
// lands at pos. pos may equal Len to append. If pos falls inside a node the
// node is replaced by its left part, the new node and its right part.
func (t *Table) Insert(pos int, src Source, off, size int) (Change, error) {
	if pos < 0 || pos > t.length || size <= 0 {
		return Change{}, terrors.ErrOutOfRange
	}

	var c Change
	if pos == t.length {
		n := t.alloc(Piece{Source: src, Offset: off, Size: size})
		c = Change{Prev: t.Last(), Next: Tail, New: []NodeID{n}}
	} else {
		cur, _, err := t.locate(pos)
		if err != nil {
			return Change{}, err
		}
		host := t.nodes[cur.Node]
		if cur.Offset == 0 {
			n := t.alloc(Piece{Source: src, Offset: off, Size: size})
			c = Change{Prev: host.prev, Next: cur.Node, New: []NodeID{n}}
		} else {
			left := t.alloc(Piece{Source: host.Source, Offset: host.Offset, Size: cur.Offset})
			n := t.alloc(Piece{Source: src, Offset: off, Size: size})
			right := t.alloc(Piece{
				Source: host.Source,
				Offset: host.Offset + cur.Offset,
				Size:   host.Size - cur.Offset,
			})
			c = Change{
				Prev: host.prev,
				Next: host.next,
				Old:  []NodeID{cur.Node},
				New:  []NodeID{left, n, right},
			}
		}
	}

	t.hold(c)
	t.Apply(c)
	return c, nil
}

// Delete removes the bytes [begin, end). Nodes wholly inside the span are
// unlinked; a boundary node partially covered is replaced by the part that
// survives. An empty span yields an empty Change and no mutation.
func (t *Table) Delete(begin, end int) (Change, error) {
	if begin < 0 || begin > end || end > t.length {
		return Change{}, terrors.ErrOutOfRange
	}
	if begin == end {
		return Change{Prev: None, Next: None}, nil
	}

	first, start, err := t.locate(begin)
	if err != nil {
		return Change{}, err
	}

	// Walk forward collecting the run until the node holding end-1.
	var old []NodeID
	id := first.Node
	pos := start
	for {
		old = append(old, id)
		size := t.nodes[id].Size
		if end <= pos+size {
			break
		}
		pos += size
		id = t.nodes[id].next
	}
	lastID := id
	cut := end - pos

	var repl []NodeID
	if first.Offset > 0 {
		f := t.nodes[first.Node]
		repl = append(repl, t.alloc(Piece{Source: f.Source, Offset: f.Offset, Size: first.Offset}))
	}
	l := t.nodes[lastID]
	if cut < l.Size {
		repl = append(repl, t.alloc(Piece{Source: l.Source, Offset: l.Offset + cut, Size: l.Size - cut}))
	}

	c := Change{
		Prev: t.nodes[first.Node].prev,
		Next: l.next,
		Old:  old,
		New:  repl,
	}
	t.hold(c)
	t.Apply(c)
	return c, nil
}

// Apply links c.New between c.Prev and c.Next, unlinking c.Old.
// The list must be in the state c was created against or the state
// produced by Revert(c).
func (t *Table) Apply(c Change) {
	if c.IsEmpty() {
		return
	}
	for _, id := range c.Old {
		t.unlink(id)
	}
	t.chain(c.Prev, c.New, c.Next)
	for _, id := range c.New {
		t.link(id)
	}
}

// Revert restores the list to its state before Apply(c).
func (t *Table) Revert(c Change) {
	if c.IsEmpty() {
		return
	}
	for _, id := range c.New {
		t.unlink(id)
	}
	t.chain(c.Prev, c.Old, c.Next)
	for _, id := range c.Old {
		t.link(id)
	}
}

// Discard releases the references c holds. Nodes referenced by nothing
// else, and not linked, are returned to the free list. c must not be used
// afterwards.
func (t *Table) Discard(c Change) {
	for _, id := range c.Old {
		t.release(id)
	}
	for _, id := range c.New {
		t.release(id)
	}
}

// hold takes c's references.
func (t *Table) hold(c Change) {
	for _, id := range c.Old {
		t.acquire(id)
	}
	for _, id := range c.New {
		t.acquire(id)
	}
}

// chain links prev -> run... -> next.
func (t *Table) chain(prev NodeID, run []NodeID, next NodeID) {
	last := prev
	for _, id := range run {
		t.nodes[last].next = id
		t.nodes[id].prev = last
		last = id
	}
	t.nodes[last].next = next
	t.nodes[next].prev = last
}
