package piece

import (
	terrors "github.com/dshills/txt/internal/errors"
)

// Source identifies which buffer a descriptor points into.
type Source uint8

const (
	// SourceFile is the read-only buffer holding the file as opened.
	SourceFile Source = iota
	// SourceEdit is the append-only buffer holding inserted text.
	SourceEdit

	numSources
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceFile:
		return "file"
	case SourceEdit:
		return "edit"
	default:
		return "unknown"
	}
}

// NodeID addresses a descriptor in the table's arena. IDs are stable for
// the life of the node.
type NodeID int32

// Sentinels bounding the list. They never describe bytes.
const (
	Head NodeID = 0
	Tail NodeID = 1

	None NodeID = -1
)

// Piece is the public view of a descriptor.
type Piece struct {
	Source Source
	Offset int
	Size   int
}

// node is one arena slot.
type node struct {
	Piece
	prev, next NodeID
	refs       int32
	live       bool
	free       bool
}

// Cursor addresses one byte: Offset bytes into Node.
type Cursor struct {
	Node   NodeID
	Offset int
}

// Table is a piece table: a doubly linked descriptor list between the Head
// and Tail sentinels, stored in an arena with a free list.
type Table struct {
	nodes   []node
	free    []NodeID
	sources [numSources]*Buffer
	length  int
	count   int
}

// NewTable creates an empty table.
func NewTable() *Table {
	t := &Table{nodes: make([]node, 2, 64)}
	t.nodes[Head] = node{prev: None, next: Tail, live: true}
	t.nodes[Tail] = node{prev: Head, next: None, live: true}
	return t
}

// SetSource installs the buffer that descriptors of kind s read from.
// Swapping a source for one with identical content is how a mapping is
// repointed without touching any descriptor.
func (t *Table) SetSource(s Source, b *Buffer) {
	t.sources[s] = b
}

// Source returns the buffer installed for s.
func (t *Table) Source(s Source) *Buffer {
	return t.sources[s]
}

// Len returns the document length in bytes.
func (t *Table) Len() int { return t.length }

// NodeCount returns the number of linked descriptors, sentinels excluded.
func (t *Table) NodeCount() int { return t.count }

// ArenaSize returns the number of arena slots in use, free or not.
func (t *Table) ArenaSize() int { return len(t.nodes) - len(t.free) }

// First returns the first descriptor, or Tail if the table is empty.
func (t *Table) First() NodeID { return t.nodes[Head].next }

// Last returns the last descriptor, or Head if the table is empty.
func (t *Table) Last() NodeID { return t.nodes[Tail].prev }

// Next returns the node after id.
func (t *Table) Next(id NodeID) NodeID { return t.nodes[id].next }

// Prev returns the node before id.
func (t *Table) Prev(id NodeID) NodeID { return t.nodes[id].prev }

// IsSentinel reports whether id is Head or Tail.
func IsSentinel(id NodeID) bool { return id == Head || id == Tail }

// Piece returns the descriptor stored at id.
func (t *Table) Piece(id NodeID) Piece { return t.nodes[id].Piece }

// Pieces returns the linked descriptors in document order.
func (t *Table) Pieces() []Piece {
	out := make([]Piece, 0, t.count)
	for id := t.First(); id != Tail; id = t.nodes[id].next {
		out = append(out, t.nodes[id].Piece)
	}
	return out
}

// Bytes returns the bytes described by id. The result aliases the source buffer.
func (t *Table) Bytes(id NodeID) []byte {
	n := &t.nodes[id]
	return t.sources[n.Source].Slice(n.Offset, n.Size)
}

// Locate finds the descriptor holding the byte at pos.
// It fails with ErrOutOfRange if pos is negative or pos >= Len.
//
// The walk is linear in the number of descriptors.
func (t *Table) Locate(pos int) (Cursor, error) {
	c, _, err := t.locate(pos)
	return c, err
}

// locate is Locate that also returns the document position where the
// found node starts.
func (t *Table) locate(pos int) (Cursor, int, error) {
	if pos < 0 || pos >= t.length {
		return Cursor{}, 0, terrors.ErrOutOfRange
	}
	start := 0
	for id := t.First(); id != Tail; id = t.nodes[id].next {
		size := t.nodes[id].Size
		if pos < start+size {
			return Cursor{Node: id, Offset: pos - start}, start, nil
		}
		start += size
	}
	return Cursor{}, 0, terrors.ErrOutOfRange
}

// Position returns the document position addressed by c.
func (t *Table) Position(c Cursor) int {
	pos := c.Offset
	for id := t.nodes[c.Node].prev; id != Head && id != None; id = t.nodes[id].prev {
		pos += t.nodes[id].Size
	}
	return pos
}

// alloc returns a fresh unreferenced node.
func (t *Table) alloc(p Piece) NodeID {
	n := node{Piece: p, prev: None, next: None}
	if k := len(t.free); k > 0 {
		id := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[id] = n
		return id
	}
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// acquire adds a reference to id.
func (t *Table) acquire(id NodeID) {
	t.nodes[id].refs++
}

// release drops a reference to id and frees it when none remain.
func (t *Table) release(id NodeID) {
	n := &t.nodes[id]
	n.refs--
	if n.refs <= 0 && !n.live {
		*n = node{prev: None, next: None, free: true}
		t.free = append(t.free, id)
	}
}

// link sets id's live flag and takes the list's reference.
func (t *Table) link(id NodeID) {
	n := &t.nodes[id]
	if !n.live {
		n.live = true
		n.refs++
		t.length += n.Size
		t.count++
	}
}

// unlink clears id's live flag and drops the list's reference.
func (t *Table) unlink(id NodeID) {
	n := &t.nodes[id]
	if n.live {
		n.live = false
		t.length -= n.Size
		t.count--
		t.release(id)
	}
}
