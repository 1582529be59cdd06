// Package piece provides the piece table that describes a document's bytes.
//
// A piece table never copies document text. It keeps an ordered list of
// descriptors, each naming a contiguous run of bytes in one of two source
// buffers: the read-only file buffer (the file as it was opened) and the
// append-only edit buffer (every byte inserted during the session).
// Concatenating the runs in list order reproduces the document.
//
// Descriptors live in an arena and are addressed by NodeID. Nodes are never
// moved or mutated after creation, only relinked, so an edit is described by
// the run of nodes it removed and the run it linked in (a Change). Reverting
// a Change relinks the removed run, which is how undo works.
//
// Ownership is reference counted: the live list holds one reference to each
// linked node and every Change holds one reference to each node it names.
// Discard releases a Change; a node returns to the free list when nothing
// references it.
//
// Basic usage:
//
//	t := piece.NewTable()
//	edit := piece.NewBuffer(0)
//	t.SetSource(piece.SourceEdit, edit)
//
//	off, _ := edit.Append([]byte("hello"))
//	c, _ := t.Insert(0, piece.SourceEdit, off, 5)
//
//	t.Revert(c) // document is empty again
//	t.Apply(c)  // "hello"
//	t.Discard(c)
//
// Table is not safe for concurrent use.
package piece
