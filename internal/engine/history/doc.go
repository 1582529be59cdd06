// Package history provides undo/redo for a piece-table document.
//
// # Operations
//
// An Operation records the piece.Change values an edit applied, together
// with the statistics and length deltas the edit caused. Because a change
// names the exact node runs it swapped, undo relinks the old run and redo
// relinks the new one; no text is copied.
//
// # History Stack
//
// History keeps a linear undo stack and a redo stack:
//
//	h := NewHistory(owner)
//	h.Push(op)  // after the edit was applied; clears redo
//	h.Undo()    // owner.Revert(op)
//	h.Redo()    // owner.Reapply(op)
//
// Strict LIFO order guarantees that the neighbours a change was spliced
// between are linked again when it is reverted or reapplied.
//
// # Node Ownership
//
// Each operation holds references on the nodes it names. When an
// operation becomes unreachable (the redo stack is cleared, the undo stack
// is trimmed, or a group is cancelled) the owner's Discard releases them.
//
// # Grouping
//
// Multiple operations can be grouped as a single undo unit:
//
//	h.BeginGroup("Find and Replace")
//	// ... multiple edits ...
//	h.EndGroup()
//
// CancelGroup rolls the group's edits back instead.
package history
