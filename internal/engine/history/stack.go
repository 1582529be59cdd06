package history

import (
	terrors "github.com/dshills/txt/internal/errors"
)

// Errors returned by Undo and Redo.
var (
	ErrNothingToUndo = terrors.ErrNothingToUndo
	ErrNothingToRedo = terrors.ErrNothingToRedo
)

// History manages the undo and redo stacks of one document.
//
// History is not safe for concurrent use; the owning document serializes
// access.
type History struct {
	owner Owner

	undoStack []*Operation
	redoStack []*Operation

	// Grouping state
	grouping  bool
	groupName string
	groupOps  []*Operation

	// Configuration
	maxEntries int

	// nextID numbers operations as they are pushed. base is the state
	// with an empty undo stack: zero, or the last operation trimmed off.
	nextID uint64
	base   uint64
}

// Option configures a History.
type Option func(*History)

// WithMaxEntries bounds the undo stack. Zero or less means unbounded.
func WithMaxEntries(n int) Option {
	return func(h *History) {
		if n < 0 {
			n = 0
		}
		h.maxEntries = n
	}
}

// NewHistory creates an empty history whose operations are applied by owner.
// The undo stack is unbounded unless WithMaxEntries is given.
func NewHistory(owner Owner, opts ...Option) *History {
	h := &History{owner: owner}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Push records an operation that has already been applied.
// Clears the redo stack. No-op operations are discarded.
func (h *History) Push(op *Operation) {
	if op == nil {
		return
	}
	if op.IsNoop() {
		h.owner.Discard(op)
		return
	}

	h.nextID++
	op.id = h.nextID

	if h.grouping {
		h.discardAll(h.redoStack)
		h.redoStack = nil
		h.groupOps = append(h.groupOps, op)
		return
	}

	h.push(op)
}

func (h *History) push(op *Operation) {
	h.undoStack = append(h.undoStack, op)

	// Operations on the redo stack can no longer be reached.
	h.discardAll(h.redoStack)
	h.redoStack = nil

	h.trim()
}

// trim drops the oldest undo entries beyond maxEntries.
func (h *History) trim() {
	if h.maxEntries <= 0 || len(h.undoStack) <= h.maxEntries {
		return
	}
	excess := len(h.undoStack) - h.maxEntries
	h.base = h.undoStack[excess-1].id
	h.discardAll(h.undoStack[:excess])
	h.undoStack = append(h.undoStack[:0:0], h.undoStack[excess:]...)
}

func (h *History) discardAll(ops []*Operation) {
	for i := len(ops) - 1; i >= 0; i-- {
		h.owner.Discard(ops[i])
	}
}

// Undo reverts the most recent operation and moves it to the redo stack.
// An open group is ended first.
func (h *History) Undo() (*Operation, error) {
	h.EndGroup()
	if len(h.undoStack) == 0 {
		return nil, ErrNothingToUndo
	}

	op := h.undoStack[len(h.undoStack)-1]
	if err := h.owner.Revert(op); err != nil {
		return nil, err
	}
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.redoStack = append(h.redoStack, op)
	return op, nil
}

// Redo reapplies the most recently undone operation.
// An open group is ended first.
func (h *History) Redo() (*Operation, error) {
	h.EndGroup()
	if len(h.redoStack) == 0 {
		return nil, ErrNothingToRedo
	}

	op := h.redoStack[len(h.redoStack)-1]
	if err := h.owner.Reapply(op); err != nil {
		return nil, err
	}
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.undoStack = append(h.undoStack, op)
	return op, nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo operations available.
func (h *History) UndoCount() int {
	return len(h.undoStack)
}

// RedoCount returns the number of redo operations available.
func (h *History) RedoCount() int {
	return len(h.redoStack)
}

// State identifies the document content the history is at: the last
// operation of an open group, else the operation on top of the undo stack.
// Two equal states mean the document holds the same content. A new history
// starts at zero.
func (h *History) State() uint64 {
	if n := len(h.groupOps); n > 0 {
		return h.groupOps[n-1].id
	}
	if n := len(h.undoStack); n > 0 {
		return h.undoStack[n-1].id
	}
	return h.base
}

// BeginGroup starts an operation group.
// Operations pushed while grouping are combined into a single undo unit.
func (h *History) BeginGroup(name string) {
	if h.grouping {
		// Already grouping, ignore nested calls
		return
	}

	h.grouping = true
	h.groupName = name
	h.groupOps = nil
}

// EndGroup finishes an operation group.
// All operations since BeginGroup are combined into one.
func (h *History) EndGroup() {
	if !h.grouping {
		return
	}

	h.grouping = false
	ops := h.groupOps
	h.groupOps = nil

	switch len(ops) {
	case 0:
		return
	case 1:
		ops[0].Description = h.groupName
		h.push(ops[0])
	default:
		h.push(merge(h.groupName, ops))
	}
}

// CancelGroup ends an operation group and rolls back every operation
// pushed since BeginGroup. Rollback stops at the first failure, which is
// returned.
func (h *History) CancelGroup() error {
	if !h.grouping {
		return nil
	}

	h.grouping = false
	ops := h.groupOps
	h.groupOps = nil

	for i := len(ops) - 1; i >= 0; i-- {
		if err := h.owner.Revert(ops[i]); err != nil {
			return err
		}
		h.owner.Discard(ops[i])
	}
	return nil
}

// IsGrouping returns true if currently in an operation group.
func (h *History) IsGrouping() bool {
	return h.grouping
}

// Clear removes all undo/redo history. The document keeps its content.
func (h *History) Clear() {
	h.base = h.State()
	if h.grouping {
		h.discardAll(h.groupOps)
	}
	h.discardAll(h.redoStack)
	h.discardAll(h.undoStack)

	h.undoStack = nil
	h.redoStack = nil
	h.grouping = false
	h.groupOps = nil
}

// UndoInfo returns info about available undo operations, oldest first.
func (h *History) UndoInfo() []OperationInfo {
	result := make([]OperationInfo, len(h.undoStack))
	for i, op := range h.undoStack {
		result[i] = op.Info()
	}
	return result
}

// RedoInfo returns info about available redo operations, oldest first.
func (h *History) RedoInfo() []OperationInfo {
	result := make([]OperationInfo, len(h.redoStack))
	for i, op := range h.redoStack {
		result[i] = op.Info()
	}
	return result
}

// PeekUndo returns info about the next undo operation without removing it.
func (h *History) PeekUndo() (OperationInfo, bool) {
	if len(h.undoStack) == 0 {
		return OperationInfo{}, false
	}
	return h.undoStack[len(h.undoStack)-1].Info(), true
}

// PeekRedo returns info about the next redo operation without removing it.
func (h *History) PeekRedo() (OperationInfo, bool) {
	if len(h.redoStack) == 0 {
		return OperationInfo{}, false
	}
	return h.redoStack[len(h.redoStack)-1].Info(), true
}

// SetMaxEntries changes the maximum number of undo entries.
// If the current stack is larger, oldest entries are discarded.
func (h *History) SetMaxEntries(max int) {
	if max < 0 {
		max = 0
	}
	h.maxEntries = max
	h.trim()
}

// MaxEntries returns the maximum number of undo entries, zero if unbounded.
func (h *History) MaxEntries() int {
	return h.maxEntries
}
