package history

import (
	"time"

	"github.com/dshills/txt/internal/engine/piece"
	"github.com/dshills/txt/internal/engine/stats"
)

// Operation is one undoable unit: the piece-table changes an edit made,
// in the order they were applied, plus the statistics and length deltas
// they caused.
type Operation struct {
	// Changes applied by the edit, oldest first.
	Changes []piece.Change

	// Delta is the statistics change the edit caused.
	Delta stats.TextStatistics

	// BytesDelta is the document length change the edit caused.
	BytesDelta int

	// Metadata
	Description string
	Timestamp   time.Time

	id uint64
}

// NewOperation creates an operation for changes already applied to a table.
func NewOperation(desc string, delta stats.TextStatistics, bytesDelta int, changes ...piece.Change) *Operation {
	op := &Operation{
		Description: desc,
		Delta:       delta,
		BytesDelta:  bytesDelta,
		Timestamp:   time.Now(),
	}
	for _, c := range changes {
		if !c.IsEmpty() {
			op.Changes = append(op.Changes, c)
		}
	}
	return op
}

// IsNoop returns true if the operation changed nothing.
func (op *Operation) IsNoop() bool {
	return len(op.Changes) == 0
}

// First returns the first node of the run the operation replaced, or None.
func (op *Operation) First() piece.NodeID {
	for _, c := range op.Changes {
		if id := c.First(); id != piece.None {
			return id
		}
	}
	return piece.None
}

// Last returns the last node of the run the operation replaced, or None.
func (op *Operation) Last() piece.NodeID {
	for i := len(op.Changes) - 1; i >= 0; i-- {
		if id := op.Changes[i].Last(); id != piece.None {
			return id
		}
	}
	return piece.None
}

// Info returns the read-only summary of the operation.
func (op *Operation) Info() OperationInfo {
	return OperationInfo{
		Description: op.Description,
		Timestamp:   op.Timestamp,
		BytesDelta:  op.BytesDelta,
	}
}

// merge combines ops, applied in order, into a single operation.
func merge(name string, ops []*Operation) *Operation {
	// A group leaves the document where its last member did.
	out := &Operation{Description: name, Timestamp: time.Now(), id: ops[len(ops)-1].id}
	for _, op := range ops {
		out.Changes = append(out.Changes, op.Changes...)
		out.Delta = out.Delta.Add(op.Delta)
		out.BytesDelta += op.BytesDelta
	}
	return out
}

// OperationInfo provides read-only info about an operation.
// Used for displaying undo/redo history to users.
type OperationInfo struct {
	Description string    // Human-readable description
	Timestamp   time.Time // When the operation occurred
	BytesDelta  int       // Positive for insertions, negative for deletions
}
