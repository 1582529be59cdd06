package history

// Owner applies operations to the document they were recorded against.
//
// The history only decides which operation moves between stacks; the owner
// relinks the piece table and adjusts statistics.
type Owner interface {
	// Revert undoes op. Its changes must be reverted newest first.
	Revert(op *Operation) error

	// Reapply redoes op after a Revert.
	Reapply(op *Operation) error

	// Discard releases the node references op holds. It is called when op
	// can never be undone or redone again.
	Discard(op *Operation)
}
