package engine

import (
	"errors"

	terrors "github.com/dshills/txt/internal/errors"
)

// Errors returned by engine operations. The core kinds are re-exported so
// callers need only this package.
var (
	ErrOutOfRange         = terrors.ErrOutOfRange
	ErrNoStandardDetected = terrors.ErrNoStandardDetected
	ErrBackupFailed       = terrors.ErrBackupFailed
	ErrSaveFailed         = terrors.ErrSaveFailed
	ErrReadFailed         = terrors.ErrReadFailed
	ErrBufferExhausted    = terrors.ErrBufferExhausted
	ErrNothingToUndo      = terrors.ErrNothingToUndo
	ErrNothingToRedo      = terrors.ErrNothingToRedo
	ErrClosed             = terrors.ErrClosed

	// ErrReadOnly indicates an edit or save was attempted on a read-only document.
	ErrReadOnly = errors.New("document is read-only")

	// ErrNoBackingFile indicates Save was called on an in-memory document.
	ErrNoBackingFile = errors.New("document has no backing file")
)
