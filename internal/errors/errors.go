// Package errors defines the error kinds shared by the text engine.
//
// Every core operation reports failure as one of the sentinel kinds below,
// possibly wrapped in a PathError or SaveError for context. Callers test the
// kind with errors.Is and never need to parse messages.
package errors

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrOutOfRange indicates a position or span outside the document.
	ErrOutOfRange = errors.New("position out of range")

	// ErrNoStandardDetected indicates the line-break heuristic was inconclusive
	// and no fallback standard was supplied.
	ErrNoStandardDetected = errors.New("no line-break standard detected")

	// ErrBackupFailed indicates no recovery copy could be made, so the save was not attempted.
	ErrBackupFailed = errors.New("backup failed")

	// ErrSaveFailed indicates a failure while persisting the document.
	ErrSaveFailed = errors.New("save failed")

	// ErrReadFailed indicates document bytes could not be read.
	ErrReadFailed = errors.New("read failed")

	// ErrMappedAccessFault indicates a fault while touching a memory-mapped region.
	ErrMappedAccessFault = errors.New("mapped access fault")

	// ErrBufferExhausted indicates the edit buffer or a mapping cannot grow.
	ErrBufferExhausted = errors.New("buffer exhausted")

	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo indicates the redo stack is empty.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrNotRegular indicates the path is not a regular file.
	ErrNotRegular = errors.New("not a regular file")

	// ErrClosed indicates the document or file has been closed.
	ErrClosed = errors.New("closed")
)

// PathError records an error and the operation and file path that caused it.
type PathError struct {
	Op   string
	Path string
	Err  error
}

// NewPathError creates a new PathError.
func NewPathError(op, path string, err error) *PathError {
	return &PathError{Op: op, Path: path, Err: err}
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// SaveError reports a failed save together with the recovery artifact.
// Backup is empty only when no backup had been created yet.
type SaveError struct {
	Path   string
	Backup string
	Err    error
}

func (e *SaveError) Error() string {
	if e.Backup == "" {
		return fmt.Sprintf("save %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("save %s: %v (previous content preserved in %s)", e.Path, e.Err, e.Backup)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// IsOutOfRange reports whether err is an ErrOutOfRange.
func IsOutOfRange(err error) bool {
	return errors.Is(err, ErrOutOfRange)
}

// IsSaveFailure reports whether err is a save or backup failure.
func IsSaveFailure(err error) bool {
	return errors.Is(err, ErrSaveFailed) || errors.Is(err, ErrBackupFailed)
}

// BackupPath returns the recovery file named by a SaveError in err's chain.
func BackupPath(err error) (string, bool) {
	var se *SaveError
	if errors.As(err, &se) && se.Backup != "" {
		return se.Backup, true
	}
	return "", false
}
