package engine

import (
	"github.com/dshills/txt/internal/engine/sequence"
	"github.com/dshills/txt/internal/logging"
)

// Option configures a Document during creation.
type Option func(*options)

type options struct {
	content     string
	lineStd     sequence.LineStd
	maxUndo     int
	editCap     int
	editLimit   int
	backupDir   string
	detectBytes int
	readOnly    bool
	logger      *logging.Logger
}

func defaultOptions() options {
	return options{
		editCap: sequence.DefaultEditCapacity,
		logger:  logging.Default(),
	}
}

// WithContent sets the initial content of an in-memory document.
func WithContent(content string) Option {
	return func(o *options) {
		o.content = content
	}
}

// WithLineStd sets the line-break standard. For Open it is the fallback
// used when detection is inconclusive; for in-memory documents it is the
// standard itself (Linux if unset).
func WithLineStd(std sequence.LineStd) Option {
	return func(o *options) {
		o.lineStd = std
	}
}

// WithMaxUndoEntries bounds the undo history. Zero keeps it unbounded.
func WithMaxUndoEntries(max int) Option {
	return func(o *options) {
		if max >= 0 {
			o.maxUndo = max
		}
	}
}

// WithEditCapacity sets the edit buffer's initial capacity.
func WithEditCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.editCap = n
		}
	}
}

// WithEditLimit caps the bytes a session may insert. Zero means unbounded.
func WithEditLimit(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.editLimit = n
		}
	}
}

// WithBackupDir sets where save recovery artifacts are created.
func WithBackupDir(dir string) Option {
	return func(o *options) {
		o.backupDir = dir
	}
}

// WithDetectBytes sets how much of a file line-break detection reads.
func WithDetectBytes(n int) Option {
	return func(o *options) {
		o.detectBytes = n
	}
}

// WithReadOnly creates a read-only document.
// Edits and saves return ErrReadOnly.
func WithReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func (o options) sequenceOptions() []sequence.Option {
	return []sequence.Option{
		sequence.WithEditCapacity(o.editCap),
		sequence.WithEditLimit(o.editLimit),
	}
}
