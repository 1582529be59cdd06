// Package watcher reports changes made to open files by other processes.
//
// Files are watched through their parent directory so that editors and
// tools that save by writing a temporary file and renaming it over the
// original keep being observed. Events for other names in the same
// directory are dropped.
package watcher

import (
	"errors"
	"time"

	"github.com/dshills/txt/internal/logging"
)

// Watcher errors.
var (
	// ErrWatcherClosed is returned when operating on a closed watcher.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrAlreadyWatching is returned when a path is already being watched.
	ErrAlreadyWatching = errors.New("path is already being watched")

	// ErrNotWatching is returned when trying to unwatch a path not being watched.
	ErrNotWatching = errors.New("path is not being watched")

	// ErrPathNotExist is returned when the path does not exist.
	ErrPathNotExist = errors.New("path does not exist")
)

// Op describes a set of file operations.
type Op uint32

// File operations that can be watched.
const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// String returns the string representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	case OpChmod:
		return "CHMOD"
	}
	if op == 0 {
		return "NONE"
	}
	s := ""
	for _, o := range []Op{OpCreate, OpWrite, OpRemove, OpRename, OpChmod} {
		if op.Has(o) {
			if s != "" {
				s += "|"
			}
			s += o.String()
		}
	}
	return s
}

// Has reports whether op includes o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Changed reports whether op alters the file's content or identity.
// A bare chmod does not.
func (op Op) Changed() bool {
	return op&(OpCreate|OpWrite|OpRemove|OpRename) != 0
}

// Event represents a change to a watched file.
type Event struct {
	// Path is the absolute path of the watched file.
	Path string

	// Op is the operation that occurred.
	Op Op

	// Timestamp is when the event was received.
	Timestamp time.Time
}

// Stats contains watcher statistics.
type Stats struct {
	WatchedFiles int
	WatchedDirs  int
	TotalEvents  int64
	Errors       int64
	LastError    error
	StartTime    time.Time
}

// EventFilter returns false for events that should be dropped.
type EventFilter func(event Event) bool

// Config holds watcher configuration.
type Config struct {
	// BufferSize is the event channel buffer size.
	BufferSize int

	// EventFilter drops events before they are sent.
	EventFilter EventFilter

	// Logger receives dropped-event and error reports.
	Logger *logging.Logger
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		BufferSize: 100,
		Logger:     logging.Default(),
	}
}

// Option configures a Watcher.
type Option func(*Config)

// WithBufferSize sets the event channel buffer size.
func WithBufferSize(size int) Option {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// WithEventFilter sets a custom event filter.
func WithEventFilter(filter EventFilter) Option {
	return func(c *Config) {
		c.EventFilter = filter
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}
