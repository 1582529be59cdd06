// Package script runs Lua batch edits against a document.
//
// A script sees a global table named doc:
//
//	doc.len()                 -> bytes in the document
//	doc.read(pos, n)          -> up to n bytes from pos ("" at the end)
//	doc.text()                -> the whole document
//	doc.insert(pos, s)
//	doc.delete(begin, end)
//	doc.replace(begin, end, s)
//	doc.undo(), doc.redo()    -> false when there is nothing to do
//	doc.stats()               -> {lines = n, words = n}
//	doc.linebreak()           -> the line-break sequence, e.g. "\r\n"
//	doc.group(name, fn)       -> runs fn with its edits as one undo step
//
// Positions are zero-based byte offsets. A failing call raises a Lua error
// that aborts the script; Run returns the underlying Go error.
//
// Only the base, table, string and math libraries are available, and
// every run is bounded by a timeout.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/txt/internal/engine/history"
	"github.com/dshills/txt/internal/engine/sequence"
	"github.com/dshills/txt/internal/engine/stats"
	"github.com/dshills/txt/internal/logging"
)

// DefaultTimeout bounds a script run.
const DefaultTimeout = 5 * time.Second

// Errors returned by Run.
var (
	// ErrTimeout is returned when a script exceeds its time budget.
	ErrTimeout = errors.New("script timed out")
)

// Document is what a script can do to a document.
type Document interface {
	Len() int
	Read(pos, max int) ([]byte, error)
	Text() (string, error)
	Insert(pos int, p []byte) error
	Delete(begin, end int) error
	Replace(begin, end int, p []byte) error
	Undo() error
	Redo() error
	BeginGroup(name string)
	EndGroup()
	CancelGroup() error
	Statistics() stats.TextStatistics
	LineStd() sequence.LineStd
}

// Error is a script failure with the Lua message and, when a document call
// caused it, the Go error.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return "script: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result summarizes a completed run.
type Result struct {
	// Edits counts successful insert, delete and replace calls.
	Edits int

	// Duration is how long the script ran.
	Duration time.Duration
}

// Option configures a run.
type Option func(*runner)

// WithTimeout sets the time budget. Zero or less disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *runner) {
		r.timeout = d
	}
}

// WithOutput sends print output to w instead of discarding it.
func WithOutput(w io.Writer) Option {
	return func(r *runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithName sets the chunk name used in error messages.
func WithName(name string) Option {
	return func(r *runner) {
		r.name = name
	}
}

type runner struct {
	doc     Document
	timeout time.Duration
	out     io.Writer
	log     *logging.Logger
	name    string

	edits   int
	lastErr error // Go error behind the most recent raised Lua error
}

// Run executes source against doc.
func Run(ctx context.Context, doc Document, source string, opts ...Option) (Result, error) {
	r := &runner{
		doc:     doc,
		timeout: DefaultTimeout,
		out:     io.Discard,
		log:     logging.Default(),
		name:    "script",
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithComponent("script")

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	L := newSandbox(r.out)
	defer L.Close()
	L.SetContext(ctx)
	L.SetGlobal("doc", r.module(L))

	start := time.Now()
	err := r.exec(L, source)
	res := Result{Edits: r.edits, Duration: time.Since(start)}
	if err != nil {
		r.log.Debug("%s failed after %d edits: %v", r.name, r.edits, err)
		return res, err
	}
	r.log.Debug("%s: %d edits in %s", r.name, r.edits, res.Duration)
	return res, nil
}

func (r *runner) exec(L *lua.LState, source string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &Error{Message: fmt.Sprintf("panic: %v", p)}
		}
	}()

	fn, err := L.Load(stringReader(source), r.name)
	if err != nil {
		return &Error{Message: err.Error()}
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		if ctxErr := L.Context().Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return fmt.Errorf("%s: %w", r.name, ErrTimeout)
			}
			return fmt.Errorf("%s: %w", r.name, ctxErr)
		}
		var apiErr *lua.ApiError
		msg := err.Error()
		if errors.As(err, &apiErr) {
			msg = apiErr.Object.String()
		}
		return &Error{Message: msg, Err: r.lastErr}
	}
	return nil
}

// history.ErrNothingToUndo is not a script failure.
func isEmptyHistory(err error) bool {
	return errors.Is(err, history.ErrNothingToUndo) || errors.Is(err, history.ErrNothingToRedo)
}
