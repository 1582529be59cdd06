// Package sequence ties a piece table to its two source buffers, its
// line-break convention and its running statistics.
//
// A Sequence is the document as the core sees it: a read-only file buffer
// (usually a memory mapping), an append-only edit buffer, and the table
// describing how the two combine. Every edit returns the history.Operation
// that undoes it; the Sequence itself keeps no history.
//
// Reads of mapped bytes run under mmap.Guard, so a storage fault surfaces as
// ErrReadFailed rather than a crash. A Sequence is not safe for concurrent
// use.
package sequence

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dshills/txt/internal/engine/history"
	"github.com/dshills/txt/internal/engine/piece"
	"github.com/dshills/txt/internal/engine/stats"
	terrors "github.com/dshills/txt/internal/errors"
	"github.com/dshills/txt/internal/mmap"
)

// DefaultEditCapacity is the initial size of the edit buffer.
const DefaultEditCapacity = 4096

// Sequence is a document.
type Sequence struct {
	table *piece.Table
	edit  *piece.Buffer
	std   LineStd
	stats stats.TextStatistics
}

// Option configures a Sequence.
type Option func(*config)

type config struct {
	std       LineStd
	editCap   int
	editLimit int
}

// WithLineStd sets the line-break convention. The default is Linux.
func WithLineStd(std LineStd) Option {
	return func(c *config) {
		if std != NoInit {
			c.std = std
		}
	}
}

// WithEditCapacity sets the edit buffer's initial capacity.
func WithEditCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.editCap = n
		}
	}
}

// WithEditLimit caps the edit buffer. Inserts that would exceed it fail
// with ErrBufferExhausted. Zero means unbounded.
func WithEditLimit(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.editLimit = n
		}
	}
}

// New creates an empty sequence.
func New(opts ...Option) *Sequence {
	cfg := config{std: Linux, editCap: DefaultEditCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	edit := piece.NewBuffer(cfg.editCap)
	edit.SetLimit(cfg.editLimit)

	t := piece.NewTable()
	t.SetSource(piece.SourceEdit, edit)
	t.SetSource(piece.SourceFile, piece.NewMappedBuffer(nil, nil))

	return &Sequence{table: t, edit: edit, std: cfg.std}
}

// NewFromBuffer creates a sequence whose content is all of file. The
// sequence takes ownership of file and closes it on Close.
func NewFromBuffer(file *piece.Buffer, opts ...Option) (*Sequence, error) {
	s := New(opts...)
	s.table.SetSource(piece.SourceFile, file)
	if file.Size() == 0 {
		return s, nil
	}

	c, err := s.table.Insert(0, piece.SourceFile, 0, file.Size())
	if err != nil {
		return nil, err
	}
	s.table.Discard(c)

	if err := s.guard(func() {
		s.stats = stats.Count(s.table, s.std.Identifier())
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// guard runs fn with mapped-access faults converted to ErrReadFailed.
func (s *Sequence) guard(fn func()) error {
	if err := mmap.Guard(fn); err != nil {
		return fmt.Errorf("%w: %w", terrors.ErrReadFailed, err)
	}
	return nil
}

// Len returns the document length in bytes.
func (s *Sequence) Len() int { return s.table.Len() }

// Table returns the underlying piece table.
func (s *Sequence) Table() *piece.Table { return s.table }

// LineStd returns the line-break convention.
func (s *Sequence) LineStd() LineStd { return s.std }

// LineBreakIdentifier returns the byte that ends a line.
func (s *Sequence) LineBreakIdentifier() byte { return s.std.Identifier() }

// SetLineStd changes the convention and recounts the statistics.
func (s *Sequence) SetLineStd(std LineStd) error {
	if std == NoInit {
		return terrors.ErrNoStandardDetected
	}
	var st stats.TextStatistics
	if err := s.guard(func() {
		st = stats.Count(s.table, std.Identifier())
	}); err != nil {
		return err
	}
	s.std = std
	s.stats = st
	return nil
}

// Statistics returns the absolute line break and word counts.
func (s *Sequence) Statistics() stats.TextStatistics { return s.stats }

// EditBytes returns the number of bytes appended to the edit buffer so far.
func (s *Sequence) EditBytes() int { return s.edit.Size() }

func (s *Sequence) rangeErr(begin, end int) error {
	return fmt.Errorf("range [%d,%d) of %d: %w", begin, end, s.table.Len(), terrors.ErrOutOfRange)
}

// Insert inserts p so that its first byte lands at pos, and returns the
// operation that undoes it. Inserting nothing returns a nil operation.
func (s *Sequence) Insert(pos int, p []byte) (*history.Operation, error) {
	if pos < 0 || pos > s.table.Len() {
		return nil, s.rangeErr(pos, pos)
	}
	if len(p) == 0 {
		return nil, nil
	}

	c, delta, err := s.insert(pos, p)
	if err != nil {
		return nil, err
	}
	s.stats = s.stats.Add(delta)
	desc := fmt.Sprintf("insert %d bytes at %d", len(p), pos)
	return history.NewOperation(desc, delta, len(p), c), nil
}

// insert links p at pos and measures its effect. On failure the table is
// left unchanged.
func (s *Sequence) insert(pos int, p []byte) (piece.Change, stats.TextStatistics, error) {
	off, err := s.edit.Append(p)
	if err != nil {
		return piece.Change{}, stats.TextStatistics{}, fmt.Errorf("insert %d bytes: %w", len(p), err)
	}
	c, err := s.table.Insert(pos, piece.SourceEdit, off, len(p))
	if err != nil {
		return piece.Change{}, stats.TextStatistics{}, err
	}

	var delta stats.TextStatistics
	err = s.guard(func() {
		start, _ := s.table.Locate(pos)
		delta = stats.ComputeSpanEffect(s.table, start, s.table.End(start, len(p)), s.std.Identifier())
	})
	if err != nil {
		s.table.Revert(c)
		s.table.Discard(c)
		return piece.Change{}, stats.TextStatistics{}, err
	}
	return c, delta, nil
}

// Delete removes the bytes [begin, end) and returns the operation that
// undoes it. An empty range returns a nil operation.
func (s *Sequence) Delete(begin, end int) (*history.Operation, error) {
	if begin < 0 || begin > end || end > s.table.Len() {
		return nil, s.rangeErr(begin, end)
	}
	if begin == end {
		return nil, nil
	}

	c, delta, err := s.delete(begin, end)
	if err != nil {
		return nil, err
	}
	s.stats = s.stats.Add(delta)
	desc := fmt.Sprintf("delete [%d,%d)", begin, end)
	return history.NewOperation(desc, delta, begin-end, c), nil
}

// delete measures what [begin, end) contributes, then unlinks it.
func (s *Sequence) delete(begin, end int) (piece.Change, stats.TextStatistics, error) {
	var (
		effect stats.TextStatistics
		rerr   error
	)
	if err := s.guard(func() {
		effect, rerr = stats.RangeEffect(s.table, begin, end, s.std.Identifier())
	}); err != nil {
		return piece.Change{}, stats.TextStatistics{}, err
	}
	if rerr != nil {
		return piece.Change{}, stats.TextStatistics{}, rerr
	}

	c, err := s.table.Delete(begin, end)
	if err != nil {
		return piece.Change{}, stats.TextStatistics{}, err
	}
	return c, effect.Neg(), nil
}

// Replace deletes [begin, end) and inserts p at begin as one operation.
// If either half fails the document is left unchanged.
func (s *Sequence) Replace(begin, end int, p []byte) (*history.Operation, error) {
	if begin < 0 || begin > end || end > s.table.Len() {
		return nil, s.rangeErr(begin, end)
	}

	var (
		changes []piece.Change
		delta   stats.TextStatistics
	)
	if begin < end {
		c, d, err := s.delete(begin, end)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
		delta = delta.Add(d)
	}
	if len(p) > 0 {
		c, d, err := s.insert(begin, p)
		if err != nil {
			for _, c := range changes {
				s.table.Revert(c)
				s.table.Discard(c)
			}
			return nil, err
		}
		changes = append(changes, c)
		delta = delta.Add(d)
	}
	if len(changes) == 0 {
		return nil, nil
	}

	s.stats = s.stats.Add(delta)
	desc := fmt.Sprintf("replace [%d,%d) with %d bytes", begin, end, len(p))
	return history.NewOperation(desc, delta, len(p)-(end-begin), changes...), nil
}

// Revert undoes op. It implements history.Owner.
func (s *Sequence) Revert(op *history.Operation) error {
	for i := len(op.Changes) - 1; i >= 0; i-- {
		s.table.Revert(op.Changes[i])
	}
	s.stats = s.stats.Sub(op.Delta)
	return nil
}

// Reapply redoes op after Revert. It implements history.Owner.
func (s *Sequence) Reapply(op *history.Operation) error {
	for _, c := range op.Changes {
		s.table.Apply(c)
	}
	s.stats = s.stats.Add(op.Delta)
	return nil
}

// Discard releases op's node references. It implements history.Owner.
func (s *Sequence) Discard(op *history.Operation) {
	for _, c := range op.Changes {
		s.table.Discard(c)
	}
}

// Read returns a copy of at most max contiguous bytes starting at pos, all
// from one descriptor. At pos == Len it returns io.EOF.
func (s *Sequence) Read(pos, max int) ([]byte, error) {
	if pos < 0 || pos > s.table.Len() {
		return nil, s.rangeErr(pos, pos)
	}
	var (
		out  []byte
		rerr error
	)
	if err := s.guard(func() {
		var b []byte
		b, rerr = s.table.Block(pos, max)
		out = append([]byte(nil), b...)
	}); err != nil {
		return nil, err
	}
	if rerr != nil {
		return nil, rerr
	}
	return out, nil
}

// ReadAt implements io.ReaderAt.
func (s *Sequence) ReadAt(p []byte, off int64) (n int, err error) {
	if gerr := s.guard(func() {
		n, err = s.table.ReadAt(p, off)
	}); gerr != nil {
		return 0, gerr
	}
	return n, err
}

// WriteTo streams the document to w.
func (s *Sequence) WriteTo(w io.Writer) (n int64, err error) {
	if gerr := s.guard(func() {
		n, err = s.table.WriteTo(w)
	}); gerr != nil {
		return n, gerr
	}
	return n, err
}

// CopyTo copies the whole document into dst, which must hold Len bytes.
// Faults on either side are reported as ErrMappedAccessFault.
func (s *Sequence) CopyTo(dst []byte) (int, error) {
	if len(dst) < s.table.Len() {
		return 0, fmt.Errorf("copy %d bytes into %d: %w", s.table.Len(), len(dst), terrors.ErrOutOfRange)
	}
	var n int
	if err := mmap.Guard(func() {
		n = s.table.CopyTo(dst)
	}); err != nil {
		return n, err
	}
	return n, nil
}

// Text returns the whole document as a string.
func (s *Sequence) Text() (string, error) {
	var buf bytes.Buffer
	buf.Grow(s.table.Len())
	if _, err := s.WriteTo(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FileBuffer returns the buffer file-sourced descriptors read from.
func (s *Sequence) FileBuffer() *piece.Buffer {
	return s.table.Source(piece.SourceFile)
}

// SetFileBuffer repoints file-sourced descriptors at b, which must hold the
// same bytes as the current file buffer. The previous buffer is returned
// for the caller to close.
func (s *Sequence) SetFileBuffer(b *piece.Buffer) (*piece.Buffer, error) {
	old := s.FileBuffer()
	if b.Size() != old.Size() {
		return nil, fmt.Errorf("repoint file buffer: size %d, want %d: %w", b.Size(), old.Size(), terrors.ErrOutOfRange)
	}
	s.table.SetSource(piece.SourceFile, b)
	return old, nil
}

// Close releases both buffers.
func (s *Sequence) Close() error {
	ferr := s.FileBuffer().Close()
	eerr := s.edit.Close()
	if ferr != nil {
		return ferr
	}
	return eerr
}
