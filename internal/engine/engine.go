package engine

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rivo/uniseg"

	"github.com/dshills/txt/internal/engine/history"
	"github.com/dshills/txt/internal/engine/sequence"
	"github.com/dshills/txt/internal/engine/stats"
	"github.com/dshills/txt/internal/filemgr"
	"github.com/dshills/txt/internal/logging"
)

// Document is an editable text backed by a piece table, with undo/redo,
// incremental statistics and optional file persistence.
type Document struct {
	mu sync.Mutex

	seq  *sequence.Sequence
	hist *history.History
	file *filemgr.File // nil for in-memory documents
	log  *logging.Logger

	savedState uint64
	lastSaved  time.Time
	saveStart  time.Time // last save attempt
	saveEnd    time.Time
	external   atomic.Bool
	readOnly   bool
	closed     bool
}

// New creates an in-memory document.
func New(opts ...Option) (*Document, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	seqOpts := append(o.sequenceOptions(), sequence.WithLineStd(o.lineStd))
	seq := sequence.New(seqOpts...)
	if o.content != "" {
		op, err := seq.Insert(0, []byte(o.content))
		if err != nil {
			seq.Close()
			return nil, fmt.Errorf("initial content: %w", err)
		}
		// Initial content is not undoable.
		seq.Discard(op)
	}
	return newDocument(seq, nil, o), nil
}

// Open opens path, creating it if missing. The line-break standard is
// detected from the file's content; WithLineStd supplies the fallback.
func Open(path string, opts ...Option) (*Document, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	fmOpts := []filemgr.Option{
		filemgr.WithSequenceOptions(o.sequenceOptions()...),
		filemgr.WithLogger(o.logger),
	}
	if o.backupDir != "" {
		fmOpts = append(fmOpts, filemgr.WithBackupDir(o.backupDir))
	}
	if o.detectBytes > 0 {
		fmOpts = append(fmOpts, filemgr.WithDetectBytes(o.detectBytes))
	}

	fm, seq, err := filemgr.OpenOrCreate(path, o.lineStd, fmOpts...)
	if err != nil {
		return nil, err
	}
	d := newDocument(seq, fm, o)
	d.log.Debug("opened %s (%d bytes, %s)", path, seq.Len(), seq.LineStd())
	return d, nil
}

func newDocument(seq *sequence.Sequence, fm *filemgr.File, o options) *Document {
	var histOpts []history.Option
	if o.maxUndo > 0 {
		histOpts = append(histOpts, history.WithMaxEntries(o.maxUndo))
	}
	d := &Document{
		seq:      seq,
		file:     fm,
		log:      o.logger.WithComponent("engine"),
		readOnly: o.readOnly,
	}
	d.hist = history.NewHistory(seq, histOpts...)
	d.savedState = d.hist.State()
	return d
}

func (d *Document) checkOpen() error {
	if d.closed {
		return ErrClosed
	}
	return nil
}

func (d *Document) checkWritable() error {
	if d.closed {
		return ErrClosed
	}
	if d.readOnly {
		return ErrReadOnly
	}
	return nil
}

// Len returns the document length in bytes.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0
	}
	return d.seq.Len()
}

// Read returns up to max bytes starting at pos. At the end of the document
// it returns io.EOF.
func (d *Document) Read(pos, max int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	return d.seq.Read(pos, max)
}

// ReadClusters is Read trimmed to grapheme cluster boundaries. A trailing
// cluster that may continue past the returned block is dropped unless it
// is the only one.
func (d *Document) ReadClusters(pos, max int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	b, err := d.seq.Read(pos, max)
	if err != nil || pos+len(b) == d.seq.Len() {
		return b, err
	}
	return trimClusters(b), nil
}

func trimClusters(b []byte) []byte {
	var (
		rest  = b
		state = -1
		last  int
		n     int
	)
	for len(rest) > 0 {
		var cluster []byte
		cluster, rest, _, state = uniseg.FirstGraphemeCluster(rest, state)
		last = len(b) - len(rest) - len(cluster)
		n++
	}
	if n <= 1 {
		return b
	}
	return b[:last]
}

// ReadAt implements io.ReaderAt.
func (d *Document) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return 0, err
	}
	return d.seq.ReadAt(p, off)
}

// WriteTo writes the whole document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return 0, err
	}
	return d.seq.WriteTo(w)
}

// Text returns the document as a string.
func (d *Document) Text() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return "", err
	}
	return d.seq.Text()
}

// Insert inserts p at pos.
func (d *Document) Insert(pos int, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkWritable(); err != nil {
		return err
	}
	op, err := d.seq.Insert(pos, p)
	if err != nil {
		return err
	}
	d.hist.Push(op)
	d.log.Debug("insert %d bytes at %d", len(p), pos)
	return nil
}

// InsertString inserts s at pos.
func (d *Document) InsertString(pos int, s string) error {
	return d.Insert(pos, []byte(s))
}

// Delete removes the bytes in [begin, end).
func (d *Document) Delete(begin, end int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkWritable(); err != nil {
		return err
	}
	op, err := d.seq.Delete(begin, end)
	if err != nil {
		return err
	}
	d.hist.Push(op)
	d.log.Debug("delete [%d,%d)", begin, end)
	return nil
}

// Replace replaces [begin, end) with p as a single undoable step.
func (d *Document) Replace(begin, end int, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkWritable(); err != nil {
		return err
	}
	op, err := d.seq.Replace(begin, end, p)
	if err != nil {
		return err
	}
	d.hist.Push(op)
	d.log.Debug("replace [%d,%d) with %d bytes", begin, end, len(p))
	return nil
}

// Undo reverts the most recent edit or group.
func (d *Document) Undo() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkWritable(); err != nil {
		return err
	}
	op, err := d.hist.Undo()
	if err != nil {
		return err
	}
	d.log.Debug("undo %q", op.Description)
	return nil
}

// Redo reapplies the most recently undone edit or group.
func (d *Document) Redo() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkWritable(); err != nil {
		return err
	}
	op, err := d.hist.Redo()
	if err != nil {
		return err
	}
	d.log.Debug("redo %q", op.Description)
	return nil
}

// BeginGroup starts collecting edits into one undo step.
func (d *Document) BeginGroup(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hist.BeginGroup(name)
}

// EndGroup closes the current group.
func (d *Document) EndGroup() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hist.EndGroup()
}

// CancelGroup rolls back every edit made since BeginGroup.
func (d *Document) CancelGroup() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hist.CancelGroup()
}

// CanUndo reports whether Undo would do anything.
func (d *Document) CanUndo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hist.CanUndo()
}

// CanRedo reports whether Redo would do anything.
func (d *Document) CanRedo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hist.CanRedo()
}

// UndoCount returns the number of undoable steps.
func (d *Document) UndoCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hist.UndoCount()
}

// RedoCount returns the number of redoable steps.
func (d *Document) RedoCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hist.RedoCount()
}

// PeekUndo describes the step Undo would revert.
func (d *Document) PeekUndo() (history.OperationInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hist.PeekUndo()
}

// LineBreakIdentifier returns the byte that marks a line break.
func (d *Document) LineBreakIdentifier() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq.LineBreakIdentifier()
}

// LineStd returns the document's line-break standard.
func (d *Document) LineStd() sequence.LineStd {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq.LineStd()
}

// Statistics returns the current line-break and word counts.
func (d *Document) Statistics() stats.TextStatistics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq.Statistics()
}

// Save writes the document back to its file. A failed save leaves the file
// as it was; the returned error names any backup that holds the previous
// content.
func (d *Document) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkWritable(); err != nil {
		return err
	}
	if d.file == nil {
		return ErrNoBackingFile
	}
	d.saveStart = time.Now()
	err := d.file.Save(d.seq)
	// A failed save still wrote and restored the file.
	d.saveEnd = time.Now()
	if err != nil {
		d.log.Error("save %s: %v", d.file.Path(), err)
		return err
	}
	d.savedState = d.hist.State()
	d.lastSaved = d.saveEnd
	d.external.Store(false)
	d.log.Debug("saved %s (%d bytes) in %s", d.file.Path(), d.seq.Len(), d.saveEnd.Sub(d.saveStart))
	return nil
}

// Close releases the document. Further calls return ErrClosed.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.hist.Clear()
	err := d.seq.Close()
	if d.file != nil {
		if ferr := d.file.Close(); err == nil {
			err = ferr
		}
	}
	return err
}

// IsDirty reports whether the document differs from its last saved state.
func (d *Document) IsDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hist.State() != d.savedState
}

// ExternallyModified reports whether the backing file changed on disk
// since it was opened or last saved.
func (d *Document) ExternallyModified() bool {
	return d.external.Load()
}

// MarkExternalChange records that the backing file changed on disk.
func (d *Document) MarkExternalChange() {
	if d.external.CompareAndSwap(false, true) {
		d.log.Info("%s changed on disk", d.Path())
	}
}

// ClearExternalChange resets the external modification flag.
func (d *Document) ClearExternalChange() {
	d.external.Store(false)
}

// LastSaved returns when the document was last saved, or the zero time.
func (d *Document) LastSaved() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSaved
}

// LastSaveWindow returns when the most recent save attempt, successful or
// not, started and finished. Both are zero before the first save.
func (d *Document) LastSaveWindow() (start, end time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveStart, d.saveEnd
}

// Path returns the backing file path, or "" for in-memory documents.
func (d *Document) Path() string {
	if d.file == nil {
		return ""
	}
	return d.file.Path()
}

// ReadOnly reports whether edits are rejected.
func (d *Document) ReadOnly() bool {
	return d.readOnly
}
