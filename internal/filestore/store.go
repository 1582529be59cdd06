// Package filestore keeps track of the documents a process has open.
//
// A Store opens each path at most once, names every document with a uuid
// and, when watching is enabled, flags documents whose backing file is
// changed by another process.
package filestore

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/txt/internal/engine"
	terrors "github.com/dshills/txt/internal/errors"
	"github.com/dshills/txt/internal/logging"
	"github.com/dshills/txt/internal/watcher"
)

// Store errors.
var (
	// ErrDocumentNotOpen is returned for an id or path the store does not hold.
	ErrDocumentNotOpen = errors.New("document not open")

	// ErrDocumentDirty is returned when closing a document with unsaved edits.
	ErrDocumentDirty = errors.New("document has unsaved changes")

	// ErrStoreClosed is returned after Shutdown.
	ErrStoreClosed = errors.New("store is closed")
)

// DefaultDebounce is how close to a save a file event must be to be
// attributed to that save.
const DefaultDebounce = 100 * time.Millisecond

// Handle is an open document and its identity in the store.
type Handle struct {
	ID       uuid.UUID
	Path     string
	Doc      *engine.Document
	OpenedAt time.Time
}

// Store manages open documents. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Handle
	byPath map[string]*Handle
	closed bool

	docOpts  []engine.Option
	watch    bool
	debounce time.Duration
	log      *logging.Logger

	watcher *watcher.Watcher
	wg      sync.WaitGroup

	onOpen     []func(h *Handle)
	onClose    []func(h *Handle)
	onExternal []func(h *Handle, op watcher.Op)
}

// Option configures a Store.
type Option func(*Store)

// WithDocumentOptions sets the options every document is opened with.
func WithDocumentOptions(opts ...engine.Option) Option {
	return func(s *Store) {
		s.docOpts = append(s.docOpts, opts...)
	}
}

// WithWatch enables or disables external-change detection.
func WithWatch(enabled bool) Option {
	return func(s *Store) {
		s.watch = enabled
	}
}

// WithDebounce sets the window after a save in which file events are
// treated as the save's own.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Store. With watching enabled it starts a watcher.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		byID:     make(map[uuid.UUID]*Handle),
		byPath:   make(map[string]*Handle),
		watch:    true,
		debounce: DefaultDebounce,
		log:      logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("filestore")

	if s.watch {
		w, err := watcher.New(watcher.WithLogger(s.log))
		if err != nil {
			return nil, err
		}
		s.watcher = w
		s.wg.Add(1)
		go s.eventLoop()
	}
	return s, nil
}

// Open opens path, or returns the existing handle if the same file is
// already open.
func (s *Store) Open(ctx context.Context, path string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, terrors.NewPathError("open", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if h, ok := s.byPath[absPath]; ok {
		return h, nil
	}

	doc, err := engine.Open(absPath, s.docOpts...)
	if err != nil {
		return nil, err
	}
	h := &Handle{
		ID:       uuid.New(),
		Path:     absPath,
		Doc:      doc,
		OpenedAt: time.Now(),
	}
	if s.watcher != nil {
		if err := s.watcher.Add(absPath); err != nil {
			s.log.Warn("cannot watch %s: %v", absPath, err)
		}
	}
	s.byID[h.ID] = h
	s.byPath[absPath] = h
	s.log.Debug("opened %s as %s", absPath, h.ID)

	for _, fn := range s.onOpen {
		fn(h)
	}
	return h, nil
}

// Get returns the handle with the given id.
func (s *Store) Get(id uuid.UUID) (*Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.byID[id]
	return h, ok
}

// GetByPath returns the handle for path if it is open.
func (s *Store) GetByPath(path string) (*Handle, bool) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.byPath[absPath]
	return h, ok
}

// IsOpen returns true if path is open.
func (s *Store) IsOpen(path string) bool {
	_, ok := s.GetByPath(path)
	return ok
}

// Handles returns all open handles ordered by path.
func (s *Store) Handles() []*Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hs := make([]*Handle, 0, len(s.byID))
	for _, h := range s.byID {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].Path < hs[j].Path })
	return hs
}

// Count returns the number of open documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Save saves the document with the given id.
func (s *Store) Save(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, ok := s.Get(id)
	if !ok {
		return ErrDocumentNotOpen
	}
	return h.Doc.Save()
}

// Close closes the document with the given id. A dirty document is only
// closed when force is set.
func (s *Store) Close(ctx context.Context, id uuid.UUID, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.byID[id]
	if !ok {
		return ErrDocumentNotOpen
	}
	if !force && h.Doc.IsDirty() {
		return terrors.NewPathError("close", h.Path, ErrDocumentDirty)
	}
	return s.closeLocked(h)
}

func (s *Store) closeLocked(h *Handle) error {
	delete(s.byID, h.ID)
	delete(s.byPath, h.Path)
	if s.watcher != nil {
		if err := s.watcher.Remove(h.Path); err != nil && !errors.Is(err, watcher.ErrNotWatching) {
			s.log.Debug("unwatch %s: %v", h.Path, err)
		}
	}
	err := h.Doc.Close()
	for _, fn := range s.onClose {
		fn(h)
	}
	if err != nil {
		return terrors.NewPathError("close", h.Path, err)
	}
	return nil
}

// CloseAll closes every document. Without force nothing is closed if any
// document is dirty.
func (s *Store) CloseAll(ctx context.Context, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeAllLocked(force)
}

func (s *Store) closeAllLocked(force bool) error {
	if !force {
		for _, h := range s.byID {
			if h.Doc.IsDirty() {
				return terrors.NewPathError("close", h.Path, ErrDocumentDirty)
			}
		}
	}
	var errs []error
	for _, h := range s.byID {
		if err := s.closeLocked(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown closes every document, discarding unsaved edits, and stops
// the watcher.
func (s *Store) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	err := s.closeAllLocked(true)
	w := s.watcher
	s.mu.Unlock()

	if w != nil {
		if werr := w.Close(); werr != nil {
			err = errors.Join(err, werr)
		}
		s.wg.Wait()
	}
	return err
}

// OnOpen registers a handler called when a document is opened. Open and
// close handlers run with the store locked and must not call back into it.
func (s *Store) OnOpen(handler func(h *Handle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpen = append(s.onOpen, handler)
}

// OnClose registers a handler called when a document is closed.
func (s *Store) OnClose(handler func(h *Handle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = append(s.onClose, handler)
}

// OnExternalChange registers a handler called after a document is flagged
// as externally modified.
func (s *Store) OnExternalChange(handler func(h *Handle, op watcher.Op)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExternal = append(s.onExternal, handler)
}

// Stats describes the store's contents.
type Stats struct {
	OpenCount     int
	DirtyCount    int
	ExternalCount int
	TotalSize     int64
}

// GetStats returns current store statistics.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{OpenCount: len(s.byID)}
	for _, h := range s.byID {
		if h.Doc.IsDirty() {
			st.DirtyCount++
		}
		if h.Doc.ExternallyModified() {
			st.ExternalCount++
		}
		st.TotalSize += int64(h.Doc.Len())
	}
	return st
}
