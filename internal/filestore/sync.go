package filestore

import (
	"time"

	"github.com/dshills/txt/internal/watcher"
)

func (s *Store) eventLoop() {
	defer s.wg.Done()
	for {
		select {
		case ev, ok := <-s.watcher.Events():
			if !ok {
				return
			}
			s.handleEvent(ev)
		case err, ok := <-s.watcher.Errors():
			if !ok {
				return
			}
			s.log.Warn("watch error: %v", err)
		}
	}
}

func (s *Store) handleEvent(ev watcher.Event) {
	if !ev.Op.Changed() {
		return
	}
	h, ok := s.GetByPath(ev.Path)
	if !ok {
		return
	}
	// LastSaveWindow waits for a save in progress, so a save that produced
	// this event has already recorded its window.
	start, end := h.Doc.LastSaveWindow()
	if duringSave(ev.Timestamp, start, end, s.debounce) {
		return
	}

	h.Doc.MarkExternalChange()
	s.log.Info("%s: external %s", h.Path, ev.Op)

	s.mu.RLock()
	handlers := make([]func(h *Handle, op watcher.Op), len(s.onExternal))
	copy(handlers, s.onExternal)
	s.mu.RUnlock()
	for _, fn := range handlers {
		fn(h, ev.Op)
	}
}

// duringSave reports whether at falls within [start, end] widened by
// debounce on both sides.
func duringSave(at, start, end time.Time, debounce time.Duration) bool {
	if start.IsZero() {
		return false
	}
	return !at.Before(start.Add(-debounce)) && !at.After(end.Add(debounce))
}
