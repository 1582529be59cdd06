package config

import (
	"errors"
	"os"
	"testing"
	"testing/fstest"
	"time"

	"github.com/dshills/txt/internal/engine/sequence"
	"github.com/dshills/txt/internal/logging"
)

func TestSections_Defaults(t *testing.T) {
	c := newTestConfig(t, fstest.MapFS{})

	if lb := c.LineBreak(); lb.Fallback != sequence.Linux || lb.DetectBytes != sequence.DefaultDetectBytes {
		t.Errorf("LineBreak() = %+v", lb)
	}
	if e := c.Edit(); e.InitialCapacity != sequence.DefaultEditCapacity || e.MaxBytes != 0 {
		t.Errorf("Edit() = %+v", e)
	}
	if h := c.History(); h.MaxEntries != 0 {
		t.Errorf("History() = %+v", h)
	}
	if b := c.Backup(); b.Dir != os.TempDir() {
		t.Errorf("Backup() = %+v", b)
	}
	if l := c.Log(); l.Level != logging.LevelInfo {
		t.Errorf("Log() = %+v", l)
	}
	if w := c.Watch(); !w.Enabled || w.Debounce != 100*time.Millisecond {
		t.Errorf("Watch() = %+v", w)
	}
	if errs := c.ConfigErrors(); len(errs) != 0 {
		t.Errorf("ConfigErrors() = %v", errs)
	}
}

func TestSections_EmptyFallbackDisablesIt(t *testing.T) {
	c := newTestConfig(t, fstest.MapFS{})
	c.Set("linebreak.fallback", "")
	if lb := c.LineBreak(); lb.Fallback != sequence.NoInit {
		t.Errorf("Fallback = %v, want NO_INIT", lb.Fallback)
	}
}

func TestSections_BadValuesFallBack(t *testing.T) {
	c := newTestConfig(t, fstest.MapFS{})
	c.Set("linebreak.fallback", "VMS")
	c.Set("linebreak.detectBytes", 0)
	c.Set("edit.maxBytes", -1)
	c.Set("history.maxEntries", "lots")
	c.Set("log.level", "loud")
	c.Set("watch.debounce", "soon")
	c.Set("watch.enabled", "yes")

	if lb := c.LineBreak(); lb.Fallback != sequence.Linux || lb.DetectBytes != sequence.DefaultDetectBytes {
		t.Errorf("LineBreak() = %+v", lb)
	}
	if e := c.Edit(); e.MaxBytes != 0 {
		t.Errorf("Edit() = %+v", e)
	}
	if h := c.History(); h.MaxEntries != 0 {
		t.Errorf("History() = %+v", h)
	}
	if l := c.Log(); l.Level != logging.LevelInfo {
		t.Errorf("Log() = %+v", l)
	}
	if w := c.Watch(); !w.Enabled || w.Debounce != 100*time.Millisecond {
		t.Errorf("Watch() = %+v", w)
	}

	errs := c.ConfigErrors()
	for _, path := range []string{
		"linebreak.fallback", "linebreak.detectBytes", "edit.maxBytes",
		"history.maxEntries", "log.level", "watch.debounce", "watch.enabled",
	} {
		if errs[path] == nil {
			t.Errorf("no error recorded for %s", path)
		}
	}
	if !errors.Is(errs["history.maxEntries"], ErrTypeMismatch) {
		t.Errorf("history.maxEntries err = %v", errs["history.maxEntries"])
	}
	if !errors.Is(errs["edit.maxBytes"], ErrInvalidValue) {
		t.Errorf("edit.maxBytes err = %v", errs["edit.maxBytes"])
	}

	c.ClearConfigErrors()
	if c.ConfigErrors() != nil {
		t.Error("ClearConfigErrors did not clear")
	}
}
