package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/txt/internal/engine"
	"github.com/dshills/txt/internal/engine/sequence"
	"github.com/dshills/txt/internal/logging"
	"github.com/dshills/txt/internal/watcher"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")
	if err := os.Mkdir(backups, 0o755); err != nil {
		t.Fatal(err)
	}
	base := []Option{
		WithLogger(logging.Null()),
		WithDocumentOptions(
			engine.WithLineStd(sequence.Linux),
			engine.WithBackupDir(backups),
			engine.WithLogger(logging.Null()),
		),
	}
	s, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	t.Cleanup(func() { s.Shutdown() })
	return s, dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOpenReturnsSameHandle(t *testing.T) {
	s, dir := newTestStore(t, WithWatch(false))
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "one two\n")
	ctx := context.Background()

	h1, err := s.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if h1.ID == uuid.Nil {
		t.Error("handle has no id")
	}

	rel, _ := filepath.Rel(mustGetwd(t), path)
	h2, err := s.Open(ctx, rel)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("opening the same file twice returned different handles")
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d", s.Count())
	}

	if got, ok := s.Get(h1.ID); !ok || got != h1 {
		t.Error("Get by id failed")
	}
	if got, ok := s.GetByPath(path); !ok || got != h1 {
		t.Error("GetByPath failed")
	}
	if _, ok := s.Get(uuid.New()); ok {
		t.Error("Get found an unknown id")
	}
	if st := h1.Doc.Statistics(); st.Words != 2 {
		t.Errorf("Statistics() = %v", st)
	}
}

func mustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	return wd
}

func TestOpenDistinctFiles(t *testing.T) {
	s, dir := newTestStore(t, WithWatch(false))
	ctx := context.Background()

	var ids []uuid.UUID
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		p := filepath.Join(dir, name)
		writeFile(t, p, name+"\n")
		h, err := s.Open(ctx, p)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, h.ID)
	}
	if ids[0] == ids[1] || ids[1] == ids[2] {
		t.Error("ids are not unique")
	}
	hs := s.Handles()
	if len(hs) != 3 || filepath.Base(hs[0].Path) != "a.txt" || filepath.Base(hs[2].Path) != "c.txt" {
		t.Errorf("Handles() not ordered by path")
	}
}

func TestCloseDirty(t *testing.T) {
	s, dir := newTestStore(t, WithWatch(false))
	ctx := context.Background()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "abc\n")

	h, err := s.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	var closed []string
	s.OnClose(func(h *Handle) { closed = append(closed, h.Path) })

	h.Doc.InsertString(0, "x")
	if err := s.Close(ctx, h.ID, false); !errors.Is(err, ErrDocumentDirty) {
		t.Fatalf("Close dirty err = %v", err)
	}
	if err := s.CloseAll(ctx, false); !errors.Is(err, ErrDocumentDirty) {
		t.Fatalf("CloseAll dirty err = %v", err)
	}
	if !s.IsOpen(path) {
		t.Fatal("dirty document was closed")
	}

	if err := s.Save(ctx, h.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(ctx, h.ID, false); err != nil {
		t.Fatalf("Close after save err = %v", err)
	}
	if s.IsOpen(path) || len(closed) != 1 {
		t.Errorf("IsOpen = %v, close handlers = %v", s.IsOpen(path), closed)
	}
	if err := s.Close(ctx, h.ID, false); !errors.Is(err, ErrDocumentNotOpen) {
		t.Errorf("second Close err = %v", err)
	}
	if got, _ := os.ReadFile(path); string(got) != "xabc\n" {
		t.Errorf("file = %q", got)
	}
}

func TestCloseAllForce(t *testing.T) {
	s, dir := newTestStore(t, WithWatch(false))
	ctx := context.Background()
	for _, name := range []string{"a.txt", "b.txt"} {
		p := filepath.Join(dir, name)
		writeFile(t, p, "x\n")
		h, err := s.Open(ctx, p)
		if err != nil {
			t.Fatal(err)
		}
		h.Doc.InsertString(0, "dirty ")
	}
	if st := s.GetStats(); st.OpenCount != 2 || st.DirtyCount != 2 {
		t.Errorf("GetStats() = %+v", st)
	}
	if err := s.CloseAll(ctx, true); err != nil {
		t.Fatal(err)
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d", s.Count())
	}
}

func TestShutdown(t *testing.T) {
	s, dir := newTestStore(t)
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "x\n")
	if _, err := s.Open(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if err := s.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open(context.Background(), path); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Open after Shutdown err = %v", err)
	}
	if err := s.Shutdown(); err != nil {
		t.Errorf("second Shutdown err = %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	s, dir := newTestStore(t, WithWatch(false))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Open(ctx, filepath.Join(dir, "a.txt")); !errors.Is(err, context.Canceled) {
		t.Errorf("Open err = %v", err)
	}
}

func TestConcurrentOpen(t *testing.T) {
	s, dir := newTestStore(t, WithWatch(false))
	path := filepath.Join(dir, "shared.txt")
	writeFile(t, path, "shared\n")

	const n = 16
	handles := make([]*Handle, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := s.Open(context.Background(), path)
			if err != nil {
				t.Error(err)
				return
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()
	for _, h := range handles[1:] {
		if h != handles[0] {
			t.Fatal("concurrent opens produced different handles")
		}
	}
}

func waitUntil(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestExternalChangeDetected(t *testing.T) {
	s, dir := newTestStore(t, WithDebounce(50*time.Millisecond))
	path := filepath.Join(dir, "watched.txt")
	writeFile(t, path, "mine\n")

	h, err := s.Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	notified := make(chan watcher.Op, 4)
	s.OnExternalChange(func(_ *Handle, op watcher.Op) { notified <- op })

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("theirs\n")
	f.Close()

	if !waitUntil(t, h.Doc.ExternallyModified) {
		t.Fatal("external write not detected")
	}
	select {
	case op := <-notified:
		if !op.Changed() {
			t.Errorf("handler got %s", op)
		}
	case <-time.After(2 * time.Second):
		t.Error("external change handler not called")
	}
	if st := s.GetStats(); st.ExternalCount != 1 {
		t.Errorf("GetStats() = %+v", st)
	}
}

func TestOwnSaveIgnored(t *testing.T) {
	s, dir := newTestStore(t, WithDebounce(2*time.Second))
	path := filepath.Join(dir, "saved.txt")
	writeFile(t, path, "draft\n")

	h, err := s.Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	h.Doc.InsertString(0, "final ")
	if err := h.Doc.Save(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if h.Doc.ExternallyModified() {
		t.Error("own save flagged as external change")
	}
}

func TestDuringSave(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Second) // slower than the debounce window
	debounce := 100 * time.Millisecond

	tests := []struct {
		name  string
		at    time.Time
		start time.Time
		want  bool
	}{
		{"never saved", start, time.Time{}, false},
		{"truncate at save start", start, start, true},
		{"write mid save", start.Add(time.Second), start, true},
		{"flush at save end", end, start, true},
		{"late event inside debounce", end.Add(50 * time.Millisecond), start, true},
		{"early event inside debounce", start.Add(-50 * time.Millisecond), start, true},
		{"after debounce", end.Add(200 * time.Millisecond), start, false},
		{"before save", start.Add(-time.Second), start, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := duringSave(tt.at, tt.start, end, debounce); got != tt.want {
				t.Errorf("duringSave() = %v, want %v", got, tt.want)
			}
		})
	}
}
