package piece

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"

	terrors "github.com/dshills/txt/internal/errors"
)

// newTestTable returns a table whose file source holds orig.
func newTestTable(orig string) (*Table, *Buffer) {
	t := NewTable()
	edit := NewBuffer(16)
	t.SetSource(SourceEdit, edit)
	if orig != "" {
		file := NewMappedBuffer([]byte(orig), nil)
		t.SetSource(SourceFile, file)
		c, err := t.Insert(0, SourceFile, 0, len(orig))
		if err != nil {
			panic(err)
		}
		t.Discard(c)
	}
	return t, edit
}

func insertString(t *Table, edit *Buffer, pos int, s string) (Change, error) {
	off, err := edit.Append([]byte(s))
	if err != nil {
		return Change{}, err
	}
	return t.Insert(pos, SourceEdit, off, len(s))
}

func content(t *Table) string {
	var buf bytes.Buffer
	if _, err := t.WriteTo(&buf); err != nil {
		panic(err)
	}
	return buf.String()
}

func TestNewTableEmpty(t *testing.T) {
	tbl := NewTable()
	if tbl.Len() != 0 || tbl.NodeCount() != 0 {
		t.Errorf("Len() = %d, NodeCount() = %d", tbl.Len(), tbl.NodeCount())
	}
	if tbl.First() != Tail || tbl.Last() != Head {
		t.Error("empty table should link Head to Tail")
	}
	if _, err := tbl.Locate(0); !errors.Is(err, terrors.ErrOutOfRange) {
		t.Errorf("Locate(0) on empty table: err = %v", err)
	}
}

func TestInsertSplitsHost(t *testing.T) {
	tbl, edit := newTestTable("helloworld")

	c, err := insertString(tbl, edit, 5, ", ")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got := content(tbl); got != "hello, world" {
		t.Errorf("content = %q", got)
	}
	if len(c.Old) != 1 || len(c.New) != 3 {
		t.Errorf("split change old=%d new=%d, want 1/3", len(c.Old), len(c.New))
	}

	pieces := tbl.Pieces()
	want := []Piece{
		{Source: SourceFile, Offset: 0, Size: 5},
		{Source: SourceEdit, Offset: 0, Size: 2},
		{Source: SourceFile, Offset: 5, Size: 5},
	}
	if len(pieces) != len(want) {
		t.Fatalf("pieces = %+v", pieces)
	}
	for i := range want {
		if pieces[i] != want[i] {
			t.Errorf("piece %d = %+v, want %+v", i, pieces[i], want[i])
		}
	}
}

func TestInsertAtBoundaries(t *testing.T) {
	tbl, edit := newTestTable("bc")

	c, err := insertString(tbl, edit, 0, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Old) != 0 || len(c.New) != 1 {
		t.Errorf("boundary insert should splice one node, got old=%d new=%d", len(c.Old), len(c.New))
	}
	if _, err := insertString(tbl, edit, 3, "d"); err != nil {
		t.Fatal(err)
	}
	if got := content(tbl); got != "abcd" {
		t.Errorf("content = %q", got)
	}
	if tbl.NodeCount() != 3 {
		t.Errorf("NodeCount() = %d, want 3", tbl.NodeCount())
	}
}

func TestInsertOutOfRange(t *testing.T) {
	tbl, edit := newTestTable("abc")
	for _, pos := range []int{-1, 4, 100} {
		if _, err := insertString(tbl, edit, pos, "x"); !errors.Is(err, terrors.ErrOutOfRange) {
			t.Errorf("Insert(%d): err = %v, want ErrOutOfRange", pos, err)
		}
	}
	if got := content(tbl); got != "abc" {
		t.Errorf("content changed to %q", got)
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name       string
		begin, end int
		want       string
	}{
		{"whole", 0, 12, ""},
		{"prefix", 0, 5, ", world"},
		{"suffix", 5, 12, "hello"},
		{"middle of piece", 1, 3, "hlo, world"},
		{"across pieces", 3, 9, "helrld"},
		{"exactly the inserted piece", 5, 7, "helloworld"},
		{"empty", 4, 4, "hello, world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, edit := newTestTable("helloworld")
			if _, err := insertString(tbl, edit, 5, ", "); err != nil {
				t.Fatal(err)
			}
			if _, err := tbl.Delete(tt.begin, tt.end); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if got := content(tbl); got != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
			if tbl.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", tbl.Len(), len(tt.want))
			}
		})
	}
}

func TestDeleteOutOfRange(t *testing.T) {
	tbl, _ := newTestTable("abc")
	cases := [][2]int{{2, 1}, {0, 4}, {-1, 2}, {4, 5}}
	for _, c := range cases {
		if _, err := tbl.Delete(c[0], c[1]); !errors.Is(err, terrors.ErrOutOfRange) {
			t.Errorf("Delete(%d,%d): err = %v", c[0], c[1], err)
		}
	}
}

func TestRevertApplyRoundTrip(t *testing.T) {
	tbl, edit := newTestTable("abcdef")

	c1, _ := insertString(tbl, edit, 3, "XYZ")
	c2, _ := tbl.Delete(1, 5)
	after := content(tbl)

	tbl.Revert(c2)
	if got := content(tbl); got != "abcXYZdef" {
		t.Errorf("after revert c2: %q", got)
	}
	tbl.Revert(c1)
	if got := content(tbl); got != "abcdef" {
		t.Errorf("after revert c1: %q", got)
	}
	tbl.Apply(c1)
	tbl.Apply(c2)
	if got := content(tbl); got != after {
		t.Errorf("after reapply: %q, want %q", got, after)
	}
}

func TestDiscardFreesUnreferencedNodes(t *testing.T) {
	tbl, edit := newTestTable("abcdef")

	c, _ := insertString(tbl, edit, 3, "X")
	tbl.Revert(c)
	before := tbl.ArenaSize()

	// The reverted change's new nodes are referenced only by the change.
	tbl.Discard(c)
	if got := tbl.ArenaSize(); got != before-3 {
		t.Errorf("ArenaSize() = %d, want %d", got, before-3)
	}
	if got := content(tbl); got != "abcdef" {
		t.Errorf("content = %q", got)
	}

	// Freed slots are reused.
	if _, err := insertString(tbl, edit, 0, "Z"); err != nil {
		t.Fatal(err)
	}
	if got := tbl.ArenaSize(); got != before-3+1 {
		t.Errorf("ArenaSize() after reuse = %d", got)
	}
}

func TestDiscardAppliedChangeKeepsLiveNodes(t *testing.T) {
	tbl, edit := newTestTable("abcdef")

	c, _ := insertString(tbl, edit, 3, "X")
	tbl.Discard(c)

	if got := content(tbl); got != "abcXdef" {
		t.Errorf("content = %q", got)
	}
	// The split host is dead and unreferenced now; only the 3 new nodes remain.
	if got := tbl.ArenaSize(); got != 2+3 {
		t.Errorf("ArenaSize() = %d, want 5", got)
	}
}

func TestLocate(t *testing.T) {
	tbl, edit := newTestTable("abc")
	insertString(tbl, edit, 3, "def")

	c, err := tbl.Locate(4)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Piece(c.Node).Source != SourceEdit || c.Offset != 1 {
		t.Errorf("Locate(4) = %+v", c)
	}
	if tbl.Position(c) != 4 {
		t.Errorf("Position() = %d, want 4", tbl.Position(c))
	}
	if _, err := tbl.Locate(6); !errors.Is(err, terrors.ErrOutOfRange) {
		t.Errorf("Locate(len): err = %v", err)
	}
}

func TestReadAt(t *testing.T) {
	tbl, edit := newTestTable("hello")
	insertString(tbl, edit, 5, " world")

	p := make([]byte, 7)
	n, err := tbl.ReadAt(p, 3)
	if err != nil || n != 7 || string(p) != "lo worl" {
		t.Errorf("ReadAt = %d, %v, %q", n, err, p)
	}

	n, err = tbl.ReadAt(p, 8)
	if err != io.EOF || string(p[:n]) != "rld" {
		t.Errorf("short ReadAt = %d, %v, %q", n, err, p[:n])
	}

	if _, err := tbl.ReadAt(p, 11); err != io.EOF {
		t.Errorf("ReadAt at end: err = %v", err)
	}
}

func TestBlock(t *testing.T) {
	tbl, edit := newTestTable("hello")
	insertString(tbl, edit, 5, " world")

	b, err := tbl.Block(2, 100)
	if err != nil || string(b) != "llo" {
		t.Errorf("Block(2) = %q, %v", b, err)
	}
	b, _ = tbl.Block(5, 3)
	if string(b) != " wo" {
		t.Errorf("Block(5,3) = %q", b)
	}
	if _, err := tbl.Block(11, 1); err != io.EOF {
		t.Errorf("Block at end: err = %v", err)
	}
}

func TestNeighbourBytesAndScan(t *testing.T) {
	tbl, edit := newTestTable("ab")
	insertString(tbl, edit, 2, "cd")
	insertString(tbl, edit, 4, "ef")

	from, _ := tbl.Locate(1)
	to := tbl.End(from, 4)
	if tbl.Position(to) != 4 {
		t.Fatalf("End() position = %d", tbl.Position(to))
	}

	var got []byte
	tbl.Scan(from, to, func(b []byte) bool {
		got = append(got, b...)
		return true
	})
	if string(got) != "bcde" {
		t.Errorf("Scan = %q", got)
	}

	if b, ok := tbl.ByteBefore(from); !ok || b != 'a' {
		t.Errorf("ByteBefore = %q, %v", b, ok)
	}
	if b, ok := tbl.ByteAfter(to); !ok || b != 'f' {
		t.Errorf("ByteAfter = %q, %v", b, ok)
	}

	start, _ := tbl.Locate(0)
	if _, ok := tbl.ByteBefore(start); ok {
		t.Error("ByteBefore at start should report false")
	}
	end, _ := tbl.Locate(5)
	if _, ok := tbl.ByteAfter(end); ok {
		t.Error("ByteAfter at end should report false")
	}
}

// TestModelEquivalence drives random edits against a flat byte slice.
func TestModelEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tbl, edit := newTestTable("The quick brown fox jumps over the lazy dog")
	model := []byte("The quick brown fox jumps over the lazy dog")
	var changes []Change

	for i := 0; i < 2000; i++ {
		if len(model) == 0 || rng.Intn(3) > 0 {
			pos := rng.Intn(len(model) + 1)
			s := randomText(rng)
			c, err := insertString(tbl, edit, pos, s)
			if err != nil {
				t.Fatalf("step %d: insert: %v", i, err)
			}
			changes = append(changes, c)
			model = append(model[:pos], append([]byte(s), model[pos:]...)...)
		} else {
			b := rng.Intn(len(model))
			e := b + rng.Intn(len(model)-b+1)
			c, err := tbl.Delete(b, e)
			if err != nil {
				t.Fatalf("step %d: delete: %v", i, err)
			}
			changes = append(changes, c)
			model = append(model[:b], model[e:]...)
		}
		if got := content(tbl); got != string(model) {
			t.Fatalf("step %d: content diverged\n got %q\nwant %q", i, got, model)
		}
	}

	// Revert everything in reverse order back to the original.
	for i := len(changes) - 1; i >= 0; i-- {
		tbl.Revert(changes[i])
	}
	if got := content(tbl); got != "The quick brown fox jumps over the lazy dog" {
		t.Errorf("full revert = %q", got)
	}
}

func randomText(rng *rand.Rand) string {
	const alphabet = "abc xyz\n\t"
	n := 1 + rng.Intn(6)
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

func TestBufferLimit(t *testing.T) {
	b := NewBuffer(0)
	b.SetLimit(4)
	if _, err := b.Append([]byte("abcd")); err != nil {
		t.Fatalf("Append within limit: %v", err)
	}
	if _, err := b.Append([]byte("e")); !errors.Is(err, terrors.ErrBufferExhausted) {
		t.Errorf("Append past limit: err = %v", err)
	}
	if b.Size() != 4 {
		t.Errorf("Size() = %d", b.Size())
	}
}

func TestMappedBufferIsReadOnly(t *testing.T) {
	released := false
	b := NewMappedBuffer([]byte("abc"), func() error {
		released = true
		return nil
	})
	if _, err := b.Append([]byte("x")); !errors.Is(err, terrors.ErrBufferExhausted) {
		t.Errorf("Append on mapped buffer: err = %v", err)
	}
	if err := b.Close(); err != nil || !released {
		t.Errorf("Close: err = %v, released = %v", err, released)
	}
}

func BenchmarkInsertTyping(b *testing.B) {
	for i := 0; i < b.N; i++ {
		tbl, edit := newTestTable("")
		for j := 0; j < 1000; j++ {
			insertString(tbl, edit, j, "x")
		}
	}
}
