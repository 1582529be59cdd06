package engine

import (
	"strings"
	"testing"

	"github.com/dshills/txt/internal/logging"
)

// ============================================================================
// Setup Helpers
// ============================================================================

func setupLargeDocument(b *testing.B, lines int) *Document {
	b.Helper()
	line := strings.Repeat("word ", 16) + "\n"
	d, err := New(WithContent(strings.Repeat(line, lines)), WithLogger(logging.Null()))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { d.Close() })
	return d
}

// ============================================================================
// Read Benchmarks
// ============================================================================

func BenchmarkDocumentText(b *testing.B) {
	d := setupLargeDocument(b, 10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = d.Text()
	}
}

func BenchmarkDocumentRead(b *testing.B) {
	d := setupLargeDocument(b, 10000)
	n := d.Len()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = d.Read((i*4099)%n, 256)
	}
}

// ============================================================================
// Edit Benchmarks
// ============================================================================

func BenchmarkDocumentInsertMiddle(b *testing.B) {
	d := setupLargeDocument(b, 10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = d.InsertString(d.Len()/2, "x ")
	}
}

func BenchmarkDocumentInsertUndo(b *testing.B) {
	d := setupLargeDocument(b, 1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = d.InsertString(100, "typed")
		_ = d.Undo()
	}
}

func BenchmarkDocumentDeleteInsert(b *testing.B) {
	d := setupLargeDocument(b, 10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = d.Delete(50, 60)
		_ = d.InsertString(50, "0123456789")
	}
}
