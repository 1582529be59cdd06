package stats

import (
	"fmt"

	"github.com/dshills/txt/internal/engine/piece"
	terrors "github.com/dshills/txt/internal/errors"
)

// Correction returns the adjustment applied to a span's raw word count.
// Each argument reports whether the corresponding position is whitespace: the
// byte left of the span, the span's first byte, its last byte and the byte
// right of it. A missing neighbour is passed as whitespace.
//
//   - -1 when the span's word merges with a neighbouring word.
//   - +1 when the span splits one word into two.
//   - 0 otherwise.
func Correction(left, first, last, right bool) int {
	switch {
	case left && !last && !right,
		right && !left && !first,
		!left && !first && !last && !right:
		return -1
	case !left && first && last && !right:
		return 1
	}
	return 0
}

// ComputeSpanEffect returns the statistics contributed by the inclusive
// span [start, end] of t: what linking the span adds to the document, or
// equivalently what unlinking it removes. Only the span and its two
// neighbouring bytes are read.
func ComputeSpanEffect(t *piece.Table, start, end piece.Cursor, lineID byte) TextStatistics {
	c := NewCounter(lineID)
	t.Scan(start, end, func(b []byte) bool {
		c.Write(b)
		return true
	})
	res := c.Stats()

	spaceAt := func(b byte, ok bool) bool {
		return !ok || Classify(b, lineID).IsSpace()
	}
	first := Classify(t.Bytes(start.Node)[start.Offset], lineID).IsSpace()
	last := Classify(t.Bytes(end.Node)[end.Offset], lineID).IsSpace()
	left := spaceAt(t.ByteBefore(start))
	right := spaceAt(t.ByteAfter(end))

	res.Words += Correction(left, first, last, right)
	return res
}

// RangeEffect is ComputeSpanEffect for the half-open byte range
// [begin, end) of t. An empty range has no effect.
func RangeEffect(t *piece.Table, begin, end int, lineID byte) (TextStatistics, error) {
	if begin == end {
		return TextStatistics{}, nil
	}
	if begin < 0 || end < begin || end > t.Len() {
		return TextStatistics{}, fmt.Errorf("range [%d,%d): %w", begin, end, terrors.ErrOutOfRange)
	}
	start, err := t.Locate(begin)
	if err != nil {
		return TextStatistics{}, err
	}
	return ComputeSpanEffect(t, start, t.End(start, end-begin), lineID), nil
}

// Count scans the whole table and returns its absolute statistics.
func Count(t *piece.Table, lineID byte) TextStatistics {
	c := NewCounter(lineID)
	t.WriteTo(c)
	return c.Stats()
}
