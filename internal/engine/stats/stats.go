// Package stats derives line and word counts for a piece table.
//
// Counts are maintained incrementally: an edit only scans the span it
// inserted or removed, then corrects for words that straddle the span's
// edges by probing one byte on each side.
//
// A word is a maximal run of word bytes. The line break identifier and the
// bytes ' ', '\t', '\n' and '\r' are separators. Only the identifier byte
// counts as a line break, so an MSDOS document counts the '\n' of each
// "\r\n" and treats the '\r' as plain whitespace.
package stats

import "fmt"

// TextStatistics is a line break and word count. Depending on the call site
// it is an absolute count or a signed delta.
type TextStatistics struct {
	LineBreaks int
	Words      int
}

// Add returns s + o.
func (s TextStatistics) Add(o TextStatistics) TextStatistics {
	return TextStatistics{LineBreaks: s.LineBreaks + o.LineBreaks, Words: s.Words + o.Words}
}

// Sub returns s - o.
func (s TextStatistics) Sub(o TextStatistics) TextStatistics {
	return TextStatistics{LineBreaks: s.LineBreaks - o.LineBreaks, Words: s.Words - o.Words}
}

// Neg returns -s.
func (s TextStatistics) Neg() TextStatistics {
	return TextStatistics{LineBreaks: -s.LineBreaks, Words: -s.Words}
}

// IsZero reports whether both counts are zero.
func (s TextStatistics) IsZero() bool {
	return s.LineBreaks == 0 && s.Words == 0
}

// String formats the statistics for logs and the CLI.
func (s TextStatistics) String() string {
	return fmt.Sprintf("lines=%d words=%d", s.LineBreaks, s.Words)
}

// Class is the category of a single byte.
type Class uint8

const (
	// Word is any byte that is part of a word.
	Word Class = iota
	// Space is a separator that does not end a line.
	Space
	// LineBreak is the line break identifier byte.
	LineBreak
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case Word:
		return "word"
	case Space:
		return "space"
	case LineBreak:
		return "linebreak"
	default:
		return "unknown"
	}
}

// IsSpace reports whether c separates words.
func (c Class) IsSpace() bool { return c != Word }

// Classify returns the class of b for a document whose lines end in lineID.
func Classify(b, lineID byte) Class {
	if b == lineID {
		return LineBreak
	}
	switch b {
	case ' ', '\t', '\n', '\r':
		return Space
	}
	return Word
}

// Counter accumulates raw statistics over a byte stream delivered in chunks.
// A word is counted at each word byte that follows a separator or the start
// of the stream.
type Counter struct {
	lineID    byte
	stats     TextStatistics
	prevSpace bool
}

// NewCounter returns a counter positioned at the start of a stream.
func NewCounter(lineID byte) *Counter {
	return &Counter{lineID: lineID, prevSpace: true}
}

// Write feeds p to the counter. It never fails.
func (c *Counter) Write(p []byte) (int, error) {
	for _, b := range p {
		switch Classify(b, c.lineID) {
		case LineBreak:
			c.stats.LineBreaks++
			c.prevSpace = true
		case Space:
			c.prevSpace = true
		default:
			if c.prevSpace {
				c.stats.Words++
			}
			c.prevSpace = false
		}
	}
	return len(p), nil
}

// Stats returns the counts accumulated so far.
func (c *Counter) Stats() TextStatistics { return c.stats }

// CountBytes returns the absolute statistics of p taken as a whole document.
func CountBytes(p []byte, lineID byte) TextStatistics {
	c := NewCounter(lineID)
	c.Write(p)
	return c.Stats()
}
