package sequence

import (
	"fmt"
	"strings"

	terrors "github.com/dshills/txt/internal/errors"
)

// LineStd is a line-break convention.
type LineStd uint8

const (
	NoInit LineStd = iota // not yet chosen
	Linux                 // \n
	MSDOS                 // \r\n
	Mac                   // \r
)

// DefaultDetectBytes is how much of a file FindLineBreakStandard inspects
// when no limit is given.
const DefaultDetectBytes = 64 << 10

// String returns the convention's name.
func (s LineStd) String() string {
	switch s {
	case Linux:
		return "LINUX"
	case MSDOS:
		return "MSDOS"
	case Mac:
		return "MAC"
	default:
		return "NO_INIT"
	}
}

// Identifier returns the byte that ends a line: the terminal byte of the
// convention's sequence. NoInit has none and returns 0.
func (s LineStd) Identifier() byte {
	switch s {
	case Linux, MSDOS:
		return '\n'
	case Mac:
		return '\r'
	default:
		return 0
	}
}

// Sequence returns the bytes that end a line.
func (s LineStd) Sequence() string {
	switch s {
	case Linux:
		return "\n"
	case MSDOS:
		return "\r\n"
	case Mac:
		return "\r"
	default:
		return ""
	}
}

// ParseLineStd parses a convention name. It accepts the String forms and the
// common aliases lf, crlf and cr, in any case. An empty string is NoInit.
func ParseLineStd(s string) (LineStd, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return NoInit, nil
	case "LINUX", "LF", "UNIX":
		return Linux, nil
	case "MSDOS", "CRLF", "DOS", "WINDOWS":
		return MSDOS, nil
	case "MAC", "CR":
		return Mac, nil
	}
	return NoInit, fmt.Errorf("unknown line-break standard %q", s)
}

// FindLineBreakStandard guesses the convention used by p from its first
// limit bytes (DefaultDetectBytes if limit <= 0). It counts "\r\n" pairs,
// bare '\n' and bare '\r'; the strict majority wins. A tie or a prefix
// without line breaks yields ErrNoStandardDetected.
func FindLineBreakStandard(p []byte, limit int) (LineStd, error) {
	if limit <= 0 {
		limit = DefaultDetectBytes
	}
	if len(p) > limit {
		p = p[:limit]
	}

	var lf, crlf, cr int
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '\r':
			if i+1 < len(p) && p[i+1] == '\n' {
				crlf++
				i++
			} else {
				cr++
			}
		case '\n':
			lf++
		}
	}

	switch {
	case lf > crlf && lf > cr:
		return Linux, nil
	case crlf > lf && crlf > cr:
		return MSDOS, nil
	case cr > lf && cr > crlf:
		return Mac, nil
	}
	return NoInit, fmt.Errorf("%w (lf=%d crlf=%d cr=%d)", terrors.ErrNoStandardDetected, lf, crlf, cr)
}

// IsContinuation reports whether b is a UTF-8 continuation byte.
func IsContinuation(b byte) bool {
	return b&0xC0 == 0x80
}
