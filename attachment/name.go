package attachment

import (
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNameLen is the longest file name, in bytes, that SafeName returns.
const MaxNameLen = 255

const fallbackName = "attachment.bin"

// SafeName reduces an attachment filename to a single path element that
// stays inside the download directory: directory components and control
// characters are dropped and the result is cut to MaxNameLen bytes on a
// rune boundary.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	cleaned := strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, name)
	cleaned = truncateName(cleaned, MaxNameLen)
	if cleaned == "" || cleaned == "." || cleaned == ".." || cleaned == "/" {
		return fallbackName
	}
	return cleaned
}

// fileName is the on-disk name for an attachment called raw in a message
// dated date. The date prefix is applied after cleaning so it survives.
func fileName(raw string, date time.Time) string {
	name := SafeName(raw)
	if date.IsZero() || strings.HasPrefix(name, date.Format(DatePrefixLayout)) {
		return name
	}
	return DatedName(truncateName(name, MaxNameLen-len(DatePrefixLayout)), date)
}

func truncateName(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
