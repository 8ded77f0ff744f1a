package attachment

import (
	"strings"
	"time"
)

// DatePrefixLayout is the layout of the prefix put in front of filenames.
const DatePrefixLayout = "2006-01-02_"

// dateLayouts are tried in order. tokens is how many leading
// whitespace-separated fields of the header the layout consumes.
var dateLayouts = []struct {
	layout string
	tokens int
}{
	{"Mon, 2 Jan 2006", 4}, // Mon, 11 Dec 2023 09:15:00 +0530
	{"2 Jan 2006", 3},      // 11 Dec 2023 09:15:00 +0530
	{"2006-01-02", 1},      // 2023-12-11
}

// ParseDate extracts the calendar date from a Date header. Time of day,
// zone and anything after are ignored, so the date is the one written in
// the header. It reports false when no layout matches.
func ParseDate(header string) (time.Time, bool) {
	fields := strings.Fields(header)
	for _, l := range dateLayouts {
		if len(fields) < l.tokens {
			continue
		}
		t, err := time.Parse(l.layout, strings.Join(fields[:l.tokens], " "))
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DatedName prefixes filename with date as YYYY-MM-DD_. A zero date or a
// filename already carrying that prefix is returned unchanged.
func DatedName(filename string, date time.Time) string {
	if date.IsZero() {
		return filename
	}
	prefix := date.Format(DatePrefixLayout)
	if strings.HasPrefix(filename, prefix) {
		return filename
	}
	return prefix + filename
}
