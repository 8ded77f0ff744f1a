package attachment

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSafeName(t *testing.T) {
	assert.Equal(t, "note.pdf", SafeName("note.pdf"))
	assert.Equal(t, "note.pdf", SafeName("dir/note.pdf"))
	assert.Equal(t, "evil.pdf", SafeName(`..\evil.pdf`))
	assert.Equal(t, "passwd", SafeName("../../etc/passwd"))
	assert.Equal(t, "note.pdf", SafeName("no\x00te\n.pdf"))
	assert.Equal(t, "attachment.bin", SafeName(""))
	assert.Equal(t, "attachment.bin", SafeName(".."))
	assert.Equal(t, "Contract Note (Cash F&O).pdf", SafeName("Contract Note (Cash F&O).pdf"))
}

func TestSafeName_CutsOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 200) + ".pdf" // 404 bytes

	got := SafeName(long)

	assert.LessOrEqual(t, len(got), MaxNameLen)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, got, SafeName(got), "cleaning a clean name changes nothing")
}

func TestFileName(t *testing.T) {
	date := time.Date(2023, time.December, 11, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2023-12-11_note.pdf", fileName("reports/note.pdf", date))
	assert.Equal(t, "2023-12-11_note.pdf", fileName("2023-12-11_note.pdf", date))
	assert.Equal(t, "note.pdf", fileName(`C:\reports\note.pdf`, time.Time{}))

	long := fileName(strings.Repeat("a", 300), date)
	assert.Len(t, long, MaxNameLen)
	assert.True(t, strings.HasPrefix(long, "2023-12-11_"))
}
