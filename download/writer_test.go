package download

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bassamadnan/contractnotes/attachment"
)

func TestWriter_RoundTripsDecodedBytes(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "/notes/Contract Notes")
	raw := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff, 0xfe}

	data, err := attachment.Decode("JVBERgD__g==")
	require.NoError(t, err)
	require.Equal(t, raw, data)

	path, err := w.Write(attachment.File{Name: "2023-12-11_note.pdf", Data: data})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/notes/Contract Notes", "2023-12-11_note.pdf"), path)

	got, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestWriter_OverwritesExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "/out")

	_, err := w.Write(attachment.File{Name: "a.pdf", Data: []byte("first version")})
	require.NoError(t, err)
	path, err := w.Write(attachment.File{Name: "a.pdf", Data: []byte("second")})
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files may be left behind")
	assert.Equal(t, "a.pdf", entries[0].Name())
}

func TestWriter_EnsureDirIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "/a/b/c")

	require.NoError(t, w.EnsureDir())
	require.NoError(t, w.EnsureDir())

	ok, err := afero.DirExists(fs, "/a/b/c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWriter_KeepsFilesInsideDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "/out")

	path, err := w.Write(attachment.File{Name: "../../etc/passwd", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "passwd"), path)

	path, err = w.Write(attachment.File{Name: `..\evil.pdf`, Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "evil.pdf"), path)
}

func TestWriter_ReadOnlyFsReturnsWriteError(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	w := NewWriter(fs, "/out")

	_, err := w.Write(attachment.File{Name: "a.pdf", Data: []byte("x")})

	var writeErr *WriteError
	require.True(t, errors.As(err, &writeErr))
}

// namingFs records the names of files opened for writing.
type namingFs struct {
	afero.Fs
	opened []string
}

func (n *namingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	n.opened = append(n.opened, filepath.Base(name))
	return n.Fs.OpenFile(name, flag, perm)
}

func TestWriter_TempNameDoesNotGrowWithFilename(t *testing.T) {
	fs := &namingFs{Fs: afero.NewMemMapFs()}
	w := NewWriter(fs, "/out")
	name := strings.Repeat("a", 240) + ".pdf"

	path, err := w.Write(attachment.File{Name: name, Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", name), path)

	require.NotEmpty(t, fs.opened)
	for _, n := range fs.opened {
		assert.True(t, strings.HasPrefix(n, ".cn-"), n)
		assert.Less(t, len(n), 32, n)
	}
}
