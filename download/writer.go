package download

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/bassamadnan/contractnotes/attachment"
)

// tempPattern names in-progress files. It is short so that any final name
// up to attachment.MaxNameLen still fits.
const tempPattern = ".cn-*.part"

// WriteError is a failure to persist one file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer stores attachments in a single directory.
type Writer struct {
	fs  afero.Fs
	dir string
}

// NewWriter returns a writer for dir on fs.
func NewWriter(fs afero.Fs, dir string) *Writer {
	return &Writer{fs: fs, dir: dir}
}

// Dir is the target directory.
func (w *Writer) Dir() string { return w.dir }

// EnsureDir creates the target directory if it does not exist.
func (w *Writer) EnsureDir() error {
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return &WriteError{Path: w.dir, Err: err}
	}
	return nil
}

// Write stores f under the target directory and returns its path. An
// existing file with the same name is replaced. Data is written to a
// temporary file in the same directory and renamed over the target.
func (w *Writer) Write(f attachment.File) (string, error) {
	path := filepath.Join(w.dir, attachment.SafeName(f.Name))
	if err := w.EnsureDir(); err != nil {
		return path, err
	}

	tmp, err := afero.TempFile(w.fs, w.dir, tempPattern)
	if err != nil {
		return path, &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(f.Data); err != nil {
		tmp.Close()
		w.fs.Remove(tmpName)
		return path, &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		w.fs.Remove(tmpName)
		return path, &WriteError{Path: path, Err: err}
	}
	if err := w.fs.Chmod(tmpName, 0o644); err != nil && !os.IsNotExist(err) {
		w.fs.Remove(tmpName)
		return path, &WriteError{Path: path, Err: err}
	}
	if err := w.fs.Rename(tmpName, path); err != nil {
		w.fs.Remove(tmpName)
		return path, &WriteError{Path: path, Err: err}
	}
	return path, nil
}
