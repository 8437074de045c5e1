package filesystem

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/afero/zipfs"
)

// NewOS returns a filesystem rooted at dir on the real disk.
func NewOS(dir string) afero.Fs {
	return afero.NewBasePathFs(afero.NewOsFs(), dir)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenReadOnly opens a directory or a .zip archive as a read-only
// filesystem. The returned closer releases the archive.
func OpenReadOnly(path string) (afero.Fs, io.Closer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return afero.NewReadOnlyFs(NewOS(path)), nopCloser{}, nil
	}
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return nil, nil, fmt.Errorf("%s is neither a directory nor a .zip archive", path)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open archive %s: %w", path, err)
	}
	return afero.NewReadOnlyFs(zipfs.New(&zr.Reader)), zr, nil
}

// Clean normalizes a table path to the slash-separated relative form used
// as a cache and ledger key.
func Clean(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	return strings.TrimPrefix(p, "/")
}

// ListFiles returns every regular file below dir, relative to dir and
// sorted.
func ListFiles(fs afero.Fs, dir string) ([]string, error) {
	var files []string
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
