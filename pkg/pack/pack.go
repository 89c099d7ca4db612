// Package pack reads models and their sidecars out of zip asset packs.
package pack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/Faultbox/vismodel/pkg/encoding"
)

// ErrNotFound is returned when a path is not in the pack.
var ErrNotFound = errors.New("file not found in pack")

// Archive is an opened asset pack. Lookups are case-insensitive and accept
// either slash style, matching how the engine resolves asset paths.
type Archive struct {
	zr     *zip.Reader
	closer io.Closer
	files  map[string]*Entry
}

// Entry is one file in the pack.
type Entry struct {
	Name             string // decoded name as stored
	CompressedSize   uint64
	UncompressedSize uint64
	Method           uint16

	file *zip.File
}

// Open opens a pack file from disk.
func Open(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening pack: %w", err)
	}
	a, err := newArchive(&rc.Reader, rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return a, nil
}

// NewArchive reads a pack from r, which holds size bytes.
func NewArchive(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("reading pack directory: %w", err)
	}
	return newArchive(zr, nil)
}

func newArchive(zr *zip.Reader, closer io.Closer) (*Archive, error) {
	a := &Archive{zr: zr, closer: closer, files: make(map[string]*Entry)}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := f.Name
		if f.NonUTF8 {
			decoded, err := encoding.CP949ToUTF8([]byte(f.Name))
			if err != nil {
				return nil, fmt.Errorf("decoding entry name %q: %w", f.Name, err)
			}
			name = decoded
		}
		a.files[encoding.NormalizePath(name)] = &Entry{
			Name:             name,
			CompressedSize:   f.CompressedSize64,
			UncompressedSize: f.UncompressedSize64,
			Method:           f.Method,
			file:             f,
		}
	}
	return a, nil
}

// Close releases the underlying file, if the pack was opened from disk.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// List returns the normalized path of every file, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.files))
	for path := range a.files {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// Glob returns the sorted paths ending in suffix (compared case-insensitively).
func (a *Archive) Glob(suffix string) []string {
	suffix = strings.ToLower(suffix)
	var result []string
	for _, path := range a.List() {
		if strings.HasSuffix(path, suffix) {
			result = append(result, path)
		}
	}
	return result
}

// Contains checks if a file exists.
func (a *Archive) Contains(path string) bool {
	_, ok := a.files[encoding.NormalizePath(path)]
	return ok
}

// Stat returns the entry for a path.
func (a *Archive) Stat(path string) (*Entry, error) {
	e, ok := a.files[encoding.NormalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return e, nil
}

// Read reads a whole file from the pack.
func (a *Archive) Read(path string) ([]byte, error) {
	e, err := a.Stat(path)
	if err != nil {
		return nil, err
	}
	rc, err := e.file.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Open implements fs.FS with the pack's case-insensitive lookup, so an
// Archive can be handed to anything reading through io/fs.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if e, ok := a.files[encoding.NormalizePath(name)]; ok {
		rc, err := e.file.Open()
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &file{ReadCloser: rc, info: e.file.FileInfo()}, nil
	}
	// directories and anything else the zip reader resolves itself
	f, err := a.zr.Open(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return f, nil
}

type file struct {
	io.ReadCloser
	info fs.FileInfo
}

func (f *file) Stat() (fs.FileInfo, error) { return f.info, nil }
