// Package archive collects the files a run would write into a single txtar
// archive, for dry runs.
package archive

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/tools/txtar"
)

// Archive accumulates files keyed by their path relative to a base directory.
type Archive struct {
	base  string
	files map[string][]byte
}

// New returns an empty archive whose paths are relative to base.
func New(base string) *Archive {
	return &Archive{base: base, files: make(map[string][]byte)}
}

// Add records data at path. Paths outside base are kept absolute.
func (a *Archive) Add(path string, data []byte) {
	if rel, err := filepath.Rel(a.base, path); err == nil && !strings.HasPrefix(rel, "..") {
		path = rel
	}
	a.files[filepath.ToSlash(path)] = data
}

// AddDir records every file of a bundle directory.
func (a *Archive) AddDir(dir string, files map[string][]byte) {
	for name, data := range files {
		a.Add(filepath.Join(dir, name), data)
	}
}

// Len returns the number of files.
func (a *Archive) Len() int { return len(a.files) }

// Format renders the archive with files in path order. comment heads the
// archive.
func (a *Archive) Format(comment string) []byte {
	names := make([]string, 0, len(a.files))
	for n := range a.files {
		names = append(names, n)
	}
	slices.Sort(names)

	ar := &txtar.Archive{Comment: []byte(comment)}
	for _, n := range names {
		data := a.files[n]
		if len(data) > 0 && data[len(data)-1] != '\n' {
			data = append(slices.Clip(data), '\n')
		}
		ar.Files = append(ar.Files, txtar.File{Name: n, Data: data})
	}
	return txtar.Format(ar)
}

// Parse reads an archive produced by Format back into path -> contents.
func Parse(data []byte) (map[string][]byte, error) {
	ar := txtar.Parse(data)
	out := make(map[string][]byte, len(ar.Files))
	for _, f := range ar.Files {
		if _, dup := out[f.Name]; dup {
			return nil, fmt.Errorf("archive: duplicate file %s", f.Name)
		}
		out[f.Name] = f.Data
	}
	return out, nil
}
