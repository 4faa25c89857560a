// Package layout places expanded bundles on disk.
//
// Directory layout:
//
//	<base>/<prefix>/<suffix>/<subdir>/     # work directory
//	    index.md                          # run summary, YAML frontmatter
//	    run.<name>                        # execution script per bundle
//	    <name>/                           # one bundle
//	        INCAR POSCAR KPOINTS POTCAR
package layout

import (
	"path/filepath"
	"strings"
)

// Root locates the work directory of a run. Each list is joined with "-";
// empty lists are skipped.
type Root struct {
	Base   string
	Prefix []string
	Suffix []string
	Subdir []string
}

// Destination is the directory assigned to one bundle.
type Destination struct {
	Name string
	Path string
}

// WorkDir returns the directory that holds the bundle directories.
func (r Root) WorkDir() string {
	parts := []string{r.Base}
	for _, l := range [][]string{r.Prefix, r.Suffix, r.Subdir} {
		if s := join(l); s != "" {
			parts = append(parts, s)
		}
	}
	return filepath.Join(parts...)
}

// Destinations returns one destination per name, in order.
func (r Root) Destinations(names []string) []Destination {
	wd := r.WorkDir()
	out := make([]Destination, len(names))
	for i, n := range names {
		out[i] = Destination{Name: n, Path: filepath.Join(wd, n)}
	}
	return out
}

func join(parts []string) string {
	var keep []string
	for _, p := range parts {
		if p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, "-")
}
