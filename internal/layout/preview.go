package layout

import (
	"os"
	"path/filepath"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"

	"vaspsweep/internal/vasp"
)

// previewFiles are the artifacts shown when asking to overwrite a bundle.
var previewFiles = []string{vasp.IncarFile, vasp.KpointsFile, vasp.PoscarFile}

// Preview returns a unified diff of the artifacts already in dir against the
// ones about to be written. Files that are unchanged or absent on disk are
// skipped; an empty result means nothing shown would change.
func Preview(dir string, files map[string][]byte) string {
	var b strings.Builder
	for _, name := range previewFiles {
		next, ok := files[name]
		if !ok {
			continue
		}
		prev, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil || string(prev) == string(next) {
			continue
		}
		u := difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(prev)),
			B:        difflib.SplitLines(string(next)),
			FromFile: "a/" + name,
			ToFile:   "b/" + name,
			Context:  2,
		}
		s, err := difflib.GetUnifiedDiffString(u)
		if err != nil {
			continue
		}
		b.WriteString(s)
	}
	return b.String()
}
