package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"vaspsweep/internal/frontmatter"
)

// IndexFile is the run summary kept in the work directory.
const IndexFile = "index.md"

// Index summarizes the bundles in a work directory.
type Index struct {
	RunID    string    `yaml:"run_id,omitempty"`
	Updated  time.Time `yaml:"updated"`
	Prefix   string    `yaml:"prefix"`
	Executor string    `yaml:"executor,omitempty"`
	Axes     []string  `yaml:"axes,omitempty"`
	Bundles  []string  `yaml:"bundles"`
}

// Render returns the index as markdown with YAML frontmatter.
func (idx Index) Render() ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", idx.Prefix)
	if len(idx.Axes) > 0 {
		fmt.Fprintf(&b, "Swept: %s\n\n", strings.Join(idx.Axes, ", "))
	}
	for _, n := range idx.Bundles {
		fmt.Fprintf(&b, "- [%s](%s/)\n", n, n)
	}
	return frontmatter.Encode(idx, b.String())
}

// ReadIndex loads the index in workdir. A missing index is not an error.
func ReadIndex(workdir string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(workdir, IndexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	var idx Index
	if _, err := frontmatter.Decode(data, &idx); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return &idx, nil
}

// WriteIndex writes idx into workdir. Bundles listed by an earlier index that
// still exist on disk are kept.
func WriteIndex(workdir string, idx Index) error {
	prev, err := ReadIndex(workdir)
	if err != nil {
		return err
	}
	if prev != nil {
		for _, n := range prev.Bundles {
			if slices.Contains(idx.Bundles, n) {
				continue
			}
			if fi, err := os.Stat(filepath.Join(workdir, n)); err == nil && fi.IsDir() {
				idx.Bundles = append(idx.Bundles, n)
			}
		}
	}
	data, err := idx.Render()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", workdir, err)
	}
	if err := os.WriteFile(filepath.Join(workdir, IndexFile), data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}
