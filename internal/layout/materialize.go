package layout

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"vaspsweep/internal/sweep"
)

// Policy decides what happens when a destination already exists.
type Policy int

const (
	// Ask defers to the Confirmer.
	Ask Policy = iota
	// Always overwrites without asking.
	Always
	// Never treats every existing destination as declined.
	Never
)

func (p Policy) String() string {
	switch p {
	case Always:
		return "always"
	case Never:
		return "never"
	}
	return "ask"
}

// Confirmer decides whether an existing destination may be overwritten.
// preview is a unified diff of what would change.
type Confirmer interface {
	Confirm(ctx context.Context, dest Destination, preview string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, dest Destination, preview string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, dest Destination, preview string) (bool, error) {
	return f(ctx, dest, preview)
}

// Result reports how far materialization got. Declined is set when an
// overwrite was refused; Written then counts the bundles written before it.
type Result struct {
	Written  int
	Declined bool
	// Stopped is the destination whose overwrite was refused.
	Stopped string
}

// Materialize writes each bundle into its destination, in order. When a
// destination exists and the policy is not Always, the confirmer is asked; a
// refusal, or a confirmer error, stops the run before anything else is
// written. A refusal is not an error.
func Materialize(ctx context.Context, bundles []sweep.Named, dests []Destination, policy Policy, confirm Confirmer, log *zap.Logger) (Result, error) {
	var res Result
	if len(bundles) != len(dests) {
		return res, fmt.Errorf("materialize: %d bundles but %d destinations", len(bundles), len(dests))
	}
	for i, b := range bundles {
		dest := dests[i]
		if dest.Name != b.Name {
			return res, fmt.Errorf("materialize: destination %s does not match bundle %s", dest.Name, b.Name)
		}
		files, err := b.Input.Files()
		if err != nil {
			return res, fmt.Errorf("materialize %s: %w", b.Name, err)
		}

		if !proceed(ctx, dest, files, policy, confirm, log) {
			log.Info("stopping", zap.String("dir", dest.Path), zap.Int("written", res.Written))
			res.Declined = true
			res.Stopped = dest.Path
			return res, nil
		}

		if err := os.MkdirAll(dest.Path, 0o755); err != nil {
			return res, fmt.Errorf("create %s: %w", dest.Path, err)
		}
		if err := writeFiles(dest.Path, files); err != nil {
			return res, fmt.Errorf("materialize %s: %w", b.Name, err)
		}
		log.Info(dest.Path)
		res.Written++
	}
	if len(dests) > 0 {
		log.Info("parent directory: " + filepath.Dir(dests[len(dests)-1].Path))
	}
	return res, nil
}

func proceed(ctx context.Context, dest Destination, files map[string][]byte, policy Policy, confirm Confirmer, log *zap.Logger) bool {
	if _, err := os.Stat(dest.Path); err != nil {
		return true
	}
	switch policy {
	case Always:
		return true
	case Never:
		log.Warn(dest.Path+" exists", zap.Stringer("policy", policy))
		return false
	}
	if confirm == nil {
		log.Warn(dest.Path + " exists and no confirmation is possible")
		return false
	}
	ok, err := confirm.Confirm(ctx, dest, Preview(dest.Path, files))
	if err != nil {
		log.Warn("overwrite confirmation failed", zap.String("dir", dest.Path), zap.Error(err))
		return false
	}
	return ok
}

func writeFiles(dir string, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), files[n], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", n, err)
		}
	}
	return nil
}
