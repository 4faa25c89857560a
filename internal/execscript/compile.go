package execscript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vaspsweep/internal/layout"
)

// Compile renders one script per destination. Scripts are placed next to the
// bundle directories, in the work directory. The result keeps the order of
// dests.
func Compile(ctx context.Context, profile Profile, dests []layout.Destination, log *zap.Logger) ([]Script, error) {
	scripts := make([]Script, len(dests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, d := range dests {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s := profile.Render(d.Name, log)
			s.Path = filepath.Join(filepath.Dir(d.Path), ScriptName(d.Name))
			scripts[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compile scripts: %w", err)
	}
	return scripts, nil
}

// Write writes the scripts in order. Executable scripts gain execute
// permission for user, group and others.
func Write(scripts []Script) error {
	for _, s := range scripts {
		if err := os.WriteFile(s.Path, []byte(s.Text), 0o644); err != nil {
			return fmt.Errorf("write script: %w", err)
		}
		if !s.Executable {
			continue
		}
		fi, err := os.Stat(s.Path)
		if err != nil {
			return fmt.Errorf("stat script: %w", err)
		}
		if err := os.Chmod(s.Path, fi.Mode()|0o111); err != nil {
			return fmt.Errorf("chmod script: %w", err)
		}
	}
	return nil
}
