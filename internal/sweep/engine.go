// Package sweep expands declared parameter axes over a baseline calculation
// input into deterministically named variants and checks them for
// cross-artifact consistency.
package sweep

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"vaspsweep/internal/vasp"
)

// Point holds one coordinate per axis, in axis declaration order.
type Point []any

// Named is one expanded variant.
type Named struct {
	Name  string
	Point Point
	Input *vasp.Input
}

// Options control expansion.
type Options struct {
	// BaseName names the single variant produced when there are no axes.
	BaseName string
	// MeshStyle is used for every mesh generated by a mesh axis.
	MeshStyle vasp.MeshStyle
	// Overrides are merged into the baseline settings before expansion.
	Overrides *vasp.Settings
}

// Expand returns one variant per point of the Cartesian product of the axes'
// values. The first axis varies slowest. Every variant is an independent deep
// copy of baseline; baseline itself is not modified.
func Expand(baseline *vasp.Input, axes []Axis, opts Options, log *zap.Logger) ([]Named, error) {
	if err := checkAxes(axes); err != nil {
		return nil, err
	}

	base := baseline.Clone()
	if base.Settings == nil {
		base.Settings = vasp.NewSettings()
	}
	base.Settings.Update(opts.Overrides)

	if len(axes) == 0 {
		if opts.BaseName == "" {
			return nil, fmt.Errorf("%w: no axes and no base name", ErrInvalidAxis)
		}
		if err := checkName(opts.BaseName); err != nil {
			return nil, err
		}
		return []Named{{Name: opts.BaseName, Input: base}}, nil
	}

	values := make([][]any, len(axes))
	for i, a := range axes {
		v, err := a.Expand()
		if err != nil {
			return nil, err
		}
		values[i] = v
		if a.Target == TargetMesh {
			log.Info(fmt.Sprintf("looping over KPOINTS with c/a=%.2f", aspect(a)))
		}
		log.Info(fmt.Sprintf("looping on %s: %v", strings.ToUpper(a.Parameter), v))
	}
	for _, a := range axes {
		if a.Target == TargetMesh {
			log.Info("KPOINTS style: " + opts.MeshStyle.String())
			break
		}
	}

	var out []Named
	seen := make(map[string]Point)
	idx := make([]int, len(axes))
	for {
		p := make(Point, len(axes))
		for i := range axes {
			p[i] = values[i][idx[i]]
		}
		in, err := apply(base, axes, p, opts.MeshStyle)
		if err != nil {
			return nil, err
		}
		name := Name(axes, p)
		if err := checkName(name); err != nil {
			return nil, err
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q from points %v and %v", ErrDuplicateName, name, prev, p)
		}
		seen[name] = p
		out = append(out, Named{Name: name, Point: p, Input: in})

		// Odometer step, last axis fastest.
		k := len(idx) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(values[k]) {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			break
		}
	}
	return out, nil
}

// Name formats the variant name for point p over axes: one fragment per axis
// joined by "-".
func Name(axes []Axis, p Point) string {
	parts := make([]string, len(axes))
	for i, a := range axes {
		parts[i] = a.Target.fragment(a.Parameter, p[i])
	}
	return strings.Join(parts, "-")
}

func apply(base *vasp.Input, axes []Axis, p Point, style vasp.MeshStyle) (*vasp.Input, error) {
	in := base.Clone()
	for i, a := range axes {
		if err := a.Target.apply(in, a.Parameter, p[i], style); err != nil {
			return nil, fmt.Errorf("apply %s = %v: %w", a, p[i], err)
		}
	}
	return in, nil
}

// checkAxes rejects declarations whose mutations would overwrite each other.
func checkAxes(axes []Axis) error {
	seen := make(map[string]bool, len(axes))
	structures := 0
	for _, a := range axes {
		if a.Target == nil {
			return fmt.Errorf("%w: %s has no target", ErrInvalidAxis, a.Parameter)
		}
		key := a.Target.String() + ":" + strings.ToUpper(a.Parameter)
		if a.Target == TargetMesh {
			key = a.Target.String()
		}
		if seen[key] {
			return fmt.Errorf("%w: %s declared twice", ErrConflictingAxes, a)
		}
		seen[key] = true
		if a.Target == TargetStructure {
			structures++
		}
	}
	if structures > 1 {
		return fmt.Errorf("%w: at most one structure axis per run, got %d", ErrConflictingAxes, structures)
	}
	return nil
}

func aspect(a Axis) float64 {
	if a.AspectRatio == 0 {
		return 1
	}
	return a.AspectRatio
}
