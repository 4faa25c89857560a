package sweep

import (
	"fmt"
	"strings"

	"vaspsweep/internal/vasp"
)

type settingsTarget struct{}

func (settingsTarget) String() string { return "settings" }

func (settingsTarget) apply(in *vasp.Input, param string, v any, _ vasp.MeshStyle) error {
	in.Settings.Set(param, v)
	return nil
}

func (settingsTarget) fragment(param string, v any) string {
	return strings.ToUpper(param) + "_" + formatCoord(v)
}

type structureTarget struct{}

func (structureTarget) String() string { return "structure" }

func (structureTarget) apply(in *vasp.Input, param string, v any, _ vasp.MeshStyle) error {
	f, ok := toFloat(v)
	switch strings.ToLower(param) {
	case ParamLattice:
		if !ok {
			return fmt.Errorf("%w: lattice scale %v is not a number", ErrInvalidAxis, v)
		}
		s, err := in.Structure.WithScale(f)
		if err != nil {
			return err
		}
		in.Structure = s
		return nil
	case ParamVolume:
		if !ok {
			return fmt.Errorf("%w: volume factor %v is not a number", ErrInvalidAxis, v)
		}
		return in.Structure.ScaleVolume(f)
	}
	return fmt.Errorf("%w: loop over structure parameter %q not implemented", ErrUnsupportedParameter, param)
}

func (structureTarget) fragment(param string, v any) string {
	return strings.ToLower(param) + "_" + formatCoord(v)
}

type meshTarget struct{}

func (meshTarget) String() string { return "mesh" }

func (meshTarget) apply(in *vasp.Input, _ string, v any, style vasp.MeshStyle) error {
	div, ok := v.([3]int)
	if !ok {
		return fmt.Errorf("%w: mesh coordinate %v is not a 3-vector", ErrInvalidAxis, v)
	}
	in.Mesh = vasp.NewMesh(style, div)
	return nil
}

func (meshTarget) fragment(_ string, v any) string {
	div, _ := v.([3]int)
	return fmt.Sprintf("K%d_%d_%d", div[0], div[1], div[2])
}

// formatCoord renders numbers with two decimals. Vectors and whitespace
// separated strings are joined with "_".
func formatCoord(v any) string {
	if f, ok := toFloat(v); ok {
		return fmt.Sprintf("%.2f", f)
	}
	switch x := v.(type) {
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatCoord(e)
		}
		return strings.Join(parts, "_")
	case bool:
		return vasp.FormatValue(x)
	}
	return strings.Join(strings.Fields(fmt.Sprint(v)), "_")
}

// unsafeNameChars may not appear in a bundle name: it becomes a directory
// and an unquoted word in run scripts.
const unsafeNameChars = "/\\ \t\n*?[]{}()<>|&;$`'\"!~#"

func checkName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if i := strings.IndexAny(name, unsafeNameChars); i >= 0 {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, name[i])
	}
	return nil
}
