package sweep

import (
	"fmt"
	"math"
	"strings"

	"vaspsweep/internal/vasp"
)

// Target is the artifact an axis mutates. The set of targets is closed: every
// variant implements the same unexported methods, so a new target does not
// compile until it can be applied and named.
type Target interface {
	fmt.Stringer
	apply(in *vasp.Input, param string, v any, style vasp.MeshStyle) error
	fragment(param string, v any) string
}

// The three targets.
var (
	TargetSettings  Target = settingsTarget{}
	TargetStructure Target = structureTarget{}
	TargetMesh      Target = meshTarget{}
)

// ParseTarget maps configuration spellings to a Target.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "incar", "settings":
		return TargetSettings, nil
	case "poscar", "structure":
		return TargetStructure, nil
	case "kpoints", "mesh":
		return TargetMesh, nil
	}
	return nil, fmt.Errorf("%w: unknown target %q", ErrInvalidAxis, s)
}

// Mode selects how an axis' raw values expand.
type Mode int

const (
	// ModeList uses the raw values verbatim.
	ModeList Mode = iota
	// ModeInterval expands [start, stop, step) as a half-open progression.
	ModeInterval
)

func (m Mode) String() string {
	if m == ModeInterval {
		return "interval"
	}
	return "list"
}

// ParseMode accepts any spelling containing "list" or "interval".
func ParseMode(s string) (Mode, error) {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "list"):
		return ModeList, nil
	case strings.Contains(l, "interval"):
		return ModeInterval, nil
	}
	return 0, fmt.Errorf("%w: unknown interpolation %q", ErrInvalidAxis, s)
}

// Structure parameters.
const (
	ParamLattice = "a"
	ParamVolume  = "volume"
)

// Axis is one swept parameter dimension.
type Axis struct {
	Target    Target
	Parameter string
	Mode      Mode
	Values    []any

	// AspectRatio is c/a for mesh axes; the third mesh component is
	// round(v / AspectRatio). Zero means 1.
	AspectRatio float64
	// IncludeGamma prepends the (1,1,1) mesh when it is not already present.
	IncludeGamma bool
}

func (a Axis) String() string {
	return fmt.Sprintf("%s:%s", a.Target, a.Parameter)
}

// Expand returns the concrete coordinate values of the axis in order. Mesh
// coordinates are [3]int; other coordinates keep their configured type
// (interval coordinates are float64).
func (a Axis) Expand() ([]any, error) {
	if a.Target == nil {
		return nil, fmt.Errorf("%w: %s has no target", ErrInvalidAxis, a.Parameter)
	}
	var values []any
	switch a.Mode {
	case ModeList:
		values = append(values, a.Values...)
	case ModeInterval:
		nums, err := interval(a.Values)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a, err)
		}
		for _, n := range nums {
			values = append(values, n)
		}
	default:
		return nil, fmt.Errorf("%w: %s has unknown mode %d", ErrInvalidAxis, a, a.Mode)
	}

	if a.Target == TargetMesh {
		meshes, err := a.meshValues(values)
		if err != nil {
			return nil, err
		}
		values = meshes
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s expands to no values", ErrInvalidAxis, a)
	}
	return values, nil
}

func (a Axis) meshValues(values []any) ([]any, error) {
	ratio := a.AspectRatio
	if ratio == 0 {
		ratio = 1
	}
	if ratio < 0 {
		return nil, fmt.Errorf("%w: %s has negative aspect ratio", ErrInvalidAxis, a)
	}
	out := make([]any, 0, len(values)+1)
	for _, v := range values {
		m, err := toMesh(v, ratio)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAxis, a, err)
		}
		out = append(out, m)
	}
	if a.IncludeGamma {
		gamma := [3]int{1, 1, 1}
		present := false
		for _, v := range out {
			if v.([3]int) == gamma {
				present = true
				break
			}
		}
		if !present {
			out = append([]any{gamma}, out...)
		}
	}
	return out, nil
}

// toMesh turns a scalar v into (v, v, round(v/ratio)) and passes 3-vectors
// through. Components are clamped to at least 1.
func toMesh(v any, ratio float64) ([3]int, error) {
	var m [3]int
	switch x := v.(type) {
	case [3]int:
		m = x
	case []any:
		if len(x) != 3 {
			return m, fmt.Errorf("mesh vector needs 3 components, got %d", len(x))
		}
		for i, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return m, fmt.Errorf("mesh component %v is not a number", e)
			}
			m[i] = int(math.Round(f))
		}
	default:
		f, ok := toFloat(v)
		if !ok {
			return m, fmt.Errorf("mesh value %v is not a number", v)
		}
		n := int(math.Round(f))
		m = [3]int{n, n, int(math.Round(f / ratio))}
	}
	for i := range m {
		if m[i] < 1 {
			m[i] = 1
		}
	}
	return m, nil
}

// interval expands [start, stop, step) like numpy.arange: stop is excluded.
func interval(raw []any) ([]float64, error) {
	if len(raw) != 3 {
		return nil, fmt.Errorf("%w: interval needs [start, stop, step], got %d values", ErrInvalidAxis, len(raw))
	}
	var bounds [3]float64
	for i, r := range raw {
		f, ok := toFloat(r)
		if !ok {
			return nil, fmt.Errorf("%w: interval bound %v is not a number", ErrInvalidAxis, r)
		}
		bounds[i] = f
	}
	start, stop, step := bounds[0], bounds[1], bounds[2]
	if step <= 0 {
		return nil, fmt.Errorf("%w: interval step must be positive, got %g", ErrInvalidAxis, step)
	}
	n := int(math.Ceil((stop - start) / step))
	if n < 0 {
		n = 0
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
