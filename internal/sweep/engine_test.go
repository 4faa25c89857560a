package sweep_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"vaspsweep/internal/sweep"
	"vaspsweep/internal/vasp"
)

const feoPoscar = `FeO rocksalt
1.0
  4.3 0.0 0.0
  0.0 4.3 0.0
  0.0 0.0 4.3
  Fe O
  1 1
Direct
  0.0 0.0 0.0
  0.5 0.5 0.5
`

func baseline(t *testing.T) *vasp.Input {
	t.Helper()
	s, err := vasp.ParsePoscar(feoPoscar)
	require.NoError(t, err)
	settings, err := vasp.ParseIncar("ENCUT = 520\nISMEAR = 0\n")
	require.NoError(t, err)
	return &vasp.Input{
		Structure: s,
		Settings:  settings,
		Mesh:      vasp.NewMesh(vasp.MonkhorstPack, [3]int{4, 4, 4}),
		Pseudo:    vasp.NewPseudoSet("PBE", []string{"Fe_pv", "O"}),
	}
}

func names(bundles []sweep.Named) []string {
	out := make([]string, len(bundles))
	for i, b := range bundles {
		out[i] = b.Name
	}
	return out
}

func encut(values ...any) sweep.Axis {
	return sweep.Axis{Target: sweep.TargetSettings, Parameter: "encut", Mode: sweep.ModeList, Values: values}
}

func TestExpandNoAxes(t *testing.T) {
	overrides := vasp.NewSettings()
	overrides.Set("KPAR", 8)
	in := baseline(t)

	got, err := sweep.Expand(in, nil, sweep.Options{BaseName: "run-feo", Overrides: overrides}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "run-feo", got[0].Name)
	kpar, ok := got[0].Input.Settings.Get("KPAR")
	assert.True(t, ok)
	assert.Equal(t, 8, kpar)

	_, ok = in.Settings.Get("KPAR")
	assert.False(t, ok, "baseline must not be modified")
}

func TestExpandSettingsAxis(t *testing.T) {
	got, err := sweep.Expand(baseline(t), []sweep.Axis{encut(300, 400)}, sweep.Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"ENCUT_300.00", "ENCUT_400.00"}, names(got))

	for i, want := range []int{300, 400} {
		v, _ := got[i].Input.Settings.Get("ENCUT")
		assert.Equal(t, want, v)
		assert.Equal(t, [3]int{4, 4, 4}, got[i].Input.Mesh.Divisions)
		assert.Equal(t, []string{"Fe", "O"}, got[i].Input.Structure.SiteSymbols())
	}
}

func TestExpandProductOrder(t *testing.T) {
	axes := []sweep.Axis{
		encut(300, 400),
		{Target: sweep.TargetMesh, Parameter: "kpoints", Mode: sweep.ModeList, Values: []any{2, 4, 6}},
	}
	got, err := sweep.Expand(baseline(t), axes, sweep.Options{MeshStyle: vasp.Gamma}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ENCUT_300.00-K2_2_2",
		"ENCUT_300.00-K4_4_4",
		"ENCUT_300.00-K6_6_6",
		"ENCUT_400.00-K2_2_2",
		"ENCUT_400.00-K4_4_4",
		"ENCUT_400.00-K6_6_6",
	}, names(got))
	assert.Equal(t, vasp.Gamma, got[0].Input.Mesh.Style)
	assert.Equal(t, sweep.Point{300, [3]int{2, 2, 2}}, got[0].Point)
}

func TestExpandIsDeterministic(t *testing.T) {
	axes := []sweep.Axis{
		{Target: sweep.TargetStructure, Parameter: "volume", Mode: sweep.ModeInterval, Values: []any{1, 2, 0.5}},
		encut(300, 400),
	}
	first, err := sweep.Expand(baseline(t), axes, sweep.Options{}, zap.NewNop())
	require.NoError(t, err)
	second, err := sweep.Expand(baseline(t), axes, sweep.Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, names(first), names(second))
	assert.Len(t, first, 4)
}

func TestExpandBundlesAreIndependent(t *testing.T) {
	in := baseline(t)
	got, err := sweep.Expand(in, []sweep.Axis{encut(300, 400)}, sweep.Options{}, zap.NewNop())
	require.NoError(t, err)

	got[0].Input.Settings.Set("ISMEAR", -5)
	got[0].Input.Structure.Species[0] = "Co"
	got[0].Input.Mesh.Divisions[0] = 1

	v, _ := got[1].Input.Settings.Get("ISMEAR")
	assert.Equal(t, 0, v)
	assert.Equal(t, "Fe", got[1].Input.Structure.Species[0])
	assert.Equal(t, 4, got[1].Input.Mesh.Divisions[0])
	assert.Equal(t, "Fe", in.Structure.Species[0])
	v, _ = in.Settings.Get("ENCUT")
	assert.Equal(t, 520, v)
}

func TestExpandLatticeScale(t *testing.T) {
	axes := []sweep.Axis{{Target: sweep.TargetStructure, Parameter: "a", Mode: sweep.ModeList, Values: []any{0.98, 1.02}}}
	got, err := sweep.Expand(baseline(t), axes, sweep.Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"a_0.98", "a_1.02"}, names(got))
	assert.InDelta(t, 0.98, got[0].Input.Structure.Scale, 1e-12)
	assert.Contains(t, got[1].Input.Structure.String(), "\n1.02\n")
}

func TestExpandVolumeFactor(t *testing.T) {
	in := baseline(t)
	axes := []sweep.Axis{{Target: sweep.TargetStructure, Parameter: "Volume", Mode: sweep.ModeList, Values: []any{2.0}}}
	got, err := sweep.Expand(in, axes, sweep.Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "volume_2.00", got[0].Name)
	assert.InDelta(t, 2*in.Structure.Volume(), got[0].Input.Structure.Volume(), 1e-9)
	assert.InDelta(t, 4.3*4.3*4.3, in.Structure.Volume(), 1e-9)
}

func TestExpandUnsupportedStructureParameter(t *testing.T) {
	axes := []sweep.Axis{{Target: sweep.TargetStructure, Parameter: "c", Mode: sweep.ModeList, Values: []any{1.0}}}
	_, err := sweep.Expand(baseline(t), axes, sweep.Options{}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sweep.ErrUnsupportedParameter), "got %v", err)
}

func TestExpandConflicts(t *testing.T) {
	tests := []struct {
		name string
		axes []sweep.Axis
	}{
		{"same settings key", []sweep.Axis{encut(300), {Target: sweep.TargetSettings, Parameter: "ENCUT", Values: []any{400}}}},
		{"two structure axes", []sweep.Axis{
			{Target: sweep.TargetStructure, Parameter: "a", Values: []any{1.0}},
			{Target: sweep.TargetStructure, Parameter: "volume", Values: []any{1.0}},
		}},
		{"two mesh axes", []sweep.Axis{
			{Target: sweep.TargetMesh, Parameter: "kpoints", Values: []any{2}},
			{Target: sweep.TargetMesh, Parameter: "kmesh", Values: []any{4}},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sweep.Expand(baseline(t), tc.axes, sweep.Options{}, zap.NewNop())
			require.Error(t, err)
			assert.True(t, errors.Is(err, sweep.ErrConflictingAxes), "got %v", err)
		})
	}
}

func TestExpandDuplicateName(t *testing.T) {
	_, err := sweep.Expand(baseline(t), []sweep.Axis{encut(1.001, 1.004)}, sweep.Options{}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sweep.ErrDuplicateName), "got %v", err)
}

func TestExpandLogsAxes(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	axes := []sweep.Axis{
		encut(300, 400),
		{Target: sweep.TargetMesh, Parameter: "kpoints", Mode: sweep.ModeInterval, Values: []any{2, 6, 2}, AspectRatio: 1.6},
	}
	_, err := sweep.Expand(baseline(t), axes, sweep.Options{MeshStyle: vasp.Gamma}, zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("KPOINTS style: Gamma").Len())
	assert.Equal(t, 1, logs.FilterMessage("looping over KPOINTS with c/a=1.60").Len())
	looping := logs.FilterMessage("looping on ENCUT: [300 400]")
	require.Equal(t, 1, looping.Len())
	assert.Empty(t, looping.All()[0].Context, "values are in the message only")
}

func TestNameFormatting(t *testing.T) {
	axes := []sweep.Axis{
		{Target: sweep.TargetSettings, Parameter: "sigma"},
		{Target: sweep.TargetStructure, Parameter: "A"},
		{Target: sweep.TargetMesh, Parameter: "kpoints"},
		{Target: sweep.TargetSettings, Parameter: "algo"},
	}
	got := sweep.Name(axes, sweep.Point{0.05, 1.0, [3]int{6, 6, 4}, "Fast"})
	assert.Equal(t, "SIGMA_0.05-a_1.00-K6_6_4-ALGO_Fast", got)
}

func TestNameJoinsVectorsAndWords(t *testing.T) {
	axes := []sweep.Axis{
		{Target: sweep.TargetSettings, Parameter: "magmom"},
		{Target: sweep.TargetSettings, Parameter: "lorbit"},
		{Target: sweep.TargetSettings, Parameter: "lwave"},
	}
	got := sweep.Name(axes, sweep.Point{[]any{5, -5}, "5 5", false})
	assert.Equal(t, "MAGMOM_5.00_-5.00-LORBIT_5_5-LWAVE_.FALSE.", got)
}

func TestExpandVectorSettingsAxis(t *testing.T) {
	axes := []sweep.Axis{{
		Target:    sweep.TargetSettings,
		Parameter: "magmom",
		Mode:      sweep.ModeList,
		Values:    []any{[]any{5, 5}, "5 -5"},
	}}
	out, err := sweep.Expand(baseline(t), axes, sweep.Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"MAGMOM_5.00_5.00", "MAGMOM_5_-5"}, names(out))
}

func TestExpandRejectsUnsafeNames(t *testing.T) {
	for _, v := range []any{"a/b", "*", "$(rm)", "x;y"} {
		axes := []sweep.Axis{{Target: sweep.TargetSettings, Parameter: "system", Mode: sweep.ModeList, Values: []any{v}}}
		_, err := sweep.Expand(baseline(t), axes, sweep.Options{}, zap.NewNop())
		assert.ErrorIs(t, err, sweep.ErrInvalidName, "value %q", v)
	}

	_, err := sweep.Expand(baseline(t), nil, sweep.Options{BaseName: "run dir"}, zap.NewNop())
	assert.ErrorIs(t, err, sweep.ErrInvalidName)
}
