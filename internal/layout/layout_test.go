package layout_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"vaspsweep/internal/layout"
	"vaspsweep/internal/sweep"
	"vaspsweep/internal/vasp"
)

const poscar = `Si2
5.43
  0.0 0.5 0.5
  0.5 0.0 0.5
  0.5 0.5 0.0
  Si
  2
Direct
  0.00 0.00 0.00
  0.25 0.25 0.25
`

func bundle(t *testing.T, name string, encut int) sweep.Named {
	t.Helper()
	s, err := vasp.ParsePoscar(poscar)
	if err != nil {
		t.Fatalf("ParsePoscar: %v", err)
	}
	settings := vasp.NewSettings()
	settings.Set("ENCUT", encut)
	return sweep.Named{Name: name, Input: &vasp.Input{
		Structure: s,
		Settings:  settings,
		Mesh:      vasp.NewMesh(vasp.Gamma, [3]int{4, 4, 4}),
		Pseudo:    vasp.NewPseudoSet("PBE", []string{"Si"}),
	}}
}

func TestWorkDir(t *testing.T) {
	tests := []struct {
		root layout.Root
		want string
	}{
		{layout.Root{Base: "/w", Prefix: []string{"run"}}, "/w/run"},
		{layout.Root{Base: "/w", Prefix: []string{"si", "bulk"}, Suffix: []string{"conv"}, Subdir: []string{"pbe", ""}}, "/w/si-bulk/conv/pbe"},
		{layout.Root{Base: "/w", Prefix: []string{"run"}, Suffix: []string{""}}, "/w/run"},
	}
	for _, tc := range tests {
		if got := tc.root.WorkDir(); got != tc.want {
			t.Errorf("WorkDir(%+v) = %q, want %q", tc.root, got, tc.want)
		}
	}

	dests := layout.Root{Base: "/w", Prefix: []string{"run"}}.Destinations([]string{"a", "b"})
	if len(dests) != 2 || dests[1].Path != "/w/run/b" || dests[1].Name != "b" {
		t.Errorf("Destinations = %+v", dests)
	}
}

func TestMaterializeWritesAll(t *testing.T) {
	root := layout.Root{Base: t.TempDir(), Prefix: []string{"run"}}
	bundles := []sweep.Named{bundle(t, "ENCUT_300.00", 300), bundle(t, "ENCUT_400.00", 400)}
	dests := root.Destinations([]string{"ENCUT_300.00", "ENCUT_400.00"})

	res, err := layout.Materialize(context.Background(), bundles, dests, layout.Ask, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if res.Written != 2 || res.Declined {
		t.Fatalf("result = %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(dests[1].Path, vasp.IncarFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ENCUT = 400\n" {
		t.Errorf("INCAR = %q", data)
	}
	for _, f := range []string{vasp.PoscarFile, vasp.KpointsFile, vasp.PotcarSpecFile} {
		if _, err := os.Stat(filepath.Join(dests[0].Path, f)); err != nil {
			t.Errorf("missing %s: %v", f, err)
		}
	}
}

func TestMaterializeDeclineStopsEverything(t *testing.T) {
	root := layout.Root{Base: t.TempDir(), Prefix: []string{"run"}}
	bundles := []sweep.Named{bundle(t, "a", 300), bundle(t, "b", 400)}
	dests := root.Destinations([]string{"a", "b"})
	if err := os.MkdirAll(dests[0].Path, 0o755); err != nil {
		t.Fatal(err)
	}

	asked := 0
	decline := layout.ConfirmFunc(func(context.Context, layout.Destination, string) (bool, error) {
		asked++
		return false, nil
	})
	res, err := layout.Materialize(context.Background(), bundles, dests, layout.Ask, decline, zap.NewNop())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if res.Written != 0 || !res.Declined || res.Stopped != dests[0].Path {
		t.Errorf("result = %+v", res)
	}
	if asked != 1 {
		t.Errorf("asked %d times, want 1", asked)
	}
	if _, err := os.Stat(dests[1].Path); !os.IsNotExist(err) {
		t.Error("no bundle may be written after a decline")
	}
}

func TestMaterializeConfirmerError(t *testing.T) {
	root := layout.Root{Base: t.TempDir(), Prefix: []string{"run"}}
	bundles := []sweep.Named{bundle(t, "a", 300), bundle(t, "b", 400)}
	dests := root.Destinations([]string{"a", "b"})
	if err := os.MkdirAll(dests[1].Path, 0o755); err != nil {
		t.Fatal(err)
	}
	timeout := layout.ConfirmFunc(func(context.Context, layout.Destination, string) (bool, error) {
		return false, context.DeadlineExceeded
	})
	res, err := layout.Materialize(context.Background(), bundles, dests, layout.Ask, timeout, zap.NewNop())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if res.Written != 1 || !res.Declined {
		t.Errorf("result = %+v", res)
	}
}

func TestMaterializePolicies(t *testing.T) {
	for _, tc := range []struct {
		policy  layout.Policy
		written int
	}{
		{layout.Always, 1},
		{layout.Never, 0},
	} {
		t.Run(tc.policy.String(), func(t *testing.T) {
			root := layout.Root{Base: t.TempDir(), Prefix: []string{"run"}}
			dests := root.Destinations([]string{"a"})
			if err := os.MkdirAll(dests[0].Path, 0o755); err != nil {
				t.Fatal(err)
			}
			fail := layout.ConfirmFunc(func(context.Context, layout.Destination, string) (bool, error) {
				t.Error("confirmer must not be called")
				return true, nil
			})
			res, err := layout.Materialize(context.Background(), []sweep.Named{bundle(t, "a", 300)}, dests, tc.policy, fail, zap.NewNop())
			if err != nil {
				t.Fatalf("Materialize: %v", err)
			}
			if res.Written != tc.written {
				t.Errorf("written = %d, want %d", res.Written, tc.written)
			}
		})
	}
}

func TestMaterializeMismatch(t *testing.T) {
	dests := []layout.Destination{{Name: "other", Path: t.TempDir()}}
	_, err := layout.Materialize(context.Background(), []sweep.Named{bundle(t, "a", 300)}, dests, layout.Always, nil, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for mismatched destination")
	}
}

func TestPreview(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, vasp.IncarFile), []byte("ENCUT = 300\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	files, err := bundle(t, "a", 400).Input.Files()
	if err != nil {
		t.Fatal(err)
	}
	got := layout.Preview(dir, files)
	for _, want := range []string{"--- a/INCAR", "+++ b/INCAR", "-ENCUT = 300", "+ENCUT = 400"} {
		if !strings.Contains(got, want) {
			t.Errorf("preview missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "KPOINTS") {
		t.Error("absent files must not be diffed")
	}
}

func TestPreviewPassedToConfirmer(t *testing.T) {
	root := layout.Root{Base: t.TempDir(), Prefix: []string{"run"}}
	dests := root.Destinations([]string{"a"})
	if err := os.MkdirAll(dests[0].Path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dests[0].Path, vasp.IncarFile), []byte("ENCUT = 250\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var seen string
	accept := layout.ConfirmFunc(func(_ context.Context, _ layout.Destination, preview string) (bool, error) {
		seen = preview
		return true, nil
	})
	if _, err := layout.Materialize(context.Background(), []sweep.Named{bundle(t, "a", 300)}, dests, layout.Ask, accept, zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(seen, "+ENCUT = 300") {
		t.Errorf("preview = %q", seen)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	wd := t.TempDir()
	for _, n := range []string{"old", "a"} {
		if err := os.MkdirAll(filepath.Join(wd, n), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := layout.WriteIndex(wd, layout.Index{Prefix: "run", Bundles: []string{"old", "gone"}}); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}
	if err := layout.WriteIndex(wd, layout.Index{RunID: "r2", Prefix: "run", Axes: []string{"settings:ENCUT"}, Bundles: []string{"a"}}); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}
	idx, err := layout.ReadIndex(wd)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if idx.RunID != "r2" || strings.Join(idx.Bundles, ",") != "a,old" {
		t.Errorf("index = %+v", idx)
	}

	missing, err := layout.ReadIndex(t.TempDir())
	if err != nil || missing != nil {
		t.Errorf("ReadIndex on empty dir = %v, %v", missing, err)
	}
}

func TestIndexRender(t *testing.T) {
	data, err := layout.Index{Prefix: "run", Bundles: []string{"K2_2_2"}}.Render()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "---\n") || !strings.Contains(string(data), "- [K2_2_2](K2_2_2/)") {
		t.Errorf("render = %s", data)
	}
}
