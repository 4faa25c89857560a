package vasp_test

import (
	"os"
	"path/filepath"
	"testing"

	"vaspsweep/internal/vasp"
)

func sampleInput(t *testing.T) *vasp.Input {
	t.Helper()
	settings, err := vasp.ParseIncar("ENCUT = 520\n")
	if err != nil {
		t.Fatal(err)
	}
	return &vasp.Input{
		Structure: mustPoscar(t, feoPoscar),
		Settings:  settings,
		Mesh:      vasp.NewMesh(vasp.MonkhorstPack, [3]int{4, 4, 4}),
		Pseudo:    vasp.NewPseudoSet("PBE", []string{"Fe_pv", "O"}),
	}
}

func TestInputWrite(t *testing.T) {
	dir := t.TempDir()
	in := sampleInput(t)
	if err := in.Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, name := range []string{vasp.IncarFile, vasp.PoscarFile, vasp.KpointsFile, vasp.PotcarSpecFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, vasp.PotcarFile)); !os.IsNotExist(err) {
		t.Error("POTCAR must not be written without datasets")
	}
	data, _ := os.ReadFile(filepath.Join(dir, vasp.IncarFile))
	if string(data) != "ENCUT = 520\n" {
		t.Errorf("INCAR = %q", data)
	}
}

func TestInputFilesIncomplete(t *testing.T) {
	in := sampleInput(t)
	in.Mesh = nil
	if _, err := in.Files(); err == nil {
		t.Fatal("expected error for incomplete input")
	}
}

func TestInputCloneIsIndependent(t *testing.T) {
	in := sampleInput(t)
	c := in.Clone()
	c.Settings.Set("ENCUT", 300)
	c.Mesh.Divisions[0] = 9
	c.Pseudo.Entries[0] = vasp.ParseSymbol("Fe")
	c.Structure.Species[0] = "Co"

	if v, _ := in.Settings.Get("ENCUT"); v != 520 {
		t.Errorf("baseline ENCUT = %v", v)
	}
	if in.Mesh.Divisions[0] != 4 {
		t.Error("baseline mesh mutated")
	}
	if in.Pseudo.Entries[0].Symbol() != "Fe_pv" {
		t.Error("baseline pseudopotentials mutated")
	}
	if in.Structure.Species[0] != "Fe" {
		t.Error("baseline structure mutated")
	}
}
