// Package vasp models the four artifacts of a VASP calculation input and
// their canonical file forms.
//
//	INCAR     Settings   ordered key -> value mapping
//	POSCAR    Structure  lattice, species and sites
//	KPOINTS   Mesh       regular k-point mesh
//	POTCAR    PseudoSet  ordered pseudopotential selection
//
// Values are plain data: Clone returns deep copies and nothing is shared
// between an Input and its clones.
package vasp

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// File names written into a calculation directory.
const (
	IncarFile      = "INCAR"
	PoscarFile     = "POSCAR"
	KpointsFile    = "KPOINTS"
	PotcarFile     = "POTCAR"
	PotcarSpecFile = "POTCAR.spec"
)

// Input is one complete calculation input.
type Input struct {
	Structure *Structure
	Settings  *Settings
	Mesh      *Mesh
	Pseudo    *PseudoSet
}

// Clone returns a deep copy of in.
func (in *Input) Clone() *Input {
	c := &Input{}
	if in.Structure != nil {
		c.Structure = in.Structure.Clone()
	}
	if in.Settings != nil {
		c.Settings = in.Settings.Clone()
	}
	if in.Mesh != nil {
		c.Mesh = in.Mesh.Clone()
	}
	if in.Pseudo != nil {
		c.Pseudo = in.Pseudo.Clone()
	}
	return c
}

// Files renders the canonical file forms keyed by file name. When a full
// POTCAR cannot be assembled the POTCAR.spec form is emitted instead.
func (in *Input) Files() (map[string][]byte, error) {
	if in.Structure == nil || in.Settings == nil || in.Mesh == nil || in.Pseudo == nil {
		return nil, fmt.Errorf("vasp: incomplete input")
	}
	files := map[string][]byte{
		IncarFile:   []byte(in.Settings.String()),
		PoscarFile:  []byte(in.Structure.String()),
		KpointsFile: []byte(in.Mesh.String()),
	}
	potcar, ok, err := in.Pseudo.Assemble()
	if err != nil {
		return nil, err
	}
	if ok {
		files[PotcarFile] = []byte(potcar)
	} else {
		files[PotcarSpecFile] = []byte(in.Pseudo.Spec())
	}
	return files, nil
}

// Write renders the input into dir, which must exist. Files are written in
// sorted name order.
func (in *Input) Write(dir string) error {
	files, err := in.Files()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, files[name], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
