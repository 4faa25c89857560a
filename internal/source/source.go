// Package source locates and loads the baseline calculation input.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"vaspsweep/internal/vasp"
)

// ErrMissingInput reports that a required input file could not be found.
var ErrMissingInput = errors.New("input not found")

// Files holds the path of each input artifact. An empty path means absent.
type Files struct {
	Incar   string `yaml:"incar"`
	Poscar  string `yaml:"poscar"`
	Kpoints string `yaml:"kpoints"`
	Potcar  string `yaml:"potcar"`
}

type slot struct {
	key  string
	path *string
}

func (f *Files) slots() []slot {
	return []slot{
		{vasp.IncarFile, &f.Incar},
		{vasp.PoscarFile, &f.Poscar},
		{vasp.KpointsFile, &f.Kpoints},
		{vasp.PotcarFile, &f.Potcar},
	}
}

// Options control discovery.
type Options struct {
	// Overrides name files explicitly; an override that exists wins over
	// anything found in the source directory.
	Overrides Files
	// InlineSettings reports that settings come from configuration, so a
	// missing INCAR is not an error.
	InlineSettings bool
}

// Discover finds the input files in dir. For each artifact it takes the file
// named exactly like the artifact, else the first file in lexical order whose
// name starts with it. POSCAR and KPOINTS are required; INCAR is required
// unless settings are inline; a missing POTCAR is only reported.
func Discover(dir string, opts Options, log *zap.Logger) (Files, error) {
	if dir == "" {
		log.Warn("source.dir not set")
		dir = "."
	}
	var found Files
	for _, s := range found.slots() {
		p, err := scan(dir, s.key)
		if err != nil {
			return Files{}, err
		}
		*s.path = p
	}

	over := opts.Overrides
	dst := found.slots()
	for i, s := range over.slots() {
		if *s.path == "" {
			continue
		}
		if _, err := os.Stat(*s.path); err != nil {
			log.Warn(fmt.Sprintf("configured %s %s not found, using discovery", s.key, *s.path))
			continue
		}
		*dst[i].path = *s.path
	}

	var missing []string
	for _, s := range found.slots() {
		if *s.path != "" {
			continue
		}
		switch {
		case s.key == vasp.PotcarFile:
			log.Warn(s.key + " not found")
		case s.key == vasp.IncarFile && opts.InlineSettings:
		default:
			log.Error(s.key + " not found")
			missing = append(missing, s.key)
		}
	}
	if len(missing) > 0 {
		return Files{}, fmt.Errorf("%w in %s: %s", ErrMissingInput, dir, strings.Join(missing, ", "))
	}
	log.Debug("the following files were found",
		zap.String("incar", found.Incar),
		zap.String("poscar", found.Poscar),
		zap.String("kpoints", found.Kpoints),
		zap.String("potcar", found.Potcar))
	return found, nil
}

func scan(dir, key string) (string, error) {
	exact := filepath.Join(dir, key)
	if fi, err := os.Stat(exact); err == nil && !fi.IsDir() {
		return exact, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, key+"*"))
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", key, err)
	}
	slices.Sort(matches)
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
			return m, nil
		}
	}
	return "", nil
}

// Baseline is the loaded, unresolved input. Catalog is nil when no POTCAR was
// found.
type Baseline struct {
	Files     Files
	Structure *vasp.Structure
	Settings  *vasp.Settings
	Mesh      *vasp.Mesh
	Catalog   *vasp.PseudoSet
}

// Load parses the discovered files. Inline settings, when non-nil, replace the
// INCAR file.
func Load(files Files, inline *vasp.Settings, log *zap.Logger) (*Baseline, error) {
	b := &Baseline{Files: files}

	text, err := read(files.Poscar)
	if err != nil {
		return nil, err
	}
	if b.Structure, err = vasp.ParsePoscar(text); err != nil {
		return nil, fmt.Errorf("%s: %w", files.Poscar, err)
	}

	if text, err = read(files.Kpoints); err != nil {
		return nil, err
	}
	if b.Mesh, err = vasp.ParseKpoints(text); err != nil {
		return nil, fmt.Errorf("%s: %w", files.Kpoints, err)
	}

	if inline != nil {
		b.Settings = inline.Clone()
		log.Info("loading INCAR from config file: " + oneLine(b.Settings))
	} else {
		if text, err = read(files.Incar); err != nil {
			return nil, err
		}
		if b.Settings, err = vasp.ParseIncar(text); err != nil {
			return nil, fmt.Errorf("%s: %w", files.Incar, err)
		}
		log.Info("loading INCAR: " + oneLine(b.Settings))
	}

	if files.Potcar != "" {
		if text, err = read(files.Potcar); err != nil {
			return nil, err
		}
		if strings.HasSuffix(files.Potcar, ".spec") {
			b.Catalog, err = vasp.ParsePotcarSpec(text)
		} else {
			b.Catalog, err = vasp.ParsePotcar(text)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", files.Potcar, err)
		}
	}
	return b, nil
}

// Input returns the baseline as a bundle with the given pseudopotentials.
func (b *Baseline) Input(pseudo *vasp.PseudoSet) *vasp.Input {
	return &vasp.Input{Structure: b.Structure, Settings: b.Settings, Mesh: b.Mesh, Pseudo: pseudo}
}

func read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func oneLine(s *vasp.Settings) string {
	return strings.Join(strings.Split(strings.TrimRight(s.String(), "\n"), "\n"), "; ")
}
