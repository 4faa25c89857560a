package vasp

import (
	"fmt"
	"strconv"
	"strings"
)

// MeshStyle selects how a regular k-point mesh is positioned.
type MeshStyle int

const (
	// MonkhorstPack is the shifted/offset mesh.
	MonkhorstPack MeshStyle = iota
	// Gamma is the mesh centered at the origin.
	Gamma
)

func (s MeshStyle) String() string {
	if s == Gamma {
		return "Gamma"
	}
	return "Monkhorst-Pack"
}

// ParseMeshStyle maps "gamma"/"monkhorst" (and their KPOINTS spellings) to a
// MeshStyle. The empty string selects MonkhorstPack.
func ParseMeshStyle(s string) (MeshStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monkhorst", "monkhorst-pack", "mp", "shifted":
		return MonkhorstPack, nil
	case "gamma", "gamma-centered", "centered":
		return Gamma, nil
	}
	return 0, fmt.Errorf("unknown mesh style %q (want gamma or monkhorst)", s)
}

// Mesh is an in-memory KPOINTS file. Automatic regular meshes are fully
// modelled; any other KPOINTS flavour is carried as raw text.
type Mesh struct {
	Comment   string
	Style     MeshStyle
	Divisions [3]int
	Shift     [3]float64

	raw string
}

// NewMesh builds an automatic regular mesh with the given style.
func NewMesh(style MeshStyle, div [3]int) *Mesh {
	comment := "automatic Monkhorst-Pack Kpoint grid"
	if style == Gamma {
		comment = "automatic Gamma-centered Kpoint grid"
	}
	return &Mesh{Comment: comment, Style: style, Divisions: div}
}

// ParseKpoints parses KPOINTS text.
func ParseKpoints(text string) (*Mesh, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("kpoints: expected at least 3 lines, got %d", len(lines))
	}
	m := &Mesh{Comment: strings.TrimSpace(lines[0])}

	mode := strings.ToLower(strings.TrimSpace(lines[2]))
	if strings.TrimSpace(lines[1]) != "0" || mode == "" || (mode[0] != 'g' && mode[0] != 'm') {
		m.raw = text
		return m, nil
	}
	if mode[0] == 'g' {
		m.Style = Gamma
	}
	if len(lines) < 4 {
		return nil, fmt.Errorf("kpoints: missing mesh divisions")
	}
	fields := strings.Fields(lines[3])
	if len(fields) < 3 {
		return nil, fmt.Errorf("kpoints: expected 3 divisions, got %d", len(fields))
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, fmt.Errorf("kpoints: division %q: %w", fields[i], err)
		}
		m.Divisions[i] = n
	}
	if len(lines) > 4 && strings.TrimSpace(lines[4]) != "" {
		shift, err := parseFloats(lines[4], 3)
		if err != nil {
			return nil, fmt.Errorf("kpoints: shift: %w", err)
		}
		copy(m.Shift[:], shift)
	}
	return m, nil
}

// Automatic reports whether the mesh is a modelled regular mesh.
func (m *Mesh) Automatic() bool { return m.raw == "" }

// Clone returns a copy.
func (m *Mesh) Clone() *Mesh {
	c := *m
	return &c
}

// String renders the mesh in KPOINTS form.
func (m *Mesh) String() string {
	if m.raw != "" {
		return m.raw
	}
	var b strings.Builder
	b.WriteString(m.Comment + "\n")
	b.WriteString("0\n")
	b.WriteString(m.Style.String() + "\n")
	fmt.Fprintf(&b, "%d %d %d\n", m.Divisions[0], m.Divisions[1], m.Divisions[2])
	fmt.Fprintf(&b, "%s %s %s\n",
		strconv.FormatFloat(m.Shift[0], 'g', -1, 64),
		strconv.FormatFloat(m.Shift[1], 'g', -1, 64),
		strconv.FormatFloat(m.Shift[2], 'g', -1, 64))
	return b.String()
}
