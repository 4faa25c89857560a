package vasp

// poscar.go: the structure artifact (POSCAR).
//
// Layout of a VASP5 POSCAR:
//
//	comment
//	scale                    (negative: target cell volume)
//	a1x a1y a1z              lattice vectors, one per row
//	a2x a2y a2z
//	a3x a3y a3z
//	Fe O                     species symbols
//	2  3                     site count per species
//	[Selective dynamics]
//	Direct | Cartesian
//	x y z [flags...]         one row per site

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Site is one atomic position row.
type Site struct {
	Coords [3]float64
	// Rest holds anything after the three coordinates (selective dynamics
	// flags, labels), written back verbatim.
	Rest string
}

// Structure is an in-memory POSCAR.
type Structure struct {
	Comment   string
	Scale     float64
	Lattice   *mat.Dense // 3x3, rows are lattice vectors as written
	Species   []string
	Counts    []int
	Selective bool
	Cartesian bool
	Sites     []Site

	// lines keeps the source text so that line-level rewrites (the scale
	// record) re-parse exactly what the user supplied.
	lines []string
}

// ParsePoscar parses POSCAR text. Species symbols are required.
func ParsePoscar(text string) (*Structure, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) < 8 {
		return nil, fmt.Errorf("poscar: expected at least 8 lines, got %d", len(lines))
	}

	s := &Structure{
		Comment: strings.TrimSpace(lines[0]),
		lines:   append([]string(nil), lines...),
	}

	scaleFields := strings.Fields(lines[1])
	if len(scaleFields) == 0 {
		return nil, fmt.Errorf("poscar: empty scale line")
	}
	scale, err := strconv.ParseFloat(scaleFields[0], 64)
	if err != nil {
		return nil, fmt.Errorf("poscar: scale %q: %w", scaleFields[0], err)
	}
	if scale == 0 {
		return nil, fmt.Errorf("poscar: scale must be non-zero")
	}
	s.Scale = scale

	data := make([]float64, 0, 9)
	for i := 2; i < 5; i++ {
		row, err := parseFloats(lines[i], 3)
		if err != nil {
			return nil, fmt.Errorf("poscar: lattice line %d: %w", i+1, err)
		}
		data = append(data, row...)
	}
	s.Lattice = mat.NewDense(3, 3, data)

	s.Species = strings.Fields(lines[5])
	if len(s.Species) == 0 || isNumeric(s.Species[0]) {
		return nil, fmt.Errorf("poscar: line 6 must list species symbols (VASP4 format is not supported)")
	}
	for _, f := range strings.Fields(lines[6]) {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("poscar: site count %q: %w", f, err)
		}
		s.Counts = append(s.Counts, n)
	}
	if len(s.Counts) != len(s.Species) {
		return nil, fmt.Errorf("poscar: %d species but %d counts", len(s.Species), len(s.Counts))
	}

	idx := 7
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(lines[idx])), "s") {
		s.Selective = true
		idx++
	}
	if idx >= len(lines) {
		return nil, fmt.Errorf("poscar: missing coordinate mode line")
	}
	mode := strings.ToLower(strings.TrimSpace(lines[idx]))
	if mode == "" {
		return nil, fmt.Errorf("poscar: empty coordinate mode line")
	}
	if mode[0] == 'c' || mode[0] == 'k' {
		s.Cartesian = true
	}
	idx++

	total := 0
	for _, n := range s.Counts {
		total += n
	}
	if len(lines)-idx < total {
		return nil, fmt.Errorf("poscar: expected %d sites, found %d lines", total, len(lines)-idx)
	}
	for i := 0; i < total; i++ {
		line := lines[idx+i]
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("poscar: site %d: expected 3 coordinates", i+1)
		}
		var site Site
		for k := 0; k < 3; k++ {
			v, err := strconv.ParseFloat(fields[k], 64)
			if err != nil {
				return nil, fmt.Errorf("poscar: site %d: %w", i+1, err)
			}
			site.Coords[k] = v
		}
		site.Rest = strings.Join(fields[3:], " ")
		s.Sites = append(s.Sites, site)
	}
	return s, nil
}

// SiteSymbols returns the species order as it appears in the site list.
func (s *Structure) SiteSymbols() []string {
	return append([]string(nil), s.Species...)
}

// Volume returns the cell volume in cubic Angstrom.
func (s *Structure) Volume() float64 {
	if s.Scale < 0 {
		return -s.Scale
	}
	return math.Abs(mat.Det(s.Lattice)) * s.Scale * s.Scale * s.Scale
}

// Clone returns a deep copy.
func (s *Structure) Clone() *Structure {
	c := *s
	c.Lattice = mat.DenseCopyOf(s.Lattice)
	c.Species = append([]string(nil), s.Species...)
	c.Counts = append([]int(nil), s.Counts...)
	c.Sites = append([]Site(nil), s.Sites...)
	c.lines = append([]string(nil), s.lines...)
	return &c
}

// WithScale returns a new structure whose second record is rewritten to the
// given linear lattice scale. The whole text is re-parsed.
func (s *Structure) WithScale(scale float64) (*Structure, error) {
	lines := s.lines
	if len(lines) == 0 {
		lines = strings.Split(strings.TrimRight(s.String(), "\n"), "\n")
	} else {
		lines = append([]string(nil), lines...)
	}
	lines[1] = fmt.Sprintf("%.4f", scale)
	return ParsePoscar(strings.Join(lines, "\n") + "\n")
}

// ScaleVolume scales the cell uniformly so that its volume is multiplied by
// factor. Cartesian positions follow the lattice.
func (s *Structure) ScaleVolume(factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("poscar: volume factor must be positive, got %g", factor)
	}
	if s.Scale < 0 {
		s.Scale *= factor
	} else {
		linear := math.Cbrt(factor)
		s.Lattice.Scale(linear, s.Lattice)
		if s.Cartesian {
			for i := range s.Sites {
				for k := range s.Sites[i].Coords {
					s.Sites[i].Coords[k] *= linear
				}
			}
		}
	}
	// The source text no longer describes this structure.
	s.lines = nil
	return nil
}

// String renders the structure in POSCAR form.
func (s *Structure) String() string {
	var b strings.Builder
	b.WriteString(s.Comment + "\n")
	b.WriteString(strconv.FormatFloat(s.Scale, 'f', -1, 64) + "\n")
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, "  %20.16f %20.16f %20.16f\n", s.Lattice.At(i, 0), s.Lattice.At(i, 1), s.Lattice.At(i, 2))
	}
	b.WriteString("  " + strings.Join(s.Species, " ") + "\n")
	counts := make([]string, len(s.Counts))
	for i, n := range s.Counts {
		counts[i] = strconv.Itoa(n)
	}
	b.WriteString("  " + strings.Join(counts, " ") + "\n")
	if s.Selective {
		b.WriteString("Selective dynamics\n")
	}
	if s.Cartesian {
		b.WriteString("Cartesian\n")
	} else {
		b.WriteString("Direct\n")
	}
	for _, site := range s.Sites {
		fmt.Fprintf(&b, "  %.16f %.16f %.16f", site.Coords[0], site.Coords[1], site.Coords[2])
		if site.Rest != "" {
			b.WriteString(" " + site.Rest)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func parseFloats(line string, n int) ([]float64, error) {
	fields := strings.Fields(line)
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
