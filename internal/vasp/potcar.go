package vasp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFunctional is used when neither configuration nor a supplied POTCAR
// names one.
const DefaultFunctional = "PBE"

// libraryDirs maps functional identifiers to the conventional sub-directory of
// a pseudopotential library.
var libraryDirs = map[string]string{
	"PBE":    "POT_GGA_PAW_PBE",
	"PBE_52": "POT_PAW_PBE_52",
	"PBE_54": "POT_PAW_PBE_54",
	"PBE_64": "POT_PAW_PBE_64",
	"LDA":    "POT_LDA_PAW",
	"LDA_52": "POT_LDA_PAW_52",
	"LDA_54": "POT_LDA_PAW_54",
	"PW91":   "POT_GGA_PAW_PW91",
}

// Pseudo identifies one pseudopotential: an element plus an optional variant
// (Fe + pv -> "Fe_pv").
type Pseudo struct {
	Element string
	Variant string

	// data is the dataset text when it was read from a POTCAR.
	data string
}

// ParseSymbol splits "Fe_pv" into element and variant.
func ParseSymbol(symbol string) Pseudo {
	el, variant, _ := strings.Cut(strings.TrimSpace(symbol), "_")
	return Pseudo{Element: el, Variant: variant}
}

// Symbol returns the library symbol, e.g. "Fe_pv".
func (p Pseudo) Symbol() string {
	if p.Variant == "" {
		return p.Element
	}
	return p.Element + "_" + p.Variant
}

// PseudoSet is an ordered pseudopotential selection.
type PseudoSet struct {
	Functional string
	Entries    []Pseudo
	// Library is the pseudopotential library root used to assemble POTCAR.
	Library string
}

// NewPseudoSet builds a set from library symbols.
func NewPseudoSet(functional string, symbols []string) *PseudoSet {
	ps := &PseudoSet{Functional: functional}
	for _, s := range symbols {
		ps.Entries = append(ps.Entries, ParseSymbol(s))
	}
	return ps
}

// ParsePotcar reads the TITEL records of a concatenated POTCAR.
func ParsePotcar(text string) (*PseudoSet, error) {
	ps := &PseudoSet{}
	for _, block := range splitDatasets(text) {
		titel := ""
		for _, line := range strings.Split(block, "\n") {
			if strings.Contains(line, "TITEL") {
				_, titel, _ = strings.Cut(line, "=")
				break
			}
		}
		fields := strings.Fields(titel)
		if len(fields) < 2 {
			return nil, fmt.Errorf("potcar: dataset without TITEL record")
		}
		if ps.Functional == "" {
			ps.Functional = functionalFromTitel(fields[0])
		}
		p := ParseSymbol(fields[1])
		p.data = block
		ps.Entries = append(ps.Entries, p)
	}
	if len(ps.Entries) == 0 {
		return nil, fmt.Errorf("potcar: no datasets found")
	}
	return ps, nil
}

// ParsePotcarSpec reads the POTCAR.spec form written by (*PseudoSet).Spec.
func ParsePotcarSpec(text string) (*PseudoSet, error) {
	ps := &PseudoSet{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if v, ok := strings.CutPrefix(line, "functional:"); ok {
			ps.Functional = strings.TrimSpace(v)
			continue
		}
		ps.Entries = append(ps.Entries, ParseSymbol(line))
	}
	if len(ps.Entries) == 0 {
		return nil, fmt.Errorf("potcar spec: no symbols")
	}
	return ps, nil
}

// Symbols returns library symbols in order.
func (ps *PseudoSet) Symbols() []string {
	out := make([]string, len(ps.Entries))
	for i, e := range ps.Entries {
		out[i] = e.Symbol()
	}
	return out
}

// Elements returns the element part of each entry in order.
func (ps *PseudoSet) Elements() []string {
	out := make([]string, len(ps.Entries))
	for i, e := range ps.Entries {
		out[i] = e.Element
	}
	return out
}

// Dataset returns the POTCAR text already known for symbol, if any.
func (ps *PseudoSet) Dataset(symbol string) (string, bool) {
	for _, e := range ps.Entries {
		if e.Symbol() == symbol && e.data != "" {
			return e.data, true
		}
	}
	return "", false
}

// WithDataset returns p carrying the given dataset text.
func (p Pseudo) WithDataset(data string) Pseudo {
	p.data = data
	return p
}

// Clone returns a deep copy.
func (ps *PseudoSet) Clone() *PseudoSet {
	c := *ps
	c.Entries = append([]Pseudo(nil), ps.Entries...)
	return &c
}

// Spec renders the POTCAR.spec form: functional line then one symbol per line.
func (ps *PseudoSet) Spec() string {
	var b strings.Builder
	fmt.Fprintf(&b, "functional: %s\n", ps.Functional)
	for _, s := range ps.Symbols() {
		b.WriteString(s + "\n")
	}
	return b.String()
}

// Assemble returns the concatenated POTCAR text. Datasets read from a supplied
// POTCAR are reused; the rest come from the library. ok is false when some
// dataset is unavailable, in which case only POTCAR.spec can be written.
func (ps *PseudoSet) Assemble() (text string, ok bool, err error) {
	var b strings.Builder
	for _, e := range ps.Entries {
		if e.data != "" {
			b.WriteString(e.data)
			continue
		}
		if ps.Library == "" {
			return "", false, nil
		}
		dir, found := libraryDirs[strings.ToUpper(ps.Functional)]
		if !found {
			dir = ps.Functional
		}
		path := filepath.Join(ps.Library, dir, e.Symbol(), "POTCAR")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", false, fmt.Errorf("potcar: read %s: %w", path, err)
		}
		b.Write(data)
	}
	return b.String(), true, nil
}

func splitDatasets(text string) []string {
	var out []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		cur.WriteString(line)
		if strings.Contains(line, "End of Dataset") {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		out = append(out, cur.String())
	}
	return out
}

func functionalFromTitel(tag string) string {
	switch tag {
	case "PAW_PBE":
		return "PBE"
	case "PAW_GGA":
		return "PW91"
	case "PAW", "PAW_LDA":
		return "LDA"
	}
	return strings.TrimPrefix(tag, "PAW_")
}
