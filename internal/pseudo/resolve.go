// Package pseudo decides the final pseudopotential selection for a run and
// orders it to match the structure's species order.
package pseudo

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"vaspsweep/internal/vasp"
)

// ErrConfigurationMismatch reports that the pseudopotential selection does not
// cover exactly the structure's species.
var ErrConfigurationMismatch = errors.New("pseudopotential configuration mismatch")

// Options carries the configured selection. Zero values defer to the supplied
// catalog.
type Options struct {
	// Variants lists library symbols such as "Fe_pv"; the element is the text
	// before the first underscore.
	Variants []string
	// Functional overrides the catalog's functional.
	Functional string
	// Library is the pseudopotential library root.
	Library string
}

// Resolve returns the pseudopotential set for species. Symbol source priority:
// configured variants, then the catalog, then bare species symbols.
func Resolve(species []string, catalog *vasp.PseudoSet, opts Options, log *zap.Logger) (*vasp.PseudoSet, error) {
	if len(species) == 0 {
		return nil, fmt.Errorf("%w: structure has no species", ErrConfigurationMismatch)
	}

	functional := vasp.DefaultFunctional
	var entries []vasp.Pseudo
	switch {
	case len(opts.Variants) > 0:
		for _, v := range opts.Variants {
			p := vasp.ParseSymbol(v)
			if catalog != nil {
				if data, ok := catalog.Dataset(p.Symbol()); ok {
					p = p.WithDataset(data)
				}
			}
			entries = append(entries, p)
		}
	case catalog != nil:
		entries = append(entries, catalog.Entries...)
	default:
		for _, s := range species {
			entries = append(entries, vasp.Pseudo{Element: s})
		}
	}
	if catalog != nil && catalog.Functional != "" {
		functional = catalog.Functional
	}
	if opts.Functional != "" {
		functional = opts.Functional
	}

	if !sameElementSet(species, entries) {
		symbols := make([]string, len(entries))
		for i, e := range entries {
			symbols[i] = e.Symbol()
		}
		return nil, fmt.Errorf("%w: structure species %v and pseudopotentials %v are not compatible",
			ErrConfigurationMismatch, species, symbols)
	}

	rank := make(map[string]int, len(species))
	for i, s := range species {
		if _, seen := rank[s]; !seen {
			rank[s] = i
		}
	}
	slices.SortStableFunc(entries, func(a, b vasp.Pseudo) int {
		return rank[a.Element] - rank[b.Element]
	})

	ps := &vasp.PseudoSet{Functional: functional, Entries: entries, Library: opts.Library}
	log.Info(fmt.Sprintf("POTCAR generated: functional %s, symbols %s", functional, strings.Join(ps.Symbols(), " ")))
	return ps, nil
}

func sameElementSet(species []string, entries []vasp.Pseudo) bool {
	want := make(map[string]bool, len(species))
	for _, s := range species {
		want[s] = true
	}
	got := make(map[string]bool, len(entries))
	for _, e := range entries {
		got[e.Element] = true
	}
	if len(want) != len(got) {
		return false
	}
	for k := range want {
		if !got[k] {
			return false
		}
	}
	return true
}
