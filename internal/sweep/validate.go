package sweep

import "slices"

// Validate checks that every variant's pseudopotential elements appear in the
// same order as its structure species. It reports the first offending variant.
func Validate(bundles []Named) error {
	for _, b := range bundles {
		if b.Input == nil || b.Input.Structure == nil || b.Input.Pseudo == nil {
			continue
		}
		species := b.Input.Structure.SiteSymbols()
		elements := b.Input.Pseudo.Elements()
		if !slices.Equal(species, elements) {
			return &OrderError{Name: b.Name, Pseudo: elements, Species: species}
		}
	}
	return nil
}
