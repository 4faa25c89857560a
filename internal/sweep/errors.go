package sweep

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedParameter reports a structure axis on a parameter that
	// cannot be swept.
	ErrUnsupportedParameter = errors.New("unsupported sweep parameter")
	// ErrInvalidAxis reports an axis whose declaration cannot be expanded.
	ErrInvalidAxis = errors.New("invalid sweep axis")
	// ErrConflictingAxes reports axes that would overwrite each other.
	ErrConflictingAxes = errors.New("conflicting sweep axes")
	// ErrInvalidName reports a bundle name that cannot be used as a
	// directory and script word.
	ErrInvalidName = errors.New("invalid bundle name")
	// ErrDuplicateName reports two sweep points that format to the same name.
	ErrDuplicateName = errors.New("duplicate bundle name")
	// ErrOrderMismatch reports pseudopotentials ordered differently from the
	// structure species.
	ErrOrderMismatch = errors.New("pseudopotential order mismatch")
)

// OrderError describes the first bundle whose pseudopotential elements are not
// in structure species order.
type OrderError struct {
	Name    string
	Pseudo  []string
	Species []string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s: symbols in POTCAR [%s] and POSCAR [%s] are ordered differently",
		e.Name, strings.Join(e.Pseudo, " "), strings.Join(e.Species, " "))
}

func (e *OrderError) Is(target error) bool { return target == ErrOrderMismatch }
