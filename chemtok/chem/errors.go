package chem

import (
	"errors"
	"fmt"
)

var (
	// ErrDependencyMissing matches every *DependencyMissingError via errors.Is.
	ErrDependencyMissing = errors.New("required dependency is not available")
	// ErrUnsupportedMolecule is returned when a renderer does not understand the handle type.
	ErrUnsupportedMolecule = errors.New("unsupported molecule type")
	// ErrInvalidSMILES is returned when a toolkit cannot parse a SMILES string.
	ErrInvalidSMILES = errors.New("invalid SMILES")
)

// DependencyMissingError reports that the toolkit backing a renderer is not
// present in this build or environment.
type DependencyMissingError struct {
	Dependency string
}

func (e *DependencyMissingError) Error() string {
	return fmt.Sprintf("%s is required to render molecules but is not available (build with -tags %s)", e.Dependency, e.Dependency)
}

func (e *DependencyMissingError) Is(target error) bool {
	return target == ErrDependencyMissing
}
