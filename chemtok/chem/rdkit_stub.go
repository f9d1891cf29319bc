//go:build !rdkit || !cgo
// +build !rdkit !cgo

package chem

// ParseSMILES is unavailable when built without the "rdkit" build tag.
func ParseSMILES(s string) (*Mol, error) {
	return nil, &DependencyMissingError{Dependency: RDKitRendererName}
}
