package chem

import "fmt"

// IdentityRenderer returns SMILES input verbatim. It is meant for inputs that
// are already canonical, so no toolkit is needed.
type IdentityRenderer struct{}

func (IdentityRenderer) ToSMILES(mol Molecule) (string, error) {
	switch m := mol.(type) {
	case SMILES:
		return string(m), nil
	case string:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedMolecule, mol)
	}
}
