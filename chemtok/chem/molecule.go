// Package chem holds the structure-to-text side of featurization: turning an
// opaque molecule handle owned by a cheminformatics toolkit into its
// canonical SMILES string.
package chem

// Molecule is an in-memory structure produced by a cheminformatics toolkit.
// Renderers treat it as an opaque, read-only handle.
type Molecule any

// SMILES is a molecule that is already in linear textual form.
type SMILES string

// Renderer converts a molecule into its canonical textual representation.
// Implementations must be deterministic and safe for concurrent use.
type Renderer interface {
	ToSMILES(mol Molecule) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(mol Molecule) (string, error)

func (f RendererFunc) ToSMILES(mol Molecule) (string, error) { return f(mol) }

// Mol is an RDKit molecule kept in its binary pickle form.
type Mol struct {
	pkl []byte
}

// Pickle returns a copy of the RDKit pickle backing the molecule.
func (m *Mol) Pickle() []byte {
	if m == nil {
		return nil
	}
	out := make([]byte, len(m.pkl))
	copy(out, m.pkl)
	return out
}
