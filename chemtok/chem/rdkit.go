//go:build rdkit && cgo
// +build rdkit,cgo

package chem

/*
#cgo LDFLAGS: -lrdkitcffi
#include <stdlib.h>
#include <cffiwrapper.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

func init() {
	Register(RDKitRendererName, rdkitRenderer{})
}

// ParseSMILES parses s with RDKit and returns the resulting molecule.
func ParseSMILES(s string) (*Mol, error) {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	details := C.CString("{}")
	defer C.free(unsafe.Pointer(details))

	var sz C.size_t
	pkl := C.get_mol(cs, &sz, details)
	if pkl == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSMILES, s)
	}
	defer C.free_ptr(pkl)
	return &Mol{pkl: C.GoBytes(unsafe.Pointer(pkl), C.int(sz))}, nil
}

type rdkitRenderer struct{}

func (rdkitRenderer) ToSMILES(mol Molecule) (string, error) {
	var m *Mol
	switch v := mol.(type) {
	case *Mol:
		m = v
	case SMILES:
		parsed, err := ParseSMILES(string(v))
		if err != nil {
			return "", err
		}
		m = parsed
	case string:
		parsed, err := ParseSMILES(v)
		if err != nil {
			return "", err
		}
		m = parsed
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedMolecule, mol)
	}
	if m == nil || len(m.pkl) == 0 {
		return "", fmt.Errorf("%w: empty molecule", ErrUnsupportedMolecule)
	}

	details := C.CString("{}")
	defer C.free(unsafe.Pointer(details))
	pkl := C.CBytes(m.pkl)
	defer C.free(pkl)

	out := C.get_smiles((*C.char)(pkl), C.size_t(len(m.pkl)), details)
	if out == nil {
		return "", fmt.Errorf("rdkit: failed to write SMILES")
	}
	defer C.free_ptr(out)
	return C.GoString(out), nil
}
