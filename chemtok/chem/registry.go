package chem

import (
	"sort"
	"sync"
)

const (
	// RDKitRendererName is the renderer backed by the RDKit MinimalLib C API.
	RDKitRendererName = "rdkit"
	// IdentityRendererName passes SMILES input through unchanged.
	IdentityRendererName = "identity"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Renderer{
		IdentityRendererName: IdentityRenderer{},
	}
)

// Register makes a renderer available under name, replacing any previous one.
func Register(name string, r Renderer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if r == nil {
		delete(registry, name)
		return
	}
	registry[name] = r
}

// Lookup returns the renderer registered under name or a
// *DependencyMissingError when the backing toolkit was not compiled in.
func Lookup(name string) (Renderer, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[name]
	if !ok {
		return nil, &DependencyMissingError{Dependency: name}
	}
	return r, nil
}

// Registered lists the available renderer names in sorted order.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
