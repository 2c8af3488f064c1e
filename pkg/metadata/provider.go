// Package metadata defines the semantic-layer collaborator interface: the
// registered cubes with their measures and dimensions. The gateway only
// reads this metadata; compiling and executing cube queries happens
// elsewhere.
package metadata

import "context"

// Field describes a single measure or dimension on a cube.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Cube is one registered cube in the semantic layer.
type Cube struct {
	Name        string  `json:"name"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Measures    []Field `json:"measures"`
	Dimensions  []Field `json:"dimensions"`
}

// CubeProvider lists the currently registered cubes. Implementations live
// outside this repository (the semantic-layer server); StaticProvider
// exists for tests and degraded operation.
type CubeProvider interface {
	ListCubes(ctx context.Context) ([]Cube, error)
}

// StaticProvider serves a fixed cube list. Used in tests and as the
// fallback when the live metadata lookup fails.
type StaticProvider struct {
	Cubes []Cube
}

// ListCubes implements CubeProvider.
func (p *StaticProvider) ListCubes(ctx context.Context) ([]Cube, error) {
	return p.Cubes, nil
}

var _ CubeProvider = (*StaticProvider)(nil)
