// Package kernel defines the abstract geometry kernel interface.
// Implementations (boxset, sdfx) provide solid modeling, boolean
// operations and the geometric queries the finger-joint generator
// needs behind this interface. The kernel abstraction allows swapping
// backends without changing the rest of the system.
package kernel

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrUnsupported is returned when a backend cannot represent the
	// requested operation (e.g. a non-orthogonal rotation of a box set).
	ErrUnsupported = errors.New("kernel: operation not supported by backend")

	// ErrEmpty is returned by queries that are undefined on an empty solid.
	ErrEmpty = errors.New("kernel: solid is empty")

	// ErrForeignSolid is returned when a kernel is handed a solid made by
	// another backend. Operations without an error result panic with an
	// error wrapping it.
	ErrForeignSolid = errors.New("kernel: solid belongs to another kernel")
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation. Solids are
// immutable: every operation returns a new handle.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) (Solid, error) // Euler angles in degrees

	// Queries
	Volume(s Solid) float64
	Centroid(s Solid) (r3.Vec, error)
	Edges(s Solid) ([]Edge, error)
	Split(s Solid, p Plane) ([]Solid, error)
	Components(s Solid) ([]Solid, error)

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// Reentrant is implemented by kernels that report whether they may be
// called from several goroutines at once.
type Reentrant interface {
	Reentrant() bool
}

// IsReentrant reports whether k declares itself safe for concurrent use.
func IsReentrant(k any) bool {
	r, ok := k.(Reentrant)
	return ok && r.Reentrant()
}

// Bounds returns the bounding box of s as vectors.
func Bounds(s Solid) (min, max r3.Vec) {
	lo, hi := s.BoundingBox()
	return r3.Vec{X: lo[0], Y: lo[1], Z: lo[2]}, r3.Vec{X: hi[0], Y: hi[1], Z: hi[2]}
}
