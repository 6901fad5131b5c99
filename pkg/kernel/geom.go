package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Edge is a straight boundary edge of a solid.
type Edge struct {
	Start r3.Vec
	End   r3.Vec
}

// Length returns the edge length.
func (e Edge) Length() float64 {
	return r3.Norm(r3.Sub(e.End, e.Start))
}

// At returns the point at parameter t, where 0 is Start and 1 is End.
func (e Edge) At(t float64) r3.Vec {
	return r3.Add(e.Start, r3.Scale(t, r3.Sub(e.End, e.Start)))
}

// Direction returns the unit vector from Start to End.
// It is the zero vector for a zero-length edge.
func (e Edge) Direction() r3.Vec {
	d := r3.Sub(e.End, e.Start)
	n := r3.Norm(d)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, d)
}

// Plane is an oriented plane with an orthonormal local frame.
// Local Z is the plane normal.
type Plane struct {
	Origin r3.Vec
	XDir   r3.Vec
	YDir   r3.Vec
	Normal r3.Vec
}

// NewPlane builds a plane through origin with the given normal. The
// in-plane X direction is derived from the world axis least aligned
// with the normal, so equal inputs always give the same frame.
func NewPlane(origin, normal r3.Vec) Plane {
	n := r3.Unit(normal)
	var ref r3.Vec
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case ax <= ay && ax <= az:
		ref = r3.Vec{X: 1}
	case ay <= az:
		ref = r3.Vec{Y: 1}
	default:
		ref = r3.Vec{Z: 1}
	}
	x := r3.Unit(r3.Sub(ref, r3.Scale(r3.Dot(ref, n), n)))
	y := r3.Cross(n, x)
	return Plane{Origin: origin, XDir: x, YDir: y, Normal: n}
}

// ToLocal expresses p in the plane's frame. The Z component is the
// signed distance along the normal.
func (p Plane) ToLocal(v r3.Vec) r3.Vec {
	d := r3.Sub(v, p.Origin)
	return r3.Vec{X: r3.Dot(d, p.XDir), Y: r3.Dot(d, p.YDir), Z: r3.Dot(d, p.Normal)}
}

// Distance returns the signed distance from the plane to v.
func (p Plane) Distance(v r3.Vec) float64 {
	return r3.Dot(r3.Sub(v, p.Origin), p.Normal)
}

// AxisAligned reports which world axis the normal is parallel to,
// within tol, and the sign of the normal along it.
func (p Plane) AxisAligned(tol float64) (axis int, sign float64, ok bool) {
	c := [3]float64{p.Normal.X, p.Normal.Y, p.Normal.Z}
	for i := range c {
		if math.Abs(math.Abs(c[i])-1) <= tol {
			if c[i] < 0 {
				return i, -1, true
			}
			return i, 1, true
		}
	}
	return 0, 0, false
}

// Component returns the i-th coordinate of v (0=X, 1=Y, 2=Z).
func Component(v r3.Vec, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

// BoxEdges returns the twelve edges of the axis-aligned box [min, max],
// x-parallel first, then y, then z. Each edge runs from its low to its
// high coordinate.
func BoxEdges(min, max [3]float64) []Edge {
	out := make([]Edge, 0, 12)
	for ax := 0; ax < 3; ax++ {
		u, v := (ax+1)%3, (ax+2)%3
		for _, cu := range [2]float64{min[u], max[u]} {
			for _, cv := range [2]float64{min[v], max[v]} {
				var s, e [3]float64
				s[ax], e[ax] = min[ax], max[ax]
				s[u], e[u] = cu, cu
				s[v], e[v] = cv, cv
				out = append(out, Edge{
					Start: r3.Vec{X: s[0], Y: s[1], Z: s[2]},
					End:   r3.Vec{X: e[0], Y: e[1], Z: e[2]},
				})
			}
		}
	}
	return out
}
