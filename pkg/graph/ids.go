package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// NodeID is a content-addressed node identifier: the SHA-256 of the path
// that created the node.
type NodeID [32]byte

// NewNodeID derives an ID from a creation path such as "defpart/front".
func NewNodeID(path string) NodeID {
	return NodeID(sha256.Sum256([]byte(path)))
}

// IsZero reports whether id is the zero value.
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the first 6 bytes in hex.
func (id NodeID) Short() string {
	return hex.EncodeToString(id[:6])
}

// MarshalText encodes the ID as hex.
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a hex ID.
func (id *NodeID) UnmarshalText(b []byte) error {
	if len(b) != hex.EncodedLen(len(id)) {
		return fmt.Errorf("graph: node id must be %d hex chars, got %d", hex.EncodedLen(len(id)), len(b))
	}
	_, err := hex.Decode(id[:], b)
	return err
}

// Vec3 is a point or direction in millimetres, or Euler angles in degrees.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool { return v == Vec3{} }

func (v Vec3) String() string {
	f := func(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }
	return "(" + f(v.X) + ", " + f(v.Y) + ", " + f(v.Z) + ")"
}

// Axis names a coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Thinnest returns the axis along which v is smallest.
func (v Vec3) Thinnest() Axis {
	switch {
	case v.Z <= v.X && v.Z <= v.Y:
		return AxisZ
	case v.Y <= v.X:
		return AxisY
	default:
		return AxisX
	}
}
