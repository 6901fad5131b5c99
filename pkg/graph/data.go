package graph

import "github.com/chazu/autolasercut/pkg/fingerjoint"

// ---------------------------------------------------------------------------
// Material
// ---------------------------------------------------------------------------

// MaterialSpec describes the sheet stock a part is cut from.
type MaterialSpec struct {
	Name      string  `json:"name,omitempty"`      // e.g. "birch-ply", "acrylic"
	Thickness float64 `json:"thickness,omitempty"` // nominal thickness in mm
	Notes     string  `json:"notes,omitempty"`
}

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// BoardData is a rectangular sheet with its minimum corner at the origin.
type BoardData struct {
	Dimensions Vec3         `json:"dimensions"` // length x width x thickness in mm
	Material   MaterialSpec `json:"material"`
}

func (BoardData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData places its single child. Align is applied first, then
// Rotation, then Translation.
type TransformData struct {
	Translation *Vec3  `json:"translation,omitempty"`
	Rotation    *Vec3  `json:"rotation,omitempty"` // Euler angles in degrees
	Align       string `json:"align,omitempty"`    // alignment code, e.g. "CCL"
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData is an assembly of parts.
type GroupData struct {
	Description string `json:"description,omitempty"`
}

func (GroupData) nodeData() {}

// ---------------------------------------------------------------------------
// Join
// ---------------------------------------------------------------------------

// FingerParams are the per-joint finger settings. A zero MinWidth uses
// the graph default.
type FingerParams struct {
	MinWidth   float64                     `json:"min_width,omitempty"`
	Swap       bool                        `json:"swap,omitempty"`
	Type       fingerjoint.FingerType      `json:"type"`
	Components fingerjoint.ComponentPolicy `json:"components"`
}

// JoinData declares a finger joint between two primitives.
type JoinData struct {
	PartA  NodeID       `json:"part_a"`
	PartB  NodeID       `json:"part_b"`
	Params FingerParams `json:"params"`
}

func (JoinData) nodeData() {}

// ---------------------------------------------------------------------------
// Anchor
// ---------------------------------------------------------------------------

// AnchorData names a point on a part, in the part's local frame.
type AnchorData struct {
	Part NodeID `json:"part"`
	Name string `json:"name"`
	At   Vec3   `json:"at"`
}

func (AnchorData) nodeData() {}
