package graph

import (
	"fmt"
	"sort"

	"github.com/chazu/autolasercut/pkg/fingerjoint"
)

// DefaultMinFingerWidth is the default minimum finger width in mm.
const DefaultMinFingerWidth = 2.0

// GlobalDefaults contains graph-wide default settings.
type GlobalDefaults struct {
	MinFingerWidth float64                     `json:"min_finger_width"` // used by joints with no :min-width
	FingerType     fingerjoint.FingerType      `json:"finger_type"`      // used by joints with no :type
	Components     fingerjoint.ComponentPolicy `json:"components"`       // used by joints with no :components
	Material       MaterialSpec                `json:"material"`         // set by (defaults :material ...)
	Units          string                      `json:"units"`            // "mm"
}

// DesignGraph is the data structure produced by script evaluation.
// Each evaluation produces a new graph.
type DesignGraph struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
	JoinOrder []NodeID          `json:"join_order"`
	Defaults  GlobalDefaults    `json:"defaults"`
	Version   uint64            `json:"version"`
}

// New creates an empty DesignGraph with default settings.
func New() *DesignGraph {
	return &DesignGraph{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
		Defaults: GlobalDefaults{
			MinFingerWidth: DefaultMinFingerWidth,
			Units:          "mm",
		},
	}
}

// AddNode adds a node to the graph. It does not check for duplicates.
// Join nodes are also appended to JoinOrder.
func (g *DesignGraph) AddNode(n *Node) {
	if _, exists := g.Nodes[n.ID]; !exists && n.Kind == NodeJoin {
		g.JoinOrder = append(g.JoinOrder, n.ID)
	}
	g.Nodes[n.ID] = n
	if n.Name != "" {
		g.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the graph.
func (g *DesignGraph) AddRoot(id NodeID) {
	g.Roots = append(g.Roots, id)
}

// Lookup returns the node with the given user-assigned name, or nil.
func (g *DesignGraph) Lookup(name string) *Node {
	id, ok := g.NameIndex[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (g *DesignGraph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (g *DesignGraph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// Parts returns all primitive nodes ordered by display name.
func (g *DesignGraph) Parts() []*Node {
	return g.ofKind(NodePrimitive)
}

// Anchors returns all anchor nodes ordered by display name.
func (g *DesignGraph) Anchors() []*Node {
	return g.ofKind(NodeAnchor)
}

func (g *DesignGraph) ofKind(kind NodeKind) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := out[i].DisplayName(), out[j].DisplayName(); a != b {
			return a < b
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Joins returns all join nodes in declaration order.
func (g *DesignGraph) Joins() []*Node {
	joins := make([]*Node, 0, len(g.JoinOrder))
	for _, id := range g.JoinOrder {
		if n := g.Nodes[id]; n != nil && n.Kind == NodeJoin {
			joins = append(joins, n)
		}
	}
	return joins
}

// Children returns the child nodes of the given node.
func (g *DesignGraph) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := g.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (g *DesignGraph) NodeCount() int {
	return len(g.Nodes)
}

// MinFingerWidth returns the width a joint uses: its own, or the default.
func (g *DesignGraph) MinFingerWidth(p FingerParams) float64 {
	if p.MinWidth != 0 {
		return p.MinWidth
	}
	return g.Defaults.MinFingerWidth
}
