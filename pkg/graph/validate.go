package graph

import (
	"fmt"
	"sort"
)

// ValidationSeverity indicates whether a validation finding blocks evaluation
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks evaluation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	NodeID  NodeID
	Message string
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Validate runs all Tier 1 structural validation checks on the design graph
// and returns a slice of validation errors. An empty slice means the graph is
// valid. This function is read-only and never mutates the graph.
func Validate(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(g)...)
	errs = append(errs, validateReferences(g)...)
	errs = append(errs, validateNames(g)...)
	errs = append(errs, validateRoots(g)...)
	errs = append(errs, validateJoinParts(g)...)
	errs = append(errs, validateAnchors(g)...)
	return errs
}

// ValidateAll runs all validation tiers (structural, geometric, material)
// and returns a ValidationResult with separated errors and warnings.
func ValidateAll(g *DesignGraph) ValidationResult {
	// Tier 1: structural validation (existing).
	tier1 := Validate(g)

	// Tier 2: geometric validation.
	tier2Errs, tier2Warnings := validateGeometry(g)

	// Tier 3: material warnings.
	tier3Warnings := validateMaterial(g)

	// Separate Tier 1 findings into errors and warnings.
	var result ValidationResult
	for _, e := range tier1 {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{
				NodeID:  e.NodeID,
				Message: e.Message,
			})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}

	result.Errors = append(result.Errors, tier2Errs...)
	result.Warnings = append(result.Warnings, tier2Warnings...)
	result.Warnings = append(result.Warnings, tier3Warnings...)

	return result
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
// If we encounter a gray node during traversal, we have found a cycle.
func validateDAG(g *DesignGraph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int) // default zero = white
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray

		node, ok := g.Nodes[id]
		if !ok {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}

		// Walk Children edges.
		for _, childID := range node.Children {
			if visit(childID) {
				return true
			}
		}

		color[id] = black
		return false
	}

	// Start DFS from every node to catch disconnected components.
	for id := range g.Nodes {
		if color[id] == white {
			if visit(id) {
				// One cycle error is sufficient; stop early.
				break
			}
		}
	}

	return errs
}

// validateReferences checks that every NodeID referenced anywhere in the graph
// points to a node that actually exists in g.Nodes.
func validateReferences(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	for _, node := range g.Nodes {
		// Check Children references.
		for _, childID := range node.Children {
			if _, ok := g.Nodes[childID]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", childID.Short()),
					Severity: SeverityError,
				})
			}
		}

		// Check kind-specific data references.
		for _, ref := range dataRefs(node) {
			if _, ok := g.Nodes[ref.id]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("%s reference %s does not exist", ref.field, ref.id.Short()),
					Severity: SeverityError,
				})
			}
		}
	}

	return errs
}

// validateNames checks that the NameIndex is injective (no two nodes share the
// same name) and that every entry in NameIndex points to an existing node.
func validateNames(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	// Check that every NameIndex entry references an existing node.
	for name, id := range g.NameIndex {
		if _, ok := g.Nodes[id]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
		}
	}

	// Check injectivity: build a reverse map from NodeID to name, looking at
	// actual node Name fields. If two nodes share the same non-empty Name, error.
	nameToNodes := make(map[string][]NodeID)
	for id, node := range g.Nodes {
		if node.Name != "" {
			nameToNodes[node.Name] = append(nameToNodes[node.Name], id)
		}
	}
	for name, ids := range nameToNodes {
		if len(ids) > 1 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("duplicate name %q assigned to %d nodes", name, len(ids)),
				Severity: SeverityError,
			})
		}
	}

	return errs
}

// validateRoots checks that every root ID references an existing node and
// warns about orphan nodes (nodes unreachable from any root).
func validateRoots(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	// Check that each root references an existing node.
	for _, rid := range g.Roots {
		if _, ok := g.Nodes[rid]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("root reference %s does not exist", rid.Short()),
				Severity: SeverityError,
			})
		}
	}

	// Orphan detection: BFS from all roots through Children edges. A graph
	// without roots is a set of loose parts and has no orphans.
	if len(g.Nodes) == 0 || len(g.Roots) == 0 {
		return errs
	}

	reachable := make(map[NodeID]bool)
	queue := make([]NodeID, 0, len(g.Roots))
	for _, rid := range g.Roots {
		if _, ok := g.Nodes[rid]; ok {
			if !reachable[rid] {
				reachable[rid] = true
				queue = append(queue, rid)
			}
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node := g.Nodes[current]
		if node == nil {
			continue
		}

		// Traverse Children edges.
		for _, childID := range node.Children {
			if !reachable[childID] {
				reachable[childID] = true
				queue = append(queue, childID)
			}
		}

		// Also traverse join/anchor data references to reach
		// nodes that are only referenced via data fields.
		for _, ref := range dataRefs(node) {
			if !reachable[ref.id] {
				reachable[ref.id] = true
				queue = append(queue, ref.id)
			}
		}
	}

	// Report any unreachable nodes as warnings.
	for _, node := range sortedNodes(g) {
		if !reachable[node.ID] {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("node %q is not reachable from any root (orphan)", node.DisplayName()),
				Severity: SeverityWarning,
			})
		}
	}

	return errs
}

// validateJoinParts checks that join nodes reference primitive nodes for
// PartA and PartB, and that a join does not reference the same part for both
// (no self-joins).
func validateJoinParts(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	for _, node := range g.Nodes {
		jd, ok := node.Data.(JoinData)
		if !ok {
			continue
		}

		if jd.PartA.IsZero() || jd.PartB.IsZero() {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  "join is missing part_a or part_b",
				Severity: SeverityError,
			})
			continue
		}

		// Self-join check.
		if jd.PartA == jd.PartB {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  "join references the same part for both part_a and part_b (self-join)",
				Severity: SeverityError,
			})
		}

		// PartA must be a primitive.
		if partA, ok := g.Nodes[jd.PartA]; ok {
			if partA.Kind != NodePrimitive {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("join part_a %s is %s, not primitive", jd.PartA.Short(), partA.Kind),
					Severity: SeverityError,
				})
			}
		}

		// PartB must be a primitive.
		if partB, ok := g.Nodes[jd.PartB]; ok {
			if partB.Kind != NodePrimitive {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("join part_b %s is %s, not primitive", jd.PartB.Short(), partB.Kind),
					Severity: SeverityError,
				})
			}
		}
	}

	return errs
}

// validateAnchors checks that anchors are named and sit on primitives,
// and that no part carries two anchors with the same name.
func validateAnchors(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	type key struct {
		part NodeID
		name string
	}
	seen := make(map[key]NodeID)

	for _, node := range sortedNodes(g) {
		ad, ok := node.Data.(AnchorData)
		if !ok {
			continue
		}
		if ad.Name == "" {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  "anchor has no name",
				Severity: SeverityError,
			})
		}
		if part, ok := g.Nodes[ad.Part]; ok && part.Kind != NodePrimitive {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("anchor part %s is %s, not primitive", ad.Part.Short(), part.Kind),
				Severity: SeverityError,
			})
		}
		k := key{ad.Part, ad.Name}
		if first, dup := seen[k]; dup {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("duplicate anchor %q on part %s (first declared by node %s)", ad.Name, ad.Part.Short(), first.Short()),
				Severity: SeverityError,
			})
		} else {
			seen[k] = node.ID
		}
	}

	return errs
}

// dataRef is a node reference held in a kind-specific payload.
type dataRef struct {
	field string
	id    NodeID
}

// dataRefs lists the non-zero payload references of n.
func dataRefs(n *Node) []dataRef {
	var refs []dataRef
	add := func(field string, id NodeID) {
		if !id.IsZero() {
			refs = append(refs, dataRef{field, id})
		}
	}
	switch d := n.Data.(type) {
	case JoinData:
		add("join part_a", d.PartA)
		add("join part_b", d.PartB)
	case AnchorData:
		add("anchor part", d.Part)
	}
	return refs
}

// sortedNodes returns the nodes in ID order so findings are reported
// deterministically.
func sortedNodes(g *DesignGraph) []*Node {
	out := make([]*Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
