package graph

import (
	"fmt"
	"math"

	"github.com/chazu/autolasercut/pkg/align"
)

// ---------------------------------------------------------------------------
// Tier 2: Geometric validation (errors + warnings)
// ---------------------------------------------------------------------------

// validateGeometry runs all Tier 2 geometric checks.
// Returns errors (blocking) and warnings (advisory) separately.
func validateGeometry(g *DesignGraph) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	errs = append(errs, validateNonZeroDimensions(g)...)
	errs = append(errs, validateFingerWidths(g)...)
	errs = append(errs, validateTransforms(g)...)
	warnings = append(warnings, validateDuplicateJoins(g)...)

	return errs, warnings
}

// validateNonZeroDimensions checks that every BoardData has positive X, Y, Z.
func validateNonZeroDimensions(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	for _, node := range sortedNodes(g) {
		bd, ok := node.Data.(BoardData)
		if !ok {
			continue
		}

		for _, c := range []struct {
			axis Axis
			v    float64
		}{{AxisX, bd.Dimensions.X}, {AxisY, bd.Dimensions.Y}, {AxisZ, bd.Dimensions.Z}} {
			if !(c.v > 0) || math.IsInf(c.v, 0) {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("board dimension %s is %.4f, must be positive", c.axis, c.v),
					Severity: SeverityError,
				})
			}
		}
	}

	return errs
}

// validateFingerWidths checks the default and every per-joint minimum
// finger width.
func validateFingerWidths(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	bad := func(w float64) bool { return !(w > 0) || math.IsInf(w, 0) }

	if bad(g.Defaults.MinFingerWidth) {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("default min finger width is %g, must be positive", g.Defaults.MinFingerWidth),
			Severity: SeverityError,
		})
	}
	for _, node := range g.Joins() {
		jd := node.Data.(JoinData)
		if jd.Params.MinWidth != 0 && bad(jd.Params.MinWidth) {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("min finger width is %g, must be positive", jd.Params.MinWidth),
				Severity: SeverityError,
			})
		}
	}

	return errs
}

// validateTransforms checks alignment codes and that placements are
// finite.
func validateTransforms(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	for _, node := range sortedNodes(g) {
		td, ok := node.Data.(TransformData)
		if !ok {
			continue
		}
		if td.Align != "" {
			if _, err := align.Parse(td.Align); err != nil {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  err.Error(),
					Severity: SeverityError,
				})
			}
		}
		for _, v := range []*Vec3{td.Translation, td.Rotation} {
			if v != nil && !finite(*v) {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("placement %s is not finite", v),
					Severity: SeverityError,
				})
			}
		}
		if len(node.Children) != 1 {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("transform has %d children, want 1", len(node.Children)),
				Severity: SeverityError,
			})
		}
	}

	return errs
}

func finite(v Vec3) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// joinKey produces a canonical key for a pair of parts so that (A,B) and
// (B,A) are treated as the same joint.
type joinKey struct {
	partLo, partHi NodeID
}

func makeJoinKey(partA, partB NodeID) joinKey {
	if partA.String() <= partB.String() {
		return joinKey{partLo: partA, partHi: partB}
	}
	return joinKey{partLo: partB, partHi: partA}
}

// validateDuplicateJoins warns when two joins connect the same pair of
// parts. The second joint cuts the already cut parts again, which is
// rarely intended.
func validateDuplicateJoins(g *DesignGraph) []ValidationWarning {
	var warnings []ValidationWarning
	seen := make(map[joinKey]NodeID) // first join node that used this key

	for _, node := range g.Joins() {
		jd := node.Data.(JoinData)
		key := makeJoinKey(jd.PartA, jd.PartB)
		if firstID, exists := seen[key]; exists {
			warnings = append(warnings, ValidationWarning{
				NodeID:  node.ID,
				Message: fmt.Sprintf("duplicate join: same part pair already joined by node %s", firstID.Short()),
			})
		} else {
			seen[key] = node.ID
		}
	}

	return warnings
}

// ---------------------------------------------------------------------------
// Tier 3: Material warnings
// ---------------------------------------------------------------------------

// validateMaterial runs all Tier 3 material advisory checks.
func validateMaterial(g *DesignGraph) []ValidationWarning {
	var warnings []ValidationWarning
	warnings = append(warnings, validateFingerVsThickness(g)...)
	return warnings
}

// validateFingerVsThickness warns when fingers would be narrower than the
// stock they are cut from.
func validateFingerVsThickness(g *DesignGraph) []ValidationWarning {
	var warnings []ValidationWarning

	for _, node := range g.Joins() {
		jd := node.Data.(JoinData)
		w := g.MinFingerWidth(jd.Params)
		for _, id := range []NodeID{jd.PartA, jd.PartB} {
			part := g.Nodes[id]
			if part == nil {
				continue // dangling references handled by Tier 1
			}
			bd, ok := part.Data.(BoardData)
			if !ok {
				continue
			}
			if t := thickness(bd); w < t {
				warnings = append(warnings, ValidationWarning{
					NodeID: node.ID,
					Message: fmt.Sprintf(
						"min finger width %.2fmm is below the %.2fmm thickness of %q; fingers may break off",
						w, t, part.DisplayName(),
					),
				})
			}
		}
	}

	return warnings
}

// thickness is the smallest board dimension.
func thickness(bd BoardData) float64 {
	return math.Min(bd.Dimensions.X, math.Min(bd.Dimensions.Y, bd.Dimensions.Z))
}
