package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/autolasercut/pkg/align"
	"github.com/chazu/autolasercut/pkg/fingerjoint"
	"github.com/chazu/autolasercut/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: finger-joint -> finger_joint
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpMaterial wraps a graph.MaterialSpec so it can be passed between builtins.
type sexpMaterial struct {
	spec graph.MaterialSpec
}

func (m *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material :name %q :thickness %g)", m.spec.Name, m.spec.Thickness)
}
func (m *sexpMaterial) Type() *zygo.RegisteredType { return nil }

// sexpBoard wraps a graph.BoardData so it can be returned from `board`
// and consumed by `defpart`.
type sexpBoard struct {
	data graph.BoardData
}

func (b *sexpBoard) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(sheet %gx%gx%g)", b.data.Dimensions.X, b.data.Dimensions.Y, b.data.Dimensions.Z)
}
func (b *sexpBoard) Type() *zygo.RegisteredType { return nil }

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(noderef %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a graph.Vec3.
type sexpVec3 struct {
	vec graph.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value; treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// float reads an optional numeric keyword into dst.
func (pa kwArgs) float(fn, key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = f
	return nil
}

// vec reads an optional vec3 keyword.
func (pa kwArgs) vec(fn, key string) (*graph.Vec3, error) {
	v, ok := pa.kw[key]
	if !ok {
		return nil, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	return &vec, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean. A bare keyword flag (nil) counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_odd) and plain strings ("odd").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (graph.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	return graph.NodeID{}, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (graph.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return graph.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toMaterial extracts a MaterialSpec from a sexpMaterial.
func toMaterial(s zygo.Sexp) (graph.MaterialSpec, error) {
	if m, ok := s.(*sexpMaterial); ok {
		return m.spec, nil
	}
	return graph.MaterialSpec{}, fmt.Errorf("expected material, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Graph builder
// ---------------------------------------------------------------------------

// builder is the per-evaluation state shared by the builtins. Builtins run
// on the single goroutine driving the zygomys environment.
type builder struct {
	g *graph.DesignGraph
	n int // suffix counter for anonymous nodes
}

func newBuilder(g *graph.DesignGraph) *builder {
	return &builder{g: g}
}

// nodeID derives an ID from path plus a per-evaluation ordinal, so the
// same script always produces the same IDs.
func (b *builder) nodeID(path string) graph.NodeID {
	b.n++
	return graph.NewNodeID(fmt.Sprintf("%s/%d", path, b.n))
}

// primitive follows placements down to the primitive they wrap.
func (b *builder) primitive(id graph.NodeID) (*graph.Node, error) {
	for depth := 0; ; depth++ {
		n := b.g.Get(id)
		switch {
		case n == nil:
			return nil, fmt.Errorf("unknown node %s", id.Short())
		case n.Kind == graph.NodePrimitive:
			return n, nil
		case n.Kind == graph.NodeTransform && len(n.Children) == 1 && depth < 64:
			id = n.Children[0]
		default:
			return nil, fmt.Errorf("%s %q is not a part", n.Kind, n.DisplayName())
		}
	}
}

// partRef reads a keyword naming a part, directly or through placements.
func (b *builder) partRef(fn string, pa kwArgs, key string) (*graph.Node, error) {
	v, ok := pa.kw[key]
	if !ok {
		return nil, fmt.Errorf("%s: missing :%s", fn, key)
	}
	id, err := toNodeRef(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	n, err := b.primitive(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	return n, nil
}

// fingerParams reads the joint options shared by finger-joint and
// finger-joints. Unset options take the graph defaults.
func (b *builder) fingerParams(fn string, pa kwArgs) (graph.FingerParams, error) {
	p := graph.FingerParams{
		Type:       b.g.Defaults.FingerType,
		Components: b.g.Defaults.Components,
	}
	if err := pa.float(fn, "min-width", &p.MinWidth); err != nil {
		return p, err
	}
	var err error
	if v, ok := pa.kw["swap"]; ok {
		if p.Swap, err = toBool(v); err != nil {
			return p, fmt.Errorf("%s: swap: %w", fn, err)
		}
	}
	if v, ok := pa.kw["type"]; ok {
		s, err := toKeywordString(v)
		if err != nil {
			return p, fmt.Errorf("%s: type: %w", fn, err)
		}
		if p.Type, err = fingerjoint.ParseFingerType(s); err != nil {
			return p, fmt.Errorf("%s: %w", fn, err)
		}
	}
	if v, ok := pa.kw["components"]; ok {
		s, err := toKeywordString(v)
		if err != nil {
			return p, fmt.Errorf("%s: components: %w", fn, err)
		}
		if p.Components, err = fingerjoint.ParseComponentPolicy(s); err != nil {
			return p, fmt.Errorf("%s: %w", fn, err)
		}
	}
	return p, nil
}

// addJoin records a join between two parts.
func (b *builder) addJoin(partA, partB *graph.Node, params graph.FingerParams) *sexpNodeRef {
	id := b.nodeID("finger-joint/" + partA.DisplayName() + "/" + partB.DisplayName())
	b.g.AddNode(&graph.Node{
		ID:   id,
		Kind: graph.NodeJoin,
		Data: graph.JoinData{PartA: partA.ID, PartB: partB.ID, Params: params},
	})
	return &sexpNodeRef{id: id}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the DSL builtins into a zygomys environment.
// The builtins populate the builder's DesignGraph during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	g := b.g

	// -----------------------------------------------------------------------
	// (material :name "birch-ply" :thickness 3 :notes "...")
	// -----------------------------------------------------------------------
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		spec := graph.MaterialSpec{}

		for key, dst := range map[string]*string{"name": &spec.Name, "notes": &spec.Notes} {
			if v, ok := pa.kw[key]; ok {
				s, err := toString(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("material: %s: %w", key, err)
				}
				*dst = s
			}
		}
		if err := pa.float("material", "thickness", &spec.Thickness); err != nil {
			return zygo.SexpNull, err
		}

		return &sexpMaterial{spec: spec}, nil
	})

	// -----------------------------------------------------------------------
	// (defaults :min-width 6 :material ply)
	// -----------------------------------------------------------------------
	env.AddFunction("defaults", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.float("defaults", "min-width", &g.Defaults.MinFingerWidth); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["material"]; ok {
			m, err := toMaterial(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defaults: material: %w", err)
			}
			g.Defaults.Material = m
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (sheet :length 100 :width 60 :thickness 3 :material ply)
	// (board ...) is the same builtin. Thickness falls back to the
	// material's, then the default material's.
	// -----------------------------------------------------------------------
	sheet := func(fn string) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			bd := graph.BoardData{Material: g.Defaults.Material}

			if v, ok := pa.kw["material"]; ok {
				m, err := toMaterial(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: material: %w", fn, err)
				}
				bd.Material = m
			}
			bd.Dimensions.Z = bd.Material.Thickness
			if err := pa.float(fn, "length", &bd.Dimensions.X); err != nil {
				return zygo.SexpNull, err
			}
			if err := pa.float(fn, "width", &bd.Dimensions.Y); err != nil {
				return zygo.SexpNull, err
			}
			if err := pa.float(fn, "thickness", &bd.Dimensions.Z); err != nil {
				return zygo.SexpNull, err
			}

			return &sexpBoard{data: bd}, nil
		}
	}
	env.AddFunction("sheet", sheet("sheet"))
	env.AddFunction("board", sheet("board"))

	// -----------------------------------------------------------------------
	// (defpart "name" (sheet ...))
	// -----------------------------------------------------------------------
	env.AddFunction("defpart", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("defpart requires a name and a body expression")
		}

		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defpart: name: %w", err)
		}
		if g.Lookup(partName) != nil {
			return zygo.SexpNull, fmt.Errorf("defpart: %q is already defined", partName)
		}

		body, ok := args[1].(*sexpBoard)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("defpart: expected sheet expression, got %T", args[1])
		}

		id := graph.NewNodeID("defpart/" + partName)
		g.AddNode(&graph.Node{
			ID:   id,
			Kind: graph.NodePrimitive,
			Name: partName,
			Data: body.data,
		})

		return &sexpNodeRef{id: id, name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (part "name")
	// -----------------------------------------------------------------------
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("part requires a name argument")
		}

		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}

		n := g.Lookup(partName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("part: no part named %q", partName)
		}

		return &sexpNodeRef{id: n.ID, name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}

		return &sexpVec3{vec: graph.Vec3{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (place (part "front") :align :ccl :rotate (vec3 90 0 0) :at (vec3 0 0 3))
	// -----------------------------------------------------------------------
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a part reference as first argument")
		}

		childID, err := toNodeRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: part: %w", err)
		}

		td := graph.TransformData{}
		if td.Translation, err = pa.vec("place", "at"); err != nil {
			return zygo.SexpNull, err
		}
		if td.Rotation, err = pa.vec("place", "rotate"); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["align"]; ok {
			code, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: align: %w", err)
			}
			if _, err := align.Parse(code); err != nil {
				return zygo.SexpNull, fmt.Errorf("place: %w", err)
			}
			td.Align = strings.ToUpper(code)
		}

		path := "place"
		if child := g.Get(childID); child != nil {
			path += "/" + child.DisplayName()
		}
		id := b.nodeID(path)
		g.AddNode(&graph.Node{
			ID:       id,
			Kind:     graph.NodeTransform,
			Children: []graph.NodeID{childID},
			Data:     td,
		})

		return &sexpNodeRef{id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (finger-joint :part-a front :part-b side :min-width 6 :swap true
	//               :type :even :components :each)
	//
	// Registered as "finger_joint"; the preprocessor converts finger-joint.
	// Parts may be given directly or through their placements.
	// -----------------------------------------------------------------------
	env.AddFunction("finger_joint", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		partA, err := b.partRef("finger-joint", pa, "part-a")
		if err != nil {
			return zygo.SexpNull, err
		}
		partB, err := b.partRef("finger-joint", pa, "part-b")
		if err != nil {
			return zygo.SexpNull, err
		}
		params, err := b.fingerParams("finger-joint", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.addJoin(partA, partB, params), nil
	})

	// -----------------------------------------------------------------------
	// (finger-joints bottom front back left right :min-width 6)
	//
	// Joins every pair of the listed parts, earlier part as part A, in
	// declaration order. Pairs that never touch are kept and come out as
	// no-contact joints. Takes the same options as finger-joint and
	// returns the list of joints.
	// -----------------------------------------------------------------------
	env.AddFunction("finger_joints", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		var parts []*graph.Node
		for i, arg := range pa.positional {
			id, err := toNodeRef(arg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("finger-joints: part %d: %w", i+1, err)
			}
			n, err := b.primitive(id)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("finger-joints: part %d: %w", i+1, err)
			}
			for _, seen := range parts {
				if seen.ID == n.ID {
					return zygo.SexpNull, fmt.Errorf("finger-joints: %q is listed twice", n.DisplayName())
				}
			}
			parts = append(parts, n)
		}
		if len(parts) < 2 {
			return zygo.SexpNull, fmt.Errorf("finger-joints requires at least two parts, got %d", len(parts))
		}
		params, err := b.fingerParams("finger-joints", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		var joins []zygo.Sexp
		for i := range parts {
			for j := i + 1; j < len(parts); j++ {
				joins = append(joins, b.addJoin(parts[i], parts[j], params))
			}
		}
		return zygo.MakeList(joins), nil
	})

	// -----------------------------------------------------------------------
	// (anchor :part horn :name "pivot" :at (vec3 -3 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("anchor", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		part, err := b.partRef("anchor", pa, "part")
		if err != nil {
			return zygo.SexpNull, err
		}
		ad := graph.AnchorData{Part: part.ID}
		if v, ok := pa.kw["name"]; ok {
			if ad.Name, err = toKeywordString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("anchor: name: %w", err)
			}
		}
		at, err := pa.vec("anchor", "at")
		if err != nil {
			return zygo.SexpNull, err
		}
		if at != nil {
			ad.At = *at
		}

		id := b.nodeID("anchor/" + part.DisplayName() + "/" + ad.Name)
		g.AddNode(&graph.Node{
			ID:   id,
			Kind: graph.NodeAnchor,
			Data: ad,
		})

		return &sexpNodeRef{id: id, name: ad.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (assembly "name" (place ...) (finger-joint ...) (list ...) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("assembly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("assembly requires a name argument")
		}

		asmName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: name: %w", err)
		}

		var children []graph.NodeID
		var collect func(i int, s zygo.Sexp) error
		collect = func(i int, s zygo.Sexp) error {
			if ref, ok := s.(*sexpNodeRef); ok {
				children = append(children, ref.id)
				return nil
			}
			items, err := sexpListToSlice(s)
			if err != nil {
				return fmt.Errorf("assembly: child %d: expected node reference, got %T (%s)",
					i, s, s.SexpString(nil))
			}
			for _, item := range items {
				if err := collect(i, item); err != nil {
					return err
				}
			}
			return nil
		}
		for i := 1; i < len(args); i++ {
			if err := collect(i, args[i]); err != nil {
				return zygo.SexpNull, err
			}
		}

		id := graph.NewNodeID("assembly/" + asmName)
		g.AddNode(&graph.Node{
			ID:       id,
			Kind:     graph.NodeGroup,
			Name:     asmName,
			Children: children,
			Data:     graph.GroupData{},
		})
		g.AddRoot(id)

		return &sexpNodeRef{id: id, name: asmName}, nil
	})
}
