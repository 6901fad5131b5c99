package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/chazu/autolasercut/pkg/assemble"
	"github.com/chazu/autolasercut/pkg/graph"
	"github.com/chazu/autolasercut/pkg/kernel/boxset"
)

// crossed builds and assembles two slabs overlapping in a 1x1x4 column.
func crossed(t *testing.T) *Report {
	t.Helper()
	g := graph.New()
	a := &graph.Node{ID: graph.NewNodeID("a"), Kind: graph.NodePrimitive, Name: "a",
		Data: graph.BoardData{Dimensions: graph.Vec3{X: 3, Y: 1, Z: 4}}}
	b := &graph.Node{ID: graph.NewNodeID("b"), Kind: graph.NodePrimitive, Name: "b",
		Data: graph.BoardData{Dimensions: graph.Vec3{X: 1, Y: 3, Z: 4}}}
	pb := &graph.Node{ID: graph.NewNodeID("place/b"), Kind: graph.NodeTransform, Children: []graph.NodeID{b.ID},
		Data: graph.TransformData{Translation: &graph.Vec3{X: 1, Y: -1}}}
	j := &graph.Node{ID: graph.NewNodeID("joint"), Kind: graph.NodeJoin,
		Data: graph.JoinData{PartA: a.ID, PartB: b.ID, Params: graph.FingerParams{MinWidth: 1}}}
	anchor := &graph.Node{ID: graph.NewNodeID("anchor"), Kind: graph.NodeAnchor,
		Data: graph.AnchorData{Part: b.ID, Name: "pin", At: graph.Vec3{Z: 2}}}
	root := &graph.Node{ID: graph.NewNodeID("root"), Kind: graph.NodeGroup, Name: "root",
		Children: []graph.NodeID{a.ID, pb.ID, j.ID, anchor.ID}, Data: graph.GroupData{}}
	for _, n := range []*graph.Node{a, b, pb, j, anchor, root} {
		g.AddNode(n)
	}
	g.AddRoot(root.ID)

	k := boxset.New()
	res, err := assemble.New(k).Assemble(context.Background(), g)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	rep := FromResult(k, res)
	rep.Script = "crossed.lisp"
	rep.Kernel = "boxset"
	return rep
}

func TestFromResult(t *testing.T) {
	rep := crossed(t)
	if len(rep.Parts) != 2 || len(rep.Joints) != 1 || len(rep.Anchors) != 1 {
		t.Fatalf("got %d parts, %d joints, %d anchors", len(rep.Parts), len(rep.Joints), len(rep.Anchors))
	}
	p := rep.Parts[0]
	if p.Name != "a" || p.Volume != 10 || p.BlankVolume != 12 {
		t.Errorf("part = %+v", p)
	}
	j := rep.Joints[0]
	if j.Outcome != "interlocked" || j.Segments != 4 || j.Axis != [3]float64{0, 0, 1} {
		t.Errorf("joint = %+v", j)
	}
	if a := rep.Anchors[0]; a.World != [3]float64{1, -1, 2} {
		t.Errorf("anchor world = %v, want (1, -1, 2)", a.World)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"msgpack", FormatMsgpack, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer(FormatJSON, &buf).Render(crossed(t)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	joints := out["joints"].([]any)
	if joints[0].(map[string]any)["part_a"] != "a" {
		t.Errorf("joints = %v", joints)
	}
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer(FormatYAML, &buf).Render(crossed(t)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "axis: [0, 0, 1]") {
		t.Errorf("axis should render as a flow sequence:\n%s", buf.String())
	}
	var got Report
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if got.Script != "crossed.lisp" || got.Joints[0].Stations != 5 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestRenderMsgpack(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer(FormatMsgpack, &buf).Render(crossed(t)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	var got map[string]any
	if err := msgpack.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid msgpack: %v", err)
	}
	if got["kernel"] != "boxset" {
		t.Errorf("kernel = %v", got["kernel"])
	}
}

func TestRenderTable(t *testing.T) {
	rep := crossed(t)
	rep.Warnings = []string{"min finger width is thin"}
	var buf bytes.Buffer
	if err := NewRenderer(FormatTable, &buf).Render(rep); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"PART", "a/b", "interlocked", "b/pin", "warning: min finger width is thin"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}
