// Package report summarises an assembly: parts, joints and anchors.
package report

import (
	"github.com/chazu/autolasercut/pkg/assemble"
	"github.com/chazu/autolasercut/pkg/kernel"
)

// Report is the serialisable summary of one build.
type Report struct {
	Script   string         `json:"script" yaml:"script" msgpack:"script"`
	Kernel   string         `json:"kernel" yaml:"kernel" msgpack:"kernel"`
	Waves    int            `json:"waves" yaml:"waves" msgpack:"waves"`
	Parts    []PartRecord   `json:"parts" yaml:"parts" msgpack:"parts"`
	Joints   []JointRecord  `json:"joints" yaml:"joints" msgpack:"joints"`
	Anchors  []AnchorRecord `json:"anchors,omitempty" yaml:"anchors,omitempty" msgpack:"anchors,omitempty"`
	Warnings []string       `json:"warnings,omitempty" yaml:"warnings,omitempty" msgpack:"warnings,omitempty"`
	Files    []string       `json:"files,omitempty" yaml:"files,omitempty" msgpack:"files,omitempty"`
}

// PartRecord describes one built part.
type PartRecord struct {
	Name        string     `json:"name" yaml:"name" msgpack:"name"`
	Volume      float64    `json:"volume" yaml:"volume" msgpack:"volume"`
	BlankVolume float64    `json:"blank_volume" yaml:"blank_volume" msgpack:"blank_volume"`
	Min         [3]float64 `json:"min" yaml:"min,flow" msgpack:"min"`
	Max         [3]float64 `json:"max" yaml:"max,flow" msgpack:"max"`
}

// JointRecord describes one cut joint.
type JointRecord struct {
	PartA       string     `json:"part_a" yaml:"part_a" msgpack:"part_a"`
	PartB       string     `json:"part_b" yaml:"part_b" msgpack:"part_b"`
	Wave        int        `json:"wave" yaml:"wave" msgpack:"wave"`
	Outcome     string     `json:"outcome" yaml:"outcome" msgpack:"outcome"`
	Regions     int        `json:"regions" yaml:"regions" msgpack:"regions"`
	RawStations int        `json:"raw_stations" yaml:"raw_stations" msgpack:"raw_stations"`
	Stations    int        `json:"stations" yaml:"stations" msgpack:"stations"`
	Segments    int        `json:"segments" yaml:"segments" msgpack:"segments"`
	EdgeLength  float64    `json:"edge_length" yaml:"edge_length" msgpack:"edge_length"`
	Width       float64    `json:"width" yaml:"width" msgpack:"width"`
	Axis        [3]float64 `json:"axis" yaml:"axis,flow" msgpack:"axis"`
}

// AnchorRecord is a named point in world space.
type AnchorRecord struct {
	Part  string     `json:"part" yaml:"part" msgpack:"part"`
	Name  string     `json:"name" yaml:"name" msgpack:"name"`
	World [3]float64 `json:"world" yaml:"world,flow" msgpack:"world"`
}

// FromResult summarises res. Volumes are measured with k.
func FromResult(k kernel.Kernel, res *assemble.Result) *Report {
	r := &Report{Waves: res.Waves}
	for _, p := range res.Parts {
		lo, hi := p.Solid.BoundingBox()
		r.Parts = append(r.Parts, PartRecord{
			Name:        p.Name,
			Volume:      k.Volume(p.Solid),
			BlankVolume: k.Volume(p.Blank),
			Min:         lo,
			Max:         hi,
		})
	}
	for _, j := range res.Joints {
		r.Joints = append(r.Joints, JointRecord{
			PartA:       j.PartA,
			PartB:       j.PartB,
			Wave:        j.Wave,
			Outcome:     j.Outcome.String(),
			Regions:     j.Regions,
			RawStations: j.RawStations,
			Stations:    j.Stations,
			Segments:    j.Segments,
			EdgeLength:  j.EdgeLength,
			Width:       j.Width,
			Axis:        [3]float64{j.Axis.X, j.Axis.Y, j.Axis.Z},
		})
	}
	for _, a := range res.Anchors {
		r.Anchors = append(r.Anchors, AnchorRecord{
			Part:  a.Part,
			Name:  a.Name,
			World: [3]float64{a.World.X, a.World.Y, a.World.Z},
		})
	}
	return r
}
