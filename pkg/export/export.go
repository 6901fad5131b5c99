// Package export writes assembled parts to disk: STL meshes for preview
// and 2D sections (SVG, DXF) for the laser cutter.
package export

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"

	"github.com/chazu/autolasercut/pkg/assemble"
	"github.com/chazu/autolasercut/pkg/kernel"
)

// ErrNoSDF is returned for solids that cannot expose a signed distance
// function.
var ErrNoSDF = errors.New("export: solid has no signed distance function")

// sdfSolid is implemented by the solids of both kernels.
type sdfSolid interface {
	SDF3() (sdf.SDF3, error)
}

// Formats selects the files written per part.
type Formats struct {
	STL bool `yaml:"stl"`
	SVG bool `yaml:"svg"`
	DXF bool `yaml:"dxf"`
}

const svgLineStyle = "fill:none;stroke:black;stroke-width:0.1"

// DefaultMeshCells is the marching-squares resolution along the longest
// side of a section.
const DefaultMeshCells = 200

// Exporter writes parts into a directory.
type Exporter struct {
	k         kernel.Kernel
	dir       string
	formats   Formats
	meshCells int
	log       *zap.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMeshCells sets the section rendering resolution.
func WithMeshCells(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.meshCells = n
		}
	}
}

// New returns an Exporter writing the given formats into dir.
func New(k kernel.Kernel, dir string, formats Formats, opts ...Option) *Exporter {
	e := &Exporter{
		k:         k,
		dir:       dir,
		formats:   formats,
		meshCells: DefaultMeshCells,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Export writes every part and returns the paths written, in part order.
func (e *Exporter) Export(parts []*assemble.Part) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	var written []string
	for _, p := range parts {
		paths, err := e.ExportPart(p.Name, p.Solid)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// ExportPart writes one solid under the given part name.
func (e *Exporter) ExportPart(name string, s kernel.Solid) ([]string, error) {
	base := filepath.Join(e.dir, FileName(name))
	var written []string

	if e.formats.STL {
		path := base + ".stl"
		if err := e.writeSTL(path, s); err != nil {
			return written, fmt.Errorf("export: %s: %w", name, err)
		}
		written = append(written, path)
	}

	if !e.formats.SVG && !e.formats.DXF {
		return written, nil
	}
	sec, err := Section(s)
	if err != nil {
		return written, fmt.Errorf("export: %s: %w", name, err)
	}
	lines := e.outline(sec)
	if e.formats.SVG {
		path := base + ".svg"
		if err := render.SaveSVG(path, svgLineStyle, lines); err != nil {
			return written, fmt.Errorf("export: %s: %w", name, err)
		}
		written = append(written, path)
	}
	if e.formats.DXF {
		path := base + ".dxf"
		if err := render.SaveDXF(path, lines); err != nil {
			return written, fmt.Errorf("export: %s: %w", name, err)
		}
		written = append(written, path)
	}
	e.log.Debug("part exported", zap.String("part", name), zap.Strings("files", written))
	return written, nil
}

func (e *Exporter) writeSTL(path string, s kernel.Solid) error {
	m, err := e.k.ToMesh(s)
	if err != nil {
		return err
	}
	return SaveSTL(path, m)
}

// lineSink collects the segments a 2D renderer emits.
type lineSink struct {
	mu    sync.Mutex
	lines []*sdf.Line2
}

func (l *lineSink) Write(in []*sdf.Line2) error {
	l.mu.Lock()
	l.lines = append(l.lines, in...)
	l.mu.Unlock()
	return nil
}

func (l *lineSink) Close() error { return nil }

// outline traces a section with marching squares.
func (e *Exporter) outline(sec sdf.SDF2) []*sdf.Line2 {
	var sink lineSink
	render.NewMarchingSquaresQuadtree(e.meshCells).Render(sec, &sink)
	return sink.lines
}

// Section returns the outline of a sheet: a planar slice through the
// middle of its thinnest bounding-box dimension. The sheet is first moved
// so that its centre is the origin and its thickness runs along Z.
func Section(s kernel.Solid) (sdf.SDF2, error) {
	ss, ok := s.(sdfSolid)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNoSDF, s)
	}
	s3, err := ss.SDF3()
	if err != nil {
		return nil, err
	}
	lo, hi := s.BoundingBox()
	axis := 0
	for i := 1; i < 3; i++ {
		if hi[i]-lo[i] < hi[axis]-lo[axis] {
			axis = i
		}
	}
	mid := v3.Vec{X: (lo[0] + hi[0]) / 2, Y: (lo[1] + hi[1]) / 2, Z: (lo[2] + hi[2]) / 2}
	m := sdf.Translate3d(mid.Neg())
	switch axis {
	case 0:
		m = sdf.RotateY(-math.Pi / 2).Mul(m)
	case 1:
		m = sdf.RotateX(math.Pi / 2).Mul(m)
	}
	return sdf.Slice2D(sdf.Transform3D(s3, m), v3.Vec{}, v3.Vec{Z: 1}), nil
}

// FileName turns a part name into a safe base file name.
func FileName(part string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, part)
}
