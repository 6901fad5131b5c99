// Package config handles the autolasercut.yaml file. All values are
// optional and act as defaults; CLI flags always override them.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/chazu/autolasercut/pkg/engine"
	"github.com/chazu/autolasercut/pkg/export"
	"github.com/chazu/autolasercut/pkg/fingerjoint"
	"github.com/chazu/autolasercut/pkg/graph"
	"github.com/chazu/autolasercut/pkg/logging"
)

// Kernel names.
const (
	KernelBoxset = "boxset"
	KernelSdfx   = "sdfx"
)

// Config represents an autolasercut.yaml configuration file.
type Config struct {
	Kernel      string `yaml:"kernel"`
	SampleCells int    `yaml:"sample_cells"`
	MeshCells   int    `yaml:"mesh_cells"`

	MinFingerWidth float64         `yaml:"min_finger_width"`
	FingerType     string          `yaml:"finger_type"`
	Components     string          `yaml:"components"`
	MaxSegments    int             `yaml:"max_segments"`
	Tolerance      ToleranceConfig `yaml:"tolerance"`

	EvalTimeout time.Duration `yaml:"eval_timeout"`

	Workers   int            `yaml:"workers"`
	OutputDir string         `yaml:"output_dir"`
	Export    export.Formats `yaml:"export"`
	LogLevel  string         `yaml:"log_level"`
}

// ToleranceConfig mirrors fingerjoint.Tolerance.
type ToleranceConfig struct {
	Volume float64 `yaml:"volume"`
	Length float64 `yaml:"length"`
	Side   float64 `yaml:"side"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	t := fingerjoint.DefaultTolerance
	return &Config{
		Kernel:         KernelBoxset,
		SampleCells:    64,
		MeshCells:      export.DefaultMeshCells,
		MinFingerWidth: graph.DefaultMinFingerWidth,
		FingerType:     fingerjoint.FingerAny.String(),
		Components:     fingerjoint.RejectMultiple.String(),
		MaxSegments:    fingerjoint.DefaultMaxSegments,
		Tolerance:      ToleranceConfig{Volume: t.Volume, Length: t.Length, Side: t.Side},
		EvalTimeout:    engine.DefaultTimeout,
		OutputDir:      "out",
		Export:         export.Formats{STL: true, SVG: true},
		LogLevel:       logging.DefaultLevel,
	}
}

// applyDefaults fills zero values from Default.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Kernel == "" {
		c.Kernel = d.Kernel
	}
	if c.SampleCells == 0 {
		c.SampleCells = d.SampleCells
	}
	if c.MeshCells == 0 {
		c.MeshCells = d.MeshCells
	}
	if c.MinFingerWidth == 0 {
		c.MinFingerWidth = d.MinFingerWidth
	}
	if c.FingerType == "" {
		c.FingerType = d.FingerType
	}
	if c.Components == "" {
		c.Components = d.Components
	}
	if c.MaxSegments == 0 {
		c.MaxSegments = d.MaxSegments
	}
	if c.Tolerance == (ToleranceConfig{}) {
		c.Tolerance = d.Tolerance
	}
	if c.EvalTimeout == 0 {
		c.EvalTimeout = d.EvalTimeout
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.Export == (export.Formats{}) {
		c.Export = d.Export
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	switch c.Kernel {
	case KernelBoxset, KernelSdfx:
	default:
		return fmt.Errorf("config: kernel: unknown kernel %q (must be boxset or sdfx)", c.Kernel)
	}
	if c.SampleCells < 2 {
		return fmt.Errorf("config: sample_cells: %d is too small", c.SampleCells)
	}
	if c.MeshCells < 2 {
		return fmt.Errorf("config: mesh_cells: %d is too small", c.MeshCells)
	}
	if !(c.MinFingerWidth > 0) || math.IsInf(c.MinFingerWidth, 0) {
		return fmt.Errorf("config: min_finger_width: %g must be positive", c.MinFingerWidth)
	}
	if _, err := fingerjoint.ParseFingerType(c.FingerType); err != nil {
		return fmt.Errorf("config: finger_type: %w", err)
	}
	if _, err := fingerjoint.ParseComponentPolicy(c.Components); err != nil {
		return fmt.Errorf("config: components: %w", err)
	}
	if c.MaxSegments < 0 {
		return fmt.Errorf("config: max_segments: %d must not be negative", c.MaxSegments)
	}
	t := c.Tolerance
	if t.Volume < 0 || t.Length < 0 || t.Side < 0 {
		return fmt.Errorf("config: tolerance: values must not be negative")
	}
	if c.EvalTimeout < 0 {
		return fmt.Errorf("config: eval_timeout: %s must not be negative", c.EvalTimeout)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers: %d must not be negative", c.Workers)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	return nil
}

// JointDefaults returns the parsed finger type and component policy.
// It assumes Validate succeeded.
func (c *Config) JointDefaults() (fingerjoint.FingerType, fingerjoint.ComponentPolicy) {
	ft, _ := fingerjoint.ParseFingerType(c.FingerType)
	cp, _ := fingerjoint.ParseComponentPolicy(c.Components)
	return ft, cp
}

// GeneratorTolerance converts the tolerance section.
func (c *Config) GeneratorTolerance() fingerjoint.Tolerance {
	return fingerjoint.Tolerance{Volume: c.Tolerance.Volume, Length: c.Tolerance.Length, Side: c.Tolerance.Side}
}
