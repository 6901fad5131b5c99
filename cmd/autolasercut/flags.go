package main

import (
	"github.com/urfave/cli/v2"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

var (
	// FormatFlag selects the report format.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Report format: table, json, yaml, msgpack",
	}

	// OutputFlag overrides output_dir from the config file.
	OutputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Directory for exported files",
	}
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to an autolasercut.yaml file",
			EnvVars: []string{"AUTOLASERCUT_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "kernel",
			Usage: "Geometry kernel: boxset or sdfx",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Joints cut in parallel (0 means one per CPU)",
		},
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		OutputFlag,
		FormatFlag,
		&cli.BoolFlag{Name: "stl", Usage: "Write an STL mesh per part"},
		&cli.BoolFlag{Name: "svg", Usage: "Write an SVG outline per part"},
		&cli.BoolFlag{Name: "dxf", Usage: "Write a DXF outline per part"},
	}
}
