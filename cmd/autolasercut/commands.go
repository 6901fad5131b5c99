package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/chazu/autolasercut/pkg/config"
	"github.com/chazu/autolasercut/pkg/logging"
	"github.com/chazu/autolasercut/pkg/report"
)

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Cut every joint and export the parts",
		ArgsUsage: "<script.lisp>",
		Flags:     exportFlags(),
		Action:    buildAction,
	}
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Cut every joint and print the report without writing files",
		ArgsUsage: "<script.lisp>",
		Flags:     []cli.Flag{FormatFlag},
		Action:    planAction,
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Evaluate and validate a script without building geometry",
		ArgsUsage: "<script.lisp>",
		Action:    checkAction,
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintf(c.App.Writer, "autolasercut %s (commit: %s)\n", version, commit)
			return err
		},
	}
}

func buildAction(c *cli.Context) error {
	app, cfg, err := setup(c)
	if err != nil {
		return err
	}
	r, err := renderer(c)
	if err != nil {
		return err
	}
	source, err := readScript(c)
	if err != nil {
		return err
	}

	result := app.Evaluate(c.Context, source)
	if !result.OK() {
		return failed(c.App.ErrWriter, result)
	}
	result.Report.Script = c.Args().First()
	dir := cfg.OutputDir
	if c.IsSet("output") {
		dir = c.String("output")
	}
	if _, err := app.Export(result, dir); err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	return r.Render(result.Report)
}

func planAction(c *cli.Context) error {
	app, _, err := setup(c)
	if err != nil {
		return err
	}
	r, err := renderer(c)
	if err != nil {
		return err
	}
	source, err := readScript(c)
	if err != nil {
		return err
	}

	result := app.Evaluate(c.Context, source)
	if !result.OK() {
		return failed(c.App.ErrWriter, result)
	}
	result.Report.Script = c.Args().First()
	return r.Render(result.Report)
}

func checkAction(c *cli.Context) error {
	app, _, err := setup(c)
	if err != nil {
		return err
	}
	source, err := readScript(c)
	if err != nil {
		return err
	}

	result := app.Check(c.Context, source)
	for _, w := range result.Warnings {
		fmt.Fprintf(c.App.ErrWriter, "warning: %s\n", w)
	}
	if !result.OK() {
		return failed(c.App.ErrWriter, result)
	}
	fmt.Fprintf(c.App.Writer, "ok: %d parts, %d joints\n", len(result.Graph.Parts()), len(result.Graph.Joins()))
	return nil
}

// setup loads the configuration, applies flag overrides and builds the App.
func setup(c *cli.Context) (*App, *config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, nil, cli.Exit(err.Error(), exitUsage)
		}
		cfg = loaded
	}
	if c.IsSet("kernel") {
		cfg.Kernel = c.String("kernel")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	// Any format flag replaces the configured set.
	if c.IsSet("stl") || c.IsSet("svg") || c.IsSet("dxf") {
		cfg.Export.STL = c.Bool("stl")
		cfg.Export.SVG = c.Bool("svg")
		cfg.Export.DXF = c.Bool("dxf")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, cli.Exit(err.Error(), exitUsage)
	}

	log, err := logging.New(c.App.ErrWriter, cfg.LogLevel)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), exitUsage)
	}
	app, err := NewApp(cfg, log)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), exitUsage)
	}
	log.Debug("configured",
		zap.String("kernel", cfg.Kernel),
		zap.Int("workers", cfg.Workers),
		zap.Float64("min_finger_width", cfg.MinFingerWidth),
	)
	return app, cfg, nil
}

func renderer(c *cli.Context) (*report.Renderer, error) {
	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	return report.NewRenderer(format, c.App.Writer), nil
}

// readScript reads the script named by the first argument; "-" reads stdin.
func readScript(c *cli.Context) (string, error) {
	path := c.Args().First()
	if path == "" {
		return "", cli.Exit("missing script argument", exitUsage)
	}
	if c.Args().Len() > 1 {
		return "", cli.Exit(fmt.Sprintf("unexpected arguments: %s", strings.Join(c.Args().Tail(), " ")), exitUsage)
	}
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(c.App.Reader)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", cli.Exit(err.Error(), exitUsage)
	}
	return string(b), nil
}

// failed prints every diagnostic and returns the exit error.
func failed(w io.Writer, result *EvalResult) error {
	for _, d := range result.Errors {
		fmt.Fprintf(w, "error: %s\n", d)
	}
	return cli.Exit(fmt.Sprintf("%d error(s)", len(result.Errors)), exitFailure)
}

