// Package main provides the autolasercut CLI.
//
// Usage:
//
//	autolasercut [global options] <command> <script.lisp>
//
// Exit codes:
//   - 0: success
//   - 1: the script or a joint failed
//   - 2: bad usage or configuration
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		// ExitErrHandler already handled cli.ExitCoder errors.
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:           "autolasercut",
		Usage:          "Cut finger joints between sheet parts and export them for laser cutting",
		Version:        fmt.Sprintf("%s (commit: %s)", version, commit),
		ExitErrHandler: exitErrHandler,
		Flags:          globalFlags(),
		Commands: []*cli.Command{
			buildCommand(),
			planCommand(),
			checkCommand(),
			versionCommand(),
		},
	}
}

// exitErrHandler preserves exit codes from cli.Exit.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(2)
}
