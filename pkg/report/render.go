package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatTable   Format = "table"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat parses a format string. The empty string means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml":
		return FormatYAML, nil
	case "msgpack":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be table, json, yaml, or msgpack)", s)
	}
}

// Renderer handles output formatting.
type Renderer struct {
	format Format
	out    io.Writer
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(format Format, out io.Writer) *Renderer {
	return &Renderer{format: format, out: out}
}

// Render outputs the report in the configured format.
func (r *Renderer) Render(rep *Report) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case FormatMsgpack:
		b, err := msgpack.Marshal(rep)
		if err != nil {
			return fmt.Errorf("report: msgpack: %w", err)
		}
		_, err = r.out.Write(b)
		return err
	case FormatTable:
		return r.renderTable(rep)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

func (r *Renderer) renderTable(rep *Report) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "PART\tVOLUME\tREMOVED")
	for _, p := range rep.Parts {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\n", p.Name, p.Volume, p.BlankVolume-p.Volume)
	}
	fmt.Fprintln(w)

	if len(rep.Joints) == 0 {
		fmt.Fprintln(w, "(no joints)")
	} else {
		fmt.Fprintln(w, "JOINT\tWAVE\tOUTCOME\tSEGMENTS\tWIDTH\tEDGE")
		for _, j := range rep.Joints {
			fmt.Fprintf(w, "%s/%s\t%d\t%s\t%d\t%.2f\t%.2f\n",
				j.PartA, j.PartB, j.Wave, j.Outcome, j.Segments, j.Width, j.EdgeLength)
		}
	}

	if len(rep.Anchors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "ANCHOR\tX\tY\tZ")
		for _, a := range rep.Anchors {
			fmt.Fprintf(w, "%s/%s\t%.2f\t%.2f\t%.2f\n", a.Part, a.Name, a.World[0], a.World[1], a.World[2])
		}
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	for _, f := range rep.Files {
		fmt.Fprintf(w, "wrote %s\n", f)
	}
	return w.Flush()
}
