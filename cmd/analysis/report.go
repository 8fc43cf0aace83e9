package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validFormat(format string) bool {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return true
	}
	return false
}

// writeStructured writes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, format)
	}
}

func verdict(ok bool, pass, fail string) string {
	if ok {
		return color.GreenString(pass)
	}
	return color.RedString(fail)
}

// writeAccuracy renders accuracy results in the given format.
func writeAccuracy(w io.Writer, format string, results []AccuracyResult) error {
	if format != formatTable {
		return writeStructured(w, format, results)
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Registers", "Memory", "Jaccard", "Mean", "Bias", "Std Dev", "Std Error", "Result"})

	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
		tbl.AppendRow(table.Row{
			r.Registers,
			humanize.IBytes(uint64(r.MemoryBytes)),
			fmt.Sprintf("%.4f", r.Jaccard),
			fmt.Sprintf("%.4f", r.MeanEstimate),
			fmt.Sprintf("%+.4f", r.Bias),
			fmt.Sprintf("%.4f", r.StdDev),
			fmt.Sprintf("%.4f", r.StdError),
			verdict(r.Pass, "PASS", "FAIL"),
		})
	}

	tbl.AppendFooter(table.Row{"", "", "", "", "", "", "", fmt.Sprintf("%d/%d passed", passed, len(results))})
	tbl.Render()

	return nil
}

// writeLanes renders a lane report in the given format.
func writeLanes(w io.Writer, format string, report LaneReport) error {
	if format != formatTable {
		return writeStructured(w, format, report)
	}

	info := table.NewWriter()
	info.SetOutputMirror(w)
	info.SetStyle(table.StyleLight)
	info.AppendRows([]table.Row{
		{"CPU", report.CPU},
		{"Vendor", report.Vendor},
		{"Cache line", humanize.IBytes(uint64(report.CacheLine))},
		{"Features", fmt.Sprint(report.Features)},
		{"Detected lanes", report.Detected},
	})
	info.Render()

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Lanes", "Registers", "Keys", "Estimate", "Result"})

	for _, c := range report.Checks {
		tbl.AppendRow(table.Row{
			c.Lanes,
			c.Registers,
			c.Keys,
			fmt.Sprintf("%.4f", c.Estimate),
			verdict(c.Match, "MATCH", "MISMATCH"),
		})
	}

	tbl.Render()

	return nil
}
