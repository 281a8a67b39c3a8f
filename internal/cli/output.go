package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/JonMunkholm/aperture/internal/tables"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSide renders a bound side for text output.
func formatSide(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

// printReport writes a seed or validation report.
func printReport(w io.Writer, format string, report *tables.Report) error {
	if format == "json" {
		return printJSON(w, report)
	}

	fmt.Fprintf(w, "table:       %s\n", report.Table)
	fmt.Fprintf(w, "run:         %s\n", report.RunID)
	fmt.Fprintf(w, "rows read:   %d\n", report.RowsRead)
	fmt.Fprintf(w, "rows copied: %d\n", report.RowsCopied)
	fmt.Fprintf(w, "duration:    %s\n", report.Duration)

	if len(report.FailedRows) > 0 {
		fmt.Fprintf(w, "\nfailed rows (%d):\n", len(report.FailedRows))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LINE\tREASON")
		for _, f := range report.FailedRows {
			fmt.Fprintf(tw, "%d\t%s\n", f.Line, f.Reason)
		}
		tw.Flush()
	}

	if len(report.Violations) > 0 {
		fmt.Fprintf(w, "\nviolations (%d):\n", len(report.Violations))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LINE\tCOLUMN\tVALUE\tRESULT")
		for _, v := range report.Violations {
			result := v.Result
			if v.Error != "" {
				result = "error: " + v.Error
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.Line, v.Column, v.Value, result)
		}
		tw.Flush()
	}
	return nil
}
