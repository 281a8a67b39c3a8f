package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewBoundsCommand creates the bounds command group.
func NewBoundsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bounds",
		Short: "Inspect, declare and check column bounds",
	}

	cmd.AddCommand(newBoundsListCommand(rootOpts))
	cmd.AddCommand(newBoundsGetCommand(rootOpts))
	cmd.AddCommand(newBoundsSetCommand(rootOpts))
	cmd.AddCommand(newBoundsCheckCommand(rootOpts))
	return cmd
}

type boundsOutput struct {
	Column string `json:"column"`
	Min    any    `json:"min"`
	Max    any    `json:"max"`
}

func newBoundsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every declared column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := rootOpts.loadDocument(cmd.Context())
			if err != nil {
				return err
			}
			reg := doc.Bounds()

			out := make([]boundsOutput, 0, reg.Len())
			for _, column := range reg.Columns() {
				b, _ := reg.Get(column)
				out = append(out, boundsOutput{Column: column, Min: b.Min, Max: b.Max})
			}
			if rootOpts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), out)
			}
			for _, b := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: min=%s max=%s\n", b.Column, formatSide(b.Min), formatSide(b.Max))
			}
			return nil
		},
	}
}

func newBoundsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <column>",
		Short: "Show the bounds declared for a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := rootOpts.loadDocument(cmd.Context())
			if err != nil {
				return err
			}
			b, ok := doc.GetBounds(args[0])
			if !ok {
				return fmt.Errorf("no bounds declared for column %q", args[0])
			}
			if rootOpts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), boundsOutput{Column: args[0], Min: b.Min, Max: b.Max})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: min=%s max=%s\n", args[0], formatSide(b.Min), formatSide(b.Max))
			return nil
		},
	}
}

func newBoundsSetCommand(rootOpts *RootOptions) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "set <column> <min> <max>",
		Short: "Declare the bounds of a column",
		Long: `Declare or replace the bounds of a column.

Numeric arguments are stored as numbers, everything else as text. Use NA for
a side that does not apply. Without --save the change is only checked, not
written back to the document.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := rootOpts.loadDocument(cmd.Context())
			if err != nil {
				return err
			}
			column, lo, hi := args[0], parseLiteral(args[1]), parseLiteral(args[2])
			doc.SetBounds(column, lo, hi)

			if !save {
				fmt.Fprintf(cmd.ErrOrStderr(), "bounds for %s not saved (use --save)\n", column)
			} else if err := doc.Save(cmd.Context(), ""); err != nil {
				return err
			}

			if rootOpts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), boundsOutput{Column: column, Min: lo, Max: hi})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: min=%s max=%s\n", column, formatSide(lo), formatSide(hi))
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "write the document back to its location")
	return cmd
}

type checkOutput struct {
	Column string `json:"column"`
	Value  any    `json:"value"`
	Result string `json:"result"`
}

func newBoundsCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <column> <value>",
		Short: "Classify a value against a column's bounds",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := rootOpts.loadDocument(cmd.Context())
			if err != nil {
				return err
			}
			value := parseLiteral(args[1])
			result, err := doc.CheckBounds(args[0], value)
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), checkOutput{Column: args[0], Value: value, Result: result.String()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

// parseLiteral converts a command-line argument to a bound or check value:
// integers and floats become numbers, everything else stays text.
func parseLiteral(s string) any {
	t := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !strings.ContainsAny(t, "nN") {
		return f
	}
	return s
}
