package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/aperture/internal/tables"
)

// NewTablesCommand creates the tables command group.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Create, drop, seed and dump pipeline tables",
	}

	cmd.AddCommand(newTablesListCommand(rootOpts))
	cmd.AddCommand(newTablesCreateCommand(rootOpts))
	cmd.AddCommand(newTablesDropCommand(rootOpts))
	cmd.AddCommand(newTablesSeedCommand(rootOpts))
	cmd.AddCommand(newTablesDumpCommand(rootOpts))
	return cmd
}

// tableArg completes and resolves a registered table name.
func tableArg(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveDefault
	}
	return tables.Names(), cobra.ShellCompDirectiveNoFileComp
}

func newTablesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all := tables.All()
			if rootOpts.Format == "json" {
				type tableOutput struct {
					Name        string   `json:"name"`
					IndexColumn string   `json:"index_column,omitempty"`
					Columns     []string `json:"columns"`
				}
				out := make([]tableOutput, len(all))
				for i, t := range all {
					out[i] = tableOutput{Name: t.Name, IndexColumn: t.IndexColumn, Columns: t.ColumnNames()}
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TABLE\tINDEX\tCOLUMNS")
			for _, t := range all {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", t.Name, formatSide(nilIfEmpty(t.IndexColumn)), len(t.Columns))
			}
			return tw.Flush()
		},
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func newTablesCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:               "create <table>",
		Short:             "Create a table and its schema if they do not exist",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: tableArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tables.Lookup(args[0])
			if err != nil {
				return err
			}
			store, closeDB, err := rootOpts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := store.CreateTable(cmd.Context(), t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s.%s\n", store.Schema(), t.Name)
			return nil
		},
	}
}

func newTablesDropCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:               "drop <table>",
		Short:             "Drop a table if it exists",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: tableArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tables.Lookup(args[0])
			if err != nil {
				return err
			}
			store, closeDB, err := rootOpts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := store.DeleteTable(cmd.Context(), t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped %s.%s\n", store.Schema(), t.Name)
			return nil
		},
	}
}

func newTablesSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		checkBounds    bool
		skipViolations bool
	)

	cmd := &cobra.Command{
		Use:   "seed <table> [csv]",
		Short: "Bulk-load a CSV file into a table",
		Long: `Create the table if needed and bulk-load a CSV file into it.

The header must name exactly the table's columns, in any order. Rows that
cannot be converted are reported and skipped. With --check-bounds every cell
is also checked against the document's column bounds.

When no file is given, ctran_data is seeded from the sample file in the
assets directory.`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: tableArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tables.Lookup(args[0])
			if err != nil {
				return err
			}
			path, err := seedPath(rootOpts, t, args[1:])
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			opts := tables.SeedOptions{SkipViolations: skipViolations}
			if checkBounds || skipViolations {
				doc, err := rootOpts.loadDocument(cmd.Context())
				if err != nil {
					return err
				}
				opts.Bounds = doc.Bounds()
			}

			store, closeDB, err := rootOpts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			report, err := store.Seed(cmd.Context(), t, f, opts)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), rootOpts.Format, report)
		},
	}

	cmd.Flags().BoolVar(&checkBounds, "check-bounds", false, "check every cell against the document's column bounds")
	cmd.Flags().BoolVar(&skipViolations, "skip-violations", false, "leave rows with bound violations out of the load (implies --check-bounds)")
	return cmd
}

// seedPath returns the CSV to seed t from: the given argument, or the
// sample file for ctran_data.
func seedPath(rootOpts *RootOptions, t tables.Table, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if t.Name != tables.CtranData.Name {
		return "", fmt.Errorf("no sample file for %s: pass a CSV path", t.Name)
	}
	return filepath.Join(rootOpts.settings.Pipeline.AssetsDir, tables.CtranSampleFile), nil
}

func newTablesDumpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:               "dump <table>",
		Short:             "Write every row of a table as CSV",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: tableArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tables.Lookup(args[0])
			if err != nil {
				return err
			}
			store, closeDB, err := rootOpts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			rows, err := store.ReadAll(cmd.Context(), t)
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			return writeCSV(cmd.OutOrStdout(), t, rows)
		},
	}
}

// writeCSV writes rows with a header of the index column followed by the
// data columns.
func writeCSV(w io.Writer, t tables.Table, rows []tables.Row) error {
	header := t.ColumnNames()
	if t.IndexColumn != "" {
		header = append([]string{t.IndexColumn}, header...)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, name := range header {
			record[i] = formatCell(row[name])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatCell renders a database value for CSV output. Dates are written as
// YYYY-MM-DD so they parse back through the seeder.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case interface{ Format(string) string }:
		return x.Format("2006-01-02")
	default:
		return fmt.Sprint(x)
	}
}

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create or drop the schema holding the pipeline tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create the schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeDB, err := rootOpts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := store.CreateSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created schema %s\n", store.Schema())
			return nil
		},
	})

	var force bool
	drop := &cobra.Command{
		Use:   "drop",
		Short: "Drop the schema and every table in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("schema drop deletes every table in %s: pass --force to confirm", rootOpts.settings.Database.Schema)
			}
			store, closeDB, err := rootOpts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := store.DeleteSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped schema %s\n", store.Schema())
			return nil
		},
	}
	drop.Flags().BoolVar(&force, "force", false, "confirm dropping the schema")
	cmd.AddCommand(drop)

	return cmd
}
