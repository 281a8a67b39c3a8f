package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/aperture/internal/tables"
)

// ErrValidationFailed is returned when a file has failed rows or bound
// violations, so the process exits non-zero.
var ErrValidationFailed = errors.New("validation failed")

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <table> <csv>",
		Short: "Check a CSV file against a table and the document's bounds",
		Long: `Convert every row of a CSV file as the seeder would and check each cell
against the column bounds declared in the pipeline document. Nothing is
written to the database.

Exits non-zero when any row fails conversion or any cell violates its bounds.`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: tableArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tables.Lookup(args[0])
			if err != nil {
				return err
			}
			doc, err := rootOpts.loadDocument(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := tables.Validate(cmd.Context(), t, f, doc.Bounds())
			if err != nil {
				return err
			}
			if err := printReport(cmd.OutOrStdout(), rootOpts.Format, report); err != nil {
				return err
			}
			if !report.OK() {
				return fmt.Errorf("%w: %d failed rows, %d violations",
					ErrValidationFailed, len(report.FailedRows), len(report.Violations))
			}
			return nil
		},
	}
}
