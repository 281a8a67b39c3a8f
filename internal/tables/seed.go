package tables

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/aperture/internal/bounds"
)

// Checker classifies a value against a column's declared bounds.
// *bounds.Registry satisfies it.
type Checker interface {
	Check(column string, value any) (bounds.Result, error)
}

var _ Checker = (*bounds.Registry)(nil)

// Violation is a cell outside its column's bounds, or one that could not be
// compared against them.
type Violation struct {
	Line   int    `json:"line"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// FailedRow is a CSV row that could not be converted.
type FailedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Report summarizes a pass over a CSV file.
type Report struct {
	RunID      uuid.UUID     `json:"run_id"`
	Table      string        `json:"table"`
	RowsRead   int64         `json:"rows_read"`
	RowsCopied int64         `json:"rows_copied"`
	BytesRead  int64         `json:"bytes_read"`
	Violations []Violation   `json:"violations,omitempty"`
	FailedRows []FailedRow   `json:"failed_rows,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// OK reports whether every row converted and no cell violated its bounds.
func (r *Report) OK() bool {
	return len(r.Violations) == 0 && len(r.FailedRows) == 0
}

// SeedOptions controls Seed.
type SeedOptions struct {
	// Bounds checks every non-empty cell when set.
	Bounds Checker

	// SkipViolations leaves rows with bound violations out of the copy.
	SkipViolations bool

	// SkipCreate assumes the table already exists.
	SkipCreate bool
}

// Seed bulk-loads a CSV file into t with the COPY protocol, creating the
// table first unless opts.SkipCreate is set. The header must match the
// table's columns. Rows that fail conversion are reported and skipped.
func (s *Store) Seed(ctx context.Context, t Table, r io.Reader, opts SeedOptions) (*Report, error) {
	runID := uuid.New()
	logger := s.logger.With("run_id", runID, "table", t.Name)
	logger.Info("seed started", "schema", s.schema)

	if !opts.SkipCreate {
		if err := s.CreateTable(ctx, t); err != nil {
			return nil, err
		}
	}

	var (
		columns []string
		batch   [][]any
		copied  int64
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.db.CopyFrom(ctx, t.Identifier(s.schema), columns, pgx.CopyFromRows(batch))
		if err != nil {
			return fmt.Errorf("copy into %s: %w", t.Name, err)
		}
		copied += n
		logger.Debug("batch copied", "rows", n, "total", copied)
		batch = batch[:0]
		return nil
	}

	report, err := scanCSV(ctx, t, r, opts.Bounds, func(header []string, row scannedRow) error {
		if columns == nil {
			columns = header
		}
		if opts.SkipViolations && row.violated {
			return nil
		}
		batch = append(batch, row.values)
		if len(batch) >= s.batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if report != nil {
		report.RunID = runID
		report.RowsCopied = copied
	}
	if err != nil {
		logger.Error("seed failed", "error", err, "rows_copied", copied)
		return report, err
	}

	logger.Info("seed completed",
		"rows_read", report.RowsRead,
		"rows_copied", report.RowsCopied,
		"violations", len(report.Violations),
		"failed_rows", len(report.FailedRows),
		"duration", report.Duration,
	)
	return report, nil
}

// Validate checks a CSV file against t and its column bounds without a
// database. The report lists every conversion failure and bound violation.
func Validate(ctx context.Context, t Table, r io.Reader, checker Checker) (*Report, error) {
	report, err := scanCSV(ctx, t, r, checker, nil)
	if report != nil {
		report.RunID = uuid.New()
	}
	return report, err
}

type scannedRow struct {
	line     int
	values   []any
	violated bool
}

// scanCSV reads and converts every row of r, collecting failures and bound
// violations into the report. emit, when set, receives each converted row
// along with the header in table column names.
func scanCSV(ctx context.Context, t Table, r io.Reader, checker Checker, emit func(header []string, row scannedRow) error) (*Report, error) {
	start := time.Now()
	report := &Report{Table: t.Name}

	cr, counter := NewCSVReader(r)
	defer func() {
		report.BytesRead = counter.BytesRead
		report.Duration = time.Since(start)
	}()

	record, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return report, fmt.Errorf("%w: %s: empty file", ErrColumnMismatch, t.Name)
		}
		return report, fmt.Errorf("read header: %w", err)
	}
	if err := CheckColumns(t, record); err != nil {
		return report, err
	}

	header := make([]string, len(record))
	kinds := make([]Kind, len(record))
	for i, h := range record {
		header[i] = normalizeHeader(h)
		col, _ := t.Column(header[i])
		kinds[i] = col.Kind
	}

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		report.RowsRead++
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return report, fmt.Errorf("read %s: %w", t.Name, err)
			}
			report.FailedRows = append(report.FailedRows, FailedRow{Line: parseErr.StartLine, Reason: parseErr.Err.Error()})
			continue
		}
		line, _ := cr.FieldPos(0)

		row := scannedRow{line: line, values: make([]any, len(record))}
		failed := false
		for i, raw := range record {
			cell, err := ConvertCell(kinds[i], raw)
			if err != nil {
				report.FailedRows = append(report.FailedRows, FailedRow{
					Line:   line,
					Reason: fmt.Sprintf("%s: %v", header[i], err),
				})
				failed = true
				break
			}
			row.values[i] = cell.DB

			if checker == nil || cell.Null {
				continue
			}
			result, err := checker.Check(header[i], cell.Check)
			if err != nil {
				report.Violations = append(report.Violations, Violation{
					Line: line, Column: header[i], Value: CleanCell(raw), Error: err.Error(),
				})
				row.violated = true
				continue
			}
			if result != bounds.Valid {
				report.Violations = append(report.Violations, Violation{
					Line: line, Column: header[i], Value: CleanCell(raw), Result: result.String(),
				})
				row.violated = true
			}
		}
		if failed || emit == nil {
			continue
		}
		if err := emit(header, row); err != nil {
			return report, err
		}
	}

	return report, nil
}
