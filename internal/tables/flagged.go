package tables

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// FlaggedData links ctran_data rows to the quality flags raised against them
// within a service period.
var FlaggedData = Table{
	Name: "flagged_data",
	Columns: []Column{
		{Name: "flag_id", SQLType: "INTEGER", Kind: KindInt4, References: &ForeignKey{Table: "flags", Column: "flag_id"}},
		{Name: "service_key", SQLType: "INTEGER", Kind: KindInt4, References: &ForeignKey{Table: "service_periods", Column: "service_key"}},
		{Name: "row_id", SQLType: "INTEGER", Kind: KindInt4},
	},
	PrimaryKey: []string{"flag_id", "service_key", "row_id"},
}

func init() {
	Register(FlaggedData)
}

// Flag is one flagged_data row as returned by QueryFlagsByFlagID.
type Flag struct {
	FlagID int64 `db:"flag_id" json:"flag_id"`
	RowID  int64 `db:"row_id" json:"row_id"`
}

// QueryFlagsByRowID returns the flags raised against rowID during the given
// service year and period. periodTable names the service periods table,
// which must have year, ternary and service_key columns.
func (s *Store) QueryFlagsByRowID(ctx context.Context, periodTable string, rowID int64, year, period int) ([]int64, error) {
	sql := fmt.Sprintf(`SELECT fd.flag_id
FROM %s AS fd
JOIN %s AS sp ON fd.service_key = sp.service_key
WHERE fd.row_id = $1 AND sp.year = $2 AND sp.ternary = $3
ORDER BY fd.flag_id`,
		FlaggedData.Identifier(s.schema).Sanitize(),
		pgx.Identifier{s.schema, periodTable}.Sanitize())

	rows, err := s.db.Query(ctx, sql, rowID, year, period)
	if err != nil {
		return nil, fmt.Errorf("query flags for row %d: %w", rowID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("query flags for row %d: %w", rowID, err)
	}
	return ids, nil
}

// QueryFlagsByFlagID returns up to limit rows carrying flagID. A limit of
// zero or less returns every row.
func (s *Store) QueryFlagsByFlagID(ctx context.Context, flagID int64, limit int) ([]Flag, error) {
	sql := fmt.Sprintf("SELECT flag_id, row_id FROM %s WHERE flag_id = $1 ORDER BY row_id",
		FlaggedData.Identifier(s.schema).Sanitize())
	args := []any{flagID}
	if limit > 0 {
		sql += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query flag %d: %w", flagID, err)
	}
	flags, err := pgx.CollectRows(rows, pgx.RowToStructByName[Flag])
	if err != nil {
		return nil, fmt.Errorf("query flag %d: %w", flagID, err)
	}
	return flags, nil
}
