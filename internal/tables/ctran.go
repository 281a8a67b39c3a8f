package tables

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// CtranData holds stop-level trip records, one row per vehicle stop event.
var CtranData = Table{
	Name:        "ctran_data",
	IndexColumn: "row_id",
	IndexSQL:    "BIGSERIAL PRIMARY KEY",
	Columns: []Column{
		{Name: "service_date", SQLType: "DATE", Kind: KindDate},
		{Name: "vehicle_number", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "leave_time", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "train", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "route_number", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "direction", SQLType: "SMALLINT", Kind: KindInt2},
		{Name: "service_key", SQLType: "CHARACTER(1)", Kind: KindText},
		{Name: "trip_number", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "stop_time", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "arrive_time", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "dwell", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "location_id", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "door", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "lift", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "ons", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "offs", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "estimated_load", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "maximum_speed", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "train_mileage", SQLType: "FLOAT", Kind: KindFloat8},
		{Name: "pattern_distance", SQLType: "FLOAT", Kind: KindFloat8},
		{Name: "location_distance", SQLType: "FLOAT", Kind: KindFloat8},
		{Name: "x_coordinate", SQLType: "FLOAT", Kind: KindFloat8},
		{Name: "y_coordinate", SQLType: "FLOAT", Kind: KindFloat8},
		{Name: "data_source", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "schedule_status", SQLType: "INTEGER", Kind: KindInt4},
		{Name: "trip_id", SQLType: "INTEGER", Kind: KindInt4},
	},
}

// CtranSampleFile is the sample CSV used to seed ctran_data in development.
const CtranSampleFile = "ctran_trips_sample.csv"

func init() {
	Register(CtranData)
}

// QueryDateRange returns ctran_data rows whose service_date lies between
// from and to, inclusive, ordered by row_id.
func (s *Store) QueryDateRange(ctx context.Context, from, to time.Time) ([]Row, error) {
	sql := fmt.Sprintf("SELECT * FROM %s WHERE service_date BETWEEN $1 AND $2 ORDER BY %s",
		CtranData.Identifier(s.schema).Sanitize(), ident(CtranData.IndexColumn))

	rows, err := s.Query(ctx, sql,
		pgtype.Date{Time: truncateDay(from), Valid: true},
		pgtype.Date{Time: truncateDay(to), Valid: true},
	)
	if err != nil {
		return nil, fmt.Errorf("query %s date range: %w", CtranData.Name, err)
	}
	return rows, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
