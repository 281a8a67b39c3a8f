package tables

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/aperture/internal/logging"
)

// DefaultSchema holds the pipeline tables unless configured otherwise.
const DefaultSchema = "aperture"

// DefaultBatchSize is the number of rows per INSERT or COPY batch.
const DefaultBatchSize = 1000

// maxParams is the PostgreSQL limit on bind parameters per statement.
const maxParams = 65535

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Row is one result row keyed by column name.
type Row = map[string]any

// Store reads and writes registered tables inside one schema.
type Store struct {
	db        DBTX
	schema    string
	batchSize int
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithBatchSize sets the rows per INSERT or COPY batch.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger sets the logger for schema changes and seeding.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.OrDiscard(l)
	}
}

// NewStore returns a store over db. An empty schema means DefaultSchema.
func NewStore(db DBTX, schema string, opts ...Option) *Store {
	if schema == "" {
		schema = DefaultSchema
	}
	s := &Store{
		db:        db,
		schema:    schema,
		batchSize: DefaultBatchSize,
		logger:    logging.OrDiscard(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema returns the schema the store operates in.
func (s *Store) Schema() string {
	return s.schema
}

// CreateSchema creates the store's schema if it does not exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+ident(s.schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", s.schema, err)
	}
	return nil
}

// DeleteSchema drops the store's schema and everything in it.
func (s *Store) DeleteSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "DROP SCHEMA IF EXISTS "+ident(s.schema)+" CASCADE"); err != nil {
		return fmt.Errorf("delete schema %s: %w", s.schema, err)
	}
	s.logger.Info("schema deleted", "schema", s.schema)
	return nil
}

// CreateTable creates the schema and then t, if they do not exist.
func (s *Store) CreateTable(ctx context.Context, t Table) error {
	if err := s.CreateSchema(ctx); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, t.CreateSQL(s.schema)); err != nil {
		return fmt.Errorf("create table %s.%s: %w", s.schema, t.Name, err)
	}
	s.logger.Info("table created", "schema", s.schema, "table", t.Name)
	return nil
}

// DeleteTable drops t if it exists.
func (s *Store) DeleteTable(ctx context.Context, t Table) error {
	sql := "DROP TABLE IF EXISTS " + t.Identifier(s.schema).Sanitize()
	if _, err := s.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("delete table %s.%s: %w", s.schema, t.Name, err)
	}
	s.logger.Info("table deleted", "schema", s.schema, "table", t.Name)
	return nil
}

// WriteRows inserts rows into t and returns the number of rows inserted.
//
// Every row must carry the same columns, all declared by t. When
// conflictColumns is non-empty, rows that collide on them are skipped with
// ON CONFLICT DO NOTHING. Rows are sent in batches.
func (s *Store) WriteRows(ctx context.Context, t Table, rows []Row, conflictColumns []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	columns, err := rowColumns(t, rows)
	if err != nil {
		return 0, err
	}
	for _, c := range conflictColumns {
		if !t.HasColumn(c) {
			return 0, fmt.Errorf("%w: %s has no conflict column %q", ErrColumnMismatch, t.Name, c)
		}
	}

	batch := s.batchSize
	if limit := maxParams / len(columns); batch > limit {
		batch = limit
	}

	var inserted int64
	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))
		sql, args := insertSQL(t.Identifier(s.schema), columns, rows[start:end], conflictColumns)

		tag, err := s.db.Exec(ctx, sql, args...)
		if err != nil {
			return inserted, fmt.Errorf("write %s rows %d-%d: %w", t.Name, start, end-1, err)
		}
		inserted += tag.RowsAffected()
	}

	s.logger.Debug("rows written", "table", t.Name, "rows", len(rows), "inserted", inserted)
	return inserted, nil
}

// rowColumns returns the columns of the first row in table order and checks
// every row carries exactly those columns.
func rowColumns(t Table, rows []Row) ([]string, error) {
	var columns []string
	if t.IndexColumn != "" {
		if _, ok := rows[0][t.IndexColumn]; ok {
			columns = append(columns, t.IndexColumn)
		}
	}
	for _, c := range t.Columns {
		if _, ok := rows[0][c.Name]; ok {
			columns = append(columns, c.Name)
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s: rows carry no declared columns", ErrColumnMismatch, t.Name)
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			for name := range row {
				if !t.HasColumn(name) {
					return nil, fmt.Errorf("%w: %s has no column %q", ErrColumnMismatch, t.Name, name)
				}
			}
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrColumnMismatch, i, len(row), len(columns))
		}
		for _, c := range columns {
			if _, ok := row[c]; !ok {
				return nil, fmt.Errorf("%w: row %d is missing %q", ErrColumnMismatch, i, c)
			}
		}
	}
	return columns, nil
}

func insertSQL(table pgx.Identifier, columns []string, rows []Row, conflictColumns []string) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(rows)*len(columns))

	b.WriteString("INSERT INTO ")
	b.WriteString(table.Sanitize())
	b.WriteString(" (")
	b.WriteString(identList(columns))
	b.WriteString(") VALUES ")

	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, c := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			args = append(args, row[c])
			fmt.Fprintf(&b, "$%d", len(args))
		}
		b.WriteByte(')')
	}

	if len(conflictColumns) > 0 {
		b.WriteString(" ON CONFLICT (")
		b.WriteString(identList(conflictColumns))
		b.WriteString(") DO NOTHING")
	}
	return b.String(), args
}

// ReadAll returns every row of t, ordered by the index column when t has
// one. The result columns must match the table definition.
func (s *Store) ReadAll(ctx context.Context, t Table) ([]Row, error) {
	sql := "SELECT * FROM " + t.Identifier(s.schema).Sanitize()
	if t.IndexColumn != "" {
		sql += " ORDER BY " + ident(t.IndexColumn)
	}

	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.Name, err)
	}
	defer rows.Close()

	if err := checkResultColumns(t, fieldNames(rows)); err != nil {
		return nil, err
	}

	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.Name, err)
	}
	return result, nil
}

// Query runs an arbitrary statement and returns its rows.
func (s *Store) Query(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return result, nil
}

func fieldNames(rows pgx.Rows) []string {
	fds := rows.FieldDescriptions()
	names := make([]string, len(fds))
	for i, fd := range fds {
		names[i] = fd.Name
	}
	return names
}
