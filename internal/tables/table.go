// Package tables defines the relational tables holding transit records and
// provides CRUD-style access to them over pgx.
//
// A Table is a plain definition: its name, optional index column and
// expected data columns. The Store renders SQL for a definition inside one
// schema and executes it against any DBTX (a pool, a transaction, or a mock).
package tables

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrUnknownTable is returned when a table name is not registered.
	ErrUnknownTable = errors.New("unknown table")

	// ErrColumnMismatch is returned when data columns differ from the
	// columns a table declares.
	ErrColumnMismatch = errors.New("column mismatch")
)

// Kind is how a CSV cell is converted before it is written.
type Kind int

const (
	KindText Kind = iota
	KindInt2
	KindInt4
	KindFloat8
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt2:
		return "int2"
	case KindInt4:
		return "int4"
	case KindFloat8:
		return "float8"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ForeignKey points a column at a column of another table in the same schema.
type ForeignKey struct {
	Table  string
	Column string
}

// Column is one expected data column.
type Column struct {
	Name       string
	SQLType    string
	Kind       Kind
	References *ForeignKey
}

// Table describes a table the pipeline reads and writes.
type Table struct {
	Name string

	// IndexColumn is the surrogate key generated by the database, if any.
	// It is not part of Columns and never appears in input data.
	IndexColumn string
	IndexSQL    string

	Columns    []Column
	PrimaryKey []string
}

// ColumnNames returns the expected data column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the declared column called name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether name is a data column or the index column.
func (t Table) HasColumn(name string) bool {
	if name != "" && name == t.IndexColumn {
		return true
	}
	_, ok := t.Column(name)
	return ok
}

// Identifier returns the schema-qualified name of the table.
func (t Table) Identifier(schema string) pgx.Identifier {
	return pgx.Identifier{schema, t.Name}
}

// CreateSQL renders the CREATE TABLE IF NOT EXISTS statement for schema.
func (t Table) CreateSQL(schema string) string {
	var defs []string
	if t.IndexColumn != "" {
		defs = append(defs, ident(t.IndexColumn)+" "+t.IndexSQL)
	}
	for _, c := range t.Columns {
		def := ident(c.Name) + " " + c.SQLType
		if c.References != nil {
			def += fmt.Sprintf(" REFERENCES %s (%s)",
				pgx.Identifier{schema, c.References.Table}.Sanitize(), ident(c.References.Column))
		}
		defs = append(defs, def)
	}
	if len(t.PrimaryKey) > 0 {
		defs = append(defs, "PRIMARY KEY ("+identList(t.PrimaryKey)+")")
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		t.Identifier(schema).Sanitize(), strings.Join(defs, ",\n\t"))
}

// CheckColumns verifies that header holds exactly the table's data columns,
// in any order. Header cells are cleaned and compared case-insensitively.
func CheckColumns(t Table, header []string) error {
	seen := make(map[string]bool, len(header))
	var unexpected, duplicate []string
	for _, h := range header {
		name := normalizeHeader(h)
		if seen[name] {
			duplicate = append(duplicate, name)
			continue
		}
		seen[name] = true
		if _, ok := t.Column(name); !ok {
			unexpected = append(unexpected, name)
		}
	}

	var missing []string
	for _, c := range t.Columns {
		if !seen[c.Name] {
			missing = append(missing, c.Name)
		}
	}

	if len(missing) == 0 && len(unexpected) == 0 && len(duplicate) == 0 {
		return nil
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if len(unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(unexpected, ", "))
	}
	if len(duplicate) > 0 {
		parts = append(parts, "duplicate "+strings.Join(duplicate, ", "))
	}
	return fmt.Errorf("%w: %s: %s", ErrColumnMismatch, t.Name, strings.Join(parts, "; "))
}

// checkResultColumns compares the columns returned by a query against the
// table, ignoring the index column.
func checkResultColumns(t Table, fields []string) error {
	got := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != t.IndexColumn {
			got = append(got, f)
		}
	}
	want := t.ColumnNames()
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		return fmt.Errorf("%w: %s returned columns %v", ErrColumnMismatch, t.Name, got)
	}
	return nil
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = ident(n)
	}
	return strings.Join(quoted, ", ")
}
