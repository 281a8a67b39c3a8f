package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/aperture/internal/config"
	"github.com/JonMunkholm/aperture/internal/tables"
)

const testDocument = `{
	"pipeline_user": "sw23",
	"pipeline_passwd": "fake",
	"pipeline_hostname": "localhost",
	"pipeline_db_name": "aperture",
	"columns": {
		"maximum_speed": {"max": 150, "min": 0},
		"row_id": {"max": 100, "min": 0}
	}
}`

func exactSQL(sql string) string {
	return "^" + regexp.QuoteMeta(sql) + "$"
}

type testEnv struct {
	vars map[string]string
	mock pgxmock.PgxPoolIface
	doc  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	doc := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(doc, []byte(testDocument), 0o644))

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return &testEnv{
		vars: map[string]string{
			"PIPELINE_CONFIG":     doc,
			"PIPELINE_ASSETS_DIR": dir,
			"DATABASE_URL":        "postgres://test@localhost/test",
		},
		mock: mock,
		doc:  doc,
	}
}

func (e *testEnv) lookup(name string) (string, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// run executes the root command with args and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{
		Lookup: e.lookup,
		OpenDB: func(context.Context, *config.Config, string) (tables.DBTX, func(), error) {
			return e.mock, func() {}, nil
		},
	}
	cmd := newRootCommand(opts)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env=false"}, args...))

	err := cmd.Execute()
	return stdout.String(), err
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(filepath.Dir(e.doc), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "aperture", cmd.Use)
	assert.True(t, cmd.SilenceUsage)

	for _, flag := range []string{"config", "env", "log-level", "format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}

	for _, path := range [][]string{
		{"bounds", "list"},
		{"bounds", "get"},
		{"bounds", "set"},
		{"bounds", "check"},
		{"tables", "list"},
		{"tables", "create"},
		{"tables", "drop"},
		{"tables", "seed"},
		{"tables", "dump"},
		{"schema", "create"},
		{"schema", "drop"},
		{"validate"},
	} {
		found, _, err := cmd.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}

func TestSubcommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	tests := []struct {
		path []string
		flag string
	}{
		{[]string{"bounds", "set"}, "save"},
		{[]string{"tables", "seed"}, "check-bounds"},
		{[]string{"tables", "seed"}, "skip-violations"},
		{[]string{"schema", "drop"}, "force"},
	}
	for _, tt := range tests {
		found, _, err := cmd.Find(tt.path)
		require.NoError(t, err)
		assert.NotNil(t, found.Flags().Lookup(tt.flag), "%v --%s", tt.path, tt.flag)
	}
}

func TestInvalidFormat(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "--format", "yaml", "bounds", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestBoundsList(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "bounds", "list")
	require.NoError(t, err)
	assert.Equal(t, "maximum_speed: min=0 max=150\nrow_id: min=0 max=100\n", out)
}

func TestBoundsGet(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "bounds", "get", "maximum_speed")
	require.NoError(t, err)
	assert.Equal(t, "maximum_speed: min=0 max=150\n", out)

	out, err = env.run(t, "--format", "json", "bounds", "get", "maximum_speed")
	require.NoError(t, err)
	var got boundsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "maximum_speed", got.Column)
	assert.EqualValues(t, 150, got.Max)

	_, err = env.run(t, "bounds", "get", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestBoundsCheck(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		value string
		want  string
	}{
		{"75", "valid"},
		{"150", "valid"},
		{"151", "exceeds_max"},
		{"-1", "below_min"},
		{"12.5", "valid"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			out, err := env.run(t, "bounds", "check", "--", "maximum_speed", tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestBoundsCheck_Undeclared(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "--format", "json", "bounds", "check", "dwell", "5")
	require.NoError(t, err)

	var got checkOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "valid", got.Result)
}

func TestBoundsSet(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "bounds", "set", "dwell", "0", "NA")
	require.NoError(t, err)
	assert.Equal(t, "dwell: min=0 max=NA\n", out)

	// Without --save the document is untouched.
	_, err = env.run(t, "bounds", "get", "dwell")
	require.Error(t, err)

	_, err = env.run(t, "bounds", "set", "dwell", "0", "600", "--save")
	require.NoError(t, err)

	out, err = env.run(t, "bounds", "get", "dwell")
	require.NoError(t, err)
	assert.Equal(t, "dwell: min=0 max=600\n", out)

	out, err = env.run(t, "bounds", "check", "dwell", "601")
	require.NoError(t, err)
	assert.Equal(t, "exceeds_max\n", out)
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t)

	good := env.writeFile(t, "good.csv", "flag_id,service_key,row_id\n1,2,3\n4,5,6\n")
	out, err := env.run(t, "validate", "flagged_data", good)
	require.NoError(t, err)
	assert.Contains(t, out, "rows read:   2")

	bad := env.writeFile(t, "bad.csv", "flag_id,service_key,row_id\n1,2,3\n1,2,500\n1,x,3\n")
	out, err = env.run(t, "validate", "flagged_data", bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.Contains(t, err.Error(), "1 failed rows, 1 violations")
	assert.Contains(t, out, "exceeds_max")
	assert.Contains(t, out, `service_key: invalid integer "x"`)
}

func TestValidate_UnknownTable(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "x.csv", "a\n1\n")

	_, err := env.run(t, "validate", "nope", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tables.ErrUnknownTable))
}

func TestTablesList(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "--format", "json", "tables", "list")
	require.NoError(t, err)

	var got []struct {
		Name        string   `json:"name"`
		IndexColumn string   `json:"index_column"`
		Columns     []string `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	names := make([]string, len(got))
	for i, tbl := range got {
		names[i] = tbl.Name
	}
	assert.Contains(t, names, "ctran_data")
	assert.Contains(t, names, "flagged_data")
}

func TestTablesCreate(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectExec(exactSQL(`CREATE SCHEMA IF NOT EXISTS "aperture"`)).
		WillReturnResult(pgxmock.NewResult("CREATE SCHEMA", 0))
	env.mock.ExpectExec(exactSQL(tables.FlaggedData.CreateSQL("aperture"))).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	out, err := env.run(t, "tables", "create", "flagged_data")
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Equal(t, "created aperture.flagged_data\n", out)
}

func TestTablesDrop(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectExec(exactSQL(`DROP TABLE IF EXISTS "aperture"."ctran_data"`)).
		WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))

	out, err := env.run(t, "tables", "drop", "ctran_data")
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Equal(t, "dropped aperture.ctran_data\n", out)
}

func TestTablesSeed(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "flags.csv", "row_id,flag_id,service_key\n3,1,2\n500,1,2\n6,4,5\n")

	env.mock.ExpectExec(exactSQL(`CREATE SCHEMA IF NOT EXISTS "aperture"`)).
		WillReturnResult(pgxmock.NewResult("CREATE SCHEMA", 0))
	env.mock.ExpectExec(exactSQL(tables.FlaggedData.CreateSQL("aperture"))).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	env.mock.ExpectCopyFrom(pgx.Identifier{"aperture", "flagged_data"}, []string{"row_id", "flag_id", "service_key"}).
		WillReturnResult(2)

	out, err := env.run(t, "--format", "json", "tables", "seed", "flagged_data", path, "--skip-violations")
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())

	var report tables.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "flagged_data", report.Table)
	assert.Equal(t, int64(3), report.RowsRead)
	assert.Equal(t, int64(2), report.RowsCopied)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "row_id", report.Violations[0].Column)
}

func TestTablesSeed_SamplePath(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "tables", "seed", "flagged_data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sample file")

	// ctran_data falls back to the sample file in the assets directory.
	_, err = env.run(t, "tables", "seed", "ctran_data")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), tables.CtranSampleFile)
}

func TestTablesDump(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery(exactSQL(`SELECT * FROM "aperture"."flagged_data"`)).
		WillReturnRows(pgxmock.NewRows([]string{"flag_id", "service_key", "row_id"}).
			AddRow(int32(1), int32(2), int32(3)).
			AddRow(int32(4), nil, int32(6)))

	out, err := env.run(t, "tables", "dump", "flagged_data")
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Equal(t, "flag_id,service_key,row_id\n1,2,3\n4,,6\n", out)
}

func TestSchemaDrop(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "schema", "drop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	env.mock.ExpectExec(exactSQL(`DROP SCHEMA IF EXISTS "aperture" CASCADE`)).
		WillReturnResult(pgxmock.NewResult("DROP SCHEMA", 0))

	out, err := env.run(t, "schema", "drop", "--force")
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Equal(t, "dropped schema aperture\n", out)
}

func TestSchemaCreate_Error(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectExec(exactSQL(`CREATE SCHEMA IF NOT EXISTS "aperture"`)).
		WillReturnError(errors.New("permission denied"))

	_, err := env.run(t, "schema", "create")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{" 3 ", int64(3)},
		{"1.5", 1.5},
		{"1e3", 1000.0},
		{"NA", "NA"},
		{"NaN", "NaN"},
		{"Inf", "Inf"},
		{"2011-01-03", "2011-01-03"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLiteral(tt.in), tt.in)
	}
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "", formatCell(nil))
	assert.Equal(t, "7", formatCell(int32(7)))
	assert.Equal(t, "x", formatCell("x"))
}
