package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/JonMunkholm/aperture/internal/bounds"
	"github.com/JonMunkholm/aperture/internal/logging"
)

// ColumnsKey is the document key holding per-column bounds. It cannot be
// read or written through Value and SetValue.
const ColumnsKey = "columns"

// Keys read by ConnString.
const (
	KeyUser     = "pipeline_user"
	KeyPassword = "pipeline_passwd"
	KeyHostname = "pipeline_hostname"
	KeyDBName   = "pipeline_db_name"
)

var (
	// ErrReservedKey is returned by SetValue for ColumnsKey.
	ErrReservedKey = errors.New("reserved key")

	// ErrNoLocation is returned by Save when neither the call nor the
	// document names a location.
	ErrNoLocation = errors.New("document has no location")
)

// envKeys maps the environment variables read by IngestEnv to document keys.
var envKeys = map[string]string{
	"PIPELINE_USER":     KeyUser,
	"PIPELINE_PASSWD":   KeyPassword,
	"PIPELINE_HOSTNAME": KeyHostname,
	"PIPELINE_DB_NAME":  KeyDBName,
}

// Document is the pipeline configuration: free-form top-level settings plus
// the bounds declared for each column.
//
// A Document is not safe for concurrent use.
type Document struct {
	k        *koanf.Koanf
	columns  *bounds.Registry
	location string
	store    DocumentStore
	logger   *slog.Logger
}

// LoadOptions controls LoadDocument.
type LoadOptions struct {
	// ReadEnv applies IngestEnv after the document is parsed.
	ReadEnv bool

	// Store reads the document and is kept for Save. Defaults to a Router
	// built from S3.
	Store DocumentStore
	S3    S3Options

	Logger *slog.Logger
}

// NewDocument returns an empty document with no location.
func NewDocument(store DocumentStore, logger *slog.Logger) *Document {
	if store == nil {
		store = NewRouter(S3Options{})
	}
	return &Document{
		k:       koanf.New("."),
		columns: bounds.NewRegistry(),
		store:   store,
		logger:  logging.OrDiscard(logger),
	}
}

// LoadDocument reads and parses the document at location, a filesystem path
// or s3://bucket/key. Files ending in .yaml or .yml are parsed as YAML,
// everything else as JSON. A document without a columns mapping loads with
// no bounds declared.
func LoadDocument(ctx context.Context, location string, opts LoadOptions) (*Document, error) {
	store := opts.Store
	if store == nil {
		store = NewRouter(opts.S3)
	}

	data, err := store.Read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	d := NewDocument(store, opts.Logger)
	if err := d.decode(data, formatFor(location)); err != nil {
		return nil, fmt.Errorf("load document %s: %w", location, err)
	}
	d.location = location

	if opts.ReadEnv {
		if err := d.IngestEnv(); err != nil {
			return nil, err
		}
	}

	d.logger.Debug("pipeline document loaded",
		"location", location,
		"settings", len(d.Keys()),
		"columns", d.columns.Len(),
	)
	return d, nil
}

func (d *Document) decode(data []byte, f Format) error {
	raw, err := parserFor(f).Unmarshal(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", f, err)
	}

	if cols, ok := raw[ColumnsKey]; ok {
		if err := loadColumns(d.columns, cols); err != nil {
			return err
		}
		delete(raw, ColumnsKey)
	}

	return d.k.Load(confmap.Provider(raw, ""), nil)
}

func loadColumns(r *bounds.Registry, cols any) error {
	if cols == nil {
		return nil
	}
	m, ok := cols.(map[string]any)
	if !ok {
		return fmt.Errorf("%s: expected a mapping, got %T", ColumnsKey, cols)
	}
	for name, entry := range m {
		sides, ok := entry.(map[string]any)
		if !ok {
			return fmt.Errorf("%s.%s: expected a mapping with min and max, got %T", ColumnsKey, name, entry)
		}
		r.Set(name, sides["min"], sides["max"])
	}
	return nil
}

// Location returns where the document was loaded from.
func (d *Document) Location() string {
	return d.location
}

// IngestEnv copies PIPELINE_USER, PIPELINE_PASSWD, PIPELINE_HOSTNAME and
// PIPELINE_DB_NAME into the matching pipeline_* keys. Variables that are
// not set leave the document unchanged. No other variable is read.
func (d *Document) IngestEnv() error {
	err := d.k.Load(env.Provider("PIPELINE_", ".", func(s string) string {
		return envKeys[s]
	}), nil)
	if err != nil {
		return fmt.Errorf("ingest env: %w", err)
	}
	return nil
}

// SetValue stores a top-level setting.
func (d *Document) SetValue(name string, v any) error {
	if name == ColumnsKey {
		return fmt.Errorf("set %q: %w", name, ErrReservedKey)
	}
	return d.k.Set(name, v)
}

// Value returns a top-level setting.
func (d *Document) Value(name string) (any, bool) {
	if name == ColumnsKey || !d.k.Exists(name) {
		return nil, false
	}
	return d.k.Get(name), true
}

// Text returns a setting as text, or "" when it is not set.
func (d *Document) Text(name string) string {
	if name == ColumnsKey {
		return ""
	}
	return d.k.String(name)
}

// Keys returns the top-level setting names in sorted order.
func (d *Document) Keys() []string {
	raw := d.k.Raw()
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Bounds returns the column registry owned by the document.
func (d *Document) Bounds() *bounds.Registry {
	return d.columns
}

// SetBounds declares the range of column.
func (d *Document) SetBounds(column string, min, max any) {
	d.columns.Set(column, min, max)
}

// GetBounds returns the declared range of column.
func (d *Document) GetBounds(column string) (bounds.Bounds, bool) {
	return d.columns.Get(column)
}

// CheckBounds classifies value against the declared range of column.
func (d *Document) CheckBounds(column string, value any) (bounds.Result, error) {
	return d.columns.Check(column, value)
}

// Save writes the document to location, or to the location it was loaded
// from when location is empty.
func (d *Document) Save(ctx context.Context, location string) error {
	if location == "" {
		location = d.location
	}
	if location == "" {
		return ErrNoLocation
	}

	data, err := d.Marshal(formatFor(location))
	if err != nil {
		return err
	}
	if err := d.store.Write(ctx, location, data); err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	d.logger.Info("pipeline document saved", "location", location, "columns", d.columns.Len())
	return nil
}

// Marshal serializes the settings and column bounds in the given format.
func (d *Document) Marshal(f Format) ([]byte, error) {
	raw := d.k.Raw()
	raw[ColumnsKey] = d.columnsMap()

	data, err := parserFor(f).Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

func (d *Document) columnsMap() map[string]any {
	out := make(map[string]any, d.columns.Len())
	for _, name := range d.columns.Columns() {
		b, _ := d.columns.Get(name)
		sides := make(map[string]any, 2)
		if b.Min != nil {
			sides["min"] = b.Min
		}
		if b.Max != nil {
			sides["max"] = b.Max
		}
		out[name] = sides
	}
	return out
}

// ConnString builds a PostgreSQL URL from the pipeline_* settings.
func (d *Document) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   d.Text(KeyHostname),
		Path:   "/" + d.Text(KeyDBName),
	}
	if user := d.Text(KeyUser); user != "" {
		u.User = url.UserPassword(user, d.Text(KeyPassword))
	}
	return u.String()
}

// Format is a document serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func formatFor(location string) Format {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func parserFor(f Format) koanf.Parser {
	if f == FormatYAML {
		return yaml.Parser()
	}
	return json.Parser()
}
