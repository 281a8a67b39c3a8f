// Package cli provides the aperture command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/aperture/internal/config"
	"github.com/JonMunkholm/aperture/internal/logging"
	"github.com/JonMunkholm/aperture/internal/tables"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// OpenDBFunc connects to the database at connString. The returned func
// releases the connection.
type OpenDBFunc func(ctx context.Context, settings *config.Config, connString string) (tables.DBTX, func(), error)

// RootOptions holds global flags and state shared by all commands.
type RootOptions struct {
	Config   string // document location; defaults to PIPELINE_CONFIG
	ReadEnv  bool
	LogLevel string
	Format   string // "json" | "text"

	// Lookup reads environment variables. Defaults to os.LookupEnv.
	Lookup config.LookupFunc

	// OpenDB defaults to a pgx pool sized by the database settings.
	OpenDB OpenDBFunc

	settings *config.Config
	logger   *slog.Logger
}

// NewRootCommand creates the root command for the aperture CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aperture",
		Short: "Transit pipeline bounds checking and table management",
		Long: `aperture validates transit data against the per-column bounds declared in the
pipeline document and manages the PostgreSQL tables holding trip and flag records.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "pipeline document path or s3://bucket/key (default: $PIPELINE_CONFIG)")
	cmd.PersistentFlags().BoolVar(&opts.ReadEnv, "env", true, "overlay PIPELINE_* environment variables onto the document")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error (default: $LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewBoundsCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// setup loads .env and service settings and builds the logger. Logs go to
// stderr so command output on stdout stays machine-readable.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if o.Lookup == nil {
		// A missing .env file is fine; real environment variables win.
		_ = godotenv.Load()
		o.Lookup = os.LookupEnv
	}
	if o.OpenDB == nil {
		o.OpenDB = openPool
	}

	settings, err := config.LoadFrom(o.Lookup)
	if err != nil {
		return err
	}
	o.settings = settings

	if o.Config == "" {
		o.Config = settings.Pipeline.Document
	}
	if !cmd.Flags().Changed("env") {
		o.ReadEnv = settings.Pipeline.ReadEnv
	}
	level := o.LogLevel
	if level == "" {
		level = settings.Logging.Level
	}
	o.logger = logging.New(cmd.ErrOrStderr(), level, settings.Logging.Format)
	return nil
}

// loadDocument reads the pipeline document named by --config.
func (o *RootOptions) loadDocument(ctx context.Context) (*config.Document, error) {
	return config.LoadDocument(ctx, o.Config, config.LoadOptions{
		ReadEnv: o.ReadEnv,
		S3:      o.settings.Pipeline.S3Options(),
		Logger:  o.logger,
	})
}

// openStore connects to the database and returns a store over it. The
// connection string is DATABASE_URL when set, otherwise it is built from
// the document's pipeline_* settings.
func (o *RootOptions) openStore(ctx context.Context) (*tables.Store, func(), error) {
	connString := o.settings.Database.URL
	if connString == "" {
		doc, err := o.loadDocument(ctx)
		if err != nil {
			return nil, nil, err
		}
		connString = doc.ConnString()
	}

	db, closeDB, err := o.OpenDB(ctx, o.settings, connString)
	if err != nil {
		return nil, nil, err
	}
	store := tables.NewStore(db, o.settings.Database.Schema,
		tables.WithBatchSize(o.settings.Pipeline.SeedBatchSize),
		tables.WithLogger(o.logger),
	)
	return store, closeDB, nil
}

// openPool is the default OpenDBFunc.
func openPool(ctx context.Context, settings *config.Config, connString string) (tables.DBTX, func(), error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(settings.Database.MaxConns)
	poolConfig.MinConns = int32(settings.Database.MinConns)
	poolConfig.MaxConnLifetime = settings.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = settings.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, pool.Close, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Execute runs the root command and reports any error on stderr.
func Execute() error {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
