package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/aperture/internal/config"
	"github.com/JonMunkholm/aperture/internal/logging"
	"github.com/JonMunkholm/aperture/internal/tables"
	"github.com/JonMunkholm/aperture/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"document", cfg.Pipeline.Document,
		"schema", cfg.Database.Schema,
		"api_key", cfg.Server.APIKey != "",
	)

	ctx := context.Background()
	doc, err := config.LoadDocument(ctx, cfg.Pipeline.Document, config.LoadOptions{
		ReadEnv: cfg.Pipeline.ReadEnv,
		S3:      cfg.Pipeline.S3Options(),
		Logger:  logger,
	})
	if err != nil {
		slog.Error("failed to load pipeline document", "error", err)
		os.Exit(1)
	}

	connString := cfg.Database.URL
	if connString == "" {
		connString = doc.ConnString()
	}

	// The bounds endpoints work without a database, so a failed connection
	// only disables the table routes.
	var (
		store  web.TableStore
		opts   = []web.Option{web.WithLogger(logger)}
		pool   *pgxpool.Pool
		dbName string
	)
	pool, err = connect(ctx, cfg, connString)
	if err != nil {
		slog.Warn("database unavailable, table routes disabled", "error", err)
	} else {
		defer pool.Close()
		dbName = pool.Config().ConnConfig.Database
		store = tables.NewStore(pool, cfg.Database.Schema,
			tables.WithBatchSize(cfg.Pipeline.SeedBatchSize),
			tables.WithLogger(logger),
		)
		opts = append(opts, web.WithPinger(pool))
		slog.Info("connected to database", "name", dbName, "tables", len(tables.Names()))
	}

	server := web.NewServer(cfg.Server, doc, store, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.Server.Addr(), "error", err)
		os.Exit(1)
	}

	// Run returns after running seeds have drained, so the pool closes last.
	if err := server.Run(ctx, listener, cfg.Server.ShutdownTimeout); err != nil {
		slog.Error("server stopped", "error", err)
		return
	}
	slog.Info("server stopped")
}

// connect opens and pings a pool sized by the database settings.
func connect(ctx context.Context, cfg *config.Config, connString string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
