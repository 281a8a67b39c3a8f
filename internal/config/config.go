// Package config provides centralized configuration management for the application.
//
// Two kinds of configuration live here. Service settings (Config) are loaded
// from environment variables with sensible defaults and validated on startup
// to fail fast on misconfiguration. The pipeline document (Document) is the
// JSON or YAML file holding pipeline connection values and the per-column
// bounds used to validate transit data.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all service configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Pipeline PipelineConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// APIKey, when set, is required in the X-API-Key header of requests
	// that change the pipeline document
	APIKey string `env:"SERVER_API_KEY"`

	// SeedMaxBytes caps the size of a CSV posted to the seed endpoint (default: 100MB)
	SeedMaxBytes int64 `env:"SERVER_SEED_MAX_BYTES" default:"104857600"`

	// SeedMaxConcurrent is the number of seeds allowed to run at once (default: 2)
	SeedMaxConcurrent int `env:"SERVER_SEED_MAX_CONCURRENT" default:"2"`

	// SeedMaxWait is how long a seed request waits for a free slot (default: 30s)
	SeedMaxWait time.Duration `env:"SERVER_SEED_MAX_WAIT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. When empty, the connection
	// string is built from the pipeline document's pipeline_* values.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Schema holds the pipeline tables (default: aperture)
	Schema string `env:"DB_SCHEMA" default:"aperture"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// PipelineConfig locates the pipeline document and controls seeding.
type PipelineConfig struct {
	// Document is a file path or s3://bucket/key (default: ./assets/config.json)
	Document string `env:"PIPELINE_CONFIG" default:"./assets/config.json"`

	// ReadEnv overlays PIPELINE_USER, PIPELINE_PASSWD, PIPELINE_HOSTNAME and
	// PIPELINE_DB_NAME onto the document after loading (default: true)
	ReadEnv bool `env:"PIPELINE_READ_ENV" default:"true"`

	// AssetsDir holds sample CSVs used to seed tables (default: ./assets)
	AssetsDir string `env:"PIPELINE_ASSETS_DIR" default:"./assets"`

	// SeedBatchSize is the number of rows per COPY batch (default: 1000)
	SeedBatchSize int `env:"PIPELINE_SEED_BATCH_SIZE" default:"1000"`

	// S3Region is used for s3:// document locations (default: us-east-1)
	S3Region string `env:"PIPELINE_S3_REGION" envAlt:"AWS_REGION" default:"us-east-1"`

	// S3Endpoint enables path-style addressing against MinIO and similar
	S3Endpoint string `env:"PIPELINE_S3_ENDPOINT"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// S3Options returns the S3 settings used to open s3:// document locations.
func (c *PipelineConfig) S3Options() S3Options {
	return S3Options{Region: c.S3Region, Endpoint: c.S3Endpoint}
}
