// Package config provides centralized configuration management for the workspace.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Remote  RemoteConfig
	Store   StoreConfig
	Upload  UploadConfig
	Server  ServerConfig
	Logging LoggingConfig
}

// RemoteConfig holds settings for the natural-language query service.
type RemoteConfig struct {
	// BaseURL is the service base address (default: http://localhost:8000)
	BaseURL string `env:"API_BASE_URL" envAlt:"API_URL" default:"http://localhost:8000"`

	// Timeout bounds list, schema, delete and query requests (default: 30s)
	Timeout time.Duration `env:"API_TIMEOUT" default:"30s"`

	// UploadTimeout bounds a single file upload (default: 10m)
	UploadTimeout time.Duration `env:"API_UPLOAD_TIMEOUT" default:"10m"`
}

// StoreConfig holds durable key-value storage settings.
type StoreConfig struct {
	// Backend selects the storage medium: file, sqlite, postgres, memory (default: file)
	Backend string `env:"STORE_BACKEND" default:"file"`

	// Path is the state file for the file and sqlite backends
	Path string `env:"STORE_PATH" default:".querydesk/state.json"`

	// DatabaseURL is the PostgreSQL connection string for the postgres backend.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`
}

// UploadConfig holds dataset upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`
}

// ServerConfig holds settings for the local workspace API served by `querydesk serve`.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8090)
	Port int `env:"SERVER_PORT" default:"8090"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}
