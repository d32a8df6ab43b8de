// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the pagetree server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the public gRPC endpoint.
//   - DatabaseDriver / DatabaseDSN: "pgx" with a PostgreSQL DSN, or "sqlite" with a file or in-memory DSN.
//   - SecretKey: HMAC secret for verifying JWTs (HS256). Do not use test defaults in prod.
//   - DevMode: lets any caller create nodes of every type.
//   - LogBackend: "slog" or "zap".
//   - RedisAddr / RedisPassword / RedisDB: distributed lock store; an empty address keeps locks in process.
//   - LockTTL: how long a Redis lock survives a crashed holder.
//   - RewriteWorkers: concurrent link rewrites after a rename.
//   - S3*: mirror of published pages; an empty bucket disables it.
type Config struct {
	EndpointAddrGRPC string
	DatabaseDriver   string
	DatabaseDSN      string
	SecretKey        string
	DevMode          bool
	LogBackend       string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	LockTTL          time.Duration
	RewriteWorkers   int
	S3RootUser       string
	S3RootPassword   string
	S3Bucket         string
	S3Prefix         string
	S3Region         string
	S3BaseEndpoint   string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:pagetree.db?_pragma=foreign_keys(1)"
	c.SecretKey = "secretKey"
	c.LogBackend = "slog"
	c.LockTTL = 30 * time.Second
	c.RewriteWorkers = 4
	c.S3Prefix = "pages"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
