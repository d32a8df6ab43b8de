package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/pagetree/internal/flagx"
	"github.com/dmitrijs2005/pagetree/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations use timex.Duration
// so both "30s" and integer nanoseconds are accepted. Pointer fields tell
// an explicit false or zero apart from an absent key.
type JsonConfig struct {
	EndpointAddrGRPC string          `json:"endpoint_addr_grpc"`
	DatabaseDriver   string          `json:"database_driver"`
	DatabaseDSN      string          `json:"database_dsn"`
	SecretKey        string          `json:"secret_key"`
	DevMode          *bool           `json:"dev_mode"`
	LogBackend       string          `json:"log_backend"`
	RedisAddr        string          `json:"redis_addr"`
	RedisPassword    string          `json:"redis_password"`
	RedisDB          *int            `json:"redis_db"`
	LockTTL          *timex.Duration `json:"lock_ttl"`
	RewriteWorkers   *int            `json:"rewrite_workers"`
	S3RootUser       string          `json:"s3_root_user"`
	S3RootPassword   string          `json:"s3_root_password"`
	S3Bucket         string          `json:"s3_bucket"`
	S3Prefix         string          `json:"s3_prefix"`
	S3Region         string          `json:"s3_region"`
	S3BaseEndpoint   string          `json:"s3_base_endpoint"`
}

// parseJson overlays values from the file named by -c/-config. Keys that
// are absent or empty keep the current value. A missing or malformed
// file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Prefix, c.S3Prefix)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.DevMode != nil {
		config.DevMode = *c.DevMode
	}
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.LockTTL != nil {
		config.LockTTL = c.LockTTL.Duration
	}
	if c.RewriteWorkers != nil {
		config.RewriteWorkers = *c.RewriteWorkers
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
