package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/pagetree/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-k string     database driver ("pgx" or "sqlite")
//	-d string     database DSN
//	-s string     JWT HMAC secret key
//	-m            development mode
//	-l string     log backend ("slog" or "zap")
//	-r string     Redis address
//	-w string     Redis password
//	-n int        Redis database
//	-t duration   lock TTL (e.g., "30s")
//	-j int        link rewrite workers
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-x string     S3 key prefix
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-a", "-k", "-d", "-s", "-l", "-r", "-w", "-n", "-t", "-j", "-u", "-p", "-b", "-x", "-g", "-e"},
		"-m")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "k", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.BoolVar(&config.DevMode, "m", config.DevMode, "development mode")
	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend")

	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address")
	fs.StringVar(&config.RedisPassword, "w", config.RedisPassword, "Redis password")
	fs.IntVar(&config.RedisDB, "n", config.RedisDB, "Redis database")
	fs.DurationVar(&config.LockTTL, "t", config.LockTTL, "lock TTL")
	fs.IntVar(&config.RewriteWorkers, "j", config.RewriteWorkers, "link rewrite workers")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Prefix, "x", config.S3Prefix, "S3 key prefix")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
