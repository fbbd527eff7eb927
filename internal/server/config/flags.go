package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/adminaccess/internal/flagx"
)

var serverFlags = []string{"-a", "-d", "-m", "-s", "-i", "-t", "-r", "-n", "-k", "-u", "-p", "-b", "-g", "-e", "-l", "-f"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-d string     PostgreSQL DSN
//	-m string     storage: postgres | memory
//	-s string     session token signing key
//	-i string     session token issuer
//	-t duration   session token lifetime (e.g., "24h")
//	-r duration   recovery token lifetime (e.g., "1h")
//	-n string     notifier: log | s3
//	-k string     recovery link base URL
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string     log level
//	-f string     log format: json | text
//
// os.Args is first narrowed to these flags with flagx.FilterArgs, so the
// -c/-config file flag and anything else is ignored here.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("adminaccess", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Storage, "m", config.Storage, "storage backend")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.TokenIssuer, "i", config.TokenIssuer, "token issuer")
	fs.DurationVar(&config.SessionTokenTTL, "t", config.SessionTokenTTL, "session token ttl")
	fs.DurationVar(&config.RecoveryTokenTTL, "r", config.RecoveryTokenTTL, "recovery token ttl")
	fs.StringVar(&config.Notifier, "n", config.Notifier, "recovery notifier")
	fs.StringVar(&config.RecoveryLinkBase, "k", config.RecoveryLinkBase, "recovery link base URL")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")

	return fs.Parse(args)
}
