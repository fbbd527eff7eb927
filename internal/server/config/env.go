package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "ADMINACCESS_"

var lookupEnv = os.LookupEnv

type envVar struct {
	name string
	set  func(c *Config, v string) error
}

func stringVar(name string, field func(c *Config) *string) envVar {
	return envVar{name, func(c *Config, v string) error {
		*field(c) = v
		return nil
	}}
}

func durationVar(name string, field func(c *Config) *time.Duration) envVar {
	return envVar{name, func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}}
}

func uintVar(name string, bits int, set func(c *Config, n uint64)) envVar {
	return envVar{name, func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			return err
		}
		set(c, n)
		return nil
	}}
}

var envVars = []envVar{
	stringVar("GRPC_ADDR", func(c *Config) *string { return &c.EndpointAddrGRPC }),
	stringVar("DATABASE_DSN", func(c *Config) *string { return &c.DatabaseDSN }),
	stringVar("STORAGE", func(c *Config) *string { return &c.Storage }),
	stringVar("SECRET_KEY", func(c *Config) *string { return &c.SecretKey }),
	stringVar("TOKEN_ISSUER", func(c *Config) *string { return &c.TokenIssuer }),
	durationVar("SESSION_TOKEN_TTL", func(c *Config) *time.Duration { return &c.SessionTokenTTL }),
	durationVar("RECOVERY_TOKEN_TTL", func(c *Config) *time.Duration { return &c.RecoveryTokenTTL }),
	uintVar("HASH_TIME", 32, func(c *Config, n uint64) { c.HashTime = uint32(n) }),
	uintVar("HASH_MEMORY_KIB", 32, func(c *Config, n uint64) { c.HashMemoryKiB = uint32(n) }),
	uintVar("HASH_THREADS", 8, func(c *Config, n uint64) { c.HashThreads = uint8(n) }),
	{"DEFAULT_ROLE_ID", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.DefaultRoleID = n
		return nil
	}},
	stringVar("RECOVERY_LINK_BASE", func(c *Config) *string { return &c.RecoveryLinkBase }),
	stringVar("NOTIFIER", func(c *Config) *string { return &c.Notifier }),
	stringVar("S3_ROOT_USER", func(c *Config) *string { return &c.S3RootUser }),
	stringVar("S3_ROOT_PASSWORD", func(c *Config) *string { return &c.S3RootPassword }),
	stringVar("S3_BUCKET", func(c *Config) *string { return &c.S3Bucket }),
	stringVar("S3_REGION", func(c *Config) *string { return &c.S3Region }),
	stringVar("S3_BASE_ENDPOINT", func(c *Config) *string { return &c.S3BaseEndpoint }),
	stringVar("LOG_LEVEL", func(c *Config) *string { return &c.LogLevel }),
	stringVar("LOG_FORMAT", func(c *Config) *string { return &c.LogFormat }),
}

// parseEnv overlays every set, non-empty ADMINACCESS_* variable. All
// malformed values are reported together.
func parseEnv(config *Config) error {
	var errs []error
	for _, ev := range envVars {
		v, ok := lookupEnv(EnvPrefix + ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.set(config, v); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, ev.name, err))
		}
	}
	return errors.Join(errs...)
}
