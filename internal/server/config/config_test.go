package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"testbin"}, args...)
}

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	orig := lookupEnv
	t.Cleanup(func() { lookupEnv = orig })
	lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, StoragePostgres, c.Storage)
	assert.Equal(t, DefaultSecretKey, c.SecretKey)
	assert.Equal(t, 24*time.Hour, c.SessionTokenTTL)
	assert.Equal(t, time.Hour, c.RecoveryTokenTTL)
	assert.Equal(t, uint32(3), c.HashTime)
	assert.Equal(t, uint32(65536), c.HashMemoryKiB)
	assert.Equal(t, uint8(1), c.HashThreads)
	assert.Equal(t, int64(2), c.DefaultRoleID)
	assert.Equal(t, NotifierLog, c.Notifier)
	assert.True(t, c.UsesDefaultSecret())
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"memory without dsn", func(c *Config) { c.Storage = StorageMemory; c.DatabaseDSN = "" }, true},
		{"postgres without dsn", func(c *Config) { c.DatabaseDSN = "" }, false},
		{"unknown storage", func(c *Config) { c.Storage = "redis" }, false},
		{"unknown notifier", func(c *Config) { c.Notifier = "sms" }, false},
		{"s3 without bucket", func(c *Config) { c.Notifier = NotifierS3; c.S3Bucket = "" }, false},
		{"empty secret", func(c *Config) { c.SecretKey = "" }, false},
		{"zero session ttl", func(c *Config) { c.SessionTokenTTL = 0 }, false},
		{"negative recovery ttl", func(c *Config) { c.RecoveryTokenTTL = -time.Second }, false},
		{"zero role", func(c *Config) { c.DefaultRoleID = 0 }, false},
		{"method table", func(c *Config) { c.MethodPermissions = map[string]string{"/a.B/C": "orders.read"} }, true},
		{"method without slash", func(c *Config) { c.MethodPermissions = map[string]string{"a.B/C": "orders.read"} }, false},
		{"method without permission", func(c *Config) { c.MethodPermissions = map[string]string{"/a.B/C": " "} }, false},
		{"public prefix without slash", func(c *Config) { c.PublicMethodPrefixes = []string{"a.B/"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			if tt.ok {
				assert.NoError(t, c.Validate())
			} else {
				assert.Error(t, c.Validate())
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	withArgs(t,
		"-a", "127.0.0.1:9090", "-d", "db", "-m", "memory", "-s", "secret", "-i", "issuer",
		"-t", "2h", "-r", "15m", "-n", "s3", "-k", "https://x/recovery",
		"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
		"-l", "debug", "-f", "text", "-c", "ignored.yaml",
	)

	got := defaults()
	require.NoError(t, parseFlags(got))

	want := defaults()
	want.EndpointAddrGRPC = "127.0.0.1:9090"
	want.DatabaseDSN = "db"
	want.Storage = StorageMemory
	want.SecretKey = "secret"
	want.TokenIssuer = "issuer"
	want.SessionTokenTTL = 2 * time.Hour
	want.RecoveryTokenTTL = 15 * time.Minute
	want.Notifier = NotifierS3
	want.RecoveryLinkBase = "https://x/recovery"
	want.S3RootUser = "user"
	want.S3RootPassword = "password"
	want.S3Bucket = "bucket"
	want.S3Region = "us-west-1"
	want.S3BaseEndpoint = "http://endpoint"
	want.LogLevel = "debug"
	want.LogFormat = "text"

	assert.Empty(t, cmp.Diff(want, got))
}

func TestParseFlags_BadDuration(t *testing.T) {
	withArgs(t, "-t", "forever")
	assert.Error(t, parseFlags(defaults()))
}

func TestParseEnv(t *testing.T) {
	withEnv(t, map[string]string{
		"ADMINACCESS_SECRET_KEY":         "from-env",
		"ADMINACCESS_SESSION_TOKEN_TTL":  "12h",
		"ADMINACCESS_HASH_MEMORY_KIB":    "32768",
		"ADMINACCESS_HASH_THREADS":       "4",
		"ADMINACCESS_DEFAULT_ROLE_ID":    "3",
		"ADMINACCESS_STORAGE":            "memory",
		"ADMINACCESS_RECOVERY_LINK_BASE": "",
	})

	got := defaults()
	require.NoError(t, parseEnv(got))

	want := defaults()
	want.SecretKey = "from-env"
	want.SessionTokenTTL = 12 * time.Hour
	want.HashMemoryKiB = 32768
	want.HashThreads = 4
	want.DefaultRoleID = 3
	want.Storage = StorageMemory

	assert.Empty(t, cmp.Diff(want, got))
	assert.False(t, got.UsesDefaultSecret())
}

func TestParseEnv_ReportsEveryBadValue(t *testing.T) {
	withEnv(t, map[string]string{
		"ADMINACCESS_SESSION_TOKEN_TTL": "soon",
		"ADMINACCESS_HASH_THREADS":      "300",
	})

	err := parseEnv(defaults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMINACCESS_SESSION_TOKEN_TTL")
	assert.Contains(t, err.Error(), "ADMINACCESS_HASH_THREADS")
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeFile(t, "cfg.json", `{
		"endpoint_addr_grpc": "www.example:9000",
		"secret_key": "my_secret_key",
		"session_token_ttl": "48h",
		"recovery_token_ttl": 1800000000000,
		"hash_time": 4,
		"notifier": "s3",
		"s3_bucket": "outbox"
	}`)

	got := defaults()
	require.NoError(t, loadFile(got, path))

	want := defaults()
	want.EndpointAddrGRPC = "www.example:9000"
	want.SecretKey = "my_secret_key"
	want.SessionTokenTTL = 48 * time.Hour
	want.RecoveryTokenTTL = 30 * time.Minute
	want.HashTime = 4
	want.Notifier = NotifierS3
	want.S3Bucket = "outbox"

	assert.Empty(t, cmp.Diff(want, got))
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "cfg.yaml", `
storage: memory
secret_key: yaml-secret
session_token_ttl: 6h
recovery_token_ttl: 45m
hash_threads: 2
default_role_id: 3
log_format: text
`)

	got := defaults()
	require.NoError(t, loadFile(got, path))

	want := defaults()
	want.Storage = StorageMemory
	want.SecretKey = "yaml-secret"
	want.SessionTokenTTL = 6 * time.Hour
	want.RecoveryTokenTTL = 45 * time.Minute
	want.HashThreads = 2
	want.DefaultRoleID = 3
	want.LogFormat = "text"

	assert.Empty(t, cmp.Diff(want, got))
}

func TestLoadFile_MethodTable(t *testing.T) {
	path := writeFile(t, "cfg.yaml", `
method_permissions:
  /adminaccess.v1.Orders/Update: orders.write
  /adminaccess.v1.Users/Delete: users.manage
public_method_prefixes:
  - /adminaccess.v1.Public/
`)

	got := defaults()
	require.NoError(t, loadFile(got, path))

	want := defaults()
	want.MethodPermissions = map[string]string{
		"/adminaccess.v1.Orders/Update": "orders.write",
		"/adminaccess.v1.Users/Delete":  "users.manage",
	}
	want.PublicMethodPrefixes = []string{"/adminaccess.v1.Public/"}

	assert.Empty(t, cmp.Diff(want, got))
	assert.NoError(t, got.Validate())
}

func TestLoadFile_Errors(t *testing.T) {
	assert.Error(t, loadFile(defaults(), filepath.Join(t.TempDir(), "missing.json")))
	assert.Error(t, loadFile(defaults(), writeFile(t, "bad.json", `{"session_token_ttl": "later"}`)))
	assert.Error(t, loadFile(defaults(), writeFile(t, "bad.yml", "storage: [unclosed")))
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "secret_key: from-file\ntoken_issuer: file-issuer\nstorage: memory\n")
	withArgs(t, "-c", path, "-s", "from-flag")
	withEnv(t, map[string]string{
		"ADMINACCESS_SECRET_KEY":   "from-env",
		"ADMINACCESS_TOKEN_ISSUER": "env-issuer",
	})

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-flag", c.SecretKey)
	assert.Equal(t, "env-issuer", c.TokenIssuer)
	assert.Equal(t, StorageMemory, c.Storage)
}

func TestLoadConfig_Invalid(t *testing.T) {
	withArgs(t, "-m", "redis")
	withEnv(t, nil)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}
