package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/adminaccess/internal/flagx"
	"github.com/dmitrijs2005/adminaccess/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations use
// timex.Duration so both "24h" and integer nanoseconds are accepted.
// Absent fields keep their previous value.
type FileConfig struct {
	EndpointAddrGRPC string `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN      string `json:"database_dsn" yaml:"database_dsn"`
	Storage          string `json:"storage" yaml:"storage"`

	SecretKey        string         `json:"secret_key" yaml:"secret_key"`
	TokenIssuer      string         `json:"token_issuer" yaml:"token_issuer"`
	SessionTokenTTL  timex.Duration `json:"session_token_ttl" yaml:"session_token_ttl"`
	RecoveryTokenTTL timex.Duration `json:"recovery_token_ttl" yaml:"recovery_token_ttl"`

	HashTime      uint32 `json:"hash_time" yaml:"hash_time"`
	HashMemoryKiB uint32 `json:"hash_memory_kib" yaml:"hash_memory_kib"`
	HashThreads   uint8  `json:"hash_threads" yaml:"hash_threads"`

	DefaultRoleID    int64  `json:"default_role_id" yaml:"default_role_id"`
	RecoveryLinkBase string `json:"recovery_link_base" yaml:"recovery_link_base"`

	Notifier       string `json:"notifier" yaml:"notifier"`
	S3RootUser     string `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region       string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`

	MethodPermissions    map[string]string `json:"method_permissions" yaml:"method_permissions"`
	PublicMethodPrefixes []string          `json:"public_method_prefixes" yaml:"public_method_prefixes"`
}

// parseFile overlays the file named by -c/-config, if any.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}
	return loadFile(config, path)
}

// loadFile picks the decoder by extension: .yaml/.yml for YAML, anything
// else JSON.
func loadFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.Storage, fc.Storage)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.TokenIssuer, fc.TokenIssuer)
	if fc.SessionTokenTTL.Duration != 0 {
		c.SessionTokenTTL = fc.SessionTokenTTL.Duration
	}
	if fc.RecoveryTokenTTL.Duration != 0 {
		c.RecoveryTokenTTL = fc.RecoveryTokenTTL.Duration
	}
	if fc.HashTime != 0 {
		c.HashTime = fc.HashTime
	}
	if fc.HashMemoryKiB != 0 {
		c.HashMemoryKiB = fc.HashMemoryKiB
	}
	if fc.HashThreads != 0 {
		c.HashThreads = fc.HashThreads
	}
	if fc.DefaultRoleID != 0 {
		c.DefaultRoleID = fc.DefaultRoleID
	}
	setString(&c.RecoveryLinkBase, fc.RecoveryLinkBase)
	setString(&c.Notifier, fc.Notifier)
	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	if len(fc.MethodPermissions) > 0 {
		c.MethodPermissions = fc.MethodPermissions
	}
	if len(fc.PublicMethodPrefixes) > 0 {
		c.PublicMethodPrefixes = fc.PublicMethodPrefixes
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
