package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/tenantgate/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, TENANTGATE_CONFIG env, ./config.yaml, /etc/tenantgate/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. TENANTGATE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/tenantgate/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("TENANTGATE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/tenantgate/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
// Unknown keys are rejected so that typos do not silently fall back to
// defaults.
func loadYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides maps environment variables to config fields. Besides
// the TENANTGATE_* names it honors the variable names used by existing
// deployments.
func applyEnvOverrides(cfg *Config) error {
	var errs []string
	intVar := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not an integer", name, v))
				return
			}
			*dst = n
		}
	}

	// Server.
	intVar("PORT", &cfg.Server.Port)
	intVar("TENANTGATE_PORT", &cfg.Server.Port)
	if v := firstEnv("TENANTGATE_ENV", "NODE_ENV"); v != "" {
		cfg.Server.Environment = v
	}
	if v := os.Getenv("JSON_BODY_LIMIT"); v != "" {
		n, err := ParseByteSize(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("JSON_BODY_LIMIT: %v", err))
		} else {
			cfg.Server.MaxBodySize = n
		}
	}
	if v := os.Getenv("TENANTGATE_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	// Storage. A DATABASE_URL alone selects postgres.
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.Postgres.DSN = v
		cfg.Storage.Type = "postgres"
	}
	if v := os.Getenv("TENANTGATE_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if envBool("SKIP_DB") {
		cfg.Auth.StubMode = true
	}

	// Auth.
	if envBool("SKIP_AUTH") {
		cfg.Auth.Enabled = false
	}
	if v := firstEnv("RENDER_AUTH_USER", "BASIC_AUTH_USER"); v != "" {
		cfg.Auth.SuperAdmin.Username = v
	}
	if v := firstEnv("RENDER_AUTH_PASSWORD", "BASIC_AUTH_PASSWORD"); v != "" {
		cfg.Auth.SuperAdmin.Password = v
	}
	if v := os.Getenv("TENANTGATE_AUTH_REALM"); v != "" {
		cfg.Auth.Realm = v
	}
	intVar("RATE_LIMIT_MAX", &cfg.Auth.RateLimit.RequestsPerMinute)
	if envBool("SKIP_RATE_LIMIT") {
		cfg.Auth.RateLimit.Enabled = false
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// auth.super_admin.password_file -> auth.super_admin.password
	if cfg.Auth.SuperAdmin.PasswordFile != "" && cfg.Auth.SuperAdmin.Password == "" {
		val, err := readSecretFile(cfg.Auth.SuperAdmin.PasswordFile)
		if err != nil {
			return fmt.Errorf("auth.super_admin.password_file: %w", err)
		}
		cfg.Auth.SuperAdmin.Password = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ParseByteSize parses sizes such as "1048576", "512kb" or "1mb"
// (case-insensitive, binary multiples).
func ParseByteSize(s string) (int64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	mult := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"gb", 1 << 30},
		{"mb", 1 << 20},
		{"kb", 1 << 10},
		{"b", 1},
	} {
		if strings.HasSuffix(v, unit.suffix) {
			v = strings.TrimSpace(strings.TrimSuffix(v, unit.suffix))
			mult = unit.mult
			break
		}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if n > math.MaxInt64/mult {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return n * mult, nil
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func envBool(name string) bool {
	b, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
