package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const day = 24 * time.Hour

func loadConfig() config {
	return config{
		HTTPListen:     envOrDefault("HTTP_LISTEN", ":8080"),
		DBPath:         envOrDefault("DB_PATH", "ddns.db"),
		MigrationsDir:  strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogJSON:        envOrDefaultBool("LOG_JSON", false),
		QueryTimeout:   envOrDefaultDuration("DNS_QUERY_TIMEOUT", 5*time.Second),
		UpdateTimeout:  envOrDefaultDuration("DNS_UPDATE_TIMEOUT", 10*time.Second),
		DefaultTTL:     envOrDefaultUint32("DEFAULT_TTL", 60),
		StaleIPAge:     envOrDefaultDuration("STALE_IP_AGE", 325*day),
		StaleReactTime: envOrDefaultDuration("STALE_REACT_TIME", 8*day),
		SecretHashCost: int(envOrDefaultUint32("SECRET_HASH_COST", uint32(bcrypt.DefaultCost))),
	}
}

// loadConfigFile overlays the YAML file at path onto cfg. Keys the file
// does not set keep their current value.
func loadConfigFile(path string, cfg *config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c config) validate() error {
	var err error
	if strings.TrimSpace(c.DBPath) == "" {
		err = multierr.Append(err, errors.New("db_path is required"))
	}
	if c.QueryTimeout <= 0 {
		err = multierr.Append(err, errors.New("query_timeout must be positive"))
	}
	if c.UpdateTimeout <= 0 {
		err = multierr.Append(err, errors.New("update_timeout must be positive"))
	}
	if c.DefaultTTL == 0 {
		err = multierr.Append(err, errors.New("default_ttl must be positive"))
	}
	if c.StaleIPAge <= 0 || c.StaleReactTime <= 0 {
		err = multierr.Append(err, errors.New("staleness durations must be positive"))
	}
	if c.SecretHashCost < bcrypt.MinCost || c.SecretHashCost > bcrypt.MaxCost {
		err = multierr.Append(err, fmt.Errorf("secret_hash_cost must be within %d..%d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	return err
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envOrDefaultUint32(key string, fallback uint32) uint32 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 {
		return fallback
	}

	return uint32(n)
}

func envOrDefaultBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}

	return b
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}
