package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SecretStore resolves secret values by key.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
}

// EnvironmentSecretStore reads secrets from the process environment. A
// variable named KEY_FILE takes precedence and names a file holding the value.
type EnvironmentSecretStore struct{}

func NewEnvironmentSecretStore() *EnvironmentSecretStore { return &EnvironmentSecretStore{} }

func (s *EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	if path := os.Getenv(key + "_FILE"); path != "" {
		b, err := os.ReadFile(path) // #nosec G304 - operator supplied path
		if err != nil {
			return "", fmt.Errorf("read secret file for %s: %w", key, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("secret %s not set", key)
	}
	return v, nil
}

// GetWithDefault returns def when the secret is missing.
func (s *EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	v, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	return v
}

// LoadSecretsFromEnv fills credentials that should not live in config files.
func (c *Config) LoadSecretsFromEnv(ctx context.Context) error {
	return c.LoadSecrets(ctx, NewEnvironmentSecretStore())
}

// LoadSecrets fills credentials from store. Missing secrets keep the current value.
func (c *Config) LoadSecrets(ctx context.Context, store SecretStore) error {
	if c.Storage.Adapter == "redis" {
		if v, err := store.Get(ctx, EnvPrefix+"_SECRET_REDIS_PASSWORD"); err == nil {
			c.Storage.Redis.Password = v
		}
	}
	if c.Storage.Adapter == "sql" {
		if v, err := store.Get(ctx, EnvPrefix+"_SECRET_SQL_DSN"); err == nil {
			c.Storage.SQL.DSN = v
		}
	}
	return nil
}
