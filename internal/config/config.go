// Package config loads the YAML service configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no path is given on the command line.
const DefaultConfigPath = "config.yaml"

// defaultJWTExpiry applies when jwt.expiry is not configured.
const defaultJWTExpiry = 24 * time.Hour

// Config is the root service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	App      AppConfig      `yaml:"app"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig holds the datastore DSN. Postgres and SQLite DSNs are both
// accepted; the db package detects the dialect.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// JWTConfig holds session-token signing settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"-"`
}

// UnmarshalYAML parses the expiry as a duration string, e.g. "24h".
func (c *JWTConfig) UnmarshalYAML(node *yaml.Node) error {
	var aux struct {
		Secret string `yaml:"secret"`
		Expiry string `yaml:"expiry"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	c.Secret = aux.Secret
	c.Expiry = defaultJWTExpiry
	if trimmed := strings.TrimSpace(aux.Expiry); trimmed != "" {
		parsed, err := time.ParseDuration(trimmed)
		if err != nil {
			return fmt.Errorf("config: jwt.expiry: %w", err)
		}
		c.Expiry = parsed
	}
	return nil
}

// AppConfig holds application identity and secret-at-rest settings.
type AppConfig struct {
	// Name is shown as the issuer in authenticator apps.
	Name string `yaml:"name"`
	// EncryptionKey seals TOTP secrets at rest.
	EncryptionKey string `yaml:"encryption_key"`
}

// RedisConfig holds optional cache settings. Caching is disabled when Addr
// is empty.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig holds logging settings. When File is set, output rotates there
// instead of going to stderr.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if errDecode := yaml.Unmarshal(raw, cfg); errDecode != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errDecode)
	}
	cfg.applyDefaults()
	if errValidate := cfg.validate(); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = ":8080"
	}
	if strings.TrimSpace(c.App.Name) == "" {
		c.App.Name = "Toolshelf"
	}
	if c.JWT.Expiry <= 0 {
		c.JWT.Expiry = defaultJWTExpiry
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database.dsn is required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt.secret is required")
	}
	if strings.TrimSpace(c.App.EncryptionKey) == "" {
		return errors.New("config: app.encryption_key is required")
	}
	return nil
}
