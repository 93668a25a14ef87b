// Package config loads the yurt server configuration from YAML.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aretw0/yurt/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

// Transport kinds.
const (
	TransportCookie = "cookie"
	TransportHeader = "header"
)

// Config is the full server configuration.
type Config struct {
	Listen     string           `yaml:"listen"`
	Log        LogConfig        `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	Transport  string           `yaml:"transport"`
	Cookie     CookieConfig     `yaml:"cookie"`
	Lifetime   time.Duration    `yaml:"lifetime"`
	Optimistic bool             `yaml:"optimistic"`
	Encryption EncryptionConfig `yaml:"encryption"`
	PII        PIIConfig        `yaml:"pii"`
}

// LogConfig selects the log level and format (text or json).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig selects the backend by Kind and holds the settings of each one.
type StoreConfig struct {
	Kind     string         `yaml:"kind"`
	Redis    RedisConfig    `yaml:"redis"`
	File     FileConfig     `yaml:"file"`
	Bolt     BoltConfig     `yaml:"bolt"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig configures the redis store. A zero TTL keeps sessions forever.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// FileConfig configures the file store.
type FileConfig struct {
	Dir string `yaml:"dir"`
}

// BoltConfig configures the bbolt store.
type BoltConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig configures the postgres store. An empty Table means the default.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// CookieConfig holds the credential attributes. Name is also the header
// name when the header transport is used.
type CookieConfig struct {
	Name     string `yaml:"name"`
	HTTPOnly bool   `yaml:"httponly"`
	Secure   bool   `yaml:"secure"`
	Domain   string `yaml:"domain"`
	Path     string `yaml:"path"`
	SameSite string `yaml:"samesite"`
}

// EncryptionConfig enables at-rest encryption when Key is set.
// Keys are base64 encoded 32 byte AES keys.
type EncryptionConfig struct {
	Key          string   `yaml:"key"`
	FallbackKeys []string `yaml:"fallback_keys"`
}

// PIIConfig lists regular expressions of variable names masked before storage.
type PIIConfig struct {
	Patterns []string `yaml:"patterns"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen: ":8080",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Kind: StoreMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "yurt:session:",
			},
			File: FileConfig{Dir: ".yurt/sessions"},
			Bolt: BoltConfig{Path: ".yurt/sessions.db"},
			Postgres: PostgresConfig{
				Table: "yurt_sessions",
			},
		},
		Transport: TransportCookie,
		Cookie: CookieConfig{
			Name:     "session",
			HTTPOnly: true,
			Path:     "/",
			SameSite: "lax",
		},
	}
}

// Load reads the YAML file at path over the defaults.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis, StoreBolt:
	case StorePostgres:
		if c.Store.Postgres.DSN == "" {
			return errors.New("store.postgres.dsn is required")
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}

	switch c.Transport {
	case TransportCookie, TransportHeader:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}

	if c.Cookie.Name == "" {
		return errors.New("cookie.name cannot be empty")
	}
	if _, err := parseSameSite(c.Cookie.SameSite); err != nil {
		return err
	}
	if c.Lifetime < 0 {
		return errors.New("lifetime cannot be negative")
	}
	if _, _, err := c.Encryption.Keys(); err != nil {
		return err
	}
	return nil
}

// Attributes converts the cookie settings to transport attributes.
func (c CookieConfig) Attributes() ports.CredentialAttributes {
	sameSite, _ := parseSameSite(c.SameSite)
	return ports.CredentialAttributes{
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		Domain:   c.Domain,
		Path:     c.Path,
		SameSite: sameSite,
	}
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return http.SameSiteDefaultMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("unknown samesite mode %q", s)
	}
}

// Enabled reports whether a key is configured.
func (e EncryptionConfig) Enabled() bool {
	return e.Key != ""
}

// Keys decodes the active and fallback keys.
func (e EncryptionConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if !e.Enabled() {
		if len(e.FallbackKeys) > 0 {
			return nil, nil, errors.New("encryption.fallback_keys needs encryption.key")
		}
		return nil, nil, nil
	}

	active, err = decodeKey(e.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption.key: %w", err)
	}
	for i, k := range e.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("encryption.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("not base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
