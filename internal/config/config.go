package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.lmlmigrate/lmlmigrate.yaml"

	DefaultBatchSize = 2000
	DefaultDatabase  = "mesa4core"
)

// Config is the top-level configuration.
type Config struct {
	Version   int          `yaml:"version"`
	Source    SourceConfig `yaml:"source"`
	Target    TargetConfig `yaml:"target"`
	BatchSize int          `yaml:"batch_size,omitempty"`
	Logging   LogConfig    `yaml:"logging,omitempty"`
}

// SourceConfig defines the MongoDB connection. URI, when set, wins over the
// individual fields.
type SourceConfig struct {
	URI        string `yaml:"uri,omitempty"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	AuthSource string `yaml:"auth_source,omitempty"`
	Database   string `yaml:"database"`
}

// TargetConfig defines the PostgreSQL connection.
type TargetConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Database       string `yaml:"database"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	SSL            bool   `yaml:"ssl,omitempty"`
	MaxConnections int    `yaml:"max_connections,omitempty"` // default 4
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level         string `yaml:"level,omitempty"`          // debug, info, warn, error
	Directory     string `yaml:"directory,omitempty"`      // default ~/.lmlmigrate/logs/
	RetentionDays int    `yaml:"retention_days,omitempty"` // default 30
}

// Default returns a configuration with every default applied and no
// credentials.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// LoadOrEnv loads the config file and overlays the legacy environment
// variables on top of it. A missing file is tolerated as long as the
// environment names both stores.
func LoadOrEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		if !envConfigured() {
			return nil, fmt.Errorf("%w (and no MONGO_HOST/POSTGRES_DB in the environment)", err)
		}
		cfg = Default()
	default:
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate reports the first missing setting needed to connect.
func (c *Config) Validate() error {
	if c.Source.URI == "" && c.Source.Host == "" {
		return errors.New("source: host or uri is required")
	}
	if c.Target.Host == "" {
		return errors.New("target: host is required")
	}
	if c.Target.Database == "" {
		return errors.New("target: database is required")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	if c.Source.Port == 0 {
		c.Source.Port = 27017
	}
	if c.Source.AuthSource == "" {
		c.Source.AuthSource = "admin"
	}
	if c.Source.Database == "" {
		c.Source.Database = DefaultDatabase
	}
	if c.Target.Host == "" {
		c.Target.Host = "localhost"
	}
	if c.Target.Port == 0 {
		c.Target.Port = 5432
	}
	if c.Target.MaxConnections == 0 {
		c.Target.MaxConnections = 4
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.lmlmigrate/logs/")
	}
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = 30
	}
}

func (c *Config) resolveSecrets() error {
	var err error
	c.Source.Password, err = ResolveValue(c.Source.Password)
	if err != nil {
		return fmt.Errorf("source password: %w", err)
	}
	c.Source.URI, err = ResolveValue(c.Source.URI)
	if err != nil {
		return fmt.Errorf("source uri: %w", err)
	}
	c.Target.Password, err = ResolveValue(c.Target.Password)
	if err != nil {
		return fmt.Errorf("target password: %w", err)
	}
	return nil
}

// ConnectionString builds the MongoDB URI. The legacy deployment talks to
// a single node directly, reading from the primary without TLS.
func (s SourceConfig) ConnectionString() string {
	if s.URI != "" {
		return s.URI
	}
	u := url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Path:   "/",
	}
	if s.Username != "" {
		u.User = url.UserPassword(s.Username, s.Password)
	}
	q := url.Values{}
	q.Set("authSource", s.AuthSource)
	q.Set("readPreference", "primary")
	q.Set("directConnection", "true")
	q.Set("ssl", "false")
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectionString builds the PostgreSQL URL understood by pgx.
func (t TargetConfig) ConnectionString() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(t.Host, strconv.Itoa(t.Port)),
		Path:   "/" + t.Database,
	}
	if t.Username != "" {
		u.User = url.UserPassword(t.Username, t.Password)
	}
	mode := "disable"
	if t.SSL {
		mode = "require"
	}
	q := url.Values{}
	q.Set("sslmode", mode)
	q.Set("pool_max_conns", strconv.Itoa(t.MaxConnections))
	u.RawQuery = q.Encode()
	return u.String()
}

// Redacted renders a connection URL with its password masked.
func Redacted(conn string) string {
	u, err := url.Parse(conn)
	if err != nil {
		return conn
	}
	return u.Redacted()
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
