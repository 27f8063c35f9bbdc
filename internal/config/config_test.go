package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lmlmigrate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearLegacyEnv blanks every overlay variable so the host environment
// cannot leak into a test.
func clearLegacyEnv(t *testing.T) {
	t.Helper()
	for _, e := range envVars {
		t.Setenv(e.name, "")
	}
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `version: 1
source:
  host: mongo.internal
  username: reader
  password: readerpass
target:
  host: pg.internal
  database: lml
  username: writer
  password: writerpass
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Source.Database != "mesa4core" {
		t.Errorf("expected default source database mesa4core, got %s", cfg.Source.Database)
	}
	if cfg.Source.Port != 27017 || cfg.Source.AuthSource != "admin" {
		t.Errorf("source defaults = %d %s", cfg.Source.Port, cfg.Source.AuthSource)
	}
	if cfg.Target.Port != 5432 {
		t.Errorf("expected default target port 5432, got %d", cfg.Target.Port)
	}
	if cfg.BatchSize != 2000 {
		t.Errorf("expected default batch_size 2000, got %d", cfg.BatchSize)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadInvalidVersion(t *testing.T) {
	path := writeConfig(t, "version: 99\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid version")
	}
}

func TestLoadResolvesSecrets(t *testing.T) {
	t.Setenv("LML_PG_PASS", "from-env")
	path := writeConfig(t, `version: 1
source:
  host: mongo
target:
  host: pg
  database: lml
  password: ${ENV:LML_PG_PASS}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Target.Password != "from-env" {
		t.Errorf("expected resolved password, got %q", cfg.Target.Password)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lmlmigrate.yaml")
	cfg := Default()
	cfg.Source.Host = "mongo"
	cfg.Target.Database = "lml"
	cfg.BatchSize = 500

	if err := cfg.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.BatchSize != 500 || loaded.Source.Host != "mongo" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestLoadOrEnv_MissingFileWithEnv(t *testing.T) {
	clearLegacyEnv(t)
	t.Setenv("MONGO_HOST", "10.0.0.5")
	t.Setenv("MONGO_PORT", "27018")
	t.Setenv("MONGO_USER", "mongo")
	t.Setenv("MONGO_PASSWORD", "p@ss")
	t.Setenv("POSTGRES_DB", "lml")
	t.Setenv("POSTGRES_USER", "pg")

	cfg, err := LoadOrEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source.Host != "10.0.0.5" || cfg.Source.Port != 27018 || cfg.Source.Password != "p@ss" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Target.Host != "localhost" || cfg.Target.Database != "lml" || cfg.Target.Username != "pg" {
		t.Errorf("target = %+v", cfg.Target)
	}
}

func TestLoadOrEnv_MissingFileNoEnv(t *testing.T) {
	clearLegacyEnv(t)
	_, err := LoadOrEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want not-exist", err)
	}
}

func TestLoadOrEnv_EnvOverridesFile(t *testing.T) {
	clearLegacyEnv(t)
	t.Setenv("POSTGRES_HOST", "override")
	t.Setenv("MONGO_PORT", "not-a-number")
	path := writeConfig(t, `version: 1
source:
  host: mongo
  port: 27099
target:
  host: pg
  database: lml
`)
	cfg, err := LoadOrEnv(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Target.Host != "override" {
		t.Errorf("target host = %s, want override", cfg.Target.Host)
	}
	if cfg.Source.Port != 27099 {
		t.Errorf("invalid MONGO_PORT should keep file value, got %d", cfg.Source.Port)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearLegacyEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("MONGO_HOST=from-dotenv\nPOSTGRES_DB=lml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("MONGO_HOST"); got != "from-dotenv" {
		t.Errorf("MONGO_HOST = %q", got)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing .env should not fail: %v", err)
	}
}

func TestSourceConnectionString(t *testing.T) {
	s := SourceConfig{Host: "db", Port: 27017, Username: "u", Password: "p@ss", AuthSource: "admin"}
	got := s.ConnectionString()
	for _, part := range []string{"mongodb://u:p%40ss@db:27017/", "authSource=admin", "readPreference=primary", "directConnection=true"} {
		if !strings.Contains(got, part) {
			t.Errorf("connection string %q missing %q", got, part)
		}
	}

	s.URI = "mongodb+srv://cluster/x"
	if s.ConnectionString() != "mongodb+srv://cluster/x" {
		t.Error("URI should override individual fields")
	}
}

func TestTargetConnectionString(t *testing.T) {
	tc := TargetConfig{Host: "pg", Port: 5432, Database: "lml", Username: "w", Password: "secret", MaxConnections: 4}
	got := tc.ConnectionString()
	if !strings.HasPrefix(got, "postgres://w:secret@pg:5432/lml?") {
		t.Errorf("connection string = %q", got)
	}
	if !strings.Contains(got, "sslmode=disable") {
		t.Errorf("expected sslmode=disable in %q", got)
	}
	tc.SSL = true
	if !strings.Contains(tc.ConnectionString(), "sslmode=require") {
		t.Error("expected sslmode=require")
	}
	if r := Redacted(got); strings.Contains(r, "secret") {
		t.Errorf("Redacted leaked password: %s", r)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no source", func(c *Config) { c.Source.Host = "" }},
		{"no target host", func(c *Config) { c.Target.Host = "" }},
		{"no target db", func(c *Config) { c.Target.Database = "" }},
		{"bad batch", func(c *Config) { c.BatchSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Source.Host = "mongo"
			cfg.Target.Database = "lml"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
