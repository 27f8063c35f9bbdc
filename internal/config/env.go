package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnvFile exports the variables of a .env file into the process
// environment, overriding existing values like the legacy scripts did. A
// missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Overload(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// envVars maps the legacy deployment variables onto config fields.
var envVars = []struct {
	name string
	set  func(c *Config, v string)
}{
	{"MONGO_HOST", func(c *Config, v string) { c.Source.Host = v }},
	{"MONGO_PORT", func(c *Config, v string) { c.Source.Port = atoiOr(v, c.Source.Port) }},
	{"MONGO_USER", func(c *Config, v string) { c.Source.Username = v }},
	{"MONGO_PASSWORD", func(c *Config, v string) { c.Source.Password = v }},
	{"MONGO_AUTH_SOURCE", func(c *Config, v string) { c.Source.AuthSource = v }},
	{"POSTGRES_HOST", func(c *Config, v string) { c.Target.Host = v }},
	{"POSTGRES_PORT", func(c *Config, v string) { c.Target.Port = atoiOr(v, c.Target.Port) }},
	{"POSTGRES_DB", func(c *Config, v string) { c.Target.Database = v }},
	{"POSTGRES_USER", func(c *Config, v string) { c.Target.Username = v }},
	{"POSTGRES_PASSWORD", func(c *Config, v string) { c.Target.Password = v }},
}

// ApplyEnv overlays every non-empty legacy variable onto c.
func (c *Config) ApplyEnv() {
	for _, e := range envVars {
		if v := os.Getenv(e.name); v != "" {
			e.set(c, v)
		}
	}
}

func envConfigured() bool {
	return os.Getenv("MONGO_HOST") != "" && os.Getenv("POSTGRES_DB") != ""
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
