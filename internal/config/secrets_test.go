package config

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// vaultServer serves a KV v2 secret at /v1/secret/data/lmlmigrate.
func vaultServer(t *testing.T, data map[string]any) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/lmlmigrate" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Vault-Token") != "test-token" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"data": data}})
	}))
	t.Cleanup(server.Close)
	t.Setenv("VAULT_ADDR", server.URL)
	t.Setenv("VAULT_TOKEN", "test-token")
}

func TestResolveVault(t *testing.T) {
	vaultServer(t, map[string]any{"password": "s3cret", "port": 5432})
	ctx := context.Background()

	val, err := resolveVault(ctx, "secret/data/lmlmigrate#password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "s3cret" {
		t.Errorf("expected 's3cret', got %q", val)
	}

	if _, err := resolveVault(ctx, "secret/data/lmlmigrate#missing"); err == nil {
		t.Error("expected error for missing key")
	}
	if _, err := resolveVault(ctx, "secret/data/lmlmigrate#port"); err == nil {
		t.Error("expected error for non-string value")
	}
}

func TestResolveVault_InvalidReference(t *testing.T) {
	t.Setenv("VAULT_ADDR", "http://localhost:8200")
	t.Setenv("VAULT_TOKEN", "test-token")

	for _, ref := range []string{"no-hash-separator", "#key", "path#"} {
		if _, err := resolveVault(context.Background(), ref); err == nil {
			t.Errorf("expected error for %q", ref)
		}
	}
}

func TestResolveVault_MissingEnv(t *testing.T) {
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("VAULT_TOKEN", "")

	if _, err := resolveVault(context.Background(), "secret/data/path#key"); err == nil {
		t.Error("expected error when VAULT_ADDR not set")
	}
}

func TestResolveValue(t *testing.T) {
	vaultServer(t, map[string]any{"mongo_pass": "hunter2"})
	t.Setenv("MONGO_SECRET_USER", "migrator")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "plaintext", "plaintext"},
		{"env", "${ENV:MONGO_SECRET_USER}", "migrator"},
		{"vault", "${VAULT:secret/data/lmlmigrate#mongo_pass}", "hunter2"},
		{"embedded", "mongodb://${ENV:MONGO_SECRET_USER}:${VAULT:secret/data/lmlmigrate#mongo_pass}@db:27017/", "mongodb://migrator:hunter2@db:27017/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveValue(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveValue_Errors(t *testing.T) {
	t.Setenv("LMLMIGRATE_UNSET", "")
	if _, err := ResolveValue("${ENV:LMLMIGRATE_UNSET}"); err == nil {
		t.Error("expected error for unset variable")
	}
}

func TestResolveValue_AWSSM(t *testing.T) {
	// Without valid AWS credentials this fails, which confirms the wiring.
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	if _, err := ResolveValue("${AWS_SM:nonexistent-secret}"); err == nil {
		t.Error("expected error when AWS credentials are not configured")
	}
}
