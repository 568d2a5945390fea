package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: ":memory:"
jwt:
  secret: "test-secret"
app:
  encryption_key: "test-key"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Server.Addr)
	}
	if cfg.App.Name != "Toolshelf" {
		t.Fatalf("expected default app name, got %q", cfg.App.Name)
	}
	if cfg.JWT.Expiry != 24*time.Hour {
		t.Fatalf("expected default expiry, got %v", cfg.JWT.Expiry)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("expected default log level, got %q", cfg.Log.Level)
	}
}

func TestLoadParsesExpiryDuration(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: ":memory:"
jwt:
  secret: "test-secret"
  expiry: "2h30m"
app:
  encryption_key: "test-key"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.Expiry != 2*time.Hour+30*time.Minute {
		t.Fatalf("expected 2h30m expiry, got %v", cfg.JWT.Expiry)
	}
}

func TestLoadRejectsBadExpiry(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: ":memory:"
jwt:
  secret: "test-secret"
  expiry: "one day"
app:
  encryption_key: "test-key"
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unparsable expiry")
	}
}

func TestLoadValidatesRequiredFields(t *testing.T) {
	cases := []string{
		// Missing DSN.
		`
jwt:
  secret: "test-secret"
app:
  encryption_key: "test-key"
`,
		// Missing JWT secret.
		`
database:
  dsn: ":memory:"
app:
  encryption_key: "test-key"
`,
		// Missing encryption key.
		`
database:
  dsn: ":memory:"
jwt:
  secret: "test-secret"
`,
	}
	for _, content := range cases {
		path := writeConfig(t, content)
		if _, err := Load(path); err == nil {
			t.Fatalf("expected validation error for:\n%s", content)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
