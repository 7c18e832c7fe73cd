package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("VIRUSTOTAL_API_KEY", "")
	cfg, err := Parse([]byte("server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != DriverMySQL || cfg.Database.Port != 3306 {
		t.Fatalf("database defaults: %+v", cfg.Database)
	}
	if cfg.Upload.MaxSizeMB != 10 || cfg.MaxUploadBytes() != 10<<20 {
		t.Fatalf("upload default = %d", cfg.Upload.MaxSizeMB)
	}
	if cfg.VirusTotal.MaxAttempts != 3 || cfg.LookupTimeout().Seconds() != 20 {
		t.Fatalf("virustotal defaults: %+v", cfg.VirusTotal)
	}
	if cfg.ReputationMode() != ModeStub {
		t.Fatalf("mode without key = %s", cfg.ReputationMode())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VIRUSTOTAL_API_KEY", "vt-key")
	t.Setenv("OPENAI_API_KEY", "oa-key")
	t.Setenv("DATABASE_PASSWORD", "s3cret")

	cfg, err := Parse([]byte("virustotal:\n  apiKey: from-file\ndatabase:\n  password: file-pass\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.VirusTotal.APIKey != "vt-key" || cfg.OpenAI.APIKey != "oa-key" || cfg.Database.Password != "s3cret" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.ReputationMode() != ModeLive {
		t.Fatalf("mode with key = %s", cfg.ReputationMode())
	}
}

func TestExplicitStubModeWins(t *testing.T) {
	t.Setenv("VIRUSTOTAL_API_KEY", "vt-key")
	cfg, err := Parse([]byte("virustotal:\n  mode: stub\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.ReputationMode() != ModeStub {
		t.Fatalf("mode = %s", cfg.ReputationMode())
	}
}

func TestValidateRejects(t *testing.T) {
	t.Setenv("VIRUSTOTAL_API_KEY", "")
	cases := map[string]string{
		"driver":      "database:\n  driver: oracle\n",
		"live no key": "virustotal:\n  mode: live\n",
		"bad mode":    "virustotal:\n  mode: turbo\n",
		"minio":       "minio:\n  enabled: true\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDSNs(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "")
	cfg, err := Parse([]byte("database:\n  driver: postgres\n  host: db\n  user: app\n  password: p@ss\n  name: scans\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got, want := cfg.PostgresDSN(), "postgres://app:p%40ss@db:5432/scans?sslmode=disable"; got != want {
		t.Fatalf("postgres dsn = %q, want %q", got, want)
	}
	cfg.Database.Port = 3306
	if got, want := cfg.MySQLDSN(), "app:p@ss@tcp(db:3306)/scans?parseTime=true&charset=utf8mb4&loc=UTC"; got != want {
		t.Fatalf("mysql dsn = %q, want %q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: sqlite\n  path: /tmp/x.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.Path != "/tmp/x.db" {
		t.Fatalf("database: %+v", cfg.Database)
	}
}
