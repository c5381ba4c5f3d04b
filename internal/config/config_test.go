package config

import "testing"

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("SESSION_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want missing DB_DSN error")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "host=localhost dbname=history")
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("SERVER_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBDSN != "host=localhost dbname=history" {
		t.Fatalf("DBDSN = %q", cfg.DBDSN)
	}
	if cfg.TemplatesGlob != "web/templates/*.html" {
		t.Fatalf("TemplatesGlob = %q, want default", cfg.TemplatesGlob)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := InitLogger("loud"); err == nil {
		t.Fatal("InitLogger(loud) error = nil")
	}
}
