package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load without file = %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http:
  addr: ":9090"
  shutdown_timeout: 10s
database:
  driver: memory
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("SPRINTBOARD_HTTP_ADDR", ":7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Errorf("addr = %q, want env override", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.HTTP.StaticDir != "web/dist" {
		t.Errorf("static dir = %q, want default", cfg.HTTP.StaticDir)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"empty dsn", func(c *Config) { c.Database.DSN = " " }, "database.dsn"},
		{"memory needs no dsn", func(c *Config) { c.Database.Driver = DriverMemory; c.Database.DSN = "" }, ""},
		{"bad level", func(c *Config) { c.Log.Level = "LOUD" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"zero timeout", func(c *Config) { c.HTTP.ShutdownTimeout = 0 }, "shutdown_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSub == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("Validate error = %v, want mention of %q", err, tt.errSub)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "WARN", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("unexpected log output %q", out)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if err := WriteDefault(path); err == nil {
		t.Error("expected second WriteDefault to refuse overwriting")
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("round trip = %+v, want %+v", cfg, Default())
	}
}
