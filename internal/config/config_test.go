package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "realtime.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: realtime.example.com
  path: /api/ws
  secure: true
  token: abc123
connection:
  reconnect_interval: 2s
  max_reconnect_attempts: 5
debug: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Host != "realtime.example.com" {
		t.Errorf("Host = %q, want realtime.example.com", cfg.Server.Host)
	}
	if !cfg.Server.Secure {
		t.Error("Secure should be true")
	}
	if cfg.Server.Token != "abc123" {
		t.Errorf("Token = %q, want abc123", cfg.Server.Token)
	}
	if cfg.Connection.ReconnectInterval != 2*time.Second {
		t.Errorf("ReconnectInterval = %v, want 2s", cfg.Connection.ReconnectInterval)
	}
	if cfg.Connection.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d, want 5", cfg.Connection.MaxReconnectAttempts)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("REALTIME_TOKEN", "from-env")

	path := writeConfig(t, `
server:
  host: localhost:8080
  token: ${REALTIME_TOKEN}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Token != "from-env" {
		t.Errorf("Token = %q, want from-env", cfg.Server.Token)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  host: localhost:8080
`)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Server.Path != DefaultPath {
		t.Errorf("Path = %q, want %q", cfg.Server.Path, DefaultPath)
	}
	if cfg.Connection.ReconnectInterval != DefaultReconnectInterval {
		t.Errorf("ReconnectInterval = %v, want %v", cfg.Connection.ReconnectInterval, DefaultReconnectInterval)
	}
	if cfg.Connection.MaxReconnectAttempts != DefaultMaxReconnectAttempts {
		t.Errorf("MaxReconnectAttempts = %d, want %d", cfg.Connection.MaxReconnectAttempts, DefaultMaxReconnectAttempts)
	}
	if cfg.Connection.AuthAckType != DefaultAuthAckType {
		t.Errorf("AuthAckType = %q, want %q", cfg.Connection.AuthAckType, DefaultAuthAckType)
	}
	if cfg.Session.Key != DefaultSessionKey {
		t.Errorf("Session.Key = %q, want %q", cfg.Session.Key, DefaultSessionKey)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		path   string
		secure bool
		want   string
	}{
		{"insecure", "localhost:8080", "/ws", false, "ws://localhost:8080/ws"},
		{"secure", "realtime.example.com", "/api/ws", true, "wss://realtime.example.com/api/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Server: ServerConfig{Host: tt.host, Path: tt.path, Secure: tt.secure}}
			if got := cfg.URL(); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		path := writeConfig(t, "server:\n  host: localhost:8080\n")
		cfg, err := LoadWithDefaults(path)
		if err != nil {
			t.Fatalf("LoadWithDefaults failed: %v", err)
		}
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg := valid()
	cfg.Server.Host = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing host should fail validation")
	}

	cfg = valid()
	cfg.Server.Host = "ws://localhost"
	if err := cfg.Validate(); err == nil {
		t.Error("host with scheme should fail validation")
	}

	cfg = valid()
	cfg.Server.Path = "ws"
	if err := cfg.Validate(); err == nil {
		t.Error("path without leading slash should fail validation")
	}

	cfg = valid()
	cfg.Metrics.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("out-of-range metrics port should fail validation")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
