package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.IsDev {
		t.Fatalf("expected production mode by default")
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected info log level, got %q", cfg.LogLevel)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.HTTP.Addr)
	}
	expectedSession := SessionConfig{
		Store:       SessionStoreFile,
		Dir:         ".findash",
		RecordName:  "user",
		RedisPrefix: "findash:",
	}
	if !reflect.DeepEqual(cfg.Session, expectedSession) {
		t.Fatalf("unexpected session configuration:\nexpected: %#v\ngot:      %#v", expectedSession, cfg.Session)
	}
	if cfg.Observability.Metrics.IsEnabled() {
		t.Fatalf("expected metrics disabled by default")
	}
	if err := cfg.Backend.Validate(); err == nil {
		t.Fatalf("expected missing BACKEND_URL to fail validation")
	}
}

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("BACKEND_URL", " https://finance.example.com/ ")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("SESSION_RECORD_NAME", "alice")
	t.Setenv("SESSION_REDIS_PREFIX", "fd:")
	t.Setenv("REDIS_URI", "redis://cache:6379/2")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("OBSERVABILITY_METRICS_ENABLED", "true")
	t.Setenv("OBSERVABILITY_METRICS_PREFIX", ".fd.")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	expectedBackend := BackendConfig{URL: "https://finance.example.com", Timeout: 3 * time.Second}
	if cfg.Backend != expectedBackend {
		t.Fatalf("unexpected backend configuration: %#v", cfg.Backend)
	}
	if err := cfg.Backend.Validate(); err != nil {
		t.Fatalf("expected valid backend config: %v", err)
	}
	if cfg.Session.Store != SessionStoreRedis || cfg.Session.RecordName != "alice" || cfg.Session.RedisPrefix != "fd:" {
		t.Fatalf("unexpected session configuration: %#v", cfg.Session)
	}
	if cfg.Redis.URI != "redis://cache:6379/2" || cfg.Redis.DB != 4 {
		t.Fatalf("unexpected redis configuration: %#v", cfg.Redis)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected warn log level, got %q", cfg.LogLevel)
	}
	if !cfg.Observability.Metrics.IsEnabled() || cfg.Observability.Metrics.Prefix != "fd" {
		t.Fatalf("unexpected metrics configuration: %#v", cfg.Observability.Metrics)
	}
}

func TestAppConfig_DevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	cfg := AppConfig{}
	cfg.Sanitize()

	if !cfg.IsDev {
		t.Fatalf("expected NODE_ENV=development to enable dev mode")
	}
}

func TestAppConfig_UnknownLogLevel(t *testing.T) {
	cfg := AppConfig{LogLevel: "verbose"}
	cfg.Sanitize()

	if cfg.LogLevel != "info" {
		t.Fatalf("expected fallback to info, got %q", cfg.LogLevel)
	}
}

func TestBackendConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://finance.example.com"},
		{name: "http with port", url: "http://localhost:8000"},
		{name: "empty", url: "", wantErr: true},
		{name: "ftp scheme", url: "ftp://finance.example.com", wantErr: true},
		{name: "no host", url: "https://", wantErr: true},
		{name: "bare host", url: "finance.example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := BackendConfig{URL: tt.url, Timeout: -time.Second}
			cfg.Sanitize()
			if cfg.Timeout != 0 {
				t.Fatalf("expected negative timeout clamped to 0, got %v", cfg.Timeout)
			}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestSessionConfig_SanitizeAndValidate(t *testing.T) {
	cfg := SessionConfig{Store: " ", Dir: " ", RecordName: ""}
	cfg.Sanitize()

	if cfg.Store != SessionStoreFile || cfg.Dir != ".findash" || cfg.RecordName != "user" {
		t.Fatalf("expected defaults, got %#v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected file store to be valid: %v", err)
	}

	cfg.Store = "memcached"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown store to fail validation")
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{level: 0, want: 1},
		{level: 6, want: 6},
		{level: 12, want: 9},
	}
	for _, tt := range tests {
		cfg := HTTPConfig{CompressionLevel: tt.level}
		cfg.Sanitize()
		if cfg.CompressionLevel != tt.want {
			t.Fatalf("level %d: expected %d, got %d", tt.level, tt.want, cfg.CompressionLevel)
		}
		if cfg.Addr != ":8080" {
			t.Fatalf("expected empty addr to default, got %q", cfg.Addr)
		}
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}
	if cfg.Prefix != "findash" {
		t.Fatalf("expected default prefix, got %q", cfg.Prefix)
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
}
