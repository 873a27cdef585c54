package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(envMap(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProviderMode != ProviderModeMock || cfg.StoreDriver != StoreDriverMemory {
		t.Fatalf("unexpected modes: provider=%q store=%q", cfg.ProviderMode, cfg.StoreDriver)
	}
	if cfg.ProviderModel != "llama-3.1-8b-instant" || cfg.ProviderBaseURL != "https://api.groq.com/openai/v1" {
		t.Fatalf("unexpected provider defaults: model=%q base=%q", cfg.ProviderModel, cfg.ProviderBaseURL)
	}
	if cfg.SearchRecursionLimit != 5 || cfg.ProviderMaxAttempts != 3 || cfg.TokenTTL != 8*time.Hour {
		t.Fatalf("unexpected numeric defaults: %+v", cfg)
	}
	if cfg.SearchTimeout != 0 || cfg.TraceExporter != TraceExporterNone {
		t.Fatalf("unexpected optional defaults: timeout=%s exporter=%q", cfg.SearchTimeout, cfg.TraceExporter)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(envMap(map[string]string{
		"BOOKSTORE_HTTP_ADDR":              ":9090",
		"BOOKSTORE_LOG_LEVEL":              "debug",
		"BOOKSTORE_LOG_FORMAT":             "JSON",
		"BOOKSTORE_PROVIDER_MODE":          "provider",
		"GROQ_API_KEY":                     "gsk_test",
		"BOOKSTORE_PROVIDER_MAX_ATTEMPTS":  "2",
		"BOOKSTORE_PROVIDER_RATE_LIMIT":    "0.5",
		"BOOKSTORE_STORE_DRIVER":           "sqlite",
		"BOOKSTORE_SQLITE_PATH":            "/tmp/books.db",
		"BOOKSTORE_SEARCH_RECURSION_LIMIT": "3",
		"BOOKSTORE_SEARCH_TIMEOUT":         "15s",
		"BOOKSTORE_TRACE_EXPORTER":         "stdout",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != LogFormatJSON {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
	if cfg.ProviderAPIKey != "gsk_test" {
		t.Fatalf("GROQ_API_KEY should be used as fallback, got %q", cfg.ProviderAPIKey)
	}
	if cfg.ProviderMaxAttempts != 2 || cfg.ProviderRateLimit != 0.5 {
		t.Fatalf("unexpected provider config: attempts=%d rate=%v", cfg.ProviderMaxAttempts, cfg.ProviderRateLimit)
	}
	if cfg.StoreDriver != StoreDriverSQLite || cfg.SQLitePath != "/tmp/books.db" {
		t.Fatalf("unexpected store config: %q %q", cfg.StoreDriver, cfg.SQLitePath)
	}
	if cfg.SearchRecursionLimit != 3 || cfg.SearchTimeout != 15*time.Second || cfg.TraceExporter != TraceExporterStdout {
		t.Fatalf("unexpected search config: %+v", cfg)
	}
}

func TestLoadFrom_PrefixedKeyWinsOverFallback(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(envMap(map[string]string{
		"BOOKSTORE_PROVIDER_API_KEY": "primary",
		"GROQ_API_KEY":               "fallback",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProviderAPIKey != "primary" {
		t.Fatalf("unexpected api key: got=%q want=%q", cfg.ProviderAPIKey, "primary")
	}
}

func TestLoadFrom_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "provider without key", env: map[string]string{"BOOKSTORE_PROVIDER_MODE": "provider"}, want: "requires BOOKSTORE_PROVIDER_API_KEY"},
		{name: "unknown provider mode", env: map[string]string{"BOOKSTORE_PROVIDER_MODE": "magic"}, want: "unsupported BOOKSTORE_PROVIDER_MODE"},
		{name: "unknown store", env: map[string]string{"BOOKSTORE_STORE_DRIVER": "mongo"}, want: "unsupported BOOKSTORE_STORE_DRIVER"},
		{name: "bad duration", env: map[string]string{"BOOKSTORE_SHUTDOWN_TIMEOUT": "soon"}, want: "parse BOOKSTORE_SHUTDOWN_TIMEOUT"},
		{name: "zero shutdown", env: map[string]string{"BOOKSTORE_SHUTDOWN_TIMEOUT": "0s"}, want: "value must be > 0"},
		{name: "negative search timeout", env: map[string]string{"BOOKSTORE_SEARCH_TIMEOUT": "-1s"}, want: "value must be > 0"},
		{name: "zero recursion", env: map[string]string{"BOOKSTORE_SEARCH_RECURSION_LIMIT": "0"}, want: "BOOKSTORE_SEARCH_RECURSION_LIMIT must be >= 1"},
		{name: "bad integer", env: map[string]string{"BOOKSTORE_SEARCH_RECURSION_LIMIT": "five"}, want: "parse BOOKSTORE_SEARCH_RECURSION_LIMIT"},
		{name: "bad exporter", env: map[string]string{"BOOKSTORE_TRACE_EXPORTER": "jaeger"}, want: "unsupported BOOKSTORE_TRACE_EXPORTER"},
		{name: "bad log level", env: map[string]string{"BOOKSTORE_LOG_LEVEL": "trace"}, want: "parse BOOKSTORE_LOG_LEVEL"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadFrom(envMap(tc.env))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("unexpected error: got=%q want substring %q", err.Error(), tc.want)
			}
		})
	}
}

func TestAdminConfigured(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.AdminConfigured() {
		t.Fatal("default config should not have admin credentials")
	}
	cfg.AdminUsername = "admin"
	cfg.AdminPasswordHash = "$2a$10$hash"
	if !cfg.AdminConfigured() {
		t.Fatal("expected admin to be configured")
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input string
		want  slog.Level
		ok    bool
	}{
		{name: "debug", input: "debug", want: slog.LevelDebug, ok: true},
		{name: "warning", input: "warning", want: slog.LevelWarn, ok: true},
		{name: "uppercase", input: "ERROR", want: slog.LevelError, ok: true},
		{name: "invalid", input: "trace", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			level, err := parseLogLevel(tc.input)
			if !tc.ok {
				if err == nil {
					t.Fatalf("parseLogLevel(%q) expected error", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error: %v", tc.input, err)
			}
			if level != tc.want {
				t.Fatalf("parseLogLevel(%q) mismatch: got=%s want=%s", tc.input, level, tc.want)
			}
		})
	}
}

func TestParseLogFormat(t *testing.T) {
	t.Parallel()

	if format, err := parseLogFormat("Text"); err != nil || format != LogFormatText {
		t.Fatalf("parseLogFormat(Text) mismatch: got=%q err=%v", format, err)
	}
	if _, err := parseLogFormat("pretty"); err == nil {
		t.Fatal("parseLogFormat(pretty) expected error")
	}
}
