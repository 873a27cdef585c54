package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPrefix = "BOOKSTORE_"

	defaultHTTPAddr        = "127.0.0.1:8080"
	defaultShutdownTimeout = 5 * time.Second
	defaultLogFormat       = LogFormatText
	defaultLogLevel        = slog.LevelInfo
	defaultProviderMode    = ProviderModeMock
	defaultProviderBaseURL = "https://api.groq.com/openai/v1"
	defaultProviderModel   = "llama-3.1-8b-instant"
	defaultProviderTimeout = 30 * time.Second
	defaultMaxAttempts     = 3
	defaultStoreDriver     = StoreDriverMemory
	defaultSQLitePath      = "bookstore.db"
	defaultTokenTTL        = 8 * time.Hour
	defaultRecursionLimit  = 5
	defaultTraceExporter   = TraceExporterNone
)

type ProviderMode string

const (
	ProviderModeMock     ProviderMode = "mock"
	ProviderModeProvider ProviderMode = "provider"
)

type StoreDriver string

const (
	StoreDriverMemory StoreDriver = "memory"
	StoreDriverSQLite StoreDriver = "sqlite"
)

type TraceExporter string

const (
	TraceExporterNone   TraceExporter = "none"
	TraceExporterStdout TraceExporter = "stdout"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Config controls the HTTP server, the catalog store and the search stack.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogFormat       LogFormat
	LogLevel        slog.Level

	ProviderMode        ProviderMode
	ProviderAPIKey      string
	ProviderModel       string
	ProviderBaseURL     string
	ProviderTimeout     time.Duration
	ProviderMaxAttempts int
	ProviderRateLimit   float64

	StoreDriver StoreDriver
	SQLitePath  string
	SeedFile    string

	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string
	TokenTTL          time.Duration

	SearchRecursionLimit int
	SearchTimeout        time.Duration

	TraceExporter TraceExporter
}

// Load reads runtime configuration from environment variables.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv. Keys are looked up with the
// BOOKSTORE_ prefix; GROQ_API_KEY is accepted as a fallback API key.
func LoadFrom(getenv func(string) string) (Config, error) {
	cfg := Default()
	lookup := func(key string) string {
		return strings.TrimSpace(getenv(envPrefix + key))
	}

	var errs []error
	duration := func(key string, target *time.Duration, allowZero bool) {
		raw := lookup(key)
		if raw == "" {
			return
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s%s: %w", envPrefix, key, err))
			return
		}
		if parsed < 0 || (parsed == 0 && !allowZero) {
			errs = append(errs, fmt.Errorf("parse %s%s: value must be > 0", envPrefix, key))
			return
		}
		*target = parsed
	}
	integer := func(key string, target *int) {
		raw := lookup(key)
		if raw == "" {
			return
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s%s: %w", envPrefix, key, err))
			return
		}
		*target = parsed
	}
	text := func(key string, target *string) {
		if raw := lookup(key); raw != "" {
			*target = raw
		}
	}

	text("HTTP_ADDR", &cfg.HTTPAddr)
	duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout, false)
	if level := lookup("LOG_LEVEL"); level != "" {
		parsed, err := parseLogLevel(level)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.LogLevel = parsed
		}
	}
	if format := lookup("LOG_FORMAT"); format != "" {
		parsed, err := parseLogFormat(format)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.LogFormat = parsed
		}
	}

	if mode := lookup("PROVIDER_MODE"); mode != "" {
		cfg.ProviderMode = ProviderMode(strings.ToLower(mode))
	}
	text("PROVIDER_API_KEY", &cfg.ProviderAPIKey)
	if cfg.ProviderAPIKey == "" {
		cfg.ProviderAPIKey = strings.TrimSpace(getenv("GROQ_API_KEY"))
	}
	text("PROVIDER_MODEL", &cfg.ProviderModel)
	text("PROVIDER_BASE_URL", &cfg.ProviderBaseURL)
	duration("PROVIDER_TIMEOUT", &cfg.ProviderTimeout, false)
	integer("PROVIDER_MAX_ATTEMPTS", &cfg.ProviderMaxAttempts)
	if raw := lookup("PROVIDER_RATE_LIMIT"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %sPROVIDER_RATE_LIMIT: %w", envPrefix, err))
		} else {
			cfg.ProviderRateLimit = parsed
		}
	}

	if driver := lookup("STORE_DRIVER"); driver != "" {
		cfg.StoreDriver = StoreDriver(strings.ToLower(driver))
	}
	text("SQLITE_PATH", &cfg.SQLitePath)
	text("SEED_FILE", &cfg.SeedFile)

	text("JWT_SECRET", &cfg.JWTSecret)
	text("ADMIN_USERNAME", &cfg.AdminUsername)
	text("ADMIN_PASSWORD_HASH", &cfg.AdminPasswordHash)
	duration("TOKEN_TTL", &cfg.TokenTTL, false)

	integer("SEARCH_RECURSION_LIMIT", &cfg.SearchRecursionLimit)
	duration("SEARCH_TIMEOUT", &cfg.SearchTimeout, true)

	if exporter := lookup("TRACE_EXPORTER"); exporter != "" {
		cfg.TraceExporter = TraceExporter(strings.ToLower(exporter))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Default() Config {
	return Config{
		HTTPAddr:             defaultHTTPAddr,
		ShutdownTimeout:      defaultShutdownTimeout,
		LogFormat:            defaultLogFormat,
		LogLevel:             defaultLogLevel,
		ProviderMode:         defaultProviderMode,
		ProviderModel:        defaultProviderModel,
		ProviderBaseURL:      defaultProviderBaseURL,
		ProviderTimeout:      defaultProviderTimeout,
		ProviderMaxAttempts:  defaultMaxAttempts,
		StoreDriver:          defaultStoreDriver,
		SQLitePath:           defaultSQLitePath,
		TokenTTL:             defaultTokenTTL,
		SearchRecursionLimit: defaultRecursionLimit,
		TraceExporter:        defaultTraceExporter,
	}
}

func (c Config) Validate() error {
	switch c.ProviderMode {
	case ProviderModeMock:
	case ProviderModeProvider:
		if strings.TrimSpace(c.ProviderAPIKey) == "" {
			return errors.New("validate config: provider mode requires BOOKSTORE_PROVIDER_API_KEY or GROQ_API_KEY")
		}
		if strings.TrimSpace(c.ProviderModel) == "" {
			return errors.New("validate config: provider mode requires BOOKSTORE_PROVIDER_MODEL")
		}
		if strings.TrimSpace(c.ProviderBaseURL) == "" {
			return errors.New("validate config: provider mode requires BOOKSTORE_PROVIDER_BASE_URL")
		}
		if c.ProviderTimeout <= 0 {
			return errors.New("validate config: provider mode requires BOOKSTORE_PROVIDER_TIMEOUT > 0")
		}
		if c.ProviderMaxAttempts < 1 {
			return errors.New("validate config: BOOKSTORE_PROVIDER_MAX_ATTEMPTS must be >= 1")
		}
		if c.ProviderRateLimit < 0 {
			return errors.New("validate config: BOOKSTORE_PROVIDER_RATE_LIMIT must be >= 0")
		}
	default:
		return fmt.Errorf(
			"validate config: unsupported BOOKSTORE_PROVIDER_MODE %q (allowed: %q, %q)",
			c.ProviderMode,
			ProviderModeMock,
			ProviderModeProvider,
		)
	}

	switch c.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("validate config: sqlite driver requires BOOKSTORE_SQLITE_PATH")
		}
	default:
		return fmt.Errorf(
			"validate config: unsupported BOOKSTORE_STORE_DRIVER %q (allowed: %q, %q)",
			c.StoreDriver,
			StoreDriverMemory,
			StoreDriverSQLite,
		)
	}

	switch c.TraceExporter {
	case TraceExporterNone, TraceExporterStdout:
	default:
		return fmt.Errorf(
			"validate config: unsupported BOOKSTORE_TRACE_EXPORTER %q (allowed: %q, %q)",
			c.TraceExporter,
			TraceExporterNone,
			TraceExporterStdout,
		)
	}

	if c.SearchRecursionLimit < 1 {
		return errors.New("validate config: BOOKSTORE_SEARCH_RECURSION_LIMIT must be >= 1")
	}
	if c.SearchTimeout < 0 {
		return errors.New("validate config: BOOKSTORE_SEARCH_TIMEOUT must be >= 0")
	}
	if c.TokenTTL <= 0 {
		return errors.New("validate config: BOOKSTORE_TOKEN_TTL must be > 0")
	}

	switch c.LogLevel {
	case slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError:
	default:
		return fmt.Errorf(
			"validate config: unsupported BOOKSTORE_LOG_LEVEL %q (allowed: %q, %q, %q, %q)",
			c.LogLevel.String(),
			slog.LevelDebug.String(),
			slog.LevelInfo.String(),
			slog.LevelWarn.String(),
			slog.LevelError.String(),
		)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf(
			"validate config: unsupported BOOKSTORE_LOG_FORMAT %q (allowed: %q, %q)",
			c.LogFormat,
			LogFormatText,
			LogFormatJSON,
		)
	}

	return nil
}

// AdminConfigured reports whether the login endpoint can authenticate anyone.
func (c Config) AdminConfigured() bool {
	return strings.TrimSpace(c.AdminUsername) != "" && strings.TrimSpace(c.AdminPasswordHash) != ""
}

func parseLogLevel(input string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf(
			"parse BOOKSTORE_LOG_LEVEL: unsupported value %q (allowed: %q, %q, %q, %q)",
			input,
			slog.LevelDebug.String(),
			slog.LevelInfo.String(),
			slog.LevelWarn.String(),
			slog.LevelError.String(),
		)
	}
}

func parseLogFormat(input string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf(
			"parse BOOKSTORE_LOG_FORMAT: unsupported value %q (allowed: %q, %q)",
			input,
			LogFormatText,
			LogFormatJSON,
		)
	}
}
