package runtimewire

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/OmDoke/Book-Inventory-Management-System/adapters/openai"
	"github.com/OmDoke/Book-Inventory-Management-System/booksearch"
	"github.com/OmDoke/Book-Inventory-Management-System/catalog"
	"github.com/OmDoke/Book-Inventory-Management-System/catalog/inmem"
	"github.com/OmDoke/Book-Inventory-Management-System/catalog/seed"
	"github.com/OmDoke/Book-Inventory-Management-System/catalog/sqlite"
	"github.com/OmDoke/Book-Inventory-Management-System/eventing"
	"github.com/OmDoke/Book-Inventory-Management-System/identity"
	"github.com/OmDoke/Book-Inventory-Management-System/internal/config"
	"github.com/OmDoke/Book-Inventory-Management-System/internal/runtimewire/mocks"
	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
	"github.com/OmDoke/Book-Inventory-Management-System/policy/retry"
	"github.com/OmDoke/Book-Inventory-Management-System/search"
	"github.com/OmDoke/Book-Inventory-Management-System/tooling"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 5 * time.Second
)

// Runtime contains the composed dependencies of the server.
type Runtime struct {
	Store         catalog.Store
	Search        *search.Service
	Loop          *orchestrator.Loop
	Tokens        *identity.TokenManager
	Authenticator *identity.Authenticator
	Metrics       *eventing.Metrics
	Seeded        int

	ping    func(context.Context) error
	closers []func() error
}

type options struct {
	logger         *slog.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
	provider       orchestrator.Provider
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegisterer sets where search metrics are registered. Without it the
// metrics are kept in a private registry.
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = registerer
	}
}

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = provider
	}
}

// WithProvider replaces the completion provider selected by cfg.
func WithProvider(provider orchestrator.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new runtime: %w", err)
	}
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}

	rt := &Runtime{}
	store, err := rt.openStore(cfg)
	if err != nil {
		return nil, err
	}
	rt.Store = store

	books := seed.Default()
	if cfg.SeedFile != "" {
		books, err = seed.Load(cfg.SeedFile)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("new runtime seed: %w", err), rt.Close())
		}
	}
	rt.Seeded, err = seed.Apply(ctx, store, books)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("new runtime seed: %w", err), rt.Close())
	}
	if rt.Seeded > 0 {
		o.logger.Info("catalog seeded", slog.Int("books", rt.Seeded), slog.String("driver", string(cfg.StoreDriver)))
	}

	provider := o.provider
	if provider == nil {
		provider, err = newProvider(cfg)
		if err != nil {
			return nil, errors.Join(err, rt.Close())
		}
	}

	searcher, err := booksearch.New(store)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("new runtime searcher: %w", err), rt.Close())
	}
	tools, err := tooling.New(searcher.Search, tooling.WithLogger(o.logger))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("new runtime tools: %w", err), rt.Close())
	}

	rt.Metrics = eventing.NewMetrics(o.registerer)
	loopOptions := []orchestrator.Option{
		orchestrator.WithRecursionLimit(cfg.SearchRecursionLimit),
		orchestrator.WithEventSink(eventing.Fanout(eventing.NewLogSink(o.logger), rt.Metrics)),
	}
	if o.tracerProvider != nil {
		loopOptions = append(loopOptions, orchestrator.WithTracerProvider(o.tracerProvider))
	}
	rt.Loop, err = orchestrator.New(provider, tools, loopOptions...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("new runtime loop: %w", err), rt.Close())
	}

	rt.Search, err = search.New(rt.Loop, search.WithLogger(o.logger), search.WithTimeout(cfg.SearchTimeout))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("new runtime search: %w", err), rt.Close())
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return nil, errors.Join(err, rt.Close())
		}
		o.logger.Warn("BOOKSTORE_JWT_SECRET not set; issued tokens will not survive a restart")
	}
	rt.Tokens, err = identity.NewTokenManager(secret, cfg.TokenTTL)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("new runtime tokens: %w", err), rt.Close())
	}
	rt.Authenticator = identity.NewAuthenticator(cfg.AdminUsername, cfg.AdminPasswordHash)

	return rt, nil
}

// Ready reports whether the catalog store can serve requests.
func (rt *Runtime) Ready(ctx context.Context) error {
	if rt.ping == nil {
		return nil
	}
	return rt.ping(ctx)
}

// Close releases the store and any other held resources.
func (rt *Runtime) Close() error {
	var result error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		result = errors.Join(result, rt.closers[i]())
	}
	rt.closers = nil
	return result
}

func (rt *Runtime) openStore(cfg config.Config) (catalog.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("new runtime store: %w", err)
		}
		rt.ping = store.Ping
		rt.closers = append(rt.closers, store.Close)
		return store, nil
	default:
		return inmem.New(), nil
	}
}

func newProvider(cfg config.Config) (orchestrator.Provider, error) {
	switch cfg.ProviderMode {
	case config.ProviderModeProvider:
		provider, err := openai.New(openai.Config{
			APIKey:     cfg.ProviderAPIKey,
			Model:      cfg.ProviderModel,
			BaseURL:    cfg.ProviderBaseURL,
			HTTPClient: &http.Client{Timeout: cfg.ProviderTimeout},
			RateLimit:  cfg.ProviderRateLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("new runtime provider: %w", err)
		}
		return retry.WrapProvider(provider, retry.Config{
			MaxAttempts: cfg.ProviderMaxAttempts,
			ShouldRetry: openai.IsRetryable,
			Backoff:     retry.ExponentialBackoff(retryBaseDelay, retryMaxDelay),
		}), nil
	default:
		return mocks.NewProvider(), nil
	}
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
