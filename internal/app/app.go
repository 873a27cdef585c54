package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/OmDoke/Book-Inventory-Management-System/internal/config"
	"github.com/OmDoke/Book-Inventory-Management-System/internal/httpapi"
	"github.com/OmDoke/Book-Inventory-Management-System/internal/runtimewire"
)

// App owns runtime wiring and HTTP server lifecycle.
type App struct {
	cfg      config.Config
	logger   *slog.Logger
	runtime  *runtimewire.Runtime
	registry *prometheus.Registry
	tracer   *sdktrace.TracerProvider
	server   *http.Server
	ready    atomic.Bool
}

type options struct {
	traceWriter    io.Writer
	runtimeOptions []runtimewire.Option
}

type Option func(*options)

// WithTraceWriter redirects the stdout trace exporter.
func WithTraceWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.traceWriter = w
		}
	}
}

// WithRuntimeOptions forwards options to the runtime composition.
func WithRuntimeOptions(opts ...runtimewire.Option) Option {
	return func(o *options) {
		o.runtimeOptions = append(o.runtimeOptions, opts...)
	}
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg.HTTPAddr == "" {
		return nil, errors.New("new app: empty HTTPAddr")
	}
	if logger == nil {
		return nil, errors.New("new app: nil logger")
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.New("new app: shutdown timeout must be > 0")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new app config: %w", err)
	}

	o := options{traceWriter: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	runtimeOptions := []runtimewire.Option{
		runtimewire.WithLogger(logger),
		runtimewire.WithRegisterer(a.registry),
	}
	if cfg.TraceExporter == config.TraceExporterStdout {
		tracer, err := newTracerProvider(ctx, o.traceWriter)
		if err != nil {
			return nil, fmt.Errorf("new app tracing: %w", err)
		}
		a.tracer = tracer
		runtimeOptions = append(runtimeOptions, runtimewire.WithTracerProvider(tracer))
	}
	runtimeOptions = append(runtimeOptions, o.runtimeOptions...)

	runtime, err := runtimewire.New(ctx, cfg, runtimeOptions...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("new app runtime: %w", err), a.shutdownTracer(ctx))
	}
	a.runtime = runtime

	apiRouter := httpapi.NewRouter(httpapi.Dependencies{
		Store:         runtime.Store,
		Search:        runtime.Search,
		Verifier:      runtime.Tokens,
		Tokens:        runtime.Tokens,
		Authenticator: runtime.Authenticator,
		Logger:        logger,
	})
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/readyz", a.handleReadyz)
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.Handle("/", apiRouter)
	handler := requestLoggingMiddleware(logger)(mux)
	a.server = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	return a, nil
}

// Handler exposes the composed HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Start() error {
	a.ready.Store(true)
	a.logger.Info("server listening", slog.String("addr", a.cfg.HTTPAddr))

	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	a.ready.Store(false)
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("shutdown: nil context")
	}
	a.ready.Store(false)

	serverErr := a.shutdownServer(ctx)
	return errors.Join(serverErr, a.runtime.Close(), a.shutdownTracer(ctx))
}

func (a *App) shutdownServer(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		a.logger.Warn("graceful shutdown timed out; forcing connection close")
		if closeErr := a.server.Close(); closeErr != nil {
			return fmt.Errorf("shutdown timeout and forced close failed: %w", errors.Join(err, closeErr))
		}
		return nil
	}
	return err
}

func (a *App) shutdownTracer(ctx context.Context) error {
	if a.tracer == nil {
		return nil
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer: %w", err)
	}
	return nil
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writePlain(w, http.StatusOK, "ok")
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !a.ready.Load() || a.runtime == nil {
		writePlain(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	if err := a.runtime.Ready(r.Context()); err != nil {
		a.logger.WarnContext(r.Context(), "readiness probe failed", slog.Any("error", err))
		writePlain(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writePlain(w, http.StatusOK, "ready")
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
