// Package app wires the Sondera components into a running HTTP service.
//
// The app owns the HTTP server, the enrichment orchestrator, and the health
// and metrics surfaces. It is constructed once in cmd/sondera and shut down
// via [App.Shutdown] when the process receives a termination signal.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sondera-ai/sondera/internal/config"
	"github.com/sondera-ai/sondera/internal/enrich"
	"github.com/sondera-ai/sondera/internal/health"
	"github.com/sondera-ai/sondera/internal/observe"
	"github.com/sondera-ai/sondera/pkg/provider/faceattr"
)

const readHeaderTimeout = 10 * time.Second

// Providers bundles the external analysis backends the app depends on.
// Fields may be nil when the corresponding provider is not configured; the
// pipeline then degrades the affected modality instead of failing.
type Providers struct {
	FaceAttr faceattr.Analyzer
}

// App is the assembled Sondera service.
type App struct {
	cfg      *config.Config
	orch     *enrich.Orchestrator
	analyzer faceattr.Analyzer
	metrics  *observe.Metrics
	handler  http.Handler
	srv      *http.Server

	closers  []func(context.Context) error
	stopOnce sync.Once
}

// Option customizes App construction, mainly for tests.
type Option func(*App)

// WithMetrics overrides the metric instruments used by the app and the
// pipeline. Defaults to the process-wide instruments from
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New assembles the service from configuration and providers.
func New(cfg *config.Config, providers Providers, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	a := &App{
		cfg:      cfg,
		analyzer: providers.FaceAttr,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	a.orch = enrich.New(a.analyzer, cfg.Sampler, enrich.WithMetrics(a.metrics))
	a.handler = a.buildRoutes()
	a.srv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	a.closers = append(a.closers, a.srv.Shutdown)

	return a, nil
}

// Handler returns the fully wired HTTP handler. Exposed so tests can serve
// the app through httptest without binding a socket.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) buildRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/enrich", a.handleEnrich)
	mux.HandleFunc("GET /v1/enrich/stream", a.handleStream)
	mux.Handle("GET /metrics", promhttp.Handler())

	var checkers []health.Checker
	if p, ok := a.analyzer.(faceattr.Pinger); ok {
		checkers = append(checkers, health.PingChecker("faceattr", p))
	}
	health.New(checkers...).Register(mux)

	return observe.Middleware(a.metrics)(mux)
}

// Run starts the HTTP listener and blocks until ctx is cancelled or the
// server fails. Cancellation is the normal exit path and returns nil; call
// [App.Shutdown] afterwards to drain in-flight requests.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("server listening", "addr", a.cfg.Server.ListenAddr, "tls", a.cfg.Server.TLS != nil)

	select {
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
		return nil
	}
}

// Shutdown stops the server and releases resources. Safe to call more than
// once; only the first call has effect. The ctx deadline bounds the drain of
// in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		var errs []error
		for _, closer := range a.closers {
			if cerr := closer(ctx); cerr != nil {
				errs = append(errs, cerr)
			}
		}
		err = errors.Join(errs...)
	})
	return err
}

// OnClose registers fn to run during [App.Shutdown], after the HTTP server
// has stopped accepting connections.
func (a *App) OnClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}
