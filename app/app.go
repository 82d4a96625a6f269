// Package app assembles the runtime from configuration: observers,
// tracing, the browser and crawl tools, the workflow runner and the HTTP
// server.
//
//	a, err := app.New(ctx, cfg)
//	stream, err := a.Runner().Run(ctx, req)
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TimeCyber/DeepManus/browser"
	"github.com/TimeCyber/DeepManus/crawler"
	"github.com/TimeCyber/DeepManus/graph"
	"github.com/TimeCyber/DeepManus/observability"
	"github.com/TimeCyber/DeepManus/resource"
	"github.com/TimeCyber/DeepManus/server"
	"github.com/TimeCyber/DeepManus/source"
	"github.com/TimeCyber/DeepManus/tracing"
	"github.com/TimeCyber/DeepManus/workflow"
)

// Option configures an App after config-driven initialization.
type Option func(*App)

// WithSource replaces the configured event source.
func WithSource(s workflow.Source) Option {
	return func(a *App) { a.source = s }
}

// WithDemoURL makes the demo graph researcher crawl url.
func WithDemoURL(url string) Option {
	return func(a *App) { a.demoURL = url }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithMetricsRegistry registers metrics on reg and serves reg at /metrics
// instead of the default registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.registerer = reg
		a.metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
}

type App struct {
	cfg            Config
	logger         *slog.Logger
	source         workflow.Source
	demoURL        string
	observer       observability.Observer
	registerer     prometheus.Registerer
	metricsHandler http.Handler
	tracer         *tracing.Provider
	browser        *browser.Browser
	crawler        *crawler.Crawler
	runner         *workflow.Runner
}

// New builds every subsystem from cfg and registers the browser and crawl
// tools. Without an upstream endpoint or WithSource the built-in demo graph
// is the event source.
func New(ctx context.Context, cfg *Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:            *cfg,
		logger:         slog.Default(),
		registerer:     prometheus.DefaultRegisterer,
		metricsHandler: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(a)
	}

	named, err := a.namedObserver()
	if err != nil {
		return nil, err
	}
	metrics := observability.NewPrometheusObserver()
	if err := metrics.Register(a.registerer); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	a.observer = observability.Combine(named, metrics, observability.TraceObserver{})

	tp, err := tracing.InitTracer(ctx, cfg.Tracing, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	a.tracer = tp

	provider := browser.NewProvider(cfg.Browser)
	a.browser = browser.New(provider, browser.WithObserver(a.observer), browser.WithLogger(a.logger))
	if err := a.browser.Register(); err != nil {
		return nil, fmt.Errorf("failed to register browser tool: %w", err)
	}

	a.crawler = crawler.New(crawler.NewClient(cfg.Crawler, crawler.WithObserver(a.observer)))
	if err := a.crawler.Register(); err != nil {
		return nil, fmt.Errorf("failed to register crawl tool: %w", err)
	}

	if a.source == nil {
		a.source, err = a.defaultSource()
		if err != nil {
			return nil, err
		}
	}

	a.runner = workflow.NewRunner(a.source, cfg.Workflow,
		workflow.WithResourceProvider(provider),
		workflow.WithObserver(a.observer),
		workflow.WithLogger(a.logger),
		workflow.WithTracer(tp.Tracer()),
		workflow.WithManagerOptions(resource.WithPolicy(cfg.Retry.Policy())),
	)
	return a, nil
}

func (a *App) namedObserver() (observability.Observer, error) {
	name := a.cfg.Observer
	if name == "" {
		name = defaultObserver
	}
	obs, err := observability.LookupObserver(name, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}
	return obs, nil
}

func (a *App) defaultSource() (workflow.Source, error) {
	if a.cfg.Upstream.Endpoint != "" {
		return source.NewSSE(a.cfg.Upstream), nil
	}
	g, err := DemoGraph(a.cfg.Graph, a.demoURL, graph.WithObserver(a.observer))
	if err != nil {
		return nil, fmt.Errorf("failed to build demo graph: %w", err)
	}
	return graph.Source{Graph: g}, nil
}

func (a *App) Config() Config {
	return a.cfg
}

func (a *App) Logger() *slog.Logger {
	return a.logger
}

func (a *App) Observer() observability.Observer {
	return a.observer
}

func (a *App) Runner() *workflow.Runner {
	return a.runner
}

func (a *App) Crawler() *crawler.Crawler {
	return a.crawler
}

func (a *App) Browser() *browser.Browser {
	return a.browser
}

// Server builds the HTTP server over the app's runner.
func (a *App) Server() *server.Server {
	return server.New(a.runner, a.cfg.Server,
		server.WithLogger(a.logger),
		server.WithMetricsHandler(a.metricsHandler),
	)
}

// Close flushes and stops tracing.
func (a *App) Close(ctx context.Context) error {
	return a.tracer.Shutdown(ctx)
}
