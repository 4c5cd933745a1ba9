package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/fsscore/zonescore/infrastructure/logging"
	"github.com/fsscore/zonescore/infrastructure/middleware"
	"github.com/fsscore/zonescore/infrastructure/persistence/postgres"
	"github.com/fsscore/zonescore/infrastructure/scoring"
	"github.com/fsscore/zonescore/infrastructure/source"
	"github.com/fsscore/zonescore/internal/ports"
)

// SourceMiddleware returns the middleware chain described by cfg, outermost
// first: tracing, metrics, retry, circuit breaker, per-attempt timeout and
// rate limiting. Stages whose settings are zero are left out.
func SourceMiddleware(cfg SourceConfig, metrics ports.MetricsCollector) []source.Middleware {
	chain := []source.Middleware{source.TracingMiddleware()}
	if metrics != nil {
		chain = append(chain, source.MetricsMiddleware(metrics))
	}
	if cfg.MaxRetries > 0 {
		chain = append(chain, source.RetryMiddleware(cfg.MaxRetries, cfg.RetryBaseDelay, cfg.RetryMaxDelay))
	}
	if cfg.CircuitBreaker.MaxFailures > 0 {
		cb := source.NewCircuitBreaker(cfg.CircuitBreaker.MaxFailures, cfg.CircuitBreaker.Cooldown)
		chain = append(chain, source.CircuitBreakerMiddleware(cb))
	}
	if cfg.FetchTimeout > 0 {
		chain = append(chain, source.TimeoutMiddleware(cfg.FetchTimeout))
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		chain = append(chain, source.RateLimitMiddleware(rate.Limit(cfg.RateLimit), burst))
	}
	return chain
}

// OpenSource opens the configured backing store and wraps it in the
// middleware chain. The returned function releases the store.
func OpenSource(
	ctx context.Context,
	cfg SourceConfig,
	metrics ports.MetricsCollector,
	logger *logging.Logger,
) (ports.RecordSource, func(), error) {
	var (
		store   ports.RecordSource
		release = func() {}
	)

	switch cfg.Kind {
	case SourceKindYAML:
		mem, err := source.LoadYAMLSource(cfg.Path)
		if err != nil {
			return nil, nil, ports.NewConfigError("source.path", err)
		}
		logger.Info("loaded record file", "path", cfg.Path, "snapshots", len(mem.SnapshotIDs()))
		store = mem

	case SourceKindPostgres:
		conn, err := postgres.NewConnection(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ports.ErrSourceUnavailable, err)
		}
		if cfg.EnsureSchema {
			if err := conn.EnsureSchema(ctx); err != nil {
				conn.Close()
				return nil, nil, err
			}
		}
		logger.Info("connected to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		store = postgres.NewRecordRepository(conn)
		release = conn.Close

	default:
		return nil, nil, ports.NewConfigError("source.kind", fmt.Errorf("unsupported source kind %q", cfg.Kind))
	}

	return source.Chain(store, SourceMiddleware(cfg, metrics)...), release, nil
}

// App is a fully wired report service together with the resources it owns.
type App struct {
	Service  *ReportService
	Logger   *logging.Logger
	Registry *prometheus.Registry

	config  ServiceConfig
	release func()
}

// NewApp validates cfg and builds the logger, metrics, record source and
// report service it describes.
func NewApp(ctx context.Context, cfg ServiceConfig, opts ...scoring.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Mode, cfg.Logging.Level)
	if err != nil {
		return nil, ports.NewConfigError("logging", err)
	}
	return newApp(ctx, cfg, logger, opts...)
}

func newApp(ctx context.Context, cfg ServiceConfig, logger *logging.Logger, opts ...scoring.Option) (*App, error) {
	registry := prometheus.NewRegistry()
	var metrics ports.MetricsCollector
	if cfg.Metrics.Enabled {
		metrics = middleware.NewPrometheusMetrics(registry)
	}

	ranker, err := scoring.NewStudentRanker(cfg.Report.Ranker, opts...)
	if err != nil {
		return nil, ports.NewConfigError("report.ranker", err)
	}
	principal, err := scoring.NewPrincipalAggregator(scoring.PrincipalConfig{Mode: cfg.Report.CombineMode}, opts...)
	if err != nil {
		return nil, ports.NewConfigError("report.combine_mode", err)
	}

	src, release, err := OpenSource(ctx, cfg.Source, metrics, logger)
	if err != nil {
		return nil, err
	}

	svc, err := NewReportService(src, ranker, principal,
		WithLogger(logger),
		WithObserver(middleware.NewOTelReportObserver(metrics)),
		WithMaxConcurrentSnapshots(cfg.Service.MaxConcurrentSnapshots),
		WithReportTimeout(cfg.Service.ReportTimeout),
	)
	if err != nil {
		release()
		return nil, err
	}

	return &App{
		Service:  svc,
		Logger:   logger,
		Registry: registry,
		config:   cfg,
		release:  release,
	}, nil
}

// Close releases the record source, writes the metrics textfile when
// enabled and flushes the logger.
func (a *App) Close() error {
	a.release()

	var errs []error
	if a.config.Metrics.Enabled {
		if err := prometheus.WriteToTextfile(a.config.Metrics.Textfile, a.Registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	a.Logger.Sync()
	return errors.Join(errs...)
}
