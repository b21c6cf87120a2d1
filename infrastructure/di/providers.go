package di

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ithailevi/expert/application/services"
	"github.com/ithailevi/expert/domain/core/aggregates"
	"github.com/ithailevi/expert/infrastructure/config"
	"github.com/ithailevi/expert/infrastructure/persistence/kbfile"
	"github.com/ithailevi/expert/interfaces/http/rest"
	"github.com/ithailevi/expert/pkg/observability"
)

// metricsNamespace prefixes every exported metric
const metricsNamespace = "expert"

// DomainOptions builds the options for a new Domain. It is a function
// because every reload needs its own random source.
type DomainOptions func() []aggregates.Option

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", cfg.ServiceName)), nil
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideTracerProvider sets up tracing; disabled tracing yields no-op spans
func ProvideTracerProvider(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	return observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.EnableTracing,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
}

// ProvideDomainOptions derives Domain options from configuration. A fixed
// RANDOM_SEED makes every rebuilt domain pick the same way.
func ProvideDomainOptions(cfg *config.Config, logger *zap.Logger) DomainOptions {
	bounds := cfg.DomainConfig()
	return func() []aggregates.Option {
		seed := bounds.RandomSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return []aggregates.Option{
			aggregates.WithConfig(bounds),
			aggregates.WithLogger(logger.Named("domain")),
			aggregates.WithRand(rand.New(rand.NewSource(seed))),
		}
	}
}

// ProvideDomain loads the configured knowledge base, or starts empty
func ProvideDomain(cfg *config.Config, opts DomainOptions, logger *zap.Logger) (*aggregates.Domain, error) {
	if cfg.KBFile == "" {
		logger.Info("No knowledge base file configured, starting empty")
		return aggregates.NewDomain(opts()...), nil
	}

	d, err := kbfile.LoadDomain(cfg.KBFile, opts()...)
	if err != nil {
		return nil, err
	}
	logger.Info("Knowledge base loaded",
		zap.String("path", cfg.KBFile),
		zap.Int("concepts", len(d.Concepts())),
		zap.Int("relations", len(d.Relations())),
	)
	return d, nil
}

// ProvideKnowledgeService creates the knowledge service
func ProvideKnowledgeService(
	d *aggregates.Domain,
	logger *zap.Logger,
	metrics *observability.Collector,
	tp *observability.TracerProvider,
) *services.KnowledgeService {
	return services.NewKnowledgeService(d, logger.Named("knowledge"), metrics, tp.Tracer())
}

// ProvideWatcher creates the hot-reload watcher when WATCH_KB is set. It
// returns nil otherwise.
func ProvideWatcher(
	cfg *config.Config,
	opts DomainOptions,
	service *services.KnowledgeService,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*kbfile.Watcher, error) {
	if !cfg.WatchKB || cfg.KBFile == "" {
		return nil, nil
	}
	return kbfile.NewWatcher(cfg.KBFile, opts, service.Replace, logger.Named("watcher"),
		kbfile.WithErrorHandler(metrics.ObserveReload),
	)
}

// ProvideRouter creates the REST router
func ProvideRouter(
	cfg *config.Config,
	service *services.KnowledgeService,
	metrics *observability.Collector,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(service, metrics, logger.Named("http"), rest.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.EnableMetrics,
	})
}

// ProvideHTTPHandler builds the handler tree
func ProvideHTTPHandler(router *rest.Router) http.Handler {
	return router.Setup()
}

// Shutdown stops the watcher and flushes tracing and logs
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	err := c.Tracing.Shutdown(ctx)
	// Sync on a console logger fails with EINVAL; nothing to act on
	_ = c.Logger.Sync()
	return err
}
