// Package app builds the long-lived ingestion services from configuration and
// owns their shutdown.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobingest/internal/clock/system"
	"github.com/JakeFAU/jobingest/internal/config"
	"github.com/JakeFAU/jobingest/internal/dedup"
	"github.com/JakeFAU/jobingest/internal/extract"
	collyfetcher "github.com/JakeFAU/jobingest/internal/fetcher/colly"
	"github.com/JakeFAU/jobingest/internal/id/uuid"
	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/politeness"
	"github.com/JakeFAU/jobingest/internal/progress"
	"github.com/JakeFAU/jobingest/internal/progress/sinks"
	"github.com/JakeFAU/jobingest/internal/runner"
	"github.com/JakeFAU/jobingest/internal/selector"
	"github.com/JakeFAU/jobingest/internal/storage/elastic"
	"github.com/JakeFAU/jobingest/internal/storage/memory"
	"github.com/JakeFAU/jobingest/internal/storage/postgres"
	"github.com/JakeFAU/jobingest/internal/storage/rest"
)

const hubCloseTimeout = 10 * time.Second

// App holds the services shared by every run: the store, the optional Redis
// claim client, the progress hub and the pipeline runner.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	store   jobs.Store
	runs    *postgres.RunStore
	runner  *runner.Runner
	closers []func()
}

// New wires the pipeline described by cfg. It fails fast when the store
// cannot be initialized; an unreachable Redis only disables claims.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	store, err := a.buildStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	var gateOpts []dedup.Option
	if claimer := a.buildClaimer(ctx); claimer != nil {
		gateOpts = append(gateOpts, dedup.WithClaimer(claimer))
	}

	emitter, err := a.buildProgress(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	pauser := politeness.TimerPauser{}
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:      cfg.Crawler.UserAgent,
		AcceptLanguage: cfg.Crawler.AcceptLanguage,
		Referer:        cfg.Crawler.Referer,
		Timeout:        cfg.RequestTimeout(),
		Limits:         politeness.LimitRules(cfg.Sites),
		Pauser:         pauser,
	}, logger)

	r, err := runner.New(runner.Deps{
		Fetcher:   fetcher,
		Resolver:  selector.NewFallbackResolver(logger.Named("selector"), selector.WithAutoDetect(cfg.Crawler.AutoDetect)),
		Extractor: extract.New(fetcher, logger.Named("extract")),
		Gate:      dedup.NewGate(store, logger.Named("dedup"), gateOpts...),
		Store:     store,
		Clock:     system.New(),
		IDs:       uuid.New(),
		Pauser:    pauser,
		Progress:  emitter,
		Logger:    logger,
	}, runner.Config{SiteConcurrency: cfg.Crawler.SiteConcurrency})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init runner: %w", err)
	}
	a.runner = r
	return a, nil
}

// Run processes every configured site once.
func (a *App) Run(ctx context.Context) jobs.Summary {
	return a.runner.RunAll(ctx, a.cfg.Sites)
}

// Store exposes the configured backend.
func (a *App) Store() jobs.Store {
	return a.store
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) buildStore(ctx context.Context) (jobs.Store, error) {
	sc := a.cfg.Store
	switch sc.Backend {
	case config.BackendREST:
		a.logger.Info("using rest store", zap.String("url", sc.URL), zap.String("table", sc.Table))
		client := rest.NewClient(sc.URL, sc.Key, &http.Client{Timeout: rest.DefaultTimeout})
		return rest.NewJobStore(client, sc.Table), nil
	case config.BackendPostgres:
		a.logger.Info("connecting to postgres", zap.String("table", sc.Table))
		store, err := postgres.NewJobStore(ctx, postgres.JobStoreConfig{
			DSN:      sc.Postgres.DSN,
			Table:    sc.Table,
			MaxConns: sc.Postgres.MaxConns,
			MinConns: sc.Postgres.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if sc.Postgres.RunHistory {
			a.runs = store.Runs()
		}
		if sc.Postgres.EnsureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				return nil, fmt.Errorf("ensure postgres schema: %w", err)
			}
		}
		return store, nil
	case config.BackendElastic:
		a.logger.Info("using elasticsearch store",
			zap.Strings("addresses", sc.Elastic.Addresses),
			zap.String("index", sc.Elastic.Index),
		)
		store, err := elastic.NewJobStore(sc.Elastic.Addresses, sc.Elastic.Index)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch store: %w", err)
		}
		if sc.Elastic.EnsureIndex {
			if err := store.EnsureIndex(ctx); err != nil {
				return nil, fmt.Errorf("ensure elasticsearch index: %w", err)
			}
		}
		return store, nil
	case config.BackendMemory:
		a.logger.Info("using in-memory store; records are discarded at exit")
		return memory.NewJobStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

// buildProgress returns the emitter the runner reports to. Without any
// configured sink it is a no-op.
func (a *App) buildProgress(ctx context.Context) (progress.Emitter, error) {
	var consumers []progress.Sink
	if a.cfg.Logging.Progress {
		consumers = append(consumers, sinks.NewLogSink(a.logger.Named("progress")))
	}
	if a.runs != nil {
		if a.cfg.Store.Postgres.EnsureSchema {
			if err := a.runs.EnsureSchema(ctx); err != nil {
				return nil, fmt.Errorf("ensure run history schema: %w", err)
			}
		}
		consumers = append(consumers, sinks.NewStoreSink(a.runs, a.logger.Named("progress")))
	}
	if len(consumers) == 0 {
		return progress.Nop{}, nil
	}
	hub := progress.NewHub(progress.Config{Logger: a.logger.Named("progress")}, consumers...)
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), hubCloseTimeout)
		defer cancel()
		if err := hub.Close(ctx); err != nil {
			a.logger.Warn("close progress hub", zap.Error(err))
		}
	})
	return hub, nil
}

func (a *App) buildClaimer(ctx context.Context) dedup.Claimer {
	rc := a.cfg.Redis
	if rc.URL == "" {
		return nil
	}
	client, err := dedup.NewRedisClient(ctx, rc.URL)
	if err != nil {
		a.logger.Warn("redis unavailable; running without claims", zap.Error(err))
		return nil
	}
	a.closers = append(a.closers, func() { closeRedis(client, a.logger) })
	a.logger.Info("redis claims enabled", zap.String("prefix", rc.Prefix), zap.Duration("ttl", a.cfg.ClaimTTL()))
	return dedup.NewRedisClaimer(client, rc.Prefix, a.cfg.ClaimTTL())
}

func closeRedis(client *redis.Client, logger *zap.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("close redis", zap.Error(err))
	}
}
