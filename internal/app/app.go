// Package app wires configuration into the fetch pipeline, the saved-product
// store and the video job manager. Both binaries start from here.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/maltedev/affiliate-product-fetcher/internal/browser"
	"github.com/maltedev/affiliate-product-fetcher/internal/config"
	"github.com/maltedev/affiliate-product-fetcher/internal/database"
	"github.com/maltedev/affiliate-product-fetcher/internal/jobs"
	"github.com/maltedev/affiliate-product-fetcher/internal/metrics"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
	"github.com/maltedev/affiliate-product-fetcher/internal/queue"
	"github.com/maltedev/affiliate-product-fetcher/internal/ratelimit"
	"github.com/maltedev/affiliate-product-fetcher/internal/scraper"
	"github.com/maltedev/affiliate-product-fetcher/internal/storage"
	"github.com/maltedev/affiliate-product-fetcher/internal/video"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	Browser *browser.Browser
	Service *scraper.Service
	Saved   storage.Repository
	Jobs    *jobs.Manager
	Logger  *slog.Logger

	queue   *queue.InMemoryQueue
	closers []func()
}

// NewLogger builds the process logger from the logging section. Unknown
// levels fall back to info.
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func BrowserOptions(cfg config.ScraperConfig) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Timeout = cfg.PageTimeout
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}
	if cfg.AcceptLanguage != "" {
		opts.AcceptLanguage = cfg.AcceptLanguage
	}
	if cfg.MaxRedirects > 0 {
		opts.MaxRedirects = cfg.MaxRedirects
	}
	opts.MaxRetries = cfg.MaxRetries
	opts.RetryDelay = cfg.RetryDelay
	return opts
}

// ScraperDeps maps configuration onto the pipeline's dependencies.
func ScraperDeps(cfg *config.Config, client scraper.PageClient, m *metrics.Metrics, logger *slog.Logger) scraper.Deps {
	origins := map[models.Store]string{}
	for store, base := range map[models.Store]string{
		models.StoreAmazon:     cfg.Scraper.AmazonBaseURL,
		models.StoreAliExpress: cfg.Scraper.AliExpressBaseURL,
		models.StoreEbay:       cfg.Scraper.EbayBaseURL,
	} {
		if base != "" {
			origins[store] = base
		}
	}

	return scraper.Deps{
		Client: client,
		Credentials: map[models.Store]scraper.Credentials{
			models.StoreAmazon: {
				Key:    cfg.Amazon.AccessKey,
				Secret: cfg.Amazon.SecretKey,
				Tag:    cfg.Amazon.AssociateTag,
			},
			models.StoreAliExpress: {
				Key:    cfg.AliExpress.AppKey,
				Secret: cfg.AliExpress.AppSecret,
				Tag:    cfg.AliExpress.TrackingID,
			},
			models.StoreEbay: {
				Key:    cfg.Ebay.AppID,
				Secret: cfg.Ebay.CertID,
				Tag:    cfg.Ebay.CampaignID,
			},
		},
		Origins:        origins,
		PageTimeout:    cfg.Scraper.PageTimeout,
		ResolveTimeout: cfg.Scraper.ResolveTimeout,
		SearchTimeout:  cfg.Scraper.SearchTimeout,
		VDPTimeout:     cfg.Scraper.VDPTimeout,
		WalkDelay:      cfg.Scraper.WalkDelay,
		Metrics:        m,
		Logger:         logger,
	}
}

// New connects every backend the configuration selects. Close releases them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		Config:  cfg,
		Metrics: metrics.New(),
		Logger:  logger,
		queue:   queue.NewInMemoryQueue(),
	}

	a.Browser = browser.New(BrowserOptions(cfg.Scraper), logger).
		WithLimiter(ratelimit.NewRequestLimiter(cfg.Scraper.RequestsPerSecond, cfg.Scraper.Burst)).
		WithMetrics(a.Metrics)
	a.Service = scraper.NewService(ScraperDeps(cfg, a.Browser, a.Metrics, logger))

	saved, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Saved = saved

	jobStore, err := a.openJobStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	renderer := video.NewStoryboardRenderer(cfg.Jobs.OutputDir, logger)
	a.Jobs = jobs.NewManager(jobStore, a.queue, renderer, a.Metrics, logger)

	return a, nil
}

func (a *App) openStorage(ctx context.Context) (storage.Repository, error) {
	cfg := a.Config
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		db, err := database.New(ctx, database.Config{
			URL:      cfg.Database.URL,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		return database.NewProductRepository(db, a.Logger), nil
	default:
		return storage.NewFileStore(cfg.Storage.File, a.Logger)
	}
}

func (a *App) openJobStore(ctx context.Context) (jobs.Store, error) {
	cfg := a.Config
	if cfg.Jobs.Backend != config.JobsRedis {
		return jobs.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, func() { client.Close() })

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return jobs.NewRedisStore(client, cfg.Jobs.TTL, a.Logger), nil
}

// RunWorkers blocks running the video workers until ctx is done or Close is
// called.
func (a *App) RunWorkers(ctx context.Context) {
	a.Jobs.Start(ctx, a.Config.Jobs.VideoWorkers)
}

func (a *App) Close() {
	a.queue.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
