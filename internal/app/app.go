// Package app builds the long-lived services behind both workflows from a loaded Config.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/webscraper/internal/api"
	"github.com/JakeFAU/webscraper/internal/clock/system"
	"github.com/JakeFAU/webscraper/internal/config"
	collyfetcher "github.com/JakeFAU/webscraper/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/webscraper/internal/fetcher/headless"
	"github.com/JakeFAU/webscraper/internal/fetcher/promote"
	"github.com/JakeFAU/webscraper/internal/headless/detector"
	"github.com/JakeFAU/webscraper/internal/id/uuid"
	"github.com/JakeFAU/webscraper/internal/identity"
	"github.com/JakeFAU/webscraper/internal/linkresolver"
	"github.com/JakeFAU/webscraper/internal/logging"
	"github.com/JakeFAU/webscraper/internal/mail"
	"github.com/JakeFAU/webscraper/internal/metrics"
	"github.com/JakeFAU/webscraper/internal/ses"
	"github.com/JakeFAU/webscraper/internal/storage"
	"github.com/JakeFAU/webscraper/internal/storage/gcs"
	"github.com/JakeFAU/webscraper/internal/storage/local"
	"github.com/JakeFAU/webscraper/internal/storage/memory"
	"github.com/JakeFAU/webscraper/internal/storage/minio"
	"github.com/JakeFAU/webscraper/internal/storagekey"
	"github.com/JakeFAU/webscraper/internal/telemetry"
	"github.com/JakeFAU/webscraper/internal/workflow"
)

const tracerShutdownTimeout = 5 * time.Second

// App holds the services shared by the CLI commands and the HTTP server.
// It is built once at startup and closed on exit.
type App struct {
	logger   *zap.Logger
	notifier *workflow.Notifier
	archiver *workflow.Archiver
	server   *api.Server
	closers  []func() error
}

// Option overrides a collaborator New would otherwise build from config.
type Option func(*options)

type options struct {
	sesAPI ses.API
	store  storage.ObjectStore
	clock  workflow.Clock
}

// WithSESAPI replaces the SES client built from the default AWS credential chain.
func WithSESAPI(client ses.API) Option {
	return func(o *options) { o.sesAPI = client }
}

// WithObjectStore replaces the storage backend selected by storage.backend.
func WithObjectStore(store storage.ObjectStore) Option {
	return func(o *options) { o.store = store }
}

// WithClock replaces the wall clock used for storage keys.
func WithClock(clock workflow.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// New wires every service. It fails fast if any backend cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{logger: logger}
	logger.Info("initializing application services",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("page_loader", cfg.Page.Loader),
	)

	if cfg.Tracing.Enabled {
		tp, err := telemetry.InitTracerProvider(ctx, telemetry.Options{
			ServiceName: logging.Service,
			SampleRatio: cfg.Tracing.SampleRatio,
			ProjectID:   cfg.Tracing.ProjectID,
		})
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		a.closers = append(a.closers, func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
			defer cancel()
			return tp.Shutdown(shutdownCtx)
		})
	}

	sesClient, err := a.sesClient(ctx, cfg, o.sesAPI)
	if err != nil {
		a.Close()
		return nil, err
	}

	files := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	})
	pages, err := a.pageFetcher(cfg, files)
	if err != nil {
		a.Close()
		return nil, err
	}

	store := o.store
	if store == nil {
		store, err = a.objectStore(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	clock := o.clock
	if clock == nil {
		clock = system.New(cfg.Location())
	}
	recorder := metrics.NewRecorder()

	a.notifier = workflow.NewNotifier(
		identity.NewGate(sesClient, logger.Named("identity")),
		pages,
		mail.NewDispatcher(sesClient, cfg.Mail.Subject, cfg.Mail.TextBody, logger.Named("mail")),
		recorder,
		logger.Named("notify"),
	)
	a.archiver = workflow.NewArchiver(
		linkresolver.New(linkresolver.NewPageLoader(pages), logger.Named("resolver")),
		files,
		storagekey.New(),
		storage.NewUploader(store, cfg.Storage.ContentType, logger.Named("storage")),
		workflow.BucketFunc(cfg.Bucket),
		clock,
		cfg.Scrape.MatchToken,
		recorder,
		logger.Named("archive"),
	)
	a.server = api.NewServer(a.notifier, a.archiver, uuid.New(), cfg, logger.Named("api"))

	logger.Info("application services initialized")
	return a, nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Notifier returns the verify-and-notify workflow.
func (a *App) Notifier() api.NotifyRunner {
	return a.notifier
}

// Archiver returns the scrape-and-archive workflow.
func (a *App) Archiver() api.ArchiveRunner {
	return a.archiver
}

// Handler returns the HTTP trigger for both workflows.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Close releases backend clients in reverse order of creation and flushes the logger.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
	// Syncing stdout/stderr fails on some platforms; nothing useful can be done about it.
	_ = a.logger.Sync()
}

func (a *App) sesClient(ctx context.Context, cfg config.Config, override ses.API) (*ses.Client, error) {
	if override != nil {
		return ses.NewWithAPI(override), nil
	}
	client, err := ses.New(ctx, ses.Config{Region: cfg.AWS.Region, Endpoint: cfg.AWS.Endpoint})
	if err != nil {
		return nil, fmt.Errorf("init ses: %w", err)
	}
	return client, nil
}

func (a *App) pageFetcher(cfg config.Config, probe *collyfetcher.Fetcher) (workflow.PageFetcher, error) {
	if cfg.Page.Loader != config.LoaderHeadless && cfg.Page.Loader != config.LoaderAuto {
		return probe, nil
	}
	fetcher, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		MaxParallel:       cfg.Headless.MaxParallel,
		UserAgent:         cfg.HTTP.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("init headless fetcher: %w", err)
	}
	a.closers = append(a.closers, func() error {
		fetcher.Close()
		return nil
	})
	if cfg.Page.Loader == config.LoaderAuto {
		heuristic := detector.NewHeuristic(cfg.Headless.PromotionThreshold)
		return promote.New(probe, fetcher, heuristic, a.logger.Named("promote")), nil
	}
	return fetcher, nil
}

func (a *App) objectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendGCS:
		store, err := gcs.Open(ctx, gcs.Config{Endpoint: cfg.Storage.GCS.Endpoint})
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.BackendMinio:
		store, err := minio.New(minio.Config{
			Endpoint:  cfg.Storage.Minio.Endpoint,
			AccessKey: cfg.Storage.Minio.AccessKey,
			SecretKey: cfg.Storage.Minio.SecretKey,
			UseSSL:    cfg.Storage.Minio.UseSSL,
			Region:    cfg.Storage.Minio.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("init minio storage: %w", err)
		}
		return store, nil
	case config.BackendLocal:
		store, err := local.New(local.Config{BaseDir: cfg.Storage.Local.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return store, nil
	case config.BackendMemory:
		buckets := append([]string(nil), cfg.Storage.Memory.Buckets...)
		if bucket := cfg.Bucket(); bucket != "" {
			buckets = append(buckets, bucket)
		}
		return memory.NewBlobStore(buckets...), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
