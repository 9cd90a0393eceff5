package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/knowledge-hub-tools/internal/config"
	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/core/ports"
	"github.com/kirillkom/knowledge-hub-tools/internal/core/usecase"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/chunking"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/queue/nats"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/repository/memory"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/repository/postgrest"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/resilience"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/knowledge-hub-tools/internal/observability/metrics"
)

const summaryChunkRunes = 600

type App struct {
	Config  config.Config
	Filters domain.FilterConfig
	Logger  *slog.Logger
	Metrics *metrics.RunMetrics

	Store      ports.GuideStore
	Storage    ports.ObjectStorage
	Exporter   ports.ReportExporter
	Subscriber ports.EventSubscriber

	Classifier  *usecase.Classifier
	Coverage    *usecase.CoverageService
	Reconciler  *usecase.ReconcileService
	Images      *usecase.ImageService
	UnitMirror  *usecase.UnitMirrorService
	Conversion  *usecase.ConversionService
	Duplication *usecase.DuplicationService
	Seeder      *usecase.SeedService
	Diagnoser   *usecase.DiagnoseService

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	filters, err := cfg.LoadFilters()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{
		Config:   cfg,
		Filters:  filters,
		Logger:   logger,
		Metrics:  metrics.NewRunMetrics("hubctl"),
		Exporter: xlsx.NewExporter(),
	}

	executor := resilience.NewExecutorWithLogger(resilienceConfig(cfg), logger)
	executor.ObserveRetries(app.Metrics.ObserveRetry)
	store, err := app.openStore(ctx, executor)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	storage, err := localfs.New(cfg.ReportDir)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init report storage: %w", err)
	}
	app.Storage = storage

	var publisher ports.EventPublisher
	if cfg.NATSURL != "" {
		bus, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			QueueGroup:         cfg.NATSGroup,
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init event bus: %w", err)
		}
		app.closeFns = append(app.closeFns, bus.Close)
		publisher = bus
		app.Subscriber = bus
	}

	classifier := usecase.NewClassifier(filters)
	auditor := usecase.NewAuditor(filters, classifier)
	assigner := usecase.NewImageAssigner(filters.ImagePool)

	execOpts := []usecase.ExecutorOption{
		usecase.WithRecorder(app.Metrics),
		usecase.WithImageAssigner(assigner),
		usecase.WithLogger(logger),
	}
	if publisher != nil {
		execOpts = append(execOpts, usecase.WithPublisher(publisher))
	}
	planExecutor := usecase.NewPlanExecutor(store, filters, classifier, execOpts...)

	app.Classifier = classifier
	app.Coverage = usecase.NewCoverageService(store, auditor, app.Metrics)
	app.Reconciler = usecase.NewReconcileService(
		app.Coverage,
		usecase.NewPlanner(filters, classifier, cfg.AllowCreate),
		planExecutor,
		storage,
	)
	app.Images = usecase.NewImageService(app.Coverage, classifier, assigner, planExecutor)
	app.UnitMirror = usecase.NewUnitMirrorService(store, planExecutor)
	app.Conversion = usecase.NewConversionService(store, planExecutor)
	app.Duplication = usecase.NewDuplicationService(app.Coverage, filters, planExecutor)
	app.Seeder = usecase.NewSeedService(
		plaintext.NewExtractor(storage),
		chunking.NewSplitter(summaryChunkRunes),
		planExecutor,
	)
	app.Diagnoser = usecase.NewDiagnoseService(store, filters, classifier, func() string {
		return "diagnose-probe-" + uuid.NewString()[:8]
	})

	return app, nil
}

func (a *App) openStore(ctx context.Context, executor *resilience.Executor) (ports.GuideStore, error) {
	cfg := a.Config
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closeFns = append(a.closeFns, func() { _ = db.Close() })
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return postgres.NewGuideRepository(db, executor), nil
	case config.StoreDriverMemory:
		if cfg.StoreFixture == "" {
			return memory.NewGuideStore(), nil
		}
		store, err := memory.LoadFixture(cfg.StoreFixture)
		if err != nil {
			return nil, fmt.Errorf("load store fixture: %w", err)
		}
		a.Logger.Info("memory_store_loaded", "fixture", cfg.StoreFixture)
		return store, nil
	default:
		return postgrest.New(cfg.SupabaseURL, cfg.SupabaseKey, postgrest.Options{
			Table:              cfg.GuidesTable,
			RequestsPerSecond:  cfg.StoreRPS,
			PageSize:           cfg.StorePageSize,
			ResilienceExecutor: executor,
		}), nil
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: time.Duration(cfg.RetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(cfg.RetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:     2,
		RetryJitter:         0.2,

		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerMinRequests:  uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerFailureRatio: cfg.BreakerFailureRatio,
		BreakerOpenTimeout:  time.Duration(cfg.BreakerOpenTimeoutMS) * time.Millisecond,
	}
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
