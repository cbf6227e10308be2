package bootstrap

import (
	"context"
	"fmt"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/config"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/ports"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/usecase"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/infrastructure/archive"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/infrastructure/categorize"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/infrastructure/credential/localfile"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/infrastructure/naming"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/infrastructure/queue/nats"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/infrastructure/repository/postgres"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/infrastructure/resilience"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/infrastructure/storage/localfs"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/infrastructure/vision/openai"
)

type App struct {
	Config config.Config

	Queue       ports.TaskQueue
	Repo        ports.ImageRepository
	Credentials ports.CredentialStore

	SubmitUC     ports.BatchSubmitter
	ProcessUC    ports.ImageProcessor
	CategoriesUC ports.CategoryService
	ExportUC     ports.Exporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	imageRepo := postgres.NewImageRepository(db)
	if err := imageRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure image schema: %w", err)
	}
	categoryRepo := postgres.NewCategoryRepository(db)
	if err := categoryRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure category schema: %w", err)
	}
	for _, name := range cfg.PredefinedCategories {
		if _, err := categoryRepo.Add(ctx, name, true); err != nil {
			return nil, fmt.Errorf("seed predefined category %q: %w", name, err)
		}
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	credentials, err := localfile.New(cfg.CredentialPath)
	if err != nil {
		return nil, fmt.Errorf("init credential store: %w", err)
	}

	policy := resilience.DefaultPolicy()
	policy.Attempts = cfg.RetryMaxAttempts
	executor := resilience.NewExecutor(policy)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init task queue: %w", err)
	}

	visionClient := openai.NewWithTimeout(cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.RecognitionMaxResults, credentials, cfg.OpenAITimeout)
	recognizer := openai.NewResilientRecognizer(visionClient, executor)

	rules, err := categorize.LoadRules(cfg.CategoryRulesPath)
	if err != nil {
		return nil, fmt.Errorf("load category rules: %w", err)
	}
	resolver := categorize.NewResolver(rules)
	renamer := naming.NewRenamer()
	archiver := archive.NewZipBuilder()

	submitUC := usecase.NewSubmitBatchUseCase(imageRepo, storage, queue)
	processUC := usecase.NewProcessImageUseCase(imageRepo, storage, recognizer, resolver, renamer, cfg.SettleDelay)
	categoriesUC := usecase.NewCategoryUseCase(categoryRepo, imageRepo)
	exportUC := usecase.NewExportUseCase(imageRepo, storage, archiver)

	return &App{
		Config: cfg,

		Queue:       queue,
		Repo:        imageRepo,
		Credentials: credentials,

		SubmitUC:     submitUC,
		ProcessUC:    processUC,
		CategoriesUC: categoriesUC,
		ExportUC:     exportUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
