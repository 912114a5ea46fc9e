package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/document-classifier/internal/config"
	"github.com/kirillkom/document-classifier/internal/core/forms"
	"github.com/kirillkom/document-classifier/internal/core/ports"
	"github.com/kirillkom/document-classifier/internal/core/usecase"
	"github.com/kirillkom/document-classifier/internal/infrastructure/detect/documentai"
	"github.com/kirillkom/document-classifier/internal/infrastructure/layout/pdfreader"
	"github.com/kirillkom/document-classifier/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/document-classifier/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/document-classifier/internal/infrastructure/llm/openai"
	"github.com/kirillkom/document-classifier/internal/infrastructure/notify/discord"
	"github.com/kirillkom/document-classifier/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-classifier/internal/infrastructure/ratelimit"
	"github.com/kirillkom/document-classifier/internal/infrastructure/render/fitz"
	"github.com/kirillkom/document-classifier/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
	"github.com/kirillkom/document-classifier/internal/observability/metrics"
)

// App is the API process graph.
type App struct {
	Config config.Config

	Metrics    *metrics.HTTPServerMetrics
	Classifier *usecase.ClassifyUseCase
	Intake     *usecase.IntakeUseCase
	Batch      *usecase.BatchUseCase
	History    ports.ClassificationReader

	closers []func()
}

// Worker is the event consumer process graph.
type Worker struct {
	Config config.Config

	Metrics    *metrics.WorkerMetrics
	Subscriber ports.EventSubscriber
	Recorder   ports.ClassificationRecorder

	closers []func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg, Metrics: metrics.NewHTTPServerMetrics("api")}
	classifyMetrics := metrics.NewClassifyMetrics(app.Metrics.Registry(), "api")

	classifier, closeClassifier, err := NewClassifier(ctx, cfg, classifyMetrics.ObserveBreaker)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeClassifier)
	app.Classifier = classifier.WithObserver(classifyMetrics)

	var (
		limiter   ports.UploadLimiter
		publisher ports.EventPublisher
		notifier  ports.Notifier
	)
	if cfg.FileRateLimitCount > 0 && cfg.FileRateLimitWindowHours > 0 {
		limiter = ratelimit.PerWindow(cfg.FileRateLimitCount, cfg.FileRateLimitWindow())
	}

	sideEffects := resilienceConfig(cfg, classifyMetrics.ObserveBreaker)
	if cfg.EventsEnabled && cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(sideEffects),
			Logger:             slog.Default(),
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.closers = append(app.closers, queue.Close)
		publisher = queue
	}
	if cfg.DiscordWebhookURL != "" {
		notifier = discord.New(cfg.DiscordWebhookURL, resilience.NewExecutor(sideEffects))
	}

	if cfg.PostgresDSN != "" {
		repo, closeDB, err := openRepository(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, closeDB)
		app.History = repo
	}

	app.Intake = usecase.NewIntakeUseCase(app.Classifier, limiter, publisher, notifier)
	app.Batch = usecase.NewBatchUseCase(app.Intake)
	return app, nil
}

func NewWorker(ctx context.Context, cfg config.Config) (*Worker, error) {
	if err := cfg.ValidateWorker(); err != nil {
		return nil, fmt.Errorf("worker config: %w", err)
	}
	w := &Worker{Config: cfg, Metrics: metrics.NewWorkerMetrics("worker")}

	repo, closeDB, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	w.closers = append(w.closers, closeDB)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{Logger: slog.Default()})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	w.closers = append(w.closers, queue.Close)

	w.Subscriber = queue
	w.Recorder = usecase.NewRecordClassificationUseCase(repo)
	return w, nil
}

// NewClassifier builds the tiered pipeline. Tiers without credentials are left
// out and reported as unavailable at classification time.
func NewClassifier(ctx context.Context, cfg config.Config, onBreaker resilience.StateObserver) (*usecase.ClassifyUseCase, func(), error) {
	tierPolicy := resilienceConfig(cfg, onBreaker).SingleAttempt()
	closeFn := func() {}

	var idDetector ports.IDDetector
	if cfg.DocumentAIEnabled() {
		detector, err := documentai.New(ctx, documentai.Config{
			ProjectID:       cfg.GoogleCloudProjectID,
			Location:        cfg.GoogleCloudLocation,
			ProcessorID:     cfg.GoogleCloudProcessorID,
			CredentialsJSON: cfg.GoogleApplicationCredentialsJSON,
		}, resilience.NewExecutor(tierPolicy))
		if err != nil {
			return nil, nil, fmt.Errorf("init document ai: %w", err)
		}
		idDetector = detector
	} else {
		slog.Warn("id_detection_disabled", "reason", "GOOGLE_CLOUD_PROJECT_ID or GOOGLE_CLOUD_PROCESSOR_ID not set")
	}

	handwriting, closeHandwriting, err := newHandwritingDetector(ctx, cfg, resilience.NewExecutor(tierPolicy))
	if err != nil {
		return nil, nil, err
	}
	if closeHandwriting != nil {
		closeFn = closeHandwriting
	}

	matcher := forms.NewMatcher(forms.YearRange{Min: cfg.YearMin, Max: cfg.YearMax})
	uc := usecase.NewClassifyUseCase(
		pdfreader.New(cfg.MaxPages),
		matcher,
		idDetector,
		fitz.New(cfg.RenderDPI),
		handwriting,
		usecase.ClassifyOptions{
			IDTimeout:          cfg.IDTimeout(),
			HandwritingTimeout: cfg.HandwritingTimeout(),
			IDMinConfidence:    cfg.IDMinConfidence,
		},
	)
	return uc, closeFn, nil
}

func newHandwritingDetector(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.HandwritingDetector, func(), error) {
	switch cfg.HandwritingProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			slog.Warn("handwriting_detection_disabled", "provider", "openai", "reason", "OPENAI_API_KEY not set")
			return nil, nil, nil
		}
		return openai.NewHandwritingDetector(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.HandwritingTimeout(),
		}, executor), nil, nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			slog.Warn("handwriting_detection_disabled", "provider", "gemini", "reason", "GEMINI_API_KEY not set")
			return nil, nil, nil
		}
		detector, err := gemini.NewHandwritingDetector(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, executor)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini: %w", err)
		}
		return detector, func() { _ = detector.Close() }, nil
	case "ollama":
		return ollama.NewHandwritingDetector(ollama.New(cfg.OllamaURL, cfg.OllamaVisionModel, executor)), nil, nil
	default:
		return nil, nil, nil
	}
}

func openRepository(ctx context.Context, cfg config.Config) (*postgres.ClassificationRepository, func(), error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewClassificationRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, func() { _ = db.Close() }, nil
}

func resilienceConfig(cfg config.Config, onBreaker resilience.StateObserver) resilience.Config {
	out := resilience.DefaultConfig()
	out.BreakerEnabled = cfg.BreakerEnabled
	if cfg.BreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.BreakerMinRequests)
	}
	if cfg.BreakerFailureRatio > 0 {
		out.BreakerFailureRatio = cfg.BreakerFailureRatio
	}
	if cfg.BreakerOpenTimeoutSeconds > 0 {
		out.BreakerOpenTimeout = time.Duration(cfg.BreakerOpenTimeoutSeconds) * time.Second
	}
	out.OnStateChange = onBreaker
	return out
}

func (a *App) Close() {
	closeAll(a.closers)
}

func (w *Worker) Close() {
	closeAll(w.closers)
}

func closeAll(closers []func()) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}
