package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storyframe-backend/api/controllers"
	"github.com/angelmondragon/storyframe-backend/api/routes"
	"github.com/angelmondragon/storyframe-backend/internal/analysis"
	"github.com/angelmondragon/storyframe-backend/internal/answers"
	"github.com/angelmondragon/storyframe-backend/internal/audio"
	"github.com/angelmondragon/storyframe-backend/internal/events"
	"github.com/angelmondragon/storyframe-backend/internal/keywords"
	"github.com/angelmondragon/storyframe-backend/internal/media"
	"github.com/angelmondragon/storyframe-backend/internal/narrative"
	"github.com/angelmondragon/storyframe-backend/internal/questions"
	"github.com/angelmondragon/storyframe-backend/internal/speech"
	"github.com/angelmondragon/storyframe-backend/internal/stories"
	"github.com/angelmondragon/storyframe-backend/pkg/config"
	"github.com/angelmondragon/storyframe-backend/pkg/db"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
	"github.com/angelmondragon/storyframe-backend/pkg/metrics"
	"github.com/angelmondragon/storyframe-backend/pkg/migrate"
	"github.com/angelmondragon/storyframe-backend/pkg/pubsub"
	"github.com/angelmondragon/storyframe-backend/pkg/redis"
	"github.com/angelmondragon/storyframe-backend/pkg/storage"
	"github.com/angelmondragon/storyframe-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	var closers []func() error
	closers = append(closers, dbClient.Close)
	closeAll := func() {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, closers[i]())
		}
		if errs != nil {
			logg.Error(context.Background(), "error releasing resources", errs)
		}
	}
	defer closeAll()

	fail := func(msg string, err error) {
		logg.Error(ctx, msg, err)
		closeAll()
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		fail("failed to run dev migrations", err)
	}

	var locker stories.Locker = stories.NewMemoryLocker()
	readiness := controllers.Readiness{DB: dbClient}
	services := routes.Services{Gatherer: prometheus.DefaultGatherer}

	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			fail("failed to bootstrap redis", err)
		}
		closers = append(closers, redisClient.Close)

		redisLocker, err := stories.NewRedisLocker(redisClient, func(key string) string {
			return redisClient.LockKey("", key)
		}, cfg.Narrative.LockTTL)
		if err != nil {
			fail("failed to create story lock", err)
		}
		locker = redisLocker
		readiness.Redis = redisClient
		services.Idempotency = redisClient
	} else {
		logg.Warn(ctx, "redis not configured; idempotency disabled and story locks are process-local")
	}

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		fail("failed to bootstrap gcs", err)
	}
	imageStore, err := storage.NewImageStore(gcsClient, cfg.Media.MaxUploadBytes())
	if err != nil {
		fail("failed to create image store", err)
	}

	publisher := events.Noop()
	if cfg.PubSub.Enabled() {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			fail("failed to bootstrap pubsub", err)
		}
		closers = append(closers, psClient.Close)
		publisher = events.NewPublisher(psClient, logg)
	}

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	analysisClient, err := analysis.NewClient(cfg.Analysis)
	if err != nil {
		fail("failed to create analysis client", err)
	}
	mediaRepo := media.NewRepository(dbClient.DB())
	keywordRepo := keywords.NewRepository(dbClient.DB())
	questionRepo := questions.NewRepository(dbClient.DB())
	answerRepo := answers.NewRepository(dbClient.DB())

	processor, err := analysis.NewProcessor(analysis.ProcessorParams{
		Tx:        dbClient,
		Media:     mediaRepo,
		Keywords:  keywordRepo,
		Questions: questionRepo,
		Logger:    logg,
	})
	if err != nil {
		fail("failed to create analysis processor", err)
	}

	services.Media, err = media.NewService(media.ServiceParams{
		Repo:      mediaRepo,
		Store:     imageStore,
		Engine:    analysisClient,
		Processor: processor,
		Events:    publisher,
		Metrics:   pipelineMetrics,
		Logger:    logg,
	})
	if err != nil {
		fail("failed to create media service", err)
	}

	services.Questions, err = questions.NewService(questionRepo, mediaRepo)
	if err != nil {
		fail("failed to create question service", err)
	}

	services.Keywords, err = keywords.NewService(keywordRepo, mediaRepo)
	if err != nil {
		fail("failed to create keyword service", err)
	}

	normalizer, err := audio.NewNormalizer(cfg.Codec, audio.NewFFmpeg(cfg.Codec.FFmpegPath))
	if err != nil {
		fail("failed to create audio normalizer", err)
	}
	if status := normalizer.Preflight(); !status.Available {
		logg.Warn(logg.WithField(ctx, "detail", status.Detail), "ffmpeg unavailable; voice answers will fail")
	}
	readiness.Codec = normalizer.Preflight

	transcriber, err := speech.NewGoogleTranscriber(ctx, cfg.Speech, cfg.GCP)
	if err != nil {
		fail("failed to create speech transcriber", err)
	}

	services.Answers, err = answers.NewService(answers.ServiceParams{
		Repo:        answerRepo,
		Questions:   questionRepo,
		Normalizer:  normalizer,
		Transcriber: transcriber,
		Events:      publisher,
		Metrics:     pipelineMetrics,
		Logger:      logg,
	})
	if err != nil {
		fail("failed to create answer service", err)
	}

	narrativeClient, err := narrative.NewClient(cfg.Narrative)
	if err != nil {
		fail("failed to create narrative client", err)
	}
	services.Stories, err = stories.NewService(stories.ServiceParams{
		Repo:          stories.NewRepository(dbClient.DB()),
		Media:         mediaRepo,
		Questions:     questionRepo,
		Answers:       answerRepo,
		Engine:        narrativeClient,
		Locker:        locker,
		Events:        publisher,
		Metrics:       pipelineMetrics,
		Logger:        logg,
		DefaultStyle:  cfg.Narrative.DefaultStyle,
		DefaultLength: cfg.Narrative.DefaultLength,
	})
	if err != nil {
		fail("failed to create story service", err)
	}
	services.Readiness = readiness

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "graceful shutdown failed", err)
		}
	}
}
