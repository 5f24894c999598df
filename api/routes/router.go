package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storyframe-backend/api/controllers"
	"github.com/angelmondragon/storyframe-backend/api/middleware"
	"github.com/angelmondragon/storyframe-backend/internal/answers"
	"github.com/angelmondragon/storyframe-backend/internal/keywords"
	"github.com/angelmondragon/storyframe-backend/internal/media"
	"github.com/angelmondragon/storyframe-backend/internal/questions"
	"github.com/angelmondragon/storyframe-backend/internal/stories"
	"github.com/angelmondragon/storyframe-backend/pkg/config"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
	"github.com/angelmondragon/storyframe-backend/pkg/redis"
)

// Services bundles what the router exposes. Idempotency may be nil when Redis
// is not configured; Gatherer defaults to the prometheus default registry.
type Services struct {
	Media       media.Service
	Keywords    keywords.Service
	Questions   questions.Service
	Answers     answers.Service
	Stories     stories.Service
	Readiness   controllers.Readiness
	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer
}

const idempotencyBodyLimit = 64 << 10

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	gatherer := svc.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, svc.Readiness, logg))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	imageLimits := controllers.UploadLimits{
		MaxBytes:  cfg.Media.MaxUploadBytes(),
		MaxMemory: int64(cfg.Media.MaxFormMemMB) << 20,
	}
	audioLimits := controllers.UploadLimits{
		MaxBytes:  cfg.Media.MaxAudioBytes(),
		MaxMemory: int64(cfg.Media.MaxFormMemMB) << 20,
	}
	answerIdempotency := middleware.Idempotency(svc.Idempotency, middleware.DefaultIdempotencyTTL, audioLimits.MaxBytes+(1<<20), logg)
	storyIdempotency := middleware.Idempotency(svc.Idempotency, middleware.DefaultIdempotencyTTL, idempotencyBodyLimit, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/media", controllers.MediaUpload(svc.Media, imageLimits, logg))
		r.Route("/media/{mediaId}", func(r chi.Router) {
			r.Post("/analysis", controllers.MediaReanalyze(svc.Media, logg))
			r.Get("/keywords", controllers.ListMediaKeywords(svc.Keywords, logg))
			r.Get("/questions", controllers.ListMediaQuestions(svc.Questions, logg))
			r.Post("/questions", controllers.CreateMediaQuestion(svc.Questions, logg))
			r.Get("/story", controllers.GetStory(svc.Stories, logg))
			r.With(storyIdempotency).Post("/story", controllers.GenerateStory(svc.Stories, logg))
		})
		r.Route("/questions/{questionId}", func(r chi.Router) {
			r.Get("/answers", controllers.ListAnswers(svc.Answers, logg))
			r.With(answerIdempotency).Post("/answers", controllers.SubmitAnswer(svc.Answers, audioLimits, logg))
		})
	})

	return r
}
