package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/brandinbox/api/controllers"
	"github.com/angelmondragon/brandinbox/api/middleware"
	"github.com/angelmondragon/brandinbox/internal/auth"
	"github.com/angelmondragon/brandinbox/internal/listings"
	"github.com/angelmondragon/brandinbox/internal/uploads"
	"github.com/angelmondragon/brandinbox/internal/webhooks"
	"github.com/angelmondragon/brandinbox/pkg/config"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/metrics"
)

// Store is the slice of the redis client the HTTP surface depends on.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	IdempotencyKey(scope, id string) string
	Ping(ctx context.Context) error
}

// Params collects everything NewRouter wires. Store and DB may be nil in tests.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Store    Store
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics

	Auth     auth.Service
	Listings listings.Service
	Uploads  *uploads.Service
	Webhooks *webhooks.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	// Typed nils must not reach the middleware as non-nil interfaces.
	var (
		revocations middleware.RevocationChecker
		limiter     interface {
			IncrWithTTL(context.Context, string, time.Duration) (int64, error)
		}
		idem interface {
			Get(context.Context, string) (string, error)
			SetNX(context.Context, string, any, time.Duration) (bool, error)
			IdempotencyKey(string, string) string
		}
		redisPinger controllers.Pinger
	)
	if p.Store != nil {
		revocations, limiter, idem, redisPinger = p.Store, p.Store, p.Store, p.Store
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.Metrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.LoginPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.LoginPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	mediaPolicy := middleware.MediaGenerationPolicy(cfg.MediaLimit.Window, cfg.MediaLimit.UserLimit)

	r.Get("/", controllers.Root())
	r.Get("/health", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
		"database": p.DB,
		"redis":    redisPinger,
	}))
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(registerPolicy, limiter, logg)).Post("/register", controllers.AuthRegister(p.Auth, logg))
		r.With(middleware.RateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, revocations, logg))
			r.Get("/me", controllers.AuthMe(p.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(p.Auth, logg))
		})
	})

	r.Route("/listings", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, revocations, logg))
		idempotent := r.With(middleware.Idempotency(idem, logg))

		idempotent.Post("/", controllers.ListingCreate(p.Listings, logg))
		r.Get("/", controllers.ListingList(p.Listings, logg))
		r.Get("/{id}", controllers.ListingGet(p.Listings, logg))
		r.Put("/{id}", controllers.ListingUpdate(p.Listings, logg))
		r.Patch("/{id}", controllers.ListingUpdate(p.Listings, logg))
		r.Delete("/{id}", controllers.ListingDelete(p.Listings, logg))
		idempotent.With(middleware.RateLimit(mediaPolicy, limiter, logg)).
			Post("/{id}/generate-media", controllers.ListingGenerateMedia(p.Listings, logg))
		idempotent.Post("/{id}/approve-media", controllers.ListingApproveMedia(p.Listings, logg))
		idempotent.Post("/{id}/publish", controllers.ListingPublish(p.Listings, logg))
	})

	if p.Uploads != nil {
		r.With(middleware.Auth(cfg.JWT, revocations, logg)).
			Post("/upload/images", controllers.UploadImages(p.Uploads, cfg.Upload.MaxFiles, logg))
	}

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(middleware.WebhookSecret(cfg.Webhook.Secret, logg))
		r.Post("/media-complete", controllers.WebhookMediaComplete(p.Webhooks, logg))
		r.Post("/ebay-complete", controllers.WebhookEbayComplete(p.Webhooks, logg))
	})

	return r
}
