package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unimaker/paygate/api/controllers"
	"github.com/unimaker/paygate/api/middleware"
	"github.com/unimaker/paygate/internal/orders"
	"github.com/unimaker/paygate/internal/profiles"
	"github.com/unimaker/paygate/internal/verification"
	"github.com/unimaker/paygate/pkg/config"
	"github.com/unimaker/paygate/pkg/logger"
	"github.com/unimaker/paygate/pkg/redis"
)

// NewRouter wires the full HTTP surface: public order and profile
// endpoints, the operator review group behind the internal token, and
// the health/metrics probes.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisClient *redis.Client,
	profileService profiles.Service,
	orderService orders.Service,
	verificationService verification.Service,
	eventReader controllers.EventReader,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	revealPolicy := middleware.NewRateLimitPolicy(
		"reveal",
		cfg.RateLimit.RevealWindow,
		cfg.RateLimit.RevealLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, map[string]controllers.Pinger{
			"db":    dbPinger,
			"redis": redisClient,
		}))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/payment-profiles", controllers.ProfileEnsure(profileService, logg))

		r.With(middleware.RateLimit(revealPolicy, redisClient, logg)).
			Post("/access/reveal-payment", controllers.PaymentReveal(profileService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(orderService, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(orderService, logg))
				r.Post("/accept", controllers.OrderAccept(orderService, logg))
				r.Post("/cancel", controllers.OrderCancel(orderService, logg))
				r.Post("/dispute", controllers.OrderDispute(orderService, logg))
				r.Post("/resolve", controllers.OrderResolve(orderService, logg))
				r.Get("/events", controllers.OrderEvents(eventReader, logg))

				r.Post("/pay/byop-proof", controllers.ProofSubmit(orderService, logg))
				r.Get("/pay/byop-proof/latest", controllers.ProofLatest(verificationService, logg))

				r.With(middleware.InternalToken(cfg.Internal.APIToken, logg)).
					Post("/pay/byop-proof/verify", controllers.ProofVerify(orderService, logg))
			})
		})

		r.Route("/internal", func(r chi.Router) {
			r.Use(middleware.InternalToken(cfg.Internal.APIToken, logg))
			r.Get("/byop-proof/review-queue", controllers.ReviewQueue(verificationService, logg))
		})
	})

	return r
}
