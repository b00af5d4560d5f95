package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmagedov/p2pdesk-backend/api/controllers"
	"github.com/rmagedov/p2pdesk-backend/api/middleware"
	"github.com/rmagedov/p2pdesk-backend/internal/assignment"
	"github.com/rmagedov/p2pdesk-backend/internal/auth"
	"github.com/rmagedov/p2pdesk-backend/internal/resttimer"
	"github.com/rmagedov/p2pdesk-backend/internal/roster"
	"github.com/rmagedov/p2pdesk-backend/internal/trades"
	"github.com/rmagedov/p2pdesk-backend/pkg/config"
	"github.com/rmagedov/p2pdesk-backend/pkg/db"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
	"github.com/rmagedov/p2pdesk-backend/pkg/redis"
)

// Services bundles everything the router mounts.
type Services struct {
	Auth       auth.Service
	Roster     roster.Service
	Assignment assignment.Service
	RestTimer  resttimer.Service
	Trades     trades.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, database, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthLimits.LoginWindow,
		cfg.AuthLimits.LoginIPLimit,
		cfg.AuthLimits.LoginEmailLimit,
	)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/terminal", func(r chi.Router) {
			r.Post("/calc", controllers.TerminalCalc(logg))

			r.Route("/rest-timer", func(r chi.Router) {
				r.Get("/", controllers.RestTimerStatus(svcs.RestTimer, logg))
				r.Post("/start", controllers.RestTimerStart(svcs.RestTimer, logg))
				r.Post("/end", controllers.RestTimerEnd(svcs.RestTimer, logg))
			})

			r.Post("/assignment/run", controllers.AssignmentRun(svcs.Assignment, svcs.Trades, logg))
		})

		r.Route("/operators", func(r chi.Router) {
			r.Get("/", controllers.OperatorsList(svcs.Roster, logg))
			r.Put("/{operatorID}/shift", controllers.OperatorShift(svcs.Roster, logg))
		})

		r.Route("/ads", func(r chi.Router) {
			r.Get("/", controllers.AdsList(svcs.Trades, logg))
			r.Post("/refresh", controllers.AdsRefresh(svcs.Trades, logg))
			r.Post("/status", controllers.AdsSetStatus(svcs.Trades, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(svcs.Trades, logg))
			r.Post("/sync", controllers.OrdersSync(svcs.Trades, logg))
		})

		r.Route("/assignment", func(r chi.Router) {
			r.Get("/config", controllers.AssignmentConfig(svcs.Assignment, logg))
			r.Get("/log", controllers.AssignmentLogs(svcs.Assignment, logg))
			r.With(middleware.RequireRole(string(enums.OperatorRoleAdmin), logg)).
				Put("/config", controllers.AssignmentConfigUpdate(svcs.Assignment, logg))
		})
	})

	return r
}
