package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/auth"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/catalog"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/discounts"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/fleet"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/loading"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/observability"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/platform/httpx"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/rbac"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/reports"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/shared"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/stock"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/unloading"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/users"
)

// Application bundles everything the HTTP entrypoint and the worker share.
type Application struct {
	Config  Config
	Logger  *slog.Logger
	Reports *reports.Service
	Stock   *stock.Service
	router  chi.Router
}

// New wires repositories, services, and the HTTP router.
func New(cfg Config, logger *slog.Logger, pool *pgxpool.Pool, cache *redis.Client) (*Application, error) {
	sessions := shared.NewSessionManager(cache, "cnhd_session", cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies)
	auditLogger := shared.NewAuditLogger(pool)
	guard := rbac.Middleware{Logger: logger}

	metrics := observability.NewMetrics()

	ledgerCfg := stock.Config{NormalizeLooseBottles: cfg.NormalizeLooseBottles}
	valuer := stock.RunningAverageValue{}

	catalogSvc := catalog.NewService(catalog.NewRepository(pool))
	fleetSvc := fleet.NewService(fleet.NewRepository(pool))
	stockSvc := stock.NewService(logger, stock.NewRepository(pool), catalogSvc, auditLogger, metrics, valuer, ledgerCfg)
	loadingSvc := loading.NewService(logger, loading.NewRepository(pool), catalogSvc, fleetSvc, auditLogger, metrics, valuer, ledgerCfg)
	unloadingSvc := unloading.NewService(logger, unloading.NewRepository(pool), catalogSvc, fleetSvc, auditLogger, metrics, valuer, ledgerCfg)

	discountRepo := discounts.NewRepository(pool)
	capPolicy, err := discounts.NewCapPolicy(cfg.DiscountCapPolicy, cfg.DiscountCap, cfg.DiscountCapPeriod, discountRepo)
	if err != nil {
		return nil, err
	}
	discountSvc := discounts.NewService(logger, discountRepo, capPolicy, auditLogger)

	reportSvc := reports.NewService(logger, reports.NewRepository(pool), cache, cfg.ReportCacheTTL)

	userSvc := users.NewService(users.NewRepository(pool))
	authSvc := auth.NewService(userSvc)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(secureMiddleware(cfg))
	r.Use(rateLimiter(cfg))
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware(logger, sessions))

		auth.NewHandler(logger, authSvc, sessions, userSvc).MountRoutes(r)
		users.NewHandler(logger, userSvc, guard).MountRoutes(r)
		catalog.NewHandler(logger, catalogSvc, guard).MountRoutes(r)
		fleet.NewHandler(logger, fleetSvc, guard).MountRoutes(r)
		stock.NewHandler(logger, stockSvc, guard).MountRoutes(r)
		loading.NewHandler(logger, loadingSvc, guard).MountRoutes(r)
		unloading.NewHandler(logger, unloadingSvc, guard).MountRoutes(r)
		discounts.NewHandler(logger, discountSvc, guard).MountRoutes(r)
		reports.NewHandler(logger, reportSvc, guard).MountRoutes(r)
	})

	return &Application{
		Config:  cfg,
		Logger:  logger,
		Reports: reportSvc,
		Stock:   stockSvc,
		router:  r,
	}, nil
}

// Router returns the assembled HTTP handler.
func (a *Application) Router() http.Handler {
	return a.router
}
