package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/db/migrations"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/aggregates"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/alerts"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/classifier"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/geo"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/ledger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/scan"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/scanstate"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/summary"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/common"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/config"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/database"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/eventbus"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/health"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/middleware"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	serviceVersion = "1.0.0"
	maxBodyBytes   = 10 << 20
)

// stores groups the repositories selected by STORE_DRIVER
type stores struct {
	states  scanstate.RepositoryInterface
	ledger  ledger.RepositoryInterface
	alerts  alerts.RepositoryInterface
	rollups aggregates.RepositoryInterface
	pool    *pgxpool.Pool
}

func memoryStores() *stores {
	return &stores{
		states:  scanstate.NewMemoryRepository(),
		ledger:  ledger.NewMemoryRepository(),
		alerts:  alerts.NewMemoryRepository(),
		rollups: aggregates.NewMemoryRepository(),
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Server.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory stores, data is lost on restart")
		return memoryStores(), nil
	}

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(cfg.Database.MigrationURL(), migrations.FS); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	return &stores{
		states:  scanstate.NewRepository(pool),
		ledger:  ledger.NewRepository(pool),
		alerts:  alerts.NewRepository(pool),
		rollups: aggregates.NewRepository(pool),
		pool:    pool,
	}, nil
}

// app holds everything the router needs. Locker, Publisher and the bus
// subscriber are optional.
type app struct {
	cfg        *config.Config
	stores     *stores
	classifier classifier.Classifier
	locations  geo.LocationStore
	locker     scan.Locker
	publisher  eventbus.Publisher
	limiter    *ratelimit.Limiter
	checks     map[string]func() error

	orchestrator *scan.Orchestrator
}

func (a *app) build() {
	propagator := aggregates.NewPropagator(a.stores.rollups, a.stores.alerts, a.publisher)
	a.orchestrator = scan.NewOrchestrator(scan.Deps{
		States:     a.stores.states,
		Ledger:     a.stores.ledger,
		Classifier: a.classifier,
		Propagator: propagator,
		Locations:  a.locations,
		Locker:     a.locker,
	}, scan.OptionsFromConfig(a.cfg.Scan))
}

func (a *app) router() *gin.Engine {
	if a.orchestrator == nil {
		a.build()
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	if a.cfg.Sentry.DSN != "" {
		router.Use(sentryMiddleware())
	}
	router.Use(
		middleware.CorrelationID(),
		middleware.RequestLogger(),
		middleware.Metrics(a.cfg.Server.ServiceName),
		middleware.Tracing(a.cfg.Server.ServiceName),
		middleware.SecurityHeaders(),
		cors.New(corsConfig(a.cfg.Server.CORSOrigins)),
		middleware.MaxBodySize(maxBodyBytes),
	)

	router.GET("/health/live", common.HealthCheck(a.cfg.Server.ServiceName, serviceVersion))
	router.GET("/health/ready", common.HealthCheckWithDeps(a.cfg.Server.ServiceName, serviceVersion, a.checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	if a.limiter != nil {
		api.Use(ratelimit.Middleware(a.limiter, ratelimit.UserOrIP))
	}
	scan.NewHandler(a.orchestrator, a.stores.states, a.publisher).RegisterRoutes(api)
	ledger.NewHandler(ledger.NewService(a.stores.ledger)).RegisterRoutes(api)
	alerts.NewHandler(alerts.NewService(a.stores.alerts)).RegisterRoutes(api)
	aggregates.NewHandler(aggregates.NewService(a.stores.rollups, a.stores.alerts)).RegisterRoutes(api)
	geo.NewHandler(geo.NewService(a.stores.alerts, a.cfg.Geo.TieBreakRadiusKm), a.locations).RegisterRoutes(api)
	summary.NewHandler().RegisterRoutes(api)

	return router
}

func corsConfig(origins string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	cfg.ExposeHeaders = []string{"X-Request-ID"}
	cfg.MaxAge = 12 * time.Hour

	var allowed []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowed
	return cfg
}

func readinessChecks(s *stores) map[string]func() error {
	checks := make(map[string]func() error)
	if s.pool != nil {
		checks["postgres"] = health.PostgresChecker(s.pool)
	}
	return checks
}

func logStartup(cfg *config.Config, a *app) {
	logger.Info("finsight api configured",
		zap.String("store_driver", cfg.Server.StoreDriver),
		zap.Bool("redis", a.locker != nil),
		zap.Bool("nats", a.publisher != nil),
		zap.Bool("rate_limit", a.limiter != nil),
		zap.Int("scan_workers", cfg.Scan.Workers),
		zap.Duration("scan_deadline", cfg.Scan.Deadline),
	)
}
