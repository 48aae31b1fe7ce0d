package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/classifier"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/geo"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/scan"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/config"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/database"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/eventbus"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/health"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/ratelimit"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/redis"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/tracing"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func sentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true, Timeout: 2 * time.Second})
}

func main() {
	cfg, err := config.Load("finsight-api")
	if err != nil {
		panic(err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Server.ServiceName, cfg.Server.Environment, cfg.Tracing)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Server.Environment,
			Release:     cfg.Server.ServiceName + "@" + serviceVersion,
		}); err != nil {
			logger.Fatal("failed to initialize sentry", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open stores", zap.Error(err))
	}
	if st.pool != nil {
		defer database.Close(st.pool)
	}

	a := &app{
		cfg:        cfg,
		stores:     st,
		classifier: classifier.NewClient(cfg.Classifier),
		locations:  geo.NewMemoryLocationStore(cfg.Geo.LocationTTL),
		checks:     readinessChecks(st),
	}

	if cfg.Redis.Enabled {
		rc, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rc.Close()
		a.locations = geo.NewRedisLocationStore(rc, cfg.Geo.LocationTTL)
		a.locker = scan.NewRedisLocker(rc, cfg.Scan.LockTTL)
		a.checks["redis"] = health.RedisChecker(rc.Client)
		if cfg.RateLimit.Enabled {
			a.limiter = ratelimit.NewLimiter(rc.Client, cfg.RateLimit)
		}
	}

	var bus *eventbus.Bus
	if cfg.NATS.Enabled {
		bus, err = eventbus.Connect(eventbus.Config{
			URL:     cfg.NATS.URL,
			Stream:  cfg.NATS.Stream,
			Name:    cfg.Server.ServiceName,
			AckWait: cfg.Scan.Deadline + time.Minute,
		})
		if err != nil {
			logger.Fatal("failed to connect to nats", zap.Error(err))
		}
		defer bus.Close()
		a.publisher = bus
		a.checks["nats"] = health.NATSChecker(bus.Conn())
	}

	router := a.router()

	if bus != nil {
		if err := scan.NewEventHandler(a.orchestrator).RegisterSubscriptions(ctx, bus); err != nil {
			logger.Fatal("failed to subscribe scan workers", zap.Error(err))
		}
	}

	logStartup(cfg, a)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", zap.Error(err))
	}
}
