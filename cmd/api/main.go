package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fellowship/internal/attendance"
	"fellowship/internal/audit"
	"fellowship/internal/auth"
	"fellowship/internal/config"
	"fellowship/internal/events"
	"fellowship/internal/handler"
	"fellowship/internal/httpmiddleware"
	"fellowship/internal/logger"
	"fellowship/internal/members"
	"fellowship/internal/metrics"
	"fellowship/internal/queue"
	"fellowship/internal/reports"
	"fellowship/internal/store"
	"fellowship/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.App, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	var rdb *store.Redis
	if cfg.QueueBackend == "redis" || cfg.CacheBackend == "redis" {
		rdb, err = store.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(0)
	} else {
		q = queue.NewRedisQueue(rdb.Client, queue.DefaultKey, log)
	}

	auditRepo := audit.NewRepository(db)
	if cfg.QueueBackend == "memory" {
		// No worker process can see an in-memory queue, so consume here.
		msgs, err := q.Consume(ctx)
		if err != nil {
			return err
		}
		go func() {
			_ = audit.NewConsumer(auditRepo, log).Run(ctx, msgs)
		}()
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	window := events.NewWindow(cfg.Location)

	memberRepo := members.NewRepository(db)
	eventRepo := events.NewRepository(db)
	ledger := attendance.NewRepository(db)

	memberSvc := members.NewService(db, memberRepo,
		members.WithLogger(log),
		members.WithMetrics(m),
		members.WithAllocationAttempts(cfg.AllocationAttempts))
	eventSvc := events.NewService(db, eventRepo, window,
		events.WithLogger(log),
		events.WithAttendanceCounter(ledger))
	admission := attendance.NewService(db, ledger, memberSvc, eventSvc, window,
		attendance.WithLogger(log),
		attendance.WithMetrics(m),
		attendance.WithAuditor(audit.NewPublisher(q)))
	transportSvc := transport.NewService(transport.NewRepository(db), memberSvc, eventSvc, transport.WithLogger(log))

	var cache reports.DashboardCache = reports.NewMemo(cfg.DashboardTTL, nil)
	if cfg.CacheBackend == "redis" {
		cache = reports.NewRedisCache(rdb.Client, "", cfg.DashboardTTL)
	}
	engine := reports.NewEngine(eventRepo, ledger, memberSvc, window,
		reports.WithLogger(log),
		reports.WithMetrics(m),
		reports.WithDashboardCache(cache))

	issuer, err := auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, nil)
	if err != nil {
		return err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin, nil).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		dbHealthy := db.Healthy(c.Request.Context())
		body := gin.H{"status": "ok", "db": dbHealthy}
		healthy := dbHealthy
		if rdb != nil {
			redisHealthy := rdb.Healthy(c.Request.Context())
			body["redis"] = redisHealthy
			healthy = healthy && redisHealthy
		}
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	})

	handler.New(handler.Deps{
		Members:    memberSvc,
		Events:     eventSvc,
		Admission:  admission,
		Attendance: ledger,
		Transport:  transportSvc,
		Reports:    engine,
		Audit:      auditRepo,
		Logger:     log,
	}).Register(r, auth.Authenticate(issuer), auth.RequireRole(auth.RoleManager))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "timezone", cfg.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", "error", err)
	}
	log.Info("server exited")
	return nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        24 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
		cc.AllowCredentials = true
	}
	return cors.New(cc)
}
