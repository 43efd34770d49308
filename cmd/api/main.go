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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusvote/internal/admin"
	"campusvote/internal/auth"
	"campusvote/internal/ballot"
	"campusvote/internal/cloudinary"
	"campusvote/internal/config"
	"campusvote/internal/election"
	"campusvote/internal/face"
	"campusvote/internal/faceclient"
	"campusvote/internal/handler"
	"campusvote/internal/httpmiddleware"
	"campusvote/internal/logger"
	"campusvote/internal/metrics"
	"campusvote/internal/queue"
	"campusvote/internal/scheduler"
	"campusvote/internal/store"
	"campusvote/internal/student"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api exited", "error", err)
		os.Exit(1)
	}
}

type backends struct {
	elections election.Store
	students  student.Store
	pending   student.PendingStore
	admins    admin.Store
	ballot    ballot.Store
	queue     queue.Queue
	checks    map[string]handler.HealthCheck
	close     func()
}

// openBackends picks the memory or Postgres/Redis stores.
func openBackends(ctx context.Context, cfg config.App) (*backends, error) {
	if cfg.StoreBackend == "memory" {
		return &backends{
			elections: election.NewMemoryStore(),
			students:  student.NewMemoryStore(),
			pending:   student.NewMemoryPending(time.Now),
			admins:    admin.NewMemoryStore(),
			ballot:    ballot.NewMemoryStore(),
			queue:     queue.NewInMemory(64),
			checks:    map[string]handler.HealthCheck{},
			close:     func() {},
		}, nil
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.CreateSchema(ctx, db.Client); err != nil {
		_ = db.Close()
		return nil, err
	}
	rdb := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue = queue.NewRedisQueue(rdb.Client, cfg.QueueKey)
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	}
	return &backends{
		elections: election.NewRepository(db.Client),
		students:  student.NewRepository(db.Client),
		pending:   student.NewRedisPending(rdb.Client),
		admins:    admin.NewRepository(db.Client),
		ballot:    ballot.NewRepository(db.Client),
		queue:     q,
		checks: map[string]handler.HealthCheck{
			"db":    db.Healthy,
			"redis": rdb.Healthy,
		},
		close: func() {
			_ = rdb.Close()
			_ = db.Close()
		},
	}, nil
}

func run(ctx context.Context, cfg config.App, log *slog.Logger) error {
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()
	log.Info("storage ready", "backend", cfg.StoreBackend)

	m := metrics.New(nil)
	issuer := auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey)

	studentOpts := []student.Option{
		student.WithLockout(face.LockoutPolicy{MaxAttempts: cfg.FaceMaxAttempts, Cooldown: cfg.FaceCooldown}),
		student.WithTTLs(cfg.AccessTTL, cfg.RegistrationTTL),
		student.WithMetrics(m),
		student.WithLogger(log.With("component", "student")),
	}
	if !cfg.FaceSkip {
		fc := faceclient.New(cfg.FaceServiceURL, false)
		studentOpts = append(studentOpts, student.WithDescriber(fc))
		b.checks["face"] = func(ctx context.Context) bool { return fc.Health(ctx) == nil }
	}

	ballotOpts := []ballot.Option{ballot.WithLogger(log.With("component", "ballot"))}
	if cfg.CloudinaryEnabled() {
		ballotOpts = append(ballotOpts, ballot.WithUploader(
			cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)))
		log.Info("cloudinary configured", "cloud", cfg.CloudinaryCloudName)
	} else {
		log.Info("cloudinary not configured, candidate photos disabled")
	}

	elections := election.NewService(b.elections,
		election.WithEvents(b.queue),
		election.WithMetrics(m),
		election.WithLogger(log.With("component", "election")))
	students := student.NewService(b.students, b.pending, issuer, studentOpts...)
	admins := admin.NewService(b.admins, issuer, cfg.AccessTTL, log.With("component", "admin"))
	ballots := ballot.NewService(b.ballot, elections, students, ballotOpts...)

	h := handler.New(handler.Deps{
		Elections: elections,
		Students:  students,
		Admins:    admins,
		Ballot:    ballots,
		Issuer:    issuer,
		Limiter:   httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin, m),
		Checks:    b.checks,
		Logger:    log.With("component", "http"),
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.ClientOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Routes(r)

	if cfg.SchedulerEmbedded {
		sched := scheduler.New(elections,
			scheduler.WithInterval(cfg.SchedulerInterval),
			scheduler.WithHorizon(cfg.SchedulerHorizon),
			scheduler.WithMetrics(m),
			scheduler.WithLogger(log.With("component", "scheduler")))
		go func() {
			if err := sched.Run(ctx); err != nil {
				log.Error("scheduler stopped", "error", err)
			}
		}()
		go func() {
			if err := sched.Follow(ctx, b.queue); err != nil {
				log.Error("election events stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.HTTPPort)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", "error", err)
	}
	log.Info("server exited")
	return nil
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
