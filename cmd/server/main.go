package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/otcheredev/clinic-core/internal/auth"
	"github.com/otcheredev/clinic-core/internal/authz"
	"github.com/otcheredev/clinic-core/internal/cache"
	"github.com/otcheredev/clinic-core/internal/config"
	"github.com/otcheredev/clinic-core/internal/database"
	"github.com/otcheredev/clinic-core/internal/handlers"
	"github.com/otcheredev/clinic-core/internal/metrics"
	"github.com/otcheredev/clinic-core/internal/middleware"
	"github.com/otcheredev/clinic-core/internal/repository"
	"github.com/otcheredev/clinic-core/internal/scheduling"
	"github.com/otcheredev/clinic-core/internal/services"
	"github.com/otcheredev/clinic-core/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting clinic core")

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(database.Config{
		DSN:             cfg.Database.DSN(),
		LogLevel:        cfg.Database.LogLevel,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Ping(ctx, db); err != nil {
		return err
	}
	if err := database.AutoMigrate(ctx, db); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	// Initialize cache
	extraChecks := map[string]handlers.Pinger{}
	var permCache cache.Cache
	if cfg.Cache.Enabled && cfg.Authz.CacheEnabled {
		if cfg.Cache.Type == "redis" {
			rc, err := cache.NewRedisCache(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				return err
			}
			extraChecks["cache"] = handlers.PingFunc(rc.Ping)
			permCache = rc
			log.Info().Str("addr", cfg.Redis.Addr()).Msg("Redis permission cache initialized")
		} else {
			permCache = cache.NewMemoryCache(cfg.Cache.TTL)
			log.Warn().Msg("Memory permission cache initialized; invalidations stay in this process")
		}
		defer permCache.Close()
	} else {
		log.Info().Msg("Permission cache disabled")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		if m, err = metrics.New(prometheus.DefaultRegisterer); err != nil {
			return err
		}
	}

	// Initialize repositories
	appointmentRepo := repository.NewAppointmentRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Initialize services
	resolver := authz.NewResolver(roleRepo, permCache, cfg.Cache.TTL, m)
	gate := authz.NewGate(resolver, m)
	appointmentService := services.NewAppointmentService(appointmentRepo, scheduling.NewDetector(appointmentRepo), auditRepo, m)
	roleService := services.NewRoleService(roleRepo, userRepo, resolver, auditRepo)

	routerCfg := handlers.RouterConfig{
		Verifier:   auth.NewVerifier(auth.NewJWTDecoder(cfg.Auth.JWTSecret, cfg.Auth.Issuer)),
		Authorizer: middleware.NewAuthorizer(gate, auditRepo),
		Metrics:    m,
		CORS: cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   cfg.CORS.AllowedMethods,
			AllowedHeaders:   cfg.CORS.AllowedHeaders,
			ExposedHeaders:   []string{"Content-Length", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		},
		Health:       handlers.NewHealthHandler(sqlDB, extraChecks),
		Appointments: handlers.NewAppointmentHandler(appointmentService),
		Roles:        handlers.NewRoleHandler(roleService),
		Me:           handlers.NewMeHandler(resolver),
		Audit:        handlers.NewAuditHandler(auditRepo),
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsHandler = promhttp.Handler()
	}

	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handlers.NewRouter(routerCfg),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
