// Package main runs the progression engine API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/saayr-labs/progression-layer/internal/app"
	"github.com/saayr-labs/progression-layer/internal/app/httpapi"
	"github.com/saayr-labs/progression-layer/internal/app/metrics"
	authsvc "github.com/saayr-labs/progression-layer/internal/app/services/auth"
	"github.com/saayr-labs/progression-layer/internal/app/storage/postgres"
	"github.com/saayr-labs/progression-layer/internal/config"
	"github.com/saayr-labs/progression-layer/internal/middleware"
	"github.com/saayr-labs/progression-layer/internal/platform/migrations"
	"github.com/saayr-labs/progression-layer/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("server exited")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores := app.Stores{}
	if cfg.Database.DSN != "" {
		db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		if cfg.Database.Migrate {
			if err := migrations.Apply(ctx, db); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			log.Info("database schema up to date")
		}

		pg := postgres.New(db)
		stores = app.Stores{Accounts: pg, Ledger: pg, Challenges: pg, Rewards: pg}
		log.Info("using postgres storage")
	} else {
		log.Warn("no database DSN configured; using in-memory storage")
	}

	opts := app.Options{
		Auth: authsvc.Config{
			JWTSecret: []byte(cfg.Auth.JWTSecret),
			TokenTTL:  cfg.Auth.TokenTTL(),
			OTPTTL:    cfg.Auth.OTPTTL(),
		},
	}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		opts.OTPStore = authsvc.NewRedisOTPStore(client)
		log.Info("using redis OTP store")
	} else {
		log.Warn("no redis address configured; OTP codes are process-local")
	}

	application, err := app.New(stores, opts, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Stop(stopCtx); err != nil {
			log.WithError(err).Warn("stop application")
		}
	}()

	api := httpapi.NewHandler(httpapi.Deps{
		Accounts:   application.Accounts,
		Auth:       application.Auth,
		Ledger:     application.Ledger,
		Challenges: application.Challenges,
		Rewards:    application.Rewards,
		Hub:        application.Events,
		Log:        log,
	})

	auth := middleware.NewAuthMiddleware([]byte(cfg.Auth.JWTSecret), log, []string{
		"/healthz",
		"/metrics",
		"/v1/auth/otp/request",
		"/v1/auth/otp/verify",
		"/v1/auth/pin/login",
		"/v1/accounts",
		"/v1/webhooks/partner",
	})
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	cors := middleware.NewCORSMiddleware([]string{"*"})

	handler := cors.Handler(metrics.InstrumentHandler(auth.Handler(limiter.Handler(api))))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("progression api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
