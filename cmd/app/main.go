// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifeboard/internal/config"
	"lifeboard/internal/domain/ports/adapter"
	"lifeboard/internal/domain/ports/repository"
	"lifeboard/internal/infra/adapters/identity"
	"lifeboard/internal/infra/api"
	pg "lifeboard/internal/infra/db/postgres"
	"lifeboard/internal/infra/logging"
	"lifeboard/internal/infra/metrics"
	red "lifeboard/internal/infra/redis"
	"lifeboard/internal/usecase"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (unredacted logs, console output)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}
	if cfg.License.Hottok == "" {
		logger.Error().Msg("HOTMART_HOTTOK is not set; the webhook will reject every call")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(cfg.Server.Version, cfg.Server.Commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go metrics.WatchDBPool(ctx, 15*time.Second, pg.PoolStats(pool))

	tm := pg.NewTxManager(pool)
	var licenses repository.LicenseRepository = pg.NewLicenseRepo(pool)

	// ---- Redis (optional) ----
	var limiter api.Limiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		licenses = pg.NewLicenseRepoCacheDecorator(licenses, redisClient, cfg.Redis.TTL, logger)
		limiter = red.NewRateLimiter(redisClient)
		logger.Info().Dur("ttl", cfg.Redis.TTL).Msg("redis cache and rate limiting enabled")
	}

	// ---- Identity provider ----
	var provisioner adapter.IdentityProvisioner = identity.NewNoopProvisioner()
	if cfg.Identity.URL != "" {
		sb, err := identity.NewSupabaseAdmin(cfg.Identity.URL, cfg.Identity.ServiceRoleKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("identity adapter")
		}
		provisioner = sb
	}
	logger.Info().Str("provider", provisioner.Name()).Msg("identity provisioning")

	// ---- Use cases ----
	paths := cfg.License.Paths
	normalizer := usecase.NewNormalizer(usecase.NormalizerConfig{
		EmailPaths:      paths.Email,
		StatusPaths:     paths.Status,
		EventPaths:      paths.Event,
		PurchaseIDPaths: paths.PurchaseID,
		OccurredAtPaths: paths.OccurredAt,
	})
	licenseUC := usecase.NewLicenseUseCase(licenses, tm, provisioner, normalizer, logger, cfg.Runtime.Dev)

	// ---- HTTP ----
	opts := api.Options{
		Hottok:        cfg.License.Hottok,
		LegacyHeaders: cfg.License.LegacyHeaders,
		BodyFields:    cfg.License.BodyFields,
		Limiter:       limiter,
		CheckLimit:    cfg.License.CheckLimit.Limit,
		CheckWindow:   cfg.License.CheckLimit.Window,
		TrustProxy:    cfg.Server.TrustProxy,
	}
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
		opts.MetricsHandler = promhttp.Handler()
	}
	if cfg.AdminEnabled() {
		opts.Auth = api.NewAuthManager(cfg.Admin.APIKey, cfg.Admin.JWTSecret, cfg.Admin.SecureCookie, cfg.Admin.CookieDomain, cfg.Admin.SessionTTL)
		logger.Info().Msg("admin API enabled")
	}

	srv := api.NewServer(licenseUC, opts, logger)
	handler := srv.Router(
		api.TraceID(),
		api.Recover(logger),
		api.RequestLog(logger),
		api.Timeout(cfg.Server.RequestTimeout),
	)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
