// Command server runs the portalx API: request admission (rate limiting and
// access codes), identity resolution and the channel directory behind it.
// main only wires dependencies; behavior lives in the internal packages.
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

	"golang.org/x/sync/errgroup"

	accesscodehandler "portalx/internal/accesscode/handler"
	accesscodemiddleware "portalx/internal/accesscode/middleware"
	accesscodeservice "portalx/internal/accesscode/service"
	accesscodestore "portalx/internal/accesscode/store"
	admincache "portalx/internal/admin/cache"
	adminhandler "portalx/internal/admin/handler"
	adminmetrics "portalx/internal/admin/metrics"
	adminmiddleware "portalx/internal/admin/middleware"
	adminservice "portalx/internal/admin/service"
	"portalx/internal/audit/publisher"
	auditservice "portalx/internal/audit/service"
	auditstore "portalx/internal/audit/store"
	authcache "portalx/internal/auth/cache"
	authhandler "portalx/internal/auth/handler"
	authmetrics "portalx/internal/auth/metrics"
	authmiddleware "portalx/internal/auth/middleware"
	authservice "portalx/internal/auth/service"
	authstore "portalx/internal/auth/store"
	"portalx/internal/auth/token"
	channelshandler "portalx/internal/channels/handler"
	channelsservice "portalx/internal/channels/service"
	channelstore "portalx/internal/channels/store"
	"portalx/internal/platform/config"
	"portalx/internal/platform/httpserver"
	"portalx/internal/platform/logger"
	"portalx/internal/platform/postgres"
	"portalx/internal/platform/redis"
	ratelimitmetrics "portalx/internal/ratelimit/metrics"
	ratelimitmiddleware "portalx/internal/ratelimit/middleware"
	ratelimitservice "portalx/internal/ratelimit/service"
	"portalx/internal/ratelimit/store/window"
	httptransport "portalx/internal/transport/http"
	"portalx/pkg/platform/httputil"
)

const sweepInterval = 5 * time.Minute

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.IsProduction())
	httputil.IncludeDetails(!cfg.IsProduction())

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.New(ctx, cfg.DatabaseURL, cfg.DBTimeout)
	if err != nil {
		return err
	}
	if pg != nil {
		defer pg.Close()
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var (
		userStore    authstore.Store
		channelStore channelstore.Store
		accessStore  accesscodestore.Store
		auditStore   auditstore.Store
	)
	if pg != nil {
		userStore = authstore.NewPostgresStore(pg.Pool)
		channelStore = channelstore.NewPostgresStore(pg.Pool)
		accessStore = accesscodestore.NewPostgresStore(pg.Pool)
		auditStore = auditstore.NewPostgresStore(pg.Audit)
	} else {
		userStore = authstore.NewInMemoryStore()
		channelStore = channelstore.NewInMemoryStore()
		accessStore = accesscodestore.NewInMemoryStore()
		auditStore = auditstore.NewInMemoryStore()
	}

	var windowStore ratelimitservice.WindowStore
	var memWindow *window.InMemoryStore
	if rdb != nil {
		windowStore = window.NewRedisStore(rdb.Client)
		log.Info("rate limit windows backed by redis")
	} else {
		memWindow = window.NewInMemoryStore()
		windowStore = memWindow
	}

	tokens := token.New(cfg.JWTSecret, cfg.JWTExpiry)
	tokenCache := authcache.New(
		authcache.WithCapacity(cfg.TokenCacheSize),
		authcache.WithTTL(cfg.TokenCacheTTL),
	)
	grants := admincache.New(admincache.WithTTL(cfg.AdminGrantTTL))

	auditOpts := []auditservice.Option{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err := publisher.NewKafka(cfg.KafkaBrokers, cfg.KafkaAuditTopic, log)
		if err != nil {
			return err
		}
		defer kafkaPub.Close()
		auditOpts = append(auditOpts, auditservice.WithPublisher(kafkaPub))
		log.Info("audit events published to kafka", "topic", cfg.KafkaAuditTopic)
	}
	auditSvc := auditservice.New(auditStore, log, auditOpts...)

	accessSvc := accesscodeservice.New(accessStore, log,
		accesscodeservice.WithUserCode(cfg.UserAccessCode),
		accesscodeservice.WithAdminCode(cfg.AdminAccessCode),
		accesscodeservice.WithSessionTTL(cfg.AccessSessionTTL),
		accesscodeservice.WithAuditor(auditSvc),
	)
	authSvc := authservice.New(userStore, tokens, tokenCache, log,
		authservice.WithBcryptCost(cfg.BcryptCost),
		authservice.WithAccessCode(cfg.UserAccessCode),
	)
	channelSvc := channelsservice.New(channelStore, log)
	limiter := ratelimitservice.New(windowStore, log,
		ratelimitservice.WithMetrics(ratelimitmetrics.New()))
	adminSvc := adminservice.New(userStore, tokenCache, grants, log,
		adminservice.WithStatsProvider(channelSvc))

	authn := authmiddleware.New(tokens, userStore, tokenCache, log,
		authmiddleware.WithMetrics(authmetrics.New()))
	accessGate := accesscodemiddleware.New(accessSvc, log)
	adminGate := adminmiddleware.New(userStore, grants, auditSvc, limiter, log,
		adminmiddleware.WithMetrics(adminmetrics.New()))

	router := httptransport.NewRouter(httptransport.Deps{
		Auth: authhandler.New(authSvc, log,
			authhandler.WithStatsProvider(httptransport.ProfileStats{Channels: channelSvc})),
		AccessCode: accesscodehandler.New(accessSvc, log),
		Channels:   channelshandler.New(channelSvc, log),
		Admin: adminhandler.New(adminSvc, adminGate, auditSvc, log,
			adminhandler.WithChannelModerator(channelSvc)),
		Authenticator: authn,
		AccessGate:    accessGate,
		AdminGate:     adminGate,
		RateLimits: ratelimitmiddleware.New(limiter, log,
			ratelimitmiddleware.WithDisabled(cfg.RateLimitDisabled)),
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		tokenCache.Run(gctx, sweepInterval)
		return nil
	})
	if memWindow != nil {
		g.Go(func() error {
			memWindow.Run(gctx, sweepInterval)
			return nil
		})
	}

	return g.Wait()
}
