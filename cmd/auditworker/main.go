// Command auditworker tails the audit topic, logging denied access decisions
// and exporting per-action counters. It runs beside the API server so
// security review does not depend on database access.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"portalx/internal/audit/consumer"
	"portalx/internal/platform/config"
	"portalx/internal/platform/httpserver"
	"portalx/internal/platform/logger"
)

const consumerGroup = "portalx-audit-worker"

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.IsProduction())

	if len(cfg.KafkaBrokers) == 0 {
		log.Error("KAFKA_BROKERS is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := consumer.New(cfg.KafkaBrokers, cfg.KafkaAuditTopic, consumerGroup,
		consumer.NewSecurityHandler(log), log)
	if err != nil {
		log.Error("failed to start consumer", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := httpserver.New(cfg.Addr, mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("consuming audit events", "topic", cfg.KafkaAuditTopic, "group", consumerGroup)
		return c.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Close()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}
