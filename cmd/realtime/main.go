package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	natsadapter "github.com/samirrijal/trailwhisper/internal/adapters/nats"
	"github.com/samirrijal/trailwhisper/internal/adapters/valkey"
	"github.com/samirrijal/trailwhisper/internal/core/ports"
	"github.com/samirrijal/trailwhisper/internal/core/usecases"
	"github.com/samirrijal/trailwhisper/internal/pkg/config"
	"github.com/samirrijal/trailwhisper/internal/pkg/logging"
	"github.com/samirrijal/trailwhisper/internal/pkg/metrics"
)

// realtime consumes activity events from JetStream and keeps derived state
// (cached visit lookups) in step with them.
func main() {
	cfg, err := config.Load("trailwhisper-realtime")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, events will only be logged", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	svc := usecases.NewRealtimeService(cache)
	if err := sub.SubscribeActivityUploaded(ctx, svc.HandleUploaded); err != nil {
		log.Fatalf("subscribe uploaded: %v", err)
	}
	if err := sub.SubscribeActivityDeleted(ctx, svc.HandleDeleted); err != nil {
		log.Fatalf("subscribe deleted: %v", err)
	}

	// Metrics endpoint
	metricsApp := fiber.New(fiber.Config{DisableStartupMessage: true})
	metricsApp.Get("/metrics", metrics.Handler())
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port+1)
		if err := metricsApp.Listen(addr); err != nil {
			slog.Error("metrics listener", "error", err)
		}
	}()

	slog.Info("realtime consumer started", "stream", natsadapter.StreamName)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("realtime consumer stopping")
	_ = metricsApp.Shutdown()
}
