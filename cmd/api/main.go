package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/trailwhisper/internal/adapters/http"
	"github.com/samirrijal/trailwhisper/internal/app"
	"github.com/samirrijal/trailwhisper/internal/core/usecases"
	"github.com/samirrijal/trailwhisper/internal/pkg/config"
	"github.com/samirrijal/trailwhisper/internal/pkg/logging"
	"github.com/samirrijal/trailwhisper/internal/pkg/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load("trailwhisper-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	infra, err := app.Open(ctx, cfg, app.Options{Cache: true, Publisher: true, RawNATS: true})
	if err != nil {
		log.Fatalf("infra: %v", err)
	}
	defer infra.Close()
	go infra.ReportPoolMetrics(ctx, 15*time.Second)

	// Use cases
	uploadSvc := usecases.NewUploadService(infra.Decoder(), infra.Activities, infra.Archive, infra.Publisher, infra.Cache, cfg.Upload.Workers)
	activitySvc := usecases.NewActivityService(infra.Activities, infra.Archive, infra.Publisher, infra.Cache)
	visitSvc := usecases.NewVisitService(infra.Activities, infra.Cache, cfg.Visits.DefaultRadius)

	limits := http.UploadLimits{
		MaxFiles:     cfg.Upload.MaxFiles,
		MaxFileBytes: int64(cfg.Upload.MaxFileSizeMB) << 20,
		Timeout:      time.Duration(cfg.Upload.TimeoutSeconds) * time.Second,
	}

	deps := &http.Dependencies{
		Activities: activitySvc,
		Uploads:    uploadSvc,
		Visits:     visitSvc,
		Limits:     limits,
		NATS:       infra.NATS,
		DB:         infra.DB,
		Version:    version,
	}
	if infra.CachePing != nil {
		deps.Cache = infra.CachePing
	}

	// Fiber. The body limit admits a full batch plus multipart overhead;
	// oversized single files are rejected per file by the upload handler.
	server := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    int(limits.MaxFileBytes)*limits.MaxFiles + 1<<20,
		AppName:      "Trailwhisper API",
	})
	server.Use(recover.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + http.UserHeader,
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(server, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "driver", cfg.Database.Driver, "version", version)
		if err := server.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Uploads may take up to the upload timeout to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), limits.Timeout+5*time.Second)
	defer shutdownCancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
