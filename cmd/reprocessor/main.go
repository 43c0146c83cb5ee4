package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/trailwhisper/internal/app"
	"github.com/samirrijal/trailwhisper/internal/core/usecases"
	"github.com/samirrijal/trailwhisper/internal/pkg/config"
	"github.com/samirrijal/trailwhisper/internal/pkg/logging"
	"github.com/samirrijal/trailwhisper/internal/workflows"
)

func main() {
	start := flag.Bool("start", false, "start a reprocessing run and exit instead of running the worker")
	limit := flag.Int("limit", 0, "maximum activities to rebuild in the run (0: default)")
	batch := flag.Int("batch", 0, "rebuilds to run at once (0: default)")
	flag.Parse()

	cfg, err := config.Load("trailwhisper-reprocessor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	taskQueue := cfg.Temporal.TaskQueue
	if taskQueue == "" {
		taskQueue = workflows.TaskQueue
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if *start {
		startRun(c, taskQueue, workflows.ReprocessInput{Limit: *limit, BatchSize: *batch})
		return
	}

	ctx := context.Background()
	infra, err := app.Open(ctx, cfg, app.Options{Cache: true})
	if err != nil {
		log.Fatalf("infra: %v", err)
	}
	defer infra.Close()
	if infra.Archive == nil {
		log.Fatal("reprocessing needs the archive: set archive.enabled and archive.bucket")
	}

	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ReprocessWorkflow)
	w.RegisterActivity(&workflows.ReprocessActivities{
		Reprocess: usecases.NewReprocessService(infra.Decoder(), infra.Activities, infra.Archive, infra.Cache),
	})

	slog.Info("reprocessor worker started", "task_queue", taskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func startRun(c client.Client, taskQueue string, input workflows.ReprocessInput) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "reprocess-" + time.Now().UTC().Format("20060102T150405"),
		TaskQueue: taskQueue,
	}, workflows.ReprocessWorkflow, input)
	if err != nil {
		log.Fatalf("start workflow: %v", err)
	}
	slog.Info("reprocessing started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
}
