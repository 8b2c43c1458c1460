package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/roadnet/internal/config"
	"github.com/efebarandurmaz/roadnet/internal/observability"
	"github.com/efebarandurmaz/roadnet/internal/pipeline"
	"github.com/efebarandurmaz/roadnet/internal/secrets"
	"github.com/efebarandurmaz/roadnet/internal/server"
	temporalmod "github.com/efebarandurmaz/roadnet/internal/temporal"
)

func main() {
	configPath := "configs/roadnet.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		slog.Error("Failed to configure logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx := context.Background()
	tcfg := observability.DefaultTracingConfig()
	tcfg.ServiceName = "roadnet-worker"
	tcfg.OTLPEndpoint = cfg.Tracing.Endpoint
	tcfg.SampleRate = cfg.Tracing.SampleRate
	tracing, err := observability.InitTracing(ctx, tcfg)
	if err != nil {
		slog.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	if cfg.Graph.Backend == pipeline.BackendMemory {
		slog.Warn("Worker uses the memory backend; imports are only visible to this process")
	}
	store, err := pipeline.OpenStore(ctx, cfg.Graph, secrets.NewResolver(config.EnvPrefix+"_"))
	if err != nil {
		slog.Error("Failed to open graph store", "backend", cfg.Graph.Backend, "error", err)
		os.Exit(1)
	}

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Pipeline: pipeline.New(store, cfg.Graph.Backend, observability.DefaultMetrics()),
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		slog.Error("Failed to connect to Temporal", "host", cfg.Temporal.Host, "error", err)
		os.Exit(1)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		slog.Error("Failed to start worker", "error", err)
		os.Exit(1)
	}
	slog.Info("Worker started", "task_queue", cfg.Temporal.TaskQueue, "backend", cfg.Graph.Backend)

	shutdown := server.NewShutdownHandler(&server.ShutdownConfig{Timeout: time.Minute})

	if addr := cfg.Temporal.HealthAddr; addr != "" {
		health := server.NewHealthServer("worker")
		health.RegisterCheck("temporal", server.TemporalHealthChecker(func(ctx context.Context) error {
			_, err := c.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
			return err
		}))
		health.RegisterCheck("graph", server.GraphStoreHealthChecker(cfg.Graph.Backend, store.Ping))
		health.SetReady(true)

		srv := &http.Server{Addr: addr, Handler: health.Handler(), ReadTimeout: 5 * time.Second}
		go func() {
			slog.Info("Serving worker health", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Health server failed", "error", err)
			}
		}()
		shutdown.RegisterHook("health-probe", 0, func(context.Context) error {
			health.SetLive(false)
			health.SetReady(false)
			return nil
		})
		shutdown.Register(server.HTTPServerShutdownHook("health", srv.Shutdown))
	}

	shutdown.Register(server.TemporalWorkerShutdownHook(w.Stop))
	shutdown.Register(server.TracingShutdownHook(tracing.Shutdown))
	shutdown.Register(server.GraphStoreShutdownHook(store.Close))
	shutdown.Start()
	shutdown.Wait()

	slog.Info("Worker stopped")
}
