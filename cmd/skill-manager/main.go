// cmd/skill-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"powerbi-tom-skill/internal/common/camunda"
	"powerbi-tom-skill/internal/common/config"
	"powerbi-tom-skill/internal/common/database"
	"powerbi-tom-skill/internal/common/logger"
	"powerbi-tom-skill/internal/common/observability"
	"powerbi-tom-skill/internal/mcp"
	"powerbi-tom-skill/internal/memory"
	powerbitom "powerbi-tom-skill/internal/skills/powerbi-tom"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console", "stderr")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting skill manager...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()
	if cfg.Tracing.Enabled {
		if err := obs.EnableTracing(ctx, observability.TracingOptions{
			ServiceName: cfg.App.Name,
			Endpoint:    cfg.Tracing.OTLPEndpoint,
			Insecure:    cfg.Tracing.Insecure,
		}); err != nil {
			zapLog.Fatal("tracing setup failed", zap.Error(err))
		}
		zapLog.Info("OTLP tracing enabled", zap.String("endpoint", cfg.Tracing.OTLPEndpoint))
	}

	// --- Power BI connector ---
	connector, err := newConnector(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("power bi connector setup failed", zap.Error(err))
	}

	// --- Memory store ---
	store, backend, err := memory.Open(ctx, cfg.Memory)
	if err != nil {
		zapLog.Fatal("memory store setup failed", zap.Error(err), zap.String("backend", cfg.Memory.Backend))
	}
	defer func() {
		if err := backend.Close(); err != nil {
			zapLog.Error("Error closing memory store", zap.Error(err))
		}
	}()
	zapLog.Info("Memory store ready", zap.String("backend", backend.Kind()))

	// --- Change notifications ---
	notifier, err := newNotifier(ctx, cfg)
	if err != nil {
		zapLog.Fatal("notifier setup failed", zap.Error(err))
	}

	skillCfg := powerbitom.ConfigFromApp(cfg)
	deps := powerbitom.ServiceDependencies{
		Connector:     connector,
		Memory:        store,
		Seed:          powerbitom.NewSeedState(),
		Logger:        log,
		Observability: obs,
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	svc := powerbitom.NewService(deps, skillCfg)

	if !skillCfg.SeedOnFirstUse {
		if err := svc.Seed(ctx); err != nil {
			zapLog.Warn("Seeding settings memory failed", zap.Error(err))
		}
	}

	functions := powerbitom.EnabledFunctions(cfg)
	zapLog.Info("Skill functions enabled", zap.Int("count", len(functions)))

	g, gctx := errgroup.WithContext(ctx)

	// --- Zeebe job workers ---
	var zeebe *camunda.Client
	var workers []*camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.NewClient(cfg.Camunda)
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		for _, fn := range functions {
			h, err := powerbitom.NewHandler(powerbitom.HandlerOptions{
				AppConfig: cfg,
				Service:   svc,
				Function:  fn,
				Logger:    log,
			})
			if err != nil {
				zapLog.Fatal("handler setup failed", zap.String("function", fn.Name), zap.Error(err))
			}
			w := camunda.NewWorker(zeebe.GetClient(), camunda.WorkerOptions{
				TaskType:      h.TaskType(),
				MaxJobsActive: h.Config().MaxJobsActive,
				Timeout:       h.Config().Timeout,
			}, h, log)
			w.Start()
			workers = append(workers, w)
		}
		zapLog.Info("Zeebe workers registered", zap.Int("count", len(workers)))
	}

	// --- MCP surface ---
	if cfg.MCP.Enabled {
		srv := mcp.NewServer(mcp.ServerConfig{
			Name:      cfg.App.Name,
			Version:   cfg.App.Version,
			Transport: cfg.MCP.Transport,
			Addr:      cfg.MCP.Addr,
			APIKey:    cfg.MCP.APIKey,
		}, svc, functions, log)

		g.Go(func() error {
			err := srv.Run(gctx)
			if cfg.MCP.Transport == mcp.TransportStdio {
				// the host closed stdin
				stop()
			}
			return err
		})
	}

	// --- Health & Metrics Server ---
	health := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           healthMux(zeebe, backend),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.Metrics.Addr))
		if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return health.Shutdown(shutdownCtx)
	})

	// --- Graceful Shutdown ---
	<-gctx.Done()
	zapLog.Info("Shutdown signal received, stopping surfaces...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, w := range workers {
		w.Stop(stopCtx)
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	if err := g.Wait(); err != nil {
		zapLog.Error("Surface stopped with error", zap.Error(err))
	}
	zapLog.Info("Skill manager stopped")
}

func healthMux(zeebe *camunda.Client, backend database.Backend) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if zeebe != nil {
			if err := zeebe.HealthCheck(r.Context()); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, "zeebe unavailable")
				return
			}
		}
		if err := backend.Ping(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, backend.Kind()+" unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
