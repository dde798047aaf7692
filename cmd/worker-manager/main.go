// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"borehole-workers/internal/borehole"
	"borehole-workers/internal/common/camunda"
	"borehole-workers/internal/common/config"
	commonhttp "borehole-workers/internal/common/http"
	"borehole-workers/internal/common/logger"
	"borehole-workers/internal/common/observability"
	"borehole-workers/internal/dispatch"
	"borehole-workers/internal/filter"
	"borehole-workers/internal/wfs"
	"borehole-workers/internal/workers/borehole/shared"

	dhb "borehole-workers/internal/workers/borehole/discover-hylogger-boreholes"
	dbc "borehole-workers/internal/workers/borehole/download-borehole-csv"
	fb "borehole-workers/internal/workers/borehole/filter-boreholes"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting borehole worker manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("profile", cfg.Borehole.Profile),
	)

	// --- Tracing & Metrics ---
	tp, err := observability.NewTracerProvider(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	}
	defer observability.ShutdownTracer(tp)

	obs, err := observability.New(cfg.Tracing.ServiceName)
	if err != nil {
		zapLog.Warn("otel metrics disabled", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Endpoint catalog ---
	src, closeCatalog, err := newCatalogSource(ctx, cfg, zapLog, log)
	if err != nil {
		zapLog.Fatal("catalog init failed", zap.Error(err))
	}
	defer closeCatalog()

	// --- Query pipeline ---
	profile, err := filter.NewProfile(filter.ProfileKind(cfg.Borehole.Profile))
	if err != nil {
		zapLog.Fatal("filter profile", zap.Error(err))
	}

	httpClient := commonhttp.NewClient(config.GetDuration(cfg.Dispatch.RequestTimeout))
	dispatcher := dispatch.New(
		wfs.NewMethodMaker(fmt.Sprintf("%s/%s", cfg.App.Name, cfg.App.Version)),
		httpClient,
		dispatch.WithMaxWorkers(cfg.Dispatch.MaxWorkers),
		dispatch.WithLogger(log),
		dispatch.WithObservability(obs),
	)

	service := borehole.NewService(src, dispatcher, profile,
		borehole.SettingsFromConfig(cfg.Borehole, cfg.Dispatch),
		borehole.WithLogger(log),
		borehole.WithObservability(obs),
	)

	// --- Zeebe client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Workers ---
	workers, err := startWorkers(cfg, zeebe, service, log)
	if err != nil {
		zapLog.Fatal("worker registration failed", zap.Error(err))
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	srv := newOpsServer(cfg.Metrics.Address, zeebe)
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		w.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}

type workerHandler interface {
	camunda.JobHandler
	Config() *shared.Config
}

func startWorkers(cfg *config.Config, zeebe *camunda.Client, service *borehole.Service, log logger.Logger) ([]*camunda.CamundaWorker, error) {
	filterHandler, err := fb.NewHandler(fb.HandlerOptions{AppConfig: cfg, Service: service, Logger: log})
	if err != nil {
		return nil, err
	}
	discoverHandler, err := dhb.NewHandler(dhb.HandlerOptions{AppConfig: cfg, Service: service, Logger: log})
	if err != nil {
		return nil, err
	}
	csvHandler, err := dbc.NewHandler(dbc.HandlerOptions{AppConfig: cfg, Service: service, Logger: log})
	if err != nil {
		return nil, err
	}

	handlers := map[string]workerHandler{
		fb.TaskType:  filterHandler,
		dhb.TaskType: discoverHandler,
		dbc.TaskType: csvHandler,
	}

	var workers []*camunda.CamundaWorker
	for taskType, h := range handlers {
		wcfg := h.Config()
		if !wcfg.Enabled {
			log.Info("worker disabled", map[string]interface{}{logger.FieldJobType: taskType})
			continue
		}
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), taskType, wcfg.MaxJobsActive, wcfg.Timeout, h, log))
	}
	return workers, nil
}

func newOpsServer(addr string, zeebe *camunda.Client) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := zeebe.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
