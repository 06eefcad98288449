package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mux-recorder/internal/engine/gstengine"
	"mux-recorder/internal/engine/memengine"
	"mux-recorder/internal/history"
	"mux-recorder/internal/mux"
	"mux-recorder/internal/pipeline"
	"mux-recorder/internal/platform/config"
	"mux-recorder/internal/platform/logger"
	"mux-recorder/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	engine := newEngine(cfg.Engine, log)
	met := metrics.New()
	ctrl := mux.New(mux.RendererConfig{
		OutputPrefix: cfg.OutputPrefix,
		Audio:        cfg.Audio,
		Video:        cfg.Video,
		DrainTimeout: cfg.DrainTimeout,
	}, engine, log, met,
		mux.WithHistory(history.NewInMemoryRepositoryWithStore(history.NewInMemoryStore(), cfg.HistoryLimit)))
	h := mux.NewHandler(ctrl, log)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetRecordingActive(ctrl.Recording()) }).ServeHTTP(w, r)
	})
	h.Register(r)

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"engine", cfg.Engine,
		"audio", cfg.Audio,
		"video", cfg.Video,
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	ctrl.Destroy()
	log.Info("server stopped")
}

func newEngine(name string, log *slog.Logger) pipeline.Engine {
	switch name {
	case "memory":
		log.Warn("using in-memory engine, no files will be written")
		return memengine.New(memengine.WithoutRetention())
	case "gstreamer":
	default:
		log.Warn("unknown engine, using gstreamer", "engine", name)
	}
	return gstengine.New(log)
}
