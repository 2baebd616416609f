package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hls-dvr/internal/dvr"
	"hls-dvr/internal/platform/config"
	"hls-dvr/internal/platform/logger"
	"hls-dvr/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gofrs/flock"
)

const (
	shutdownTimeout = 10 * time.Second
	ffmpegCheckWait = 30 * time.Second
)

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	pendingDir := config.GetEnv("PENDING_DIR", "pending_recordings")
	finishedDir := config.GetEnv("FINISHED_DIR", "finished_recordings")
	stateFile := config.GetEnv("STATE_FILE", "recordings_state.json")
	ffmpegPath := config.GetEnv("FFMPEG_PATH", "ffmpeg")
	restartDelay := config.GetEnvDuration("RESTART_DELAY", dvr.DefaultRestartDelay)
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	// Only one daemon may own the recording trees and the state file.
	lock := flock.New(stateFile + ".lock")
	locked, err := lock.TryLock()
	if err != nil || !locked {
		log.Error("could not acquire instance lock, is another daemon running?",
			"lock_file", stateFile+".lock")
		os.Exit(1)
	}
	defer lock.Unlock()

	checkCtx, cancelCheck := context.WithTimeout(context.Background(), ffmpegCheckWait)
	if err := dvr.CheckFFmpeg(checkCtx, ffmpegPath); err != nil {
		cancelCheck()
		log.Error("ffmpeg capability check failed", "error", err)
		os.Exit(1)
	}
	cancelCheck()

	if err := os.MkdirAll(pendingDir, 0o755); err != nil {
		log.Error("creating pending directory failed", "dir", pendingDir, "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(finishedDir, 0o755); err != nil {
		log.Error("creating finished directory failed", "dir", finishedDir, "error", err)
		os.Exit(1)
	}

	met := metrics.New()
	registry := dvr.NewRegistry(dvr.NewFileStore(stateFile), log)
	supervisor := dvr.NewSupervisor(registry, log, met, ffmpegPath, pendingDir, restartDelay)
	svc := dvr.NewService(registry, supervisor, log, met, pendingDir, finishedDir)
	h := dvr.NewHandler(svc, log)

	// Resume jobs persisted by a previous run before serving requests.
	persisted, err := registry.LoadPersisted()
	if err != nil {
		log.Error("loading persisted recording state failed", "state_file", stateFile, "error", err)
		os.Exit(1)
	}
	for _, desc := range persisted {
		if err := svc.Resume(desc); err != nil {
			log.Error("resuming recording failed", "name", desc.Name, "error", err)
			continue
		}
		log.Info("resumed recording", "name", desc.Name, "input_url", desc.InputURL)
	}

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Use(cors.AllowAll().Handler)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveRecordings(svc.ActiveCount()) }).ServeHTTP(w, r)
	})
	r.Route("/api", h.Routes)
	r.Handle("/live/*", http.StripPrefix("/live/", http.FileServer(http.Dir(pendingDir))))
	r.Handle("/vod/*", http.StripPrefix("/vod/", http.FileServer(http.Dir(finishedDir))))

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("dvr server starting",
		"port", port,
		"pending_dir", pendingDir,
		"finished_dir", finishedDir,
		"resumed_jobs", len(persisted),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	// Kill capture processes without deregistering their jobs; the
	// persisted snapshot resumes them on the next run.
	supervisor.Shutdown()

	log.Info("server stopped")
}
