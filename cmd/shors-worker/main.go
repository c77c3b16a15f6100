package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bgentry/que-go"
	_ "github.com/heroku/x/hmetrics/onload"
	log "github.com/sirupsen/logrus"
	"github.com/zirius/shors/config"
	"github.com/zirius/shors/modules/backend"
	"github.com/zirius/shors/modules/queue"
)

func init() {
	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("error loading config")
	}
	config.SetupLogging()

	if cfg.DatabaseURL == "" {
		log.Fatal("$DATABASE_URL must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := backend.Open(ctx, cfg)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("error connecting to store")
	}
	defer st.Close()

	pgxpool, qc, err := queue.Setup(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("error initializing que-go")
	}
	defer pgxpool.Close()

	wm := que.WorkMap{
		queue.CaptureAnalyticsJob: queue.CaptureAnalyticsHandler(st),
	}

	workers := que.NewWorkerPool(qc, wm, cfg.AnalyticsWorkers)

	// Catch signal so we can shutdown gracefully
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go workers.Start()
	log.WithField("workers", cfg.AnalyticsWorkers).Info("Worker pool started")

	// Wait for a signal
	sig := <-sigCh
	log.WithField("signal", sig).Info("Signal received. Shutting down.")

	workers.Shutdown()
}
