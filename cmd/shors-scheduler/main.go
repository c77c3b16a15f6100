package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/heroku/x/hmetrics/onload"
	log "github.com/sirupsen/logrus"
	"github.com/zirius/shors/config"
	"github.com/zirius/shors/modules/backend"
	"github.com/zirius/shors/modules/codec"
	"github.com/zirius/shors/modules/metrics"
	"github.com/zirius/shors/modules/shortener"
	"github.com/zirius/shors/store"
)

func init() {
	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)
}

func audit(st store.Store, c *codec.Codec) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	report, err := shortener.Audit(ctx, st, c)
	if err != nil {
		log.WithError(err).Error("error auditing counter")
		return
	}

	metrics.CounterValue.Set(float64(report.Counter))
	metrics.URLRecordsTotal.Set(float64(report.Records))

	entry := log.WithFields(log.Fields{
		"counter":       report.Counter,
		"records":       report.Records,
		"next_id":       report.NextID,
		"next_id_taken": report.NextIDTaken,
	})
	switch {
	case report.NextIDTaken:
		entry.Error("Next id already issued, mirror allocation will fail")
	case report.Diverged():
		entry.Warn("Counter and records disagree")
	default:
		entry.Info("Counter audit OK")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("error loading config")
	}
	config.SetupLogging()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := backend.Open(ctx, cfg)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("error connecting to store")
	}
	defer st.Close()

	c, err := codec.New(codec.Options{Salt: cfg.CodecSalt})
	if err != nil {
		log.WithError(err).Fatal("error initializing codec")
	}

	// Channel for catching shutdown signal
	term := make(chan os.Signal, 1)
	signal.Notify(term, syscall.SIGINT, syscall.SIGTERM)

	channel := make(chan bool, 1)

	go func() {
		channel <- true
	}()

loop:
	for {
		select {
		case sig := <-term:
			log.WithFields(log.Fields{
				"signal": sig,
			}).Info("Caught shutdown signal")
			break loop
		case <-channel:
			audit(st, c)
			go func() {
				time.Sleep(24 * time.Hour) // Run every 24 hours
				channel <- true
			}()
		}
	}
}
