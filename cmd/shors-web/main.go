package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	_ "github.com/heroku/x/hmetrics/onload"
	newrelic "github.com/newrelic/go-agent"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"github.com/zirius/shors/config"
	"github.com/zirius/shors/middleware"
	"github.com/zirius/shors/modules/analytics"
	"github.com/zirius/shors/modules/backend"
	"github.com/zirius/shors/modules/codec"
	"github.com/zirius/shors/modules/queue"
	"github.com/zirius/shors/modules/shortener"
	"github.com/zirius/shors/modules/url"
	"github.com/zirius/shors/pg"
)

const shutdownTimeout = 15 * time.Second

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

	if cfg.Port == "" {
		log.Fatal("$PORT must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := backend.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("error connecting to store")
	}
	defer st.Close()

	c, err := codec.New(codec.Options{Salt: cfg.CodecSalt})
	if err != nil {
		log.WithError(err).Fatal("error initializing codec")
	}

	var screeners shortener.Screeners
	if pgStore, ok := st.(*pg.Store); ok {
		// blocked hosts live in the domains table
		screeners = append(screeners, pgStore)
	}
	if cfg.SafeBrowsingAPIKey != "" {
		sb, err := shortener.NewSafeBrowsingScreener(cfg.SafeBrowsingAPIKey)
		if err != nil {
			log.WithError(err).Fatal("error initializing safe browsing")
		}
		defer sb.Close()
		screeners = append(screeners, sb)
	}

	opts := shortener.Options{
		LinkPrefix: cfg.LinkPrefix,
		Allocator:  shortener.Allocator(cfg.Allocator),
	}
	if len(screeners) > 0 {
		opts.Screener = screeners
	}

	svc, err := shortener.New(ctx, st, c, opts)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("error bootstrapping counter")
	}

	// Analytics
	var writer analytics.EventWriter = st
	if cfg.AnalyticsMode == config.AnalyticsQue {
		pgxpool, qc, err := queue.Setup(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("error initializing que-go")
		}
		defer pgxpool.Close()
		writer = queue.NewWriter(qc)
	}

	analyticsOpts := analytics.Options{
		Workers:   cfg.AnalyticsWorkers,
		QueueSize: cfg.AnalyticsQueueSize,
	}
	if cfg.GeoIPDB != "" {
		geo, err := analytics.OpenGeoIP(cfg.GeoIPDB)
		if err != nil {
			log.WithError(err).Fatal("error initializing geoip2")
		}
		defer geo.Close()
		analyticsOpts.Geo = geo
	}

	pipeline := analytics.New(writer, st, analyticsOpts)
	pipeline.Start()

	// Rate Limiter
	rate := limiter.Rate{
		Period: time.Second,
		Limit:  cfg.RateLimit,
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(mgin.NewMiddleware(limiter.New(memory.NewStore(), rate)))
	router.ForwardedByClientIP = true
	router.Use(cors.New(cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Length", "Content-Type"},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	if cfg.NewRelicLicenseKey != "" {
		nr, err := middleware.NewRelic(newrelic.NewConfig(cfg.AppName, cfg.NewRelicLicenseKey))
		if err != nil {
			log.WithError(err).Fatal("error initializing new relic")
		}
		router.Use(nr)
	}

	router.Use(middleware.Store(st))
	router.Use(middleware.Shortener(svc))
	router.Use(middleware.Analytics(pipeline))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	url.Routes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("error serving http")
		}
	}()
	log.WithField("port", cfg.Port).Info("Listening")

	// Catch signal so we can shutdown gracefully
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.WithField("signal", sig).Info("Signal received. Shutting down.")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("error shutting down http server")
	}
	if err := pipeline.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("error draining analytics")
	}
}
