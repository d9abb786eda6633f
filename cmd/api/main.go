// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/shelfscout/internal/catalog"
	"github.com/briangreenhill/shelfscout/internal/config"
	"github.com/briangreenhill/shelfscout/internal/http/middleware"
	"github.com/briangreenhill/shelfscout/internal/http/routes"
	"github.com/briangreenhill/shelfscout/internal/metrics"
	"github.com/briangreenhill/shelfscout/openlibrary"
	"github.com/briangreenhill/shelfscout/web"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, "shelfscout")

	// Upstream + catalog
	ol := openlibrary.New(
		openlibrary.WithBaseURL(cfg.OpenLibrary.BaseURL),
		openlibrary.WithTimeout(cfg.OpenLibrary.Timeout),
		openlibrary.WithUserAgent(cfg.OpenLibrary.UserAgent),
		openlibrary.WithObserver(m),
	)
	svc := catalog.New(ol, catalog.Options{
		SearchTTL:  cfg.Cache.SearchTTL,
		SubjectTTL: cfg.Cache.SubjectTTL,
		SuggestTTL: cfg.Cache.SuggestTTL,
		Logger:     &logger,
		Metrics:    m.CacheFamily,
	})

	tmpl, err := web.Templates()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse templates")
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	}

	// Router / server
	s := routes.New(routes.ServerOptions{
		Catalog:      svc,
		Tmpl:         tmpl,
		Logger:       logger,
		HomeSubjects: cfg.Home.Subjects,
		SampleSize:   cfg.Home.SampleSize,
		RateLimiter:  limiter,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.OpenLibrary.Timeout * 4,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if limiter != nil {
		go sweep(ctx, limiter)
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting shelfscout")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func sweep(ctx context.Context, rl *middleware.RateLimiter) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rl.Sweep()
		}
	}
}
