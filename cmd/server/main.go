package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/web3-frozen/aptos-yield-monitor/internal/app"
	"github.com/web3-frozen/aptos-yield-monitor/internal/config"
	"github.com/web3-frozen/aptos-yield-monitor/internal/handler"
	"github.com/web3-frozen/aptos-yield-monitor/internal/logging"
	"github.com/web3-frozen/aptos-yield-monitor/internal/middleware"
)

func main() {
	// .env.local overrides .env; neither is required
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	go a.Engine.Run(ctx)

	var history handler.HistoryReader
	if a.Store != nil {
		history = a.Store
	}

	// HTTP routes
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health())
	r.Get("/readyz", handler.Ready(a.Engine.Ready, a.Pingers()...))
	r.Get("/", handler.Dashboard(a.Service))

	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", handler.OverviewJSON(a.Service))
		r.Get("/staking", handler.Staking(a.Service))
		r.Get("/staking/history", handler.StakingHistory(history))
		r.Get("/tokens/latest", handler.Tokens(a.Service))
		r.Get("/news/latest", handler.News(a.Service))
		r.Get("/wallet/{address}", handler.Wallet(a.Service))
		r.Get("/recommendations/ai", handler.Recommendations(a.Service))
		r.Get("/status", handler.Status(a.Engine))
	})

	// WriteTimeout covers two sequential language model calls
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
