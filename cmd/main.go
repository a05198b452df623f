package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/paper_trade_service/config"
	"github.com/KotFed0t/paper_trade_service/data"
	"github.com/KotFed0t/paper_trade_service/data/cache"
	"github.com/KotFed0t/paper_trade_service/data/repository/postgres"
	"github.com/KotFed0t/paper_trade_service/data/session"
	"github.com/KotFed0t/paper_trade_service/internal/externalApi/alphaVantageApi"
	"github.com/KotFed0t/paper_trade_service/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/paper_trade_service/internal/externalApi/geminiApi"
	"github.com/KotFed0t/paper_trade_service/internal/quoteCache"
	"github.com/KotFed0t/paper_trade_service/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/paper_trade_service/internal/scheduler"
	"github.com/KotFed0t/paper_trade_service/internal/service/paperTradeService"
	"github.com/KotFed0t/paper_trade_service/internal/transport/httpapi"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	alphaVantage := alphaVantageApi.New(cfg)

	throttle := quoteCache.NewRequestThrottle(cfg.Throttle.MinInterval, cfg.Throttle.QueueSize)
	defer throttle.Stop()

	quotes := quoteCache.New(alphaVantage, throttle, cfg.Cache.QuotesFreshness)

	advisor := geminiApi.New(ctx, cfg)

	reportGenerator := xlsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	paperTradeSrv := paperTradeService.New(cfg, pgRepo, redisCache, redisSession, quotes, advisor, reportGenerator, googleCloudStorage)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh held quotes", paperTradeSrv.RefreshHeldQuotes, cfg.Jobs.RefreshQuotesInterval, false)
	sched.NewIntervalJob("drive cleanup", googleCloudStorage.DeleteOldFiles, cfg.Jobs.DriveCleanupInterval, false)
	sched.Start()
	defer sched.Stop()

	controller := httpapi.New(paperTradeSrv)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      controller.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		slog.Info("http server listening", slog.Int("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-interrupt:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
