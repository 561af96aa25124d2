// Package main DuelChat API
//
// @title           DuelChat API
// @version         1.0
// @description     Чат с дуэлью двух провайдеров ответа, квотами по тарифу и продлением подписки
//
// @host      localhost:8080
// @BasePath  /
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/magabrotheeeer/duelchat/internal/app/duelchat"
	"github.com/magabrotheeeer/duelchat/internal/config"
	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
)

const (
	envLocal = "local"
	envTest  = "test"
)

func main() {
	// .env нужен только для локального запуска.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", sl.Err(err))
	}

	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	logger.Info("starting duelchat", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := duelchat.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("duelchat stopped gracefully")
}

func setupLogger(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == envLocal || env == envTest {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
