// Package main запускает HTTP-сервер сервиса оценки заказов EcoBazaar.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/ecobazaar-estimator/internal/backend"
	"github.com/mmeshcher/ecobazaar-estimator/internal/config"
	"github.com/mmeshcher/ecobazaar-estimator/internal/handler"
	"github.com/mmeshcher/ecobazaar-estimator/internal/middleware"
	"github.com/mmeshcher/ecobazaar-estimator/internal/repository"
	"github.com/mmeshcher/ecobazaar-estimator/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	// Без БД сервис работает, но оценки заказов не записываются.
	var repo service.Repository
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pg
	} else {
		sugar.Warn("DATABASE_URI is empty, estimate store disabled")
	}

	backendClient := backend.NewClient(cfg.BackendAddress)

	svc := service.NewService(repo, backendClient, logger)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.SessionSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновой сверки оценок с заказами бэкенда
	g.Go(func() error {
		if repo != nil && cfg.BackendToken == "" {
			sugar.Info("BACKEND_TOKEN is empty, estimate reconciliation disabled")
		}
		svc.StartReconciliation(ctx, cfg.BackendToken, cfg.ReconcileInterval)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting ecobazaar estimator", "addr", cfg.RunAddress, "backend", cfg.BackendAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
