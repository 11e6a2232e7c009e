/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 19:55:11
 * @FilePath: \mood-diary\backend\cmd\server\main.go
 * @LastEditTime: 2025-11-04 22:17:40
 */
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mood-diary/backend/internal/app"
	"mood-diary/backend/internal/bootstrap"
	"mood-diary/backend/internal/config"
	appLogger "mood-diary/backend/internal/infra/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config.LoadEnvFiles()
	if _, err := appLogger.Init(); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer appLogger.Sync()
	logger := appLogger.S().With("component", "main")

	settings, err := config.Load()
	if err != nil {
		logger.Fatalw("load config failed", "error", err)
	}

	resources, err := app.Bootstrap(ctx, settings)
	if err != nil {
		logger.Fatalw("bootstrap failed", "error", err)
	}
	defer func() {
		if err := resources.Close(); err != nil {
			logger.Warnw("resource cleanup error", "error", err)
		}
	}()

	application, err := bootstrap.BuildApplication(ctx, logger, resources)
	if err != nil {
		logger.Fatalw("build application failed", "error", err)
	}

	srv := &http.Server{
		Addr:              ":" + settings.Server.Port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infow("http server listening", "addr", srv.Addr, "mode", settings.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
	}
}
