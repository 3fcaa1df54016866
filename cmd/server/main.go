package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/opaq-social/backend/internal/router"
	"github.com/opaq-social/backend/pkg/aiclient"
	"github.com/opaq-social/backend/pkg/config"
	"github.com/opaq-social/backend/pkg/logger"
	"github.com/opaq-social/backend/pkg/mailer"
	"github.com/opaq-social/backend/pkg/storeweb"
	"github.com/opaq-social/backend/pkg/websearch"
	"github.com/opaq-social/backend/validators"
)

func main() {
	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer db.CloseDB()

	clients := &router.Clients{
		AI:      aiclient.NewClient(cfg.AIBaseURL, cfg.AIAPIKey),
		Search:  websearch.NewClient(cfg.SearchBaseURL, cfg.SearchAPIKey),
		Storage: storeweb.NewClient(cfg.StorageGatewayURL, cfg.StorageAPIKey),
		Mail:    mailer.NewClient(cfg.MailBaseURL, cfg.MailAPIKey, cfg.MailFrom),
	}
	defer clients.AI.Close()
	defer clients.Search.Close()
	defer clients.Storage.Close()
	defer clients.Mail.Close()

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	if err := router.SetupRoutes(e, cfg, db, clients); err != nil {
		logger.Log.Fatal("failed to set up routes", zap.Error(err))
	}

	go func() {
		logger.Log.Info("starting server", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Log.Info("server stopped")
}
