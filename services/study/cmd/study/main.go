package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"mentorhub/internal/util"
	"mentorhub/pkg/ai"
	"mentorhub/pkg/store"
	"mentorhub/services/study/internal/app"
	"mentorhub/services/study/internal/config"
	"mentorhub/services/study/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init postgres store: %v", err)
	}
	gateway, err := ai.NewGateway(ai.GatewayConfig{
		APIKey:  cfg.GatewayAPIKey,
		BaseURL: cfg.GatewayBaseURL,
		Model:   cfg.GatewayModel,
	})
	if err != nil {
		log.Fatalf("failed to init ai gateway: %v", err)
	}
	appCore, err := app.New(app.Config{Store: dataStore, Generator: gateway})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.New(server.Config{App: appCore}).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("study server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
