package main

import (
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mentorhub/internal/util"
	"mentorhub/pkg/ai"
	"mentorhub/pkg/store"
	"mentorhub/services/bookrag/internal/app"
	"mentorhub/services/bookrag/internal/config"
	"mentorhub/services/bookrag/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	dataStore, err := store.NewGormStore(cfg.DatabaseURL, store.WithEmbeddingDim(cfg.EmbedDimensions))
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

	strategies := buildStrategies(cfg, dataStore, gateway)
	appCore, err := app.New(app.Config{
		Retriever:  app.NewRetriever(strategies...),
		Generator:  gateway,
		MentorName: cfg.MentorName,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.New(server.Config{App: appCore}).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("bookrag server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func buildStrategies(cfg config.FileConfig, dataStore *store.GormStore, gateway *ai.Gateway) []app.Strategy {
	var strategies []app.Strategy
	switch strings.ToLower(strings.TrimSpace(cfg.EmbedProvider)) {
	case "ollama":
		client := ai.NewOllamaClient(cfg.OllamaURL)
		strategies = append(strategies, &app.VectorStrategy{
			Searcher: dataStore,
			Embedder: ai.NewOllamaEmbedder(client, cfg.EmbedModel, cfg.EmbedDimensions),
			Limit:    cfg.VectorLimit,
		})
	case "gateway":
		strategies = append(strategies, &app.VectorStrategy{
			Searcher: dataStore,
			Embedder: gateway,
			Limit:    cfg.VectorLimit,
		})
	}
	strategies = append(strategies,
		&app.TextSearchStrategy{Store: dataStore, Limit: cfg.TextLimit, MinScore: cfg.MinScore},
		&app.SubstringStrategy{Store: dataStore, Limit: cfg.SubstringLimit},
	)
	return strategies
}
