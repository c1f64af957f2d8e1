package main

import (
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mentorhub/internal/usertoken"
	"mentorhub/internal/util"
	"mentorhub/pkg/ai"
	"mentorhub/services/library/internal/app"
	"mentorhub/services/library/internal/config"
	"mentorhub/services/library/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	tokenVerifier, err := usertoken.NewVerifier(usertoken.Config{
		JWKSURL:    cfg.AuthJWKSURL,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	})
	if err != nil {
		log.Fatalf("failed to init jwks verifier: %v", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		log.Fatalf("failed to init embedder: %v", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:    cfg.DatabaseURL,
		MinioEndpoint:  cfg.MinioEndpoint,
		MinioAccessKey: cfg.MinioAccessKey,
		MinioSecretKey: cfg.MinioSecretKey,
		MinioBucket:    cfg.MinioBucket,
		MinioUseSSL:    cfg.MinioUseSSL,
		Embedder:       embedder,
		ChunkRunes:     cfg.ChunkRunes,
		EmbeddingDim:   cfg.EmbedDimensions,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		TokenVerifier:  tokenVerifier,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("library server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func buildEmbedder(cfg config.FileConfig) (ai.Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.EmbedProvider)) {
	case "", "none":
		return nil, nil
	case "ollama":
		client := ai.NewOllamaClient(cfg.OllamaURL)
		return ai.NewOllamaEmbedder(client, cfg.EmbedModel, cfg.EmbedDimensions), nil
	case "gateway":
		return ai.NewGateway(ai.GatewayConfig{
			APIKey:         cfg.GatewayAPIKey,
			BaseURL:        cfg.GatewayBaseURL,
			EmbeddingModel: cfg.EmbedModel,
		})
	default:
		return nil, nil
	}
}
