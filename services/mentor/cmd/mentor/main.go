package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"mentorhub/internal/usertoken"
	"mentorhub/internal/util"
	"mentorhub/pkg/ai"
	"mentorhub/pkg/cache"
	"mentorhub/pkg/store"
	"mentorhub/services/mentor/internal/app"
	"mentorhub/services/mentor/internal/config"
	"mentorhub/services/mentor/internal/server"
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
	tokenVerifier, err := usertoken.NewVerifier(usertoken.Config{
		JWKSURL:    cfg.AuthJWKSURL,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	})
	if err != nil {
		log.Fatalf("failed to init token verifier: %v", err)
	}

	var researchCache *cache.ResearchCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		researchCache = cache.NewResearchCache(client, time.Duration(cfg.ResearchTTLMinutes)*time.Minute)
	}

	appCore, err := app.New(app.Config{
		Store:      dataStore,
		Streamer:   gateway,
		WebhookURL: cfg.ResearchWebhookURL,
		Cache:      researchCache,
		MentorName: cfg.MentorName,
		ChannelURL: cfg.MentorChannelURL,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     server.New(server.Config{App: appCore, TokenVerifier: tokenVerifier}).Router(),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: SSE responses stay open past any fixed deadline.
		IdleTimeout: 60 * time.Second,
	}

	slog.Info("mentor server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
