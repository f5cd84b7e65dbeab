package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/provider/gemini"
	"ragchat/internal/provider/openai"
	"ragchat/internal/server"
	"ragchat/internal/service"
	"ragchat/internal/store/memory"
	"ragchat/internal/store/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to config YAML")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		docs   domain.DocumentStore
		conv   domain.ConversationStore
		health server.HealthChecker
	)
	switch cfg.Storage.Type {
	case "postgres":
		st, err := postgres.New(ctx, cfg.DatabaseURL(), appLog)
		if err != nil {
			appLog.Fatal("failed to connect to storage", "error", err)
		}
		defer st.Close()
		docs, conv, health = st, st, st
	case "memory":
		st := memory.New()
		docs, conv, health = st, st, st
	default:
		appLog.Fatal("unknown storage type", "type", cfg.Storage.Type)
	}

	// Provider family: one switch selects both embedding and generation.
	var (
		embedder  domain.Embedder
		generator domain.Generator
	)
	switch cfg.Provider.Family {
	case "openai":
		client, err := openai.NewClient(openai.Config{
			BaseURL:     cfg.Provider.OpenAI.BaseURL,
			APIKeyEnv:   cfg.Provider.OpenAI.APIKeyEnv,
			EmbedModel:  cfg.Provider.OpenAI.EmbedModel,
			ChatModel:   cfg.Provider.OpenAI.ChatModel,
			Temperature: cfg.Provider.Temperature,
			Timeout:     time.Duration(cfg.Provider.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			appLog.Fatal("failed to build openai client", "error", err)
		}
		embedder, generator = client, client
	case "gemini":
		client, err := gemini.NewClient(gemini.Config{
			BaseURL:     cfg.Provider.Gemini.BaseURL,
			APIKeyEnv:   cfg.Provider.Gemini.APIKeyEnv,
			EmbedModel:  cfg.Provider.Gemini.EmbedModel,
			ChatModel:   cfg.Provider.Gemini.ChatModel,
			Temperature: cfg.Provider.Temperature,
			Timeout:     time.Duration(cfg.Provider.Gemini.TimeoutSecs) * time.Second,
		})
		if err != nil {
			appLog.Fatal("failed to build gemini client", "error", err)
		}
		embedder, generator = client, client
	default:
		appLog.Fatal("unknown provider family", "family", cfg.Provider.Family)
	}

	pipeline := service.NewPipeline(service.Config{
		Embedder:      embedder,
		Generator:     generator,
		Documents:     docs,
		Conversations: conv,
		ChunkSize:     cfg.Pipeline.ChunkSize,
		TopK:          cfg.Pipeline.TopK,
		HistoryLimit:  cfg.Pipeline.HistoryLimit,
		Logger:        appLog,
	})

	handler := server.NewHandler(pipeline, health, appLog)
	router := server.NewRouter(handler, appLog)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		appLog.Info("server listening",
			"addr", cfg.Server.Addr,
			"provider", cfg.Provider.Family,
			"storage", cfg.Storage.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("shutdown failed", "error", err)
	}
}
