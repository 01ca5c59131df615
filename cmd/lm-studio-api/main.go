package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/StyleAiLabs/lm-studio-api/internal/api"
	"github.com/StyleAiLabs/lm-studio-api/internal/api/handlers"
	"github.com/StyleAiLabs/lm-studio-api/internal/service"
	"github.com/StyleAiLabs/lm-studio-api/pkg/config"
	"github.com/StyleAiLabs/lm-studio-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("starting lm-studio-api",
		zap.String("lm_studio_url", cfg.LMStudio.BaseURL),
		zap.Bool("offline", cfg.LMStudio.Offline),
	)

	registry := service.NewTenantRegistry(cfg, appLogger)
	llmService := service.NewLLMService(&cfg.LMStudio, appLogger)
	scraperService := service.NewScraperService(&cfg.Scraper, appLogger)

	chatHandler := handlers.NewChatHandler(registry, llmService, cfg, appLogger)
	knowledgeHandler := handlers.NewKnowledgeHandler(registry, scraperService, cfg, appLogger)

	app := api.SetupRouter(chatHandler, knowledgeHandler, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("server shutdown error", zap.Error(err))
	}
}
