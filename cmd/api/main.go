package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cvanalyzer/semantic-cv-analyzer/internal/config"
	"cvanalyzer/semantic-cv-analyzer/internal/handlers"
	"cvanalyzer/semantic-cv-analyzer/internal/logger"
	"cvanalyzer/semantic-cv-analyzer/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New("semantic-cv-analyzer", cfg.Server.Env)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("❌ Invalid configuration")
	}
	log.Info().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("✅ Config loaded successfully")

	ctx := context.Background()

	// Initialize services
	metrics := services.NewMetrics()
	loader := services.NewDocumentLoader()
	promptBuilder := services.NewPromptBuilder(cfg.Prompt.MaxChars, cfg.Prompt.FloorChars)
	parser := services.NewResponseParser(cfg.Parser.Strict)
	if err := promptBuilder.CheckBudget(); err != nil {
		log.Fatal().Err(err).Msg("❌ Invalid prompt budget")
	}

	// A missing key must not stop the UI: analysis reports it per request.
	setupMessage := ""
	llm, err := services.NewLLMClient(ctx, cfg.LLM, log)
	if err != nil {
		var configErr *services.ConfigurationError
		if !errors.As(err, &configErr) {
			log.Fatal().Err(err).Msg("❌ Failed to initialize LLM client")
		}
		setupMessage = fmt.Sprintf("API key missing. Add api_key to %s (or set the provider's API key environment variable) and restart.", cfg.LLM.SecretsPath)
		log.Warn().Err(err).Msg("⚠️ LLM not configured, analysis is disabled")
		llm = services.NewUnavailableLLM(cfg.LLM.Provider, err)
	} else {
		log.Info().Str("provider", llm.Provider()).Msg("✅ LLM client initialized successfully")
	}

	analyzer := services.NewAnalyzerService(
		loader,
		llm,
		promptBuilder,
		parser,
		metrics,
		cfg.LLM.Timeout,
		log,
	)
	log.Info().Bool("strict_parser", parser.Strict()).Msg("✅ Analyzer service initialized")

	// Initialize Handlers
	analyzeHandler := handlers.NewAnalyzeHandler(analyzer, cfg.Upload.MaxFileSize, setupMessage, log)
	healthHandler := handlers.NewHealthHandler(analyzer)

	app := handlers.NewApp(analyzeHandler, healthHandler, handlers.AppOptions{
		// multipart overhead on top of the file itself
		BodyLimit:  int(cfg.Upload.MaxFileSize) + 1<<20,
		AccessLog:  true,
		Metrics:    metrics,
		LLMTimeout: cfg.LLM.Timeout,
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("🛑 Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("❌ Server forced to shutdown")
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info().Str("addr", addr).Msgf("🚀 Server starting, open http://localhost%s", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to start server")
	}
}
