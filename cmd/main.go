package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/mlaferte/causerie/adapters/llm"
	"github.com/mlaferte/causerie/adapters/stt"
	"github.com/mlaferte/causerie/adapters/tts"
	"github.com/mlaferte/causerie/adapters/voices"
	"github.com/mlaferte/causerie/domain/repositories"
	"github.com/mlaferte/causerie/internal/api"
	"github.com/mlaferte/causerie/internal/websocket"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx := context.Background()

	chatModel, transcriber := buildChatAndTranscriber(ctx, logger)
	synthesizer := buildSynthesizer(ctx, logger)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize WebSocket hub over the capability adapters
	hub := websocket.NewHub(chatModel, transcriber, synthesizer, voices.Assign, voices.DefaultVoice, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, hub, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildChatAndTranscriber selects the chat model and transcriber from the
// environment. Without GEMINI_API_KEY both fall back to local mocks so the
// server stays runnable in development.
func buildChatAndTranscriber(ctx context.Context, logger *zap.Logger) (repositories.ChatModel, repositories.Transcriber) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		logger.Warn("GEMINI_API_KEY not set, using mock chat model and transcriber")
		mock := llm.NewMockChatModel(logger)
		return mock, mock
	}

	gemini, err := llm.NewGemini(ctx, llm.NewGeminiConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize Gemini adapter", zap.Error(err))
	}

	var transcriber repositories.Transcriber = gemini
	if os.Getenv("TRANSCRIBER") == "google" {
		transcriber = stt.NewGoogleTranscriber(os.Getenv("SPEECH_LANGUAGE"), logger)
		logger.Info("Using Google Cloud Speech transcriber")
	}
	return gemini, transcriber
}

// buildSynthesizer selects the speech synthesizer via TTS_PROVIDER:
// "gemini" (default), "elevenlabs" or "mock".
func buildSynthesizer(ctx context.Context, logger *zap.Logger) repositories.SpeechSynthesizer {
	switch os.Getenv("TTS_PROVIDER") {
	case "elevenlabs":
		synthesizer, err := tts.NewElevenLabsTTS(tts.NewElevenLabsConfigFromEnv(), logger)
		if err != nil {
			logger.Fatal("Failed to initialize ElevenLabs adapter", zap.Error(err))
		}
		logger.Info("Using ElevenLabs speech synthesizer")
		return synthesizer
	case "mock":
		return tts.NewMockTTS(logger)
	default:
		if os.Getenv("GEMINI_API_KEY") == "" {
			logger.Warn("GEMINI_API_KEY not set, using mock speech synthesizer")
			return tts.NewMockTTS(logger)
		}
		synthesizer, err := tts.NewGeminiTTS(ctx, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini TTS adapter", zap.Error(err))
		}
		return synthesizer
	}
}
