package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"multichat-backend/internal/config"
	"multichat-backend/internal/events"
	"multichat-backend/internal/handlers"
	"multichat-backend/internal/inference"
	"multichat-backend/internal/repository"
	"multichat-backend/internal/router"
	"multichat-backend/internal/services"
	"multichat-backend/internal/storage"
)

func main() {
	log.Println("🚀 Starting Multichat Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Storage ────
	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("✗ Storage initialization failed: %v", err)
	}
	log.Printf("✓ Storage ready (%s)", cfg.StorageType)

	// ──── Step 3: Initialize Chat Repository ────
	chatRepo := repository.NewChatRepo(store)

	// Startup sweep: drop durable chats a crash left behind with no messages.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deleted := chatRepo.ReconcileEmptyChats(ctx)
	cancel()
	if len(deleted) > 0 {
		log.Printf("✓ Reconciled %d empty chat(s)", len(deleted))
	}

	// ──── Step 4: Initialize Inference Providers ────
	registry := inference.NewRegistry()
	if cfg.GeminiAPIKey != "" {
		gemini, err := inference.NewGeminiProvider(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("✗ Gemini client initialization failed: %v", err)
		}
		defer gemini.Close()
		registry.RegisterPrefix("gemini-", gemini)
		log.Println("✓ Gemini provider registered")
	}
	if cfg.OpenAIAPIKey != "" {
		registry.RegisterFallback(inference.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey))
		log.Printf("✓ OpenAI-compatible provider registered (%s)", cfg.OpenAIBaseURL)
	}
	if !registry.Configured() {
		log.Println("⚠ No inference provider configured; model calls will fail per-model")
	}
	fanout := inference.NewFanOut(registry)

	// ──── Step 5: Initialize Events Hub ────
	hub := events.NewHub()
	log.Println("✓ Events hub started")

	// ──── Step 6: Initialize Services & Handlers ────
	chatService := services.NewChatService(chatRepo, fanout, hub, cfg.SystemContext)
	chatHandler := handlers.NewChatHandler(chatRepo, chatService, hub, cfg.Models)
	inferenceHandler := handlers.NewInferenceHandler(fanout, registry.Configured())

	// ──── Step 7: Start HTTP Server ────
	r := router.New(chatHandler, inferenceHandler, hub, cfg.FrontendURL, cfg.InferenceRequestsPerMin)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 320 * time.Second, // model calls can run for minutes
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Multichat Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageType {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "redis":
		return storage.NewRedisStore(cfg.RedisURL)
	case "postgres":
		return storage.NewPostgresStore(cfg.DatabaseURL)
	default:
		return storage.NewFileStore(cfg.StoragePath)
	}
}
