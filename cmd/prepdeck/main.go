package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/prepdeck/prepdeck/internal/config"
	"github.com/prepdeck/prepdeck/internal/feedback"
	"github.com/prepdeck/prepdeck/internal/httpapi"
	"github.com/prepdeck/prepdeck/internal/interview"
	"github.com/prepdeck/prepdeck/internal/interviewer"
	"github.com/prepdeck/prepdeck/internal/llm"
	"github.com/prepdeck/prepdeck/internal/observability"
	"github.com/prepdeck/prepdeck/internal/room"
	"github.com/prepdeck/prepdeck/internal/transcript"
)

func main() {
	// Local development convenience; the file is optional everywhere else.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf(".env not loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := transcript.NewStore(ctx, cfg.DatabaseURL, cfg.DataDir)
	if err != nil {
		log.Fatalf("transcript store init failed: %v", err)
	}
	defer store.Close()

	adapter, err := llm.NewAdapter(llm.Config{
		Mode:    cfg.LLMMode,
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		log.Fatalf("llm adapter init failed: %v", err)
	}

	registry := interviewer.NewRegistry(cfg.PromptsDir)
	tokens := room.NewTokenService(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitURL, cfg.TokenTTL)
	if !cfg.SigningConfigured() {
		log.Printf("livekit credentials not set; token minting disabled")
	}

	generator := feedback.NewGenerator(store, adapter, cfg.FeedbackModel)

	sessions := interview.NewManager(store)
	sessions.SetEndedHook(func(roomID, reason string) {
		metrics.SessionEvents.WithLabelValues("ended").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
		log.Printf("session %s removed (%s)", roomID, reason)
	})

	api := httpapi.New(cfg, store, sessions, registry, tokens, generator, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Flush every live interview to the store before the listener goes away.
	sessions.EndAll(shutdownCtx, "server_shutdown")

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
