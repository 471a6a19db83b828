package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/holysmokas/translation-server/internal/adapters/backend"
	router "github.com/holysmokas/translation-server/internal/adapters/http"
	"github.com/holysmokas/translation-server/internal/adapters/ws"
	"github.com/holysmokas/translation-server/internal/app"
	"github.com/holysmokas/translation-server/internal/auth"
	"github.com/holysmokas/translation-server/internal/config"
	"github.com/holysmokas/translation-server/internal/pipeline"
)

// buildPipeline wires the translation backend the config selects.
// Every variant satisfies the same orchestrator contract; demo mode
// needs no credentials.
func buildPipeline(cfg *config.Config) *pipeline.Pipeline {
	switch cfg.Provider {
	case "groq_google":
		client := &http.Client{Timeout: cfg.BackendTimeout}
		return pipeline.New(
			backend.NewGroqTranscriber(cfg.GroqAPIKey, client),
			backend.NewGoogleTranslator(cfg.GoogleAPIKey, client),
			backend.NewGoogleSynthesizer(client),
			cfg.BackendTimeout,
		)
	default:
		log.Info().Msg("no provider configured, running translation in demo mode")
		return pipeline.NewDemoPipeline()
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	directory := app.NewDirectory()
	guard := app.NewGuard()
	tokens := auth.NewTokenManager(cfg.Secret, cfg.TokenTTL)
	fanout := app.NewRouter(buildPipeline(cfg), guard)
	wsCtl := ws.NewController(directory, fanout, tokens, cfg.ReadLimit)

	go directory.RunSweeper(ctx, cfg.SweepInterval, cfg.RoomMaxAge, cfg.RoomEmptyAge)
	go func() {
		t := time.NewTicker(cfg.SweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				guard.Cleanup(cfg.GuestSessionAge)
			}
		}
	}()

	r := router.NewServer(cfg, directory, guard, tokens, wsCtl).SetupRouter(ctx)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Translation server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
