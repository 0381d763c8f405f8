package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/bot"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/config"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/handlers"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	setupLogging()

	svcs, err := services.InitializeServices()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer svcs.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleSignals(cancel)

	r := setupRouter(svcs)
	server := &http.Server{
		Addr:    config.GetServerAddr(),
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Health/debug server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	slackBot, err := bot.New(svcs.GetAgentService(), svcs.GetConversationService())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Slack bot")
	}

	if err := slackBot.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Slack bot stopped unexpectedly")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(config.GetEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.GetEnvOrDefault("LOG_PRETTY", "false") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func setupRouter(svcs *services.Services) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", handlers.HandleHealth).Methods(http.MethodGet)
	r.Handle("/ws", handlers.NewWebSocketHandler(svcs.GetAgentService(), svcs.GetConversationService()))
	return r
}

func handleSignals(cancel context.CancelFunc) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info().Str("signal", s.String()).Msg("Shutting down")
	cancel()
}
