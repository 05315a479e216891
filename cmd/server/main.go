package main

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"media-saver/internal/config"
	"media-saver/internal/server"
	"media-saver/internal/storage"
)

func main() {
	// Initialize zerolog logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Load configuration
	configManager := config.NewManager()
	cfg, err := configManager.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration")
	}

	// Initialize storage
	store, err := storage.NewSQLite(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing storage")
	}
	defer store.Close()

	// Create and run server
	srv := server.NewServer(cfg, store)
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
}
