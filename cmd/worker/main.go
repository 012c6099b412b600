package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog/log"

	"dzemat/internal/pkg/logger"
	"dzemat/internal/platform/config"
	"dzemat/internal/platform/database"
	"dzemat/internal/platform/repositories"
	"dzemat/internal/platform/session"
	"dzemat/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	once := flag.Bool("once", false, "Run every job once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	// Purging only needs the table; cookie keys are irrelevant here.
	store := session.NewSQLStore(db, securecookie.GenerateRandomKey(32))
	m := workers.NewMaintenance(store, repositories.NewTenantRepository(db))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		m.RunOnce(ctx)
		return
	}

	log.Info().Dur("interval", cfg.Maintenance.Interval).Msg("Starting maintenance worker")
	m.Run(ctx, cfg.Maintenance.Interval)
	log.Info().Msg("Maintenance worker stopped")
}
