package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"dzemat/internal/api"
	"dzemat/internal/api/handlers"
	"dzemat/internal/api/middleware"
	"dzemat/internal/engine/features"
	"dzemat/internal/engine/identity"
	"dzemat/internal/engine/points"
	"dzemat/internal/engine/proposals"
	"dzemat/internal/engine/tasks"
	"dzemat/internal/engine/workgroups"
	"dzemat/internal/pkg/logger"
	"dzemat/internal/platform/audit"
	"dzemat/internal/platform/auth"
	"dzemat/internal/platform/config"
	"dzemat/internal/platform/database"
	"dzemat/internal/platform/repositories"
	"dzemat/internal/platform/session"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
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

	applied, err := database.Migrate(db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	for _, name := range applied {
		log.Info().Str("migration", name).Msg("Applied migration")
	}

	// Repositories
	tenantRepo := repositories.NewTenantRepository(db)
	userRepo := repositories.NewUserRepository(db)
	activity := audit.NewLogger(db)

	// Sessions and identity
	store := session.NewSQLStore(db, []byte(cfg.Session.HashKey), []byte(cfg.Session.BlockKey))
	sessions := session.NewManagerFromConfig(store, cfg.Session)
	tokenSvc := auth.NewTokenService(cfg.JWT)
	tenantResolver := identity.NewTenantResolver(cfg.Tenancy.DefaultTenantID)
	resolver := identity.NewResolver(userRepo, tenantRepo, identity.NewSuperAdminCache(cfg.Cache.SuperAdminTTL))
	gate := features.NewGate(tenantRepo, features.DefaultCatalog())

	// Engines
	wgRepo := workgroups.NewRepository(db)
	members := workgroups.NewManager(wgRepo, userRepo, activity)
	wgService := workgroups.NewService(wgRepo, members, activity)

	activityLedger := points.NewActivityLedger(db)
	var ledger points.Ledger = activityLedger
	var webhook *points.WebhookLedger
	if cfg.Points.WebhookURL != "" {
		webhook = points.NewWebhookLedger(cfg.Points)
		ledger = points.Multi{ledger, webhook}
	}
	taskEngine := tasks.NewEngine(tasks.NewRepository(db), members, ledger, activity)
	proposalEngine := proposals.NewEngine(proposals.NewRepository(db), members, activity)

	// Router
	deps := &api.Dependencies{
		AuthHandler:        handlers.NewAuthHandler(userRepo, tenantRepo, sessions, tokenSvc, activity, cfg.Tenancy.DefaultTenantID),
		PlatformHandler:    handlers.NewPlatformHandler(db, tenantRepo, gate, activity, cfg.Server.PublicURL),
		WorkGroupHandler:   handlers.NewWorkGroupHandler(wgService, taskEngine),
		TaskHandler:        handlers.NewTaskHandler(taskEngine),
		UserHandler:        handlers.NewUserHandler(userRepo, activityLedger),
		ProposalHandler:    handlers.NewProposalHandler(proposalEngine),
		IdentityMiddleware: middleware.NewIdentityMiddleware(sessions, tokenSvc, tenantResolver, resolver),
		FeatureMiddleware:  middleware.NewFeatureMiddleware(gate),
		RateLimiter:        middleware.NewRateLimiter(),
		LoginPerMinute:     cfg.RateLimit.LoginPerMinute,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	activity.Wait()
	if webhook != nil {
		webhook.Wait()
	}
}
