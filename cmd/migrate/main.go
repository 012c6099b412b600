package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"dzemat/internal/pkg/logger"
	"dzemat/internal/platform/auth"
	"dzemat/internal/platform/config"
	"dzemat/internal/platform/database"
	"dzemat/internal/platform/models"
	"dzemat/internal/platform/repositories"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	seed := flag.Bool("seed", false, "Create the default and global tenants with their first accounts")
	adminPassword := flag.String("admin-password", "", "Password for the default tenant admin (required with -seed)")
	superAdminPassword := flag.String("superadmin-password", "", "Password for the super-admin (required with -seed)")
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
		log.Fatal().Err(err).Msg("Migration failed")
	}
	for _, name := range applied {
		log.Info().Str("migration", name).Msg("Applied migration")
	}

	if *seed {
		if *adminPassword == "" || *superAdminPassword == "" {
			log.Fatal().Msg("-admin-password and -superadmin-password are required with -seed")
		}
		s := &seeder{
			tenants: repositories.NewTenantRepository(db),
			users:   repositories.NewUserRepository(db),
		}
		if err := s.run(context.Background(), cfg.Tenancy.DefaultTenantID, *adminPassword, *superAdminPassword); err != nil {
			log.Fatal().Err(err).Msg("Seeding failed")
		}
	}

	fmt.Println("Migration completed successfully")
}

type seeder struct {
	tenants *repositories.TenantRepository
	users   *repositories.UserRepository
}

func (s *seeder) run(ctx context.Context, defaultTenantID, adminPassword, superAdminPassword string) error {
	if defaultTenantID == "" {
		defaultTenantID = models.DefaultTenantID
	}
	now := time.Now().Unix()

	tenants := []*models.Tenant{
		{ID: defaultTenantID, Name: "Demo džemat", Code: "demo", SubscriptionTier: models.TierFull, SubscriptionStatus: models.StatusActive, IsActive: true, CreatedAt: now},
		{ID: models.GlobalTenantID, Name: "Super Admin", Code: "superadmin", SubscriptionTier: models.TierFull, SubscriptionStatus: models.StatusActive, IsActive: true, CreatedAt: now},
	}
	for _, t := range tenants {
		existing, err := s.tenants.GetByID(ctx, t.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := s.tenants.Create(ctx, t); err != nil {
			return fmt.Errorf("create tenant %s: %w", t.ID, err)
		}
		log.Info().Str("tenant_id", t.ID).Msg("Seeded tenant")
	}

	if err := s.ensureUser(ctx, defaultTenantID, "admin", adminPassword, func(u *models.User) {
		u.IsAdmin = true
		u.Roles = []string{models.RoleAdmin}
	}); err != nil {
		return err
	}
	return s.ensureUser(ctx, models.GlobalTenantID, "superadmin", superAdminPassword, func(u *models.User) {
		u.IsAdmin = true
		u.IsSuperAdmin = true
	})
}

func (s *seeder) ensureUser(ctx context.Context, tenantID, username, password string, configure func(*models.User)) error {
	existing, err := s.users.GetByUsername(ctx, tenantID, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u := &models.User{
		ID:           "usr_" + uuid.NewString(),
		TenantID:     tenantID,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().Unix(),
	}
	configure(u)
	if err := s.users.Create(ctx, u); err != nil {
		return fmt.Errorf("create user %s: %w", username, err)
	}
	log.Info().Str("tenant_id", tenantID).Str("username", username).Msg("Seeded user")
	return nil
}
