// Package testutil seeds a migrated in-memory database for package tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dzemat/internal/platform/database"
	"dzemat/internal/platform/models"
	"dzemat/internal/platform/repositories"
)

const Password = "password"

func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func SeedTenant(t testing.TB, db *sql.DB, id string, tier models.SubscriptionTier, status models.SubscriptionStatus) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{
		ID:                 id,
		Name:               "Džemat " + id,
		Code:               id,
		SubscriptionTier:   tier,
		SubscriptionStatus: status,
		IsActive:           true,
		CreatedAt:          time.Now().Unix(),
	}
	if err := repositories.NewTenantRepository(db).Create(context.Background(), tenant); err != nil {
		t.Fatalf("Failed to seed tenant %s: %v", id, err)
	}
	return tenant
}

type UserOption func(*models.User)

func Admin() UserOption {
	return func(u *models.User) { u.IsAdmin = true }
}

func SuperAdmin() UserOption {
	return func(u *models.User) { u.IsSuperAdmin = true; u.IsAdmin = true }
}

func Roles(roles ...string) UserOption {
	return func(u *models.User) { u.Roles = roles }
}

func SeedUser(t testing.TB, db *sql.DB, tenantID, id string, opts ...UserOption) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := &models.User{
		ID:           id,
		TenantID:     tenantID,
		Username:     id,
		PasswordHash: string(hash),
		FirstName:    "Ime",
		LastName:     id,
		Roles:        []string{models.RoleMember},
		CreatedAt:    time.Now().Unix(),
	}
	for _, opt := range opts {
		opt(user)
	}
	if err := repositories.NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to seed user %s: %v", id, err)
	}
	return user
}
