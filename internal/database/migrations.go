package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/mkarran/accessgate/internal/models"
	"github.com/mkarran/accessgate/internal/registry"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Session{},
		&models.CacheEntry{},
	)
}

// SeedData synchronises the permission vocabulary and grants the admin role
// every registered permission. Idempotent; safe to run on every start-up.
func SeedData(db *gorm.DB) error {
	if err := registry.Sync(context.Background(), db); err != nil {
		return err
	}

	var admin models.Role
	if err := db.First(&admin, "name = ?", "admin").Error; err != nil {
		return err
	}

	var perms []models.Permission
	if err := db.Find(&perms).Error; err != nil {
		return err
	}

	return db.Model(&admin).Association("Permissions").Replace(&perms)
}
