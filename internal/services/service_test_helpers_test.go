package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mkarran/accessgate/internal/database/testutil"
	"github.com/mkarran/accessgate/internal/models"
)

func openServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func uniqueSuffix() string {
	return uuid.NewString()[:8]
}

func createTestUser(t *testing.T, db *gorm.DB, active bool) *models.User {
	t.Helper()

	suffix := uniqueSuffix()
	user := &models.User{
		Username: "user-" + suffix,
		Email:    "user-" + suffix + "@example.com",
		Password: "hashed",
		IsActive: active,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestRole(t *testing.T, db *gorm.DB, permissions ...models.Permission) *models.Role {
	t.Helper()

	role := &models.Role{
		Name:        "role-" + uniqueSuffix(),
		Title:       "Test Role",
		Permissions: permissions,
	}
	require.NoError(t, db.Create(role).Error)
	return role
}

func createTestPermission(t *testing.T, db *gorm.DB, category string) models.Permission {
	t.Helper()

	permission := models.Permission{
		Name:         "perm." + uniqueSuffix(),
		Title:        "Test Permission",
		GuardName:    "web",
		CategoryName: category,
	}
	require.NoError(t, db.Create(&permission).Error)
	return permission
}
