package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkarran/accessgate/internal/cache"
	"github.com/mkarran/accessgate/pkg/crypto"
	apperrors "github.com/mkarran/accessgate/pkg/errors"
)

func newUserService(t *testing.T) (*UserService, *SnapshotService) {
	t.Helper()

	db := openServiceDB(t)
	snapshots, err := NewSnapshotService(db, SnapshotConfig{})
	require.NoError(t, err)

	svc, err := NewUserService(db, snapshots)
	require.NoError(t, err)
	return svc, snapshots
}

func TestUserCreateHashesPassword(t *testing.T) {
	svc, _ := newUserService(t)
	suffix := uniqueSuffix()

	user, err := svc.Create(context.Background(), CreateUserInput{
		Username: "alice-" + suffix,
		Email:    "Alice-" + suffix + "@Example.com",
		Password: "s3cret-password",
	})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "alice-"+suffix+"@example.com", user.Email)
	require.True(t, user.IsActive)
	require.NotEqual(t, "s3cret-password", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "s3cret-password"))
}

func TestUserCreateInactivePersists(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	suffix := uniqueSuffix()

	inactive := false
	user, err := svc.Create(ctx, CreateUserInput{
		Username: "dormant-" + suffix,
		Email:    "dormant-" + suffix + "@example.com",
		Password: "password",
		IsActive: &inactive,
	})
	require.NoError(t, err)
	require.False(t, user.IsActive)

	// The flag must survive the round trip to the database.
	reloaded, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, reloaded.IsActive)

	_, err = svc.VerifyCredentials(ctx, user.Username, "password", "127.0.0.1")
	require.ErrorIs(t, err, ErrUserInactive)
}

func TestUserCreateValidation(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Email: "x@example.com", Password: "pw"})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Username: "x", Password: "pw"})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Username: "x", Email: "x@example.com"})
	require.Error(t, err)
}

func TestUserCreateRejectsDuplicateUsername(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	suffix := uniqueSuffix()

	_, err := svc.Create(ctx, CreateUserInput{
		Username: "dup-" + suffix,
		Email:    "dup-" + suffix + "@example.com",
		Password: "password",
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateUserInput{
		Username: "dup-" + suffix,
		Email:    "other-" + suffix + "@example.com",
		Password: "password",
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.StatusCode)
}

func TestUserUpdate(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	suffix := uniqueSuffix()

	user, err := svc.Create(ctx, CreateUserInput{
		Username: "update-" + suffix,
		Email:    "update-" + suffix + "@example.com",
		Password: "password",
	})
	require.NoError(t, err)

	firstName := "Ada"
	updated, err := svc.Update(ctx, user.ID, UpdateUserInput{FirstName: &firstName})
	require.NoError(t, err)
	require.Equal(t, "Ada", updated.FirstName)

	empty := "  "
	_, err = svc.Update(ctx, user.ID, UpdateUserInput{Username: &empty})
	require.Error(t, err)

	_, err = svc.Update(ctx, "missing-id", UpdateUserInput{FirstName: &firstName})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserUpdateDeactivatesAndDropsSnapshot(t *testing.T) {
	db := openServiceDB(t)
	snapshots, err := NewSnapshotService(db, SnapshotConfig{Store: cache.NewDatabaseStore(db)})
	require.NoError(t, err)
	svc, err := NewUserService(db, snapshots)
	require.NoError(t, err)

	ctx := context.Background()
	suffix := uniqueSuffix()

	user, err := svc.Create(ctx, CreateUserInput{
		Username: "toggle-" + suffix,
		Email:    "toggle-" + suffix + "@example.com",
		Password: "password",
	})
	require.NoError(t, err)
	require.True(t, user.IsActive)

	// Warm the snapshot cache while the user is active.
	_, err = snapshots.Load(ctx, user.ID)
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(ctx, user.ID, UpdateUserInput{IsActive: &inactive})
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	// Deactivation invalidates the cached snapshot immediately.
	_, err = snapshots.Load(ctx, user.ID)
	require.ErrorIs(t, err, ErrUserInactive)

	active := true
	_, err = svc.Update(ctx, user.ID, UpdateUserInput{IsActive: &active})
	require.NoError(t, err)

	snapshot, err := snapshots.Load(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, snapshot.UserID)
}

func TestUserListFiltersAndPaginates(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	suffix := uniqueSuffix()

	inactive := false
	for i, name := range []string{"list-a-", "list-b-", "list-c-"} {
		input := CreateUserInput{
			Username: name + suffix,
			Email:    name + suffix + "@example.com",
			Password: "password",
		}
		if i == 2 {
			input.IsActive = &inactive
		}
		_, err := svc.Create(ctx, input)
		require.NoError(t, err)
	}

	users, total, err := svc.List(ctx, ListUsersOptions{
		Filters: UserFilters{Query: "list-a-" + suffix},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, users, 1)

	active := true
	_, total, err = svc.List(ctx, ListUsersOptions{
		Filters: UserFilters{Query: suffix, IsActive: &active},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	paged, total, err := svc.List(ctx, ListUsersOptions{
		Page:     2,
		PageSize: 2,
		Filters:  UserFilters{Query: suffix},
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, paged, 1)
}

func TestUserSetRolesRefreshesSnapshot(t *testing.T) {
	svc, snapshots := newUserService(t)
	ctx := context.Background()
	db := svc.db

	permission := createTestPermission(t, db, "user")
	role := createTestRole(t, db, permission)
	user := createTestUser(t, db, true)

	updated, err := svc.SetRoles(ctx, user.ID, []string{role.ID, " ", role.ID})
	require.NoError(t, err)
	require.Len(t, updated.Roles, 1)

	snapshot, err := snapshots.Load(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, snapshot.Roles, 1)
	require.Len(t, snapshot.Permissions, 1)

	_, err = svc.SetRoles(ctx, user.ID, []string{"missing-role"})
	require.Error(t, err)

	cleared, err := svc.SetRoles(ctx, user.ID, nil)
	require.NoError(t, err)
	require.Empty(t, cleared.Roles)
}

func TestUserSetPermissions(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	db := svc.db

	permission := createTestPermission(t, db, "report")
	user := createTestUser(t, db, true)

	updated, err := svc.SetPermissions(ctx, user.ID, []string{permission.ID})
	require.NoError(t, err)
	require.Len(t, updated.Permissions, 1)
	require.Equal(t, permission.Name, updated.Permissions[0].Name)

	_, err = svc.SetPermissions(ctx, user.ID, []string{"missing-permission"})
	require.Error(t, err)
}

func TestUserSetActiveAndDelete(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	user := createTestUser(t, svc.db, true)

	require.NoError(t, svc.SetActive(ctx, user.ID, false))

	loaded, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, loaded.IsActive)

	require.ErrorIs(t, svc.SetActive(ctx, "missing-id", true), ErrUserNotFound)

	require.NoError(t, svc.Delete(ctx, user.ID))
	_, err = svc.GetByID(ctx, user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserChangePassword(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	suffix := uniqueSuffix()

	user, err := svc.Create(ctx, CreateUserInput{
		Username: "pwchange-" + suffix,
		Email:    "pwchange-" + suffix + "@example.com",
		Password: "old-password",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "new-password"))

	loaded, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, crypto.VerifyPassword(loaded.Password, "new-password"))
	require.False(t, crypto.VerifyPassword(loaded.Password, "old-password"))

	require.Error(t, svc.ChangePassword(ctx, user.ID, "  "))
	require.ErrorIs(t, svc.ChangePassword(ctx, "missing-id", "password"), ErrUserNotFound)
}

func TestVerifyCredentials(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	suffix := uniqueSuffix()

	created, err := svc.Create(ctx, CreateUserInput{
		Username: "login-" + suffix,
		Email:    "login-" + suffix + "@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	user, err := svc.VerifyCredentials(ctx, "login-"+suffix, "correct-horse", "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)

	loaded, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.LastLoginAt)
	require.Equal(t, "10.0.0.1", loaded.LastLoginIP)

	// Email works as the login identifier too.
	_, err = svc.VerifyCredentials(ctx, "Login-"+suffix+"@example.com", "correct-horse", "")
	require.NoError(t, err)

	_, err = svc.VerifyCredentials(ctx, "login-"+suffix, "wrong-password", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.VerifyCredentials(ctx, "no-such-user", "correct-horse", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.SetActive(ctx, created.ID, false))
	_, err = svc.VerifyCredentials(ctx, "login-"+suffix, "correct-horse", "")
	require.ErrorIs(t, err, ErrUserInactive)
}
