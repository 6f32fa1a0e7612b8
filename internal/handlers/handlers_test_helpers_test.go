package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/mkarran/accessgate/internal/auth"
	"github.com/mkarran/accessgate/internal/database/testutil"
	"github.com/mkarran/accessgate/internal/middleware"
	"github.com/mkarran/accessgate/internal/models"
	"github.com/mkarran/accessgate/internal/services"
)

type handlerFixture struct {
	db        *gorm.DB
	users     *services.UserService
	roles     *services.RoleService
	snapshots *services.SnapshotService
	sessions  *iauth.SessionService
	jwt       *iauth.JWTService
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	snapshots, err := services.NewSnapshotService(db, services.SnapshotConfig{})
	require.NoError(t, err)

	users, err := services.NewUserService(db, snapshots)
	require.NoError(t, err)

	roles, err := services.NewRoleService(db, snapshots)
	require.NoError(t, err)

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "handler-test-secret",
		Issuer:         "accessgate",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	sessions, err := iauth.NewSessionService(db, jwtService, iauth.SessionConfig{})
	require.NoError(t, err)

	return &handlerFixture{
		db:        db,
		users:     users,
		roles:     roles,
		snapshots: snapshots,
		sessions:  sessions,
		jwt:       jwtService,
	}
}

func iauthMetadata() iauth.SessionMetadata {
	return iauth.SessionMetadata{IPAddress: "127.0.0.1", UserAgent: "test-agent"}
}

// identify simulates the auth middleware for handler-level tests.
func identify(userID, sessionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.CtxUserIDKey, userID)
		}
		if sessionID != "" {
			c.Set(middleware.CtxSessionIDKey, sessionID)
		}
		c.Next()
	}
}

func (f *handlerFixture) createUser(t *testing.T, password string, permissions []models.Permission, roles []models.Role) *models.User {
	t.Helper()

	suffix := uuid.NewString()[:8]
	user, err := f.users.Create(nil, services.CreateUserInput{
		Username: "handler-" + suffix,
		Email:    "handler-" + suffix + "@example.com",
		Password: password,
	})
	require.NoError(t, err)

	if len(permissions) > 0 {
		require.NoError(t, f.db.Model(user).Association("Permissions").Append(&permissions))
	}
	if len(roles) > 0 {
		require.NoError(t, f.db.Model(user).Association("Roles").Append(&roles))
	}
	return user
}

func (f *handlerFixture) createPermission(t *testing.T, guard string) models.Permission {
	t.Helper()

	permission := models.Permission{
		Name:      "handler.perm." + uuid.NewString()[:8],
		GuardName: guard,
	}
	require.NoError(t, f.db.Create(&permission).Error)
	return permission
}

func (f *handlerFixture) createRole(t *testing.T, permissions ...models.Permission) models.Role {
	t.Helper()

	role := models.Role{
		Name:        "handler-role-" + uuid.NewString()[:8],
		Permissions: permissions,
	}
	require.NoError(t, f.db.Create(&role).Error)
	return role
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected success envelope, got %s", w.Body.String())
	return envelope.Data
}
