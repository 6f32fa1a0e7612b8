package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mkarran/accessgate/internal/app"
	iauth "github.com/mkarran/accessgate/internal/auth"
	"github.com/mkarran/accessgate/internal/database/testutil"
	"github.com/mkarran/accessgate/internal/models"
	"github.com/mkarran/accessgate/internal/services"
)

type routerFixture struct {
	db     *gorm.DB
	engine *gin.Engine
	users  *services.UserService
	roles  *services.RoleService
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret: "router-test-secret",
		Issuer: "accessgate",
	})
	require.NoError(t, err)

	sessions, err := iauth.NewSessionService(db, jwtService, iauth.SessionConfig{
		RefreshTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	snapshots, err := services.NewSnapshotService(db, services.SnapshotConfig{TTL: time.Minute})
	require.NoError(t, err)

	users, err := services.NewUserService(db, snapshots)
	require.NoError(t, err)

	roles, err := services.NewRoleService(db, snapshots)
	require.NoError(t, err)

	cfg := &app.Config{}
	cfg.Server.RateLimit.Enabled = false
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/metrics"

	engine, err := NewRouter(Dependencies{
		DB:        db,
		Config:    cfg,
		JWT:       jwtService,
		Sessions:  sessions,
		Snapshots: snapshots,
		Users:     users,
		Roles:     roles,
	})
	require.NoError(t, err)

	return &routerFixture{db: db, engine: engine, users: users, roles: roles}
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

// createUserWithPermissions provisions an active user holding the named
// permissions as direct grants and returns the user plus the plain password.
func (f *routerFixture) createUserWithPermissions(t *testing.T, permissions ...string) (*models.User, string) {
	t.Helper()

	suffix := uuid.NewString()[:8]
	password := "router-pass-" + suffix

	user, err := f.users.Create(context.Background(), services.CreateUserInput{
		Username: "router-user-" + suffix,
		Email:    "router-" + suffix + "@example.com",
		Password: password,
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(permissions))
	for _, name := range permissions {
		perm := models.Permission{Name: name, GuardName: "web"}
		require.NoError(t, f.db.Where("name = ?", name).FirstOrCreate(&perm).Error)
		ids = append(ids, perm.ID)
	}
	if len(ids) > 0 {
		_, err = f.users.SetPermissions(context.Background(), user.ID, ids)
		require.NoError(t, err)
	}

	return user, password
}

func (f *routerFixture) login(t *testing.T, identifier, password string) string {
	t.Helper()

	w := f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"identifier": identifier,
		"password":   password,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Tokens struct {
				AccessToken string `json:"access_token"`
			} `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NotEmpty(t, envelope.Data.Tokens.AccessToken)
	return envelope.Data.Tokens.AccessToken
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := NewRouter(Dependencies{})
	require.Error(t, err)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouterUnknownRoute(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodGet, "/does-not-exist", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
}

func TestRouterRejectsAnonymousAPIAccess(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/navigation", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouterPermissionGates(t *testing.T) {
	f := newRouterFixture(t)

	admin, adminPassword := f.createUserWithPermissions(t, "user.read", "user.create")
	limited, limitedPassword := f.createUserWithPermissions(t)

	adminToken := f.login(t, admin.Username, adminPassword)
	limitedToken := f.login(t, limited.Username, limitedPassword)

	w := f.do(t, http.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/users", limitedToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	suffix := uuid.NewString()[:8]
	w = f.do(t, http.MethodPost, "/api/users", adminToken, gin.H{
		"username": "created-" + suffix,
		"email":    "created-" + suffix + "@example.com",
		"password": "created-password",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, "/api/users", limitedToken, gin.H{
		"username": "blocked-" + suffix,
		"email":    "blocked-" + suffix + "@example.com",
		"password": "blocked-password",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouterAuthenticatedFlows(t *testing.T) {
	f := newRouterFixture(t)

	user, password := f.createUserWithPermissions(t, "dashboard.view")
	token := f.login(t, user.Username, password)

	w := f.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/access/check", token, gin.H{
		"permissions": []string{"dashboard.view"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var check struct {
		Data struct {
			Granted bool `json:"granted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &check))
	require.True(t, check.Data.Granted)

	w = f.do(t, http.MethodGet, "/api/navigation", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}
