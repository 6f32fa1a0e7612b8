package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mkarran/accessgate/internal/models"
)

func authRouter(f *handlerFixture, userID, sessionID string) *gin.Engine {
	h := NewAuthHandler(f.users, f.snapshots, f.sessions)

	r := gin.New()
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/refresh", h.Refresh)
	r.POST("/api/auth/logout", identify(userID, sessionID), h.Logout)
	r.GET("/api/auth/me", identify(userID, sessionID), h.Me)
	return r
}

func TestLoginHandler(t *testing.T) {
	f := newHandlerFixture(t)
	permission := f.createPermission(t, "web")
	user := f.createUser(t, "pass-word-123", []models.Permission{permission}, nil)

	r := authRouter(f, "", "")

	w := doJSON(t, r, http.MethodPost, "/api/auth/login", gin.H{
		"identifier": user.Username,
		"password":   "pass-word-123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	tokens, ok := data["tokens"].(map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, tokens["access_token"])
	require.NotEmpty(t, tokens["refresh_token"])

	permissions, ok := data["permissions"].([]any)
	require.True(t, ok)
	require.Len(t, permissions, 1)

	// Wrong password is rejected with 401.
	w = doJSON(t, r, http.MethodPost, "/api/auth/login", gin.H{
		"identifier": user.Username,
		"password":   "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Missing fields fail validation with 400.
	w = doJSON(t, r, http.MethodPost, "/api/auth/login", gin.H{"identifier": user.Username})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshHandler(t *testing.T) {
	f := newHandlerFixture(t)
	user := f.createUser(t, "pass-word-123", nil, nil)

	pair, _, err := f.sessions.CreateSession(context.Background(), user.ID, iauthMetadata())
	require.NoError(t, err)

	r := authRouter(f, "", "")

	w := doJSON(t, r, http.MethodPost, "/api/auth/refresh", gin.H{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	require.NotEmpty(t, data["access_token"])
	require.NotEqual(t, pair.RefreshToken, data["refresh_token"])

	// The rotated-out token no longer refreshes.
	w = doJSON(t, r, http.MethodPost, "/api/auth/refresh", gin.H{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutHandler(t *testing.T) {
	f := newHandlerFixture(t)
	user := f.createUser(t, "pass-word-123", nil, nil)

	pair, session, err := f.sessions.CreateSession(context.Background(), user.ID, iauthMetadata())
	require.NoError(t, err)

	r := authRouter(f, user.ID, session.ID)

	w := doJSON(t, r, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The revoked session cannot refresh anymore.
	w = doJSON(t, r, http.MethodPost, "/api/auth/refresh", gin.H{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Without a session in context, logout is a 401.
	anonymous := authRouter(f, "", "")
	w = doJSON(t, anonymous, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeHandler(t *testing.T) {
	f := newHandlerFixture(t)
	permission := f.createPermission(t, "web")
	role := f.createRole(t, permission)
	user := f.createUser(t, "pass-word-123", nil, []models.Role{role})

	r := authRouter(f, user.ID, "")

	w := doJSON(t, r, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	require.Equal(t, user.Username, data["username"])

	roles, ok := data["roles"].([]any)
	require.True(t, ok)
	require.Len(t, roles, 1)

	permissions, ok := data["permissions"].([]any)
	require.True(t, ok)
	require.Len(t, permissions, 1)
}
