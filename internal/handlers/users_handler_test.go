package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mkarran/accessgate/internal/services"
)

func userRouter(f *handlerFixture) *gin.Engine {
	h := NewUserHandler(f.users)

	r := gin.New()
	r.GET("/api/users", h.List)
	r.GET("/api/users/:id", h.Get)
	r.POST("/api/users", h.Create)
	r.PATCH("/api/users/:id", h.Update)
	r.DELETE("/api/users/:id", h.Delete)
	r.POST("/api/users/:id/roles", h.SetRoles)
	r.POST("/api/users/:id/permissions", h.SetPermissions)
	return r
}

func TestUserHandlerCreateAndGet(t *testing.T) {
	f := newHandlerFixture(t)
	r := userRouter(f)
	suffix := uuid.NewString()[:8]

	w := doJSON(t, r, http.MethodPost, "/api/users", gin.H{
		"username": "api-user-" + suffix,
		"email":    "api-user-" + suffix + "@example.com",
		"password": "long-enough-password",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	data := decodeData(t, w)
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)

	w = doJSON(t, r, http.MethodGet, "/api/users/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	require.Equal(t, "api-user-"+suffix, data["username"])

	// Short password fails validation.
	w = doJSON(t, r, http.MethodPost, "/api/users", gin.H{
		"username": "api-user2-" + suffix,
		"email":    "api-user2-" + suffix + "@example.com",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown user is a 404.
	w = doJSON(t, r, http.MethodGet, "/api/users/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserHandlerUpdateAndDelete(t *testing.T) {
	f := newHandlerFixture(t)
	r := userRouter(f)
	user := f.createUser(t, "long-enough-password", nil, nil)

	w := doJSON(t, r, http.MethodPatch, "/api/users/"+user.ID, gin.H{"first_name": "Grace"})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	require.Equal(t, "Grace", data["first_name"])

	w = doJSON(t, r, http.MethodDelete, "/api/users/"+user.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/users/"+user.ID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserHandlerDeactivate(t *testing.T) {
	f := newHandlerFixture(t)
	r := userRouter(f)
	user := f.createUser(t, "long-enough-password", nil, nil)

	w := doJSON(t, r, http.MethodPatch, "/api/users/"+user.ID, gin.H{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	require.Equal(t, false, data["is_active"])

	// Deactivated users can no longer produce a snapshot for gate checks.
	_, err := f.snapshots.Load(context.Background(), user.ID)
	require.ErrorIs(t, err, services.ErrUserInactive)

	w = doJSON(t, r, http.MethodPatch, "/api/users/"+user.ID, gin.H{"is_active": true})
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	require.Equal(t, true, data["is_active"])
}

func TestUserHandlerAssignments(t *testing.T) {
	f := newHandlerFixture(t)
	r := userRouter(f)

	permission := f.createPermission(t, "web")
	role := f.createRole(t, permission)
	user := f.createUser(t, "long-enough-password", nil, nil)

	w := doJSON(t, r, http.MethodPost, "/api/users/"+user.ID+"/roles", gin.H{
		"role_ids": []string{role.ID},
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	roles, ok := data["roles"].([]any)
	require.True(t, ok)
	require.Len(t, roles, 1)

	direct := f.createPermission(t, "api")
	w = doJSON(t, r, http.MethodPost, "/api/users/"+user.ID+"/permissions", gin.H{
		"permission_ids": []string{direct.ID},
	})
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	permissions, ok := data["permissions"].([]any)
	require.True(t, ok)
	require.Len(t, permissions, 1)

	// Unknown role IDs are rejected.
	w = doJSON(t, r, http.MethodPost, "/api/users/"+user.ID+"/roles", gin.H{
		"role_ids": []string{"missing-role"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
