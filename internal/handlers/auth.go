package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/mkarran/accessgate/internal/auth"
	"github.com/mkarran/accessgate/internal/middleware"
	"github.com/mkarran/accessgate/internal/services"
	"github.com/mkarran/accessgate/pkg/errors"
	"github.com/mkarran/accessgate/pkg/response"
)

// AuthHandler manages authentication flows (login/refresh/logout/me).
type AuthHandler struct {
	users     *services.UserService
	snapshots *services.SnapshotService
	sessions  *iauth.SessionService
}

func NewAuthHandler(users *services.UserService, snapshots *services.SnapshotService, sessions *iauth.SessionService) *AuthHandler {
	return &AuthHandler{users: users, snapshots: snapshots, sessions: sessions}
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.VerifyCredentials(requestContext(c), req.Identifier, req.Password, c.ClientIP())
	if err != nil {
		// Normalise auth errors to 401
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	pair, _, err := h.sessions.CreateSession(requestContext(c), user.ID, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	snapshot, err := h.snapshots.Load(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	payload := gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"user": gin.H{
			"id":         user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"is_active":  user.IsActive,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
		},
		"permissions": snapshot.Permissions,
		"roles":       snapshot.Roles,
	}

	response.Success(c, http.StatusOK, payload)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		response.Error(c, errors.NewBadRequest("refresh token is required"))
		return
	}

	pair, _, err := h.sessions.RefreshSession(requestContext(c), req.RefreshToken)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	v, ok := c.Get(middleware.CtxSessionIDKey)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	sid, _ := v.(string)
	if sid == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeSession(requestContext(c), sid); err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	snapshot, err := h.snapshots.Load(requestContext(c), userID)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	payload := gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"is_active":   user.IsActive,
		"first_name":  user.FirstName,
		"last_name":   user.LastName,
		"permissions": snapshot.Permissions,
		"roles":       snapshot.Roles,
	}

	response.Success(c, http.StatusOK, payload)
}
