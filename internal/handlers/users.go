package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mkarran/accessgate/internal/services"
	"github.com/mkarran/accessgate/pkg/response"
)

// UserHandler exposes user management endpoints.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	IsActive  *bool  `json:"is_active"`
}

type updateUserRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=64"`
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Avatar    *string `json:"avatar"`
	IsActive  *bool   `json:"is_active"`
}

type assignRolesRequest struct {
	RoleIDs []string `json:"role_ids"`
}

type assignPermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 20)

	filters := services.UserFilters{Query: strings.TrimSpace(c.Query("q"))}
	if raw := strings.TrimSpace(c.Query("active")); raw != "" {
		active := raw == "true" || raw == "1"
		filters.IsActive = &active
	}

	users, total, err := h.users.List(requestContext(c), services.ListUsersOptions{
		Page:     page,
		PageSize: pageSize,
		Filters:  filters,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		totalPages++
	}

	response.SuccessWithMeta(c, http.StatusOK, users, &response.Meta{
		Page:       page,
		PerPage:    pageSize,
		Total:      int(total),
		TotalPages: totalPages,
	})
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Create(requestContext(c), services.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, user)
}

// PATCH /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Update(requestContext(c), c.Param("id"), services.UpdateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
		IsActive:  req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/users/:id/roles
func (h *UserHandler) SetRoles(c *gin.Context) {
	var req assignRolesRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.SetRoles(requestContext(c), c.Param("id"), req.RoleIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// POST /api/users/:id/permissions
func (h *UserHandler) SetPermissions(c *gin.Context) {
	var req assignPermissionsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.SetPermissions(requestContext(c), c.Param("id"), req.PermissionIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}
