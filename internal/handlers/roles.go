package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkarran/accessgate/internal/registry"
	"github.com/mkarran/accessgate/internal/services"
	"github.com/mkarran/accessgate/pkg/response"
)

// RoleHandler exposes role and permission management endpoints.
type RoleHandler struct {
	roles *services.RoleService
}

func NewRoleHandler(roles *services.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

type createRoleRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=64"`
	Title string `json:"title" validate:"max=100"`
}

type updateRoleRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=64"`
	Title *string `json:"title" validate:"omitempty,max=100"`
}

type setRolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}

// GET /api/roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.roles.ListRoles(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// GET /api/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.roles.GetRole(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var req createRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, err := h.roles.CreateRole(requestContext(c), services.CreateRoleInput{
		Name:  req.Name,
		Title: req.Title,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, role)
}

// PATCH /api/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	var req updateRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, err := h.roles.UpdateRole(requestContext(c), c.Param("id"), services.UpdateRoleInput{
		Name:  req.Name,
		Title: req.Title,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.roles.DeleteRole(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/roles/:id/permissions
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	var req setRolePermissionsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, err := h.roles.SetRolePermissions(requestContext(c), c.Param("id"), req.PermissionIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, role)
}

// GET /api/permissions
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	permissions, err := h.roles.ListPermissions(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, permissions)
}

// GET /api/permissions/registry
func (h *RoleHandler) Registry(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"permissions": registry.GetAll(),
		"roles":       registry.Roles(),
		"guards":      registry.GuardNames(),
	})
}
