package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/mkarran/accessgate/internal/models"
	apperrors "github.com/mkarran/accessgate/pkg/errors"
)

var (
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = apperrors.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	// ErrSystemRoleImmutable prevents destructive operations on system roles.
	ErrSystemRoleImmutable = apperrors.New("ROLE_IMMUTABLE", "System roles cannot be modified", http.StatusBadRequest)
)

// CreateRoleInput describes the payload accepted by CreateRole.
type CreateRoleInput struct {
	Name     string
	Title    string
	IsSystem bool
}

// UpdateRoleInput describes mutable fields on a role.
type UpdateRoleInput struct {
	Name  *string
	Title *string
}

// RoleService provides role management and permission assignment helpers.
type RoleService struct {
	db        *gorm.DB
	snapshots *SnapshotService
}

// NewRoleService constructs a RoleService using the provided database handle.
func NewRoleService(db *gorm.DB, snapshots *SnapshotService) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	return &RoleService{
		db:        db,
		snapshots: snapshots,
	}, nil
}

// CreateRole registers a new role.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}

	role := &models.Role{
		Name:     name,
		Title:    strings.TrimSpace(input.Title),
		IsSystem: input.IsSystem,
	}

	if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("role name already exists")
		}
		return nil, fmt.Errorf("role service: create role: %w", err)
	}

	return role, nil
}

// GetRole loads a role with its assigned permissions.
func (s *RoleService) GetRole(ctx context.Context, id string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	err := s.db.WithContext(ctx).
		Preload("Permissions").
		Take(&role, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("role service: get role: %w", err)
	}

	return &role, nil
}

// ListRoles returns every role ordered by name.
func (s *RoleService) ListRoles(ctx context.Context) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	var roles []models.Role
	err := s.db.WithContext(ctx).
		Preload("Permissions").
		Order("name ASC").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("role service: list roles: %w", err)
	}

	return roles, nil
}

// UpdateRole modifies role metadata. System roles cannot be renamed.
func (s *RoleService) UpdateRole(ctx context.Context, id string, input UpdateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	role, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if role.IsSystem {
			return nil, ErrSystemRoleImmutable
		}
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("role name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}

	if len(updates) == 0 {
		return role, nil
	}

	if err := s.db.WithContext(ctx).Model(role).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("role name already exists")
		}
		return nil, fmt.Errorf("role service: update role: %w", err)
	}

	return s.GetRole(ctx, id)
}

// DeleteRole removes a non-system role and its assignments.
func (s *RoleService) DeleteRole(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	role, err := s.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRoleImmutable
	}

	s.invalidateRoleMembers(ctx, role.ID)

	if err := s.db.WithContext(ctx).Select("Permissions", "Users").Delete(role).Error; err != nil {
		return fmt.Errorf("role service: delete role: %w", err)
	}

	return nil
}

// SetRolePermissions replaces the permission grants attached to a role.
func (s *RoleService) SetRolePermissions(ctx context.Context, id string, permissionIDs []string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	role, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := normaliseIDs(permissionIDs)

	var permissions []models.Permission
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&permissions).Error; err != nil {
			return nil, fmt.Errorf("role service: load permissions: %w", err)
		}
		if len(permissions) != len(ids) {
			return nil, apperrors.NewBadRequest("one or more permissions do not exist")
		}
	}

	if err := s.db.WithContext(ctx).Model(role).Association("Permissions").Replace(permissions); err != nil {
		return nil, fmt.Errorf("role service: set permissions: %w", err)
	}

	s.invalidateRoleMembers(ctx, role.ID)

	return s.GetRole(ctx, id)
}

// ListPermissions returns every persisted permission definition ordered by name.
func (s *RoleService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	var permissions []models.Permission
	err := s.db.WithContext(ctx).
		Order("name ASC").
		Find(&permissions).Error
	if err != nil {
		return nil, fmt.Errorf("role service: list permissions: %w", err)
	}

	return permissions, nil
}

func (s *RoleService) invalidateRoleMembers(ctx context.Context, roleID string) {
	if s.snapshots == nil {
		return
	}
	_ = s.snapshots.InvalidateRole(ctx, roleID)
}
