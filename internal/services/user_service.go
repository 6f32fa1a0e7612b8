package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mkarran/accessgate/internal/models"
	"github.com/mkarran/accessgate/pkg/crypto"
	apperrors "github.com/mkarran/accessgate/pkg/errors"
	"github.com/mkarran/accessgate/pkg/metrics"
)

// ErrInvalidCredentials is returned when username/password verification fails.
var ErrInvalidCredentials = apperrors.New("INVALID_CREDENTIALS", "Invalid username or password", http.StatusUnauthorized)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Avatar    string
	IsActive  *bool
}

// UpdateUserInput enumerates mutable user attributes.
type UpdateUserInput struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Avatar    *string
	IsActive  *bool
}

// UserFilters captures listing filters.
type UserFilters struct {
	IsActive *bool
	Query    string
}

// ListUsersOptions controls pagination for user listing.
type ListUsersOptions struct {
	Page     int
	PageSize int
	Filters  UserFilters
}

// UserService manages user lifecycle, credentials, and grant assignment.
type UserService struct {
	db        *gorm.DB
	snapshots *SnapshotService
}

// NewUserService constructs a UserService instance. The snapshot service is
// optional; when present, cached snapshots are invalidated on grant changes.
func NewUserService(db *gorm.DB, snapshots *SnapshotService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{
		db:        db,
		snapshots: snapshots,
	}, nil
}

// Create provisions a new user with a hashed password.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Avatar:    strings.TrimSpace(input.Avatar),
		IsActive:  true,
	}

	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("username or email already exists")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return user, nil
}

// GetByID loads a user together with assigned roles and direct permissions.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		Preload("Permissions").
		Take(&user, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}

	return &user, nil
}

// List returns a page of users and the total match count.
func (s *UserService) List(ctx context.Context, opts ListUsersOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.User{})

	if opts.Filters.IsActive != nil {
		query = query.Where("is_active = ?", *opts.Filters.IsActive)
	}
	if term := strings.TrimSpace(opts.Filters.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	err := query.
		Preload("Roles").
		Order("username ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}

// Update modifies mutable user attributes.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, apperrors.NewBadRequest("username cannot be empty")
		}
		updates["username"] = username
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, apperrors.NewBadRequest("email cannot be empty")
		}
		updates["email"] = email
	}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*input.Avatar)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("username or email already exists")
		}
		return nil, fmt.Errorf("user service: update user: %w", err)
	}

	// An active-flag change must reach gate checks before the snapshot TTL.
	if input.IsActive != nil {
		s.invalidateSnapshot(ctx, user.ID)
	}

	return s.GetByID(ctx, id)
}

// SetRoles replaces the user's role assignments with the provided role IDs.
func (s *UserService) SetRoles(ctx context.Context, id string, roleIDs []string) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := normaliseIDs(roleIDs)

	var roles []models.Role
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&roles).Error; err != nil {
			return nil, fmt.Errorf("user service: load roles: %w", err)
		}
		if len(roles) != len(ids) {
			return nil, apperrors.NewBadRequest("one or more roles do not exist")
		}
	}

	if err := s.db.WithContext(ctx).Model(user).Association("Roles").Replace(roles); err != nil {
		return nil, fmt.Errorf("user service: set roles: %w", err)
	}

	s.invalidateSnapshot(ctx, user.ID)

	return s.GetByID(ctx, id)
}

// SetPermissions replaces the user's direct permission grants.
func (s *UserService) SetPermissions(ctx context.Context, id string, permissionIDs []string) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := normaliseIDs(permissionIDs)

	var permissions []models.Permission
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&permissions).Error; err != nil {
			return nil, fmt.Errorf("user service: load permissions: %w", err)
		}
		if len(permissions) != len(ids) {
			return nil, apperrors.NewBadRequest("one or more permissions do not exist")
		}
	}

	if err := s.db.WithContext(ctx).Model(user).Association("Permissions").Replace(permissions); err != nil {
		return nil, fmt.Errorf("user service: set permissions: %w", err)
	}

	s.invalidateSnapshot(ctx, user.ID)

	return s.GetByID(ctx, id)
}

// Delete soft-deletes a user and drops any cached snapshot.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(user).Error; err != nil {
		return fmt.Errorf("user service: delete user: %w", err)
	}

	s.invalidateSnapshot(ctx, user.ID)

	return nil
}

// SetActive toggles the user's active flag.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", strings.TrimSpace(id)).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("user service: set active: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	s.invalidateSnapshot(ctx, strings.TrimSpace(id))

	return nil
}

// ChangePassword replaces the user's password hash.
func (s *UserService) ChangePassword(ctx context.Context, id, newPassword string) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(newPassword) == "" {
		return apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", strings.TrimSpace(id)).
		Update("password", hashed)
	if result.Error != nil {
		return fmt.Errorf("user service: change password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// VerifyCredentials authenticates a username (or email) and password pair.
// On success the login timestamp and source address are recorded.
func (s *UserService) VerifyCredentials(ctx context.Context, login, password, ipAddress string) (*models.User, error) {
	ctx = ensureContext(ctx)

	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find user: %w", err)
	}

	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrUserInactive
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	updates := map[string]any{
		"last_login_at": &now,
		"last_login_ip": strings.TrimSpace(ipAddress),
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	return &user, nil
}

func (s *UserService) invalidateSnapshot(ctx context.Context, userID string) {
	if s.snapshots == nil {
		return
	}
	_ = s.snapshots.Invalidate(ctx, userID)
}
