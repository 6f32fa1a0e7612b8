package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mkarran/accessgate/internal/access"
	"github.com/mkarran/accessgate/internal/cache"
	"github.com/mkarran/accessgate/internal/models"
	apperrors "github.com/mkarran/accessgate/pkg/errors"
	"github.com/mkarran/accessgate/pkg/metrics"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrUserInactive indicates the user exists but has been deactivated.
	ErrUserInactive = apperrors.New("USER_INACTIVE", "User account is inactive", http.StatusForbidden)
)

const (
	snapshotCacheKeyPrefix = "access:snapshot:"
	// DefaultSnapshotTTL bounds how long a flattened grant set may be served
	// without consulting the database.
	DefaultSnapshotTTL = 5 * time.Minute
)

// SnapshotConfig tunes snapshot caching behaviour.
type SnapshotConfig struct {
	TTL   time.Duration
	Store cache.Store
}

// SnapshotService flattens a user's role and direct grants into an access
// snapshot. Snapshots are cached per user identity so repeated gate checks
// within the TTL do not touch the database.
type SnapshotService struct {
	db    *gorm.DB
	store cache.Store
	ttl   time.Duration
}

// NewSnapshotService constructs a SnapshotService. The cache store is optional;
// without it every load reads from the database.
func NewSnapshotService(db *gorm.DB, cfg SnapshotConfig) (*SnapshotService, error) {
	if db == nil {
		return nil, errors.New("snapshot service: db is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}

	return &SnapshotService{
		db:    db,
		store: cfg.Store,
		ttl:   ttl,
	}, nil
}

// Load returns the access snapshot for the given user, preferring the cache.
func (s *SnapshotService) Load(ctx context.Context, userID string) (*access.Snapshot, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	if s.store != nil {
		if snapshot := s.fromCache(ctx, userID); snapshot != nil {
			metrics.SnapshotCache.WithLabelValues("hit").Inc()
			return snapshot, nil
		}
		metrics.SnapshotCache.WithLabelValues("miss").Inc()
	}

	snapshot, err := s.build(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if payload, marshalErr := json.Marshal(snapshot); marshalErr == nil {
			_ = s.store.Set(ctx, snapshotCacheKey(userID), payload, s.ttl)
		}
	}

	return snapshot, nil
}

// EvaluatorFor loads the user's snapshot and wraps it in a fresh evaluator.
func (s *SnapshotService) EvaluatorFor(ctx context.Context, userID string) (*access.Evaluator, error) {
	snapshot, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return access.NewEvaluator(snapshot), nil
}

// Invalidate drops the cached snapshot for a user. Call after any mutation
// that changes the user's effective grants.
func (s *SnapshotService) Invalidate(ctx context.Context, userIDs ...string) error {
	if s.store == nil {
		return nil
	}
	ctx = ensureContext(ctx)

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		keys = append(keys, snapshotCacheKey(id))
	}
	if len(keys) == 0 {
		return nil
	}
	return s.store.Delete(ctx, keys...)
}

// InvalidateRole drops cached snapshots for every user holding the role.
func (s *SnapshotService) InvalidateRole(ctx context.Context, roleID string) error {
	if s.store == nil {
		return nil
	}
	ctx = ensureContext(ctx)

	var userIDs []string
	if err := s.db.WithContext(ctx).
		Table("user_roles").
		Where("role_id = ?", roleID).
		Pluck("user_id", &userIDs).Error; err != nil {
		return fmt.Errorf("snapshot service: list role members: %w", err)
	}

	return s.Invalidate(ctx, userIDs...)
}

func (s *SnapshotService) fromCache(ctx context.Context, userID string) *access.Snapshot {
	data, found, err := s.store.Get(ctx, snapshotCacheKey(userID))
	if err != nil || !found {
		return nil
	}

	var snapshot access.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		_ = s.store.Delete(ctx, snapshotCacheKey(userID))
		return nil
	}
	if snapshot.UserID != userID {
		return nil
	}
	return &snapshot
}

func (s *SnapshotService) build(ctx context.Context, userID string) (*access.Snapshot, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Roles.Permissions").
		Preload("Permissions").
		Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot service: load user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return BuildSnapshot(&user), nil
}

// BuildSnapshot flattens a loaded user into an access snapshot. Role-derived
// and direct permissions are unioned and deduplicated by name.
func BuildSnapshot(user *models.User) *access.Snapshot {
	if user == nil {
		return nil
	}

	seen := make(map[string]struct{})
	permissions := make([]access.Permission, 0, len(user.Permissions))

	appendPermission := func(p models.Permission) {
		if _, exists := seen[p.Name]; exists {
			return
		}
		seen[p.Name] = struct{}{}
		permissions = append(permissions, access.Permission{
			Name:         p.Name,
			Title:        p.Title,
			GuardName:    p.GuardName,
			CategoryName: p.CategoryName,
		})
	}

	for _, p := range user.Permissions {
		appendPermission(p)
	}

	roles := make([]access.Role, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, access.Role{
			Name:  role.Name,
			Title: role.Title,
		})
		for _, p := range role.Permissions {
			appendPermission(p)
		}
	}

	sort.Slice(permissions, func(i, j int) bool { return permissions[i].Name < permissions[j].Name })
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })

	return &access.Snapshot{
		UserID:      user.ID,
		Permissions: permissions,
		Roles:       roles,
	}
}

func snapshotCacheKey(userID string) string {
	return snapshotCacheKeyPrefix + userID
}
