package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mkarran/accessgate/internal/models"
	"github.com/mkarran/accessgate/pkg/crypto"
	"github.com/mkarran/accessgate/pkg/metrics"
)

// DefaultRefreshTokenTTL is the fallback refresh token lifetime.
const DefaultRefreshTokenTTL = 30 * 24 * time.Hour

const defaultRefreshTokenLength = 48

// SessionConfig tunes refresh token issuance.
type SessionConfig struct {
	RefreshTokenTTL time.Duration
	RefreshLength   int
	Clock           func() time.Time
	Cache           SessionCache
}

// SessionMetadata records where a session was opened from.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// TokenPair is what login and refresh hand back to the client: a short-lived
// access token and the opaque refresh token that can mint the next one.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

var (
	// ErrSessionNotFound indicates no session matches the token or identifier.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionRevoked marks a session explicitly ended by logout or an admin.
	ErrSessionRevoked = errors.New("session: revoked")
	// ErrSessionExpired signals the refresh token outlived its window.
	ErrSessionExpired = errors.New("session: expired")
	// ErrSessionInvalidToken is returned for blank or malformed refresh tokens.
	ErrSessionInvalidToken = errors.New("session: invalid token")
)

var errSessionCacheMiss = errors.New("session cache miss")

// SessionCache caches session rows keyed by refresh token so the hot refresh
// path can skip the database.
type SessionCache interface {
	Get(ctx context.Context, refreshToken string) (*models.Session, error)
	Set(ctx context.Context, session *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, refreshToken string) error
}

// SessionService creates, rotates and revokes refresh sessions. Rotation is
// serialised through the session row update: only one refresh can win for a
// given token.
type SessionService struct {
	db         *gorm.DB
	jwt        *JWTService
	refreshTTL time.Duration
	tokenLen   int
	now        func() time.Time
	cache      SessionCache
}

func NewSessionService(db *gorm.DB, jwtService *JWTService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("session service: jwt service is required")
	}

	svc := &SessionService{
		db:         db,
		jwt:        jwtService,
		refreshTTL: cfg.RefreshTokenTTL,
		tokenLen:   cfg.RefreshLength,
		now:        cfg.Clock,
		cache:      cfg.Cache,
	}
	if svc.refreshTTL <= 0 {
		svc.refreshTTL = DefaultRefreshTokenTTL
	}
	if svc.tokenLen <= 0 {
		svc.tokenLen = defaultRefreshTokenLength
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// CreateSession opens a session for the user and returns its first token pair.
func (s *SessionService) CreateSession(ctx context.Context, userID string, meta SessionMetadata) (TokenPair, *models.Session, error) {
	ctx = sessionContext(ctx)

	if strings.TrimSpace(userID) == "" {
		return TokenPair{}, nil, errors.New("session service: user id is required")
	}

	refreshToken, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	now := s.now()
	session := &models.Session{
		UserID:       userID,
		RefreshToken: refreshToken,
		IPAddress:    strings.TrimSpace(meta.IPAddress),
		UserAgent:    strings.TrimSpace(meta.UserAgent),
		ExpiresAt:    now.Add(s.refreshTTL),
		LastUsedAt:   now,
	}

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: create session: %w", err)
	}
	metrics.ActiveSessions.Inc()

	accessToken, err := s.jwt.IssueToken(userID, session.ID)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: issue access token: %w", err)
	}

	s.cachePut(ctx, session)

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, session, nil
}

// RefreshSession swaps the presented refresh token for a rotated one together
// with a fresh access token. The presented token is unusable afterwards.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string) (TokenPair, *models.Session, error) {
	ctx = sessionContext(ctx)

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, nil, ErrSessionInvalidToken
	}

	session, err := s.sessionByToken(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, nil, err
	}

	now := s.now()
	if session.RevokedAt != nil {
		return TokenPair{}, nil, ErrSessionRevoked
	}
	if session.ExpiresAt.Before(now) {
		return TokenPair{}, nil, ErrSessionExpired
	}

	rotated, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	expiresAt := now.Add(s.refreshTTL)
	err = s.db.WithContext(ctx).Model(session).Updates(map[string]any{
		"refresh_token": rotated,
		"expires_at":    expiresAt,
		"last_used_at":  now,
	}).Error
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: rotate session: %w", err)
	}

	session.RefreshToken = rotated
	session.ExpiresAt = expiresAt
	session.LastUsedAt = now

	accessToken, err := s.jwt.IssueToken(session.UserID, session.ID)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: issue access token: %w", err)
	}

	s.cacheEvict(ctx, refreshToken)
	s.cachePut(ctx, session)

	return TokenPair{AccessToken: accessToken, RefreshToken: rotated}, session, nil
}

// RevokeSession ends a session. Revoked rows stay in place until cleanup so a
// replayed refresh token reports revoked rather than unknown.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID string) error {
	ctx = sessionContext(ctx)

	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionInvalidToken
	}

	var staleToken string
	if s.cache != nil {
		var row models.Session
		if err := s.db.WithContext(ctx).Select("refresh_token").Take(&row, "id = ?", sessionID).Error; err == nil {
			staleToken = row.RefreshToken
		}
	}

	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", s.now())
	if result.Error != nil {
		return fmt.Errorf("session service: revoke session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	s.cacheEvict(ctx, staleToken)
	metrics.ActiveSessions.Sub(float64(result.RowsAffected))

	return nil
}

// CleanupExpired deletes sessions past their expiry, reporting how many rows
// were removed.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	ctx = sessionContext(ctx)
	now := s.now()

	var activeExpired int64
	err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("expires_at < ? AND revoked_at IS NULL", now).
		Count(&activeExpired).Error
	if err != nil {
		return 0, fmt.Errorf("session service: count expired sessions: %w", err)
	}

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: delete expired sessions: %w", result.Error)
	}

	if activeExpired > 0 {
		metrics.ActiveSessions.Sub(float64(activeExpired))
	}

	return result.RowsAffected, nil
}

// sessionByToken prefers the cache; on a miss it falls back to the database.
func (s *SessionService) sessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, refreshToken); err == nil && cached != nil {
			return cached, nil
		}
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: find session: %w", err)
	}
	return &session, nil
}

func (s *SessionService) cachePut(ctx context.Context, session *models.Session) {
	if s.cache == nil || session == nil {
		return
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = s.refreshTTL
	}
	_ = s.cache.Set(ctx, session, ttl)
}

func (s *SessionService) cacheEvict(ctx context.Context, refreshToken string) {
	if s.cache == nil || refreshToken == "" {
		return
	}
	_ = s.cache.Delete(ctx, refreshToken)
}

func sessionContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
