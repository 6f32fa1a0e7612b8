package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the fallback validity window for access tokens.
const DefaultAccessTokenTTL = 15 * time.Minute

var signingMethod = jwt.SigningMethodHS256

// JWTConfig configures token issuance and verification.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	Clock          func() time.Time
}

// Claims are the application claims carried by an access token. UserID feeds
// the snapshot lookup on every gated request; SessionID ties the token to a
// revocable refresh session.
type Claims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// JWTService issues and verifies the short-lived access tokens paired with
// refresh sessions.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	svc := &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenTTL,
		now:    cfg.Clock,
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultAccessTokenTTL
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// IssueToken signs an access token for the user. sessionID may be empty for
// tokens not backed by a refresh session.
func (s *JWTService) IssueToken(userID, sessionID string) (string, error) {
	if userID == "" {
		return "", errors.New("jwt: user id is required")
	}

	now := s.now()
	claims := &Claims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature, validity window and issuer, returning the
// application claims.
func (s *JWTService) VerifyToken(token string) (*Claims, error) {
	if token == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	claims := &Claims{}
	if _, err := parser.ParseWithClaims(token, claims, s.keyFunc); err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	switch {
	case s.issuer != "" && claims.Issuer != s.issuer:
		return nil, errors.New("jwt: invalid issuer")
	case claims.UserID == "":
		return nil, errors.New("jwt: missing user id claim")
	}

	return claims, nil
}

func (s *JWTService) keyFunc(*jwt.Token) (interface{}, error) {
	return s.secret, nil
}
