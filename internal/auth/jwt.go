// Package auth provides credential hashing, JWT issuing and verification, and
// the authorization gate used by the HTTP layer.
//
// SESSION MODEL:
//  1. Login issues a short-lived access token and a long-lived refresh token.
//  2. The refresh token is also stored on the user row. Exactly one refresh
//     token is live per user at any time.
//  3. Refreshing presents the stored token and swaps it for a new pair in a
//     single conditional write. Presenting an older token is a replay.
//
// Access and refresh tokens are signed with different secrets and carry a
// purpose claim, so one kind can never be accepted in place of the other.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","iss":"blog-backend","exp":...,"jti":"...","purpose":"access"}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

var (
	// ErrTokenInvalid is wrapped by every verification failure.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrTokenExpired is additionally wrapped when the only problem is expiry.
	ErrTokenExpired = errors.New("auth: token expired")
)

const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 240 * time.Hour
	DefaultIssuer     = "blog-backend"

	minSecretLength = 16
)

// Purpose distinguishes access tokens from refresh tokens.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
)

// TokenConfig holds the signing material and lifetimes. Zero TTLs and an
// empty issuer take the package defaults.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Claims is the JWT payload. The user ID lives in the standard "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"purpose"`
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenService validates cfg and returns a TokenService.
//
// Both secrets must be at least 16 characters and must differ. The refresh
// lifetime must be strictly longer than the access lifetime.
// Example: BLOG_ACCESS_TOKEN_SECRET=$(openssl rand -hex 32)
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.AccessSecret) < minSecretLength {
		return nil, fmt.Errorf("auth: access token secret must be at least %d characters", minSecretLength)
	}
	if len(cfg.RefreshSecret) < minSecretLength {
		return nil, fmt.Errorf("auth: refresh token secret must be at least %d characters", minSecretLength)
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("auth: access and refresh token secrets must differ")
	}

	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, fmt.Errorf("auth: refresh token TTL (%s) must be longer than access token TTL (%s)",
			cfg.RefreshTTL, cfg.AccessTTL)
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}, nil
}

// AccessTTL returns the lifetime of newly issued access tokens.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the lifetime of newly issued refresh tokens.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken signs a new access token for userID.
func (s *TokenService) IssueAccessToken(userID string) (string, error) {
	return s.issue(userID, PurposeAccess, s.accessTTL)
}

// IssueRefreshToken signs a new refresh token for userID.
func (s *TokenService) IssueRefreshToken(userID string) (string, error) {
	return s.issue(userID, PurposeRefresh, s.refreshTTL)
}

// IssueWithTTL signs a token with a custom lifetime. Used in tests to mint
// already-expired tokens.
func (s *TokenService) IssueWithTTL(userID string, purpose Purpose, ttl time.Duration) (string, error) {
	return s.issue(userID, purpose, ttl)
}

func (s *TokenService) issue(userID string, purpose Purpose, ttl time.Duration) (string, error) {
	secret, err := s.secretFor(purpose)
	if err != nil {
		return "", err
	}

	now := s.now()
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: purpose,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing %s token: %w", purpose, err)
	}
	return signed, nil
}

// Verify parses tokenStr and checks it was issued by this service for the
// given purpose.
//
// VALIDATION CHECKS:
//   - algorithm is HS256 (rejects "none" and algorithm confusion)
//   - signature matches the secret for purpose
//   - issuer matches, expiry present and in the future
//   - purpose claim matches and subject is non-empty
//
// Every failure wraps ErrTokenInvalid; expiry also wraps ErrTokenExpired.
func (s *TokenService) Verify(tokenStr string, purpose Purpose) (*Claims, error) {
	secret, err := s.secretFor(purpose)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	c := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenStr,
		c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if c.Purpose != purpose {
		return nil, fmt.Errorf("%w: purpose %q, want %q", ErrTokenInvalid, c.Purpose, purpose)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrTokenInvalid)
	}

	return c, nil
}

func (s *TokenService) secretFor(purpose Purpose) ([]byte, error) {
	switch purpose {
	case PurposeAccess:
		return s.accessSecret, nil
	case PurposeRefresh:
		return s.refreshSecret, nil
	default:
		return nil, fmt.Errorf("auth: unknown token purpose %q", purpose)
	}
}
