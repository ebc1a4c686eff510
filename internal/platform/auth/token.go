package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim. A refresh token is never accepted
// as an access token and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenType = errors.New("wrong token type")
)

type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
}

// Identity is the subject a token pair is issued for.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// TokenPair is returned by login, register and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type IssuerConfig struct {
	SigningKey []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	cfg IssuerConfig
	now func() time.Time
}

func NewTokenIssuer(cfg IssuerConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, now: time.Now}
}

func (t *TokenIssuer) AccessTTL() time.Duration { return t.cfg.AccessTTL }

func (t *TokenIssuer) RefreshTTL() time.Duration { return t.cfg.RefreshTTL }

// IssuePair signs a fresh access and refresh token for id.
func (t *TokenIssuer) IssuePair(id Identity) (*TokenPair, error) {
	now := t.now()
	return t.issuePair(id, now, now)
}

// IssuePairAfter signs a pair whose iat falls strictly after the whole
// second of cutoff, so a per-user revocation stamped at cutoff never
// matches it. nbf stays at the current time.
func (t *TokenIssuer) IssuePairAfter(id Identity, cutoff time.Time) (*TokenPair, error) {
	now := t.now()
	issuedAt := now
	if next := cutoff.Truncate(time.Second).Add(time.Second); now.Before(next) {
		issuedAt = next
	}
	return t.issuePair(id, issuedAt, now)
}

func (t *TokenIssuer) issuePair(id Identity, issuedAt, now time.Time) (*TokenPair, error) {
	access, accessExp, err := t.sign(id, TokenTypeAccess, issuedAt, now, t.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := t.sign(id, TokenTypeRefresh, issuedAt, now, t.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int64(t.cfg.AccessTTL / time.Second),
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (t *TokenIssuer) sign(id Identity, typ string, issuedAt, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID.String(),
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:     id.Email,
		Role:      id.Role,
		TokenType: typ,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, exp, nil
}

// Parse verifies signature, issuer, expiry and token type.
func (t *TokenIssuer) Parse(tokenStr, wantType string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.cfg.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return t.cfg.SigningKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserID returns the subject as a UUID. Parse has already validated it.
func (c *Claims) UserID() uuid.UUID {
	id, _ := uuid.Parse(c.Subject)
	return id
}

// ExpiresWithin reports whether the token expires less than d after now.
func (c *Claims) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return c.ExpiresAt.Time.Sub(now) <= d
}
