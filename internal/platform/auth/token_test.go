package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer(IssuerConfig{
		SigningKey: testSigningKey,
		Issuer:     "hospitall-test",
		AccessTTL:  2 * time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
}

func testIdentity() Identity {
	return Identity{
		UserID: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Email:  "ana@example.com",
		Role:   RoleDoctor,
	}
}

func TestIssuePair_RoundTrip(t *testing.T) {
	issuer := newTestIssuer()
	pair, err := issuer.IssuePair(testIdentity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("expected Bearer, got %s", pair.TokenType)
	}
	if pair.ExpiresIn != int64((2 * time.Hour).Seconds()) {
		t.Errorf("unexpected expires_in %d", pair.ExpiresIn)
	}

	claims, err := issuer.Parse(pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID() != testIdentity().UserID {
		t.Errorf("unexpected subject %s", claims.Subject)
	}
	if claims.Email != "ana@example.com" || claims.Role != RoleDoctor {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Error("expected a jti")
	}

	refresh, err := issuer.Parse(pair.RefreshToken, TokenTypeRefresh)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if refresh.ID == claims.ID {
		t.Error("expected distinct jti for access and refresh tokens")
	}
}

func TestIssuePairAfter_LandsPastCutoffSecond(t *testing.T) {
	issuer := newTestIssuer()
	fixed := time.Date(2024, 6, 10, 9, 0, 0, 400_000_000, time.UTC)
	issuer.now = func() time.Time { return fixed }
	store := NewTokenRevocationStore()
	defer store.Close()
	ctx := context.Background()
	id := testIdentity()

	old, _ := issuer.IssuePair(id)
	oldClaims, err := issuer.Parse(old.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("parse old token: %v", err)
	}
	store.RevokeUser(ctx, id.UserID.String(), fixed.Add(100*time.Millisecond), time.Hour)

	fresh, err := issuer.IssuePairAfter(id, fixed.Add(100*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := issuer.Parse(fresh.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("fresh token must be usable immediately: %v", err)
	}
	if got, want := claims.IssuedAt.Time.Unix(), fixed.Unix()+1; got != want {
		t.Errorf("expected iat %d, got %d", want, got)
	}

	if revoked, _ := store.IsRevoked(ctx, oldClaims.ID, id.UserID.String(), oldClaims.IssuedAt.Time); !revoked {
		t.Error("token from the cutoff's second must be revoked")
	}
	if revoked, _ := store.IsRevoked(ctx, claims.ID, id.UserID.String(), claims.IssuedAt.Time); revoked {
		t.Error("pair issued after the cutoff must stay valid")
	}
}

func TestParse_WrongType(t *testing.T) {
	issuer := newTestIssuer()
	pair, _ := issuer.IssuePair(testIdentity())

	if _, err := issuer.Parse(pair.RefreshToken, TokenTypeAccess); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("expected ErrWrongTokenType, got %v", err)
	}
	if _, err := issuer.Parse(pair.AccessToken, TokenTypeRefresh); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("expected ErrWrongTokenType, got %v", err)
	}
}

func TestParse_Expired(t *testing.T) {
	issuer := newTestIssuer()
	issuer.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	pair, _ := issuer.IssuePair(testIdentity())

	issuer.now = time.Now
	if _, err := issuer.Parse(pair.AccessToken, TokenTypeAccess); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParse_WrongKeyOrIssuer(t *testing.T) {
	issuer := newTestIssuer()
	pair, _ := issuer.IssuePair(testIdentity())

	other := NewTokenIssuer(IssuerConfig{
		SigningKey: []byte("another-key-another-key-another-key"),
		Issuer:     "hospitall-test",
		AccessTTL:  time.Hour,
		RefreshTTL: time.Hour,
	})
	if _, err := other.Parse(pair.AccessToken, TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong key, got %v", err)
	}

	wrongIss := NewTokenIssuer(IssuerConfig{
		SigningKey: testSigningKey,
		Issuer:     "someone-else",
		AccessTTL:  time.Hour,
		RefreshTTL: time.Hour,
	})
	if _, err := wrongIss.Parse(pair.AccessToken, TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	if _, err := newTestIssuer().Parse("not.a.jwt", TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestClaims_ExpiresWithin(t *testing.T) {
	issuer := newTestIssuer()
	pair, _ := issuer.IssuePair(testIdentity())
	claims, _ := issuer.Parse(pair.AccessToken, TokenTypeAccess)

	now := time.Now()
	if claims.ExpiresWithin(now, 60*time.Minute) {
		t.Error("2h token should not be expiring within 60m")
	}
	if !claims.ExpiresWithin(now.Add(90*time.Minute), 60*time.Minute) {
		t.Error("token should be expiring 30m before its end")
	}
}
