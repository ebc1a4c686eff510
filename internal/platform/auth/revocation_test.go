package auth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRevoke_and_IsRevoked(t *testing.T) {
	store := NewTokenRevocationStore()
	defer store.Close()
	ctx := context.Background()

	jti := "token-abc-123"
	if err := store.Revoke(ctx, jti, time.Now().Add(1*time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	revoked, err := store.IsRevoked(ctx, jti, "user-1", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !revoked {
		t.Errorf("expected JTI %q to be revoked", jti)
	}
}

func TestIsRevoked_NotRevoked(t *testing.T) {
	store := NewTokenRevocationStore()
	defer store.Close()

	revoked, _ := store.IsRevoked(context.Background(), "unknown-jti", "user-1", time.Now())
	if revoked {
		t.Error("expected unknown JTI to not be revoked")
	}
}

func TestRevokeUser_Cutoff(t *testing.T) {
	store := NewTokenRevocationStore()
	defer store.Close()
	ctx := context.Background()

	cutoff := time.Now()
	store.RevokeUser(ctx, "user-42", cutoff, time.Hour)

	old, _ := store.IsRevoked(ctx, "jti-old", "user-42", cutoff.Add(-time.Minute))
	if !old {
		t.Error("expected token issued before cutoff to be revoked")
	}
	fresh, _ := store.IsRevoked(ctx, "jti-new", "user-42", cutoff.Add(time.Minute))
	if fresh {
		t.Error("expected token issued after cutoff to be accepted")
	}
	other, _ := store.IsRevoked(ctx, "jti-other", "user-99", cutoff.Add(-time.Minute))
	if other {
		t.Error("expected other users to be unaffected")
	}
}

func TestRevokeUser_SameSecond(t *testing.T) {
	store := NewTokenRevocationStore()
	defer store.Close()
	ctx := context.Background()

	second := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	store.RevokeUser(ctx, "user-7", second.Add(900*time.Millisecond), time.Hour)

	if revoked, _ := store.IsRevoked(ctx, "jti-a", "user-7", second.Add(100*time.Millisecond)); !revoked {
		t.Error("token issued earlier in the cutoff's second must be revoked")
	}
	if revoked, _ := store.IsRevoked(ctx, "jti-b", "user-7", second.Add(time.Second)); revoked {
		t.Error("token issued in the next second must be accepted")
	}
}

func TestCleanup_RemovesExpired(t *testing.T) {
	store := NewTokenRevocationStore()
	defer store.Close()
	ctx := context.Background()

	store.Revoke(ctx, "expired", time.Now().Add(-time.Minute))
	store.Revoke(ctx, "live", time.Now().Add(time.Hour))
	store.RevokeUser(ctx, "user-1", time.Now(), -time.Minute)
	store.cleanup()

	if store.Count() != 1 {
		t.Errorf("expected 1 entry after cleanup, got %d", store.Count())
	}
	if revoked, _ := store.IsRevoked(ctx, "live", "", time.Now()); !revoked {
		t.Error("expected live entry to survive cleanup")
	}
	if revoked, _ := store.IsRevoked(ctx, "x", "user-1", time.Now().Add(-time.Hour)); revoked {
		t.Error("expected expired user cutoff to be removed")
	}
}

func TestClose_Idempotent(t *testing.T) {
	store := NewTokenRevocationStore()
	store.Close()
	store.Close()
}

func TestRevocation_Concurrent(t *testing.T) {
	store := NewTokenRevocationStore()
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			store.Revoke(ctx, string(rune('a'+n%26)), time.Now().Add(time.Hour))
		}(i)
		go func() {
			defer wg.Done()
			store.IsRevoked(ctx, "a", "u", time.Now())
		}()
	}
	wg.Wait()

	if store.Count() != 26 {
		t.Errorf("expected 26 distinct entries, got %d", store.Count())
	}
}

func TestNewRedis_EmptyURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), ""); err == nil {
		t.Error("expected error for empty url")
	}
}

func TestNewRedis_BadURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "http://not-redis"); err == nil {
		t.Error("expected error for non-redis scheme")
	}
}
