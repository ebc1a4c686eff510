package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore tracks logged-out tokens and per-user cutoffs. iat has
// whole-second precision, so a user cutoff rejects every token of that user
// issued up to and including the cutoff's second. Pairs issued right after
// a cutoff use TokenIssuer.IssuePairAfter to land in a later second.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	RevokeUser(ctx context.Context, userID string, before time.Time, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti, userID string, issuedAt time.Time) (bool, error)
	Close() error
}

type revocationEntry struct {
	ExpiresAt time.Time
}

type userCutoff struct {
	Through   time.Time
	ExpiresAt time.Time
}

// TokenRevocationStore keeps revocations in memory. Expired entries are
// dropped by a background loop every 5 minutes.
type TokenRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]revocationEntry // JTI -> entry
	users   map[string]userCutoff      // userID -> cutoff
	done    chan struct{}
	once    sync.Once
	now     func() time.Time
}

func NewTokenRevocationStore() *TokenRevocationStore {
	s := &TokenRevocationStore{
		entries: make(map[string]revocationEntry),
		users:   make(map[string]userCutoff),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go s.cleanupLoop()
	return s
}

// Revoke adds a JTI until the moment the token would have expired anyway.
func (s *TokenRevocationStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = revocationEntry{ExpiresAt: expiresAt}
	return nil
}

func (s *TokenRevocationStore) RevokeUser(_ context.Context, userID string, before time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = userCutoff{
		Through:   before.Truncate(time.Second),
		ExpiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *TokenRevocationStore) IsRevoked(_ context.Context, jti, userID string, issuedAt time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.entries[jti]; ok {
		return true, nil
	}
	if cut, ok := s.users[userID]; ok && !issuedAt.Truncate(time.Second).After(cut.Through) {
		return true, nil
	}
	return false, nil
}

// Count returns the number of currently revoked JTIs.
func (s *TokenRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *TokenRevocationStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *TokenRevocationStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *TokenRevocationStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, jti)
		}
	}
	for id, cut := range s.users {
		if now.After(cut.ExpiresAt) {
			delete(s.users, id)
		}
	}
}
