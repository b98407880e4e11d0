package main

import (
	"sync"
	"time"

	"github.com/Hitchwiki/mediawiki-nostr/internal/auth"
)

// challengeStore issues single-use login challenges with a TTL. Entries are
// swept lazily on issue, so an idle daemon holds at most the challenges of
// one TTL window.
type challengeStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	expiry map[string]time.Time
	now    func() time.Time
}

func newChallengeStore(ttl time.Duration) *challengeStore {
	return &challengeStore{
		ttl:    ttl,
		expiry: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Issue returns a fresh challenge and records it.
func (s *challengeStore) Issue() string {
	c := auth.NewChallenge()

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for ch, exp := range s.expiry {
		if now.After(exp) {
			delete(s.expiry, ch)
		}
	}
	s.expiry[c] = now.Add(s.ttl)
	return c
}

// Consume removes the challenge and reports whether it was outstanding and
// unexpired. A second call with the same challenge fails.
func (s *challengeStore) Consume(c string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expiry[c]
	if !ok {
		return false
	}
	delete(s.expiry, c)
	return s.now().Before(exp)
}
