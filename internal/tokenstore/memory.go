package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// MemoryStore is a process-local Store. A single mutex guards the map and the
// sweep bookkeeping.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]types.TokenEntry
	claims    map[string]time.Time // token -> claim expiry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStore creates an empty in-memory store with the given TTL.
func NewMemoryStore(ttl time.Duration, opts ...Option) *MemoryStore {
	o := applyOptions(opts)
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries:   make(map[string]types.TokenEntry),
		claims:    make(map[string]time.Time),
		ttl:       ttl,
		now:       o.now,
		lastSweep: o.now(),
	}
}

// Put stores an entry created now. An existing entry under token is replaced.
func (s *MemoryStore) Put(_ context.Context, token, anonymizedText string, contacts types.ContactRecord) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	s.entries[token] = types.TokenEntry{
		Token:          token,
		AnonymizedText: anonymizedText,
		Contacts:       contacts,
		CreatedAt:      now,
	}
	return nil
}

// Get returns a copy of the entry, or ErrNotFound. An expired entry is deleted.
func (s *MemoryStore) Get(_ context.Context, token string) (*types.TokenEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	entry, ok := s.entries[token]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.Expired(now, s.ttl) {
		delete(s.entries, token)
		return nil, ErrNotFound
	}
	return &entry, nil
}

// Claim marks the entry as being redeemed until now+ClaimTTL.
func (s *MemoryStore) Claim(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	entry, ok := s.entries[token]
	if !ok || entry.Expired(now, s.ttl) {
		return ErrNotFound
	}
	if until, held := s.claims[token]; held && now.Before(until) {
		return ErrClaimed
	}
	s.claims[token] = now.Add(ClaimTTL)
	return nil
}

// Release drops the claim on token, if any.
func (s *MemoryStore) Release(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, token)
	return nil
}

// Delete removes the entry and its claim if present.
func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())
	delete(s.entries, token)
	delete(s.claims, token)
	return nil
}

// Len returns the number of entries held, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close drops all entries.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]types.TokenEntry)
	s.claims = make(map[string]time.Time)
	return nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) <= SweepInterval {
		return
	}
	s.lastSweep = now
	for token, entry := range s.entries {
		if entry.Expired(now, s.ttl) {
			delete(s.entries, token)
		}
	}
	for token, until := range s.claims {
		if _, ok := s.entries[token]; !ok || !now.Before(until) {
			delete(s.claims, token)
		}
	}
}
