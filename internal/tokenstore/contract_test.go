package tokenstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testContacts = types.ContactRecord{
	Name:    "Max Mustermann",
	Email:   "max@example.com",
	Phone:   "+49 151 23456789",
	Address: "12345 Berlin",
}

// runStoreContract exercises behaviour every backend must share.
// newStore must build a store with the given clock and TTL.
func runStoreContract(t *testing.T, newStore func(t *testing.T, clock *fakeClock, ttl time.Duration) Store) {
	ctx := context.Background()

	t.Run("put then get", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock, DefaultTTL)

		require.NoError(t, s.Put(ctx, "tok1", "[NAME]\n[EMAIL]", testContacts))
		entry, err := s.Get(ctx, "tok1")
		require.NoError(t, err)
		assert.Equal(t, "tok1", entry.Token)
		assert.Equal(t, "[NAME]\n[EMAIL]", entry.AnonymizedText)
		assert.Equal(t, testContacts, entry.Contacts)
		assert.True(t, entry.CreatedAt.Equal(clock.Now()))
	})

	t.Run("get is repeatable", func(t *testing.T) {
		s := newStore(t, newFakeClock(), DefaultTTL)
		require.NoError(t, s.Put(ctx, "tok", "text", types.ContactRecord{}))

		for i := 0; i < 3; i++ {
			_, err := s.Get(ctx, "tok")
			require.NoError(t, err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		s := newStore(t, newFakeClock(), DefaultTTL)
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty token rejected", func(t *testing.T) {
		s := newStore(t, newFakeClock(), DefaultTTL)
		assert.ErrorIs(t, s.Put(ctx, "", "text", types.ContactRecord{}), ErrEmptyToken)
	})

	t.Run("valid at exactly ttl, expired one second later", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock, DefaultTTL)
		require.NoError(t, s.Put(ctx, "tok", "text", testContacts))

		clock.Advance(DefaultTTL)
		_, err := s.Get(ctx, "tok")
		require.NoError(t, err)

		clock.Advance(time.Second)
		_, err = s.Get(ctx, "tok")
		assert.ErrorIs(t, err, ErrNotFound)

		// Still gone; expiry is not undone by a clock that stops moving.
		_, err = s.Get(ctx, "tok")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t, newFakeClock(), DefaultTTL)
		require.NoError(t, s.Put(ctx, "tok", "text", testContacts))

		require.NoError(t, s.Delete(ctx, "tok"))
		require.NoError(t, s.Delete(ctx, "tok"))
		require.NoError(t, s.Delete(ctx, "never-existed"))

		_, err := s.Get(ctx, "tok")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put replaces and resets creation time", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock, time.Minute)
		require.NoError(t, s.Put(ctx, "tok", "old", types.ContactRecord{}))

		clock.Advance(50 * time.Second)
		require.NoError(t, s.Put(ctx, "tok", "new", types.ContactRecord{}))

		clock.Advance(50 * time.Second)
		entry, err := s.Get(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "new", entry.AnonymizedText)
	})

	t.Run("claim is exclusive until released", func(t *testing.T) {
		s := newStore(t, newFakeClock(), DefaultTTL)
		require.NoError(t, s.Put(ctx, "tok", "text", testContacts))

		require.NoError(t, s.Claim(ctx, "tok"))
		assert.ErrorIs(t, s.Claim(ctx, "tok"), ErrClaimed)

		// A claim does not hide the entry from its holder.
		_, err := s.Get(ctx, "tok")
		require.NoError(t, err)

		require.NoError(t, s.Release(ctx, "tok"))
		require.NoError(t, s.Claim(ctx, "tok"))
	})

	t.Run("claim of unknown or expired token", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock, time.Minute)
		assert.ErrorIs(t, s.Claim(ctx, "missing"), ErrNotFound)

		require.NoError(t, s.Put(ctx, "tok", "text", testContacts))
		clock.Advance(time.Minute + time.Second)
		assert.ErrorIs(t, s.Claim(ctx, "tok"), ErrNotFound)
	})

	t.Run("release without claim", func(t *testing.T) {
		s := newStore(t, newFakeClock(), DefaultTTL)
		assert.NoError(t, s.Release(ctx, "never-claimed"))
	})

	t.Run("delete drops the claim", func(t *testing.T) {
		s := newStore(t, newFakeClock(), DefaultTTL)
		require.NoError(t, s.Put(ctx, "tok", "text", testContacts))
		require.NoError(t, s.Claim(ctx, "tok"))
		require.NoError(t, s.Delete(ctx, "tok"))

		assert.ErrorIs(t, s.Claim(ctx, "tok"), ErrNotFound)

		require.NoError(t, s.Put(ctx, "tok", "again", testContacts))
		assert.NoError(t, s.Claim(ctx, "tok"))
	})

	t.Run("concurrent claims have one winner", func(t *testing.T) {
		s := newStore(t, newFakeClock(), DefaultTTL)
		require.NoError(t, s.Put(ctx, "tok", "text", testContacts))

		const n = 20
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.Claim(ctx, "tok")
			}(i)
		}
		wg.Wait()

		won := 0
		for _, err := range errs {
			if err == nil {
				won++
				continue
			}
			assert.ErrorIs(t, err, ErrClaimed)
		}
		assert.Equal(t, 1, won)
	})

	t.Run("concurrent access", func(t *testing.T) {
		s := newStore(t, newFakeClock(), DefaultTTL)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tok := fmt.Sprintf("tok-%d", i)
				assert.NoError(t, s.Put(ctx, tok, tok, types.ContactRecord{}))
				entry, err := s.Get(ctx, tok)
				if assert.NoError(t, err) {
					assert.Equal(t, tok, entry.AnonymizedText)
				}
				assert.NoError(t, s.Delete(ctx, tok))
			}(i)
		}
		wg.Wait()
	})
}

// runClaimLapse checks that a claim nobody releases stops blocking after
// ClaimTTL. Only stores that read the injected clock can run it.
func runClaimLapse(t *testing.T, newStore func(t *testing.T, clock *fakeClock, ttl time.Duration) Store) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newStore(t, clock, DefaultTTL)
	require.NoError(t, s.Put(ctx, "tok", "text", testContacts))
	require.NoError(t, s.Claim(ctx, "tok"))

	clock.Advance(ClaimTTL - time.Second)
	assert.ErrorIs(t, s.Claim(ctx, "tok"), ErrClaimed)

	clock.Advance(time.Second)
	assert.NoError(t, s.Claim(ctx, "tok"))
}
