package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jonathan/resume-optimizer/internal/types"
)

const (
	boltBucket      = "tokens"
	boltClaimBucket = "claims" // token -> claim expiry in unix nanoseconds
)

// BoltStore is a file-backed Store, so separate processes run one after the
// other (for example the analyze and optimize commands) share tokens.
// bbolt holds an exclusive file lock, so only one process has it open at a time.
type BoltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time

	sweepMu   sync.Mutex
	lastSweep time.Time
}

// OpenBolt opens (or creates) the database at path and ensures the bucket exists.
func OpenBolt(path string, ttl time.Duration, opts ...Option) (*BoltStore, error) {
	o := applyOptions(opts)
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt token store %q: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{boltBucket, boltClaimBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}

	return &BoltStore{db: db, ttl: ttl, now: o.now, lastSweep: o.now()}, nil
}

func (s *BoltStore) Put(_ context.Context, token, anonymizedText string, contacts types.ContactRecord) error {
	if token == "" {
		return ErrEmptyToken
	}
	now := s.now()
	s.maybeSweep(now)

	data, err := json.Marshal(types.TokenEntry{
		Token:          token,
		AnonymizedText: anonymizedText,
		Contacts:       contacts,
		CreatedAt:      now,
	})
	if err != nil {
		return fmt.Errorf("failed to encode token entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte(token), data)
	})
}

func (s *BoltStore) Get(_ context.Context, token string) (*types.TokenEntry, error) {
	now := s.now()
	s.maybeSweep(now)

	var entry *types.TokenEntry
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		v := b.Get([]byte(token))
		if v == nil {
			return nil
		}
		var e types.TokenEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("failed to decode token entry: %w", err)
		}
		if e.Expired(now, s.ttl) {
			return b.Delete([]byte(token))
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Claim checks the entry and records the claim in one write transaction,
// which bbolt serializes.
func (s *BoltStore) Claim(_ context.Context, token string) error {
	if token == "" {
		return ErrNotFound
	}
	now := s.now()
	s.maybeSweep(now)

	return s.db.Update(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(boltBucket)).Get([]byte(token))
		if v == nil {
			return ErrNotFound
		}
		var e types.TokenEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("failed to decode token entry: %w", err)
		}
		if e.Expired(now, s.ttl) {
			return ErrNotFound
		}

		claims := tx.Bucket([]byte(boltClaimBucket))
		if until, ok := claimExpiry(claims.Get([]byte(token))); ok && now.Before(until) {
			return ErrClaimed
		}
		return claims.Put([]byte(token), []byte(strconv.FormatInt(now.Add(ClaimTTL).UnixNano(), 10)))
	})
}

func (s *BoltStore) Release(_ context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltClaimBucket)).Delete([]byte(token))
	})
}

func (s *BoltStore) Delete(_ context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(boltClaimBucket)).Delete([]byte(token)); err != nil {
			return err
		}
		return tx.Bucket([]byte(boltBucket)).Delete([]byte(token))
	})
}

// claimExpiry decodes a stored claim. A missing or corrupt value is no claim.
func claimExpiry(v []byte) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) maybeSweep(now time.Time) {
	s.sweepMu.Lock()
	if now.Sub(s.lastSweep) <= SweepInterval {
		s.sweepMu.Unlock()
		return
	}
	s.lastSweep = now
	s.sweepMu.Unlock()

	_ = s.sweep(now)
}

// sweep removes every expired entry and every lapsed or orphaned claim.
// Entries that fail to decode are removed too.
func (s *BoltStore) sweep(now time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var e types.TokenEntry
			if json.Unmarshal(v, &e) != nil || e.Expired(now, s.ttl) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}

		claims := tx.Bucket([]byte(boltClaimBucket))
		var lapsed [][]byte
		err = claims.ForEach(func(k, v []byte) error {
			until, ok := claimExpiry(v)
			if !ok || !now.Before(until) || b.Get(k) == nil {
				lapsed = append(lapsed, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range lapsed {
			if err := claims.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
