package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/resume-optimizer/internal/types"
)

const redisKeyPrefix = "resume-optimizer:token:"

// RedisStore is a Store shared across processes. Redis expires keys itself,
// so there is nothing to sweep; Get still checks the creation time.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore wraps an existing client. The store takes ownership of it and
// closes it on Close.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration, opts ...Option) *RedisStore {
	o := applyOptions(opts)
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, now: o.now}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int, ttl time.Duration, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisStore(client, ttl, opts...), nil
}

func redisKey(token string) string {
	return redisKeyPrefix + token
}

func claimKey(token string) string {
	return redisKeyPrefix + token + ":claim"
}

func (s *RedisStore) Put(ctx context.Context, token, anonymizedText string, contacts types.ContactRecord) error {
	if token == "" {
		return ErrEmptyToken
	}
	data, err := json.Marshal(types.TokenEntry{
		Token:          token,
		AnonymizedText: anonymizedText,
		Contacts:       contacts,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode token entry: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(token), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*types.TokenEntry, error) {
	return s.load(ctx, token)
}

// Claim takes the claim key with SET NX, so exactly one client wins across
// processes. The claim is dropped again if the entry turns out to be gone.
func (s *RedisStore) Claim(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotFound
	}
	won, err := s.client.SetNX(ctx, claimKey(token), "1", ClaimTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to claim token: %w", err)
	}
	if !won {
		return ErrClaimed
	}

	if _, err := s.load(ctx, token); err != nil {
		_ = s.client.Del(ctx, claimKey(token)).Err()
		return err
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, claimKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to release token: %w", err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, token string) (*types.TokenEntry, error) {
	val, err := s.client.Get(ctx, redisKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var entry types.TokenEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode token entry: %w", err)
	}
	if entry.Expired(s.now(), s.ttl) {
		_ = s.client.Del(ctx, redisKey(token)).Err()
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisKey(token), claimKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
