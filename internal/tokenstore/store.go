// Package tokenstore holds the short-lived state that bridges the analysis
// step and the optimization step: the anonymized text and the captured contact
// values, keyed by an opaque single-use token.
//
// Entries expire after a TTL measured from their creation. Expired entries are
// never returned; they are removed lazily on access and by a periodic sweep
// piggybacked on store operations.
//
// A token is redeemed under a claim. Claim is atomic in every backend, so of
// several concurrent redeemers, in one process or many, exactly one wins.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/resume-optimizer/internal/types"
)

const (
	// DefaultTTL is the lifetime of a token entry.
	DefaultTTL = 60 * time.Minute
	// SweepInterval is the minimum time between two sweeps of expired entries.
	SweepInterval = 30 * time.Second
	// ClaimTTL bounds how long a claim survives a redeemer that never
	// releases it. It covers a full rewrite and reconcile budget.
	ClaimTTL = 15 * time.Minute
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
)

var (
	// ErrNotFound is returned by Get for unknown or expired tokens.
	ErrNotFound = errors.New("token not found or expired")
	// ErrEmptyToken is returned when an operation is given an empty token.
	ErrEmptyToken = errors.New("empty token")
	// ErrClaimed is returned by Claim while another claim on the token is held.
	ErrClaimed = errors.New("token is already being redeemed")
)

// Store maps tokens to entries. Implementations are safe for concurrent use.
type Store interface {
	Put(ctx context.Context, token, anonymizedText string, contacts types.ContactRecord) error
	Get(ctx context.Context, token string) (*types.TokenEntry, error)
	// Claim marks a live entry as being redeemed. It returns ErrNotFound for
	// unknown or expired tokens and ErrClaimed while an unexpired claim exists.
	Claim(ctx context.Context, token string) error
	// Release drops a claim so the token can be redeemed again. Releasing an
	// unclaimed token is not an error.
	Release(ctx context.Context, token string) error
	// Delete removes the entry and any claim on it. It is idempotent;
	// deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
	Close() error
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source. Used by tests to step past the TTL.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Options selects and configures a backend for Open.
type Options struct {
	Backend       string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BoltPath      string
}

// Open creates the store described by opts. An empty backend means memory.
func Open(ctx context.Context, opts Options, extra ...Option) (Store, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(ttl, extra...), nil
	case BackendRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis token store requires an address")
		}
		return DialRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, ttl, extra...)
	case BackendBolt:
		if opts.BoltPath == "" {
			return nil, fmt.Errorf("bolt token store requires a file path")
		}
		return OpenBolt(opts.BoltPath, ttl, extra...)
	default:
		return nil, fmt.Errorf("unknown token store backend %q", opts.Backend)
	}
}
