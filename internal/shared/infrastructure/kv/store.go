// Package kv provides the durable key-value storage used for per-session
// state such as carts and sign-in codes. Backends: in-memory, Redis, and
// the SQL database.
package kv

import (
	"context"
	"errors"
	"time"
)

const (
	// KeyMaxLength is the maximum length of a fully-qualified key.
	KeyMaxLength = 256

	// ValueMaxSize is the maximum size of a stored value in bytes.
	ValueMaxSize = 1024 * 1024
)

var (
	ErrKeyTooLong  = errors.New("kv: key exceeds maximum length")
	ErrValueTooBig = errors.New("kv: value exceeds maximum size")
	ErrEmptyKey    = errors.New("kv: key is empty")
	ErrUnavailable = errors.New("kv: storage unavailable")
	ErrNotInteger  = errors.New("kv: value is not an integer")
)

// Store is a string key-value store with optional expiry.
// Get reports ok=false for missing or expired keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value; ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
	// Incr atomically adds one to the integer at key and returns the result.
	// A missing or expired key starts at 1 with ttl; an existing key keeps
	// its expiry.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Scope namespaces a Store under a prefix and applies a fixed TTL to writes.
// It satisfies the get/set/remove storage contract consumed by the cart.
type Scope struct {
	store  Store
	prefix string
	ttl    time.Duration
}

// NewScope creates a scope whose keys are "{prefix}:{key}".
func NewScope(store Store, prefix string, ttl time.Duration) *Scope {
	return &Scope{store: store, prefix: prefix, ttl: ttl}
}

// Get reads a scoped key.
func (s *Scope) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.qualify(key))
}

// Set writes a scoped key with the scope's TTL.
func (s *Scope) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.qualify(key), value, s.ttl)
}

// Remove deletes a scoped key.
func (s *Scope) Remove(ctx context.Context, key string) error {
	return s.store.Remove(ctx, s.qualify(key))
}

func (s *Scope) qualify(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func validate(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if len(key) > KeyMaxLength {
		return ErrKeyTooLong
	}
	if len(value) > ValueMaxSize {
		return ErrValueTooBig
	}
	return nil
}
