// Package cache is the derived, TTL-bound key/value layer. Nothing stored here
// is authoritative: every family can be rebuilt from postgres or from the
// aggregation queue, and callers treat a backend error like a miss.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Backend is the storage contract shared by the redis and in-memory
// implementations.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	// Update atomically replaces the value at key with fn's result. fn may be
	// called more than once when a concurrent writer wins the race.
	Update(ctx context.Context, key string, ttl time.Duration, fn func(current []byte, found bool) ([]byte, error)) error
	Close() error
}

// Kind is the entity a key belongs to.
type Kind string

const KindUser Kind = "user"

// Purposes. Every key the service writes is built from one of these.
const (
	PurposeOpenSession = "open_session"
	PurposeWeekly      = "sleep_sessions:week:"
	PurposeGraph       = "graph:"
	PurposeFollowing   = PurposeGraph + "following_ids"
	PurposeFollowers   = PurposeGraph + "followers_count"
)

// Key addresses one cache entry as (entity kind, entity id, purpose).
type Key struct {
	Kind    Kind
	ID      uuid.UUID
	Purpose string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.ID, k.Purpose)
}

func OpenSessionKey(userID uuid.UUID) Key {
	return Key{Kind: KindUser, ID: userID, Purpose: PurposeOpenSession}
}

func WeeklyKey(userID uuid.UUID, weekKey string) Key {
	return Key{Kind: KindUser, ID: userID, Purpose: PurposeWeekly + weekKey}
}

func FollowingIDsKey(userID uuid.UUID) Key {
	return Key{Kind: KindUser, ID: userID, Purpose: PurposeFollowing}
}

func FollowersCountKey(userID uuid.UUID) Key {
	return Key{Kind: KindUser, ID: userID, Purpose: PurposeFollowers}
}

// GraphPrefix covers every graph key of a user.
func GraphPrefix(userID uuid.UUID) Key {
	return Key{Kind: KindUser, ID: userID, Purpose: PurposeGraph}
}

// Store layers typed values and metrics over a Backend.
type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Get decodes the value at key into v. Misses return ErrMiss.
func (s *Store) Get(ctx context.Context, key Key, v any) error {
	raw, err := s.backend.Get(ctx, key.String())
	if err != nil {
		observe(key, err)
		return err
	}
	if err := Unmarshal(raw, v); err != nil {
		observe(key, err)
		return fmt.Errorf("decode %s: %w", key, err)
	}
	observe(key, nil)
	return nil
}

func (s *Store) Set(ctx context.Context, key Key, v any, ttl time.Duration) error {
	raw, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.backend.Set(ctx, key.String(), raw, ttl)
}

func (s *Store) Delete(ctx context.Context, keys ...Key) error {
	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = k.String()
	}
	return s.backend.Delete(ctx, raw...)
}

func (s *Store) DeletePrefix(ctx context.Context, prefix Key) error {
	return s.backend.DeletePrefix(ctx, prefix.String())
}

// Update runs a typed read-modify-write. T is decoded from the current value
// (zero value when absent) and fn's result is encoded back.
func Update[T any](ctx context.Context, s *Store, key Key, ttl time.Duration, fn func(current T, found bool) (T, error)) error {
	return s.backend.Update(ctx, key.String(), ttl, func(raw []byte, found bool) ([]byte, error) {
		var current T
		if found {
			if err := Unmarshal(raw, &current); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
		next, err := fn(current, found)
		if err != nil {
			return nil, err
		}
		return Marshal(next)
	})
}
