package service

import (
	"context"
	"errors"
	"time"

	"github.com/dom/sleeplog/internal/cache"
	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// openSessionPointer names a user's open session. It is a hint: readers
// always confirm it against the session store.
type openSessionPointer struct {
	SessionID   uuid.UUID `cbor:"session_id"`
	ClockInTime time.Time `cbor:"clock_in_time"`
	CreatedAt   time.Time `cbor:"created_at"`
}

// SessionCache keeps the open-session pointer of each user. Failures are
// logged and counted, never returned: an absent pointer only means the store
// is consulted.
type SessionCache struct {
	store *cache.Store
	ttl   time.Duration
}

func NewSessionCache(store *cache.Store, ttl time.Duration) *SessionCache {
	return &SessionCache{store: store, ttl: ttl}
}

// Remember overwrites the user's pointer with session and refreshes its TTL.
func (c *SessionCache) Remember(ctx context.Context, session *domain.SleepSession) {
	ptr := openSessionPointer{
		SessionID:   session.ID,
		ClockInTime: session.ClockInTime,
		CreatedAt:   session.CreatedAt,
	}
	if err := c.store.Set(ctx, cache.OpenSessionKey(session.UserID), ptr, c.ttl); err != nil {
		degraded(ctx, "open_session_set", err)
	}
}

// Lookup returns the session id the pointer names, if any.
func (c *SessionCache) Lookup(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool) {
	var ptr openSessionPointer
	err := c.store.Get(ctx, cache.OpenSessionKey(userID), &ptr)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			degraded(ctx, "open_session_get", err)
		}
		return uuid.Nil, false
	}
	return ptr.SessionID, true
}

// Forget clears the pointer when it still names sessionID. A pointer that
// already names a newer session is left alone.
func (c *SessionCache) Forget(ctx context.Context, userID, sessionID uuid.UUID) {
	current, ok := c.Lookup(ctx, userID)
	if !ok || current != sessionID {
		return
	}
	if err := c.store.Delete(ctx, cache.OpenSessionKey(userID)); err != nil {
		degraded(ctx, "open_session_delete", err)
	}
}

func degraded(ctx context.Context, operation string, err error) {
	metrics.CacheDegraded.WithLabelValues(operation).Inc()
	zerolog.Ctx(ctx).Warn().Err(err).Str("operation", operation).Msg("cache unavailable, falling back to store")
}
