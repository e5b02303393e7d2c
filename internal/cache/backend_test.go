package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dom/sleeplog/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBackendSuite checks the Backend contract. Both implementations must pass it.
func runBackendSuite(t *testing.T, newBackend func(t *testing.T) cache.Backend) {
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Get(ctx, "absent")
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("set then get", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
		got, err := b.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
	})

	t.Run("delete", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Set(ctx, "a", []byte("1"), time.Minute))
		require.NoError(t, b.Set(ctx, "b", []byte("2"), time.Minute))
		require.NoError(t, b.Delete(ctx, "a", "b", "never-set"))

		_, err := b.Get(ctx, "a")
		assert.ErrorIs(t, err, cache.ErrMiss)
		_, err = b.Get(ctx, "b")
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("delete prefix", func(t *testing.T) {
		b := newBackend(t)
		for i := 0; i < 3; i++ {
			require.NoError(t, b.Set(ctx, fmt.Sprintf("user:1:graph:%d", i), []byte("x"), time.Minute))
		}
		require.NoError(t, b.Set(ctx, "user:1:open_session", []byte("keep"), time.Minute))
		require.NoError(t, b.Set(ctx, "user:2:graph:0", []byte("keep"), time.Minute))

		require.NoError(t, b.DeletePrefix(ctx, "user:1:graph:"))

		for i := 0; i < 3; i++ {
			_, err := b.Get(ctx, fmt.Sprintf("user:1:graph:%d", i))
			assert.ErrorIs(t, err, cache.ErrMiss)
		}
		_, err := b.Get(ctx, "user:1:open_session")
		assert.NoError(t, err)
		_, err = b.Get(ctx, "user:2:graph:0")
		assert.NoError(t, err)
	})

	t.Run("update creates and replaces", func(t *testing.T) {
		b := newBackend(t)
		err := b.Update(ctx, "counter", time.Minute, func(cur []byte, found bool) ([]byte, error) {
			assert.False(t, found)
			return []byte("1"), nil
		})
		require.NoError(t, err)

		err = b.Update(ctx, "counter", time.Minute, func(cur []byte, found bool) ([]byte, error) {
			assert.True(t, found)
			return append(cur, '1'), nil
		})
		require.NoError(t, err)

		got, err := b.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, []byte("11"), got)
	})

	t.Run("update error leaves value untouched", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
		boom := fmt.Errorf("boom")
		err := b.Update(ctx, "k", time.Minute, func([]byte, bool) ([]byte, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := b.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		b := newBackend(t)
		const writers = 20

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := b.Update(ctx, "list", time.Minute, func(cur []byte, _ bool) ([]byte, error) {
					return append(cur, 'x'), nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := b.Get(ctx, "list")
		require.NoError(t, err)
		assert.Len(t, got, writers)
	})
}

func TestStore_TypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := cache.NewStore(cache.NewMemory())
	key := cache.Key{Kind: cache.KindUser, Purpose: "example"}

	type payload struct {
		Name  string
		Count int
		At    time.Time
	}
	want := payload{Name: "n", Count: 3, At: time.Date(2026, 10, 12, 1, 2, 3, 456, time.UTC)}

	require.NoError(t, store.Set(ctx, key, want, time.Minute))

	var got payload
	require.NoError(t, store.Get(ctx, key, &got))
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Count, got.Count)
	assert.True(t, want.At.Equal(got.At))

	var missing payload
	err := store.Get(ctx, cache.Key{Kind: cache.KindUser, Purpose: "nope"}, &missing)
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestUpdate_Typed(t *testing.T) {
	ctx := context.Background()
	store := cache.NewStore(cache.NewMemory())
	key := cache.Key{Kind: cache.KindUser, Purpose: "list"}

	for i := 1; i <= 3; i++ {
		err := cache.Update(ctx, store, key, time.Minute, func(cur []int, _ bool) ([]int, error) {
			return append(cur, i), nil
		})
		require.NoError(t, err)
	}

	var got []int
	require.NoError(t, store.Get(ctx, key, &got))
	assert.Equal(t, []int{1, 2, 3}, got)
}
