package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnpay-broker/internal/domains/payment/model"
	infraCache "vnpay-broker/internal/infrastructure/cache"
)

var errAlreadyConfirmed = errors.New("already confirmed")

func newTarget(txnRef string) *model.CallbackTarget {
	return &model.CallbackTarget{
		TxnRef:      txnRef,
		RedirectURL: "http://localhost:3000/payment/result?order=" + txnRef,
		Amount:      decimal.NewFromInt(200000),
	}
}

// confirmOnce marks the target confirmed unless an earlier call already did
func confirmOnce(at time.Time) func(*model.CallbackTarget) error {
	return func(t *model.CallbackTarget) error {
		if t.IsConfirmed() {
			return errAlreadyConfirmed
		}
		t.ConfirmedAt = &at
		t.ConfirmedCode = "00"
		return nil
	}
}

// raceConfirm runs n concurrent confirmations and counts the winners
func raceConfirm(t *testing.T, store CallbackStore, txnRef string, n int) int32 {
	t.Helper()
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Update(context.Background(), txnRef, confirmOnce(time.Now())); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	return wins.Load()
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryCallbackStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create get", func(t *testing.T) {
		store := NewMemoryCallbackStore(10)

		require.NoError(t, store.Create(ctx, newTarget("ORDER1"), time.Minute))

		got, err := store.Get(ctx, "ORDER1")
		require.NoError(t, err)
		assert.Equal(t, "ORDER1", got.TxnRef)
		assert.Equal(t, "http://localhost:3000/payment/result?order=ORDER1", got.RedirectURL)
		assert.False(t, got.ExpiresAt.IsZero())

		_, err = store.Get(ctx, "missing")
		assert.ErrorIs(t, err, model.ErrCallbackTargetNotFound)
	})

	t.Run("duplicate create keeps the first entry", func(t *testing.T) {
		store := NewMemoryCallbackStore(10)
		require.NoError(t, store.Create(ctx, newTarget("ORDER1"), time.Minute))

		other := newTarget("ORDER1")
		other.RedirectURL = "https://evil.example/phish"
		other.Amount = decimal.NewFromInt(5000)
		assert.ErrorIs(t, store.Create(ctx, other, time.Minute), model.ErrCallbackTargetExists)

		got, err := store.Get(ctx, "ORDER1")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:3000/payment/result?order=ORDER1", got.RedirectURL)
		assert.True(t, decimal.NewFromInt(200000).Equal(got.Amount))
	})

	t.Run("expired ref can be created again", func(t *testing.T) {
		clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := NewMemoryCallbackStore(10)
		store.now = clock.Now

		require.NoError(t, store.Create(ctx, newTarget("ORDER1"), time.Minute))
		clock.Advance(time.Minute)
		assert.NoError(t, store.Create(ctx, newTarget("ORDER1"), time.Minute))
	})

	t.Run("lazy expiry on lookup", func(t *testing.T) {
		clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := NewMemoryCallbackStore(10)
		store.now = clock.Now

		require.NoError(t, store.Create(ctx, newTarget("ORDER1"), time.Minute))

		clock.Advance(59 * time.Second)
		_, err := store.Get(ctx, "ORDER1")
		require.NoError(t, err)

		clock.Advance(time.Second)
		_, err = store.Get(ctx, "ORDER1")
		assert.ErrorIs(t, err, model.ErrCallbackTargetNotFound)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("update keeps expiry", func(t *testing.T) {
		clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := NewMemoryCallbackStore(10)
		store.now = clock.Now

		require.NoError(t, store.Create(ctx, newTarget("ORDER1"), time.Minute))
		before, err := store.Get(ctx, "ORDER1")
		require.NoError(t, err)

		clock.Advance(30 * time.Second)
		updated, err := store.Update(ctx, "ORDER1", func(t *model.CallbackTarget) error {
			now := clock.Now()
			t.ReturnedAt = &now
			t.ExpiresAt = now.Add(time.Hour)
			t.TxnRef = "OTHER"
			return nil
		})
		require.NoError(t, err)
		assert.NotNil(t, updated.ReturnedAt)
		assert.Equal(t, "ORDER1", updated.TxnRef)
		assert.Equal(t, before.ExpiresAt, updated.ExpiresAt)

		clock.Advance(30 * time.Second)
		_, err = store.Get(ctx, "ORDER1")
		assert.ErrorIs(t, err, model.ErrCallbackTargetNotFound)
	})

	t.Run("update error leaves entry untouched", func(t *testing.T) {
		store := NewMemoryCallbackStore(10)
		require.NoError(t, store.Create(ctx, newTarget("ORDER1"), time.Minute))

		_, err := store.Update(ctx, "ORDER1", func(t *model.CallbackTarget) error {
			t.RedirectURL = "changed"
			return errAlreadyConfirmed
		})
		assert.ErrorIs(t, err, errAlreadyConfirmed)

		got, err := store.Get(ctx, "ORDER1")
		require.NoError(t, err)
		assert.NotEqual(t, "changed", got.RedirectURL)

		_, err = store.Update(ctx, "missing", confirmOnce(time.Now()))
		assert.ErrorIs(t, err, model.ErrCallbackTargetNotFound)
	})

	t.Run("concurrent confirmations have one winner", func(t *testing.T) {
		store := NewMemoryCallbackStore(10)
		require.NoError(t, store.Create(ctx, newTarget("ORDER1"), time.Minute))

		assert.Equal(t, int32(1), raceConfirm(t, store, "ORDER1", 16))
	})

	t.Run("concurrent creates have one winner", func(t *testing.T) {
		store := NewMemoryCallbackStore(10)
		var (
			wg      sync.WaitGroup
			created atomic.Int32
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if store.Create(ctx, newTarget("ORDER1"), time.Minute) == nil {
					created.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), created.Load())
	})

	t.Run("purge expired", func(t *testing.T) {
		clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := NewMemoryCallbackStore(10)
		store.now = clock.Now

		require.NoError(t, store.Create(ctx, newTarget("A"), time.Second))
		require.NoError(t, store.Create(ctx, newTarget("B"), time.Hour))

		assert.Equal(t, 0, store.PurgeExpired())

		clock.Advance(2 * time.Second)
		assert.Equal(t, 1, store.PurgeExpired())
		assert.Equal(t, 1, store.Len())

		_, err := store.Get(ctx, "B")
		assert.NoError(t, err)
	})

	t.Run("bounded size evicts expired first", func(t *testing.T) {
		clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := NewMemoryCallbackStore(3)
		store.now = clock.Now

		require.NoError(t, store.Create(ctx, newTarget("A"), time.Second))
		require.NoError(t, store.Create(ctx, newTarget("B"), time.Hour))
		require.NoError(t, store.Create(ctx, newTarget("C"), time.Hour))

		clock.Advance(2 * time.Second)
		require.NoError(t, store.Create(ctx, newTarget("D"), time.Hour))

		assert.Equal(t, 3, store.Len())
		_, err := store.Get(ctx, "B")
		assert.NoError(t, err)
		_, err = store.Get(ctx, "D")
		assert.NoError(t, err)
	})

	t.Run("bounded size evicts oldest when nothing expired", func(t *testing.T) {
		clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := NewMemoryCallbackStore(2)
		store.now = clock.Now

		require.NoError(t, store.Create(ctx, newTarget("A"), time.Hour))
		clock.Advance(time.Second)
		require.NoError(t, store.Create(ctx, newTarget("B"), time.Hour))
		clock.Advance(time.Second)
		require.NoError(t, store.Create(ctx, newTarget("C"), time.Hour))

		assert.Equal(t, 2, store.Len())
		_, err := store.Get(ctx, "A")
		assert.ErrorIs(t, err, model.ErrCallbackTargetNotFound)
	})

	t.Run("returned entry is a copy", func(t *testing.T) {
		store := NewMemoryCallbackStore(1)
		require.NoError(t, store.Create(ctx, newTarget("A"), time.Hour))

		got, err := store.Get(ctx, "A")
		require.NoError(t, err)
		got.RedirectURL = "mutated"

		again, err := store.Get(ctx, "A")
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.RedirectURL)
	})

	t.Run("concurrent access", func(t *testing.T) {
		store := NewMemoryCallbackStore(50)
		done := make(chan struct{})
		for i := 0; i < 8; i++ {
			go func(i int) {
				defer func() { done <- struct{}{} }()
				for j := 0; j < 100; j++ {
					ref := fmt.Sprintf("R%d-%d", i, j)
					_ = store.Create(ctx, newTarget(ref), time.Minute)
					_, _ = store.Get(ctx, ref)
				}
			}(i)
		}
		for i := 0; i < 8; i++ {
			<-done
		}
		assert.LessOrEqual(t, store.Len(), 50)
	})
}

func setupRedisStore(t *testing.T) (*RedisCallbackStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := infraCache.NewRedisClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCallbackStore(client), mr
}

func TestRedisCallbackStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create get", func(t *testing.T) {
		store, mr := setupRedisStore(t)

		require.NoError(t, store.Create(ctx, newTarget("ORDER1"), 10*time.Minute))
		assert.True(t, mr.Exists(model.CallbackKeyPrefix+"ORDER1"))
		assert.Equal(t, 10*time.Minute, mr.TTL(model.CallbackKeyPrefix+"ORDER1"))

		got, err := store.Get(ctx, "ORDER1")
		require.NoError(t, err)
		assert.Equal(t, "ORDER1", got.TxnRef)
		assert.True(t, decimal.NewFromInt(200000).Equal(got.Amount))

		_, err = store.Get(ctx, "missing")
		assert.ErrorIs(t, err, model.ErrCallbackTargetNotFound)
	})

	t.Run("duplicate create keeps the first entry", func(t *testing.T) {
		store, _ := setupRedisStore(t)
		require.NoError(t, store.Create(ctx, newTarget("ORDER1"), time.Minute))

		other := newTarget("ORDER1")
		other.RedirectURL = "https://evil.example/phish"
		assert.ErrorIs(t, store.Create(ctx, other, time.Minute), model.ErrCallbackTargetExists)

		got, err := store.Get(ctx, "ORDER1")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:3000/payment/result?order=ORDER1", got.RedirectURL)
	})

	t.Run("expires with ttl", func(t *testing.T) {
		store, mr := setupRedisStore(t)

		require.NoError(t, store.Create(ctx, newTarget("ORDER2"), time.Minute))
		mr.FastForward(61 * time.Second)

		_, err := store.Get(ctx, "ORDER2")
		assert.ErrorIs(t, err, model.ErrCallbackTargetNotFound)
		assert.NoError(t, store.Create(ctx, newTarget("ORDER2"), time.Minute))
	})

	t.Run("default ttl", func(t *testing.T) {
		store, mr := setupRedisStore(t)

		require.NoError(t, store.Create(ctx, newTarget("ORDER3"), 0))
		assert.Equal(t, model.DefaultCallbackTTL, mr.TTL(model.CallbackKeyPrefix+"ORDER3"))
	})

	t.Run("update keeps ttl", func(t *testing.T) {
		store, mr := setupRedisStore(t)
		key := model.CallbackKeyPrefix + "ORDER1"

		require.NoError(t, store.Create(ctx, newTarget("ORDER1"), 10*time.Minute))
		mr.FastForward(4 * time.Minute)

		updated, err := store.Update(ctx, "ORDER1", confirmOnce(time.Now()))
		require.NoError(t, err)
		assert.True(t, updated.IsConfirmed())
		assert.Equal(t, 6*time.Minute, mr.TTL(key))

		got, err := store.Get(ctx, "ORDER1")
		require.NoError(t, err)
		assert.True(t, got.IsConfirmed())
		assert.Equal(t, "00", got.ConfirmedCode)

		_, err = store.Update(ctx, "ORDER1", confirmOnce(time.Now()))
		assert.ErrorIs(t, err, errAlreadyConfirmed)
	})

	t.Run("update missing", func(t *testing.T) {
		store, _ := setupRedisStore(t)

		_, err := store.Update(ctx, "missing", confirmOnce(time.Now()))
		assert.ErrorIs(t, err, model.ErrCallbackTargetNotFound)
	})

	t.Run("concurrent confirmations have one winner", func(t *testing.T) {
		store, _ := setupRedisStore(t)
		require.NoError(t, store.Create(ctx, newTarget("ORDER1"), time.Minute))

		assert.Equal(t, int32(1), raceConfirm(t, store, "ORDER1", 4))
	})

	t.Run("corrupt entry surfaces error", func(t *testing.T) {
		store, mr := setupRedisStore(t)

		require.NoError(t, mr.Set(model.CallbackKeyPrefix+"BAD", "{not-json"))
		_, err := store.Get(ctx, "BAD")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrCallbackTargetNotFound)
	})

	t.Run("redis down", func(t *testing.T) {
		store, mr := setupRedisStore(t)
		mr.Close()

		err := store.Create(ctx, newTarget("ORDER4"), time.Minute)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrCallbackTargetExists)
	})
}
