package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseStore_AcquireFree(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewLeaseStore(client)
	ctx := context.Background()

	leaseID, err := store.Acquire(ctx, "merchant-1", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, leaseID, "free lease should be acquired")
}

func TestLeaseStore_AcquireHeld(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewLeaseStore(client)
	ctx := context.Background()

	first, err := store.Acquire(ctx, "merchant-1", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := store.Acquire(ctx, "merchant-1", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, second, "held lease must not be acquired twice")
}

func TestLeaseStore_AcquireAfterExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewLeaseStore(client)
	ctx := context.Background()

	_, err := store.Acquire(ctx, "merchant-1", 100*time.Millisecond)
	require.NoError(t, err)

	s.FastForward(200 * time.Millisecond)

	leaseID, err := store.Acquire(ctx, "merchant-1", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, leaseID, "expired lease must be reclaimable")
}

func TestLeaseStore_RenewByOwner(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewLeaseStore(client)
	ctx := context.Background()

	leaseID, err := store.Acquire(ctx, "merchant-1", 100*time.Millisecond)
	require.NoError(t, err)

	ok, err := store.Renew(ctx, "merchant-1", leaseID, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// TTL moved past the original window.
	s.FastForward(200 * time.Millisecond)
	other, err := store.Acquire(ctx, "merchant-1", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, other, "renewed lease must still be held")
}

func TestLeaseStore_RenewByNonOwner(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewLeaseStore(client)
	ctx := context.Background()

	_, err := store.Acquire(ctx, "merchant-1", time.Minute)
	require.NoError(t, err)

	ok, err := store.Renew(ctx, "merchant-1", "stale-lease-id", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "renewal with a stale lease id must fail")
}

func TestLeaseStore_ReleaseByOwner(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewLeaseStore(client)
	ctx := context.Background()

	leaseID, err := store.Acquire(ctx, "merchant-1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.Release(ctx, "merchant-1", leaseID))

	again, err := store.Acquire(ctx, "merchant-1", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, again, "released lease must be acquirable")
}

func TestLeaseStore_ReleaseByNonOwner(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewLeaseStore(client)
	ctx := context.Background()

	leaseID, err := store.Acquire(ctx, "merchant-1", time.Minute)
	require.NoError(t, err)

	// A stale holder releasing must not free the current lease.
	require.NoError(t, store.Release(ctx, "merchant-1", "stale-lease-id"))

	other, err := store.Acquire(ctx, "merchant-1", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, other, "lease must survive a non-owner release")

	require.NoError(t, store.Release(ctx, "merchant-1", leaseID))
}

func TestLeaseStore_IndependentResources(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewLeaseStore(client)
	ctx := context.Background()

	a, err := store.Acquire(ctx, "merchant-a", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, a)

	b, err := store.Acquire(ctx, "merchant-b", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, b, "different resources must have independent leases")
}
